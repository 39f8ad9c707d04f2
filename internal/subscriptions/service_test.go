package subscriptions

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jobflick/backend/internal/models"
	"github.com/jobflick/backend/internal/wallet"
)

// ---------------------------------------------------------------------------
// In-memory mocks for Store, Engine and Notifier.
// ---------------------------------------------------------------------------

type mockStore struct {
	mu       sync.Mutex
	plan     map[uuid.UUID]string
	expiry   map[uuid.UUID]*time.Time
	receipts []*models.SubscriptionReceipt

	failCreateReceipt bool
}

func newMockStore() *mockStore {
	return &mockStore{
		plan:   make(map[uuid.UUID]string),
		expiry: make(map[uuid.UUID]*time.Time),
	}
}

func (m *mockStore) WithTx(_ context.Context, fn func(pgx.Tx) error) error {
	m.mu.Lock()
	plan := make(map[uuid.UUID]string, len(m.plan))
	for k, v := range m.plan {
		plan[k] = v
	}
	expiry := make(map[uuid.UUID]*time.Time, len(m.expiry))
	for k, v := range m.expiry {
		expiry[k] = v
	}
	receipts := make([]*models.SubscriptionReceipt, len(m.receipts))
	copy(receipts, m.receipts)
	m.mu.Unlock()

	if err := fn(nil); err != nil {
		m.mu.Lock()
		m.plan, m.expiry, m.receipts = plan, expiry, receipts
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *mockStore) GetSubscription(_ context.Context, _ pgx.Tx, userID uuid.UUID) (string, *time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	plan, ok := m.plan[userID]
	if !ok {
		plan = PlanNone
	}
	return plan, m.expiry[userID], nil
}

func (m *mockStore) SetSubscription(_ context.Context, _ pgx.Tx, userID uuid.UUID, plan string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plan[userID] = plan
	m.expiry[userID] = &expiresAt
	return nil
}

func (m *mockStore) CreateReceipt(_ context.Context, _ pgx.Tx, rec *models.SubscriptionReceipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateReceipt {
		return errors.New("simulated receipt failure")
	}
	cp := *rec
	m.receipts = append(m.receipts, &cp)
	return nil
}

// mockEngine applies debits against a single in-memory balance and records
// whether a rolled-back debit was left visible.
type mockEngine struct {
	mu       sync.Mutex
	balance  int64
	platform int64
	applied  []wallet.ApplyInput
}

func (m *mockEngine) ApplyTx(_ context.Context, _ pgx.Tx, in wallet.ApplyInput) (*wallet.TransactionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if in.Direction != models.DirectionUserToJobflick {
		return nil, errors.New("unexpected direction")
	}
	if m.balance < in.Amount {
		return nil, wallet.ErrInsufficientBalance
	}
	before := m.balance
	m.balance -= in.Amount
	m.platform += in.Amount
	m.applied = append(m.applied, in)
	after := m.balance
	now := time.Now()
	entry := &models.WalletTransaction{
		ID:            uuid.New(),
		Reference:     "TX-TESTREF1",
		UserID:        in.UserID,
		Direction:     in.Direction,
		Category:      in.Category,
		Amount:        in.Amount,
		BalanceBefore: &before,
		BalanceAfter:  &after,
		Note:          in.Note,
		Status:        models.StatusCompleted,
		ProcessedAt:   &now,
	}
	return &wallet.TransactionResult{Entry: entry, BalanceBefore: before, BalanceAfter: after}, nil
}

type notifyCall struct {
	userID  uuid.UUID
	staff   bool
	message string
	link    string
}

type mockNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (m *mockNotifier) NotifyUserTx(_ context.Context, _ pgx.Tx, userID uuid.UUID, message, link string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, notifyCall{userID: userID, message: message, link: link})
}

func (m *mockNotifier) NotifyStaffTx(_ context.Context, _ pgx.Tx, message, link string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, notifyCall{staff: true, message: message, link: link})
}

func fixedNow(t *testing.T, svc *Service, at time.Time) {
	t.Helper()
	svc.now = func() time.Time { return at }
}

// ---------------------------------------------------------------------------
// 1. Purchase happy path
// ---------------------------------------------------------------------------

func TestPurchaseActivatesPlan(t *testing.T) {
	user := uuid.New()
	store := newMockStore()
	engine := &mockEngine{balance: 2000}
	notifier := &mockNotifier{}
	svc := NewService(store, engine, notifier)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fixedNow(t, svc, now)

	res, err := svc.Purchase(context.Background(), user, "one_month")
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}

	// Wallet debited by the plan price.
	if engine.balance != 1880 {
		t.Errorf("balance: got %d, want 1880", engine.balance)
	}
	if len(engine.applied) != 1 || engine.applied[0].Category != models.CategorySubscription {
		t.Error("purchase should apply exactly one subscription debit")
	}

	// Expiry is now + 30 days for a fresh subscription.
	wantExpiry := now.AddDate(0, 0, 30)
	if !res.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("expiry: got %s, want %s", res.ExpiresAt, wantExpiry)
	}
	if store.plan[user] != "one_month" {
		t.Errorf("stored plan: got %q, want one_month", store.plan[user])
	}

	// Receipt snapshots the wallet around the debit.
	if len(store.receipts) != 1 {
		t.Fatalf("receipts: got %d, want 1", len(store.receipts))
	}
	rec := store.receipts[0]
	if rec.WalletBefore != 2000 || rec.WalletAfter != 1880 {
		t.Errorf("receipt snapshots: got %d/%d, want 2000/1880", rec.WalletBefore, rec.WalletAfter)
	}
	if rec.TransactionID != res.Entry.ID {
		t.Error("receipt should reference the ledger entry")
	}

	// One user and one staff notification.
	var userN, staffN int
	for _, c := range notifier.calls {
		if c.staff {
			staffN++
		} else {
			userN++
			if c.userID != user {
				t.Error("user notification should target the purchaser")
			}
		}
	}
	if userN != 1 || staffN != 1 {
		t.Errorf("notifications: got %d user / %d staff, want 1/1", userN, staffN)
	}
}

// ---------------------------------------------------------------------------
// 2. Expiry extension
// ---------------------------------------------------------------------------

func TestPurchaseExtendsActiveSubscription(t *testing.T) {
	user := uuid.New()
	store := newMockStore()
	engine := &mockEngine{balance: 5000}
	svc := NewService(store, engine, &mockNotifier{})
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	fixedNow(t, svc, now)

	// Active until 2026-03-20: the new month stacks on top of it.
	current := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	store.plan[user] = "one_month"
	store.expiry[user] = &current

	res, err := svc.Purchase(context.Background(), user, "one_month")
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	want := current.AddDate(0, 0, 30)
	if !res.ExpiresAt.Equal(want) {
		t.Errorf("stacked expiry: got %s, want %s", res.ExpiresAt, want)
	}
}

func TestPurchaseAfterLapseStartsFromNow(t *testing.T) {
	user := uuid.New()
	store := newMockStore()
	engine := &mockEngine{balance: 5000}
	svc := NewService(store, engine, &mockNotifier{})
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	fixedNow(t, svc, now)

	// Expired last year: no credit for the lapsed period.
	past := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store.plan[user] = "one_year"
	store.expiry[user] = &past

	res, err := svc.Purchase(context.Background(), user, "six_months")
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	want := now.AddDate(0, 0, 182)
	if !res.ExpiresAt.Equal(want) {
		t.Errorf("expiry after lapse: got %s, want %s", res.ExpiresAt, want)
	}
	if store.plan[user] != "six_months" {
		t.Errorf("stored plan: got %q, want six_months", store.plan[user])
	}
}

// ---------------------------------------------------------------------------
// 3. Failure paths
// ---------------------------------------------------------------------------

func TestPurchaseUnknownPlan(t *testing.T) {
	engine := &mockEngine{balance: 5000}
	svc := NewService(newMockStore(), engine, &mockNotifier{})

	_, err := svc.Purchase(context.Background(), uuid.New(), "forever_free")
	if !errors.Is(err, ErrUnknownPlan) {
		t.Fatalf("expected ErrUnknownPlan, got: %v", err)
	}
	if len(engine.applied) != 0 {
		t.Error("unknown plan must not touch the wallet")
	}
}

func TestPurchaseInsufficientBalance(t *testing.T) {
	user := uuid.New()
	store := newMockStore()
	engine := &mockEngine{balance: 100}
	notifier := &mockNotifier{}
	svc := NewService(store, engine, notifier)

	_, err := svc.Purchase(context.Background(), user, "one_month")
	if !errors.Is(err, wallet.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got: %v", err)
	}
	if _, ok := store.plan[user]; ok {
		t.Error("rejected purchase must not set a plan")
	}
	if len(store.receipts) != 0 {
		t.Error("rejected purchase must not write a receipt")
	}
	if len(notifier.calls) != 0 {
		t.Error("rejected purchase must not notify anyone")
	}
}

func TestPurchaseRollsBackOnReceiptFailure(t *testing.T) {
	user := uuid.New()
	store := newMockStore()
	store.failCreateReceipt = true
	engine := &mockEngine{balance: 2000}
	svc := NewService(store, engine, &mockNotifier{})

	_, err := svc.Purchase(context.Background(), user, "one_month")
	if err == nil {
		t.Fatal("expected receipt failure to surface")
	}
	if _, ok := store.plan[user]; ok {
		t.Error("subscription state must roll back with the receipt")
	}
	if len(store.receipts) != 0 {
		t.Error("no receipt may survive the rollback")
	}
}

// ---------------------------------------------------------------------------
// 4. Notification content
// ---------------------------------------------------------------------------

func TestPurchaseNotificationsNamePlanAndPrice(t *testing.T) {
	user := uuid.New()
	notifier := &mockNotifier{}
	svc := NewService(newMockStore(), &mockEngine{balance: 5000}, notifier)

	if _, err := svc.Purchase(context.Background(), user, "six_months"); err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	for _, c := range notifier.calls {
		if c.staff {
			if !strings.Contains(c.message, "500") {
				t.Errorf("staff message should mention the price, got %q", c.message)
			}
		} else {
			if !strings.Contains(c.message, "6 Months Access") {
				t.Errorf("user message should name the plan, got %q", c.message)
			}
		}
	}
}
