package payouts

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jobflick/backend/internal/models"
	"github.com/jobflick/backend/internal/wallet"
)

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(pgx.Tx) error) error {
	return fn(nil)
}

type mockEngine struct {
	created []wallet.ApplyInput
	err     error
}

func (m *mockEngine) CreatePendingTx(_ context.Context, _ pgx.Tx, in wallet.ApplyInput) (*models.WalletTransaction, error) {
	if in.Amount <= 0 {
		return nil, wallet.ErrInvalidAmount
	}
	if m.err != nil {
		return nil, m.err
	}
	m.created = append(m.created, in)
	return &models.WalletTransaction{
		ID:          uuid.New(),
		Reference:   "TX-PAYOUT01",
		UserID:      in.UserID,
		InitiatedBy: in.InitiatedBy,
		Direction:   in.Direction,
		Category:    in.Category,
		Amount:      in.Amount,
		Note:        in.Note,
		Status:      models.StatusPending,
	}, nil
}

type mockNotifier struct {
	messages []string
}

func (m *mockNotifier) NotifyStaffTx(_ context.Context, _ pgx.Tx, message, _ string) {
	m.messages = append(m.messages, message)
}

func TestRequestCreatesPendingPayout(t *testing.T) {
	user := uuid.New()
	engine := &mockEngine{}
	notifier := &mockNotifier{}
	svc := NewService(passthroughTx{}, engine, notifier)

	entry, err := svc.Request(context.Background(), user, 200, "march payout")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}

	if entry.Status != models.StatusPending {
		t.Errorf("status: got %s, want pending", entry.Status)
	}
	if entry.Direction != models.DirectionJobflickToUser {
		t.Errorf("direction: got %s, want jobflick_to_user", entry.Direction)
	}
	if entry.Category != models.CategoryPayout {
		t.Errorf("category: got %s, want payout", entry.Category)
	}
	if entry.InitiatedBy == nil || *entry.InitiatedBy != user {
		t.Error("requesting user should be recorded as initiator")
	}

	// Staff are alerted with the reference and amount.
	if len(notifier.messages) != 1 {
		t.Fatalf("staff notifications: got %d, want 1", len(notifier.messages))
	}
	if !strings.Contains(notifier.messages[0], entry.Reference) ||
		!strings.Contains(notifier.messages[0], "200") {
		t.Errorf("staff message should carry reference and amount, got %q", notifier.messages[0])
	}
}

func TestRequestRejectsNonPositiveAmount(t *testing.T) {
	engine := &mockEngine{}
	notifier := &mockNotifier{}
	svc := NewService(passthroughTx{}, engine, notifier)

	_, err := svc.Request(context.Background(), uuid.New(), 0, "")
	if !errors.Is(err, wallet.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got: %v", err)
	}
	if len(engine.created) != 0 || len(notifier.messages) != 0 {
		t.Error("rejected request must not create entries or notify")
	}
}

func TestRequestSurfacesEngineFailure(t *testing.T) {
	boom := errors.New("db down")
	svc := NewService(passthroughTx{}, &mockEngine{err: boom}, &mockNotifier{})

	_, err := svc.Request(context.Background(), uuid.New(), 100, "")
	if !errors.Is(err, boom) {
		t.Fatalf("expected engine error to surface, got: %v", err)
	}
}
