package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jobflick/backend/internal/metrics"
	"github.com/jobflick/backend/internal/models"
	"github.com/jobflick/backend/internal/wallet"
)

// ErrUnknownPlan is returned for a plan key that is not in the plan table.
var ErrUnknownPlan = errors.New("unknown subscription plan")

// Store is the persistence contract Purchase needs. *Repository satisfies
// it; tests substitute an in-memory fake.
type Store interface {
	WithTx(ctx context.Context, fn func(pgx.Tx) error) error
	GetSubscription(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (string, *time.Time, error)
	SetSubscription(ctx context.Context, tx pgx.Tx, userID uuid.UUID, plan string, expiresAt time.Time) error
	CreateReceipt(ctx context.Context, tx pgx.Tx, rec *models.SubscriptionReceipt) error
}

// Notifier is the post-commit notify capability used after a purchase.
type Notifier interface {
	NotifyUserTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, message, link string)
	NotifyStaffTx(ctx context.Context, tx pgx.Tx, message, link string)
}

// Engine is the slice of the wallet engine a purchase needs.
type Engine interface {
	ApplyTx(ctx context.Context, tx pgx.Tx, in wallet.ApplyInput) (*wallet.TransactionResult, error)
}

// PurchaseResult holds everything a purchase produced.
type PurchaseResult struct {
	Plan      Plan                        `json:"plan"`
	Entry     *models.WalletTransaction   `json:"transaction"`
	Receipt   *models.SubscriptionReceipt `json:"receipt"`
	ExpiresAt time.Time                   `json:"expires_at"`
}

// Service activates subscription plans. A purchase debits the wallet through
// the transaction engine, extends the expiry and writes the receipt as one
// atomic unit; notifications ride on the same transaction and are delivered
// only after it commits.
type Service struct {
	store  Store
	engine Engine
	notify Notifier
	now    func() time.Time
}

func NewService(store Store, engine Engine, notify Notifier) *Service {
	return &Service{store: store, engine: engine, notify: notify, now: time.Now}
}

var _ Store = (*Repository)(nil)

// Purchase applies planKey to the user's account. It fails with
// ErrUnknownPlan before acquiring any lock, and surfaces the engine's
// insufficiency error unchanged.
func (s *Service) Purchase(ctx context.Context, userID uuid.UUID, planKey string) (*PurchaseResult, error) {
	plan, ok := PlanByKey(planKey)
	if !ok {
		return nil, ErrUnknownPlan
	}
	var res *PurchaseResult
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		tr, err := s.engine.ApplyTx(ctx, tx, wallet.ApplyInput{
			UserID:    userID,
			Amount:    plan.Price,
			Direction: models.DirectionUserToJobflick,
			Category:  models.CategorySubscription,
			Note:      plan.Label,
		})
		if err != nil {
			return err
		}

		_, currentExpiry, err := s.store.GetSubscription(ctx, tx, userID)
		if err != nil {
			return err
		}
		expiresAt := s.nextExpiry(currentExpiry, plan)
		if err := s.store.SetSubscription(ctx, tx, userID, plan.Key, expiresAt); err != nil {
			return err
		}

		receipt := &models.SubscriptionReceipt{
			ID:            uuid.New(),
			UserID:        userID,
			Plan:          plan.Key,
			Amount:        plan.Price,
			WalletBefore:  tr.BalanceBefore,
			WalletAfter:   tr.BalanceAfter,
			TransactionID: tr.Entry.ID,
		}
		if err := s.store.CreateReceipt(ctx, tx, receipt); err != nil {
			return err
		}

		s.notify.NotifyUserTx(ctx, tx, userID,
			fmt.Sprintf("%s activated successfully. Expires on %s.", plan.Label, expiresAt.Format("2006-01-02")),
			"/subscription")
		s.notify.NotifyStaffTx(ctx, tx,
			fmt.Sprintf("%s purchased and %d BDT was added to the Jobflick wallet.", plan.Label, plan.Price),
			"/admin?section=subscribers")

		res = &PurchaseResult{Plan: plan, Entry: tr.Entry, Receipt: receipt, ExpiresAt: expiresAt}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.SubscriptionPurchases.WithLabelValues(plan.Key).Inc()
	return res, nil
}

// nextExpiry extends from the current expiry when the subscription is still
// active, otherwise from now.
func (s *Service) nextExpiry(currentExpiry *time.Time, plan Plan) time.Time {
	base := s.now()
	if currentExpiry != nil && currentExpiry.After(base) {
		base = *currentExpiry
	}
	return base.AddDate(0, 0, plan.DurationDays)
}
