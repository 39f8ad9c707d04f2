package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jobflick/backend/internal/metrics"
	"github.com/jobflick/backend/internal/models"
	"github.com/jobflick/backend/internal/subscriptions"
	"github.com/jobflick/backend/internal/wallet"
)

// ErrInvalidStatus is returned for an unrecognized status filter.
var ErrInvalidStatus = errors.New("invalid status filter")

// TxRunner supplies the atomic unit settlement operations run in.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(pgx.Tx) error) error
}

// Notifier queues user notifications on the settling transaction.
type Notifier interface {
	NotifyUserTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, message, link string)
}

// Engine is the slice of the wallet engine settlement needs.
type Engine interface {
	ApplyTx(ctx context.Context, tx pgx.Tx, in wallet.ApplyInput) (*wallet.TransactionResult, error)
	CompleteTx(ctx context.Context, tx pgx.Tx, entryID uuid.UUID, actorID *uuid.UUID) (*wallet.TransactionResult, error)
	FailTx(ctx context.Context, tx pgx.Tx, entryID uuid.UUID, reason string) (*models.WalletTransaction, error)
}

// EntryLister is what the service needs to browse the ledger.
type EntryLister interface {
	ListAll(ctx context.Context, limit, offset int) ([]*models.WalletTransaction, error)
	ListByStatus(ctx context.Context, status models.TransactionStatus, limit, offset int) ([]*models.WalletTransaction, error)
	PlatformBalance(ctx context.Context) (int64, error)
}

// SubscriptionSummarizer aggregates plan purchases for the dashboard.
type SubscriptionSummarizer interface {
	Summary(ctx context.Context) ([]subscriptions.PlanTotal, error)
}

// Service is the staff-side settlement surface: completing and failing
// pending payouts, crediting top-ups, and ledger overviews. Every balance
// movement still goes through the wallet engine; this service only composes
// the engine call with the post-commit notification.
type Service struct {
	txr     TxRunner
	engine  Engine
	notify  Notifier
	entries EntryLister
	subs    SubscriptionSummarizer
}

func NewService(txr TxRunner, engine Engine, notify Notifier, entries EntryLister, subs SubscriptionSummarizer) *Service {
	return &Service{txr: txr, engine: engine, notify: notify, entries: entries, subs: subs}
}

// CompleteEntry settles a pending or processing entry, stamping the acting
// staff member as initiator when none is recorded. The user is notified
// after commit.
func (s *Service) CompleteEntry(ctx context.Context, entryID uuid.UUID, actorID uuid.UUID) (*wallet.TransactionResult, error) {
	var res *wallet.TransactionResult
	err := s.txr.WithTx(ctx, func(tx pgx.Tx) error {
		r, err := s.engine.CompleteTx(ctx, tx, entryID, &actorID)
		if err != nil {
			return err
		}
		s.notify.NotifyUserTx(ctx, tx, r.Entry.UserID,
			fmt.Sprintf("Transaction %s for %d BDT has been completed.", r.Entry.Reference, r.Entry.Amount),
			"/wallet")
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.TransactionsCompleted.WithLabelValues(string(res.Entry.Direction), string(res.Entry.Category)).Inc()
	return res, nil
}

// FailEntry marks a non-terminal entry failed and tells the user why.
func (s *Service) FailEntry(ctx context.Context, entryID uuid.UUID, reason string) (*models.WalletTransaction, error) {
	var entry *models.WalletTransaction
	err := s.txr.WithTx(ctx, func(tx pgx.Tx) error {
		e, err := s.engine.FailTx(ctx, tx, entryID, reason)
		if err != nil {
			return err
		}
		msg := fmt.Sprintf("Transaction %s could not be processed.", e.Reference)
		if reason != "" {
			msg = fmt.Sprintf("Transaction %s could not be processed: %s", e.Reference, reason)
		}
		s.notify.NotifyUserTx(ctx, tx, e.UserID, msg, "/wallet")
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// TopUp credits a user's wallet from the platform wallet, e.g. after an
// out-of-band cash deposit.
func (s *Service) TopUp(ctx context.Context, userID uuid.UUID, amount int64, note string, actorID uuid.UUID) (*wallet.TransactionResult, error) {
	var res *wallet.TransactionResult
	err := s.txr.WithTx(ctx, func(tx pgx.Tx) error {
		r, err := s.engine.ApplyTx(ctx, tx, wallet.ApplyInput{
			UserID:      userID,
			Amount:      amount,
			Direction:   models.DirectionJobflickToUser,
			Category:    models.CategoryTopUp,
			Note:        note,
			InitiatedBy: &actorID,
		})
		if err != nil {
			return err
		}
		s.notify.NotifyUserTx(ctx, tx, userID,
			fmt.Sprintf("%d BDT was added to your wallet.", amount),
			"/wallet")
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.TransactionsCompleted.WithLabelValues(string(models.DirectionJobflickToUser), string(models.CategoryTopUp)).Inc()
	return res, nil
}

// Transactions lists ledger entries, optionally filtered by status.
func (s *Service) Transactions(ctx context.Context, status string, limit, offset int) ([]*models.WalletTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if status == "" {
		return s.entries.ListAll(ctx, limit, offset)
	}
	st := models.TransactionStatus(status)
	switch st {
	case models.StatusPending, models.StatusProcessing, models.StatusCompleted, models.StatusFailed:
		return s.entries.ListByStatus(ctx, st, limit, offset)
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
}

// Overview reports the platform balance and per-plan subscription totals.
type Overview struct {
	PlatformBalance   int64                     `json:"platform_balance"`
	SubscriptionTotal int64                     `json:"subscription_total"`
	Plans             []subscriptions.PlanTotal `json:"plans"`
}

func (s *Service) GetOverview(ctx context.Context) (*Overview, error) {
	balance, err := s.entries.PlatformBalance(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := s.subs.Summary(ctx)
	if err != nil {
		return nil, err
	}
	var overall int64
	for _, t := range totals {
		overall += t.Total
	}
	return &Overview{PlatformBalance: balance, SubscriptionTotal: overall, Plans: totals}, nil
}
