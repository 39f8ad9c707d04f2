package payouts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jobflick/backend/internal/models"
	"github.com/jobflick/backend/internal/wallet"
)

// TxRunner supplies the atomic unit a payout request rides on.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(pgx.Tx) error) error
}

// Notifier queues staff notifications on the same transaction.
type Notifier interface {
	NotifyStaffTx(ctx context.Context, tx pgx.Tx, message, link string)
}

// Engine is the slice of the wallet engine a payout request needs.
type Engine interface {
	CreatePendingTx(ctx context.Context, tx pgx.Tx, in wallet.ApplyInput) (*models.WalletTransaction, error)
}

// Service records payout requests. A request is a pending wallet
// transaction; no balance moves until a staff member settles it.
type Service struct {
	txr    TxRunner
	engine Engine
	notify Notifier
}

func NewService(txr TxRunner, engine Engine, notify Notifier) *Service {
	return &Service{txr: txr, engine: engine, notify: notify}
}

// Request creates a pending payout entry for the user and alerts staff.
func (s *Service) Request(ctx context.Context, userID uuid.UUID, amount int64, note string) (*models.WalletTransaction, error) {
	var entry *models.WalletTransaction
	err := s.txr.WithTx(ctx, func(tx pgx.Tx) error {
		e, err := s.engine.CreatePendingTx(ctx, tx, wallet.ApplyInput{
			UserID:      userID,
			Amount:      amount,
			Direction:   models.DirectionJobflickToUser,
			Category:    models.CategoryPayout,
			Note:        note,
			InitiatedBy: &userID,
		})
		if err != nil {
			return err
		}
		s.notify.NotifyStaffTx(ctx, tx,
			fmt.Sprintf("New payout request %s for %d BDT awaits review.", e.Reference, amount),
			"/admin?section=transactions")
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}
