package notifications

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// NotifyArgs is the payload of a queued notification fan-out. Jobs are
// inserted in the same database transaction as the wallet mutation they
// announce, so they become visible to workers only once that transaction
// commits. Nothing is dispatched from inside a locked section, and a
// rolled-back transaction leaves no job behind.
type NotifyArgs struct {
	UserIDs []uuid.UUID `json:"user_ids,omitempty"`
	Staff   bool        `json:"staff,omitempty"`
	Message string      `json:"message"`
	Link    string      `json:"link,omitempty"`
}

func (NotifyArgs) Kind() string { return "notify" }

// InsertNotifyTxFunc enqueues a notify job within the given transaction.
// Provided by main as a closure over river.Client.InsertTx.
type InsertNotifyTxFunc func(ctx context.Context, tx pgx.Tx, args NotifyArgs) error

// Service is the fire-and-forget notify capability. Enqueue failures are
// logged, never propagated: notification delivery is best-effort and must
// not abort the business transaction it rides on.
type Service struct {
	insertTx InsertNotifyTxFunc
	log      *slog.Logger
}

func NewService(insertTx InsertNotifyTxFunc, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{insertTx: insertTx, log: log}
}

// NotifyUserTx queues a message for one user.
func (s *Service) NotifyUserTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, message, link string) {
	s.enqueue(ctx, tx, NotifyArgs{UserIDs: []uuid.UUID{userID}, Message: message, Link: link})
}

// NotifyStaffTx queues a message for every staff account; recipients are
// resolved at delivery time.
func (s *Service) NotifyStaffTx(ctx context.Context, tx pgx.Tx, message, link string) {
	s.enqueue(ctx, tx, NotifyArgs{Staff: true, Message: message, Link: link})
}

func (s *Service) enqueue(ctx context.Context, tx pgx.Tx, args NotifyArgs) {
	if err := s.insertTx(ctx, tx, args); err != nil {
		s.log.Error("enqueue notification", "error", err, "message", args.Message)
	}
}
