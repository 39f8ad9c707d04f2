package notifications

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

// NotificationStore is the contract the worker needs to deliver a fan-out.
type NotificationStore interface {
	CreateBatch(ctx context.Context, userIDs []uuid.UUID, message, link string, staffOnly bool) error
	ListStaffIDs(ctx context.Context) ([]uuid.UUID, error)
}

// NotifyWorker delivers queued notifications. River retries it on error, so
// delivery failures never affect the transaction that enqueued the job.
type NotifyWorker struct {
	river.WorkerDefaults[NotifyArgs]
	store NotificationStore
	log   *slog.Logger
}

func NewNotifyWorker(store NotificationStore, log *slog.Logger) *NotifyWorker {
	if log == nil {
		log = slog.Default()
	}
	return &NotifyWorker{store: store, log: log}
}

func (w *NotifyWorker) Work(ctx context.Context, job *river.Job[NotifyArgs]) error {
	args := job.Args

	recipients := args.UserIDs
	if args.Staff {
		staffIDs, err := w.store.ListStaffIDs(ctx)
		if err != nil {
			return err
		}
		recipients = append(recipients, staffIDs...)
	}
	if len(recipients) == 0 {
		w.log.Warn("notify job with no recipients", "message", args.Message)
		return nil
	}
	return w.store.CreateBatch(ctx, recipients, args.Message, args.Link, args.Staff)
}
