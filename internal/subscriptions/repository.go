package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobflick/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a single transaction, committing on nil error.
func (r *Repository) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetSubscription reads the user's current plan and expiry inside the
// caller's transaction. The profile row is already locked by the wallet
// engine at this point.
func (r *Repository) GetSubscription(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (string, *time.Time, error) {
	var plan string
	var expiresAt *time.Time
	err := tx.QueryRow(ctx, `
		SELECT subscription_plan, subscription_expires_at FROM user_profiles WHERE user_id = $1
	`, userID).Scan(&plan, &expiresAt)
	if err != nil {
		return "", nil, err
	}
	return plan, expiresAt, nil
}

// SetSubscription writes the new plan and expiry.
func (r *Repository) SetSubscription(ctx context.Context, tx pgx.Tx, userID uuid.UUID, plan string, expiresAt time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE user_profiles
		SET subscription_plan = $2, subscription_expires_at = $3, updated_at = now()
		WHERE user_id = $1
	`, userID, plan, expiresAt)
	return err
}

// CreateReceipt inserts the plan-purchase receipt inside the transaction.
func (r *Repository) CreateReceipt(ctx context.Context, tx pgx.Tx, rec *models.SubscriptionReceipt) error {
	return tx.QueryRow(ctx, `
		INSERT INTO subscription_receipts (id, user_id, plan, amount, wallet_before, wallet_after, transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, rec.ID, rec.UserID, rec.Plan, rec.Amount, rec.WalletBefore, rec.WalletAfter, rec.TransactionID).Scan(&rec.CreatedAt)
}

func (r *Repository) ListReceiptsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.SubscriptionReceipt, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, plan, amount, wallet_before, wallet_after, transaction_id, created_at
		FROM subscription_receipts WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReceipts(rows)
}

// PlanTotal aggregates receipts for one plan.
type PlanTotal struct {
	Plan  string `json:"plan"`
	Count int64  `json:"count"`
	Total int64  `json:"total"`
}

// Summary returns per-plan purchase counts and amount totals.
func (r *Repository) Summary(ctx context.Context) ([]PlanTotal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT plan, COUNT(*), COALESCE(SUM(amount), 0)
		FROM subscription_receipts GROUP BY plan
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var totals []PlanTotal
	for rows.Next() {
		var t PlanTotal
		if err := rows.Scan(&t.Plan, &t.Count, &t.Total); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

func scanReceipts(rows pgx.Rows) ([]*models.SubscriptionReceipt, error) {
	var list []*models.SubscriptionReceipt
	for rows.Next() {
		var rec models.SubscriptionReceipt
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Plan, &rec.Amount, &rec.WalletBefore, &rec.WalletAfter, &rec.TransactionID, &rec.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &rec)
	}
	return list, rows.Err()
}
