package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobflick/backend/internal/models"
)

// ErrEntryNotFound is returned when a wallet transaction does not exist.
var ErrEntryNotFound = errors.New("wallet transaction not found")

const entryColumns = `id, reference, user_id, initiated_by, job_id, direction, category, amount,
		balance_before, balance_after, platform_balance_before, platform_balance_after,
		note, status, created_at, processed_at`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a single transaction, committing on nil error and
// rolling back otherwise.
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

// GetOrCreateProfile returns the user's wallet profile, creating it with the
// given starting balance on first access. The starting balance is a policy
// the caller decides (signup bonus or zero), not something the store owns.
func (r *Repository) GetOrCreateProfile(ctx context.Context, userID uuid.UUID, startingBalance int64) (*models.UserProfile, error) {
	if _, err := r.pool.Exec(ctx, `
		INSERT INTO user_profiles (user_id, wallet_balance)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, startingBalance); err != nil {
		return nil, err
	}
	var p models.UserProfile
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, wallet_balance, subscription_plan, subscription_expires_at, updated_at
		FROM user_profiles WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.WalletBalance, &p.SubscriptionPlan, &p.SubscriptionExpiresAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// LockProfile acquires an exclusive row lock on the user's wallet profile,
// creating the row first if it does not exist. Call within a transaction,
// always before LockPlatform.
func (r *Repository) LockProfile(ctx context.Context, tx pgx.Tx, userID uuid.UUID, startingBalance int64) (*models.UserProfile, error) {
	if _, err := tx.Exec(ctx, `
		INSERT INTO user_profiles (user_id, wallet_balance)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, startingBalance); err != nil {
		return nil, err
	}
	var p models.UserProfile
	err := tx.QueryRow(ctx, `
		SELECT user_id, wallet_balance, subscription_plan, subscription_expires_at, updated_at
		FROM user_profiles WHERE user_id = $1 FOR UPDATE
	`, userID).Scan(&p.UserID, &p.WalletBalance, &p.SubscriptionPlan, &p.SubscriptionExpiresAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// LockPlatform acquires an exclusive lock on the singleton platform wallet
// row, creating it with a zero balance on first access. Call within a
// transaction, always after the user row lock.
func (r *Repository) LockPlatform(ctx context.Context, tx pgx.Tx) (*models.PlatformWallet, error) {
	if _, err := tx.Exec(ctx, `
		INSERT INTO platform_wallet (id, balance)
		VALUES ($1, 0)
		ON CONFLICT (id) DO NOTHING
	`, models.PlatformWalletID); err != nil {
		return nil, err
	}
	var w models.PlatformWallet
	err := tx.QueryRow(ctx, `
		SELECT id, balance, updated_at FROM platform_wallet WHERE id = $1 FOR UPDATE
	`, models.PlatformWalletID).Scan(&w.ID, &w.Balance, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// SetProfileBalance writes the user's new balance. Call after LockProfile in
// the same transaction.
func (r *Repository) SetProfileBalance(ctx context.Context, tx pgx.Tx, userID uuid.UUID, balance int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE user_profiles SET wallet_balance = $2, updated_at = now() WHERE user_id = $1
	`, userID, balance)
	return err
}

// SetPlatformBalance writes the platform's new balance. Call after
// LockPlatform in the same transaction.
func (r *Repository) SetPlatformBalance(ctx context.Context, tx pgx.Tx, balance int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE platform_wallet SET balance = $2, updated_at = now() WHERE id = $1
	`, models.PlatformWalletID, balance)
	return err
}

// PlatformBalance reads the current platform balance without locking.
func (r *Repository) PlatformBalance(ctx context.Context) (int64, error) {
	var balance int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE((SELECT balance FROM platform_wallet WHERE id = $1), 0)
	`, models.PlatformWalletID).Scan(&balance)
	return balance, err
}

// CreateEntry inserts a wallet transaction inside the given transaction.
func (r *Repository) CreateEntry(ctx context.Context, tx pgx.Tx, e *models.WalletTransaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO wallet_transactions (id, reference, user_id, initiated_by, job_id, direction, category, amount,
			balance_before, balance_after, platform_balance_before, platform_balance_after,
			note, status, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at
	`, e.ID, e.Reference, e.UserID, e.InitiatedBy, e.JobID, e.Direction, e.Category, e.Amount,
		e.BalanceBefore, e.BalanceAfter, e.PlatformBalanceBefore, e.PlatformBalanceAfter,
		e.Note, e.Status, e.ProcessedAt).Scan(&e.CreatedAt)
}

// CompleteEntry writes the before/after balance fields, status, processed_at
// and initiator of a completing entry. The balance fields are written here
// exactly once; no other code path touches them after completion.
func (r *Repository) CompleteEntry(ctx context.Context, tx pgx.Tx, e *models.WalletTransaction) error {
	_, err := tx.Exec(ctx, `
		UPDATE wallet_transactions
		SET balance_before = $2, balance_after = $3,
			platform_balance_before = $4, platform_balance_after = $5,
			status = $6, processed_at = $7, initiated_by = $8
		WHERE id = $1
	`, e.ID, e.BalanceBefore, e.BalanceAfter, e.PlatformBalanceBefore, e.PlatformBalanceAfter,
		e.Status, e.ProcessedAt, e.InitiatedBy)
	return err
}

// UpdateEntryStatus writes status, note, processed_at and initiator for
// non-completing transitions (processing, failed).
func (r *Repository) UpdateEntryStatus(ctx context.Context, tx pgx.Tx, e *models.WalletTransaction) error {
	_, err := tx.Exec(ctx, `
		UPDATE wallet_transactions
		SET status = $2, note = $3, processed_at = $4, initiated_by = $5
		WHERE id = $1
	`, e.ID, e.Status, e.Note, e.ProcessedAt, e.InitiatedBy)
	return err
}

func (r *Repository) GetEntry(ctx context.Context, id uuid.UUID) (*models.WalletTransaction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM wallet_transactions WHERE id = $1`, id)
	return scanEntry(row)
}

// GetEntryForUpdate locks the entry row so concurrent completions of the
// same entry serialize. Call within a transaction.
func (r *Repository) GetEntryForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.WalletTransaction, error) {
	row := tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM wallet_transactions WHERE id = $1 FOR UPDATE`, id)
	return scanEntry(row)
}

// ReferenceExists reports whether a transaction reference is already taken.
// Called inside the creating transaction so the persisted reference is
// unique at commit.
func (r *Repository) ReferenceExists(ctx context.Context, tx pgx.Tx, reference string) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM wallet_transactions WHERE reference = $1)
	`, reference).Scan(&exists)
	return exists, err
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.WalletTransaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+` FROM wallet_transactions
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (r *Repository) ListAll(ctx context.Context, limit, offset int) ([]*models.WalletTransaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+` FROM wallet_transactions
		ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (r *Repository) ListByStatus(ctx context.Context, status models.TransactionStatus, limit, offset int) ([]*models.WalletTransaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+` FROM wallet_transactions
		WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntry(row pgx.Row) (*models.WalletTransaction, error) {
	var e models.WalletTransaction
	err := row.Scan(&e.ID, &e.Reference, &e.UserID, &e.InitiatedBy, &e.JobID, &e.Direction, &e.Category, &e.Amount,
		&e.BalanceBefore, &e.BalanceAfter, &e.PlatformBalanceBefore, &e.PlatformBalanceAfter,
		&e.Note, &e.Status, &e.CreatedAt, &e.ProcessedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning wallet transaction: %w", err)
	}
	return &e, nil
}

func scanEntries(rows pgx.Rows) ([]*models.WalletTransaction, error) {
	var list []*models.WalletTransaction
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
