package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jobflick/backend/internal/metrics"
	"github.com/jobflick/backend/internal/models"
)

var (
	// ErrInvalidAmount is returned when the amount is not a positive integer.
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	// ErrInsufficientBalance is returned when the user's wallet cannot cover a debit.
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	// ErrInsufficientPlatformBalance is returned when the platform wallet cannot cover a payout.
	ErrInsufficientPlatformBalance = errors.New("platform wallet cannot cover this payout")
	// ErrInvalidStateTransition is returned when completing or failing an entry that is already terminal.
	ErrInvalidStateTransition = errors.New("wallet transaction is already in a terminal state")
)

// ApplyInput describes one requested value movement.
type ApplyInput struct {
	UserID      uuid.UUID
	Amount      int64
	Direction   models.Direction
	Category    models.Category
	Note        string
	JobID       *uuid.UUID
	InitiatedBy *uuid.UUID
}

func (in ApplyInput) validate() error {
	if in.Amount <= 0 {
		return ErrInvalidAmount
	}
	if !in.Direction.IsValid() {
		return fmt.Errorf("invalid direction %q", in.Direction)
	}
	if !in.Category.IsValid() {
		return fmt.Errorf("invalid category %q", in.Category)
	}
	return nil
}

// TransactionResult pairs a completed entry with the user balance snapshots
// taken under the row lock.
type TransactionResult struct {
	Entry         *models.WalletTransaction
	BalanceBefore int64
	BalanceAfter  int64
}

// Store is the persistence contract the engine needs. *Repository satisfies
// it; tests substitute an in-memory fake.
type Store interface {
	WithTx(ctx context.Context, fn func(pgx.Tx) error) error
	GetOrCreateProfile(ctx context.Context, userID uuid.UUID, startingBalance int64) (*models.UserProfile, error)
	LockProfile(ctx context.Context, tx pgx.Tx, userID uuid.UUID, startingBalance int64) (*models.UserProfile, error)
	LockPlatform(ctx context.Context, tx pgx.Tx) (*models.PlatformWallet, error)
	SetProfileBalance(ctx context.Context, tx pgx.Tx, userID uuid.UUID, balance int64) error
	SetPlatformBalance(ctx context.Context, tx pgx.Tx, balance int64) error
	CreateEntry(ctx context.Context, tx pgx.Tx, e *models.WalletTransaction) error
	CompleteEntry(ctx context.Context, tx pgx.Tx, e *models.WalletTransaction) error
	UpdateEntryStatus(ctx context.Context, tx pgx.Tx, e *models.WalletTransaction) error
	GetEntry(ctx context.Context, id uuid.UUID) (*models.WalletTransaction, error)
	GetEntryForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.WalletTransaction, error)
	ReferenceExists(ctx context.Context, tx pgx.Tx, reference string) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.WalletTransaction, error)
}

// Service is the wallet transaction engine. Every balance mutation in the
// system goes through it: it locks the user row then the platform row (in
// that fixed order), checks sufficiency, writes both balances and the
// ledger entry as one atomic unit. It performs no notification or other
// side-effect dispatch; callers handle those after commit.
type Service interface {
	Apply(ctx context.Context, in ApplyInput) (*TransactionResult, error)
	ApplyTx(ctx context.Context, tx pgx.Tx, in ApplyInput) (*TransactionResult, error)
	CreatePending(ctx context.Context, in ApplyInput) (*models.WalletTransaction, error)
	CreatePendingTx(ctx context.Context, tx pgx.Tx, in ApplyInput) (*models.WalletTransaction, error)
	MarkProcessing(ctx context.Context, entryID uuid.UUID, actorID *uuid.UUID) (*models.WalletTransaction, error)
	Complete(ctx context.Context, entryID uuid.UUID, actorID *uuid.UUID) (*TransactionResult, error)
	CompleteTx(ctx context.Context, tx pgx.Tx, entryID uuid.UUID, actorID *uuid.UUID) (*TransactionResult, error)
	Fail(ctx context.Context, entryID uuid.UUID, reason string) (*models.WalletTransaction, error)
	FailTx(ctx context.Context, tx pgx.Tx, entryID uuid.UUID, reason string) (*models.WalletTransaction, error)
	Balance(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
	History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.WalletTransaction, error)
}

type service struct {
	store       Store
	signupBonus int64
	now         func() time.Time
}

// NewService creates the wallet engine. signupBonus is the starting balance
// for wallets created on first access.
func NewService(store Store, signupBonus int64) *service {
	return &service{store: store, signupBonus: signupBonus, now: time.Now}
}

var _ Service = (*service)(nil)
var _ Store = (*Repository)(nil)

// nextBalances applies the signed-amount rule: the paying side decreases by
// amount, the receiving side increases by the same amount. It rejects any
// movement that would drive either side negative, before any mutation.
func nextBalances(userBefore, platformBefore, amount int64, direction models.Direction) (userAfter, platformAfter int64, err error) {
	switch direction {
	case models.DirectionUserToJobflick:
		if userBefore < amount {
			return 0, 0, ErrInsufficientBalance
		}
		return userBefore - amount, platformBefore + amount, nil
	case models.DirectionJobflickToUser:
		if platformBefore < amount {
			return 0, 0, ErrInsufficientPlatformBalance
		}
		return userBefore + amount, platformBefore - amount, nil
	}
	return 0, 0, fmt.Errorf("invalid direction %q", direction)
}

func (s *service) Apply(ctx context.Context, in ApplyInput) (*TransactionResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var res *TransactionResult
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		var txErr error
		res, txErr = s.ApplyTx(ctx, tx, in)
		return txErr
	})
	if err != nil {
		countRejection(in.Direction, err)
		return nil, err
	}
	metrics.TransactionsCompleted.WithLabelValues(string(in.Direction), string(in.Category)).Inc()
	return res, nil
}

// ApplyTx performs the locked read-check-write inside the caller's
// transaction, so a caller can combine the debit with its own writes into
// one atomic unit. On an insufficiency error nothing has been written; the
// caller must roll back.
func (s *service) ApplyTx(ctx context.Context, tx pgx.Tx, in ApplyInput) (*TransactionResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	profile, err := s.store.LockProfile(ctx, tx, in.UserID, s.signupBonus)
	if err != nil {
		return nil, err
	}
	platform, err := s.store.LockPlatform(ctx, tx)
	if err != nil {
		return nil, err
	}
	balanceBefore := profile.WalletBalance
	platformBefore := platform.Balance
	balanceAfter, platformAfter, err := nextBalances(balanceBefore, platformBefore, in.Amount, in.Direction)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetProfileBalance(ctx, tx, in.UserID, balanceAfter); err != nil {
		return nil, err
	}
	if err := s.store.SetPlatformBalance(ctx, tx, platformAfter); err != nil {
		return nil, err
	}
	ref, err := newReference(ctx, tx, s.store)
	if err != nil {
		return nil, err
	}
	now := s.now()
	entry := &models.WalletTransaction{
		ID:                    uuid.New(),
		Reference:             ref,
		UserID:                in.UserID,
		InitiatedBy:           in.InitiatedBy,
		JobID:                 in.JobID,
		Direction:             in.Direction,
		Category:              in.Category,
		Amount:                in.Amount,
		BalanceBefore:         &balanceBefore,
		BalanceAfter:          &balanceAfter,
		PlatformBalanceBefore: &platformBefore,
		PlatformBalanceAfter:  &platformAfter,
		Note:                  in.Note,
		Status:                models.StatusCompleted,
		ProcessedAt:           &now,
	}
	if err := s.store.CreateEntry(ctx, tx, entry); err != nil {
		return nil, err
	}
	return &TransactionResult{Entry: entry, BalanceBefore: balanceBefore, BalanceAfter: balanceAfter}, nil
}

func (s *service) CreatePending(ctx context.Context, in ApplyInput) (*models.WalletTransaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var entry *models.WalletTransaction
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		var txErr error
		entry, txErr = s.CreatePendingTx(ctx, tx, in)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// CreatePendingTx records a pending entry with no balance mutation; the
// before/after fields stay null until completion.
func (s *service) CreatePendingTx(ctx context.Context, tx pgx.Tx, in ApplyInput) (*models.WalletTransaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	ref, err := newReference(ctx, tx, s.store)
	if err != nil {
		return nil, err
	}
	entry := &models.WalletTransaction{
		ID:          uuid.New(),
		Reference:   ref,
		UserID:      in.UserID,
		InitiatedBy: in.InitiatedBy,
		JobID:       in.JobID,
		Direction:   in.Direction,
		Category:    in.Category,
		Amount:      in.Amount,
		Note:        in.Note,
		Status:      models.StatusPending,
	}
	if err := s.store.CreateEntry(ctx, tx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// MarkProcessing moves a pending entry to processing, stamping the actor as
// initiator if none was recorded. Processing entries pass through unchanged.
func (s *service) MarkProcessing(ctx context.Context, entryID uuid.UUID, actorID *uuid.UUID) (*models.WalletTransaction, error) {
	var entry *models.WalletTransaction
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		e, err := s.store.GetEntryForUpdate(ctx, tx, entryID)
		if err != nil {
			return err
		}
		if e.Status.IsTerminal() {
			return ErrInvalidStateTransition
		}
		if e.Status == models.StatusPending {
			e.Status = models.StatusProcessing
			if actorID != nil && e.InitiatedBy == nil {
				e.InitiatedBy = actorID
			}
			if err := s.store.UpdateEntryStatus(ctx, tx, e); err != nil {
				return err
			}
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) Complete(ctx context.Context, entryID uuid.UUID, actorID *uuid.UUID) (*TransactionResult, error) {
	var res *TransactionResult
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		var txErr error
		res, txErr = s.CompleteTx(ctx, tx, entryID, actorID)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	metrics.TransactionsCompleted.WithLabelValues(string(res.Entry.Direction), string(res.Entry.Category)).Inc()
	return res, nil
}

// CompleteTx settles a pending or processing entry: same locked
// read-check-write as ApplyTx, using the entry's recorded direction and
// amount. Completing an already-completed entry is idempotent and returns
// the recorded snapshots without touching any balance. Sufficiency is
// re-checked here because balances may have moved since the entry was
// created.
func (s *service) CompleteTx(ctx context.Context, tx pgx.Tx, entryID uuid.UUID, actorID *uuid.UUID) (*TransactionResult, error) {
	entry, err := s.store.GetEntryForUpdate(ctx, tx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Status == models.StatusCompleted {
		return recordedResult(entry), nil
	}
	if entry.Status == models.StatusFailed {
		return nil, ErrInvalidStateTransition
	}
	profile, err := s.store.LockProfile(ctx, tx, entry.UserID, s.signupBonus)
	if err != nil {
		return nil, err
	}
	platform, err := s.store.LockPlatform(ctx, tx)
	if err != nil {
		return nil, err
	}
	balanceBefore := profile.WalletBalance
	platformBefore := platform.Balance
	balanceAfter, platformAfter, err := nextBalances(balanceBefore, platformBefore, entry.Amount, entry.Direction)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetProfileBalance(ctx, tx, entry.UserID, balanceAfter); err != nil {
		return nil, err
	}
	if err := s.store.SetPlatformBalance(ctx, tx, platformAfter); err != nil {
		return nil, err
	}
	now := s.now()
	entry.BalanceBefore = &balanceBefore
	entry.BalanceAfter = &balanceAfter
	entry.PlatformBalanceBefore = &platformBefore
	entry.PlatformBalanceAfter = &platformAfter
	entry.Status = models.StatusCompleted
	entry.ProcessedAt = &now
	if actorID != nil && entry.InitiatedBy == nil {
		entry.InitiatedBy = actorID
	}
	if err := s.store.CompleteEntry(ctx, tx, entry); err != nil {
		return nil, err
	}
	return &TransactionResult{Entry: entry, BalanceBefore: balanceBefore, BalanceAfter: balanceAfter}, nil
}

func (s *service) Fail(ctx context.Context, entryID uuid.UUID, reason string) (*models.WalletTransaction, error) {
	var entry *models.WalletTransaction
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		var txErr error
		entry, txErr = s.FailTx(ctx, tx, entryID, reason)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// FailTx marks a pending or processing entry failed with no balance
// mutation. The reason, when given, replaces the note.
func (s *service) FailTx(ctx context.Context, tx pgx.Tx, entryID uuid.UUID, reason string) (*models.WalletTransaction, error) {
	entry, err := s.store.GetEntryForUpdate(ctx, tx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Status.IsTerminal() {
		return nil, ErrInvalidStateTransition
	}
	now := s.now()
	entry.Status = models.StatusFailed
	if reason != "" {
		entry.Note = reason
	}
	entry.ProcessedAt = &now
	if err := s.store.UpdateEntryStatus(ctx, tx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	return s.store.GetOrCreateProfile(ctx, userID, s.signupBonus)
}

func (s *service) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.WalletTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListByUser(ctx, userID, limit, offset)
}

// recordedResult rebuilds a TransactionResult from an already-completed
// entry. The entry's own balance_after is the sole source of truth; values
// are never re-derived from the current balance.
func recordedResult(entry *models.WalletTransaction) *TransactionResult {
	res := &TransactionResult{Entry: entry}
	if entry.BalanceBefore != nil {
		res.BalanceBefore = *entry.BalanceBefore
	}
	if entry.BalanceAfter != nil {
		res.BalanceAfter = *entry.BalanceAfter
	}
	return res
}

func countRejection(direction models.Direction, err error) {
	if errors.Is(err, ErrInsufficientBalance) || errors.Is(err, ErrInsufficientPlatformBalance) {
		metrics.TransactionsRejected.WithLabelValues(string(direction)).Inc()
	}
}
