package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Direction says which party pays and which receives.
type Direction string

const (
	DirectionUserToJobflick Direction = "user_to_jobflick"
	DirectionJobflickToUser Direction = "jobflick_to_user"
)

// IsValid reports whether the direction is one of the two known values.
func (d Direction) IsValid() bool {
	return d == DirectionUserToJobflick || d == DirectionJobflickToUser
}

// ParseDirection converts raw input into a Direction.
func ParseDirection(value string) (Direction, error) {
	d := Direction(value)
	if !d.IsValid() {
		return "", fmt.Errorf("invalid direction %q", value)
	}
	return d, nil
}

// Category is the business purpose tag of a wallet transaction.
type Category string

const (
	CategorySubscription Category = "subscription"
	CategoryServiceFee   Category = "service_fee"
	CategoryTopUp        Category = "top_up"
	CategoryPayout       Category = "payout"
	CategoryRefund       Category = "refund"
	CategoryOther        Category = "other"
)

var validCategories = []Category{
	CategorySubscription,
	CategoryServiceFee,
	CategoryTopUp,
	CategoryPayout,
	CategoryRefund,
	CategoryOther,
}

func (c Category) IsValid() bool {
	for _, candidate := range validCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCategory converts raw input into a Category.
func ParseCategory(value string) (Category, error) {
	c := Category(value)
	if !c.IsValid() {
		return "", fmt.Errorf("invalid category %q", value)
	}
	return c, nil
}

// TransactionStatus is the lifecycle state of a wallet transaction.
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "pending"
	StatusProcessing TransactionStatus = "processing"
	StatusCompleted  TransactionStatus = "completed"
	StatusFailed     TransactionStatus = "failed"
)

// IsTerminal reports whether the status permits no further transitions.
func (s TransactionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// WalletTransaction is an immutable-once-completed record of a single value
// movement between a user's wallet and the platform wallet. Before/after
// balance fields stay nil on pending entries and are populated exactly once,
// at the moment of completion.
type WalletTransaction struct {
	ID                    uuid.UUID         `json:"id"`
	Reference             string            `json:"reference"`
	UserID                uuid.UUID         `json:"user_id"`
	InitiatedBy           *uuid.UUID        `json:"initiated_by,omitempty"`
	JobID                 *uuid.UUID        `json:"job_id,omitempty"`
	Direction             Direction         `json:"direction"`
	Category              Category          `json:"category"`
	Amount                int64             `json:"amount"`
	BalanceBefore         *int64            `json:"balance_before,omitempty"`
	BalanceAfter          *int64            `json:"balance_after,omitempty"`
	PlatformBalanceBefore *int64            `json:"platform_balance_before,omitempty"`
	PlatformBalanceAfter  *int64            `json:"platform_balance_after,omitempty"`
	Note                  string            `json:"note"`
	Status                TransactionStatus `json:"status"`
	CreatedAt             time.Time         `json:"created_at"`
	ProcessedAt           *time.Time        `json:"processed_at,omitempty"`
}

// IsDebit reports whether the user side pays.
func (t *WalletTransaction) IsDebit() bool {
	return t.Direction == DirectionUserToJobflick
}

// IsCredit reports whether the user side receives.
func (t *WalletTransaction) IsCredit() bool {
	return t.Direction == DirectionJobflickToUser
}
