package models

import (
	"time"

	"github.com/google/uuid"
)

// Account roles.
const (
	RoleMember = "member"
	RoleStaff  = "staff"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsStaff reports whether the user may act on behalf of the platform.
func (u *User) IsStaff() bool { return u.Role == RoleStaff }

// UserProfile holds the per-user wallet balance and subscription state.
// WalletBalance is in the smallest currency unit and is only ever mutated
// inside a wallet engine transaction.
type UserProfile struct {
	UserID                uuid.UUID  `json:"user_id"`
	WalletBalance         int64      `json:"wallet_balance"`
	SubscriptionPlan      string     `json:"subscription_plan"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// HasActiveSubscription reports whether the subscription is current at now.
func (p *UserProfile) HasActiveSubscription(now time.Time) bool {
	return p.SubscriptionExpiresAt != nil && !p.SubscriptionExpiresAt.Before(now)
}
