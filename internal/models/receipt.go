package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionReceipt snapshots a plan purchase for later display: which
// plan, what it cost, and the wallet balance around the debit. The linked
// wallet transaction remains the authoritative record of the balances.
type SubscriptionReceipt struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	Plan          string    `json:"plan"`
	Amount        int64     `json:"amount"`
	WalletBefore  int64     `json:"wallet_before"`
	WalletAfter   int64     `json:"wallet_after"`
	TransactionID uuid.UUID `json:"transaction_id"`
	CreatedAt     time.Time `json:"created_at"`
}
