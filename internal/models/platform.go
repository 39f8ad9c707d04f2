package models

import "time"

// PlatformWalletID is the primary key of the single platform_wallet row.
const PlatformWalletID = 1

// PlatformWallet is the singleton holding funds owned by the platform. It is
// the counterpart of every wallet transaction and is read and written only
// through the wallet engine's locked read-modify-write path, never cached in
// memory.
type PlatformWallet struct {
	ID        int       `json:"id"`
	Balance   int64     `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}
