package models

import (
	"time"
)

// Account holds a user's two balance pockets. Wallet is the liquid pocket,
// Bank is the taxed/rewarded pocket. Both are whole dollars and must stay
// non-negative through any accepted operation.
type Account struct {
	UserID    string     `json:"user_id" db:"user_id"`
	Wallet    int64      `json:"wallet" db:"wallet"`
	Bank      int64      `json:"bank" db:"bank"`
	LastDaily *time.Time `json:"last_daily,omitempty" db:"last_daily"`
	Version   int        `json:"version" db:"version"` // for optimistic locking
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// Pocket names recorded on ledger entries.
const (
	PocketWallet = "wallet"
	PocketBank   = "bank"
)
