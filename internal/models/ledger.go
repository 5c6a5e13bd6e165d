package models

import (
	"time"
)

// LedgerEntry records a single committed money movement between two parties.
// Entries are append-only: created once per transaction, never mutated.
type LedgerEntry struct {
	ID            int       `json:"id" db:"id"`
	TransactionID string    `json:"transaction_id" db:"transaction_id"`
	FromID        string    `json:"from_id" db:"from_id"`
	ToID          string    `json:"to_id" db:"to_id"`
	FromPocket    string    `json:"from_pocket" db:"from_pocket"`
	ToPocket      string    `json:"to_pocket" db:"to_pocket"`
	Amount        int64     `json:"amount" db:"amount"`
	Reason        string    `json:"reason" db:"reason"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Reason labels used by the economy commands.
const (
	ReasonDeposit       = "Deposit"
	ReasonWithdrawal    = "Withdrawal"
	ReasonGive          = "Give"
	ReasonTransfer      = "Transfer"
	ReasonDaily         = "Daily Reward"
	ReasonGambleWin     = "Won 5050"
	ReasonGambleLoss    = "Lost 5050"
	ReasonStealSuccess  = "Robbery Success"
	ReasonStealLostSome = "Robbery Failure (Lost Wallet)"
	ReasonStealCaught   = "Robbery Failure (Caught by Victim)"
	ReasonStealPolice   = "Robbery Failure (Caught by Police)"
	ReasonAdminAdjust   = "Admin Adjustment"
)
