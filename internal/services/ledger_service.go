package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/betterhood/hoodbot/internal/models"
)

// Ledger owns the append-only ledger_entries table. Entries are written in
// the same transaction as the balance mutation they describe, so the
// recorded amount always equals the applied delta.
type Ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Append inserts one entry inside the caller's transaction.
func (l *Ledger) Append(tx *sql.Tx, entry *models.LedgerEntry) error {
	entry.CreatedAt = time.Now()
	_, err := tx.Exec(`
		INSERT INTO ledger_entries (transaction_id, from_id, to_id, from_pocket, to_pocket, amount, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.TransactionID, entry.FromID, entry.ToID,
		entry.FromPocket, entry.ToPocket, entry.Amount, entry.Reason, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

// Recent returns the newest entries, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]models.LedgerEntry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, transaction_id, from_id, to_id, from_pocket, to_pocket, amount, reason, created_at
		FROM ledger_entries
		ORDER BY id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.FromID, &e.ToID,
			&e.FromPocket, &e.ToPocket, &e.Amount, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
