package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/betterhood/hoodbot/internal/models"
)

// BalanceStore owns the accounts table. Accounts are created implicitly on
// first read or mutation and never deleted. The store itself applies no
// overdraft guard: sufficiency is the caller's business rule, checked while
// holding the row lock.
type BalanceStore struct {
	db *sql.DB
}

func NewBalanceStore(db *sql.DB) *BalanceStore {
	return &BalanceStore{db: db}
}

// Get returns the account for userID, defaulting to zero balances when the
// record is absent.
func (s *BalanceStore) Get(ctx context.Context, userID string) (models.Account, error) {
	account := models.Account{UserID: userID}
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, wallet, bank, last_daily, version, updated_at
		FROM accounts
		WHERE user_id = $1`, userID).
		Scan(&account.UserID, &account.Wallet, &account.Bank,
			&account.LastDaily, &account.Version, &account.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.Account{UserID: userID}, nil
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("get account %s: %w", userID, err)
	}
	return account, nil
}

// Adjust applies additive deltas outside of any caller transaction,
// upserting the account. Balances can go negative if the caller skipped its
// pre-check; that is the documented store contract.
func (s *BalanceStore) Adjust(ctx context.Context, userID string, dWallet, dBank int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (user_id, wallet, bank, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET wallet = accounts.wallet + EXCLUDED.wallet,
		    bank = accounts.bank + EXCLUDED.bank,
		    version = accounts.version + 1,
		    updated_at = EXCLUDED.updated_at`,
		userID, dWallet, dBank, time.Now())
	if err != nil {
		return fmt.Errorf("adjust account %s: %w", userID, err)
	}
	return nil
}

// Ensure upserts an empty account row so a later Lock always finds it.
func (s *BalanceStore) Ensure(tx *sql.Tx, userID string) error {
	_, err := tx.Exec(`
		INSERT INTO accounts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING`, userID)
	return err
}

// Lock reads the account row FOR UPDATE inside tx.
func (s *BalanceStore) Lock(tx *sql.Tx, userID string) (*models.Account, error) {
	var account models.Account
	err := tx.QueryRow(`
		SELECT user_id, wallet, bank, last_daily, version
		FROM accounts
		WHERE user_id = $1
		FOR UPDATE`, userID).
		Scan(&account.UserID, &account.Wallet, &account.Bank,
			&account.LastDaily, &account.Version)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// LockPair ensures and locks two accounts in consistent order to prevent
// deadlocks between concurrent handlers.
func (s *BalanceStore) LockPair(tx *sql.Tx, first, second string) (*models.Account, *models.Account, error) {
	lockFirst, lockSecond := first, second
	if first > second {
		lockFirst, lockSecond = second, first
	}

	for _, id := range []string{lockFirst, lockSecond} {
		if err := s.Ensure(tx, id); err != nil {
			return nil, nil, err
		}
	}

	a, err := s.Lock(tx, lockFirst)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.Lock(tx, lockSecond)
	if err != nil {
		return nil, nil, err
	}

	if lockFirst != first {
		a, b = b, a
	}
	return a, b, nil
}

// Update writes new pocket values with an optimistic version check against
// the locked snapshot.
func (s *BalanceStore) Update(tx *sql.Tx, account *models.Account, wallet, bank int64) error {
	result, err := tx.Exec(`
		UPDATE accounts
		SET wallet = $1, bank = $2, version = version + 1, updated_at = $3
		WHERE user_id = $4 AND version = $5`,
		wallet, bank, time.Now(), account.UserID, account.Version)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("optimistic lock failed for account %s", account.UserID)
	}
	return nil
}

// SetLastDaily stamps the daily-claim timestamp inside tx.
func (s *BalanceStore) SetLastDaily(tx *sql.Tx, userID string, claimedAt time.Time) error {
	_, err := tx.Exec(`
		UPDATE accounts SET last_daily = $1 WHERE user_id = $2`,
		claimedAt, userID)
	return err
}
