package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*BalanceStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBalanceStore(db), mock
}

func TestBalanceStore_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the stored account", func(t *testing.T) {
		store, mock := newTestStore(t)

		mock.ExpectQuery(`SELECT user_id, wallet, bank, last_daily, version, updated_at`).
			WithArgs("42").
			WillReturnRows(sqlmock.NewRows(
				[]string{"user_id", "wallet", "bank", "last_daily", "version", "updated_at"}).
				AddRow("42", int64(1500), int64(300), nil, 4, time.Now()))

		account, err := store.Get(ctx, "42")
		require.NoError(t, err)
		assert.Equal(t, int64(1500), account.Wallet)
		assert.Equal(t, int64(300), account.Bank)
		assert.Equal(t, 4, account.Version)
		assert.Nil(t, account.LastDaily)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("defaults to zero balances for an unknown user", func(t *testing.T) {
		store, mock := newTestStore(t)

		mock.ExpectQuery(`SELECT user_id, wallet, bank, last_daily, version, updated_at`).
			WithArgs("unknown").
			WillReturnRows(sqlmock.NewRows(
				[]string{"user_id", "wallet", "bank", "last_daily", "version", "updated_at"}))

		account, err := store.Get(ctx, "unknown")
		require.NoError(t, err)
		assert.Equal(t, "unknown", account.UserID)
		assert.Zero(t, account.Wallet)
		assert.Zero(t, account.Bank)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBalanceStore_Update(t *testing.T) {
	t.Run("fails when the version moved underneath", func(t *testing.T) {
		store, mock := newTestStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT user_id, wallet, bank, last_daily, version\s+FROM accounts`).
			WithArgs("42").
			WillReturnRows(accountRows("42", 100, 0, nil, 7))
		mock.ExpectExec(`UPDATE accounts\s+SET wallet = \$1, bank = \$2`).
			WithArgs(int64(200), int64(0), sqlmock.AnyArg(), "42", 7).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		tx, err := store.db.Begin()
		require.NoError(t, err)
		defer tx.Rollback()

		account, err := store.Lock(tx, "42")
		require.NoError(t, err)

		err = store.Update(tx, account, 200, 0)
		assert.ErrorContains(t, err, "optimistic lock failed")
		assert.NoError(t, tx.Rollback())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBalanceStore_Adjust(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec(`INSERT INTO accounts \(user_id, wallet, bank, updated_at\)`).
		WithArgs("42", int64(-50), int64(200), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, store.Adjust(context.Background(), "42", -50, 200))
	assert.NoError(t, mock.ExpectationsWereMet())
}
