package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEconomy(t *testing.T) (*Economy, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := zap.NewNop()
	economy := NewEconomy(db, NewBalanceStore(db), NewLedger(db), NewNotifier("", log), "system", log)
	return economy, mock
}

// fixedDraws replaces the rng with a scripted sequence.
func fixedDraws(economy *Economy, draws ...int) {
	i := 0
	economy.intn = func(n int) int {
		draw := draws[i]
		i++
		return draw
	}
}

func accountRows(userID string, wallet, bank int64, lastDaily *time.Time, version int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"user_id", "wallet", "bank", "last_daily", "version"}).
		AddRow(userID, wallet, bank, lastDaily, version)
}

func expectEnsure(mock sqlmock.Sqlmock, userID string) {
	mock.ExpectExec(`INSERT INTO accounts \(user_id\) VALUES`).
		WithArgs(userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func expectLock(mock sqlmock.Sqlmock, userID string, wallet, bank int64, lastDaily *time.Time, version int) {
	mock.ExpectQuery(`SELECT user_id, wallet, bank, last_daily, version\s+FROM accounts`).
		WithArgs(userID).
		WillReturnRows(accountRows(userID, wallet, bank, lastDaily, version))
}

func expectUpdate(mock sqlmock.Sqlmock, userID string, wallet, bank int64, version int) {
	mock.ExpectExec(`UPDATE accounts\s+SET wallet = \$1, bank = \$2`).
		WithArgs(wallet, bank, sqlmock.AnyArg(), userID, version).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func expectLedger(mock sqlmock.Sqlmock, fromID, toID, fromPocket, toPocket string, amount int64, reason string) {
	mock.ExpectExec(`INSERT INTO ledger_entries`).
		WithArgs(sqlmock.AnyArg(), fromID, toID, fromPocket, toPocket, amount, reason, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
}

func TestEconomy_Deposit(t *testing.T) {
	ctx := context.Background()

	t.Run("moves wallet to bank", func(t *testing.T) {
		economy, mock := newTestEconomy(t)

		mock.ExpectBegin()
		expectEnsure(mock, "42")
		expectLock(mock, "42", 2000, 100, nil, 1)
		expectUpdate(mock, "42", 1500, 600, 1)
		expectLedger(mock, "42", "42", "wallet", "bank", 500, "Deposit")
		mock.ExpectCommit()

		assert.NoError(t, economy.Deposit(ctx, "42", 500))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects amount below minimum without touching the store", func(t *testing.T) {
		economy, mock := newTestEconomy(t)

		err := economy.Deposit(ctx, "42", 0)
		message, ok := AsRejection(err)
		assert.True(t, ok)
		assert.Contains(t, message, "cannot deposit less than $1")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects insufficient wallet and rolls back", func(t *testing.T) {
		economy, mock := newTestEconomy(t)

		mock.ExpectBegin()
		expectEnsure(mock, "42")
		expectLock(mock, "42", 100, 0, nil, 1)
		mock.ExpectRollback()

		err := economy.Deposit(ctx, "42", 500)
		message, ok := AsRejection(err)
		assert.True(t, ok)
		assert.Equal(t, "Insufficient funds in your wallet.", message)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEconomy_Withdraw(t *testing.T) {
	ctx := context.Background()

	t.Run("moves bank to wallet", func(t *testing.T) {
		economy, mock := newTestEconomy(t)

		mock.ExpectBegin()
		expectEnsure(mock, "42")
		expectLock(mock, "42", 0, 10000, nil, 2)
		expectUpdate(mock, "42", 2000, 8000, 2)
		expectLedger(mock, "42", "42", "bank", "wallet", 2000, "Withdrawal")
		mock.ExpectCommit()

		assert.NoError(t, economy.Withdraw(ctx, "42", 2000))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects insufficient bank", func(t *testing.T) {
		economy, mock := newTestEconomy(t)

		mock.ExpectBegin()
		expectEnsure(mock, "42")
		expectLock(mock, "42", 0, 100, nil, 1)
		mock.ExpectRollback()

		err := economy.Withdraw(ctx, "42", 500)
		message, ok := AsRejection(err)
		assert.True(t, ok)
		assert.Equal(t, "Insufficient funds in your bank.", message)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEconomy_Give(t *testing.T) {
	ctx := context.Background()

	t.Run("moves wallet to wallet between two accounts", func(t *testing.T) {
		economy, mock := newTestEconomy(t)

		mock.ExpectBegin()
		expectEnsure(mock, "100")
		expectEnsure(mock, "200")
		expectLock(mock, "100", 800, 0, nil, 1)
		expectLock(mock, "200", 50, 0, nil, 1)
		expectUpdate(mock, "100", 300, 0, 1)
		expectUpdate(mock, "200", 550, 0, 1)
		expectLedger(mock, "100", "200", "wallet", "wallet", 500, "Give")
		mock.ExpectCommit()

		assert.NoError(t, economy.Give(ctx, "100", "200", 500))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects giving to yourself without touching the store", func(t *testing.T) {
		economy, mock := newTestEconomy(t)

		err := economy.Give(ctx, "42", "42", 100)
		message, ok := AsRejection(err)
		assert.True(t, ok)
		assert.Equal(t, "You cannot give money to yourself!", message)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects amount outside 1..1000", func(t *testing.T) {
		economy, _ := newTestEconomy(t)

		for _, amount := range []int64{0, -5, 1001} {
			err := economy.Give(ctx, "100", "200", amount)
			message, ok := AsRejection(err)
			assert.True(t, ok)
			assert.Contains(t, message, "between $1 and $1,000")
		}
	})

	t.Run("rejects insufficient donor wallet", func(t *testing.T) {
		economy, mock := newTestEconomy(t)

		mock.ExpectBegin()
		expectEnsure(mock, "100")
		expectEnsure(mock, "200")
		expectLock(mock, "100", 0, 0, nil, 1)
		expectLock(mock, "200", 0, 0, nil, 1)
		mock.ExpectRollback()

		err := economy.Give(ctx, "100", "200", 500)
		_, ok := AsRejection(err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransferQuote(t *testing.T) {
	tax, net := TransferQuote(1000)
	assert.Equal(t, int64(100), tax)
	assert.Equal(t, int64(900), net)

	// Tax floors: 10% of 1005 is 100, not 100.5.
	tax, net = TransferQuote(1005)
	assert.Equal(t, int64(100), tax)
	assert.Equal(t, int64(905), net)
}

func TestEconomy_Transfer(t *testing.T) {
	ctx := context.Background()

	t.Run("commits taxed bank transfer", func(t *testing.T) {
		economy, mock := newTestEconomy(t)

		// "100" sorts before "200", so the receiver locks first.
		mock.ExpectBegin()
		expectEnsure(mock, "100")
		expectEnsure(mock, "200")
		expectLock(mock, "100", 0, 0, nil, 0)
		expectLock(mock, "200", 2000, 8000, nil, 3)
		expectUpdate(mock, "200", 2000, 7000, 3)
		expectUpdate(mock, "100", 0, 900, 0)
		expectLedger(mock, "200", "100", "bank", "bank", 900, "Transfer")
		mock.ExpectCommit()

		receipt, err := economy.Transfer(ctx, "200", "100", 1000)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), receipt.Amount)
		assert.Equal(t, int64(100), receipt.Tax)
		assert.Equal(t, int64(900), receipt.Net)
		assert.Equal(t, int64(8000), receipt.SenderBefore)
		assert.Equal(t, int64(7000), receipt.SenderAfter)
		assert.Equal(t, int64(0), receipt.ReceiverBefore)
		assert.Equal(t, int64(900), receipt.ReceiverAfter)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects transferring to yourself without touching the store", func(t *testing.T) {
		economy, mock := newTestEconomy(t)

		_, err := economy.Transfer(ctx, "42", "42", 2000)
		message, ok := AsRejection(err)
		assert.True(t, ok)
		assert.Equal(t, "You cannot transfer money to yourself!", message)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects below minimum", func(t *testing.T) {
		economy, _ := newTestEconomy(t)

		_, err := economy.Transfer(ctx, "200", "100", 999)
		message, ok := AsRejection(err)
		assert.True(t, ok)
		assert.Contains(t, message, "minimum amount for transfer is $1,000")
	})

	t.Run("rejects insufficient bank under the row lock", func(t *testing.T) {
		economy, mock := newTestEconomy(t)

		mock.ExpectBegin()
		expectEnsure(mock, "100")
		expectEnsure(mock, "200")
		expectLock(mock, "100", 0, 0, nil, 0)
		expectLock(mock, "200", 0, 500, nil, 1)
		mock.ExpectRollback()

		_, err := economy.Transfer(ctx, "200", "100", 1000)
		_, ok := AsRejection(err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEconomy_Daily(t *testing.T) {
	ctx := context.Background()

	t.Run("first claim credits the bank", func(t *testing.T) {
		economy, mock := newTestEconomy(t)

		mock.ExpectBegin()
		expectEnsure(mock, "42")
		expectLock(mock, "42", 0, 0, nil, 0)
		expectUpdate(mock, "42", 0, 10000, 0)
		mock.ExpectExec(`UPDATE accounts SET last_daily = \$1`).
			WithArgs(sqlmock.AnyArg(), "42").
			WillReturnResult(sqlmock.NewResult(0, 1))
		expectLedger(mock, "system", "42", "bank", "bank", 10000, "Daily Reward")
		mock.ExpectCommit()

		reward, err := economy.Daily(ctx, "42")
		require.NoError(t, err)
		assert.Equal(t, DailyReward, reward)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("re-claim inside the window is rejected with the remaining wait", func(t *testing.T) {
		economy, mock := newTestEconomy(t)

		now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		economy.now = func() time.Time { return now }
		lastDaily := now.Add(-1 * time.Hour)

		mock.ExpectBegin()
		expectEnsure(mock, "42")
		expectLock(mock, "42", 0, 10000, &lastDaily, 1)
		mock.ExpectRollback()

		_, err := economy.Daily(ctx, "42")
		message, ok := AsRejection(err)
		assert.True(t, ok)
		assert.Contains(t, message, "already claimed your daily reward")
		assert.Contains(t, message, "23 hours")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("claim succeeds again after the window expires", func(t *testing.T) {
		economy, mock := newTestEconomy(t)

		now := time.Date(2024, 6, 2, 13, 0, 0, 0, time.UTC)
		economy.now = func() time.Time { return now }
		lastDaily := now.Add(-25 * time.Hour)

		mock.ExpectBegin()
		expectEnsure(mock, "42")
		expectLock(mock, "42", 0, 10000, &lastDaily, 2)
		expectUpdate(mock, "42", 0, 20000, 2)
		mock.ExpectExec(`UPDATE accounts SET last_daily = \$1`).
			WithArgs(sqlmock.AnyArg(), "42").
			WillReturnResult(sqlmock.NewResult(0, 1))
		expectLedger(mock, "system", "42", "bank", "bank", 10000, "Daily Reward")
		mock.ExpectCommit()

		reward, err := economy.Daily(ctx, "42")
		require.NoError(t, err)
		assert.Equal(t, DailyReward, reward)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEconomy_Gamble(t *testing.T) {
	ctx := context.Background()

	t.Run("win adds the stake to the wallet", func(t *testing.T) {
		economy, mock := newTestEconomy(t)
		fixedDraws(economy, 0)

		mock.ExpectBegin()
		expectEnsure(mock, "42")
		expectLock(mock, "42", 1000, 0, nil, 1)
		expectUpdate(mock, "42", 1500, 0, 1)
		expectLedger(mock, "system", "42", "bank", "wallet", 500, "Won 5050")
		mock.ExpectCommit()

		won, err := economy.Gamble(ctx, "42", 500)
		require.NoError(t, err)
		assert.True(t, won)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("loss removes the stake from the wallet", func(t *testing.T) {
		economy, mock := newTestEconomy(t)
		fixedDraws(economy, 1)

		mock.ExpectBegin()
		expectEnsure(mock, "42")
		expectLock(mock, "42", 1000, 0, nil, 1)
		expectUpdate(mock, "42", 500, 0, 1)
		expectLedger(mock, "42", "system", "wallet", "bank", 500, "Lost 5050")
		mock.ExpectCommit()

		won, err := economy.Gamble(ctx, "42", 500)
		require.NoError(t, err)
		assert.False(t, won)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects stake above the wallet without mutation", func(t *testing.T) {
		economy, mock := newTestEconomy(t)

		mock.ExpectBegin()
		expectEnsure(mock, "42")
		expectLock(mock, "42", 100, 0, nil, 1)
		mock.ExpectRollback()

		_, err := economy.Gamble(ctx, "42", 500)
		_, ok := AsRejection(err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects non-positive stake", func(t *testing.T) {
		economy, _ := newTestEconomy(t)

		for _, stake := range []int64{0, -10} {
			_, err := economy.Gamble(ctx, "42", stake)
			message, ok := AsRejection(err)
			assert.True(t, ok)
			assert.Equal(t, "Please enter a positive amount.", message)
		}
	})
}

func TestEconomy_Steal(t *testing.T) {
	ctx := context.Background()

	t.Run("success steals a tiered percentage of the victim wallet", func(t *testing.T) {
		economy, mock := newTestEconomy(t)
		// Success draw of 30, then a tier draw of 46 -> 50%.
		fixedDraws(economy, 29, 45)

		mock.ExpectBegin()
		expectEnsure(mock, "100")
		expectEnsure(mock, "300")
		expectLock(mock, "100", 1000, 2000, nil, 1) // victim
		expectLock(mock, "300", 600, 1500, nil, 1)  // thief
		expectUpdate(mock, "300", 1100, 1500, 1)
		expectUpdate(mock, "100", 500, 2000, 1)
		expectLedger(mock, "100", "300", "wallet", "wallet", 500, "Robbery Success")
		mock.ExpectCommit()

		result, err := economy.Steal(ctx, "300", "100")
		require.NoError(t, err)
		assert.Equal(t, StealSuccess, result.Outcome)
		assert.Equal(t, int64(500), result.Amount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure band up to 80 loses part of the thief wallet", func(t *testing.T) {
		economy, mock := newTestEconomy(t)
		// Draw 50 fails, tier draw 5 -> 10%.
		fixedDraws(economy, 49, 4)

		mock.ExpectBegin()
		expectEnsure(mock, "100")
		expectEnsure(mock, "300")
		expectLock(mock, "100", 1000, 2000, nil, 1)
		expectLock(mock, "300", 600, 1500, nil, 1)
		expectUpdate(mock, "300", 540, 1500, 1)
		expectLedger(mock, "300", "system", "wallet", "bank", 60, "Robbery Failure (Lost Wallet)")
		mock.ExpectCommit()

		result, err := economy.Steal(ctx, "300", "100")
		require.NoError(t, err)
		assert.Equal(t, StealLostWallet, result.Outcome)
		assert.Equal(t, int64(60), result.Amount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure band up to 90 forfeits the wallet to the victim", func(t *testing.T) {
		economy, mock := newTestEconomy(t)
		fixedDraws(economy, 84)

		mock.ExpectBegin()
		expectEnsure(mock, "100")
		expectEnsure(mock, "300")
		expectLock(mock, "100", 1000, 2000, nil, 1)
		expectLock(mock, "300", 600, 1500, nil, 1)
		expectUpdate(mock, "300", 0, 1500, 1)
		expectUpdate(mock, "100", 1600, 2000, 1)
		expectLedger(mock, "300", "100", "wallet", "wallet", 600, "Robbery Failure (Caught by Victim)")
		mock.ExpectCommit()

		result, err := economy.Steal(ctx, "300", "100")
		require.NoError(t, err)
		assert.Equal(t, StealCaughtByVictim, result.Outcome)
		assert.Equal(t, int64(600), result.Amount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("police band also takes a bank penalty", func(t *testing.T) {
		economy, mock := newTestEconomy(t)
		// Draw 95, then 1-10% penalty draw of 10.
		fixedDraws(economy, 94, 9)

		mock.ExpectBegin()
		expectEnsure(mock, "100")
		expectEnsure(mock, "300")
		expectLock(mock, "100", 1000, 2000, nil, 1)
		expectLock(mock, "300", 600, 1500, nil, 1)
		expectUpdate(mock, "300", 0, 1350, 1)
		expectLedger(mock, "300", "system", "wallet", "bank", 600, "Robbery Failure (Caught by Police)")
		expectLedger(mock, "300", "system", "bank", "bank", 150, "Robbery Failure (Caught by Police)")
		mock.ExpectCommit()

		result, err := economy.Steal(ctx, "300", "100")
		require.NoError(t, err)
		assert.Equal(t, StealCaughtByPolice, result.Outcome)
		assert.Equal(t, int64(600), result.Amount)
		assert.Equal(t, int64(150), result.BankPenalty)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects stealing from yourself", func(t *testing.T) {
		economy, _ := newTestEconomy(t)

		_, err := economy.Steal(ctx, "300", "300")
		message, ok := AsRejection(err)
		assert.True(t, ok)
		assert.Equal(t, "You cannot steal from yourself!", message)
	})

	t.Run("rejects when a threshold is not met", func(t *testing.T) {
		economy, mock := newTestEconomy(t)

		mock.ExpectBegin()
		expectEnsure(mock, "100")
		expectEnsure(mock, "300")
		expectLock(mock, "100", 1000, 2000, nil, 1)
		expectLock(mock, "300", 100, 1500, nil, 1) // thief wallet below 500
		mock.ExpectRollback()

		_, err := economy.Steal(ctx, "300", "100")
		message, ok := AsRejection(err)
		assert.True(t, ok)
		assert.Contains(t, message, "at least $500 in your wallet")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
