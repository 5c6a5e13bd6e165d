package services

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/betterhood/hoodbot/internal/format"
	"github.com/betterhood/hoodbot/internal/models"
)

// Economy rules shared with the command layer.
const (
	MinDeposit  int64 = 1
	MinWithdraw int64 = 1

	GiveMin int64 = 1
	GiveMax int64 = 1000

	TransferMin        int64 = 1000
	TransferTaxPercent int64 = 10

	DailyReward int64 = 10000
	DailyWindow       = 24 * time.Hour

	StealWalletMin int64 = 500
	StealBankMin   int64 = 1000

	GiveCooldown     = 60 * time.Second
	TransferCooldown = 300 * time.Second
	StealCooldown    = 60 * time.Second
)

// Economy executes every balance-affecting operation. Each operation locks
// the involved account rows, validates the business rules against the locked
// snapshot, applies the mutation and appends the matching ledger entries in
// one database transaction, then mirrors the result to the notifier.
type Economy struct {
	db       *sql.DB
	store    *BalanceStore
	ledger   *Ledger
	notifier *Notifier
	systemID string
	log      *zap.Logger

	now  func() time.Time
	intn func(n int) int
}

func NewEconomy(db *sql.DB, store *BalanceStore, ledger *Ledger, notifier *Notifier, systemID string, log *zap.Logger) *Economy {
	return &Economy{
		db:       db,
		store:    store,
		ledger:   ledger,
		notifier: notifier,
		systemID: systemID,
		log:      log,
		now:      time.Now,
		intn:     rand.Intn,
	}
}

// Balance returns the wallet and bank for userID, zero when unknown.
func (e *Economy) Balance(ctx context.Context, userID string) (models.Account, error) {
	return e.store.Get(ctx, userID)
}

// Deposit moves amount from wallet to bank for a single account.
func (e *Economy) Deposit(ctx context.Context, userID string, amount int64) error {
	if amount < MinDeposit {
		return Reject("You cannot deposit less than %s.", format.Money(MinDeposit))
	}

	var entry models.LedgerEntry
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		account, err := e.lockOne(tx, userID)
		if err != nil {
			return err
		}
		if account.Wallet < amount {
			return Reject("Insufficient funds in your wallet.")
		}
		if err := e.store.Update(tx, account, account.Wallet-amount, account.Bank+amount); err != nil {
			return err
		}
		entry = e.entry(userID, userID, models.PocketWallet, models.PocketBank, amount, models.ReasonDeposit)
		return e.ledger.Append(tx, &entry)
	})
	if err != nil {
		return err
	}

	e.notifier.NotifyEntry(ctx, entry)
	return nil
}

// Withdraw moves amount from bank to wallet for a single account.
func (e *Economy) Withdraw(ctx context.Context, userID string, amount int64) error {
	if amount < MinWithdraw {
		return Reject("You cannot withdraw less than %s.", format.Money(MinWithdraw))
	}

	var entry models.LedgerEntry
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		account, err := e.lockOne(tx, userID)
		if err != nil {
			return err
		}
		if account.Bank < amount {
			return Reject("Insufficient funds in your bank.")
		}
		if err := e.store.Update(tx, account, account.Wallet+amount, account.Bank-amount); err != nil {
			return err
		}
		entry = e.entry(userID, userID, models.PocketBank, models.PocketWallet, amount, models.ReasonWithdrawal)
		return e.ledger.Append(tx, &entry)
	})
	if err != nil {
		return err
	}

	e.notifier.NotifyEntry(ctx, entry)
	return nil
}

// Give moves amount wallet-to-wallet between two accounts.
func (e *Economy) Give(ctx context.Context, fromID, toID string, amount int64) error {
	if fromID == toID {
		return Reject("You cannot give money to yourself!")
	}
	if amount < GiveMin || amount > GiveMax {
		return Reject("You can only give an amount between %s and %s.",
			format.Money(GiveMin), format.Money(GiveMax))
	}

	var entry models.LedgerEntry
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		donor, recipient, err := e.store.LockPair(tx, fromID, toID)
		if err != nil {
			return e.storeFailure("give", err)
		}
		if donor.Wallet < amount {
			return Reject("Insufficient funds in your wallet.")
		}
		if err := e.store.Update(tx, donor, donor.Wallet-amount, donor.Bank); err != nil {
			return err
		}
		if err := e.store.Update(tx, recipient, recipient.Wallet+amount, recipient.Bank); err != nil {
			return err
		}
		entry = e.entry(fromID, toID, models.PocketWallet, models.PocketWallet, amount, models.ReasonGive)
		return e.ledger.Append(tx, &entry)
	})
	if err != nil {
		return err
	}

	e.notifier.NotifyEntry(ctx, entry)
	return nil
}

// TransferQuote computes the flat tax withheld from a transfer.
func TransferQuote(amount int64) (tax, net int64) {
	tax = amount * TransferTaxPercent / 100
	return tax, amount - tax
}

// TransferCheck validates a transfer proposal before the confirmation gate.
// The committed transfer re-validates under the row lock.
func (e *Economy) TransferCheck(ctx context.Context, fromID string, amount int64) error {
	if amount < TransferMin {
		return Reject("The minimum amount for transfer is %s.", format.Money(TransferMin))
	}
	account, err := e.store.Get(ctx, fromID)
	if err != nil {
		return e.storeFailure("transfer check", err)
	}
	if account.Bank < amount {
		return Reject("You do not have enough money in your bank to transfer that amount.")
	}
	return nil
}

// TransferReceipt describes a committed bank-to-bank transfer.
type TransferReceipt struct {
	FromID, ToID   string
	Amount         int64
	Tax            int64
	Net            int64
	SenderBefore   int64
	SenderAfter    int64
	ReceiverBefore int64
	ReceiverAfter  int64
}

// Transfer commits a confirmed bank-to-bank transfer. The sender's bank
// decreases by amount, the receiver's increases by the net after tax; the
// tax is credited to no tracked account.
func (e *Economy) Transfer(ctx context.Context, fromID, toID string, amount int64) (TransferReceipt, error) {
	if fromID == toID {
		return TransferReceipt{}, Reject("You cannot transfer money to yourself!")
	}
	if amount < TransferMin {
		return TransferReceipt{}, Reject("The minimum amount for transfer is %s.", format.Money(TransferMin))
	}
	tax, net := TransferQuote(amount)

	var receipt TransferReceipt
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		sender, receiver, err := e.store.LockPair(tx, fromID, toID)
		if err != nil {
			return e.storeFailure("transfer", err)
		}
		if sender.Bank < amount {
			return Reject("You do not have enough money in your bank to transfer that amount.")
		}
		if err := e.store.Update(tx, sender, sender.Wallet, sender.Bank-amount); err != nil {
			return err
		}
		if err := e.store.Update(tx, receiver, receiver.Wallet, receiver.Bank+net); err != nil {
			return err
		}
		receipt = TransferReceipt{
			FromID:         fromID,
			ToID:           toID,
			Amount:         amount,
			Tax:            tax,
			Net:            net,
			SenderBefore:   sender.Bank,
			SenderAfter:    sender.Bank - amount,
			ReceiverBefore: receiver.Bank,
			ReceiverAfter:  receiver.Bank + net,
		}
		entry := e.entry(fromID, toID, models.PocketBank, models.PocketBank, net, models.ReasonTransfer)
		return e.ledger.Append(tx, &entry)
	})
	if err != nil {
		return TransferReceipt{}, err
	}

	e.notifier.NotifyTransfer(ctx, receipt)
	return receipt, nil
}

// Daily credits the fixed reward to the bank once per rolling 24-hour
// window. Early re-claims are rejected with the remaining wait.
func (e *Economy) Daily(ctx context.Context, userID string) (int64, error) {
	var entry models.LedgerEntry
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		account, err := e.lockOne(tx, userID)
		if err != nil {
			return err
		}

		claimedAt := e.now()
		if account.LastDaily != nil {
			since := claimedAt.Sub(*account.LastDaily)
			if since < DailyWindow {
				return Reject("You have already claimed your daily reward today. Try again in %s.",
					format.Duration(DailyWindow-since))
			}
		}

		if err := e.store.Update(tx, account, account.Wallet, account.Bank+DailyReward); err != nil {
			return err
		}
		if err := e.store.SetLastDaily(tx, userID, claimedAt); err != nil {
			return err
		}
		entry = e.entry(e.systemID, userID, models.PocketBank, models.PocketBank, DailyReward, models.ReasonDaily)
		return e.ledger.Append(tx, &entry)
	})
	if err != nil {
		return 0, err
	}

	e.notifier.NotifyEntry(ctx, entry)
	return DailyReward, nil
}

// Gamble stakes amount on a fair coin flip. A win adds the stake to the
// wallet, a loss removes it; exactly one of the two happens.
func (e *Economy) Gamble(ctx context.Context, userID string, stake int64) (bool, error) {
	if stake <= 0 {
		return false, Reject("Please enter a positive amount.")
	}

	var won bool
	var entry models.LedgerEntry
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		account, err := e.lockOne(tx, userID)
		if err != nil {
			return err
		}
		if account.Wallet < stake {
			return Reject("You do not have enough money to gamble %s.", format.Money(stake))
		}

		won = e.intn(2) == 0
		if won {
			if err := e.store.Update(tx, account, account.Wallet+stake, account.Bank); err != nil {
				return err
			}
			entry = e.entry(e.systemID, userID, models.PocketBank, models.PocketWallet, stake, models.ReasonGambleWin)
		} else {
			if err := e.store.Update(tx, account, account.Wallet-stake, account.Bank); err != nil {
				return err
			}
			entry = e.entry(userID, e.systemID, models.PocketWallet, models.PocketBank, stake, models.ReasonGambleLoss)
		}
		return e.ledger.Append(tx, &entry)
	})
	if err != nil {
		return false, err
	}

	e.notifier.NotifyEntry(ctx, entry)
	return won, nil
}

// StealOutcome identifies which branch of the steal command fired.
type StealOutcome int

const (
	StealSuccess StealOutcome = iota
	StealLostWallet
	StealCaughtByVictim
	StealCaughtByPolice
)

// StealResult reports what happened and how much money moved.
type StealResult struct {
	Outcome     StealOutcome
	Amount      int64
	BankPenalty int64
}

// stealTiers are the percentage tiers shared by the success payout and the
// lost-wallet penalty, weighted toward the lower tiers.
var stealTiers = []struct {
	percent   int64
	cumWeight int
}{
	{10, 10}, {30, 30}, {50, 60}, {70, 80}, {80, 90}, {90, 95}, {100, 100},
}

func (e *Economy) stealTier() int64 {
	draw := e.intn(100) + 1
	for _, tier := range stealTiers {
		if draw <= tier.cumWeight {
			return tier.percent
		}
	}
	return stealTiers[len(stealTiers)-1].percent
}

// Steal attempts to rob another user's wallet. Success (30%) steals a tiered
// percentage of the victim's wallet. The failure branches are banded against
// the same draw as the success check: up to 80 loses a tiered percentage of
// the thief's own wallet, up to 90 hands the whole wallet to the victim, and
// the rest also costs a 1-10% bank penalty.
func (e *Economy) Steal(ctx context.Context, thiefID, victimID string) (StealResult, error) {
	if thiefID == victimID {
		return StealResult{}, Reject("You cannot steal from yourself!")
	}

	var result StealResult
	var entries []models.LedgerEntry
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		entries = entries[:0]
		thief, victim, err := e.store.LockPair(tx, thiefID, victimID)
		if err != nil {
			return e.storeFailure("steal", err)
		}

		switch {
		case thief.Wallet < StealWalletMin:
			return Reject("You need at least %s in your wallet to steal.", format.Money(StealWalletMin))
		case victim.Wallet < StealWalletMin:
			return Reject("The victim needs at least %s in their wallet to steal.", format.Money(StealWalletMin))
		case thief.Bank < StealBankMin:
			return Reject("You need at least %s in your bank to steal.", format.Money(StealBankMin))
		case victim.Bank < StealBankMin:
			return Reject("The victim needs at least %s in their bank to steal.", format.Money(StealBankMin))
		}

		draw := e.intn(100) + 1
		switch {
		case draw <= 30:
			stolen := e.stealTier() * victim.Wallet / 100
			if err := e.store.Update(tx, thief, thief.Wallet+stolen, thief.Bank); err != nil {
				return err
			}
			if err := e.store.Update(tx, victim, victim.Wallet-stolen, victim.Bank); err != nil {
				return err
			}
			result = StealResult{Outcome: StealSuccess, Amount: stolen}
			entries = append(entries, e.entry(victimID, thiefID, models.PocketWallet, models.PocketWallet, stolen, models.ReasonStealSuccess))

		case draw <= 80:
			lost := e.stealTier() * thief.Wallet / 100
			if err := e.store.Update(tx, thief, thief.Wallet-lost, thief.Bank); err != nil {
				return err
			}
			result = StealResult{Outcome: StealLostWallet, Amount: lost}
			entries = append(entries, e.entry(thiefID, e.systemID, models.PocketWallet, models.PocketBank, lost, models.ReasonStealLostSome))

		case draw <= 90:
			forfeited := thief.Wallet
			if err := e.store.Update(tx, thief, 0, thief.Bank); err != nil {
				return err
			}
			if err := e.store.Update(tx, victim, victim.Wallet+forfeited, victim.Bank); err != nil {
				return err
			}
			result = StealResult{Outcome: StealCaughtByVictim, Amount: forfeited}
			entries = append(entries, e.entry(thiefID, victimID, models.PocketWallet, models.PocketWallet, forfeited, models.ReasonStealCaught))

		default:
			forfeited := thief.Wallet
			penalty := int64(e.intn(10)+1) * thief.Bank / 100
			if err := e.store.Update(tx, thief, 0, thief.Bank-penalty); err != nil {
				return err
			}
			result = StealResult{Outcome: StealCaughtByPolice, Amount: forfeited, BankPenalty: penalty}
			entries = append(entries,
				e.entry(thiefID, e.systemID, models.PocketWallet, models.PocketBank, forfeited, models.ReasonStealPolice),
				e.entry(thiefID, e.systemID, models.PocketBank, models.PocketBank, penalty, models.ReasonStealPolice))
		}

		for i := range entries {
			if err := e.ledger.Append(tx, &entries[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return StealResult{}, err
	}

	for _, entry := range entries {
		e.notifier.NotifyEntry(ctx, entry)
	}
	return result, nil
}

// AdminAdjust applies an unchecked balance adjustment with a ledger trail.
// Used by the admin API only; balances may go negative here.
func (e *Economy) AdminAdjust(ctx context.Context, userID string, dWallet, dBank int64, reason string) error {
	if reason == "" {
		reason = models.ReasonAdminAdjust
	}
	return e.withTx(ctx, func(tx *sql.Tx) error {
		account, err := e.lockOne(tx, userID)
		if err != nil {
			return err
		}
		if err := e.store.Update(tx, account, account.Wallet+dWallet, account.Bank+dBank); err != nil {
			return err
		}
		if dWallet != 0 {
			entry := e.entry(e.systemID, userID, models.PocketWallet, models.PocketWallet, dWallet, reason)
			if err := e.ledger.Append(tx, &entry); err != nil {
				return err
			}
		}
		if dBank != 0 {
			entry := e.entry(e.systemID, userID, models.PocketBank, models.PocketBank, dBank, reason)
			if err := e.ledger.Append(tx, &entry); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *Economy) entry(fromID, toID, fromPocket, toPocket string, amount int64, reason string) models.LedgerEntry {
	return models.LedgerEntry{
		TransactionID: uuid.NewString(),
		FromID:        fromID,
		ToID:          toID,
		FromPocket:    fromPocket,
		ToPocket:      toPocket,
		Amount:        amount,
		Reason:        reason,
	}
}

func (e *Economy) lockOne(tx *sql.Tx, userID string) (*models.Account, error) {
	if err := e.store.Ensure(tx, userID); err != nil {
		return nil, e.storeFailure("ensure account", err)
	}
	account, err := e.store.Lock(tx, userID)
	if err == sql.ErrNoRows {
		e.log.Error("account row missing after upsert",
			zap.String("user_id", userID))
		return nil, fmt.Errorf("%w: account %s missing after upsert", ErrImpossibleState, userID)
	}
	if err != nil {
		return nil, e.storeFailure("lock account", err)
	}
	return account, nil
}

func (e *Economy) storeFailure(op string, err error) error {
	e.log.Error("balance store failure", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%s: %w", op, err)
}

func (e *Economy) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
