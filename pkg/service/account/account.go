// Package account implements deposits, withdrawals, balance inquiries and
// history views against a user's named accounts, enforcing the denomination
// and daily-limit rules.
package account

import (
	"context"
	"log/slog"
	"time"

	"github.com/gokcenbank/ledger/pkg/domain/ledger"
	"github.com/gokcenbank/ledger/pkg/domain/money"
	"github.com/gokcenbank/ledger/pkg/ledgerstore"
	"github.com/gokcenbank/ledger/pkg/service/auth"
)

// DefaultHistoryLimit is how many entries history views return unless the
// caller asks otherwise. Storage itself is unbounded.
const DefaultHistoryLimit = 10

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.clock = now }
}

// Service is the account engine.
type Service struct {
	store  *ledgerstore.Store
	logger *slog.Logger
	clock  func() time.Time
}

// New creates the account engine.
func New(store *ledgerstore.Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{store: store, logger: logger, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// guard rejects every operation while the user is locked out. The lockout
// check runs before anything else so a locked user never learns about
// missing accounts or insufficient funds.
func guard(rec *ledger.UserRecord, now time.Time) error {
	if remaining, locked := rec.LockedRemaining(now); locked {
		return &ledger.LockedError{Remaining: remaining}
	}
	return nil
}

// Deposit credits a cash deposit to the named account.
// Amounts must be positive, at least 50 and a multiple of 50.
// Returns the new balance.
func (s *Service) Deposit(ctx context.Context, sess *auth.Session, accountName string, amount money.Money) (money.Money, error) {
	if sess == nil || sess.Revoked() {
		return money.Money{}, ledger.ErrSessionInvalid
	}
	log := s.logger.With("context", "Deposit", "username", sess.Username, "account", accountName)

	var balance money.Money
	err := s.store.Update(sess.Username, func(rec *ledger.UserRecord) error {
		now := s.clock()
		if err := guard(rec, now); err != nil {
			return ledgerstore.Reject(err)
		}
		acct, err := rec.Account(accountName)
		if err != nil {
			return ledgerstore.Reject(err)
		}
		if err := ledger.ValidCashAmount(amount); err != nil {
			return ledgerstore.Reject(err)
		}

		if err := acct.Credit(amount); err != nil {
			return ledgerstore.Reject(err)
		}
		acct.AppendEntry(now, "Deposit: %s. New balance: %s", amount, acct.Balance)
		rec.AppendHistory(now, "Deposited %s into '%s'.", amount, accountName)
		balance = acct.Balance
		return nil
	})
	if err != nil {
		log.Warn("deposit rejected", "error", err)
		return money.Money{}, err
	}
	log.Info("deposit applied", "amount", amount.String(), "balance", balance.String())
	return balance, nil
}

// Withdraw debits a cash withdrawal from the named account. On top of the
// deposit rules it rejects anything that would overdraw the balance or
// exceed the daily withdrawal limit; the daily window is reset before the
// limit is evaluated whenever the calendar date changed.
// Returns the new balance.
func (s *Service) Withdraw(ctx context.Context, sess *auth.Session, accountName string, amount money.Money) (money.Money, error) {
	if sess == nil || sess.Revoked() {
		return money.Money{}, ledger.ErrSessionInvalid
	}
	log := s.logger.With("context", "Withdraw", "username", sess.Username, "account", accountName)

	var balance money.Money
	err := s.store.Update(sess.Username, func(rec *ledger.UserRecord) error {
		now := s.clock()
		if err := guard(rec, now); err != nil {
			return ledgerstore.Reject(err)
		}
		acct, err := rec.Account(accountName)
		if err != nil {
			return ledgerstore.Reject(err)
		}
		if err := ledger.ValidCashAmount(amount); err != nil {
			return ledgerstore.Reject(err)
		}
		if acct.Balance.LessThan(amount) {
			return ledgerstore.Reject(ledger.ErrInsufficientFunds)
		}

		rec.ResetDailyWindowIfNeeded(now.Format(ledger.DateLayout))
		if amount.Add(rec.CurrentDayWithdrawal).GreaterThan(rec.DailyWithdrawalLimit) {
			return &ledger.DailyLimitError{
				Remaining:      rec.RemainingDailyAllowance(),
				WithdrawnToday: rec.CurrentDayWithdrawal,
			}
		}

		if err := acct.Debit(amount); err != nil {
			return ledgerstore.Reject(err)
		}
		rec.CurrentDayWithdrawal = rec.CurrentDayWithdrawal.Add(amount)
		acct.AppendEntry(now, "Withdrawal: %s. Remaining balance: %s", amount, acct.Balance)
		rec.AppendHistory(now, "Withdrew %s from '%s'.", amount, accountName)
		balance = acct.Balance
		return nil
	})
	if err != nil {
		log.Warn("withdrawal rejected", "error", err)
		return money.Money{}, err
	}
	log.Info("withdrawal applied", "amount", amount.String(), "balance", balance.String())
	return balance, nil
}

// GetBalance returns the current balance of the named account. The inquiry
// itself is an audited action: it appends to both histories and persists.
func (s *Service) GetBalance(ctx context.Context, sess *auth.Session, accountName string) (money.Money, error) {
	if sess == nil || sess.Revoked() {
		return money.Money{}, ledger.ErrSessionInvalid
	}

	var balance money.Money
	err := s.store.Update(sess.Username, func(rec *ledger.UserRecord) error {
		now := s.clock()
		if err := guard(rec, now); err != nil {
			return ledgerstore.Reject(err)
		}
		acct, err := rec.Account(accountName)
		if err != nil {
			return ledgerstore.Reject(err)
		}

		balance = acct.Balance
		acct.AppendEntry(now, "Balance inquiry: %s", balance)
		rec.AppendHistory(now, "Balance of '%s' was inquired.", accountName)
		return nil
	})
	if err != nil {
		return money.Money{}, err
	}
	return balance, nil
}

// GetHistory returns up to limit entries of the account's transaction
// history, most recent first, as an independent snapshot.
func (s *Service) GetHistory(ctx context.Context, sess *auth.Session, accountName string, limit int) ([]string, error) {
	if sess == nil || sess.Revoked() {
		return nil, ledger.ErrSessionInvalid
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	var entries []string
	err := s.store.View(sess.Username, func(rec *ledger.UserRecord) error {
		now := s.clock()
		if err := guard(rec, now); err != nil {
			return err
		}
		acct, err := rec.Account(accountName)
		if err != nil {
			return err
		}
		entries = ledger.LastN(acct.TransactionHistory, limit)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// GetUserHistory returns up to limit entries of the user-level audit
// history, most recent first.
func (s *Service) GetUserHistory(ctx context.Context, sess *auth.Session, limit int) ([]string, error) {
	if sess == nil || sess.Revoked() {
		return nil, ledger.ErrSessionInvalid
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	var entries []string
	err := s.store.View(sess.Username, func(rec *ledger.UserRecord) error {
		now := s.clock()
		if err := guard(rec, now); err != nil {
			return err
		}
		entries = ledger.LastN(rec.UserHistory, limit)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
