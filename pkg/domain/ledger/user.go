// Package ledger defines the durable state owned by a registered user: the
// credential and lockout fields, the named accounts with their balances, and
// the append-only audit histories.
package ledger

import (
	"fmt"
	"time"
	"unicode"

	"github.com/gokcenbank/ledger/pkg/domain/money"
)

// Default account names and opening balances created at registration.
const (
	CheckingAccount = "Checking"
	SavingsAccount  = "Savings"
)

// DateLayout is the calendar-date format used for the daily withdrawal window.
const DateLayout = "2006-01-02"

// HistoryTimeLayout is the timestamp format used in audit history entries.
const HistoryTimeLayout = "2006-01-02 15:04:05"

// MaxFailedAttempts is the failure count at which a lockout is applied.
const MaxFailedAttempts = 3

var (
	// DefaultCheckingBalance is the opening balance of the checking account.
	DefaultCheckingBalance = money.FromMajor(50000)

	// DefaultDailyWithdrawalLimit caps cumulative withdrawals per calendar day.
	DefaultDailyWithdrawalLimit = money.FromMajor(10000)

	// MinCashAmount is the smallest accepted deposit/withdrawal denomination;
	// amounts must also be exact multiples of it.
	MinCashAmount = money.FromMajor(50)
)

// Account is a named balance-holding sub-ledger owned by exactly one
// UserRecord. Its transaction history is append-only; storage is unbounded
// and display truncation is a consumer concern.
type Account struct {
	Balance            money.Money `json:"balance"`
	TransactionHistory []string    `json:"transaction_history"`
}

// Credit adds amount to the balance. It fails instead of ever letting the
// balance wrap around the representable range.
func (a *Account) Credit(amount money.Money) error {
	sum, err := a.Balance.AddChecked(amount)
	if err != nil {
		return err
	}
	a.Balance = sum
	return nil
}

// Debit removes amount from the balance. It fails with ErrInsufficientFunds
// instead of ever letting the balance go below zero.
func (a *Account) Debit(amount money.Money) error {
	if a.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}

// AppendEntry appends a timestamped line to the account's audit history.
func (a *Account) AppendEntry(now time.Time, format string, args ...any) {
	a.TransactionHistory = append(a.TransactionHistory, HistoryEntry(now, format, args...))
}

// UserRecord is all durable state owned by one registered user.
// The username is the immutable identity key.
type UserRecord struct {
	Username             string              `json:"username"`
	PasswordHash         string              `json:"password_hash"`
	FailedAttempts       int                 `json:"failed_attempts"`
	LockoutUntil         *time.Time          `json:"lockout_until,omitempty"`
	SecurityQuestion     string              `json:"security_question"`
	SecurityAnswer       string              `json:"security_answer"`
	DailyWithdrawalLimit money.Money         `json:"daily_withdrawal_limit"`
	CurrentDayWithdrawal money.Money         `json:"current_day_withdrawal_amount"`
	LastWithdrawalDate   string              `json:"last_withdrawal_date,omitempty"`
	Accounts             map[string]*Account `json:"accounts"`
	UserHistory          []string            `json:"user_history"`
}

// NewUserRecord creates a freshly registered user with the two default
// accounts: Checking at the opening balance and Savings at zero.
func NewUserRecord(username, passwordHash, question, answer string) *UserRecord {
	return &UserRecord{
		Username:             username,
		PasswordHash:         passwordHash,
		SecurityQuestion:     question,
		SecurityAnswer:       answer,
		DailyWithdrawalLimit: DefaultDailyWithdrawalLimit,
		Accounts: map[string]*Account{
			CheckingAccount: {Balance: DefaultCheckingBalance, TransactionHistory: []string{}},
			SavingsAccount:  {Balance: money.Money{}, TransactionHistory: []string{}},
		},
		UserHistory: []string{},
	}
}

// Account looks up a named account, failing with ErrAccountNotFound.
func (u *UserRecord) Account(name string) (*Account, error) {
	a, ok := u.Accounts[name]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return a, nil
}

// AppendHistory appends a timestamped line to the user's audit history.
func (u *UserRecord) AppendHistory(now time.Time, format string, args ...any) {
	u.UserHistory = append(u.UserHistory, HistoryEntry(now, format, args...))
}

// LockedRemaining returns the time left on an active lockout. It reports
// false once the lockout timestamp has passed; the stale timestamp itself is
// only cleared by the next fully successful authentication.
func (u *UserRecord) LockedRemaining(now time.Time) (time.Duration, bool) {
	if u.LockoutUntil == nil || !u.LockoutUntil.After(now) {
		return 0, false
	}
	return u.LockoutUntil.Sub(now), true
}

// ApplyLockout sets the lockout window to now + 2^FailedAttempts minutes.
// The exponent is the cumulative failed-attempt count, so repeat offenders
// are locked out for progressively longer. Returns the window duration.
func (u *UserRecord) ApplyLockout(now time.Time) time.Duration {
	d := time.Duration(1<<uint(u.FailedAttempts)) * time.Minute
	until := now.Add(d)
	u.LockoutUntil = &until
	return d
}

// ClearLockout resets the failure counter and removes any lockout timestamp.
// Called only on a fully successful authentication or password change.
func (u *UserRecord) ClearLockout() {
	u.FailedAttempts = 0
	u.LockoutUntil = nil
}

// ResetDailyWindowIfNeeded zeroes the running withdrawal total whenever the
// stored window date differs from today. Must run before any limit check.
func (u *UserRecord) ResetDailyWindowIfNeeded(today string) {
	if u.LastWithdrawalDate != today {
		u.CurrentDayWithdrawal = money.Money{}
		u.LastWithdrawalDate = today
	}
}

// RemainingDailyAllowance is the amount still withdrawable today.
func (u *UserRecord) RemainingDailyAllowance() money.Money {
	return u.DailyWithdrawalLimit.Sub(u.CurrentDayWithdrawal)
}

// Normalize backfills fields that older snapshots may lack with their
// documented defaults. Gateways call this once at load time, so the rest of
// the code can rely on a fixed schema.
func (u *UserRecord) Normalize(username string) {
	if u.Username == "" {
		u.Username = username
	}
	if u.DailyWithdrawalLimit.IsZero() {
		u.DailyWithdrawalLimit = DefaultDailyWithdrawalLimit
	}
	if u.Accounts == nil {
		u.Accounts = map[string]*Account{}
	}
	for _, a := range u.Accounts {
		if a.TransactionHistory == nil {
			a.TransactionHistory = []string{}
		}
	}
	if u.UserHistory == nil {
		u.UserHistory = []string{}
	}
}

// ValidatePassword enforces the credential policy: non-empty, at least one
// uppercase letter and at least one digit.
func ValidatePassword(password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	var hasUpper, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasDigit {
		return ErrWeakPassword
	}
	return nil
}

// ValidCashAmount checks the shared deposit/withdrawal amount rules:
// strictly positive, at least 50, and an exact multiple of 50.
func ValidCashAmount(amount money.Money) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if amount.LessThan(MinCashAmount) || !amount.IsMultipleOf(MinCashAmount) {
		return ErrInvalidDenomination
	}
	return nil
}

// HistoryEntry formats one audit line: "[2006-01-02 15:04:05] message".
func HistoryEntry(now time.Time, format string, args ...any) string {
	return fmt.Sprintf("[%s] %s", now.Format(HistoryTimeLayout), fmt.Sprintf(format, args...))
}

// LastN returns up to n entries from an append-only history, most recent
// first, as an independent snapshot slice.
func LastN(history []string, n int) []string {
	if n <= 0 || len(history) == 0 {
		return []string{}
	}
	if n > len(history) {
		n = len(history)
	}
	out := make([]string, 0, n)
	for i := len(history) - 1; i >= len(history)-n; i-- {
		out = append(out, history[i])
	}
	return out
}
