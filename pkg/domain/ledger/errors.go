package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/gokcenbank/ledger/pkg/domain/money"
)

var (
	// ErrUserNotFound is returned when a username is not present in the ledger.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateUser is returned when registering a username that already exists.
	ErrDuplicateUser = errors.New("username already taken")

	// ErrEmptyUsername is returned when registration is attempted without a username.
	ErrEmptyUsername = errors.New("username cannot be empty")

	// ErrEmptyPassword is returned when registration is attempted without a password.
	ErrEmptyPassword = errors.New("password cannot be empty")

	// ErrWeakPassword is returned when a password fails the strength policy.
	ErrWeakPassword = errors.New("password must contain at least one uppercase letter and one digit")

	// ErrInvalidCredentials is returned on a password mismatch below the lockout threshold.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountLocked marks all lockout failures; LockedError wraps it with the
	// remaining duration.
	ErrAccountLocked = errors.New("account locked")

	// ErrAccountNotFound is returned when a named account does not exist on a user.
	ErrAccountNotFound = errors.New("account not found")

	// ErrNonPositiveAmount is returned when an operation amount is zero or negative.
	ErrNonPositiveAmount = errors.New("amount must be positive")

	// ErrInvalidDenomination is returned when a cash amount is below 50 or not a
	// multiple of 50.
	ErrInvalidDenomination = errors.New("amount must be at least 50 and a multiple of 50")

	// ErrInsufficientFunds is returned when an operation would drive a balance
	// below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDailyLimitExceeded marks daily withdrawal limit failures; DailyLimitError
	// wraps it with the remaining allowance.
	ErrDailyLimitExceeded = errors.New("daily withdrawal limit exceeded")

	// ErrSameAccountTransfer is returned when an internal transfer names the same
	// account twice.
	ErrSameAccountTransfer = errors.New("source and destination accounts must differ")

	// ErrSelfTransfer is returned when an external transfer targets the sender;
	// internal transfer must be used instead.
	ErrSelfTransfer = errors.New("cannot make an external transfer to your own user")

	// ErrRecipientNotFound is returned when an external transfer names an unknown user.
	ErrRecipientNotFound = errors.New("recipient user not found")

	// ErrRecipientAccountNotFound is returned when the recipient exists but the
	// named account does not.
	ErrRecipientAccountNotFound = errors.New("recipient account not found")

	// ErrSessionInvalid is returned when an operation is attempted with a revoked
	// or unknown session.
	ErrSessionInvalid = errors.New("session is no longer valid")
)

// LockedError reports a lockout together with the time left on it.
// It unwraps to ErrAccountLocked so callers can match with errors.Is.
type LockedError struct {
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked, try again in %s", e.Remaining.Round(time.Second))
}

func (e *LockedError) Unwrap() error { return ErrAccountLocked }

// DailyLimitError reports a daily-limit rejection together with the remaining
// allowance and the amount already withdrawn today.
// It unwraps to ErrDailyLimitExceeded.
type DailyLimitError struct {
	Remaining      money.Money
	WithdrawnToday money.Money
}

func (e *DailyLimitError) Error() string {
	return fmt.Sprintf(
		"daily withdrawal limit exceeded: %s remaining today (already withdrawn %s)",
		e.Remaining, e.WithdrawnToday,
	)
}

func (e *DailyLimitError) Unwrap() error { return ErrDailyLimitExceeded }
