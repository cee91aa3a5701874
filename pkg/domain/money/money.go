// Package money provides a fixed-point monetary value object.
//
// Amounts are stored as int64 in the smallest currency unit (kurus), so
// arithmetic is exact and never touches floating point. All operations on
// the ledger use this type; float64 only appears at display boundaries.
package money

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Decimals is the display precision of the ledger currency.
const Decimals = 2

const minorPerMajor = 100

// ErrInvalidAmountFormat is returned when an amount string is not a valid
// decimal number with at most two fractional digits.
var ErrInvalidAmountFormat = errors.New("invalid amount format")

// ErrAmountExceedsMaxSafeInt is returned when an amount, or the result of an
// addition, does not fit the int64 minor-unit representation.
var ErrAmountExceedsMaxSafeInt = errors.New("amount exceeds the maximum safe value")

// Money represents a monetary value in the smallest currency unit.
// The zero value is a valid amount of 0.00.
type Money struct {
	amount int64
}

// FromMinor creates a Money from an amount expressed in the smallest
// currency unit (e.g. 12345 -> 123.45).
func FromMinor(amount int64) Money {
	return Money{amount: amount}
}

// FromMajor creates a Money from a whole number of major units
// (e.g. 50 -> 50.00).
func FromMajor(amount int64) Money {
	return Money{amount: amount * minorPerMajor}
}

// Parse converts a decimal string such as "123", "123.4" or "123.45" into
// Money. Input that is not numeric, has more than two fractional digits, or
// carries a stray sign returns ErrInvalidAmountFormat; a value too large for
// the int64 minor-unit representation returns ErrAmountExceedsMaxSafeInt.
// Parsing happens before any balance check, so malformed input never reaches
// the ledger.
func Parse(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmountFormat
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	intPart, fracPart, hasFrac := strings.Cut(s, ".")
	if intPart == "" {
		return Money{}, ErrInvalidAmountFormat
	}
	major, err := strconv.ParseUint(intPart, 10, 63)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return Money{}, ErrAmountExceedsMaxSafeInt
		}
		return Money{}, ErrInvalidAmountFormat
	}

	var minor uint64
	if hasFrac {
		if fracPart == "" || len(fracPart) > Decimals {
			return Money{}, ErrInvalidAmountFormat
		}
		minor, err = strconv.ParseUint(fracPart, 10, 63)
		if err != nil {
			return Money{}, ErrInvalidAmountFormat
		}
		if len(fracPart) == 1 {
			minor *= 10
		}
	}

	if int64(major) > (math.MaxInt64-int64(minor))/minorPerMajor {
		return Money{}, ErrAmountExceedsMaxSafeInt
	}
	total := int64(major)*minorPerMajor + int64(minor)
	if neg {
		total = -total
	}
	return Money{amount: total}, nil
}

// Minor returns the amount in the smallest currency unit.
func (m Money) Minor() int64 { return m.amount }

// Add returns the sum of two amounts.
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount + other.amount}
}

// AddChecked returns the sum, or ErrAmountExceedsMaxSafeInt when it would
// wrap around the int64 range.
func (m Money) AddChecked(other Money) (Money, error) {
	sum := m.amount + other.amount
	if (other.amount > 0 && sum < m.amount) || (other.amount < 0 && sum > m.amount) {
		return Money{}, ErrAmountExceedsMaxSafeInt
	}
	return Money{amount: sum}, nil
}

// Sub returns the difference of two amounts.
func (m Money) Sub(other Money) Money {
	return Money{amount: m.amount - other.amount}
}

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool { return m.amount > 0 }

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool { return m.amount == 0 }

// LessThan reports whether m < other.
func (m Money) LessThan(other Money) bool { return m.amount < other.amount }

// GreaterThan reports whether m > other.
func (m Money) GreaterThan(other Money) bool { return m.amount > other.amount }

// Equals reports whether both amounts are identical.
func (m Money) Equals(other Money) bool { return m.amount == other.amount }

// IsMultipleOf reports whether the amount is an exact multiple of unit.
func (m Money) IsMultipleOf(unit Money) bool {
	if unit.amount == 0 {
		return false
	}
	return m.amount%unit.amount == 0
}

// String renders the amount with two decimal places, e.g. "123.45".
func (m Money) String() string {
	a := m.amount
	sign := ""
	if a < 0 {
		sign = "-"
		a = -a
	}
	return fmt.Sprintf("%s%d.%02d", sign, a/minorPerMajor, a%minorPerMajor)
}

// MarshalJSON encodes the amount as an integer number of minor units, which
// keeps snapshot round-trips exact.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(m.amount, 10)), nil
}

// UnmarshalJSON decodes an integer number of minor units.
func (m *Money) UnmarshalJSON(data []byte) error {
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidAmountFormat, string(data))
	}
	m.amount = v
	return nil
}
