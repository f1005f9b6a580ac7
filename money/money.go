// Package money provides a fixed-precision monetary type and a UTC wall-clock
// abstraction used throughout the ad decisioning and billing core.
package money

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInsufficientFunds is returned by checked subtraction when the result
// would be negative.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrMalformedAmount is returned when a decimal string cannot be parsed as
// an exact two-fractional-digit monetary amount.
var ErrMalformedAmount = errors.New("malformed monetary amount")

// Cents is a monetary value expressed as an integer count of minor units
// (e.g. US cents). Subtraction is checked: Sub rejects results below zero
// instead of going negative. Add is not checked.
type Cents int64

// Zero is the additive identity.
const Zero Cents = 0

// Add returns c+other. Monetary addition cannot overflow in practice at the
// scale this system operates at, so no overflow check is performed.
func (c Cents) Add(other Cents) Cents {
	return c + other
}

// Sub returns c-other, or ErrInsufficientFunds if the result would be
// negative.
func (c Cents) Sub(other Cents) (Cents, error) {
	result := c - other
	if result < 0 {
		return 0, ErrInsufficientFunds
	}
	return result, nil
}

// LessThan reports whether c < other.
func (c Cents) LessThan(other Cents) bool {
	return c < other
}

// GreaterOrEqual reports whether c >= other.
func (c Cents) GreaterOrEqual(other Cents) bool {
	return c >= other
}

// Ratio returns c/whole as a float in [0,1], clamped to 0 when whole <= 0.
func (c Cents) Ratio(whole Cents) float64 {
	if whole <= 0 {
		return 0
	}
	ratio := float64(c) / float64(whole)
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}

// String renders the amount as a decimal string with exactly two
// fractional digits, e.g. Cents(1050).String() == "10.50".
func (c Cents) String() string {
	return decimal.New(int64(c), -2).StringFixed(2)
}

// ParseCents parses a decimal string ("10.50", "10", "-1") into Cents.
// Parsing is exact: it rejects more than two fractional digits rather than
// rounding, so silent precision loss cannot creep into the ledger.
func ParseCents(s string) (Cents, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedAmount, err)
	}
	if d.Exponent() < -2 {
		return 0, fmt.Errorf("%w: more than two fractional digits", ErrMalformedAmount)
	}
	return Cents(d.Shift(2).IntPart()), nil
}

// Value implements driver.Valuer so Cents can be stored as a bigint column.
func (c Cents) Value() (driver.Value, error) {
	return int64(c), nil
}

// Scan implements sql.Scanner.
func (c *Cents) Scan(value any) error {
	if value == nil {
		*c = 0
		return nil
	}
	switch v := value.(type) {
	case int64:
		*c = Cents(v)
	case int32:
		*c = Cents(v)
	case int:
		*c = Cents(v)
	default:
		return fmt.Errorf("cannot scan %T into Cents", value)
	}
	return nil
}

// InheritBudget is the sentinel ad.budget value meaning "inherit from the
// parent campaign's budget" (spec §3, Ad entity).
const InheritBudget Cents = -1

// Unlimited is the sentinel remaining-budget value meaning "no cap applies".
const Unlimited Cents = -1
