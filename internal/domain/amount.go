package domain

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotNumeric is returned when a stored amount cannot be read as a number
var ErrNotNumeric = errors.New("amount is not numeric")

type amountState uint8

const (
	amountNull amountState = iota
	amountValid
	amountInvalid
)

// Amount is a monetary value as it was read from a source record.
// The zero value is a null amount. A null amount reads as zero; an
// unparseable one keeps its raw text and reports ErrNotNumeric so callers
// can reject the record without failing the whole batch.
type Amount struct {
	value decimal.Decimal
	state amountState
	raw   string
}

// NewAmount wraps a decimal value
func NewAmount(d decimal.Decimal) Amount {
	return Amount{value: d, state: amountValid}
}

// AmountFromInt returns a whole-unit amount
func AmountFromInt(v int64) Amount {
	return NewAmount(decimal.NewFromInt(v))
}

// NullAmount returns an absent amount
func NullAmount() Amount {
	return Amount{}
}

// ParseAmount reads a decimal string. Blank input is null; anything that is
// not a number is kept as an invalid amount rather than returned as an error.
func ParseAmount(s string) Amount {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return NullAmount()
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return Amount{state: amountInvalid, raw: s}
	}
	return NewAmount(d)
}

// Decimal returns the value, zero for a null amount, or ErrNotNumeric
func (a Amount) Decimal() (decimal.Decimal, error) {
	switch a.state {
	case amountValid:
		return a.value, nil
	case amountInvalid:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNotNumeric, a.raw)
	default:
		return decimal.Zero, nil
	}
}

// IsNull reports whether the amount was absent
func (a Amount) IsNull() bool {
	return a.state == amountNull
}

// IsValid reports whether the amount holds a number
func (a Amount) IsValid() bool {
	return a.state == amountValid
}

func (a Amount) String() string {
	switch a.state {
	case amountValid:
		return a.value.String()
	case amountInvalid:
		return a.raw
	default:
		return ""
	}
}

// Scan implements sql.Scanner. Unreadable values are recorded as invalid
// amounts instead of failing the scan.
func (a *Amount) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*a = NullAmount()
	case string:
		*a = ParseAmount(v)
	case []byte:
		*a = ParseAmount(string(v))
	case int64:
		*a = AmountFromInt(v)
	case float64:
		// legacy REAL columns
		*a = NewAmount(decimal.NewFromFloat(v))
	default:
		*a = Amount{state: amountInvalid, raw: fmt.Sprint(v)}
	}
	return nil
}

// Value implements driver.Valuer. Amounts are stored as canonical decimal text.
func (a Amount) Value() (driver.Value, error) {
	switch a.state {
	case amountValid:
		return a.value.String(), nil
	case amountInvalid:
		return a.raw, nil
	default:
		return nil, nil
	}
}
