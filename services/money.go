package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

var hundred = decimal.NewFromInt(100)

// Round2 rounds an amount to cents, half away from zero. Amounts keep full
// precision internally; this is only applied where values are presented.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ParseAmount converts a raw numeric input (form string, spreadsheet cell,
// record value) into a decimal. Blank input is resolved by policy.
func ParseAmount(raw any, policy BlankPolicy) (decimal.Decimal, error) {
	if d, ok := raw.(decimal.Decimal); ok {
		return d, nil
	}
	s, err := cast.ToStringE(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unsupported numeric value %v: %w", raw, err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		if policy == BlankAsZero {
			return decimal.Zero, nil
		}
		return decimal.Zero, errors.New("value is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q is not a number", s)
	}
	return d, nil
}

func nonNegativeDecimal(value any) error {
	d, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("must be a decimal")
	}
	if d.IsNegative() {
		return errors.New("must not be negative")
	}
	return nil
}

func positiveDecimal(value any) error {
	d, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("must be a decimal")
	}
	if !d.IsPositive() {
		return errors.New("must be greater than zero")
	}
	return nil
}

func wholePositiveDecimal(value any) error {
	if err := positiveDecimal(value); err != nil {
		return err
	}
	if !value.(decimal.Decimal).IsInteger() {
		return errors.New("must be a whole number")
	}
	return nil
}
