package services

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatUSD formats an amount as dollars with thousands separators and exactly
// two decimals, rounding half up (e.g. $1,234.57).
func FormatUSD(amount decimal.Decimal) string {
	return formatMoney("$", amount)
}

// FormatCRC formats an amount as colones (e.g. ₡515,000.00).
func FormatCRC(amount decimal.Decimal) string {
	return formatMoney("₡", amount)
}

func formatMoney(symbol string, amount decimal.Decimal) string {
	raw := Round2(amount).StringFixed(2)
	negative := strings.HasPrefix(raw, "-")
	raw = strings.TrimPrefix(raw, "-")

	parts := strings.SplitN(raw, ".", 2)
	result := symbol + applyThousandsGrouping(parts[0]) + "." + parts[1]
	if negative && !Round2(amount).IsZero() {
		result = "-" + result
	}
	return result
}

// applyThousandsGrouping inserts a comma every three digits from the right.
func applyThousandsGrouping(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	var b strings.Builder
	lead := n % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
