// Package format renders customer-facing values.
package format

import (
	"strconv"
	"strings"
)

// Currency formats a whole-unit amount for display. Peso currencies use the
// Colombian convention ("$45.000"); other codes are prefixed with the code.
func Currency(amount int64, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	neg := amount < 0
	if neg {
		amount = -amount
	}

	var out string
	switch currency {
	case "", "COP", "CLP", "ARS", "MXN":
		out = "$" + thousandSep(amount, '.')
	case "USD":
		out = "US$" + thousandSep(amount, ',')
	default:
		out = currency + " " + thousandSep(amount, ',')
	}
	if neg {
		return "-" + out
	}
	return out
}

func thousandSep(n int64, sep byte) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + len(s)/3)
	for i := 0; i < len(s); i++ {
		if i != 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(sep)
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
