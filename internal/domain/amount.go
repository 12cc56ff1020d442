package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ErrInvalidAmount reports a monetary value that cannot be normalised to whole currency units.
var ErrInvalidAmount = errors.New("domain: invalid amount")

// ParseAmount normalises a monetary value into whole currency units.
//
// Accepted inputs are integer types, integral floats, json.Number and strings.
// Strings may carry a currency symbol, spaces and thousands separators in
// either convention ("12.345", "12,345", "$ 12.345" all yield 12345). A
// decimal part is accepted only when it is all zeros ("12.345,00").
func ParseAmount(value any) (int64, error) {
	switch v := value.(type) {
	case nil:
		return 0, fmt.Errorf("%w: missing value", ErrInvalidAmount)
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case float32:
		return floatAmount(float64(v))
	case float64:
		return floatAmount(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
		}
		return floatAmount(f)
	case Amount:
		return int64(v), nil
	case string:
		return parseAmountString(v)
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidAmount, value)
	}
}

func floatAmount(v float64) (int64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, fmt.Errorf("%w: %v is not a whole amount", ErrInvalidAmount, v)
	}
	if v > math.MaxInt64 || v < math.MinInt64 {
		return 0, fmt.Errorf("%w: %v out of range", ErrInvalidAmount, v)
	}
	return int64(v), nil
}

func parseAmountString(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}

	negative := false
	closed := false
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsDigit(r), r == '.', r == ',':
			if closed {
				return 0, fmt.Errorf("%w: malformed %q", ErrInvalidAmount, raw)
			}
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			negative = true
		case r == '$' || unicode.IsSpace(r) || unicode.IsLetter(r):
			// currency symbols, codes and padding; digits may not resume afterwards
			closed = b.Len() > 0
		default:
			return 0, fmt.Errorf("%w: unexpected %q in %q", ErrInvalidAmount, r, raw)
		}
	}
	digits := b.String()
	if digits == "" {
		return 0, fmt.Errorf("%w: no digits in %q", ErrInvalidAmount, raw)
	}

	integer, fraction := splitDecimal(digits)
	if strings.Trim(fraction, "0") != "" {
		return 0, fmt.Errorf("%w: %q has a fractional part", ErrInvalidAmount, raw)
	}
	integer = strings.NewReplacer(".", "", ",", "").Replace(integer)
	if integer == "" {
		return 0, fmt.Errorf("%w: no digits in %q", ErrInvalidAmount, raw)
	}

	n, err := strconv.ParseInt(integer, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if negative {
		n = -n
	}
	return n, nil
}

// splitDecimal separates a trailing decimal part. The last separator is a
// decimal mark only when it is followed by one or two digits, or when both
// separator kinds appear; otherwise every separator groups thousands.
func splitDecimal(s string) (string, string) {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	last := max(lastDot, lastComma)
	if last < 0 {
		return s, ""
	}
	tail := s[last+1:]
	mixed := lastDot >= 0 && lastComma >= 0
	if mixed || (len(tail) > 0 && len(tail) < 3) {
		return s[:last], tail
	}
	return s, ""
}

// Amount is an integer currency value that decodes from JSON numbers or formatted strings.
type Amount int64

// Int64 returns the amount as a plain integer.
func (a Amount) Int64() int64 { return int64(a) }

// MarshalJSON always encodes a number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(a), 10)), nil
}

// UnmarshalJSON accepts numbers and delimited strings.
func (a *Amount) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*a = 0
		return nil
	}
	var value any
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
		}
		value = s
	} else {
		value = json.Number(trimmed)
	}
	n, err := ParseAmount(value)
	if err != nil {
		return err
	}
	*a = Amount(n)
	return nil
}
