package attr

import (
	"fmt"
	"strconv"
)

// Number is a decimal number kept in the textual form DynamoDB transmits,
// so values survive a round trip exactly. Build one with [Int], [Uint],
// [Float] or [ParseNumber].
//
// Converting to a Go float with [Number.Float64] can lose precision when
// the decimal has more significant digits than a float64 holds.
type Number string

// Int returns the Number for i.
func Int(i int64) Number {
	return Number(strconv.FormatInt(i, 10))
}

// Uint returns the Number for u.
func Uint(u uint64) Number {
	return Number(strconv.FormatUint(u, 10))
}

// Float returns the shortest decimal that round-trips to f. NaN and
// infinities have no decimal form and yield an invalid Number that fails
// on itemize.
func Float(f float64) Number {
	return Number(strconv.FormatFloat(f, 'g', -1, 64))
}

// ParseNumber validates s as a decimal and returns it as a Number.
func ParseNumber(s string) (Number, error) {
	if !isDecimal(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}

	return Number(s), nil
}

// Float64 parses the number as a float64.
func (n Number) Float64() (float64, error) {
	if !isDecimal(string(n)) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, string(n))
	}

	return strconv.ParseFloat(string(n), 64)
}

// Int64 parses the number as an int64. It fails for fractions and
// out-of-range values.
func (n Number) Int64() (int64, error) {
	if !isDecimal(string(n)) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, string(n))
	}

	return strconv.ParseInt(string(n), 10, 64)
}

// IsZero reports whether the number is mathematically zero ("0", "-0.0",
// "0e10", ...).
func (n Number) IsZero() bool {
	if !isDecimal(string(n)) {
		return false
	}

	for i := 0; i < len(n); i++ {
		switch c := n[i]; {
		case c == 'e' || c == 'E':
			return true
		case c >= '1' && c <= '9':
			return false
		}
	}

	return true
}

func (n Number) validate() error {
	if !isDecimal(string(n)) {
		return fmt.Errorf("%w: %q", ErrInvalidNumber, string(n))
	}

	return nil
}

// isDecimal accepts an optional sign, digits with an optional fraction (at
// least one digit overall) and an optional signed exponent.
func isDecimal(s string) bool {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}

	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}

	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}

	if digits == 0 {
		return false
	}

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		exp := 0
		for i < len(s) && isDigit(s[i]) {
			i++
			exp++
		}
		if exp == 0 {
			return false
		}
	}

	return i == len(s)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
