package value

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Safe integer range
// --------------------------------------------------------------------------

const (
	// MaxSafeInteger is the largest integer n such that n and n+1 are both exactly
	// representable as an IEEE 754 double.
	MaxSafeInteger int64 = 1<<53 - 1
	// MinSafeInteger is the negation of MaxSafeInteger.
	MinSafeInteger = -MaxSafeInteger
)

// IsSafeInteger reports whether n survives a round trip through a float64.
func IsSafeInteger(n int64) bool {
	return n >= MinSafeInteger && n <= MaxSafeInteger
}

// PrecisionMode selects how decoded integers are presented.
type PrecisionMode uint8

const (
	// PrecisionSafe returns int64 for safe integers and an exact decimal string otherwise.
	PrecisionSafe PrecisionMode = iota
	// PrecisionLiteral returns every integer as its exact decimal string.
	PrecisionLiteral
)

func (m PrecisionMode) String() string {
	switch m {
	case PrecisionSafe:
		return "safe"
	case PrecisionLiteral:
		return "literal"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// --------------------------------------------------------------------------
// Encode side
// --------------------------------------------------------------------------

// IntegerFromLiteral parses a decimal integer literal exactly. It never goes through a
// float, so "19007199254740991" keeps all of its digits.
func IntegerFromLiteral(s string) (int64, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("%w: %q", ErrOutOfRange, s)
		}
		return 0, fmt.Errorf("%w: %q is not an integer literal", ErrKindMismatch, s)
	}
	return n, nil
}

// IntegerFromFloat returns the nearest integer to f. Precision already lost by the
// float is not recoverable; the result is simply the integer the float denotes.
func IntegerFromFloat(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v is not a finite number", ErrKindMismatch, f)
	}
	r := math.Round(f)
	// float64(math.MaxInt64) rounds up to 2^63, which is already out of range
	if r >= 1<<63 || r < -(1<<63) {
		return 0, fmt.Errorf("%w: %v", ErrOutOfRange, f)
	}
	return int64(r), nil
}

// --------------------------------------------------------------------------
// Decode side
// --------------------------------------------------------------------------

// DecodeInteger applies the precision rule of mode to n.
func DecodeInteger(n int64, mode PrecisionMode) any {
	if mode == PrecisionSafe && IsSafeInteger(n) {
		return n
	}
	return strconv.FormatInt(n, 10)
}

// DecodeIntegerLiteral parses integer text from a response and applies the precision
// rule of mode to it.
func DecodeIntegerLiteral(raw string, mode PrecisionMode) (any, error) {
	n, err := IntegerFromLiteral(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: integer payload: %v", ErrMalformedValue, err)
	}
	return DecodeInteger(n, mode), nil
}
