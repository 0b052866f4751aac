package value

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

// Encode infers the wire kind of v.
//
// Precedence: sentinel, bool, number (whole numbers become INTEGER, others DOUBLE),
// string, then everything else converted to its string form (nil becomes "null").
// An already encoded Value is returned unchanged.
func Encode(v any) (Value, error) {
	switch x := v.(type) {
	case Value:
		return x, x.Validate()
	case Sentinel:
		return FromSentinel(x)
	case bool:
		return Boolean(x), nil
	case int:
		return Integer(int64(x)), nil
	case int8:
		return Integer(int64(x)), nil
	case int16:
		return Integer(int64(x)), nil
	case int32:
		return Integer(int64(x)), nil
	case int64:
		return Integer(x), nil
	case uint, uint8, uint16, uint32, uint64:
		n, err := fromUnsigned(x)
		if err != nil {
			return Value{}, err
		}
		return Integer(n), nil
	case float32:
		return encodeFloat(float64(x))
	case float64:
		return encodeFloat(x)
	case json.Number:
		if n, err := IntegerFromLiteral(x.String()); err == nil {
			return Integer(n), nil
		}
		f, err := x.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not a number", ErrKindMismatch, x.String())
		}
		return encodeFloat(f)
	case string:
		return String(x), nil
	default:
		return String(stringify(v)), nil
	}
}

// EncodeAs converts v to the declared kind. The declaration always wins over inference;
// a sentinel is accepted if it bounds the declared type family.
func EncodeAs(v any, kind Kind) (Value, error) {
	if kind.IsSentinel() || !kind.Valid() {
		return Value{}, fmt.Errorf("%w: %s cannot be declared", ErrKindMismatch, kind)
	}
	if s, ok := v.(Sentinel); ok {
		val, err := FromSentinel(s)
		if err != nil {
			return Value{}, err
		}
		if kind == KindDouble || val.Base != kind {
			return Value{}, fmt.Errorf("%w: %s does not bound %s", ErrKindMismatch, s, kind)
		}
		return val, nil
	}
	if val, ok := v.(Value); ok {
		if err := val.Validate(); err != nil {
			return Value{}, err
		}
		if val.Base != kind {
			return Value{}, fmt.Errorf("%w: %s declared as %s", ErrKindMismatch, val, kind)
		}
		return val, nil
	}

	switch kind {
	case KindString:
		if s, ok := v.(string); ok {
			return String(s), nil
		}
		return String(stringify(v)), nil
	case KindInteger:
		n, err := toInteger(v)
		if err != nil {
			return Value{}, err
		}
		return Integer(n), nil
	case KindDouble:
		f, err := toDouble(v)
		if err != nil {
			return Value{}, err
		}
		return Double(f), nil
	default:
		b, err := toBoolean(v)
		if err != nil {
			return Value{}, err
		}
		return Boolean(b), nil
	}
}

// EncodeDeclared encodes v with the declared kind name, or infers the kind if
// declared is empty.
func EncodeDeclared(v any, declared string) (Value, error) {
	if declared == "" {
		return Encode(v)
	}
	kind, err := ParseKind(declared)
	if err != nil {
		return Value{}, err
	}
	return EncodeAs(v, kind)
}

func encodeFloat(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return Double(f), nil
	}
	n, err := IntegerFromFloat(f)
	if err != nil {
		return Value{}, err
	}
	return Integer(n), nil
}

func fromUnsigned(v any) (int64, error) {
	var u uint64
	switch x := v.(type) {
	case uint:
		u = uint64(x)
	case uint8:
		u = uint64(x)
	case uint16:
		u = uint64(x)
	case uint32:
		u = uint64(x)
	case uint64:
		u = x
	}
	if u > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %d", ErrOutOfRange, u)
	}
	return int64(u), nil
}

func toInteger(v any) (int64, error) {
	switch x := v.(type) {
	case string:
		return IntegerFromLiteral(x)
	case json.Number:
		return IntegerFromLiteral(x.String())
	case float32:
		return wholeFloat(float64(x))
	case float64:
		return wholeFloat(x)
	case bool, nil:
		return 0, fmt.Errorf("%w: %T declared as INTEGER", ErrKindMismatch, v)
	}
	val, err := Encode(v)
	if err != nil {
		return 0, err
	}
	if n, ok := val.Payload.(int64); ok && val.Kind == KindInteger {
		return n, nil
	}
	return 0, fmt.Errorf("%w: %T declared as INTEGER", ErrKindMismatch, v)
}

func wholeFloat(f float64) (int64, error) {
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %v has a fractional part", ErrKindMismatch, f)
	}
	return IntegerFromFloat(f)
}

func toDouble(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q declared as DOUBLE", ErrKindMismatch, x)
		}
		return f, nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q declared as DOUBLE", ErrKindMismatch, x.String())
		}
		return f, nil
	case bool, nil:
		return 0, fmt.Errorf("%w: %T declared as DOUBLE", ErrKindMismatch, v)
	}
	val, err := Encode(v)
	if err != nil {
		return 0, err
	}
	if n, ok := val.Payload.(int64); ok {
		return float64(n), nil
	}
	return 0, fmt.Errorf("%w: %T declared as DOUBLE", ErrKindMismatch, v)
}

func toBoolean(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return false, fmt.Errorf("%w: %q declared as BOOLEAN", ErrKindMismatch, x)
		}
		return b, nil
	default:
		return false, fmt.Errorf("%w: %T declared as BOOLEAN", ErrKindMismatch, v)
	}
}

// stringify is the string conversion of last resort.
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case Sentinel:
		return string(x)
	default:
		return fmt.Sprint(v)
	}
}

// --------------------------------------------------------------------------
// Decoding
// --------------------------------------------------------------------------

// Decoder turns wire values back into host values.
type Decoder struct {
	Precision PrecisionMode
}

// Decode returns int64 or string (INTEGER, see PrecisionMode), string, bool or float64.
// Sentinels never appear in responses and are reported as malformed.
func (d Decoder) Decode(v Value) (any, error) {
	switch v.Kind {
	case KindInteger:
		n, ok := v.Payload.(int64)
		if !ok {
			return nil, d.malformed(v)
		}
		return DecodeInteger(n, d.Precision), nil
	case KindString:
		s, ok := v.Payload.(string)
		if !ok {
			return nil, d.malformed(v)
		}
		return s, nil
	case KindBoolean:
		b, ok := v.Payload.(bool)
		if !ok {
			return nil, d.malformed(v)
		}
		return b, nil
	case KindDouble:
		f, ok := v.Payload.(float64)
		if !ok {
			return nil, d.malformed(v)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%w: unexpected %s in response", ErrMalformedValue, v.Kind)
	}
}

func (d Decoder) malformed(v Value) error {
	return fmt.Errorf("%w: kind %s with payload %T", ErrMalformedValue, v.Kind, v.Payload)
}
