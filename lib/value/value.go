package value

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrKindMismatch is returned if a host value cannot be converted to the requested kind
	ErrKindMismatch = errors.New("kind mismatch")
	// ErrOutOfRange is returned if an integer does not fit into 64 bits
	ErrOutOfRange = errors.New("integer out of range")
	// ErrMalformedValue is returned if a wire value is missing its payload or the payload
	// does not match the declared kind
	ErrMalformedValue = errors.New("malformed value")
)

// Value is a tagged wire value.
//
// Payload holds int64 (INTEGER), string (STRING), bool (BOOLEAN), float64 (DOUBLE)
// or nil (sentinels). Base equals Kind for concrete values and names the bounded type
// family for sentinels. A sentinel whose family is unknown (the binary wire form does
// not carry it) has Base equal to Kind.
type Value struct {
	Kind    Kind
	Base    Kind
	Payload any
}

// Integer returns an INTEGER value.
func Integer(n int64) Value { return Value{Kind: KindInteger, Base: KindInteger, Payload: n} }

// String returns a STRING value.
func String(s string) Value { return Value{Kind: KindString, Base: KindString, Payload: s} }

// Boolean returns a BOOLEAN value.
func Boolean(b bool) Value { return Value{Kind: KindBoolean, Base: KindBoolean, Payload: b} }

// Double returns a DOUBLE value.
func Double(f float64) Value { return Value{Kind: KindDouble, Base: KindDouble, Payload: f} }

// FromSentinel returns the wire value of a sentinel.
func FromSentinel(s Sentinel) (Value, error) {
	kind, base, ok := s.split()
	if !ok {
		return Value{}, fmt.Errorf("%w: unknown sentinel %q", ErrKindMismatch, string(s))
	}
	return Value{Kind: kind, Base: base}, nil
}

// HasFamily reports whether the bounded family of a sentinel is known. It is always
// true for concrete values.
func (v Value) HasFamily() bool { return !v.IsSentinel() || v.Base != v.Kind }

// IsSentinel reports whether v is an ordering bound.
func (v Value) IsSentinel() bool { return v.Kind.IsSentinel() }

// Literal renders the payload as text: decimal integers, shortest round-trip doubles,
// TRUE/FALSE for booleans and the sentinel kind name for bounds. It is the value form
// used by the parameter based protocol generation.
func (v Value) Literal() string {
	switch p := v.Payload.(type) {
	case int64:
		return strconv.FormatInt(p, 10)
	case string:
		return p
	case bool:
		if p {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		return strconv.FormatFloat(p, 'g', -1, 64)
	default:
		return v.Kind.String()
	}
}

func (v Value) String() string {
	if v.IsSentinel() {
		if s, ok := SentinelOf(v.Kind, v.Base); ok {
			return string(s)
		}
		return v.Kind.String()
	}
	return fmt.Sprintf("%s(%s)", v.Kind, v.Literal())
}

// Validate checks that the payload matches the kind.
func (v Value) Validate() error {
	ok := false
	switch v.Kind {
	case KindInfMin, KindInfMax:
		ok = v.Payload == nil && (v.Base == v.Kind || v.Base == KindInteger || v.Base == KindString || v.Base == KindBoolean)
	case KindInteger:
		_, ok = v.Payload.(int64)
	case KindString:
		_, ok = v.Payload.(string)
	case KindBoolean:
		_, ok = v.Payload.(bool)
	case KindDouble:
		_, ok = v.Payload.(float64)
	}
	if !ok {
		return fmt.Errorf("%w: kind %s with payload %T", ErrMalformedValue, v.Kind, v.Payload)
	}
	return nil
}
