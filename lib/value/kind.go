package value

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind is the wire type tag of a value. The numbering is part of the wire format.
type Kind uint8

const (
	KindInfMin Kind = iota
	KindInfMax
	KindInteger
	KindString
	KindBoolean
	KindDouble
)

func (k Kind) String() string {
	switch k {
	case KindInfMin:
		return "INF_MIN"
	case KindInfMax:
		return "INF_MAX"
	case KindInteger:
		return "INTEGER"
	case KindString:
		return "STRING"
	case KindBoolean:
		return "BOOLEAN"
	case KindDouble:
		return "DOUBLE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(k))
	}
}

// IsSentinel reports whether k is one of the ordering sentinels.
func (k Kind) IsSentinel() bool { return k == KindInfMin || k == KindInfMax }

// Valid reports whether k is a known wire kind.
func (k Kind) Valid() bool { return k <= KindDouble }

// MarshalJSON encodes the kind by name
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON accepts every kind name, including the sentinel kinds
func (k *Kind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "INF_MIN":
		*k = KindInfMin
		return nil
	case "INF_MAX":
		*k = KindInfMax
		return nil
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind parses a declared kind name. Only the four concrete kinds can be declared;
// the match is case-insensitive.
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INTEGER":
		return KindInteger, nil
	case "STRING":
		return KindString, nil
	case "BOOLEAN":
		return KindBoolean, nil
	case "DOUBLE":
		return KindDouble, nil
	default:
		return 0, fmt.Errorf("%w: %q is not a declarable kind", ErrKindMismatch, s)
	}
}

// --------------------------------------------------------------------------
// Sentinels
// --------------------------------------------------------------------------

// Sentinel is an ordering bound for range queries. It is a distinct type, so a plain
// string that happens to read "STR_MIN" is still an ordinary string value.
type Sentinel string

const (
	StrMin  Sentinel = "STR_MIN"
	StrMax  Sentinel = "STR_MAX"
	IntMin  Sentinel = "INT_MIN"
	IntMax  Sentinel = "INT_MAX"
	BoolMin Sentinel = "BOOL_MIN"
	BoolMax Sentinel = "BOOL_MAX"
)

// split returns the sentinel kind and the type family the sentinel bounds.
func (s Sentinel) split() (kind Kind, base Kind, ok bool) {
	switch s {
	case StrMin:
		return KindInfMin, KindString, true
	case StrMax:
		return KindInfMax, KindString, true
	case IntMin:
		return KindInfMin, KindInteger, true
	case IntMax:
		return KindInfMax, KindInteger, true
	case BoolMin:
		return KindInfMin, KindBoolean, true
	case BoolMax:
		return KindInfMax, KindBoolean, true
	default:
		return 0, 0, false
	}
}

// SentinelOf returns the sentinel for a sentinel kind and its type family.
func SentinelOf(kind, base Kind) (Sentinel, bool) {
	for _, s := range []Sentinel{StrMin, StrMax, IntMin, IntMax, BoolMin, BoolMax} {
		if k, b, _ := s.split(); k == kind && b == base {
			return s, true
		}
	}
	return "", false
}

// ParseSentinel maps sentinel text (e.g. from a command line) to a Sentinel.
func ParseSentinel(s string) (Sentinel, bool) {
	candidate := Sentinel(strings.ToUpper(strings.TrimSpace(s)))
	if _, _, ok := candidate.split(); ok {
		return candidate, true
	}
	return "", false
}
