package serializer

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/otsc/lib/row"
	"github.com/ValentinKolb/otsc/lib/value"
	"google.golang.org/protobuf/encoding/protowire"
	"math"
)

// ErrWireFormat is returned for bodies that do not match the expected message shape.
var ErrWireFormat = errors.New("invalid wire format")

// --------------------------------------------------------------------------
// Encoding helper
// --------------------------------------------------------------------------

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendOptString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	return appendString(b, num, s)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	return appendVarint(b, num, protowire.EncodeBool(v))
}

func appendMessage(b []byte, num protowire.Number, sub []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, sub)
}

// ColumnValue: 1 type, 2 v_int, 3 v_string, 4 v_bool, 5 v_double
func encodeValue(v value.Value) ([]byte, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	b := appendVarint(nil, 1, uint64(v.Kind))
	switch p := v.Payload.(type) {
	case int64:
		b = appendVarint(b, 2, uint64(p))
	case string:
		b = appendString(b, 3, p)
	case bool:
		b = appendBool(b, 4, p)
	case float64:
		b = protowire.AppendTag(b, 5, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(p))
	}
	return b, nil
}

// Column: 1 name, 2 value
func appendColumns(b []byte, num protowire.Number, cols []row.NamedValue) ([]byte, error) {
	for _, col := range cols {
		v, err := encodeValue(col.Value)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}
		sub := appendString(nil, 1, col.Name)
		sub = appendMessage(sub, 2, v)
		b = appendMessage(b, num, sub)
	}
	return b, nil
}

// Row: 1 primary_keys, 2 columns
func encodeRow(r row.Row) ([]byte, error) {
	b, err := appendColumns(nil, 1, r.PrimaryKey)
	if err != nil {
		return nil, err
	}
	return appendColumns(b, 2, r.Columns)
}

func appendStrings(b []byte, num protowire.Number, ss []string) []byte {
	for _, s := range ss {
		b = appendString(b, num, s)
	}
	return b
}

// --------------------------------------------------------------------------
// Decoding helper
// --------------------------------------------------------------------------

// field is one decoded tag/value pair. Scalar wire values are kept in num, bytes in raw.
type field struct {
	num protowire.Number
	typ protowire.Type
	u64 uint64
	raw []byte
}

// parseFields calls fn for every field of a message body.
func parseFields(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrWireFormat, protowire.ParseError(n))
		}
		b = b[n:]
		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.u64, n = protowire.ConsumeVarint(b)
		case protowire.Fixed64Type:
			f.u64, n = protowire.ConsumeFixed64(b)
		case protowire.Fixed32Type:
			var v uint32
			v, n = protowire.ConsumeFixed32(b)
			f.u64 = uint64(v)
		case protowire.BytesType:
			f.raw, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrWireFormat, num, protowire.ParseError(n))
		}
		b = b[n:]
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func (f field) expect(typ protowire.Type) error {
	if f.typ != typ {
		return fmt.Errorf("%w: field %d has wire type %d, want %d", ErrWireFormat, f.num, f.typ, typ)
	}
	return nil
}

func (f field) str() (string, error) {
	if err := f.expect(protowire.BytesType); err != nil {
		return "", err
	}
	return string(f.raw), nil
}

func (f field) bytes() ([]byte, error) {
	if err := f.expect(protowire.BytesType); err != nil {
		return nil, err
	}
	return f.raw, nil
}

func (f field) uint() (uint64, error) {
	if err := f.expect(protowire.VarintType); err != nil {
		return 0, err
	}
	return f.u64, nil
}

func (f field) boolean() (bool, error) {
	v, err := f.uint()
	return protowire.DecodeBool(v), err
}

// payloadField is the ColumnValue field that carries the payload of each concrete kind
var payloadField = map[value.Kind]protowire.Number{
	value.KindInteger: 2,
	value.KindString:  3,
	value.KindBoolean: 4,
	value.KindDouble:  5,
}

func decodeValue(b []byte) (value.Value, error) {
	var (
		v        value.Value
		hasKind  bool
		payloads []protowire.Number
	)
	// a repeated occurrence of the same optional field replaces the earlier one
	seen := func(num protowire.Number) {
		for _, p := range payloads {
			if p == num {
				return
			}
		}
		payloads = append(payloads, num)
	}
	err := parseFields(b, func(f field) error {
		switch f.num {
		case 1:
			k, err := f.uint()
			if err != nil {
				return err
			}
			if k > uint64(value.KindDouble) || !value.Kind(k).Valid() {
				return fmt.Errorf("%w: unknown column type %d", ErrWireFormat, k)
			}
			v.Kind, hasKind = value.Kind(k), true
		case 2:
			n, err := f.uint()
			if err != nil {
				return err
			}
			v.Payload = int64(n)
			seen(f.num)
		case 3:
			s, err := f.str()
			if err != nil {
				return err
			}
			v.Payload = s
			seen(f.num)
		case 4:
			bv, err := f.boolean()
			if err != nil {
				return err
			}
			v.Payload = bv
			seen(f.num)
		case 5:
			if err := f.expect(protowire.Fixed64Type); err != nil {
				return err
			}
			v.Payload = math.Float64frombits(f.u64)
			seen(f.num)
		}
		return nil
	})
	if err != nil {
		return value.Value{}, err
	}
	if !hasKind {
		return value.Value{}, fmt.Errorf("%w: column value without type", value.ErrMalformedValue)
	}
	// the bounded family of a sentinel does not travel over the wire
	v.Base = v.Kind

	// optional fields are explicit: concrete kinds carry exactly their own payload
	// field, sentinels carry none
	if v.Kind.IsSentinel() {
		if len(payloads) != 0 {
			return value.Value{}, fmt.Errorf("%w: %s with a payload", value.ErrMalformedValue, v.Kind)
		}
		return v, v.Validate()
	}
	if len(payloads) != 1 || payloads[0] != payloadField[v.Kind] {
		return value.Value{}, fmt.Errorf("%w: %s with %d payload fields %v", value.ErrMalformedValue, v.Kind, len(payloads), payloads)
	}
	return v, v.Validate()
}

func decodeColumn(b []byte) (row.NamedValue, error) {
	var (
		nv       row.NamedValue
		hasValue bool
	)
	err := parseFields(b, func(f field) error {
		switch f.num {
		case 1:
			s, err := f.str()
			nv.Name = s
			return err
		case 2:
			raw, err := f.bytes()
			if err != nil {
				return err
			}
			nv.Value, err = decodeValue(raw)
			hasValue = true
			return err
		}
		return nil
	})
	if err == nil && !hasValue {
		err = fmt.Errorf("%w: column %s without value", value.ErrMalformedValue, nv.Name)
	}
	return nv, err
}

func decodeRow(b []byte) (row.Row, error) {
	var r row.Row
	err := parseFields(b, func(f field) error {
		if f.num != 1 && f.num != 2 {
			return nil
		}
		raw, err := f.bytes()
		if err != nil {
			return err
		}
		col, err := decodeColumn(raw)
		if err != nil {
			return err
		}
		if f.num == 1 {
			r.PrimaryKey = append(r.PrimaryKey, col)
		} else {
			r.Columns = append(r.Columns, col)
		}
		return nil
	})
	return r, err
}
