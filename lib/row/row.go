package row

import (
	"fmt"
	"github.com/ValentinKolb/otsc/lib/apierr"
	"github.com/ValentinKolb/otsc/lib/value"
	"strings"
)

// Item is a caller supplied column: a name, a host value and an optional declared kind
// ("" lets the value package infer one).
type Item struct {
	Name  string
	Value any
	Type  string
}

// One returns a single item slice. Call sites that hold one key component use it
// instead of building the slice literal.
func One(name string, v any) []Item { return []Item{{Name: name, Value: v}} }

// NamedValue is an encoded column.
type NamedValue struct {
	Name  string
	Value value.Value
}

// Row is a wire row. Primary key order is significant; column order is not.
type Row struct {
	PrimaryKey []NamedValue
	Columns    []NamedValue
}

// Checking is the existence condition of a put.
type Checking string

const (
	CheckingNo     Checking = "NO"
	CheckingInsert Checking = "INSERT"
	CheckingUpdate Checking = "UPDATE"
)

// ParseChecking parses a checking mode; the empty string means CheckingNo.
func ParseChecking(s string) (Checking, error) {
	switch c := Checking(strings.ToUpper(strings.TrimSpace(s))); c {
	case "":
		return CheckingNo, nil
	case CheckingNo, CheckingInsert, CheckingUpdate:
		return c, nil
	default:
		return "", apierr.Invalid("unknown checking mode %q", s)
	}
}

// --------------------------------------------------------------------------
// Build
// --------------------------------------------------------------------------

// BuildKey encodes a primary key. The key must have at least one component.
func BuildKey(pk []Item) ([]NamedValue, error) {
	if len(pk) == 0 {
		return nil, apierr.Invalid(apierr.MessageMissingPrimaryKey)
	}
	return encodeItems(pk, "primary key")
}

// BuildRow encodes a primary key and its attribute columns.
func BuildRow(pk, cols []Item) (Row, error) {
	key, err := BuildKey(pk)
	if err != nil {
		return Row{}, err
	}
	columns, err := encodeItems(cols, "column")
	if err != nil {
		return Row{}, err
	}
	return Row{PrimaryKey: key, Columns: columns}, nil
}

func encodeItems(items []Item, role string) ([]NamedValue, error) {
	if len(items) == 0 {
		return nil, nil
	}
	out := make([]NamedValue, 0, len(items))
	for _, it := range items {
		if it.Name == "" {
			return nil, apierr.Invalid("%s name must not be empty", role)
		}
		v, err := value.EncodeDeclared(it.Value, it.Type)
		if err != nil {
			return nil, apierr.InvalidCause(err, "%s %s", role, it.Name)
		}
		out = append(out, NamedValue{Name: it.Name, Value: v})
	}
	return out, nil
}

// --------------------------------------------------------------------------
// Parse
// --------------------------------------------------------------------------

// ParseRow flattens a wire row into a map.
//
// It returns nil for a nil row or a row without columns (the service answers that way
// when the row does not exist). If requested is not empty only requested columns are
// kept. Primary key components present in the row are always included.
func ParseRow(r *Row, requested []string, dec value.Decoder) (map[string]any, error) {
	if r == nil || len(r.Columns) == 0 {
		return nil, nil
	}
	var filter map[string]struct{}
	if len(requested) > 0 {
		filter = make(map[string]struct{}, len(requested))
		for _, name := range requested {
			filter[name] = struct{}{}
		}
	}

	out := make(map[string]any, len(r.Columns)+len(r.PrimaryKey))
	for _, col := range r.Columns {
		if filter != nil {
			if _, ok := filter[col.Name]; !ok {
				continue
			}
		}
		v, err := dec.Decode(col.Value)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}
		out[col.Name] = v
	}
	for _, pk := range r.PrimaryKey {
		v, err := dec.Decode(pk.Value)
		if err != nil {
			return nil, fmt.Errorf("primary key %s: %w", pk.Name, err)
		}
		out[pk.Name] = v
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// Names returns the column names of vs in order.
func Names(vs []NamedValue) []string {
	names := make([]string, len(vs))
	for i, v := range vs {
		names[i] = v.Name
	}
	return names
}
