package util

import (
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/otsc/lib/row"
	"github.com/ValentinKolb/otsc/lib/value"
	"io"
	"strings"
)

// SplitList splits a comma-separated list and drops empty elements
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseItem parses a column argument of the form name=value or name:TYPE=value.
// Without a declared type the value is sent as STRING.
func ParseItem(arg string) (row.Item, error) {
	name, literal, ok := strings.Cut(arg, "=")
	if !ok {
		return row.Item{}, fmt.Errorf("invalid column %q (expected name=value or name:TYPE=value)", arg)
	}
	name, typ, _ := strings.Cut(name, ":")
	if name == "" {
		return row.Item{}, fmt.Errorf("invalid column %q: empty name", arg)
	}
	if typ != "" {
		if _, err := value.ParseKind(typ); err != nil {
			return row.Item{}, fmt.Errorf("invalid column %q: %w", arg, err)
		}
	}
	return row.Item{Name: name, Value: literal, Type: strings.ToUpper(typ)}, nil
}

// ParseItems parses a list of column arguments
func ParseItems(args []string) ([]row.Item, error) {
	items := make([]row.Item, 0, len(args))
	for _, arg := range args {
		it, err := ParseItem(arg)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

// ParseBound parses a range bound. Sentinel names (STR_MIN, INT_MAX, ...) become
// ordering bounds, everything else is a literal of the declared range type.
func ParseBound(arg string) any {
	if s, ok := value.ParseSentinel(arg); ok {
		return s
	}
	return arg
}

// PrintJSON writes v as indented JSON followed by a newline
func PrintJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
