package sign

import (
	"net/url"
	"strings"
)

const upperhex = "0123456789ABCDEF"

// EscapeComponent escapes s the way the service canonicalizes parameter values:
// every byte except A-Z a-z 0-9 and - _ . ! ~ * ' ( ) becomes %XX, so a space is
// "%20" and never "+".
func EscapeComponent(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !unreserved(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}

// ParseParams splits an encoded parameter list ("a=1&b=2") into its parameters in wire
// order. It accepts everything Encode produces.
func ParseParams(encoded string) ([]Param, error) {
	if encoded == "" {
		return nil, nil
	}
	tokens := strings.Split(encoded, "&")
	params := make([]Param, 0, len(tokens))
	for _, token := range tokens {
		if token == "" {
			continue
		}
		name, val, _ := strings.Cut(token, "=")
		n, err := url.PathUnescape(name)
		if err != nil {
			return nil, err
		}
		v, err := url.PathUnescape(val)
		if err != nil {
			return nil, err
		}
		params = append(params, Param{Name: n, Value: v})
	}
	return params, nil
}

// Lookup returns the value of the first parameter called name.
func Lookup(params []Param, name string) (string, bool) {
	for _, p := range params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}
