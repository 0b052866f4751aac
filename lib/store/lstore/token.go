package lstore

import (
	"encoding/base64"
	"encoding/json"
	"github.com/ValentinKolb/otsc/lib/apierr"
	"github.com/ValentinKolb/otsc/lib/row"
	"github.com/ValentinKolb/otsc/lib/value"
	"strconv"
	"strings"
)

// tokenColumn is one primary key component of a continuation token.
type tokenColumn struct {
	Name    string     `json:"n"`
	Kind    value.Kind `json:"k"`
	Literal string     `json:"v"`
}

// encodeToken renders the primary key the next page starts at.
func encodeToken(pk []row.NamedValue) string {
	cols := make([]tokenColumn, len(pk))
	for i, nv := range pk {
		cols[i] = tokenColumn{Name: nv.Name, Kind: nv.Value.Kind, Literal: nv.Value.Literal()}
	}
	b, _ := json.Marshal(cols)
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeToken(token string) ([]row.NamedValue, error) {
	invalid := apierr.NewServiceError(apierr.CodeParameterInvalid, "NextToken is invalid.")
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, invalid
	}
	var cols []tokenColumn
	if err := json.Unmarshal(b, &cols); err != nil || len(cols) == 0 {
		return nil, invalid
	}
	pk := make([]row.NamedValue, len(cols))
	for i, c := range cols {
		var v value.Value
		switch c.Kind {
		case value.KindInteger:
			n, err := strconv.ParseInt(c.Literal, 10, 64)
			if err != nil {
				return nil, invalid
			}
			v = value.Integer(n)
		case value.KindString:
			v = value.String(c.Literal)
		case value.KindBoolean:
			v = value.Boolean(strings.EqualFold(c.Literal, "TRUE"))
		default:
			return nil, invalid
		}
		pk[i] = row.NamedValue{Name: c.Name, Value: v}
	}
	return pk, nil
}
