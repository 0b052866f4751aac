package lstore

import (
	"cmp"
	"github.com/ValentinKolb/otsc/lib/row"
	"github.com/ValentinKolb/otsc/lib/value"
	"strings"
)

// rank orders sentinels around concrete values: INF_MIN < any value < INF_MAX.
func rank(v value.Value) int {
	switch v.Kind {
	case value.KindInfMin:
		return -1
	case value.KindInfMax:
		return 1
	default:
		return 0
	}
}

// compareValues orders two wire values. Values of different concrete kinds are ordered
// by kind; the meta check keeps that from happening inside one key column.
func compareValues(a, b value.Value) int {
	if c := cmp.Compare(rank(a), rank(b)); c != 0 || a.IsSentinel() {
		return c
	}
	if a.Kind != b.Kind {
		return cmp.Compare(a.Kind, b.Kind)
	}
	switch a.Kind {
	case value.KindInteger:
		return cmp.Compare(a.Payload.(int64), b.Payload.(int64))
	case value.KindString:
		return strings.Compare(a.Payload.(string), b.Payload.(string))
	case value.KindBoolean:
		return cmp.Compare(boolRank(a.Payload.(bool)), boolRank(b.Payload.(bool)))
	default:
		return cmp.Compare(a.Payload.(float64), b.Payload.(float64))
	}
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// comparePK orders primary keys component by component.
func comparePK(a, b []row.NamedValue) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareValues(a[i].Value, b[i].Value); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}
