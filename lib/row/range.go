package row

import (
	"github.com/ValentinKolb/otsc/lib/apierr"
	"github.com/ValentinKolb/otsc/lib/value"
)

// RangeQuery is the caller facing description of a range scan.
//
// PrimaryKeyPrefix fixes the leading key components. KeyName names the component that
// is scanned from Begin (inclusive) to End (exclusive); both bounds may be sentinels
// (value.StrMin, value.IntMax, ...). With Reverse set the scan runs from Begin down to
// End. Limit 0 means no limit; NextToken continues a previous scan.
type RangeQuery struct {
	PrimaryKeyPrefix []Item
	KeyName          string
	Begin            any
	End              any
	Type             string
	Columns          []string
	Reverse          bool
	Limit            int
	NextToken        string
}

// RangeSpec is the encoded form of a RangeQuery.
type RangeSpec struct {
	PrimaryKeyPrefix []NamedValue
	KeyName          string
	Begin            value.Value
	End              value.Value
	Columns          []string
	Reverse          bool
	Limit            int
	NextToken        string
}

// BuildRange encodes q. The bounds are encoded with the declared kind if one is given;
// whether they fit the table schema is left to the service.
func BuildRange(q RangeQuery) (RangeSpec, error) {
	if q.KeyName == "" {
		return RangeSpec{}, apierr.Invalid("range key name must not be empty")
	}
	if q.Limit < 0 {
		return RangeSpec{}, apierr.Invalid("limit must not be negative")
	}
	prefix, err := encodeItems(q.PrimaryKeyPrefix, "primary key")
	if err != nil {
		return RangeSpec{}, err
	}
	begin, err := value.EncodeDeclared(q.Begin, q.Type)
	if err != nil {
		return RangeSpec{}, apierr.InvalidCause(err, "range begin")
	}
	end, err := value.EncodeDeclared(q.End, q.Type)
	if err != nil {
		return RangeSpec{}, apierr.InvalidCause(err, "range end")
	}
	return RangeSpec{
		PrimaryKeyPrefix: prefix,
		KeyName:          q.KeyName,
		Begin:            begin,
		End:              end,
		Columns:          q.Columns,
		Reverse:          q.Reverse,
		Limit:            q.Limit,
		NextToken:        q.NextToken,
	}, nil
}

// OffsetQuery is the caller facing description of a legacy offset scan.
//
// PagingKeys fixes the leading key components; the service expects exactly as many as
// the table declares paging keys. The scan skips Offset rows and returns at most Top.
type OffsetQuery struct {
	PagingKeys []Item
	Columns    []string
	Offset     int
	Top        int
}

// OffsetSpec is the encoded form of an OffsetQuery.
type OffsetSpec struct {
	PagingKeys []NamedValue
	Columns    []string
	Offset     int
	Top        int
}

// BuildOffset encodes q.
func BuildOffset(q OffsetQuery) (OffsetSpec, error) {
	if q.Offset < 0 {
		return OffsetSpec{}, apierr.Invalid("offset must not be negative")
	}
	if q.Top < 0 {
		return OffsetSpec{}, apierr.Invalid("top must not be negative")
	}
	keys, err := encodeItems(q.PagingKeys, "paging key")
	if err != nil {
		return OffsetSpec{}, err
	}
	return OffsetSpec{PagingKeys: keys, Columns: q.Columns, Offset: q.Offset, Top: q.Top}, nil
}
