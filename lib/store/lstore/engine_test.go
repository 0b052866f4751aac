package lstore

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/otsc/lib/apierr"
	"github.com/ValentinKolb/otsc/lib/row"
	"github.com/ValentinKolb/otsc/lib/store"
	"github.com/ValentinKolb/otsc/lib/value"
	"reflect"
	"testing"
)

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func rangeMeta() store.TableMeta {
	return store.TableMeta{
		Name: "range",
		PrimaryKey: []store.ColumnSchema{
			{Name: "uid_md5", Type: value.KindString},
			{Name: "uid", Type: value.KindString},
			{Name: "create_time", Type: value.KindString},
		},
	}
}

func rangeKey(i int) []row.NamedValue {
	return []row.NamedValue{
		{Name: "uid_md5", Value: value.String("md51")},
		{Name: "uid", Value: value.String("320")},
		{Name: "create_time", Value: value.String(fmt.Sprintf("201309%d", i))},
	}
}

func newRangeEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine()
	if err := e.CreateTable(rangeMeta()); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		r := row.Row{PrimaryKey: rangeKey(i), Columns: []row.NamedValue{
			{Name: "age", Value: value.Integer(int64(20 + i))},
			{Name: "lastname", Value: value.String(fmt.Sprintf("lastname%d", i))},
		}}
		if err := e.PutRow("range", r, row.CheckingNo, ""); err != nil {
			t.Fatal(err)
		}
	}
	return e
}

func expectCode(t *testing.T, err error, code string) {
	t.Helper()
	if !errors.Is(err, apierr.ErrService) || apierr.Code(err) != code {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func createTimes(rows []row.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		for _, c := range r.PrimaryKey {
			if c.Name == "create_time" {
				out[i] = c.Value.Payload.(string)
			}
		}
	}
	return out
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestTableLifecycle(t *testing.T) {
	e := NewEngine()
	expectCode(t, e.CreateTable(store.TableMeta{Name: "t"}), apierr.CodeParameterInvalid)

	meta := store.TableMeta{Name: "t", PrimaryKey: []store.ColumnSchema{{Name: "uid", Type: value.KindString}}}
	if err := e.CreateTable(meta); err != nil {
		t.Fatal(err)
	}
	expectCode(t, e.CreateTable(meta), apierr.CodeObjectAlreadyExist)

	got, err := e.TableMeta("t")
	if err != nil || !reflect.DeepEqual(*got, meta) {
		t.Errorf("TableMeta = %#v, %v", got, err)
	}
	if names := e.ListTables(); !reflect.DeepEqual(names, []string{"t"}) {
		t.Errorf("ListTables = %v", names)
	}
	if err := e.DeleteTable("t"); err != nil {
		t.Fatal(err)
	}
	expectCode(t, e.DeleteTable("t"), apierr.CodeObjectNotExist)
	_, err = e.TableMeta("t")
	expectCode(t, err, apierr.CodeObjectNotExist)
}

func TestTableGroups(t *testing.T) {
	e := NewEngine()
	expectCode(t, e.CreateTableGroup("g", value.KindBoolean), apierr.CodeParameterInvalid)
	if err := e.CreateTableGroup("g", value.KindString); err != nil {
		t.Fatal(err)
	}
	expectCode(t, e.CreateTableGroup("g", value.KindString), apierr.CodeObjectAlreadyExist)

	mismatch := store.TableMeta{Name: "t", TableGroupName: "g", PrimaryKey: []store.ColumnSchema{{Name: "id", Type: value.KindInteger}}}
	expectCode(t, e.CreateTable(mismatch), apierr.CodeMetaNotMatch)
	mismatch.TableGroupName = "missing"
	expectCode(t, e.CreateTable(mismatch), apierr.CodeObjectNotExist)

	if groups := e.ListTableGroups(); !reflect.DeepEqual(groups, []string{"g"}) {
		t.Errorf("ListTableGroups = %v", groups)
	}
	if err := e.DeleteTableGroup("g"); err != nil {
		t.Fatal(err)
	}
	expectCode(t, e.DeleteTableGroup("g"), apierr.CodeObjectNotExist)
}

func TestPutGetDelete(t *testing.T) {
	e := NewEngine()
	meta := store.TableMeta{Name: "users", PrimaryKey: []store.ColumnSchema{{Name: "uid", Type: value.KindString}}}
	if err := e.CreateTable(meta); err != nil {
		t.Fatal(err)
	}
	pk := []row.NamedValue{{Name: "uid", Value: value.String("mk2")}}
	r := row.Row{PrimaryKey: pk, Columns: []row.NamedValue{
		{Name: "firstname", Value: value.String("yuan")},
		{Name: "age", Value: value.Integer(28)},
	}}

	expectCode(t, e.PutRow("users", r, row.CheckingUpdate, ""), apierr.CodePrimaryKeyNotExist)
	if err := e.PutRow("users", r, row.CheckingInsert, ""); err != nil {
		t.Fatal(err)
	}
	expectCode(t, e.PutRow("users", r, row.CheckingInsert, ""), apierr.CodePrimaryKeyAlreadyExist)
	if err := e.PutRow("users", r, row.CheckingUpdate, ""); err != nil {
		t.Fatal(err)
	}

	got, err := e.GetRow("users", pk, nil, "")
	if err != nil || !reflect.DeepEqual(*got, r) {
		t.Fatalf("GetRow = %#v, %v", got, err)
	}

	got, err = e.GetRow("users", pk, []string{"uid", "notexists"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if want := (row.Row{Columns: pk}); !reflect.DeepEqual(*got, want) {
		t.Errorf("filtered GetRow = %#v, want %#v", *got, want)
	}
	got, err = e.GetRow("users", pk, []string{"notjson", "notexists"}, "")
	if err != nil || len(got.Columns) != 0 {
		t.Errorf("expected no columns, got %#v, %v", got, err)
	}

	if err := e.DeleteRow("users", pk, []string{"age"}, ""); err != nil {
		t.Fatal(err)
	}
	got, _ = e.GetRow("users", pk, nil, "")
	if len(got.Columns) != 1 || got.Columns[0].Name != "firstname" {
		t.Errorf("column delete failed: %#v", got)
	}
	if err := e.DeleteRow("users", pk, nil, ""); err != nil {
		t.Fatal(err)
	}
	if got, _ = e.GetRow("users", pk, nil, ""); got != nil {
		t.Errorf("expected deleted row, got %#v", got)
	}
	if err := e.DeleteRow("users", pk, nil, ""); err != nil {
		t.Errorf("deleting a missing row must succeed, got %v", err)
	}
}

func TestMetaMismatch(t *testing.T) {
	e := NewEngine()
	meta := store.TableMeta{Name: "users", PrimaryKey: []store.ColumnSchema{{Name: "uid", Type: value.KindInteger}}}
	if err := e.CreateTable(meta); err != nil {
		t.Fatal(err)
	}
	tests := map[string][]row.NamedValue{
		"wrong kind":  {{Name: "uid", Value: value.String("1")}},
		"wrong name":  {{Name: "id", Value: value.Integer(1)}},
		"extra key":   {{Name: "uid", Value: value.Integer(1)}, {Name: "x", Value: value.Integer(1)}},
		"no key":      nil,
		"sentinel pk": {{Name: "uid", Value: value.Value{Kind: value.KindInfMin, Base: value.KindInteger}}},
	}
	for name, pk := range tests {
		t.Run(name, func(t *testing.T) {
			expectCode(t, e.PutRow("users", row.Row{PrimaryKey: pk}, row.CheckingNo, ""), apierr.CodeMetaNotMatch)
		})
	}
	_, err := e.GetRow("missing", nil, nil, "")
	expectCode(t, err, apierr.CodeObjectNotExist)
}

func TestRangeScan(t *testing.T) {
	e := newRangeEngine(t)
	prefix := rangeKey(0)[:2]
	strMin, _ := value.FromSentinel(value.StrMin)
	strMax, _ := value.FromSentinel(value.StrMax)

	tests := []struct {
		name      string
		spec      row.RangeSpec
		want      []string
		wantToken bool
	}{
		{
			name:      "full range with limit",
			spec:      row.RangeSpec{PrimaryKeyPrefix: prefix, KeyName: "create_time", Begin: strMin, End: strMax, Limit: 6},
			want:      []string{"2013090", "2013091", "2013092", "2013093", "2013094", "2013095"},
			wantToken: true,
		},
		{
			name: "end is exclusive",
			spec: row.RangeSpec{PrimaryKeyPrefix: prefix, KeyName: "create_time", Begin: value.String("2013096"), End: value.String("2013098"), Limit: 10},
			want: []string{"2013096", "2013097"},
		},
		{
			name: "empty range",
			spec: row.RangeSpec{PrimaryKeyPrefix: prefix, KeyName: "create_time", Begin: value.String("2013106"), End: value.String("2013108")},
			want: []string{},
		},
		{
			name: "reverse",
			spec: row.RangeSpec{PrimaryKeyPrefix: prefix, KeyName: "create_time", Begin: value.String("2013093"), End: strMin, Reverse: true},
			want: []string{"2013093", "2013092", "2013091", "2013090"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, token, err := e.GetRange("range", tt.spec, "")
			if err != nil {
				t.Fatal(err)
			}
			if got := createTimes(rows); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("rows = %v, want %v", got, tt.want)
			}
			if (token != "") != tt.wantToken {
				t.Errorf("unexpected token %q", token)
			}
		})
	}
}

func TestRangeContinuation(t *testing.T) {
	e := newRangeEngine(t)
	strMin, _ := value.FromSentinel(value.StrMin)
	strMax, _ := value.FromSentinel(value.StrMax)
	spec := row.RangeSpec{PrimaryKeyPrefix: rangeKey(0)[:2], KeyName: "create_time", Begin: strMin, End: strMax, Limit: 4}

	var all []string
	for page := 0; page < 5; page++ {
		rows, token, err := e.GetRange("range", spec, "")
		if err != nil {
			t.Fatal(err)
		}
		all = append(all, createTimes(rows)...)
		if token == "" {
			break
		}
		spec.NextToken = token
	}
	if len(all) != 10 || all[0] != "2013090" || all[9] != "2013099" {
		t.Errorf("continuation returned %v", all)
	}

	spec.NextToken = "not a token"
	_, _, err := e.GetRange("range", spec, "")
	expectCode(t, err, apierr.CodeParameterInvalid)
}

func TestRangeColumnFilterAndMeta(t *testing.T) {
	e := newRangeEngine(t)
	spec := row.RangeSpec{
		PrimaryKeyPrefix: rangeKey(0)[:2], KeyName: "create_time",
		Begin: value.String("2013096"), End: value.String("2013098"), Columns: []string{"age"},
	}
	rows, _, err := e.GetRange("range", spec, "")
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range rows {
		if len(r.PrimaryKey) != 0 || len(r.Columns) != 1 || r.Columns[0].Name != "age" {
			t.Errorf("unexpected filtered row %#v", r)
		}
	}

	spec.KeyName = "uid"
	_, _, err = e.GetRange("range", spec, "")
	expectCode(t, err, apierr.CodeMetaNotMatch)

	spec.KeyName = "create_time"
	spec.Begin, _ = value.FromSentinel(value.IntMin)
	_, _, err = e.GetRange("range", spec, "")
	expectCode(t, err, apierr.CodeMetaNotMatch)
}

func TestOffsetScan(t *testing.T) {
	e := newRangeEngine(t)
	other := row.Row{
		PrimaryKey: []row.NamedValue{
			{Name: "uid_md5", Value: value.String("md51")},
			{Name: "uid", Value: value.String("321")},
			{Name: "create_time", Value: value.String("2013090")},
		},
		Columns: []row.NamedValue{{Name: "age", Value: value.Integer(99)}},
	}
	if err := e.PutRow("range", other, row.CheckingNo, ""); err != nil {
		t.Fatal(err)
	}
	paging := rangeKey(0)[:2]

	tests := []struct {
		name string
		spec row.OffsetSpec
		want []string
	}{
		{name: "first page", spec: row.OffsetSpec{PagingKeys: paging, Top: 3}, want: []string{"2013090", "2013091", "2013092"}},
		{name: "skips offset", spec: row.OffsetSpec{PagingKeys: paging, Offset: 8, Top: 5}, want: []string{"2013098", "2013099"}},
		{name: "offset past end", spec: row.OffsetSpec{PagingKeys: paging, Offset: 10, Top: 5}, want: []string{}},
		{name: "top zero", spec: row.OffsetSpec{PagingKeys: paging, Top: 0}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := e.GetOffset("range", tt.spec, "")
			if err != nil {
				t.Fatal(err)
			}
			if got := createTimes(rows); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("rows = %v, want %v", got, tt.want)
			}
		})
	}

	rows, err := e.GetOffset("range", row.OffsetSpec{PagingKeys: paging, Columns: []string{"age"}, Offset: 1, Top: 1}, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || len(rows[0].PrimaryKey) != 0 || len(rows[0].Columns) != 1 || rows[0].Columns[0].Value.Payload != int64(21) {
		t.Errorf("unexpected filtered rows %#v", rows)
	}

	_, err = e.GetOffset("range", row.OffsetSpec{PagingKeys: paging[:1], Top: 1}, "")
	if err != nil {
		t.Errorf("shorter paging prefix: %v", err)
	}
	_, err = e.GetOffset("range", row.OffsetSpec{PagingKeys: rangeKey(0), Top: 1}, "")
	expectCode(t, err, apierr.CodeMetaNotMatch)
	_, err = e.GetOffset("range", row.OffsetSpec{Top: 1}, "")
	expectCode(t, err, apierr.CodeMetaNotMatch)
	_, err = e.GetOffset("range", row.OffsetSpec{PagingKeys: paging, Offset: -1, Top: 1}, "")
	expectCode(t, err, apierr.CodeParameterInvalid)
	_, err = e.GetOffset("range", row.OffsetSpec{PagingKeys: paging, Top: -1}, "")
	expectCode(t, err, apierr.CodeParameterInvalid)
}

func TestOffsetScanHonorsPagingKeyLen(t *testing.T) {
	e := NewEngine()
	meta := rangeMeta()
	meta.Name = "paged"
	meta.PagingKeyLen = 2
	if err := e.CreateTable(meta); err != nil {
		t.Fatal(err)
	}
	_, err := e.GetOffset("paged", row.OffsetSpec{PagingKeys: rangeKey(0)[:1], Top: 1}, "")
	expectCode(t, err, apierr.CodeMetaNotMatch)
	rows, err := e.GetOffset("paged", row.OffsetSpec{PagingKeys: rangeKey(0)[:2], Top: 1}, "")
	if err != nil || len(rows) != 0 {
		t.Errorf("rows = %v, err = %v", rows, err)
	}
}

func TestTransactions(t *testing.T) {
	e := NewEngine()
	meta := store.TableMeta{Name: "users", PrimaryKey: []store.ColumnSchema{{Name: "uid", Type: value.KindString}}}
	if err := e.CreateTable(meta); err != nil {
		t.Fatal(err)
	}
	pk := []row.NamedValue{{Name: "uid", Value: value.String("mk2")}}
	r := row.Row{PrimaryKey: pk, Columns: []row.NamedValue{{Name: "age", Value: value.Integer(28)}}}

	_, err := e.StartTransaction("users", value.Integer(1))
	expectCode(t, err, apierr.CodeMetaNotMatch)
	_, err = e.StartTransaction("missing", value.String("mk2"))
	expectCode(t, err, apierr.CodeObjectNotExist)

	tx, err := e.StartTransaction("users", value.String("mk2"))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.PutRow("users", r, row.CheckingNo, tx); err != nil {
		t.Fatal(err)
	}
	other := row.Row{PrimaryKey: []row.NamedValue{{Name: "uid", Value: value.String("other")}}, Columns: r.Columns}
	expectCode(t, e.PutRow("users", other, row.CheckingNo, tx), apierr.CodeParameterInvalid)

	if got, _ := e.GetRow("users", pk, nil, tx); got != nil {
		t.Error("uncommitted write must not be visible")
	}
	if err := e.CommitTransaction(tx); err != nil {
		t.Fatal(err)
	}
	if got, _ := e.GetRow("users", pk, nil, ""); got == nil {
		t.Error("committed write is missing")
	}
	expectCode(t, e.AbortTransaction(tx), apierr.CodeSessionNotExist)
	expectCode(t, e.CommitTransaction(tx), apierr.CodeSessionNotExist)
	expectCode(t, e.AbortTransaction("not-a-ksuid"), apierr.CodeParameterInvalid)

	tx, _ = e.StartTransaction("users", value.String("mk2"))
	if err := e.DeleteRow("users", pk, nil, tx); err != nil {
		t.Fatal(err)
	}
	if err := e.AbortTransaction(tx); err != nil {
		t.Fatal(err)
	}
	if got, _ := e.GetRow("users", pk, nil, ""); got == nil {
		t.Error("aborted delete was applied")
	}
}

func TestBatchModify(t *testing.T) {
	e := NewEngine()
	meta := store.TableMeta{Name: "users", PrimaryKey: []store.ColumnSchema{
		{Name: "uid", Type: value.KindString},
		{Name: "seq", Type: value.KindInteger},
	}}
	if err := e.CreateTable(meta); err != nil {
		t.Fatal(err)
	}
	key := func(seq int64) []row.NamedValue {
		return []row.NamedValue{{Name: "uid", Value: value.String("mk2")}, {Name: "seq", Value: value.Integer(seq)}}
	}
	cols := []row.NamedValue{{Name: "age", Value: value.Integer(28)}}
	if err := e.PutRow("users", row.Row{PrimaryKey: key(1), Columns: cols}, row.CheckingNo, ""); err != nil {
		t.Fatal(err)
	}

	tx, err := e.StartTransaction("users", value.String("mk2"))
	if err != nil {
		t.Fatal(err)
	}
	changes := []Change{
		{Type: store.ModifyPut, Entry: row.BatchEntry{Row: row.Row{PrimaryKey: key(2), Columns: cols}, Checking: row.CheckingInsert}},
		{Type: store.ModifyDelete, Entry: row.BatchEntry{Row: row.Row{PrimaryKey: key(1)}}},
	}
	if err := e.BatchModify("users", changes, tx); err != nil {
		t.Fatal(err)
	}
	if got, _ := e.GetRow("users", key(2), nil, ""); got != nil {
		t.Error("uncommitted batch must not be visible")
	}
	if err := e.CommitTransaction(tx); err != nil {
		t.Fatal(err)
	}
	if got, _ := e.GetRow("users", key(2), nil, ""); got == nil {
		t.Error("batched put is missing")
	}
	if got, _ := e.GetRow("users", key(1), nil, ""); got != nil {
		t.Error("batched delete was not applied")
	}

	// a failing change rejects the whole batch
	tx, _ = e.StartTransaction("users", value.String("mk2"))
	changes = []Change{
		{Type: store.ModifyPut, Entry: row.BatchEntry{Row: row.Row{PrimaryKey: key(3), Columns: cols}}},
		{Type: store.ModifyPut, Entry: row.BatchEntry{Row: row.Row{PrimaryKey: key(2), Columns: cols}, Checking: row.CheckingInsert}},
	}
	expectCode(t, e.BatchModify("users", changes, tx), apierr.CodePrimaryKeyAlreadyExist)
	if err := e.CommitTransaction(tx); err != nil {
		t.Fatal(err)
	}
	if got, _ := e.GetRow("users", key(3), nil, ""); got != nil {
		t.Error("rejected batch was partially applied")
	}

	expectCode(t, e.BatchModify("users", changes, ""), apierr.CodeParameterInvalid)
	tx, _ = e.StartTransaction("users", value.String("mk2"))
	expectCode(t, e.BatchModify("users", nil, tx), apierr.CodeParameterInvalid)
}

func TestCompareValues(t *testing.T) {
	strMin, _ := value.FromSentinel(value.StrMin)
	strMax, _ := value.FromSentinel(value.StrMax)
	ordered := []value.Value{strMin, value.String(""), value.String("a"), value.String("b"), strMax}
	for i := 0; i < len(ordered)-1; i++ {
		if compareValues(ordered[i], ordered[i+1]) >= 0 {
			t.Errorf("%v must sort before %v", ordered[i], ordered[i+1])
		}
	}
	if compareValues(value.Integer(-1), value.Integer(2)) >= 0 || compareValues(value.Boolean(false), value.Boolean(true)) >= 0 {
		t.Error("unexpected order")
	}
	if compareValues(strMin, strMin) != 0 {
		t.Error("equal sentinels must compare equal")
	}
}
