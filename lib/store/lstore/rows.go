package lstore

import (
	"github.com/ValentinKolb/otsc/lib/apierr"
	"github.com/ValentinKolb/otsc/lib/row"
	"github.com/ValentinKolb/otsc/lib/store"
	"github.com/ValentinKolb/otsc/lib/value"
	"slices"
	"sort"
)

// --------------------------------------------------------------------------
// Row operations
// --------------------------------------------------------------------------

// PutRow writes r into table. With a transaction id the write is buffered until the
// transaction commits; the checking condition is evaluated immediately.
func (e *Engine) PutRow(tableName string, r row.Row, checking row.Checking, transactionID string) error {
	t, err := e.table(tableName)
	if err != nil {
		return err
	}
	fn, err := preparePut(t, r, checking)
	if err != nil {
		return err
	}
	return e.apply(t, r.PrimaryKey, transactionID, fn)
}

// preparePut validates a put and returns the write without running it.
func preparePut(t *table, r row.Row, checking row.Checking) (func(), error) {
	if err := checkKey(t.meta, r.PrimaryKey); err != nil {
		return nil, err
	}
	for _, col := range r.Columns {
		if err := col.Value.Validate(); err != nil || col.Value.IsSentinel() {
			return nil, apierr.NewServiceError(apierr.CodeParameterInvalid, "The value of column "+col.Name+" is invalid.")
		}
	}

	t.mu.RLock()
	_, exists := t.find(r.PrimaryKey)
	t.mu.RUnlock()
	switch checking {
	case row.CheckingInsert:
		if exists {
			return nil, apierr.NewServiceError(apierr.CodePrimaryKeyAlreadyExist, apierr.MessageRowToInsertExists)
		}
	case row.CheckingUpdate:
		if !exists {
			return nil, apierr.NewServiceError(apierr.CodePrimaryKeyNotExist, apierr.MessageRowToUpdateMissing)
		}
	case row.CheckingNo, "":
	default:
		return nil, apierr.NewServiceError(apierr.CodeParameterInvalid, "Checking type "+string(checking)+" is invalid.")
	}

	stored := storedRow{pk: slices.Clone(r.PrimaryKey), cols: slices.Clone(r.Columns)}
	return func() { t.upsert(stored) }, nil
}

// GetRow reads a row. It returns nil if the row does not exist.
//
// Without columns the row comes back with its primary key and all columns. With
// columns only the requested names are returned, as columns, and that includes
// requested primary key components.
func (e *Engine) GetRow(tableName string, pk []row.NamedValue, columns []string, transactionID string) (*row.Row, error) {
	t, err := e.table(tableName)
	if err != nil {
		return nil, err
	}
	if err := checkKey(t.meta, pk); err != nil {
		return nil, err
	}
	if err := e.checkTransaction(t, pk, transactionID); err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.find(pk)
	if !ok {
		return nil, nil
	}
	out := t.rows[i].view(columns)
	return &out, nil
}

// DeleteRow deletes a row, or only the given columns of it. Deleting a missing row is
// not an error.
func (e *Engine) DeleteRow(tableName string, pk []row.NamedValue, columns []string, transactionID string) error {
	t, err := e.table(tableName)
	if err != nil {
		return err
	}
	fn, err := prepareDelete(t, pk, columns)
	if err != nil {
		return err
	}
	return e.apply(t, pk, transactionID, fn)
}

func prepareDelete(t *table, pk []row.NamedValue, columns []string) (func(), error) {
	if err := checkKey(t.meta, pk); err != nil {
		return nil, err
	}
	key := slices.Clone(pk)
	names := slices.Clone(columns)
	return func() { t.remove(key, names) }, nil
}

// GetRange scans spec and returns one page of rows plus the token of the next page.
func (e *Engine) GetRange(tableName string, spec row.RangeSpec, transactionID string) ([]row.Row, string, error) {
	t, err := e.table(tableName)
	if err != nil {
		return nil, "", err
	}
	if err := checkRange(t.meta, spec); err != nil {
		return nil, "", err
	}
	if err := e.checkTransaction(t, spec.PrimaryKeyPrefix, transactionID); err != nil {
		return nil, "", err
	}
	var from []row.NamedValue
	if spec.NextToken != "" {
		if from, err = decodeToken(spec.NextToken); err != nil {
			return nil, "", err
		}
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	n := len(spec.PrimaryKeyPrefix)
	inRange := func(sr storedRow) bool {
		for i, p := range spec.PrimaryKeyPrefix {
			if compareValues(sr.pk[i].Value, p.Value) != 0 {
				return false
			}
		}
		k := sr.pk[n].Value
		if spec.Reverse {
			return compareValues(k, spec.Begin) <= 0 && compareValues(k, spec.End) > 0
		}
		return compareValues(k, spec.Begin) >= 0 && compareValues(k, spec.End) < 0
	}
	afterToken := func(sr storedRow) bool {
		if from == nil {
			return true
		}
		c := comparePK(sr.pk, from)
		if spec.Reverse {
			return c <= 0
		}
		return c >= 0
	}

	var (
		rows  []row.Row
		token string
	)
	visit := func(sr storedRow) bool {
		if !inRange(sr) || !afterToken(sr) {
			return true
		}
		if spec.Limit > 0 && len(rows) == spec.Limit {
			token = encodeToken(sr.pk)
			return false
		}
		v := sr.view(spec.Columns)
		if len(v.Columns) > 0 {
			rows = append(rows, v)
		}
		return true
	}
	if spec.Reverse {
		for i := len(t.rows) - 1; i >= 0 && visit(t.rows[i]); i-- {
		}
	} else {
		for i := 0; i < len(t.rows) && visit(t.rows[i]); i++ {
		}
	}
	return rows, token, nil
}

// GetOffset skips spec.Offset rows sharing the paging keys and returns at most spec.Top.
func (e *Engine) GetOffset(tableName string, spec row.OffsetSpec, transactionID string) ([]row.Row, error) {
	t, err := e.table(tableName)
	if err != nil {
		return nil, err
	}
	if err := checkOffset(t.meta, spec); err != nil {
		return nil, err
	}
	if err := e.checkTransaction(t, spec.PagingKeys, transactionID); err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	var (
		rows    []row.Row
		skipped int
	)
	for _, sr := range t.rows {
		if len(rows) == spec.Top {
			break
		}
		if comparePK(sr.pk[:len(spec.PagingKeys)], spec.PagingKeys) != 0 {
			continue
		}
		if skipped < spec.Offset {
			skipped++
			continue
		}
		if v := sr.view(spec.Columns); len(v.Columns) > 0 {
			rows = append(rows, v)
		}
	}
	return rows, nil
}

// --------------------------------------------------------------------------
// Table internals (find needs t.mu held, upsert and remove take it)
// --------------------------------------------------------------------------

func (t *table) find(pk []row.NamedValue) (int, bool) {
	i := sort.Search(len(t.rows), func(i int) bool { return comparePK(t.rows[i].pk, pk) >= 0 })
	return i, i < len(t.rows) && comparePK(t.rows[i].pk, pk) == 0
}

func (t *table) upsert(sr storedRow) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.find(sr.pk)
	if ok {
		t.rows[i] = sr
		return
	}
	t.rows = slices.Insert(t.rows, i, sr)
}

func (t *table) remove(pk []row.NamedValue, columns []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.find(pk)
	if !ok {
		return
	}
	if len(columns) > 0 {
		t.rows[i].cols = slices.DeleteFunc(slices.Clone(t.rows[i].cols), func(c row.NamedValue) bool {
			return slices.Contains(columns, c.Name)
		})
		if len(t.rows[i].cols) > 0 {
			return
		}
	}
	t.rows = slices.Delete(t.rows, i, i+1)
}

// view renders a stored row the way the service answers reads.
func (sr storedRow) view(columns []string) row.Row {
	if len(columns) == 0 {
		return row.Row{PrimaryKey: slices.Clone(sr.pk), Columns: slices.Clone(sr.cols)}
	}
	var out row.Row
	for _, name := range columns {
		for _, nv := range sr.pk {
			if nv.Name == name {
				out.Columns = append(out.Columns, nv)
			}
		}
		for _, nv := range sr.cols {
			if nv.Name == name {
				out.Columns = append(out.Columns, nv)
			}
		}
	}
	return out
}

// --------------------------------------------------------------------------
// Meta checks
// --------------------------------------------------------------------------

func metaMismatch() error {
	return apierr.NewServiceError(apierr.CodeMetaNotMatch, apierr.MessagePrimaryKeyMetaNotMatch)
}

func checkKey(meta store.TableMeta, pk []row.NamedValue) error {
	if len(pk) != len(meta.PrimaryKey) {
		return metaMismatch()
	}
	return checkPrefix(meta, pk)
}

func checkPrefix(meta store.TableMeta, pk []row.NamedValue) error {
	if len(pk) > len(meta.PrimaryKey) {
		return metaMismatch()
	}
	for i, nv := range pk {
		col := meta.PrimaryKey[i]
		if nv.Name != col.Name || nv.Value.Kind != col.Type || nv.Value.Validate() != nil {
			return metaMismatch()
		}
	}
	return nil
}

func checkRange(meta store.TableMeta, spec row.RangeSpec) error {
	if err := checkPrefix(meta, spec.PrimaryKeyPrefix); err != nil {
		return err
	}
	n := len(spec.PrimaryKeyPrefix)
	if n >= len(meta.PrimaryKey) || meta.PrimaryKey[n].Name != spec.KeyName {
		return metaMismatch()
	}
	kind := meta.PrimaryKey[n].Type
	for _, bound := range []value.Value{spec.Begin, spec.End} {
		if (bound.HasFamily() && bound.Base != kind) || bound.Validate() != nil {
			return metaMismatch()
		}
	}
	if spec.Limit < 0 {
		return apierr.NewServiceError(apierr.CodeParameterInvalid, "Limit is invalid.")
	}
	return nil
}

func checkOffset(meta store.TableMeta, spec row.OffsetSpec) error {
	if meta.PagingKeyLen > 0 && len(spec.PagingKeys) != meta.PagingKeyLen {
		return metaMismatch()
	}
	if len(spec.PagingKeys) == 0 || len(spec.PagingKeys) >= len(meta.PrimaryKey) {
		return metaMismatch()
	}
	if err := checkPrefix(meta, spec.PagingKeys); err != nil {
		return err
	}
	if spec.Offset < 0 {
		return apierr.NewServiceError(apierr.CodeParameterInvalid, "Offset is invalid.")
	}
	if spec.Top < 0 {
		return apierr.NewServiceError(apierr.CodeParameterInvalid, "Top is invalid.")
	}
	return nil
}
