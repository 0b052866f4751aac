package server

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/otsc/lib/apierr"
	"github.com/ValentinKolb/otsc/lib/row"
	"github.com/ValentinKolb/otsc/lib/store"
	"github.com/ValentinKolb/otsc/lib/store/lstore"
	"github.com/ValentinKolb/otsc/lib/value"
	"github.com/ValentinKolb/otsc/rpc/client"
	"github.com/ValentinKolb/otsc/rpc/common"
	"github.com/ValentinKolb/otsc/rpc/serializer"
	httptransport "github.com/ValentinKolb/otsc/rpc/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

const (
	testKeyID  = "test-id"
	testSecret = "test-secret"
	testHostID = "test-host"
)

func newEmulator(t *testing.T) *httptest.Server {
	t.Helper()
	s := NewRPCServer(common.ServerConfig{
		HostID:      testHostID,
		Credentials: map[string]string{testKeyID: testSecret},
		MetricsPath: "/metrics",
	}, httptransport.NewHttpServerTransport())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, url string, gen common.Generation, secret string) store.ITableStore {
	t.Helper()
	config := common.ClientConfig{
		AccessKeyID:         testKeyID,
		AccessKeySecret:     secret,
		Endpoints:           []string{url},
		Generation:          gen,
		DNSCacheMillisecond: -1,
	}
	st, err := client.NewRPCStore(config, httptransport.NewHttpClientTransport(), serializer.ForGeneration(gen))
	require.NoError(t, err)
	return st
}

func usersMeta() store.TableMeta {
	return store.TableMeta{Name: "users", PrimaryKey: []store.ColumnSchema{{Name: "uid", Type: value.KindString}}}
}

func rangeMeta() store.TableMeta {
	return store.TableMeta{Name: "events", PrimaryKey: []store.ColumnSchema{
		{Name: "uid_md5", Type: value.KindString},
		{Name: "uid", Type: value.KindString},
		{Name: "create_time", Type: value.KindString},
	}}
}

func fillRange(t *testing.T, st store.ITableStore) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.CreateTable(ctx, rangeMeta()))
	for i := 0; i < 10; i++ {
		pk := []row.Item{
			{Name: "uid_md5", Value: "md51"},
			{Name: "uid", Value: "320"},
			{Name: "create_time", Value: fmt.Sprintf("201309%d", i)},
		}
		cols := []row.Item{{Name: "age", Value: 20 + i}, {Name: "lastname", Value: fmt.Sprintf("lastname%d", i)}}
		require.NoError(t, st.PutRow(ctx, "events", pk, cols, store.PutOptions{}))
	}
}

func rangeQuery(limit int) row.RangeQuery {
	return row.RangeQuery{
		PrimaryKeyPrefix: []row.Item{{Name: "uid_md5", Value: "md51"}, {Name: "uid", Value: "320"}},
		KeyName:          "create_time",
		Begin:            value.StrMin,
		End:              value.StrMax,
		Type:             "STRING",
		Limit:            limit,
	}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, apierr.Code(err), "error: %v", err)
}

// --------------------------------------------------------------------------
// 2013 generation
// --------------------------------------------------------------------------

func TestRowLifecycle(t *testing.T) {
	srv := newEmulator(t)
	st := newClient(t, srv.URL, common.Generation2013, testSecret)
	ctx := context.Background()

	require.NoError(t, st.CreateTable(ctx, usersMeta()))
	names, err := st.ListTable(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, names)

	meta, err := st.GetTableMeta(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, usersMeta().PrimaryKey, meta.PrimaryKey)

	pk := row.One("uid", "mk2")
	cols := []row.Item{{Name: "firstname", Value: "Kai"}, {Name: "age", Value: 28}, {Name: "score", Value: 1.5}, {Name: "admin", Value: true}}
	require.NoError(t, st.PutRow(ctx, "users", pk, cols, store.PutOptions{Checking: row.CheckingInsert}))

	got, err := st.GetRow(ctx, "users", pk, store.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"uid": "mk2", "firstname": "Kai", "age": int64(28), "score": 1.5, "admin": true}, got)

	got, err = st.GetRow(ctx, "users", pk, store.GetOptions{Columns: []string{"age"}})
	require.NoError(t, err)
	assert.Equal(t, int64(28), got["age"])
	assert.NotContains(t, got, "firstname")

	require.NoError(t, st.DeleteRow(ctx, "users", pk, store.DeleteOptions{Columns: []string{"firstname"}}))
	got, err = st.GetRow(ctx, "users", pk, store.GetOptions{})
	require.NoError(t, err)
	assert.NotContains(t, got, "firstname")

	require.NoError(t, st.DeleteRow(ctx, "users", pk, store.DeleteOptions{}))
	got, err = st.GetRow(ctx, "users", pk, store.GetOptions{})
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, st.DeleteTable(ctx, "users"))
	names, err = st.ListTable(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestServiceErrors(t *testing.T) {
	srv := newEmulator(t)
	st := newClient(t, srv.URL, common.Generation2013, testSecret)
	ctx := context.Background()
	require.NoError(t, st.CreateTable(ctx, usersMeta()))
	pk := row.One("uid", "mk2")
	cols := row.One("age", 28)

	requireCode(t, st.CreateTable(ctx, usersMeta()), apierr.CodeObjectAlreadyExist)
	requireCode(t, st.PutRow(ctx, "users", pk, cols, store.PutOptions{Checking: row.CheckingUpdate}), apierr.CodePrimaryKeyNotExist)
	require.NoError(t, st.PutRow(ctx, "users", pk, cols, store.PutOptions{}))

	err := st.PutRow(ctx, "users", pk, cols, store.PutOptions{Checking: row.CheckingInsert})
	requireCode(t, err, apierr.CodePrimaryKeyAlreadyExist)
	assert.True(t, errors.Is(err, apierr.ErrService))
	var svc *apierr.ServiceError
	require.True(t, errors.As(err, &svc))
	assert.Equal(t, apierr.MessageRowToInsertExists, svc.Message)
	assert.Contains(t, svc.ServerID, "RequestID: ")
	assert.Contains(t, svc.ServerID, "HostID: "+testHostID)

	_, err = st.GetRow(ctx, "missing", pk, store.GetOptions{})
	requireCode(t, err, apierr.CodeObjectNotExist)
	_, err = st.GetRow(ctx, "users", row.One("uid", 1), store.GetOptions{})
	requireCode(t, err, apierr.CodeMetaNotMatch)
}

func TestAuthFailure(t *testing.T) {
	srv := newEmulator(t)
	for _, gen := range []common.Generation{common.Generation2013, common.GenerationLegacy} {
		t.Run(string(gen), func(t *testing.T) {
			st := newClient(t, srv.URL, gen, "wrong-secret")
			_, err := st.ListTable(context.Background())
			requireCode(t, err, apierr.CodeAuthFailed)
		})
	}
}

func TestRangeWithContinuation(t *testing.T) {
	srv := newEmulator(t)
	st := newClient(t, srv.URL, common.Generation2013, testSecret)
	ctx := context.Background()
	fillRange(t, st)

	q := rangeQuery(4)
	var times []any
	for page := 0; page < 5; page++ {
		res, err := st.GetRowsByRange(ctx, "events", q, "")
		require.NoError(t, err)
		for _, r := range res.Rows {
			times = append(times, r["create_time"])
		}
		if res.NextToken == "" {
			break
		}
		q.NextToken = res.NextToken
	}
	require.Len(t, times, 10)
	assert.Equal(t, "2013090", times[0])
	assert.Equal(t, "2013099", times[9])

	q = rangeQuery(0)
	q.Begin, q.End = "2013096", "2013098"
	q.Columns = []string{"age"}
	res, err := st.GetRowsByRange(ctx, "events", q, "")
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"age": int64(26)}, {"age": int64(27)}}, res.Rows)
	assert.Empty(t, res.NextToken)
}

func TestMultiRowOperations(t *testing.T) {
	srv := newEmulator(t)
	st := newClient(t, srv.URL, common.Generation2013, testSecret)
	ctx := context.Background()
	require.NoError(t, st.CreateTable(ctx, usersMeta()))
	require.NoError(t, st.PutRow(ctx, "users", row.One("uid", "a"), row.One("age", 1), store.PutOptions{}))

	results, err := st.MultiPutRow(ctx, "users", []row.BatchItem{
		{PrimaryKey: row.One("uid", "b"), Columns: row.One("age", 2)},
		{PrimaryKey: row.One("uid", "a"), Columns: row.One("age", 3), Checking: row.CheckingInsert},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Succeeded)
	assert.False(t, results[1].Succeeded)
	require.NotNil(t, results[1].Error)
	assert.Equal(t, apierr.CodePrimaryKeyAlreadyExist, results[1].Error.Code)

	results, err = st.MultiGetRow(ctx, "users", []row.BatchItem{
		{PrimaryKey: row.One("uid", "a")},
		{PrimaryKey: row.One("uid", "b"), ColumnNames: []string{"age"}},
		{PrimaryKey: row.One("uid", "c")},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, map[string]any{"uid": "a", "age": int64(1)}, results[0].Row)
	assert.Equal(t, int64(2), results[1].Row["age"])
	assert.True(t, results[2].Succeeded)
	assert.Nil(t, results[2].Row)
	assert.Equal(t, "users", results[0].Table)

	results, err = st.MultiDeleteRow(ctx, "users", []row.BatchItem{
		{PrimaryKey: row.One("uid", "a")},
		{PrimaryKey: row.One("uid", 1)},
	})
	require.NoError(t, err)
	assert.True(t, results[0].Succeeded)
	assert.Equal(t, apierr.CodeMetaNotMatch, results[1].Error.Code)

	got, err := st.GetRow(ctx, "users", row.One("uid", "a"), store.GetOptions{})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTransactionsAreSingleUse(t *testing.T) {
	srv := newEmulator(t)
	st := newClient(t, srv.URL, common.Generation2013, testSecret)
	ctx := context.Background()
	require.NoError(t, st.CreateTable(ctx, usersMeta()))
	pk := row.One("uid", "mk2")

	tx, err := st.StartTransaction(ctx, "users", "mk2")
	require.NoError(t, err)
	require.NoError(t, st.PutRow(ctx, "users", pk, row.One("age", 28), store.PutOptions{TransactionID: tx}))

	got, err := st.GetRow(ctx, "users", pk, store.GetOptions{})
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, st.CommitTransaction(ctx, tx))
	requireCode(t, st.CommitTransaction(ctx, tx), apierr.CodeSessionNotExist)
	requireCode(t, st.AbortTransaction(ctx, tx), apierr.CodeSessionNotExist)

	got, err = st.GetRow(ctx, "users", pk, store.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(28), got["age"])

	_, err = st.StartTransaction(ctx, "users", 1)
	requireCode(t, err, apierr.CodeMetaNotMatch)
}

func TestTableGroups(t *testing.T) {
	srv := newEmulator(t)
	st := newClient(t, srv.URL, common.Generation2013, testSecret)
	ctx := context.Background()

	require.NoError(t, st.CreateTableGroup(ctx, "group", value.KindString))
	requireCode(t, st.CreateTableGroup(ctx, "group", value.KindString), apierr.CodeObjectAlreadyExist)
	names, err := st.ListTableGroup(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"group"}, names)
	require.NoError(t, st.DeleteTableGroup(ctx, "group"))
	requireCode(t, st.DeleteTableGroup(ctx, "group"), apierr.CodeObjectNotExist)
}

// --------------------------------------------------------------------------
// Legacy generation
// --------------------------------------------------------------------------

func TestLegacyGeneration(t *testing.T) {
	srv := newEmulator(t)
	setup := newClient(t, srv.URL, common.Generation2013, testSecret)
	st := newClient(t, srv.URL, common.GenerationLegacy, testSecret)
	ctx := context.Background()
	require.NoError(t, setup.CreateTable(ctx, usersMeta()))

	// schema operations are not available in the legacy generation
	requireCode(t, st.CreateTable(ctx, usersMeta()), apierr.CodeUnsupportedOperation)

	names, err := st.ListTable(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, names)

	pk := row.One("uid", "mk2")
	require.NoError(t, st.PutRow(ctx, "users", pk, []row.Item{{Name: "age", Value: 28}, {Name: "name", Value: "a&b c"}}, store.PutOptions{}))

	// integers come back as decimal text
	got, err := st.GetRow(ctx, "users", pk, store.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"uid": "mk2", "age": "28", "name": "a&b c"}, got)

	got, err = st.GetRow(ctx, "users", row.One("uid", "missing"), store.GetOptions{})
	require.NoError(t, err)
	assert.Nil(t, got)

	requireCode(t, st.PutRow(ctx, "users", pk, row.One("age", 1), store.PutOptions{Checking: row.CheckingInsert}), apierr.CodePrimaryKeyAlreadyExist)

	require.NoError(t, st.DeleteRow(ctx, "users", pk, store.DeleteOptions{}))
	got, err = st.GetRow(ctx, "users", pk, store.GetOptions{})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLegacyRangeAndBatchModify(t *testing.T) {
	srv := newEmulator(t)
	fillRange(t, newClient(t, srv.URL, common.Generation2013, testSecret))
	st := newClient(t, srv.URL, common.GenerationLegacy, testSecret)
	ctx := context.Background()

	res, err := st.GetRowsByRange(ctx, "events", rangeQuery(3), "")
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, "2013090", res.Rows[0]["create_time"])
	assert.Equal(t, "20", res.Rows[0]["age"])
	assert.NotEmpty(t, res.NextToken)

	q := rangeQuery(0)
	q.Begin, q.End, q.Reverse = value.StrMax, value.StrMin, true
	res, err = st.GetRowsByRange(ctx, "events", q, "")
	require.NoError(t, err)
	require.Len(t, res.Rows, 10)
	assert.Equal(t, "2013099", res.Rows[0]["create_time"])

	paging := []row.Item{{Name: "uid_md5", Value: "md51"}, {Name: "uid", Value: "320"}}
	rows, err := st.GetRowsByOffset(ctx, "events", row.OffsetQuery{PagingKeys: paging, Offset: 7, Top: 2}, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2013097", rows[0]["create_time"])
	assert.Equal(t, "2013098", rows[1]["create_time"])
	assert.Equal(t, "27", rows[0]["age"])

	rows, err = st.GetRowsByOffset(ctx, "events", row.OffsetQuery{PagingKeys: paging, Columns: []string{"lastname"}, Offset: 9, Top: 5}, "")
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"lastname": "lastname9"}}, rows)

	_, err = st.GetRowsByOffset(ctx, "events", row.OffsetQuery{PagingKeys: paging[:0], Top: 1}, "")
	requireCode(t, err, apierr.CodeMetaNotMatch)

	key := func(i int) []row.Item {
		return []row.Item{
			{Name: "uid_md5", Value: "md51"},
			{Name: "uid", Value: "320"},
			{Name: "create_time", Value: fmt.Sprintf("201309%d", i)},
		}
	}
	requireCode(t, st.BatchModifyRow(ctx, "events", []store.Modification{{Type: store.ModifyDelete, Item: row.BatchItem{PrimaryKey: key(0)}}}, ""), apierr.CodeParameterInvalid)

	tx, err := st.StartTransaction(ctx, "events", "md51")
	require.NoError(t, err)
	require.NoError(t, st.BatchModifyRow(ctx, "events", []store.Modification{
		{Type: store.ModifyDelete, Item: row.BatchItem{PrimaryKey: key(0)}},
		{Type: store.ModifyPut, Item: row.BatchItem{PrimaryKey: key(1), Columns: row.One("age", 99), Checking: row.CheckingUpdate}},
	}, tx))
	require.NoError(t, st.CommitTransaction(ctx, tx))

	got, err := st.GetRow(ctx, "events", key(0), store.GetOptions{})
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = st.GetRow(ctx, "events", key(1), store.GetOptions{Columns: []string{"age"}})
	require.NoError(t, err)
	assert.Equal(t, "99", got["age"])
}

// --------------------------------------------------------------------------
// Emulator internals
// --------------------------------------------------------------------------

func TestAdapterEnforcesRowCeilings(t *testing.T) {
	adapter := NewTableStoreServerAdapter()
	engine := lstore.NewEngine()
	require.NoError(t, engine.CreateTable(usersMeta()))

	entries := make([]row.BatchEntry, row.MaxMultiGetRows+1)
	for i := range entries {
		entries[i] = row.BatchEntry{Table: "users", Row: row.Row{PrimaryKey: []row.NamedValue{{Name: "uid", Value: value.String(fmt.Sprint(i))}}}}
	}
	_, err := adapter.Handle(common.NewBatchRequest(common.OpMultiGetRow, "users", entries), engine)
	requireCode(t, err, apierr.CodeParameterInvalid)
	assert.Contains(t, err.Error(), apierr.MessageRowsCountExceedsLimit)

	resp, err := adapter.Handle(common.NewBatchRequest(common.OpMultiGetRow, "users", entries[:row.MaxMultiGetRows]), engine)
	require.NoError(t, err)
	assert.Len(t, resp.Results, row.MaxMultiGetRows)

	_, err = adapter.Handle(&common.Message{Op: common.OpUnknown}, engine)
	requireCode(t, err, apierr.CodeUnsupportedOperation)
	_, err = adapter.Handle(common.NewEmptyRequest(common.OpListTable), nil)
	assert.Error(t, err)
}

func TestUnknownOperationAndMetrics(t *testing.T) {
	srv := newEmulator(t)

	resp, err := http.Post(srv.URL+"/NoSuchOperation", "application/x-protobuf", strings.NewReader(""))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("x-ots-requestid"))
	assert.Equal(t, testHostID, resp.Header.Get("x-ots-hostid"))

	resp, err = http.Post(srv.URL+"/ListTable", "application/x-protobuf", strings.NewReader(""))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `otsc_emulator_requests_total{operation="ListTable",code="OTSAuthFailed"}`)
}

func TestStatusOf(t *testing.T) {
	tests := map[string]int{
		apierr.CodeAuthFailed:             http.StatusForbidden,
		apierr.CodeObjectNotExist:         http.StatusNotFound,
		apierr.CodeSessionNotExist:        http.StatusNotFound,
		apierr.CodePrimaryKeyAlreadyExist: http.StatusConflict,
		apierr.CodeInternalServerError:    http.StatusInternalServerError,
		apierr.CodeParameterInvalid:       http.StatusBadRequest,
		apierr.CodeMetaNotMatch:           http.StatusBadRequest,
	}
	for code, want := range tests {
		assert.Equal(t, want, statusOf(code), code)
	}
}
