package client

import (
	"context"
	"errors"
	"github.com/ValentinKolb/otsc/lib/apierr"
	"github.com/ValentinKolb/otsc/lib/row"
	"github.com/ValentinKolb/otsc/lib/sign"
	"github.com/ValentinKolb/otsc/lib/store"
	"github.com/ValentinKolb/otsc/rpc/common"
	"github.com/ValentinKolb/otsc/rpc/serializer"
	"github.com/ValentinKolb/otsc/rpc/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"testing"
	"time"
)

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// fakeTransport answers every request with respond and records what was sent
type fakeTransport struct {
	respond func(req transport.Request) (*transport.Response, error)
	sent    []transport.Request
}

func (f *fakeTransport) Connect(common.ClientConfig) error { return nil }

func (f *fakeTransport) Send(_ context.Context, req transport.Request) (*transport.Response, error) {
	f.sent = append(f.sent, req)
	return f.respond(req)
}

func (f *fakeTransport) Close() error { return nil }

func answer(status int, body []byte) func(transport.Request) (*transport.Response, error) {
	return func(transport.Request) (*transport.Response, error) {
		header := http.Header{}
		header.Set(sign.HeaderRequestID, "req-1")
		header.Set(sign.HeaderHostID, "host-1")
		return &transport.Response{Host: "ots.test", StatusCode: status, Header: header, Body: body}, nil
	}
}

func testConfig(gen common.Generation) common.ClientConfig {
	return common.ClientConfig{AccessKeyID: "id", AccessKeySecret: "secret", Generation: gen}
}

func newTestStore(t *testing.T, gen common.Generation, f *fakeTransport) store.ITableStore {
	t.Helper()
	st, err := NewRPCStore(testConfig(gen), f, serializer.ForGeneration(gen))
	require.NoError(t, err)
	return st
}

// --------------------------------------------------------------------------
// Construction
// --------------------------------------------------------------------------

func TestNewRPCStoreValidatesConfig(t *testing.T) {
	f := &fakeTransport{respond: answer(http.StatusOK, nil)}

	_, err := NewRPCStore(common.ClientConfig{}, f, serializer.NewProtobufSerializer())
	assert.Error(t, err, "credentials are required")

	_, err = NewRPCStore(testConfig(common.GenerationLegacy), f, serializer.NewProtobufSerializer())
	assert.Error(t, err, "serializer must speak the configured generation")

	config := testConfig(common.Generation2013)
	config.SignatureMethod = "MD5"
	_, err = NewRPCStore(config, f, serializer.NewProtobufSerializer())
	assert.Error(t, err)
}

// --------------------------------------------------------------------------
// Signing
// --------------------------------------------------------------------------

func TestRequestsAreSigned(t *testing.T) {
	signerConfig := testConfig(common.Generation2013)
	signer := signerConfig.Signer()

	t.Run("headers", func(t *testing.T) {
		f := &fakeTransport{respond: answer(http.StatusOK, nil)}
		st := newTestStore(t, common.Generation2013, f)
		require.NoError(t, st.PutRow(context.Background(), "users", row.One("uid", "mk2"), row.One("age", 28), store.PutOptions{}))

		require.Len(t, f.sent, 1)
		req := f.sent[0]
		assert.Equal(t, "/PutRow", req.Path)
		assert.Equal(t, "application/x-protobuf", req.ContentType)
		assert.Equal(t, "id", req.Header.Get(sign.HeaderAccessKeyID))
		assert.NoError(t, signer.VerifyHeaders(req.Path, req.Header, req.Body))
	})

	t.Run("params", func(t *testing.T) {
		f := &fakeTransport{respond: answer(http.StatusOK, nil)}
		st := newTestStore(t, common.GenerationLegacy, f)
		require.NoError(t, st.PutRow(context.Background(), "users", row.One("uid", "mk2"), row.One("age", 28), store.PutOptions{}))

		require.Len(t, f.sent, 1)
		req := f.sent[0]
		assert.Equal(t, "/PutData", req.Path)
		params, err := sign.ParseParams(string(req.Body))
		require.NoError(t, err)
		version, _ := sign.Lookup(params, "APIVersion")
		assert.Equal(t, "1", version)
		assert.NoError(t, signer.VerifyParams(req.Path, params))
	})
}

// --------------------------------------------------------------------------
// Error mapping
// --------------------------------------------------------------------------

func TestServiceErrorCarriesServerID(t *testing.T) {
	body, err := serializer.NewProtobufSerializer().SerializeError(common.ErrorMessage{
		Code: apierr.CodeObjectNotExist, Message: apierr.MessageTableMissing,
	})
	require.NoError(t, err)
	st := newTestStore(t, common.Generation2013, &fakeTransport{respond: answer(http.StatusNotFound, body)})

	_, err = st.GetRow(context.Background(), "missing", row.One("uid", "mk2"), store.GetOptions{})
	var svc *apierr.ServiceError
	require.ErrorAs(t, err, &svc)
	assert.Equal(t, apierr.CodeObjectNotExist, svc.Code)
	assert.Equal(t, apierr.MessageTableMissing, svc.Message)
	assert.Equal(t, "RequestID: req-1 HostID: host-1", svc.ServerID)
	assert.Equal(t, "OTSStorageObjectNotExistError", svc.Name())
	assert.Equal(t, "service", errorClass(err))
}

func TestLegacyServiceError(t *testing.T) {
	body, err := serializer.NewFormSerializer().SerializeError(common.ErrorMessage{
		Code: apierr.CodeAuthFailed, Message: apierr.MessageSignatureMismatch,
	})
	require.NoError(t, err)
	st := newTestStore(t, common.GenerationLegacy, &fakeTransport{respond: answer(http.StatusForbidden, body)})

	_, err = st.ListTable(context.Background())
	assert.Equal(t, apierr.CodeAuthFailed, apierr.Code(err))
}

func TestMalformedResponses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   []byte
		call   func(st store.ITableStore) error
	}{
		{
			name:   "undecodable error body",
			status: http.StatusInternalServerError,
			body:   []byte{0xff},
			call: func(st store.ITableStore) error {
				return st.DeleteTable(context.Background(), "users")
			},
		},
		{
			name:   "undecodable success body",
			status: http.StatusOK,
			body:   []byte{0xff},
			call: func(st store.ITableStore) error {
				_, err := st.GetRow(context.Background(), "users", row.One("uid", "mk2"), store.GetOptions{})
				return err
			},
		},
		{
			name:   "table meta missing",
			status: http.StatusOK,
			body:   []byte{},
			call: func(st store.ITableStore) error {
				_, err := st.GetTableMeta(context.Background(), "users")
				return err
			},
		},
		{
			name:   "batch result count differs",
			status: http.StatusOK,
			body:   []byte{},
			call: func(st store.ITableStore) error {
				_, err := st.MultiPutRow(context.Background(), "users", []row.BatchItem{
					{PrimaryKey: row.One("uid", "a"), Columns: row.One("age", 1)},
				})
				return err
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newTestStore(t, common.Generation2013, &fakeTransport{respond: answer(tt.status, tt.body)})
			err := tt.call(st)
			var mal *apierr.MalformedResponseError
			require.ErrorAs(t, err, &mal)
			assert.True(t, errors.Is(err, apierr.ErrMalformedResponse))
			assert.Equal(t, "RequestID: req-1 HostID: host-1", mal.ServerID)
		})
	}
}

func TestTransportErrors(t *testing.T) {
	f := &fakeTransport{respond: func(transport.Request) (*transport.Response, error) {
		return nil, &transport.SendError{Host: "ots.test", Err: context.DeadlineExceeded}
	}}
	st := newTestStore(t, common.Generation2013, f)

	err := st.PutRow(context.Background(), "users", row.One("uid", "mk2"), row.One("age", 28), store.PutOptions{})
	var te *apierr.TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, te.Timeout, "a deadline means the outcome is unknown")
	assert.Equal(t, "ots.test", te.Host)
	assert.Equal(t, "transport", errorClass(err))

	f.respond = func(transport.Request) (*transport.Response, error) {
		return nil, &transport.SendError{Host: "ots.test", Err: errors.New("connection refused")}
	}
	err = st.DeleteTable(context.Background(), "users")
	require.ErrorAs(t, err, &te)
	assert.False(t, te.Timeout)
	assert.Empty(t, te.ServerID)

	// the body broke off after the headers arrived
	f.respond = func(transport.Request) (*transport.Response, error) {
		header := http.Header{}
		header.Set(sign.HeaderRequestID, "req-2")
		header.Set(sign.HeaderHostID, "host-2")
		return nil, &transport.SendError{Host: "ots.test", Header: header, Err: io.ErrUnexpectedEOF}
	}
	_, err = st.ListTable(context.Background())
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "RequestID: req-2 HostID: host-2", te.ServerID)
	assert.Contains(t, err.Error(), "RequestID: req-2")
}

func TestLocalValidationSendsNothing(t *testing.T) {
	f := &fakeTransport{respond: answer(http.StatusOK, nil)}
	st := newTestStore(t, common.Generation2013, f)
	ctx := context.Background()

	assert.True(t, errors.Is(st.PutRow(ctx, "users", nil, row.One("age", 1), store.PutOptions{}), apierr.ErrLocalValidation))
	assert.True(t, errors.Is(st.CreateTable(ctx, store.TableMeta{Name: "users"}), apierr.ErrLocalValidation))
	assert.True(t, errors.Is(st.BatchModifyRow(ctx, "users", nil, ""), apierr.ErrLocalValidation))

	items := make([]row.BatchItem, row.MaxMultiGetRows+1)
	for i := range items {
		items[i] = row.BatchItem{PrimaryKey: row.One("uid", i)}
	}
	_, err := st.MultiGetRow(ctx, "users", items)
	assert.Equal(t, apierr.CodeParameterInvalid, apierr.Code(err))
	assert.Contains(t, err.Error(), apierr.MessageRowsCountExceedsLimit)
	assert.Equal(t, "local", errorClass(err))

	// operations of the other generation are rejected before sending
	legacy := newTestStore(t, common.GenerationLegacy, f)
	_, err = legacy.MultiGetRow(ctx, "users", items[:1])
	assert.Equal(t, apierr.CodeUnsupportedOperation, apierr.Code(err))
	err = st.BatchModifyRow(ctx, "users", []store.Modification{{Type: store.ModifyDelete, Item: row.BatchItem{PrimaryKey: row.One("uid", "a")}}}, "tx")
	assert.Equal(t, apierr.CodeUnsupportedOperation, apierr.Code(err))
	_, err = st.GetRowsByOffset(ctx, "users", row.OffsetQuery{PagingKeys: row.One("uid", "a"), Top: 1}, "")
	assert.Equal(t, apierr.CodeUnsupportedOperation, apierr.Code(err))
	_, err = legacy.GetRowsByOffset(ctx, "users", row.OffsetQuery{PagingKeys: row.One("uid", "a"), Offset: -1}, "")
	assert.Equal(t, apierr.CodeParameterInvalid, apierr.Code(err))

	assert.Empty(t, f.sent)
}

func TestMissingRowIsNil(t *testing.T) {
	st := newTestStore(t, common.Generation2013, &fakeTransport{respond: answer(http.StatusOK, []byte{})})
	got, err := st.GetRow(context.Background(), "users", row.One("uid", "mk2"), store.GetOptions{})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSigningUsesClock(t *testing.T) {
	f := &fakeTransport{respond: answer(http.StatusOK, nil)}
	st := newTestStore(t, common.Generation2013, f)
	st.(*rpcStore).now = func() time.Time { return time.Date(2013, 5, 10, 8, 0, 0, 0, time.UTC) }

	require.NoError(t, st.DeleteTable(context.Background(), "users"))
	require.Len(t, f.sent, 1)
	assert.Equal(t, "Fri, 10 May 2013 08:00:00 GMT", f.sent[0].Header.Get(sign.HeaderDate))
}
