package client

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/otsc/lib/apierr"
	"github.com/ValentinKolb/otsc/lib/row"
	"github.com/ValentinKolb/otsc/lib/store"
	"github.com/ValentinKolb/otsc/lib/value"
	"github.com/ValentinKolb/otsc/rpc/common"
	"github.com/ValentinKolb/otsc/rpc/serializer"
	"github.com/ValentinKolb/otsc/rpc/transport"
	"time"
)

// NewRPCStore creates a new RPC table store client
// The function takes a configuration, a transport and a serializer as parameters. The
// serializer must speak the configured protocol generation.
// It returns a store.ITableStore and an error
func NewRPCStore(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (store.ITableStore, error) {

	// Validate the configuration
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if serializer.Generation() != config.Generation {
		return nil, fmt.Errorf("serializer speaks protocol generation %s, configured is %s", serializer.Generation(), config.Generation)
	}

	// Connect the transport
	err := transport.Connect(config)
	if err != nil {
		return nil, err
	}

	// Create a new RPC store
	s := rpcStore{
		rpcClientAdapter{
			config:     config,
			transport:  transport,
			serializer: serializer,
			operations: common.NewOperationTable(),
			signer:     config.Signer(),
			decoder:    value.Decoder{Precision: config.Generation.Precision()},
			metrics:    newClientMetrics(),
			now:        time.Now,
		},
	}

	// Return the RPC store
	return &s, nil
}

type rpcStore struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcStore) CreateTableGroup(ctx context.Context, name string, partitionKeyType value.Kind) error {
	if name == "" {
		return apierr.Invalid("table group name must not be empty")
	}
	_, _, err := i.invokeRPCRequest(ctx, common.NewCreateTableGroupRequest(name, partitionKeyType))
	return err
}

func (i *rpcStore) DeleteTableGroup(ctx context.Context, name string) error {
	_, _, err := i.invokeRPCRequest(ctx, common.NewDeleteTableGroupRequest(name))
	return err
}

func (i *rpcStore) ListTableGroup(ctx context.Context) ([]string, error) {
	resp, _, err := i.invokeRPCRequest(ctx, common.NewEmptyRequest(common.OpListTableGroup))
	if err != nil {
		return nil, err
	}
	return emptyIfNil(resp.Names), nil
}

func (i *rpcStore) CreateTable(ctx context.Context, meta store.TableMeta) error {
	if meta.Name == "" {
		return apierr.Invalid("table name must not be empty")
	}
	if len(meta.PrimaryKey) == 0 {
		return apierr.Invalid(apierr.MessageTableWithoutPrimaryKey)
	}
	_, _, err := i.invokeRPCRequest(ctx, common.NewCreateTableRequest(meta))
	return err
}

func (i *rpcStore) DeleteTable(ctx context.Context, name string) error {
	_, _, err := i.invokeRPCRequest(ctx, common.NewTableRequest(common.OpDeleteTable, name))
	return err
}

func (i *rpcStore) ListTable(ctx context.Context) ([]string, error) {
	resp, _, err := i.invokeRPCRequest(ctx, common.NewEmptyRequest(common.OpListTable))
	if err != nil {
		return nil, err
	}
	return emptyIfNil(resp.Names), nil
}

func (i *rpcStore) GetTableMeta(ctx context.Context, name string) (*store.TableMeta, error) {
	resp, raw, err := i.invokeRPCRequest(ctx, common.NewTableRequest(common.OpGetTableMeta, name))
	if err != nil {
		return nil, err
	}
	if resp.TableMeta == nil {
		return nil, malformed(common.OpGetTableMeta, raw, errors.New("response without table meta"))
	}
	return resp.TableMeta, nil
}

func (i *rpcStore) StartTransaction(ctx context.Context, entity string, partitionKey any) (string, error) {
	pk, err := value.Encode(partitionKey)
	if err != nil {
		return "", apierr.InvalidCause(err, "partition key")
	}
	resp, raw, err := i.invokeRPCRequest(ctx, common.NewStartTransactionRequest(entity, pk))
	if err != nil {
		return "", err
	}
	if resp.TransactionID == "" {
		return "", malformed(common.OpStartTransaction, raw, errors.New("response without transaction id"))
	}
	return resp.TransactionID, nil
}

func (i *rpcStore) CommitTransaction(ctx context.Context, transactionID string) error {
	_, _, err := i.invokeRPCRequest(ctx, common.NewTransactionRequest(common.OpCommitTransaction, transactionID))
	return err
}

func (i *rpcStore) AbortTransaction(ctx context.Context, transactionID string) error {
	_, _, err := i.invokeRPCRequest(ctx, common.NewTransactionRequest(common.OpAbortTransaction, transactionID))
	return err
}

func (i *rpcStore) PutRow(ctx context.Context, table string, pk, columns []row.Item, opts store.PutOptions) error {
	r, err := row.BuildRow(pk, columns)
	if err != nil {
		return err
	}
	checking, err := row.ParseChecking(string(opts.Checking))
	if err != nil {
		return err
	}
	_, _, err = i.invokeRPCRequest(ctx, common.NewPutRowRequest(table, r, checking, opts.TransactionID))
	return err
}

func (i *rpcStore) GetRow(ctx context.Context, table string, pk []row.Item, opts store.GetOptions) (map[string]any, error) {
	key, err := row.BuildKey(pk)
	if err != nil {
		return nil, err
	}
	resp, raw, err := i.invokeRPCRequest(ctx, common.NewGetRowRequest(table, key, opts.Columns, opts.TransactionID))
	if err != nil {
		return nil, err
	}
	parsed, err := row.ParseRow(resp.Row, opts.Columns, i.decoder)
	if err != nil {
		return nil, malformed(common.OpGetRow, raw, err)
	}
	return parsed, nil
}

func (i *rpcStore) DeleteRow(ctx context.Context, table string, pk []row.Item, opts store.DeleteOptions) error {
	key, err := row.BuildKey(pk)
	if err != nil {
		return err
	}
	_, _, err = i.invokeRPCRequest(ctx, common.NewDeleteRowRequest(table, key, opts.Columns, opts.TransactionID))
	return err
}

func (i *rpcStore) MultiGetRow(ctx context.Context, table string, items []row.BatchItem) ([]row.ItemResult, error) {
	return i.batch(ctx, common.OpMultiGetRow, row.BatchGet, table, items)
}

func (i *rpcStore) MultiPutRow(ctx context.Context, table string, items []row.BatchItem) ([]row.ItemResult, error) {
	return i.batch(ctx, common.OpMultiPutRow, row.BatchPut, table, items)
}

func (i *rpcStore) MultiDeleteRow(ctx context.Context, table string, items []row.BatchItem) ([]row.ItemResult, error) {
	return i.batch(ctx, common.OpMultiDeleteRow, row.BatchDelete, table, items)
}

func (i *rpcStore) BatchModifyRow(ctx context.Context, table string, mods []store.Modification, transactionID string) error {
	if transactionID == "" {
		return apierr.Invalid(apierr.MessageInvalidTransactionID)
	}
	if len(mods) == 0 {
		return apierr.Invalid("BatchModifyRow requires at least one modification")
	}
	if len(mods) > row.MaxMultiWriteRows {
		return apierr.Invalid(apierr.MessageRowsCountExceedsLimit)
	}

	encoded := make([]common.BatchModification, len(mods))
	for idx, mod := range mods {
		op := row.BatchPut
		switch mod.Type {
		case store.ModifyPut:
		case store.ModifyDelete:
			op = row.BatchDelete
		default:
			return apierr.Invalid("modification %d has unknown type %q", idx, mod.Type)
		}
		entries, err := row.BuildBatch(op, table, []row.BatchItem{mod.Item})
		if err != nil {
			return fmt.Errorf("modification %d: %w", idx, err)
		}
		encoded[idx] = common.BatchModification{Type: mod.Type, Entry: entries[0]}
	}
	_, _, err := i.invokeRPCRequest(ctx, common.NewBatchModifyRequest(table, encoded, transactionID))
	return err
}

func (i *rpcStore) GetRowsByRange(ctx context.Context, table string, q row.RangeQuery, transactionID string) (*store.RangeResult, error) {
	spec, err := row.BuildRange(q)
	if err != nil {
		return nil, err
	}
	resp, raw, err := i.invokeRPCRequest(ctx, common.NewRangeRequest(table, spec, transactionID))
	if err != nil {
		return nil, err
	}
	result := &store.RangeResult{Rows: make([]map[string]any, 0, len(resp.Rows)), NextToken: resp.NextToken}
	for idx := range resp.Rows {
		parsed, err := row.ParseRow(&resp.Rows[idx], spec.Columns, i.decoder)
		if err != nil {
			return nil, malformed(common.OpGetRowsByRange, raw, fmt.Errorf("row %d: %w", idx, err))
		}
		if parsed != nil {
			result.Rows = append(result.Rows, parsed)
		}
	}
	return result, nil
}

func (i *rpcStore) GetRowsByOffset(ctx context.Context, table string, q row.OffsetQuery, transactionID string) ([]map[string]any, error) {
	spec, err := row.BuildOffset(q)
	if err != nil {
		return nil, err
	}
	resp, raw, err := i.invokeRPCRequest(ctx, common.NewOffsetRequest(table, spec, transactionID))
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]any, 0, len(resp.Rows))
	for idx := range resp.Rows {
		parsed, err := row.ParseRow(&resp.Rows[idx], spec.Columns, i.decoder)
		if err != nil {
			return nil, malformed(common.OpGetRowsByOffset, raw, fmt.Errorf("row %d: %w", idx, err))
		}
		if parsed != nil {
			rows = append(rows, parsed)
		}
	}
	return rows, nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// batch sends one multi row request and flattens the per-item results
func (i *rpcStore) batch(ctx context.Context, op common.Operation, batchOp row.BatchOp, table string, items []row.BatchItem) ([]row.ItemResult, error) {
	entries, err := row.BuildBatch(batchOp, table, items)
	if err != nil {
		return nil, err
	}
	resp, raw, err := i.invokeRPCRequest(ctx, common.NewBatchRequest(op, table, entries))
	if err != nil {
		return nil, err
	}
	if len(resp.Results) != len(entries) {
		return nil, malformed(op, raw, fmt.Errorf("%d results for %d rows", len(resp.Results), len(entries)))
	}
	for idx := range resp.Results {
		if resp.Results[idx].Table == "" {
			resp.Results[idx].Table = entries[idx].Table
		}
	}
	results, err := row.ParseBatch(resp.Results, row.ColumnFilters(entries), i.decoder)
	if err != nil {
		return nil, malformed(op, raw, err)
	}
	return results, nil
}

func emptyIfNil(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}
