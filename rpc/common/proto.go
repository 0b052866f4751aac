package common

import (
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/otsc/lib/row"
	"github.com/ValentinKolb/otsc/lib/store"
	"github.com/ValentinKolb/otsc/lib/value"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the operation.
type Message struct {
	// Operation of the message
	Op Operation

	// Schema fields
	TableName        string           // Used for: all table and row operations
	TableGroupName   string           // Used for: CreateTableGroup, DeleteTableGroup
	PartitionKeyType value.Kind       // Used for: CreateTableGroup
	TableMeta        *store.TableMeta // Used for: CreateTable (request), GetTableMeta (response)

	// Row fields
	PrimaryKey    []row.NamedValue    // Used for: GetRow, DeleteRow
	Row           *row.Row            // Used for: PutRow (request), GetRow (response)
	Checking      row.Checking        // Used for: PutRow
	ColumnNames   []string            // Used for: GetRow, DeleteRow
	TransactionID string              // Used for: row operations, CommitTransaction, AbortTransaction, StartTransaction (response)
	Entries       []row.BatchEntry    // Used for: MultiGetRow, MultiPutRow, MultiDeleteRow
	Modifications []BatchModification // Used for: BatchModifyRow
	Range         *row.RangeSpec      // Used for: GetRowsByRange (request)
	Offset        *row.OffsetSpec     // Used for: GetRowsByOffset (request)
	EntityName    string              // Used for: StartTransaction
	PartitionKey  *value.Value        // Used for: StartTransaction

	// Response only fields
	Names     []string         // Used for: ListTable, ListTableGroup
	Rows      []row.Row        // Used for: GetRowsByRange, GetRowsByOffset
	Results   []row.WireResult // Used for: MultiGetRow, MultiPutRow, MultiDeleteRow
	NextToken string           // Used for: GetRowsByRange
}

// BatchModification is one encoded entry of a BatchModifyRow request.
type BatchModification struct {
	Type  store.ModifyType
	Entry row.BatchEntry
}

// ErrorMessage is the body of a non-success response.
type ErrorMessage struct {
	Code    string
	Message string
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewCreateTableGroupRequest creates a new CreateTableGroup request
func NewCreateTableGroupRequest(name string, partitionKeyType value.Kind) *Message {
	return &Message{Op: OpCreateTableGroup, TableGroupName: name, PartitionKeyType: partitionKeyType}
}

// NewDeleteTableGroupRequest creates a new DeleteTableGroup request
func NewDeleteTableGroupRequest(name string) *Message {
	return &Message{Op: OpDeleteTableGroup, TableGroupName: name}
}

// NewCreateTableRequest creates a new CreateTable request
func NewCreateTableRequest(meta store.TableMeta) *Message {
	return &Message{Op: OpCreateTable, TableName: meta.Name, TableMeta: &meta}
}

// NewTableRequest creates a request that only names a table (DeleteTable, GetTableMeta)
func NewTableRequest(op Operation, name string) *Message {
	return &Message{Op: op, TableName: name}
}

// NewEmptyRequest creates a request without fields (ListTable, ListTableGroup)
func NewEmptyRequest(op Operation) *Message {
	return &Message{Op: op}
}

// NewStartTransactionRequest creates a new StartTransaction request
func NewStartTransactionRequest(entity string, partitionKey value.Value) *Message {
	return &Message{Op: OpStartTransaction, EntityName: entity, PartitionKey: &partitionKey}
}

// NewTransactionRequest creates a CommitTransaction or AbortTransaction request
func NewTransactionRequest(op Operation, transactionID string) *Message {
	return &Message{Op: op, TransactionID: transactionID}
}

// NewPutRowRequest creates a new PutRow request
func NewPutRowRequest(table string, r row.Row, checking row.Checking, transactionID string) *Message {
	return &Message{Op: OpPutRow, TableName: table, Row: &r, Checking: checking, TransactionID: transactionID}
}

// NewGetRowRequest creates a new GetRow request
func NewGetRowRequest(table string, pk []row.NamedValue, columns []string, transactionID string) *Message {
	return &Message{Op: OpGetRow, TableName: table, PrimaryKey: pk, ColumnNames: columns, TransactionID: transactionID}
}

// NewDeleteRowRequest creates a new DeleteRow request
func NewDeleteRowRequest(table string, pk []row.NamedValue, columns []string, transactionID string) *Message {
	return &Message{Op: OpDeleteRow, TableName: table, PrimaryKey: pk, ColumnNames: columns, TransactionID: transactionID}
}

// NewBatchRequest creates a MultiGetRow, MultiPutRow or MultiDeleteRow request
func NewBatchRequest(op Operation, table string, entries []row.BatchEntry) *Message {
	return &Message{Op: op, TableName: table, Entries: entries}
}

// NewBatchModifyRequest creates a new BatchModifyRow request
func NewBatchModifyRequest(table string, mods []BatchModification, transactionID string) *Message {
	return &Message{Op: OpBatchModifyRow, TableName: table, Modifications: mods, TransactionID: transactionID}
}

// NewRangeRequest creates a new GetRowsByRange request
func NewRangeRequest(table string, spec row.RangeSpec, transactionID string) *Message {
	return &Message{Op: OpGetRowsByRange, TableName: table, Range: &spec, TransactionID: transactionID}
}

// NewEmptyResponse creates a response for operations without response body
func NewEmptyResponse(op Operation) *Message {
	return &Message{Op: op}
}

// NewNamesResponse creates a ListTable or ListTableGroup response
func NewNamesResponse(op Operation, names []string) *Message {
	return &Message{Op: op, Names: names}
}

// NewTableMetaResponse creates a new GetTableMeta response
func NewTableMetaResponse(meta *store.TableMeta) *Message {
	return &Message{Op: OpGetTableMeta, TableMeta: meta}
}

// NewStartTransactionResponse creates a new StartTransaction response
func NewStartTransactionResponse(transactionID string) *Message {
	return &Message{Op: OpStartTransaction, TransactionID: transactionID}
}

// NewGetRowResponse creates a new GetRow response
func NewGetRowResponse(r *row.Row) *Message {
	return &Message{Op: OpGetRow, Row: r}
}

// NewBatchResponse creates a MultiGetRow, MultiPutRow or MultiDeleteRow response
func NewBatchResponse(op Operation, results []row.WireResult) *Message {
	return &Message{Op: op, Results: results}
}

// NewOffsetRequest creates a new GetRowsByOffset request
func NewOffsetRequest(table string, spec row.OffsetSpec, transactionID string) *Message {
	return &Message{Op: OpGetRowsByOffset, TableName: table, Offset: &spec, TransactionID: transactionID}
}

// NewOffsetResponse creates a new GetRowsByOffset response
func NewOffsetResponse(rows []row.Row) *Message {
	return &Message{Op: OpGetRowsByOffset, Rows: rows}
}

// NewRangeResponse creates a new GetRowsByRange response
func NewRangeResponse(rows []row.Row, nextToken string) *Message {
	return &Message{Op: OpGetRowsByRange, Rows: rows, NextToken: nextToken}
}

// --------------------------------------------------------------------------
// Operations
// --------------------------------------------------------------------------

// Operation identifies a remote operation.
type Operation uint8

const (
	OpUnknown Operation = iota

	// Table groups
	OpCreateTableGroup
	OpDeleteTableGroup
	OpListTableGroup

	// Tables
	OpCreateTable
	OpDeleteTable
	OpListTable
	OpGetTableMeta

	// Transactions
	OpStartTransaction
	OpCommitTransaction
	OpAbortTransaction

	// Rows
	OpPutRow
	OpGetRow
	OpDeleteRow
	OpMultiGetRow
	OpMultiPutRow
	OpMultiDeleteRow
	OpBatchModifyRow
	OpGetRowsByRange
	OpGetRowsByOffset
)

func (op Operation) String() string {
	switch op {
	case OpCreateTableGroup:
		return "CreateTableGroup"
	case OpDeleteTableGroup:
		return "DeleteTableGroup"
	case OpListTableGroup:
		return "ListTableGroup"
	case OpCreateTable:
		return "CreateTable"
	case OpDeleteTable:
		return "DeleteTable"
	case OpListTable:
		return "ListTable"
	case OpGetTableMeta:
		return "GetTableMeta"
	case OpStartTransaction:
		return "StartTransaction"
	case OpCommitTransaction:
		return "CommitTransaction"
	case OpAbortTransaction:
		return "AbortTransaction"
	case OpPutRow:
		return "PutRow"
	case OpGetRow:
		return "GetRow"
	case OpDeleteRow:
		return "DeleteRow"
	case OpMultiGetRow:
		return "MultiGetRow"
	case OpMultiPutRow:
		return "MultiPutRow"
	case OpMultiDeleteRow:
		return "MultiDeleteRow"
	case OpBatchModifyRow:
		return "BatchModifyRow"
	case OpGetRowsByRange:
		return "GetRowsByRange"
	case OpGetRowsByOffset:
		return "GetRowsByOffset"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(op))
	}
}

func (op Operation) MarshalJSON() ([]byte, error) {
	return json.Marshal(op.String())
}

func (op *Operation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for candidate := OpCreateTableGroup; candidate <= OpGetRowsByOffset; candidate++ {
		if candidate.String() == s {
			*op = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown operation %q", s)
}

// --------------------------------------------------------------------------
// Operation Table
// --------------------------------------------------------------------------

// OperationSpec describes how an operation travels over the wire.
type OperationSpec struct {
	Op Operation
	// WireName is the path segment in the 2013 generation, "" if unavailable there.
	WireName string
	// LegacyName is the path segment in the legacy generation, "" if unavailable there.
	LegacyName string
	// HasResponse is true if a success response carries a body that must be decoded.
	HasResponse bool
	// MaxRows is the row ceiling of batch operations, 0 otherwise.
	MaxRows int
}

// OperationTable is the immutable catalog of operations. Build it once with
// NewOperationTable and share it.
type OperationTable struct {
	specs  map[Operation]OperationSpec
	byName map[Generation]map[string]Operation
}

// NewOperationTable returns the operation catalog.
func NewOperationTable() *OperationTable {
	specs := []OperationSpec{
		{Op: OpCreateTableGroup, WireName: "CreateTableGroup"},
		{Op: OpDeleteTableGroup, WireName: "DeleteTableGroup"},
		{Op: OpListTableGroup, WireName: "ListTableGroup", HasResponse: true},
		{Op: OpCreateTable, WireName: "CreateTable"},
		{Op: OpDeleteTable, WireName: "DeleteTable", LegacyName: "DeleteTable"},
		{Op: OpListTable, WireName: "ListTable", LegacyName: "ListTable", HasResponse: true},
		{Op: OpGetTableMeta, WireName: "GetTableMeta", HasResponse: true},
		{Op: OpStartTransaction, WireName: "StartTransaction", LegacyName: "StartTransaction", HasResponse: true},
		{Op: OpCommitTransaction, WireName: "CommitTransaction", LegacyName: "CommitTransaction"},
		{Op: OpAbortTransaction, WireName: "AbortTransaction", LegacyName: "AbortTransaction"},
		{Op: OpPutRow, WireName: "PutRow", LegacyName: "PutData"},
		{Op: OpGetRow, WireName: "GetRow", LegacyName: "GetRow", HasResponse: true},
		{Op: OpDeleteRow, WireName: "DeleteRow", LegacyName: "DeleteData"},
		{Op: OpMultiGetRow, WireName: "MultiGetRow", HasResponse: true, MaxRows: row.MaxMultiGetRows},
		{Op: OpMultiPutRow, WireName: "MultiPutRow", HasResponse: true, MaxRows: row.MaxMultiWriteRows},
		{Op: OpMultiDeleteRow, WireName: "MultiDeleteRow", HasResponse: true, MaxRows: row.MaxMultiWriteRows},
		{Op: OpBatchModifyRow, LegacyName: "BatchModifyData", MaxRows: row.MaxMultiWriteRows},
		{Op: OpGetRowsByRange, WireName: "GetRowsByRange", LegacyName: "GetRowsByRange", HasResponse: true},
		{Op: OpGetRowsByOffset, LegacyName: "GetRowsByOffset", HasResponse: true},
	}

	t := &OperationTable{
		specs: make(map[Operation]OperationSpec, len(specs)),
		byName: map[Generation]map[string]Operation{
			Generation2013:   {},
			GenerationLegacy: {},
		},
	}
	for _, s := range specs {
		t.specs[s.Op] = s
		if s.WireName != "" {
			t.byName[Generation2013][s.WireName] = s.Op
		}
		if s.LegacyName != "" {
			t.byName[GenerationLegacy][s.LegacyName] = s.Op
		}
	}
	return t
}

// Spec returns the description of op.
func (t *OperationTable) Spec(op Operation) (OperationSpec, bool) {
	s, ok := t.specs[op]
	return s, ok
}

// Name returns the wire name of op in generation gen, or "" if op is not available there.
func (t *OperationTable) Name(op Operation, gen Generation) string {
	s := t.specs[op]
	if gen == GenerationLegacy {
		return s.LegacyName
	}
	return s.WireName
}

// Path returns the canonical URI of op in generation gen.
func (t *OperationTable) Path(op Operation, gen Generation) (string, bool) {
	name := t.Name(op, gen)
	if name == "" {
		return "", false
	}
	return "/" + name, true
}

// Lookup resolves a wire name of generation gen.
func (t *OperationTable) Lookup(name string, gen Generation) (Operation, bool) {
	op, ok := t.byName[gen][name]
	return op, ok
}
