package store

import (
	"context"
	"github.com/ValentinKolb/otsc/lib/row"
	"github.com/ValentinKolb/otsc/lib/value"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// ITableStore is the caller facing interface of a typed table store.
// Every method maps to exactly one remote call and returns either its result or
// an error from the apierr taxonomy. A row that does not exist is a nil map with
// a nil error.
type ITableStore interface {
	// CreateTableGroup creates a table group partitioned by a key of the given kind.
	CreateTableGroup(ctx context.Context, name string, partitionKeyType value.Kind) error
	// DeleteTableGroup deletes a table group.
	DeleteTableGroup(ctx context.Context, name string) error
	// ListTableGroup returns the names of all table groups.
	ListTableGroup(ctx context.Context) ([]string, error)

	// CreateTable creates a table (and its views) from meta.
	CreateTable(ctx context.Context, meta TableMeta) error
	// DeleteTable deletes a table.
	DeleteTable(ctx context.Context, name string) error
	// ListTable returns the names of all tables.
	ListTable(ctx context.Context) ([]string, error)
	// GetTableMeta returns the schema of a table.
	GetTableMeta(ctx context.Context, name string) (*TableMeta, error)

	// StartTransaction opens a transaction on the partition partitionKey of entity
	// (a table or table group). The returned handle is valid for exactly one
	// CommitTransaction or AbortTransaction.
	StartTransaction(ctx context.Context, entity string, partitionKey any) (string, error)
	// CommitTransaction applies all writes made under the transaction.
	CommitTransaction(ctx context.Context, transactionID string) error
	// AbortTransaction discards all writes made under the transaction.
	AbortTransaction(ctx context.Context, transactionID string) error

	// PutRow writes a row. opts.Checking decides whether the row may or must exist.
	PutRow(ctx context.Context, table string, pk, columns []row.Item, opts PutOptions) error
	// GetRow reads a row. With opts.Columns only those columns (and the primary key
	// components the service echoes) are returned.
	GetRow(ctx context.Context, table string, pk []row.Item, opts GetOptions) (map[string]any, error)
	// DeleteRow deletes a row, or only opts.Columns of it.
	DeleteRow(ctx context.Context, table string, pk []row.Item, opts DeleteOptions) error

	// MultiGetRow reads up to 100 rows. Results keep the order of items.
	MultiGetRow(ctx context.Context, table string, items []row.BatchItem) ([]row.ItemResult, error)
	// MultiPutRow writes up to 1000 rows. Results keep the order of items.
	MultiPutRow(ctx context.Context, table string, items []row.BatchItem) ([]row.ItemResult, error)
	// MultiDeleteRow deletes up to 1000 rows. Results keep the order of items.
	MultiDeleteRow(ctx context.Context, table string, items []row.BatchItem) ([]row.ItemResult, error)
	// BatchModifyRow applies puts and deletes within one transaction (legacy generation).
	BatchModifyRow(ctx context.Context, table string, mods []Modification, transactionID string) error

	// GetRowsByRange scans a primary key range.
	GetRowsByRange(ctx context.Context, table string, q row.RangeQuery, transactionID string) (*RangeResult, error)
	// GetRowsByOffset pages through the rows sharing q.PagingKeys (legacy generation).
	GetRowsByOffset(ctx context.Context, table string, q row.OffsetQuery, transactionID string) ([]map[string]any, error)
}

// --------------------------------------------------------------------------
// Options and Results
// --------------------------------------------------------------------------

// PutOptions configures PutRow.
type PutOptions struct {
	Checking      row.Checking
	TransactionID string
}

// GetOptions configures GetRow.
type GetOptions struct {
	Columns       []string
	TransactionID string
}

// DeleteOptions configures DeleteRow.
type DeleteOptions struct {
	Columns       []string
	TransactionID string
}

// RangeResult holds the rows of one range scan page. NextToken is empty on the last page.
type RangeResult struct {
	Rows      []map[string]any
	NextToken string
}

// ModifyType is the kind of a BatchModifyRow modification.
type ModifyType string

const (
	ModifyPut    ModifyType = "PUT"
	ModifyDelete ModifyType = "DELETE"
)

// Modification is one entry of BatchModifyRow.
type Modification struct {
	Type ModifyType
	Item row.BatchItem
}

// --------------------------------------------------------------------------
// Schema
// --------------------------------------------------------------------------

// ColumnSchema declares the name and kind of a primary key component or view column.
type ColumnSchema struct {
	Name string
	Type value.Kind
}

// ViewMeta describes a view of a table.
type ViewMeta struct {
	Name         string
	PrimaryKey   []ColumnSchema
	Columns      []ColumnSchema
	PagingKeyLen int
}

// TableMeta describes a table.
type TableMeta struct {
	Name           string
	PrimaryKey     []ColumnSchema
	Views          []ViewMeta
	PagingKeyLen   int
	TableGroupName string
}
