package server

import (
	"github.com/ValentinKolb/otsc/lib/row"
	"github.com/ValentinKolb/otsc/lib/store"
	"github.com/ValentinKolb/otsc/lib/store/lstore"
	"github.com/ValentinKolb/otsc/lib/value"
	"github.com/ValentinKolb/otsc/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for handling requests and responses
type IRPCServerAdapter interface {
	// Handle handles a decoded request against engine and returns the response.
	// Errors are returned as *apierr.ServiceError; other errors are reported to the
	// caller as OTSParameterInvalid.
	Handle(req *common.Message, engine ITableEngine) (*common.Message, error)
}

// ITableEngine is the storage the emulator answers from. It is implemented by
// *lstore.Engine.
type ITableEngine interface {
	CreateTableGroup(name string, partitionKeyType value.Kind) error
	DeleteTableGroup(name string) error
	ListTableGroups() []string

	CreateTable(meta store.TableMeta) error
	DeleteTable(name string) error
	ListTables() []string
	TableMeta(name string) (*store.TableMeta, error)

	StartTransaction(entity string, partitionKey value.Value) (string, error)
	CommitTransaction(transactionID string) error
	AbortTransaction(transactionID string) error

	PutRow(table string, r row.Row, checking row.Checking, transactionID string) error
	GetRow(table string, pk []row.NamedValue, columns []string, transactionID string) (*row.Row, error)
	DeleteRow(table string, pk []row.NamedValue, columns []string, transactionID string) error
	BatchModify(table string, changes []lstore.Change, transactionID string) error
	GetRange(table string, spec row.RangeSpec, transactionID string) ([]row.Row, string, error)
	GetOffset(table string, spec row.OffsetSpec, transactionID string) ([]row.Row, error)
}
