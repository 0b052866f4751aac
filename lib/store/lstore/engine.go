package lstore

import (
	"github.com/ValentinKolb/otsc/lib/apierr"
	"github.com/ValentinKolb/otsc/lib/row"
	"github.com/ValentinKolb/otsc/lib/store"
	"github.com/ValentinKolb/otsc/lib/value"
	"github.com/puzpuzpuz/xsync/v3"
	"sort"
	"sync"
)

// Engine is an in-memory typed table store.
type Engine struct {
	groups *xsync.MapOf[string, value.Kind]
	tables *xsync.MapOf[string, *table]
	txs    *xsync.MapOf[string, *transaction]
}

// table holds the schema and the rows of one table. rows is sorted by primary key.
type table struct {
	meta store.TableMeta
	mu   sync.RWMutex
	rows []storedRow
}

type storedRow struct {
	pk   []row.NamedValue
	cols []row.NamedValue
}

// NewEngine creates an empty engine.
func NewEngine() *Engine {
	return &Engine{
		groups: xsync.NewMapOf[string, value.Kind](),
		tables: xsync.NewMapOf[string, *table](),
		txs:    xsync.NewMapOf[string, *transaction](),
	}
}

// --------------------------------------------------------------------------
// Table groups
// --------------------------------------------------------------------------

// CreateTableGroup creates a table group whose partition key has the given kind.
func (e *Engine) CreateTableGroup(name string, partitionKeyType value.Kind) error {
	if name == "" {
		return apierr.NewServiceError(apierr.CodeParameterInvalid, "table group name must not be empty")
	}
	if err := checkPartitionKeyType(partitionKeyType); err != nil {
		return err
	}
	if _, loaded := e.groups.LoadOrStore(name, partitionKeyType); loaded {
		return apierr.NewServiceError(apierr.CodeObjectAlreadyExist, apierr.MessageTableGroupExists)
	}
	return nil
}

// DeleteTableGroup deletes a table group.
func (e *Engine) DeleteTableGroup(name string) error {
	if _, ok := e.groups.LoadAndDelete(name); !ok {
		return apierr.NewServiceError(apierr.CodeObjectNotExist, apierr.MessageTableGroupMissing)
	}
	return nil
}

// ListTableGroups returns the sorted table group names.
func (e *Engine) ListTableGroups() []string {
	names := make([]string, 0, e.groups.Size())
	e.groups.Range(func(name string, _ value.Kind) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// --------------------------------------------------------------------------
// Tables
// --------------------------------------------------------------------------

// CreateTable creates a table.
func (e *Engine) CreateTable(meta store.TableMeta) error {
	if meta.Name == "" {
		return apierr.NewServiceError(apierr.CodeParameterInvalid, "table name must not be empty")
	}
	if len(meta.PrimaryKey) == 0 {
		return apierr.NewServiceError(apierr.CodeParameterInvalid, apierr.MessageTableWithoutPrimaryKey)
	}
	for _, col := range meta.PrimaryKey {
		switch col.Type {
		case value.KindInteger, value.KindString, value.KindBoolean:
		default:
			return apierr.NewServiceError(apierr.CodeParameterInvalid, col.Type.String()+" is an invalid type for the primary key.")
		}
	}
	if err := checkPartitionKeyType(meta.PrimaryKey[0].Type); err != nil {
		return err
	}
	if meta.PagingKeyLen < 0 || meta.PagingKeyLen > len(meta.PrimaryKey) {
		return apierr.NewServiceError(apierr.CodeParameterInvalid, "PagingKeyLen is out of range.")
	}
	if meta.TableGroupName != "" {
		kind, ok := e.groups.Load(meta.TableGroupName)
		if !ok {
			return apierr.NewServiceError(apierr.CodeObjectNotExist, apierr.MessageTableGroupMissing)
		}
		if kind != meta.PrimaryKey[0].Type {
			return apierr.NewServiceError(apierr.CodeMetaNotMatch, "The partition key type does not match with the table group.")
		}
	}
	if _, loaded := e.tables.LoadOrStore(meta.Name, &table{meta: meta}); loaded {
		return apierr.NewServiceError(apierr.CodeObjectAlreadyExist, apierr.MessageTableExists)
	}
	return nil
}

// DeleteTable deletes a table and all of its rows.
func (e *Engine) DeleteTable(name string) error {
	if _, ok := e.tables.LoadAndDelete(name); !ok {
		return apierr.NewServiceError(apierr.CodeObjectNotExist, apierr.MessageTableMissing)
	}
	return nil
}

// ListTables returns the sorted table names.
func (e *Engine) ListTables() []string {
	names := make([]string, 0, e.tables.Size())
	e.tables.Range(func(name string, _ *table) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// TableMeta returns the schema of a table.
func (e *Engine) TableMeta(name string) (*store.TableMeta, error) {
	t, err := e.table(name)
	if err != nil {
		return nil, err
	}
	meta := t.meta
	return &meta, nil
}

func (e *Engine) table(name string) (*table, error) {
	t, ok := e.tables.Load(name)
	if !ok {
		return nil, apierr.NewServiceError(apierr.CodeObjectNotExist, apierr.MessageTableMissing)
	}
	return t, nil
}

func checkPartitionKeyType(kind value.Kind) error {
	if kind != value.KindInteger && kind != value.KindString {
		return apierr.NewServiceError(apierr.CodeParameterInvalid, kind.String()+" "+apierr.MessageInvalidPartitionKeyType)
	}
	return nil
}
