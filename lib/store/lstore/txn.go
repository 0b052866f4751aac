package lstore

import (
	"github.com/ValentinKolb/otsc/lib/apierr"
	"github.com/ValentinKolb/otsc/lib/row"
	"github.com/ValentinKolb/otsc/lib/store"
	"github.com/ValentinKolb/otsc/lib/value"
	"github.com/segmentio/ksuid"
	"sync"
)

// transaction buffers the writes of one partition until commit.
type transaction struct {
	entity    string
	partition value.Value

	mu      sync.Mutex
	pending []func()
}

// StartTransaction opens a transaction on one partition of entity, which is a table or
// a table group.
func (e *Engine) StartTransaction(entity string, partitionKey value.Value) (string, error) {
	var kind value.Kind
	if t, ok := e.tables.Load(entity); ok {
		kind = t.meta.PrimaryKey[0].Type
	} else if k, ok := e.groups.Load(entity); ok {
		kind = k
	} else {
		return "", apierr.NewServiceError(apierr.CodeObjectNotExist, apierr.MessageTableMissing)
	}
	if partitionKey.Kind != kind || partitionKey.Validate() != nil {
		return "", apierr.NewServiceError(apierr.CodeMetaNotMatch, "The partition key type does not match with the entity.")
	}

	id := ksuid.New().String()
	e.txs.Store(id, &transaction{entity: entity, partition: partitionKey})
	return id, nil
}

// Change is one write of BatchModify. Puts use Entry.Row and Entry.Checking, deletes
// use the primary key of Entry.Row and Entry.ColumnNames.
type Change struct {
	Type  store.ModifyType
	Entry row.BatchEntry
}

// BatchModify buffers several writes in one transaction. Either every change is
// accepted or none is.
func (e *Engine) BatchModify(tableName string, changes []Change, transactionID string) error {
	if err := validTransactionID(transactionID); err != nil {
		return err
	}
	t, err := e.table(tableName)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		return apierr.NewServiceError(apierr.CodeParameterInvalid, "No modification is specified.")
	}

	var tx *transaction
	fns := make([]func(), len(changes))
	for i, c := range changes {
		switch c.Type {
		case store.ModifyPut:
			fns[i], err = preparePut(t, c.Entry.Row, c.Entry.Checking)
		case store.ModifyDelete:
			fns[i], err = prepareDelete(t, c.Entry.Row.PrimaryKey, c.Entry.ColumnNames)
		default:
			err = apierr.NewServiceError(apierr.CodeParameterInvalid, "Modify type "+string(c.Type)+" is invalid.")
		}
		if err != nil {
			return err
		}
		if tx, err = e.lookupTransaction(t, c.Entry.Row.PrimaryKey, transactionID); err != nil {
			return err
		}
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.pending = append(tx.pending, fns...)
	return nil
}

// CommitTransaction applies the buffered writes in order and closes the transaction.
func (e *Engine) CommitTransaction(transactionID string) error {
	tx, err := e.takeTransaction(transactionID)
	if err != nil {
		return err
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()
	for _, fn := range tx.pending {
		fn()
	}
	tx.pending = nil
	return nil
}

// AbortTransaction discards the buffered writes and closes the transaction.
func (e *Engine) AbortTransaction(transactionID string) error {
	_, err := e.takeTransaction(transactionID)
	return err
}

// takeTransaction removes a transaction, so every handle can be used only once.
func (e *Engine) takeTransaction(transactionID string) (*transaction, error) {
	if err := validTransactionID(transactionID); err != nil {
		return nil, err
	}
	tx, ok := e.txs.LoadAndDelete(transactionID)
	if !ok {
		return nil, apierr.NewServiceError(apierr.CodeSessionNotExist, apierr.MessageSessionNotExist)
	}
	return tx, nil
}

func validTransactionID(transactionID string) error {
	if _, err := ksuid.Parse(transactionID); err != nil {
		return apierr.NewServiceError(apierr.CodeParameterInvalid, apierr.MessageInvalidTransactionID)
	}
	return nil
}

// lookupTransaction returns the open transaction for a row of t with primary key pk.
func (e *Engine) lookupTransaction(t *table, pk []row.NamedValue, transactionID string) (*transaction, error) {
	if err := validTransactionID(transactionID); err != nil {
		return nil, err
	}
	tx, ok := e.txs.Load(transactionID)
	if !ok {
		return nil, apierr.NewServiceError(apierr.CodeSessionNotExist, apierr.MessageSessionNotExist)
	}
	if tx.entity != t.meta.Name && tx.entity != t.meta.TableGroupName {
		return nil, apierr.NewServiceError(apierr.CodeParameterInvalid, "The table does not belong to the entity of the transaction.")
	}
	if len(pk) == 0 || compareValues(pk[0].Value, tx.partition) != 0 {
		return nil, apierr.NewServiceError(apierr.CodeParameterInvalid, "The partition key does not match with the transaction.")
	}
	return tx, nil
}

// checkTransaction validates the transaction of a read. Reads see committed state.
func (e *Engine) checkTransaction(t *table, pk []row.NamedValue, transactionID string) error {
	if transactionID == "" {
		return nil
	}
	_, err := e.lookupTransaction(t, pk, transactionID)
	return err
}

// apply runs fn now, or buffers it in the transaction.
func (e *Engine) apply(t *table, pk []row.NamedValue, transactionID string, fn func()) error {
	if transactionID == "" {
		fn()
		return nil
	}
	tx, err := e.lookupTransaction(t, pk, transactionID)
	if err != nil {
		return err
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.pending = append(tx.pending, fn)
	return nil
}
