package server

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/otsc/lib/apierr"
	"github.com/ValentinKolb/otsc/lib/row"
	"github.com/ValentinKolb/otsc/lib/store/lstore"
	"github.com/ValentinKolb/otsc/rpc/common"
)

func NewTableStoreServerAdapter() IRPCServerAdapter {
	return &tableStoreServerAdapterImpl{operations: common.NewOperationTable()}
}

type tableStoreServerAdapterImpl struct {
	operations *common.OperationTable
}

func (adapter *tableStoreServerAdapterImpl) Handle(req *common.Message, engine ITableEngine) (*common.Message, error) {
	// Check for nil engine
	if engine == nil {
		return nil, errors.New("handler: engine is nil")
	}

	// Check the row ceiling of batch operations
	if spec, ok := adapter.operations.Spec(req.Op); ok && spec.MaxRows > 0 {
		n := len(req.Entries)
		if req.Op == common.OpBatchModifyRow {
			n = len(req.Modifications)
		}
		if n > spec.MaxRows {
			return nil, apierr.NewServiceError(apierr.CodeParameterInvalid, apierr.MessageRowsCountExceedsLimit)
		}
	}

	// Handle different operations
	switch req.Op {
	case common.OpCreateTableGroup:
		return common.NewEmptyResponse(req.Op), engine.CreateTableGroup(req.TableGroupName, req.PartitionKeyType)
	case common.OpDeleteTableGroup:
		return common.NewEmptyResponse(req.Op), engine.DeleteTableGroup(req.TableGroupName)
	case common.OpListTableGroup:
		return common.NewNamesResponse(req.Op, engine.ListTableGroups()), nil

	case common.OpCreateTable:
		if req.TableMeta == nil {
			return nil, apierr.NewServiceError(apierr.CodeParameterInvalid, "The table meta is missing.")
		}
		return common.NewEmptyResponse(req.Op), engine.CreateTable(*req.TableMeta)
	case common.OpDeleteTable:
		return common.NewEmptyResponse(req.Op), engine.DeleteTable(req.TableName)
	case common.OpListTable:
		return common.NewNamesResponse(req.Op, engine.ListTables()), nil
	case common.OpGetTableMeta:
		meta, err := engine.TableMeta(req.TableName)
		if err != nil {
			return nil, err
		}
		return common.NewTableMetaResponse(meta), nil

	case common.OpStartTransaction:
		if req.PartitionKey == nil {
			return nil, apierr.NewServiceError(apierr.CodeParameterInvalid, "The partition key is missing.")
		}
		id, err := engine.StartTransaction(req.EntityName, *req.PartitionKey)
		if err != nil {
			return nil, err
		}
		return common.NewStartTransactionResponse(id), nil
	case common.OpCommitTransaction:
		return common.NewEmptyResponse(req.Op), engine.CommitTransaction(req.TransactionID)
	case common.OpAbortTransaction:
		return common.NewEmptyResponse(req.Op), engine.AbortTransaction(req.TransactionID)

	case common.OpPutRow:
		if req.Row == nil {
			return nil, apierr.NewServiceError(apierr.CodeParameterInvalid, apierr.MessageMissingPrimaryKey)
		}
		return common.NewEmptyResponse(req.Op), engine.PutRow(req.TableName, *req.Row, req.Checking, req.TransactionID)
	case common.OpGetRow:
		r, err := engine.GetRow(req.TableName, req.PrimaryKey, req.ColumnNames, req.TransactionID)
		if err != nil {
			return nil, err
		}
		resp := common.NewGetRowResponse(r)
		resp.TableName = req.TableName
		return resp, nil
	case common.OpDeleteRow:
		return common.NewEmptyResponse(req.Op), engine.DeleteRow(req.TableName, req.PrimaryKey, req.ColumnNames, req.TransactionID)

	case common.OpMultiGetRow, common.OpMultiPutRow, common.OpMultiDeleteRow:
		if len(req.Entries) == 0 {
			return nil, apierr.NewServiceError(apierr.CodeParameterInvalid, "No row is specified.")
		}
		results := make([]row.WireResult, len(req.Entries))
		for i, entry := range req.Entries {
			if entry.Table == "" {
				entry.Table = req.TableName
			}
			results[i] = handleBatchEntry(req.Op, entry, engine)
		}
		return common.NewBatchResponse(req.Op, results), nil

	case common.OpBatchModifyRow:
		changes := make([]lstore.Change, len(req.Modifications))
		for i, mod := range req.Modifications {
			changes[i] = lstore.Change{Type: mod.Type, Entry: mod.Entry}
		}
		return common.NewEmptyResponse(req.Op), engine.BatchModify(req.TableName, changes, req.TransactionID)

	case common.OpGetRowsByRange:
		if req.Range == nil {
			return nil, apierr.NewServiceError(apierr.CodeParameterInvalid, "The range is missing.")
		}
		rows, next, err := engine.GetRange(req.TableName, *req.Range, req.TransactionID)
		if err != nil {
			return nil, err
		}
		resp := common.NewRangeResponse(rows, next)
		resp.TableName = req.TableName
		return resp, nil

	case common.OpGetRowsByOffset:
		if req.Offset == nil {
			return nil, apierr.NewServiceError(apierr.CodeParameterInvalid, "The paging keys are missing.")
		}
		rows, err := engine.GetOffset(req.TableName, *req.Offset, req.TransactionID)
		if err != nil {
			return nil, err
		}
		resp := common.NewOffsetResponse(rows)
		resp.TableName = req.TableName
		return resp, nil

	default:
		return nil, apierr.NewServiceError(apierr.CodeUnsupportedOperation, fmt.Sprintf("Unsupported operation: %s", req.Op))
	}
}

// handleBatchEntry runs one row of a multi row request. Failures are reported in the
// result, they never fail the request.
func handleBatchEntry(op common.Operation, entry row.BatchEntry, engine ITableEngine) row.WireResult {
	res := row.WireResult{Table: entry.Table}

	var err error
	switch op {
	case common.OpMultiGetRow:
		var r *row.Row
		if r, err = engine.GetRow(entry.Table, entry.Row.PrimaryKey, entry.ColumnNames, ""); err == nil {
			res.Row = r
		}
	case common.OpMultiPutRow:
		err = engine.PutRow(entry.Table, entry.Row, entry.Checking, "")
	case common.OpMultiDeleteRow:
		err = engine.DeleteRow(entry.Table, entry.Row.PrimaryKey, entry.ColumnNames, "")
	}

	if err != nil {
		e := serviceError(err)
		res.Code, res.Message = e.Code, e.Message
		return res
	}
	res.Succeeded = true
	return res
}

// serviceError returns err as a service error. Errors outside the taxonomy become
// OTSParameterInvalid.
func serviceError(err error) *apierr.ServiceError {
	var svc *apierr.ServiceError
	if errors.As(err, &svc) {
		return svc
	}
	return apierr.NewServiceError(apierr.CodeParameterInvalid, err.Error())
}
