package serializer

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/otsc/lib/row"
	"github.com/ValentinKolb/otsc/lib/store"
	"github.com/ValentinKolb/otsc/lib/value"
	"github.com/ValentinKolb/otsc/rpc/common"
	"google.golang.org/protobuf/encoding/protowire"
)

// ErrUnsupportedOperation is returned if a serializer has no encoding for an operation.
var ErrUnsupportedOperation = errors.New("operation not supported by serializer")

// NewProtobufSerializer creates the serializer of the 2013 generation. Messages are
// written with the protobuf wire format directly, field numbers follow the service
// schema (see doc.go).
func NewProtobufSerializer() IRPCServerSerializer {
	return &protobufSerializerImpl{}
}

type protobufSerializerImpl struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (s *protobufSerializerImpl) Generation() common.Generation { return common.Generation2013 }

func (s *protobufSerializerImpl) ContentType() string { return "application/x-protobuf" }

func (s *protobufSerializerImpl) SerializeRequest(msg common.Message) ([]byte, error) {
	switch msg.Op {
	case common.OpCreateTableGroup:
		b := appendString(nil, 1, msg.TableGroupName)
		return appendVarint(b, 2, uint64(msg.PartitionKeyType)), nil

	case common.OpDeleteTableGroup:
		return appendString(nil, 1, msg.TableGroupName), nil

	case common.OpListTableGroup, common.OpListTable:
		return []byte{}, nil

	case common.OpCreateTable:
		if msg.TableMeta == nil {
			return nil, fmt.Errorf("%w: %s without table meta", ErrWireFormat, msg.Op)
		}
		return appendMessage(nil, 1, encodeTableMeta(*msg.TableMeta)), nil

	case common.OpDeleteTable, common.OpGetTableMeta:
		return appendString(nil, 1, msg.TableName), nil

	case common.OpStartTransaction:
		if msg.PartitionKey == nil {
			return nil, fmt.Errorf("%w: %s without partition key", ErrWireFormat, msg.Op)
		}
		v, err := encodeValue(*msg.PartitionKey)
		if err != nil {
			return nil, err
		}
		b := appendString(nil, 1, msg.EntityName)
		return appendMessage(b, 2, v), nil

	case common.OpCommitTransaction, common.OpAbortTransaction:
		return appendString(nil, 1, msg.TransactionID), nil

	case common.OpPutRow:
		if msg.Row == nil {
			return nil, fmt.Errorf("%w: %s without row", ErrWireFormat, msg.Op)
		}
		r, err := encodeRow(*msg.Row)
		if err != nil {
			return nil, err
		}
		checking, err := checkingNumber(msg.Checking)
		if err != nil {
			return nil, err
		}
		b := appendString(nil, 1, msg.TableName)
		b = appendMessage(b, 2, r)
		b = appendVarint(b, 3, checking)
		return appendOptString(b, 4, msg.TransactionID), nil

	case common.OpGetRow, common.OpDeleteRow:
		b, err := appendColumns(appendString(nil, 1, msg.TableName), 2, msg.PrimaryKey)
		if err != nil {
			return nil, err
		}
		b = appendStrings(b, 3, msg.ColumnNames)
		return appendOptString(b, 4, msg.TransactionID), nil

	case common.OpMultiGetRow, common.OpMultiPutRow, common.OpMultiDeleteRow:
		b := []byte{}
		for i, e := range msg.Entries {
			item, err := encodeBatchEntry(e)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			b = appendMessage(b, 1, item)
		}
		return b, nil

	case common.OpGetRowsByRange:
		if msg.Range == nil {
			return nil, fmt.Errorf("%w: %s without range", ErrWireFormat, msg.Op)
		}
		return encodeRange(msg.TableName, *msg.Range, msg.TransactionID)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperation, msg.Op)
}

func (s *protobufSerializerImpl) DeserializeResponse(op common.Operation, b []byte, msg *common.Message) error {
	msg.Op = op
	switch op {
	case common.OpListTableGroup, common.OpListTable:
		return parseFields(b, func(f field) error {
			if f.num != 1 {
				return nil
			}
			name, err := f.str()
			msg.Names = append(msg.Names, name)
			return err
		})

	case common.OpGetTableMeta:
		return parseFields(b, func(f field) error {
			if f.num != 1 {
				return nil
			}
			raw, err := f.bytes()
			if err != nil {
				return err
			}
			meta, err := decodeTableMeta(raw)
			msg.TableMeta = &meta
			return err
		})

	case common.OpStartTransaction:
		return parseFields(b, func(f field) error {
			if f.num != 1 {
				return nil
			}
			id, err := f.str()
			msg.TransactionID = id
			return err
		})

	case common.OpGetRow:
		return parseFields(b, func(f field) error {
			if f.num != 1 {
				return nil
			}
			raw, err := f.bytes()
			if err != nil {
				return err
			}
			r, err := decodeRow(raw)
			msg.Row = &r
			return err
		})

	case common.OpMultiGetRow:
		return parseFields(b, func(f field) error {
			if f.num != 1 {
				return nil
			}
			raw, err := f.bytes()
			if err != nil {
				return err
			}
			res, err := decodeRowResult(raw)
			msg.Results = append(msg.Results, res)
			return err
		})

	case common.OpMultiPutRow, common.OpMultiDeleteRow:
		return parseFields(b, func(f field) error {
			if f.num != 1 {
				return nil
			}
			raw, err := f.bytes()
			if err != nil {
				return err
			}
			e, err := decodeError(raw)
			msg.Results = append(msg.Results, row.WireResult{
				Succeeded: e.Code == "" || e.Code == "OK",
				Code:      e.Code,
				Message:   e.Message,
			})
			return err
		})

	case common.OpGetRowsByRange:
		return parseFields(b, func(f field) error {
			switch f.num {
			case 1:
				raw, err := f.bytes()
				if err != nil {
					return err
				}
				r, err := decodeRow(raw)
				msg.Rows = append(msg.Rows, r)
				return err
			case 2:
				token, err := f.str()
				msg.NextToken = token
				return err
			}
			return nil
		})
	}
	// operations without response body
	return nil
}

func (s *protobufSerializerImpl) DeserializeError(b []byte) (*common.ErrorMessage, error) {
	e, err := decodeError(b)
	if err != nil {
		return nil, err
	}
	if e.Code == "" {
		return nil, fmt.Errorf("%w: error without code", ErrWireFormat)
	}
	return &e, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCServerSerializer)
// --------------------------------------------------------------------------

func (s *protobufSerializerImpl) DeserializeRequest(op common.Operation, b []byte, msg *common.Message) error {
	msg.Op = op
	switch op {
	case common.OpCreateTableGroup:
		return parseFields(b, func(f field) (err error) {
			switch f.num {
			case 1:
				msg.TableGroupName, err = f.str()
			case 2:
				var k uint64
				k, err = f.uint()
				msg.PartitionKeyType = value.Kind(k)
			}
			return err
		})

	case common.OpDeleteTableGroup:
		return parseFields(b, func(f field) (err error) {
			if f.num == 1 {
				msg.TableGroupName, err = f.str()
			}
			return err
		})

	case common.OpListTableGroup, common.OpListTable:
		return nil

	case common.OpCreateTable:
		err := parseFields(b, func(f field) error {
			if f.num != 1 {
				return nil
			}
			raw, err := f.bytes()
			if err != nil {
				return err
			}
			meta, err := decodeTableMeta(raw)
			msg.TableMeta = &meta
			msg.TableName = meta.Name
			return err
		})
		if err == nil && msg.TableMeta == nil {
			err = fmt.Errorf("%w: %s without table meta", ErrWireFormat, op)
		}
		return err

	case common.OpDeleteTable, common.OpGetTableMeta:
		return parseFields(b, func(f field) (err error) {
			if f.num == 1 {
				msg.TableName, err = f.str()
			}
			return err
		})

	case common.OpStartTransaction:
		err := parseFields(b, func(f field) error {
			switch f.num {
			case 1:
				name, err := f.str()
				msg.EntityName = name
				return err
			case 2:
				raw, err := f.bytes()
				if err != nil {
					return err
				}
				v, err := decodeValue(raw)
				msg.PartitionKey = &v
				return err
			}
			return nil
		})
		if err == nil && msg.PartitionKey == nil {
			err = fmt.Errorf("%w: %s without partition key", ErrWireFormat, op)
		}
		return err

	case common.OpCommitTransaction, common.OpAbortTransaction:
		return parseFields(b, func(f field) (err error) {
			if f.num == 1 {
				msg.TransactionID, err = f.str()
			}
			return err
		})

	case common.OpPutRow:
		err := parseFields(b, func(f field) error {
			switch f.num {
			case 1:
				name, err := f.str()
				msg.TableName = name
				return err
			case 2:
				raw, err := f.bytes()
				if err != nil {
					return err
				}
				r, err := decodeRow(raw)
				msg.Row = &r
				return err
			case 3:
				n, err := f.uint()
				if err != nil {
					return err
				}
				msg.Checking, err = checkingFromNumber(n)
				return err
			case 4:
				id, err := f.str()
				msg.TransactionID = id
				return err
			}
			return nil
		})
		if err == nil && msg.Row == nil {
			err = fmt.Errorf("%w: %s without row", ErrWireFormat, op)
		}
		if msg.Checking == "" {
			msg.Checking = row.CheckingNo
		}
		return err

	case common.OpGetRow, common.OpDeleteRow:
		return parseFields(b, func(f field) error {
			switch f.num {
			case 1:
				name, err := f.str()
				msg.TableName = name
				return err
			case 2:
				raw, err := f.bytes()
				if err != nil {
					return err
				}
				col, err := decodeColumn(raw)
				msg.PrimaryKey = append(msg.PrimaryKey, col)
				return err
			case 3:
				name, err := f.str()
				msg.ColumnNames = append(msg.ColumnNames, name)
				return err
			case 4:
				id, err := f.str()
				msg.TransactionID = id
				return err
			}
			return nil
		})

	case common.OpMultiGetRow, common.OpMultiPutRow, common.OpMultiDeleteRow:
		return parseFields(b, func(f field) error {
			if f.num != 1 {
				return nil
			}
			raw, err := f.bytes()
			if err != nil {
				return err
			}
			e, err := decodeBatchEntry(raw)
			msg.Entries = append(msg.Entries, e)
			if msg.TableName == "" {
				msg.TableName = e.Table
			}
			return err
		})

	case common.OpGetRowsByRange:
		return decodeRange(b, msg)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedOperation, op)
}

func (s *protobufSerializerImpl) SerializeResponse(msg common.Message) ([]byte, error) {
	switch msg.Op {
	case common.OpListTableGroup, common.OpListTable:
		return appendStrings([]byte{}, 1, msg.Names), nil

	case common.OpGetTableMeta:
		if msg.TableMeta == nil {
			return nil, fmt.Errorf("%w: %s without table meta", ErrWireFormat, msg.Op)
		}
		return appendMessage(nil, 1, encodeTableMeta(*msg.TableMeta)), nil

	case common.OpStartTransaction:
		return appendString(nil, 1, msg.TransactionID), nil

	case common.OpGetRow:
		if msg.Row == nil {
			return []byte{}, nil
		}
		r, err := encodeRow(*msg.Row)
		if err != nil {
			return nil, err
		}
		return appendMessage(nil, 1, r), nil

	case common.OpMultiGetRow:
		b := []byte{}
		for _, res := range msg.Results {
			item, err := encodeRowResult(res)
			if err != nil {
				return nil, err
			}
			b = appendMessage(b, 1, item)
		}
		return b, nil

	case common.OpMultiPutRow, common.OpMultiDeleteRow:
		b := []byte{}
		for _, res := range msg.Results {
			e := common.ErrorMessage{Code: "OK"}
			if !res.Succeeded {
				e = common.ErrorMessage{Code: res.Code, Message: res.Message}
			}
			b = appendMessage(b, 1, encodeError(e))
		}
		return b, nil

	case common.OpGetRowsByRange:
		b := []byte{}
		for _, r := range msg.Rows {
			rb, err := encodeRow(r)
			if err != nil {
				return nil, err
			}
			b = appendMessage(b, 1, rb)
		}
		return appendOptString(b, 2, msg.NextToken), nil
	}
	return []byte{}, nil
}

func (s *protobufSerializerImpl) SerializeError(e common.ErrorMessage) ([]byte, error) {
	return encodeError(e), nil
}

// --------------------------------------------------------------------------
// Message helper
// --------------------------------------------------------------------------

func checkingNumber(c row.Checking) (uint64, error) {
	switch c {
	case "", row.CheckingNo:
		return 0, nil
	case row.CheckingInsert:
		return 1, nil
	case row.CheckingUpdate:
		return 2, nil
	}
	return 0, fmt.Errorf("%w: unknown checking %q", ErrWireFormat, c)
}

func checkingFromNumber(n uint64) (row.Checking, error) {
	switch n {
	case 0:
		return row.CheckingNo, nil
	case 1:
		return row.CheckingInsert, nil
	case 2:
		return row.CheckingUpdate, nil
	}
	return "", fmt.Errorf("%w: unknown checking %d", ErrWireFormat, n)
}

// Error: 1 code, 2 message
func encodeError(e common.ErrorMessage) []byte {
	b := appendString(nil, 1, e.Code)
	return appendOptString(b, 2, e.Message)
}

func decodeError(b []byte) (common.ErrorMessage, error) {
	var e common.ErrorMessage
	err := parseFields(b, func(f field) (err error) {
		switch f.num {
		case 1:
			e.Code, err = f.str()
		case 2:
			e.Message, err = f.str()
		}
		return err
	})
	return e, err
}

// ColumnSchema: 1 name, 2 type
func appendSchemas(b []byte, num protowire.Number, cols []store.ColumnSchema) []byte {
	for _, c := range cols {
		sub := appendString(nil, 1, c.Name)
		sub = appendVarint(sub, 2, uint64(c.Type))
		b = appendMessage(b, num, sub)
	}
	return b
}

func decodeSchema(b []byte) (store.ColumnSchema, error) {
	var c store.ColumnSchema
	err := parseFields(b, func(f field) (err error) {
		switch f.num {
		case 1:
			c.Name, err = f.str()
		case 2:
			var k uint64
			k, err = f.uint()
			c.Type = value.Kind(k)
		}
		return err
	})
	return c, err
}

// TableMeta: 1 table_name, 2 primary_keys, 3 views, 4 paging_key_len, 5 table_group_name
// ViewMeta:  1 view_name, 2 primary_keys, 3 columns, 4 paging_key_len
func encodeTableMeta(meta store.TableMeta) []byte {
	b := appendString(nil, 1, meta.Name)
	b = appendSchemas(b, 2, meta.PrimaryKey)
	for _, v := range meta.Views {
		vb := appendString(nil, 1, v.Name)
		vb = appendSchemas(vb, 2, v.PrimaryKey)
		vb = appendSchemas(vb, 3, v.Columns)
		if v.PagingKeyLen > 0 {
			vb = appendVarint(vb, 4, uint64(v.PagingKeyLen))
		}
		b = appendMessage(b, 3, vb)
	}
	if meta.PagingKeyLen > 0 {
		b = appendVarint(b, 4, uint64(meta.PagingKeyLen))
	}
	return appendOptString(b, 5, meta.TableGroupName)
}

func decodeTableMeta(b []byte) (store.TableMeta, error) {
	var meta store.TableMeta
	err := parseFields(b, func(f field) error {
		switch f.num {
		case 1:
			name, err := f.str()
			meta.Name = name
			return err
		case 2:
			raw, err := f.bytes()
			if err != nil {
				return err
			}
			c, err := decodeSchema(raw)
			meta.PrimaryKey = append(meta.PrimaryKey, c)
			return err
		case 3:
			raw, err := f.bytes()
			if err != nil {
				return err
			}
			v, err := decodeViewMeta(raw)
			meta.Views = append(meta.Views, v)
			return err
		case 4:
			n, err := f.uint()
			meta.PagingKeyLen = int(n)
			return err
		case 5:
			name, err := f.str()
			meta.TableGroupName = name
			return err
		}
		return nil
	})
	return meta, err
}

func decodeViewMeta(b []byte) (store.ViewMeta, error) {
	var v store.ViewMeta
	err := parseFields(b, func(f field) error {
		switch f.num {
		case 1:
			name, err := f.str()
			v.Name = name
			return err
		case 2, 3:
			raw, err := f.bytes()
			if err != nil {
				return err
			}
			c, err := decodeSchema(raw)
			if f.num == 2 {
				v.PrimaryKey = append(v.PrimaryKey, c)
			} else {
				v.Columns = append(v.Columns, c)
			}
			return err
		case 4:
			n, err := f.uint()
			v.PagingKeyLen = int(n)
			return err
		}
		return nil
	})
	return v, err
}

// BatchItem: 1 table_name, 2 row, 3 column_names, 4 checking
func encodeBatchEntry(e row.BatchEntry) ([]byte, error) {
	r, err := encodeRow(e.Row)
	if err != nil {
		return nil, err
	}
	b := appendString(nil, 1, e.Table)
	b = appendMessage(b, 2, r)
	b = appendStrings(b, 3, e.ColumnNames)
	if e.Checking != "" {
		checking, err := checkingNumber(e.Checking)
		if err != nil {
			return nil, err
		}
		b = appendVarint(b, 4, checking)
	}
	return b, nil
}

func decodeBatchEntry(b []byte) (row.BatchEntry, error) {
	var e row.BatchEntry
	err := parseFields(b, func(f field) error {
		switch f.num {
		case 1:
			name, err := f.str()
			e.Table = name
			return err
		case 2:
			raw, err := f.bytes()
			if err != nil {
				return err
			}
			e.Row, err = decodeRow(raw)
			return err
		case 3:
			name, err := f.str()
			e.ColumnNames = append(e.ColumnNames, name)
			return err
		case 4:
			n, err := f.uint()
			if err != nil {
				return err
			}
			e.Checking, err = checkingFromNumber(n)
			return err
		}
		return nil
	})
	return e, err
}

// RowResultItem: 1 is_succeed, 2 error, 3 table_name, 4 row
func encodeRowResult(res row.WireResult) ([]byte, error) {
	b := appendBool(nil, 1, res.Succeeded)
	if !res.Succeeded {
		b = appendMessage(b, 2, encodeError(common.ErrorMessage{Code: res.Code, Message: res.Message}))
	}
	b = appendOptString(b, 3, res.Table)
	if res.Row != nil {
		r, err := encodeRow(*res.Row)
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 4, r)
	}
	return b, nil
}

func decodeRowResult(b []byte) (row.WireResult, error) {
	var res row.WireResult
	err := parseFields(b, func(f field) error {
		switch f.num {
		case 1:
			ok, err := f.boolean()
			res.Succeeded = ok
			return err
		case 2:
			raw, err := f.bytes()
			if err != nil {
				return err
			}
			e, err := decodeError(raw)
			res.Code, res.Message = e.Code, e.Message
			return err
		case 3:
			name, err := f.str()
			res.Table = name
			return err
		case 4:
			raw, err := f.bytes()
			if err != nil {
				return err
			}
			r, err := decodeRow(raw)
			res.Row = &r
			return err
		}
		return nil
	})
	return res, err
}

// GetRowsByRangeRequest: 1 table_name, 2 primary_key_prefix, 3 range_key_name,
// 4 range_begin, 5 range_end, 6 column_names, 7 is_reverse, 8 limit, 9 next_token,
// 10 transaction_id
func encodeRange(table string, spec row.RangeSpec, transactionID string) ([]byte, error) {
	b, err := appendColumns(appendString(nil, 1, table), 2, spec.PrimaryKeyPrefix)
	if err != nil {
		return nil, err
	}
	b = appendString(b, 3, spec.KeyName)
	begin, err := encodeValue(spec.Begin)
	if err != nil {
		return nil, fmt.Errorf("range begin: %w", err)
	}
	end, err := encodeValue(spec.End)
	if err != nil {
		return nil, fmt.Errorf("range end: %w", err)
	}
	b = appendMessage(b, 4, begin)
	b = appendMessage(b, 5, end)
	b = appendStrings(b, 6, spec.Columns)
	if spec.Reverse {
		b = appendBool(b, 7, true)
	}
	if spec.Limit > 0 {
		b = appendVarint(b, 8, uint64(spec.Limit))
	}
	b = appendOptString(b, 9, spec.NextToken)
	return appendOptString(b, 10, transactionID), nil
}

func decodeRange(b []byte, msg *common.Message) error {
	spec := row.RangeSpec{}
	var hasBegin, hasEnd bool
	err := parseFields(b, func(f field) error {
		switch f.num {
		case 1:
			name, err := f.str()
			msg.TableName = name
			return err
		case 2:
			raw, err := f.bytes()
			if err != nil {
				return err
			}
			col, err := decodeColumn(raw)
			spec.PrimaryKeyPrefix = append(spec.PrimaryKeyPrefix, col)
			return err
		case 3:
			name, err := f.str()
			spec.KeyName = name
			return err
		case 4, 5:
			raw, err := f.bytes()
			if err != nil {
				return err
			}
			v, err := decodeValue(raw)
			if f.num == 4 {
				spec.Begin, hasBegin = v, true
			} else {
				spec.End, hasEnd = v, true
			}
			return err
		case 6:
			name, err := f.str()
			spec.Columns = append(spec.Columns, name)
			return err
		case 7:
			reverse, err := f.boolean()
			spec.Reverse = reverse
			return err
		case 8:
			n, err := f.uint()
			spec.Limit = int(n)
			return err
		case 9:
			token, err := f.str()
			spec.NextToken = token
			return err
		case 10:
			id, err := f.str()
			msg.TransactionID = id
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !hasBegin || !hasEnd {
		return fmt.Errorf("%w: range without bounds", ErrWireFormat)
	}
	msg.Range = &spec
	return nil
}
