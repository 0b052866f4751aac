package serializer

import (
	"encoding/xml"
	"fmt"
	"github.com/ValentinKolb/otsc/lib/row"
	"github.com/ValentinKolb/otsc/lib/sign"
	"github.com/ValentinKolb/otsc/lib/store"
	"github.com/ValentinKolb/otsc/lib/value"
	"github.com/ValentinKolb/otsc/rpc/common"
	"strconv"
	"strings"
)

var operations = common.NewOperationTable()

// NewFormSerializer creates the serializer of the legacy generation. Requests are
// flat parameter lists (PK.1.Name=uid&PK.1.Value=...), responses are XML documents.
func NewFormSerializer() ILegacySerializer {
	return &formSerializerImpl{}
}

type formSerializerImpl struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IParamSerializer)
// --------------------------------------------------------------------------

func (s *formSerializerImpl) Generation() common.Generation { return common.GenerationLegacy }

func (s *formSerializerImpl) ContentType() string { return "application/x-www-form-urlencoded" }

func (s *formSerializerImpl) SerializeRequest(msg common.Message) ([]byte, error) {
	params, err := s.RequestParams(msg)
	if err != nil {
		return nil, err
	}
	return []byte(sign.SignedRequest{Params: params}.Encode()), nil
}

func (s *formSerializerImpl) RequestParams(msg common.Message) ([]sign.Param, error) {
	var params []sign.Param
	switch msg.Op {
	case common.OpListTable:
		return params, nil

	case common.OpDeleteTable:
		return append(params, sign.Param{Name: "TableName", Value: msg.TableName}), nil

	case common.OpStartTransaction:
		if msg.PartitionKey == nil {
			return nil, fmt.Errorf("%w: %s without partition key", ErrWireFormat, msg.Op)
		}
		return append(params,
			sign.Param{Name: "EntityName", Value: msg.EntityName},
			sign.Param{Name: "PartitionKeyValue", Value: msg.PartitionKey.Literal()},
			sign.Param{Name: "PartitionKeyType", Value: msg.PartitionKey.Base.String()},
		), nil

	case common.OpCommitTransaction, common.OpAbortTransaction:
		return append(params, sign.Param{Name: "TransactionID", Value: msg.TransactionID}), nil

	case common.OpPutRow:
		if msg.Row == nil {
			return nil, fmt.Errorf("%w: %s without row", ErrWireFormat, msg.Op)
		}
		params = append(params, sign.Param{Name: "TableName", Value: msg.TableName})
		params = appendItemParams(params, "PK", msg.Row.PrimaryKey)
		params = appendItemParams(params, "Column", msg.Row.Columns)
		params = append(params, sign.Param{Name: "Checking", Value: string(checkingOrNo(msg.Checking))})
		return appendTransaction(params, msg.TransactionID), nil

	case common.OpGetRow, common.OpDeleteRow:
		params = append(params, sign.Param{Name: "TableName", Value: msg.TableName})
		params = appendItemParams(params, "PK", msg.PrimaryKey)
		params = appendNameParams(params, "Column", msg.ColumnNames)
		return appendTransaction(params, msg.TransactionID), nil

	case common.OpBatchModifyRow:
		params = append(params, sign.Param{Name: "TableName", Value: msg.TableName})
		for i, mod := range msg.Modifications {
			prefix := "Modify." + strconv.Itoa(i+1) + "."
			params = append(params, sign.Param{Name: prefix + "Type", Value: string(mod.Type)})
			params = appendItemParams(params, prefix+"PK", mod.Entry.Row.PrimaryKey)
			if mod.Type == store.ModifyPut {
				params = appendItemParams(params, prefix+"Column", mod.Entry.Row.Columns)
				params = append(params, sign.Param{Name: prefix + "Checking", Value: string(checkingOrNo(mod.Entry.Checking))})
			} else {
				params = appendNameParams(params, prefix+"Column", mod.Entry.ColumnNames)
			}
		}
		return append(params, sign.Param{Name: "TransactionID", Value: msg.TransactionID}), nil

	case common.OpGetRowsByRange:
		if msg.Range == nil {
			return nil, fmt.Errorf("%w: %s without range", ErrWireFormat, msg.Op)
		}
		spec := msg.Range
		params = append(params, sign.Param{Name: "TableName", Value: msg.TableName})
		params = appendItemParams(params, "PK", spec.PrimaryKeyPrefix)
		prefix := "PK." + strconv.Itoa(len(spec.PrimaryKeyPrefix)+1) + "."
		params = append(params,
			sign.Param{Name: prefix + "Name", Value: spec.KeyName},
			sign.Param{Name: prefix + "RangeBegin", Value: spec.Begin.Literal()},
			sign.Param{Name: prefix + "RangeEnd", Value: spec.End.Literal()},
			sign.Param{Name: prefix + "Type", Value: spec.Begin.Base.String()},
		)
		params = appendNameParams(params, "Column", spec.Columns)
		if spec.Reverse {
			params = append(params, sign.Param{Name: "IsReverse", Value: "TRUE"})
		}
		if spec.Limit > 0 {
			params = append(params, sign.Param{Name: "Top", Value: strconv.Itoa(spec.Limit)})
		}
		if spec.NextToken != "" {
			params = append(params, sign.Param{Name: "NextToken", Value: spec.NextToken})
		}
		return appendTransaction(params, msg.TransactionID), nil

	case common.OpGetRowsByOffset:
		if msg.Offset == nil {
			return nil, fmt.Errorf("%w: %s without offset", ErrWireFormat, msg.Op)
		}
		spec := msg.Offset
		params = append(params, sign.Param{Name: "TableName", Value: msg.TableName})
		params = appendItemParams(params, "Paging", spec.PagingKeys)
		params = appendNameParams(params, "Column", spec.Columns)
		params = append(params,
			sign.Param{Name: "Offset", Value: strconv.Itoa(spec.Offset)},
			sign.Param{Name: "Top", Value: strconv.Itoa(spec.Top)},
		)
		return appendTransaction(params, msg.TransactionID), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperation, msg.Op)
}

func (s *formSerializerImpl) DeserializeResponse(op common.Operation, b []byte, msg *common.Message) error {
	msg.Op = op
	switch op {
	case common.OpListTable, common.OpStartTransaction, common.OpGetRow, common.OpGetRowsByRange, common.OpGetRowsByOffset:
	default:
		return nil
	}

	var doc xmlResult
	if err := xml.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrWireFormat, err)
	}
	switch op {
	case common.OpListTable:
		msg.Names = doc.TableNames
	case common.OpStartTransaction:
		if doc.TransactionID == "" {
			return fmt.Errorf("%w: response without TransactionID", ErrWireFormat)
		}
		msg.TransactionID = doc.TransactionID
	case common.OpGetRow:
		for _, table := range doc.Tables {
			for _, xr := range table.Rows {
				r, err := xr.decode()
				if err != nil {
					return err
				}
				msg.Row = &r
			}
		}
	case common.OpGetRowsByRange, common.OpGetRowsByOffset:
		for _, table := range doc.Tables {
			for _, xr := range table.Rows {
				r, err := xr.decode()
				if err != nil {
					return err
				}
				msg.Rows = append(msg.Rows, r)
			}
		}
		msg.NextToken = doc.NextToken
	}
	return nil
}

func (s *formSerializerImpl) DeserializeError(b []byte) (*common.ErrorMessage, error) {
	var doc xmlError
	if err := xml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWireFormat, err)
	}
	if doc.Code == "" {
		return nil, fmt.Errorf("%w: error without code", ErrWireFormat)
	}
	return &common.ErrorMessage{Code: doc.Code, Message: doc.Message}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCServerSerializer)
// --------------------------------------------------------------------------

func (s *formSerializerImpl) DeserializeRequest(op common.Operation, b []byte, msg *common.Message) error {
	params, err := sign.ParseParams(string(b))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWireFormat, err)
	}
	f := formValues{}
	for _, p := range params {
		if _, dup := f[p.Name]; !dup {
			f[p.Name] = p.Value
		}
	}

	msg.Op = op
	msg.TableName = f["TableName"]
	msg.TransactionID = f["TransactionID"]
	switch op {
	case common.OpListTable, common.OpDeleteTable, common.OpCommitTransaction, common.OpAbortTransaction:
		return nil

	case common.OpStartTransaction:
		msg.EntityName = f["EntityName"]
		v, err := parseLiteral(f["PartitionKeyType"], f["PartitionKeyValue"], false)
		if err != nil {
			return fmt.Errorf("partition key: %w", err)
		}
		msg.PartitionKey = &v
		return nil

	case common.OpPutRow:
		r, err := f.row("")
		if err != nil {
			return err
		}
		msg.Row = &r
		msg.Checking, err = row.ParseChecking(f["Checking"])
		return err

	case common.OpGetRow, common.OpDeleteRow:
		msg.PrimaryKey, err = f.items("PK")
		msg.ColumnNames = f.names("Column")
		return err

	case common.OpBatchModifyRow:
		for i := 1; ; i++ {
			prefix := "Modify." + strconv.Itoa(i) + "."
			typ, ok := f[prefix+"Type"]
			if !ok {
				break
			}
			mod := common.BatchModification{Type: store.ModifyType(strings.ToUpper(typ)), Entry: row.BatchEntry{Table: msg.TableName}}
			switch mod.Type {
			case store.ModifyPut:
				if mod.Entry.Row, err = f.row(prefix); err != nil {
					return fmt.Errorf("modify %d: %w", i, err)
				}
				if mod.Entry.Checking, err = row.ParseChecking(f[prefix+"Checking"]); err != nil {
					return fmt.Errorf("modify %d: %w", i, err)
				}
			case store.ModifyDelete:
				if mod.Entry.Row.PrimaryKey, err = f.items(prefix + "PK"); err != nil {
					return fmt.Errorf("modify %d: %w", i, err)
				}
				mod.Entry.ColumnNames = f.names(prefix + "Column")
			default:
				return fmt.Errorf("%w: modify %d has unknown type %q", ErrWireFormat, i, typ)
			}
			msg.Modifications = append(msg.Modifications, mod)
		}
		return nil

	case common.OpGetRowsByRange:
		return f.rangeSpec(msg)

	case common.OpGetRowsByOffset:
		return f.offsetSpec(msg)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedOperation, op)
}

func (s *formSerializerImpl) SerializeResponse(msg common.Message) ([]byte, error) {
	doc := xmlResult{XMLName: xml.Name{Local: operations.Name(msg.Op, common.GenerationLegacy) + "Result"}}
	switch msg.Op {
	case common.OpListTable:
		doc.TableNames = msg.Names
	case common.OpStartTransaction:
		doc.TransactionID = msg.TransactionID
	case common.OpGetRow:
		table := xmlTable{Name: msg.TableName}
		if msg.Row != nil {
			table.Rows = []xmlRow{encodeXMLRow(*msg.Row)}
		}
		doc.Tables = []xmlTable{table}
	case common.OpGetRowsByRange, common.OpGetRowsByOffset:
		table := xmlTable{Name: msg.TableName}
		for _, r := range msg.Rows {
			table.Rows = append(table.Rows, encodeXMLRow(r))
		}
		doc.Tables = []xmlTable{table}
		doc.NextToken = msg.NextToken
	}
	return marshalXML(doc)
}

func (s *formSerializerImpl) SerializeError(e common.ErrorMessage) ([]byte, error) {
	return marshalXML(xmlError{Code: e.Code, Message: e.Message})
}

// --------------------------------------------------------------------------
// Parameters
// --------------------------------------------------------------------------

func checkingOrNo(c row.Checking) row.Checking {
	if c == "" {
		return row.CheckingNo
	}
	return c
}

func appendTransaction(params []sign.Param, id string) []sign.Param {
	if id == "" {
		return params
	}
	return append(params, sign.Param{Name: "TransactionID", Value: id})
}

// appendItemParams adds <prefix>.<n>.Name/Value/Type for every column, n counts from 1.
func appendItemParams(params []sign.Param, prefix string, cols []row.NamedValue) []sign.Param {
	for i, c := range cols {
		p := prefix + "." + strconv.Itoa(i+1) + "."
		params = append(params,
			sign.Param{Name: p + "Name", Value: c.Name},
			sign.Param{Name: p + "Value", Value: c.Value.Literal()},
			sign.Param{Name: p + "Type", Value: c.Value.Base.String()},
		)
	}
	return params
}

func appendNameParams(params []sign.Param, prefix string, names []string) []sign.Param {
	for i, name := range names {
		params = append(params, sign.Param{Name: prefix + "." + strconv.Itoa(i+1) + ".Name", Value: name})
	}
	return params
}

// formValues indexes received parameters by name
type formValues map[string]string

func (f formValues) names(prefix string) []string {
	var names []string
	for i := 1; ; i++ {
		name, ok := f[prefix+"."+strconv.Itoa(i)+".Name"]
		if !ok {
			return names
		}
		names = append(names, name)
	}
}

// items reads <prefix>.<n>.* until the first index without Value.
func (f formValues) items(prefix string) ([]row.NamedValue, error) {
	var items []row.NamedValue
	for i := 1; ; i++ {
		p := prefix + "." + strconv.Itoa(i) + "."
		name, hasName := f[p+"Name"]
		literal, hasValue := f[p+"Value"]
		if !hasName || !hasValue {
			return items, nil
		}
		v, err := parseLiteral(f[p+"Type"], literal, false)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", prefix, name, err)
		}
		items = append(items, row.NamedValue{Name: name, Value: v})
	}
}

func (f formValues) row(prefix string) (row.Row, error) {
	pk, err := f.items(prefix + "PK")
	if err != nil {
		return row.Row{}, err
	}
	cols, err := f.items(prefix + "Column")
	if err != nil {
		return row.Row{}, err
	}
	return row.Row{PrimaryKey: pk, Columns: cols}, nil
}

func (f formValues) rangeSpec(msg *common.Message) error {
	prefix, err := f.items("PK")
	if err != nil {
		return err
	}
	p := "PK." + strconv.Itoa(len(prefix)+1) + "."
	spec := row.RangeSpec{
		PrimaryKeyPrefix: prefix,
		KeyName:          f[p+"Name"],
		Columns:          f.names("Column"),
		NextToken:        f["NextToken"],
	}
	if spec.Begin, err = parseLiteral(f[p+"Type"], f[p+"RangeBegin"], true); err != nil {
		return fmt.Errorf("range begin: %w", err)
	}
	if spec.End, err = parseLiteral(f[p+"Type"], f[p+"RangeEnd"], true); err != nil {
		return fmt.Errorf("range end: %w", err)
	}
	if reverse, ok := f["IsReverse"]; ok {
		if spec.Reverse, err = strconv.ParseBool(reverse); err != nil {
			return fmt.Errorf("%w: IsReverse %q", ErrWireFormat, reverse)
		}
	}
	if top, ok := f["Top"]; ok {
		if spec.Limit, err = strconv.Atoi(top); err != nil {
			return fmt.Errorf("%w: Top %q", ErrWireFormat, top)
		}
	}
	msg.Range = &spec
	return nil
}

func (f formValues) offsetSpec(msg *common.Message) error {
	keys, err := f.items("Paging")
	if err != nil {
		return err
	}
	spec := row.OffsetSpec{PagingKeys: keys, Columns: f.names("Column")}
	for _, n := range []struct {
		name string
		dst  *int
	}{{"Offset", &spec.Offset}, {"Top", &spec.Top}} {
		raw, ok := f[n.name]
		if !ok {
			return fmt.Errorf("%w: missing %s", ErrWireFormat, n.name)
		}
		if *n.dst, err = strconv.Atoi(raw); err != nil {
			return fmt.Errorf("%w: %s %q", ErrWireFormat, n.name, raw)
		}
	}
	msg.Offset = &spec
	return nil
}

// parseLiteral turns a declared type name and a literal back into a wire value.
// Sentinel literals are only accepted for range bounds.
func parseLiteral(typ, literal string, allowSentinel bool) (value.Value, error) {
	kind, err := value.ParseKind(typ)
	if err != nil {
		return value.Value{}, fmt.Errorf("%w: %v", value.ErrMalformedValue, err)
	}
	if allowSentinel && kind != value.KindDouble {
		switch literal {
		case value.KindInfMin.String():
			return value.Value{Kind: value.KindInfMin, Base: kind}, nil
		case value.KindInfMax.String():
			return value.Value{Kind: value.KindInfMax, Base: kind}, nil
		}
	}
	switch kind {
	case value.KindInteger:
		n, err := value.IntegerFromLiteral(literal)
		if err != nil {
			return value.Value{}, fmt.Errorf("%w: %v", value.ErrMalformedValue, err)
		}
		return value.Integer(n), nil
	case value.KindDouble:
		d, err := strconv.ParseFloat(literal, 64)
		if err != nil {
			return value.Value{}, fmt.Errorf("%w: DOUBLE %q", value.ErrMalformedValue, literal)
		}
		return value.Double(d), nil
	case value.KindBoolean:
		switch strings.ToUpper(literal) {
		case "TRUE":
			return value.Boolean(true), nil
		case "FALSE":
			return value.Boolean(false), nil
		}
		return value.Value{}, fmt.Errorf("%w: BOOLEAN %q", value.ErrMalformedValue, literal)
	default:
		return value.String(literal), nil
	}
}

// --------------------------------------------------------------------------
// XML documents
// --------------------------------------------------------------------------

type xmlResult struct {
	XMLName       xml.Name
	TransactionID string     `xml:"TransactionID,omitempty"`
	TableNames    []string   `xml:"TableNames>TableName"`
	Tables        []xmlTable `xml:"Table"`
	NextToken     string     `xml:"NextToken,omitempty"`
}

type xmlTable struct {
	Name string   `xml:"name,attr"`
	Rows []xmlRow `xml:"Row"`
}

type xmlRow struct {
	Columns []xmlColumn `xml:"Column"`
}

type xmlColumn struct {
	PK    bool     `xml:"PK,attr,omitempty"`
	Name  string   `xml:"Name"`
	Value xmlValue `xml:"Value"`
}

type xmlValue struct {
	Type string `xml:"type,attr"`
	Text string `xml:",chardata"`
}

type xmlError struct {
	XMLName   xml.Name `xml:"Error"`
	Code      string   `xml:"Code"`
	Message   string   `xml:"Message"`
	RequestID string   `xml:"RequestID,omitempty"`
	HostID    string   `xml:"HostID,omitempty"`
}

func (xr xmlRow) decode() (row.Row, error) {
	var r row.Row
	for _, col := range xr.Columns {
		v, err := parseLiteral(col.Value.Type, col.Value.Text, false)
		if err != nil {
			return row.Row{}, fmt.Errorf("column %s: %w", col.Name, err)
		}
		nv := row.NamedValue{Name: col.Name, Value: v}
		if col.PK {
			r.PrimaryKey = append(r.PrimaryKey, nv)
		} else {
			r.Columns = append(r.Columns, nv)
		}
	}
	return r, nil
}

func encodeXMLRow(r row.Row) xmlRow {
	xr := xmlRow{Columns: make([]xmlColumn, 0, len(r.PrimaryKey)+len(r.Columns))}
	for _, pk := range r.PrimaryKey {
		xr.Columns = append(xr.Columns, xmlColumn{PK: true, Name: pk.Name, Value: xmlValue{Type: pk.Value.Kind.String(), Text: pk.Value.Literal()}})
	}
	for _, col := range r.Columns {
		xr.Columns = append(xr.Columns, xmlColumn{Name: col.Name, Value: xmlValue{Type: col.Value.Kind.String(), Text: col.Value.Literal()}})
	}
	return xr
}

func marshalXML(doc any) ([]byte, error) {
	b, err := xml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), b...), nil
}
