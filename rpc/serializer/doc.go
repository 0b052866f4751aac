// Package serializer turns common.Message values into request and response bodies of
// the two protocol generations and back.
//
// Key Components:
//
//   - IRPCSerializer: client side contract. The client serializes requests and decodes
//     success and error bodies with it.
//
//   - IParamSerializer: client side contract of the legacy generation. Its requests are
//     parameter lists that are signed before they are encoded.
//
//   - IRPCServerSerializer / ILegacySerializer: the opposite direction, used by the
//     emulator in rpc/server.
//
//   - protobufSerializerImpl: the 2013 generation. Messages are written with
//     google.golang.org/protobuf/encoding/protowire, no generated code is involved.
//     Field numbers:
//
//     ColumnValue   1 type, 2 v_int, 3 v_string, 4 v_bool, 5 v_double
//     Column        1 name, 2 value
//     Row           1 primary_keys, 2 columns
//     Error         1 code, 2 message
//     ColumnSchema  1 name, 2 type
//     TableMeta     1 table_name, 2 primary_keys, 3 views, 4 paging_key_len, 5 table_group_name
//     BatchItem     1 table_name, 2 row, 3 column_names, 4 checking
//     RowResultItem 1 is_succeed, 2 error, 3 table_name, 4 row
//
//   - formSerializerImpl: the legacy generation. Requests use the PK.n.Name,
//     PK.n.Value, PK.n.Type (and Column.n.*, Modify.n.*) parameter families, responses
//     and errors are XML documents.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use.
//
// Usage:
//
//	s := serializer.ForGeneration(common.Generation2013)
//	body, err := s.SerializeRequest(*common.NewGetRowRequest("users", pk, nil, ""))
//	// ... send body ...
//	var res common.Message
//	err = s.DeserializeResponse(common.OpGetRow, received, &res)
package serializer
