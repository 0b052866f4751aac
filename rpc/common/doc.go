// Package common provides the data structures and utilities shared by the client,
// the serializers, the transports and the emulator.
//
// The package focuses on:
//   - The Message envelope passed between the client, the serializers and the emulator
//   - The immutable operation catalog (OperationTable)
//   - Configuration structures for the client and the emulator
//   - Custom logging implementation integrated with Dragonboat's logger package
//
// Key Components:
//
//   - Message: one struct for all requests and responses. Which fields are used
//     depends on the Operation; factory functions build well formed messages.
//
//   - Operation / OperationTable: the catalog of remote operations with their wire
//     names per protocol generation, whether a success response carries a body, and
//     the row ceilings of batch operations. The table is built once with
//     NewOperationTable and passed by reference; there is no global registry.
//
//   - Generation: the protocol generation switch. Generation2013 sends binary framed
//     bodies signed in the x-ots-* headers and decodes safe integers as numbers;
//     GenerationLegacy sends URL-encoded parameters with a Signature parameter and
//     decodes every integer as decimal text.
//
//   - ClientConfig: credentials, endpoints, protocol constants, timeout (default
//     5000 ms) and DNS cache time (default 10000 ms).
//
//   - ServerConfig: listen address, host id and credentials of the emulator.
//
//   - Logger: a dragonboat logger.ILogger implementation with the
//     "LEVEL | name | message" format, installed by InitLoggers.
package common
