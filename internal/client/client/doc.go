// Package client contains the capture terminal's connection to the ledger.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface):
//     RecordAttendance, ListActiveEvents, FindMembers, Ping.
//  2. A gRPC implementation (see GRPCClient) that carries the wire messages
//     as google.protobuf.Struct values and maps gRPC status codes to
//     sentinel errors.
//  3. Local persistence bootstrap (InitDatabase) that opens the terminal's
//     SQLite file and applies the embedded goose migrations.
//
// # Error Handling
//
// ErrUnavailable marks transport-level failures (unreachable server,
// deadline exceeded); callers treat those as "network unavailable" and
// queue the capture. ErrRejected marks RPC-level refusals. Anything else is
// wrapped as "rpc error".
package client
