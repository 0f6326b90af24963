// Package metadata is the terminal's local cache of ledger state, kept in
// the same database as the offline queue. It holds the last event directory
// fetched from the ledger and the operator's sticky selections, so the
// terminal can start and keep capturing while the ledger is unreachable.
//
// Key Types
//
//   - type Repository        : keyed cache entries stamped with a save time
//   - type SQLiteRepository  : durable implementation over dbx.DBTX
//   - type MemoryRepository  : in-process implementation
//   - type Directory         : cached list of active events
//   - type Selection         : event, direction and status that survive a restart
package metadata
