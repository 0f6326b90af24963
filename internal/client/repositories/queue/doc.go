// Package queue persists the terminal's offline capture queue.
//
// Items are keyed by their ledger address (event, person, direction), so
// storing a second capture for the same address replaces the first. The
// replay policy lives in internal/client/offline; this package only stores
// and lists items.
//
// Key Types
//
//   - type Store             : interface used by the offline queue
//   - type SQLiteRepository  : durable implementation over dbx.DBTX
//   - type MemoryRepository  : in-process implementation
package queue
