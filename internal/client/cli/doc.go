// Package cli provides the interactive rollcall capture terminal.
//
// It wires configuration, the local database, the ledger client and the
// capture components, then runs a REPL. A background watcher pings the
// ledger and replays the offline queue when connectivity returns; the
// prompt shows the connectivity mode and how many captures are waiting.
//
// Typical operator flow:
//
//	events            list events open for capture
//	use 1             select the first event
//	dir in            record time-in
//	scan P1001        record a scanned badge as Present
//	find cruz         search members by name
//	pick 2            choose the second result
//	mark late         record the chosen member as Late
//	confirm | cancel  decide a conflict
//
// The REPL is started via App.Run(ctx), which blocks until the operator
// exits. See runREPL for the full command list.
package cli
