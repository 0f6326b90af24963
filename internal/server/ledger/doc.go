// Package ledger is the reference attendance ledger served to capture
// terminals. It keeps at most one value per (event, person, direction)
// address and only replaces it when the caller explicitly asks to
// overwrite.
package ledger
