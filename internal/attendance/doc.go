// Package attendance holds the data model shared by every part of the
// capture pipeline: the ledger address, the capture request, the tagged
// outcome of one delivery attempt, and the durable queue item.
//
// An address (event, person, direction) identifies one ledger slot. The
// ledger keeps at most one value per address unless a request carries
// Overwrite, and Overwrite is only ever set by an operator decision.
package attendance
