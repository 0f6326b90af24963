// Package services adapts the ledger client to the capture domain.
//
// LedgerService delivers one CaptureRequest and classifies the reply into an
// attendance.Outcome. It never retries; retrying is the offline queue's job.
// DirectoryService lists events open for capture and keeps the last list in
// the metadata store for offline use. IdentityService searches members for
// the manual path and resolves scanned codes for the scan path.
package services
