// Package offline keeps captures that could not reach the ledger and
// replays them when connectivity returns.
//
// Queue is the only writer of the queue store. Items are keyed by ledger
// address; enqueueing the same address again replaces the stored item and
// gives it a fresh ID. Replay delivers without holding the store lock and
// then checks the ID again, so an item replaced while its delivery was in
// flight is never removed by that delivery.
//
// Replay outcomes:
//
//   - Recorded: the item is deleted.
//   - Conflict: the item moves to review with the ledger's existing value
//     and waits for ConfirmReview or CancelReview.
//   - network failure: the item stays pending with its attempt count bumped,
//     and the pass stops.
//   - any other failure: the item moves to dead_letter and waits for
//     Requeue or Discard.
//
// Nothing is deleted on attempt count alone.
package offline
