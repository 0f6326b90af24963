package attendance

import "time"

// QueueState is where a queued item sits in the replay lifecycle.
type QueueState string

const (
	// QueuePending items are retried on every replay pass.
	QueuePending QueueState = "pending"
	// QueueReview items hit a conflict on replay and wait for an operator.
	QueueReview QueueState = "review"
	// QueueDeadLetter items were rejected by the ledger and wait for an operator.
	QueueDeadLetter QueueState = "dead_letter"
)

// QueuedItem is a durably stored capture plus replay metadata. ID changes on
// every enqueue, so a replay can tell whether the item it delivered was
// replaced in the meantime.
type QueuedItem struct {
	ID            string
	Request       CaptureRequest
	QueuedAt      time.Time
	UpdatedAt     time.Time
	AttemptCount  int
	State         QueueState
	ExistingValue string
	LastError     string
}

func (q QueuedItem) Key() string {
	return q.Request.Address().Key()
}
