package session

import "github.com/dmitrijs2005/rollcall/internal/attendance"

// State is the session's current phase. It is exactly one of Idle,
// Selecting, Submitting, Succeeded, Conflicted, QueuedOffline or Failed.
type State interface {
	Name() string
	state()
}

// Idle means no capture is in progress. Sticky selections may still be set.
type Idle struct{}

// Selecting means the operator is assembling a capture.
type Selecting struct{}

// Submitting means a delivery is in flight.
type Submitting struct {
	Request attendance.CaptureRequest
}

type Succeeded struct {
	Request  attendance.CaptureRequest
	Recorded attendance.Recorded
}

// Conflicted waits for ConfirmOverwrite or CancelConflict.
type Conflicted struct {
	Request       attendance.CaptureRequest
	ExistingValue string
	Message       string
}

// QueuedOffline means the ledger was unreachable and the request is in the
// offline queue.
type QueuedOffline struct {
	Item attendance.QueuedItem
}

type Failed struct {
	Request attendance.CaptureRequest
	Reason  string
}

func (Idle) Name() string          { return "idle" }
func (Selecting) Name() string     { return "selecting" }
func (Submitting) Name() string    { return "submitting" }
func (Succeeded) Name() string     { return "succeeded" }
func (Conflicted) Name() string    { return "conflicted" }
func (QueuedOffline) Name() string { return "queued_offline" }
func (Failed) Name() string        { return "failed" }

func (Idle) state()          {}
func (Selecting) state()     {}
func (Submitting) state()    {}
func (Succeeded) state()     {}
func (Conflicted) state()    {}
func (QueuedOffline) state() {}
func (Failed) state()        {}

// terminal reports whether s waits only for an acknowledgment.
func terminal(s State) bool {
	switch s.(type) {
	case Succeeded, QueuedOffline, Failed:
		return true
	}
	return false
}

// Selection is what the operator has chosen so far. Event, Direction and
// Status are sticky across captures; Query and Person are cleared after a
// capture leaves the terminal.
type Selection struct {
	Event     *attendance.ActiveEvent
	Direction attendance.Direction
	Status    attendance.Status

	Query  string
	Person *attendance.Member
}
