package attendance

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/rollcall/internal/common"
)

// Direction says which side of attendance a capture records.
type Direction string

const (
	TimeIn  Direction = "timeIn"
	TimeOut Direction = "timeOut"
)

// ParseDirection accepts the wire names as well as the short operator
// forms "in" and "out".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "timein", "time-in", "time_in", "in":
		return TimeIn, nil
	case "timeout", "time-out", "time_out", "out":
		return TimeOut, nil
	}
	return "", fmt.Errorf("%w: unknown direction %q", common.ErrInvalidArgument, s)
}

func (d Direction) Valid() bool {
	return d == TimeIn || d == TimeOut
}

// Status is the attendance classification written to the ledger.
type Status string

const (
	Present Status = "Present"
	Late    Status = "Late"
	Absent  Status = "Absent"
	Excused Status = "Excused"
)

var statuses = []Status{Present, Late, Absent, Excused}

// ParseStatus matches a status name case-insensitively.
func ParseStatus(s string) (Status, error) {
	for _, st := range statuses {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown status %q", common.ErrInvalidArgument, s)
}

func (s Status) Valid() bool {
	for _, st := range statuses {
		if s == st {
			return true
		}
	}
	return false
}

// EventStatus is the lifecycle state published by the event directory.
type EventStatus string

const (
	EventActive   EventStatus = "Active"
	EventUpcoming EventStatus = "Upcoming"
	EventClosed   EventStatus = "Closed"
)

// ActiveEvent is the read-only projection of an event directory entry.
type ActiveEvent struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Date   string      `json:"date"`
	Status EventStatus `json:"status"`
}

// IsActive reports whether the event accepts new captures.
func (e ActiveEvent) IsActive() bool {
	return strings.EqualFold(string(e.Status), string(EventActive))
}

// FilterActive keeps only events in Active status, preserving order.
func FilterActive(events []ActiveEvent) []ActiveEvent {
	out := make([]ActiveEvent, 0, len(events))
	for _, e := range events {
		if e.IsActive() {
			out = append(out, e)
		}
	}
	return out
}

// Member is one identity returned by the member lookup.
type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Address is the ledger slot a capture targets.
type Address struct {
	EventID   string
	PersonID  string
	Direction Direction
}

// keyEscaper keeps the separator out of key parts.
var keyEscaper = strings.NewReplacer("%", "%25", "|", "%7C")

// Key is the dedup key used by the offline queue. Parts are escaped before
// joining, so distinct addresses never share a key.
func (a Address) Key() string {
	return keyEscaper.Replace(a.EventID) + "|" +
		keyEscaper.Replace(a.PersonID) + "|" +
		keyEscaper.Replace(string(a.Direction))
}

func (a Address) String() string {
	return fmt.Sprintf("event=%s person=%s direction=%s", a.EventID, a.PersonID, a.Direction)
}

// CaptureRequest is the unit of work submitted to the ledger. FormattedValue
// is computed once when the request is built and never recomputed.
type CaptureRequest struct {
	EventID        string    `json:"eventId"`
	PersonID       string    `json:"personId"`
	Direction      Direction `json:"direction"`
	Status         Status    `json:"status"`
	FormattedValue string    `json:"formattedValue"`
	Overwrite      bool      `json:"overwrite"`
}

// NewCaptureRequest builds a first-attempt request stamped at the given
// instant in loc.
func NewCaptureRequest(eventID, personID string, d Direction, s Status, at time.Time, loc *time.Location) (CaptureRequest, error) {
	req := CaptureRequest{
		EventID:        strings.TrimSpace(eventID),
		PersonID:       strings.TrimSpace(personID),
		Direction:      d,
		Status:         s,
		FormattedValue: FormatValue(s, at, loc),
	}
	if err := req.Validate(); err != nil {
		return CaptureRequest{}, err
	}
	return req, nil
}

func (r CaptureRequest) Address() Address {
	return Address{EventID: r.EventID, PersonID: r.PersonID, Direction: r.Direction}
}

// WithOverwrite returns a copy of r that is allowed to replace an existing
// ledger value.
func (r CaptureRequest) WithOverwrite() CaptureRequest {
	r.Overwrite = true
	return r
}

// Validate checks that every field needed by the ledger is present.
func (r CaptureRequest) Validate() error {
	switch {
	case r.EventID == "":
		return fmt.Errorf("%w: event id is required", common.ErrInvalidArgument)
	case r.PersonID == "":
		return fmt.Errorf("%w: person id is required", common.ErrInvalidArgument)
	case !r.Direction.Valid():
		return fmt.Errorf("%w: unknown direction %q", common.ErrInvalidArgument, r.Direction)
	case !r.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", common.ErrInvalidArgument, r.Status)
	case r.FormattedValue == "":
		return fmt.Errorf("%w: formatted value is required", common.ErrInvalidArgument)
	}
	return nil
}

// FormatValue renders the ledger value for status at t, e.g.
// "Present - 09:02 AM". A nil loc means UTC.
func FormatValue(s Status, t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return fmt.Sprintf("%s - %s", s, t.In(loc).Format("03:04 PM"))
}
