package ledger

import (
	"context"
	"time"

	"github.com/dmitrijs2005/rollcall/internal/attendance"
)

// Record is one stored ledger value.
type Record struct {
	ID         string
	Address    attendance.Address
	Status     attendance.Status
	Value      string
	RecordedAt time.Time
}

// Repository persists the event directory, the member roster and the
// recorded values.
//
// Put stores rec at its address. When the address already holds a value and
// overwrite is false, nothing is written and Put returns the stored value
// together with common.ErrAlreadyExists. The check and the write are atomic.
type Repository interface {
	UpsertEvent(ctx context.Context, e attendance.ActiveEvent) error
	UpsertMember(ctx context.Context, m attendance.Member) error

	GetEvent(ctx context.Context, id string) (attendance.ActiveEvent, error)
	ListEvents(ctx context.Context) ([]attendance.ActiveEvent, error)
	GetMember(ctx context.Context, id string) (attendance.Member, error)
	SearchMembers(ctx context.Context, query string) ([]attendance.Member, error)

	Put(ctx context.Context, rec Record, overwrite bool) (existing string, err error)
	Get(ctx context.Context, addr attendance.Address) (Record, error)
}
