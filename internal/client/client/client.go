package client

import (
	"context"

	"github.com/dmitrijs2005/rollcall/internal/wire"
)

// Client is the transport-agnostic contract with the ledger backend.
type Client interface {
	Close() error
	Ping(ctx context.Context) error
	RecordAttendance(ctx context.Context, req wire.RecordRequest) (wire.RecordResponse, error)
	ListActiveEvents(ctx context.Context) ([]wire.Event, error)
	FindMembers(ctx context.Context, query string, limit int) ([]wire.Member, error)
}
