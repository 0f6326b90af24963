package services

import (
	"context"

	"github.com/dmitrijs2005/rollcall/internal/wire"
)

type fakeClient struct {
	recordCalls []wire.RecordRequest
	recordResp  wire.RecordResponse
	recordErr   error
	// blockUntilDone makes RecordAttendance wait for ctx expiry.
	blockUntilDone bool

	events    []wire.Event
	eventsErr error

	members    []wire.Member
	membersErr error
	lastQuery  string
	lastLimit  int
}

func (f *fakeClient) Close() error                   { return nil }
func (f *fakeClient) Ping(ctx context.Context) error { return nil }

func (f *fakeClient) RecordAttendance(ctx context.Context, req wire.RecordRequest) (wire.RecordResponse, error) {
	f.recordCalls = append(f.recordCalls, req)
	if f.blockUntilDone {
		<-ctx.Done()
		return wire.RecordResponse{}, ctx.Err()
	}
	return f.recordResp, f.recordErr
}

func (f *fakeClient) ListActiveEvents(ctx context.Context) ([]wire.Event, error) {
	return f.events, f.eventsErr
}

func (f *fakeClient) FindMembers(ctx context.Context, query string, limit int) ([]wire.Member, error) {
	f.lastQuery, f.lastLimit = query, limit
	return f.members, f.membersErr
}
