package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/rollcall/internal/attendance"
	"github.com/dmitrijs2005/rollcall/internal/logging"
	"github.com/dmitrijs2005/rollcall/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSeed = Seed{
	Events: []attendance.ActiveEvent{
		{ID: "E1", Name: "Sunday Assembly", Date: "2026-03-14", Status: attendance.EventActive},
		{ID: "E2", Name: "Retreat", Date: "2026-04-01", Status: attendance.EventUpcoming},
		{ID: "E0", Name: "Kickoff", Date: "2026-01-10", Status: attendance.EventClosed},
	},
	Members: []attendance.Member{
		{ID: "P1", Name: "Ana Cruz"},
		{ID: "P2", Name: "Ben Reyes"},
		{ID: "P3", Name: "Mariana Santos"},
		{ID: "P4", Name: "Anabel Lim"},
	},
}

func newTestService(t *testing.T) (*Service, *MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository()
	require.NoError(t, testSeed.Apply(context.Background(), repo))

	manila := time.FixedZone("PHT", 8*3600)
	now := time.Date(2026, 3, 14, 1, 2, 0, 0, time.UTC)
	svc := NewService(repo, logging.Nop(),
		WithClock(func() time.Time { return now }),
		WithLocation(manila),
	)
	return svc, repo
}

func recordReq(person, value string, overwrite bool) wire.RecordRequest {
	return wire.RecordRequest{
		Action:         wire.ActionRecordAttendance,
		EventID:        "E1",
		PersonID:       person,
		Direction:      string(attendance.TimeIn),
		Status:         string(attendance.Present),
		FormattedValue: value,
		Overwrite:      overwrite,
	}
}

/*************
 * Record
 *************/

func TestService_Record_FirstWriteSucceeds(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Record(ctx, recordReq("P1", "Present - 09:02 AM", false))
	require.NoError(t, err)
	assert.Equal(t, wire.RecordResponse{Success: true, PersonName: "Ana Cruz", Time: "09:02 AM"}, resp)

	rec, err := repo.Get(ctx, attendance.Address{EventID: "E1", PersonID: "P1", Direction: attendance.TimeIn})
	require.NoError(t, err)
	assert.Equal(t, "Present - 09:02 AM", rec.Value)
	assert.NotEmpty(t, rec.ID)
}

func TestService_Record_SecondWriteConflicts(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Record(ctx, recordReq("P1", "Present - 09:02 AM", false))
	require.NoError(t, err)

	resp, err := svc.Record(ctx, recordReq("P1", "Late - 09:40 AM", false))
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.True(t, resp.AlreadyRecorded)
	assert.Equal(t, "Present - 09:02 AM", resp.ExistingValue)

	rec, err := repo.Get(ctx, attendance.Address{EventID: "E1", PersonID: "P1", Direction: attendance.TimeIn})
	require.NoError(t, err)
	assert.Equal(t, "Present - 09:02 AM", rec.Value)
}

func TestService_Record_OverwriteReplaces(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Record(ctx, recordReq("P1", "Present - 09:02 AM", false))
	require.NoError(t, err)

	resp, err := svc.Record(ctx, recordReq("P1", "Late - 09:40 AM", true))
	require.NoError(t, err)
	assert.True(t, resp.Success)

	rec, err := repo.Get(ctx, attendance.Address{EventID: "E1", PersonID: "P1", Direction: attendance.TimeIn})
	require.NoError(t, err)
	assert.Equal(t, "Late - 09:40 AM", rec.Value)
}

func TestService_Record_DirectionsAreSeparateAddresses(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Record(ctx, recordReq("P1", "Present - 09:02 AM", false))
	require.NoError(t, err)

	out := recordReq("P1", "Present - 05:00 PM", false)
	out.Direction = string(attendance.TimeOut)
	resp, err := svc.Record(ctx, out)
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestService_Record_Rejections(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name   string
		mutate func(*wire.RecordRequest)
		msg    string
	}{
		{"unknown event", func(r *wire.RecordRequest) { r.EventID = "E9" }, MsgUnknownEvent},
		{"upcoming event", func(r *wire.RecordRequest) { r.EventID = "E2" }, MsgEventNotActive},
		{"closed event", func(r *wire.RecordRequest) { r.EventID = "E0" }, MsgEventNotActive},
		{"unknown member", func(r *wire.RecordRequest) { r.PersonID = "P404" }, MsgUnknownMember},
		{"bad direction", func(r *wire.RecordRequest) { r.Direction = "sideways" }, MsgInvalidDir},
		{"bad status", func(r *wire.RecordRequest) { r.Status = "Asleep" }, MsgInvalidStatus},
		{"missing value", func(r *wire.RecordRequest) { r.FormattedValue = " " }, MsgMissingValue},
		{"unknown action", func(r *wire.RecordRequest) { r.Action = "deleteAttendance" }, MsgUnknownAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := recordReq("P1", "Present - 09:02 AM", false)
			tt.mutate(&req)

			resp, err := svc.Record(context.Background(), req)
			require.NoError(t, err)
			assert.False(t, resp.Success)
			assert.False(t, resp.AlreadyRecorded)
			assert.Contains(t, resp.Message, tt.msg)
		})
	}
}

func TestService_Record_ConcurrentFirstWritesRecordOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := svc.Record(ctx, recordReq("P2", "Present - 09:02 AM", false))
			assert.NoError(t, err)
			mu.Lock()
			defer mu.Unlock()
			if resp.Success {
				successes++
			}
			if resp.AlreadyRecorded {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
}

type failingRepo struct {
	*MemoryRepository
}

func (failingRepo) Put(context.Context, Record, bool) (string, error) {
	return "", errors.New("disk on fire")
}

func TestService_Record_RepositoryFailureIsAnError(t *testing.T) {
	_, mem := newTestService(t)
	svc := NewService(failingRepo{mem}, logging.Nop())

	_, err := svc.Record(context.Background(), recordReq("P1", "Present - 09:02 AM", false))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}

/*************
 * Directory and search
 *************/

func TestService_ListActiveEvents(t *testing.T) {
	svc, _ := newTestService(t)

	events, err := svc.ListActiveEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "E1", events[0].ID)
}

func TestService_FindMembers_Ranked(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	found, err := svc.FindMembers(ctx, "ana", 0)
	require.NoError(t, err)
	ids := make([]string, 0, len(found))
	for _, m := range found {
		ids = append(ids, m.ID)
	}
	// prefixes first, then substrings
	assert.Equal(t, []string{"P1", "P4", "P3"}, ids)

	found, err = svc.FindMembers(ctx, "p2", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Ben Reyes", found[0].Name)

	found, err = svc.FindMembers(ctx, "ana", 1)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	found, err = svc.FindMembers(ctx, "  ", 5)
	require.NoError(t, err)
	assert.Empty(t, found)
}
