package session

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/rollcall/internal/attendance"
	"github.com/dmitrijs2005/rollcall/internal/client/offline"
	"github.com/dmitrijs2005/rollcall/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/rollcall/internal/client/repositories/queue"
	"github.com/dmitrijs2005/rollcall/internal/common"
	"github.com/dmitrijs2005/rollcall/internal/logging"
	"github.com/stretchr/testify/require"
)

/*************
 * Fakes
 *************/

// memLedger keeps at most one value per address unless overwrite is set.
type memLedger struct {
	mu      sync.Mutex
	values  map[string]string
	offline bool
	reject  string
	calls   []attendance.CaptureRequest
	// gate, when set, blocks Deliver until closed.
	gate chan struct{}
}

func newMemLedger() *memLedger {
	return &memLedger{values: map[string]string{}}
}

func (l *memLedger) Deliver(ctx context.Context, req attendance.CaptureRequest) attendance.Outcome {
	l.mu.Lock()
	gate := l.gate
	l.calls = append(l.calls, req)
	l.mu.Unlock()

	if gate != nil {
		<-gate
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.offline {
		return attendance.Failed{Kind: attendance.FailureNetwork, Reason: "server unavailable"}
	}
	if l.reject != "" {
		return attendance.Failed{Kind: attendance.FailureRejected, Reason: l.reject}
	}
	key := req.Address().Key()
	if existing, ok := l.values[key]; ok && !req.Overwrite {
		return attendance.Conflict{ExistingValue: existing}
	}
	l.values[key] = req.FormattedValue
	_, clock, _ := strings.Cut(req.FormattedValue, " - ")
	return attendance.Recorded{PersonName: "Member " + req.PersonID, Time: clock}
}

func (l *memLedger) set(fn func(l *memLedger)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l)
}

func (l *memLedger) value(eventID, personID string, d attendance.Direction) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.values[attendance.Address{EventID: eventID, PersonID: personID, Direction: d}.Key()]
}

func (l *memLedger) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

type codeResolver struct{}

func (codeResolver) ResolveCode(ctx context.Context, code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", common.ErrIdentityUnresolved
	}
	return code, nil
}

/*************
 * Helpers
 *************/

var (
	manila = time.FixedZone("PHT", 8*60*60)
	e1     = attendance.ActiveEvent{ID: "E1", Name: "Assembly", Date: "2026-03-14", Status: attendance.EventActive}
)

type harness struct {
	ledger  *memLedger
	queue   *offline.Queue
	session *Session
	now     time.Time
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		ledger: newMemLedger(),
		now:    time.Date(2026, 3, 14, 1, 2, 0, 0, time.UTC), // 09:02 in Manila
	}
	h.queue = offline.New(queue.NewMemoryRepository(), h.ledger, logging.Nop())
	base := []Option{WithClock(func() time.Time { return h.now }), WithLocation(manila)}
	h.session = New(h.ledger, h.queue, codeResolver{}, logging.Nop(), append(base, opts...)...)
	require.NoError(t, h.session.SelectEvent(context.Background(), e1))
	return h
}

/*************
 * Scenarios
 *************/

func TestScenarioA_ScanRecordsAndClears(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.session.SetQuery("ana"))

	st, err := h.session.SubmitScan(ctx, "P1")
	require.NoError(t, err)

	ok, isOK := st.(Succeeded)
	require.True(t, isOK, "got %T", st)
	require.Equal(t, "Member P1", ok.Recorded.PersonName)
	require.Equal(t, "09:02 AM", ok.Recorded.Time)
	require.Equal(t, "Present - 09:02 AM", h.ledger.value("E1", "P1", attendance.TimeIn))

	sel := h.session.Selection()
	require.Empty(t, sel.Query)
	require.Nil(t, sel.Person)
	require.NotNil(t, sel.Event)
	require.Equal(t, "E1", sel.Event.ID)
}

func TestScenarioB_ConflictThenConfirmOverwrite(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.session.SubmitScan(ctx, "P1")
	require.NoError(t, err)

	h.now = h.now.Add(38 * time.Minute)
	require.NoError(t, h.session.ChoosePerson(attendance.Member{ID: "P1", Name: "Ana"}))
	require.NoError(t, h.session.SelectStatus(ctx, attendance.Late))

	st, err := h.session.SubmitChosen(ctx)
	require.NoError(t, err)
	c, isConflict := st.(Conflicted)
	require.True(t, isConflict, "got %T", st)
	require.Equal(t, "Present - 09:02 AM", c.ExistingValue)
	require.Equal(t, "Late - 09:40 AM", c.Request.FormattedValue)

	// selections survive a conflict
	sel := h.session.Selection()
	require.NotNil(t, sel.Person)
	require.Equal(t, "P1", sel.Person.ID)

	// ledger untouched until the operator decides
	require.Equal(t, "Present - 09:02 AM", h.ledger.value("E1", "P1", attendance.TimeIn))

	st, err = h.session.ConfirmOverwrite(ctx)
	require.NoError(t, err)
	require.IsType(t, Succeeded{}, st)
	require.Equal(t, "Late - 09:40 AM", h.ledger.value("E1", "P1", attendance.TimeIn))

	last := h.ledger.calls[len(h.ledger.calls)-1]
	require.True(t, last.Overwrite)
	require.Equal(t, "Late - 09:40 AM", last.FormattedValue)
}

func TestScenarioC_OfflineCaptureReplays(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.ledger.set(func(l *memLedger) { l.offline = true })

	st, err := h.session.Submit(ctx, "P2", attendance.TimeOut, attendance.Present)
	require.NoError(t, err)
	q, isQueued := st.(QueuedOffline)
	require.True(t, isQueued, "got %T", st)
	require.Equal(t, "E1|P2|timeOut", q.Item.Key())

	c, err := h.queue.Counts(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, c.Pending)

	h.ledger.set(func(l *memLedger) { l.offline = false })
	rep, err := h.queue.Replay(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, rep.Recorded)

	c, err = h.queue.Counts(ctx)
	require.NoError(t, err)
	require.Zero(t, c.Total())
	require.Equal(t, "Present - 09:02 AM", h.ledger.value("E1", "P2", attendance.TimeOut))
}

func TestScenarioD_ReplayConflictHeldForReview(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.ledger.set(func(l *memLedger) { l.offline = true })

	_, err := h.session.Submit(ctx, "P1", attendance.TimeIn, attendance.Present)
	require.NoError(t, err)

	// another terminal writes the same address while this one is offline
	h.ledger.set(func(l *memLedger) {
		l.offline = false
		l.values["E1|P1|timeIn"] = "Late - 09:10 AM"
	})

	rep, err := h.queue.Replay(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, rep.Review)
	require.Equal(t, "Late - 09:10 AM", h.ledger.value("E1", "P1", attendance.TimeIn))

	items, err := h.queue.Items(ctx, attendance.QueueReview)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Late - 09:10 AM", items[0].ExistingValue)
}

/*************
 * Properties
 *************/

func TestSubmit_ConcurrentCallIsBusy(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	gate := make(chan struct{})
	h.ledger.set(func(l *memLedger) { l.gate = gate })

	done := make(chan State, 1)
	go func() {
		st, _ := h.session.Submit(ctx, "P1", attendance.TimeIn, attendance.Present)
		done <- st
	}()

	require.Eventually(t, func() bool {
		_, ok := h.session.State().(Submitting)
		return ok
	}, time.Second, time.Millisecond)

	_, err := h.session.Submit(ctx, "P1", attendance.TimeIn, attendance.Present)
	require.ErrorIs(t, err, common.ErrBusy)
	_, err = h.session.SubmitScan(ctx, "P3")
	require.ErrorIs(t, err, common.ErrBusy)
	require.ErrorIs(t, h.session.SelectEvent(ctx, e1), common.ErrBusy)
	_, err = h.session.Acknowledge()
	require.ErrorIs(t, err, common.ErrBusy)

	close(gate)
	require.IsType(t, Succeeded{}, <-done)
	require.Equal(t, 1, h.ledger.callCount())
}

func TestConflict_BlocksNewCaptures(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.ledger.set(func(l *memLedger) { l.values["E1|P1|timeIn"] = "Present - 08:00 AM" })

	st, err := h.session.Submit(ctx, "P1", attendance.TimeIn, attendance.Present)
	require.NoError(t, err)
	require.IsType(t, Conflicted{}, st)

	_, err = h.session.Submit(ctx, "P9", attendance.TimeIn, attendance.Present)
	require.ErrorIs(t, err, common.ErrConflictPending)
	require.ErrorIs(t, h.session.SelectEvent(ctx, e1), common.ErrConflictPending)
	_, err = h.session.Acknowledge()
	require.ErrorIs(t, err, common.ErrConflictPending)
	require.Equal(t, 1, h.ledger.callCount())
}

func TestCancelConflict_LeavesLedgerAndQueueUntouched(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.ledger.set(func(l *memLedger) { l.values["E1|P1|timeIn"] = "Present - 08:00 AM" })
	require.NoError(t, h.session.ChoosePerson(attendance.Member{ID: "P1"}))

	_, err := h.session.SubmitChosen(ctx)
	require.NoError(t, err)

	st, err := h.session.CancelConflict(ctx)
	require.NoError(t, err)
	require.IsType(t, Selecting{}, st)
	require.Equal(t, "Present - 08:00 AM", h.ledger.value("E1", "P1", attendance.TimeIn))
	require.Equal(t, 1, h.ledger.callCount())

	c, err := h.queue.Counts(ctx)
	require.NoError(t, err)
	require.Zero(t, c.Total())

	require.NotNil(t, h.session.Selection().Person)

	_, err = h.session.ConfirmOverwrite(ctx)
	require.ErrorIs(t, err, common.ErrNoConflict)
	_, err = h.session.CancelConflict(ctx)
	require.ErrorIs(t, err, common.ErrNoConflict)
}

func TestConfirmOverwrite_OfflineQueuesOverwrite(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.ledger.set(func(l *memLedger) { l.values["E1|P1|timeIn"] = "Present - 08:00 AM" })

	_, err := h.session.Submit(ctx, "P1", attendance.TimeIn, attendance.Late)
	require.NoError(t, err)

	h.ledger.set(func(l *memLedger) { l.offline = true })
	st, err := h.session.ConfirmOverwrite(ctx)
	require.NoError(t, err)
	q, ok := st.(QueuedOffline)
	require.True(t, ok, "got %T", st)
	require.True(t, q.Item.Request.Overwrite)

	h.ledger.set(func(l *memLedger) { l.offline = false })
	_, err = h.queue.Replay(ctx)
	require.NoError(t, err)
	require.Equal(t, "Late - 09:02 AM", h.ledger.value("E1", "P1", attendance.TimeIn))
}

func TestSubmit_RejectionIsFailedAndNotQueued(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.ledger.set(func(l *memLedger) { l.reject = "unknown member" })

	st, err := h.session.Submit(ctx, "P404", attendance.TimeIn, attendance.Present)
	require.NoError(t, err)
	f, ok := st.(Failed)
	require.True(t, ok, "got %T", st)
	require.Equal(t, "unknown member", f.Reason)

	c, err := h.queue.Counts(ctx)
	require.NoError(t, err)
	require.Zero(t, c.Total())

	st, err = h.session.Acknowledge()
	require.NoError(t, err)
	require.IsType(t, Idle{}, st)
}

func TestSelectEvent_OnlyActive(t *testing.T) {
	s := New(newMemLedger(), nil, codeResolver{}, logging.Nop())
	ctx := context.Background()

	for _, st := range []attendance.EventStatus{attendance.EventUpcoming, attendance.EventClosed, ""} {
		err := s.SelectEvent(ctx, attendance.ActiveEvent{ID: "E2", Status: st})
		require.ErrorIs(t, err, common.ErrInvalidSelection)
	}
	require.IsType(t, Idle{}, s.State())
	require.Nil(t, s.Selection().Event)
}

func TestSubmit_RequiresEventAndIdentity(t *testing.T) {
	ctx := context.Background()
	l := newMemLedger()
	s := New(l, nil, codeResolver{}, logging.Nop())

	_, err := s.Submit(ctx, "P1", attendance.TimeIn, attendance.Present)
	require.ErrorIs(t, err, common.ErrInvalidSelection)

	require.NoError(t, s.SelectEvent(ctx, e1))
	_, err = s.Submit(ctx, "", attendance.TimeIn, attendance.Present)
	require.ErrorIs(t, err, common.ErrIdentityUnresolved)
	_, err = s.SubmitScan(ctx, "   ")
	require.ErrorIs(t, err, common.ErrIdentityUnresolved)
	_, err = s.SubmitChosen(ctx)
	require.ErrorIs(t, err, common.ErrIdentityUnresolved)
	_, err = s.Submit(ctx, "P1", "sideways", attendance.Present)
	require.ErrorIs(t, err, common.ErrInvalidSelection)

	require.Zero(t, l.callCount())
	require.IsType(t, Selecting{}, s.State())
}

func TestSubmit_ImplicitlyAcknowledgesFinishedCapture(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.session.SubmitScan(ctx, "P1")
	require.NoError(t, err)
	st, err := h.session.SubmitScan(ctx, "P2")
	require.NoError(t, err)
	require.IsType(t, Succeeded{}, st)

	st, err = h.session.Acknowledge()
	require.NoError(t, err)
	require.IsType(t, Idle{}, st)
}

func TestSelections_PersistAndRestore(t *testing.T) {
	ctx := context.Background()
	md := metadata.NewMemoryRepository()

	h := newHarness(t, WithSelectionStore(md))
	require.NoError(t, h.session.SelectDirection(ctx, attendance.TimeOut))
	require.NoError(t, h.session.SelectStatus(ctx, attendance.Excused))

	fresh := New(newMemLedger(), nil, codeResolver{}, logging.Nop(), WithSelectionStore(md))
	require.NoError(t, fresh.Restore(ctx, []attendance.ActiveEvent{e1}))
	sel := fresh.Selection()
	require.NotNil(t, sel.Event)
	require.Equal(t, "E1", sel.Event.ID)
	require.Equal(t, attendance.TimeOut, sel.Direction)
	require.Equal(t, attendance.Excused, sel.Status)

	closed := New(newMemLedger(), nil, codeResolver{}, logging.Nop(), WithSelectionStore(md))
	require.NoError(t, closed.Restore(ctx, nil))
	require.Nil(t, closed.Selection().Event)
	require.Equal(t, attendance.TimeOut, closed.Selection().Direction)
}
