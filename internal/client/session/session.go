// Package session drives one capture at a time for a terminal.
//
// A Session holds the operator's selections and an explicit State. Submit
// builds a CaptureRequest, hands it to the ledger and moves to Succeeded,
// Conflicted, QueuedOffline or Failed. Only one submission may be in flight;
// concurrent calls get common.ErrBusy. A conflict blocks further captures
// until the operator confirms the overwrite or cancels it.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/rollcall/internal/attendance"
	"github.com/dmitrijs2005/rollcall/internal/client/conflict"
	"github.com/dmitrijs2005/rollcall/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/rollcall/internal/common"
	"github.com/dmitrijs2005/rollcall/internal/logging"
)

// Enqueuer stores a request for later replay.
type Enqueuer interface {
	Enqueue(ctx context.Context, req attendance.CaptureRequest) (attendance.QueuedItem, error)
}

// IdentityResolver turns a scanned code into a person ID.
type IdentityResolver interface {
	ResolveCode(ctx context.Context, code string) (string, error)
}

type Option func(*Session)

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithLocation sets the zone formatted values are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(s *Session) { s.loc = loc }
}

// WithSelectionStore persists sticky selections in the terminal cache.
func WithSelectionStore(md metadata.Repository) Option {
	return func(s *Session) { s.store = md }
}

type Session struct {
	ledger   conflict.Deliverer
	queue    Enqueuer
	identity IdentityResolver
	store    metadata.Repository
	now      func() time.Time
	loc      *time.Location
	log      logging.Logger

	mu       sync.Mutex
	sel      Selection
	state    State
	resolver *conflict.Resolver
}

func New(ledger conflict.Deliverer, queue Enqueuer, identity IdentityResolver, log logging.Logger, opts ...Option) *Session {
	s := &Session{
		ledger:   ledger,
		queue:    queue,
		identity: identity,
		now:      time.Now,
		loc:      time.UTC,
		log:      log.With("module", "session"),
		sel:      Selection{Direction: attendance.TimeIn, Status: attendance.Present},
		state:    Idle{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Selection returns a copy of the current selections.
func (s *Session) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel := s.sel
	if sel.Event != nil {
		ev := *sel.Event
		sel.Event = &ev
	}
	if sel.Person != nil {
		p := *sel.Person
		sel.Person = &p
	}
	return sel
}

// Restore reloads sticky selections saved by an earlier run. A saved event
// is kept only if it appears in active.
func (s *Session) Restore(ctx context.Context, active []attendance.ActiveEvent) error {
	if s.store == nil {
		return nil
	}
	saved, ok, err := metadata.LoadSelection(ctx, s.store)
	if err != nil || !ok {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if saved.Direction.Valid() {
		s.sel.Direction = saved.Direction
	}
	if saved.Status.Valid() {
		s.sel.Status = saved.Status
	}
	s.sel.Event = nil
	if saved.EventID != "" {
		for _, ev := range attendance.FilterActive(active) {
			if ev.ID == saved.EventID {
				s.sel.Event = &ev
				break
			}
		}
	}
	return nil
}

// editable checks that selections may change in the current state. The
// caller holds mu.
func (s *Session) editable() error {
	switch s.state.(type) {
	case Submitting:
		return common.ErrBusy
	case Conflicted:
		return common.ErrConflictPending
	}
	return nil
}

// touch moves an idle or finished session to Selecting. The caller holds mu.
func (s *Session) touch() {
	switch s.state.(type) {
	case Idle, Succeeded, QueuedOffline, Failed:
		s.state = Selecting{}
	}
}

func (s *Session) persist(ctx context.Context) {
	if s.store == nil {
		return
	}
	saved := metadata.Selection{Direction: s.sel.Direction, Status: s.sel.Status}
	if s.sel.Event != nil {
		saved.EventID = s.sel.Event.ID
	}
	if err := metadata.SaveSelection(ctx, s.store, saved, s.now()); err != nil {
		s.log.Warn(ctx, "saving selection failed", "error", err)
	}
}

// SelectEvent makes ev the target of following captures. Only Active events
// can be selected.
func (s *Session) SelectEvent(ctx context.Context, ev attendance.ActiveEvent) error {
	if !ev.IsActive() {
		return fmt.Errorf("%w: event %s is %s", common.ErrInvalidSelection, ev.ID, ev.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.sel.Event = &ev
	s.touch()
	s.persist(ctx)
	return nil
}

func (s *Session) SelectDirection(ctx context.Context, d attendance.Direction) error {
	if !d.Valid() {
		return fmt.Errorf("%w: direction %q", common.ErrInvalidSelection, d)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.sel.Direction = d
	s.touch()
	s.persist(ctx)
	return nil
}

func (s *Session) SelectStatus(ctx context.Context, st attendance.Status) error {
	if !st.Valid() {
		return fmt.Errorf("%w: status %q", common.ErrInvalidSelection, st)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.sel.Status = st
	s.touch()
	s.persist(ctx)
	return nil
}

// SetQuery records the operator's search text.
func (s *Session) SetQuery(q string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.sel.Query = q
	s.touch()
	return nil
}

// ChoosePerson sets the identity the next manual capture is for.
func (s *Session) ChoosePerson(m attendance.Member) error {
	if m.ID == "" {
		return common.ErrIdentityUnresolved
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.sel.Person = &m
	s.touch()
	return nil
}

// Submit records personID in direction d with status st for the selected
// event. It returns the state the session moved to.
func (s *Session) Submit(ctx context.Context, personID string, d attendance.Direction, st attendance.Status) (State, error) {
	req, err := s.begin(personID, d, st)
	if err != nil {
		return nil, err
	}
	out := s.ledger.Deliver(ctx, req)
	return s.finish(ctx, req, out), nil
}

// SubmitChosen submits the chosen person with the sticky direction and
// status.
func (s *Session) SubmitChosen(ctx context.Context) (State, error) {
	sel := s.Selection()
	if sel.Person == nil {
		return nil, fmt.Errorf("%w: no person chosen", common.ErrIdentityUnresolved)
	}
	return s.Submit(ctx, sel.Person.ID, sel.Direction, sel.Status)
}

// SubmitScan resolves a scanned code and records it as Present with the
// sticky direction.
func (s *Session) SubmitScan(ctx context.Context, code string) (State, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	personID, err := s.identity.ResolveCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.Submit(ctx, personID, s.Selection().Direction, attendance.Present)
}

// ready reports whether a new capture may start.
func (s *Session) ready() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editable()
}

// begin validates a new capture and moves to Submitting.
func (s *Session) begin(personID string, d attendance.Direction, st attendance.Status) (attendance.CaptureRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editable(); err != nil {
		return attendance.CaptureRequest{}, err
	}
	if s.sel.Event == nil {
		return attendance.CaptureRequest{}, fmt.Errorf("%w: no event selected", common.ErrInvalidSelection)
	}
	if personID == "" {
		return attendance.CaptureRequest{}, common.ErrIdentityUnresolved
	}
	if !d.Valid() || !st.Valid() {
		return attendance.CaptureRequest{}, fmt.Errorf("%w: direction %q status %q", common.ErrInvalidSelection, d, st)
	}

	req, err := attendance.NewCaptureRequest(s.sel.Event.ID, personID, d, st, s.now(), s.loc)
	if err != nil {
		return attendance.CaptureRequest{}, fmt.Errorf("%w: %w", common.ErrInvalidSelection, err)
	}
	s.state = Submitting{Request: req}
	return req, nil
}

// finish applies a delivery outcome and returns the new state.
func (s *Session) finish(ctx context.Context, req attendance.CaptureRequest, out attendance.Outcome) State {
	var queued *attendance.QueuedItem
	var queueErr error
	if f, ok := out.(attendance.Failed); ok && f.NetworkUnavailable() {
		it, err := s.queue.Enqueue(ctx, req)
		if err == nil {
			queued = &it
		}
		queueErr = err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.resolver = nil

	switch v := out.(type) {
	case attendance.Recorded:
		s.state = Succeeded{Request: req, Recorded: v}
		s.clearTransient()
		s.log.Info(ctx, "capture recorded", "address", req.Address().String(), "overwrite", req.Overwrite)

	case attendance.Conflict:
		s.state = Conflicted{Request: req, ExistingValue: v.ExistingValue, Message: v.Message}
		s.resolver = conflict.New(s.ledger, req, v.ExistingValue)
		s.log.Info(ctx, "capture conflicts", "address", req.Address().String(), "existing", v.ExistingValue)

	case attendance.Failed:
		switch {
		case queued != nil:
			s.state = QueuedOffline{Item: *queued}
			s.clearTransient()
		case v.NetworkUnavailable():
			s.state = Failed{Request: req, Reason: fmt.Sprintf("ledger unreachable and capture could not be queued: %v", queueErr)}
			s.log.Error(ctx, "queueing capture failed", "address", req.Address().String(), "error", queueErr)
		default:
			s.state = Failed{Request: req, Reason: v.Reason}
			s.log.Warn(ctx, "capture rejected", "address", req.Address().String(), "reason", v.Reason)
		}
	}
	return s.state
}

func (s *Session) clearTransient() {
	s.sel.Query = ""
	s.sel.Person = nil
}

// ConfirmOverwrite resends the conflicting request with overwrite set. If
// the ledger is unreachable the overwrite request is queued.
func (s *Session) ConfirmOverwrite(ctx context.Context) (State, error) {
	s.mu.Lock()
	c, ok := s.state.(Conflicted)
	r := s.resolver
	if !ok || r == nil {
		s.mu.Unlock()
		return nil, common.ErrNoConflict
	}
	req := r.OverwriteRequest()
	s.state = Submitting{Request: req}
	s.mu.Unlock()

	s.log.Info(ctx, "overwrite confirmed", "address", req.Address().String(), "replacing", r.Existing())

	out, err := r.ConfirmOverwrite(ctx)
	if err != nil {
		s.mu.Lock()
		s.state = c
		s.mu.Unlock()
		return nil, err
	}
	return s.finish(ctx, req, out), nil
}

// CancelConflict drops the conflicting request and returns to Selecting
// with the selections intact.
func (s *Session) CancelConflict(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.state.(Conflicted)
	if !ok || s.resolver == nil {
		return nil, common.ErrNoConflict
	}
	if err := s.resolver.Cancel(); err != nil {
		return nil, err
	}
	s.state = Selecting{}
	s.log.Info(ctx, "conflict cancelled", "address", c.Request.Address().String(), "kept", s.resolver.Existing())
	s.resolver = nil
	return s.state, nil
}

// Acknowledge returns a finished session to Idle.
func (s *Session) Acknowledge() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editable(); err != nil {
		return nil, err
	}
	if terminal(s.state) {
		s.state = Idle{}
	}
	return s.state, nil
}
