package offline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/rollcall/internal/attendance"
	"github.com/dmitrijs2005/rollcall/internal/client/conflict"
	"github.com/dmitrijs2005/rollcall/internal/client/repositories/queue"
	"github.com/dmitrijs2005/rollcall/internal/common"
	"github.com/dmitrijs2005/rollcall/internal/logging"
	"github.com/google/uuid"
)

// Counts is the number of queued items per state.
type Counts struct {
	Pending    int
	Review     int
	DeadLetter int
}

func (c Counts) Total() int {
	return c.Pending + c.Review + c.DeadLetter
}

// ReplayReport summarizes one replay pass.
type ReplayReport struct {
	Attempted    int
	Recorded     int
	Review       int
	DeadLettered int
	Retained     int
	// Superseded counts deliveries whose item was replaced by a newer
	// enqueue while the delivery was in flight.
	Superseded int
	// Offline is set when the pass stopped on a network failure.
	Offline bool
}

type Option func(*Queue)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// WithIDs overrides the item ID generator.
func WithIDs(newID func() string) Option {
	return func(q *Queue) { q.newID = newID }
}

type Queue struct {
	store  queue.Store
	ledger conflict.Deliverer
	log    logging.Logger
	now    func() time.Time
	newID  func() string

	// mu serializes every store write and guards resolving.
	mu sync.Mutex
	// resolving holds the IDs of review items whose overwrite is in flight.
	resolving map[string]bool
	// replayMu allows one replay pass at a time.
	replayMu sync.Mutex
}

func New(store queue.Store, ledger conflict.Deliverer, log logging.Logger, opts ...Option) *Queue {
	q := &Queue{
		store:  store,
		ledger: ledger,
		log:    log.With("module", "offline"),
		now:    time.Now,
		newID:  uuid.NewString,

		resolving: make(map[string]bool),
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Enqueue stores req as a pending item, replacing whatever was queued for
// the same address.
func (q *Queue) Enqueue(ctx context.Context, req attendance.CaptureRequest) (attendance.QueuedItem, error) {
	if err := req.Validate(); err != nil {
		return attendance.QueuedItem{}, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	it := attendance.QueuedItem{
		ID:        q.newID(),
		Request:   req,
		QueuedAt:  now,
		UpdatedAt: now,
		State:     attendance.QueuePending,
	}

	prev, err := q.store.Get(ctx, it.Key())
	switch {
	case err == nil:
		q.log.Info(ctx, "replacing queued capture", "key", it.Key(), "previous_id", prev.ID, "previous_state", prev.State)
	case !errors.Is(err, common.ErrNotFound):
		return attendance.QueuedItem{}, fmt.Errorf("enqueue: %w", err)
	}

	if err := q.store.Put(ctx, it); err != nil {
		return attendance.QueuedItem{}, fmt.Errorf("enqueue: %w", err)
	}
	q.log.Info(ctx, "capture queued", "key", it.Key(), "id", it.ID, "overwrite", req.Overwrite)
	return it, nil
}

func (q *Queue) Get(ctx context.Context, key string) (attendance.QueuedItem, error) {
	return q.store.Get(ctx, key)
}

// Items lists queued items in the given states, oldest first.
func (q *Queue) Items(ctx context.Context, states ...attendance.QueueState) ([]attendance.QueuedItem, error) {
	return q.store.List(ctx, states...)
}

func (q *Queue) Counts(ctx context.Context) (Counts, error) {
	items, err := q.store.List(ctx)
	if err != nil {
		return Counts{}, err
	}
	var c Counts
	for _, it := range items {
		switch it.State {
		case attendance.QueuePending:
			c.Pending++
		case attendance.QueueReview:
			c.Review++
		case attendance.QueueDeadLetter:
			c.DeadLetter++
		}
	}
	return c, nil
}

// Replay delivers every pending item once, oldest first. Concurrent calls
// run one after another.
func (q *Queue) Replay(ctx context.Context) (ReplayReport, error) {
	q.replayMu.Lock()
	defer q.replayMu.Unlock()

	var rep ReplayReport

	pending, err := q.store.List(ctx, attendance.QueuePending)
	if err != nil {
		return rep, fmt.Errorf("replay: %w", err)
	}
	if len(pending) == 0 {
		return rep, nil
	}
	q.log.Info(ctx, "replay started", "pending", len(pending))

	for _, it := range pending {
		if ctx.Err() != nil {
			break
		}

		rep.Attempted++
		out := q.ledger.Deliver(ctx, it.Request)

		stop, err := q.settle(ctx, it, out, &rep)
		if err != nil {
			return rep, fmt.Errorf("replay: %w", err)
		}
		if stop {
			break
		}
	}

	q.log.Info(ctx, "replay finished",
		"attempted", rep.Attempted,
		"recorded", rep.Recorded,
		"review", rep.Review,
		"dead_lettered", rep.DeadLettered,
		"retained", rep.Retained,
		"superseded", rep.Superseded)
	return rep, nil
}

// settle applies one replay outcome to the stored item. It reports whether
// the pass should stop.
func (q *Queue) settle(ctx context.Context, sent attendance.QueuedItem, out attendance.Outcome, rep *ReplayReport) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	cur, err := q.store.Get(ctx, sent.Key())
	if errors.Is(err, common.ErrNotFound) || (err == nil && cur.ID != sent.ID) {
		rep.Superseded++
		q.log.Debug(ctx, "queued capture replaced during delivery", "key", sent.Key(), "id", sent.ID)
		if f, ok := out.(attendance.Failed); ok && f.NetworkUnavailable() {
			rep.Offline = true
			return true, nil
		}
		return false, nil
	}
	if err != nil {
		return false, err
	}

	cur.AttemptCount++
	cur.UpdatedAt = q.now()

	switch v := out.(type) {
	case attendance.Recorded:
		rep.Recorded++
		q.log.Info(ctx, "queued capture recorded", "key", cur.Key(), "attempts", cur.AttemptCount)
		return false, q.store.Delete(ctx, cur.Key())

	case attendance.Conflict:
		rep.Review++
		cur.State = attendance.QueueReview
		cur.ExistingValue = v.ExistingValue
		cur.LastError = v.Message
		q.log.Warn(ctx, "queued capture conflicts, held for review", "key", cur.Key(), "existing", v.ExistingValue)
		return false, q.store.Put(ctx, cur)

	case attendance.Failed:
		cur.LastError = v.Reason
		if v.NetworkUnavailable() {
			rep.Retained++
			rep.Offline = true
			return true, q.store.Put(ctx, cur)
		}
		rep.DeadLettered++
		cur.State = attendance.QueueDeadLetter
		q.log.Warn(ctx, "queued capture rejected, moved to dead letter", "key", cur.Key(), "reason", v.Reason)
		return false, q.store.Put(ctx, cur)
	}

	return false, fmt.Errorf("unexpected outcome %T", out)
}

// held returns the item under key if it is in state and still carries id.
// The caller holds mu.
func (q *Queue) held(ctx context.Context, key, id string, state attendance.QueueState) (attendance.QueuedItem, error) {
	it, err := q.current(ctx, key, id)
	if err != nil {
		return attendance.QueuedItem{}, err
	}
	if it.State != state {
		return attendance.QueuedItem{}, fmt.Errorf("%w: item %s is %s, not %s", common.ErrInvalidArgument, key, it.State, state)
	}
	return it, nil
}

// current returns the item under key, failing with common.ErrStaleItem when
// a newer capture has replaced the one the operator saw. The caller holds mu.
func (q *Queue) current(ctx context.Context, key, id string) (attendance.QueuedItem, error) {
	it, err := q.store.Get(ctx, key)
	if err != nil {
		return attendance.QueuedItem{}, err
	}
	if it.ID != id {
		return attendance.QueuedItem{}, fmt.Errorf("%w: %s was replaced, list the queue again", common.ErrStaleItem, key)
	}
	return it, nil
}

// claimReview reserves a review item for one resolution. The claim lasts
// until release is called.
func (q *Queue) claimReview(ctx context.Context, key, id string) (attendance.QueuedItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	it, err := q.current(ctx, key, id)
	if err != nil {
		return attendance.QueuedItem{}, err
	}
	if it.State != attendance.QueueReview {
		return attendance.QueuedItem{}, fmt.Errorf("%w: item %s is %s", common.ErrNoConflict, key, it.State)
	}
	if q.resolving[it.ID] {
		return attendance.QueuedItem{}, fmt.Errorf("%w: %s is being resolved", common.ErrAlreadyResolved, key)
	}
	q.resolving[it.ID] = true
	return it, nil
}

func (q *Queue) release(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.resolving, id)
}

// ConfirmReview sends the overwrite for review item id on the operator's
// behalf. A network failure puts the overwrite request back in the pending
// queue; a rejection dead-letters it. Only one confirmation per item reaches
// the ledger.
func (q *Queue) ConfirmReview(ctx context.Context, key, id string) (attendance.Outcome, error) {
	it, err := q.claimReview(ctx, key, id)
	if err != nil {
		return nil, err
	}
	defer q.release(it.ID)

	r := conflict.New(q.ledger, it.Request, it.ExistingValue)
	out, err := r.ConfirmOverwrite(ctx)
	if err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	cur, err := q.store.Get(ctx, key)
	if errors.Is(err, common.ErrNotFound) || (err == nil && cur.ID != it.ID) {
		return out, nil
	}
	if err != nil {
		return out, err
	}

	cur.AttemptCount++
	cur.UpdatedAt = q.now()

	switch v := out.(type) {
	case attendance.Recorded:
		q.log.Info(ctx, "review resolved with overwrite", "key", key, "replaced", r.Existing())
		return out, q.store.Delete(ctx, key)
	case attendance.Failed:
		cur.LastError = v.Reason
		if v.NetworkUnavailable() {
			cur.State = attendance.QueuePending
			cur.Request = r.OverwriteRequest()
			q.log.Info(ctx, "overwrite queued until ledger is reachable", "key", key)
		} else {
			cur.State = attendance.QueueDeadLetter
		}
		return out, q.store.Put(ctx, cur)
	}
	return out, fmt.Errorf("unexpected outcome %T", out)
}

// CancelReview drops review item id, leaving the ledger value as it is.
func (q *Queue) CancelReview(ctx context.Context, key, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	it, err := q.current(ctx, key, id)
	if err != nil {
		return err
	}
	if it.State != attendance.QueueReview {
		return fmt.Errorf("%w: item %s is %s", common.ErrNoConflict, key, it.State)
	}
	if q.resolving[it.ID] {
		return fmt.Errorf("%w: %s is being resolved", common.ErrAlreadyResolved, key)
	}
	q.log.Info(ctx, "review cancelled by operator", "key", key, "kept", it.ExistingValue)
	return q.store.Delete(ctx, key)
}

// Requeue moves dead-lettered item id back to pending.
func (q *Queue) Requeue(ctx context.Context, key, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	it, err := q.held(ctx, key, id, attendance.QueueDeadLetter)
	if err != nil {
		return err
	}
	it.State = attendance.QueuePending
	it.UpdatedAt = q.now()
	q.log.Info(ctx, "dead letter requeued by operator", "key", key)
	return q.store.Put(ctx, it)
}

// Discard deletes item id in any state on the operator's instruction. It
// fails with common.ErrStaleItem if a newer capture now holds the key.
func (q *Queue) Discard(ctx context.Context, key, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	it, err := q.current(ctx, key, id)
	if err != nil {
		return err
	}
	if q.resolving[it.ID] {
		return fmt.Errorf("%w: %s is being resolved", common.ErrAlreadyResolved, key)
	}
	q.log.Warn(ctx, "queued capture discarded by operator", "key", key, "state", it.State, "attempts", it.AttemptCount)
	return q.store.Delete(ctx, key)
}
