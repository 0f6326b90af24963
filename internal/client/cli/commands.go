package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/rollcall/internal/attendance"
	"github.com/dmitrijs2005/rollcall/internal/client/client"
	"github.com/dmitrijs2005/rollcall/internal/client/offline"
	"github.com/dmitrijs2005/rollcall/internal/client/session"
	"github.com/dmitrijs2005/rollcall/internal/common"
)

var errUsage = errors.New("usage")

func usage(format string) error {
	return fmt.Errorf("%w: %s", errUsage, format)
}

// pickIndex parses a 1-based row number into a 0-based index below n.
func pickIndex(arg string, n int) (int, error) {
	i, err := strconv.Atoi(arg)
	if err != nil || i < 1 || i > n {
		return 0, fmt.Errorf("%w: no row %q", common.ErrInvalidSelection, arg)
	}
	return i - 1, nil
}

/*************
 * Selection
 *************/

func (a *App) Events(ctx context.Context, args []string) error {
	dir, err := a.directory.ActiveEvents(ctx)
	if err != nil {
		return err
	}
	a.events = dir.Events

	if dir.Cached {
		fmt.Fprintf(a.out, "ledger unreachable; showing events cached at %s\n", dir.FetchedAt.Format(time.DateTime))
	}
	if len(dir.Events) == 0 {
		fmt.Fprintln(a.out, "no active events")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	for i, e := range dir.Events {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, e.ID, e.Name, e.Date)
	}
	return tw.Flush()
}

func (a *App) Use(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("use <n|id>")
	}
	if len(a.events) == 0 {
		if err := a.Events(ctx, nil); err != nil {
			return err
		}
	}

	var ev *attendance.ActiveEvent
	if i, err := pickIndex(args[0], len(a.events)); err == nil {
		ev = &a.events[i]
	} else {
		for i := range a.events {
			if strings.EqualFold(a.events[i].ID, args[0]) {
				ev = &a.events[i]
				break
			}
		}
	}
	if ev == nil {
		return fmt.Errorf("%w: %q is not an active event", common.ErrInvalidSelection, args[0])
	}

	if err := a.session.SelectEvent(ctx, *ev); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "capturing for %s (%s)\n", ev.Name, ev.ID)
	return nil
}

func (a *App) Direction(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("dir <in|out>")
	}
	d, err := attendance.ParseDirection(args[0])
	if err != nil {
		return err
	}
	return a.session.SelectDirection(ctx, d)
}

func (a *App) Find(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("find <name>")
	}
	query := strings.Join(args, " ")
	if err := a.session.SetQuery(query); err != nil {
		return err
	}

	found, err := a.identity.Find(ctx, query)
	if err != nil {
		return err
	}
	a.found = found

	if len(found) == 0 {
		fmt.Fprintln(a.out, "no members found")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	for i, m := range found {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, m.ID, m.Name)
	}
	return tw.Flush()
}

func (a *App) Pick(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("pick <n>")
	}
	i, err := pickIndex(args[0], len(a.found))
	if err != nil {
		return err
	}
	m := a.found[i]
	if err := a.session.ChoosePerson(m); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "chosen: %s (%s)\n", m.Name, m.ID)
	return nil
}

/*************
 * Capture
 *************/

func (a *App) Scan(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("scan <code>")
	}
	st, err := a.session.SubmitScan(ctx, args[0])
	if err != nil {
		return err
	}
	a.report(ctx, st)
	return nil
}

func (a *App) Mark(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return usage("mark [status]")
	}
	if len(args) == 1 {
		s, err := attendance.ParseStatus(args[0])
		if err != nil {
			return err
		}
		if err := a.session.SelectStatus(ctx, s); err != nil {
			return err
		}
	}
	st, err := a.session.SubmitChosen(ctx)
	if err != nil {
		return err
	}
	a.report(ctx, st)
	return nil
}

func (a *App) Confirm(ctx context.Context, args []string) error {
	st, err := a.session.ConfirmOverwrite(ctx)
	if err != nil {
		return err
	}
	a.report(ctx, st)
	return nil
}

func (a *App) Cancel(ctx context.Context, args []string) error {
	if _, err := a.session.CancelConflict(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "kept the existing value; nothing was written")
	return nil
}

func (a *App) Ack(ctx context.Context, args []string) error {
	_, err := a.session.Acknowledge()
	return err
}

// report prints the result of a capture. A success is acknowledged right
// away; other results wait for the operator.
func (a *App) report(ctx context.Context, st session.State) {
	switch v := st.(type) {
	case session.Succeeded:
		name := v.Recorded.PersonName
		if name == "" {
			name = v.Request.PersonID
		}
		fmt.Fprintf(a.out, "recorded %s %s: %s\n", name, v.Request.Direction, v.Request.FormattedValue)
		_, _ = a.session.Acknowledge()

	case session.Conflicted:
		fmt.Fprintf(a.out, "CONFLICT for %s %s\n", v.Request.PersonID, v.Request.Direction)
		fmt.Fprintf(a.out, "  recorded: %s\n", v.ExistingValue)
		fmt.Fprintf(a.out, "  new:      %s\n", v.Request.FormattedValue)
		if v.Message != "" {
			fmt.Fprintf(a.out, "  ledger:   %s\n", v.Message)
		}
		fmt.Fprintln(a.out, "type 'confirm' to overwrite or 'cancel' to keep the recorded value")

	case session.QueuedOffline:
		a.watcher.MarkOffline(ctx)
		fmt.Fprintf(a.out, "ledger unreachable; %s %s queued and will sync later\n", v.Item.Request.PersonID, v.Item.Request.Direction)

	case session.Failed:
		fmt.Fprintf(a.out, "FAILED: %s\n", v.Reason)
	}
}

/*************
 * Status and queue
 *************/

func (a *App) Status(ctx context.Context, args []string) error {
	sel := a.session.Selection()

	event := "none"
	if sel.Event != nil {
		event = fmt.Sprintf("%s (%s, %s)", sel.Event.Name, sel.Event.ID, sel.Event.Date)
	}
	person := "none"
	if sel.Person != nil {
		person = fmt.Sprintf("%s (%s)", sel.Person.Name, sel.Person.ID)
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "state\t%s\n", a.session.State().Name())
	fmt.Fprintf(tw, "event\t%s\n", event)
	fmt.Fprintf(tw, "direction\t%s\n", sel.Direction)
	fmt.Fprintf(tw, "status\t%s\n", sel.Status)
	fmt.Fprintf(tw, "person\t%s\n", person)
	fmt.Fprintf(tw, "ledger\t%s\n", a.watcher.Mode())

	c, err := a.queue.Counts(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(tw, "queue\t%d pending, %d review, %d dead letter\n", c.Pending, c.Review, c.DeadLetter)

	if rep, at := a.watcher.LastReport(); !at.IsZero() {
		fmt.Fprintf(tw, "last sync\t%s: %s\n", at.Format(time.TimeOnly), describeReport(rep))
	}
	return tw.Flush()
}

func (a *App) Queue(ctx context.Context, args []string) error {
	items, err := a.queue.Items(ctx)
	if err != nil {
		return err
	}
	a.listed = items
	a.printItems(items)
	return nil
}

func (a *App) printItems(items []attendance.QueuedItem) {
	if len(items) == 0 {
		fmt.Fprintln(a.out, "queue is empty")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tstate\tevent\tperson\tdir\tvalue\tattempts\tqueued\tdetail")
	for i, it := range items {
		detail := it.LastError
		if it.State == attendance.QueueReview {
			detail = "recorded: " + it.ExistingValue
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			i+1, it.State, it.Request.EventID, it.Request.PersonID, it.Request.Direction,
			it.Request.FormattedValue, it.AttemptCount, it.QueuedAt.Local().Format(time.DateTime), detail)
	}
	_ = tw.Flush()
}

func (a *App) Sync(ctx context.Context, args []string) error {
	if err := a.client.Ping(ctx); err != nil {
		a.watcher.MarkOffline(ctx)
		if errors.Is(err, client.ErrUnavailable) {
			fmt.Fprintln(a.out, "ledger unreachable; captures stay queued")
			return nil
		}
		return err
	}

	rep, err := a.queue.Replay(ctx)
	if err != nil {
		return err
	}
	if rep.Offline {
		a.watcher.MarkOffline(ctx)
	}
	fmt.Fprintln(a.out, describeReport(rep))
	return nil
}

func describeReport(rep offline.ReplayReport) string {
	if rep.Attempted == 0 {
		return "nothing to sync"
	}
	s := fmt.Sprintf("%d sent: %d recorded, %d held for review, %d dead letter",
		rep.Attempted, rep.Recorded, rep.Review, rep.DeadLettered)
	if rep.Superseded > 0 {
		s += fmt.Sprintf(", %d replaced", rep.Superseded)
	}
	if rep.Offline {
		s += "; ledger went offline"
	}
	return s
}

// item resolves a row number from the last listing, or a queue key.
func (a *App) item(ctx context.Context, arg string) (attendance.QueuedItem, error) {
	if strings.Contains(arg, "|") {
		return a.queue.Get(ctx, arg)
	}
	if len(a.listed) == 0 {
		items, err := a.queue.Items(ctx)
		if err != nil {
			return attendance.QueuedItem{}, err
		}
		a.listed = items
	}
	i, err := pickIndex(arg, len(a.listed))
	if err != nil {
		return attendance.QueuedItem{}, err
	}
	return a.listed[i], nil
}

// stale drops the last listing once the queue has moved on under it.
func (a *App) stale(err error) error {
	if errors.Is(err, common.ErrStaleItem) {
		a.listed = nil
	}
	return err
}

func (a *App) Review(ctx context.Context, args []string) error {
	switch len(args) {
	case 0:
		items, err := a.queue.Items(ctx, attendance.QueueReview)
		if err != nil {
			return err
		}
		a.listed = items
		a.printItems(items)
		return nil
	case 2:
	default:
		return usage("review [n confirm|cancel]")
	}

	it, err := a.item(ctx, args[0])
	if err != nil {
		return err
	}

	switch strings.ToLower(args[1]) {
	case "confirm":
		out, err := a.queue.ConfirmReview(ctx, it.Key(), it.ID)
		if err != nil {
			return a.stale(err)
		}
		switch v := out.(type) {
		case attendance.Recorded:
			fmt.Fprintf(a.out, "overwritten: %s\n", it.Request.FormattedValue)
		case attendance.Failed:
			if v.NetworkUnavailable() {
				a.watcher.MarkOffline(ctx)
				fmt.Fprintln(a.out, "ledger unreachable; overwrite queued and will sync later")
			} else {
				fmt.Fprintf(a.out, "FAILED: %s (moved to dead letter)\n", v.Reason)
			}
		}
	case "cancel":
		if err := a.queue.CancelReview(ctx, it.Key(), it.ID); err != nil {
			return a.stale(err)
		}
		fmt.Fprintln(a.out, "kept the recorded value; capture dropped")
	default:
		return usage("review [n confirm|cancel]")
	}
	a.listed = nil
	return nil
}

func (a *App) Retry(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("retry <n>")
	}
	it, err := a.item(ctx, args[0])
	if err != nil {
		return err
	}
	if err := a.queue.Requeue(ctx, it.Key(), it.ID); err != nil {
		return a.stale(err)
	}
	a.listed = nil
	a.watcher.Trigger()
	fmt.Fprintln(a.out, "requeued")
	return nil
}

func (a *App) Discard(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("discard <n>")
	}
	it, err := a.item(ctx, args[0])
	if err != nil {
		return err
	}
	if err := a.queue.Discard(ctx, it.Key(), it.ID); err != nil {
		return a.stale(err)
	}
	a.listed = nil
	fmt.Fprintf(a.out, "discarded %s %s %s\n", it.Request.EventID, it.Request.PersonID, it.Request.Direction)
	return nil
}
