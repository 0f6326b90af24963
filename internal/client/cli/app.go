package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/rollcall/internal/attendance"
	"github.com/dmitrijs2005/rollcall/internal/client/client"
	"github.com/dmitrijs2005/rollcall/internal/client/config"
	"github.com/dmitrijs2005/rollcall/internal/client/offline"
	"github.com/dmitrijs2005/rollcall/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/rollcall/internal/client/repositories/queue"
	"github.com/dmitrijs2005/rollcall/internal/client/services"
	"github.com/dmitrijs2005/rollcall/internal/client/session"
	"github.com/dmitrijs2005/rollcall/internal/client/syncer"
	"github.com/dmitrijs2005/rollcall/internal/logging"
	"github.com/dmitrijs2005/rollcall/internal/timex"
)

type App struct {
	config    *config.Config
	db        *sql.DB
	client    client.Client
	directory services.DirectoryService
	identity  services.IdentityService
	queue     *offline.Queue
	session   *session.Session
	watcher   *syncer.Watcher
	log       logging.Logger
	out       io.Writer

	// last listings, so commands can refer to rows by number
	events []attendance.ActiveEvent
	found  []attendance.Member
	listed []attendance.QueuedItem
}

// deps are the collaborators newApp wires together.
type deps struct {
	client   client.Client
	queue    queue.Store
	metadata metadata.Repository
	now      func() time.Time
	out      io.Writer
}

// NewApp opens the local database and the ledger connection and wires the
// capture components.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		log.Error(ctx, "error initializing database", "path", c.DatabasePath, "error", err)
		return nil, err
	}

	apiClient, err := client.NewLedgerClient(c.ServerEndpointAddr)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	app, err := newApp(c, deps{
		client:   apiClient,
		queue:    queue.NewSQLiteRepository(db),
		metadata: metadata.NewSQLiteRepository(db),
		now:      time.Now,
		out:      os.Stdout,
	}, log)
	if err != nil {
		_ = apiClient.Close()
		_ = db.Close()
		return nil, err
	}
	app.db = db
	return app, nil
}

func newApp(c *config.Config, d deps, log logging.Logger) (*App, error) {
	loc, err := timex.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("time zone: %w", err)
	}

	ledger := services.NewLedgerService(d.client, c.RequestTimeout, log)
	q := offline.New(d.queue, ledger, log, offline.WithClock(d.now))
	identity := services.NewIdentityService(d.client, services.DefaultSearchLimit)

	sess := session.New(ledger, q, identity, log,
		session.WithClock(d.now),
		session.WithLocation(loc),
		session.WithSelectionStore(d.metadata),
	)

	w := syncer.NewWatcher(d.client, q, syncer.Config{
		Interval:    c.OnlineCheckInterval,
		PingTimeout: c.RequestTimeout,
	}, log)

	return &App{
		config:    c,
		client:    d.client,
		directory: services.NewDirectoryService(d.client, d.metadata, d.now, log),
		identity:  identity,
		queue:     q,
		session:   sess,
		watcher:   w,
		log:       log.With("module", "cli"),
		out:       d.out,
	}, nil
}

// Run restores the last selections, starts the connectivity watcher and
// serves the REPL on stdin until the operator exits.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	fmt.Fprintln(a.out, "rollcall capture terminal (type 'help' for commands)")

	if dir, err := a.directory.ActiveEvents(ctx); err == nil {
		a.events = dir.Events
		if err := a.session.Restore(ctx, dir.Events); err != nil {
			a.log.Warn(ctx, "restoring selection failed", "error", err)
		}
	}

	a.watcher.Start(ctx)
	defer a.watcher.Stop()

	runREPL(ctx, a, a.prompt, newLineReader(os.Stdin), a.out, isInteractive())
}

func (a *App) Close() {
	if a.client != nil {
		_ = a.client.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

// prompt renders the current selection, mode and queue depth.
func (a *App) prompt() string {
	ctx := context.Background()
	sel := a.session.Selection()

	event := "-"
	if sel.Event != nil {
		event = sel.Event.ID
	}

	status := string(a.watcher.Mode())
	if c, err := a.queue.Counts(ctx); err == nil {
		if c.Pending > 0 {
			status += fmt.Sprintf(", %d pending", c.Pending)
		}
		if held := c.Review + c.DeadLetter; held > 0 {
			status += fmt.Sprintf(", %d need attention", held)
		}
	}

	return fmt.Sprintf("rollcall [%s %s %s] (%s)> ", event, sel.Direction, sel.Status, status)
}
