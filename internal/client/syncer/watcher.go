// Package syncer decides when the offline queue is replayed. A Watcher
// pings the ledger on an interval and replays when the terminal comes
// back online, on startup, whenever a ping succeeds while items are
// pending, and when asked to through Trigger.
package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/rollcall/internal/client/offline"
	"github.com/dmitrijs2005/rollcall/internal/logging"
)

type Mode string

const (
	ModeUnknown Mode = "unknown"
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Replayer interface {
	Replay(ctx context.Context) (offline.ReplayReport, error)
	Counts(ctx context.Context) (offline.Counts, error)
}

type Config struct {
	// Interval between connectivity checks. Defaults to 10s.
	Interval time.Duration
	// PingTimeout bounds one Ping. Defaults to 3s.
	PingTimeout time.Duration
}

type Watcher struct {
	pinger   Pinger
	replayer Replayer
	interval time.Duration
	timeout  time.Duration
	log      logging.Logger

	trigger chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}

	mu         sync.RWMutex
	mode       Mode
	lastReport offline.ReplayReport
	lastReplay time.Time
}

// NewWatcher creates a watcher but does not start it.
func NewWatcher(p Pinger, r Replayer, cfg Config, log logging.Logger) *Watcher {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = 3 * time.Second
	}
	return &Watcher{
		pinger:   p,
		replayer: r,
		interval: cfg.Interval,
		timeout:  cfg.PingTimeout,
		log:      log.With("module", "syncer"),
		trigger:  make(chan struct{}, 1),
		done:     make(chan struct{}),
		mode:     ModeUnknown,
	}
}

// Start runs the ping loop in the background until ctx is cancelled or
// Stop is called. The first ping runs immediately.
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	go w.loop(ctx)
	w.log.Info(ctx, "connectivity watcher started", "interval", w.interval.String())
}

// Stop ends the loop and waits for an in-flight replay to finish.
func (w *Watcher) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
}

// Trigger asks for a ping and replay as soon as possible. Calls made while
// one is already scheduled are merged.
func (w *Watcher) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

func (w *Watcher) Mode() Mode {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.mode
}

// MarkOffline records a transport failure seen outside the ping loop, so
// the next successful ping counts as a transition and replays.
func (w *Watcher) MarkOffline(ctx context.Context) {
	w.setMode(ctx, ModeOffline)
}

// LastReport returns the result of the most recent replay and when it ran.
func (w *Watcher) LastReport() (offline.ReplayReport, time.Time) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastReport, w.lastReplay
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	w.check(ctx, true)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check(ctx, false)
		case <-w.trigger:
			w.check(ctx, true)
		}
	}
}

func (w *Watcher) check(ctx context.Context, force bool) {
	pctx, cancel := context.WithTimeout(ctx, w.timeout)
	err := w.pinger.Ping(pctx)
	cancel()

	if err != nil {
		w.setMode(ctx, ModeOffline)
		w.log.Debug(ctx, "ping failed", "error", err)
		return
	}

	prev := w.setMode(ctx, ModeOnline)

	replay := force || prev != ModeOnline
	if !replay {
		c, err := w.replayer.Counts(ctx)
		if err != nil {
			w.log.Error(ctx, "reading queue counts failed", "error", err)
			return
		}
		replay = c.Pending > 0
	}
	if !replay {
		return
	}

	rep, err := w.replayer.Replay(ctx)
	if err != nil {
		w.log.Error(ctx, "replay failed", "error", err)
		return
	}

	w.mu.Lock()
	w.lastReport = rep
	w.lastReplay = time.Now()
	w.mu.Unlock()

	if rep.Offline {
		w.setMode(ctx, ModeOffline)
	}
}

// setMode stores m and returns the previous mode.
func (w *Watcher) setMode(ctx context.Context, m Mode) Mode {
	w.mu.Lock()
	prev := w.mode
	w.mode = m
	w.mu.Unlock()

	if prev != m {
		w.log.Info(ctx, "connectivity changed", "from", prev, "to", m)
	}
	return prev
}
