package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/rollcall/internal/attendance"
	"github.com/dmitrijs2005/rollcall/internal/client/client"
	"github.com/dmitrijs2005/rollcall/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/rollcall/internal/logging"
)

// Directory is one read of the event directory.
type Directory struct {
	Events    []attendance.ActiveEvent
	FetchedAt time.Time
	// Cached is set when the ledger was unreachable and Events came from
	// the local copy.
	Cached bool
}

type DirectoryService interface {
	ActiveEvents(ctx context.Context) (Directory, error)
}

type directoryService struct {
	client   client.Client
	metadata metadata.Repository
	now      func() time.Time
	log      logging.Logger
}

func NewDirectoryService(c client.Client, md metadata.Repository, now func() time.Time, log logging.Logger) DirectoryService {
	if now == nil {
		now = time.Now
	}
	return &directoryService{client: c, metadata: md, now: now, log: log.With("module", "directory")}
}

// ActiveEvents fetches the event list, falling back to the cached copy when
// the ledger is unreachable. The result only ever contains Active events,
// whichever source it came from.
func (s *directoryService) ActiveEvents(ctx context.Context) (Directory, error) {
	remote, err := s.client.ListActiveEvents(ctx)
	if err == nil {
		events := make([]attendance.ActiveEvent, 0, len(remote))
		for _, e := range remote {
			events = append(events, attendance.ActiveEvent{
				ID:     e.ID,
				Name:   e.Name,
				Date:   e.Date,
				Status: attendance.EventStatus(e.Status),
			})
		}
		events = attendance.FilterActive(events)
		fetched := s.now()

		if err := metadata.SaveDirectory(ctx, s.metadata, metadata.Directory{Events: events, FetchedAt: fetched}); err != nil {
			s.log.Warn(ctx, "caching event list failed", "error", err)
		}
		return Directory{Events: events, FetchedAt: fetched}, nil
	}

	if !errors.Is(err, client.ErrUnavailable) {
		return Directory{}, fmt.Errorf("list events: %w", err)
	}

	cached, ok, cerr := metadata.LoadDirectory(ctx, s.metadata)
	if cerr != nil {
		return Directory{}, fmt.Errorf("list events: %w (cache: %v)", err, cerr)
	}
	if !ok {
		return Directory{}, fmt.Errorf("list events: %w", err)
	}

	s.log.Info(ctx, "using cached event list", "count", len(cached.Events), "fetched_at", cached.FetchedAt)
	return Directory{Events: attendance.FilterActive(cached.Events), FetchedAt: cached.FetchedAt, Cached: true}, nil
}
