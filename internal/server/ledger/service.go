package ledger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/rollcall/internal/attendance"
	"github.com/dmitrijs2005/rollcall/internal/common"
	"github.com/dmitrijs2005/rollcall/internal/logging"
	"github.com/dmitrijs2005/rollcall/internal/wire"
	"github.com/google/uuid"
)

const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50
)

// Rejection messages returned with success=false, alreadyRecorded=false.
const (
	MsgUnknownAction   = "unknown action"
	MsgUnknownEvent    = "unknown event"
	MsgEventNotActive  = "event is not active"
	MsgUnknownMember   = "unknown member"
	MsgInvalidDir      = "invalid direction"
	MsgInvalidStatus   = "invalid status"
	MsgMissingValue    = "formattedValue is required"
	MsgAlreadyRecorded = "attendance already recorded"
)

type Service struct {
	repo Repository
	loc  *time.Location
	now  func() time.Time
	log  logging.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone of the time echoed back on success.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func NewService(repo Repository, log logging.Logger, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		loc:  time.UTC,
		now:  time.Now,
		log:  log.With("module", "ledger"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func rejected(msg string) wire.RecordResponse {
	return wire.RecordResponse{Message: msg}
}

// Record writes one attendance value. Business rejections and conflicts are
// reported in the response; a non-nil error means the ledger itself failed.
func (s *Service) Record(ctx context.Context, req wire.RecordRequest) (wire.RecordResponse, error) {
	if req.Action != "" && req.Action != wire.ActionRecordAttendance {
		return rejected(fmt.Sprintf("%s %q", MsgUnknownAction, req.Action)), nil
	}

	d := attendance.Direction(req.Direction)
	if !d.Valid() {
		return rejected(fmt.Sprintf("%s %q", MsgInvalidDir, req.Direction)), nil
	}
	st := attendance.Status(req.Status)
	if !st.Valid() {
		return rejected(fmt.Sprintf("%s %q", MsgInvalidStatus, req.Status)), nil
	}
	if strings.TrimSpace(req.FormattedValue) == "" {
		return rejected(MsgMissingValue), nil
	}

	event, err := s.repo.GetEvent(ctx, req.EventID)
	switch {
	case errors.Is(err, common.ErrNotFound):
		return rejected(MsgUnknownEvent), nil
	case err != nil:
		return wire.RecordResponse{}, fmt.Errorf("get event: %w", err)
	case !event.IsActive():
		return rejected(MsgEventNotActive), nil
	}

	member, err := s.repo.GetMember(ctx, req.PersonID)
	switch {
	case errors.Is(err, common.ErrNotFound):
		return rejected(MsgUnknownMember), nil
	case err != nil:
		return wire.RecordResponse{}, fmt.Errorf("get member: %w", err)
	}

	now := s.now()
	rec := Record{
		ID:         uuid.NewString(),
		Address:    attendance.Address{EventID: event.ID, PersonID: member.ID, Direction: d},
		Status:     st,
		Value:      req.FormattedValue,
		RecordedAt: now.UTC(),
	}

	existing, err := s.repo.Put(ctx, rec, req.Overwrite)
	if errors.Is(err, common.ErrAlreadyExists) {
		s.log.Info(ctx, "attendance already recorded", "address", rec.Address.String())
		return wire.RecordResponse{
			AlreadyRecorded: true,
			ExistingValue:   existing,
			Message:         MsgAlreadyRecorded,
		}, nil
	}
	if err != nil {
		return wire.RecordResponse{}, fmt.Errorf("put record: %w", err)
	}

	s.log.Info(ctx, "attendance recorded", "address", rec.Address.String(), "value", rec.Value, "overwrite", req.Overwrite)
	return wire.RecordResponse{
		Success:    true,
		PersonName: member.Name,
		Time:       now.In(s.loc).Format("03:04 PM"),
	}, nil
}

// ListActiveEvents returns only events currently accepting captures.
func (s *Service) ListActiveEvents(ctx context.Context) ([]attendance.ActiveEvent, error) {
	events, err := s.repo.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return attendance.FilterActive(events), nil
}

// FindMembers returns up to limit members matching query, best match first:
// exact ID, exact name, name prefix, word prefix, then any substring.
func (s *Service) FindMembers(ctx context.Context, query string, limit int) ([]attendance.Member, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}
	switch {
	case limit <= 0:
		limit = DefaultSearchLimit
	case limit > MaxSearchLimit:
		limit = MaxSearchLimit
	}

	found, err := s.repo.SearchMembers(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search members: %w", err)
	}

	slices.SortStableFunc(found, func(a, b attendance.Member) int {
		return cmp.Or(
			cmp.Compare(rank(a, q), rank(b, q)),
			strings.Compare(a.Name, b.Name),
			strings.Compare(a.ID, b.ID),
		)
	})
	if len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

func rank(m attendance.Member, q string) int {
	name := strings.ToLower(m.Name)
	switch {
	case strings.ToLower(m.ID) == q:
		return 0
	case name == q:
		return 1
	case strings.HasPrefix(name, q):
		return 2
	case strings.Contains(name, " "+q):
		return 3
	default:
		return 4
	}
}
