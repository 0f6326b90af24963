package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/rollcall/internal/attendance"
	"github.com/dmitrijs2005/rollcall/internal/client/client"
	"github.com/dmitrijs2005/rollcall/internal/common"
)

const DefaultSearchLimit = 10

type IdentityService interface {
	// Find returns members matching query, best match first.
	Find(ctx context.Context, query string) ([]attendance.Member, error)

	// ResolveCode turns a scanned badge code into a member ID.
	ResolveCode(ctx context.Context, code string) (string, error)
}

type identityService struct {
	client client.Client
	limit  int
}

func NewIdentityService(c client.Client, limit int) IdentityService {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return &identityService{client: c, limit: limit}
}

func (s *identityService) Find(ctx context.Context, query string) ([]attendance.Member, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty search", common.ErrIdentityUnresolved)
	}

	found, err := s.client.FindMembers(ctx, query, s.limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrIdentityUnresolved, err)
	}

	members := make([]attendance.Member, 0, len(found))
	for _, m := range found {
		members = append(members, attendance.Member{ID: m.ID, Name: m.Name})
	}
	return members, nil
}

// Badge codes carry the member ID, optionally behind a "member:" scheme.
func (s *identityService) ResolveCode(ctx context.Context, code string) (string, error) {
	id := strings.TrimSpace(code)
	if rest, ok := strings.CutPrefix(strings.ToLower(id), "member:"); ok {
		id = strings.TrimSpace(id[len(id)-len(rest):])
	}
	if id == "" {
		return "", fmt.Errorf("%w: empty code", common.ErrIdentityUnresolved)
	}
	return id, nil
}
