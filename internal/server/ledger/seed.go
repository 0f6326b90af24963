package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/rollcall/internal/attendance"
)

// Seed is the JSON document loaded into an empty ledger at start-up:
//
//	{"events": [{"id", "name", "date", "status"}], "members": [{"id", "name"}]}
type Seed struct {
	Events  []attendance.ActiveEvent `json:"events"`
	Members []attendance.Member      `json:"members"`
}

func LoadSeed(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed %s: %w", path, err)
	}
	var s Seed
	if err := json.Unmarshal(data, &s); err != nil {
		return Seed{}, fmt.Errorf("decode seed %s: %w", path, err)
	}
	return s, nil
}

// Apply upserts every event and member of s into repo.
func (s Seed) Apply(ctx context.Context, repo Repository) error {
	for _, e := range s.Events {
		if e.ID == "" {
			return fmt.Errorf("seed event without id")
		}
		if err := repo.UpsertEvent(ctx, e); err != nil {
			return fmt.Errorf("seed event %s: %w", e.ID, err)
		}
	}
	for _, m := range s.Members {
		if m.ID == "" {
			return fmt.Errorf("seed member without id")
		}
		if err := repo.UpsertMember(ctx, m); err != nil {
			return fmt.Errorf("seed member %s: %w", m.ID, err)
		}
	}
	return nil
}
