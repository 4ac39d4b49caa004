package catalog

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/weiawesome/wes-io-live/commentary-service/internal/config"
	"github.com/weiawesome/wes-io-live/commentary-service/internal/domain"
)

type memRepo struct {
	mu    sync.Mutex
	games map[string]Game
	gets  int
}

func newMemRepo() *memRepo {
	return &memRepo{games: make(map[string]Game)}
}

func (r *memRepo) Upsert(ctx context.Context, game *Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[game.ID] = *game
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id string) (*Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	g, ok := r.games[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	return &g, nil
}

func (r *memRepo) List(ctx context.Context, league string) ([]Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Game
	for _, g := range r.games {
		if league == "" || g.League == league {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

type memCache struct {
	mu    sync.Mutex
	games map[string]Game
}

func (c *memCache) Get(ctx context.Context, id string) (*Game, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.games[id]
	if !ok {
		return nil, ErrCacheMiss
	}
	return &g, nil
}

func (c *memCache) Set(ctx context.Context, game *Game) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.games[game.ID] = *game
	return nil
}

func (c *memCache) Delete(ctx context.Context, ids ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.games, id)
	}
	return nil
}

func (c *memCache) Close() error { return nil }

var seeds = []config.GameSeed{
	{ID: "nhl-2024-1", HomeTeam: "Boston", AwayTeam: "Toronto", League: "NHL", StartTime: "2024-10-10T23:00:00Z"},
	{ID: "nhl-2024-2", Title: "Opening night", League: "NHL", StartTime: "2024-10-09T23:00:00Z", Tags: []string{"opener"}},
	{ID: "ahl-2024-1", League: "AHL"},
}

func TestSeedAndList(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	if err := svc.Seed(ctx, seeds); err != nil {
		t.Fatalf("Seed() error: %v", err)
	}

	nhl, err := svc.List(ctx, "NHL")
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(nhl) != 2 || nhl[0].ID != "nhl-2024-2" {
		t.Fatalf("List(NHL) = %+v", nhl)
	}
	if nhl[1].Title != "Toronto vs Boston" {
		t.Errorf("derived title = %q", nhl[1].Title)
	}

	none, _ := svc.List(ctx, "KHL")
	if none == nil || len(none) != 0 {
		t.Errorf("List(KHL) = %#v, want empty slice", none)
	}
}

func TestSeedRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		seed config.GameSeed
	}{
		{"missing id", config.GameSeed{Title: "x"}},
		{"bad time", config.GameSeed{ID: "g", StartTime: "tomorrow"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(newMemRepo(), nil)
			if err := svc.Seed(context.Background(), []config.GameSeed{tt.seed}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestGetReadsThroughCache(t *testing.T) {
	repo := newMemRepo()
	cache := &memCache{games: make(map[string]Game)}
	svc := NewService(repo, cache)
	ctx := context.Background()
	svc.Seed(ctx, seeds)

	for i := 0; i < 3; i++ {
		g, err := svc.Get(ctx, "nhl-2024-1")
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if !g.StartTime.Equal(time.Date(2024, 10, 10, 23, 0, 0, 0, time.UTC)) {
			t.Errorf("start time = %v", g.StartTime)
		}
	}
	if repo.gets != 1 {
		t.Errorf("repository hit %d times, want 1", repo.gets)
	}

	// Re-seeding invalidates the cached copy.
	svc.Seed(ctx, []config.GameSeed{{ID: "nhl-2024-1", Title: "Renamed"}})
	g, _ := svc.Get(ctx, "nhl-2024-1")
	if g.Title != "Renamed" {
		t.Errorf("title after reseed = %q", g.Title)
	}
}

func TestGetNotFound(t *testing.T) {
	svc := NewService(newMemRepo(), nil)

	_, err := svc.Get(context.Background(), "missing")
	if !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("error = %v", err)
	}
	if domain.ErrorCode(err) != domain.ErrCodeNotFound {
		t.Errorf("code = %q", domain.ErrorCode(err))
	}
}

func TestModelRoundTrip(t *testing.T) {
	g := &Game{ID: "g1", Title: "t", Tags: []string{"a", "b"}}
	back := GameToModel(g).ToDomain()
	if back.ID != g.ID || len(back.Tags) != 2 || back.Tags[1] != "b" {
		t.Errorf("round trip = %+v", back)
	}
}
