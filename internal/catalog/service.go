package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/weiawesome/wes-io-live/commentary-service/internal/config"
	pkglog "github.com/weiawesome/wes-io-live/commentary-service/pkg/log"
)

// Service serves the game catalog with a read-through cache.
type Service struct {
	repo  Repository
	cache Cache
}

// NewService creates a catalog service. A nil cache disables caching.
func NewService(repo Repository, cache Cache) *Service {
	if cache == nil {
		cache = NoopCache{}
	}
	return &Service{repo: repo, cache: cache}
}

// Seed upserts the configured games and drops their cached copies.
func (s *Service) Seed(ctx context.Context, seeds []config.GameSeed) error {
	for _, seed := range seeds {
		game, err := gameFromSeed(seed)
		if err != nil {
			return err
		}
		if err := s.repo.Upsert(ctx, game); err != nil {
			return fmt.Errorf("failed to seed game %s: %w", seed.ID, err)
		}
		if err := s.cache.Delete(ctx, game.ID); err != nil {
			l := pkglog.Ctx(ctx)
			l.Warn().Err(err).Str(pkglog.FieldEventID, game.ID).Msg("failed to invalidate cached game")
		}
	}
	return nil
}

// Get returns one game, consulting the cache first.
func (s *Service) Get(ctx context.Context, id string) (*Game, error) {
	l := pkglog.Ctx(ctx)

	game, err := s.cache.Get(ctx, id)
	if err == nil {
		return game, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		l.Warn().Err(err).Str(pkglog.FieldEventID, id).Msg("catalog cache read failed")
	}

	game, err = s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, game); err != nil {
		l.Warn().Err(err).Str(pkglog.FieldEventID, id).Msg("catalog cache write failed")
	}
	return game, nil
}

// List returns all games, optionally filtered by league.
func (s *Service) List(ctx context.Context, league string) ([]Game, error) {
	games, err := s.repo.List(ctx, league)
	if err != nil {
		return nil, err
	}
	if games == nil {
		games = []Game{}
	}
	return games, nil
}

func gameFromSeed(seed config.GameSeed) (*Game, error) {
	if seed.ID == "" {
		return nil, errors.New("game seed without id")
	}
	game := &Game{
		ID:       seed.ID,
		Title:    seed.Title,
		HomeTeam: seed.HomeTeam,
		AwayTeam: seed.AwayTeam,
		League:   seed.League,
		Tags:     seed.Tags,
	}
	if game.Title == "" && game.HomeTeam != "" && game.AwayTeam != "" {
		game.Title = fmt.Sprintf("%s vs %s", game.AwayTeam, game.HomeTeam)
	}
	if seed.StartTime != "" {
		t, err := time.Parse(time.RFC3339, seed.StartTime)
		if err != nil {
			return nil, fmt.Errorf("game %s: invalid start_time: %w", seed.ID, err)
		}
		game.StartTime = t.UTC()
	}
	return game, nil
}
