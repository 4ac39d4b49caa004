package catalog

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/weiawesome/wes-io-live/commentary-service/internal/domain"
	pkglog "github.com/weiawesome/wes-io-live/commentary-service/pkg/log"
)

// ErrGameNotFound is returned when no game has the requested id.
var ErrGameNotFound = domain.ErrGameNotFound

// Repository defines persistence for catalog games.
type Repository interface {
	Upsert(ctx context.Context, game *Game) error
	GetByID(ctx context.Context, id string) (*Game, error)
	List(ctx context.Context, league string) ([]Game, error)
}

// GormRepository implements Repository using GORM.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new GORM-based game repository.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Migrate creates or updates the games table.
func (r *GormRepository) Migrate() error {
	return r.db.AutoMigrate(&GameModel{})
}

// Upsert inserts a game or updates it in place when the id exists.
func (r *GormRepository) Upsert(ctx context.Context, game *Game) error {
	l := pkglog.Ctx(ctx)

	model := GameToModel(game)
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "home_team", "away_team", "league", "start_time", "tags", "updated_at"}),
	}).Create(model)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(pkglog.FieldEventID, game.ID).Msg("failed to upsert game")
		return result.Error
	}
	return nil
}

// GetByID retrieves a game by id.
func (r *GormRepository) GetByID(ctx context.Context, id string) (*Game, error) {
	l := pkglog.Ctx(ctx)

	var model GameModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrGameNotFound
		}
		l.Error().Err(result.Error).Str(pkglog.FieldEventID, id).Msg("failed to get game by id")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// List returns games ordered by start time, optionally filtered by league.
func (r *GormRepository) List(ctx context.Context, league string) ([]Game, error) {
	l := pkglog.Ctx(ctx)

	query := r.db.WithContext(ctx).Model(&GameModel{})
	if league != "" {
		query = query.Where("league = ?", league)
	}

	var models []GameModel
	if err := query.Order("start_time ASC").Find(&models).Error; err != nil {
		l.Error().Err(err).Msg("failed to list games from db")
		return nil, err
	}

	games := make([]Game, len(models))
	for i, model := range models {
		games[i] = *model.ToDomain()
	}
	return games, nil
}

var _ Repository = (*GormRepository)(nil)
