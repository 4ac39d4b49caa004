package catalog

import (
	"time"

	"github.com/weiawesome/wes-io-live/commentary-service/pkg/database"
)

// Game is one event viewers can request commentary for.
type Game struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	HomeTeam  string    `json:"home_team"`
	AwayTeam  string    `json:"away_team"`
	League    string    `json:"league"`
	StartTime time.Time `json:"start_time"`
	Tags      []string  `json:"tags"`
}

// GameModel is the GORM model for the games table.
type GameModel struct {
	ID        string               `gorm:"type:varchar(64);primaryKey"`
	Title     string               `gorm:"type:varchar(200);not null"`
	HomeTeam  string               `gorm:"type:varchar(100)"`
	AwayTeam  string               `gorm:"type:varchar(100)"`
	League    string               `gorm:"type:varchar(50);index"`
	StartTime time.Time            `gorm:"index"`
	Tags      database.StringArray `gorm:"type:text"`
	CreatedAt time.Time            `gorm:"autoCreateTime"`
	UpdatedAt time.Time            `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GameModel.
func (GameModel) TableName() string {
	return "games"
}

// ToDomain converts GameModel to Game.
func (m *GameModel) ToDomain() *Game {
	return &Game{
		ID:        m.ID,
		Title:     m.Title,
		HomeTeam:  m.HomeTeam,
		AwayTeam:  m.AwayTeam,
		League:    m.League,
		StartTime: m.StartTime,
		Tags:      []string(m.Tags),
	}
}

// GameToModel converts Game to GameModel.
func GameToModel(g *Game) *GameModel {
	return &GameModel{
		ID:        g.ID,
		Title:     g.Title,
		HomeTeam:  g.HomeTeam,
		AwayTeam:  g.AwayTeam,
		League:    g.League,
		StartTime: g.StartTime,
		Tags:      database.StringArray(g.Tags).Normalize(),
	}
}
