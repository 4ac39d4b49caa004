package domain

// Intensity levels derived from momentum and event density.
const (
	IntensityLow    = "low"
	IntensityMedium = "medium"
	IntensityHigh   = "high"
)

// HighlightEvent is one notable play from a snapshot.
type HighlightEvent struct {
	Summary     string  `json:"summary"`
	EventType   string  `json:"event_type,omitempty"`
	Time        string  `json:"time,omitempty"`
	ImpactScore float64 `json:"impact_score,omitempty"`
}

// GameState is the view model sent with every processed snapshot.
type GameState struct {
	Period         int              `json:"period"`
	PeriodLabel    string           `json:"period_label"`
	Clock          string           `json:"clock"`
	HomeScore      int              `json:"home_score"`
	AwayScore      int              `json:"away_score"`
	Situation      string           `json:"game_situation"`
	LastEvent      string           `json:"last_event,omitempty"`
	TalkingPoints  []string         `json:"talking_points"`
	RecentEvents   []HighlightEvent `json:"recent_events"`
	MomentumScore  float64          `json:"momentum_score"`
	Intensity      string           `json:"intensity"`
	Recommendation string           `json:"recommendation,omitempty"`
	PriorityLevel  int              `json:"priority_level,omitempty"`
}
