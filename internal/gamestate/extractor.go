// Package gamestate turns raw snapshot documents into the view model shown
// alongside commentary. Extraction is total: malformed input yields defaults.
package gamestate

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/weiawesome/wes-io-live/commentary-service/internal/domain"
)

const (
	DefaultPeriod    = 1
	DefaultClock     = "20:00"
	DefaultSituation = "even_strength"

	maxTalkingPoints = 3
	maxRecentEvents  = 5
)

// Defaults returns the view model used when a snapshot carries no usable data.
func Defaults() domain.GameState {
	return domain.GameState{
		Period:        DefaultPeriod,
		PeriodLabel:   PeriodLabel(DefaultPeriod),
		Clock:         DefaultClock,
		Situation:     DefaultSituation,
		TalkingPoints: []string{},
		RecentEvents:  []domain.HighlightEvent{},
		Intensity:     domain.IntensityLow,
	}
}

// Extract builds a GameState from a raw snapshot. It accepts the
// for_commentary_agent layout, the analysis/recommendation layout, or a flat
// object, and never panics.
func Extract(raw []byte) (state domain.GameState) {
	state = Defaults()
	defer func() {
		if r := recover(); r != nil {
			state = Defaults()
		}
	}()

	if !gjson.ValidBytes(raw) {
		return state
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return state
	}

	src := root.Get("for_commentary_agent")
	if !src.IsObject() {
		src = root.Get("analysis")
		if !src.IsObject() {
			src = root
		}
	}
	game := src.Get("game_context")
	if !game.IsObject() {
		game = src
	}

	if p := game.Get("period"); p.Type == gjson.Number && p.Int() > 0 {
		state.Period = int(p.Int())
	}
	state.PeriodLabel = PeriodLabel(state.Period)
	if pt := strings.ToUpper(game.Get("periodType").String()); pt == "OT" || pt == "SO" {
		state.PeriodLabel = pt
	}

	if clock := strings.TrimSpace(game.Get("time_remaining").String()); clock != "" {
		state.Clock = clock
	}
	if s := game.Get("home_score"); s.Type == gjson.Number && s.Int() >= 0 {
		state.HomeScore = int(s.Int())
	}
	if s := game.Get("away_score"); s.Type == gjson.Number && s.Int() >= 0 {
		state.AwayScore = int(s.Int())
	}
	if situation := normalizeSituation(game.Get("game_situation").String()); situation != "" {
		state.Situation = situation
	}

	state.TalkingPoints = talkingPoints(root, src)

	events := src.Get("high_intensity_events")
	if !events.IsArray() {
		events = root.Get("high_intensity_events")
	}
	all := highlights(events)
	if len(all) > 0 {
		state.LastEvent = all[len(all)-1].Summary
	}
	if len(all) > maxRecentEvents {
		state.RecentEvents = all[len(all)-maxRecentEvents:]
	} else {
		state.RecentEvents = all
	}

	if m := src.Get("momentum_score"); m.Type == gjson.Number {
		state.MomentumScore = m.Float()
	}
	state.Intensity = Intensity(state.MomentumScore, len(all))

	if rec := src.Get("recommendation"); rec.Type == gjson.String {
		state.Recommendation = rec.String()
	}
	if pl := src.Get("priority_level"); pl.Type == gjson.Number {
		state.PriorityLevel = int(pl.Int())
	}

	return state
}

// Intensity classifies momentum and event density.
func Intensity(momentum float64, eventCount int) string {
	switch {
	case momentum >= 70 || eventCount >= 3:
		return domain.IntensityHigh
	case momentum >= 40 || eventCount >= 2:
		return domain.IntensityMedium
	default:
		return domain.IntensityLow
	}
}

// PeriodLabel renders a period number the way a scoreboard does.
func PeriodLabel(period int) string {
	switch {
	case period <= 1:
		return "1st"
	case period == 2:
		return "2nd"
	case period == 3:
		return "3rd"
	case period == 4:
		return "OT"
	default:
		return "SO"
	}
}

func talkingPoints(root, src gjson.Result) []string {
	candidates := []gjson.Result{
		src.Get("key_talking_points"),
		root.Get("recommendation.talking_points"),
		src.Get("talking_points"),
	}

	points := []string{}
	for _, c := range candidates {
		if !c.IsArray() {
			continue
		}
		c.ForEach(func(_, v gjson.Result) bool {
			if v.Type == gjson.String {
				if text := strings.TrimSpace(v.String()); text != "" {
					points = append(points, text)
				}
			}
			return len(points) < maxTalkingPoints
		})
		if len(points) > 0 {
			break
		}
	}
	return points
}

func highlights(events gjson.Result) []domain.HighlightEvent {
	out := []domain.HighlightEvent{}
	if !events.IsArray() {
		return out
	}
	events.ForEach(func(_, v gjson.Result) bool {
		var ev domain.HighlightEvent
		switch {
		case v.IsObject():
			ev = domain.HighlightEvent{
				Summary:     v.Get("summary").String(),
				EventType:   v.Get("event_type").String(),
				Time:        v.Get("time").String(),
				ImpactScore: v.Get("impact_score").Float(),
			}
			if ev.Summary == "" {
				ev.Summary = v.Get("description").String()
			}
		case v.Type == gjson.String:
			ev.Summary = v.String()
		default:
			return true
		}
		out = append(out, ev)
		return true
	})
	return out
}

func normalizeSituation(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "_")
}
