package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/weiawesome/wes-io-live/commentary-service/internal/domain"
	"github.com/weiawesome/wes-io-live/commentary-service/internal/gamestate"
	"github.com/weiawesome/wes-io-live/commentary-service/pkg/storage"
)

// MockPipeline builds commentary locally from a snapshot's talking points and
// produces silent audio of matching length. Used for development and demos.
type MockPipeline struct {
	audio      *audioStore
	sampleRate int
}

// NewMockPipeline creates a mock pipeline. A nil store disables audio.
func NewMockPipeline(cfg Config, store storage.Storage) *MockPipeline {
	m := &MockPipeline{sampleRate: cfg.SampleRate}
	if store != nil {
		m.audio = newAudioStore(store, cfg.AudioPrefix)
	}
	return m
}

func (m *MockPipeline) Initialize(ctx context.Context) error {
	return nil
}

func (m *MockPipeline) Process(ctx context.Context, snap Snapshot, style, language string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	state := gamestate.Extract(snap.Data)
	text := mockCommentary(state)
	result := &Result{
		Commentary: text,
		Style:      ResolveStyle(style, text),
	}

	if m.audio == nil {
		return result, nil
	}
	wav := EncodeWAV(SilentPCM(domain.EstimateDurationSeconds(text), m.sampleRate), m.sampleRate)
	key, err := m.audio.save(ctx, wav, result.Style)
	if err != nil {
		return nil, err
	}
	result.AudioKey = key
	result.AudioSize = int64(len(wav))
	return result, nil
}

func mockCommentary(state domain.GameState) string {
	if len(state.TalkingPoints) > 0 {
		return strings.Join(state.TalkingPoints, " ")
	}
	if state.LastEvent != "" {
		return fmt.Sprintf("%s with %s left in the %s period.", state.LastEvent, state.Clock, state.PeriodLabel)
	}
	return fmt.Sprintf("%d-%d with %s left in the %s period.", state.HomeScore, state.AwayScore, state.Clock, state.PeriodLabel)
}
