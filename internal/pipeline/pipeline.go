// Package pipeline is the client side of the external commentary generation
// pipeline: text generation followed by speech synthesis.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/weiawesome/wes-io-live/commentary-service/pkg/storage"
)

var (
	ErrNotInitialized = errors.New("pipeline not initialized")
	ErrPipelineFailed = errors.New("pipeline reported failure")
)

// Snapshot is one unit of work handed to the pipeline.
type Snapshot struct {
	Handle  string
	EventID string
	Data    []byte
}

// Result is the output of processing one snapshot. AudioKey is empty when no
// audio artifact was produced.
type Result struct {
	Commentary string
	Style      string
	AudioKey   string
	AudioSize  int64
}

// Pipeline generates commentary and audio for snapshots.
type Pipeline interface {
	// Initialize prepares the pipeline; it must succeed before Process is used.
	Initialize(ctx context.Context) error
	Process(ctx context.Context, snap Snapshot, style, language string) (*Result, error)
}

// Config holds pipeline configuration.
type Config struct {
	Type          string        `mapstructure:"type"` // "http", "mock"
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxConcurrent int64         `mapstructure:"max_concurrent"`
	AudioPrefix   string        `mapstructure:"audio_prefix"`
	SampleRate    int           `mapstructure:"sample_rate"`
}

// New builds the configured pipeline, wrapped in a concurrency limiter when
// MaxConcurrent is set.
func New(cfg Config, store storage.Storage) (Pipeline, error) {
	var p Pipeline
	switch cfg.Type {
	case "http":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("pipeline base_url is required for type http")
		}
		p = NewHTTPPipeline(cfg, store)
	case "mock", "":
		p = NewMockPipeline(cfg, store)
	default:
		return nil, fmt.Errorf("unsupported pipeline type: %s", cfg.Type)
	}

	if cfg.MaxConcurrent > 0 {
		p = NewLimitedPipeline(p, cfg.MaxConcurrent)
	}
	return p, nil
}
