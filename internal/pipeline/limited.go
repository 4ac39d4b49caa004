package pipeline

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// LimitedPipeline bounds the number of concurrent Process calls across all
// sessions sharing it.
type LimitedPipeline struct {
	next Pipeline
	sem  *semaphore.Weighted
}

// NewLimitedPipeline wraps next so that at most n Process calls run at once.
func NewLimitedPipeline(next Pipeline, n int64) *LimitedPipeline {
	if n <= 0 {
		n = 1
	}
	return &LimitedPipeline{next: next, sem: semaphore.NewWeighted(n)}
}

func (l *LimitedPipeline) Initialize(ctx context.Context) error {
	return l.next.Initialize(ctx)
}

// Process waits for a free slot, or returns ctx.Err() if ctx ends first.
func (l *LimitedPipeline) Process(ctx context.Context, snap Snapshot, style, language string) (*Result, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer l.sem.Release(1)
	return l.next.Process(ctx, snap, style, language)
}
