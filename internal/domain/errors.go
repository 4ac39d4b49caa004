package domain

import "errors"

// Error codes sent to viewers.
const (
	ErrCodeConfiguration    = "CONFIGURATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeItemProcessing   = "ITEM_PROCESSING_ERROR"
	ErrCodeUnexpectedWorker = "UNEXPECTED_WORKER_ERROR"
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeDuplicateSession = "DUPLICATE_SESSION"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrDuplicateSession    = errors.New("session already active")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrMissingEventID      = errors.New("missing event_id")
	ErrPipelineUnavailable = errors.New("pipeline unavailable")
	ErrNoSnapshots         = errors.New("no snapshots found")
	ErrGameNotFound        = errors.New("game not found")
)

// ErrorCode maps a domain error onto the code reported to viewers.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrPipelineUnavailable):
		return ErrCodeConfiguration
	case errors.Is(err, ErrMissingEventID), errors.Is(err, ErrNoSnapshots),
		errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrGameNotFound):
		return ErrCodeNotFound
	case errors.Is(err, ErrDuplicateSession):
		return ErrCodeDuplicateSession
	case errors.Is(err, ErrInvalidTransition):
		return ErrCodeBadRequest
	default:
		return ErrCodeInternal
	}
}
