package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/weiawesome/wes-io-live/commentary-service/internal/domain"
)

type record struct {
	session domain.Session
	// changed is closed and replaced on every status change, and closed on removal.
	changed chan struct{}
}

// Registry is an in-memory, concurrency-safe store of active sessions.
// A session is present only between start and terminal cleanup.
type Registry struct {
	sessions map[string]*record         // sessionID -> record
	byViewer map[string]map[string]bool // viewerID -> set of sessionIDs
	mu       sync.RWMutex
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		sessions: make(map[string]*record),
		byViewer: make(map[string]map[string]bool),
	}
}

// Create registers a new session. It fails with ErrDuplicateSession if a
// session with the same id is already active.
func (r *Registry) Create(session *domain.Session) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.ID]; exists {
		return "", fmt.Errorf("%w: %s", domain.ErrDuplicateSession, session.ID)
	}

	r.sessions[session.ID] = &record{
		session: *session,
		changed: make(chan struct{}),
	}
	if r.byViewer[session.ViewerID] == nil {
		r.byViewer[session.ViewerID] = make(map[string]bool)
	}
	r.byViewer[session.ViewerID][session.ID] = true

	return session.ID, nil
}

// Get returns a copy of the session.
func (r *Registry) Get(sessionID string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	session := rec.session
	return &session, nil
}

// Watch returns a copy of the session together with a channel that is closed
// on its next status change or removal.
func (r *Registry) Watch(sessionID string) (*domain.Session, <-chan struct{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.sessions[sessionID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	session := rec.session
	return &session, rec.changed, nil
}

// UpdateStatus moves a session to a new status if the transition is legal.
func (r *Registry) UpdateStatus(sessionID string, status domain.SessionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	if !rec.session.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, rec.session.Status, status)
	}

	rec.session.Status = status
	close(rec.changed)
	rec.changed = make(chan struct{})
	return nil
}

// Remove deletes a session and wakes any watcher. It returns the removed
// session, or false if it was already gone.
func (r *Registry) Remove(sessionID string) (*domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[sessionID]
	if !ok {
		return nil, false
	}

	delete(r.sessions, sessionID)
	if ids := r.byViewer[rec.session.ViewerID]; ids != nil {
		delete(ids, sessionID)
		if len(ids) == 0 {
			delete(r.byViewer, rec.session.ViewerID)
		}
	}
	close(rec.changed)

	session := rec.session
	return &session, true
}

// ListByViewer returns the ids of every active session owned by a viewer, sorted.
func (r *Registry) ListByViewer(viewerID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.byViewer[viewerID]))
	for id := range r.byViewer[viewerID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// List returns copies of all active sessions ordered by id.
func (r *Registry) List() []*domain.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Session, 0, len(r.sessions))
	for _, rec := range r.sessions {
		session := rec.session
		result = append(result, &session)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Count returns the number of active sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
