package repositories

import (
	"context"
	"fmt"
	"sync"

	"tryon-live/internal/domain/entities"
	domainrepos "tryon-live/internal/domain/repositories"
)

type MemorySessionRepository struct {
	sessions map[entities.SessionID]*entities.CaptureSession
	results  map[entities.SessionID]*entities.EditResult
	mu       sync.RWMutex
}

func NewMemorySessionRepository() domainrepos.SessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[entities.SessionID]*entities.CaptureSession),
		results:  make(map[entities.SessionID]*entities.EditResult),
	}
}

func (r *MemorySessionRepository) Save(ctx context.Context, session *entities.CaptureSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.ID()] = session
	return nil
}

// Delete discards the session but keeps its result, so the last edited
// frame stays retrievable after teardown.
func (r *MemorySessionRepository) Delete(ctx context.Context, id entities.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

func (r *MemorySessionRepository) SaveResult(ctx context.Context, id entities.SessionID, result *entities.EditResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.results[id] = result
	return nil
}

func (r *MemorySessionRepository) FindResultBySessionID(ctx context.Context, id entities.SessionID) (*entities.EditResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result, exists := r.results[id]
	if !exists {
		return nil, fmt.Errorf("result not found for session: %s", id)
	}

	return result, nil
}
