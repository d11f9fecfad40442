package repositories

import (
	"context"

	"tryon-live/internal/domain/entities"
)

// SessionRepository stores the active session and the completed edit
// results. Results outlive the session itself: Delete discards the
// session but keeps its last result so the shell can re-fetch the edited
// frame after teardown.
type SessionRepository interface {
	Save(ctx context.Context, session *entities.CaptureSession) error
	Delete(ctx context.Context, id entities.SessionID) error
	SaveResult(ctx context.Context, id entities.SessionID, result *entities.EditResult) error
	FindResultBySessionID(ctx context.Context, id entities.SessionID) (*entities.EditResult, error)
}
