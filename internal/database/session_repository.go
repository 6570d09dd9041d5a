package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/example/vocabgate/pkg/models"
)

// SessionRepository handles database operations for study sessions
type SessionRepository struct{}

// NewSessionRepository creates a new repository instance
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{}
}

// Save inserts a session or overwrites its counters and completion time
func (r *SessionRepository) Save(ctx context.Context, q Queryer, session *models.StudySession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now().UTC()
	}
	query := q.Rebind(`
		INSERT INTO study_sessions (id, user_id, language, reviewed, correct, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			reviewed = EXCLUDED.reviewed,
			correct = EXCLUDED.correct,
			completed_at = EXCLUDED.completed_at`)
	_, err := q.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.Language,
		session.Reviewed,
		session.Correct,
		session.StartedAt.UTC(),
		utcPtr(session.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save study session: %w", err)
	}
	return nil
}

// ListCompletedSince returns the learner's completed sessions since the given time,
// newest first
func (r *SessionRepository) ListCompletedSince(ctx context.Context, q Queryer, userID int64, since time.Time) ([]models.StudySession, error) {
	var sessions []models.StudySession
	query := q.Rebind(`
		SELECT id, user_id, language, reviewed, correct, started_at, completed_at
		FROM study_sessions
		WHERE user_id = ? AND completed_at IS NOT NULL AND completed_at >= ?
		ORDER BY completed_at DESC`)
	if err := sqlx.SelectContext(ctx, q, &sessions, query, userID, since.UTC()); err != nil {
		return nil, fmt.Errorf("failed to list study sessions: %w", err)
	}
	return sessions, nil
}
