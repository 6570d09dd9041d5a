package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/vocabgate/pkg/models"
)

const progressColumns = `
	p.id, p.user_id, p.lemma, p.language, p.is_known, p.confidence_level,
	p.review_count, p.correct_count, p.incorrect_count, p.learning_streak,
	p.first_learned_at, p.last_reviewed_at, p.next_review_at, p.difficulty_adjustment,
	p.version, p.created_at, p.updated_at,
	COALESCE(v.difficulty_level, '') AS difficulty_level,
	COALESCE(v.frequency_rank, 0) AS frequency_rank`

const progressFrom = `
	FROM learner_progress p
	LEFT JOIN vocabulary v ON v.lemma = p.lemma AND v.language = p.language`

// UserProgressRepository handles database operations for learner word progress
type UserProgressRepository struct{}

// NewUserProgressRepository creates a new repository instance
func NewUserProgressRepository() *UserProgressRepository {
	return &UserProgressRepository{}
}

// GetByUserAndLemma returns progress for a specific learner and lemma
func (r *UserProgressRepository) GetByUserAndLemma(ctx context.Context, q Queryer, userID int64, lemma, language string) (*models.LearnerWordProgress, error) {
	var progress models.LearnerWordProgress
	query := q.Rebind(`SELECT` + progressColumns + progressFrom + `
		WHERE p.user_id = ? AND p.lemma = ? AND p.language = ?`)
	err := sqlx.GetContext(ctx, q, &progress, query, userID, lemma, language)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get learner progress: %w", err)
	}
	return &progress, nil
}

// ListByUser returns every progress record of a learner for one language
func (r *UserProgressRepository) ListByUser(ctx context.Context, q Queryer, userID int64, language string) ([]models.LearnerWordProgress, error) {
	var progress []models.LearnerWordProgress
	query := q.Rebind(`SELECT` + progressColumns + progressFrom + `
		WHERE p.user_id = ? AND p.language = ?
		ORDER BY p.id`)
	if err := sqlx.SelectContext(ctx, q, &progress, query, userID, language); err != nil {
		return nil, fmt.Errorf("failed to list learner progress: %w", err)
	}
	return progress, nil
}

// KnownLemmas returns the lemmas the learner marked or learned as known
func (r *UserProgressRepository) KnownLemmas(ctx context.Context, q Queryer, userID int64, language string) ([]string, error) {
	var lemmas []string
	query := q.Rebind(`SELECT lemma FROM learner_progress WHERE user_id = ? AND language = ? AND is_known = ?`)
	if err := sqlx.SelectContext(ctx, q, &lemmas, query, userID, language, true); err != nil {
		return nil, fmt.Errorf("failed to get known lemmas: %w", err)
	}
	return lemmas, nil
}

// Create inserts a new progress record. A concurrent insert of the same
// (learner, lemma, language) yields ErrVersionConflict.
func (r *UserProgressRepository) Create(ctx context.Context, q Queryer, progress *models.LearnerWordProgress) error {
	now := time.Now().UTC()
	query := q.Rebind(`
		INSERT INTO learner_progress (
			user_id, lemma, language, is_known, confidence_level,
			review_count, correct_count, incorrect_count, learning_streak,
			first_learned_at, last_reviewed_at, next_review_at, difficulty_adjustment,
			version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		RETURNING id`)
	err := sqlx.GetContext(ctx, q, &progress.ID, query,
		progress.UserID,
		progress.Lemma,
		progress.Language,
		progress.IsKnown,
		progress.ConfidenceLevel,
		progress.ReviewCount,
		progress.CorrectCount,
		progress.IncorrectCount,
		progress.LearningStreak,
		utcPtr(progress.FirstLearnedAt),
		utcPtr(progress.LastReviewedAt),
		utcPtr(progress.NextReviewAt),
		progress.DifficultyAdjustment,
		now,
		now,
	)
	if isUniqueViolation(err) {
		return ErrVersionConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create learner progress: %w", err)
	}
	progress.Version = 1
	progress.CreatedAt = now
	progress.UpdatedAt = now
	return nil
}

// Update writes progress if nobody changed the row since it was read,
// otherwise it returns ErrVersionConflict
func (r *UserProgressRepository) Update(ctx context.Context, q Queryer, progress *models.LearnerWordProgress) error {
	now := time.Now().UTC()
	query := q.Rebind(`
		UPDATE learner_progress SET
			is_known = ?,
			confidence_level = ?,
			review_count = ?,
			correct_count = ?,
			incorrect_count = ?,
			learning_streak = ?,
			first_learned_at = ?,
			last_reviewed_at = ?,
			next_review_at = ?,
			difficulty_adjustment = ?,
			version = version + 1,
			updated_at = ?
		WHERE id = ? AND version = ?`)
	res, err := q.ExecContext(ctx, query,
		progress.IsKnown,
		progress.ConfidenceLevel,
		progress.ReviewCount,
		progress.CorrectCount,
		progress.IncorrectCount,
		progress.LearningStreak,
		utcPtr(progress.FirstLearnedAt),
		utcPtr(progress.LastReviewedAt),
		utcPtr(progress.NextReviewAt),
		progress.DifficultyAdjustment,
		now,
		progress.ID,
		progress.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update learner progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update learner progress: %w", err)
	}
	if n == 0 {
		return ErrVersionConflict
	}
	progress.Version++
	progress.UpdatedAt = now
	return nil
}

// Save creates or updates progress depending on whether it has an id
func (r *UserProgressRepository) Save(ctx context.Context, q Queryer, progress *models.LearnerWordProgress) error {
	if progress.ID == 0 {
		return r.Create(ctx, q, progress)
	}
	return r.Update(ctx, q, progress)
}

// Delete removes the learner's record for a lemma ("forget this word")
func (r *UserProgressRepository) Delete(ctx context.Context, q Queryer, userID int64, lemma, language string) error {
	query := q.Rebind(`DELETE FROM learner_progress WHERE user_id = ? AND lemma = ? AND language = ?`)
	res, err := q.ExecContext(ctx, query, userID, lemma, language)
	if err != nil {
		return fmt.Errorf("failed to delete learner progress: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountDue returns how many records of the learner are due at now
func (r *UserProgressRepository) CountDue(ctx context.Context, q Queryer, userID int64, now time.Time) (int, error) {
	var count int
	query := q.Rebind(`
		SELECT COUNT(*) FROM learner_progress
		WHERE user_id = ? AND (next_review_at IS NULL OR next_review_at <= ?)`)
	if err := sqlx.GetContext(ctx, q, &count, query, userID, now.UTC()); err != nil {
		return 0, fmt.Errorf("failed to count due words: %w", err)
	}
	return count, nil
}
