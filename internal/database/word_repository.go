package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/vocabgate/pkg/models"
)

// WordRepository handles database operations for vocabulary entries
type WordRepository struct{}

// NewWordRepository creates a new repository instance
func NewWordRepository() *WordRepository {
	return &WordRepository{}
}

// GetByLanguage returns all entries of a language with their surface forms
func (r *WordRepository) GetByLanguage(ctx context.Context, q Queryer, language string) ([]models.VocabularyEntry, error) {
	var entries []models.VocabularyEntry
	query := q.Rebind(`
		SELECT id, lemma, language, difficulty_level, frequency_rank, created_at
		FROM vocabulary WHERE language = ? ORDER BY lemma`)
	if err := sqlx.SelectContext(ctx, q, &entries, query, language); err != nil {
		return nil, fmt.Errorf("failed to get vocabulary: %w", err)
	}

	var forms []struct {
		VocabularyID int64  `db:"vocabulary_id"`
		Form         string `db:"form"`
	}
	query = q.Rebind(`
		SELECT sf.vocabulary_id, sf.form
		FROM surface_forms sf JOIN vocabulary v ON v.id = sf.vocabulary_id
		WHERE v.language = ? ORDER BY sf.form`)
	if err := sqlx.SelectContext(ctx, q, &forms, query, language); err != nil {
		return nil, fmt.Errorf("failed to get surface forms: %w", err)
	}

	byID := make(map[int64]int, len(entries))
	for i, e := range entries {
		byID[e.ID] = i
	}
	for _, f := range forms {
		if i, ok := byID[f.VocabularyID]; ok {
			entries[i].SurfaceForms = append(entries[i].SurfaceForms, f.Form)
		}
	}
	return entries, nil
}

// GetByLemma returns one entry without surface forms
func (r *WordRepository) GetByLemma(ctx context.Context, q Queryer, lemma, language string) (*models.VocabularyEntry, error) {
	var entry models.VocabularyEntry
	query := q.Rebind(`
		SELECT id, lemma, language, difficulty_level, frequency_rank, created_at
		FROM vocabulary WHERE lemma = ? AND language = ?`)
	err := sqlx.GetContext(ctx, q, &entry, query, lemma, language)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vocabulary entry: %w", err)
	}
	return &entry, nil
}

// Upsert inserts an entry or, if the lemma exists, updates its frequency rank and adds
// new surface forms. The difficulty level of an existing entry is only filled in when
// it was unset. Reports whether a new row was created.
func (r *WordRepository) Upsert(ctx context.Context, q Queryer, entry *models.VocabularyEntry) (bool, error) {
	existing, err := r.GetByLemma(ctx, q, entry.Lemma, entry.Language)
	created := false
	switch {
	case errors.Is(err, ErrNotFound):
		entry.CreatedAt = time.Now().UTC()
		query := q.Rebind(`
			INSERT INTO vocabulary (lemma, language, difficulty_level, frequency_rank, created_at)
			VALUES (?, ?, ?, ?, ?) RETURNING id`)
		if err := sqlx.GetContext(ctx, q, &entry.ID, query,
			entry.Lemma, entry.Language, entry.DifficultyLevel, entry.FrequencyRank, entry.CreatedAt); err != nil {
			return false, fmt.Errorf("failed to create vocabulary entry: %w", err)
		}
		created = true
	case err != nil:
		return false, err
	default:
		entry.ID = existing.ID
		entry.CreatedAt = existing.CreatedAt
		if existing.DifficultyLevel.Valid() {
			entry.DifficultyLevel = existing.DifficultyLevel
		}
		query := q.Rebind(`UPDATE vocabulary SET difficulty_level = ?, frequency_rank = ? WHERE id = ?`)
		if _, err := q.ExecContext(ctx, query, entry.DifficultyLevel, entry.FrequencyRank, entry.ID); err != nil {
			return false, fmt.Errorf("failed to update vocabulary entry: %w", err)
		}
	}

	for _, form := range entry.SurfaceForms {
		form = strings.TrimSpace(form)
		if form == "" {
			continue
		}
		query := q.Rebind(`
			INSERT INTO surface_forms (vocabulary_id, form) VALUES (?, ?)
			ON CONFLICT (vocabulary_id, form) DO NOTHING`)
		if _, err := q.ExecContext(ctx, query, entry.ID, form); err != nil {
			return created, fmt.Errorf("failed to add surface form %q: %w", form, err)
		}
	}
	return created, nil
}

// CorrectLevel overwrites the difficulty level of an entry
func (r *WordRepository) CorrectLevel(ctx context.Context, q Queryer, lemma, language string, level models.DifficultyLevel) error {
	query := q.Rebind(`UPDATE vocabulary SET difficulty_level = ? WHERE lemma = ? AND language = ?`)
	res, err := q.ExecContext(ctx, query, level, lemma, language)
	if err != nil {
		return fmt.Errorf("failed to correct level: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
