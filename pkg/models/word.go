package models

import "time"

// VocabularyEntry is a canonical word of one language
type VocabularyEntry struct {
	ID              int64           `json:"id" db:"id"`
	Lemma           string          `json:"lemma" db:"lemma"`
	SurfaceForms    []string        `json:"surface_forms,omitempty" db:"-"`
	Language        string          `json:"language" db:"language"`
	DifficultyLevel DifficultyLevel `json:"difficulty_level" db:"difficulty_level"`
	FrequencyRank   int             `json:"frequency_rank,omitempty" db:"frequency_rank"` // 0 when unknown
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}
