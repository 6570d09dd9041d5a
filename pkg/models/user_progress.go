package models

import "time"

// LearnerWordProgress tracks one learner's progress with one lemma.
// ReviewCount always equals CorrectCount + IncorrectCount.
type LearnerWordProgress struct {
	ID                   int64           `json:"id" db:"id"`
	UserID               int64           `json:"user_id" db:"user_id"`
	Lemma                string          `json:"lemma" db:"lemma"`
	Language             string          `json:"language" db:"language"`
	IsKnown              bool            `json:"is_known" db:"is_known"`
	ConfidenceLevel      ConfidenceLevel `json:"confidence_level" db:"confidence_level"`
	ReviewCount          int             `json:"review_count" db:"review_count"`
	CorrectCount         int             `json:"correct_count" db:"correct_count"`
	IncorrectCount       int             `json:"incorrect_count" db:"incorrect_count"`
	LearningStreak       int             `json:"learning_streak" db:"learning_streak"`
	FirstLearnedAt       *time.Time      `json:"first_learned_at" db:"first_learned_at"`
	LastReviewedAt       *time.Time      `json:"last_reviewed_at" db:"last_reviewed_at"`
	NextReviewAt         *time.Time      `json:"next_review_at" db:"next_review_at"`
	DifficultyAdjustment float64         `json:"difficulty_adjustment" db:"difficulty_adjustment"`
	Version              int64           `json:"version" db:"version"`
	CreatedAt            time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at" db:"updated_at"`

	// Resolved from the vocabulary table when loaded, not stored on the row
	DifficultyLevel DifficultyLevel `json:"difficulty_level" db:"difficulty_level"`
	FrequencyRank   int             `json:"frequency_rank,omitempty" db:"frequency_rank"`
}

// NewLearnerWordProgress returns a fresh record for a word seen for the first time
func NewLearnerWordProgress(userID int64, lemma, language string) LearnerWordProgress {
	return LearnerWordProgress{
		UserID:               userID,
		Lemma:                lemma,
		Language:             language,
		ConfidenceLevel:      ConfidenceUnknown,
		DifficultyAdjustment: 1.0,
	}
}

// SuccessRate is CorrectCount / ReviewCount, 0 when the word was never reviewed
func (p LearnerWordProgress) SuccessRate() float64 {
	if p.ReviewCount == 0 {
		return 0
	}
	return float64(p.CorrectCount) / float64(p.ReviewCount)
}

// IsMastered reports whether the word no longer needs scheduled reviews
func (p LearnerWordProgress) IsMastered() bool {
	return p.ConfidenceLevel == ConfidenceMastered && p.SuccessRate() >= 0.9 && p.ReviewCount >= 5
}

// NeedsReview reports whether the word is due at now
func (p LearnerWordProgress) NeedsReview(now time.Time) bool {
	return p.NextReviewAt == nil || !now.Before(*p.NextReviewAt)
}

// Entry returns the vocabulary entry this record refers to
func (p LearnerWordProgress) Entry() VocabularyEntry {
	return VocabularyEntry{
		Lemma:           p.Lemma,
		Language:        p.Language,
		DifficultyLevel: p.DifficultyLevel,
		FrequencyRank:   p.FrequencyRank,
	}
}
