package service

import (
	"context"
	"errors"
	"time"

	"github.com/example/vocabgate/internal/database"
	"github.com/example/vocabgate/internal/difficulty"
	"github.com/example/vocabgate/internal/level"
	"github.com/example/vocabgate/internal/spaced_repetition"
	"github.com/example/vocabgate/pkg/models"
)

func isNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}

// RecordReview applies a review outcome to the learner's record of lemma, creating the
// record on first review, and schedules the next review
func (s *Service) RecordReview(ctx context.Context, userID int64, lemma, language string, outcome spaced_repetition.Outcome) (*models.LearnerWordProgress, error) {
	lemma, err := normalizeLemma(lemma)
	if err != nil {
		return nil, err
	}
	language = difficulty.NormalizeLanguage(language)

	wasKnown := false
	updated, err := s.updateProgress(ctx, userID, lemma, language,
		func(p models.LearnerWordProgress, now time.Time) (models.LearnerWordProgress, error) {
			wasKnown = p.IsKnown
			return spaced_repetition.RecordReview(p, outcome, now)
		})
	if err != nil {
		return nil, err
	}
	if updated.IsKnown != wasKnown {
		s.invalidateKnown(ctx, userID, language)
	}

	s.log.Debug("review recorded",
		"user_id", userID,
		"lemma", lemma,
		"outcome", string(outcome),
		"confidence", updated.ConfidenceLevel.String(),
		"next_review_at", updated.NextReviewAt,
	)
	return updated, nil
}

// MarkKnown adds lemma to the learner's known set
func (s *Service) MarkKnown(ctx context.Context, userID int64, lemma, language string) (*models.LearnerWordProgress, error) {
	lemma, err := normalizeLemma(lemma)
	if err != nil {
		return nil, err
	}
	language = difficulty.NormalizeLanguage(language)

	updated, err := s.updateProgress(ctx, userID, lemma, language, spaced_repetition.MarkKnown)
	if err != nil {
		return nil, err
	}
	s.invalidateKnown(ctx, userID, language)
	s.log.Info("word marked known", "user_id", userID, "lemma", lemma, "language", language)
	return updated, nil
}

// Forget deletes the learner's record of lemma
func (s *Service) Forget(ctx context.Context, userID int64, lemma, language string) error {
	lemma, err := normalizeLemma(lemma)
	if err != nil {
		return err
	}
	language = difficulty.NormalizeLanguage(language)

	if err := s.progress.Delete(ctx, s.db, userID, lemma, language); err != nil {
		if isNotFound(err) {
			return ErrUnknownWord
		}
		return err
	}
	s.invalidateKnown(ctx, userID, language)
	s.log.Info("word forgotten", "user_id", userID, "lemma", lemma, "language", language)
	return nil
}

// DueForReview returns up to maxCount records in review order. maxCount <= 0 returns
// every due record.
func (s *Service) DueForReview(ctx context.Context, userID int64, language string, maxCount int) ([]models.LearnerWordProgress, error) {
	progress, err := s.progress.ListByUser(ctx, s.db, userID, difficulty.NormalizeLanguage(language))
	if err != nil {
		return nil, err
	}
	return spaced_repetition.DueQueue(progress, maxCount, s.now()), nil
}

// EstimateLevel estimates the learner's level from their progress. It does not
// change the stored level; see ApplyEstimatedLevel.
func (s *Service) EstimateLevel(ctx context.Context, userID int64, language string) (models.DifficultyLevel, error) {
	progress, err := s.progress.ListByUser(ctx, s.db, userID, difficulty.NormalizeLanguage(language))
	if err != nil {
		return models.LevelUnset, err
	}
	return level.EstimateLevel(progress), nil
}

// ApplyEstimatedLevel raises the stored level to the estimate when the estimate is
// higher and reports whether it did. A stored level is never lowered.
func (s *Service) ApplyEstimatedLevel(ctx context.Context, userID int64, language string) (models.DifficultyLevel, bool, error) {
	estimate, err := s.EstimateLevel(ctx, userID, language)
	if err != nil {
		return models.LevelUnset, false, err
	}
	user, err := s.users.GetByID(ctx, s.db, userID)
	if err != nil {
		return models.LevelUnset, false, err
	}
	if estimate.Rank() <= user.Level.Rank() {
		return user.Level, false, nil
	}
	previous := user.Level
	user.Level = estimate
	if err := s.users.Update(ctx, s.db, user); err != nil {
		return models.LevelUnset, false, err
	}
	s.log.Info("learner level raised", "user_id", userID, "from", previous.String(), "to", estimate.String())
	return estimate, true, nil
}

// LevelReport returns the per-level mastery the estimate is based on
func (s *Service) LevelReport(ctx context.Context, userID int64, language string) (map[models.DifficultyLevel]level.LevelMastery, error) {
	progress, err := s.progress.ListByUser(ctx, s.db, userID, difficulty.NormalizeLanguage(language))
	if err != nil {
		return nil, err
	}
	return level.MasteryByLevel(progress), nil
}

// RecommendNext returns up to count words to study next, optionally restricted to
// focusLevel (LevelUnset for no restriction)
func (s *Service) RecommendNext(ctx context.Context, userID int64, language string, count int, focusLevel models.DifficultyLevel) ([]models.VocabularyEntry, error) {
	progress, err := s.progress.ListByUser(ctx, s.db, userID, difficulty.NormalizeLanguage(language))
	if err != nil {
		return nil, err
	}
	return level.RecommendNext(progress, count, focusLevel, s.now()), nil
}

// Streak counts the consecutive days, ending today, on which the learner completed
// a session
func (s *Service) Streak(ctx context.Context, userID int64) (int, error) {
	now := s.now()
	sessions, err := s.sessions.ListCompletedSince(ctx, s.db, userID, now.Add(-s.streakWindow))
	if err != nil {
		return 0, err
	}
	return level.LearningStreak(sessions, now), nil
}
