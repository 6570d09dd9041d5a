package spaced_repetition

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/vocabgate/pkg/models"
)

// ErrInvalidProgressState is returned for records that break the progress invariants.
// It points at upstream corruption and is never corrected silently.
var ErrInvalidProgressState = errors.New("spaced_repetition: invalid progress state")

// Outcome is the result of one review
type Outcome string

const (
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
)

// ParseOutcome parses "correct" / "incorrect"
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(s) {
	case OutcomeCorrect, OutcomeIncorrect:
		return Outcome(s), nil
	}
	return "", fmt.Errorf("unknown review outcome %q", s)
}

// promotionStreak is the streak at which a correct answer raises confidence
const promotionStreak = 3

// knownConfidence is the confidence at which a word counts as known
const knownConfidence = models.ConfidenceStrong

// Validate checks the invariants of a progress record
func Validate(p models.LearnerWordProgress) error {
	if p.ReviewCount != p.CorrectCount+p.IncorrectCount {
		return fmt.Errorf("%w: review count %d != correct %d + incorrect %d",
			ErrInvalidProgressState, p.ReviewCount, p.CorrectCount, p.IncorrectCount)
	}
	if !p.ConfidenceLevel.Valid() {
		return fmt.Errorf("%w: confidence level %d out of range", ErrInvalidProgressState, int(p.ConfidenceLevel))
	}
	if p.CorrectCount < 0 || p.IncorrectCount < 0 || p.LearningStreak < 0 {
		return fmt.Errorf("%w: negative counter", ErrInvalidProgressState)
	}
	return nil
}

// RecordCorrect applies a correct answer. Confidence rises by one tier once the
// streak reaches three and keeps rising by one tier per correct answer after that.
func RecordCorrect(p models.LearnerWordProgress, now time.Time) (models.LearnerWordProgress, error) {
	if err := Validate(p); err != nil {
		return p, err
	}
	p.CorrectCount++
	p.ReviewCount++
	p.LearningStreak++
	p.LastReviewedAt = timePtr(now)

	if p.LearningStreak >= promotionStreak && p.ConfidenceLevel < models.ConfidenceMastered {
		p.ConfidenceLevel++
	}
	if p.ConfidenceLevel >= knownConfidence && !p.IsKnown {
		p.IsKnown = true
		if p.FirstLearnedAt == nil {
			p.FirstLearnedAt = timePtr(now)
		}
	}
	return p, nil
}

// RecordIncorrect applies a wrong answer: the streak resets and confidence drops one tier
func RecordIncorrect(p models.LearnerWordProgress, now time.Time) (models.LearnerWordProgress, error) {
	if err := Validate(p); err != nil {
		return p, err
	}
	p.IncorrectCount++
	p.ReviewCount++
	p.LearningStreak = 0
	p.LastReviewedAt = timePtr(now)

	if p.ConfidenceLevel > models.ConfidenceUnknown {
		p.ConfidenceLevel--
	}
	return p, nil
}

// MarkKnown records that the learner declared the word known
func MarkKnown(p models.LearnerWordProgress, now time.Time) (models.LearnerWordProgress, error) {
	if err := Validate(p); err != nil {
		return p, err
	}
	p.IsKnown = true
	if p.FirstLearnedAt == nil {
		p.FirstLearnedAt = timePtr(now)
	}
	return p, nil
}

// RecordReview applies outcome and schedules the next review from now
func RecordReview(p models.LearnerWordProgress, outcome Outcome, now time.Time) (models.LearnerWordProgress, error) {
	var err error
	switch outcome {
	case OutcomeCorrect:
		p, err = RecordCorrect(p, now)
	case OutcomeIncorrect:
		p, err = RecordIncorrect(p, now)
	default:
		return p, fmt.Errorf("unknown review outcome %q", outcome)
	}
	if err != nil {
		return p, err
	}
	p.NextReviewAt = timePtr(now.Add(NextInterval(p)))
	return p, nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}
