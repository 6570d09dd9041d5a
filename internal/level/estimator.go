// Package level estimates learner proficiency from word progress and picks what to learn next.
package level

import (
	"time"

	"github.com/example/vocabgate/pkg/models"
)

// MasteryThreshold is the share of words a learner must master to hold a level
const MasteryThreshold = 0.7

// masteredConfidence is the minimum confidence for a known word to count as mastered
const masteredConfidence = models.ConfidenceModerate

// LevelMastery is the mastery share for one tier
type LevelMastery struct {
	Level    models.DifficultyLevel
	Total    int
	Mastered int
}

// Pct returns Mastered/Total, 0 when the tier has no records
func (m LevelMastery) Pct() float64 {
	if m.Total == 0 {
		return 0
	}
	return float64(m.Mastered) / float64(m.Total)
}

// MasteryByLevel groups records by the difficulty tier of their word. Records whose
// word has no tier are skipped.
func MasteryByLevel(progress []models.LearnerWordProgress) map[models.DifficultyLevel]LevelMastery {
	out := make(map[models.DifficultyLevel]LevelMastery)
	for _, p := range progress {
		if !p.DifficultyLevel.Valid() {
			continue
		}
		m := out[p.DifficultyLevel]
		m.Level = p.DifficultyLevel
		m.Total++
		if p.IsKnown && p.ConfidenceLevel >= masteredConfidence {
			m.Mastered++
		}
		out[p.DifficultyLevel] = m
	}
	return out
}

// EstimateLevel returns the hardest tier whose mastery reaches MasteryThreshold,
// scanning from C1 down to A1. C2 is where unresolved words land, so it never
// counts as demonstrated. Defaults to A1.
func EstimateLevel(progress []models.LearnerWordProgress) models.DifficultyLevel {
	mastery := MasteryByLevel(progress)
	for rank := models.LevelC1.Rank(); rank >= models.LevelA1.Rank(); rank-- {
		lvl := models.LevelFromRank(rank)
		m, ok := mastery[lvl]
		if ok && m.Total > 0 && m.Pct() >= MasteryThreshold {
			return lvl
		}
	}
	return models.LevelA1
}

// RecommendNext picks up to count words to study: due and not mastered first, then
// partially known, then fully unknown. A valid focusLevel restricts every bucket to it.
func RecommendNext(progress []models.LearnerWordProgress, count int, focusLevel models.DifficultyLevel, now time.Time) []models.VocabularyEntry {
	if count <= 0 {
		return []models.VocabularyEntry{}
	}

	var due, partial, unknown []models.LearnerWordProgress
	for _, p := range progress {
		if focusLevel.Valid() && p.DifficultyLevel != focusLevel {
			continue
		}
		switch {
		case p.NeedsReview(now) && !p.IsMastered():
			due = append(due, p)
		case !p.IsKnown && p.ConfidenceLevel > models.ConfidenceUnknown:
			partial = append(partial, p)
		case !p.IsKnown && p.ConfidenceLevel == models.ConfidenceUnknown:
			unknown = append(unknown, p)
		}
	}

	out := make([]models.VocabularyEntry, 0, count)
	for _, bucket := range [][]models.LearnerWordProgress{due, partial, unknown} {
		for _, p := range bucket {
			if len(out) == count {
				return out
			}
			out = append(out, p.Entry())
		}
	}
	return out
}
