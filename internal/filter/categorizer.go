package filter

import (
	"strings"

	"github.com/example/vocabgate/pkg/models"
)

// Categorization splits a batch of classified segments
type Categorization struct {
	LearningSegments []models.TextSegment
	EmptySegments    []models.TextSegment
	BlockingWords    []models.WordOccurrence
	Statistics       models.FilteringStatistics
}

// Categorize sorts segments into learning and empty ones and collects every active
// word of the batch, deduplicated by lemma, in order of first appearance.
func Categorize(segments []models.TextSegment) Categorization {
	out := Categorization{
		LearningSegments: []models.TextSegment{},
		EmptySegments:    []models.TextSegment{},
		BlockingWords:    []models.WordOccurrence{},
	}
	stats := models.FilteringStatistics{
		TotalSegments: len(segments),
		StatusCounts:  make(map[models.WordStatus]int),
	}
	seen := make(map[string]bool)

	for _, seg := range segments {
		for _, w := range seg.Words {
			stats.TotalWords++
			stats.StatusCounts[w.Status]++
			switch {
			case w.Status == models.StatusActive:
				stats.ActiveWords++
				key := blockingKey(w)
				if !seen[key] {
					seen[key] = true
					out.BlockingWords = append(out.BlockingWords, w)
				}
			case w.Status.IsFiltered():
				stats.FilteredWords++
			}
		}

		if seg.HasActiveWords() {
			out.LearningSegments = append(out.LearningSegments, seg)
		} else {
			out.EmptySegments = append(out.EmptySegments, seg)
		}
	}

	stats.LearningSegments = len(out.LearningSegments)
	stats.EmptySegments = len(out.EmptySegments)
	if stats.TotalWords > 0 {
		stats.FilterRate = float64(stats.FilteredWords) / float64(stats.TotalWords)
	}
	if stats.TotalSegments > 0 {
		stats.LearningSegmentRate = float64(stats.LearningSegments) / float64(stats.TotalSegments)
	}
	out.Statistics = stats
	return out
}

func blockingKey(w models.WordOccurrence) string {
	if w.Metadata.Lemma != "" {
		return strings.ToLower(w.Metadata.Lemma)
	}
	return strings.ToLower(TrimToken(w.Text))
}
