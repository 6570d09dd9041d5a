package filter

import (
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/example/vocabgate/pkg/models"
)

// FilterSegments classifies every word of every segment and categorizes the batch.
// Segments without words are tokenized from their original text first. The input
// slice is not modified. A result is always returned, even if no word could be resolved.
func FilterSegments(segments []models.TextSegment, b *Batch) models.FilteringResult {
	classified := make([]models.TextSegment, len(segments))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range segments {
		i := i
		g.Go(func() error {
			classified[i] = classifySegment(segments[i], b)
			return nil
		})
	}
	_ = g.Wait()

	cat := Categorize(classified)
	return models.FilteringResult{
		BatchID:          b.ID,
		Language:         b.Language,
		UserLevel:        b.UserLevel,
		LearningSegments: cat.LearningSegments,
		EmptySegments:    cat.EmptySegments,
		BlockingWords:    cat.BlockingWords,
		Statistics:       cat.Statistics,
	}
}

func classifySegment(seg models.TextSegment, b *Batch) models.TextSegment {
	var words []models.WordOccurrence
	if len(seg.Words) == 0 {
		words = Tokenize(seg)
	} else {
		words = make([]models.WordOccurrence, len(seg.Words))
		copy(words, seg.Words)
	}
	for i := range words {
		words[i] = ClassifyWord(words[i], b)
	}
	seg.Words = words
	return seg
}

// Tokenize splits the original text of a segment into word occurrences. Tokens made
// only of punctuation are dropped; every word inherits the segment timing.
func Tokenize(seg models.TextSegment) []models.WordOccurrence {
	var words []models.WordOccurrence
	for _, field := range strings.Fields(seg.OriginalText) {
		if TrimToken(field) == "" {
			continue
		}
		words = append(words, models.WordOccurrence{
			Text:      field,
			StartTime: seg.StartTime,
			EndTime:   seg.EndTime,
			Status:    models.StatusPending,
		})
	}
	return words
}

// SegmentFromText is a convenience for callers holding plain text
func SegmentFromText(text string) models.TextSegment {
	return models.TextSegment{OriginalText: text}
}
