package service

import (
	"context"
	"strings"

	"github.com/example/vocabgate/internal/difficulty"
	"github.com/example/vocabgate/internal/filter"
	"github.com/example/vocabgate/internal/lexicon"
	"github.com/example/vocabgate/pkg/models"
)

// FilterSegments classifies the segments for one learner. The learner's known set and
// the vocabulary table are loaded once for the whole batch. Unregistered learners are
// filtered at A1 with an empty known set.
func (s *Service) FilterSegments(ctx context.Context, userID int64, language string, segments []models.TextSegment) (models.FilteringResult, error) {
	language = difficulty.NormalizeLanguage(language)

	userLevel := models.LevelA1
	user, err := s.users.GetByID(ctx, s.db, userID)
	switch {
	case err == nil:
		if user.Level.Valid() {
			userLevel = user.Level
		}
		if language == "" {
			language = user.Language
		}
	case !isNotFound(err):
		return models.FilteringResult{}, err
	}

	known, err := s.knownLemmas(ctx, userID, language)
	if err != nil {
		return models.FilteringResult{}, err
	}
	entries, err := s.words.GetByLanguage(ctx, s.db, language)
	if err != nil {
		return models.FilteringResult{}, err
	}

	lx := lexicon.New(language, entries, s.classifier)
	batch := filter.NewBatch(language, userLevel, filter.NewKnownSet(known...))
	batch.Lemmatizer = lx
	batch.Difficulty = lx

	if s.assistant != nil {
		s.resolveWithAssistant(ctx, batch, lx, segments)
	}

	result := filter.FilterSegments(segments, batch)

	s.log.Info("filtered segments",
		"batch_id", result.BatchID,
		"user_id", userID,
		"language", language,
		"level", userLevel.String(),
		"lexicon_entries", lx.Len(),
		"segments", result.Statistics.TotalSegments,
		"active_words", result.Statistics.ActiveWords,
		"filter_rate", result.Statistics.FilterRate,
	)
	return result, nil
}

// FilterText splits text into one segment per non-empty line and filters it
func (s *Service) FilterText(ctx context.Context, userID int64, language, text string) (models.FilteringResult, error) {
	var segments []models.TextSegment
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			segments = append(segments, filter.SegmentFromText(line))
		}
	}
	return s.FilterSegments(ctx, userID, language, segments)
}

// resolveWithAssistant asks the assistant about every distinct token of the batch once.
// Failures only cost precision, so they are logged and the batch continues.
func (s *Service) resolveWithAssistant(ctx context.Context, b *filter.Batch, lx *lexicon.Lexicon, segments []models.TextSegment) {
	var tokens, unknown []string
	seen := make(map[string]bool)
	for _, seg := range segments {
		words := seg.Words
		if len(words) == 0 {
			words = filter.Tokenize(seg)
		}
		for _, w := range words {
			token := filter.TrimToken(w.Text)
			if token == "" || seen[token] {
				continue
			}
			seen[token] = true
			tokens = append(tokens, token)
			if !lx.Knows(token) {
				unknown = append(unknown, token)
			}
		}
	}
	if len(tokens) == 0 {
		return
	}

	names, err := s.assistant.DetectProperNames(ctx, b.Language, tokens)
	if err != nil {
		s.log.Warn("proper name detection failed", "batch_id", b.ID, "error", err)
	} else {
		list := make([]string, 0, len(names))
		for name, ok := range names {
			if ok {
				list = append(list, name)
			}
		}
		b.Names = filter.NewNameSet(list...)
	}

	if len(unknown) == 0 {
		return
	}
	lemmas, err := s.assistant.LemmatizeBatch(ctx, b.Language, unknown)
	if err != nil {
		s.log.Warn("batch lemmatization failed", "batch_id", b.ID, "error", err)
		return
	}
	lx.WithResolved(lemmas)
}
