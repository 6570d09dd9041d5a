// Package lexicon is an in-memory snapshot of the vocabulary table for one language.
package lexicon

import (
	"fmt"
	"strings"

	"github.com/example/vocabgate/internal/difficulty"
	"github.com/example/vocabgate/internal/filter"
	"github.com/example/vocabgate/pkg/models"
)

// Lexicon resolves surface forms to lemmas and lemmas to their tier. It is read-only
// after construction and safe for concurrent use.
type Lexicon struct {
	language string
	entries  map[string]models.VocabularyEntry // lowercased lemma -> entry
	forms    map[string]string                 // lowercased surface form -> lemma
	extra    map[string]string                 // externally resolved lemmas for this batch
}

var (
	_ filter.Lemmatizer       = (*Lexicon)(nil)
	_ filter.DifficultyLookup = (*Lexicon)(nil)
)

// New builds a lexicon. Entries of other languages are ignored. Entries without a tier
// but with a frequency rank are tiered with classifier.
func New(language string, entries []models.VocabularyEntry, classifier *difficulty.Classifier) *Lexicon {
	lang := difficulty.NormalizeLanguage(language)
	lx := &Lexicon{
		language: lang,
		entries:  make(map[string]models.VocabularyEntry, len(entries)),
		forms:    make(map[string]string),
		extra:    make(map[string]string),
	}
	for _, e := range entries {
		if difficulty.NormalizeLanguage(e.Language) != lang || strings.TrimSpace(e.Lemma) == "" {
			continue
		}
		if !e.DifficultyLevel.Valid() && e.FrequencyRank > 0 && classifier != nil {
			e.DifficultyLevel = classifier.Classify(e.Lemma, lang, e.FrequencyRank)
		}
		key := strings.ToLower(e.Lemma)
		lx.entries[key] = e
		lx.forms[key] = e.Lemma
		for _, form := range e.SurfaceForms {
			if f := strings.ToLower(strings.TrimSpace(form)); f != "" {
				if _, taken := lx.forms[f]; !taken {
					lx.forms[f] = e.Lemma
				}
			}
		}
	}
	return lx
}

// WithResolved adds lemmas resolved by an external lemmatizer for words the
// table does not know. Table forms keep priority.
func (lx *Lexicon) WithResolved(resolved map[string]string) *Lexicon {
	for form, lemma := range resolved {
		f := strings.ToLower(filter.TrimToken(form))
		lemma = strings.TrimSpace(lemma)
		if f == "" || lemma == "" {
			continue
		}
		lx.extra[f] = lemma
	}
	return lx
}

// Len returns the number of lemmas
func (lx *Lexicon) Len() int {
	return len(lx.entries)
}

// Knows reports whether the table or the resolved lemmas cover the surface form
func (lx *Lexicon) Knows(word string) bool {
	normalized, err := filter.NormalizeToken(word)
	if err != nil {
		return false
	}
	if _, ok := lx.forms[normalized]; ok {
		return true
	}
	_, ok := lx.extra[normalized]
	return ok
}

// Lemmatize implements filter.Lemmatizer. Unknown forms resolve to themselves.
func (lx *Lexicon) Lemmatize(word, language string) (string, error) {
	if lang := difficulty.NormalizeLanguage(language); lang != lx.language {
		return "", fmt.Errorf("lexicon holds %q, asked for %q", lx.language, lang)
	}
	normalized, err := filter.NormalizeToken(word)
	if err != nil {
		return "", err
	}
	if lemma, ok := lx.forms[normalized]; ok {
		return lemma, nil
	}
	if lemma, ok := lx.extra[normalized]; ok {
		return lemma, nil
	}
	return normalized, nil
}

// LookupDifficulty implements filter.DifficultyLookup
func (lx *Lexicon) LookupDifficulty(lemma, language string) filter.LookupResult {
	if lang := difficulty.NormalizeLanguage(language); lang != lx.language {
		return filter.NotFound{Lemma: lemma, Reason: fmt.Sprintf("no table for language %q", lang)}
	}
	entry, ok := lx.entries[strings.ToLower(lemma)]
	if !ok {
		return filter.NotFound{Lemma: lemma, Reason: "lemma not in vocabulary"}
	}
	if !entry.DifficultyLevel.Valid() {
		return filter.NotFound{Lemma: lemma, Reason: "lemma has no difficulty level"}
	}
	return filter.Found{Entry: entry}
}
