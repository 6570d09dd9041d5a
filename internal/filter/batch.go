// Package filter decides which words of a subtitle batch the learner has to face.
package filter

import (
	"errors"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/example/vocabgate/pkg/models"
)

// ErrNoLetters is returned by the default lemmatizer for tokens without letters
var ErrNoLetters = errors.New("filter: token has no letters")

// Lemmatizer resolves a surface form to its dictionary form
type Lemmatizer interface {
	Lemmatize(word, language string) (string, error)
}

// NameDetector reports whether a surface form is a proper name
type NameDetector interface {
	IsProperName(word, language string) bool
}

// DifficultyLookup resolves the authoritative tier of a lemma
type DifficultyLookup interface {
	LookupDifficulty(lemma, language string) LookupResult
}

// LookupResult is either Found or NotFound
type LookupResult interface {
	lookupResult()
}

// Found carries the vocabulary entry of a resolved lemma
type Found struct {
	Entry models.VocabularyEntry
}

// NotFound explains why a lemma has no entry
type NotFound struct {
	Lemma  string
	Reason string
}

func (Found) lookupResult()    {}
func (NotFound) lookupResult() {}

// KnownSet is a read-only snapshot of the lemmas a learner knows, lowercased
type KnownSet map[string]struct{}

// NewKnownSet builds a snapshot from raw lemmas
func NewKnownSet(lemmas ...string) KnownSet {
	set := make(KnownSet, len(lemmas))
	for _, l := range lemmas {
		l = strings.ToLower(strings.TrimSpace(l))
		if l != "" {
			set[l] = struct{}{}
		}
	}
	return set
}

// Contains reports whether lemma (compared lowercased) is known
func (s KnownSet) Contains(lemma string) bool {
	_, ok := s[strings.ToLower(lemma)]
	return ok
}

// NameSet is a NameDetector backed by a precomputed set of surface forms
type NameSet map[string]struct{}

// NewNameSet builds a NameSet; matching is case-sensitive on the trimmed token
func NewNameSet(names ...string) NameSet {
	set := make(NameSet, len(names))
	for _, n := range names {
		if n = TrimToken(n); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// IsProperName implements NameDetector
func (s NameSet) IsProperName(word, _ string) bool {
	_, ok := s[TrimToken(word)]
	return ok
}

// Batch holds everything one filtering request needs. It is built once per request
// and only read while words are classified, so segments may be filtered concurrently.
type Batch struct {
	ID          string
	Language    string
	UserLevel   models.DifficultyLevel
	KnownLemmas KnownSet
	Lemmatizer  Lemmatizer
	Names       NameDetector
	Difficulty  DifficultyLookup
}

// NewBatch creates a batch with a fresh id and default capabilities
func NewBatch(language string, userLevel models.DifficultyLevel, known KnownSet) *Batch {
	if known == nil {
		known = KnownSet{}
	}
	return &Batch{
		ID:          uuid.NewString(),
		Language:    language,
		UserLevel:   userLevel,
		KnownLemmas: known,
	}
}

func (b *Batch) lemmatizer() Lemmatizer {
	if b.Lemmatizer == nil {
		return normalizingLemmatizer{}
	}
	return b.Lemmatizer
}

func (b *Batch) isProperName(word string) bool {
	return b.Names != nil && b.Names.IsProperName(word, b.Language)
}

func (b *Batch) lookup(lemma string) LookupResult {
	if b.Difficulty == nil {
		return NotFound{Lemma: lemma, Reason: "no difficulty table"}
	}
	return b.Difficulty.LookupDifficulty(lemma, b.Language)
}

// normalizingLemmatizer treats the lowercased, trimmed token as its own lemma
type normalizingLemmatizer struct{}

func (normalizingLemmatizer) Lemmatize(word, _ string) (string, error) {
	return NormalizeToken(word)
}

// TrimToken strips surrounding punctuation and whitespace from a token
func TrimToken(word string) string {
	return strings.TrimFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// NormalizeToken trims and lowercases a token, failing when no letter remains
func NormalizeToken(word string) (string, error) {
	trimmed := TrimToken(word)
	hasLetter := false
	for _, r := range trimmed {
		if unicode.IsLetter(r) {
			hasLetter = true
			break
		}
	}
	if !hasLetter {
		return "", ErrNoLetters
	}
	return strings.ToLower(trimmed), nil
}
