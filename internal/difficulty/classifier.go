// Package difficulty estimates a CEFR tier for words that have none assigned.
package difficulty

import (
	"strings"
	"unicode/utf8"

	"github.com/example/vocabgate/pkg/models"
)

// bucket maps an upper bound (inclusive) onto a tier rank
type bucket struct {
	max  int
	rank int
}

var (
	frequencyBuckets = []bucket{{1000, 1}, {3000, 2}, {5000, 3}, {8000, 4}}
	lengthBuckets    = []bucket{{4, 1}, {7, 2}, {10, 3}, {13, 4}}
)

// fallbackRank is used past the last bucket and for unrecognized languages
const fallbackRank = 5

// compoundMinLength is the length above which a word of a compounding language
// is treated as a probable compound
const compoundMinLength = 15

var recognizedLanguages = map[string]bool{
	"en": true, "de": true, "nl": true, "sv": true, "da": true, "no": true, "nb": true,
	"fr": true, "es": true, "it": true, "pt": true, "pl": true, "ru": true, "uk": true,
	"cs": true, "tr": true,
}

// compoundingLanguages glue nouns together, so long words are often built from easy parts
var compoundingLanguages = map[string]bool{
	"de": true, "nl": true, "sv": true, "da": true, "no": true, "nb": true,
}

// Classifier estimates a difficulty tier from frequency or word length
type Classifier struct{}

// NewClassifier creates a classifier
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify returns the estimated tier of word. A frequencyRank of 0 means the rank is
// unknown; when present it always wins over the length heuristic.
// Unrecognized languages get C1.
func (c *Classifier) Classify(word, language string, frequencyRank int) models.DifficultyLevel {
	lang := NormalizeLanguage(language)
	if !recognizedLanguages[lang] {
		return models.LevelFromRank(fallbackRank)
	}

	length := utf8.RuneCountInString(strings.TrimSpace(word))

	var rank int
	if frequencyRank > 0 {
		rank = bucketRank(frequencyBuckets, frequencyRank)
	} else {
		rank = bucketRank(lengthBuckets, length)
	}

	if compoundingLanguages[lang] && length > compoundMinLength && !strings.ContainsRune(word, 'ß') {
		rank--
	}

	return models.LevelFromRank(rank)
}

func bucketRank(buckets []bucket, value int) int {
	for _, b := range buckets {
		if value <= b.max {
			return b.rank
		}
	}
	return fallbackRank
}

// NormalizeLanguage lowercases a language tag and strips its region ("de-AT" -> "de")
func NormalizeLanguage(language string) string {
	lang := strings.ToLower(strings.TrimSpace(language))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}
