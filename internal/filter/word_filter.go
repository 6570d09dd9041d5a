package filter

import (
	"fmt"

	"github.com/example/vocabgate/pkg/models"
)

// Filter reasons recorded on classified occurrences
const (
	ReasonProperName = "proper name, auto-excluded"
	ReasonKnown      = "learner already knows this word"
	ReasonAtLevel    = "at or below mastered level"
	ReasonActive     = "above learner level and not known"
)

// unknownWordLevel is assigned to lemmas without a tier so they are never hidden
const unknownWordLevel = models.LevelC2

// ClassifyWord runs one occurrence through the filtering pipeline. The first rule that
// matches decides the status; the previous status of occ is ignored.
func ClassifyWord(occ models.WordOccurrence, b *Batch) models.WordOccurrence {
	occ.Status = models.StatusPending
	occ.FilterReason = ""
	occ.Metadata = models.OccurrenceMetadata{UserLevel: b.UserLevel}

	if b.isProperName(occ.Text) {
		occ.Status = models.StatusFilteredOther
		occ.FilterReason = ReasonProperName
		return occ
	}

	lemma, err := b.lemmatizer().Lemmatize(occ.Text, b.Language)
	if err != nil {
		occ.Status = models.StatusFilteredInvalid
		occ.FilterReason = fmt.Sprintf("lemmatization failed: %v", err)
		return occ
	}
	if lemma == "" {
		occ.Status = models.StatusFilteredInvalid
		occ.FilterReason = "lemmatization failed: empty lemma"
		return occ
	}

	occ.Metadata.Lemma = lemma
	occ.Metadata.DifficultyLevel = resolveLevel(b.lookup(lemma))

	switch {
	case b.KnownLemmas.Contains(lemma):
		occ.Status = models.StatusFilteredKnown
		occ.FilterReason = ReasonKnown
	case occ.Metadata.DifficultyLevel.AtOrBelow(b.UserLevel):
		occ.Status = models.StatusFilteredAtLevel
		occ.FilterReason = ReasonAtLevel
	default:
		occ.Status = models.StatusActive
		occ.FilterReason = ReasonActive
	}
	return occ
}

func resolveLevel(res LookupResult) models.DifficultyLevel {
	if found, ok := res.(Found); ok && found.Entry.DifficultyLevel.Valid() {
		return found.Entry.DifficultyLevel
	}
	return unknownWordLevel
}
