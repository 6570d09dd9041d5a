package models

import "time"

// WordStatus is the filtering decision for one word occurrence
type WordStatus string

const (
	StatusPending         WordStatus = "pending"
	StatusActive          WordStatus = "active"
	StatusFilteredKnown   WordStatus = "filtered_known"
	StatusFilteredAtLevel WordStatus = "filtered_at_level"
	StatusFilteredOther   WordStatus = "filtered_other"
	StatusFilteredInvalid WordStatus = "filtered_invalid"
)

// IsFiltered reports whether the status hides the word from the learner
func (s WordStatus) IsFiltered() bool {
	switch s {
	case StatusFilteredKnown, StatusFilteredAtLevel, StatusFilteredOther, StatusFilteredInvalid:
		return true
	}
	return false
}

// IsClassified reports whether the word went through the filter
func (s WordStatus) IsClassified() bool {
	return s == StatusActive || s.IsFiltered()
}

// OccurrenceMetadata records the inputs of a filtering decision
type OccurrenceMetadata struct {
	Lemma           string          `json:"lemma,omitempty"`
	DifficultyLevel DifficultyLevel `json:"difficulty_level,omitempty"`
	UserLevel       DifficultyLevel `json:"user_level,omitempty"`
}

// WordOccurrence is one token inside a timed text segment
type WordOccurrence struct {
	Text         string             `json:"text"`
	StartTime    time.Duration      `json:"start_time"`
	EndTime      time.Duration      `json:"end_time"`
	Status       WordStatus         `json:"status"`
	FilterReason string             `json:"filter_reason,omitempty"`
	Metadata     OccurrenceMetadata `json:"metadata"`
}

// TextSegment is a timed unit of text, e.g. one subtitle line
type TextSegment struct {
	OriginalText string           `json:"original_text"`
	StartTime    time.Duration    `json:"start_time"`
	EndTime      time.Duration    `json:"end_time"`
	Words        []WordOccurrence `json:"words"`
}

// HasActiveWords reports whether at least one word blocks comprehension
func (s TextSegment) HasActiveWords() bool {
	for _, w := range s.Words {
		if w.Status == StatusActive {
			return true
		}
	}
	return false
}

// AllWordsUnderstood reports whether no word is active and at least one was classified
func (s TextSegment) AllWordsUnderstood() bool {
	classified := false
	for _, w := range s.Words {
		if w.Status == StatusActive {
			return false
		}
		if w.Status.IsClassified() {
			classified = true
		}
	}
	return classified
}
