package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// DifficultyLevel is a CEFR tier. The integer value is the tier rank (A1=1 .. C2=6),
// the zero value means the tier has not been assigned.
type DifficultyLevel int

const (
	LevelUnset DifficultyLevel = iota
	LevelA1
	LevelA2
	LevelB1
	LevelB2
	LevelC1
	LevelC2
)

// AllLevels lists every tier from easiest to hardest
var AllLevels = []DifficultyLevel{LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2}

var levelLabels = map[DifficultyLevel]string{
	LevelA1: "A1",
	LevelA2: "A2",
	LevelB1: "B1",
	LevelB2: "B2",
	LevelC1: "C1",
	LevelC2: "C2",
}

// LevelFromRank maps a rank 1..6 onto its tier. Ranks outside the scale are clamped.
func LevelFromRank(rank int) DifficultyLevel {
	if rank < int(LevelA1) {
		return LevelA1
	}
	if rank > int(LevelC2) {
		return LevelC2
	}
	return DifficultyLevel(rank)
}

// ParseDifficultyLevel parses a label such as "b1" or "B1"
func ParseDifficultyLevel(s string) (DifficultyLevel, error) {
	label := strings.ToUpper(strings.TrimSpace(s))
	for level, l := range levelLabels {
		if l == label {
			return level, nil
		}
	}
	return LevelUnset, fmt.Errorf("unknown CEFR level %q", s)
}

// Rank returns the integer rank used for all comparisons
func (l DifficultyLevel) Rank() int { return int(l) }

// Valid reports whether l is one of the six CEFR tiers
func (l DifficultyLevel) Valid() bool { return l >= LevelA1 && l <= LevelC2 }

// AtOrBelow reports whether l is at or below other on the CEFR scale
func (l DifficultyLevel) AtOrBelow(other DifficultyLevel) bool { return l.Rank() <= other.Rank() }

func (l DifficultyLevel) String() string {
	if label, ok := levelLabels[l]; ok {
		return label
	}
	return ""
}

// Value stores the level as its label
func (l DifficultyLevel) Value() (driver.Value, error) {
	if !l.Valid() {
		return nil, nil
	}
	return l.String(), nil
}

// Scan reads a label (or NULL) written by Value
func (l *DifficultyLevel) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = LevelUnset
		return nil
	case string:
		return l.scanLabel(v)
	case []byte:
		return l.scanLabel(string(v))
	default:
		return fmt.Errorf("cannot scan %T into DifficultyLevel", src)
	}
}

func (l *DifficultyLevel) scanLabel(s string) error {
	if strings.TrimSpace(s) == "" {
		*l = LevelUnset
		return nil
	}
	parsed, err := ParseDifficultyLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ConfidenceLevel is the learner's ordinal mastery signal for one word
type ConfidenceLevel int

const (
	ConfidenceUnknown ConfidenceLevel = iota
	ConfidenceWeak
	ConfidenceModerate
	ConfidenceStrong
	ConfidenceMastered
)

var confidenceLabels = [...]string{"unknown", "weak", "moderate", "strong", "mastered"}

// Valid reports whether c is inside the UNKNOWN..MASTERED range
func (c ConfidenceLevel) Valid() bool { return c >= ConfidenceUnknown && c <= ConfidenceMastered }

func (c ConfidenceLevel) String() string {
	if !c.Valid() {
		return fmt.Sprintf("confidence(%d)", int(c))
	}
	return confidenceLabels[c]
}
