package level

import (
	"sort"
	"time"

	"github.com/example/vocabgate/pkg/models"
)

// LearningStreak counts consecutive days, ending today, with at least one completed
// session. Days are taken in the location of now.
func LearningStreak(sessions []models.StudySession, now time.Time) int {
	days := make([]time.Time, 0, len(sessions))
	for _, s := range sessions {
		if s.CompletedAt != nil {
			days = append(days, startOfDay(s.CompletedAt.In(now.Location())))
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	streak := 0
	expected := startOfDay(now)
	for _, d := range days {
		if d.After(expected) {
			// today's extra sessions, or a session already counted for this day
			continue
		}
		if !d.Equal(expected) {
			break
		}
		streak++
		expected = expected.AddDate(0, 0, -1)
	}
	return streak
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
