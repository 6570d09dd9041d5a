// Package spaced_repetition tracks per-word review progress and schedules reviews.
package spaced_repetition

import (
	"math"
	"sort"
	"time"

	"github.com/example/vocabgate/pkg/models"
)

// Interval bounds
const (
	MinInterval = time.Hour
	MaxInterval = 720 * time.Hour
)

// neverReviewedOverdue is the overdue-ness assigned to words without a scheduled
// review, so first-time words come before stale reviews
const neverReviewedOverdue = 999.0

var baseHours = map[models.ConfidenceLevel]float64{
	models.ConfidenceUnknown:  1,
	models.ConfidenceWeak:     4,
	models.ConfidenceModerate: 24,
	models.ConfidenceStrong:   72,
	models.ConfidenceMastered: 168,
}

// NextInterval returns the time until the next review of p, always within
// [MinInterval, MaxInterval]
func NextInterval(p models.LearnerWordProgress) time.Duration {
	base, ok := baseHours[p.ConfidenceLevel]
	if !ok {
		base = baseHours[models.ConfidenceUnknown]
	}

	multiplier := successMultiplier(p.SuccessRate()) * streakBonus(p.LearningStreak)
	if p.DifficultyAdjustment > 0 {
		multiplier *= p.DifficultyAdjustment
	}

	hours := math.Round(base * multiplier)
	if math.IsNaN(hours) || hours < MinInterval.Hours() {
		hours = MinInterval.Hours()
	}
	if hours > MaxInterval.Hours() {
		hours = MaxInterval.Hours()
	}
	return time.Duration(hours) * time.Hour
}

func successMultiplier(rate float64) float64 {
	switch {
	case rate >= 0.9:
		return 1.5
	case rate >= 0.7:
		return 1.2
	case rate >= 0.5:
		return 1.0
	default:
		return 0.7
	}
}

func streakBonus(streak int) float64 {
	switch {
	case streak >= 5:
		return 1.3
	case streak >= 3:
		return 1.1
	default:
		return 1.0
	}
}

// overdueHours measures how late a review is at now
func overdueHours(p models.LearnerWordProgress, now time.Time) float64 {
	if p.NextReviewAt == nil {
		return neverReviewedOverdue
	}
	return now.Sub(*p.NextReviewAt).Hours()
}

// DueQueue returns the records due at now that are not mastered, most overdue first
// and weaker confidence first among equally overdue words. maxCount <= 0 means no limit.
func DueQueue(progress []models.LearnerWordProgress, maxCount int, now time.Time) []models.LearnerWordProgress {
	due := make([]models.LearnerWordProgress, 0, len(progress))
	for _, p := range progress {
		if p.NeedsReview(now) && !p.IsMastered() {
			due = append(due, p)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		oi, oj := overdueHours(due[i], now), overdueHours(due[j], now)
		if oi != oj {
			return oi > oj
		}
		return due[i].ConfidenceLevel < due[j].ConfidenceLevel
	})

	if maxCount > 0 && len(due) > maxCount {
		return due[:maxCount]
	}
	return due
}
