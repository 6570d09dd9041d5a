package spaced_repetition

import (
	"testing"
	"time"

	"github.com/example/vocabgate/pkg/models"
)

func progressWith(conf models.ConfidenceLevel, correct, incorrect, streak int) models.LearnerWordProgress {
	p := freshProgress()
	p.ConfidenceLevel = conf
	p.CorrectCount = correct
	p.IncorrectCount = incorrect
	p.ReviewCount = correct + incorrect
	p.LearningStreak = streak
	return p
}

func TestNextInterval(t *testing.T) {
	tests := []struct {
		name string
		p    models.LearnerWordProgress
		want time.Duration
	}{
		{"mastered never reviewed", progressWith(models.ConfidenceMastered, 0, 0, 0), 118 * time.Hour},
		{"unknown never reviewed", progressWith(models.ConfidenceUnknown, 0, 0, 0), time.Hour},
		{"weak half right", progressWith(models.ConfidenceWeak, 1, 1, 0), 4 * time.Hour},
		{"moderate 75%", progressWith(models.ConfidenceModerate, 3, 1, 3), 32 * time.Hour},
		{"strong perfect streak 5", progressWith(models.ConfidenceStrong, 10, 0, 5), 140 * time.Hour},
		{"mastered perfect streak 10", progressWith(models.ConfidenceMastered, 10, 0, 10), 328 * time.Hour},
	}
	for _, tt := range tests {
		if got := NextInterval(tt.p); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestNextIntervalAppliesDifficultyAdjustment(t *testing.T) {
	p := progressWith(models.ConfidenceModerate, 1, 1, 0)
	p.DifficultyAdjustment = 0.5
	if got := NextInterval(p); got != 12*time.Hour {
		t.Fatalf("got %v, want 12h", got)
	}
	p.DifficultyAdjustment = 0
	if got := NextInterval(p); got != 24*time.Hour {
		t.Fatalf("zero adjustment treated as 1.0: got %v", got)
	}
}

func TestNextIntervalBounds(t *testing.T) {
	for conf := models.ConfidenceUnknown; conf <= models.ConfidenceMastered; conf++ {
		for _, correct := range []int{0, 1, 5, 9, 50} {
			for _, incorrect := range []int{0, 1, 5, 50} {
				for _, streak := range []int{0, 3, 5, 40} {
					for _, adj := range []float64{0.01, 1, 2.5, 100} {
						p := progressWith(conf, correct, incorrect, streak)
						p.DifficultyAdjustment = adj
						got := NextInterval(p)
						if got < MinInterval || got > MaxInterval {
							t.Fatalf("interval %v out of bounds for %+v", got, p)
						}
					}
				}
			}
		}
	}
}

func at(d time.Duration) *time.Time {
	ts := t0.Add(d)
	return &ts
}

func TestDueQueueOrdering(t *testing.T) {
	fresh := progressWith(models.ConfidenceUnknown, 0, 0, 0)
	fresh.Lemma = "fresh"

	stale := progressWith(models.ConfidenceStrong, 3, 1, 0)
	stale.Lemma = "stale"
	stale.NextReviewAt = at(-48 * time.Hour)

	weak := progressWith(models.ConfidenceWeak, 1, 1, 0)
	weak.Lemma = "weak"
	weak.NextReviewAt = at(-2 * time.Hour)

	moderate := progressWith(models.ConfidenceModerate, 2, 1, 0)
	moderate.Lemma = "moderate"
	moderate.NextReviewAt = at(-2 * time.Hour)

	notDue := progressWith(models.ConfidenceWeak, 1, 0, 1)
	notDue.Lemma = "notdue"
	notDue.NextReviewAt = at(time.Hour)

	mastered := progressWith(models.ConfidenceMastered, 10, 0, 10)
	mastered.Lemma = "mastered"
	mastered.NextReviewAt = at(-100 * time.Hour)

	got := DueQueue([]models.LearnerWordProgress{moderate, notDue, weak, mastered, stale, fresh}, 0, t0)
	want := []string{"fresh", "stale", "weak", "moderate"}
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Lemma != w {
			t.Fatalf("position %d = %s, want %s", i, got[i].Lemma, w)
		}
	}

	limited := DueQueue([]models.LearnerWordProgress{moderate, weak, stale, fresh}, 2, t0)
	if len(limited) != 2 || limited[0].Lemma != "fresh" || limited[1].Lemma != "stale" {
		t.Fatalf("limited = %+v", limited)
	}
}

func TestDueQueueIncludesExactlyDue(t *testing.T) {
	p := progressWith(models.ConfidenceWeak, 1, 0, 1)
	p.NextReviewAt = at(0)
	if got := DueQueue([]models.LearnerWordProgress{p}, 10, t0); len(got) != 1 {
		t.Fatalf("due exactly now should be included, got %d", len(got))
	}
}
