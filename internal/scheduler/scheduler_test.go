package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/vocabgate/internal/config"
	"github.com/example/vocabgate/pkg/models"
)

type fakeSource struct {
	users []models.User
	due   map[int64]int
	hours []int
}

func (f *fakeSource) UsersForNotification(_ context.Context, hour int) ([]models.User, error) {
	f.hours = append(f.hours, hour)
	return f.users, nil
}

func (f *fakeSource) CountDue(_ context.Context, userID int64) (int, error) {
	return f.due[userID], nil
}

func (f *fakeSource) DueForReview(_ context.Context, userID int64, _ string, maxCount int) ([]models.LearnerWordProgress, error) {
	n := f.due[userID]
	if maxCount > 0 && n > maxCount {
		n = maxCount
	}
	return make([]models.LearnerWordProgress, n), nil
}

type fakeNotifier struct {
	sent map[int64]int
	fail int64
}

func (f *fakeNotifier) SendReminders(_ context.Context, userID int64, count int) error {
	if userID == f.fail {
		return errors.New("blocked by user")
	}
	f.sent[userID] = count
	return nil
}

func newTestScheduler(hour int, src *fakeSource, n *fakeNotifier) *Scheduler {
	cfg := config.Default().Scheduler
	s := New(src, n, cfg, nil)
	s.now = func() time.Time { return time.Date(2024, 3, 10, hour, 30, 0, 0, time.UTC) }
	return s
}

func TestInWindow(t *testing.T) {
	tests := []struct {
		hour, start, end int
		want             bool
	}{
		{8, 8, 22, true},
		{22, 8, 22, true},
		{7, 8, 22, false},
		{23, 8, 22, false},
		{0, 0, 0, true},
	}
	for _, tt := range tests {
		if got := InWindow(tt.hour, tt.start, tt.end); got != tt.want {
			t.Errorf("InWindow(%d, %d, %d) = %v, want %v", tt.hour, tt.start, tt.end, got, tt.want)
		}
	}
}

func TestCheckAndSendReminders(t *testing.T) {
	src := &fakeSource{
		users: []models.User{
			{ID: 1, Language: "de", WordsPerDay: 5},
			{ID: 2, Language: "de", WordsPerDay: 20},
			{ID: 3, Language: "en", WordsPerDay: 10},
			{ID: 4, Language: "en", WordsPerDay: 10},
		},
		due: map[int64]int{1: 12, 2: 30, 3: 0, 4: 2},
	}
	n := &fakeNotifier{sent: map[int64]int{}, fail: 4}

	sent := newTestScheduler(9, src, n).CheckAndSendReminders(context.Background())
	if sent != 2 {
		t.Fatalf("sent = %d, want 2", sent)
	}
	if n.sent[1] != 5 || n.sent[2] != 10 {
		t.Fatalf("counts = %v", n.sent)
	}
	if _, ok := n.sent[3]; ok {
		t.Fatal("learner without due words must not be notified")
	}
	if len(src.hours) != 1 || src.hours[0] != 9 {
		t.Fatalf("queried hours = %v", src.hours)
	}
}

func TestCheckAndSendRemindersOutsideWindow(t *testing.T) {
	src := &fakeSource{users: []models.User{{ID: 1, WordsPerDay: 5}}, due: map[int64]int{1: 3}}
	n := &fakeNotifier{sent: map[int64]int{}}

	if sent := newTestScheduler(23, src, n).CheckAndSendReminders(context.Background()); sent != 0 {
		t.Fatalf("sent = %d outside the window", sent)
	}
	if len(src.hours) != 0 {
		t.Fatal("users must not be queried outside the window")
	}
}

func TestRunManualCheck(t *testing.T) {
	src := &fakeSource{due: map[int64]int{1: 3}}
	n := &fakeNotifier{sent: map[int64]int{}}
	s := newTestScheduler(3, src, n)

	if err := s.RunManualCheck(context.Background(), models.User{ID: 1, WordsPerDay: 10}); err != nil {
		t.Fatalf("RunManualCheck: %v", err)
	}
	if n.sent[1] != 3 {
		t.Fatalf("sent = %v", n.sent)
	}
}
