package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/vocabgate/internal/config"
	"github.com/example/vocabgate/internal/logger"
	"github.com/example/vocabgate/pkg/models"
)

// Notifier sends a due-review reminder to a learner
type Notifier interface {
	SendReminders(ctx context.Context, userID int64, count int) error
}

// Source answers which learners want a reminder and what is due for them
type Source interface {
	UsersForNotification(ctx context.Context, hour int) ([]models.User, error)
	CountDue(ctx context.Context, userID int64) (int, error)
	DueForReview(ctx context.Context, userID int64, language string, maxCount int) ([]models.LearnerWordProgress, error)
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	source    Source
	notifier  Notifier
	cfg       config.SchedulerConfig
	log       *logger.Logger
	now       func() time.Time
}

// New creates a new scheduler instance
func New(source Source, notifier Notifier, cfg config.SchedulerConfig, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.Local),
		source:    source,
		notifier:  notifier,
		cfg:       cfg,
		log:       log.With("component", "scheduler"),
		now:       time.Now,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.cfg.CheckInterval()).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		s.CheckAndSendReminders(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminder job: %w", err)
	}

	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
	s.log.Info("scheduler started",
		"interval", s.cfg.CheckInterval().String(),
		"window_start", s.cfg.NotificationStartHour,
		"window_end", s.cfg.NotificationEndHour,
	)
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// InWindow reports whether hour lies in the inclusive [start, end] window
func InWindow(hour, start, end int) bool {
	return hour >= start && hour <= end
}

// CheckAndSendReminders notifies every learner whose notification hour is now and who
// has words due. It returns the number of reminders sent.
func (s *Scheduler) CheckAndSendReminders(ctx context.Context) int {
	currentHour := s.now().Hour()
	if !InWindow(currentHour, s.cfg.NotificationStartHour, s.cfg.NotificationEndHour) {
		s.log.Debug("outside notification hours, skipping reminders",
			"hour", currentHour, "start", s.cfg.NotificationStartHour, "end", s.cfg.NotificationEndHour)
		return 0
	}

	users, err := s.source.UsersForNotification(ctx, currentHour)
	if err != nil {
		s.log.Error("failed to get users for notification", "error", err)
		return 0
	}

	sent := 0
	for _, user := range users {
		count, err := s.dueCount(ctx, user)
		if err != nil {
			s.log.Error("failed to get due words", "user_id", user.ID, "error", err)
			continue
		}
		if count == 0 {
			continue
		}
		if err := s.notifier.SendReminders(ctx, user.ID, count); err != nil {
			s.log.Error("failed to send reminder", "user_id", user.ID, "error", err)
			continue
		}
		sent++
	}
	s.log.Info("reminders sent", "hour", currentHour, "candidates", len(users), "sent", sent)
	return sent
}

// RunManualCheck forces a check for a specific learner regardless of the hour
func (s *Scheduler) RunManualCheck(ctx context.Context, user models.User) error {
	count, err := s.dueCount(ctx, user)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	return s.notifier.SendReminders(ctx, user.ID, count)
}

// dueCount returns how many words a reminder announces: the due queue size capped by
// the learner's daily preference and the configured maximum
func (s *Scheduler) dueCount(ctx context.Context, user models.User) (int, error) {
	total, err := s.source.CountDue(ctx, user.ID)
	if err != nil || total == 0 {
		return 0, err
	}

	limit := s.cfg.MaxDueWordsPerReminder
	if user.WordsPerDay > 0 && (limit <= 0 || user.WordsPerDay < limit) {
		limit = user.WordsPerDay
	}
	due, err := s.source.DueForReview(ctx, user.ID, user.Language, limit)
	if err != nil {
		return 0, err
	}
	return len(due), nil
}
