// Package service exposes filtering, review and level estimation over persisted
// learner state.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/vocabgate/internal/cache"
	"github.com/example/vocabgate/internal/database"
	"github.com/example/vocabgate/internal/difficulty"
	"github.com/example/vocabgate/internal/filter"
	"github.com/example/vocabgate/internal/logger"
	"github.com/example/vocabgate/pkg/models"
)

// ErrUnknownWord is returned when a word has no progress record or no letters
var ErrUnknownWord = errors.New("service: unknown word")

// maxWriteAttempts bounds retries after a concurrent progress update
const maxWriteAttempts = 3

const defaultStreakWindow = 366 * 24 * time.Hour

// KnownWordCache caches the known-lemma snapshot of a learner
type KnownWordCache interface {
	Get(ctx context.Context, userID int64, language string, load cache.Loader) ([]string, error)
	Invalidate(ctx context.Context, userID int64, language string) error
}

// LanguageAssistant resolves proper names and lemmas for a whole batch at once
type LanguageAssistant interface {
	DetectProperNames(ctx context.Context, language string, words []string) (map[string]bool, error)
	LemmatizeBatch(ctx context.Context, language string, words []string) (map[string]string, error)
}

// Service is safe for concurrent use
type Service struct {
	db         *database.DB
	users      *database.UserRepository
	words      *database.WordRepository
	progress   *database.UserProgressRepository
	sessions   *database.SessionRepository
	classifier *difficulty.Classifier

	cache        KnownWordCache
	assistant    LanguageAssistant
	log          *logger.Logger
	now          func() time.Time
	streakWindow time.Duration
}

// Option configures a Service
type Option func(*Service)

// WithCache enables the known-word snapshot cache
func WithCache(c KnownWordCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithAssistant enables batch proper-name detection and lemmatization
func WithAssistant(a LanguageAssistant) Option {
	return func(s *Service) { s.assistant = a }
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithStreakWindow limits how far back sessions are loaded for streaks
func WithStreakWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.streakWindow = d
		}
	}
}

// New creates a service over db
func New(db *database.DB, opts ...Option) *Service {
	s := &Service{
		db:           db,
		users:        database.NewUserRepository(),
		words:        database.NewWordRepository(),
		progress:     database.NewUserProgressRepository(),
		sessions:     database.NewSessionRepository(),
		classifier:   difficulty.NewClassifier(),
		log:          logger.Nop(),
		now:          time.Now,
		streakWindow: defaultStreakWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterUser creates the learner if missing and returns the stored row
func (s *Service) RegisterUser(ctx context.Context, user *models.User) (*models.User, error) {
	user.Language = difficulty.NormalizeLanguage(user.Language)
	if !user.Level.Valid() {
		user.Level = models.LevelA1
	}
	if err := s.users.Create(ctx, s.db, user); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, s.db, user.ID)
}

// GetUser returns a learner, database.ErrNotFound if unknown
func (s *Service) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	return s.users.GetByID(ctx, s.db, userID)
}

// SetLevel stores the learner's self-declared level
func (s *Service) SetLevel(ctx context.Context, userID int64, level models.DifficultyLevel) error {
	if !level.Valid() {
		return fmt.Errorf("invalid level %d", level)
	}
	user, err := s.users.GetByID(ctx, s.db, userID)
	if err != nil {
		return err
	}
	user.Level = level
	return s.users.Update(ctx, s.db, user)
}

// SetLanguage switches the language the learner studies
func (s *Service) SetLanguage(ctx context.Context, userID int64, language string) error {
	language = difficulty.NormalizeLanguage(language)
	if language == "" {
		return fmt.Errorf("language cannot be empty")
	}
	user, err := s.users.GetByID(ctx, s.db, userID)
	if err != nil {
		return err
	}
	user.Language = language
	return s.users.Update(ctx, s.db, user)
}

// UsersForNotification returns learners who want reminders at hour
func (s *Service) UsersForNotification(ctx context.Context, hour int) ([]models.User, error) {
	return s.users.GetUsersForNotification(ctx, s.db, hour)
}

// CountDue counts the learner's records whose review time has come
func (s *Service) CountDue(ctx context.Context, userID int64) (int, error) {
	return s.progress.CountDue(ctx, s.db, userID, s.now())
}

// SaveSession stores a study session
func (s *Service) SaveSession(ctx context.Context, session *models.StudySession) error {
	return s.sessions.Save(ctx, s.db, session)
}

// knownLemmas loads the learner's known set, through the cache when configured.
// A cache failure falls back to the database.
func (s *Service) knownLemmas(ctx context.Context, userID int64, language string) ([]string, error) {
	load := func(ctx context.Context) ([]string, error) {
		return s.progress.KnownLemmas(ctx, s.db, userID, language)
	}
	if s.cache != nil {
		lemmas, err := s.cache.Get(ctx, userID, language, load)
		if err == nil {
			return lemmas, nil
		}
		s.log.Warn("known word cache unavailable", "user_id", userID, "error", err)
	}
	return load(ctx)
}

func (s *Service) invalidateKnown(ctx context.Context, userID int64, language string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID, language); err != nil {
		s.log.Warn("failed to invalidate known words", "user_id", userID, "language", language, "error", err)
	}
}

func normalizeLemma(lemma string) (string, error) {
	normalized, err := filter.NormalizeToken(lemma)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownWord, lemma)
	}
	return normalized, nil
}

// updateProgress reads, mutates and writes one progress row, retrying when another
// writer changed it in between. A missing row starts from a fresh record.
func (s *Service) updateProgress(ctx context.Context, userID int64, lemma, language string,
	mutate func(models.LearnerWordProgress, time.Time) (models.LearnerWordProgress, error)) (*models.LearnerWordProgress, error) {
	var (
		result models.LearnerWordProgress
		err    error
	)
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		err = s.db.InTx(ctx, func(tx *sqlx.Tx) error {
			current, err := s.progress.GetByUserAndLemma(ctx, tx, userID, lemma, language)
			if errors.Is(err, database.ErrNotFound) {
				fresh := models.NewLearnerWordProgress(userID, lemma, language)
				current = &fresh
			} else if err != nil {
				return err
			}

			updated, err := mutate(*current, s.now())
			if err != nil {
				return err
			}
			if err := s.progress.Save(ctx, tx, &updated); err != nil {
				return err
			}
			result = updated
			return nil
		})
		if !errors.Is(err, database.ErrVersionConflict) {
			break
		}
		s.log.Debug("progress update conflict, retrying", "user_id", userID, "lemma", lemma, "attempt", attempt)
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}
