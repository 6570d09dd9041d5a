// Package quiz runs review sessions over a learner's due words.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/vocabgate/internal/spaced_repetition"
	"github.com/example/vocabgate/pkg/models"
)

// Sentinel errors
var (
	ErrNothingDue    = errors.New("quiz: no words due for review")
	ErrSessionOver   = errors.New("quiz: session has no more questions")
	ErrStaleQuestion = errors.New("quiz: answer does not match the current question")
)

// Reviewer is the part of the service a session needs
type Reviewer interface {
	DueForReview(ctx context.Context, userID int64, language string, maxCount int) ([]models.LearnerWordProgress, error)
	RecordReview(ctx context.Context, userID int64, lemma, language string, outcome spaced_repetition.Outcome) (*models.LearnerWordProgress, error)
	SaveSession(ctx context.Context, session *models.StudySession) error
}

// Question is one word to recall
type Question struct {
	Lemma      string
	Level      models.DifficultyLevel
	Confidence models.ConfidenceLevel
	Number     int // 1-based
	Total      int
}

// Session walks a snapshot of the due queue. It is safe for concurrent use;
// an answer is recorded and the session advanced under one lock.
type Session struct {
	ID        string
	UserID    int64
	Language  string
	StartedAt time.Time

	mu        sync.Mutex
	reviewer  Reviewer
	questions []Question
	pos       int
	correct   int
}

// Start loads up to size due words. It returns ErrNothingDue when the queue is empty.
func Start(ctx context.Context, r Reviewer, userID int64, language string, size int, now time.Time) (*Session, error) {
	due, err := r.DueForReview(ctx, userID, language, size)
	if err != nil {
		return nil, fmt.Errorf("failed to load due words: %w", err)
	}
	if len(due) == 0 {
		return nil, ErrNothingDue
	}

	questions := make([]Question, len(due))
	for i, p := range due {
		questions[i] = Question{
			Lemma:      p.Lemma,
			Level:      p.DifficultyLevel,
			Confidence: p.ConfidenceLevel,
			Number:     i + 1,
			Total:      len(due),
		}
	}
	return &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Language:  language,
		StartedAt: now,
		reviewer:  r,
		questions: questions,
	}, nil
}

// Current returns the question awaiting an answer
func (s *Session) Current() (Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current()
}

func (s *Session) current() (Question, bool) {
	if s.pos >= len(s.questions) {
		return Question{}, false
	}
	return s.questions[s.pos], true
}

// Done reports whether every question was answered
func (s *Session) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos >= len(s.questions)
}

// Answer records the outcome for the current question and advances. number must match
// the current question so that a late button press cannot grade the wrong word.
func (s *Session) Answer(ctx context.Context, number int, outcome spaced_repetition.Outcome) (*models.LearnerWordProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.current()
	if !ok {
		return nil, ErrSessionOver
	}
	if q.Number != number {
		return nil, ErrStaleQuestion
	}
	p, err := s.reviewer.RecordReview(ctx, s.UserID, q.Lemma, s.Language, outcome)
	if err != nil {
		return nil, err
	}
	if outcome == spaced_repetition.OutcomeCorrect {
		s.correct++
	}
	s.pos++
	return p, nil
}

// Finish stores the session as completed and returns it
func (s *Session) Finish(ctx context.Context, now time.Time) (models.StudySession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	completed := now
	record := models.StudySession{
		ID:          s.ID,
		UserID:      s.UserID,
		Language:    s.Language,
		Reviewed:    s.pos,
		Correct:     s.correct,
		StartedAt:   s.StartedAt,
		CompletedAt: &completed,
	}
	if err := s.reviewer.SaveSession(ctx, &record); err != nil {
		return record, fmt.Errorf("failed to save session: %w", err)
	}
	return record, nil
}

// Store keeps the active session of each learner
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

// Get returns the learner's active session
func (st *Store) Get(userID int64) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[userID]
	return s, ok
}

// Put replaces the learner's active session
func (st *Store) Put(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.UserID] = s
}

// Delete drops the learner's active session
func (st *Store) Delete(userID int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, userID)
}
