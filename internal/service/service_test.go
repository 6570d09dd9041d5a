package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/vocabgate/internal/cache"
	"github.com/example/vocabgate/internal/database"
	"github.com/example/vocabgate/internal/spaced_repetition"
	"github.com/example/vocabgate/pkg/models"
)

var refTime = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type memoryCache struct {
	mu          sync.Mutex
	data        map[string][]string
	invalidated int
}

func (c *memoryCache) Get(ctx context.Context, userID int64, language string, load cache.Loader) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if lemmas, ok := c.data[language]; ok {
		return lemmas, nil
	}
	lemmas, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.data[language] = lemmas
	return lemmas, nil
}

func (c *memoryCache) Invalidate(_ context.Context, _ int64, language string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, language)
	c.invalidated++
	return nil
}

type stubAssistant struct {
	names  map[string]bool
	lemmas map[string]string
	err    error
	asked  []string
}

func (a *stubAssistant) DetectProperNames(_ context.Context, _ string, words []string) (map[string]bool, error) {
	return a.names, a.err
}

func (a *stubAssistant) LemmatizeBatch(_ context.Context, _ string, words []string) (map[string]string, error) {
	a.asked = append(a.asked, words...)
	return a.lemmas, a.err
}

func newTestService(t *testing.T, opts ...Option) (*Service, *database.DB) {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	words := database.NewWordRepository()
	for _, e := range []models.VocabularyEntry{
		{Lemma: "haus", Language: "de", DifficultyLevel: models.LevelA1, SurfaceForms: []string{"häuser"}},
		{Lemma: "gehen", Language: "de", DifficultyLevel: models.LevelA1, SurfaceForms: []string{"ging", "geht"}},
		{Lemma: "nachhaltigkeit", Language: "de", DifficultyLevel: models.LevelC1},
		{Lemma: "ergebnis", Language: "de", FrequencyRank: 4200},
		{Lemma: "umwelt", Language: "de", DifficultyLevel: models.LevelB1},
	} {
		if _, err := words.Upsert(ctx, db, &e); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	opts = append([]Option{WithClock(func() time.Time { return refTime })}, opts...)
	return New(db, opts...), db
}

func registerLearner(t *testing.T, s *Service, level models.DifficultyLevel) int64 {
	t.Helper()
	u, err := s.RegisterUser(context.Background(), &models.User{ID: 42, Username: "anna", Language: "de-DE", Level: level})
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if u.Language != "de" {
		t.Fatalf("language = %q", u.Language)
	}
	return u.ID
}

func TestFilterSegments(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	userID := registerLearner(t, s, models.LevelA2)

	if _, err := s.MarkKnown(ctx, userID, "Umwelt", "de"); err != nil {
		t.Fatalf("MarkKnown: %v", err)
	}

	res, err := s.FilterText(ctx, userID, "de", "Die Häuser!\nNachhaltigkeit und Umwelt\n\n")
	if err != nil {
		t.Fatalf("FilterText: %v", err)
	}
	if res.UserLevel != models.LevelA2 || res.Language != "de" || res.BatchID == "" {
		t.Fatalf("result header = %+v", res)
	}
	if res.Statistics.TotalSegments != 2 {
		t.Fatalf("segments = %d", res.Statistics.TotalSegments)
	}

	// "die" and "und" are not in the table and default to C2, so both lines have blockers
	if len(res.LearningSegments) != 2 {
		t.Fatalf("learning segments = %d", len(res.LearningSegments))
	}
	statuses := map[string]models.WordStatus{}
	for _, seg := range res.LearningSegments {
		for _, w := range seg.Words {
			statuses[w.Text] = w.Status
		}
	}
	want := map[string]models.WordStatus{
		"Häuser!":        models.StatusFilteredAtLevel,
		"Nachhaltigkeit": models.StatusActive,
		"Umwelt":         models.StatusFilteredKnown,
		"Die":            models.StatusActive,
	}
	for text, status := range want {
		if statuses[text] != status {
			t.Errorf("%s: status = %s, want %s", text, statuses[text], status)
		}
	}
}

func TestFilterSegmentsWithAssistant(t *testing.T) {
	assistant := &stubAssistant{
		names:  map[string]bool{"Berlin": true},
		lemmas: map[string]string{"gingen": "gehen"},
	}
	s, _ := newTestService(t, WithAssistant(assistant))
	ctx := context.Background()
	userID := registerLearner(t, s, models.LevelA1)

	res, err := s.FilterText(ctx, userID, "de", "Berlin gingen Häuser")
	if err != nil {
		t.Fatalf("FilterText: %v", err)
	}
	if len(res.EmptySegments) != 1 {
		t.Fatalf("expected the line to be fully understood: %+v", res)
	}
	words := res.EmptySegments[0].Words
	if words[0].Status != models.StatusFilteredOther || words[1].Status != models.StatusFilteredAtLevel {
		t.Fatalf("statuses = %s, %s", words[0].Status, words[1].Status)
	}
	for _, w := range assistant.asked {
		if w == "Häuser" {
			t.Fatal("table forms must not be sent to the assistant")
		}
	}

	failing := &stubAssistant{err: errors.New("quota")}
	s, _ = newTestService(t, WithAssistant(failing))
	registerLearner(t, s, models.LevelA1)
	if _, err := s.FilterText(ctx, userID, "de", "Berlin"); err != nil {
		t.Fatalf("assistant failure must not fail the batch: %v", err)
	}
}

func TestFilterSegmentsUnregisteredLearner(t *testing.T) {
	s, _ := newTestService(t)
	res, err := s.FilterText(context.Background(), 7, "de", "Haus")
	if err != nil {
		t.Fatalf("FilterText: %v", err)
	}
	if res.UserLevel != models.LevelA1 || len(res.EmptySegments) != 1 {
		t.Fatalf("result = %+v", res)
	}
}

func TestRecordReviewCreatesAndSchedules(t *testing.T) {
	c := &memoryCache{data: map[string][]string{}}
	s, _ := newTestService(t, WithCache(c))
	ctx := context.Background()
	userID := registerLearner(t, s, models.LevelA1)

	var p *models.LearnerWordProgress
	var err error
	for i := 0; i < 4; i++ {
		p, err = s.RecordReview(ctx, userID, "Haus", "de", spaced_repetition.OutcomeCorrect)
		if err != nil {
			t.Fatalf("RecordReview #%d: %v", i, err)
		}
	}
	if p.ReviewCount != 4 || p.CorrectCount != 4 || p.Version != 4 {
		t.Fatalf("progress = %+v", p)
	}
	if p.ConfidenceLevel != models.ConfidenceModerate || p.IsKnown {
		t.Fatalf("confidence = %v, known = %v", p.ConfidenceLevel, p.IsKnown)
	}
	if p.NextReviewAt == nil || !p.NextReviewAt.After(refTime) {
		t.Fatalf("next review = %v", p.NextReviewAt)
	}
	if c.invalidated != 0 {
		t.Fatalf("invalidated = %d before the word became known", c.invalidated)
	}

	// reaching STRONG marks the word known
	p, err = s.RecordReview(ctx, userID, "haus", "de", spaced_repetition.OutcomeCorrect)
	if err != nil {
		t.Fatalf("RecordReview: %v", err)
	}
	if !p.IsKnown || p.FirstLearnedAt == nil || c.invalidated != 1 {
		t.Fatalf("known = %v, invalidated = %d", p.IsKnown, c.invalidated)
	}

	if _, err := s.RecordReview(ctx, userID, "?!", "de", spaced_repetition.OutcomeCorrect); !errors.Is(err, ErrUnknownWord) {
		t.Fatalf("err = %v, want ErrUnknownWord", err)
	}
	if _, err := s.RecordReview(ctx, userID, "haus", "de", spaced_repetition.Outcome("maybe")); err == nil {
		t.Fatal("expected error for unknown outcome")
	}
}

func TestRecordReviewSurfacesCorruptState(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	userID := registerLearner(t, s, models.LevelA1)

	if _, err := s.RecordReview(ctx, userID, "haus", "de", spaced_repetition.OutcomeIncorrect); err != nil {
		t.Fatalf("RecordReview: %v", err)
	}
	if _, err := db.Exec(`UPDATE learner_progress SET review_count = 5`); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	_, err := s.RecordReview(ctx, userID, "haus", "de", spaced_repetition.OutcomeCorrect)
	if !errors.Is(err, spaced_repetition.ErrInvalidProgressState) {
		t.Fatalf("err = %v, want ErrInvalidProgressState", err)
	}
}

func TestConcurrentReviewsKeepCounts(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	userID := registerLearner(t, s, models.LevelA1)

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.RecordReview(ctx, userID, "gehen", "de", spaced_repetition.OutcomeCorrect); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("RecordReview: %v", err)
	}

	due, err := s.DueForReview(ctx, userID, "de", 0)
	if err != nil {
		t.Fatalf("DueForReview: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("freshly reviewed word should not be due: %+v", due)
	}
	p, err := database.NewUserProgressRepository().GetByUserAndLemma(ctx, s.db, userID, "gehen", "de")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.ReviewCount != 4 || p.CorrectCount != 4 {
		t.Fatalf("counts = %d/%d", p.ReviewCount, p.CorrectCount)
	}
}

func TestMarkKnownAndForget(t *testing.T) {
	c := &memoryCache{data: map[string][]string{}}
	s, _ := newTestService(t, WithCache(c))
	ctx := context.Background()
	userID := registerLearner(t, s, models.LevelA1)

	p, err := s.MarkKnown(ctx, userID, "Nachhaltigkeit", "de")
	if err != nil {
		t.Fatalf("MarkKnown: %v", err)
	}
	if !p.IsKnown || p.ReviewCount != 0 {
		t.Fatalf("progress = %+v", p)
	}

	res, err := s.FilterText(ctx, userID, "de", "Nachhaltigkeit")
	if err != nil {
		t.Fatalf("FilterText: %v", err)
	}
	if res.EmptySegments[0].Words[0].Status != models.StatusFilteredKnown {
		t.Fatalf("status = %s", res.EmptySegments[0].Words[0].Status)
	}

	if err := s.Forget(ctx, userID, "nachhaltigkeit", "de"); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if err := s.Forget(ctx, userID, "nachhaltigkeit", "de"); !errors.Is(err, ErrUnknownWord) {
		t.Fatalf("second Forget err = %v", err)
	}
	if c.invalidated != 2 {
		t.Fatalf("invalidated = %d, want 2", c.invalidated)
	}

	res, err = s.FilterText(ctx, userID, "de", "Nachhaltigkeit")
	if err != nil {
		t.Fatalf("FilterText: %v", err)
	}
	if len(res.BlockingWords) != 1 {
		t.Fatalf("forgotten word should block again: %+v", res.BlockingWords)
	}
}

func TestDueForReviewAndRecommend(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	userID := registerLearner(t, s, models.LevelA1)

	if _, err := s.RecordReview(ctx, userID, "umwelt", "de", spaced_repetition.OutcomeIncorrect); err != nil {
		t.Fatalf("RecordReview: %v", err)
	}
	if _, err := s.MarkKnown(ctx, userID, "haus", "de"); err != nil {
		t.Fatalf("MarkKnown: %v", err)
	}

	due, err := s.DueForReview(ctx, userID, "de", 10)
	if err != nil {
		t.Fatalf("DueForReview: %v", err)
	}
	// haus was never scheduled and comes first, umwelt is due in an hour
	if len(due) != 1 || due[0].Lemma != "haus" {
		t.Fatalf("due = %+v", due)
	}

	s.now = func() time.Time { return refTime.Add(2 * time.Hour) }
	due, err = s.DueForReview(ctx, userID, "de", 10)
	if err != nil {
		t.Fatalf("DueForReview: %v", err)
	}
	if len(due) != 2 || due[0].Lemma != "haus" || due[1].Lemma != "umwelt" {
		t.Fatalf("due = %+v", due)
	}
	if n, err := s.CountDue(ctx, userID); err != nil || n != 2 {
		t.Fatalf("CountDue = %d, %v", n, err)
	}

	recs, err := s.RecommendNext(ctx, userID, "de", 5, models.LevelB1)
	if err != nil {
		t.Fatalf("RecommendNext: %v", err)
	}
	if len(recs) != 1 || recs[0].Lemma != "umwelt" || recs[0].DifficultyLevel != models.LevelB1 {
		t.Fatalf("recommendations = %+v", recs)
	}
}

func TestEstimateLevelAndApply(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	userID := registerLearner(t, s, models.LevelA1)

	for i := 0; i < 6; i++ {
		if _, err := s.RecordReview(ctx, userID, "umwelt", "de", spaced_repetition.OutcomeCorrect); err != nil {
			t.Fatalf("RecordReview: %v", err)
		}
	}

	lvl, err := s.EstimateLevel(ctx, userID, "de")
	if err != nil {
		t.Fatalf("EstimateLevel: %v", err)
	}
	if lvl != models.LevelB1 {
		t.Fatalf("estimate = %v, want B1", lvl)
	}
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.Level != models.LevelA1 {
		t.Fatalf("stored level = %v, estimating must not change it", u.Level)
	}

	lvl, raised, err := s.ApplyEstimatedLevel(ctx, userID, "de")
	if err != nil || !raised || lvl != models.LevelB1 {
		t.Fatalf("ApplyEstimatedLevel = %v, %v, %v", lvl, raised, err)
	}
	if u, _ = s.GetUser(ctx, userID); u.Level != models.LevelB1 {
		t.Fatalf("stored level = %v, want B1", u.Level)
	}

	// a higher manual level is kept
	if err := s.SetLevel(ctx, userID, models.LevelC1); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	if lvl, raised, err = s.ApplyEstimatedLevel(ctx, userID, "de"); err != nil || raised || lvl != models.LevelC1 {
		t.Fatalf("ApplyEstimatedLevel = %v, %v, %v", lvl, raised, err)
	}

	report, err := s.LevelReport(ctx, userID, "de")
	if err != nil {
		t.Fatalf("LevelReport: %v", err)
	}
	if report[models.LevelB1].Pct() != 1 {
		t.Fatalf("report = %+v", report)
	}
}

func TestStreak(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	userID := registerLearner(t, s, models.LevelA1)

	for _, daysAgo := range []int{0, 1, 2, 4} {
		done := refTime.AddDate(0, 0, -daysAgo).Add(-time.Hour)
		session := &models.StudySession{UserID: userID, Language: "de", Reviewed: 3, StartedAt: done.Add(-10 * time.Minute), CompletedAt: &done}
		if err := s.SaveSession(ctx, session); err != nil {
			t.Fatalf("SaveSession: %v", err)
		}
	}

	streak, err := s.Streak(ctx, userID)
	if err != nil {
		t.Fatalf("Streak: %v", err)
	}
	if streak != 3 {
		t.Fatalf("streak = %d, want 3", streak)
	}
}

func TestSetLevelAndLanguage(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	userID := registerLearner(t, s, models.LevelUnset)

	u, _ := s.GetUser(ctx, userID)
	if u.Level != models.LevelA1 {
		t.Fatalf("default level = %v", u.Level)
	}
	if err := s.SetLevel(ctx, userID, models.LevelC1); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	if err := s.SetLevel(ctx, userID, models.LevelUnset); err == nil {
		t.Fatal("expected error for invalid level")
	}
	if err := s.SetLanguage(ctx, userID, "EN-us"); err != nil {
		t.Fatalf("SetLanguage: %v", err)
	}
	if err := s.SetLevel(ctx, 999, models.LevelA2); !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("unknown user err = %v", err)
	}
	u, _ = s.GetUser(ctx, userID)
	if u.Level != models.LevelC1 || u.Language != "en" {
		t.Fatalf("user = %+v", u)
	}
}

func TestCountDueWithNonUTCClock(t *testing.T) {
	zone := time.FixedZone("UTC+5", 5*60*60)
	now := refTime.In(zone)
	s, _ := newTestService(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()
	userID := registerLearner(t, s, models.LevelA1)

	// an incorrect answer on a new word schedules it one hour ahead
	if _, err := s.RecordReview(ctx, userID, "haus", "de", spaced_repetition.OutcomeIncorrect); err != nil {
		t.Fatalf("RecordReview: %v", err)
	}
	if n, err := s.CountDue(ctx, userID); err != nil || n != 0 {
		t.Fatalf("CountDue right after review = %d, %v", n, err)
	}

	now = now.Add(3 * time.Hour)
	n, err := s.CountDue(ctx, userID)
	if err != nil {
		t.Fatalf("CountDue: %v", err)
	}
	due, err := s.DueForReview(ctx, userID, "de", 10)
	if err != nil {
		t.Fatalf("DueForReview: %v", err)
	}
	if n != 1 || len(due) != 1 {
		t.Fatalf("CountDue = %d, DueForReview = %d, want 1 and 1", n, len(due))
	}
}
