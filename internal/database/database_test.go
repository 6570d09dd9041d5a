package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/vocabgate/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "dsn"); err == nil {
		t.Fatal("expected error")
	}
}

func TestWordRepositoryUpsert(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewWordRepository()

	entry := &models.VocabularyEntry{Lemma: "Haus", Language: "de", DifficultyLevel: models.LevelA1, SurfaceForms: []string{"Häuser", "Hauses"}}
	created, err := repo.Upsert(ctx, db, entry)
	if err != nil || !created {
		t.Fatalf("Upsert: created=%v err=%v", created, err)
	}

	again := &models.VocabularyEntry{Lemma: "Haus", Language: "de", DifficultyLevel: models.LevelB2, FrequencyRank: 120, SurfaceForms: []string{"Häuser", "Häusern"}}
	created, err = repo.Upsert(ctx, db, again)
	if err != nil || created {
		t.Fatalf("second Upsert: created=%v err=%v", created, err)
	}
	if again.DifficultyLevel != models.LevelA1 {
		t.Fatalf("assigned level must not change, got %s", again.DifficultyLevel)
	}

	if _, err := repo.Upsert(ctx, db, &models.VocabularyEntry{Lemma: "gehen", Language: "de"}); err != nil {
		t.Fatalf("Upsert gehen: %v", err)
	}
	if _, err := repo.Upsert(ctx, db, &models.VocabularyEntry{Lemma: "house", Language: "en", DifficultyLevel: models.LevelA1}); err != nil {
		t.Fatalf("Upsert house: %v", err)
	}

	entries, err := repo.GetByLanguage(ctx, db, "de")
	if err != nil {
		t.Fatalf("GetByLanguage: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %+v", entries)
	}
	haus := entries[1]
	if entries[0].Lemma == "Haus" {
		haus = entries[0]
	}
	if haus.FrequencyRank != 120 || haus.DifficultyLevel != models.LevelA1 || len(haus.SurfaceForms) != 3 {
		t.Fatalf("haus = %+v", haus)
	}

	if err := repo.CorrectLevel(ctx, db, "gehen", "de", models.LevelA2); err != nil {
		t.Fatalf("CorrectLevel: %v", err)
	}
	gehen, err := repo.GetByLemma(ctx, db, "gehen", "de")
	if err != nil || gehen.DifficultyLevel != models.LevelA2 {
		t.Fatalf("GetByLemma: %+v %v", gehen, err)
	}
	if _, err := repo.GetByLemma(ctx, db, "nope", "de"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing lemma err = %v", err)
	}
}

func TestUserProgressRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewUserProgressRepository()

	if _, err := NewWordRepository().Upsert(ctx, db, &models.VocabularyEntry{Lemma: "Haus", Language: "de", DifficultyLevel: models.LevelA1, FrequencyRank: 50}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	p := models.NewLearnerWordProgress(7, "Haus", "de")
	if err := repo.Save(ctx, db, &p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.ID == 0 || p.Version != 1 {
		t.Fatalf("after create: %+v", p)
	}

	dup := models.NewLearnerWordProgress(7, "Haus", "de")
	if err := repo.Create(ctx, db, &dup); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("duplicate create err = %v", err)
	}

	loaded, err := repo.GetByUserAndLemma(ctx, db, 7, "Haus", "de")
	if err != nil {
		t.Fatalf("GetByUserAndLemma: %v", err)
	}
	if loaded.DifficultyLevel != models.LevelA1 || loaded.FrequencyRank != 50 || loaded.DifficultyAdjustment != 1.0 {
		t.Fatalf("loaded = %+v", loaded)
	}

	next := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)
	loaded.IsKnown = true
	loaded.ConfidenceLevel = models.ConfidenceStrong
	loaded.ReviewCount, loaded.CorrectCount = 1, 1
	loaded.NextReviewAt = &next
	stale := *loaded
	if err := repo.Update(ctx, db, loaded); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if loaded.Version != 2 {
		t.Fatalf("version = %d", loaded.Version)
	}
	if err := repo.Update(ctx, db, &stale); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("stale update err = %v", err)
	}

	other := models.NewLearnerWordProgress(7, "Zeitgeist", "de")
	if err := repo.Save(ctx, db, &other); err != nil {
		t.Fatalf("Create other: %v", err)
	}

	all, err := repo.ListByUser(ctx, db, 7, "de")
	if err != nil || len(all) != 2 {
		t.Fatalf("ListByUser: %d %v", len(all), err)
	}
	if all[0].NextReviewAt == nil || !all[0].NextReviewAt.Equal(next) || all[0].ConfidenceLevel != models.ConfidenceStrong {
		t.Fatalf("round trip = %+v", all[0])
	}
	if all[1].DifficultyLevel != models.LevelUnset {
		t.Fatalf("word outside vocabulary should have no level, got %s", all[1].DifficultyLevel)
	}

	known, err := repo.KnownLemmas(ctx, db, 7, "de")
	if err != nil || len(known) != 1 || known[0] != "Haus" {
		t.Fatalf("KnownLemmas = %v %v", known, err)
	}

	due, err := repo.CountDue(ctx, db, 7, next.Add(time.Minute))
	if err != nil || due != 2 {
		t.Fatalf("CountDue = %d %v", due, err)
	}

	if err := repo.Delete(ctx, db, 7, "Zeitgeist", "de"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, db, 7, "Zeitgeist", "de"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestUserRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository()

	u := &models.User{ID: 99, Username: "anna", Language: "de", Level: models.LevelA2, NotificationEnabled: true, NotificationHour: 9}
	if err := repo.Create(ctx, db, u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := repo.GetByID(ctx, db, 99)
	if err != nil || got.Level != models.LevelA2 || got.WordsPerDay != 10 {
		t.Fatalf("GetByID: %+v %v", got, err)
	}

	got.Level = models.LevelB1
	if err := repo.Update(ctx, db, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	users, err := repo.GetUsersForNotification(ctx, db, 9)
	if err != nil || len(users) != 1 || users[0].Level != models.LevelB1 {
		t.Fatalf("GetUsersForNotification: %+v %v", users, err)
	}
	if _, err := repo.GetByID(ctx, db, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing user err = %v", err)
	}
}

func TestSessionRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewSessionRepository()

	start := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	s := &models.StudySession{UserID: 5, Language: "de", StartedAt: start}
	if err := repo.Save(ctx, db, s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	done := start.Add(10 * time.Minute)
	s.Reviewed, s.Correct, s.CompletedAt = 4, 3, &done
	if err := repo.Save(ctx, db, s); err != nil {
		t.Fatalf("Save completed: %v", err)
	}
	if err := repo.Save(ctx, db, &models.StudySession{UserID: 5, Language: "de", StartedAt: start}); err != nil {
		t.Fatalf("Save open: %v", err)
	}

	sessions, err := repo.ListCompletedSince(ctx, db, 5, start.Add(-time.Hour))
	if err != nil || len(sessions) != 1 {
		t.Fatalf("ListCompletedSince: %+v %v", sessions, err)
	}
	if sessions[0].Reviewed != 4 || sessions[0].CompletedAt == nil {
		t.Fatalf("session = %+v", sessions[0])
	}
}

func TestSessionRepositoryMixedZones(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewSessionRepository()

	west := time.FixedZone("UTC-3", -3*60*60)
	done := time.Date(2026, 4, 1, 10, 10, 0, 0, west) // 13:10 UTC
	s := &models.StudySession{UserID: 5, Language: "de", StartedAt: done.Add(-10 * time.Minute), CompletedAt: &done}
	if err := repo.Save(ctx, db, s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	sessions, err := repo.ListCompletedSince(ctx, db, 5, time.Date(2026, 4, 1, 12, 30, 0, 0, time.UTC))
	if err != nil || len(sessions) != 1 {
		t.Fatalf("ListCompletedSince: %+v %v", sessions, err)
	}
	if !sessions[0].CompletedAt.Equal(done) {
		t.Fatalf("completed at = %v, want %v", sessions[0].CompletedAt, done)
	}
}

func TestInTxRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.InTx(ctx, func(tx *sqlx.Tx) error {
		p := models.NewLearnerWordProgress(1, "x", "en")
		if err := NewUserProgressRepository().Create(ctx, tx, &p); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx err = %v", err)
	}
	all, err := NewUserProgressRepository().ListByUser(ctx, db, 1, "en")
	if err != nil || len(all) != 0 {
		t.Fatalf("rolled back rows visible: %d %v", len(all), err)
	}
}
