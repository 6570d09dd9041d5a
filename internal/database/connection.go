package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Sentinel errors
var (
	ErrNotFound        = errors.New("database: not found")
	ErrVersionConflict = errors.New("database: concurrent modification")
)

// Supported drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Queryer is satisfied by both *sqlx.DB and *sqlx.Tx
type Queryer = sqlx.ExtContext

// DB wraps the sqlx connection
type DB struct {
	*sqlx.DB
}

// Open establishes a connection and creates missing tables
func Open(driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite:
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	d := &DB{DB: db}
	if err := d.initializeSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	if d == nil || d.DB == nil {
		return nil
	}
	return d.DB.Close()
}

// InTx runs fn in a transaction, rolling back when fn fails
func (d *DB) InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := d.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (d *DB) idColumn() string {
	if d.DriverName() == DriverPostgres {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// initializeSchema creates necessary tables if they don't exist
func (d *DB) initializeSchema() error {
	statements := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				telegram_id BIGINT PRIMARY KEY,
				username TEXT NOT NULL DEFAULT '',
				first_name TEXT NOT NULL DEFAULT '',
				language TEXT NOT NULL DEFAULT 'en',
				level TEXT,
				notification_enabled BOOLEAN NOT NULL DEFAULT TRUE,
				notification_hour INTEGER NOT NULL DEFAULT 9,
				words_per_day INTEGER NOT NULL DEFAULT 10,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`},
		{"vocabulary", `
			CREATE TABLE IF NOT EXISTS vocabulary (
				id ` + d.idColumn() + `,
				lemma TEXT NOT NULL,
				language TEXT NOT NULL,
				difficulty_level TEXT,
				frequency_rank INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP NOT NULL,
				UNIQUE(lemma, language)
			)`},
		{"surface_forms", `
			CREATE TABLE IF NOT EXISTS surface_forms (
				vocabulary_id BIGINT NOT NULL REFERENCES vocabulary(id) ON DELETE CASCADE,
				form TEXT NOT NULL,
				UNIQUE(vocabulary_id, form)
			)`},
		{"learner_progress", `
			CREATE TABLE IF NOT EXISTS learner_progress (
				id ` + d.idColumn() + `,
				user_id BIGINT NOT NULL,
				lemma TEXT NOT NULL,
				language TEXT NOT NULL,
				is_known BOOLEAN NOT NULL DEFAULT FALSE,
				confidence_level INTEGER NOT NULL DEFAULT 0,
				review_count INTEGER NOT NULL DEFAULT 0,
				correct_count INTEGER NOT NULL DEFAULT 0,
				incorrect_count INTEGER NOT NULL DEFAULT 0,
				learning_streak INTEGER NOT NULL DEFAULT 0,
				first_learned_at TIMESTAMP,
				last_reviewed_at TIMESTAMP,
				next_review_at TIMESTAMP,
				difficulty_adjustment REAL NOT NULL DEFAULT 1.0,
				version BIGINT NOT NULL DEFAULT 1,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				UNIQUE(user_id, lemma, language)
			)`},
		{"study_sessions", `
			CREATE TABLE IF NOT EXISTS study_sessions (
				id TEXT PRIMARY KEY,
				user_id BIGINT NOT NULL,
				language TEXT NOT NULL,
				reviewed INTEGER NOT NULL DEFAULT 0,
				correct INTEGER NOT NULL DEFAULT 0,
				started_at TIMESTAMP NOT NULL,
				completed_at TIMESTAMP
			)`},
	}

	for _, st := range statements {
		if _, err := d.Exec(st.sql); err != nil {
			return fmt.Errorf("failed to create %s table: %w", st.name, err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a unique constraint failure on either driver
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// utcPtr normalizes a stored timestamp. sqlite keeps times as text, so
// comparisons only hold when every row is written in the same zone.
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
