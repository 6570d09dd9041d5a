package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/vocabgate/pkg/models"
)

const userColumns = `telegram_id, username, first_name, language, level,
	notification_enabled, notification_hour, words_per_day, created_at, updated_at`

// UserRepository handles database operations for learners
type UserRepository struct{}

// NewUserRepository creates a new repository instance
func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

// GetByID returns a learner by Telegram ID
func (r *UserRepository) GetByID(ctx context.Context, q Queryer, id int64) (*models.User, error) {
	var user models.User
	err := sqlx.GetContext(ctx, q, &user, q.Rebind(`SELECT `+userColumns+` FROM users WHERE telegram_id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// Create inserts a new learner. Existing learners keep their settings.
func (r *UserRepository) Create(ctx context.Context, q Queryer, user *models.User) error {
	now := time.Now().UTC()
	if user.WordsPerDay <= 0 {
		user.WordsPerDay = 10
	}
	query := q.Rebind(`
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (telegram_id) DO NOTHING`)
	_, err := q.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.FirstName,
		user.Language,
		user.Level,
		user.NotificationEnabled,
		user.NotificationHour,
		user.WordsPerDay,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// Update modifies an existing learner
func (r *UserRepository) Update(ctx context.Context, q Queryer, user *models.User) error {
	now := time.Now().UTC()
	query := q.Rebind(`
		UPDATE users SET
			username = ?,
			first_name = ?,
			language = ?,
			level = ?,
			notification_enabled = ?,
			notification_hour = ?,
			words_per_day = ?,
			updated_at = ?
		WHERE telegram_id = ?`)
	res, err := q.ExecContext(ctx, query,
		user.Username,
		user.FirstName,
		user.Language,
		user.Level,
		user.NotificationEnabled,
		user.NotificationHour,
		user.WordsPerDay,
		now,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	user.UpdatedAt = now
	return nil
}

// GetUsersForNotification returns learners with notifications enabled at hour
func (r *UserRepository) GetUsersForNotification(ctx context.Context, q Queryer, hour int) ([]models.User, error) {
	var users []models.User
	query := q.Rebind(`SELECT ` + userColumns + ` FROM users WHERE notification_enabled = ? AND notification_hour = ?`)
	if err := sqlx.SelectContext(ctx, q, &users, query, true, hour); err != nil {
		return nil, fmt.Errorf("failed to get users for notification: %w", err)
	}
	return users, nil
}
