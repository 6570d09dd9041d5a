package models

import "time"

// User is a learner talking to the bot
type User struct {
	ID                  int64           `json:"id" db:"telegram_id"` // Telegram User ID
	Username            string          `json:"username" db:"username"`
	FirstName           string          `json:"first_name" db:"first_name"`
	Language            string          `json:"language" db:"language"` // language being learned
	Level               DifficultyLevel `json:"level" db:"level"`
	NotificationEnabled bool            `json:"notification_enabled" db:"notification_enabled"`
	NotificationHour    int             `json:"notification_hour" db:"notification_hour"` // 0-23
	WordsPerDay         int             `json:"words_per_day" db:"words_per_day"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
}
