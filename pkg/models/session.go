package models

import "time"

// StudySession is one review session of a learner
type StudySession struct {
	ID          string     `json:"id" db:"id"`
	UserID      int64      `json:"user_id" db:"user_id"`
	Language    string     `json:"language" db:"language"`
	Reviewed    int        `json:"reviewed" db:"reviewed"`
	Correct     int        `json:"correct" db:"correct"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
}
