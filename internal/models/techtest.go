package models

import (
	"time"

	"github.com/lib/pq"
)

// TechTest is a timed multiple-choice assessment assigned within a track.
type TechTest struct {
	ID              string    `db:"id" json:"id"`
	Title           string    `db:"title" json:"title"`
	Track           string    `db:"track" json:"track"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	Published       bool      `db:"published" json:"published"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// TechTestQuestion is a single multiple-choice question. The correct choice
// index is never serialised to clients.
type TechTestQuestion struct {
	ID            string         `db:"id" json:"id"`
	TestID        string         `db:"test_id" json:"test_id"`
	Position      int            `db:"position" json:"position"`
	Prompt        string         `db:"prompt" json:"prompt"`
	Choices       pq.StringArray `db:"choices" json:"choices"`
	CorrectChoice int            `db:"correct_choice" json:"-"`
}

// AttemptStatus tracks the lifecycle of a test attempt.
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "IN_PROGRESS"
	AttemptSubmitted  AttemptStatus = "SUBMITTED"
	AttemptExpired    AttemptStatus = "EXPIRED"
)

// TestAttempt is one sitting of a technical test by a student.
type TestAttempt struct {
	ID          string        `db:"id" json:"id"`
	TestID      string        `db:"test_id" json:"test_id"`
	UserID      string        `db:"user_id" json:"user_id"`
	Status      AttemptStatus `db:"status" json:"status"`
	Score       *float64      `db:"score" json:"score,omitempty"`
	StartedAt   time.Time     `db:"started_at" json:"started_at"`
	SubmittedAt *time.Time    `db:"submitted_at" json:"submitted_at,omitempty"`
}

// AttemptAnswer records the chosen option for one question of an attempt.
type AttemptAnswer struct {
	AttemptID  string `db:"attempt_id" json:"attempt_id"`
	QuestionID string `db:"question_id" json:"question_id"`
	Choice     int    `db:"choice" json:"choice"`
}
