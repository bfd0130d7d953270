package dto

import (
	"time"

	"github.com/studiklab/portal-api/internal/models"
)

// TestSummary lists a technical test without its questions.
type TestSummary struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Track           string `json:"track"`
	DurationMinutes int    `json:"durationMinutes"`
	QuestionCount   int    `json:"questionCount,omitempty"`
}

// QuestionView is a question as shown to a candidate, without the answer key.
type QuestionView struct {
	ID       string   `json:"id"`
	Position int      `json:"position"`
	Prompt   string   `json:"prompt"`
	Choices  []string `json:"choices"`
}

// AttemptView is an open attempt with its questions.
type AttemptView struct {
	AttemptID string         `json:"attemptId"`
	TestID    string         `json:"testId"`
	StartedAt time.Time      `json:"startedAt"`
	Deadline  time.Time      `json:"deadline"`
	Questions []QuestionView `json:"questions"`
}

// SubmitAttemptRequest carries the candidate's answers.
type SubmitAttemptRequest struct {
	Answers []AnswerPayload `json:"answers" binding:"required,dive"`
}

// AnswerPayload is one chosen option.
type AnswerPayload struct {
	QuestionID string `json:"questionId" binding:"required"`
	Choice     int    `json:"choice"`
}

// AttemptSummary reports a finished or running attempt.
type AttemptSummary struct {
	AttemptID   string     `json:"attemptId"`
	TestID      string     `json:"testId"`
	Status      string     `json:"status"`
	Score       *float64   `json:"score,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
}

// NewAttemptSummary maps a stored attempt to its wire shape.
func NewAttemptSummary(a models.TestAttempt) AttemptSummary {
	return AttemptSummary{
		AttemptID:   a.ID,
		TestID:      a.TestID,
		Status:      string(a.Status),
		Score:       a.Score,
		StartedAt:   a.StartedAt,
		SubmittedAt: a.SubmittedAt,
	}
}
