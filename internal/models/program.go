package models

import "time"

// Program is a bootcamp cohort with a fixed module curriculum.
type Program struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Track     string    `db:"track" json:"track"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// EnrollmentStatus tracks a student's standing within a program.
type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "ACTIVE"
	EnrollmentCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentDropped   EnrollmentStatus = "DROPPED"
)

// Enrollment binds a student to a program.
type Enrollment struct {
	ID          string           `db:"id" json:"id"`
	ProgramID   string           `db:"program_id" json:"program_id"`
	UserID      string           `db:"user_id" json:"user_id"`
	Status      EnrollmentStatus `db:"status" json:"status"`
	EnrolledAt  time.Time        `db:"enrolled_at" json:"enrolled_at"`
	CompletedAt *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
}

// ProgressSummary aggregates a student's advancement through one program.
type ProgressSummary struct {
	ProgramID        string     `db:"program_id" json:"program_id"`
	ProgramName      string     `db:"program_name" json:"program_name"`
	Track            string     `db:"track" json:"track"`
	ModulesTotal     int        `db:"modules_total" json:"modules_total"`
	ModulesCompleted int        `db:"modules_completed" json:"modules_completed"`
	LabsTotal        int        `db:"labs_total" json:"labs_total"`
	LabsPassed       int        `db:"labs_passed" json:"labs_passed"`
	LastActivityAt   *time.Time `db:"last_activity_at" json:"last_activity_at,omitempty"`
}

// CompletionPercent derives the overall completion ratio in [0, 100].
func (p ProgressSummary) CompletionPercent() float64 {
	total := p.ModulesTotal + p.LabsTotal
	if total == 0 {
		return 0
	}
	done := p.ModulesCompleted + p.LabsPassed
	return float64(done) / float64(total) * 100
}
