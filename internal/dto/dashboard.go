package dto

import (
	"time"

	"github.com/studiklab/portal-api/internal/models"
)

// ProgramProgress is one program's progress card on the student dashboard.
type ProgramProgress struct {
	ProgramID         string     `json:"programId"`
	ProgramName       string     `json:"programName"`
	Track             string     `json:"track"`
	ModulesTotal      int        `json:"modulesTotal"`
	ModulesCompleted  int        `json:"modulesCompleted"`
	LabsTotal         int        `json:"labsTotal"`
	LabsPassed        int        `json:"labsPassed"`
	CompletionPercent float64    `json:"completionPercent"`
	EnrollmentStatus  string     `json:"enrollmentStatus,omitempty"`
	LastActivityAt    *time.Time `json:"lastActivityAt,omitempty"`
}

// NewProgramProgress maps a progress aggregate to its wire shape.
func NewProgramProgress(s models.ProgressSummary) ProgramProgress {
	return ProgramProgress{
		ProgramID:         s.ProgramID,
		ProgramName:       s.ProgramName,
		Track:             s.Track,
		ModulesTotal:      s.ModulesTotal,
		ModulesCompleted:  s.ModulesCompleted,
		LabsTotal:         s.LabsTotal,
		LabsPassed:        s.LabsPassed,
		CompletionPercent: s.CompletionPercent(),
		LastActivityAt:    s.LastActivityAt,
	}
}

// Dashboard is the student landing page payload.
type Dashboard struct {
	Programs           []ProgramProgress `json:"programs"`
	PendingInvitations int               `json:"pendingInvitations"`
	UpcomingEvents     []InvitationItem  `json:"upcomingEvents"`
	RecentAttempts     []AttemptSummary  `json:"recentAttempts"`
	GeneratedAt        time.Time         `json:"generatedAt"`
}
