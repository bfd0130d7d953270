package dto

import "time"

// ReportFormat selects the rendered output of a progress report.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// GenerateReportRequest queues a progress report export.
type GenerateReportRequest struct {
	ProgramID string       `json:"programId" binding:"required"`
	Format    ReportFormat `json:"format" binding:"required,oneof=csv pdf"`
}

// ReportJobStatus tracks a queued export.
type ReportJobStatus struct {
	JobID       string     `json:"jobId"`
	Status      string     `json:"status"`
	Format      string     `json:"format"`
	DownloadURL string     `json:"downloadUrl,omitempty"`
	Error       string     `json:"error,omitempty"`
	EnqueuedAt  time.Time  `json:"enqueuedAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}
