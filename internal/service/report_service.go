package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studiklab/portal-api/internal/dto"
	"github.com/studiklab/portal-api/internal/models"
	"github.com/studiklab/portal-api/pkg/config"
	appErrors "github.com/studiklab/portal-api/pkg/errors"
	"github.com/studiklab/portal-api/pkg/export"
	"github.com/studiklab/portal-api/pkg/jobs"
	"github.com/studiklab/portal-api/pkg/storage"
)

type reportProgressRepo interface {
	FindProgram(ctx context.Context, id string) (*models.Program, error)
	CohortProgress(ctx context.Context, programID string) ([]models.ProgressSummary, error)
}

type reportJob struct {
	ID        string
	ProgramID string
	Format    dto.ReportFormat
	UserID    string
}

type reportRecord struct {
	job        reportJob
	status     string
	filename   string
	err        string
	enqueuedAt time.Time
	finishedAt *time.Time
}

// ReportService renders cohort progress reports asynchronously. Jobs run on
// the shared worker queue, the rendered file lands in local storage and is
// served through a signed URL.
type ReportService struct {
	progress reportProgressRepo
	queue    *jobs.Queue
	store    *storage.LocalStorage
	signer   *storage.SignedURLSigner
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	metrics  *MetricsService
	cfg      config.ReportsConfig
	logger   *zap.Logger

	maxRetries int

	mu      sync.RWMutex
	records map[string]*reportRecord

	cleanupDone chan struct{}
}

// NewReportService constructs a ReportService. Call Start before enqueueing.
func NewReportService(progress reportProgressRepo, store *storage.LocalStorage, signer *storage.SignedURLSigner, metrics *MetricsService, cfg config.ReportsConfig, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ReportService{
		progress: progress,
		store:    store,
		signer:   signer,
		metrics:  metrics,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		cfg:      cfg,
		logger:   logger,
		records:  make(map[string]*reportRecord),
	}
	// Mirror the queue's retry default so terminal-status decisions agree
	// with the number of deliveries the queue will actually make.
	s.maxRetries = cfg.WorkerRetries
	if s.maxRetries <= 0 {
		s.maxRetries = 3
	}
	s.queue = jobs.NewQueue("reports", s.handle, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: s.maxRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the report workers and the export cleanup loop.
func (s *ReportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
	if s.cfg.CleanupInterval > 0 {
		s.cleanupDone = make(chan struct{})
		go s.cleanupLoop(ctx)
	}
}

// Stop drains the report workers.
func (s *ReportService) Stop() {
	if s.cleanupDone != nil {
		close(s.cleanupDone)
	}
	s.queue.Stop()
}

func (s *ReportService) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.cleanupDone:
			return
		case <-ticker.C:
			deleted, err := s.store.CleanupOlderThan(s.cfg.SignedURLTTL)
			if err != nil {
				s.logger.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(deleted) > 0 {
				s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
			}
		}
	}
}

// Enqueue queues one report generation and returns its tracking status.
func (s *ReportService) Enqueue(ctx context.Context, userID string, req dto.GenerateReportRequest) (*dto.ReportJobStatus, error) {
	if !s.cfg.Enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report generation is disabled")
	}
	if _, err := s.progress.FindProgram(ctx, req.ProgramID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
	}

	job := reportJob{
		ID:        uuid.NewString(),
		ProgramID: req.ProgramID,
		Format:    req.Format,
		UserID:    userID,
	}
	record := &reportRecord{job: job, status: "queued", enqueuedAt: time.Now().UTC()}
	s.mu.Lock()
	s.records[job.ID] = record
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "progress-report", Payload: job}); err != nil {
		s.mu.Lock()
		delete(s.records, job.ID)
		s.mu.Unlock()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue report")
	}
	return s.status(job.ID)
}

// Status reports the state of one queued report for its owner.
func (s *ReportService) Status(_ context.Context, userID, jobID string) (*dto.ReportJobStatus, error) {
	s.mu.RLock()
	record, ok := s.records[jobID]
	s.mu.RUnlock()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
	}
	if record.job.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report belongs to another user")
	}
	return s.status(jobID)
}

// Resolve validates a signed download token and returns the stored filename.
func (s *ReportService) Resolve(token string) (string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	return relPath, nil
}

// Open returns the stored report file for streaming.
func (s *ReportService) Open(filename string) (*os.File, error) {
	f, err := s.store.Open(filename)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report file not found")
	}
	return f, nil
}

func (s *ReportService) status(jobID string) (*dto.ReportJobStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[jobID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
	}
	out := &dto.ReportJobStatus{
		JobID:      record.job.ID,
		Status:     record.status,
		Format:     string(record.job.Format),
		Error:      record.err,
		EnqueuedAt: record.enqueuedAt,
		FinishedAt: record.finishedAt,
	}
	if record.status == "done" {
		token, _, err := s.signer.Generate(record.job.ID, record.filename)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
		}
		out.DownloadURL = "/api/v1/reports/download?token=" + token
	}
	return out, nil
}

func (s *ReportService) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(reportJob)
	if !ok {
		return fmt.Errorf("report job %s: unexpected payload type", job.ID)
	}

	s.setStatus(payload.ID, "running", "", "")

	dataset, title, err := s.buildDataset(ctx, payload.ProgramID)
	if err != nil {
		return s.fail(job, payload.ID, err)
	}

	var rendered []byte
	var ext string
	switch payload.Format {
	case dto.ReportFormatPDF:
		rendered, err = s.pdf.Render(*dataset, title)
		ext = "pdf"
	default:
		rendered, err = s.csv.Render(*dataset)
		ext = "csv"
	}
	if err != nil {
		return s.fail(job, payload.ID, err)
	}

	filename := fmt.Sprintf("progress-%s-%s.%s", payload.ProgramID, payload.ID, ext)
	if _, err := s.store.Save(filename, rendered); err != nil {
		return s.fail(job, payload.ID, err)
	}

	s.finish(payload.ID, "done", filename, "")
	s.logger.Info("report generated",
		zap.String("job_id", payload.ID),
		zap.String("program_id", payload.ProgramID),
		zap.String("format", string(payload.Format)))
	return nil
}

func (s *ReportService) buildDataset(ctx context.Context, programID string) (*export.Dataset, string, error) {
	program, err := s.progress.FindProgram(ctx, programID)
	if err != nil {
		return nil, "", fmt.Errorf("load program: %w", err)
	}
	summaries, err := s.progress.CohortProgress(ctx, programID)
	if err != nil {
		return nil, "", fmt.Errorf("load cohort progress: %w", err)
	}

	dataset := &export.Dataset{
		Headers: []string{"program", "track", "modules_completed", "modules_total", "labs_passed", "labs_total", "completion_percent"},
	}
	for _, summary := range summaries {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"program":            summary.ProgramName,
			"track":              summary.Track,
			"modules_completed":  strconv.Itoa(summary.ModulesCompleted),
			"modules_total":      strconv.Itoa(summary.ModulesTotal),
			"labs_passed":        strconv.Itoa(summary.LabsPassed),
			"labs_total":         strconv.Itoa(summary.LabsTotal),
			"completion_percent": fmt.Sprintf("%.1f", summary.CompletionPercent()),
		})
	}
	title := fmt.Sprintf("Progress report: %s", program.Name)
	return dataset, title, nil
}

// fail marks a job failed only once its retry budget is spent. Earlier
// attempts leave the record running, so a poller never sees a terminal
// status revert when the queue redelivers.
func (s *ReportService) fail(job jobs.Job, jobID string, cause error) error {
	if job.Attempt >= s.maxRetries {
		s.finish(jobID, "failed", "", cause.Error())
	}
	return cause
}

func (s *ReportService) finish(jobID, status, filename, errMsg string) {
	s.setStatus(jobID, status, filename, errMsg)
	if s.metrics != nil {
		s.metrics.ObserveReportJob(status)
	}
}

func (s *ReportService) setStatus(jobID, status, filename, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[jobID]
	if !ok {
		return
	}
	record.status = status
	record.filename = filename
	record.err = errMsg
	if status == "done" || status == "failed" {
		now := time.Now().UTC()
		record.finishedAt = &now
	}
}
