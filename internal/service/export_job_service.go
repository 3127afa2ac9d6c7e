package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/klil-music/conservatory-api/pkg/errors"
	"github.com/klil-music/conservatory-api/pkg/jobs"
	"github.com/klil-music/conservatory-api/pkg/storage"
)

// ExportJobStatus tracks the lifecycle of an async export.
type ExportJobStatus string

const (
	ExportJobPending    ExportJobStatus = "PENDING"
	ExportJobProcessing ExportJobStatus = "PROCESSING"
	ExportJobCompleted  ExportJobStatus = "COMPLETED"
	ExportJobFailed     ExportJobStatus = "FAILED"
)

// ExportJob describes a queued schedule export and its outcome.
type ExportJob struct {
	ID            string          `json:"id"`
	TeacherID     string          `json:"teacher_id"`
	Format        ExportFormat    `json:"format"`
	Status        ExportJobStatus `json:"status"`
	Filename      string          `json:"filename,omitempty"`
	DownloadToken string          `json:"download_token,omitempty"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
	Error         string          `json:"error,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}

// ExportJobService runs schedule exports on a background worker pool and
// serves the rendered files through signed, expiring download tokens.
type ExportJobService struct {
	exports *ExportService
	store   *storage.LocalStorage
	signer  *storage.SignedURLSigner
	queue   *jobs.Queue
	logger  *zap.Logger

	mu      sync.RWMutex
	entries map[string]*ExportJob
}

// NewExportJobService constructs the async export pipeline.
func NewExportJobService(exports *ExportService, store *storage.LocalStorage, signer *storage.SignedURLSigner, queueCfg jobs.QueueConfig, logger *zap.Logger) *ExportJobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueCfg.Logger == nil {
		queueCfg.Logger = logger
	}

	s := &ExportJobService{
		exports: exports,
		store:   store,
		signer:  signer,
		logger:  logger,
		entries: make(map[string]*ExportJob),
	}
	s.queue = jobs.NewQueue("schedule-exports", s.process, queueCfg)

	return s
}

// Start spins up the worker pool.
func (s *ExportJobService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the worker pool.
func (s *ExportJobService) Stop() {
	s.queue.Stop()
}

// Enqueue registers a new export job and hands it to the queue.
func (s *ExportJobService) Enqueue(ctx context.Context, teacherID string, format ExportFormat) (*ExportJob, error) {
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	job := &ExportJob{
		ID:        uuid.NewString(),
		TeacherID: teacherID,
		Format:    format,
		Status:    ExportJobPending,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.entries[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Task{ID: job.ID, Kind: "teacher-schedule-export"}); err != nil {
		s.fail(job.ID, err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export")
	}

	s.logger.Sugar().Infow("export job enqueued", "job_id", job.ID, "teacher_id", teacherID, "format", format)

	return s.snapshot(job.ID), nil
}

// Get returns the current state of a job.
func (s *ExportJobService) Get(jobID string) (*ExportJob, error) {
	job := s.snapshot(jobID)
	if job == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	return job, nil
}

// ResolveDownload validates a signed token and streams the rendered file back.
func (s *ExportJobService) ResolveDownload(token string) (*ExportResult, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}

	job := s.snapshot(jobID)
	if job == nil || job.Status != ExportJobCompleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not available")
	}

	f, err := s.store.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
	}
	defer f.Close()

	payload, err := io.ReadAll(f)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export file")
	}

	return &ExportResult{
		Payload:     payload,
		ContentType: contentTypeFor(job.Format),
		Filename:    job.Filename,
	}, nil
}

// CleanupExpired removes rendered files older than the retention window.
func (s *ExportJobService) CleanupExpired(retention time.Duration) (int, error) {
	removed, err := s.store.CleanupOlderThan(retention)
	if err != nil {
		return 0, err
	}
	if len(removed) > 0 {
		s.logger.Sugar().Infow("removed stale export files", "count", len(removed))
	}
	return len(removed), nil
}

func (s *ExportJobService) process(ctx context.Context, task jobs.Task) error {
	s.setStatus(task.ID, ExportJobProcessing)

	entry := s.snapshot(task.ID)
	if entry == nil {
		return fmt.Errorf("unknown export job %s", task.ID)
	}

	result, err := s.exports.TeacherSchedule(ctx, entry.TeacherID, entry.Format)
	if err != nil {
		s.fail(task.ID, err)
		// Validation and not-found failures are terminal, do not retry.
		if appErr := appErrors.FromError(err); appErr != nil && appErr.Status < 500 {
			return nil
		}
		return err
	}

	relPath := fmt.Sprintf("%s-%s", task.ID, result.Filename)
	if _, err := s.store.Save(relPath, result.Payload); err != nil {
		s.fail(task.ID, err)
		return err
	}

	token, expiresAt, err := s.signer.Generate(task.ID, relPath)
	if err != nil {
		s.fail(task.ID, err)
		return err
	}

	now := time.Now().UTC()
	s.mu.Lock()
	if e, ok := s.entries[task.ID]; ok {
		e.Status = ExportJobCompleted
		e.Filename = result.Filename
		e.DownloadToken = token
		e.ExpiresAt = &expiresAt
		e.CompletedAt = &now
	}
	s.mu.Unlock()

	s.logger.Sugar().Infow("export job completed", "job_id", task.ID, "filename", result.Filename)

	return nil
}

func (s *ExportJobService) setStatus(jobID string, status ExportJobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[jobID]; ok {
		e.Status = status
	}
}

func (s *ExportJobService) fail(jobID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[jobID]; ok {
		e.Status = ExportJobFailed
		e.Error = err.Error()
	}
}

func (s *ExportJobService) snapshot(jobID string) *ExportJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[jobID]
	if !ok {
		return nil
	}
	copied := *e
	return &copied
}

func contentTypeFor(format ExportFormat) string {
	if format == ExportFormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}
