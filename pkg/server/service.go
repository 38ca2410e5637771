package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Dedsec1226/extreme-search/pkg/config"
	"github.com/Dedsec1226/extreme-search/pkg/database"
	"github.com/Dedsec1226/extreme-search/pkg/progress"
	"github.com/Dedsec1226/extreme-search/pkg/research"
)

type Service struct {
	DB   *database.PostgresDB
	Deps research.Deps
	Cfg  *config.Config
}

func NewService(db *database.PostgresDB, deps research.Deps, cfg *config.Config) *Service {
	return &Service{
		DB:   db,
		Deps: deps,
		Cfg:  cfg,
	}
}

// jobTimeout bounds a whole background research run. A job that exceeds it
// is marked failed instead of sitting in 'running' forever.
const jobTimeout = 30 * time.Minute

type Job struct {
	ID        uuid.UUID       `json:"id"`
	Prompt    string          `json:"prompt"`
	Status    string          `json:"status"`
	Report    json.RawMessage `json:"report,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type CreateJobRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Service) CreateJob(ctx context.Context, req CreateJobRequest) (*Job, error) {
	jobID := uuid.New()
	query := `
		INSERT INTO research_jobs (id, prompt, status)
		VALUES ($1, $2, 'pending')
		RETURNING id, prompt, status, created_at, updated_at
	`

	job := &Job{}
	err := s.DB.Pool.QueryRow(ctx, query, jobID, req.Prompt).Scan(
		&job.ID, &job.Prompt, &job.Status, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	// Start background worker
	go s.runWorker(job.ID, req.Prompt)

	return job, nil
}

func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	query := `
		SELECT id, prompt, status, report, created_at, updated_at
		FROM research_jobs
		WHERE id = $1
	`
	job := &Job{}
	err := s.DB.Pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.Prompt, &job.Status, &job.Report, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (s *Service) ListJobs(ctx context.Context) ([]Job, error) {
	query := `
		SELECT id, prompt, status, report, created_at, updated_at
		FROM research_jobs
		ORDER BY created_at DESC
		LIMIT 50
	`
	rows, err := s.DB.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var job Job
		if err := rows.Scan(&job.ID, &job.Prompt, &job.Status, &job.Report, &job.CreatedAt, &job.UpdatedAt); err != nil {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

type LogEntry struct {
	ID        int             `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (s *Service) GetJobLogs(ctx context.Context, jobID uuid.UUID) ([]LogEntry, error) {
	query := `
		SELECT id, timestamp, level, message, metadata
		FROM research_logs
		WHERE job_id = $1
		ORDER BY id ASC
	`
	rows, err := s.DB.Pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	defer rows.Close()

	var logs []LogEntry
	for rows.Next() {
		var l LogEntry
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.Level, &l.Message, &l.Metadata); err != nil {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}

func (s *Service) runWorker(jobID uuid.UUID, prompt string) {
	// DB updates stay on the background context so the final status write
	// succeeds even when the run itself timed out.
	ctx := context.Background()
	runCtx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	_, _ = s.DB.Pool.Exec(ctx, "UPDATE research_jobs SET status = 'running', updated_at = NOW() WHERE id = $1", jobID)

	dbLogger := slog.New(NewDBLogHandler(s.DB, jobID))

	// Progress events land in the job log so the trail survives the run.
	emitter := progress.EmitterFunc(func(ev progress.Event) {
		dbLogger.Info("progress",
			"event", string(ev.Type),
			"title", ev.Title,
			"query", ev.Query,
			"url", ev.URL)
	})

	engine := research.NewEngine(s.Deps, research.ConfigFromEnv(s.Cfg), emitter, dbLogger)

	report, err := engine.Run(runCtx, prompt)
	if err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("Research failed: %v", err))
		return
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("Failed to marshal report: %v", err))
		return
	}

	_, err = s.DB.Pool.Exec(ctx,
		"UPDATE research_jobs SET status = 'completed', report = $2, updated_at = NOW() WHERE id = $1",
		jobID, reportJSON)
	if err != nil {
		dbLogger.Error("Failed to save final report to DB", "error", err)
	}
}

func (s *Service) failJob(ctx context.Context, jobID uuid.UUID, reason string) {
	dbLogger := slog.New(NewDBLogHandler(s.DB, jobID))
	dbLogger.Error(reason)

	_, _ = s.DB.Pool.Exec(ctx, "UPDATE research_jobs SET status = 'failed', updated_at = NOW() WHERE id = $1", jobID)
}
