package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/repo"
)

const insertJobQuery = `INSERT INTO jobs (
		job_id,
		pipeline_id,
		pipeline_version,
		status,
		priority,
		progress,
		variables,
		triggered_by,
		schedule_id,
		retry_of,
		started_at,
		completed_at,
		metrics,
		error_message,
		error_details,
		output_graph,
		steps,
		created_by,
		created_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`

// updateJobQuery rejects mutation of terminal jobs in the predicate; zero
// rows affected on an existing job means it already reached a terminal
// status.
const updateJobQuery = `UPDATE jobs SET
		status = $2,
		progress = $3,
		started_at = $4,
		completed_at = $5,
		metrics = $6,
		error_message = $7,
		error_details = $8,
		output_graph = $9,
		steps = $10
	WHERE job_id = $1
	  AND status NOT IN ('completed','failed','cancelled')`

const selectJobColumns = `job_id, pipeline_id, pipeline_version, status, priority, progress, variables,
	triggered_by, schedule_id, retry_of, started_at, completed_at, metrics,
	error_message, error_details, output_graph, steps, created_by, created_at`

type JobStore struct {
	db DB
}

func NewJobStore(db DB) *JobStore {
	if db == nil {
		return nil
	}
	return &JobStore{db: db}
}

func (s *JobStore) Create(ctx context.Context, j domain.Job) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("job store not initialized")
	}
	if err := j.Validate(); err != nil {
		return err
	}
	varsJSON, err := encodeVariables(j.Variables)
	if err != nil {
		return fmt.Errorf("encode variables: %w", err)
	}
	metricsJSON, err := encodeJSON(j.Metrics)
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}
	detailsJSON, err := encodeJSON(j.ErrorDetails)
	if err != nil {
		return fmt.Errorf("encode error details: %w", err)
	}
	stepsJSON, err := encodeJSON(jobStepsToRecords(j.Steps))
	if err != nil {
		return fmt.Errorf("encode steps: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		insertJobQuery,
		strings.TrimSpace(j.ID),
		strings.TrimSpace(j.PipelineID),
		j.PipelineVersion,
		string(j.Status),
		j.Priority,
		j.Progress,
		varsJSON,
		string(j.TriggeredBy),
		nullIfEmpty(j.ScheduleID),
		nullIfEmpty(j.RetryOf),
		nullTime(j.StartedAt),
		nullTime(j.CompletedAt),
		metricsJSON,
		nullIfEmpty(j.ErrorMessage),
		detailsJSON,
		nullIfEmpty(j.OutputGraph),
		stepsJSON,
		nullIfEmpty(j.CreatedBy),
		normalizeTime(j.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *JobStore) Get(ctx context.Context, id string) (domain.Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+selectJobColumns+` FROM jobs WHERE job_id = $1`,
		strings.TrimSpace(id),
	)
	j, err := scanJob(row)
	if err != nil {
		return domain.Job{}, handleNotFound(err)
	}
	return j, nil
}

func (s *JobStore) List(ctx context.Context, filter repo.JobFilter) ([]domain.Job, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+selectJobColumns+`
		   FROM jobs
		  WHERE ($1 = '' OR status = $1)
		    AND ($2 = '' OR pipeline_id = $2)
		  ORDER BY created_at DESC, job_id
		  LIMIT $3 OFFSET $4`,
		string(filter.Status),
		strings.TrimSpace(filter.PipelineID),
		limit,
		max(filter.Offset, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *JobStore) Update(ctx context.Context, j domain.Job) error {
	if err := j.Validate(); err != nil {
		return err
	}
	metricsJSON, err := encodeJSON(j.Metrics)
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}
	detailsJSON, err := encodeJSON(j.ErrorDetails)
	if err != nil {
		return fmt.Errorf("encode error details: %w", err)
	}
	stepsJSON, err := encodeJSON(jobStepsToRecords(j.Steps))
	if err != nil {
		return fmt.Errorf("encode steps: %w", err)
	}

	res, err := s.db.ExecContext(
		ctx,
		updateJobQuery,
		strings.TrimSpace(j.ID),
		string(j.Status),
		j.Progress,
		nullTime(j.StartedAt),
		nullTime(j.CompletedAt),
		metricsJSON,
		nullIfEmpty(j.ErrorMessage),
		detailsJSON,
		nullIfEmpty(j.OutputGraph),
		stepsJSON,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// distinguish missing from terminal
		var status string
		err := s.db.QueryRowContext(ctx, `SELECT status FROM jobs WHERE job_id = $1`, strings.TrimSpace(j.ID)).Scan(&status)
		if err != nil {
			return handleNotFound(err)
		}
		return repo.ErrTerminal
	}
	return nil
}

func (s *JobStore) AppendLog(ctx context.Context, jobID string, entry domain.JobLog) error {
	detailsJSON, err := encodeVariables(entry.Details)
	if err != nil {
		return fmt.Errorf("encode log details: %w", err)
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO job_logs (job_id, ts, level, step, message, details)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		strings.TrimSpace(jobID),
		entry.Timestamp.UTC(),
		string(entry.Level),
		nullIfEmpty(entry.Step),
		entry.Message,
		detailsJSON,
	)
	if err != nil {
		return fmt.Errorf("append job log: %w", err)
	}
	return nil
}

func (s *JobStore) ListLogs(ctx context.Context, jobID string, filter repo.LogFilter) ([]domain.JobLog, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT ts, level, step, message, details
		   FROM job_logs
		  WHERE job_id = $1
		    AND ($2 = '' OR level = $2)
		  ORDER BY ts, log_id
		  LIMIT $3 OFFSET $4`,
		strings.TrimSpace(jobID),
		string(filter.Level),
		limit,
		max(filter.Offset, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("list job logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.JobLog
	for rows.Next() {
		var (
			entry      domain.JobLog
			level      string
			step       sql.NullString
			detailsRaw []byte
		)
		if err := rows.Scan(&entry.Timestamp, &level, &step, &entry.Message, &detailsRaw); err != nil {
			return nil, err
		}
		entry.Level = domain.LogLevel(level)
		entry.Step = step.String
		details, err := decodeVariables(detailsRaw)
		if err != nil {
			return nil, fmt.Errorf("decode log details: %w", err)
		}
		entry.Details = details
		out = append(out, entry)
	}
	return out, rows.Err()
}

type jobStepRecord struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Status     string            `json:"status"`
	DurationMs int64             `json:"durationMs"`
	Metrics    domain.JobMetrics `json:"metrics"`
	Error      string            `json:"error,omitempty"`
}

func jobStepsToRecords(steps []domain.JobStep) []jobStepRecord {
	out := make([]jobStepRecord, 0, len(steps))
	for _, st := range steps {
		out = append(out, jobStepRecord{
			ID:         st.ID,
			Name:       st.Name,
			Status:     string(st.Status),
			DurationMs: st.Duration.Milliseconds(),
			Metrics:    st.Metrics,
			Error:      st.Error,
		})
	}
	return out
}

func recordsToJobSteps(records []jobStepRecord) []domain.JobStep {
	out := make([]domain.JobStep, 0, len(records))
	for _, r := range records {
		out = append(out, domain.JobStep{
			ID:       r.ID,
			Name:     r.Name,
			Status:   domain.StepStatus(r.Status),
			Duration: time.Duration(r.DurationMs) * time.Millisecond,
			Metrics:  r.Metrics,
			Error:    r.Error,
		})
	}
	return out
}

func scanJob(row rowScanner) (domain.Job, error) {
	var (
		j          domain.Job
		status     string
		varsRaw    []byte
		trigger    string
		scheduleID sql.NullString
		retryOf    sql.NullString
		startedAt  sql.NullTime
		completed  sql.NullTime
		metricsRaw []byte
		errMsg     sql.NullString
		detailsRaw []byte
		outGraph   sql.NullString
		stepsRaw   []byte
		createdBy  sql.NullString
	)
	if err := row.Scan(
		&j.ID, &j.PipelineID, &j.PipelineVersion, &status, &j.Priority, &j.Progress, &varsRaw,
		&trigger, &scheduleID, &retryOf, &startedAt, &completed, &metricsRaw,
		&errMsg, &detailsRaw, &outGraph, &stepsRaw, &createdBy, &j.CreatedAt,
	); err != nil {
		return domain.Job{}, err
	}
	j.Status = domain.JobStatus(status)
	j.TriggeredBy = domain.TriggerKind(trigger)
	j.ScheduleID = scheduleID.String
	j.RetryOf = retryOf.String
	j.StartedAt = timePtr(startedAt)
	j.CompletedAt = timePtr(completed)
	j.ErrorMessage = errMsg.String
	j.OutputGraph = outGraph.String
	j.CreatedBy = createdBy.String

	vars, err := decodeVariables(varsRaw)
	if err != nil {
		return domain.Job{}, fmt.Errorf("decode variables: %w", err)
	}
	j.Variables = vars
	if err := decodeJSON(metricsRaw, &j.Metrics); err != nil {
		return domain.Job{}, fmt.Errorf("decode metrics: %w", err)
	}
	if len(detailsRaw) > 0 && string(detailsRaw) != "null" {
		j.ErrorDetails = &domain.ErrorDetails{}
		if err := decodeJSON(detailsRaw, j.ErrorDetails); err != nil {
			return domain.Job{}, fmt.Errorf("decode error details: %w", err)
		}
	}
	var records []jobStepRecord
	if err := decodeJSON(stepsRaw, &records); err != nil {
		return domain.Job{}, fmt.Errorf("decode steps: %w", err)
	}
	j.Steps = recordsToJobSteps(records)
	return j, nil
}
