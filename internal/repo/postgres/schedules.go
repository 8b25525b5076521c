package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/repo"
)

const insertScheduleQuery = `INSERT INTO job_schedules (
		schedule_id,
		pipeline_id,
		cron_expression,
		variables,
		is_active,
		last_run,
		next_run,
		created_by,
		created_at,
		updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

const selectScheduleColumns = `schedule_id, pipeline_id, cron_expression, variables, is_active,
	last_run, next_run, created_by, created_at, updated_at`

type ScheduleStore struct {
	db DB
}

func NewScheduleStore(db DB) *ScheduleStore {
	if db == nil {
		return nil
	}
	return &ScheduleStore{db: db}
}

func (s *ScheduleStore) Create(ctx context.Context, sched domain.JobSchedule) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("schedule store not initialized")
	}
	if err := sched.Validate(); err != nil {
		return err
	}
	varsJSON, err := encodeVariables(sched.Variables)
	if err != nil {
		return fmt.Errorf("encode variables: %w", err)
	}
	_, err = s.db.ExecContext(
		ctx,
		insertScheduleQuery,
		strings.TrimSpace(sched.ID),
		strings.TrimSpace(sched.PipelineID),
		sched.CronExpression,
		varsJSON,
		sched.IsActive,
		nullTime(sched.LastRun),
		nullTime(sched.NextRun),
		nullIfEmpty(sched.CreatedBy),
		normalizeTime(sched.CreatedAt),
		normalizeTime(sched.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

func (s *ScheduleStore) Get(ctx context.Context, id string) (domain.JobSchedule, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+selectScheduleColumns+` FROM job_schedules WHERE schedule_id = $1`,
		strings.TrimSpace(id),
	)
	sched, err := scanSchedule(row)
	if err != nil {
		return domain.JobSchedule{}, handleNotFound(err)
	}
	return sched, nil
}

func (s *ScheduleStore) List(ctx context.Context, filter repo.ScheduleFilter) ([]domain.JobSchedule, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+selectScheduleColumns+`
		   FROM job_schedules
		  WHERE ($1 = '' OR pipeline_id = $1)
		    AND (NOT $2 OR is_active)
		  ORDER BY created_at, schedule_id`,
		strings.TrimSpace(filter.PipelineID),
		filter.ActiveOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.JobSchedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sched)
	}
	return out, rows.Err()
}

func (s *ScheduleStore) Update(ctx context.Context, sched domain.JobSchedule) error {
	if err := sched.Validate(); err != nil {
		return err
	}
	varsJSON, err := encodeVariables(sched.Variables)
	if err != nil {
		return fmt.Errorf("encode variables: %w", err)
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE job_schedules SET
			cron_expression = $2,
			variables = $3,
			is_active = $4,
			last_run = $5,
			next_run = $6,
			updated_at = $7
		 WHERE schedule_id = $1`,
		strings.TrimSpace(sched.ID),
		sched.CronExpression,
		varsJSON,
		sched.IsActive,
		nullTime(sched.LastRun),
		nullTime(sched.NextRun),
		normalizeTime(sched.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *ScheduleStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM job_schedules WHERE schedule_id = $1`, strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func scanSchedule(row rowScanner) (domain.JobSchedule, error) {
	var (
		sched     domain.JobSchedule
		varsRaw   []byte
		lastRun   sql.NullTime
		nextRun   sql.NullTime
		createdBy sql.NullString
	)
	if err := row.Scan(
		&sched.ID, &sched.PipelineID, &sched.CronExpression, &varsRaw, &sched.IsActive,
		&lastRun, &nextRun, &createdBy, &sched.CreatedAt, &sched.UpdatedAt,
	); err != nil {
		return domain.JobSchedule{}, err
	}
	vars, err := decodeVariables(varsRaw)
	if err != nil {
		return domain.JobSchedule{}, fmt.Errorf("decode variables: %w", err)
	}
	sched.Variables = vars
	sched.LastRun = timePtr(lastRun)
	sched.NextRun = timePtr(nextRun)
	sched.CreatedBy = createdBy.String
	return sched, nil
}
