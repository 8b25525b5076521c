// Package repo defines the persistence interfaces for the engine's durable
// entities and the sentinel errors stores translate into.
package repo

import (
	"context"
	"errors"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
)

var (
	// ErrNotFound is returned when an entity does not exist.
	ErrNotFound = errors.New("entity not found")
	// ErrConflict is returned on an optimistic concurrency failure.
	ErrConflict = errors.New("version conflict")
	// ErrTerminal is returned when mutating a job that reached a terminal
	// status. Log appends are exempt.
	ErrTerminal = errors.New("job is terminal")
)

type PipelineFilter struct {
	Search string
	Tag    string
	Limit  int
	Offset int
}

type JobFilter struct {
	Status     domain.JobStatus
	PipelineID string
	Limit      int
	Offset     int
}

type LogFilter struct {
	Level  domain.LogLevel
	Limit  int
	Offset int
}

type ScheduleFilter struct {
	PipelineID string
	ActiveOnly bool
}

type ShapeFilter struct {
	Search     string
	Category   string
	IsTemplate *bool
	Limit      int
	Offset     int
}

type DataSourceFilter struct {
	Format domain.SourceFormat
	Search string
	Limit  int
	Offset int
}

// PipelineRepository manages versioned pipeline definitions. CreateVersion
// assigns the next version atomically; concurrent edits of the same
// pipeline never produce duplicate versions.
type PipelineRepository interface {
	CreateVersion(ctx context.Context, p domain.Pipeline) (domain.Pipeline, error)
	Get(ctx context.Context, id string) (domain.Pipeline, error)
	GetVersion(ctx context.Context, id string, version int64) (domain.Pipeline, error)
	List(ctx context.Context, filter PipelineFilter) ([]domain.Pipeline, error)
	ListVersions(ctx context.Context, id string) ([]int64, error)
	Delete(ctx context.Context, id string) error
}

// JobRepository manages jobs, their steps and their append-only logs.
// Update rejects mutation of terminal jobs with ErrTerminal.
type JobRepository interface {
	Create(ctx context.Context, j domain.Job) error
	Get(ctx context.Context, id string) (domain.Job, error)
	List(ctx context.Context, filter JobFilter) ([]domain.Job, error)
	Update(ctx context.Context, j domain.Job) error
	AppendLog(ctx context.Context, jobID string, entry domain.JobLog) error
	ListLogs(ctx context.Context, jobID string, filter LogFilter) ([]domain.JobLog, error)
}

// ScheduleRepository manages cron-driven job schedules.
type ScheduleRepository interface {
	Create(ctx context.Context, s domain.JobSchedule) error
	Get(ctx context.Context, id string) (domain.JobSchedule, error)
	List(ctx context.Context, filter ScheduleFilter) ([]domain.JobSchedule, error)
	Update(ctx context.Context, s domain.JobSchedule) error
	Delete(ctx context.Context, id string) error
}

// ShapeRepository manages versioned SHACL shapes. CreateVersion follows the
// same atomic version assignment as pipelines.
type ShapeRepository interface {
	CreateVersion(ctx context.Context, s domain.Shape) (domain.Shape, error)
	Get(ctx context.Context, id string) (domain.Shape, error)
	GetVersion(ctx context.Context, id string, version int64) (domain.Shape, error)
	List(ctx context.Context, filter ShapeFilter) ([]domain.Shape, error)
	ListVersions(ctx context.Context, id string) ([]int64, error)
	Delete(ctx context.Context, id string) error
}

// DataSourceRepository catalogs uploaded sources. Update exists for
// metadata refinement from re-analysis only.
type DataSourceRepository interface {
	Create(ctx context.Context, d domain.DataSource) error
	Get(ctx context.Context, id string) (domain.DataSource, error)
	List(ctx context.Context, filter DataSourceFilter) ([]domain.DataSource, error)
	Update(ctx context.Context, d domain.DataSource) error
	Delete(ctx context.Context, id string) error
}

// ConnectionRepository manages configured triplestore endpoints.
type ConnectionRepository interface {
	Create(ctx context.Context, c domain.TriplestoreConnection) error
	Get(ctx context.Context, id string) (domain.TriplestoreConnection, error)
	List(ctx context.Context) ([]domain.TriplestoreConnection, error)
	Delete(ctx context.Context, id string) error
}
