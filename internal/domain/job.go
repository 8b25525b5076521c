package domain

import (
	"errors"
	"strings"
	"time"
)

// JobStatus is the job lifecycle state.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether the status admits no further transitions.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	}
	return false
}

// CanTransition reports whether the lifecycle state machine permits
// moving from s to next.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case JobPending:
		return next == JobRunning || next == JobCancelled
	case JobRunning:
		return next == JobCompleted || next == JobFailed || next == JobCancelled
	default:
		return false
	}
}

// TriggerKind records what caused a job to be created.
type TriggerKind string

const (
	TriggerManual   TriggerKind = "manual"
	TriggerSchedule TriggerKind = "schedule"
	TriggerAPI      TriggerKind = "api"
)

// StepStatus is the per-step execution state.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// JobMetrics aggregates counters reported by step executions.
type JobMetrics struct {
	RowsProcessed  int64 `json:"rowsProcessed"`
	QuadsGenerated int64 `json:"quadsGenerated"`
	RowErrors      int64 `json:"rowErrors"`
}

// Add accumulates another metrics snapshot into the receiver.
func (m *JobMetrics) Add(o JobMetrics) {
	m.RowsProcessed += o.RowsProcessed
	m.QuadsGenerated += o.QuadsGenerated
	m.RowErrors += o.RowErrors
}

// JobStep is the execution record of one pipeline step inside one job.
// A job has exactly one active runner, so steps are never concurrently
// mutated.
type JobStep struct {
	ID       string
	Name     string
	Status   StepStatus
	Duration time.Duration
	Metrics  JobMetrics
	Error    string
}

// ErrorDetails carries diagnostics for a failed job.
type ErrorDetails struct {
	Kind       ErrorKind `json:"kind,omitempty"`
	StackTrace string    `json:"stackTrace,omitempty"`
	Context    Variables `json:"context,omitempty"`
}

// Job is one execution instance of a pipeline version. It is owned
// exclusively by the scheduler while active and becomes immutable once
// terminal, except for log appends already in flight.
type Job struct {
	ID              string
	PipelineID      string
	PipelineVersion int64
	Status          JobStatus
	Priority        int
	Progress        int
	Variables       Variables
	TriggeredBy     TriggerKind
	ScheduleID      string
	RetryOf         string
	StartedAt       *time.Time
	CompletedAt     *time.Time
	Metrics         JobMetrics
	ErrorMessage    string
	ErrorDetails    *ErrorDetails
	OutputGraph     string
	Steps           []JobStep
	CreatedBy       string
	CreatedAt       time.Time
}

func (j Job) Validate() error {
	if strings.TrimSpace(j.ID) == "" {
		return errors.New("job id is required")
	}
	if strings.TrimSpace(j.PipelineID) == "" {
		return errors.New("job pipeline id is required")
	}
	if j.PipelineVersion < 1 {
		return errors.New("job pipeline version must be >= 1")
	}
	switch j.Status {
	case JobPending, JobRunning, JobCompleted, JobFailed, JobCancelled:
	default:
		return errors.New("job status is invalid")
	}
	if j.Progress < 0 || j.Progress > 100 {
		return errors.New("job progress must be within [0,100]")
	}
	switch j.TriggeredBy {
	case TriggerManual, TriggerSchedule, TriggerAPI:
	default:
		return errors.New("job trigger kind is invalid")
	}
	return nil
}

// LogLevel is a job log entry severity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// JobLog is an append-only timestamped log entry for a job.
type JobLog struct {
	Timestamp time.Time
	Level     LogLevel
	Step      string
	Message   string
	Details   Variables
}
