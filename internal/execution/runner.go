package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/repo"
)

// Runner executes a job's pipeline steps strictly in declared order,
// threading the working state between them and recording per-step outcome
// on the job record.
type Runner struct {
	executor *StepExecutor
	jobs     repo.JobRepository
	log      *slog.Logger

	// DefaultStepTimeout applies when a step declares no timeout.
	defaultStepTimeout time.Duration
	now                func() time.Time
}

func NewRunner(executor *StepExecutor, jobs repo.JobRepository, log *slog.Logger, defaultStepTimeout time.Duration) *Runner {
	if defaultStepTimeout <= 0 {
		defaultStepTimeout = 10 * time.Minute
	}
	return &Runner{
		executor:           executor,
		jobs:               jobs,
		log:                log,
		defaultStepTimeout: defaultStepTimeout,
		now:                time.Now,
	}
}

// Execute runs all steps of the resolved pipeline version and returns the
// job in its terminal state. Cancellation is cooperative: the cancelled
// probe is consulted at step boundaries only, so a long step finishes (or
// times out) before cancellation takes effect. The returned job is not yet
// persisted; committing the terminal state is the caller's responsibility.
func (r *Runner) Execute(ctx context.Context, job domain.Job, pipeline domain.Pipeline, cancelled func() bool) domain.Job {
	if cancelled == nil {
		cancelled = func() bool { return false }
	}

	startedAt := r.now().UTC()
	job.Status = domain.JobRunning
	job.StartedAt = &startedAt
	job.Steps = make([]domain.JobStep, len(pipeline.Steps))
	for i, step := range pipeline.Steps {
		job.Steps[i] = domain.JobStep{ID: step.ID, Name: stepDisplayName(step), Status: domain.StepPending}
	}

	st := &State{}
	total := len(pipeline.Steps)
	failed := false

	for i, step := range pipeline.Steps {
		if cancelled() || ctx.Err() != nil {
			r.skipFrom(job.Steps, i)
			return r.finish(job, domain.JobCancelled, "cancelled", nil)
		}
		if failed {
			job.Steps[i].Status = domain.StepSkipped
			continue
		}

		step.Params = interpolateParams(step.Params, job.Variables)

		job.Steps[i].Status = domain.StepRunning
		r.appendLog(ctx, job.ID, domain.JobLog{
			Level:   domain.LogInfo,
			Step:    step.ID,
			Message: fmt.Sprintf("step %d/%d (%s) started", i+1, total, step.OperationName),
		})

		result, err := r.runStep(ctx, job.ID, step, st)
		job.Steps[i].Duration = result.duration
		job.Steps[i].Metrics = result.Metrics
		job.Metrics.Add(result.Metrics)

		if err != nil {
			if ctx.Err() != nil {
				job.Steps[i].Status = domain.StepFailed
				job.Steps[i].Error = err.Error()
				r.skipFrom(job.Steps, i+1)
				return r.finish(job, domain.JobCancelled, "cancelled", nil)
			}
			failed = true
			job.Steps[i].Status = domain.StepFailed
			job.Steps[i].Error = err.Error()
			job.ErrorMessage = fmt.Sprintf("step %q failed: %s", step.ID, err.Error())
			job.ErrorDetails = &domain.ErrorDetails{
				Kind:       domain.KindOf(err),
				StackTrace: result.stack,
				Context: domain.Variables{
					"stepId":    domain.String(step.ID),
					"operation": domain.String(step.OperationName),
				},
			}
			r.appendLog(ctx, job.ID, domain.JobLog{
				Level:   domain.LogError,
				Step:    step.ID,
				Message: err.Error(),
			})
			continue
		}

		job.Steps[i].Status = domain.StepCompleted
		if result.OutputGraph != "" {
			job.OutputGraph = result.OutputGraph
		}
		job.Progress = (i + 1) * 100 / total
		r.persistProgress(ctx, job)
	}

	if failed {
		return r.finish(job, domain.JobFailed, job.ErrorMessage, job.ErrorDetails)
	}
	job.Progress = 100
	return r.finish(job, domain.JobCompleted, "", nil)
}

type stepOutcome struct {
	Result
	duration time.Duration
	stack    string
}

// runStep bounds one step with its timeout and converts deadline expiry and
// panics into classified errors.
func (r *Runner) runStep(ctx context.Context, jobID string, step domain.Step, st *State) (outcome stepOutcome, err error) {
	timeout := r.defaultStepTimeout
	if step.TimeoutSeconds > 0 {
		timeout = time.Duration(step.TimeoutSeconds) * time.Second
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := r.now()
	defer func() {
		outcome.duration = r.now().Sub(start)
		if rec := recover(); rec != nil {
			outcome.stack = string(debug.Stack())
			err = domain.Errf(domain.ErrKindInfrastructure, "step panicked: %v", rec)
		}
	}()

	logf := func(level domain.LogLevel, message string, details domain.Variables) {
		r.appendLog(ctx, jobID, domain.JobLog{Level: level, Step: step.ID, Message: message, Details: details})
	}

	result, err := r.executor.Run(stepCtx, step, st, logf)
	if err != nil {
		if errors.Is(stepCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return stepOutcome{Result: result}, domain.Errf(domain.ErrKindTimeout,
				"step %q exceeded its %s budget", step.ID, timeout)
		}
		return stepOutcome{Result: result}, err
	}
	return stepOutcome{Result: result}, nil
}

func (r *Runner) finish(job domain.Job, status domain.JobStatus, message string, details *domain.ErrorDetails) domain.Job {
	completedAt := r.now().UTC()
	job.Status = status
	job.CompletedAt = &completedAt
	job.ErrorMessage = message
	job.ErrorDetails = details
	return job
}

func (r *Runner) skipFrom(steps []domain.JobStep, from int) {
	for i := from; i < len(steps); i++ {
		steps[i].Status = domain.StepSkipped
	}
}

// persistProgress is best-effort; a storage hiccup must not fail the job
// mid-run.
func (r *Runner) persistProgress(ctx context.Context, job domain.Job) {
	if err := r.jobs.Update(ctx, job); err != nil && !errors.Is(err, repo.ErrTerminal) {
		r.log.Warn("persist job progress", "jobId", job.ID, "error", err)
	}
}

func (r *Runner) appendLog(ctx context.Context, jobID string, entry domain.JobLog) {
	entry.Timestamp = r.now().UTC()
	if err := r.jobs.AppendLog(ctx, jobID, entry); err != nil {
		r.log.Warn("append job log", "jobId", jobID, "error", err)
	}
}

func stepDisplayName(step domain.Step) string {
	if step.Name != "" {
		return step.Name
	}
	return step.OperationName
}

// interpolateParams substitutes ${name} job-variable references inside
// string-valued params. Variables resolve once, at this point; nested
// list/map params are traversed.
func interpolateParams(params domain.Variables, vars domain.Variables) domain.Variables {
	if len(params) == 0 {
		return params
	}
	out := make(domain.Variables, len(params))
	for name, v := range params {
		out[name] = interpolateValue(v, vars)
	}
	return out
}

func interpolateValue(v domain.Value, vars domain.Variables) domain.Value {
	switch v.Kind() {
	case domain.KindString:
		return domain.String(expandTemplate(v.Str(), func(name string) (domain.Value, bool) {
			got, ok := vars[name]
			return got, ok
		}))
	case domain.KindList:
		items := v.Items()
		mapped := make([]domain.Value, len(items))
		for i, item := range items {
			mapped[i] = interpolateValue(item, vars)
		}
		return domain.List(mapped...)
	case domain.KindMap:
		m := make(map[string]domain.Value)
		for _, key := range v.Keys() {
			entry, _ := v.Entry(key)
			m[key] = interpolateValue(entry, vars)
		}
		return domain.Map(m)
	default:
		return v
	}
}
