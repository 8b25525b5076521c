package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/execution"
	"github.com/quadflow-labs/quadflow-go/internal/repo"
)

// Config sizes the scheduler.
type Config struct {
	Workers       int
	QueueCapacity int
	// CronTick is the resolution of the schedule poll loop.
	CronTick time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 256
	}
	if c.CronTick <= 0 {
		c.CronTick = time.Minute
	}
	return c
}

// Scheduler owns all active jobs: it admits them to the queue, claims them
// for workers, applies the lifecycle state machine, and fires cron
// schedules.
type Scheduler struct {
	cfg       Config
	jobs      repo.JobRepository
	pipelines repo.PipelineRepository
	schedules repo.ScheduleRepository
	runner    *execution.Runner
	queue     *jobQueue
	log       *slog.Logger

	mu        sync.Mutex
	cancelled map[string]struct{}

	notify chan struct{}
	wg     sync.WaitGroup
	now    func() time.Time
}

func New(
	cfg Config,
	jobs repo.JobRepository,
	pipelines repo.PipelineRepository,
	schedules repo.ScheduleRepository,
	runner *execution.Runner,
	log *slog.Logger,
) *Scheduler {
	cfg = cfg.withDefaults()
	return &Scheduler{
		cfg:       cfg,
		jobs:      jobs,
		pipelines: pipelines,
		schedules: schedules,
		runner:    runner,
		queue:     newJobQueue(cfg.QueueCapacity),
		log:       log,
		cancelled: make(map[string]struct{}),
		notify:    make(chan struct{}, 1),
		now:       time.Now,
	}
}

// Start launches the worker pool and the cron loop. Workers drain their
// current job before Start's goroutines exit; call Wait after cancelling
// the context to block until the drain finishes.
func (s *Scheduler) Start(ctx context.Context) {
	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}
	s.wg.Add(1)
	go s.cronLoop(ctx)
	s.log.Info("scheduler started", "workers", s.cfg.Workers, "queueCapacity", s.cfg.QueueCapacity)
}

// Wait blocks until all workers and the cron loop have stopped.
func (s *Scheduler) Wait() { s.wg.Wait() }

// QueueDepth reports how many admitted jobs await a worker.
func (s *Scheduler) QueueDepth() int { return s.queue.Len() }

// Trigger creates and admits a new job for a pipeline version. Static
// validation failures reject the job before any state is persisted.
func (s *Scheduler) Trigger(ctx context.Context, pipeline domain.Pipeline, req TriggerRequest) (domain.Job, error) {
	if err := pipeline.ValidateExecutable(); err != nil {
		return domain.Job{}, domain.WrapErr(domain.ErrKindValidation, err, "pipeline is not executable")
	}
	job := domain.Job{
		ID:              uuid.NewString(),
		PipelineID:      pipeline.ID,
		PipelineVersion: pipeline.Version,
		Status:          domain.JobPending,
		Priority:        req.Priority,
		Variables:       pipeline.Variables.Merge(req.Variables),
		TriggeredBy:     req.TriggeredBy,
		ScheduleID:      req.ScheduleID,
		RetryOf:         req.RetryOf,
		CreatedBy:       req.CreatedBy,
		CreatedAt:       s.now().UTC(),
	}
	if job.TriggeredBy == "" {
		job.TriggeredBy = domain.TriggerManual
	}
	if err := job.Validate(); err != nil {
		return domain.Job{}, domain.WrapErr(domain.ErrKindValidation, err, "job rejected")
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return domain.Job{}, domain.WrapErr(domain.ErrKindInfrastructure, err, "persist job")
	}
	if err := s.queue.Push(job.ID, job.Priority); err != nil {
		return domain.Job{}, err
	}
	s.wake()
	return job, nil
}

// TriggerRequest carries the caller-provided parts of a new job.
type TriggerRequest struct {
	Variables   domain.Variables
	Priority    int
	TriggeredBy domain.TriggerKind
	ScheduleID  string
	RetryOf     string
	CreatedBy   string
}

// Cancel requests cancellation. A pending job transitions immediately; a
// running job is flagged and stops at its next step boundary. Terminal
// jobs yield a conflict error.
func (s *Scheduler) Cancel(ctx context.Context, jobID string) (domain.Job, error) {
	s.mu.Lock()
	s.cancelled[jobID] = struct{}{}
	s.mu.Unlock()

	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		s.clearCancel(jobID)
		return domain.Job{}, err
	}
	switch {
	case job.Status.IsTerminal():
		s.clearCancel(jobID)
		return domain.Job{}, domain.Errf(domain.ErrKindConflict, "job %s is already %s", jobID, job.Status)
	case job.Status == domain.JobPending:
		now := s.now().UTC()
		job.Status = domain.JobCancelled
		job.CompletedAt = &now
		if err := s.jobs.Update(ctx, job); err != nil {
			if errors.Is(err, repo.ErrTerminal) {
				// a worker claimed it between the read and the update;
				// the flag makes it stop at the next boundary
				return s.jobs.Get(ctx, jobID)
			}
			return domain.Job{}, err
		}
		return job, nil
	default:
		return job, nil
	}
}

// Retry creates a fresh job for the same pipeline version with the same
// resolved variables. The original record stays untouched.
func (s *Scheduler) Retry(ctx context.Context, jobID string) (domain.Job, error) {
	prev, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return domain.Job{}, err
	}
	if !prev.Status.IsTerminal() {
		return domain.Job{}, domain.Errf(domain.ErrKindConflict, "job %s is still %s", jobID, prev.Status)
	}
	pipeline, err := s.pipelines.GetVersion(ctx, prev.PipelineID, prev.PipelineVersion)
	if err != nil {
		return domain.Job{}, err
	}
	return s.Trigger(ctx, pipeline, TriggerRequest{
		Variables:   prev.Variables,
		Priority:    prev.Priority,
		TriggeredBy: domain.TriggerAPI,
		RetryOf:     prev.ID,
		CreatedBy:   prev.CreatedBy,
	})
}

func (s *Scheduler) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Scheduler) isCancelRequested(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cancelled[jobID]
	return ok
}

func (s *Scheduler) clearCancel(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cancelled, jobID)
}

func (s *Scheduler) worker(ctx context.Context, id int) {
	defer s.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		jobID, ok := s.queue.Pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-s.notify:
			case <-ticker.C:
			}
			continue
		}
		s.runJob(ctx, jobID)
		s.clearCancel(jobID)
	}
}

// runJob claims one admitted job and drives it to a terminal state.
func (s *Scheduler) runJob(ctx context.Context, jobID string) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		s.log.Error("load queued job", "jobId", jobID, "error", err)
		return
	}
	if job.Status != domain.JobPending {
		// cancelled (or otherwise finalized) while queued
		return
	}
	if s.isCancelRequested(jobID) {
		s.commitTerminal(ctx, s.finalize(job, domain.JobCancelled))
		return
	}

	pipeline, err := s.pipelines.GetVersion(ctx, job.PipelineID, job.PipelineVersion)
	if err != nil {
		job.ErrorMessage = fmt.Sprintf("load pipeline %s@%d: %v", job.PipelineID, job.PipelineVersion, err)
		job.ErrorDetails = &domain.ErrorDetails{Kind: domain.ErrKindInfrastructure}
		s.commitTerminal(ctx, s.finalize(job, domain.JobFailed))
		return
	}

	// atomic claim: pending -> running
	startedAt := s.now().UTC()
	job.Status = domain.JobRunning
	job.StartedAt = &startedAt
	if err := s.jobs.Update(ctx, job); err != nil {
		if !errors.Is(err, repo.ErrTerminal) {
			s.log.Error("claim job", "jobId", jobID, "error", err)
		}
		return
	}
	s.log.Info("job started", "jobId", jobID, "pipelineId", job.PipelineID, "version", job.PipelineVersion)

	done := s.runner.Execute(ctx, job, pipeline, func() bool { return s.isCancelRequested(jobID) })
	s.commitTerminal(ctx, done)
	s.log.Info("job finished", "jobId", jobID, "status", done.Status)
}

func (s *Scheduler) finalize(job domain.Job, status domain.JobStatus) domain.Job {
	now := s.now().UTC()
	job.Status = status
	job.CompletedAt = &now
	return job
}

// commitTerminal persists the terminal state, retrying transient storage
// failures with exponential backoff before giving up.
func (s *Scheduler) commitTerminal(ctx context.Context, job domain.Job) {
	// shutdown must not abort the commit, so the retry loop ignores ctx
	// cancellation and runs on a detached context
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4)
	err := backoff.Retry(func() error {
		err := s.jobs.Update(context.WithoutCancel(ctx), job)
		if errors.Is(err, repo.ErrTerminal) || errors.Is(err, repo.ErrNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
	if err != nil {
		s.log.Error("commit terminal job state", "jobId", job.ID, "status", job.Status, "error", err)
	}
}

// cronLoop fires due schedules at the configured resolution. Missed ticks
// are not backfilled: nextRun always advances from the current time.
func (s *Scheduler) cronLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.CronTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fireDue(ctx)
		}
	}
}

func (s *Scheduler) fireDue(ctx context.Context) {
	active, err := s.schedules.List(ctx, repo.ScheduleFilter{ActiveOnly: true})
	if err != nil {
		s.log.Error("list schedules", "error", err)
		return
	}
	now := s.now().UTC()
	for _, sched := range active {
		if sched.NextRun == nil || now.Before(*sched.NextRun) {
			continue
		}
		s.fire(ctx, sched, now)
	}
}

func (s *Scheduler) fire(ctx context.Context, sched domain.JobSchedule, now time.Time) {
	pipeline, err := s.pipelines.Get(ctx, sched.PipelineID)
	if err != nil {
		s.log.Error("load scheduled pipeline", "scheduleId", sched.ID, "pipelineId", sched.PipelineID, "error", err)
		return
	}
	job, err := s.Trigger(ctx, pipeline, TriggerRequest{
		Variables:   sched.Variables,
		TriggeredBy: domain.TriggerSchedule,
		ScheduleID:  sched.ID,
		CreatedBy:   sched.CreatedBy,
	})
	if err != nil {
		s.log.Error("trigger scheduled job", "scheduleId", sched.ID, "error", err)
		return
	}
	s.log.Info("schedule fired", "scheduleId", sched.ID, "jobId", job.ID)

	sched.LastRun = &now
	if next, err := NextRun(sched.CronExpression, now); err == nil {
		sched.NextRun = &next
	} else {
		s.log.Error("recompute next run", "scheduleId", sched.ID, "error", err)
	}
	sched.UpdatedAt = now
	if err := s.schedules.Update(ctx, sched); err != nil {
		s.log.Error("update schedule", "scheduleId", sched.ID, "error", err)
	}
}

// NextRun computes the next firing time of a standard 5-field cron
// expression strictly after from.
func NextRun(expr string, from time.Time) (time.Time, error) {
	spec, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, domain.WrapErr(domain.ErrKindValidation, err, "cron expression")
	}
	return spec.Next(from), nil
}
