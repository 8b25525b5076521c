// Package jobs exposes read and lifecycle operations over job records.
// Job creation goes through the pipelines service; cancellation and retry
// delegate to the scheduler, which owns active jobs.
package jobs

import (
	"context"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/repo"
	"github.com/quadflow-labs/quadflow-go/internal/scheduler"
)

type Service struct {
	jobs      repo.JobRepository
	pipelines repo.PipelineRepository
	sched     *scheduler.Scheduler
}

func New(jobRepo repo.JobRepository, pipelineRepo repo.PipelineRepository, sched *scheduler.Scheduler) *Service {
	if jobRepo == nil || pipelineRepo == nil || sched == nil {
		return nil
	}
	return &Service{jobs: jobRepo, pipelines: pipelineRepo, sched: sched}
}

// Create admits a new job for the latest version of the pipeline.
func (s *Service) Create(ctx context.Context, pipelineID string, variables domain.Variables, priority int, createdBy string) (domain.Job, error) {
	p, err := s.pipelines.Get(ctx, pipelineID)
	if err != nil {
		return domain.Job{}, err
	}
	return s.sched.Trigger(ctx, p, scheduler.TriggerRequest{
		Variables:   variables,
		Priority:    priority,
		TriggeredBy: domain.TriggerAPI,
		CreatedBy:   createdBy,
	})
}

func (s *Service) List(ctx context.Context, filter repo.JobFilter) ([]domain.Job, error) {
	return s.jobs.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id string) (domain.Job, error) {
	return s.jobs.Get(ctx, id)
}

func (s *Service) Cancel(ctx context.Context, id string) (domain.Job, error) {
	return s.sched.Cancel(ctx, id)
}

func (s *Service) Retry(ctx context.Context, id string) (domain.Job, error) {
	return s.sched.Retry(ctx, id)
}

func (s *Service) Logs(ctx context.Context, id string, filter repo.LogFilter) ([]domain.JobLog, error) {
	if _, err := s.jobs.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.jobs.ListLogs(ctx, id, filter)
}

// Metrics returns the aggregate counters of one job.
func (s *Service) Metrics(ctx context.Context, id string) (domain.JobMetrics, error) {
	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		return domain.JobMetrics{}, err
	}
	return job.Metrics, nil
}
