// Package schedules manages cron-driven job schedules.
package schedules

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/repo"
	"github.com/quadflow-labs/quadflow-go/internal/scheduler"
)

type Service struct {
	schedules repo.ScheduleRepository
	pipelines repo.PipelineRepository
	now       func() time.Time
}

func New(scheduleRepo repo.ScheduleRepository, pipelineRepo repo.PipelineRepository) *Service {
	if scheduleRepo == nil || pipelineRepo == nil {
		return nil
	}
	return &Service{schedules: scheduleRepo, pipelines: pipelineRepo, now: time.Now}
}

func (s *Service) List(ctx context.Context, filter repo.ScheduleFilter) ([]domain.JobSchedule, error) {
	return s.schedules.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id string) (domain.JobSchedule, error) {
	return s.schedules.Get(ctx, id)
}

// Create validates the cron expression and the target pipeline, computes
// the first firing time, and persists the schedule active.
func (s *Service) Create(ctx context.Context, pipelineID, cronExpr string, variables domain.Variables, createdBy string) (domain.JobSchedule, error) {
	if _, err := s.pipelines.Get(ctx, pipelineID); err != nil {
		return domain.JobSchedule{}, err
	}
	now := s.now().UTC()
	next, err := scheduler.NextRun(cronExpr, now)
	if err != nil {
		return domain.JobSchedule{}, err
	}
	sched := domain.JobSchedule{
		ID:             uuid.NewString(),
		PipelineID:     pipelineID,
		CronExpression: cronExpr,
		Variables:      variables,
		IsActive:       true,
		NextRun:        &next,
		CreatedBy:      createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := sched.Validate(); err != nil {
		return domain.JobSchedule{}, domain.WrapErr(domain.ErrKindValidation, err, "schedule")
	}
	if err := s.schedules.Create(ctx, sched); err != nil {
		return domain.JobSchedule{}, err
	}
	return sched, nil
}

// UpdateRequest carries the mutable schedule fields. Nil pointers leave a
// field unchanged.
type UpdateRequest struct {
	CronExpression *string
	Variables      domain.Variables
	IsActive       *bool
}

func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (domain.JobSchedule, error) {
	sched, err := s.schedules.Get(ctx, id)
	if err != nil {
		return domain.JobSchedule{}, err
	}
	now := s.now().UTC()
	if req.CronExpression != nil && *req.CronExpression != sched.CronExpression {
		next, err := scheduler.NextRun(*req.CronExpression, now)
		if err != nil {
			return domain.JobSchedule{}, err
		}
		sched.CronExpression = *req.CronExpression
		sched.NextRun = &next
	}
	if req.Variables != nil {
		sched.Variables = req.Variables
	}
	if req.IsActive != nil {
		sched.IsActive = *req.IsActive
	}
	sched.UpdatedAt = now
	if err := s.schedules.Update(ctx, sched); err != nil {
		return domain.JobSchedule{}, err
	}
	return sched, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.schedules.Delete(ctx, id)
}
