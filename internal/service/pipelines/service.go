// Package pipelines implements pipeline catalog management: definition
// parsing and validation, versioned persistence, and run triggering.
package pipelines

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/execution/operation"
	"github.com/quadflow-labs/quadflow-go/internal/repo"
	"github.com/quadflow-labs/quadflow-go/internal/scheduler"
)

type Service struct {
	pipelines repo.PipelineRepository
	catalog   *operation.Catalog
	sched     *scheduler.Scheduler
	now       func() time.Time
}

func New(pipelineRepo repo.PipelineRepository, catalog *operation.Catalog, sched *scheduler.Scheduler) *Service {
	if pipelineRepo == nil || catalog == nil || sched == nil {
		return nil
	}
	return &Service{
		pipelines: pipelineRepo,
		catalog:   catalog,
		sched:     sched,
		now:       time.Now,
	}
}

// DefinitionRequest carries a pipeline definition submission.
type DefinitionRequest struct {
	Name             string
	Definition       string
	DefinitionFormat domain.DefinitionFormat
	Variables        domain.Variables
	Tags             []string
	CreatedBy        string
}

func (s *Service) List(ctx context.Context, filter repo.PipelineFilter) ([]domain.Pipeline, error) {
	return s.pipelines.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id string) (domain.Pipeline, error) {
	return s.pipelines.Get(ctx, id)
}

func (s *Service) GetVersion(ctx context.Context, id string, version int64) (domain.Pipeline, error) {
	return s.pipelines.GetVersion(ctx, id, version)
}

func (s *Service) ListVersions(ctx context.Context, id string) ([]int64, error) {
	return s.pipelines.ListVersions(ctx, id)
}

// Create parses and validates the definition, then persists version 1 of a
// new pipeline.
func (s *Service) Create(ctx context.Context, req DefinitionRequest) (domain.Pipeline, error) {
	p, err := s.buildPipeline(uuid.NewString(), req)
	if err != nil {
		return domain.Pipeline{}, err
	}
	return s.pipelines.CreateVersion(ctx, p)
}

// Update persists a new version of an existing pipeline. The previous
// versions stay immutable; running jobs keep their pinned version.
func (s *Service) Update(ctx context.Context, id string, req DefinitionRequest) (domain.Pipeline, error) {
	if _, err := s.pipelines.Get(ctx, id); err != nil {
		return domain.Pipeline{}, err
	}
	p, err := s.buildPipeline(id, req)
	if err != nil {
		return domain.Pipeline{}, err
	}
	return s.pipelines.CreateVersion(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.pipelines.Delete(ctx, id)
}

// Duplicate creates a fresh pipeline (version 1) copying the latest version
// of the source pipeline.
func (s *Service) Duplicate(ctx context.Context, id, createdBy string) (domain.Pipeline, error) {
	src, err := s.pipelines.Get(ctx, id)
	if err != nil {
		return domain.Pipeline{}, err
	}
	dup := src
	dup.ID = uuid.NewString()
	dup.Version = 1
	dup.Name = src.Name + " (copy)"
	dup.CreatedBy = createdBy
	dup.CreatedAt = s.now().UTC()
	return s.pipelines.CreateVersion(ctx, dup)
}

// ValidateDefinition checks syntax plus step/operation schemas without
// persisting anything. It reports all findings, not just the first.
func (s *Service) ValidateDefinition(definition string, format domain.DefinitionFormat) []string {
	p, err := ParseDefinition(definition, format)
	if err != nil {
		return []string{err.Error()}
	}
	var issues []string
	if err := p.Validate(); err != nil {
		issues = append(issues, err.Error())
	}
	for i, step := range p.Steps {
		if _, err := s.catalog.ResolveParams(step); err != nil {
			issues = append(issues, fmt.Sprintf("step[%d] (%s): %v", i, step.ID, err))
		}
	}
	return issues
}

// Run triggers a job for the latest version of the pipeline.
func (s *Service) Run(ctx context.Context, id string, req scheduler.TriggerRequest) (domain.Job, error) {
	p, err := s.pipelines.Get(ctx, id)
	if err != nil {
		return domain.Job{}, err
	}
	return s.sched.Trigger(ctx, p, req)
}

// Operations lists the built-in operation catalog.
func (s *Service) Operations() []domain.Operation {
	return s.catalog.List()
}

func (s *Service) buildPipeline(id string, req DefinitionRequest) (domain.Pipeline, error) {
	p, err := ParseDefinition(req.Definition, req.DefinitionFormat)
	if err != nil {
		return domain.Pipeline{}, err
	}
	p.ID = id
	if req.Name != "" {
		p.Name = req.Name
	}
	if len(req.Variables) > 0 {
		p.Variables = p.Variables.Merge(req.Variables)
	}
	if len(req.Tags) > 0 {
		p.Tags = req.Tags
	}
	p.Version = 1
	p.CreatedBy = req.CreatedBy
	p.CreatedAt = s.now().UTC()
	if err := p.Validate(); err != nil {
		return domain.Pipeline{}, domain.WrapErr(domain.ErrKindValidation, err, "pipeline definition")
	}
	for i, step := range p.Steps {
		if _, err := s.catalog.ResolveParams(step); err != nil {
			return domain.Pipeline{}, domain.WrapErr(domain.ErrKindValidation, err, fmt.Sprintf("step[%d]", i))
		}
	}
	return p, nil
}
