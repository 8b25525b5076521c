// Package shapes manages the SHACL shape catalog: versioned persistence,
// syntax validation, inference from data, and Turtle generation.
package shapes

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/execution"
	"github.com/quadflow-labs/quadflow-go/internal/rdf"
	"github.com/quadflow-labs/quadflow-go/internal/repo"
	"github.com/quadflow-labs/quadflow-go/internal/service/connections"
	"github.com/quadflow-labs/quadflow-go/internal/shacl"
)

type Service struct {
	shapes repo.ShapeRepository
	conns  *connections.Service
	now    func() time.Time
}

func New(shapeRepo repo.ShapeRepository, conns *connections.Service) *Service {
	if shapeRepo == nil || conns == nil {
		return nil
	}
	return &Service{shapes: shapeRepo, conns: conns, now: time.Now}
}

func (s *Service) List(ctx context.Context, filter repo.ShapeFilter) ([]domain.Shape, error) {
	return s.shapes.List(ctx, filter)
}

// Templates lists shapes flagged as templates.
func (s *Service) Templates(ctx context.Context) ([]domain.Shape, error) {
	isTemplate := true
	return s.shapes.List(ctx, repo.ShapeFilter{IsTemplate: &isTemplate})
}

func (s *Service) Get(ctx context.Context, id string) (domain.Shape, error) {
	return s.shapes.Get(ctx, id)
}

func (s *Service) GetVersion(ctx context.Context, id string, version int64) (domain.Shape, error) {
	return s.shapes.GetVersion(ctx, id, version)
}

func (s *Service) ListVersions(ctx context.Context, id string) ([]int64, error) {
	return s.shapes.ListVersions(ctx, id)
}

// Create validates the shape content syntactically and persists version 1.
func (s *Service) Create(ctx context.Context, shape domain.Shape) (domain.Shape, error) {
	shape.ID = uuid.NewString()
	now := s.now().UTC()
	shape.CreatedAt = now
	shape.UpdatedAt = now
	if err := s.check(shape); err != nil {
		return domain.Shape{}, err
	}
	return s.shapes.CreateVersion(ctx, shape)
}

// Update persists a new version of an existing shape.
func (s *Service) Update(ctx context.Context, id string, shape domain.Shape) (domain.Shape, error) {
	prev, err := s.shapes.Get(ctx, id)
	if err != nil {
		return domain.Shape{}, err
	}
	shape.ID = prev.ID
	shape.CreatedAt = prev.CreatedAt
	shape.UpdatedAt = s.now().UTC()
	if shape.CreatedBy == "" {
		shape.CreatedBy = prev.CreatedBy
	}
	if err := s.check(shape); err != nil {
		return domain.Shape{}, err
	}
	return s.shapes.CreateVersion(ctx, shape)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.shapes.Delete(ctx, id)
}

// ValidateSyntax parses shape content without persisting. It returns all
// findings.
func (s *Service) ValidateSyntax(content string, format domain.ContentFormat) []string {
	g, err := parseContent(content, format)
	if err != nil {
		return []string{err.Error()}
	}
	if _, err := shacl.ParseShapes(g); err != nil {
		return []string{err.Error()}
	}
	return nil
}

// InferFromData derives property shapes for a target class from a sample
// graph. The result is a structured projection the caller may edit before
// generating content.
func (s *Service) InferFromData(ctx context.Context, targetClass string, src connections.GraphSource) ([]domain.PropertyShape, error) {
	if strings.TrimSpace(targetClass) == "" {
		return nil, domain.Errf(domain.ErrKindValidation, "target class is required")
	}
	g, err := s.conns.ResolveGraph(ctx, src)
	if err != nil {
		return nil, err
	}
	return shacl.InferProperties(g, rdf.IRI(targetClass)), nil
}

// GenerateTurtle serializes a structured shape to Turtle. Once stored as
// content, the serialized form is authoritative.
func (s *Service) GenerateTurtle(shape domain.Shape) (string, error) {
	if strings.TrimSpace(shape.URI) == "" {
		return "", domain.Errf(domain.ErrKindValidation, "shape uri is required")
	}
	g := shacl.BuildShapeGraph(shape)
	return rdf.WriteTurtle(g, shacl.DefaultPrefixes()), nil
}

// check runs the static shape checks shared by create and update.
func (s *Service) check(shape domain.Shape) error {
	if err := validateStatic(shape); err != nil {
		return err
	}
	if strings.TrimSpace(shape.Content) != "" {
		if _, err := execution.ParseShapeContent(shape); err != nil {
			return err
		}
	}
	return nil
}

func validateStatic(shape domain.Shape) error {
	if strings.TrimSpace(shape.URI) == "" {
		return domain.Errf(domain.ErrKindValidation, "shape uri is required")
	}
	if strings.TrimSpace(shape.Name) == "" {
		return domain.Errf(domain.ErrKindValidation, "shape name is required")
	}
	return nil
}

func parseContent(content string, format domain.ContentFormat) (*rdf.Graph, error) {
	switch format {
	case domain.ContentJSONLD:
		return rdf.ParseJSONLD(content)
	default:
		return rdf.ParseTurtle(content)
	}
}
