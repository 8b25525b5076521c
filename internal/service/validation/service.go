// Package validation runs on-demand SHACL validation against inline data
// or a named triplestore graph. Results are always computed fresh.
package validation

import (
	"context"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/execution"
	"github.com/quadflow-labs/quadflow-go/internal/repo"
	"github.com/quadflow-labs/quadflow-go/internal/service/connections"
	"github.com/quadflow-labs/quadflow-go/internal/shacl"
)

type Service struct {
	shapes repo.ShapeRepository
	conns  *connections.Service
}

func New(shapeRepo repo.ShapeRepository, conns *connections.Service) *Service {
	if shapeRepo == nil || conns == nil {
		return nil
	}
	return &Service{shapes: shapeRepo, conns: conns}
}

// Request names the shape and the data to validate it against.
type Request struct {
	ShapeID      string
	ShapeVersion int64
	Data         connections.GraphSource
}

func (s *Service) Run(ctx context.Context, req Request) (domain.ValidationResult, error) {
	var (
		shape domain.Shape
		err   error
	)
	if req.ShapeVersion > 0 {
		shape, err = s.shapes.GetVersion(ctx, req.ShapeID, req.ShapeVersion)
	} else {
		shape, err = s.shapes.Get(ctx, req.ShapeID)
	}
	if err != nil {
		return domain.ValidationResult{}, err
	}

	shapesGraph, err := execution.ParseShapeContent(shape)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	nodeShapes, err := shacl.ParseShapes(shapesGraph)
	if err != nil {
		return domain.ValidationResult{}, domain.WrapErr(domain.ErrKindValidation, err, "parse shapes")
	}

	data, err := s.conns.ResolveGraph(ctx, req.Data)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	return shacl.Validate(data, shapesGraph, nodeShapes), nil
}
