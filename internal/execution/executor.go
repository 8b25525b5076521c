package execution

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/execution/operation"
	"github.com/quadflow-labs/quadflow-go/internal/rdf"
	"github.com/quadflow-labs/quadflow-go/internal/repo"
	"github.com/quadflow-labs/quadflow-go/internal/shacl"
	"github.com/quadflow-labs/quadflow-go/internal/tabular"
	"github.com/quadflow-labs/quadflow-go/internal/triplestore"
)

// PayloadStore fetches uploaded data-source payloads by storage path.
type PayloadStore interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// ConnectorResolver maps a connection id to a live triplestore connector.
// An empty id resolves the default connection.
type ConnectorResolver interface {
	Resolve(ctx context.Context, connectionID string) (triplestore.Connector, error)
}

// Result is what one step run reports back to the runner.
type Result struct {
	Metrics     domain.JobMetrics
	OutputGraph string
}

// StepExecutor runs one pipeline step against the threaded state.
type StepExecutor struct {
	catalog    *operation.Catalog
	sources    repo.DataSourceRepository
	payloads   PayloadStore
	shapes     repo.ShapeRepository
	connectors ConnectorResolver
}

func NewStepExecutor(
	catalog *operation.Catalog,
	sources repo.DataSourceRepository,
	payloads PayloadStore,
	shapes repo.ShapeRepository,
	connectors ConnectorResolver,
) *StepExecutor {
	return &StepExecutor{
		catalog:    catalog,
		sources:    sources,
		payloads:   payloads,
		shapes:     shapes,
		connectors: connectors,
	}
}

// Run validates the step's params against the operation schema once, then
// dispatches on the closed operation-type set. State is mutated in place.
func (e *StepExecutor) Run(ctx context.Context, step domain.Step, st *State, logf LogFunc) (Result, error) {
	if logf == nil {
		logf = nopLog
	}
	params, err := e.catalog.ResolveParams(step)
	if err != nil {
		return Result{}, err
	}

	switch step.OperationType {
	case domain.OpSource:
		return e.runSource(ctx, params, st, logf)
	case domain.OpTransform:
		return e.runTransform(step.OperationName, params, st, logf)
	case domain.OpCube:
		return e.runCube(params, st, logf)
	case domain.OpValidation:
		return e.runValidation(ctx, params, st, logf)
	case domain.OpOutput:
		return e.runOutput(ctx, params, st, logf)
	default:
		return Result{}, domain.Errf(domain.ErrKindParameter, "unknown operation type %q", step.OperationType)
	}
}

func (e *StepExecutor) runSource(ctx context.Context, params domain.Variables, st *State, logf LogFunc) (Result, error) {
	sourceID := params["sourceId"].Str()
	ds, err := e.sources.Get(ctx, sourceID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return Result{}, domain.Errf(domain.ErrKindParameter, "data source %q not found", sourceID)
		}
		return Result{}, domain.WrapErr(domain.ErrKindInfrastructure, err, "load data source")
	}

	reader, opts, err := tabular.ReaderFor(ds.Format)
	if err != nil {
		return Result{}, domain.WrapErr(domain.ErrKindParameter, err, "unsupported source format")
	}
	if d, ok := params["delimiter"]; ok && d.Str() != "" {
		opts.Delimiter = []rune(d.Str())[0]
	} else if ds.Delimiter != "" {
		opts.Delimiter = []rune(ds.Delimiter)[0]
	}
	if h, ok := params["hasHeader"]; ok {
		opts.HasHeader = h.BoolVal()
	} else {
		opts.HasHeader = ds.HasHeader
	}
	if l, ok := params["limit"]; ok {
		opts.MaxRows = int(l.Num())
	}

	body, err := e.payloads.Get(ctx, ds.StoragePath)
	if err != nil {
		return Result{}, domain.WrapErr(domain.ErrKindInfrastructure, err, "fetch source payload")
	}
	defer func() { _ = body.Close() }()

	dataset, err := reader.Read(body, opts)
	if err != nil {
		return Result{}, domain.WrapErr(domain.ErrKindValidation, err, "parse source")
	}
	st.Dataset = dataset

	rows := int64(dataset.RowCount())
	logf(domain.LogInfo, fmt.Sprintf("loaded %d rows from %s", rows, ds.Name), domain.Variables{
		"sourceId": domain.String(sourceID),
		"rows":     domain.Number(float64(rows)),
	})
	return Result{Metrics: domain.JobMetrics{RowsProcessed: rows}}, nil
}

func (e *StepExecutor) runValidation(ctx context.Context, params domain.Variables, st *State, logf LogFunc) (Result, error) {
	shapeID := params["shapeId"].Str()
	shape, err := e.shapes.Get(ctx, shapeID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return Result{}, domain.Errf(domain.ErrKindParameter, "shape %q not found", shapeID)
		}
		return Result{}, domain.WrapErr(domain.ErrKindInfrastructure, err, "load shape")
	}

	shapesGraph, err := ParseShapeContent(shape)
	if err != nil {
		return Result{}, err
	}
	nodeShapes, err := shacl.ParseShapes(shapesGraph)
	if err != nil {
		return Result{}, domain.WrapErr(domain.ErrKindValidation, err, "parse shapes")
	}

	result := shacl.Validate(st.GraphView(), shapesGraph, nodeShapes)
	for _, v := range result.Violations {
		logf(domain.LogWarn, v.Message, domain.Variables{
			"focusNode":  domain.String(v.FocusNode),
			"path":       domain.String(v.Path),
			"constraint": domain.String(v.Constraint),
			"severity":   domain.String(string(v.Severity)),
		})
	}

	if !result.Conforms && params["failOnViolation"].BoolVal() {
		return Result{}, domain.Errf(domain.ErrKindValidation,
			"graph does not conform to shape %q: %d violation(s)", shapeID, result.ViolationCount)
	}
	if !result.Conforms {
		logf(domain.LogWarn, fmt.Sprintf("validation found %d violation(s), continuing", result.ViolationCount), nil)
	} else {
		logf(domain.LogInfo, "graph conforms", domain.Variables{"shapeId": domain.String(shapeID)})
	}
	return Result{}, nil
}

func (e *StepExecutor) runOutput(ctx context.Context, params domain.Variables, st *State, logf LogFunc) (Result, error) {
	if len(st.Quads) == 0 {
		return Result{}, domain.Errf(domain.ErrKindValidation, "no quads to write; a CUBE step must precede OUTPUT")
	}
	graphURI := strings.TrimSpace(params["graph"].Str())
	if graphURI == "" {
		return Result{}, domain.Errf(domain.ErrKindParameter, "graph uri must not be empty")
	}
	mode, err := triplestore.ParseWriteMode(params["mode"].Str())
	if err != nil {
		return Result{}, domain.WrapErr(domain.ErrKindParameter, err, "write mode")
	}

	conn, err := e.connectors.Resolve(ctx, params["connectionId"].Str())
	if err != nil {
		return Result{}, domain.WrapErr(domain.ErrKindInfrastructure, err, "resolve connection")
	}
	if err := conn.Write(ctx, graphURI, st.Quads, mode); err != nil {
		return Result{}, domain.WrapErr(domain.ErrKindInfrastructure, err, "write graph")
	}

	logf(domain.LogInfo, fmt.Sprintf("wrote %d quads to %s (%s)", len(st.Quads), graphURI, mode), nil)
	return Result{OutputGraph: graphURI}, nil
}

// ParseShapeContent parses a shape's authoritative serialized form. When no
// content exists yet, the structured projection is materialized instead.
func ParseShapeContent(shape domain.Shape) (*rdf.Graph, error) {
	content := strings.TrimSpace(shape.Content)
	if content == "" {
		return shacl.BuildShapeGraph(shape), nil
	}
	var (
		g   *rdf.Graph
		err error
	)
	switch shape.ContentFormat {
	case domain.ContentJSONLD:
		g, err = rdf.ParseJSONLD(content)
	default:
		g, err = rdf.ParseTurtle(content)
	}
	if err != nil {
		return nil, domain.WrapErr(domain.ErrKindValidation, err, "parse shape content")
	}
	return g, nil
}
