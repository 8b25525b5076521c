package execution

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/execution/operation"
	"github.com/quadflow-labs/quadflow-go/internal/repo"
	"github.com/quadflow-labs/quadflow-go/internal/triplestore"
)

type fakeJobRepo struct {
	mu      sync.Mutex
	updates []domain.Job
	logs    []domain.JobLog
}

func (f *fakeJobRepo) Create(context.Context, domain.Job) error { return nil }
func (f *fakeJobRepo) Get(context.Context, string) (domain.Job, error) {
	return domain.Job{}, repo.ErrNotFound
}
func (f *fakeJobRepo) List(context.Context, repo.JobFilter) ([]domain.Job, error) { return nil, nil }

func (f *fakeJobRepo) Update(_ context.Context, j domain.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, j)
	return nil
}

func (f *fakeJobRepo) AppendLog(_ context.Context, _ string, entry domain.JobLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, entry)
	return nil
}

func (f *fakeJobRepo) ListLogs(context.Context, string, repo.LogFilter) ([]domain.JobLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.JobLog(nil), f.logs...), nil
}

type fakeSourceRepo struct{ sources map[string]domain.DataSource }

func (f *fakeSourceRepo) Create(context.Context, domain.DataSource) error { return nil }
func (f *fakeSourceRepo) Get(_ context.Context, id string) (domain.DataSource, error) {
	ds, ok := f.sources[id]
	if !ok {
		return domain.DataSource{}, repo.ErrNotFound
	}
	return ds, nil
}
func (f *fakeSourceRepo) List(context.Context, repo.DataSourceFilter) ([]domain.DataSource, error) {
	return nil, nil
}
func (f *fakeSourceRepo) Update(context.Context, domain.DataSource) error { return nil }
func (f *fakeSourceRepo) Delete(context.Context, string) error            { return nil }

type fakeShapeRepo struct{ shapes map[string]domain.Shape }

func (f *fakeShapeRepo) CreateVersion(_ context.Context, s domain.Shape) (domain.Shape, error) {
	return s, nil
}
func (f *fakeShapeRepo) Get(_ context.Context, id string) (domain.Shape, error) {
	s, ok := f.shapes[id]
	if !ok {
		return domain.Shape{}, repo.ErrNotFound
	}
	return s, nil
}
func (f *fakeShapeRepo) GetVersion(_ context.Context, id string, _ int64) (domain.Shape, error) {
	return f.Get(context.Background(), id)
}
func (f *fakeShapeRepo) List(context.Context, repo.ShapeFilter) ([]domain.Shape, error) {
	return nil, nil
}
func (f *fakeShapeRepo) ListVersions(context.Context, string) ([]int64, error) { return nil, nil }
func (f *fakeShapeRepo) Delete(context.Context, string) error                  { return nil }

type fakePayloadStore struct{ payloads map[string]string }

func (f *fakePayloadStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := f.payloads[key]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

// blockingPayloadStore holds every read until the step budget expires.
type blockingPayloadStore struct{}

func (blockingPayloadStore) Get(ctx context.Context, _ string) (io.ReadCloser, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type staticResolver struct{ store *triplestore.MemoryStore }

func (r staticResolver) Resolve(context.Context, string) (triplestore.Connector, error) {
	return r.store, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func censusCSV(rows int) string {
	var b strings.Builder
	b.WriteString("canton,pop\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "http://example.org/canton/C%d,%d\n", i+1, 1000+i)
	}
	return b.String()
}

func censusPipeline(shapeID string) domain.Pipeline {
	return domain.Pipeline{
		ID:      "pipe-1",
		Name:    "census",
		Version: 1,
		Steps: []domain.Step{
			{
				ID: "load", OperationType: domain.OpSource, OperationName: operation.LoadCSV,
				Params: domain.Variables{"sourceId": domain.String("${src}")},
			},
			{
				ID: "cube", OperationType: domain.OpCube, OperationName: operation.MapCube,
				Params: domain.Variables{
					"cube":       domain.String("http://example.org/cube/census"),
					"dimensions": domain.Map(map[string]domain.Value{"canton": domain.String("http://example.org/dim/canton")}),
					"measures":   domain.Map(map[string]domain.Value{"pop": domain.String("http://example.org/measure/pop")}),
				},
			},
			{
				ID: "validate", OperationType: domain.OpValidation, OperationName: operation.SHACLValidate,
				Params: domain.Variables{"shapeId": domain.String(shapeID)},
			},
			{
				ID: "write", OperationType: domain.OpOutput, OperationName: operation.WriteGraph,
				Params: domain.Variables{"graph": domain.String("http://example.org/graph/census")},
			},
		},
	}
}

func newTestRunner(jobs *fakeJobRepo, store *triplestore.MemoryStore, shapes map[string]domain.Shape, payload string) *Runner {
	executor := NewStepExecutor(
		operation.Builtin(),
		&fakeSourceRepo{sources: map[string]domain.DataSource{
			"src-1": {
				ID: "src-1", Name: "census.csv", Format: domain.SourceCSV,
				StoragePath: "payloads/src-1.csv", Delimiter: ",", HasHeader: true,
			},
		}},
		&fakePayloadStore{payloads: map[string]string{"payloads/src-1.csv": payload}},
		&fakeShapeRepo{shapes: shapes},
		staticResolver{store: store},
	)
	return NewRunner(executor, jobs, testLogger(), time.Minute)
}

// An empty-target shape makes the VALIDATION step pass vacuously.
func vacuousShape() map[string]domain.Shape {
	return map[string]domain.Shape{
		"shape-1": {
			ID: "shape-1", Name: "nothing",
			URI:         "http://example.org/shapes/Nothing",
			TargetClass: "http://example.org/Nothing",
		},
	}
}

func strictShape() map[string]domain.Shape {
	return map[string]domain.Shape{
		"shape-1": {
			ID: "shape-1", Name: "observation", ContentFormat: domain.ContentTurtle,
			Content: `
@prefix sh: <http://www.w3.org/ns/shacl#> .
@prefix ex: <http://example.org/> .
@prefix qb: <http://purl.org/linked-data/cube#> .

ex:ObsShape a sh:NodeShape ;
    sh:targetClass qb:Observation ;
    sh:property [ sh:path ex:mandatory ; sh:minCount 1 ] .
`,
		},
	}
}

func TestExecuteFullPipeline(t *testing.T) {
	jobs := &fakeJobRepo{}
	store := triplestore.NewMemoryStore()
	r := newTestRunner(jobs, store, vacuousShape(), censusCSV(100))

	job := domain.Job{
		ID: "job-1", PipelineID: "pipe-1", PipelineVersion: 1,
		Status:    domain.JobPending,
		Variables: domain.Variables{"src": domain.String("src-1")},
	}
	got := r.Execute(context.Background(), job, censusPipeline("shape-1"), nil)

	if got.Status != domain.JobCompleted {
		t.Fatalf("status = %s (%s)", got.Status, got.ErrorMessage)
	}
	if got.Progress != 100 {
		t.Fatalf("progress = %d", got.Progress)
	}
	if got.OutputGraph != "http://example.org/graph/census" {
		t.Fatalf("outputGraph = %q", got.OutputGraph)
	}
	if got.StartedAt == nil || got.CompletedAt == nil {
		t.Fatal("timestamps not set")
	}
	for _, s := range got.Steps {
		if s.Status != domain.StepCompleted {
			t.Fatalf("step %s status = %s", s.ID, s.Status)
		}
	}
	if got.Steps[0].Metrics.RowsProcessed != 100 {
		t.Fatalf("source rowsProcessed = %d", got.Steps[0].Metrics.RowsProcessed)
	}
	// 100 observations, each a type quad, a dataSet quad, one dim, one measure.
	if got.Steps[1].Metrics.QuadsGenerated != 400 {
		t.Fatalf("quadsGenerated = %d", got.Steps[1].Metrics.QuadsGenerated)
	}

	g, err := store.Graph(context.Background(), "http://example.org/graph/census")
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	if g.Len() != 400 {
		t.Fatalf("written quads = %d, want 400", g.Len())
	}

	// Progress snapshots persist per completed step and never decrease.
	var last int
	for _, u := range jobs.updates {
		if u.Progress < last {
			t.Fatalf("progress regressed: %d after %d", u.Progress, last)
		}
		last = u.Progress
	}
	if last != 100 {
		t.Fatalf("final persisted progress = %d", last)
	}
}

func TestExecuteValidationFailureSkipsOutput(t *testing.T) {
	jobs := &fakeJobRepo{}
	store := triplestore.NewMemoryStore()
	r := newTestRunner(jobs, store, strictShape(), censusCSV(5))

	job := domain.Job{
		ID: "job-2", PipelineID: "pipe-1", PipelineVersion: 1,
		Status:    domain.JobPending,
		Variables: domain.Variables{"src": domain.String("src-1")},
	}
	got := r.Execute(context.Background(), job, censusPipeline("shape-1"), nil)

	if got.Status != domain.JobFailed {
		t.Fatalf("status = %s", got.Status)
	}
	statuses := map[string]domain.StepStatus{}
	for _, s := range got.Steps {
		statuses[s.ID] = s.Status
	}
	if statuses["validate"] != domain.StepFailed {
		t.Fatalf("validate step = %s", statuses["validate"])
	}
	if statuses["write"] != domain.StepSkipped {
		t.Fatalf("write step = %s", statuses["write"])
	}
	if got.ErrorDetails == nil || got.ErrorDetails.Kind != domain.ErrKindValidation {
		t.Fatalf("error details = %+v", got.ErrorDetails)
	}
	if !strings.Contains(got.ErrorMessage, `step "validate" failed`) {
		t.Fatalf("error message = %q", got.ErrorMessage)
	}
	if stepID, _ := got.ErrorDetails.Context["stepId"]; stepID.Str() != "validate" {
		t.Fatalf("error context stepId = %v", stepID)
	}
	// Nothing may reach the store when validation blocks the pipeline.
	graphs, _ := store.ListGraphs(context.Background())
	if len(graphs) != 0 {
		t.Fatalf("graphs written despite failure: %v", graphs)
	}
	// Per-violation warnings were logged for the validation step.
	var warned bool
	for _, entry := range jobs.logs {
		if entry.Step == "validate" && entry.Level == domain.LogWarn {
			warned = true
		}
	}
	if !warned {
		t.Fatal("expected violation warnings in the job log")
	}
}

func TestExecuteCancelledBeforeFirstStep(t *testing.T) {
	jobs := &fakeJobRepo{}
	r := newTestRunner(jobs, triplestore.NewMemoryStore(), vacuousShape(), censusCSV(1))

	job := domain.Job{ID: "job-3", PipelineID: "pipe-1", Status: domain.JobPending,
		Variables: domain.Variables{"src": domain.String("src-1")}}
	got := r.Execute(context.Background(), job, censusPipeline("shape-1"), func() bool { return true })

	if got.Status != domain.JobCancelled {
		t.Fatalf("status = %s", got.Status)
	}
	if got.ErrorMessage != "cancelled" {
		t.Fatalf("error message = %q", got.ErrorMessage)
	}
	for _, s := range got.Steps {
		if s.Status != domain.StepSkipped {
			t.Fatalf("step %s = %s, want skipped", s.ID, s.Status)
		}
	}
}

func TestExecuteCancelledBetweenSteps(t *testing.T) {
	jobs := &fakeJobRepo{}
	r := newTestRunner(jobs, triplestore.NewMemoryStore(), vacuousShape(), censusCSV(1))

	var calls int
	cancelled := func() bool {
		calls++
		return calls > 1
	}
	job := domain.Job{ID: "job-4", PipelineID: "pipe-1", Status: domain.JobPending,
		Variables: domain.Variables{"src": domain.String("src-1")}}
	got := r.Execute(context.Background(), job, censusPipeline("shape-1"), cancelled)

	if got.Status != domain.JobCancelled {
		t.Fatalf("status = %s", got.Status)
	}
	if got.Steps[0].Status != domain.StepCompleted {
		t.Fatalf("first step = %s, want completed", got.Steps[0].Status)
	}
	for _, s := range got.Steps[1:] {
		if s.Status != domain.StepSkipped {
			t.Fatalf("step %s = %s, want skipped", s.ID, s.Status)
		}
	}
}

func TestExecuteStepTimeout(t *testing.T) {
	jobs := &fakeJobRepo{}
	executor := NewStepExecutor(
		operation.Builtin(),
		&fakeSourceRepo{sources: map[string]domain.DataSource{
			"src-1": {ID: "src-1", Name: "slow.csv", Format: domain.SourceCSV, StoragePath: "p", HasHeader: true},
		}},
		blockingPayloadStore{},
		&fakeShapeRepo{},
		staticResolver{store: triplestore.NewMemoryStore()},
	)
	r := NewRunner(executor, jobs, testLogger(), 50*time.Millisecond)

	pipeline := domain.Pipeline{ID: "pipe-1", Version: 1, Steps: []domain.Step{{
		ID: "load", OperationType: domain.OpSource, OperationName: operation.LoadCSV,
		Params: domain.Variables{"sourceId": domain.String("src-1")},
	}}}
	got := r.Execute(context.Background(), domain.Job{ID: "job-5", Status: domain.JobPending}, pipeline, nil)

	if got.Status != domain.JobFailed {
		t.Fatalf("status = %s", got.Status)
	}
	if got.ErrorDetails == nil || got.ErrorDetails.Kind != domain.ErrKindTimeout {
		t.Fatalf("error details = %+v", got.ErrorDetails)
	}
	if !strings.Contains(got.ErrorMessage, "exceeded its") {
		t.Fatalf("error message = %q", got.ErrorMessage)
	}
}

func TestExecuteStepPanicIsInfrastructureFailure(t *testing.T) {
	jobs := &fakeJobRepo{}
	// A nil source repository makes the SOURCE step panic.
	executor := NewStepExecutor(operation.Builtin(), nil, &fakePayloadStore{}, &fakeShapeRepo{}, staticResolver{store: triplestore.NewMemoryStore()})
	r := NewRunner(executor, jobs, testLogger(), time.Minute)

	pipeline := domain.Pipeline{ID: "pipe-1", Version: 1, Steps: []domain.Step{{
		ID: "load", OperationType: domain.OpSource, OperationName: operation.LoadCSV,
		Params: domain.Variables{"sourceId": domain.String("src-1")},
	}}}
	got := r.Execute(context.Background(), domain.Job{ID: "job-6", Status: domain.JobPending}, pipeline, nil)

	if got.Status != domain.JobFailed {
		t.Fatalf("status = %s", got.Status)
	}
	if got.ErrorDetails == nil || got.ErrorDetails.Kind != domain.ErrKindInfrastructure {
		t.Fatalf("error details = %+v", got.ErrorDetails)
	}
	if got.ErrorDetails.StackTrace == "" {
		t.Fatal("expected a captured stack trace")
	}
	if !strings.Contains(got.ErrorMessage, "panicked") {
		t.Fatalf("error message = %q", got.ErrorMessage)
	}
}

func TestInterpolateParamsResolvesVariables(t *testing.T) {
	vars := domain.Variables{"year": domain.Number(2024), "region": domain.String("west")}
	params := domain.Variables{
		"graph": domain.String("http://example.org/graph/${region}/${year}"),
		"tags":  domain.List(domain.String("${region}"), domain.String("fixed")),
		"meta":  domain.Map(map[string]domain.Value{"label": domain.String("r=${region}")}),
		"limit": domain.Number(10),
	}
	out := interpolateParams(params, vars)

	if got := out["graph"].Str(); got != "http://example.org/graph/west/2024" {
		t.Fatalf("graph = %q", got)
	}
	if got := out["tags"].Items()[0].Str(); got != "west" {
		t.Fatalf("list item = %q", got)
	}
	if entry, _ := out["meta"].Entry("label"); entry.Str() != "r=west" {
		t.Fatalf("map entry = %q", entry.Str())
	}
	if !out["limit"].Equal(domain.Number(10)) {
		t.Fatalf("non-string param changed: %v", out["limit"])
	}
	// Unknown references expand to empty, the input map is not mutated.
	out2 := interpolateParams(domain.Variables{"x": domain.String("${nope}!")}, vars)
	if out2["x"].Str() != "!" {
		t.Fatalf("unknown ref = %q", out2["x"].Str())
	}
	if params["graph"].Str() != "http://example.org/graph/${region}/${year}" {
		t.Fatal("input params mutated")
	}
	// No job variables at all still expands references, to empty.
	out3 := interpolateParams(domain.Variables{"x": domain.String("${region}-suffix")}, nil)
	if out3["x"].Str() != "-suffix" {
		t.Fatalf("ref with no variables = %q", out3["x"].Str())
	}
}
