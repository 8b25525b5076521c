package pipelines

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/execution/operation"
	"github.com/quadflow-labs/quadflow-go/internal/repo"
	"github.com/quadflow-labs/quadflow-go/internal/scheduler"
)

type memPipelineRepo struct {
	versions map[string][]domain.Pipeline
}

func newMemPipelineRepo() *memPipelineRepo {
	return &memPipelineRepo{versions: make(map[string][]domain.Pipeline)}
}

func (m *memPipelineRepo) CreateVersion(_ context.Context, p domain.Pipeline) (domain.Pipeline, error) {
	p.Version = int64(len(m.versions[p.ID]) + 1)
	m.versions[p.ID] = append(m.versions[p.ID], p)
	return p, nil
}

func (m *memPipelineRepo) Get(_ context.Context, id string) (domain.Pipeline, error) {
	vs := m.versions[id]
	if len(vs) == 0 {
		return domain.Pipeline{}, repo.ErrNotFound
	}
	return vs[len(vs)-1], nil
}

func (m *memPipelineRepo) GetVersion(_ context.Context, id string, version int64) (domain.Pipeline, error) {
	for _, p := range m.versions[id] {
		if p.Version == version {
			return p, nil
		}
	}
	return domain.Pipeline{}, repo.ErrNotFound
}

func (m *memPipelineRepo) List(context.Context, repo.PipelineFilter) ([]domain.Pipeline, error) {
	return nil, nil
}

func (m *memPipelineRepo) ListVersions(_ context.Context, id string) ([]int64, error) {
	out := make([]int64, 0, len(m.versions[id]))
	for _, p := range m.versions[id] {
		out = append(out, p.Version)
	}
	return out, nil
}

func (m *memPipelineRepo) Delete(_ context.Context, id string) error {
	if len(m.versions[id]) == 0 {
		return repo.ErrNotFound
	}
	delete(m.versions, id)
	return nil
}

func newTestService(store *memPipelineRepo) *Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sched := scheduler.New(scheduler.Config{}, nil, store, nil, nil, log)
	return New(store, operation.Builtin(), sched)
}

const validDefinition = `
name: census ingest
steps:
  - id: load
    type: source
    operation: load_csv
    params:
      sourceId: src-1
`

func TestCreatePersistsVersionOne(t *testing.T) {
	store := newMemPipelineRepo()
	svc := newTestService(store)

	p, err := svc.Create(context.Background(), DefinitionRequest{
		Definition:       validDefinition,
		DefinitionFormat: domain.FormatYAML,
		CreatedBy:        "tester",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.ID == "" {
		t.Fatal("pipeline id not assigned")
	}
	if p.Version != 1 {
		t.Fatalf("version = %d, want 1", p.Version)
	}
	if p.Name != "census ingest" {
		t.Fatalf("name = %q", p.Name)
	}
	stored, err := store.Get(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("stored pipeline: %v", err)
	}
	if len(stored.Steps) != 1 || stored.Steps[0].ID != "load" {
		t.Fatalf("stored steps = %+v", stored.Steps)
	}
}

func TestUpdateAppendsVersion(t *testing.T) {
	store := newMemPipelineRepo()
	svc := newTestService(store)

	created, err := svc.Create(context.Background(), DefinitionRequest{
		Definition:       validDefinition,
		DefinitionFormat: domain.FormatYAML,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	updated, err := svc.Update(context.Background(), created.ID, DefinitionRequest{
		Name:             "census ingest v2",
		Definition:       validDefinition,
		DefinitionFormat: domain.FormatYAML,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ID != created.ID {
		t.Fatalf("id changed: %q -> %q", created.ID, updated.ID)
	}
	if updated.Version != 2 {
		t.Fatalf("version = %d, want 2", updated.Version)
	}
	if updated.Name != "census ingest v2" {
		t.Fatalf("name = %q", updated.Name)
	}
	versions, _ := store.ListVersions(context.Background(), created.ID)
	if len(versions) != 2 {
		t.Fatalf("versions = %v", versions)
	}
}

func TestUpdateUnknownPipeline(t *testing.T) {
	svc := newTestService(newMemPipelineRepo())
	_, err := svc.Update(context.Background(), "missing", DefinitionRequest{
		Definition:       validDefinition,
		DefinitionFormat: domain.FormatYAML,
	})
	if err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestCreateRejectsBadStepParams(t *testing.T) {
	store := newMemPipelineRepo()
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), DefinitionRequest{
		Definition: `
name: broken
steps:
  - id: load
    type: source
    operation: load_csv
    params:
      compression: zstd
`,
		DefinitionFormat: domain.FormatYAML,
	})
	if domain.KindOf(err) != domain.ErrKindValidation {
		t.Fatalf("kind = %s, want validation", domain.KindOf(err))
	}
	if len(store.versions) != 0 {
		t.Fatal("rejected pipeline was persisted")
	}
}
