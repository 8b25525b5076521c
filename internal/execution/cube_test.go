package execution

import (
	"strings"
	"testing"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/rdf"
	"github.com/quadflow-labs/quadflow-go/internal/tabular"
)

func cubeDataset() *tabular.Dataset {
	return &tabular.Dataset{
		Columns: []tabular.Column{
			{Name: "canton", Type: domain.ColString},
			{Name: "year", Type: domain.ColInteger},
			{Name: "pop", Type: domain.ColInteger},
		},
		Rows: [][]domain.Value{
			{domain.String("http://example.org/canton/BE"), domain.Number(2020), domain.Number(1043000)},
			{domain.String("http://example.org/canton/ZH"), domain.Number(2020), domain.Number(1553000)},
		},
	}
}

func cubeParams() domain.Variables {
	return domain.Variables{
		"cube": domain.String("http://example.org/cube/population"),
		"dimensions": domain.Map(map[string]domain.Value{
			"canton": domain.String("http://example.org/dim/canton"),
			"year":   domain.String("http://example.org/dim/year"),
		}),
		"measures": domain.Map(map[string]domain.Value{
			"pop": domain.String("http://example.org/measure/pop"),
		}),
		"maxErrorRate": domain.Number(0),
	}
}

func TestRunCubeMapsRows(t *testing.T) {
	e := &StepExecutor{}
	st := &State{Dataset: cubeDataset()}
	res, err := e.runCube(cubeParams(), st, nopLog)
	if err != nil {
		t.Fatalf("runCube: %v", err)
	}
	if res.Metrics.RowsProcessed != 2 || res.Metrics.RowErrors != 0 {
		t.Fatalf("metrics = %+v", res.Metrics)
	}
	// 2 structural quads + 2 dims + 1 measure per row.
	if len(st.Quads) != 10 {
		t.Fatalf("quads = %d, want 10", len(st.Quads))
	}
	if res.Metrics.QuadsGenerated != 10 {
		t.Fatalf("quadsGenerated = %d", res.Metrics.QuadsGenerated)
	}

	g := st.GraphView()
	obs1 := rdf.IRI("http://example.org/cube/population/observation/1")
	types := g.Objects(obs1, rdf.IRI(rdf.IRIType))
	if len(types) != 1 || types[0] != rdf.IRI("http://purl.org/linked-data/cube#Observation") {
		t.Fatalf("observation type = %v", types)
	}
	dataset := g.Objects(obs1, rdf.IRI("http://purl.org/linked-data/cube#dataSet"))
	if len(dataset) != 1 || dataset[0] != rdf.IRI("http://example.org/cube/population") {
		t.Fatalf("qb:dataSet = %v", dataset)
	}
	// IRI-shaped cell binds as an IRI, numeric cell as a typed literal.
	cantons := g.Objects(obs1, rdf.IRI("http://example.org/dim/canton"))
	if len(cantons) != 1 || cantons[0] != rdf.IRI("http://example.org/canton/BE") {
		t.Fatalf("canton binding = %v", cantons)
	}
	pops := g.Objects(obs1, rdf.IRI("http://example.org/measure/pop"))
	if len(pops) != 1 || pops[0] != rdf.TypedLiteral("1043000", rdf.XSDInteger) {
		t.Fatalf("pop binding = %v", pops)
	}
}

func TestRunCubeSkipsRowsMissingRequiredDimension(t *testing.T) {
	e := &StepExecutor{}
	ds := cubeDataset()
	ds.Rows = append(ds.Rows, []domain.Value{domain.Null(), domain.Number(2021), domain.Number(100)})
	st := &State{Dataset: ds}

	params := cubeParams()
	params["maxErrorRate"] = domain.Number(0.5)
	res, err := e.runCube(params, st, nopLog)
	if err != nil {
		t.Fatalf("runCube: %v", err)
	}
	if res.Metrics.RowErrors != 1 {
		t.Fatalf("rowErrors = %d, want 1", res.Metrics.RowErrors)
	}
	// No observation for the skipped row.
	if len(st.GraphView().Objects(rdf.IRI("http://example.org/cube/population/observation/3"), rdf.IRI(rdf.IRIType))) != 0 {
		t.Fatal("skipped row produced an observation")
	}
}

func TestRunCubeNullMeasureOmitted(t *testing.T) {
	e := &StepExecutor{}
	ds := cubeDataset()
	ds.Rows[1][2] = domain.Null()
	st := &State{Dataset: ds}
	_, err := e.runCube(cubeParams(), st, nopLog)
	if err != nil {
		t.Fatalf("runCube: %v", err)
	}
	obs2 := rdf.IRI("http://example.org/cube/population/observation/2")
	if len(st.GraphView().Objects(obs2, rdf.IRI("http://example.org/measure/pop"))) != 0 {
		t.Fatal("null measure should be omitted, not bound")
	}
	if len(st.GraphView().Objects(obs2, rdf.IRI(rdf.IRIType))) != 1 {
		t.Fatal("observation with null measure should still exist")
	}
}

func TestRunCubeErrorRateThreshold(t *testing.T) {
	e := &StepExecutor{}
	ds := cubeDataset()
	ds.Rows[0][0] = domain.Null()
	st := &State{Dataset: ds}
	_, err := e.runCube(cubeParams(), st, nopLog)
	if domain.KindOf(err) != domain.ErrKindValidation {
		t.Fatalf("kind = %s, want validation", domain.KindOf(err))
	}
	if !strings.Contains(err.Error(), "exceeds threshold") {
		t.Fatalf("err = %v", err)
	}
	if st.Quads != nil {
		t.Fatal("failed step must not publish quads")
	}
}

func TestRunCubeRejectsBadBindings(t *testing.T) {
	e := &StepExecutor{}

	params := cubeParams()
	params["dimensions"] = domain.Map(map[string]domain.Value{
		"altitude": domain.String("http://example.org/dim/altitude"),
	})
	_, err := e.runCube(params, &State{Dataset: cubeDataset()}, nopLog)
	if domain.KindOf(err) != domain.ErrKindParameter {
		t.Fatalf("unknown column: kind = %s, want parameter", domain.KindOf(err))
	}

	params = cubeParams()
	params["dimensions"] = domain.Map(map[string]domain.Value{"canton": domain.Number(7)})
	_, err = e.runCube(params, &State{Dataset: cubeDataset()}, nopLog)
	if domain.KindOf(err) != domain.ErrKindParameter {
		t.Fatalf("non-string property: kind = %s, want parameter", domain.KindOf(err))
	}

	params = cubeParams()
	params["dimensions"] = domain.Map(map[string]domain.Value{})
	_, err = e.runCube(params, &State{Dataset: cubeDataset()}, nopLog)
	if domain.KindOf(err) != domain.ErrKindParameter {
		t.Fatalf("empty dimensions: kind = %s, want parameter", domain.KindOf(err))
	}

	_, err = e.runCube(cubeParams(), &State{}, nopLog)
	if domain.KindOf(err) != domain.ErrKindValidation {
		t.Fatalf("no dataset: kind = %s, want validation", domain.KindOf(err))
	}
}
