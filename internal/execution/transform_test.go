package execution

import (
	"strings"
	"testing"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/execution/operation"
	"github.com/quadflow-labs/quadflow-go/internal/tabular"
)

func sampleDataset() *tabular.Dataset {
	return &tabular.Dataset{
		Columns: []tabular.Column{
			{Name: "city", Type: domain.ColString},
			{Name: "pop", Type: domain.ColString},
		},
		Rows: [][]domain.Value{
			{domain.String("bern"), domain.String("134000")},
			{domain.String("basel"), domain.String("178000")},
			{domain.String("geneva"), domain.String("n/a")},
		},
	}
}

func TestRunTransformRequiresDataset(t *testing.T) {
	e := &StepExecutor{}
	_, err := e.runTransform(operation.RenameColumn, domain.Variables{
		"from": domain.String("a"), "to": domain.String("b"),
	}, &State{}, nopLog)
	if domain.KindOf(err) != domain.ErrKindValidation {
		t.Fatalf("kind = %s, want validation", domain.KindOf(err))
	}
}

func TestRenameColumn(t *testing.T) {
	e := &StepExecutor{}
	st := &State{Dataset: sampleDataset()}
	res, err := e.runTransform(operation.RenameColumn, domain.Variables{
		"from": domain.String("pop"), "to": domain.String("population"),
	}, st, nopLog)
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if st.Dataset.Columns[1].Name != "population" {
		t.Fatalf("column name = %q", st.Dataset.Columns[1].Name)
	}
	if res.Metrics.RowsProcessed != 3 {
		t.Fatalf("rowsProcessed = %d", res.Metrics.RowsProcessed)
	}

	for _, tc := range []struct{ from, to string }{
		{"missing", "x"}, // source absent
		{"city", "pop"},  // target taken
		{"city", "  "},   // blank target
	} {
		_, err := e.runTransform(operation.RenameColumn, domain.Variables{
			"from": domain.String(tc.from), "to": domain.String(tc.to),
		}, &State{Dataset: sampleDataset()}, nopLog)
		if domain.KindOf(err) != domain.ErrKindParameter {
			t.Errorf("rename %q->%q: kind = %s, want parameter", tc.from, tc.to, domain.KindOf(err))
		}
	}
}

func TestDeriveColumnTemplate(t *testing.T) {
	e := &StepExecutor{}
	st := &State{Dataset: sampleDataset()}
	_, err := e.runTransform(operation.DeriveColumn, domain.Variables{
		"name":     domain.String("label"),
		"template": domain.String("${city} (${pop})"),
	}, st, nopLog)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if len(st.Dataset.Columns) != 3 || st.Dataset.Columns[2].Name != "label" {
		t.Fatalf("columns = %+v", st.Dataset.Columns)
	}
	if got := st.Dataset.Rows[0][2].Render(); got != "bern (134000)" {
		t.Fatalf("derived cell = %q", got)
	}
}

func TestDeriveColumnUnknownReferenceExpandsEmpty(t *testing.T) {
	e := &StepExecutor{}
	st := &State{Dataset: sampleDataset()}
	_, err := e.runTransform(operation.DeriveColumn, domain.Variables{
		"name":     domain.String("tag"),
		"template": domain.String("x${nope}y"),
	}, st, nopLog)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if got := st.Dataset.Rows[0][2].Render(); got != "xy" {
		t.Fatalf("derived cell = %q, want %q", got, "xy")
	}
}

func TestFilterRowsOperators(t *testing.T) {
	e := &StepExecutor{}
	cases := []struct {
		op, value string
		want      int
	}{
		{"eq", "bern", 1},
		{"ne", "bern", 2},
		{"contains", "b", 2},
	}
	for _, tc := range cases {
		st := &State{Dataset: sampleDataset()}
		_, err := e.runTransform(operation.FilterRows, domain.Variables{
			"column": domain.String("city"), "operator": domain.String(tc.op), "value": domain.String(tc.value),
		}, st, nopLog)
		if err != nil {
			t.Fatalf("filter %s: %v", tc.op, err)
		}
		if got := st.Dataset.RowCount(); got != tc.want {
			t.Errorf("filter %s %q: %d rows, want %d", tc.op, tc.value, got, tc.want)
		}
	}

	// gt/lt parse the cell numerically; non-numeric cells never match.
	st := &State{Dataset: sampleDataset()}
	_, err := e.runTransform(operation.FilterRows, domain.Variables{
		"column": domain.String("pop"), "operator": domain.String("gt"), "value": domain.String("150000"),
	}, st, nopLog)
	if err != nil {
		t.Fatalf("filter gt: %v", err)
	}
	if st.Dataset.RowCount() != 1 || st.Dataset.Rows[0][0].Render() != "basel" {
		t.Fatalf("gt kept %d rows", st.Dataset.RowCount())
	}

	_, err = e.runTransform(operation.FilterRows, domain.Variables{
		"column": domain.String("pop"), "operator": domain.String("gt"), "value": domain.String("lots"),
	}, &State{Dataset: sampleDataset()}, nopLog)
	if domain.KindOf(err) != domain.ErrKindParameter {
		t.Fatalf("non-numeric threshold: kind = %s, want parameter", domain.KindOf(err))
	}

	_, err = e.runTransform(operation.FilterRows, domain.Variables{
		"column": domain.String("pop"), "operator": domain.String("between"), "value": domain.String("1"),
	}, &State{Dataset: sampleDataset()}, nopLog)
	if domain.KindOf(err) != domain.ErrKindParameter {
		t.Fatalf("unknown operator: kind = %s, want parameter", domain.KindOf(err))
	}
}

func TestCastColumnWithinThreshold(t *testing.T) {
	e := &StepExecutor{}
	st := &State{Dataset: sampleDataset()}
	res, err := e.runTransform(operation.CastColumn, domain.Variables{
		"column": domain.String("pop"), "type": domain.String("integer"),
		"maxErrorRate": domain.Number(0.5),
	}, st, nopLog)
	if err != nil {
		t.Fatalf("cast: %v", err)
	}
	if res.Metrics.RowErrors != 1 {
		t.Fatalf("rowErrors = %d, want 1", res.Metrics.RowErrors)
	}
	if st.Dataset.Columns[1].Type != domain.ColInteger {
		t.Fatalf("column type = %s", st.Dataset.Columns[1].Type)
	}
	if !st.Dataset.Rows[2][1].IsNull() {
		t.Fatal("malformed cell should become null")
	}
	if !st.Dataset.Rows[0][1].Equal(domain.Number(134000)) {
		t.Fatalf("cast cell = %v", st.Dataset.Rows[0][1])
	}
}

func TestCastColumnExceedsThresholdLeavesInputIntact(t *testing.T) {
	e := &StepExecutor{}
	st := &State{Dataset: sampleDataset()}
	_, err := e.runTransform(operation.CastColumn, domain.Variables{
		"column": domain.String("pop"), "type": domain.String("integer"),
		"maxErrorRate": domain.Number(0),
	}, st, nopLog)
	if domain.KindOf(err) != domain.ErrKindValidation {
		t.Fatalf("kind = %s, want validation", domain.KindOf(err))
	}
	if !strings.Contains(err.Error(), "exceeds threshold") {
		t.Fatalf("err = %v", err)
	}
	// The failed step must not leak partial mutation into the state.
	if st.Dataset.Columns[1].Type != domain.ColString {
		t.Fatalf("input column type changed to %s", st.Dataset.Columns[1].Type)
	}
	if got := st.Dataset.Rows[2][1].Render(); got != "n/a" {
		t.Fatalf("input cell changed to %q", got)
	}
}

func TestCastColumnUnknownType(t *testing.T) {
	e := &StepExecutor{}
	_, err := e.runTransform(operation.CastColumn, domain.Variables{
		"column": domain.String("pop"), "type": domain.String("uuid"),
		"maxErrorRate": domain.Number(0),
	}, &State{Dataset: sampleDataset()}, nopLog)
	if domain.KindOf(err) != domain.ErrKindParameter {
		t.Fatalf("kind = %s, want parameter", domain.KindOf(err))
	}
}
