package operation

import (
	"testing"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
)

func TestResolveParamsAppliesDefaults(t *testing.T) {
	cat := Builtin()
	step := domain.Step{
		ID:            "load",
		OperationType: domain.OpSource,
		OperationName: LoadCSV,
		Params:        domain.Variables{"sourceId": domain.String("src-1")},
	}
	resolved, err := cat.ResolveParams(step)
	if err != nil {
		t.Fatalf("ResolveParams: %v", err)
	}
	if got := resolved["hasHeader"]; !got.BoolVal() {
		t.Fatalf("hasHeader default = %v, want true", got)
	}
	if _, ok := resolved["limit"]; ok {
		t.Fatalf("optional param without default should be absent")
	}
	if resolved["sourceId"].Str() != "src-1" {
		t.Fatalf("sourceId = %q", resolved["sourceId"].Str())
	}
}

func TestResolveParamsDefaultsTable(t *testing.T) {
	cat := Builtin()
	cases := []struct {
		op    string
		typ   domain.OperationType
		given domain.Variables
		param string
		want  domain.Value
	}{
		{SHACLValidate, domain.OpValidation, domain.Variables{"shapeId": domain.String("s")}, "failOnViolation", domain.Bool(true)},
		{WriteGraph, domain.OpOutput, domain.Variables{"graph": domain.String("http://g")}, "mode", domain.String("replace")},
		{CastColumn, domain.OpTransform, domain.Variables{"column": domain.String("c"), "type": domain.String("integer")}, "maxErrorRate", domain.Number(0)},
	}
	for _, tc := range cases {
		resolved, err := cat.ResolveParams(domain.Step{
			ID: "s1", OperationType: tc.typ, OperationName: tc.op, Params: tc.given,
		})
		if err != nil {
			t.Fatalf("%s: %v", tc.op, err)
		}
		if !resolved[tc.param].Equal(tc.want) {
			t.Errorf("%s: %s = %v, want %v", tc.op, tc.param, resolved[tc.param], tc.want)
		}
	}
}

func TestResolveParamsRejectsUnknownOperation(t *testing.T) {
	_, err := Builtin().ResolveParams(domain.Step{
		ID: "x", OperationType: domain.OpSource, OperationName: "load_parquet",
	})
	if domain.KindOf(err) != domain.ErrKindParameter {
		t.Fatalf("kind = %s, want parameter", domain.KindOf(err))
	}
}

func TestResolveParamsRejectsTypeMismatch(t *testing.T) {
	_, err := Builtin().ResolveParams(domain.Step{
		ID:            "x",
		OperationType: domain.OpSource,
		OperationName: LoadCSV,
		Params: domain.Variables{
			"sourceId":  domain.String("src-1"),
			"hasHeader": domain.String("yes"),
		},
	})
	if domain.KindOf(err) != domain.ErrKindParameter {
		t.Fatalf("kind = %s, want parameter", domain.KindOf(err))
	}
}

func TestResolveParamsRejectsMissingRequired(t *testing.T) {
	_, err := Builtin().ResolveParams(domain.Step{
		ID: "x", OperationType: domain.OpTransform, OperationName: RenameColumn,
		Params: domain.Variables{"from": domain.String("a")},
	})
	if err == nil {
		t.Fatal("expected error for missing required parameter")
	}
	if domain.KindOf(err) != domain.ErrKindParameter {
		t.Fatalf("kind = %s, want parameter", domain.KindOf(err))
	}
	// Null counts as absent.
	_, err = Builtin().ResolveParams(domain.Step{
		ID: "x", OperationType: domain.OpTransform, OperationName: RenameColumn,
		Params: domain.Variables{"from": domain.String("a"), "to": domain.Null()},
	})
	if err == nil {
		t.Fatal("expected error for null required parameter")
	}
}

func TestResolveParamsRejectsUndeclaredParam(t *testing.T) {
	_, err := Builtin().ResolveParams(domain.Step{
		ID: "x", OperationType: domain.OpOutput, OperationName: WriteGraph,
		Params: domain.Variables{"graph": domain.String("http://g"), "compress": domain.Bool(true)},
	})
	if domain.KindOf(err) != domain.ErrKindParameter {
		t.Fatalf("kind = %s, want parameter", domain.KindOf(err))
	}
}

func TestResolveParamsRejectsTypeDeclMismatch(t *testing.T) {
	_, err := Builtin().ResolveParams(domain.Step{
		ID:            "x",
		OperationType: domain.OpTransform,
		OperationName: LoadCSV,
		Params:        domain.Variables{"sourceId": domain.String("src-1")},
	})
	if err == nil {
		t.Fatal("expected error when step type disagrees with operation type")
	}
	if domain.KindOf(err) != domain.ErrKindParameter {
		t.Fatalf("kind = %s, want parameter", domain.KindOf(err))
	}
}

func TestCatalogListSorted(t *testing.T) {
	ops := Builtin().List()
	if len(ops) != 8 {
		t.Fatalf("len = %d, want 8", len(ops))
	}
	for i := 1; i < len(ops); i++ {
		if ops[i-1].Name >= ops[i].Name {
			t.Fatalf("catalog not sorted: %q before %q", ops[i-1].Name, ops[i].Name)
		}
	}
}
