package postgres

import (
	"strings"
	"testing"
)

func TestPipelineInsertAssignsNextVersion(t *testing.T) {
	if !strings.Contains(insertPipelineQuery, "COALESCE(MAX(version), 0) + 1") {
		t.Fatalf("expected atomic version assignment in pipeline insert query")
	}
	if !strings.Contains(insertPipelineQuery, "RETURNING version") {
		t.Fatalf("expected pipeline insert query to return the assigned version")
	}
}

func TestShapeInsertAssignsNextVersion(t *testing.T) {
	if !strings.Contains(insertShapeQuery, "COALESCE(MAX(version), 0) + 1") {
		t.Fatalf("expected atomic version assignment in shape insert query")
	}
	if !strings.Contains(insertShapeQuery, "RETURNING version") {
		t.Fatalf("expected shape insert query to return the assigned version")
	}
}

func TestJobUpdateGuardsTerminalStatuses(t *testing.T) {
	if !strings.Contains(updateJobQuery, "status NOT IN ('completed','failed','cancelled')") {
		t.Fatalf("expected terminal status guard in job update predicate")
	}
	if strings.Contains(updateJobQuery, "created_at") {
		t.Fatalf("job update must not touch immutable columns")
	}
}

func TestSchemaStatementsAreIdempotent(t *testing.T) {
	for i, stmt := range schemaStatements {
		if !strings.Contains(stmt, "IF NOT EXISTS") {
			t.Fatalf("schema statement %d is not idempotent: %s", i, stmt)
		}
	}
}
