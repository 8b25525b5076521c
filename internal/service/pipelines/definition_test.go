package pipelines

import (
	"testing"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
)

const yamlDefinition = `
name: census ingest
description: load, cube and publish census figures
variables:
  sourceId: src-1
  year: 2024
tags: [census, monthly]
steps:
  - id: load
    type: source
    operation: load_csv
    params:
      sourceId: "${sourceId}"
      hasHeader: true
  - name: map cube
    type: cube
    operation: map_cube
    timeoutSeconds: 120
    params:
      cube: http://example.org/cube/census
      dimensions:
        canton: http://example.org/dim/canton
      measures:
        pop: http://example.org/measure/pop
`

func TestParseDefinitionYAML(t *testing.T) {
	p, err := ParseDefinition(yamlDefinition, domain.FormatYAML)
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}
	if p.Name != "census ingest" {
		t.Fatalf("name = %q", p.Name)
	}
	if len(p.Tags) != 2 || p.Tags[0] != "census" {
		t.Fatalf("tags = %v", p.Tags)
	}
	if !p.Variables["year"].Equal(domain.Number(2024)) {
		t.Fatalf("year = %v", p.Variables["year"])
	}
	if len(p.Steps) != 2 {
		t.Fatalf("steps = %d", len(p.Steps))
	}
	if p.Steps[0].ID != "load" || p.Steps[0].OperationType != domain.OpSource {
		t.Fatalf("step 0 = %+v", p.Steps[0])
	}
	if !p.Steps[0].Params["hasHeader"].Equal(domain.Bool(true)) {
		t.Fatalf("hasHeader = %v", p.Steps[0].Params["hasHeader"])
	}
	// A step without an id gets a positional one.
	if p.Steps[1].ID != "step-2" {
		t.Fatalf("step 1 id = %q", p.Steps[1].ID)
	}
	if p.Steps[1].TimeoutSeconds != 120 {
		t.Fatalf("timeout = %d", p.Steps[1].TimeoutSeconds)
	}
	dims := p.Steps[1].Params["dimensions"]
	if entry, _ := dims.Entry("canton"); entry.Str() != "http://example.org/dim/canton" {
		t.Fatalf("dimension binding = %v", entry)
	}
}

func TestParseDefinitionJSON(t *testing.T) {
	def := `{
  "name": "minimal",
  "steps": [
    {"id": "v", "type": "validation", "operation": "shacl_validate",
     "params": {"shapeId": "shape-1", "failOnViolation": false}}
  ]
}`
	p, err := ParseDefinition(def, domain.FormatJSON)
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}
	if len(p.Steps) != 1 || p.Steps[0].OperationType != domain.OpValidation {
		t.Fatalf("steps = %+v", p.Steps)
	}
	if !p.Steps[0].Params["failOnViolation"].Equal(domain.Bool(false)) {
		t.Fatalf("failOnViolation = %v", p.Steps[0].Params["failOnViolation"])
	}
}

func TestParseDefinitionRejectsUnknownStepType(t *testing.T) {
	def := `
name: broken
steps:
  - id: x
    type: teleport
    operation: load_csv
`
	_, err := ParseDefinition(def, domain.FormatYAML)
	if domain.KindOf(err) != domain.ErrKindValidation {
		t.Fatalf("kind = %s, want validation", domain.KindOf(err))
	}
}

func TestParseDefinitionRejectsMalformedDocument(t *testing.T) {
	if _, err := ParseDefinition("{not json", domain.FormatJSON); err == nil {
		t.Fatal("expected json error")
	}
	if _, err := ParseDefinition("steps: [", domain.FormatYAML); err == nil {
		t.Fatal("expected yaml error")
	}
	if _, err := ParseDefinition("name: x", "toml"); err == nil {
		t.Fatal("expected unknown format error")
	}
}

const turtleDefinition = `
@prefix qf: <https://vocab.quadflow.dev/pipeline#> .
@prefix ex: <http://example.org/> .

ex:census a qf:Pipeline ;
    qf:name "census turtle" ;
    qf:tag "census" ;
    qf:variable [ qf:variableName "sourceId" ; qf:paramValue "src-1" ] ;
    qf:steps (
        [ qf:stepId "load" ; qf:stepType "source" ; qf:operation "load_csv" ;
          qf:param [ qf:paramName "sourceId" ; qf:paramValue "${sourceId}" ] ;
          qf:param [ qf:paramName "limit" ; qf:paramValue 500 ] ]
        [ qf:stepId "validate" ; qf:stepType "validation" ; qf:operation "shacl_validate" ;
          qf:param [ qf:paramName "shapeId" ; qf:paramValue "shape-1" ] ;
          qf:param [ qf:paramName "failOnViolation" ; qf:paramValue true ] ]
    ) .
`

func TestParseDefinitionTurtle(t *testing.T) {
	p, err := ParseDefinition(turtleDefinition, domain.FormatTurtle)
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}
	if p.Name != "census turtle" {
		t.Fatalf("name = %q", p.Name)
	}
	if p.Variables["sourceId"].Str() != "src-1" {
		t.Fatalf("variables = %v", p.Variables)
	}
	if len(p.Steps) != 2 {
		t.Fatalf("steps = %d", len(p.Steps))
	}
	// The rdf:List preserves step order.
	if p.Steps[0].ID != "load" || p.Steps[1].ID != "validate" {
		t.Fatalf("order = %q, %q", p.Steps[0].ID, p.Steps[1].ID)
	}
	// xsd-typed literals arrive as typed params.
	if !p.Steps[0].Params["limit"].Equal(domain.Number(500)) {
		t.Fatalf("limit = %v", p.Steps[0].Params["limit"])
	}
	if !p.Steps[1].Params["failOnViolation"].Equal(domain.Bool(true)) {
		t.Fatalf("failOnViolation = %v", p.Steps[1].Params["failOnViolation"])
	}
}

func TestParseDefinitionTurtleRequiresSinglePipeline(t *testing.T) {
	_, err := ParseDefinition(`@prefix qf: <https://vocab.quadflow.dev/pipeline#> .`, domain.FormatTurtle)
	if domain.KindOf(err) != domain.ErrKindValidation {
		t.Fatalf("kind = %s, want validation", domain.KindOf(err))
	}
}
