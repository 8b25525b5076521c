package shacl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/rdf"
)

func TestInferProperties(t *testing.T) {
	data, err := rdf.ParseTurtle(`
@prefix ex: <http://example.org/> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .

ex:a a ex:Person ; ex:name "Alice" ; ex:age "30"^^xsd:integer ; ex:knows ex:b .
ex:b a ex:Person ; ex:name "Bob" ; ex:knows ex:a ; ex:knows ex:c .
`)
	require.NoError(t, err)

	props := InferProperties(data, rdf.IRI("http://example.org/Person"))
	require.Len(t, props, 3)

	byPath := make(map[string]domain.PropertyShape, len(props))
	for _, p := range props {
		byPath[p.Path] = p
	}

	name := byPath["http://example.org/name"]
	require.NotNil(t, name.MinCount, "name present on every instance")
	assert.Equal(t, 1, *name.MinCount)
	require.NotNil(t, name.MaxCount)
	assert.Equal(t, 1, *name.MaxCount)
	assert.Equal(t, rdf.XSDString, name.Datatype)

	age := byPath["http://example.org/age"]
	assert.Nil(t, age.MinCount, "age missing on one instance")
	assert.Equal(t, rdf.XSDInteger, age.Datatype)

	knows := byPath["http://example.org/knows"]
	assert.Nil(t, knows.MaxCount, "ex:b repeats ex:knows")
	assert.Equal(t, IRIKindIRI, knows.NodeKind)
	assert.Empty(t, knows.Datatype)
}

func TestInferPropertiesNoInstances(t *testing.T) {
	data := rdf.NewGraph()
	assert.Nil(t, InferProperties(data, rdf.IRI("http://example.org/Person")))
}

func TestBuildShapeGraphRoundTrip(t *testing.T) {
	one := 1
	shape := domain.Shape{
		URI:         "http://example.org/PersonShape",
		Name:        "Person",
		TargetClass: "http://example.org/Person",
		Properties: []domain.PropertyShape{
			{
				Path:     "http://example.org/name",
				Datatype: rdf.XSDString,
				MinCount: &one,
				MaxCount: &one,
				Message:  "name required",
			},
			{
				Path: "http://example.org/status",
				In:   []string{"active", "retired"},
			},
		},
	}

	g := BuildShapeGraph(shape)
	turtle := rdf.WriteTurtle(g, DefaultPrefixes())

	reparsed, err := rdf.ParseTurtle(turtle)
	require.NoError(t, err, turtle)
	shapes, err := ParseShapes(reparsed)
	require.NoError(t, err)
	require.Len(t, shapes, 1)

	parsed := shapes[0]
	assert.Equal(t, "http://example.org/Person", parsed.TargetClass.Value)
	require.Len(t, parsed.Properties, 2)

	var name, status *PropertyConstraint
	for i := range parsed.Properties {
		switch parsed.Properties[i].Path.Value {
		case "http://example.org/name":
			name = &parsed.Properties[i]
		case "http://example.org/status":
			status = &parsed.Properties[i]
		}
	}
	require.NotNil(t, name)
	require.NotNil(t, status)

	require.NotNil(t, name.MinCount)
	assert.Equal(t, 1, *name.MinCount)
	assert.Equal(t, "name required", name.Message)
	assert.Len(t, status.In, 2)
}
