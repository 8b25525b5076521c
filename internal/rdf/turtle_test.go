package rdf

import (
	"strings"
	"testing"
)

func TestParseTurtleBasics(t *testing.T) {
	input := `
@prefix ex: <http://example.org/> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .

ex:alice a ex:Person ;
    ex:name "Alice" ;
    ex:age "30"^^xsd:integer ;
    ex:label "Alice"@en ;
    ex:knows ex:bob .

ex:bob ex:name "Bob" .
`
	g, err := ParseTurtle(input)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	alice := IRI("http://example.org/alice")
	if got, ok := g.Object(alice, IRI("http://example.org/name")); !ok || got.Value != "Alice" {
		t.Fatalf("name = %+v, ok=%v", got, ok)
	}
	if got, ok := g.Object(alice, IRI("http://example.org/age")); !ok || got.Datatype != XSDInteger || got.Value != "30" {
		t.Fatalf("age = %+v", got)
	}
	if got, ok := g.Object(alice, IRI("http://example.org/label")); !ok || got.Lang != "en" {
		t.Fatalf("label = %+v", got)
	}
	if got, ok := g.Object(alice, IRI(IRIType)); !ok || got.Value != "http://example.org/Person" {
		t.Fatalf("rdf:type = %+v", got)
	}
	subjects := g.SubjectsWithType(IRI("http://example.org/Person"))
	if len(subjects) != 1 || subjects[0] != alice {
		t.Fatalf("SubjectsWithType = %v", subjects)
	}
}

func TestParseTurtleNumericAndBooleanShorthand(t *testing.T) {
	input := `
@prefix ex: <http://example.org/> .
ex:s ex:count 42 ; ex:ratio 3.14 ; ex:ok true .
`
	g, err := ParseTurtle(input)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	s := IRI("http://example.org/s")
	if got, _ := g.Object(s, IRI("http://example.org/count")); got.Datatype != XSDInteger {
		t.Fatalf("count datatype = %q", got.Datatype)
	}
	if got, _ := g.Object(s, IRI("http://example.org/ratio")); got.Datatype != XSDDecimal {
		t.Fatalf("ratio datatype = %q", got.Datatype)
	}
	if got, _ := g.Object(s, IRI("http://example.org/ok")); got.Datatype != XSDBoolean || got.Value != "true" {
		t.Fatalf("ok = %+v", got)
	}
}

func TestParseTurtleCollection(t *testing.T) {
	input := `
@prefix ex: <http://example.org/> .
ex:s ex:items ( ex:a ex:b ex:c ) .
`
	g, err := ParseTurtle(input)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	head, ok := g.Object(IRI("http://example.org/s"), IRI("http://example.org/items"))
	if !ok {
		t.Fatal("list head missing")
	}
	items, ok := g.List(head)
	if !ok || len(items) != 3 {
		t.Fatalf("List = %v, ok=%v", items, ok)
	}
	if items[0].Value != "http://example.org/a" || items[2].Value != "http://example.org/c" {
		t.Fatalf("unexpected list items: %v", items)
	}
}

func TestParseTurtleBlankNodePropertyList(t *testing.T) {
	input := `
@prefix ex: <http://example.org/> .
ex:s ex:prop [ ex:name "nested" ] .
`
	g, err := ParseTurtle(input)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	node, ok := g.Object(IRI("http://example.org/s"), IRI("http://example.org/prop"))
	if !ok || !node.IsBlank() {
		t.Fatalf("prop = %+v, ok=%v", node, ok)
	}
	if got, ok := g.Object(node, IRI("http://example.org/name")); !ok || got.Value != "nested" {
		t.Fatalf("nested name = %+v", got)
	}
}

func TestParseTurtleReportsPosition(t *testing.T) {
	_, err := ParseTurtle("@prefix ex: <http://example.org/> .\nex:s ex:p .")
	if err == nil {
		t.Fatal("truncated triple accepted")
	}
	var perr *ParseError
	if !asParseError(err, &perr) {
		t.Fatalf("error type %T", err)
	}
	if perr.Line < 2 {
		t.Fatalf("line = %d, want >= 2", perr.Line)
	}
}

func asParseError(err error, target **ParseError) bool {
	pe, ok := err.(*ParseError)
	if ok {
		*target = pe
	}
	return ok
}

func TestWriteTurtleRoundTrip(t *testing.T) {
	g := NewGraph()
	s := IRI("http://example.org/obs/1")
	g.AddTriple(s, IRI(IRIType), IRI("http://example.org/Observation"))
	g.AddTriple(s, IRI("http://example.org/value"), TypedLiteral("12", XSDInteger))
	g.AddTriple(s, IRI("http://example.org/note"), LangLiteral("zwölf", "de"))

	out := WriteTurtle(g, map[string]string{"ex": "http://example.org/"})
	reparsed, err := ParseTurtle(out)
	if err != nil {
		t.Fatalf("reparse: %v\n%s", err, out)
	}
	if reparsed.Len() != g.Len() {
		t.Fatalf("len = %d, want %d\n%s", reparsed.Len(), g.Len(), out)
	}
	if got, ok := reparsed.Object(s, IRI("http://example.org/note")); !ok || got.Lang != "de" {
		t.Fatalf("note = %+v", got)
	}
	if !strings.Contains(out, "@prefix ex:") {
		t.Fatalf("prefix not emitted:\n%s", out)
	}
}
