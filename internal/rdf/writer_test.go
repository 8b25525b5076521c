package rdf

import "testing"

func TestWriteNQuads(t *testing.T) {
	quads := []Quad{
		{
			Subject:   IRI("http://example.org/alice"),
			Predicate: IRI("http://example.org/name"),
			Object:    Literal("Alice"),
			Graph:     "http://example.org/people",
		},
		{
			Subject:   IRI("http://example.org/alice"),
			Predicate: IRI("http://example.org/age"),
			Object:    TypedLiteral("30", XSDInteger),
		},
	}

	got := WriteNQuads(quads)
	want := "<http://example.org/alice> <http://example.org/name> \"Alice\" <http://example.org/people> .\n" +
		"<http://example.org/alice> <http://example.org/age> \"30\"^^<" + XSDInteger + "> .\n"
	if got != want {
		t.Fatalf("serialized:\n%s\nwant:\n%s", got, want)
	}

	if WriteNQuads(nil) != "" {
		t.Fatal("empty input must serialize to an empty document")
	}
}
