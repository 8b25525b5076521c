package triplestore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/quadflow-labs/quadflow-go/internal/rdf"
)

const graphURI = "http://example.org/graph/test"

func quadFor(i int) rdf.Quad {
	return rdf.Quad{
		Subject:   rdf.IRI(fmt.Sprintf("http://example.org/s/%d", i)),
		Predicate: rdf.IRI("http://example.org/p"),
		Object:    rdf.Literal(fmt.Sprintf("v%d", i)),
	}
}

func TestMemoryStoreReplaceAndAppend(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Write(ctx, graphURI, []rdf.Quad{quadFor(1), quadFor(2)}, ModeReplace); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(ctx, graphURI, []rdf.Quad{quadFor(3)}, ModeAppend); err != nil {
		t.Fatal(err)
	}
	g, err := s.Graph(ctx, graphURI)
	if err != nil {
		t.Fatal(err)
	}
	if g.Len() != 3 {
		t.Fatalf("after append: %d quads, want 3", g.Len())
	}

	if err := s.Write(ctx, graphURI, []rdf.Quad{quadFor(9)}, ModeReplace); err != nil {
		t.Fatal(err)
	}
	g, _ = s.Graph(ctx, graphURI)
	if g.Len() != 1 {
		t.Fatalf("after replace: %d quads, want 1", g.Len())
	}

	graphs, err := s.ListGraphs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(graphs) != 1 || graphs[0] != graphURI {
		t.Fatalf("graphs = %v", graphs)
	}
}

func TestMemoryStoreConcurrentAppendKeepsUnion(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	const writers = 8
	const perWriter = 25
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				q := quadFor(w*perWriter + i)
				if err := s.Write(ctx, graphURI, []rdf.Quad{q}, ModeAppend); err != nil {
					t.Errorf("writer %d: %v", w, err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	g, err := s.Graph(ctx, graphURI)
	if err != nil {
		t.Fatal(err)
	}
	if g.Len() != writers*perWriter {
		t.Fatalf("union = %d quads, want %d", g.Len(), writers*perWriter)
	}
}

func TestMemoryStoreSelectScan(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Write(ctx, graphURI, []rdf.Quad{quadFor(1), quadFor(2), quadFor(3)}, ModeReplace); err != nil {
		t.Fatal(err)
	}

	res, err := s.Select(ctx, "SELECT * WHERE { ?s ?p ?o } LIMIT 2")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(res.Bindings) != 2 {
		t.Fatalf("bindings = %d, want 2", len(res.Bindings))
	}
	if len(res.Variables) != 3 {
		t.Fatalf("variables = %v", res.Variables)
	}

	if _, err := s.Select(ctx, "SELECT ?s WHERE { ?s a ?type }"); err == nil {
		t.Fatal("non-scan query should be rejected")
	}
}

func TestMemoryStoreResource(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	subject := rdf.IRI("http://example.org/node")
	err := s.Write(ctx, graphURI, []rdf.Quad{
		{Subject: subject, Predicate: rdf.IRI("http://example.org/name"), Object: rdf.Literal("node")},
		{Subject: rdf.IRI("http://example.org/other"), Predicate: rdf.IRI("http://example.org/ref"), Object: subject},
	}, ModeReplace)
	if err != nil {
		t.Fatal(err)
	}

	view, err := s.Resource(ctx, "http://example.org/node")
	if err != nil {
		t.Fatalf("Resource: %v", err)
	}
	if len(view.Outgoing) != 1 || len(view.Incoming) != 1 {
		t.Fatalf("outgoing = %d, incoming = %d", len(view.Outgoing), len(view.Incoming))
	}
	if view.Outgoing[0].Object != rdf.Literal("node") {
		t.Fatalf("outgoing object = %v", view.Outgoing[0].Object)
	}
}
