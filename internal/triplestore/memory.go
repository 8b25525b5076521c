package triplestore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/rdf"
)

// MemoryStore is an in-process store used for local development and tests.
// Writes are serialized per graph like any other connector.
type MemoryStore struct {
	mu     sync.RWMutex
	graphs map[string]*rdf.Graph
	locks  *graphLocks
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		graphs: make(map[string]*rdf.Graph),
		locks:  newGraphLocks(),
	}
}

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemoryStore) ListGraphs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.graphs))
	for g := range s.graphs {
		out = append(out, g)
	}
	sort.Strings(out)
	return out, nil
}

// Select supports only the full-scan form used by smoke checks; anything
// else requires a real SPARQL store.
func (s *MemoryStore) Select(ctx context.Context, query string) (*SelectResult, error) {
	start := time.Now()
	normalized := strings.Join(strings.Fields(strings.ToUpper(query)), " ")
	if !strings.Contains(normalized, "?S ?P ?O") {
		return nil, domain.Errf(domain.ErrKindValidation, "memory store supports only { ?s ?p ?o } scans")
	}
	limit := 0
	if idx := strings.LastIndex(normalized, "LIMIT "); idx >= 0 {
		fields := strings.Fields(normalized[idx:])
		if len(fields) >= 2 {
			for _, r := range fields[1] {
				limit = limit*10 + int(r-'0')
			}
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	res := &SelectResult{Variables: []string{"s", "p", "o"}}
	for _, name := range sortedGraphNames(s.graphs) {
		for _, q := range s.graphs[name].Quads() {
			res.Bindings = append(res.Bindings, map[string]BoundTerm{
				"s": rdfToBoundTerm(q.Subject),
				"p": rdfToBoundTerm(q.Predicate),
				"o": rdfToBoundTerm(q.Object),
			})
			if limit > 0 && len(res.Bindings) >= limit {
				res.ExecutionTime = time.Since(start)
				return res, nil
			}
		}
	}
	res.ExecutionTime = time.Since(start)
	return res, nil
}

func (s *MemoryStore) Graph(ctx context.Context, graphURI string) (*rdf.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.graphs[graphURI]
	if !ok {
		return rdf.NewGraph(), nil
	}
	out := rdf.NewGraph()
	for _, q := range g.Quads() {
		out.Add(q)
	}
	return out, nil
}

func (s *MemoryStore) Write(ctx context.Context, graphURI string, quads []rdf.Quad, mode WriteMode) error {
	unlock := s.locks.Acquire(graphURI)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.graphs[graphURI]
	if !ok || mode == ModeReplace {
		g = rdf.NewGraph()
		s.graphs[graphURI] = g
	}
	for _, q := range quads {
		q.Graph = graphURI
		g.Add(q)
	}
	return ctx.Err()
}

func (s *MemoryStore) Resource(ctx context.Context, uri string) (*ResourceView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view := &ResourceView{URI: uri}
	subject := rdf.IRI(uri)
	for _, name := range sortedGraphNames(s.graphs) {
		g := s.graphs[name]
		for _, i := range g.Quads() {
			switch {
			case i.Subject == subject:
				view.Outgoing = append(view.Outgoing, i)
			case i.Object == subject:
				view.Incoming = append(view.Incoming, i)
			}
		}
	}
	return view, nil
}

func sortedGraphNames(graphs map[string]*rdf.Graph) []string {
	names := make([]string, 0, len(graphs))
	for n := range graphs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
