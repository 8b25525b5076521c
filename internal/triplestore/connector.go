// Package triplestore abstracts read/write/query access to RDF stores.
package triplestore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/quadflow-labs/quadflow-go/internal/rdf"
)

// WriteMode controls how an OUTPUT write treats existing graph content.
type WriteMode string

const (
	ModeReplace WriteMode = "replace"
	ModeAppend  WriteMode = "append"
)

func ParseWriteMode(s string) (WriteMode, error) {
	m := WriteMode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModeReplace, ModeAppend:
		return m, nil
	default:
		return "", fmt.Errorf("unknown write mode %q", s)
	}
}

// BoundTerm is one SPARQL result binding in SPARQL-JSON shape.
type BoundTerm struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

// SelectResult is a tabular SPARQL query result.
type SelectResult struct {
	Variables     []string               `json:"variables"`
	Bindings      []map[string]BoundTerm `json:"bindings"`
	ExecutionTime time.Duration          `json:"executionTime"`
}

// ResourceView is the browse-by-URI projection: all statements where the
// resource is subject, and all where it is object.
type ResourceView struct {
	URI      string     `json:"uri"`
	Outgoing []rdf.Quad `json:"-"`
	Incoming []rdf.Quad `json:"-"`
}

// Connector is the engine's access to one RDF store. Implementations must
// serialize Write calls per graph URI: concurrent appends to the same graph
// union rather than corrupt.
type Connector interface {
	Ping(ctx context.Context) error
	ListGraphs(ctx context.Context) ([]string, error)
	Select(ctx context.Context, query string) (*SelectResult, error)
	Graph(ctx context.Context, graphURI string) (*rdf.Graph, error)
	Write(ctx context.Context, graphURI string, quads []rdf.Quad, mode WriteMode) error
	Resource(ctx context.Context, uri string) (*ResourceView, error)
}

// graphLocks hands out one mutex per graph URI.
type graphLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newGraphLocks() *graphLocks {
	return &graphLocks{locks: make(map[string]*sync.Mutex)}
}

// Acquire locks the graph's mutex and returns the unlock func.
func (l *graphLocks) Acquire(graphURI string) func() {
	l.mu.Lock()
	m, ok := l.locks[graphURI]
	if !ok {
		m = &sync.Mutex{}
		l.locks[graphURI] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func boundTermToRDF(b BoundTerm) rdf.Term {
	switch b.Type {
	case "uri":
		return rdf.IRI(b.Value)
	case "bnode":
		return rdf.Blank(b.Value)
	default:
		if b.Lang != "" {
			return rdf.LangLiteral(b.Value, b.Lang)
		}
		return rdf.TypedLiteral(b.Value, b.Datatype)
	}
}

func rdfToBoundTerm(t rdf.Term) BoundTerm {
	switch t.Kind {
	case rdf.TermIRI:
		return BoundTerm{Type: "uri", Value: t.Value}
	case rdf.TermBlank:
		return BoundTerm{Type: "bnode", Value: t.Value}
	default:
		bt := BoundTerm{Type: "literal", Value: t.Value, Lang: t.Lang}
		if t.Lang == "" && t.Datatype != rdf.XSDString {
			bt.Datatype = t.Datatype
		}
		return bt
	}
}
