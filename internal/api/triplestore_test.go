package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/repo"
	"github.com/quadflow-labs/quadflow-go/internal/service/connections"
)

type memConnRepo struct {
	conns []domain.TriplestoreConnection
}

func (m *memConnRepo) Create(_ context.Context, c domain.TriplestoreConnection) error {
	m.conns = append(m.conns, c)
	return nil
}

func (m *memConnRepo) Get(_ context.Context, id string) (domain.TriplestoreConnection, error) {
	for _, c := range m.conns {
		if c.ID == id {
			return c, nil
		}
	}
	return domain.TriplestoreConnection{}, repo.ErrNotFound
}

func (m *memConnRepo) List(_ context.Context) ([]domain.TriplestoreConnection, error) {
	return m.conns, nil
}

func (m *memConnRepo) Delete(_ context.Context, id string) error {
	for i, c := range m.conns {
		if c.ID == id {
			m.conns = append(m.conns[:i], m.conns[i+1:]...)
			return nil
		}
	}
	return repo.ErrNotFound
}

func TestExportGraphAsNQuads(t *testing.T) {
	sparql := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/sparql-results+json")
		_, _ = w.Write([]byte(`{
			"head": {"vars": ["s", "p", "o"]},
			"results": {"bindings": [
				{
					"s": {"type": "uri", "value": "http://example.org/alice"},
					"p": {"type": "uri", "value": "http://example.org/name"},
					"o": {"type": "literal", "value": "Alice"}
				}
			]}
		}`))
	}))
	defer sparql.Close()

	store := &memConnRepo{conns: []domain.TriplestoreConnection{{
		ID:            "conn-1",
		Name:          "local",
		QueryEndpoint: sparql.URL,
		IsDefault:     true,
	}}}
	mux := http.NewServeMux()
	newTriplestoreAPI(connections.New(store)).register(mux)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/triplestore/export?connectionId=conn-1&graph=http%3A%2F%2Fexample.org%2Fpeople", nil)
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/n-quads" {
		t.Fatalf("content type = %q", ct)
	}
	want := "<http://example.org/alice> <http://example.org/name> \"Alice\" <http://example.org/people> .\n"
	if rec.Body.String() != want {
		t.Fatalf("body = %q, want %q", rec.Body.String(), want)
	}
}

func TestExportRequiresGraphParam(t *testing.T) {
	mux := http.NewServeMux()
	newTriplestoreAPI(connections.New(&memConnRepo{})).register(mux)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/triplestore/export?connectionId=conn-1", nil)
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "graph_required") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}
