package triplestore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/rdf"
)

// SPARQLClient talks the SPARQL 1.1 protocol to a remote store. The wire
// encoding of the query language itself is the store's concern; this client
// only transports queries and updates.
type SPARQLClient struct {
	conn  domain.TriplestoreConnection
	http  *http.Client
	locks *graphLocks
}

func NewSPARQLClient(conn domain.TriplestoreConnection) *SPARQLClient {
	return &SPARQLClient{
		conn:  conn,
		http:  &http.Client{Timeout: 60 * time.Second},
		locks: newGraphLocks(),
	}
}

func (c *SPARQLClient) Ping(ctx context.Context) error {
	_, err := c.Select(ctx, "SELECT ?s WHERE { ?s ?p ?o } LIMIT 1")
	return err
}

func (c *SPARQLClient) ListGraphs(ctx context.Context) ([]string, error) {
	res, err := c.Select(ctx, "SELECT DISTINCT ?g WHERE { GRAPH ?g { ?s ?p ?o } }")
	if err != nil {
		return nil, err
	}
	graphs := make([]string, 0, len(res.Bindings))
	for _, b := range res.Bindings {
		if g, ok := b["g"]; ok {
			graphs = append(graphs, g.Value)
		}
	}
	return graphs, nil
}

func (c *SPARQLClient) Select(ctx context.Context, query string) (*SelectResult, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.conn.QueryEndpoint, strings.NewReader(query))
	if err != nil {
		return nil, domain.WrapErr(domain.ErrKindInfrastructure, err, "build query request")
	}
	req.Header.Set("Content-Type", "application/sparql-query")
	req.Header.Set("Accept", "application/sparql-results+json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.WrapErr(domain.ErrKindInfrastructure, err, "query triplestore")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, domain.Errf(domain.ErrKindValidation, "malformed query: %s", strings.TrimSpace(string(body)))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.Errf(domain.ErrKindInfrastructure, "triplestore returned status %d", resp.StatusCode)
	}

	var payload struct {
		Head struct {
			Vars []string `json:"vars"`
		} `json:"head"`
		Results struct {
			Bindings []map[string]BoundTerm `json:"bindings"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, domain.WrapErr(domain.ErrKindInfrastructure, err, "decode query result")
	}
	return &SelectResult{
		Variables:     payload.Head.Vars,
		Bindings:      payload.Results.Bindings,
		ExecutionTime: time.Since(start),
	}, nil
}

func (c *SPARQLClient) Graph(ctx context.Context, graphURI string) (*rdf.Graph, error) {
	query := fmt.Sprintf("SELECT ?s ?p ?o WHERE { GRAPH <%s> { ?s ?p ?o } }", graphURI)
	res, err := c.Select(ctx, query)
	if err != nil {
		return nil, err
	}
	g := rdf.NewGraph()
	for _, b := range res.Bindings {
		s, sok := b["s"]
		p, pok := b["p"]
		o, ook := b["o"]
		if !sok || !pok || !ook {
			continue
		}
		g.Add(rdf.Quad{
			Subject:   boundTermToRDF(s),
			Predicate: boundTermToRDF(p),
			Object:    boundTermToRDF(o),
			Graph:     graphURI,
		})
	}
	return g, nil
}

func (c *SPARQLClient) Write(ctx context.Context, graphURI string, quads []rdf.Quad, mode WriteMode) error {
	unlock := c.locks.Acquire(graphURI)
	defer unlock()

	var b strings.Builder
	if mode == ModeReplace {
		fmt.Fprintf(&b, "DROP SILENT GRAPH <%s> ;\n", graphURI)
	}
	fmt.Fprintf(&b, "INSERT DATA { GRAPH <%s> {\n", graphURI)
	for _, q := range quads {
		b.WriteString(q.Subject.String())
		b.WriteString(" ")
		b.WriteString(q.Predicate.String())
		b.WriteString(" ")
		b.WriteString(q.Object.String())
		b.WriteString(" .\n")
	}
	b.WriteString("} }")
	return c.update(ctx, b.String())
}

func (c *SPARQLClient) update(ctx context.Context, update string) error {
	endpoint := c.conn.UpdateEndpoint
	if endpoint == "" {
		endpoint = c.conn.QueryEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(update))
	if err != nil {
		return domain.WrapErr(domain.ErrKindInfrastructure, err, "build update request")
	}
	req.Header.Set("Content-Type", "application/sparql-update")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.WrapErr(domain.ErrKindInfrastructure, err, "update triplestore")
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return domain.Errf(domain.ErrKindInfrastructure, "triplestore update returned status %d", resp.StatusCode)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *SPARQLClient) Resource(ctx context.Context, uri string) (*ResourceView, error) {
	out, err := c.Select(ctx, fmt.Sprintf("SELECT ?p ?o WHERE { <%s> ?p ?o }", uri))
	if err != nil {
		return nil, err
	}
	in, err := c.Select(ctx, fmt.Sprintf("SELECT ?s ?p WHERE { ?s ?p <%s> }", uri))
	if err != nil {
		return nil, err
	}

	view := &ResourceView{URI: uri}
	subject := rdf.IRI(uri)
	for _, b := range out.Bindings {
		p, pok := b["p"]
		o, ook := b["o"]
		if !pok || !ook {
			continue
		}
		view.Outgoing = append(view.Outgoing, rdf.Quad{
			Subject:   subject,
			Predicate: boundTermToRDF(p),
			Object:    boundTermToRDF(o),
		})
	}
	for _, b := range in.Bindings {
		s, sok := b["s"]
		p, pok := b["p"]
		if !sok || !pok {
			continue
		}
		view.Incoming = append(view.Incoming, rdf.Quad{
			Subject:   boundTermToRDF(s),
			Predicate: boundTermToRDF(p),
			Object:    subject,
		})
	}
	return view, nil
}

func (c *SPARQLClient) authorize(req *http.Request) {
	if c.conn.Username != "" {
		req.SetBasicAuth(c.conn.Username, c.conn.Password)
	}
}
