// Package connections manages triplestore connections and hands out live
// connectors to the rest of the engine.
package connections

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/rdf"
	"github.com/quadflow-labs/quadflow-go/internal/repo"
	"github.com/quadflow-labs/quadflow-go/internal/triplestore"
)

type Service struct {
	connections repo.ConnectionRepository
	now         func() time.Time

	// connector clients hold per-graph write locks, so one client per
	// connection id must be reused across calls
	mu      sync.Mutex
	clients map[string]triplestore.Connector
}

func New(connectionRepo repo.ConnectionRepository) *Service {
	if connectionRepo == nil {
		return nil
	}
	return &Service{
		connections: connectionRepo,
		now:         time.Now,
		clients:     make(map[string]triplestore.Connector),
	}
}

func (s *Service) List(ctx context.Context) ([]domain.TriplestoreConnection, error) {
	conns, err := s.connections.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range conns {
		conns[i].Password = ""
	}
	return conns, nil
}

func (s *Service) Create(ctx context.Context, conn domain.TriplestoreConnection) (domain.TriplestoreConnection, error) {
	conn.ID = uuid.NewString()
	conn.CreatedAt = s.now().UTC()
	if err := conn.Validate(); err != nil {
		return domain.TriplestoreConnection{}, domain.WrapErr(domain.ErrKindValidation, err, "connection")
	}
	if err := s.connections.Create(ctx, conn); err != nil {
		return domain.TriplestoreConnection{}, err
	}
	conn.Password = ""
	return conn, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.clients, id)
	s.mu.Unlock()
	return s.connections.Delete(ctx, id)
}

// Resolve returns a live connector for the connection id. An empty id
// resolves the default connection.
func (s *Service) Resolve(ctx context.Context, connectionID string) (triplestore.Connector, error) {
	conn, err := s.lookup(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if client, ok := s.clients[conn.ID]; ok {
		return client, nil
	}
	client := triplestore.NewSPARQLClient(conn)
	s.clients[conn.ID] = client
	return client, nil
}

func (s *Service) lookup(ctx context.Context, connectionID string) (domain.TriplestoreConnection, error) {
	if connectionID != "" {
		return s.connections.Get(ctx, connectionID)
	}
	conns, err := s.connections.List(ctx)
	if err != nil {
		return domain.TriplestoreConnection{}, err
	}
	for _, c := range conns {
		if c.IsDefault {
			return c, nil
		}
	}
	if len(conns) == 1 {
		return conns[0], nil
	}
	return domain.TriplestoreConnection{}, domain.Errf(domain.ErrKindValidation, "no default triplestore connection configured")
}

// TestResult reports a connection probe.
type TestResult struct {
	Success   bool  `json:"success"`
	LatencyMs int64 `json:"latencyMs"`
}

// Test pings the connection with a bounded timeout.
func (s *Service) Test(ctx context.Context, connectionID string) (TestResult, error) {
	conn, err := s.Resolve(ctx, connectionID)
	if err != nil {
		return TestResult{}, err
	}
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	start := s.now()
	pingErr := conn.Ping(probeCtx)
	latency := s.now().Sub(start).Milliseconds()
	return TestResult{Success: pingErr == nil, LatencyMs: latency}, nil
}

func (s *Service) Graphs(ctx context.Context, connectionID string) ([]string, error) {
	conn, err := s.Resolve(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	return conn.ListGraphs(ctx)
}

func (s *Service) Query(ctx context.Context, connectionID, query string) (*triplestore.SelectResult, error) {
	conn, err := s.Resolve(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	return conn.Select(ctx, query)
}

func (s *Service) Browse(ctx context.Context, connectionID, uri string) (*triplestore.ResourceView, error) {
	conn, err := s.Resolve(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	return conn.Resource(ctx, uri)
}

// GraphSource names a data graph: either inline RDF content or a named
// graph in a connected triplestore.
type GraphSource struct {
	Content       string
	ContentFormat domain.ContentFormat
	TriplestoreID string
	GraphURI      string
}

// ResolveGraph materializes the source as a parsed graph.
func (s *Service) ResolveGraph(ctx context.Context, src GraphSource) (*rdf.Graph, error) {
	if src.Content != "" {
		var (
			g   *rdf.Graph
			err error
		)
		switch src.ContentFormat {
		case domain.ContentJSONLD:
			g, err = rdf.ParseJSONLD(src.Content)
		default:
			g, err = rdf.ParseTurtle(src.Content)
		}
		if err != nil {
			return nil, domain.WrapErr(domain.ErrKindValidation, err, "parse inline data")
		}
		return g, nil
	}
	if src.GraphURI == "" {
		return nil, domain.Errf(domain.ErrKindValidation, "either inline content or a graph uri is required")
	}
	conn, err := s.Resolve(ctx, src.TriplestoreID)
	if err != nil {
		return nil, err
	}
	g, err := conn.Graph(ctx, src.GraphURI)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.WrapErr(domain.ErrKindTimeout, err, "fetch graph")
		}
		return nil, domain.WrapErr(domain.ErrKindInfrastructure, err, "fetch graph")
	}
	return g, nil
}
