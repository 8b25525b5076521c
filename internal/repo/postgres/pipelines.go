package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/repo"
)

const insertPipelineQuery = `INSERT INTO pipelines (
		pipeline_id,
		version,
		name,
		description,
		steps,
		variables,
		tags,
		created_by,
		created_at
	) SELECT $1, COALESCE(MAX(version), 0) + 1, $2, $3, $4, $5, $6, $7, $8
	  FROM pipelines WHERE pipeline_id = $1
	RETURNING version`

const selectPipelineColumns = `pipeline_id, version, name, description, steps, variables, tags, created_by, created_at`

type PipelineStore struct {
	db DB
}

func NewPipelineStore(db DB) *PipelineStore {
	if db == nil {
		return nil
	}
	return &PipelineStore{db: db}
}

// CreateVersion inserts the pipeline as the next version of its id. The
// version is assigned inside the insert so concurrent edits cannot produce
// duplicate versions.
func (s *PipelineStore) CreateVersion(ctx context.Context, p domain.Pipeline) (domain.Pipeline, error) {
	if s == nil || s.db == nil {
		return domain.Pipeline{}, fmt.Errorf("pipeline store not initialized")
	}
	stepsJSON, err := encodeJSON(stepsToRecords(p.Steps))
	if err != nil {
		return domain.Pipeline{}, fmt.Errorf("encode steps: %w", err)
	}
	varsJSON, err := encodeVariables(p.Variables)
	if err != nil {
		return domain.Pipeline{}, fmt.Errorf("encode variables: %w", err)
	}
	tagsJSON, err := encodeJSON(p.Tags)
	if err != nil {
		return domain.Pipeline{}, fmt.Errorf("encode tags: %w", err)
	}
	p.CreatedAt = normalizeTime(p.CreatedAt)

	row := s.db.QueryRowContext(
		ctx,
		insertPipelineQuery,
		strings.TrimSpace(p.ID),
		strings.TrimSpace(p.Name),
		p.Description,
		stepsJSON,
		varsJSON,
		tagsJSON,
		nullIfEmpty(p.CreatedBy),
		p.CreatedAt,
	)
	if err := row.Scan(&p.Version); err != nil {
		return domain.Pipeline{}, fmt.Errorf("insert pipeline: %w", err)
	}
	if err := p.Validate(); err != nil {
		return domain.Pipeline{}, err
	}
	return p, nil
}

func (s *PipelineStore) Get(ctx context.Context, id string) (domain.Pipeline, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+selectPipelineColumns+`
		   FROM pipelines
		  WHERE pipeline_id = $1
		  ORDER BY version DESC
		  LIMIT 1`,
		strings.TrimSpace(id),
	)
	return scanPipeline(row)
}

func (s *PipelineStore) GetVersion(ctx context.Context, id string, version int64) (domain.Pipeline, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+selectPipelineColumns+`
		   FROM pipelines
		  WHERE pipeline_id = $1 AND version = $2`,
		strings.TrimSpace(id),
		version,
	)
	return scanPipeline(row)
}

func (s *PipelineStore) List(ctx context.Context, filter repo.PipelineFilter) ([]domain.Pipeline, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT DISTINCT ON (pipeline_id) `+selectPipelineColumns+`
		   FROM pipelines
		  WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
		    AND ($2 = '' OR tags ? $2)
		  ORDER BY pipeline_id, version DESC
		  LIMIT $3 OFFSET $4`,
		strings.TrimSpace(filter.Search),
		strings.TrimSpace(filter.Tag),
		limit,
		max(filter.Offset, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("list pipelines: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Pipeline
	for rows.Next() {
		p, err := scanPipelineRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PipelineStore) ListVersions(ctx context.Context, id string) ([]int64, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT version FROM pipelines WHERE pipeline_id = $1 ORDER BY version`,
		strings.TrimSpace(id),
	)
	if err != nil {
		return nil, fmt.Errorf("list pipeline versions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, repo.ErrNotFound
	}
	return out, rows.Err()
}

func (s *PipelineStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pipelines WHERE pipeline_id = $1`, strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("delete pipeline: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// stepRecord is the JSON projection of a step stored in the steps column.
type stepRecord struct {
	ID             string           `json:"id"`
	Name           string           `json:"name,omitempty"`
	OperationType  string           `json:"operationType"`
	OperationName  string           `json:"operationName"`
	Params         domain.Variables `json:"params,omitempty"`
	TimeoutSeconds int              `json:"timeoutSeconds,omitempty"`
}

func stepsToRecords(steps []domain.Step) []stepRecord {
	out := make([]stepRecord, 0, len(steps))
	for _, st := range steps {
		out = append(out, stepRecord{
			ID:             st.ID,
			Name:           st.Name,
			OperationType:  string(st.OperationType),
			OperationName:  st.OperationName,
			Params:         st.Params,
			TimeoutSeconds: st.TimeoutSeconds,
		})
	}
	return out
}

func recordsToSteps(records []stepRecord) []domain.Step {
	out := make([]domain.Step, 0, len(records))
	for _, r := range records {
		out = append(out, domain.Step{
			ID:             r.ID,
			Name:           r.Name,
			OperationType:  domain.OperationType(r.OperationType),
			OperationName:  r.OperationName,
			Params:         r.Params,
			TimeoutSeconds: r.TimeoutSeconds,
		})
	}
	return out
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPipeline(row *sql.Row) (domain.Pipeline, error) {
	p, err := scanPipelineRows(row)
	if err != nil {
		return domain.Pipeline{}, handleNotFound(err)
	}
	return p, nil
}

func scanPipelineRows(row rowScanner) (domain.Pipeline, error) {
	var (
		p        domain.Pipeline
		stepsRaw []byte
		varsRaw  []byte
		tagsRaw  []byte
	)
	if err := row.Scan(&p.ID, &p.Version, &p.Name, &p.Description, &stepsRaw, &varsRaw, &tagsRaw, &scanNullString{&p.CreatedBy}, &p.CreatedAt); err != nil {
		return domain.Pipeline{}, err
	}
	var records []stepRecord
	if err := decodeJSON(stepsRaw, &records); err != nil {
		return domain.Pipeline{}, fmt.Errorf("decode steps: %w", err)
	}
	p.Steps = recordsToSteps(records)
	vars, err := decodeVariables(varsRaw)
	if err != nil {
		return domain.Pipeline{}, fmt.Errorf("decode variables: %w", err)
	}
	p.Variables = vars
	if err := decodeJSON(tagsRaw, &p.Tags); err != nil {
		return domain.Pipeline{}, fmt.Errorf("decode tags: %w", err)
	}
	return p, nil
}

// scanNullString scans a nullable text column into a plain string.
type scanNullString struct{ dest *string }

func (s *scanNullString) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s.dest = ""
	case string:
		*s.dest = v
	case []byte:
		*s.dest = string(v)
	default:
		return fmt.Errorf("cannot scan %T into string", src)
	}
	return nil
}
