package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/repo"
)

const insertDataSourceQuery = `INSERT INTO data_sources (
		source_id,
		name,
		format,
		size_bytes,
		row_count,
		column_count,
		schema,
		storage_path,
		encoding,
		delimiter,
		has_header,
		analyzed_at,
		created_by,
		created_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`

const selectDataSourceColumns = `source_id, name, format, size_bytes, row_count, column_count, schema,
	storage_path, encoding, delimiter, has_header, analyzed_at, created_by, created_at`

type DataSourceStore struct {
	db DB
}

func NewDataSourceStore(db DB) *DataSourceStore {
	if db == nil {
		return nil
	}
	return &DataSourceStore{db: db}
}

func (s *DataSourceStore) Create(ctx context.Context, ds domain.DataSource) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("data source store not initialized")
	}
	if err := ds.Validate(); err != nil {
		return err
	}
	schemaJSON, err := encodeJSON(ds.Schema)
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	_, err = s.db.ExecContext(
		ctx,
		insertDataSourceQuery,
		strings.TrimSpace(ds.ID),
		strings.TrimSpace(ds.Name),
		string(ds.Format),
		ds.SizeBytes,
		ds.RowCount,
		ds.ColumnCount,
		schemaJSON,
		ds.StoragePath,
		nullIfEmpty(ds.Encoding),
		nullIfEmpty(ds.Delimiter),
		ds.HasHeader,
		nullTime(ds.AnalyzedAt),
		nullIfEmpty(ds.CreatedBy),
		normalizeTime(ds.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert data source: %w", err)
	}
	return nil
}

func (s *DataSourceStore) Get(ctx context.Context, id string) (domain.DataSource, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+selectDataSourceColumns+` FROM data_sources WHERE source_id = $1`,
		strings.TrimSpace(id),
	)
	ds, err := scanDataSource(row)
	if err != nil {
		return domain.DataSource{}, handleNotFound(err)
	}
	return ds, nil
}

func (s *DataSourceStore) List(ctx context.Context, filter repo.DataSourceFilter) ([]domain.DataSource, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+selectDataSourceColumns+`
		   FROM data_sources
		  WHERE ($1 = '' OR format = $1)
		    AND ($2 = '' OR name ILIKE '%' || $2 || '%')
		  ORDER BY created_at DESC, source_id
		  LIMIT $3 OFFSET $4`,
		string(filter.Format),
		strings.TrimSpace(filter.Search),
		limit,
		max(filter.Offset, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("list data sources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.DataSource
	for rows.Next() {
		ds, err := scanDataSource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ds)
	}
	return out, rows.Err()
}

// Update refreshes analysis metadata. Identity fields never change.
func (s *DataSourceStore) Update(ctx context.Context, ds domain.DataSource) error {
	if err := ds.Validate(); err != nil {
		return err
	}
	schemaJSON, err := encodeJSON(ds.Schema)
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE data_sources SET
			row_count = $2,
			column_count = $3,
			schema = $4,
			encoding = $5,
			delimiter = $6,
			has_header = $7,
			analyzed_at = $8
		 WHERE source_id = $1`,
		strings.TrimSpace(ds.ID),
		ds.RowCount,
		ds.ColumnCount,
		schemaJSON,
		nullIfEmpty(ds.Encoding),
		nullIfEmpty(ds.Delimiter),
		ds.HasHeader,
		nullTime(ds.AnalyzedAt),
	)
	if err != nil {
		return fmt.Errorf("update data source: %w", err)
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

func (s *DataSourceStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM data_sources WHERE source_id = $1`, strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("delete data source: %w", err)
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

func scanDataSource(row rowScanner) (domain.DataSource, error) {
	var (
		ds         domain.DataSource
		format     string
		schemaRaw  []byte
		encoding   sql.NullString
		delimiter  sql.NullString
		analyzedAt sql.NullTime
		createdBy  sql.NullString
	)
	if err := row.Scan(
		&ds.ID, &ds.Name, &format, &ds.SizeBytes, &ds.RowCount, &ds.ColumnCount, &schemaRaw,
		&ds.StoragePath, &encoding, &delimiter, &ds.HasHeader, &analyzedAt, &createdBy, &ds.CreatedAt,
	); err != nil {
		return domain.DataSource{}, err
	}
	ds.Format = domain.SourceFormat(format)
	ds.Encoding = encoding.String
	ds.Delimiter = delimiter.String
	ds.AnalyzedAt = timePtr(analyzedAt)
	ds.CreatedBy = createdBy.String
	if err := decodeJSON(schemaRaw, &ds.Schema); err != nil {
		return domain.DataSource{}, fmt.Errorf("decode schema: %w", err)
	}
	return ds, nil
}
