package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/repo"
)

// insertShapeQuery assigns the next version atomically, same as pipelines.
const insertShapeQuery = `INSERT INTO shapes (
		shape_id,
		version,
		uri,
		name,
		description,
		content,
		content_format,
		target_class,
		category,
		tags,
		is_template,
		properties,
		created_by,
		created_at,
		updated_at
	)
	SELECT
		$1,
		COALESCE(MAX(version), 0) + 1,
		$2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
	FROM shapes
	WHERE shape_id = $1
	RETURNING version`

const selectShapeColumns = `shape_id, version, uri, name, description, content, content_format,
	target_class, category, tags, is_template, properties, created_by, created_at, updated_at`

type ShapeStore struct {
	db DB
}

func NewShapeStore(db DB) *ShapeStore {
	if db == nil {
		return nil
	}
	return &ShapeStore{db: db}
}

func (s *ShapeStore) CreateVersion(ctx context.Context, sh domain.Shape) (domain.Shape, error) {
	if s == nil || s.db == nil {
		return domain.Shape{}, fmt.Errorf("shape store not initialized")
	}
	sh.Version = 1 // placeholder so Validate passes; the query assigns the real one
	if err := sh.Validate(); err != nil {
		return domain.Shape{}, err
	}
	tagsJSON, err := encodeJSON(sh.Tags)
	if err != nil {
		return domain.Shape{}, fmt.Errorf("encode tags: %w", err)
	}
	propsJSON, err := encodeJSON(sh.Properties)
	if err != nil {
		return domain.Shape{}, fmt.Errorf("encode properties: %w", err)
	}

	err = s.db.QueryRowContext(
		ctx,
		insertShapeQuery,
		strings.TrimSpace(sh.ID),
		strings.TrimSpace(sh.URI),
		strings.TrimSpace(sh.Name),
		sh.Description,
		sh.Content,
		string(sh.ContentFormat),
		nullIfEmpty(sh.TargetClass),
		nullIfEmpty(sh.Category),
		tagsJSON,
		sh.IsTemplate,
		propsJSON,
		nullIfEmpty(sh.CreatedBy),
		normalizeTime(sh.CreatedAt),
		normalizeTime(sh.UpdatedAt),
	).Scan(&sh.Version)
	if err != nil {
		return domain.Shape{}, fmt.Errorf("insert shape: %w", err)
	}
	return sh, nil
}

// Get returns the latest version of the shape.
func (s *ShapeStore) Get(ctx context.Context, id string) (domain.Shape, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+selectShapeColumns+`
		   FROM shapes
		  WHERE shape_id = $1
		  ORDER BY version DESC
		  LIMIT 1`,
		strings.TrimSpace(id),
	)
	sh, err := scanShape(row)
	if err != nil {
		return domain.Shape{}, handleNotFound(err)
	}
	return sh, nil
}

func (s *ShapeStore) GetVersion(ctx context.Context, id string, version int64) (domain.Shape, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+selectShapeColumns+` FROM shapes WHERE shape_id = $1 AND version = $2`,
		strings.TrimSpace(id),
		version,
	)
	sh, err := scanShape(row)
	if err != nil {
		return domain.Shape{}, handleNotFound(err)
	}
	return sh, nil
}

func (s *ShapeStore) List(ctx context.Context, filter repo.ShapeFilter) ([]domain.Shape, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var isTemplate sql.NullBool
	if filter.IsTemplate != nil {
		isTemplate = sql.NullBool{Bool: *filter.IsTemplate, Valid: true}
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT DISTINCT ON (shape_id) `+selectShapeColumns+`
		   FROM shapes
		  WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
		    AND ($2 = '' OR category = $2)
		    AND ($3::boolean IS NULL OR is_template = $3)
		  ORDER BY shape_id, version DESC
		  LIMIT $4 OFFSET $5`,
		strings.TrimSpace(filter.Search),
		strings.TrimSpace(filter.Category),
		isTemplate,
		limit,
		max(filter.Offset, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("list shapes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Shape
	for rows.Next() {
		sh, err := scanShape(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

func (s *ShapeStore) ListVersions(ctx context.Context, id string) ([]int64, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT version FROM shapes WHERE shape_id = $1 ORDER BY version`,
		strings.TrimSpace(id),
	)
	if err != nil {
		return nil, fmt.Errorf("list shape versions: %w", err)
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
	return out, rows.Err()
}

// Delete removes every version of the shape.
func (s *ShapeStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM shapes WHERE shape_id = $1`, strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("delete shape: %w", err)
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

func scanShape(row rowScanner) (domain.Shape, error) {
	var (
		sh          domain.Shape
		format      string
		targetClass sql.NullString
		category    sql.NullString
		tagsRaw     []byte
		propsRaw    []byte
		createdBy   sql.NullString
	)
	if err := row.Scan(
		&sh.ID, &sh.Version, &sh.URI, &sh.Name, &sh.Description, &sh.Content, &format,
		&targetClass, &category, &tagsRaw, &sh.IsTemplate, &propsRaw, &createdBy,
		&sh.CreatedAt, &sh.UpdatedAt,
	); err != nil {
		return domain.Shape{}, err
	}
	sh.ContentFormat = domain.ContentFormat(format)
	sh.TargetClass = targetClass.String
	sh.Category = category.String
	sh.CreatedBy = createdBy.String
	if err := decodeJSON(tagsRaw, &sh.Tags); err != nil {
		return domain.Shape{}, fmt.Errorf("decode tags: %w", err)
	}
	if err := decodeJSON(propsRaw, &sh.Properties); err != nil {
		return domain.Shape{}, fmt.Errorf("decode properties: %w", err)
	}
	return sh, nil
}
