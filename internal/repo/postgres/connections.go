package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/repo"
)

const insertConnectionQuery = `INSERT INTO triplestore_connections (
		connection_id,
		name,
		query_endpoint,
		update_endpoint,
		username,
		password,
		is_default,
		created_by,
		created_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

const selectConnectionColumns = `connection_id, name, query_endpoint, update_endpoint,
	username, password, is_default, created_by, created_at`

type ConnectionStore struct {
	db DB
}

func NewConnectionStore(db DB) *ConnectionStore {
	if db == nil {
		return nil
	}
	return &ConnectionStore{db: db}
}

func (s *ConnectionStore) Create(ctx context.Context, c domain.TriplestoreConnection) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("connection store not initialized")
	}
	if err := c.Validate(); err != nil {
		return err
	}
	// At most one default connection; demote any current holder first.
	if c.IsDefault {
		if _, err := s.db.ExecContext(ctx, `UPDATE triplestore_connections SET is_default = FALSE WHERE is_default`); err != nil {
			return fmt.Errorf("clear default connection: %w", err)
		}
	}
	_, err := s.db.ExecContext(
		ctx,
		insertConnectionQuery,
		strings.TrimSpace(c.ID),
		strings.TrimSpace(c.Name),
		strings.TrimSpace(c.QueryEndpoint),
		nullIfEmpty(c.UpdateEndpoint),
		nullIfEmpty(c.Username),
		nullIfEmpty(c.Password),
		c.IsDefault,
		nullIfEmpty(c.CreatedBy),
		normalizeTime(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert connection: %w", err)
	}
	return nil
}

func (s *ConnectionStore) Get(ctx context.Context, id string) (domain.TriplestoreConnection, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+selectConnectionColumns+` FROM triplestore_connections WHERE connection_id = $1`,
		strings.TrimSpace(id),
	)
	c, err := scanConnection(row)
	if err != nil {
		return domain.TriplestoreConnection{}, handleNotFound(err)
	}
	return c, nil
}

func (s *ConnectionStore) List(ctx context.Context) ([]domain.TriplestoreConnection, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+selectConnectionColumns+`
		   FROM triplestore_connections
		  ORDER BY is_default DESC, created_at, connection_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.TriplestoreConnection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *ConnectionStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM triplestore_connections WHERE connection_id = $1`, strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("delete connection: %w", err)
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

func scanConnection(row rowScanner) (domain.TriplestoreConnection, error) {
	var (
		c         domain.TriplestoreConnection
		updateEP  sql.NullString
		username  sql.NullString
		password  sql.NullString
		createdBy sql.NullString
	)
	if err := row.Scan(
		&c.ID, &c.Name, &c.QueryEndpoint, &updateEP,
		&username, &password, &c.IsDefault, &createdBy, &c.CreatedAt,
	); err != nil {
		return domain.TriplestoreConnection{}, err
	}
	c.UpdateEndpoint = updateEP.String
	c.Username = username.String
	c.Password = password.String
	c.CreatedBy = createdBy.String
	return c, nil
}
