package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SourceFormat enumerates the tabular/RDF source formats the registry
// recognizes.
type SourceFormat string

const (
	SourceCSV    SourceFormat = "csv"
	SourceTSV    SourceFormat = "tsv"
	SourceJSON   SourceFormat = "json"
	SourceTurtle SourceFormat = "turtle"
)

func ParseSourceFormat(s string) (SourceFormat, error) {
	f := SourceFormat(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case SourceCSV, SourceTSV, SourceJSON, SourceTurtle:
		return f, nil
	default:
		return "", fmt.Errorf("unknown source format %q", s)
	}
}

// ColumnType is a detected column value type.
type ColumnType string

const (
	ColString  ColumnType = "string"
	ColInteger ColumnType = "integer"
	ColDecimal ColumnType = "decimal"
	ColBoolean ColumnType = "boolean"
	ColDate    ColumnType = "date"
)

// ColumnInfo describes one detected column of a tabular source.
type ColumnInfo struct {
	Name     string     `json:"name"`
	Type     ColumnType `json:"type"`
	Nullable bool       `json:"nullable"`
	Sample   string     `json:"sample,omitempty"`
}

// DataSource catalogs one uploaded source. Immutable once analyzed except
// for metadata refinement from re-analysis.
type DataSource struct {
	ID          string
	Name        string
	Format      SourceFormat
	SizeBytes   int64
	RowCount    int64
	ColumnCount int
	Schema      []ColumnInfo
	StoragePath string
	Encoding    string
	Delimiter   string
	HasHeader   bool
	AnalyzedAt  *time.Time
	CreatedBy   string
	CreatedAt   time.Time
}

func (d DataSource) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return errors.New("data source id is required")
	}
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("data source name is required")
	}
	if _, err := ParseSourceFormat(string(d.Format)); err != nil {
		return err
	}
	if strings.TrimSpace(d.StoragePath) == "" {
		return errors.New("data source storage path is required")
	}
	if d.SizeBytes < 0 {
		return errors.New("data source size must be >= 0")
	}
	return nil
}
