// Package tabular holds the in-flight dataset representation threaded
// between pipeline steps, plus source-format readers and schema analysis.
package tabular

import (
	"github.com/quadflow-labs/quadflow-go/internal/domain"
)

// Column is one dataset column with its detected type.
type Column struct {
	Name string
	Type domain.ColumnType
}

// Dataset is the internal tabular representation. Rows hold one Value per
// column, in column order.
type Dataset struct {
	Columns []Column
	Rows    [][]domain.Value
}

func (d *Dataset) RowCount() int    { return len(d.Rows) }
func (d *Dataset) ColumnCount() int { return len(d.Columns) }

// ColumnIndex resolves a column name to its position.
func (d *Dataset) ColumnIndex(name string) (int, bool) {
	for i, c := range d.Columns {
		if c.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Clone returns a deep-enough copy for transform steps: the column slice and
// row slice are fresh, cell values are shared (values are immutable).
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		Columns: make([]Column, len(d.Columns)),
		Rows:    make([][]domain.Value, len(d.Rows)),
	}
	copy(out.Columns, d.Columns)
	for i, row := range d.Rows {
		cells := make([]domain.Value, len(row))
		copy(cells, row)
		out.Rows[i] = cells
	}
	return out
}

// Slice returns rows [offset, offset+limit) for previews.
func (d *Dataset) Slice(offset, limit int) [][]domain.Value {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(d.Rows) {
		return nil
	}
	end := len(d.Rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return d.Rows[offset:end]
}

// Schema derives registry column metadata from the dataset.
func (d *Dataset) Schema() []domain.ColumnInfo {
	out := make([]domain.ColumnInfo, 0, len(d.Columns))
	for i, col := range d.Columns {
		info := domain.ColumnInfo{Name: col.Name, Type: col.Type}
		for _, row := range d.Rows {
			if row[i].IsNull() {
				info.Nullable = true
				continue
			}
			if info.Sample == "" {
				info.Sample = row[i].Render()
			}
		}
		out = append(out, info)
	}
	return out
}
