package execution

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/execution/operation"
	"github.com/quadflow-labs/quadflow-go/internal/tabular"
)

// Transform operations are pure functions of (dataset, params). The dataset
// is cloned before mutation so a failed step never leaves partial state.
func (e *StepExecutor) runTransform(name string, params domain.Variables, st *State, logf LogFunc) (Result, error) {
	if st.Dataset == nil {
		return Result{}, domain.Errf(domain.ErrKindValidation, "no dataset loaded; a SOURCE step must precede %s", name)
	}
	ds := st.Dataset.Clone()

	var (
		metrics domain.JobMetrics
		err     error
	)
	switch name {
	case operation.RenameColumn:
		err = renameColumn(ds, params["from"].Str(), params["to"].Str())
	case operation.DeriveColumn:
		err = deriveColumn(ds, params["name"].Str(), params["template"].Str())
	case operation.FilterRows:
		err = filterRows(ds, params["column"].Str(), params["operator"].Str(), params["value"].Str())
	case operation.CastColumn:
		metrics.RowErrors, err = castColumn(ds, params["column"].Str(), params["type"].Str(), params["maxErrorRate"].Num(), logf)
	default:
		err = domain.Errf(domain.ErrKindParameter, "unknown transform operation %q", name)
	}
	if err != nil {
		return Result{}, err
	}

	st.Dataset = ds
	metrics.RowsProcessed = int64(ds.RowCount())
	return Result{Metrics: metrics}, nil
}

func renameColumn(ds *tabular.Dataset, from, to string) error {
	if strings.TrimSpace(to) == "" {
		return domain.Errf(domain.ErrKindParameter, "rename target must not be empty")
	}
	idx, ok := ds.ColumnIndex(from)
	if !ok {
		return domain.Errf(domain.ErrKindParameter, "column %q does not exist", from)
	}
	if _, exists := ds.ColumnIndex(to); exists {
		return domain.Errf(domain.ErrKindParameter, "column %q already exists", to)
	}
	ds.Columns[idx].Name = to
	return nil
}

func deriveColumn(ds *tabular.Dataset, name, template string) error {
	if _, exists := ds.ColumnIndex(name); exists {
		return domain.Errf(domain.ErrKindParameter, "column %q already exists", name)
	}
	ds.Columns = append(ds.Columns, tabular.Column{Name: name, Type: domain.ColString})
	for i, row := range ds.Rows {
		rendered := expandTemplate(template, func(col string) (domain.Value, bool) {
			j, ok := ds.ColumnIndex(col)
			if !ok || j >= len(row) {
				return domain.Null(), false
			}
			return row[j], true
		})
		ds.Rows[i] = append(row, domain.String(rendered))
	}
	return nil
}

func filterRows(ds *tabular.Dataset, column, op, value string) error {
	idx, ok := ds.ColumnIndex(column)
	if !ok {
		return domain.Errf(domain.ErrKindParameter, "column %q does not exist", column)
	}
	match, err := comparator(op, value)
	if err != nil {
		return err
	}
	kept := ds.Rows[:0]
	for _, row := range ds.Rows {
		if match(row[idx]) {
			kept = append(kept, row)
		}
	}
	ds.Rows = kept
	return nil
}

func comparator(op, value string) (func(domain.Value) bool, error) {
	switch op {
	case "eq":
		return func(v domain.Value) bool { return v.Render() == value }, nil
	case "ne":
		return func(v domain.Value) bool { return v.Render() != value }, nil
	case "contains":
		return func(v domain.Value) bool { return strings.Contains(v.Render(), value) }, nil
	case "gt", "lt":
		threshold, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, domain.Errf(domain.ErrKindParameter, "operator %q needs a numeric value, got %q", op, value)
		}
		return func(v domain.Value) bool {
			n, err := strconv.ParseFloat(v.Render(), 64)
			if err != nil {
				return false
			}
			if op == "gt" {
				return n > threshold
			}
			return n < threshold
		}, nil
	default:
		return nil, domain.Errf(domain.ErrKindParameter, "unknown filter operator %q", op)
	}
}

// castColumn converts cells to the target type. Malformed cells become null
// and count as row errors; the step fails once the error rate exceeds the
// threshold.
func castColumn(ds *tabular.Dataset, column, target string, maxErrorRate float64, logf LogFunc) (int64, error) {
	idx, ok := ds.ColumnIndex(column)
	if !ok {
		return 0, domain.Errf(domain.ErrKindParameter, "column %q does not exist", column)
	}
	colType := domain.ColumnType(target)
	switch colType {
	case domain.ColString, domain.ColInteger, domain.ColDecimal, domain.ColBoolean, domain.ColDate:
	default:
		return 0, domain.Errf(domain.ErrKindParameter, "unknown cast type %q", target)
	}

	var errCount int64
	for i, row := range ds.Rows {
		cell := row[idx]
		if cell.IsNull() {
			continue
		}
		cast, ok := castCell(cell, colType)
		if !ok {
			errCount++
			ds.Rows[i][idx] = domain.Null()
			logf(domain.LogDebug, fmt.Sprintf("row %d: cannot cast %q to %s", i+1, cell.Render(), target), nil)
			continue
		}
		ds.Rows[i][idx] = cast
	}
	ds.Columns[idx].Type = colType

	if total := len(ds.Rows); total > 0 {
		rate := float64(errCount) / float64(total)
		if rate > maxErrorRate {
			return errCount, domain.Errf(domain.ErrKindValidation,
				"cast error rate %.3f exceeds threshold %.3f for column %q", rate, maxErrorRate, column)
		}
	}
	return errCount, nil
}

func castCell(v domain.Value, target domain.ColumnType) (domain.Value, bool) {
	lex := v.Render()
	switch target {
	case domain.ColString:
		return domain.String(lex), true
	case domain.ColInteger:
		n, err := strconv.ParseInt(strings.TrimSpace(lex), 10, 64)
		if err != nil {
			return domain.Null(), false
		}
		return domain.Number(float64(n)), true
	case domain.ColDecimal:
		f, err := strconv.ParseFloat(strings.TrimSpace(lex), 64)
		if err != nil {
			return domain.Null(), false
		}
		return domain.Number(f), true
	case domain.ColBoolean:
		b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(lex)))
		if err != nil {
			return domain.Null(), false
		}
		return domain.Bool(b), true
	case domain.ColDate:
		for _, layout := range []string{"2006-01-02", time.RFC3339, "02.01.2006", "01/02/2006"} {
			if t, err := time.Parse(layout, strings.TrimSpace(lex)); err == nil {
				return domain.String(t.Format("2006-01-02")), true
			}
		}
		return domain.Null(), false
	default:
		return domain.Null(), false
	}
}
