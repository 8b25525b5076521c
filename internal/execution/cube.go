package execution

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/rdf"
	"github.com/quadflow-labs/quadflow-go/internal/tabular"
)

// RDF Data Cube vocabulary.
const (
	nsQB           = "http://purl.org/linked-data/cube#"
	iriObservation = nsQB + "Observation"
	iriDataSet     = nsQB + "dataSet"
)

// runCube maps each dataset row to one qb:Observation. Dimension cells bind
// as IRIs when they look like one, measure cells as typed literals. Rows
// with a missing dimension value are skipped and counted as row errors.
func (e *StepExecutor) runCube(params domain.Variables, st *State, logf LogFunc) (Result, error) {
	if st.Dataset == nil {
		return Result{}, domain.Errf(domain.ErrKindValidation, "no dataset loaded; a SOURCE step must precede map_cube")
	}
	ds := st.Dataset

	cubeIRI := strings.TrimSpace(params["cube"].Str())
	if cubeIRI == "" {
		return Result{}, domain.Errf(domain.ErrKindParameter, "cube uri must not be empty")
	}
	dims, err := columnBindings(ds, params["dimensions"], "dimensions")
	if err != nil {
		return Result{}, err
	}
	if len(dims) == 0 {
		return Result{}, domain.Errf(domain.ErrKindParameter, "at least one dimension binding is required")
	}
	measures, err := columnBindings(ds, params["measures"], "measures")
	if err != nil {
		return Result{}, err
	}

	maxErrorRate := params["maxErrorRate"].Num()
	cube := rdf.IRI(cubeIRI)
	base := strings.TrimRight(cubeIRI, "/")

	var (
		quads     []rdf.Quad
		rowErrors int64
	)
	for i, row := range ds.Rows {
		obs := rdf.IRI(base + "/observation/" + strconv.Itoa(i+1))

		dimTriples, ok := bindRow(ds, row, dims, true)
		if !ok {
			rowErrors++
			logf(domain.LogDebug, fmt.Sprintf("row %d: missing dimension value, skipped", i+1), nil)
			continue
		}
		measureTriples, _ := bindRow(ds, row, measures, false)

		quads = append(quads,
			rdf.Quad{Subject: obs, Predicate: rdf.IRI(rdf.IRIType), Object: rdf.IRI(iriObservation)},
			rdf.Quad{Subject: obs, Predicate: rdf.IRI(iriDataSet), Object: cube},
		)
		for _, t := range append(dimTriples, measureTriples...) {
			quads = append(quads, rdf.Quad{Subject: obs, Predicate: t.pred, Object: t.obj})
		}
	}

	if total := len(ds.Rows); total > 0 {
		rate := float64(rowErrors) / float64(total)
		if rate > maxErrorRate {
			return Result{}, domain.Errf(domain.ErrKindValidation,
				"cube mapping error rate %.3f exceeds threshold %.3f", rate, maxErrorRate)
		}
	}

	st.Quads = quads
	logf(domain.LogInfo, fmt.Sprintf("mapped %d rows to %d quads", len(ds.Rows), len(quads)), nil)
	return Result{Metrics: domain.JobMetrics{
		RowsProcessed:  int64(len(ds.Rows)),
		QuadsGenerated: int64(len(quads)),
		RowErrors:      rowErrors,
	}}, nil
}

type columnBinding struct {
	column   int
	colType  domain.ColumnType
	property rdf.Term
}

type boundTriple struct {
	pred rdf.Term
	obj  rdf.Term
}

// columnBindings resolves a {columnName: propertyIRI} mapping parameter
// against the dataset schema.
func columnBindings(ds *tabular.Dataset, param domain.Value, what string) ([]columnBinding, error) {
	var out []columnBinding
	for _, col := range param.Keys() {
		v, _ := param.Entry(col)
		if v.Kind() != domain.KindString || strings.TrimSpace(v.Str()) == "" {
			return nil, domain.Errf(domain.ErrKindParameter, "%s[%q] must be a property IRI string", what, col)
		}
		idx, ok := ds.ColumnIndex(col)
		if !ok {
			return nil, domain.Errf(domain.ErrKindParameter, "%s[%q]: column does not exist", what, col)
		}
		out = append(out, columnBinding{
			column:   idx,
			colType:  ds.Columns[idx].Type,
			property: rdf.IRI(v.Str()),
		})
	}
	return out, nil
}

// bindRow produces one triple per binding. With required set, a null cell
// aborts the row.
func bindRow(ds *tabular.Dataset, row []domain.Value, bindings []columnBinding, required bool) ([]boundTriple, bool) {
	out := make([]boundTriple, 0, len(bindings))
	for _, b := range bindings {
		cell := row[b.column]
		if cell.IsNull() {
			if required {
				return nil, false
			}
			continue
		}
		out = append(out, boundTriple{pred: b.property, obj: cellTerm(cell, b.colType)})
	}
	return out, true
}

func cellTerm(cell domain.Value, colType domain.ColumnType) rdf.Term {
	lex := cell.Render()
	if strings.HasPrefix(lex, "http://") || strings.HasPrefix(lex, "https://") || strings.HasPrefix(lex, "urn:") {
		return rdf.IRI(lex)
	}
	switch colType {
	case domain.ColInteger:
		return rdf.TypedLiteral(lex, rdf.XSDInteger)
	case domain.ColDecimal:
		return rdf.TypedLiteral(lex, rdf.XSDDecimal)
	case domain.ColBoolean:
		return rdf.TypedLiteral(lex, rdf.XSDBoolean)
	case domain.ColDate:
		return rdf.TypedLiteral(lex, rdf.XSDDate)
	default:
		return rdf.Literal(lex)
	}
}
