package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
)

// ReadOptions parameterizes a tabular source read.
type ReadOptions struct {
	Delimiter rune
	HasHeader bool
	// MaxRows bounds the read; zero means unbounded.
	MaxRows int
}

// Reader turns raw source bytes into a dataset. Format readers are
// pluggable behind this interface; parsing internals are not part of the
// engine contract.
type Reader interface {
	Read(r io.Reader, opts ReadOptions) (*Dataset, error)
}

// CSVReader reads comma/tab separated sources. Cell types stay string; type
// refinement happens during analysis.
type CSVReader struct{}

func (CSVReader) Read(r io.Reader, opts ReadOptions) (*Dataset, error) {
	cr := csv.NewReader(r)
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.FieldsPerRecord = -1

	var ds Dataset
	rowIdx := 0
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", rowIdx+1, err)
		}
		if ds.Columns == nil {
			if opts.HasHeader {
				ds.Columns = make([]Column, len(record))
				for i, name := range record {
					ds.Columns[i] = Column{Name: name, Type: domain.ColString}
				}
				rowIdx++
				continue
			}
			ds.Columns = make([]Column, len(record))
			for i := range record {
				ds.Columns[i] = Column{Name: "column_" + strconv.Itoa(i+1), Type: domain.ColString}
			}
		}
		if len(record) != len(ds.Columns) {
			return nil, fmt.Errorf("csv row %d: %d cells, expected %d", rowIdx+1, len(record), len(ds.Columns))
		}
		cells := make([]domain.Value, len(record))
		for i, cell := range record {
			if cell == "" {
				cells[i] = domain.Null()
			} else {
				cells[i] = domain.String(cell)
			}
		}
		ds.Rows = append(ds.Rows, cells)
		rowIdx++
		if opts.MaxRows > 0 && len(ds.Rows) >= opts.MaxRows {
			break
		}
	}
	if ds.Columns == nil {
		return nil, errors.New("csv source is empty")
	}
	return &ds, nil
}

// ReaderFor returns the reader for a source format.
func ReaderFor(format domain.SourceFormat) (Reader, ReadOptions, error) {
	switch format {
	case domain.SourceCSV:
		return CSVReader{}, ReadOptions{Delimiter: ',', HasHeader: true}, nil
	case domain.SourceTSV:
		return CSVReader{}, ReadOptions{Delimiter: '\t', HasHeader: true}, nil
	default:
		return nil, ReadOptions{}, fmt.Errorf("no tabular reader for format %q", format)
	}
}
