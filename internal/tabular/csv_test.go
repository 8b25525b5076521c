package tabular

import (
	"strings"
	"testing"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
)

func TestCSVReaderWithHeader(t *testing.T) {
	input := "name,age,city\nAlice,30,Berlin\nBob,,Hamburg\n"
	ds, err := CSVReader{}.Read(strings.NewReader(input), ReadOptions{Delimiter: ',', HasHeader: true})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if ds.ColumnCount() != 3 || ds.RowCount() != 2 {
		t.Fatalf("shape = %dx%d", ds.RowCount(), ds.ColumnCount())
	}
	if ds.Columns[0].Name != "name" || ds.Columns[2].Name != "city" {
		t.Fatalf("columns = %+v", ds.Columns)
	}
	if got := ds.Rows[0][1].Str(); got != "30" {
		t.Fatalf("cell = %q", got)
	}
	if !ds.Rows[1][1].IsNull() {
		t.Fatal("empty cell should read as null")
	}
}

func TestCSVReaderWithoutHeader(t *testing.T) {
	ds, err := CSVReader{}.Read(strings.NewReader("1,2\n3,4\n"), ReadOptions{Delimiter: ',', HasHeader: false})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if ds.Columns[0].Name != "column_1" || ds.Columns[1].Name != "column_2" {
		t.Fatalf("columns = %+v", ds.Columns)
	}
	if ds.RowCount() != 2 {
		t.Fatalf("rows = %d", ds.RowCount())
	}
}

func TestCSVReaderMaxRows(t *testing.T) {
	input := "a\n1\n2\n3\n4\n"
	ds, err := CSVReader{}.Read(strings.NewReader(input), ReadOptions{Delimiter: ',', HasHeader: true, MaxRows: 2})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if ds.RowCount() != 2 {
		t.Fatalf("rows = %d, want 2", ds.RowCount())
	}
}

func TestCSVReaderRaggedRow(t *testing.T) {
	if _, err := (CSVReader{}).Read(strings.NewReader("a,b\n1\n"), ReadOptions{Delimiter: ',', HasHeader: true}); err == nil {
		t.Fatal("ragged row accepted")
	}
}

func TestCSVReaderEmpty(t *testing.T) {
	if _, err := (CSVReader{}).Read(strings.NewReader(""), ReadOptions{Delimiter: ',', HasHeader: true}); err == nil {
		t.Fatal("empty source accepted")
	}
}

func TestReaderFor(t *testing.T) {
	reader, opts, err := ReaderFor(domain.SourceTSV)
	if err != nil {
		t.Fatalf("ReaderFor(tsv): %v", err)
	}
	if reader == nil || opts.Delimiter != '\t' {
		t.Fatalf("opts = %+v", opts)
	}
	if _, _, err := ReaderFor(domain.SourceTurtle); err == nil {
		t.Fatal("turtle should have no tabular reader")
	}
}
