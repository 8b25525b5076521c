package tabular

import (
	"bytes"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
)

// DetectFormat sniffs a source format from the file name and a leading
// sample of the content.
func DetectFormat(filename string, head []byte) domain.SourceFormat {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".csv"):
		return domain.SourceCSV
	case strings.HasSuffix(name, ".tsv") || strings.HasSuffix(name, ".tab"):
		return domain.SourceTSV
	case strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".jsonld"):
		return domain.SourceJSON
	case strings.HasSuffix(name, ".ttl") || strings.HasSuffix(name, ".turtle") || strings.HasSuffix(name, ".nt"):
		return domain.SourceTurtle
	}

	trimmed := bytes.TrimLeft(head, " \t\r\n")
	switch {
	case len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '['):
		return domain.SourceJSON
	case bytes.HasPrefix(trimmed, []byte("@prefix")) || bytes.HasPrefix(trimmed, []byte("PREFIX")):
		return domain.SourceTurtle
	case bytes.Count(head, []byte("\t")) > bytes.Count(head, []byte(",")):
		return domain.SourceTSV
	default:
		return domain.SourceCSV
	}
}

// DetectDelimiter picks the most frequent candidate delimiter in the first
// line of the sample.
func DetectDelimiter(head []byte) rune {
	line := head
	if idx := bytes.IndexByte(head, '\n'); idx >= 0 {
		line = head[:idx]
	}
	best := ','
	bestCount := bytes.Count(line, []byte(","))
	for _, cand := range []byte{';', '\t', '|'} {
		if n := bytes.Count(line, []byte{cand}); n > bestCount {
			best = rune(cand)
			bestCount = n
		}
	}
	return best
}

// DetectHeader guesses whether the first row is a header: it is when none
// of its cells parse as numbers while some cell in the second row does.
func DetectHeader(first, second []string) bool {
	if len(first) == 0 {
		return false
	}
	for _, cell := range first {
		if _, err := strconv.ParseFloat(cell, 64); err == nil {
			return false
		}
	}
	for _, cell := range second {
		if _, err := strconv.ParseFloat(cell, 64); err == nil {
			return true
		}
	}
	// all-text rows: assume header, the common case for exported tables
	return true
}

var dateLayouts = []string{"2006-01-02", "02.01.2006", "01/02/2006", time.RFC3339}

// InferColumnTypes refines the column types of a string-typed dataset by
// inspecting every cell. A column keeps the narrowest type all its non-null
// cells satisfy.
func InferColumnTypes(ds *Dataset) {
	for i := range ds.Columns {
		ds.Columns[i].Type = inferColumn(ds, i)
	}
}

func inferColumn(ds *Dataset, col int) domain.ColumnType {
	isInt, isDec, isBool, isDate := true, true, true, true
	sawValue := false
	for _, row := range ds.Rows {
		cell := row[col]
		if cell.IsNull() {
			continue
		}
		sawValue = true
		lex := cell.Render()
		if isInt {
			if _, err := strconv.ParseInt(lex, 10, 64); err != nil {
				isInt = false
			}
		}
		if isDec {
			if _, err := strconv.ParseFloat(lex, 64); err != nil {
				isDec = false
			}
		}
		if isBool && !isBoolLex(lex) {
			isBool = false
		}
		if isDate && !isDateLex(lex) {
			isDate = false
		}
		if !isInt && !isDec && !isBool && !isDate {
			return domain.ColString
		}
	}
	switch {
	case !sawValue:
		return domain.ColString
	case isBool:
		return domain.ColBoolean
	case isInt:
		return domain.ColInteger
	case isDec:
		return domain.ColDecimal
	case isDate:
		return domain.ColDate
	default:
		return domain.ColString
	}
}

func isBoolLex(lex string) bool {
	switch strings.ToLower(lex) {
	case "true", "false":
		return true
	}
	return false
}

func isDateLex(lex string) bool {
	if utf8.RuneCountInString(lex) < 8 {
		return false
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, lex); err == nil {
			return true
		}
	}
	return false
}
