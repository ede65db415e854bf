// Package dataset loads the benchmark table produced by the codec collectors and turns it
// into the feature matrix, labels and group keys used for training.
//
// A table row is one evaluated binary. Rows are immutable once loaded; every derived view
// (Dataset, feature columns, labels) is computed once per run.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrEmptyTable is returned when the input table has no header or no data rows.
var ErrEmptyTable = errors.New("empty input table")

// missingTokens mirrors the NA markers written by the collectors and spreadsheet exports.
var missingTokens = map[string]struct{}{
	"":         {},
	"NA":       {},
	"N/A":      {},
	"n/a":      {},
	"NaN":      {},
	"nan":      {},
	"-NaN":     {},
	"-nan":     {},
	"NULL":     {},
	"null":     {},
	"None":     {},
	"#N/A":     {},
	"#NA":      {},
	"<NA>":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
}

// Table is a header plus string cells, addressed by column name.
type Table struct {
	Header []string
	rows   [][]string
	index  map[string]int
}

// NewTable builds a table from a header and rows. Short rows are padded with empty cells,
// long rows are truncated to the header width.
func NewTable(header []string, rows [][]string) *Table {
	t := &Table{
		Header: append([]string(nil), header...),
		rows:   make([][]string, 0, len(rows)),
		index:  make(map[string]int, len(header)),
	}
	for i, col := range t.Header {
		if _, dup := t.index[col]; !dup {
			t.index[col] = i
		}
	}
	for _, r := range rows {
		row := make([]string, len(t.Header))
		copy(row, r)
		t.rows = append(t.rows, row)
	}
	return t
}

// ReadCSV loads a table from a CSV file with a header row.
func ReadCSV(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	t, err := ParseCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	log.Info().
		Str("csv", path).
		Int("rows", t.Len()).
		Int("columns", len(t.Header)).
		Msg("Dataset loaded")
	return t, nil
}

// ParseCSV reads a table from r. The first record is the header.
func ParseCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyTable
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record %d: %w", len(rows)+1, err)
		}
		rows = append(rows, record)
	}

	t := NewTable(header, rows)
	if t.Len() == 0 {
		return nil, ErrEmptyTable
	}
	return t, nil
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Has reports whether the table has a column with the given name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the raw cells of a column.
func (t *Table) Column(name string) ([]string, bool) {
	idx, ok := t.index[name]
	if !ok {
		return nil, false
	}
	out := make([]string, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[idx]
	}
	return out, true
}

// Numeric returns a column coerced to float64. Missing or unparseable cells become NaN.
// An absent column yields an all-NaN slice.
func (t *Table) Numeric(name string) []float64 {
	out := make([]float64, t.Len())
	cells, ok := t.Column(name)
	for i := range out {
		if !ok {
			out[i] = math.NaN()
			continue
		}
		v, err := parseCell(cells[i])
		if err != nil {
			v = math.NaN()
		}
		out[i] = v
	}
	return out
}

// Filter returns a new table holding the rows whose keep flag is set.
func (t *Table) Filter(keep []bool) *Table {
	rows := make([][]string, 0, len(t.rows))
	for i, row := range t.rows {
		if i < len(keep) && keep[i] {
			rows = append(rows, row)
		}
	}
	return NewTable(t.Header, rows)
}

// IsMissing reports whether a cell holds an NA marker.
func IsMissing(cell string) bool {
	_, ok := missingTokens[strings.TrimSpace(cell)]
	return ok
}

// isNumericColumn reports whether every non-missing cell of the column parses as a number.
func (t *Table) isNumericColumn(name string) bool {
	cells, ok := t.Column(name)
	if !ok {
		return false
	}
	for _, c := range cells {
		if IsMissing(c) {
			continue
		}
		if _, err := parseCell(c); err != nil {
			return false
		}
	}
	return true
}

func parseCell(cell string) (float64, error) {
	if IsMissing(cell) {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(strings.TrimSpace(cell), 64)
}
