package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Table holds ordered tabular content ready for rendering. Rows must
// carry exactly one cell per column.
type Table struct {
	Title   string
	Columns []string
	Rows    [][]string
}

// Renderer turns a table into a downloadable document.
type Renderer interface {
	Render(t Table) ([]byte, error)
}

// CSVRenderer encodes tables as RFC 4180 CSV. The table title is not
// part of the CSV output.
type CSVRenderer struct{}

func NewCSVRenderer() *CSVRenderer {
	return &CSVRenderer{}
}

func (r *CSVRenderer) Render(t Table) ([]byte, error) {
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("table has no columns")
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(t.Columns))
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("encode row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
