package buffer

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

// Trace is the output buffer for monitored node values: one column per
// monitored scalar (in monitor insertion order), one row per recorded
// iteration. Rows are append-only and copied on the way in, so a recorded
// row never aliases live model state.
type Trace struct {
	cols []string
	rows [][]float64
}

// NewTrace creates an empty trace with the given column names.
func NewTrace(cols []string) (*Trace, error) {
	if len(cols) < 1 {
		return nil, errors.Errorf("A trace requires at least one column")
	}

	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		if seen[c] {
			return nil, errors.Errorf("Duplicate trace column %s", c)
		}
		seen[c] = true
	}

	return &Trace{
		cols: append([]string{}, cols...),
		rows: nil,
	}, nil
}

// Columns returns the column names in recording order.
func (t *Trace) Columns() []string {
	return append([]string{}, t.cols...)
}

// Len returns the number of recorded rows.
func (t *Trace) Len() int {
	return len(t.rows)
}

// Record appends a copy of vals as the next row.
func (t *Trace) Record(vals []float64) error {
	if len(vals) != len(t.cols) {
		return errors.Errorf("Row size %d does not match %d columns", len(vals), len(t.cols))
	}

	row := make([]float64, len(vals))
	copy(row, vals)
	t.rows = append(t.rows, row)

	return nil
}

// Row returns the i-th recorded row (not a copy - callers must not mutate).
func (t *Trace) Row(i int) ([]float64, error) {
	if i < 0 || i >= len(t.rows) {
		return nil, errors.Errorf("Row %d out of range [0,%d)", i, len(t.rows))
	}
	return t.rows[i], nil
}

// Column returns the full history for one monitored column.
func (t *Trace) Column(name string) ([]float64, error) {
	idx := -1
	for i, c := range t.cols {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, errors.Errorf("No trace column named %s", name)
	}

	vals := make([]float64, len(t.rows))
	for i, row := range t.rows {
		vals[i] = row[idx]
	}

	return vals, nil
}

// Append concatenates the rows of another trace with identical columns. Used
// to pool the output of independent chains.
func (t *Trace) Append(o *Trace) error {
	if len(o.cols) != len(t.cols) {
		return errors.Errorf("Cannot append trace with %d columns to %d columns", len(o.cols), len(t.cols))
	}
	for i, c := range o.cols {
		if c != t.cols[i] {
			return errors.Errorf("Trace column mismatch: %s != %s", c, t.cols[i])
		}
	}

	for _, row := range o.rows {
		cp := make([]float64, len(row))
		copy(cp, row)
		t.rows = append(t.rows, cp)
	}

	return nil
}

// WriteCSV writes a header row plus every recorded row.
func (t *Trace) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.cols); err != nil {
		return errors.Wrap(err, "Could not write trace header")
	}

	rec := make([]string, len(t.cols))
	for _, row := range t.rows {
		for i, v := range row {
			rec[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, "Could not write trace row")
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "Could not flush trace")
}
