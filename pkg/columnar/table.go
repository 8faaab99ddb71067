package columnar

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/axiomdata/tabread/pkg/reader"
)

// Table is a fully materialized parse result: named, typed columns of
// equal length plus the parse summary.
type Table struct {
	names   []string
	columns []Column
	summary *reader.Summary
}

// NumRows returns the row count.
func (t *Table) NumRows() int {
	if len(t.columns) == 0 {
		return 0
	}
	return t.columns[0].Len()
}

// NumCols returns the column count.
func (t *Table) NumCols() int {
	return len(t.columns)
}

// Names returns the column names.
func (t *Table) Names() []string {
	return t.names
}

// Column returns the i-th column.
func (t *Table) Column(i int) Column {
	return t.columns[i]
}

// ColumnByName returns the named column, or nil.
func (t *Table) ColumnByName(name string) Column {
	for i, n := range t.names {
		if n == name {
			return t.columns[i]
		}
	}
	return nil
}

// Summary returns the parse summary, nil until the sink finishes.
func (t *Table) Summary() *reader.Summary {
	return t.summary
}

// Row returns row i as one value per column, nil for missing cells.
func (t *Table) Row(i int) []interface{} {
	out := make([]interface{}, len(t.columns))
	for j, col := range t.columns {
		out[j] = col.Get(i)
	}
	return out
}

// MemoryUsage returns the approximate heap footprint in bytes.
func (t *Table) MemoryUsage() int64 {
	var total int64
	for _, col := range t.columns {
		total += col.MemoryUsage()
	}
	return total
}

// MarshalJSON renders the table as column metadata plus row-major values.
func (t *Table) MarshalJSON() ([]byte, error) {
	type colMeta struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}
	cols := make([]colMeta, len(t.columns))
	for j, col := range t.columns {
		cols[j] = colMeta{Name: t.names[j], Type: col.Type().String()}
	}
	rows := make([][]interface{}, t.NumRows())
	for i := range rows {
		rows[i] = t.Row(i)
	}
	return json.Marshal(struct {
		Columns []colMeta       `json:"columns"`
		Rows    [][]interface{} `json:"rows"`
	}{cols, rows})
}

// TableSink builds a Table from the engine's output stream. It implements
// reader.Sink, copying string bytes out of the input buffer as rows
// arrive so the table remains valid after the buffer is released.
type TableSink struct {
	table *Table
	data  []byte
	cfg   *reader.ParseConfig
	types []reader.Type
}

// NewTableSink creates an empty sink.
func NewTableSink() *TableSink {
	return &TableSink{}
}

// Table returns the materialized table; valid after the parse completes.
func (s *TableSink) Table() *Table {
	return s.table
}

// BeginTable implements reader.Sink.
func (s *TableSink) BeginTable(data []byte, cfg *reader.ParseConfig, cols []reader.ColumnSpec) error {
	s.data = data
	s.cfg = cfg
	s.types = make([]reader.Type, len(cols))
	s.table = &Table{
		names:   make([]string, len(cols)),
		columns: make([]Column, len(cols)),
	}
	for j, spec := range cols {
		col, err := newColumn(spec.Type, 1024)
		if err != nil {
			return err
		}
		s.table.columns[j] = col
		s.table.names[j] = spec.Name
		s.types[j] = spec.Type
	}
	return nil
}

// AppendRow implements reader.Sink.
func (s *TableSink) AppendRow(values []reader.Field64, anchor int) error {
	if len(values) != len(s.types) {
		return fmt.Errorf("row has %d values, table has %d columns", len(values), len(s.types))
	}
	for j, f := range values {
		missing := f.IsNA(s.types[j])
		switch col := s.table.columns[j].(type) {
		case *BoolColumn:
			col.Append(f.Bool(), missing)
		case *Int32Column:
			col.Append(f.Int32(), missing)
		case *Int64Column:
			col.Append(f.Int64(), missing)
		case *Float64Column:
			col.Append(f.Float64(), missing)
		case *StringColumn:
			var v string
			if !missing {
				v, _ = reader.MaterializeString(s.data, anchor, f, s.cfg)
			}
			col.Append(v, missing)
		}
	}
	return nil
}

// EndTable implements reader.Sink.
func (s *TableSink) EndTable(summary *reader.Summary) error {
	s.table.summary = summary
	return nil
}
