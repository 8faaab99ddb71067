package reader

// ColumnSpec describes one output column to the sink.
type ColumnSpec struct {
	Name string
	Type Type
}

// Summary reports what a parse did: the shape of the result, the detected
// dialect, and the recovery counters. It is handed to the sink after the
// last row and returned to the caller.
type Summary struct {
	Rows          int
	Columns       []ColumnSpec
	Sep           byte
	QuoteRule     QuoteRule
	HasHeader     bool
	Chunks        int
	MalformedRows int
	SkippedBlank  int
	Promotions    []Promotion
}

// Sink receives the parse output. The engine calls BeginTable once with
// the inferred column specs, AppendRow once per row in final merge order,
// and EndTable once with the summary. String-reference values in a row
// borrow from data and must be copied before the buffer is released;
// MaterializeString resolves them.
type Sink interface {
	BeginTable(data []byte, cfg *ParseConfig, cols []ColumnSpec) error
	AppendRow(values []Field64, anchor int) error
	EndTable(summary *Summary) error
}
