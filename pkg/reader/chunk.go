package reader

// ChunkCoordinates describes one partition's byte range [Start, End).
// Created by the coordinator before dispatch and consumed read-only by the
// worker; the worker reports a corrected end through ChunkResult when its
// last record extends past the nominal boundary.
type ChunkCoordinates struct {
	Start int
	End   int

	// TrueStart marks Start as a known clean line boundary, exempt from
	// resynchronization. Only the first chunk of a range qualifies.
	TrueStart bool

	// ApproxRows is the coordinator's row-count estimate for buffer
	// pre-sizing; workers validate their observed count against it only
	// for diagnostics.
	ApproxRows int
}

// Promotion records one column type widening forced by a value that
// rejected the narrower parser.
type Promotion struct {
	Column int
	From   Type
	To     Type
	// Row is the chunk-local row index that forced the widening.
	Row int
	// Offset is the input byte offset of the offending field.
	Offset int
}

// ChunkResult carries one worker's output back to the coordinator. Rows
// are stored row-major in Values (NRows x stride), with string references
// anchored at Coords.Start.
type ChunkResult struct {
	Index  int
	Coords ChunkCoordinates

	// ActualEnd is where parsing really stopped: equal to Coords.End
	// unless the last record straddled the nominal boundary.
	ActualEnd int

	Values     []Field64
	NRows      int
	RowOffsets []int // line start of each row, for column re-parse

	// Types is the per-column type vector after this chunk's promotions.
	Types      []Type
	Promotions []Promotion

	MalformedRows int
	SkippedBlank  int

	Err error
}
