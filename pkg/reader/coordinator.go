package reader

import (
	"bytes"
	"context"
	"runtime"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/axiomdata/tabread/pkg/errors"
	"github.com/axiomdata/tabread/pkg/logger"
	"github.com/axiomdata/tabread/pkg/metrics"
	"github.com/axiomdata/tabread/pkg/pool"
)

// State is the coordinator's lifecycle phase.
type State int8

const (
	StateUnsplit State = iota
	StateSampling
	StateDispatched
	StatePartiallyParsed
	StateMerged
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnsplit:
		return "unsplit"
	case StateSampling:
		return "sampling"
	case StateDispatched:
		return "dispatched"
	case StatePartiallyParsed:
		return "partially_parsed"
	case StateMerged:
		return "merged"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// Coordinator partitions the input into chunks, resynchronizes chunk
// boundaries onto record starts, dispatches chunks to a bounded worker
// pool, reconciles type promotions, and hands the ordered result to the
// sink. Workers share no mutable state: each owns its ParseContext and
// output buffer, and the ParseConfig is shared read-only.
type Coordinator struct {
	data []byte
	opts ReadOptions
	sink Sink
	log  *zap.Logger

	state   State
	cfg     *ParseConfig
	dialect *Dialect
}

// NewCoordinator prepares a parse of data into sink. Run does the work.
func NewCoordinator(data []byte, sink Sink, opts ReadOptions) *Coordinator {
	if bytes.HasPrefix(data, utf8BOM) {
		data = data[len(utf8BOM):]
	}
	opts.Sampler = opts.Sampler.withDefaults()
	return &Coordinator{
		data:  data,
		opts:  opts,
		sink:  sink,
		log:   logger.Get(),
		state: StateUnsplit,
	}
}

// Read parses data into sink with the given options. It is the package's
// main entry point.
func Read(ctx context.Context, data []byte, sink Sink, opts ReadOptions) (*Summary, error) {
	return NewCoordinator(data, sink, opts).Run(ctx)
}

// State returns the coordinator's current phase.
func (c *Coordinator) State() State {
	return c.state
}

func (c *Coordinator) setState(s State) {
	c.log.Debug("coordinator state transition",
		zap.String("from", c.state.String()),
		zap.String("to", s.String()))
	c.state = s
}

func (c *Coordinator) fail(err error) (*Summary, error) {
	c.setState(StateFailed)
	c.log.Error("parse failed", zap.Error(err))
	return nil, err
}

// Run executes the parse: Sampling, Dispatched, PartiallyParsed, Merged,
// Done, with Failed reachable from any phase. No output reaches the sink
// unless the whole parse succeeds.
func (c *Coordinator) Run(ctx context.Context) (*Summary, error) {
	timer := metrics.NewParseTimer()
	defer timer.Stop()

	c.setState(StateSampling)
	cfg, fixedSep, fixedRule := c.opts.buildConfig()

	if c.opts.ValidateEncoding && !utf8.Valid(c.data) {
		return c.fail(errors.New(errors.ErrorTypeEncoding,
			"input is not valid UTF-8"))
	}

	dialect, err := detectDialect(c.data, cfg, fixedSep, fixedRule, c.opts.Header, c.opts.Sampler, c.log)
	if err != nil {
		return c.fail(err)
	}
	cfg.Sep = dialect.Sep
	cfg.Rule = dialect.Rule
	c.cfg = cfg
	c.dialect = dialect

	c.log.Info("dialect settled",
		zap.String("sep", string(dialect.Sep)),
		zap.String("quote_rule", dialect.Rule.String()),
		zap.Bool("header", dialect.HasHeader),
		zap.Int("ncols", dialect.NCols))

	c.setState(StateDispatched)
	chunks, err := c.planChunks()
	if err != nil {
		return c.fail(err)
	}
	metrics.BytesIngested.Add(float64(len(c.data) - dialect.DataStart))

	c.setState(StatePartiallyParsed)
	results, err := c.dispatch(ctx, chunks)
	if err != nil {
		return c.fail(err)
	}

	c.setState(StateMerged)
	summary, err := c.merge(results)
	if err != nil {
		return c.fail(err)
	}

	c.setState(StateDone)
	c.log.Info("parse complete",
		zap.Int("rows", summary.Rows),
		zap.Int("chunks", summary.Chunks),
		zap.Int("malformed", summary.MalformedRows))
	return summary, nil
}

// planChunks divides the data range into approximately equal spans and
// resynchronizes every boundary except the first onto a verified record
// start. A boundary whose span contains no line terminator merges into
// the previous chunk; one whose candidates all fail verification is an
// unresolvable boundary and fails the parse.
func (c *Coordinator) planChunks() ([]ChunkCoordinates, error) {
	dataStart := c.dialect.DataStart
	size := len(c.data) - dataStart
	if size <= 0 {
		return nil, nil
	}

	nchunks := c.opts.Chunks
	if nchunks <= 0 {
		workers := c.workerCount()
		minChunk := c.opts.MinChunkBytes
		if minChunk <= 0 {
			minChunk = 256 << 10
		}
		nchunks = size / minChunk
		if nchunks > workers*4 {
			nchunks = workers * 4
		}
		if nchunks < 1 {
			nchunks = 1
		}
	}

	span := size / nchunks
	meanLine := c.dialect.MeanLineLen
	if meanLine < 1 {
		meanLine = 32
	}

	ctx := newContext(c.data, dataStart, len(c.data), c.cfg)
	starts := []int{dataStart}
	for i := 1; i < nchunks; i++ {
		nominal := dataStart + i*span
		prev := starts[len(starts)-1]
		if nominal <= prev {
			continue
		}
		cc := ChunkCoordinates{Start: nominal, End: min(nominal+span, len(c.data))}
		if ctx.NextGoodLineStart(cc, c.dialect.NCols) {
			if ctx.Ch > prev {
				starts = append(starts, ctx.Ch)
			}
			continue
		}
		if hasLineTerminator(c.data[nominal:cc.End], c.cfg.CRIsNewline) {
			return nil, errors.New(errors.ErrorTypeChunkBoundary,
				"no verifiable record start within chunk boundary lookahead").
				WithOffset(nominal)
		}
		// no terminator at all in the span: a single record covers it,
		// so the boundary dissolves into the previous chunk
	}

	chunks := make([]ChunkCoordinates, len(starts))
	for i, s := range starts {
		end := len(c.data)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		chunks[i] = ChunkCoordinates{
			Start:      s,
			End:        end,
			TrueStart:  i == 0,
			ApproxRows: (end-s)/meanLine + 8,
		}
	}

	c.log.Debug("chunks planned",
		zap.Int("requested", nchunks),
		zap.Int("planned", len(chunks)))
	return chunks, nil
}

func hasLineTerminator(b []byte, crIsNewline bool) bool {
	if bytes.IndexByte(b, '\n') >= 0 {
		return true
	}
	return crIsNewline && bytes.IndexByte(b, '\r') >= 0
}

func (c *Coordinator) workerCount() int {
	if c.opts.Workers > 0 {
		return c.opts.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// dispatch runs the chunk workers and joins them. Worker outputs are
// buffered per chunk; completion order does not matter because the merge
// walks results in chunk order. On the first failure the remaining
// scheduling is cancelled and in-flight output discarded.
func (c *Coordinator) dispatch(ctx context.Context, chunks []ChunkCoordinates) ([]*ChunkResult, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	workers := c.workerCount()
	if workers > len(chunks) {
		workers = len(chunks)
	}

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	chunkCh := make(chan int)
	results := make([]*ChunkResult, len(chunks))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range chunkCh {
				if wctx.Err() != nil {
					continue // drain; output would be discarded anyway
				}
				res := c.parseChunk(wctx, chunks[idx], idx)
				results[idx] = res
				if res.Err != nil {
					cancel()
				}
			}
		}()
	}

	go func() {
		defer close(chunkCh)
		for i := range chunks {
			select {
			case chunkCh <- i:
			case <-wctx.Done():
				return
			}
		}
	}()

	wg.Wait()

	for _, res := range results {
		if res != nil && res.Err != nil {
			return nil, res.Err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeCancelled, "parse cancelled")
	}
	for i, res := range results {
		if res == nil {
			return nil, errors.Newf(errors.ErrorTypeInternal,
				"chunk %d never reported", i)
		}
	}

	// boundary validation: each chunk must stop exactly where its
	// successor begins, or the workers disagreed about record boundaries
	for i := 0; i+1 < len(results); i++ {
		if results[i].ActualEnd != results[i+1].Coords.Start {
			return nil, errors.Newf(errors.ErrorTypeChunkBoundary,
				"chunk %d ended at %d, chunk %d starts at %d",
				i, results[i].ActualEnd, i+1, results[i+1].Coords.Start).
				WithOffset(results[i].ActualEnd)
		}
	}
	return results, nil
}

// parseChunk parses one chunk to completion or its first unrecoverable
// error. The context's Eof stays at the true end of input so the last
// record may legitimately finish past the nominal boundary; the corrected
// end is reported in the result.
func (c *Coordinator) parseChunk(ctx context.Context, cc ChunkCoordinates, idx int) *ChunkResult {
	metrics.ChunksDispatched.Inc()

	ncols := c.dialect.NCols
	pctx := newContext(c.data, cc.Start, len(c.data), c.cfg)
	pctx.Anchor = cc.Start
	pctx.Target = make([]Field64, cc.ApproxRows*ncols)

	sc := newLineScanner(pctx, c.dialect.Types)
	res := &ChunkResult{Index: idx, Coords: cc}
	rowOffsets := pool.GetIntSlice()

	for pctx.Ch < cc.End {
		if len(rowOffsets)%1024 == 0 && ctx.Err() != nil {
			res.Err = errors.Wrap(ctx.Err(), errors.ErrorTypeCancelled, "worker cancelled")
			break
		}
		lineStart := pctx.Ch
		switch sc.ScanRecord(len(rowOffsets)) {
		case rowEOF:
			pctx.Ch = cc.End // normalize for boundary validation at eof
			goto scanned
		case rowBlank:
			res.SkippedBlank++
		case rowMalformed:
			if c.opts.ErrorPolicy == AbortOnMalformed {
				res.Err = errors.New(errors.ErrorTypeMalformedRow,
					"row does not match the table shape").WithOffset(lineStart)
				goto scanned
			}
			res.MalformedRows++
			sc.skipPastEOL()
		case rowOK:
			rowOffsets = append(rowOffsets, lineStart)
		}
	}

scanned:
	res.ActualEnd = pctx.Ch
	res.NRows = len(rowOffsets)
	res.RowOffsets = rowOffsets
	res.Values = pctx.Target[:res.NRows*ncols]
	res.Types = sc.types
	res.Promotions = sc.promotions
	if res.Err != nil {
		return res
	}

	// rows parsed before a mid-chunk promotion hold stale narrower values
	repair := make([]bool, ncols)
	for _, p := range sc.promotions {
		repair[p.Column] = true
	}
	if err := c.repairChunk(res, res.Types, repair); err != nil {
		res.Err = err
	}
	return res
}

// repairChunk re-parses the stale columns of a chunk: those flagged in
// repair, plus any whose current type is narrower than want. Repair can
// widen types further (a column of boolean literals cannot re-parse as
// integer), so the chunk's type vector may exceed want afterwards; the
// merge loop runs chunks to a global fixed point.
func (c *Coordinator) repairChunk(res *ChunkResult, want []Type, repair []bool) error {
	if res.NRows == 0 {
		for j, t := range want {
			if t > res.Types[j] {
				res.Types[j] = t
			}
		}
		return nil
	}

	any := false
	for j := range res.Types {
		if repair[j] || want[j] > res.Types[j] {
			any = true
			break
		}
	}
	if !any {
		return nil
	}

	if c.opts.RetryPolicy == RetryChunk {
		for j, t := range want {
			if t > res.Types[j] {
				res.Types[j] = t
			}
		}
		return c.reparseWholeChunk(res)
	}

	pctx := newContext(c.data, res.Coords.Start, len(c.data), c.cfg)
	pctx.Anchor = res.Coords.Start

	for j := range res.Types {
		if !repair[j] && want[j] <= res.Types[j] {
			continue
		}
		t := res.Types[j]
		if want[j] > t {
			t = want[j]
		}
		for {
			err := reparseColumn(pctx, res.RowOffsets[:res.NRows], res.Values, len(res.Types), j, t)
			if err == nil {
				break
			}
			if t >= TypeString {
				return err
			}
			t++
		}
		if t > res.Types[j] {
			res.Promotions = append(res.Promotions, Promotion{
				Column: j, From: res.Types[j], To: t,
			})
			res.Types[j] = t
		}
	}
	return nil
}

// reparseWholeChunk rescans a chunk from its start with the current type
// vector, iterating until no further promotion occurs.
func (c *Coordinator) reparseWholeChunk(res *ChunkResult) error {
	ncols := len(res.Types)
	for {
		pctx := newContext(c.data, res.Coords.Start, len(c.data), c.cfg)
		pctx.Anchor = res.Coords.Start
		pctx.Target = res.Values
		sc := newLineScanner(pctx, res.Types)

		rows := 0
		for pctx.Ch < res.Coords.End && rows < res.NRows {
			status := sc.ScanRecord(rows)
			if status == rowEOF {
				break
			}
			if status == rowMalformed {
				sc.skipPastEOL()
				continue
			}
			if status == rowOK {
				rows++
			}
		}
		if rows != res.NRows {
			return errors.Newf(errors.ErrorTypeInternal,
				"chunk re-parse produced %d rows, expected %d", rows, res.NRows)
		}
		res.Values = pctx.Target[:rows*ncols]

		if len(sc.promotions) == 0 {
			return nil
		}
		res.Promotions = append(res.Promotions, sc.promotions...)
		copy(res.Types, sc.types)
	}
}

// merge reconciles per-chunk type promotions into a global type vector,
// repairs chunks parsed with narrower types, and hands rows to the sink
// in chunk-start-offset order.
func (c *Coordinator) merge(results []*ChunkResult) (*Summary, error) {
	ncols := c.dialect.NCols
	final := make([]Type, ncols)
	copy(final, c.dialect.Types)

	// a column promoted in any chunk is globally promoted; repair can
	// widen further, so iterate to a fixed point
	noForce := make([]bool, ncols)
	for {
		changed := false
		for _, res := range results {
			for j, t := range res.Types {
				if t > final[j] {
					final[j] = t
					changed = true
				}
			}
		}
		for _, res := range results {
			needs := false
			for j := range final {
				if res.Types[j] < final[j] {
					needs = true
					break
				}
			}
			if needs {
				if err := c.repairChunk(res, final, noForce); err != nil {
					return nil, err
				}
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	cols := make([]ColumnSpec, ncols)
	for j := 0; j < ncols; j++ {
		cols[j] = ColumnSpec{Name: c.dialect.ColumnNames[j], Type: final[j]}
	}

	summary := &Summary{
		Columns:   cols,
		Sep:       c.cfg.Sep,
		QuoteRule: c.cfg.Rule,
		HasHeader: c.dialect.HasHeader,
		Chunks:    len(results),
	}

	if err := c.sink.BeginTable(c.data, c.cfg, cols); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "sink rejected table")
	}

	rows := 0
	for _, res := range results {
		summary.MalformedRows += res.MalformedRows
		summary.SkippedBlank += res.SkippedBlank
		summary.Promotions = append(summary.Promotions, res.Promotions...)

		for i := 0; i < res.NRows; i++ {
			if c.opts.MaxRows > 0 && rows >= c.opts.MaxRows {
				break
			}
			row := res.Values[i*ncols : (i+1)*ncols]
			if err := c.sink.AppendRow(row, res.Coords.Start); err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeData, "sink rejected row")
			}
			rows++
		}
		pool.PutIntSlice(res.RowOffsets)
	}
	summary.Rows = rows

	metrics.RowsParsed.WithLabelValues("ok").Add(float64(rows))
	metrics.RowsParsed.WithLabelValues("skipped").Add(float64(summary.MalformedRows))
	for _, p := range summary.Promotions {
		metrics.TypePromotions.WithLabelValues(p.To.String()).Inc()
	}

	if err := c.sink.EndTable(summary); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "sink rejected summary")
	}
	return summary, nil
}
