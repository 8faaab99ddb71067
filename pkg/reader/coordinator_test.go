package reader

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiomdata/tabread/pkg/errors"
	stringpool "github.com/axiomdata/tabread/pkg/strings"
)

// memSink collects serialized rows for assertion.
type memSink struct {
	raw     []byte
	cfg     *ParseConfig
	cols    []ColumnSpec
	rows    [][]string
	summary *Summary
}

func (s *memSink) BeginTable(data []byte, cfg *ParseConfig, cols []ColumnSpec) error {
	s.cfg = cfg
	s.cols = cols
	return nil
}

func (s *memSink) AppendRow(values []Field64, anchor int) error {
	row := make([]string, len(s.cols))
	b := stringpool.NewBuilder(32)
	for j, f := range values {
		b.Reset()
		serializeField(b, s.raw, anchor, f, s.cols[j].Type, s.cfg)
		row[j] = b.String()
	}
	s.rows = append(s.rows, row)
	return nil
}

func (s *memSink) EndTable(summary *Summary) error {
	s.summary = summary
	return nil
}

var _ Sink = (*memSink)(nil)

func readAll(t *testing.T, data string, opts ReadOptions) (*memSink, *Summary) {
	t.Helper()
	sink := &memSink{raw: []byte(data)}
	summary, err := Read(context.Background(), []byte(data), sink, opts)
	require.NoError(t, err)
	return sink, summary
}

func TestReadBasic(t *testing.T) {
	data := "name,age,score\nalice,31,9.5\nbob,44,7.25\n"
	sink, summary := readAll(t, data, DefaultReadOptions())

	require.Equal(t, 2, summary.Rows)
	assert.True(t, summary.HasHeader)
	assert.Equal(t, "name", summary.Columns[0].Name)
	assert.Equal(t, TypeString, summary.Columns[0].Type)
	assert.Equal(t, TypeInt32, summary.Columns[1].Type)
	assert.Equal(t, TypeFloat64, summary.Columns[2].Type)

	assert.Equal(t, []string{"alice", "31", "9.5"}, sink.rows[0])
	assert.Equal(t, []string{"bob", "44", "7.25"}, sink.rows[1])
}

func TestReadNoHeader(t *testing.T) {
	sink, summary := readAll(t, "1,2\n3,4\n", DefaultReadOptions())
	require.Equal(t, 2, summary.Rows)
	assert.False(t, summary.HasHeader)
	assert.Equal(t, "C1", summary.Columns[0].Name)
	assert.Equal(t, []string{"1", "2"}, sink.rows[0])
}

func TestReadZeroOptions(t *testing.T) {
	// a zero ReadOptions leaves every dialect field in detection mode,
	// including the quote rule and the sampler candidate lists
	sink, summary := readAll(t, "a,b\n\"x,y\",1\n\"z\",2\n", ReadOptions{})
	require.Equal(t, 2, summary.Rows)
	assert.Equal(t, QuoteDoubled, summary.QuoteRule)
	assert.Equal(t, TypeString, summary.Columns[0].Type)
	assert.Equal(t, []string{"z", "2"}, sink.rows[1])
}

func TestReadStripsBOM(t *testing.T) {
	_, summary := readAll(t, "\ufeffa,b\n1,2\n", DefaultReadOptions())
	assert.Equal(t, "a", summary.Columns[0].Name)
	assert.Equal(t, 1, summary.Rows)
}

// wideData builds n rows over four typed columns, with a quoted string
// field whose content embeds the separator and a newline every few rows.
func wideData(n int) string {
	var sb strings.Builder
	sb.WriteString("id,flag,ratio,note\n")
	for i := 0; i < n; i++ {
		flag := "true"
		if i%3 == 0 {
			flag = "false"
		}
		note := fmt.Sprintf("note %d", i)
		if i%7 == 0 {
			note = fmt.Sprintf("\"multi\nline, note %d\"", i)
		}
		fmt.Fprintf(&sb, "%d,%s,%d.%02d,%s\n", i, flag, i, i%100, note)
	}
	return sb.String()
}

func TestReadChunkingEquivalence(t *testing.T) {
	data := wideData(400)

	single := DefaultReadOptions()
	single.Chunks = 1
	refSink, refSummary := readAll(t, data, single)

	for _, nchunks := range []int{2, 4, 9} {
		opts := DefaultReadOptions()
		opts.Chunks = nchunks
		opts.Workers = 4
		sink, summary := readAll(t, data, opts)

		require.Equal(t, refSummary.Rows, summary.Rows, "chunks=%d", nchunks)
		assert.Equal(t, refSummary.Columns, summary.Columns, "chunks=%d", nchunks)
		assert.Equal(t, refSink.rows, sink.rows, "chunks=%d", nchunks)
	}
}

func TestReadQuotedFieldSpansChunkBoundary(t *testing.T) {
	// a large quoted field sits across the nominal midpoint so the naive
	// boundary lands inside it; resync must push the boundary past it
	var sb strings.Builder
	sb.WriteString("k,v\n")
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&sb, "%d,x\n", i)
	}
	sb.WriteString("20,\"" + strings.Repeat("yyy\n", 40) + "end\"\n")
	for i := 21; i < 40; i++ {
		fmt.Fprintf(&sb, "%d,x\n", i)
	}
	data := sb.String()

	opts := DefaultReadOptions()
	opts.Chunks = 2
	_, summary := readAll(t, data, opts)
	assert.Equal(t, 40, summary.Rows)
}

func TestReadEuropeanFormat(t *testing.T) {
	opts := DefaultReadOptions()
	opts.Sep = ';'
	opts.Dec = ','
	opts.Header = No

	sink, summary := readAll(t, "1;2,5\n3;4,1\n", opts)
	require.Equal(t, 2, summary.Rows)
	assert.Equal(t, TypeInt32, summary.Columns[0].Type)
	assert.Equal(t, TypeFloat64, summary.Columns[1].Type)
	assert.Equal(t, []string{"1", "2,5"}, sink.rows[0])
	assert.Equal(t, []string{"3", "4,1"}, sink.rows[1])
}

func TestReadCrossChunkPromotion(t *testing.T) {
	// the sampler sees only integer rows; the string in the final row is
	// discovered by the last chunk, and earlier chunks must be repaired
	var sb strings.Builder
	for i := 0; i < 60; i++ {
		fmt.Fprintf(&sb, "%d,%d\n", i, i*10)
	}
	sb.WriteString("oops,600\n")
	data := sb.String()

	for _, policy := range []RetryPolicy{RetryColumns, RetryChunk} {
		opts := DefaultReadOptions()
		opts.Chunks = 4
		opts.RetryPolicy = policy
		opts.Sampler.SampleLines = 5
		sink, summary := readAll(t, data, opts)

		require.Equal(t, 61, summary.Rows, "policy=%d", policy)
		assert.Equal(t, TypeString, summary.Columns[0].Type)
		assert.Equal(t, TypeInt32, summary.Columns[1].Type)
		assert.Equal(t, []string{"0", "0"}, sink.rows[0], "repaired rows keep their text")
		assert.Equal(t, []string{"oops", "600"}, sink.rows[60])
		assert.NotEmpty(t, summary.Promotions)
	}
}

func TestReadBoolToIntPromotion(t *testing.T) {
	// bool literals cannot re-parse as integers, so repairing the column
	// must keep widening until the whole column fits
	data := "true,1\nfalse,2\n7,3\n"
	opts := DefaultReadOptions()
	opts.Sampler.SampleLines = 2

	sink, summary := readAll(t, data, opts)
	require.Equal(t, 3, summary.Rows)
	assert.Equal(t, TypeString, summary.Columns[0].Type)
	assert.Equal(t, []string{"true", "1"}, sink.rows[0])
	assert.Equal(t, []string{"7", "3"}, sink.rows[2])
}

func TestReadIntMinLiterals(t *testing.T) {
	// the most negative value of each integer width is the missing
	// sentinel, so its literal must widen the column, not come back NA
	sink, summary := readAll(t, "a\n-2147483648\n7\n", DefaultReadOptions())
	require.Equal(t, 2, summary.Rows)
	assert.Equal(t, TypeInt64, summary.Columns[0].Type)
	assert.Equal(t, []string{"-2147483648"}, sink.rows[0])
	assert.Equal(t, []string{"7"}, sink.rows[1])

	sink, summary = readAll(t, "a\n-9223372036854775808\n", DefaultReadOptions())
	require.Equal(t, 1, summary.Rows)
	assert.Equal(t, TypeFloat64, summary.Columns[0].Type)
	got, err := strconv.ParseFloat(sink.rows[0][0], 64)
	require.NoError(t, err)
	assert.Equal(t, float64(math.MinInt64), got)
}

func TestReadMalformedRowsSkipped(t *testing.T) {
	// the ragged row sits past the sampled prefix, so it surfaces during
	// parsing rather than poisoning dialect detection
	data := "a,b\n1,2\n3,4,5\n6,7\n"
	opts := DefaultReadOptions()
	opts.Sampler.SampleLines = 2
	sink, summary := readAll(t, data, opts)

	assert.Equal(t, 2, summary.Rows)
	assert.Equal(t, 1, summary.MalformedRows)
	assert.Equal(t, []string{"1", "2"}, sink.rows[0])
	assert.Equal(t, []string{"6", "7"}, sink.rows[1])
}

func TestReadAbortOnMalformed(t *testing.T) {
	opts := DefaultReadOptions()
	opts.ErrorPolicy = AbortOnMalformed
	opts.Sampler.SampleLines = 2

	sink := &memSink{raw: []byte("a,b\n1,2\n3,4,5\n")}
	_, err := Read(context.Background(), []byte("a,b\n1,2\n3,4,5\n"), sink, opts)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeMalformedRow))
	assert.Nil(t, sink.summary, "no output reaches the sink on failure")
}

func TestReadFillIncomplete(t *testing.T) {
	opts := DefaultReadOptions()
	opts.FillIncomplete = true
	opts.Header = No

	sink, summary := readAll(t, "1,2\n3\n5,6\n", opts)
	require.Equal(t, 3, summary.Rows)
	assert.Equal(t, []string{"3", ""}, sink.rows[1], "missing trailing field fills as NA")
}

func TestReadSkipBlankLines(t *testing.T) {
	_, summary := readAll(t, "a,b\n1,2\n\n\n3,4\n", DefaultReadOptions())
	assert.Equal(t, 2, summary.Rows)
	assert.Equal(t, 2, summary.SkippedBlank)
}

func TestReadMaxRows(t *testing.T) {
	opts := DefaultReadOptions()
	opts.MaxRows = 2
	sink, summary := readAll(t, "a,b\n1,2\n3,4\n5,6\n7,8\n", opts)
	assert.Equal(t, 2, summary.Rows)
	assert.Len(t, sink.rows, 2)
}

func TestReadCRLF(t *testing.T) {
	sink, summary := readAll(t, "a,b\r\n1,2\r\n3,4\r\n", DefaultReadOptions())
	require.Equal(t, 2, summary.Rows)
	assert.Equal(t, []string{"1", "2"}, sink.rows[0])
}

func TestReadLoneCR(t *testing.T) {
	opts := DefaultReadOptions()
	opts.CRIsNewline = true
	_, summary := readAll(t, "a,b\r1,2\r3,4\r", opts)
	assert.Equal(t, 2, summary.Rows)
}

func TestReadValidateEncoding(t *testing.T) {
	opts := DefaultReadOptions()
	opts.ValidateEncoding = true

	sink := &memSink{raw: []byte("a,b\n1,\xff\xfe\n")}
	_, err := Read(context.Background(), []byte("a,b\n1,\xff\xfe\n"), sink, opts)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeEncoding))
	assert.True(t, errors.IsFatal(err))
}

func TestReadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &memSink{raw: []byte("a,b\n1,2\n")}
	_, err := Read(ctx, []byte("a,b\n1,2\n"), sink, DefaultReadOptions())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCancelled))
}

func TestCoordinatorStates(t *testing.T) {
	data := []byte("a,b\n1,2\n")
	c := NewCoordinator(data, &memSink{raw: data}, DefaultReadOptions())
	assert.Equal(t, StateUnsplit, c.State())

	_, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateDone, c.State())

	bad := []byte("\"a,b\",c\n\"x,y\n")
	opts := DefaultReadOptions()
	opts.Sampler.SeparatorCandidates = []byte{','}
	c = NewCoordinator(bad, &memSink{raw: bad}, opts)
	_, err = c.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, c.State())
}

func TestSerializeRowRoundTrip(t *testing.T) {
	data := "42,true,1.5,\"say \"\"hi\"\"\"\n"
	cfg := DefaultParseConfig()
	ctx := newContext([]byte(data), 0, len(data), cfg)
	ctx.Target = make([]Field64, 4)
	types := []Type{TypeInt32, TypeBool, TypeFloat64, TypeString}
	sc := newLineScanner(ctx, types)
	require.Equal(t, rowOK, sc.ScanRecord(0))

	b := stringpool.NewBuilder(64)
	SerializeRow(b, []byte(data), 0, ctx.Target[:4], types, cfg)
	out := b.String()

	// parsing the serialized text again yields the same values
	ctx2 := newContext([]byte(out), 0, len(out), cfg)
	ctx2.Target = make([]Field64, 4)
	sc2 := newLineScanner(ctx2, types)
	require.Equal(t, rowOK, sc2.ScanRecord(0))

	assert.Equal(t, ctx.Target[0].Int32(), ctx2.Target[0].Int32())
	assert.Equal(t, ctx.Target[1].Bool(), ctx2.Target[1].Bool())
	assert.Equal(t, ctx.Target[2].Float64(), ctx2.Target[2].Float64())

	s1, ok1 := MaterializeString([]byte(data), 0, ctx.Target[3], cfg)
	s2, ok2 := MaterializeString([]byte(out), 0, ctx2.Target[3], cfg)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, s1, s2)
	assert.Equal(t, `say "hi"`, s1)
}

func TestSerializeRowRoundTripMinimal(t *testing.T) {
	// minimal quoting has no escape convention, so a value holding the
	// quote character round-trips as an unquoted verbatim field
	data := "1,say \"hi\" now\n"
	cfg := DefaultParseConfig()
	cfg.Rule = QuoteMinimal
	ctx := newContext([]byte(data), 0, len(data), cfg)
	ctx.Target = make([]Field64, 2)
	types := []Type{TypeInt32, TypeString}
	sc := newLineScanner(ctx, types)
	require.Equal(t, rowOK, sc.ScanRecord(0))

	b := stringpool.NewBuilder(32)
	SerializeRow(b, []byte(data), 0, ctx.Target[:2], types, cfg)
	out := b.String()
	assert.Equal(t, data, out)

	ctx2 := newContext([]byte(out), 0, len(out), cfg)
	ctx2.Target = make([]Field64, 2)
	sc2 := newLineScanner(ctx2, types)
	require.Equal(t, rowOK, sc2.ScanRecord(0))
	s2, ok := MaterializeString([]byte(out), 0, ctx2.Target[1], cfg)
	require.True(t, ok)
	assert.Equal(t, `say "hi" now`, s2)
}
