package reader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ctxOver(s string, cfg *ParseConfig) *ParseContext {
	if cfg == nil {
		cfg = DefaultParseConfig()
	}
	return newContext([]byte(s), 0, len(s), cfg)
}

func TestCountFields(t *testing.T) {
	tests := []struct {
		name string
		line string
		want int
	}{
		{"blank", "\n", 0},
		{"single", "abc\n", 1},
		{"three", "a,b,c\n", 3},
		{"trailing separator means empty last field", "a,b,\n", 3},
		{"leading separator", ",a\n", 2},
		{"quoted separator does not split", `"a,b",c` + "\n", 2},
		{"no trailing newline", "a,b", 2},
		{"doubled quote inside quotes", `"say ""hi""",x` + "\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ctxOver(tt.line, nil)
			assert.Equal(t, tt.want, ctx.CountFields())
		})
	}
}

func TestCountFieldsInvalidQuoting(t *testing.T) {
	// unterminated quote under the doubled rule
	ctx := ctxOver(`"never closed,a`+"\n", nil)
	assert.Equal(t, -1, ctx.CountFields())

	// garbage between a closing quote and the separator
	ctx = ctxOver(`"ok"junk,b`+"\n", nil)
	assert.Equal(t, -1, ctx.CountFields())
}

func TestCountFieldsAdvancesPastEOL(t *testing.T) {
	ctx := ctxOver("a,b\nc,d\n", nil)
	require.Equal(t, 2, ctx.CountFields())
	assert.Equal(t, 4, ctx.Ch, "cursor must sit on the next line start")
	require.Equal(t, 2, ctx.CountFields())
	assert.Equal(t, 8, ctx.Ch)
}

func TestSkipEOL(t *testing.T) {
	ctx := ctxOver("\nx", nil)
	assert.True(t, ctx.SkipEOL())
	assert.Equal(t, 1, ctx.Ch)

	ctx = ctxOver("\r\nx", nil)
	assert.True(t, ctx.SkipEOL())
	assert.Equal(t, 2, ctx.Ch, "CRLF consumes both bytes")

	// a lone CR is data unless CRIsNewline is set
	ctx = ctxOver("\rx", nil)
	assert.False(t, ctx.SkipEOL())

	cfg := DefaultParseConfig()
	cfg.CRIsNewline = true
	ctx = ctxOver("\rx", cfg)
	assert.True(t, ctx.SkipEOL())
	assert.Equal(t, 1, ctx.Ch)
}

func TestEndNAString(t *testing.T) {
	cfg := DefaultParseConfig()
	cfg.NAStrings = []string{"NA", "N/A"}

	ctx := ctxOver("N/A,x", cfg)
	assert.Equal(t, 3, ctx.EndNAString(0), "longest marker wins")

	ctx = ctxOver("NAT,x", cfg)
	assert.Equal(t, 2, ctx.EndNAString(0), "prefix match reports its own end")

	ctx = ctxOver("zz", cfg)
	assert.Equal(t, 0, ctx.EndNAString(0))
}

func TestNextGoodLineStart(t *testing.T) {
	data := "h1,h2,h3\n1,2,3\n4,5,6\n7,8,9\n10,11,12\n"
	cfg := DefaultParseConfig()
	ctx := newContext([]byte(data), 0, len(data), cfg)

	// nominal boundary lands mid-record; resync must land on "4,5,6"
	cc := ChunkCoordinates{Start: 11, End: len(data)}
	require.True(t, ctx.NextGoodLineStart(cc, 3))
	assert.Equal(t, 15, ctx.Ch)
	assert.Equal(t, byte('4'), data[ctx.Ch])
}

func TestNextGoodLineStartTrueStart(t *testing.T) {
	data := "1,2\n3,4\n"
	ctx := ctxOver(data, nil)
	cc := ChunkCoordinates{Start: 0, End: len(data), TrueStart: true}
	require.True(t, ctx.NextGoodLineStart(cc, 2))
	assert.Equal(t, 0, ctx.Ch, "the first chunk never resynchronizes")
}

func TestNextGoodLineStartQuotedNewline(t *testing.T) {
	// the newline inside the quoted field is a false line start; counting
	// fields from it yields 3, so verification rejects it and moves on to
	// the real record start
	data := "\"a\nx,y\",1\n\"c\",2\n\"d\",3\n\"e\",4\n\"f\",5\n\"g\",6\n"
	cfg := DefaultParseConfig()
	ctx := newContext([]byte(data), 0, len(data), cfg)

	cc := ChunkCoordinates{Start: 1, End: len(data)}
	require.True(t, ctx.NextGoodLineStart(cc, 2))
	assert.Equal(t, byte('"'), data[ctx.Ch])
	assert.Equal(t, 10, ctx.Ch, "must skip the embedded newline at offset 2")
}

func TestNextGoodLineStartNoTerminator(t *testing.T) {
	data := "one long line without any newline at all"
	ctx := ctxOver(data, nil)
	cc := ChunkCoordinates{Start: 5, End: len(data)}
	assert.False(t, ctx.NextGoodLineStart(cc, 1))
}

func TestAtEndOfField(t *testing.T) {
	ctx := ctxOver(",", nil)
	assert.True(t, ctx.AtEndOfField())

	ctx = ctxOver("x", nil)
	assert.False(t, ctx.AtEndOfField())
	ctx.Ch = 1
	assert.True(t, ctx.AtEndOfField(), "end of input is a boundary")

	ctx = ctxOver("\r\n", nil)
	assert.True(t, ctx.AtEndOfField())
}
