package reader

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseOne runs the parser for typ on the first field of input.
func parseOne(typ Type, input string, cfg *ParseConfig) (Field64, bool) {
	if cfg == nil {
		cfg = DefaultParseConfig()
	}
	ctx := newContext([]byte(input), 0, len(input), cfg)
	ctx.Target = make([]Field64, 1)
	ok := fieldParsers[typ](ctx)
	return ctx.Target[0], ok
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		in   string
		ok   bool
		want bool
	}{
		{"true", true, true},
		{"True", true, true},
		{"TRUE", true, true},
		{"false", true, false},
		{"False", true, false},
		{"FALSE", true, false},
		{"true,next", true, true},
		{"truex", false, false},
		{"1", false, false},
		{"yes", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			f, ok := parseOne(TypeBool, tt.in, nil)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, f.Bool())
			}
		})
	}
}

func TestParseBoolCustomLiterals(t *testing.T) {
	cfg := DefaultParseConfig()
	cfg.TrueStrings = []string{"Y"}
	cfg.FalseStrings = []string{"N"}

	f, ok := parseOne(TypeBool, "Y,", cfg)
	require.True(t, ok)
	assert.True(t, f.Bool())

	_, ok = parseOne(TypeBool, "true,", cfg)
	assert.False(t, ok, "default literals are replaced, not extended")
}

func TestParseInt32(t *testing.T) {
	tests := []struct {
		in   string
		ok   bool
		want int32
	}{
		{"0", true, 0},
		{"42", true, 42},
		{"-7", true, -7},
		{"+15", true, 15},
		{"2147483647", true, math.MaxInt32},
		{"-2147483647", true, -math.MaxInt32},
		{"2147483648", false, 0}, // one past MaxInt32, retried as int64
		{"-2147483648", false, 0}, // MinInt32 is the missing sentinel
		{"-2147483649", false, 0},
		{"12.5", false, 0},
		{"12x", false, 0},
		{"", true, 0}, // blank is NA by default
		{"NA", true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			f, ok := parseOne(TypeInt32, tt.in, nil)
			require.Equal(t, tt.ok, ok)
			if ok && tt.in != "" && tt.in != "NA" {
				assert.Equal(t, tt.want, f.Int32())
			}
		})
	}

	f, _ := parseOne(TypeInt32, "NA", nil)
	assert.True(t, f.IsNA(TypeInt32))
}

func TestParseInt64(t *testing.T) {
	f, ok := parseOne(TypeInt64, "2147483648", nil)
	require.True(t, ok, "fits in int64 even though it overflows int32")
	assert.Equal(t, int64(2147483648), f.Int64())

	f, ok = parseOne(TypeInt64, "9223372036854775807", nil)
	require.True(t, ok)
	assert.Equal(t, int64(math.MaxInt64), f.Int64())

	_, ok = parseOne(TypeInt64, "9223372036854775808", nil)
	assert.False(t, ok, "int64 overflow fails instead of wrapping")

	f, ok = parseOne(TypeInt64, "-9223372036854775807", nil)
	require.True(t, ok)
	assert.Equal(t, int64(math.MinInt64+1), f.Int64())
	assert.False(t, f.IsNA(TypeInt64))

	_, ok = parseOne(TypeInt64, "-9223372036854775808", nil)
	assert.False(t, ok, "MinInt64 is the missing sentinel, not a value")
}

func TestParseFloat64(t *testing.T) {
	tests := []struct {
		in   string
		ok   bool
		want float64
	}{
		{"3.14", true, 3.14},
		{"-0.5", true, -0.5},
		{".5", true, 0.5},
		{"5.", true, 5},
		{"1e3", true, 1000},
		{"1.5E-2", true, 0.015},
		{"42", true, 42},
		{"1e", false, 0}, // bare exponent marker is not numeric
		{"abc", false, 0},
		{"1.2.3", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			f, ok := parseOne(TypeFloat64, tt.in, nil)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, f.Float64())
			}
		})
	}
}

func TestParseFloat64Extent(t *testing.T) {
	// "1e" has a valid mantissa and an incomplete exponent: the extent stops
	// before 'e', then 'e' blocks the field boundary and the parse fails
	cfg := DefaultParseConfig()
	ctx := newContext([]byte("1e,"), 0, 3, cfg)
	ctx.Target = make([]Field64, 1)
	assert.False(t, parseFloat64(ctx))
	assert.Equal(t, 0, ctx.Ch, "cursor restored on failure")
}

func TestParseFloat64Special(t *testing.T) {
	f, ok := parseOne(TypeFloat64, "NaN", nil)
	require.True(t, ok)
	assert.True(t, math.IsNaN(f.Float64()))
	assert.False(t, f.IsNA(TypeFloat64), "a parsed NaN is a value")

	f, ok = parseOne(TypeFloat64, "Inf", nil)
	require.True(t, ok)
	assert.True(t, math.IsInf(f.Float64(), 1))

	f, ok = parseOne(TypeFloat64, "-Infinity", nil)
	require.True(t, ok)
	assert.True(t, math.IsInf(f.Float64(), -1))
}

func TestParseFloat64DecimalSeparator(t *testing.T) {
	cfg := DefaultParseConfig()
	cfg.Sep = ';'
	cfg.Dec = ','

	f, ok := parseOne(TypeFloat64, "3,14;x", cfg)
	require.True(t, ok)
	assert.Equal(t, 3.14, f.Float64())

	f, ok = parseOne(TypeFloat64, "-2,5e2;", cfg)
	require.True(t, ok)
	assert.Equal(t, -250.0, f.Float64())
}

func strOf(t *testing.T, data string, f Field64) string {
	t.Helper()
	off, length := f.Str()
	require.GreaterOrEqual(t, length, int32(0))
	return data[off : off+uint32(length)]
}

func TestParseString(t *testing.T) {
	data := "hello,next"
	f, ok := parseOne(TypeString, data, nil)
	require.True(t, ok)
	assert.Equal(t, "hello", strOf(t, data, f))
}

func TestParseStringQuoted(t *testing.T) {
	data := `"a,b",next`
	f, ok := parseOne(TypeString, data, nil)
	require.True(t, ok)
	assert.Equal(t, "a,b", strOf(t, data, f), "span excludes the quotes")
}

func TestParseStringEscapesRetained(t *testing.T) {
	data := `"say ""hi""",x`
	f, ok := parseOne(TypeString, data, nil)
	require.True(t, ok)

	// the zero-copy span keeps the doubled quotes; Unescape resolves them
	off, length := f.Str()
	span := []byte(data)[off : off+uint32(length)]
	assert.Equal(t, `say ""hi""`, string(span))
	assert.Equal(t, `say "hi"`, string(Unescape(span, QuoteDoubled, '"')))
}

func TestParseStringBackslashRule(t *testing.T) {
	cfg := DefaultParseConfig()
	cfg.Rule = QuoteBackslash

	data := `"a \"b\", c",x`
	f, ok := parseOne(TypeString, data, cfg)
	require.True(t, ok)

	off, length := f.Str()
	span := []byte(data)[off : off+uint32(length)]
	assert.Equal(t, `a "b", c`, string(Unescape(span, QuoteBackslash, '"')))
}

func TestParseStringQuoteNone(t *testing.T) {
	cfg := DefaultParseConfig()
	cfg.Rule = QuoteNone

	data := `"raw,next`
	f, ok := parseOne(TypeString, data, cfg)
	require.True(t, ok)
	assert.Equal(t, `"raw`, strOf(t, data, f), "quote byte is ordinary data")
}

func TestParseStringUnterminatedQuote(t *testing.T) {
	_, ok := parseOne(TypeString, `"never closed`, nil)
	assert.False(t, ok)
}

func TestParseStringWhitespaceStrip(t *testing.T) {
	data := "  padded  ,x"
	f, ok := parseOne(TypeString, data, nil)
	require.True(t, ok)
	assert.Equal(t, "padded", strOf(t, data, f))

	cfg := DefaultParseConfig()
	cfg.StripWhitespace = false
	f, ok = parseOne(TypeString, data, cfg)
	require.True(t, ok)
	assert.Equal(t, "  padded  ", strOf(t, data, f))
}

func TestParseStringNA(t *testing.T) {
	f, ok := parseOne(TypeString, "NA,x", nil)
	require.True(t, ok)
	assert.True(t, f.IsNA(TypeString))

	f, ok = parseOne(TypeString, ",x", nil)
	require.True(t, ok)
	assert.True(t, f.IsNA(TypeString), "blank is NA by default")

	cfg := DefaultParseConfig()
	cfg.BlankIsNA = false
	f, ok = parseOne(TypeString, ",x", cfg)
	require.True(t, ok)
	assert.False(t, f.IsNA(TypeString))
	assert.Equal(t, "", strOf(t, ",x", f))

	// a quoted NA marker is literal text
	data := `"NA",x`
	f, ok = parseOne(TypeString, data, nil)
	require.True(t, ok)
	assert.False(t, f.IsNA(TypeString))
	assert.Equal(t, "NA", strOf(t, data, f))
}

func TestParseNAMarkers(t *testing.T) {
	for _, marker := range []string{"NA", "N/A", "null", "NULL"} {
		f, ok := parseOne(TypeInt32, marker+",x", nil)
		require.True(t, ok, marker)
		assert.True(t, f.IsNA(TypeInt32), marker)
	}

	// marker followed by extra bytes is not a match
	_, ok := parseOne(TypeInt32, "NAx,", nil)
	assert.False(t, ok)
}
