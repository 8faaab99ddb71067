package reader

import (
	"bytes"
	"math"
	"strconv"

	"github.com/axiomdata/tabread/pkg/pool"
	stringpool "github.com/axiomdata/tabread/pkg/strings"
)

// FieldParser consumes one field at the cursor and writes a typed value
// into ctx.Target[ctx.TPos]. On success the cursor is left at the field
// boundary (separator, line terminator, or end of input). On failure the
// cursor is restored to the field start and nothing is written.
type FieldParser func(ctx *ParseContext) bool

// fieldParsers is indexed by Type and doubles as the promotion ladder:
// when parsers[t] rejects a field, the scanner retries with t+1.
var fieldParsers = [numTypes]FieldParser{
	TypeBool:    parseBool,
	TypeInt32:   parseInt32,
	TypeInt64:   parseInt64,
	TypeFloat64: parseFloat64,
	TypeString:  parseString,
}

// parseNA matches a blank field or an explicit NA marker ending at a field
// boundary, writing the missing sentinel for typ. The cursor must sit at
// the field start (whitespace already skipped).
func parseNA(ctx *ParseContext, typ Type) bool {
	start := ctx.Ch

	if ctx.AtEndOfField() {
		if ctx.Cfg.BlankIsNA {
			ctx.Target[ctx.TPos].SetNA(typ)
			return true
		}
		return false
	}

	end := ctx.EndNAString(ctx.Ch)
	if end > ctx.Ch {
		ctx.Ch = end
		if ctx.Cfg.StripWhitespace {
			ctx.skipWhitespace()
		}
		if ctx.AtEndOfField() {
			ctx.Target[ctx.TPos].SetNA(typ)
			return true
		}
	}

	ctx.Ch = start
	return false
}

// parseBool matches one of the configured boolean literals. On no match it
// fails without advancing the cursor.
func parseBool(ctx *ParseContext) bool {
	start := ctx.Ch
	if ctx.Cfg.StripWhitespace {
		ctx.skipWhitespace()
	}

	if matchLiteral(ctx, ctx.Cfg.TrueStrings) {
		ctx.Target[ctx.TPos].SetBool(true)
		return true
	}
	if matchLiteral(ctx, ctx.Cfg.FalseStrings) {
		ctx.Target[ctx.TPos].SetBool(false)
		return true
	}
	if parseNA(ctx, TypeBool) {
		return true
	}

	ctx.Ch = start
	return false
}

// matchLiteral advances past the first configured literal that matches and
// ends at a field boundary, or leaves the cursor untouched. The boundary
// requirement keeps a literal from claiming a prefix of a longer field.
func matchLiteral(ctx *ParseContext, literals []string) bool {
	start := ctx.Ch
	for _, lit := range literals {
		stop := start + len(lit)
		if len(lit) == 0 || stop > ctx.Eof {
			continue
		}
		if string(ctx.Data[start:stop]) != lit {
			continue
		}
		ctx.Ch = stop
		if ctx.Cfg.StripWhitespace {
			ctx.skipWhitespace()
		}
		if ctx.AtEndOfField() {
			return true
		}
		ctx.Ch = start
	}
	return false
}

// parseInt32 parses a 32-bit signed integer. Overflow of the target width
// fails the field so the scanner can retry it as int64. MinInt32 is the
// missing sentinel, so the valid range is -MaxInt32..MaxInt32 and the
// literal -2147483648 overflows.
func parseInt32(ctx *ParseContext) bool {
	start := ctx.Ch
	v, ok := parseIntWidth(ctx, math.MinInt32+1, math.MaxInt32)
	if ok {
		ctx.Target[ctx.TPos].SetInt32(int32(v))
		return true
	}
	ctx.Ch = start
	return parseNA(ctx, TypeInt32)
}

// parseInt64 parses a 64-bit signed integer. MinInt64 is the missing
// sentinel and is excluded from the valid range.
func parseInt64(ctx *ParseContext) bool {
	start := ctx.Ch
	v, ok := parseIntWidth(ctx, math.MinInt64+1, math.MaxInt64)
	if ok {
		ctx.Target[ctx.TPos].SetInt64(v)
		return true
	}
	ctx.Ch = start
	return parseNA(ctx, TypeInt64)
}

// parseIntWidth consumes an optional sign and a run of ASCII digits,
// failing on overflow of [min, max] instead of wrapping. The cursor is
// left after the digits on success and is the caller's to restore on
// failure.
func parseIntWidth(ctx *ParseContext, min, max int64) (int64, bool) {
	if ctx.Cfg.StripWhitespace {
		ctx.skipWhitespace()
	}

	neg := false
	if ctx.Ch < ctx.Eof && (ctx.Data[ctx.Ch] == '-' || ctx.Data[ctx.Ch] == '+') {
		neg = ctx.Data[ctx.Ch] == '-'
		ctx.Ch++
	}

	digits := 0
	var acc uint64
	limit := uint64(max)
	if neg {
		limit = uint64(-(min + 1)) + 1
	}
	for ctx.Ch < ctx.Eof {
		b := ctx.Data[ctx.Ch]
		if b < '0' || b > '9' {
			break
		}
		d := uint64(b - '0')
		if acc > (limit-d)/10 {
			return 0, false // overflow: caller retries as a wider type
		}
		acc = acc*10 + d
		digits++
		ctx.Ch++
	}
	if digits == 0 {
		return 0, false
	}

	if ctx.Cfg.StripWhitespace {
		ctx.skipWhitespace()
	}
	if !ctx.AtEndOfField() {
		return 0, false
	}

	if neg {
		return -int64(acc), true
	}
	return int64(acc), true
}

// parseFloat64 parses a double: optional sign, digits with an optional
// configured decimal separator and fraction, optional exponent, plus the
// configured NaN and infinity spellings.
func parseFloat64(ctx *ParseContext) bool {
	start := ctx.Ch
	if ctx.Cfg.StripWhitespace {
		ctx.skipWhitespace()
	}

	if v, ok := parseSpecialFloat(ctx); ok {
		ctx.Target[ctx.TPos].SetFloat64(v)
		return true
	}

	numStart := ctx.Ch
	end, ok := scanFloatExtent(ctx, numStart)
	if ok {
		v, ok2 := convertFloat(ctx, numStart, end)
		if ok2 {
			ctx.Ch = end
			if ctx.Cfg.StripWhitespace {
				ctx.skipWhitespace()
			}
			if ctx.AtEndOfField() {
				ctx.Target[ctx.TPos].SetFloat64(v)
				return true
			}
		}
	}

	ctx.Ch = start
	return parseNA(ctx, TypeFloat64)
}

// parseSpecialFloat matches the configured NaN and infinity tokens, with
// an optional sign before infinity.
func parseSpecialFloat(ctx *ParseContext) (float64, bool) {
	start := ctx.Ch

	if matchLiteral(ctx, ctx.Cfg.NaNStrings) {
		return math.NaN(), true
	}

	sign := 1.0
	if ctx.Ch < ctx.Eof && (ctx.Data[ctx.Ch] == '-' || ctx.Data[ctx.Ch] == '+') {
		if ctx.Data[ctx.Ch] == '-' {
			sign = -1.0
		}
		ctx.Ch++
	}
	if matchLiteral(ctx, ctx.Cfg.InfStrings) {
		return sign * math.Inf(1), true
	}

	ctx.Ch = start
	return 0, false
}

// scanFloatExtent validates the shape sign? digits? dec? digits? exp? from
// position from, returning the end of the numeric extent. At least one
// digit must appear in the mantissa.
func scanFloatExtent(ctx *ParseContext, from int) (int, bool) {
	i := from
	dec := ctx.Cfg.Dec

	if i < ctx.Eof && (ctx.Data[i] == '-' || ctx.Data[i] == '+') {
		i++
	}

	mantissa := 0
	for i < ctx.Eof && ctx.Data[i] >= '0' && ctx.Data[i] <= '9' {
		i++
		mantissa++
	}
	if i < ctx.Eof && ctx.Data[i] == dec {
		i++
		for i < ctx.Eof && ctx.Data[i] >= '0' && ctx.Data[i] <= '9' {
			i++
			mantissa++
		}
	}
	if mantissa == 0 {
		return 0, false
	}

	if i < ctx.Eof && (ctx.Data[i] == 'e' || ctx.Data[i] == 'E') {
		j := i + 1
		if j < ctx.Eof && (ctx.Data[j] == '-' || ctx.Data[j] == '+') {
			j++
		}
		expDigits := 0
		for j < ctx.Eof && ctx.Data[j] >= '0' && ctx.Data[j] <= '9' {
			j++
			expDigits++
		}
		if expDigits > 0 {
			i = j
		}
	}
	return i, true
}

// convertFloat converts the validated extent [from, end) to a float64,
// normalizing a non-'.' decimal separator through pooled scratch first.
func convertFloat(ctx *ParseContext, from, end int) (float64, bool) {
	raw := ctx.Data[from:end]
	if ctx.Cfg.Dec != '.' {
		buf := append(pool.GetByteSlice(), raw...)
		for i, b := range buf {
			if b == ctx.Cfg.Dec {
				buf[i] = '.'
			}
		}
		v, err := strconv.ParseFloat(stringpool.BytesToString(buf), 64)
		pool.PutByteSlice(buf)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	v, err := strconv.ParseFloat(stringpool.BytesToString(raw), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseString scans until the field boundary, or the matching closing
// quote when the field opens with one under the active quote rule. It
// writes an offset/length pair anchored at ctx.Anchor without copying
// bytes; escaped quotes stay escaped in the referenced span and are
// resolved by Unescape at copy-out. Whitespace is stripped only outside
// quoted regions. The parser fails only on a quoted region left
// unterminated at end of input or followed by garbage.
func parseString(ctx *ParseContext) bool {
	cfg := ctx.Cfg
	start := ctx.Ch

	if cfg.StripWhitespace {
		ctx.skipWhitespace()
	}

	if cfg.Rule != QuoteNone && ctx.Ch < ctx.Eof && ctx.Data[ctx.Ch] == cfg.Quote {
		open := ctx.Ch
		if ctx.skipQuotedField() {
			inner0, inner1 := open+1, ctx.Ch-1
			after := ctx.Ch
			if cfg.StripWhitespace {
				ctx.skipWhitespace()
			}
			if ctx.AtEndOfField() {
				ctx.Target[ctx.TPos].SetStr(uint32(inner0-ctx.Anchor), int32(inner1-inner0))
				return true
			}
			ctx.Ch = after
		}
		ctx.Ch = start
		return false
	}

	fieldStart := ctx.Ch
	for ctx.Ch < ctx.Eof && !ctx.AtEndOfField() {
		ctx.Ch++
	}
	fieldEnd := ctx.Ch
	if cfg.StripWhitespace {
		for fieldEnd > fieldStart && cfg.isWhite(ctx.Data[fieldEnd-1]) {
			fieldEnd--
		}
	}

	if end := ctx.EndNAString(fieldStart); end == fieldEnd && end > fieldStart {
		ctx.Target[ctx.TPos].SetNA(TypeString)
		return true
	}
	if fieldEnd == fieldStart && cfg.BlankIsNA {
		ctx.Target[ctx.TPos].SetNA(TypeString)
		return true
	}

	ctx.Target[ctx.TPos].SetStr(uint32(fieldStart-ctx.Anchor), int32(fieldEnd-fieldStart))
	return true
}

// Unescape resolves the escape convention of the active quote rule inside
// a string span referenced by a Field64. It returns the raw span unchanged
// when no escape byte occurs.
func Unescape(span []byte, rule QuoteRule, quote byte) []byte {
	switch rule {
	case QuoteDoubled:
		return unescapeDoubled(span, quote)
	case QuoteBackslash:
		return unescapeBackslash(span)
	default:
		return span
	}
}

func unescapeDoubled(span []byte, quote byte) []byte {
	if bytes.IndexByte(span, quote) < 0 {
		return span
	}
	out := make([]byte, 0, len(span))
	for j := 0; j < len(span); j++ {
		out = append(out, span[j])
		if span[j] == quote && j+1 < len(span) && span[j+1] == quote {
			j++
		}
	}
	return out
}

func unescapeBackslash(span []byte) []byte {
	if bytes.IndexByte(span, '\\') < 0 {
		return span
	}
	out := make([]byte, 0, len(span))
	for j := 0; j < len(span); j++ {
		if span[j] == '\\' && j+1 < len(span) {
			j++
		}
		out = append(out, span[j])
	}
	return out
}
