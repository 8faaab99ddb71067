package reader

// ParseContext carries the mutable cursor and shared read-only
// configuration needed by the field parsers. One instance exists per
// active worker; contexts are never shared between goroutines. The
// invariant `Ch <= Eof` holds at all times: every parser call leaves Ch at
// a valid next-field or next-line position, or signals failure with Ch
// restored to the byte it failed on.
type ParseContext struct {
	// Data is the full shared input buffer, read-only.
	Data []byte

	// Ch is the current parsing position. Parsers advance it when they
	// successfully read a value.
	Ch int

	// Eof is the exclusive upper bound of readable bytes.
	Eof int

	// Anchor is the base position relative to which string offsets are
	// encoded, allowing zero-copy string references into Data.
	Anchor int

	// Target is where parsed values are written; the scanner advances
	// TPos after each successful field.
	Target []Field64
	TPos   int

	// Cfg is the shared parse configuration.
	Cfg *ParseConfig
}

// newContext creates a context over data[start:end) with string offsets
// anchored at start.
func newContext(data []byte, start, end int, cfg *ParseConfig) *ParseContext {
	return &ParseContext{
		Data:   data,
		Ch:     start,
		Eof:    end,
		Anchor: start,
		Cfg:    cfg,
	}
}

// skipWhitespace advances past strippable whitespace.
func (ctx *ParseContext) skipWhitespace() {
	for ctx.Ch < ctx.Eof && ctx.Cfg.isWhite(ctx.Data[ctx.Ch]) {
		ctx.Ch++
	}
}

// skipWhitespaceAtLineStart advances past leading whitespace on a line,
// but only when the separator itself is not whitespace.
func (ctx *ParseContext) skipWhitespaceAtLineStart() {
	if ctx.Cfg.Sep == ' ' || ctx.Cfg.Sep == '\t' {
		return
	}
	if !ctx.Cfg.StripWhitespace {
		return
	}
	ctx.skipWhitespace()
}

// isEOLStart reports whether position pos begins a line terminator:
// '\n', "\r\n", or a lone '\r' when CRIsNewline is set.
func (ctx *ParseContext) isEOLStart(pos int) bool {
	if pos >= ctx.Eof {
		return false
	}
	switch ctx.Data[pos] {
	case '\n':
		return true
	case '\r':
		if ctx.Cfg.CRIsNewline {
			return true
		}
		return pos+1 < ctx.Eof && ctx.Data[pos+1] == '\n'
	}
	return false
}

// AtEndOfField reports whether the cursor sits on a field boundary: the
// separator, a line terminator, or end of input.
func (ctx *ParseContext) AtEndOfField() bool {
	if ctx.Ch >= ctx.Eof {
		return true
	}
	return ctx.Data[ctx.Ch] == ctx.Cfg.Sep || ctx.isEOLStart(ctx.Ch)
}

// SkipEOL consumes one line terminator at the cursor, returning whether
// one was present.
func (ctx *ParseContext) SkipEOL() bool {
	if ctx.Ch >= ctx.Eof {
		return false
	}
	switch ctx.Data[ctx.Ch] {
	case '\n':
		ctx.Ch++
		return true
	case '\r':
		if ctx.Ch+1 < ctx.Eof && ctx.Data[ctx.Ch+1] == '\n' {
			ctx.Ch += 2
			return true
		}
		if ctx.Cfg.CRIsNewline {
			ctx.Ch++
			return true
		}
	}
	return false
}

// EndNAString matches the configured NA markers at position from,
// returning the end position of the longest match, or from when no
// marker matches.
func (ctx *ParseContext) EndNAString(from int) int {
	end := from
	for _, na := range ctx.Cfg.NAStrings {
		if len(na) == 0 {
			continue
		}
		stop := from + len(na)
		if stop <= ctx.Eof && string(ctx.Data[from:stop]) == na && stop > end {
			end = stop
		}
	}
	return end
}

// skipField advances the cursor past one field's content under the active
// quote rule, stopping on the separator, a line terminator, or end of
// input. It returns false when the field cannot be valid under the rule
// (unterminated quoted region, or bytes between a closing quote and the
// field boundary).
func (ctx *ParseContext) skipField() bool {
	cfg := ctx.Cfg
	if cfg.StripWhitespace {
		ctx.skipWhitespace()
	}

	if cfg.Rule != QuoteNone && ctx.Ch < ctx.Eof && ctx.Data[ctx.Ch] == cfg.Quote {
		if !ctx.skipQuotedField() {
			return false
		}
		if cfg.StripWhitespace {
			ctx.skipWhitespace()
		}
		// anything between the closing quote and the field boundary makes
		// the quoted reading invalid under this rule
		return ctx.AtEndOfField()
	}

	for ctx.Ch < ctx.Eof && !ctx.AtEndOfField() {
		ctx.Ch++
	}
	return true
}

// skipQuotedField advances past a quoted region, cursor on the opening
// quote. Returns false when no closing quote exists before Eof.
func (ctx *ParseContext) skipQuotedField() bool {
	cfg := ctx.Cfg
	i := ctx.Ch + 1
	for i < ctx.Eof {
		b := ctx.Data[i]
		switch cfg.Rule {
		case QuoteDoubled:
			if b == cfg.Quote {
				if i+1 < ctx.Eof && ctx.Data[i+1] == cfg.Quote {
					i += 2
					continue
				}
				ctx.Ch = i + 1
				return true
			}
		case QuoteBackslash:
			if b == '\\' && i+1 < ctx.Eof {
				i += 2
				continue
			}
			if b == cfg.Quote {
				ctx.Ch = i + 1
				return true
			}
		case QuoteMinimal:
			if b == cfg.Quote {
				ctx.Ch = i + 1
				return true
			}
		}
		i++
	}
	return false
}

// CountFields scans one line from the cursor without writing values,
// returning the number of separator-delimited fields and advancing the
// cursor past the line terminator. A blank line yields 0. It returns -1
// when the line cannot be parsed under the active quote rule.
func (ctx *ParseContext) CountFields() int {
	ctx.skipWhitespaceAtLineStart()
	if ctx.Ch >= ctx.Eof {
		return 0
	}
	if ctx.SkipEOL() {
		return 0
	}

	ncount := 1
	for {
		if !ctx.skipField() {
			return -1
		}
		if ctx.Ch < ctx.Eof && ctx.Data[ctx.Ch] == ctx.Cfg.Sep {
			ctx.Ch++
			ncount++
			continue
		}
		if ctx.SkipEOL() || ctx.Ch >= ctx.Eof {
			return ncount
		}
		return -1
	}
}

// NextGoodLineStart positions the cursor on the first byte offset at or
// after cc.Start that begins a full record, verified by checking that the
// following lines scan to the expected column count. The search is bounded
// by cc.End so a misdetected quote rule cannot send a worker walking the
// whole input. The first chunk of a range starts at the true beginning
// and is never resynchronized.
func (ctx *ParseContext) NextGoodLineStart(cc ChunkCoordinates, ncols int) bool {
	const testLines = 5

	if cc.TrueStart {
		ctx.Ch = cc.Start
		return true
	}

	candidate, ok := ctx.nextLineStartAfter(cc.Start, cc.End)
	if !ok {
		return false
	}

	for candidate <= cc.End {
		ctx.Ch = candidate
		good := true
		for k := 0; k < testLines && ctx.Ch < ctx.Eof; k++ {
			n := ctx.CountFields()
			if n == ncols {
				continue
			}
			if n == 0 && ctx.Cfg.SkipBlankLines {
				continue
			}
			if n >= 0 && n < ncols && ctx.Cfg.FillIncomplete {
				continue
			}
			good = false
			break
		}
		if good {
			ctx.Ch = candidate
			return true
		}

		next, ok := ctx.nextLineStartAfter(candidate, cc.End)
		if !ok {
			return false
		}
		candidate = next
	}
	return false
}

// nextLineStartAfter returns the position immediately after the first
// line terminator found in [from, bound).
func (ctx *ParseContext) nextLineStartAfter(from, bound int) (int, bool) {
	i := from
	if bound > ctx.Eof {
		bound = ctx.Eof
	}
	for i < bound {
		if ctx.Data[i] == '\n' {
			return i + 1, true
		}
		if ctx.Data[i] == '\r' && ctx.Cfg.CRIsNewline {
			if i+1 < bound && ctx.Data[i+1] == '\n' {
				return i + 2, true
			}
			return i + 1, true
		}
		i++
	}
	return 0, false
}
