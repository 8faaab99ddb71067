package reader

import (
	"github.com/axiomdata/tabread/pkg/errors"
)

// rowStatus is the outcome of scanning one record.
type rowStatus int8

const (
	rowOK rowStatus = iota
	rowBlank
	rowMalformed
	rowEOF
)

// LineScanner parses one record at a time from a ParseContext, driving the
// field parsers and the type promotion ladder. It owns a private copy of
// the per-column type vector: promotions mutate the copy and are recorded
// for the coordinator to reconcile globally.
type LineScanner struct {
	ctx        *ParseContext
	types      []Type
	promotions []Promotion
}

func newLineScanner(ctx *ParseContext, types []Type) *LineScanner {
	own := make([]Type, len(types))
	copy(own, types)
	return &LineScanner{ctx: ctx, types: own}
}

// ScanRecord parses exactly one record starting at the cursor, appending
// one value per column to ctx.Target. A field that rejects its column's
// parser promotes the column and is retried in place; only a quoting
// violation or a field-count mismatch makes the row malformed. On
// rowMalformed the cursor is left at the start of the offending line and
// nothing is committed.
func (s *LineScanner) ScanRecord(rowIndex int) rowStatus {
	ctx := s.ctx
	cfg := ctx.Cfg
	ncols := len(s.types)

	if ctx.Ch >= ctx.Eof {
		return rowEOF
	}

	lineStart := ctx.Ch
	ctx.skipWhitespaceAtLineStart()
	if cfg.SkipBlankLines && (ctx.SkipEOL() || ctx.Ch >= ctx.Eof) {
		if ctx.Ch == ctx.Eof && ctx.Ch == lineStart {
			return rowEOF
		}
		return rowBlank
	}

	if need := ctx.TPos + ncols; need > len(ctx.Target) {
		grown := make([]Field64, need+need/2)
		copy(grown, ctx.Target)
		ctx.Target = grown
	}

	base := ctx.TPos
	for j := 0; j < ncols; j++ {
		fieldStart := ctx.Ch
		for !fieldParsers[s.types[j]](ctx) {
			if s.types[j] == TypeString {
				// quoting violation: not recoverable by widening
				ctx.TPos = base
				ctx.Ch = lineStart
				return rowMalformed
			}
			ctx.Ch = fieldStart
			from := s.types[j]
			s.types[j]++
			s.promotions = append(s.promotions, Promotion{
				Column: j,
				From:   from,
				To:     s.types[j],
				Row:    rowIndex,
				Offset: fieldStart,
			})
		}
		ctx.TPos++

		atSep := ctx.Ch < ctx.Eof && ctx.Data[ctx.Ch] == cfg.Sep
		if atSep {
			if j == ncols-1 {
				// more fields than columns
				ctx.TPos = base
				ctx.Ch = lineStart
				return rowMalformed
			}
			ctx.Ch++
			continue
		}

		// at a line terminator or end of input
		if j < ncols-1 {
			if !cfg.FillIncomplete {
				ctx.TPos = base
				ctx.Ch = lineStart
				return rowMalformed
			}
			for k := j + 1; k < ncols; k++ {
				ctx.Target[ctx.TPos].SetNA(s.types[k])
				ctx.TPos++
			}
			break
		}
	}

	ctx.SkipEOL()
	return rowOK
}

// skipPastEOL advances the cursor past the current line, used to discard a
// malformed row under the skip policy.
func (s *LineScanner) skipPastEOL() {
	ctx := s.ctx
	for ctx.Ch < ctx.Eof {
		if ctx.SkipEOL() {
			return
		}
		ctx.Ch++
	}
}

// reparseColumn re-parses a single column as type t across rows whose line
// starts are recorded in rowOffsets, writing into values at the column's
// position in each row-major stride. It is used when a type promotion
// discovered later invalidates values parsed under a narrower type.
func reparseColumn(ctx *ParseContext, rowOffsets []int, values []Field64, stride, col int, t Type) error {
	saveCh, saveTarget, saveTPos := ctx.Ch, ctx.Target, ctx.TPos
	defer func() {
		ctx.Ch, ctx.Target, ctx.TPos = saveCh, saveTarget, saveTPos
	}()

	ctx.Target = values
	for i, off := range rowOffsets {
		ctx.Ch = off
		ctx.skipWhitespaceAtLineStart()

		reached := true
		for k := 0; k < col; k++ {
			if !ctx.skipField() {
				return errors.New(errors.ErrorTypeInternal,
					"field skip failed during column re-parse").WithOffset(ctx.Ch)
			}
			if ctx.Ch < ctx.Eof && ctx.Data[ctx.Ch] == ctx.Cfg.Sep {
				ctx.Ch++
				continue
			}
			// short row: the fill policy already put an NA here
			reached = false
			break
		}

		ctx.TPos = i*stride + col
		if !reached {
			ctx.Target[ctx.TPos].SetNA(t)
			continue
		}
		if !fieldParsers[t](ctx) {
			return errors.New(errors.ErrorTypeInternal,
				"field rejected its promoted type during re-parse").WithOffset(ctx.Ch)
		}
	}
	return nil
}
