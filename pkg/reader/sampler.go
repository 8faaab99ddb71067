package reader

import (
	"bytes"
	"strconv"

	"go.uber.org/zap"

	"github.com/axiomdata/tabread/pkg/errors"
	"github.com/axiomdata/tabread/pkg/logger"
	stringpool "github.com/axiomdata/tabread/pkg/strings"
)

// SamplerOptions controls dialect detection. The quote-rule tie-break is
// an explicit, configurable policy: among rules yielding equally
// consistent field counts, the earliest entry in QuoteRulePriority wins,
// and within the same priority the rule that assumed fewer escaped quotes
// wins.
type SamplerOptions struct {
	SeparatorCandidates []byte
	QuoteRulePriority   []QuoteRule
	SampleLines         int
	MaxSampleBytes      int
}

// DefaultSamplerOptions returns the stock detection policy.
func DefaultSamplerOptions() SamplerOptions {
	return SamplerOptions{
		SeparatorCandidates: []byte{',', ';', '\t', '|', ':'},
		QuoteRulePriority:   []QuoteRule{QuoteNone, QuoteDoubled, QuoteBackslash, QuoteMinimal},
		SampleLines:         100,
		MaxSampleBytes:      1 << 20,
	}
}

// withDefaults fills unset fields from DefaultSamplerOptions so a zero
// ReadOptions still gets detection.
func (o SamplerOptions) withDefaults() SamplerOptions {
	def := DefaultSamplerOptions()
	if o.SeparatorCandidates == nil {
		o.SeparatorCandidates = def.SeparatorCandidates
	}
	if len(o.QuoteRulePriority) == 0 {
		o.QuoteRulePriority = def.QuoteRulePriority
	}
	if o.SampleLines == 0 {
		o.SampleLines = def.SampleLines
	}
	if o.MaxSampleBytes == 0 {
		o.MaxSampleBytes = def.MaxSampleBytes
	}
	return o
}

// Dialect is the sampling result: the detected separator, quote rule,
// header presence, column shape and initial per-column types.
type Dialect struct {
	Sep         byte
	Rule        QuoteRule
	NCols       int
	HasHeader   bool
	ColumnNames []string
	Types       []Type

	// DataStart is the byte offset of the first data row (after any
	// header line).
	DataStart int

	// MeanLineLen is the average sampled line length, used for chunk
	// row-count estimates.
	MeanLineLen int
}

// candidateScore is the outcome of trial-scanning the sample under one
// (separator, quote rule) pair.
type candidateScore struct {
	sep        byte
	rule       QuoteRule
	consistent bool
	ncols      int
	lines      int
	escapes    int
	bytes      int
}

// detectDialect infers the separator, quote rule, header, and column
// types by trial-parsing a prefix of the input. Fixed fields in cfg (a
// non-zero Sep, a Rule other than QuoteRuleAuto) are honored and excluded
// from the search.
func detectDialect(data []byte, cfg *ParseConfig, fixedSep bool, fixedRule bool, header TriState, opts SamplerOptions, log *zap.Logger) (*Dialect, error) {
	if log == nil {
		log = logger.Get()
	}

	sample := data
	if len(sample) > opts.MaxSampleBytes {
		sample = sample[:opts.MaxSampleBytes]
	}

	seps := opts.SeparatorCandidates
	if fixedSep {
		seps = []byte{cfg.Sep}
	}
	rules := opts.QuoteRulePriority
	if fixedRule {
		rules = []QuoteRule{cfg.Rule}
	}

	best, ok := scoreCandidates(sample, cfg, seps, rules, opts.SampleLines)
	if !ok {
		if bytes.IndexByte(sample, cfg.Quote) >= 0 && !fixedRule {
			return nil, errors.New(errors.ErrorTypeAmbiguousQuote,
				"no quote rule yields a consistent field count across sampled lines")
		}
		return nil, errors.New(errors.ErrorTypeData,
			"could not detect a field separator producing a stable column count")
	}

	log.Debug("dialect detected",
		zap.String("sep", string(best.sep)),
		zap.String("quote_rule", best.rule.String()),
		zap.Int("ncols", best.ncols),
		zap.Int("sample_lines", best.lines))

	trial := cfg.clone()
	trial.Sep = best.sep
	trial.Rule = best.rule

	d := &Dialect{Sep: best.sep, Rule: best.rule, NCols: best.ncols}
	if best.lines > 0 {
		d.MeanLineLen = best.bytes / best.lines
	}
	inferHeaderAndTypes(data, trial, d, opts.SampleLines, header)
	return d, nil
}

// scoreCandidates trial-scans the sample under every (sep, rule) pair and
// picks the winner: consistent candidates beat inconsistent ones, wider
// tables beat narrower ones, then rule priority, then fewer assumed
// escaped quotes, then separator candidate order.
func scoreCandidates(sample []byte, cfg *ParseConfig, seps []byte, rules []QuoteRule, sampleLines int) (candidateScore, bool) {
	var best candidateScore
	found := false

	for _, sep := range seps {
		for prio, rule := range rules {
			trial := cfg.clone()
			trial.Sep = sep
			trial.Rule = rule
			sc := scoreOne(sample, trial, sampleLines)
			sc.sep = sep
			sc.rule = rule
			if sc.lines == 0 || sc.ncols < 1 {
				continue
			}
			if !found || better(sc, prio, best, rulePriority(best.rule, rules)) {
				best = sc
				found = true
			}
		}
	}
	return best, found && best.consistent
}

func rulePriority(r QuoteRule, rules []QuoteRule) int {
	for i, c := range rules {
		if c == r {
			return i
		}
	}
	return len(rules)
}

func better(a candidateScore, aPrio int, b candidateScore, bPrio int) bool {
	if a.consistent != b.consistent {
		return a.consistent
	}
	if a.ncols != b.ncols {
		return a.ncols > b.ncols
	}
	if aPrio != bPrio {
		return aPrio < bPrio
	}
	return a.escapes < b.escapes
}

// scoreOne counts fields on up to sampleLines lines under trial, tracking
// consistency and the number of escaped quotes the rule had to assume.
func scoreOne(sample []byte, trial *ParseConfig, sampleLines int) candidateScore {
	ctx := newContext(sample, 0, len(sample), trial)
	sc := candidateScore{consistent: true}

	for sc.lines < sampleLines && ctx.Ch < ctx.Eof {
		before := ctx.Ch
		n := ctx.CountFields()
		if n == 0 && trial.SkipBlankLines {
			continue
		}
		if n < 0 {
			sc.consistent = false
			break
		}
		sc.escapes += countEscapes(sample[before:ctx.Ch], trial)
		sc.bytes += ctx.Ch - before
		if sc.lines == 0 {
			sc.ncols = n
		} else if n != sc.ncols {
			if !(n < sc.ncols && trial.FillIncomplete) {
				sc.consistent = false
				break
			}
		}
		sc.lines++
	}
	return sc
}

func countEscapes(line []byte, cfg *ParseConfig) int {
	n := 0
	switch cfg.Rule {
	case QuoteDoubled:
		n = bytes.Count(line, []byte{cfg.Quote, cfg.Quote})
	case QuoteBackslash:
		n = bytes.Count(line, []byte{'\\', cfg.Quote})
	}
	return n
}

// inferHeaderAndTypes decides whether the first sampled row is a header
// and derives initial per-column types from the remaining sample rows.
// Under the Auto policy a header is assumed when row one reads all-string
// while a later row parses narrower for at least one column.
func inferHeaderAndTypes(data []byte, cfg *ParseConfig, d *Dialect, sampleLines int, header TriState) {
	firstTypes, firstVals, firstEnd := trialRow(data, 0, cfg, d.NCols)

	bodyTypes := sampleTypes(data, firstEnd, cfg, d.NCols, sampleLines)

	switch header {
	case Yes:
		d.HasHeader = firstTypes != nil
	case No:
		d.HasHeader = false
	default:
		d.HasHeader = false
		if firstTypes != nil && bodyTypes != nil {
			allStr := true
			for _, t := range firstTypes {
				if t != TypeString {
					allStr = false
					break
				}
			}
			narrower := false
			for _, t := range bodyTypes {
				if t < TypeString {
					narrower = true
					break
				}
			}
			d.HasHeader = allStr && narrower
		}
	}

	if d.HasHeader {
		d.ColumnNames = firstVals
		d.DataStart = firstEnd
		d.Types = bodyTypes
	} else {
		d.DataStart = 0
		d.Types = sampleTypes(data, 0, cfg, d.NCols, sampleLines)
		d.ColumnNames = make([]string, d.NCols)
		for j := range d.ColumnNames {
			d.ColumnNames[j] = "C" + strconv.Itoa(j+1)
		}
	}
	if d.Types == nil {
		d.Types = make([]Type, d.NCols)
		for j := range d.Types {
			d.Types[j] = TypeBool
		}
	}
}

// trialRow parses one row starting at offset, returning the narrowest
// types its fields accept, the field texts, and the offset after the row.
func trialRow(data []byte, offset int, cfg *ParseConfig, ncols int) ([]Type, []string, int) {
	ctx := newContext(data, offset, len(data), cfg)
	ctx.Target = make([]Field64, ncols)
	types := make([]Type, ncols)
	sc := newLineScanner(ctx, types)

	status := sc.ScanRecord(0)
	for status == rowBlank {
		status = sc.ScanRecord(0)
	}
	if status != rowOK {
		return nil, nil, offset
	}

	vals := make([]string, ncols)
	b := stringpool.NewBuilder(32)
	for j := 0; j < ncols; j++ {
		if sc.types[j] == TypeString {
			s, ok := MaterializeString(data, ctx.Anchor, ctx.Target[j], cfg)
			if !ok {
				s = ""
			}
			vals[j] = s
			continue
		}
		b.Reset()
		serializeField(b, data, ctx.Anchor, ctx.Target[j], sc.types[j], cfg)
		vals[j] = b.String()
	}
	return sc.types, vals, ctx.Ch
}

// sampleTypes scans up to sampleLines rows from offset with every column
// starting at the narrowest type, returning the promoted type vector.
func sampleTypes(data []byte, offset int, cfg *ParseConfig, ncols, sampleLines int) []Type {
	ctx := newContext(data, offset, len(data), cfg)
	ctx.Target = make([]Field64, ncols*8)
	types := make([]Type, ncols)
	sc := newLineScanner(ctx, types)

	rows := 0
	for rows < sampleLines {
		ctx.TPos = 0
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
	if rows == 0 {
		return nil
	}
	return sc.types
}
