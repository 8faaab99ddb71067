package reader

// ErrorPolicy decides what a malformed row does to the parse.
type ErrorPolicy int8

const (
	// SkipMalformed drops malformed rows and counts them.
	SkipMalformed ErrorPolicy = iota
	// AbortOnMalformed fails the whole parse on the first malformed row.
	AbortOnMalformed
)

// RetryPolicy decides how rows parsed under a since-promoted narrower
// type are repaired.
type RetryPolicy int8

const (
	// RetryColumns re-parses only the promoted columns, using each row's
	// recorded line offset.
	RetryColumns RetryPolicy = iota
	// RetryChunk re-parses affected chunks wholesale with the final type
	// vector.
	RetryChunk
)

// TriState is a three-valued option: auto-detect, forced on, forced off.
type TriState int8

const (
	Auto TriState = iota
	Yes
	No
)

// ReadOptions carries user overrides of the parse configuration plus the
// scheduling and policy knobs. Zero values mean "detect" or "default".
type ReadOptions struct {
	// Sep forces the field separator; 0 asks the sampler to detect it.
	Sep byte
	// Quote sets the quoting character; 0 keeps the default '"'.
	Quote byte
	// QuoteRule forces the quote rule; QuoteRuleAuto asks the sampler.
	QuoteRule QuoteRule
	// Dec sets the decimal separator; 0 keeps '.'.
	Dec byte

	// Header controls header-row handling; Auto lets sampling decide.
	Header TriState

	// NAStrings overrides the recognized missing-value markers.
	NAStrings []string
	// TrueStrings and FalseStrings override the boolean literals.
	TrueStrings  []string
	FalseStrings []string

	StripWhitespace *bool
	BlankIsNA       *bool
	CRIsNewline     bool
	SkipBlankLines  *bool
	FillIncomplete  bool

	// ValidateEncoding checks each chunk is valid UTF-8 before parsing.
	ValidateEncoding bool

	// Workers bounds worker parallelism; 0 means GOMAXPROCS.
	Workers int
	// Chunks fixes the partition count; 0 derives it from the input size
	// and worker count.
	Chunks int
	// MinChunkBytes is the smallest partition worth dispatching; inputs
	// below it parse single-chunk.
	MinChunkBytes int

	// MaxRows truncates the output after this many rows; 0 means all.
	MaxRows int

	ErrorPolicy ErrorPolicy
	RetryPolicy RetryPolicy

	Sampler SamplerOptions
}

// DefaultReadOptions returns options with detection enabled everywhere.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{
		QuoteRule: QuoteRuleAuto,
		Sampler:   DefaultSamplerOptions(),
	}
}

// buildConfig folds the user overrides over the default ParseConfig,
// returning the config plus which dialect fields are fixed.
func (o *ReadOptions) buildConfig() (cfg *ParseConfig, fixedSep, fixedRule bool) {
	cfg = DefaultParseConfig()

	if o.Sep != 0 {
		cfg.Sep = o.Sep
		fixedSep = true
	}
	if o.Quote != 0 {
		cfg.Quote = o.Quote
	}
	if o.QuoteRule != QuoteRuleAuto {
		cfg.Rule = o.QuoteRule
		fixedRule = true
	}
	if o.Dec != 0 {
		cfg.Dec = o.Dec
	}
	if o.NAStrings != nil {
		cfg.NAStrings = o.NAStrings
	}
	if o.TrueStrings != nil {
		cfg.TrueStrings = o.TrueStrings
	}
	if o.FalseStrings != nil {
		cfg.FalseStrings = o.FalseStrings
	}
	if o.StripWhitespace != nil {
		cfg.StripWhitespace = *o.StripWhitespace
	}
	if o.BlankIsNA != nil {
		cfg.BlankIsNA = *o.BlankIsNA
	}
	if o.SkipBlankLines != nil {
		cfg.SkipBlankLines = *o.SkipBlankLines
	}
	cfg.CRIsNewline = o.CRIsNewline
	cfg.FillIncomplete = o.FillIncomplete
	return cfg, fixedSep, fixedRule
}
