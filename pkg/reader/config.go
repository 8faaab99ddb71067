package reader

// QuoteRule is the convention governing how a quote character inside a
// quoted field is escaped.
type QuoteRule int8

const (
	// QuoteRuleAuto asks the sampler to detect the rule. It is the zero
	// value so a zero ReadOptions gets detection, not forced no-quoting.
	QuoteRuleAuto QuoteRule = iota
	// QuoteNone treats the quote character as an ordinary byte; fields are
	// never quoted.
	QuoteNone
	// QuoteDoubled wraps fields in quotes and escapes an embedded quote by
	// doubling it ("" inside a quoted field).
	QuoteDoubled
	// QuoteBackslash wraps fields in quotes and escapes an embedded quote
	// with a backslash.
	QuoteBackslash
	// QuoteMinimal wraps fields in quotes but allows no embedded quotes:
	// the first quote after the opener closes the field. Unquoted fields
	// may contain quote characters verbatim.
	QuoteMinimal
)

func (q QuoteRule) String() string {
	switch q {
	case QuoteNone:
		return "none"
	case QuoteDoubled:
		return "doubled"
	case QuoteBackslash:
		return "backslash"
	case QuoteMinimal:
		return "minimal"
	case QuoteRuleAuto:
		return "auto"
	default:
		return "unknown"
	}
}

// ParseConfig is the configuration shared read-only by all workers during
// one parse. It is computed once before parsing starts, either from user
// overrides or by sampling, and never mutated afterwards, so concurrent
// workers share it by reference without locking.
type ParseConfig struct {
	// Sep is the field separator.
	Sep byte

	// Quote is the character used for field quoting.
	Quote byte

	// Rule selects how quotes inside quoted fields are escaped.
	Rule QuoteRule

	// Dec is the decimal separator for parsing floats, usually '.' but
	// ',' in some locales.
	Dec byte

	// WhiteChar selects what counts as strippable whitespace: ' ', '\t',
	// or 0 meaning both (used when the separator itself is not whitespace).
	WhiteChar byte

	// StripWhitespace removes leading and trailing whitespace from
	// unquoted fields.
	StripWhitespace bool

	// BlankIsNA makes an empty field parse as missing instead of failing
	// (numeric types) or producing an empty string.
	BlankIsNA bool

	// CRIsNewline makes a lone '\r' terminate a line.
	CRIsNewline bool

	// SkipBlankLines silently drops lines containing no fields.
	SkipBlankLines bool

	// FillIncomplete treats missing trailing fields as NA instead of
	// rejecting the row.
	FillIncomplete bool

	// NAStrings lists literals recognized as explicit missing values,
	// independent of the blank-field policy.
	NAStrings []string

	// TrueStrings and FalseStrings are the literal spellings accepted by
	// the boolean parser.
	TrueStrings  []string
	FalseStrings []string

	// NaNStrings and InfStrings are the locale spellings of the special
	// float tokens, matched after a leading sign for InfStrings.
	NaNStrings []string
	InfStrings []string
}

// DefaultParseConfig returns the configuration used when no user override
// or sampling result applies.
func DefaultParseConfig() *ParseConfig {
	return &ParseConfig{
		Sep:             ',',
		Quote:           '"',
		Rule:            QuoteDoubled,
		Dec:             '.',
		WhiteChar:       0,
		StripWhitespace: true,
		BlankIsNA:       true,
		CRIsNewline:     false,
		SkipBlankLines:  true,
		NAStrings:       []string{"NA", "N/A", "null", "NULL"},
		TrueStrings:     []string{"true", "True", "TRUE", "T"},
		FalseStrings:    []string{"false", "False", "FALSE", "F"},
		NaNStrings:      []string{"NaN", "nan", "NAN"},
		InfStrings:      []string{"Inf", "inf", "Infinity", "infinity", "INF"},
	}
}

// isWhite reports whether c is strippable whitespace under this config.
func (c *ParseConfig) isWhite(b byte) bool {
	if c.WhiteChar == 0 {
		return (b == ' ' || b == '\t') && b != c.Sep
	}
	return b == c.WhiteChar && b != c.Sep
}

// clone returns a copy sharing the slice-valued fields, which are never
// mutated after construction.
func (c *ParseConfig) clone() *ParseConfig {
	dup := *c
	return &dup
}
