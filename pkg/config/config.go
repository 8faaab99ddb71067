// Package config loads read options from YAML files and the environment.
// Files set the same keys the CLI flags expose; environment variables with
// the TABREAD_ prefix override them. A .env file in the working directory
// is folded into the environment first.
package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/axiomdata/tabread/pkg/errors"
	"github.com/axiomdata/tabread/pkg/reader"
)

// FileConfig is the on-disk shape of the read options.
type FileConfig struct {
	Sep              string   `mapstructure:"sep"`
	Quote            string   `mapstructure:"quote"`
	Dec              string   `mapstructure:"dec"`
	QuoteRule        string   `mapstructure:"quote_rule"`
	Header           string   `mapstructure:"header"`
	NAStrings        []string `mapstructure:"na_strings"`
	TrueStrings      []string `mapstructure:"true_strings"`
	FalseStrings     []string `mapstructure:"false_strings"`
	Fill             bool     `mapstructure:"fill"`
	SkipBlankLines   *bool    `mapstructure:"skip_blank_lines"`
	StripWhitespace  *bool    `mapstructure:"strip_whitespace"`
	BlankIsNA        *bool    `mapstructure:"blank_is_na"`
	CRIsNewline      bool     `mapstructure:"cr_is_newline"`
	ValidateEncoding bool     `mapstructure:"validate_encoding"`
	Workers          int      `mapstructure:"workers"`
	Chunks           int      `mapstructure:"chunks"`
	MinChunkBytes    int      `mapstructure:"min_chunk_bytes"`
	MaxRows          int      `mapstructure:"max_rows"`
	AbortOnMalformed bool     `mapstructure:"abort_on_malformed"`
	RetryChunks      bool     `mapstructure:"retry_chunks"`
	SampleLines      int      `mapstructure:"sample_lines"`
}

// Load reads a YAML config file and returns the options it describes.
// An empty path yields the defaults with only environment overrides.
func Load(path string) (reader.ReadOptions, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("TABREAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return reader.DefaultReadOptions(), errors.Wrap(err,
				errors.ErrorTypeConfig, "reading config file")
		}
	}

	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return reader.DefaultReadOptions(), errors.Wrap(err,
			errors.ErrorTypeConfig, "parsing config file")
	}
	return fc.Options()
}

// Options converts the file shape into engine options.
func (fc *FileConfig) Options() (reader.ReadOptions, error) {
	opts := reader.DefaultReadOptions()

	sep, err := byteOption(fc.Sep, "sep")
	if err != nil {
		return opts, err
	}
	opts.Sep = sep
	if fc.Quote != "" {
		opts.Quote = fc.Quote[0]
	}
	if fc.Dec != "" {
		opts.Dec = fc.Dec[0]
	}

	rule, err := ParseQuoteRule(fc.QuoteRule)
	if err != nil {
		return opts, err
	}
	opts.QuoteRule = rule

	header, err := ParseTriState(fc.Header)
	if err != nil {
		return opts, err
	}
	opts.Header = header

	if fc.NAStrings != nil {
		opts.NAStrings = fc.NAStrings
	}
	if fc.TrueStrings != nil {
		opts.TrueStrings = fc.TrueStrings
	}
	if fc.FalseStrings != nil {
		opts.FalseStrings = fc.FalseStrings
	}
	opts.StripWhitespace = fc.StripWhitespace
	opts.BlankIsNA = fc.BlankIsNA
	opts.SkipBlankLines = fc.SkipBlankLines
	opts.FillIncomplete = fc.Fill
	opts.CRIsNewline = fc.CRIsNewline
	opts.ValidateEncoding = fc.ValidateEncoding
	opts.Workers = fc.Workers
	opts.Chunks = fc.Chunks
	opts.MinChunkBytes = fc.MinChunkBytes
	opts.MaxRows = fc.MaxRows
	if fc.AbortOnMalformed {
		opts.ErrorPolicy = reader.AbortOnMalformed
	}
	if fc.RetryChunks {
		opts.RetryPolicy = reader.RetryChunk
	}
	if fc.SampleLines > 0 {
		opts.Sampler.SampleLines = fc.SampleLines
	}
	return opts, nil
}

// byteOption interprets a one-character option, with "\t" accepted for a
// tab separator. Empty means unset.
func byteOption(s, name string) (byte, error) {
	switch {
	case s == "":
		return 0, nil
	case s == "\\t" || s == "\t":
		return '\t', nil
	case len(s) == 1:
		return s[0], nil
	default:
		return 0, errors.Newf(errors.ErrorTypeConfig,
			"%s must be a single character, got %q", name, s)
	}
}

// ParseQuoteRule maps a config token to a quote rule.
func ParseQuoteRule(s string) (reader.QuoteRule, error) {
	switch s {
	case "", "auto":
		return reader.QuoteRuleAuto, nil
	case "none":
		return reader.QuoteNone, nil
	case "doubled":
		return reader.QuoteDoubled, nil
	case "backslash":
		return reader.QuoteBackslash, nil
	case "minimal":
		return reader.QuoteMinimal, nil
	default:
		return reader.QuoteRuleAuto, errors.Newf(errors.ErrorTypeConfig,
			"unknown quote rule %q", s)
	}
}

// ParseTriState maps a config token to a three-valued option.
func ParseTriState(s string) (reader.TriState, error) {
	switch s {
	case "", "auto":
		return reader.Auto, nil
	case "yes", "true", "on":
		return reader.Yes, nil
	case "no", "false", "off":
		return reader.No, nil
	default:
		return reader.Auto, errors.Newf(errors.ErrorTypeConfig,
			"unknown header mode %q", s)
	}
}
