package reader

import (
	"math"
	"strconv"

	stringpool "github.com/axiomdata/tabread/pkg/strings"
)

// StrBytes resolves a string reference against the input buffer, with
// escapes still in place. The second return is false for a missing value.
func StrBytes(data []byte, anchor int, f Field64) ([]byte, bool) {
	offset, length := f.Str()
	if length == naStrLen {
		return nil, false
	}
	start := anchor + int(offset)
	return data[start : start+int(length)], true
}

// MaterializeString copies a string value out of the input buffer,
// resolving the escape convention of the active quote rule.
func MaterializeString(data []byte, anchor int, f Field64, cfg *ParseConfig) (string, bool) {
	span, ok := StrBytes(data, anchor, f)
	if !ok {
		return "", false
	}
	return string(Unescape(span, cfg.Rule, cfg.Quote)), true
}

// SerializeRow re-serializes one row as a record line under cfg,
// producing text that parses back to an equal row. Missing values are
// written as the first configured NA marker, or blank when blanks already
// mean missing.
func SerializeRow(b *stringpool.Builder, data []byte, anchor int, values []Field64, types []Type, cfg *ParseConfig) {
	for j, t := range types {
		if j > 0 {
			b.WriteByte(cfg.Sep)
		}
		serializeField(b, data, anchor, values[j], t, cfg)
	}
	b.WriteByte('\n')
}

func serializeField(b *stringpool.Builder, data []byte, anchor int, f Field64, t Type, cfg *ParseConfig) {
	if f.IsNA(t) {
		if !cfg.BlankIsNA && len(cfg.NAStrings) > 0 {
			b.WriteString(cfg.NAStrings[0])
		}
		return
	}

	switch t {
	case TypeBool:
		if f.Bool() {
			b.WriteString(cfg.TrueStrings[0])
		} else {
			b.WriteString(cfg.FalseStrings[0])
		}
	case TypeInt32:
		b.WriteString(strconv.FormatInt(int64(f.Int32()), 10))
	case TypeInt64:
		b.WriteString(strconv.FormatInt(f.Int64(), 10))
	case TypeFloat64:
		serializeFloat(b, f.Float64(), cfg)
	case TypeString:
		s, _ := MaterializeString(data, anchor, f, cfg)
		serializeString(b, s, cfg)
	}
}

func serializeFloat(b *stringpool.Builder, v float64, cfg *ParseConfig) {
	switch {
	case math.IsNaN(v):
		b.WriteString(cfg.NaNStrings[0])
		return
	case math.IsInf(v, 1):
		b.WriteString(cfg.InfStrings[0])
		return
	case math.IsInf(v, -1):
		b.WriteByte('-')
		b.WriteString(cfg.InfStrings[0])
		return
	}

	s := strconv.FormatFloat(v, 'g', -1, 64)
	if cfg.Dec != '.' {
		raw := []byte(s)
		for i, c := range raw {
			if c == '.' {
				raw[i] = cfg.Dec
			}
		}
		b.WriteBytes(raw)
		return
	}
	b.WriteString(s)
}

// serializeString writes a string field, quoting it whenever it contains
// the separator, the quote character, a line terminator, or boundary
// whitespace that stripping would otherwise eat. QuoteMinimal has no
// escape convention, so an embedded quote is left alone there: a value
// holding the quote character stays unquoted verbatim, and one that also
// needs quoting (separator or newline inside) is not representable.
func serializeString(b *stringpool.Builder, s string, cfg *ParseConfig) {
	if !stringNeedsQuotes(s, cfg) {
		b.WriteString(s)
		return
	}

	b.WriteByte(cfg.Quote)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == cfg.Quote {
			switch cfg.Rule {
			case QuoteBackslash:
				b.WriteByte('\\')
			case QuoteMinimal:
			default:
				b.WriteByte(cfg.Quote)
			}
		}
		if c == '\\' && cfg.Rule == QuoteBackslash {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte(cfg.Quote)
}

func stringNeedsQuotes(s string, cfg *ParseConfig) bool {
	if cfg.Rule == QuoteNone {
		return false
	}
	if len(s) == 0 {
		return false
	}
	if cfg.StripWhitespace && (cfg.isWhite(s[0]) || cfg.isWhite(s[len(s)-1])) {
		return true
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case cfg.Sep, '\n', '\r':
			return true
		case cfg.Quote:
			// minimal-rule fields carry quote characters verbatim when
			// unquoted, except in the opening position
			if cfg.Rule != QuoteMinimal || i == 0 {
				return true
			}
		}
	}
	return false
}
