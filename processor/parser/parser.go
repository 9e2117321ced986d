package parser

import (
	"fmt"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
)

// Parser turns one raw payload into a JSON object
type Parser interface {
	Parse(data []byte) (map[string]any, error)
	Format() string
}

// Formats lists the supported payload formats
var Formats = []string{"json", "csv", "regex", "keyvalue"}

// Options configures the parser built by New
type Options struct {
	Format    string
	Columns   []string
	Delimiter string
	Pattern   string
}

// New builds the parser for opts.Format
func New(opts Options) (Parser, error) {
	switch opts.Format {
	case "json":
		return NewJSONParser(), nil
	case "csv":
		return NewCSVParser(opts.Columns, opts.Delimiter)
	case "regex":
		return NewRegexParser(opts.Pattern)
	case "keyvalue":
		return NewKeyValueParser(), nil
	default:
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "parser", "New", fmt.Sprintf("unknown format %q", opts.Format))
	}
}

// parseError classifies a payload that does not fit the format
func parseError(parser, reason string) error {
	return errors.WrapInvalid(errors.ErrParsingFailed, parser, "Parse", reason)
}
