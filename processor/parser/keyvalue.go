package parser

import (
	"strconv"
	"strings"
)

// KeyValueParser parses logfmt style payloads: key=value pairs separated
// by spaces, with double quoted values allowed. A bare key is true.
type KeyValueParser struct{}

// NewKeyValueParser creates a key=value parser
func NewKeyValueParser() *KeyValueParser {
	return &KeyValueParser{}
}

// Parse reads every pair; a payload without a single key is an error
func (p *KeyValueParser) Parse(data []byte) (map[string]any, error) {
	s := strings.TrimSpace(string(data))
	result := make(map[string]any)
	for s != "" {
		end := strings.IndexAny(s, "= ")
		if end == 0 {
			return nil, parseError("KeyValueParser", "missing key")
		}
		if end < 0 || s[end] == ' ' {
			key := s
			if end >= 0 {
				key = s[:end]
			}
			result[key] = true
			s = strings.TrimLeft(s[len(key):], " ")
			continue
		}

		key := s[:end]
		s = s[end+1:]
		var value string
		if strings.HasPrefix(s, `"`) {
			quoted, err := strconv.QuotedPrefix(s)
			if err != nil {
				return nil, parseError("KeyValueParser", "unterminated quote for "+key)
			}
			value, _ = strconv.Unquote(quoted)
			s = s[len(quoted):]
		} else {
			value, s, _ = strings.Cut(s, " ")
		}
		result[key] = value
		s = strings.TrimLeft(s, " ")
	}
	if len(result) == 0 {
		return nil, parseError("KeyValueParser", "no pairs")
	}
	return result, nil
}

// Format returns the format name
func (p *KeyValueParser) Format() string { return "keyvalue" }
