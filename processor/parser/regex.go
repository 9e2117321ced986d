package parser

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
)

// RegexParser extracts the capture groups of a pattern. Named groups use
// their name, unnamed ones their index.
type RegexParser struct {
	re *regexp.Regexp
}

// NewRegexParser compiles pattern, which needs at least one capture group
func NewRegexParser(pattern string) (*RegexParser, error) {
	if pattern == "" {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: pattern", errors.ErrMissingConfig), "RegexParser", "New", "regex needs a pattern")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err), "RegexParser", "New", "compile pattern")
	}
	if re.NumSubexp() == 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "RegexParser", "New", "pattern must contain capture groups")
	}
	return &RegexParser{re: re}, nil
}

// Parse matches data; a payload that does not match is an error
func (p *RegexParser) Parse(data []byte) (map[string]any, error) {
	match := p.re.FindSubmatch(data)
	if match == nil {
		return nil, parseError("RegexParser", "no match")
	}
	result := make(map[string]any, len(match)-1)
	for i, name := range p.re.SubexpNames() {
		if i == 0 {
			continue
		}
		if name == "" {
			name = strconv.Itoa(i)
		}
		result[name] = string(match[i])
	}
	return result, nil
}

// Format returns the format name
func (p *RegexParser) Format() string { return "regex" }
