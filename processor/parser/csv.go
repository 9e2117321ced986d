package parser

import (
	"encoding/csv"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
)

// CSVParser parses one delimited record per payload into named columns
type CSVParser struct {
	columns []string
	comma   rune
}

// NewCSVParser creates a parser for the given columns. An empty delimiter
// means ",".
func NewCSVParser(columns []string, delimiter string) (*CSVParser, error) {
	if len(columns) == 0 {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: columns", errors.ErrMissingConfig), "CSVParser", "New", "csv needs column names")
	}
	comma := ','
	if delimiter != "" {
		r, size := utf8.DecodeRuneInString(delimiter)
		if size != len(delimiter) || r == '"' || r == '\r' || r == '\n' {
			return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "CSVParser", "New", fmt.Sprintf("invalid delimiter %q", delimiter))
		}
		comma = r
	}
	return &CSVParser{columns: columns, comma: comma}, nil
}

// Parse reads a single record. Missing trailing fields are left out; extra
// fields are an error.
func (p *CSVParser) Parse(data []byte) (map[string]any, error) {
	line := strings.TrimRight(string(data), "\r\n")
	if line == "" {
		return nil, parseError("CSVParser", "empty payload")
	}
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = p.comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	record, err := r.Read()
	if err != nil {
		return nil, parseError("CSVParser", err.Error())
	}
	if len(record) > len(p.columns) {
		return nil, parseError("CSVParser", fmt.Sprintf("%d fields for %d columns", len(record), len(p.columns)))
	}
	result := make(map[string]any, len(record))
	for i, v := range record {
		result[p.columns[i]] = v
	}
	return result, nil
}

// Format returns the format name
func (p *CSVParser) Format() string { return "csv" }
