package parser

import (
	"encoding/json"
)

// JSONParser parses JSON objects
type JSONParser struct{}

// NewJSONParser creates a JSON parser
func NewJSONParser() *JSONParser {
	return &JSONParser{}
}

// Parse decodes data, which must hold a JSON object
func (p *JSONParser) Parse(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, parseError("JSONParser", "empty payload")
	}
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, parseError("JSONParser", "invalid json: "+err.Error())
	}
	if result == nil {
		return nil, parseError("JSONParser", "payload is not an object")
	}
	return result, nil
}

// Format returns the format name
func (p *JSONParser) Format() string { return "json" }
