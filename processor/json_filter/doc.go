// Package jsonfilter provides the json_filter element, which forwards only
// the buffers whose JSON payload matches a set of field rules.
//
// # Overview
//
// The filter parses each buffer as a JSON object (a map[string]any Value is
// used directly), evaluates its rules and pushes matching buffers out of its
// single src pad unchanged. Rejected buffers are released and counted as
// dropped with the reason "filtered"; the flow returned upstream stays OK so
// filtering never stops a source.
//
// # Supported Operators
//
//   - eq, ne: string comparison of the formatted values
//   - gt, gte, lt, lte: numeric comparison; numeric strings are accepted
//   - contains: substring matching (case-sensitive)
//   - exists: the field is present, whatever its value
//   - regex: the formatted value matches a regular expression
//
// A missing field fails every operator except ne and exists.
//
// # Field Paths
//
// Fields use dot notation to reach nested objects ("http.status"). A key
// that itself contains dots is matched first.
//
// # Configuration
//
//	{
//	  "type": "json_filter",
//	  "settings": {
//	    "match": "all",
//	    "on_invalid": "drop",
//	    "rules": [
//	      {"field": "level", "operator": "eq", "value": "error"},
//	      {"field": "http.status", "operator": "gte", "value": 500}
//	    ]
//	  }
//	}
//
// match selects AND ("all", the default) or OR ("any") semantics. No rules
// pass every buffer. on_invalid decides what happens to payloads that are
// not JSON objects: "drop" (default) or "pass".
//
// # Observability
//
// With a metrics registry on the runtime the element registers
// ols_json_filter_messages_total{status}, errors_total{error_type},
// evaluation_duration_seconds and match_rate, labelled with the element
// name, and unregisters them when destroyed.
package jsonfilter
