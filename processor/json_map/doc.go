// Package jsonmapprocessor provides the json_map element, which rewrites
// the JSON object carried by each buffer through field mapping, adding,
// removing and string transformations.
//
// # Transformation Operations
//
// Operations run in a fixed order on a deep copy of the payload:
//
//  1. remove_fields: comma separated paths are deleted
//  2. mappings: source_field is read from the original payload, transformed
//     and stored under target_field; the source is removed when the names
//     differ, so a mapping is a rename
//  3. add_fields: static values are set, overwriting existing ones
//
// Paths use dot notation and intermediate objects are created as needed.
//
// # Transforms
//
//   - copy (default): value unchanged
//   - uppercase, lowercase: string case conversion
//   - trim: strip surrounding whitespace
//   - unix_ms: RFC3339 strings, Unix seconds or milliseconds to Unix milliseconds
//   - rfc3339: the same inputs to an RFC3339 string in UTC
//
// String transforms only apply to strings, and timestamp transforms leave
// values they cannot parse unchanged.
//
// # Output
//
// Every input buffer yields one new buffer whose Data is the compact JSON
// encoding and whose Value is the transformed map. Timestamp, offset and
// metadata are carried over. Payloads that are not JSON objects are dropped
// unless on_invalid is "pass".
//
// # Configuration
//
//	{
//	  "type": "json_map",
//	  "settings": {
//	    "mappings": [
//	      {"source_field": "lvl", "target_field": "level", "transform": "lowercase"},
//	      {"source_field": "req.path", "target_field": "http.path"}
//	    ],
//	    "add_fields": {"pipeline": "edge"},
//	    "remove_fields": "password,token"
//	  }
//	}
//
// # Observability
//
// With a metrics registry the element registers ols_json_map_* counters and
// histograms labelled with the element name, removed again on destroy.
package jsonmapprocessor
