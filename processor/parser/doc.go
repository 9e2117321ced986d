// Package parser turns raw log payloads into JSON objects. It provides the
// Parser implementations and the parse element built on them.
//
// # Formats
//
//   - json: the payload is a JSON object
//   - csv: one delimited record mapped onto the configured columns
//   - regex: the capture groups of pattern; named groups keep their name,
//     unnamed ones are numbered from 1
//   - keyvalue: logfmt style key=value pairs, quoted values allowed, a
//     bare key becomes true
//
// Parsed values stay strings except for json, which keeps JSON types.
//
// # The parse Element
//
// The element parses every buffer arriving on its sink pad and pushes a
// value buffer holding the object (and its JSON encoding) out of src:
//
//	{
//	  "type": "parse",
//	  "settings": {
//	    "format": "regex",
//	    "pattern": "^(?P<ts>\\S+) (?P<host>\\S+) (?P<msg>.*)$",
//	    "timestamp_field": "ts",
//	    "raw_field": "raw"
//	  }
//	}
//
// target nests the parsed object under a field instead of the top level.
// raw_field keeps the original payload. timestamp_field sets the buffer
// timestamp from a parsed value, read with timestamp_layout when given or
// as any form pkg/timestamp understands otherwise.
//
// Payloads that fail to parse are dropped (reason "unparsed") or, with
// on_error "pass", forwarded unchanged.
package parser
