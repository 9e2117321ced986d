// Package file provides the file_output element, which writes buffers to a
// file on disk.
//
// # Formats
//
// The format setting selects how each buffer is rendered (see the message
// package): raw bytes, one line per buffer, or JSON Lines. JSON payloads are
// written compacted in jsonl mode; text payloads are wrapped in a record
// envelope carrying source, timestamp, offset and metadata.
//
// # Buffering
//
// Encoded buffers are batched in memory and written when buffer_size of
// them are pending, every flush_interval_ms, on EOS and on Stop. A
// buffer_size of 1 writes through.
//
// # Configuration
//
//	{
//	  "path": "/var/log/ols/out.log",
//	  "format": "jsonl",
//	  "append": true,
//	  "buffer_size": 100,
//	  "flush_interval_ms": 1000
//	}
//
// With append disabled the file is truncated on every Start. Missing parent
// directories are created.
package file
