// Package message converts pad buffers into the records that outputs write
// to files, sockets and brokers.
//
// A Record is the JSON envelope used by every structured output format:
//
//	{"id":"…","source":"udp","timestamp":1700000000000,"offset":7,"data":…,"meta":{…}}
//
// data holds the payload unchanged when it is valid JSON and as a JSON
// string otherwise, so log lines and JSON events share one envelope.
// Timestamps are Unix milliseconds, see pkg/timestamp.
//
// Encode renders a buffer in one of the output formats:
//
//   - raw: the payload bytes as received
//   - lines: the payload followed by a newline
//   - jsonl: the payload as compact JSON when it is JSON, else the Record
//     envelope, followed by a newline
//   - record: the Record envelope without a trailing newline
package message
