// Package dedup provides the dedup element, which drops buffers already
// seen within a time window.
//
// Each buffer is reduced to a key: a SHA-256 digest of the raw payload, or,
// when fields are configured, of the listed JSON field values. The first
// buffer with a given key is pushed out of the src pad; repeats arriving
// within the window are released and counted as dropped with the reason
// "duplicate". The flow returned upstream stays OK.
//
// Seen keys live in a bounded LRU cache (pkg/cache), so memory stays flat
// under high-cardinality input: once max_entries keys are held the least
// recently seen key is forgotten.
//
// # Configuration
//
//	{
//	  "type": "dedup",
//	  "settings": {
//	    "fields": ["host", "msg"],
//	    "window": "30s",
//	    "max_entries": 10000
//	  }
//	}
//
// A window of "0s" remembers keys until they are evicted by capacity.
// Payloads that are not JSON objects are keyed by their raw bytes even when
// fields are set.
package dedup
