// Package httppost provides the http_output element, which sends every
// buffer to an HTTP endpoint.
//
// # Delivery
//
// Buffers are encoded on the pushing goroutine and queued for a pool of
// workers (pkg/worker). The push returns as soon as the request is queued;
// a full queue returns FlowError and counts the buffer as dropped, so a
// slow endpoint never blocks the pipeline. Each request is retried with
// exponential backoff (pkg/retry) on network errors, 5xx and 429
// responses. Other 4xx responses fail at once.
//
// On Stop the queue is drained for up to drain_timeout_ms before in-flight
// requests are cancelled.
//
// # Configuration
//
//	{
//	  "url": "https://collector.example.com/ingest",
//	  "method": "POST",
//	  "format": "jsonl",
//	  "headers": {"Authorization": "Bearer …"},
//	  "workers": 4,
//	  "queue_size": 1000,
//	  "timeout_ms": 5000,
//	  "retry_count": 3,
//	  "tls": {"ca_files": ["/etc/ols/ca.pem"]}
//	}
//
// content_type defaults from format: application/json for jsonl and record,
// text/plain for lines and application/octet-stream for raw.
package httppost
