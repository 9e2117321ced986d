// Package websocket provides the websocket_source element, which dials a
// remote WebSocket endpoint and turns every received message into a
// buffer.
//
// # Connection Handling
//
// Start dials the configured url, retrying with backoff, and fails when no
// connection can be made. A background reader then feeds messages to the
// production loop. When the connection drops the reader reconnects with
// exponential backoff (up to max_retries consecutive failures, 0 meaning
// no limit). With reconnect disabled, or once the retries are exhausted,
// the element reaches end of stream.
//
// An optional bearer token is read from the environment variable named by
// bearer_token_env and sent in the Authorization header. The tls object
// (ca_files, insecure_skip_verify, min_version, cert_file, key_file)
// configures wss:// connections.
//
// # Envelopes
//
// With envelope enabled, each message must be a JSON envelope:
//
//	{"type": "data", "id": "42", "timestamp": 1700000000000, "payload": {...}}
//
// Only "data" envelopes produce buffers (the payload becomes the buffer
// data) and each is acknowledged with {"type": "ack", "id": "42"}. Other
// envelope types are counted and ignored; malformed envelopes are
// dropped. Without envelope every text or binary message is forwarded as
// is.
//
// Buffers carry the metadata keys "remote_url" and, for envelopes,
// "message_id".
package websocket
