// Package websocket provides the websocket_output element, a WebSocket
// server that broadcasts every buffer reaching its sink pad to all
// connected clients.
//
// # Delivery
//
// Each client owns a bounded send queue (send_buffer) drained by a single
// writer goroutine. Broadcasting never blocks the streaming thread: when a
// client's queue is full the message is dropped for that client only and
// counted under the "slow_client" drop reason. Buffers pushed while no
// client is connected are discarded.
//
// Messages are encoded with the message package; the default "record"
// format sends one JSON record per text frame and "raw" sends binary frames.
//
// # Connection health
//
// The server pings clients every ping_interval_ms and disconnects those
// that have not answered with a pong within three intervals.
//
// # TLS
//
// Setting tls.cert_file and tls.key_file serves wss://. Client certificate
// verification is enabled through tls.client_ca_files.
//
// # Metrics
//
// With a metrics registry on the runtime the element registers
// ols_websocket_* gauges and counters labelled with the element name for
// the lifetime of each Start/Stop cycle.
package websocket
