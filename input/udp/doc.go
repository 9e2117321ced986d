// Package udp provides the udp_source element, which receives datagrams
// and pushes one buffer per datagram.
//
// # Overview
//
// The socket is bound when the element starts, with retries for addresses
// that are briefly unavailable, and closed when it stops. Reads use a
// short deadline so the production loop notices Stop without waiting for
// traffic. The sender address is stored in the buffer metadata under
// "remote_addr".
//
// # Configuration
//
//   - bind: host:port to listen on (default "0.0.0.0:5140"; port 0 picks a
//     free port, see Source.LocalAddr)
//   - buffer_size: maximum datagram size in bytes (default 65536)
//   - read_timeout_ms: read deadline per iteration (default 100)
//
// # Metrics
//
// With a metrics registry on the runtime, each element registers
// ols_udp_packets_received_total, ols_udp_bytes_received_total and
// ols_udp_socket_errors_total labelled with the element name.
package udp
