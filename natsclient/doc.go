// Package natsclient manages the NATS connection shared by the NATS source
// and output elements.
//
// The client wraps nats.go with a circuit breaker and retried connects.
// Connection state is reported to the runtime core metrics
// (ols_nats_connected, ols_nats_reconnects_total) when a metrics bundle is
// supplied.
//
// # Circuit breaker
//
// Every failed connect or publish counts towards a threshold (default 5).
// Crossing it opens the circuit: operations fail fast with ErrCircuitOpen
// until the current backoff elapses, then the client falls back to
// disconnected and the next Connect is allowed through. The backoff doubles
// each time the circuit opens, capped by WithMaxBackoff.
//
// # Usage
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//		natsclient.WithLogger(logger),
//		natsclient.WithMetrics(rt.Metrics()),
//	)
//	if err != nil {
//		return err
//	}
//	if err := client.Connect(ctx); err != nil {
//		return err
//	}
//	defer client.Close(context.Background())
//
//	unsub, err := client.Subscribe("logs.>", "", func(msg *nats.Msg) {
//		...
//	})
//
// JetStream publishing goes through PublishToStream after EnsureStream has
// created (or found) the stream covering the subject.
package natsclient
