// Package metric provides the Prometheus registry shared by the runtime and
// its elements, and the HTTP server exposing it.
//
// The registry is created with the runtime core metrics already registered
// (elements alive, tasks running, buffers pushed by flow return, drops,
// output writes, errors and NATS health). Elements register their own
// collectors under their instance name and drop them on destroy:
//
//	registry := metric.NewMetricsRegistry()
//	_ = registry.RegisterCounter("http_output", "ols_http_retries_total", retries)
//	defer registry.UnregisterOwner("http_output")
//
//	server := metric.NewServer(9090, "/metrics", registry)
//	go func() { _ = server.Start(ctx) }()
package metric
