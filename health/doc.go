// Package health reports the health of a running daemon as a tree of
// statuses.
//
// A Status is healthy, degraded or unhealthy. Aggregate folds sub-statuses
// into a parent: any unhealthy child makes the parent unhealthy, otherwise
// any degraded child makes it degraded.
//
// A Monitor keeps the latest status per named part (the pipeline, the NATS
// connection) and is safe for concurrent use:
//
//	monitor := health.NewMonitor()
//	monitor.UpdateHealthy("nats", "connected")
//	monitor.Update("pipeline", p.Health())
//	status := monitor.AggregateHealth("olsd")
//
// Messages derived from errors go through SanitizeMessage, which masks
// URLs, paths, addresses and credentials before they reach a health
// endpoint.
package health
