// Package ols is the root of a plugin-hosting log and event pipeline
// runtime.
//
// # Architecture
//
// A pipeline is a graph of elements connected through pads. Sources
// produce buffers on their own task, processors transform them in the
// pushing goroutine and outputs deliver them to files, HTTP endpoints,
// NATS, Redis or WebSocket clients:
//
//	┌──────────────┐   ┌──────────┐   ┌─────────────┐   ┌─────────────┐
//	│ udp_source   │──▶│  parse   │──▶│ json_filter │──▶│ file_output │
//	└──────────────┘   └──────────┘   └──────┬──────┘   └─────────────┘
//	                                         │
//	                                         └─────────▶ nats_output
//
// The layers, bottom up:
//
//   - object, signal: reference-counted objects, weak references and
//     signals
//   - task: the start/pause/stop state machine behind source loops
//   - pad: buffers, events and push dataflow between linked pads
//   - settings, properties: layered settings and their descriptions
//   - element: element types, instances and the Runtime registry
//   - input, processor, output: built-in element types, registered by
//     elementregistry
//   - config, pipeline: declarative pipelines built from JSON or YAML
//   - cmd/olsd: the command line host
//
// Supporting packages carry the ambient stack: errors (classified
// errors), metric (Prometheus registry and HTTP server), health, natsclient
// and pkg/{buffer,cache,retry,timestamp,tlsutil,worker}.
//
// # Running a Pipeline
//
//	olsd run -c pipeline.yaml
//
// See pipeline and config for the file format, and "olsd types" for the
// registered element types.
package ols
