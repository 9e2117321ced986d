// Package elementregistry registers every built-in element type with a
// Runtime.
package elementregistry

import (
	"errors"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/element"
	pkgerrors "github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/input/counter"
	natsinput "github.com/akun1993/Open-Log-Stream-Analysis-sub001/input/nats"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/input/textfile"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/input/udp"
	wsinput "github.com/akun1993/Open-Log-Stream-Analysis-sub001/input/websocket"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/natsclient"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/output/collect"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/output/file"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/output/httppost"
	natsoutput "github.com/akun1993/Open-Log-Stream-Analysis-sub001/output/nats"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/output/redis"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/output/websocket"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/output/xml"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/processor/dedup"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/processor/dispatch"
	jsonfilter "github.com/akun1993/Open-Log-Stream-Analysis-sub001/processor/json_filter"
	jsonmap "github.com/akun1993/Open-Log-Stream-Analysis-sub001/processor/json_map"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/processor/parser"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/processor/queue"
)

// Dependencies are shared resources handed to element types that can use
// them. Every field is optional.
type Dependencies struct {
	// NATSClient is shared by nats_source and nats_output. Without it each
	// element manages its own connection.
	NATSClient *natsclient.Client
}

// Register registers all built-in element types with rt:
//
// Sources:
//   - counter_source, text_file_source, udp_source, nats_source,
//     websocket_source
//
// Processors:
//   - queue, dispatch, parse, json_filter, json_map, dedup
//
// Outputs:
//   - collect_sink, file_output, xml_output, http_output, nats_output,
//     redis_output, websocket_output
func Register(rt *element.Runtime, deps Dependencies) error {
	// Nil runtime is a programming error (fatal), not invalid input
	if rt == nil {
		return pkgerrors.WrapFatal(
			errors.New("runtime cannot be nil"),
			"ElementRegistry", "Register", "runtime validation")
	}

	var natsIn []natsinput.Option
	var natsOut []natsoutput.Option
	// A nil *Client must not become a non-nil interface value.
	if deps.NATSClient != nil {
		natsIn = append(natsIn, natsinput.WithClient(deps.NATSClient))
		natsOut = append(natsOut, natsoutput.WithClient(deps.NATSClient))
	}

	registrations := []struct {
		name     string
		register func() error
	}{
		// Sources
		{"counter source", func() error { return counter.Register(rt) }},
		{"text file source", func() error { return textfile.Register(rt) }},
		{"UDP source", func() error { return udp.Register(rt) }},
		{"NATS source", func() error { return natsinput.Register(rt, natsIn...) }},
		{"WebSocket source", func() error { return wsinput.Register(rt) }},

		// Processors
		{"queue", func() error { return queue.Register(rt) }},
		{"dispatch", func() error { return dispatch.Register(rt) }},
		{"parse", func() error { return parser.Register(rt) }},
		{"JSON filter", func() error { return jsonfilter.Register(rt) }},
		{"JSON map", func() error { return jsonmap.Register(rt) }},
		{"dedup", func() error { return dedup.Register(rt) }},

		// Outputs
		{"collect sink", func() error { return collect.Register(rt) }},
		{"file output", func() error { return file.Register(rt) }},
		{"XML output", func() error { return xml.Register(rt) }},
		{"HTTP output", func() error { return httppost.Register(rt) }},
		{"NATS output", func() error { return natsoutput.Register(rt, natsOut...) }},
		{"Redis output", func() error { return redis.Register(rt) }},
		{"WebSocket output", func() error { return websocket.Register(rt) }},
	}

	for _, r := range registrations {
		if err := r.register(); err != nil {
			return pkgerrors.WrapInvalid(err, "ElementRegistry", "Register", r.name+" element registration")
		}
	}
	return nil
}
