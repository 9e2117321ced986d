// Package pad implements the push dataflow protocol between elements.
//
// A Pad is a directional endpoint owned by an element. A source pad is
// linked to exactly one sink pad with Link; afterwards Push hands buffers to
// the sink's ChainHandler synchronously and returns its FlowReturn. The
// FlowReturn is the only error channel across a link:
//
//	switch ret := src.Push(buf); ret {
//	case pad.FlowOK:
//	case pad.FlowFlushing:
//	    // shutting down, stop quietly
//	default:
//	    log.Printf("push: %s", ret)
//	}
//
// Push never consumes the caller's buffer reference. A ChainHandler that
// needs the buffer after it returns takes its own reference with Retain.
//
// Events travel the same way through PushEvent. FLUSH_START, FLUSH_STOP,
// STREAM_START and EOS update the flags of both pads before the sink's
// EventHandler sees them, so a pad that has pushed EOS answers further
// pushes with FlowEOS.
package pad
