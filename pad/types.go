package pad

// Direction is the direction of data through a pad
type Direction int

const (
	// DirectionSrc pads push buffers out of their element
	DirectionSrc Direction = iota
	// DirectionSink pads receive buffers into their element
	DirectionSink
)

// String returns a string representation of the direction
func (d Direction) String() string {
	switch d {
	case DirectionSrc:
		return "src"
	case DirectionSink:
		return "sink"
	default:
		return "unknown"
	}
}

// FlowReturn reports the outcome of a push or chain call
type FlowReturn int

const (
	// FlowOK means the buffer was accepted
	FlowOK FlowReturn = iota
	// FlowNotLinked means the source pad has no peer
	FlowNotLinked
	// FlowFlushing means the link is being torn down
	FlowFlushing
	// FlowEOS means no further buffers are accepted
	FlowEOS
	// FlowError means the buffer could not be handled
	FlowError
)

var flowNames = [...]string{
	FlowOK:        "ok",
	FlowNotLinked: "not-linked",
	FlowFlushing:  "flushing",
	FlowEOS:       "eos",
	FlowError:     "error",
}

// String returns a string representation of the flow return
func (f FlowReturn) String() string {
	if f >= 0 && int(f) < len(flowNames) {
		return flowNames[f]
	}
	return "unknown"
}

// FlowReturns lists every flow return, in declaration order
func FlowReturns() []FlowReturn {
	return []FlowReturn{FlowOK, FlowNotLinked, FlowFlushing, FlowEOS, FlowError}
}

// LinkReturn reports the outcome of Link
type LinkReturn int

const (
	// LinkOK means both pads now point at each other
	LinkOK LinkReturn = iota
	// LinkWrongHierarchy means both pads belong to the same element
	LinkWrongHierarchy
	// LinkWasLinked means one of the pads already has a peer
	LinkWasLinked
	// LinkWrongDirection means the pads are not a source and a sink
	LinkWrongDirection
	// LinkNoFormat means the pads' caps do not intersect
	LinkNoFormat
	// LinkRefused means a link handler rejected the link
	LinkRefused
)

// String returns a string representation of the link return
func (l LinkReturn) String() string {
	switch l {
	case LinkOK:
		return "ok"
	case LinkWrongHierarchy:
		return "wrong-hierarchy"
	case LinkWasLinked:
		return "was-linked"
	case LinkWrongDirection:
		return "wrong-direction"
	case LinkNoFormat:
		return "no-format"
	case LinkRefused:
		return "refused"
	default:
		return "unknown"
	}
}

// Flags are pad state bits
type Flags uint32

const (
	// FlagFlushing makes pushes through the pad return FlowFlushing
	FlagFlushing Flags = 1 << iota
	// FlagEOS makes pushes through the pad return FlowEOS
	FlagEOS
)

// CombineFlows folds the results of pushing one buffer out several source
// pads. Flushing and errors win. The result is not-linked or EOS only when
// every pad reported it, so one live downstream keeps the producer going.
func CombineFlows(rets ...FlowReturn) FlowReturn {
	if len(rets) == 0 {
		return FlowNotLinked
	}
	allNotLinked, allEOS := true, true
	for _, r := range rets {
		switch r {
		case FlowFlushing, FlowError:
			return r
		}
		if r != FlowNotLinked {
			allNotLinked = false
		}
		if r != FlowEOS {
			allEOS = false
		}
	}
	switch {
	case allNotLinked:
		return FlowNotLinked
	case allEOS:
		return FlowEOS
	}
	return FlowOK
}
