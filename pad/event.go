package pad

import "time"

// EventType identifies an in-band event
type EventType int

const (
	// EventFlushStart puts the receiving pads into flushing
	EventFlushStart EventType = iota
	// EventFlushStop clears flushing and EOS
	EventFlushStop
	// EventStreamStart announces a new stream and clears EOS
	EventStreamStart
	// EventEOS announces that no further buffers follow
	EventEOS
	// EventCaps announces the media type of the following buffers
	EventCaps
)

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventFlushStart:
		return "flush-start"
	case EventFlushStop:
		return "flush-stop"
	case EventStreamStart:
		return "stream-start"
	case EventEOS:
		return "eos"
	case EventCaps:
		return "caps"
	default:
		return "unknown"
	}
}

// Event is an in-band control message sent downstream alongside buffers
type Event struct {
	Type      EventType
	StreamID  string
	Caps      *Caps
	Timestamp time.Time
}

// NewEvent creates an event of the given type stamped with the current time
func NewEvent(t EventType) Event {
	return Event{Type: t, Timestamp: time.Now()}
}

// NewStreamStartEvent creates a STREAM_START event for streamID
func NewStreamStartEvent(streamID string) Event {
	ev := NewEvent(EventStreamStart)
	ev.StreamID = streamID
	return ev
}

// NewCapsEvent creates a CAPS event
func NewCapsEvent(caps *Caps) Event {
	ev := NewEvent(EventCaps)
	ev.Caps = caps
	return ev
}
