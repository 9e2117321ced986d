package testutil

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
)

// Recorder is a standalone sink pad that keeps what is pushed into it
type Recorder struct {
	pad *pad.Pad

	mu      sync.Mutex
	buffers []*pad.Buffer
	events  []pad.EventType
	ret     atomic.Int32
	eos     chan struct{}
	eosOnce sync.Once
}

// NewRecorder creates a recorder answering every push with FlowOK
func NewRecorder() *Recorder {
	r := &Recorder{eos: make(chan struct{})}
	r.pad = pad.New("recorder", pad.DirectionSink,
		pad.WithChain(pad.ChainFunc(r.chain)),
		pad.WithEvent(pad.EventFunc(r.event)),
	)
	return r
}

// Pad returns the recorder's sink pad
func (r *Recorder) Pad() *pad.Pad { return r.pad }

// SetReturn changes the flow returned to pushers
func (r *Recorder) SetReturn(ret pad.FlowReturn) { r.ret.Store(int32(ret)) }

func (r *Recorder) chain(_ *pad.Pad, buf *pad.Buffer) pad.FlowReturn {
	ret := pad.FlowReturn(r.ret.Load())
	if ret != pad.FlowOK {
		return ret
	}
	r.mu.Lock()
	r.buffers = append(r.buffers, buf.Retain())
	r.mu.Unlock()
	return pad.FlowOK
}

func (r *Recorder) event(_ *pad.Pad, ev pad.Event) bool {
	r.mu.Lock()
	r.events = append(r.events, ev.Type)
	r.mu.Unlock()
	if ev.Type == pad.EventEOS {
		r.eosOnce.Do(func() { close(r.eos) })
	}
	return true
}

// Buffers returns the recorded buffers
func (r *Recorder) Buffers() []*pad.Buffer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*pad.Buffer(nil), r.buffers...)
}

// Strings returns the payloads of the recorded buffers
func (r *Recorder) Strings() []string {
	bufs := r.Buffers()
	out := make([]string, len(bufs))
	for i, b := range bufs {
		out[i] = string(b.Data)
	}
	return out
}

// Values returns the typed values of the recorded buffers
func (r *Recorder) Values() []any {
	bufs := r.Buffers()
	out := make([]any, len(bufs))
	for i, b := range bufs {
		out[i] = b.Value
	}
	return out
}

// Count returns the number of recorded buffers
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffers)
}

// Events returns the types of the received events in arrival order
func (r *Recorder) Events() []pad.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]pad.EventType(nil), r.events...)
}

// EOS is closed when an EOS event arrives
func (r *Recorder) EOS() <-chan struct{} { return r.eos }

// WaitForCount fails the test unless n buffers arrive within timeout
func (r *Recorder) WaitForCount(t *testing.T, n int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for r.Count() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %d buffers (got %d)", n, r.Count())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// WaitForEOS fails the test unless EOS arrives within timeout
func (r *Recorder) WaitForEOS(t *testing.T, timeout time.Duration) {
	t.Helper()
	select {
	case <-r.eos:
	case <-time.After(timeout):
		t.Fatalf("timeout waiting for EOS (got %d buffers)", r.Count())
	}
}

// Feeder is a standalone source pad for pushing into element sink pads
type Feeder struct {
	pad *pad.Pad
}

// NewFeeder creates an unlinked feeder
func NewFeeder() *Feeder {
	return &Feeder{pad: pad.New("feeder", pad.DirectionSrc)}
}

// Pad returns the feeder's source pad
func (f *Feeder) Pad() *pad.Pad { return f.pad }

// PushString pushes a buffer holding s and releases it afterwards
func (f *Feeder) PushString(s string) pad.FlowReturn {
	buf := pad.NewBuffer([]byte(s))
	defer buf.Release()
	return f.pad.Push(buf)
}

// PushValue pushes a buffer carrying v and data
func (f *Feeder) PushValue(v any, data []byte) pad.FlowReturn {
	buf := pad.NewValueBuffer(v, data)
	defer buf.Release()
	return f.pad.Push(buf)
}

// EOS sends an EOS event downstream
func (f *Feeder) EOS() bool {
	return f.pad.PushEvent(pad.NewEvent(pad.EventEOS))
}
