package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

type mockSub struct {
	id      int
	subject string
	queue   string
	handler nats.MsgHandler
}

// MockNATSClient is an in-memory NATS client for tests. Matches the
// natsclient.Client signatures for Publish, PublishToStream, EnsureStream
// and Subscribe.
// Thread-safe for concurrent use from multiple goroutines.
type MockNATSClient struct {
	mu       sync.RWMutex
	messages map[string][][]byte
	streamed map[string][][]byte
	streams  map[string][]string
	subs     []mockSub
	nextID   int
	closed   bool

	// PublishErr, when set, is returned by every publish
	PublishErr error
}

// NewMockNATSClient creates a new mock NATS client.
func NewMockNATSClient() *MockNATSClient {
	return &MockNATSClient{
		messages: make(map[string][][]byte),
		streamed: make(map[string][][]byte),
		streams:  make(map[string][]string),
	}
}

// Publish stores data under subject and delivers it to the subscribers of
// subject. Queue groups receive each message once.
func (c *MockNATSClient) Publish(subject string, data []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("client is closed")
	}
	if c.PublishErr != nil {
		err := c.PublishErr
		c.mu.Unlock()
		return err
	}
	stored := append([]byte(nil), data...)
	c.messages[subject] = append(c.messages[subject], stored)

	var handlers []nats.MsgHandler
	seenQueue := make(map[string]bool)
	for _, s := range c.subs {
		if s.subject != subject {
			continue
		}
		if s.queue != "" {
			if seenQueue[s.queue] {
				continue
			}
			seenQueue[s.queue] = true
		}
		handlers = append(handlers, s.handler)
	}
	c.mu.Unlock()

	// Handlers run outside the lock so they may publish themselves.
	for _, h := range handlers {
		h(&nats.Msg{Subject: subject, Data: append([]byte(nil), data...)})
	}
	return nil
}

// PublishToStream records a JetStream publish and delivers like Publish
func (c *MockNATSClient) PublishToStream(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.streamed[subject] = append(c.streamed[subject], append([]byte(nil), data...))
	c.mu.Unlock()
	return c.Publish(subject, data)
}

// EnsureStream records the stream definition. The returned stream is
// always nil.
func (c *MockNATSClient) EnsureStream(_ context.Context, name string, subjects ...string) (jetstream.Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("client is closed")
	}
	c.streams[name] = append([]string(nil), subjects...)
	return nil, nil
}

// Streams returns the subjects of every stream created through EnsureStream
func (c *MockNATSClient) Streams() map[string][]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string][]string, len(c.streams))
	for k, v := range c.streams {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Subscribe registers handler for subject. The returned function removes
// the subscription.
func (c *MockNATSClient) Subscribe(subject, queue string, handler nats.MsgHandler) (func() error, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("client is closed")
	}
	c.nextID++
	id := c.nextID
	c.subs = append(c.subs, mockSub{id: id, subject: subject, queue: queue, handler: handler})

	return func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				return nil
			}
		}
		return nil
	}, nil
}

// Subscriptions returns the number of active subscriptions
func (c *MockNATSClient) Subscriptions() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

// GetMessages returns a copy of the messages published on subject.
func (c *MockNATSClient) GetMessages(subject string) [][]byte {
	c.mu.RLock()
	defer c.mu.RUnlock()

	msgs := c.messages[subject]
	if msgs == nil {
		return nil
	}
	result := make([][]byte, len(msgs))
	copy(result, msgs)
	return result
}

// GetStreamMessages returns a copy of the messages published through
// PublishToStream on subject.
func (c *MockNATSClient) GetStreamMessages(subject string) [][]byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([][]byte(nil), c.streamed[subject]...)
}

// GetMessageCount returns the number of messages on a subject.
func (c *MockNATSClient) GetMessageCount(subject string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages[subject])
}

// ClearAll clears all messages from all subjects.
func (c *MockNATSClient) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = make(map[string][][]byte)
	c.streamed = make(map[string][][]byte)
}

// Close closes the mock client.
func (c *MockNATSClient) Close(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.subs = nil
	return nil
}

// IsClosed returns whether the client is closed.
func (c *MockNATSClient) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// WaitForMessageCount waits for a specific number of messages (with timeout).
func WaitForMessageCount(t *testing.T, client *MockNATSClient, subject string, count int, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if client.GetMessageCount(subject) >= count {
			return
		}
		select {
		case <-ctx.Done():
			got := client.GetMessageCount(subject)
			t.Fatalf("timeout waiting for %d messages on subject %s (got %d)", count, subject, got)
			return
		case <-ticker.C:
		}
	}
}

// AssertNoMessages checks that no messages were received on a subject.
func AssertNoMessages(t *testing.T, client *MockNATSClient, subject string) {
	t.Helper()

	messages := client.GetMessages(subject)
	if len(messages) > 0 {
		t.Fatalf("expected no messages on subject %s, got %d", subject, len(messages))
	}
}
