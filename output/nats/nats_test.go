package nats

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/element"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/natsclient"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/message"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pkg/retry"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/testutil"
)

// onlyPublisher hides EnsureStream from the mock
type onlyPublisher struct{ mock *testutil.MockNATSClient }

func (p onlyPublisher) Publish(subject string, data []byte) error {
	return p.mock.Publish(subject, data)
}

func (p onlyPublisher) PublishToStream(ctx context.Context, subject string, data []byte) error {
	return p.mock.PublishToStream(ctx, subject, data)
}

func newOutputElement(t *testing.T, pub Publisher, values map[string]any) (*element.Element, *Output, *testutil.Feeder) {
	t.Helper()
	rt := element.NewRuntime()
	require.NoError(t, Register(rt, WithClient(pub)))

	s, err := settings.FromMap(values)
	require.NoError(t, err)
	el, err := rt.Instantiate(TypeID, "publisher", s)
	require.NoError(t, err)
	t.Cleanup(el.Release)

	feeder := testutil.NewFeeder()
	require.Equal(t, pad.LinkOK, pad.Link(feeder.Pad(), el.Pad("sink")))
	return el, el.Instance().(*Output), feeder
}

func TestNATSOutput_Publishes(t *testing.T) {
	client := testutil.NewMockNATSClient()
	el, out, feeder := newOutputElement(t, client, map[string]any{"subject": "logs.app"})

	assert.Equal(t, pad.FlowFlushing, feeder.PushString("before start"))

	require.NoError(t, el.Start(context.Background()))
	t.Cleanup(el.Stop)
	for _, line := range testutil.SampleLogLines {
		require.Equal(t, pad.FlowOK, feeder.PushString(line))
	}

	msgs := client.GetMessages("logs.app")
	require.Len(t, msgs, len(testutil.SampleLogLines))
	for i, line := range testutil.SampleLogLines {
		assert.Equal(t, line, string(msgs[i]))
	}
	published, failed := out.Stats()
	assert.EqualValues(t, len(testutil.SampleLogLines), published)
	assert.Zero(t, failed)
}

func TestNATSOutput_RecordFormat(t *testing.T) {
	client := testutil.NewMockNATSClient()
	el, _, feeder := newOutputElement(t, client, map[string]any{"subject": "logs", "format": "record"})
	require.NoError(t, el.Start(context.Background()))
	t.Cleanup(el.Stop)

	require.Equal(t, pad.FlowOK, feeder.PushString("hello"))
	msgs := client.GetMessages("logs")
	require.Len(t, msgs, 1)

	rec, err := message.Unmarshal(msgs[0])
	require.NoError(t, err)
	assert.Equal(t, "publisher", rec.Source)
	assert.Equal(t, "hello", rec.Text())
}

func TestNATSOutput_JetStream(t *testing.T) {
	client := testutil.NewMockNATSClient()
	el, _, feeder := newOutputElement(t, client, map[string]any{
		"subject":   "events.audit",
		"jetstream": true,
		"stream":    "AUDIT",
	})
	require.NoError(t, el.Start(context.Background()))
	t.Cleanup(el.Stop)

	assert.Equal(t, map[string][]string{"AUDIT": {"events.audit"}}, client.Streams())
	require.Equal(t, pad.FlowOK, feeder.PushString(`{"user":"alice"}`))
	assert.Len(t, client.GetStreamMessages("events.audit"), 1)
}

func TestNATSOutput_StreamNeedsCreator(t *testing.T) {
	el, _, _ := newOutputElement(t, onlyPublisher{testutil.NewMockNATSClient()}, map[string]any{
		"subject":   "events",
		"jetstream": true,
		"stream":    "EVENTS",
	})
	err := el.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestNATSOutput_PublishError(t *testing.T) {
	client := testutil.NewMockNATSClient()
	client.PublishErr = fmt.Errorf("connection lost")
	el, out, feeder := newOutputElement(t, client, map[string]any{"subject": "logs"})
	require.NoError(t, el.Start(context.Background()))
	t.Cleanup(el.Stop)

	assert.Equal(t, pad.FlowError, feeder.PushString("x"))
	_, failed := out.Stats()
	assert.EqualValues(t, 1, failed)
}

func TestNATSOutput_UpdateSubject(t *testing.T) {
	client := testutil.NewMockNATSClient()
	el, _, feeder := newOutputElement(t, client, map[string]any{"subject": "a"})
	require.NoError(t, el.Start(context.Background()))
	t.Cleanup(el.Stop)

	s := settings.New()
	s.SetString("subject", "b")
	el.Update(s)
	require.Equal(t, pad.FlowOK, feeder.PushString("x"))
	testutil.AssertNoMessages(t, client, "a")
	assert.Equal(t, 1, client.GetMessageCount("b"))
}

func TestNATSOutput_SubjectRequired(t *testing.T) {
	rt := element.NewRuntime()
	require.NoError(t, Register(rt))
	_, err := rt.Instantiate(TypeID, "", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingConfig)
}

// captureClients makes every own connection fail fast and records it
func captureClients(t *testing.T) *[]*natsclient.Client {
	t.Helper()
	var built []*natsclient.Client
	orig := newClient
	newClient = func(urls string, opts ...natsclient.ClientOption) (*natsclient.Client, error) {
		opts = append(opts,
			natsclient.WithTimeout(50*time.Millisecond),
			natsclient.WithConnectRetry(retry.Config{
				MaxAttempts:  1,
				InitialDelay: time.Millisecond,
				MaxDelay:     time.Millisecond,
				Multiplier:   1,
			}),
		)
		c, err := orig(urls, opts...)
		if c != nil {
			built = append(built, c)
		}
		return c, err
	}
	t.Cleanup(func() { newClient = orig })
	return &built
}

func TestNATSOutput_ConnectFailureClosesOwnClient(t *testing.T) {
	built := captureClients(t)
	rt := element.NewRuntime()
	require.NoError(t, Register(rt))
	s, err := settings.FromMap(map[string]any{
		"url":     "nats://127.0.0.1:1",
		"subject": "logs",
	})
	require.NoError(t, err)
	el, err := rt.Instantiate(TypeID, "unreachable", s)
	require.NoError(t, err)
	t.Cleanup(el.Release)

	require.Error(t, el.Start(context.Background()))
	require.Len(t, *built, 1)
	assert.True(t, (*built)[0].Closed())
}
