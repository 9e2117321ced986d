package pipeline

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/element"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/elementregistry"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/natsclient"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/output/collect"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/testutil"
)

// NATSPipelineSuite runs pipelines that talk through a real NATS server
type NATSPipelineSuite struct {
	suite.Suite
	container testcontainers.Container
	client    *natsclient.Client
	rt        *element.Runtime
	ctx       context.Context
	cancel    context.CancelFunc
}

func TestNATSPipelineSuite(t *testing.T) {
	if os.Getenv("INTEGRATION_TESTS") == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run NATS container tests")
	}
	suite.Run(t, new(NATSPipelineSuite))
}

func (s *NATSPipelineSuite) SetupSuite() {
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2.11.7-alpine",
			ExposedPorts: []string{"4222/tcp"},
			Cmd:          []string{"--js"},
			WaitingFor:   wait.ForListeningPort("4222/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	s.Require().NoError(err)
	s.container = container

	host, err := container.Host(ctx)
	s.Require().NoError(err)
	port, err := container.MappedPort(ctx, "4222")
	s.Require().NoError(err)

	s.client, err = natsclient.NewClient("nats://" + host + ":" + port.Port())
	s.Require().NoError(err)
	s.Require().NoError(s.client.Connect(ctx))
}

func (s *NATSPipelineSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close(context.Background())
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *NATSPipelineSuite) SetupTest() {
	s.rt = element.NewRuntime()
	s.Require().NoError(elementregistry.Register(s.rt, elementregistry.Dependencies{NATSClient: s.client}))
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 15*time.Second)
}

func (s *NATSPipelineSuite) TearDownTest() {
	s.cancel()
	s.rt.Shutdown()
}

func (s *NATSPipelineSuite) build(b *testutil.PipelineBuilder) *Pipeline {
	p, err := Build(s.rt, b.Build())
	s.Require().NoError(err)
	s.T().Cleanup(p.Close)
	s.Require().NoError(p.Start(s.ctx))
	return p
}

func (s *NATSPipelineSuite) sink(p *Pipeline, name string) *collect.Sink {
	el, ok := p.Element(name)
	s.Require().True(ok)
	sink, ok := el.Instance().(*collect.Sink)
	s.Require().True(ok)
	return sink
}

func (s *NATSPipelineSuite) TestCoreSubjectRoundTrip() {
	consumer := s.build(testutil.NewPipelineBuilder().
		Element("in", "nats_source", map[string]any{"subject": "logs.core"}).
		Element("out", "collect_sink", nil).
		Chain("in", "out"))
	sink := s.sink(consumer, "out")

	producer := s.build(testutil.NewPipelineBuilder().
		Element("numbers", "counter_source", map[string]any{"limit": 5}).
		Element("publish", "nats_output", map[string]any{"subject": "logs.core"}).
		Chain("numbers", "publish"))
	s.Require().NoError(producer.Wait(s.ctx))

	s.Eventually(func() bool { return sink.Len() == 5 }, 5*time.Second, 20*time.Millisecond)
	s.Equal([]string{"1", "2", "3", "4", "5"}, sink.Strings())
	s.True(consumer.Health().Healthy)
}

func (s *NATSPipelineSuite) TestJetStreamPublish() {
	consumer := s.build(testutil.NewPipelineBuilder().
		Element("in", "nats_source", map[string]any{"subject": "logs.js.app"}).
		Element("out", "collect_sink", nil).
		Chain("in", "out"))
	sink := s.sink(consumer, "out")

	producer := s.build(testutil.NewPipelineBuilder().
		Element("numbers", "counter_source", map[string]any{"limit": 3}).
		Element("publish", "nats_output", map[string]any{
			"subject":   "logs.js.app",
			"jetstream": true,
			"stream":    "LOGS_IT",
		}).
		Chain("numbers", "publish"))
	s.Require().NoError(producer.Wait(s.ctx))

	s.Eventually(func() bool { return sink.Len() == 3 }, 5*time.Second, 20*time.Millisecond)

	js, err := s.client.JetStream()
	s.Require().NoError(err)
	stream, err := js.Stream(s.ctx, "LOGS_IT")
	s.Require().NoError(err)
	info, err := stream.Info(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(3), info.State.Msgs)
}
