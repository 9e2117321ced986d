package httppost

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/element"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/message"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/object"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pkg/retry"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pkg/tlsutil"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pkg/worker"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/properties"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
)

// TypeID identifies the element type
const TypeID = "http_output"

// Config holds configuration for the HTTP output
type Config struct {
	URL            string               `json:"url"`
	Method         string               `json:"method"`
	Format         string               `json:"format"`
	ContentType    string               `json:"content_type"`
	Headers        map[string]string    `json:"headers"`
	Workers        int                  `json:"workers"`
	QueueSize      int                  `json:"queue_size"`
	TimeoutMS      int                  `json:"timeout_ms"`
	RetryCount     int                  `json:"retry_count"`
	DrainTimeoutMS int                  `json:"drain_timeout_ms"`
	TLS            tlsutil.ClientConfig `json:"tls"`
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.WrapInvalid(fmt.Errorf("%w: url", errors.ErrMissingConfig), "Config", "Validate", "url is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return errors.WrapInvalid(err, "Config", "Validate", "invalid URL format")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("url scheme must be http or https, got %q", u.Scheme))
	}
	if _, err := message.ParseFormat(c.Format); err != nil {
		return err
	}
	if c.RetryCount < 0 || c.RetryCount > 10 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"retry_count must be between 0 and 10")
	}
	if c.TimeoutMS < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "timeout_ms cannot be negative")
	}
	return nil
}

func (c *Config) contentType(f message.Format) string {
	if c.ContentType != "" {
		return c.ContentType
	}
	switch f {
	case message.FormatJSONL, message.FormatRecord:
		return "application/json"
	case message.FormatLines:
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// Output posts buffers to an HTTP endpoint
type Output struct {
	el *element.Element

	cfgMu  sync.Mutex
	cfg    Config
	format message.Format

	lifecycleMu sync.Mutex
	pool        *worker.Pool[[]byte]
	httpClient  *http.Client
	cancel      context.CancelFunc
	running     atomic.Bool

	messagesSent    atomic.Int64
	messagesRetried atomic.Int64
	errors          atomic.Int64
	dropped         atomic.Int64
}

// Type returns the http_output descriptor
func Type() *element.Type {
	return &element.Type{
		TypeID:   TypeID,
		TypeKind: object.KindOutput,
		Name:     "HTTP Output",
		New:      newOutput,
		Fill: func(s *settings.Data) {
			s.SetDefaultString("url", "")
			s.SetDefaultString("method", http.MethodPost)
			s.SetDefaultString("format", string(message.FormatJSONL))
			s.SetDefaultInt("workers", 4)
			s.SetDefaultInt("queue_size", 1000)
			s.SetDefaultInt("timeout_ms", 5000)
			s.SetDefaultInt("retry_count", 3)
			s.SetDefaultInt("drain_timeout_ms", 5000)
		},
		Props: func() *properties.Properties {
			props := properties.New()
			props.AddText("url", "Endpoint URL", properties.TextDefault)
			methods := props.AddList("method", "Method", properties.ComboList, properties.ComboFormatString)
			methods.AddItemString("POST", http.MethodPost)
			methods.AddItemString("PUT", http.MethodPut)
			formats := props.AddList("format", "Body format", properties.ComboList, properties.ComboFormatString)
			for _, f := range message.Formats {
				formats.AddItemString(string(f), string(f))
			}
			props.AddText("content_type", "Content-Type override", properties.TextDefault)
			props.AddInt("workers", "Concurrent requests", 1, 256, 1)
			props.AddInt("queue_size", "Queued requests", 1, math.MaxInt32, 1)
			props.AddInt("timeout_ms", "Request timeout", 0, 300000, 100).SetSuffix(" ms")
			props.AddInt("retry_count", "Retries per request", 0, 10, 1)
			props.AddInt("drain_timeout_ms", "Drain timeout on stop", 0, 300000, 100).SetSuffix(" ms")
			return props
		},
	}
}

// Register adds http_output to rt
func Register(rt *element.Runtime) error {
	return rt.RegisterType(Type())
}

func newOutput(s *settings.Data, el *element.Element) (element.Instance, error) {
	h := &Output{el: el}
	if err := h.apply(s); err != nil {
		return nil, err
	}
	_, err := el.NewPad("sink", pad.DirectionSink, pad.WithChain(pad.ChainFunc(h.chain)))
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Output) apply(s *settings.Data) error {
	var cfg Config
	if err := s.Decode(&cfg); err != nil {
		return errors.Wrap(err, "HTTPOutput", "apply", "decode settings")
	}
	format, err := message.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	h.cfgMu.Lock()
	h.cfg = cfg
	h.format = format
	h.cfgMu.Unlock()
	return nil
}

func (h *Output) config() (Config, message.Format) {
	h.cfgMu.Lock()
	defer h.cfgMu.Unlock()
	return h.cfg, h.format
}

// Update applies new settings on the next Start
func (h *Output) Update(s *settings.Data) {
	if err := h.apply(s); err != nil {
		h.el.Logger().Warn("Ignoring invalid settings", "error", err)
	}
}

// Start builds the HTTP client and starts the worker pool
func (h *Output) Start(ctx context.Context) error {
	h.lifecycleMu.Lock()
	defer h.lifecycleMu.Unlock()

	if h.running.Load() {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "HTTPOutput", "Start", "check running state")
	}
	cfg, _ := h.config()
	if err := cfg.Validate(); err != nil {
		return err
	}

	client := &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond}
	if cfg.TLS.Enabled() {
		tlsConfig, err := tlsutil.LoadClientTLSConfig(cfg.TLS)
		if err != nil {
			return err
		}
		client.Transport = &http.Transport{TLSClientConfig: tlsConfig}
	}
	h.httpClient = client

	opts := []worker.Option[[]byte]{
		worker.WithDiscard(func([]byte) {
			h.dropped.Add(1)
			h.el.Runtime().Metrics().RecordDrop(h.el.Name(), "shutdown")
		}),
	}
	if reg := h.el.Runtime().MetricsRegistry(); reg != nil {
		opts = append(opts, worker.WithMetricsRegistry[[]byte](reg, h.el.Name()))
	}
	pool, err := worker.NewPool(cfg.Workers, cfg.QueueSize, h.send, opts...)
	if err != nil {
		return err
	}

	// Requests outlive the element context so Stop can drain the queue.
	poolCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if err := pool.Start(poolCtx); err != nil {
		cancel()
		return errors.WrapFatal(err, "HTTPOutput", "Start", "start worker pool")
	}
	h.pool = pool
	h.cancel = cancel
	h.running.Store(true)

	h.el.Logger().Info("HTTP output started", "url", cfg.URL, "workers", cfg.Workers, "queue_size", cfg.QueueSize)
	return nil
}

// Stop drains the queue within drain_timeout_ms, then cancels in-flight
// requests
func (h *Output) Stop() {
	h.lifecycleMu.Lock()
	defer h.lifecycleMu.Unlock()

	if !h.running.Swap(false) {
		return
	}
	cfg, _ := h.config()
	if err := h.pool.Stop(time.Duration(cfg.DrainTimeoutMS) * time.Millisecond); err != nil {
		h.el.Logger().Warn("Requests still pending at shutdown", "error", err)
	}
	h.cancel()
	h.httpClient.CloseIdleConnections()
}

func (h *Output) chain(_ *pad.Pad, buf *pad.Buffer) pad.FlowReturn {
	if !h.running.Load() {
		return pad.FlowFlushing
	}
	_, format := h.config()
	body, err := message.Encode(format, h.el.Name(), buf)
	if err != nil {
		h.errors.Add(1)
		h.el.Logger().Error("Failed to encode buffer", "error", err)
		return pad.FlowError
	}

	if err := h.pool.Submit(body); err != nil {
		h.dropped.Add(1)
		h.el.Runtime().Metrics().RecordDrop(h.el.Name(), "queue_full")
		h.el.Logger().Debug("Request dropped", "error", err)
		return pad.FlowError
	}
	return pad.FlowOK
}

// send delivers one body with retries
func (h *Output) send(ctx context.Context, body []byte) error {
	cfg, format := h.config()
	rc := errors.DefaultRetryConfig()
	rc.MaxRetries = cfg.RetryCount

	attempt := 0
	start := time.Now()
	err := retry.Do(ctx, rc.ToRetryConfig(), func() error {
		attempt++
		if attempt > 1 {
			h.messagesRetried.Add(1)
		}
		return h.post(ctx, cfg, format, body)
	})
	if err != nil {
		h.errors.Add(1)
		h.el.Runtime().Metrics().RecordError(h.el.Name(), errors.Classify(err).String())
		h.el.Logger().Error("HTTP delivery failed", "url", cfg.URL, "attempts", attempt, "error", err)
		return err
	}
	h.messagesSent.Add(1)
	h.el.Runtime().Metrics().RecordWrite(h.el.Name(), len(body), time.Since(start))
	return nil
}

// post sends a single request. Client errors other than 429 are not
// retried.
func (h *Output) post(ctx context.Context, cfg Config, format message.Format, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, cfg.Method, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return retry.NonRetryable(errors.WrapInvalid(err, "HTTPOutput", "post", "build request"))
	}
	req.Header.Set("Content-Type", cfg.contentType(format))
	for key, value := range cfg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return errors.WrapTransient(err, "HTTPOutput", "post", "send request")
	}
	defer resp.Body.Close()
	// Drain the body so the connection is reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return errors.WrapTransient(fmt.Errorf("HTTP %s", resp.Status), "HTTPOutput", "post", "check status")
	default:
		return retry.NonRetryable(errors.WrapInvalid(fmt.Errorf("HTTP %s", resp.Status), "HTTPOutput", "post", "check status"))
	}
}

// Stats holds delivery counters
type Stats struct {
	Sent    int64 `json:"sent"`
	Retried int64 `json:"retried"`
	Errors  int64 `json:"errors"`
	Dropped int64 `json:"dropped"`
}

// Stats returns the delivery counters
func (h *Output) Stats() Stats {
	return Stats{
		Sent:    h.messagesSent.Load(),
		Retried: h.messagesRetried.Load(),
		Errors:  h.errors.Load(),
		Dropped: h.dropped.Load(),
	}
}

// Destroy implements element.Instance
func (h *Output) Destroy() { h.Stop() }
