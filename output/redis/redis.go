// Package redis provides the redis_output element, which appends every
// buffer to a Redis stream (XADD) or list (RPUSH).
//
// Stream entries carry the fields data, source, offset, timestamp and, when
// the buffer has metadata, meta as a JSON object. List entries are the
// buffer encoded in the configured format. maxlen caps the stream or list
// length; older entries are trimmed. Buffer lists are written in one
// pipeline.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/element"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/message"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/object"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pkg/retry"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/properties"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
)

// TypeID identifies the element type
const TypeID = "redis_output"

// Write modes
const (
	ModeStream = "stream"
	ModeList   = "list"
)

// Config holds the connection and write settings
type Config struct {
	Addr      string `json:"addr"`
	URL       string `json:"url"`
	Password  string `json:"password"`
	DB        int    `json:"db"`
	Key       string `json:"key"`
	Mode      string `json:"mode"`
	MaxLen    int64  `json:"maxlen"`
	Format    string `json:"format"`
	TimeoutMS int    `json:"timeout_ms"`
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Key == "" {
		return errors.WrapInvalid(fmt.Errorf("%w: key", errors.ErrMissingConfig), "Config", "Validate", "key is required")
	}
	if c.Addr == "" && c.URL == "" {
		return errors.WrapInvalid(fmt.Errorf("%w: addr", errors.ErrMissingConfig), "Config", "Validate", "addr or url is required")
	}
	if c.Mode != ModeStream && c.Mode != ModeList {
		return errors.WrapInvalid(fmt.Errorf("%w: mode %q", errors.ErrInvalidConfig, c.Mode), "Config", "Validate",
			"mode must be stream or list")
	}
	if c.MaxLen < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "maxlen cannot be negative")
	}
	_, err := message.ParseFormat(c.Format)
	return err
}

func (c *Config) options() (*goredis.Options, error) {
	timeout := time.Duration(c.TimeoutMS) * time.Millisecond
	opts := &goredis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
	if c.URL != "" {
		parsed, err := goredis.ParseURL(c.URL)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Config", "options", "parse redis url")
		}
		opts.Addr = parsed.Addr
		if parsed.Password != "" && c.Password == "" {
			opts.Password = parsed.Password
		}
		if parsed.DB != 0 && c.DB == 0 {
			opts.DB = parsed.DB
		}
	}
	return opts, nil
}

// Output is the redis_output instance
type Output struct {
	el *element.Element

	mu     sync.RWMutex
	cfg    Config
	format message.Format
	client *goredis.Client
	ctx    context.Context

	written atomic.Int64
	failed  atomic.Int64
}

// Type returns the redis_output descriptor
func Type() *element.Type {
	return &element.Type{
		TypeID:   TypeID,
		TypeKind: object.KindOutput,
		Name:     "Redis Output",
		New:      newOutput,
		Fill: func(s *settings.Data) {
			s.SetDefaultString("addr", "localhost:6379")
			s.SetDefaultString("key", "")
			s.SetDefaultString("mode", ModeStream)
			s.SetDefaultInt("maxlen", 0)
			s.SetDefaultString("format", string(message.FormatRaw))
			s.SetDefaultInt("timeout_ms", 3000)
		},
		Props: func() *properties.Properties {
			props := properties.New()
			props.AddText("addr", "Server address", properties.TextDefault)
			props.AddText("url", "Server URL, overrides addr", properties.TextDefault)
			props.AddText("password", "Password", properties.TextPassword)
			props.AddInt("db", "Database", 0, 15, 1)
			props.AddText("key", "Stream or list key", properties.TextDefault)
			modes := props.AddList("mode", "Mode", properties.ComboList, properties.ComboFormatString)
			modes.AddItemString("Stream (XADD)", ModeStream)
			modes.AddItemString("List (RPUSH)", ModeList)
			props.AddInt("maxlen", "Maximum length, 0 for no limit", 0, 1<<40, 1)
			formats := props.AddList("format", "List entry format", properties.ComboList, properties.ComboFormatString)
			for _, f := range message.Formats {
				formats.AddItemString(string(f), string(f))
			}
			props.AddInt("timeout_ms", "Command timeout", 1, 60000, 100).SetSuffix(" ms")
			return props
		},
	}
}

// Register adds redis_output to rt
func Register(rt *element.Runtime) error {
	return rt.RegisterType(Type())
}

func newOutput(s *settings.Data, el *element.Element) (element.Instance, error) {
	r := &Output{el: el}
	if err := r.apply(s); err != nil {
		return nil, err
	}
	_, err := el.NewPad("sink", pad.DirectionSink,
		pad.WithChain(pad.ChainFunc(r.chain)),
		pad.WithChainList(pad.ChainListFunc(r.chainList)),
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Output) apply(s *settings.Data) error {
	var cfg Config
	if err := s.Decode(&cfg); err != nil {
		return errors.Wrap(err, "RedisOutput", "apply", "decode settings")
	}
	format, err := message.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.cfg, r.format = cfg, format
	r.mu.Unlock()
	return nil
}

// Update applies new settings. The key, mode and maxlen apply at once; the
// connection settings on the next Start.
func (r *Output) Update(s *settings.Data) {
	if err := r.apply(s); err != nil {
		r.el.Logger().Warn("Ignoring invalid settings", "error", err)
	}
}

// Start connects and pings the server, retrying while it is unreachable
func (r *Output) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.cfg.Validate(); err != nil {
		return err
	}
	opts, err := r.cfg.options()
	if err != nil {
		return err
	}
	client := goredis.NewClient(opts)

	cfg := retry.Connect()
	cfg.MaxAttempts = 5
	if err := retry.Do(ctx, cfg, func() error { return client.Ping(ctx).Err() }); err != nil {
		_ = client.Close()
		return errors.WrapTransient(err, "RedisOutput", "Start", "ping "+opts.Addr)
	}
	r.client, r.ctx = client, ctx
	r.el.Logger().Info("Connected to Redis", "addr", opts.Addr, "key", r.cfg.Key, "mode", r.cfg.Mode)
	return nil
}

// Stop closes the connection
func (r *Output) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return
	}
	if err := r.client.Close(); err != nil {
		r.el.Logger().Warn("Failed to close Redis client", "error", err)
	}
	r.client = nil
}

func (r *Output) chain(_ *pad.Pad, buf *pad.Buffer) pad.FlowReturn {
	return r.write([]*pad.Buffer{buf})
}

func (r *Output) chainList(_ *pad.Pad, list *pad.BufferList) pad.FlowReturn {
	bufs := make([]*pad.Buffer, 0, list.Len())
	list.Each(func(_ int, b *pad.Buffer) bool {
		bufs = append(bufs, b)
		return true
	})
	return r.write(bufs)
}

func (r *Output) write(bufs []*pad.Buffer) pad.FlowReturn {
	r.mu.RLock()
	client, cfg, format, ctx := r.client, r.cfg, r.format, r.ctx
	r.mu.RUnlock()
	if client == nil {
		return pad.FlowFlushing
	}

	start := time.Now()
	size := 0
	_, err := client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		for _, buf := range bufs {
			size += len(buf.Data)
			if cfg.Mode == ModeList {
				data, err := message.Encode(format, r.el.Name(), buf)
				if err != nil {
					return err
				}
				p.RPush(ctx, cfg.Key, data)
				continue
			}
			p.XAdd(ctx, &goredis.XAddArgs{
				Stream: cfg.Key,
				MaxLen: cfg.MaxLen,
				Values: r.streamFields(buf),
			})
		}
		if cfg.Mode == ModeList && cfg.MaxLen > 0 {
			p.LTrim(ctx, cfg.Key, -cfg.MaxLen, -1)
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return pad.FlowFlushing
		}
		r.failed.Add(int64(len(bufs)))
		r.el.Runtime().Metrics().RecordError(r.el.Name(), errors.Classify(err).String())
		r.el.Logger().Error("Redis write failed", "key", cfg.Key, "buffers", len(bufs), "error", err)
		return pad.FlowError
	}
	r.written.Add(int64(len(bufs)))
	r.el.Runtime().Metrics().RecordWrite(r.el.Name(), size, time.Since(start))
	return pad.FlowOK
}

func (r *Output) streamFields(buf *pad.Buffer) map[string]any {
	rec := message.FromBuffer(r.el.Name(), buf)
	fields := map[string]any{
		"data":      string(buf.Data),
		"source":    rec.Source,
		"offset":    strconv.FormatUint(rec.Offset, 10),
		"timestamp": strconv.FormatInt(rec.Timestamp, 10),
	}
	if len(rec.Meta) > 0 {
		if meta, err := json.Marshal(rec.Meta); err == nil {
			fields["meta"] = string(meta)
		}
	}
	return fields
}

// Stats returns written and failed buffer counts
func (r *Output) Stats() (written, failed int64) {
	return r.written.Load(), r.failed.Load()
}

// Destroy implements element.Instance
func (r *Output) Destroy() { r.Stop() }
