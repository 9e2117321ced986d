package parser

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/element"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/message"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/object"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pkg/timestamp"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/properties"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
)

// TypeID identifies the element type
const TypeID = "parse"

// Config holds the parse element settings
type Config struct {
	Format          string   `json:"format"`
	Columns         []string `json:"columns"`
	Delimiter       string   `json:"delimiter"`
	Pattern         string   `json:"pattern"`
	Target          string   `json:"target"`
	RawField        string   `json:"raw_field"`
	TimestampField  string   `json:"timestamp_field"`
	TimestampLayout string   `json:"timestamp_layout"`
	OnError         string   `json:"on_error"`
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.OnError != "drop" && c.OnError != "pass" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", fmt.Sprintf("unknown on_error action %q", c.OnError))
	}
	return nil
}

// Element parses raw payloads into JSON objects
type Element struct {
	el *element.Element

	mu     sync.RWMutex
	parser Parser
	cfg    Config

	parsed atomic.Int64
	failed atomic.Int64
}

// Type returns the parse descriptor
func Type() *element.Type {
	return &element.Type{
		TypeID:   TypeID,
		TypeKind: object.KindProcess,
		Name:     "Parse",
		New:      newElement,
		Fill: func(s *settings.Data) {
			s.SetDefaultString("format", "json")
			s.SetDefaultString("on_error", "drop")
		},
		Props: func() *properties.Properties {
			props := properties.New()
			format := props.AddList("format", "Payload format", properties.ComboList, properties.ComboFormatString)
			for _, f := range Formats {
				format.AddItemString(f, f)
			}
			props.AddText("columns", "Comma separated column names (csv)", properties.TextDefault)
			props.AddText("delimiter", "Field delimiter (csv)", properties.TextDefault)
			props.AddText("pattern", "Regular expression with capture groups (regex)", properties.TextDefault)
			props.AddText("target", "Field receiving the parsed object (empty: top level)", properties.TextDefault)
			props.AddText("raw_field", "Field keeping the original payload", properties.TextDefault)
			props.AddText("timestamp_field", "Parsed field holding the event time", properties.TextDefault)
			props.AddText("timestamp_layout", "Go time layout of timestamp_field", properties.TextDefault)
			onError := props.AddList("on_error", "Payloads that fail to parse", properties.ComboList, properties.ComboFormatString)
			onError.AddItemString("Drop", "drop")
			onError.AddItemString("Pass through", "pass")
			return props
		},
	}
}

// Register adds parse to rt
func Register(rt *element.Runtime) error {
	return rt.RegisterType(Type())
}

func newElement(s *settings.Data, el *element.Element) (element.Instance, error) {
	p := &Element{el: el}
	if err := p.apply(s); err != nil {
		return nil, err
	}
	if _, err := el.NewPad("sink", pad.DirectionSink, pad.WithChain(pad.ChainFunc(p.chain))); err != nil {
		return nil, err
	}
	if _, err := el.NewPad("src", pad.DirectionSrc); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Element) apply(s *settings.Data) error {
	var cfg Config
	if err := s.Decode(&cfg); err != nil {
		return errors.Wrap(err, "Parse", "apply", "decode settings")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	columns := make([]string, 0, len(cfg.Columns))
	for _, c := range cfg.Columns {
		if c = strings.TrimSpace(c); c != "" {
			columns = append(columns, c)
		}
	}
	parser, err := New(Options{Format: cfg.Format, Columns: columns, Delimiter: cfg.Delimiter, Pattern: cfg.Pattern})
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.parser = parser
	p.cfg = cfg
	p.mu.Unlock()
	return nil
}

// Update replaces the format and options
func (p *Element) Update(s *settings.Data) {
	if err := p.apply(s); err != nil {
		p.el.Logger().Warn("Ignoring invalid settings", "error", err)
	}
}

func (p *Element) chain(_ *pad.Pad, buf *pad.Buffer) pad.FlowReturn {
	p.mu.RLock()
	parser, cfg := p.parser, p.cfg
	p.mu.RUnlock()

	fields, err := parser.Parse(buf.Data)
	if err != nil {
		p.failed.Add(1)
		p.el.Runtime().Metrics().RecordError(p.el.Name(), errors.Classify(err).String())
		if cfg.OnError == "pass" {
			return p.el.PushAll(buf)
		}
		p.el.Runtime().Metrics().RecordDrop(p.el.Name(), "unparsed")
		p.el.Logger().Debug("Dropping unparsable payload", "format", parser.Format(), "error", err)
		return pad.FlowOK
	}
	p.parsed.Add(1)

	ts := buf.Timestamp
	if cfg.TimestampField != "" {
		if v, ok := message.Lookup(fields, cfg.TimestampField); ok {
			if t, ok := eventTime(v, cfg.TimestampLayout); ok {
				ts = t
			}
		}
	}

	result := fields
	if cfg.Target != "" {
		result = make(map[string]any)
		message.SetPath(result, cfg.Target, fields)
	}
	if cfg.RawField != "" {
		message.SetPath(result, cfg.RawField, string(buf.Data))
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		p.el.Logger().Error("Failed to encode parsed payload", "error", err)
		return pad.FlowError
	}
	out := pad.NewValueBuffer(result, encoded)
	out.Timestamp = ts
	out.Offset = buf.Offset
	if buf.Meta != nil {
		out.Meta = buf.Meta.Clone()
	}
	defer out.Release()
	return p.el.PushAll(out)
}

// eventTime reads v with layout, or as any timestamp form when layout is
// empty
func eventTime(v any, layout string) (time.Time, bool) {
	if layout != "" {
		s, ok := v.(string)
		if !ok {
			return time.Time{}, false
		}
		t, err := time.Parse(layout, s)
		return t, err == nil
	}
	ms := timestamp.Parse(v)
	if ms == 0 {
		return time.Time{}, false
	}
	return timestamp.FromUnixMs(ms), true
}

// Stats returns parsed and failed counts
func (p *Element) Stats() (parsed, failed int64) {
	return p.parsed.Load(), p.failed.Load()
}

// Destroy implements element.Instance
func (p *Element) Destroy() {}
