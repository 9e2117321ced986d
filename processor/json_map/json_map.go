package jsonmapprocessor

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
const TypeID = "json_map"

// Transforms lists the supported value transforms
var Transforms = []string{"copy", "uppercase", "lowercase", "trim", "unix_ms", "rfc3339"}

// Config holds configuration for the JSON map element
type Config struct {
	Mappings     []FieldMapping `json:"mappings"`
	AddFields    map[string]any `json:"add_fields"`
	RemoveFields []string       `json:"remove_fields"`
	OnInvalid    string         `json:"on_invalid"`
}

// FieldMapping defines a single field transformation
type FieldMapping struct {
	SourceField string `json:"source_field"`
	TargetField string `json:"target_field"`
	Transform   string `json:"transform"`
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	for i, m := range c.Mappings {
		if m.SourceField == "" || m.TargetField == "" {
			return errors.WrapInvalid(fmt.Errorf("%w: mappings[%d] needs source_field and target_field", errors.ErrMissingConfig, i),
				"Config", "Validate", "validate mapping")
		}
		if m.Transform != "" && !isTransform(m.Transform) {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
				fmt.Sprintf("mappings[%d]: unknown transform %q", i, m.Transform))
		}
	}
	if c.OnInvalid != "drop" && c.OnInvalid != "pass" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", fmt.Sprintf("unknown on_invalid action %q", c.OnInvalid))
	}
	return nil
}

func isTransform(t string) bool {
	for _, known := range Transforms {
		if known == t {
			return true
		}
	}
	return false
}

// Processor rewrites the JSON payload of every buffer
type Processor struct {
	el *element.Element

	mu           sync.RWMutex
	mappings     []FieldMapping
	addFields    map[string]any
	removeFields []string
	passOnBad    bool

	metrics *mapMetrics

	messagesProcessed   atomic.Int64
	messagesTransformed atomic.Int64
	errors              atomic.Int64
}

// Type returns the json_map descriptor
func Type() *element.Type {
	return &element.Type{
		TypeID:   TypeID,
		TypeKind: object.KindProcess,
		Name:     "JSON Map",
		New:      newProcessor,
		Fill: func(s *settings.Data) {
			s.SetDefaultString("on_invalid", "drop")
		},
		Props: func() *properties.Properties {
			props := properties.New()
			props.AddEditableList("mappings", "Field mappings (source_field, target_field, transform)", properties.EditableListStrings, "", "")
			props.AddText("remove_fields", "Comma separated fields to remove", properties.TextDefault)
			invalid := props.AddList("on_invalid", "Payloads that are not JSON objects", properties.ComboList, properties.ComboFormatString)
			invalid.AddItemString("Drop", "drop")
			invalid.AddItemString("Pass through", "pass")
			return props
		},
	}
}

// Register adds json_map to rt
func Register(rt *element.Runtime) error {
	return rt.RegisterType(Type())
}

func newProcessor(s *settings.Data, el *element.Element) (element.Instance, error) {
	m := &Processor{el: el}
	if err := m.apply(s); err != nil {
		return nil, err
	}
	metrics, err := newMapMetrics(el.Runtime().MetricsRegistry(), el.Name())
	if err != nil {
		return nil, err
	}
	m.metrics = metrics

	if _, err := el.NewPad("sink", pad.DirectionSink, pad.WithChain(pad.ChainFunc(m.chain))); err != nil {
		m.metrics.unregister()
		return nil, err
	}
	if _, err := el.NewPad("src", pad.DirectionSrc); err != nil {
		m.metrics.unregister()
		return nil, err
	}
	return m, nil
}

func (m *Processor) apply(s *settings.Data) error {
	var cfg Config
	if err := s.Decode(&cfg); err != nil {
		return errors.Wrap(err, "JSONMap", "apply", "decode settings")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	remove := make([]string, 0, len(cfg.RemoveFields))
	for _, f := range cfg.RemoveFields {
		if f = strings.TrimSpace(f); f != "" {
			remove = append(remove, f)
		}
	}

	m.mu.Lock()
	m.mappings = cfg.Mappings
	m.addFields = cfg.AddFields
	m.removeFields = remove
	m.passOnBad = cfg.OnInvalid == "pass"
	m.mu.Unlock()
	return nil
}

// Update replaces the mappings
func (m *Processor) Update(s *settings.Data) {
	if err := m.apply(s); err != nil {
		m.el.Logger().Warn("Ignoring invalid settings", "error", err)
	}
}

func (m *Processor) chain(_ *pad.Pad, buf *pad.Buffer) pad.FlowReturn {
	m.messagesProcessed.Add(1)

	data, err := message.Object(buf)
	if err != nil {
		m.errors.Add(1)
		m.metrics.recordError("parse")
		m.mu.RLock()
		pass := m.passOnBad
		m.mu.RUnlock()
		if pass {
			return m.el.PushAll(buf)
		}
		m.el.Runtime().Metrics().RecordDrop(m.el.Name(), "invalid")
		return pad.FlowOK
	}

	start := time.Now()
	transformed := m.transformMessage(data)
	encoded, err := json.Marshal(transformed)
	if err != nil {
		m.errors.Add(1)
		m.metrics.recordError("marshal")
		m.el.Logger().Error("Failed to encode transformed payload", "error", err)
		return pad.FlowError
	}
	m.messagesTransformed.Add(1)
	m.metrics.recordTransformation(time.Since(start), len(encoded))

	out := pad.NewValueBuffer(transformed, encoded)
	out.Timestamp = buf.Timestamp
	out.Offset = buf.Offset
	if buf.Meta != nil {
		out.Meta = buf.Meta.Clone()
	}
	defer out.Release()
	return m.el.PushAll(out)
}

// transformMessage applies removals, mappings and static fields, in that
// order, to a deep copy of data
func (m *Processor) transformMessage(data map[string]any) map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := cloneObject(data)

	removed := 0
	for _, field := range m.removeFields {
		if message.DeletePath(result, field) {
			removed++
		}
	}

	mapped := 0
	for _, mapping := range m.mappings {
		value, ok := message.Lookup(data, mapping.SourceField)
		if !ok {
			m.metrics.recordExtractionError("missing_field")
			continue
		}
		if mapping.SourceField != mapping.TargetField {
			message.DeletePath(result, mapping.SourceField)
		}
		message.SetPath(result, mapping.TargetField, applyTransform(cloneValue(value), mapping.Transform))
		mapped++
	}

	for key, value := range m.addFields {
		message.SetPath(result, key, cloneValue(value))
	}

	m.metrics.recordFieldOperations(len(m.addFields), removed, mapped)
	return result
}

// applyTransform converts value. String transforms leave other values
// unchanged; timestamp transforms leave unparseable values unchanged.
func applyTransform(value any, transform string) any {
	switch transform {
	case "unix_ms":
		if ms := timestamp.Parse(value); ms != 0 {
			return ms
		}
		return value
	case "rfc3339":
		if ms := timestamp.Parse(value); ms != 0 {
			return timestamp.Format(ms)
		}
		return value
	}

	s, ok := value.(string)
	if !ok {
		return value
	}
	switch transform {
	case "uppercase":
		return strings.ToUpper(s)
	case "lowercase":
		return strings.ToLower(s)
	case "trim":
		return strings.TrimSpace(s)
	default:
		return value
	}
}

func cloneObject(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneObject(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// Stats returns processed, transformed and error counts
func (m *Processor) Stats() (processed, transformed, errs int64) {
	return m.messagesProcessed.Load(), m.messagesTransformed.Load(), m.errors.Load()
}

// Destroy implements element.Instance
func (m *Processor) Destroy() { m.metrics.unregister() }
