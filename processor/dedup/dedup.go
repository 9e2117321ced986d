package dedup

import (
	"crypto/sha256"
	"encoding/hex"
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
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pkg/cache"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/properties"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
)

// TypeID identifies the element type
const TypeID = "dedup"

// Config holds the dedup settings
type Config struct {
	Fields     []string      `json:"fields"`
	Window     time.Duration `json:"window"`
	MaxEntries int           `json:"max_entries"`
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.MaxEntries <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", fmt.Sprintf("max_entries must be positive, got %d", c.MaxEntries))
	}
	if c.Window < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", fmt.Sprintf("window must not be negative, got %s", c.Window))
	}
	return nil
}

// Dedup drops repeated buffers
type Dedup struct {
	el *element.Element

	mu     sync.RWMutex
	fields []string
	seen   *cache.Cache[struct{}]

	processed  atomic.Int64
	duplicates atomic.Int64
}

// Type returns the dedup descriptor
func Type() *element.Type {
	return &element.Type{
		TypeID:   TypeID,
		TypeKind: object.KindProcess,
		Name:     "Deduplicate",
		New:      newDedup,
		Fill: func(s *settings.Data) {
			s.SetDefaultString("window", "1m")
			s.SetDefaultInt("max_entries", 10000)
		},
		Props: func() *properties.Properties {
			props := properties.New()
			props.AddText("fields", "Comma separated JSON fields forming the key (empty: whole payload)", properties.TextDefault)
			props.AddText("window", "How long a key is remembered, e.g. 30s", properties.TextDefault)
			props.AddInt("max_entries", "Maximum number of remembered keys", 1, 10000000, 1)
			return props
		},
	}
}

// Register adds dedup to rt
func Register(rt *element.Runtime) error {
	return rt.RegisterType(Type())
}

func newDedup(s *settings.Data, el *element.Element) (element.Instance, error) {
	d := &Dedup{el: el}
	if err := d.apply(s); err != nil {
		return nil, err
	}
	if _, err := el.NewPad("sink", pad.DirectionSink, pad.WithChain(pad.ChainFunc(d.chain))); err != nil {
		d.Destroy()
		return nil, err
	}
	if _, err := el.NewPad("src", pad.DirectionSrc); err != nil {
		d.Destroy()
		return nil, err
	}
	return d, nil
}

func (d *Dedup) apply(s *settings.Data) error {
	var cfg Config
	if err := s.Decode(&cfg); err != nil {
		return errors.Wrap(err, "Dedup", "apply", "decode settings")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	fields := make([]string, 0, len(cfg.Fields))
	for _, f := range cfg.Fields {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	// The old cache owns the metrics registration, so it goes first.
	if d.seen != nil {
		d.seen.Close()
		d.seen = nil
	}
	seen, err := cache.New[struct{}](cfg.MaxEntries, cfg.Window,
		cache.WithMetrics[struct{}](d.el.Runtime().MetricsRegistry(), "dedup:"+d.el.Name(), d.el.Name()))
	if err != nil {
		return err
	}
	d.seen = seen
	d.fields = fields
	return nil
}

// Update replaces the settings and forgets every remembered key
func (d *Dedup) Update(s *settings.Data) {
	if err := d.apply(s); err != nil {
		d.el.Logger().Warn("Ignoring invalid settings", "error", err)
	}
}

func (d *Dedup) chain(_ *pad.Pad, buf *pad.Buffer) pad.FlowReturn {
	d.processed.Add(1)

	d.mu.RLock()
	key := d.key(buf)
	seen := d.seen
	d.mu.RUnlock()
	if seen == nil {
		return d.el.PushAll(buf)
	}

	// Set refreshes the window, so a steady stream of repeats stays
	// suppressed.
	isNew, err := seen.Set(key, struct{}{})
	if err != nil {
		d.el.Logger().Error("Failed to remember key", "error", err)
		return pad.FlowError
	}
	if !isNew {
		d.duplicates.Add(1)
		d.el.Runtime().Metrics().RecordDrop(d.el.Name(), "duplicate")
		return pad.FlowOK
	}
	return d.el.PushAll(buf)
}

// key digests the configured fields, or the raw payload; callers hold mu
func (d *Dedup) key(buf *pad.Buffer) string {
	h := sha256.New()
	if len(d.fields) > 0 {
		if data, err := message.Object(buf); err == nil {
			for _, f := range d.fields {
				v, ok := message.Lookup(data, f)
				encoded, _ := json.Marshal(v)
				fmt.Fprintf(h, "%s=%t:%s\x00", f, ok, encoded)
			}
			return hex.EncodeToString(h.Sum(nil))
		}
	}
	h.Write(payload(buf))
	return hex.EncodeToString(h.Sum(nil))
}

func payload(buf *pad.Buffer) []byte {
	if buf.Data != nil || buf.Value == nil {
		return buf.Data
	}
	encoded, err := json.Marshal(buf.Value)
	if err != nil {
		return []byte(fmt.Sprint(buf.Value))
	}
	return encoded
}

// Stats returns processed and duplicate counts
func (d *Dedup) Stats() (processed, duplicates int64) {
	return d.processed.Load(), d.duplicates.Load()
}

// Remembered returns the number of keys currently held
func (d *Dedup) Remembered() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.seen == nil {
		return 0
	}
	return d.seen.Len()
}

// Destroy implements element.Instance
func (d *Dedup) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen != nil {
		d.seen.Close()
		d.seen = nil
	}
}
