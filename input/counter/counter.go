// Package counter provides the counter_source element, a source that pushes
// increasing integers.
//
// Each buffer carries the value as an int64 in Buffer.Value and its decimal
// text in Buffer.Data. With a limit the source sends EOS after that many
// values; with a rate it is paced by a token bucket.
package counter

import (
	"context"
	"math"
	"strconv"
	"sync"

	"golang.org/x/time/rate"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/element"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/object"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/properties"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
)

// TypeID identifies the element type
const TypeID = "counter_source"

// Config holds the counter settings
type Config struct {
	Start int64   `json:"start"`
	Limit int64   `json:"limit"`
	Rate  float64 `json:"rate"`
}

// Source is the counter_source instance
type Source struct {
	el *element.Element

	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter
	next    int64
	count   int64
}

// Type returns the counter_source descriptor
func Type() *element.Type {
	return &element.Type{
		TypeID:   TypeID,
		TypeKind: object.KindSource,
		Name:     "Counter",
		New:      newSource,
		Fill:     fillDefaults,
		Props:    typeProperties,
	}
}

// Register adds counter_source to rt
func Register(rt *element.Runtime) error {
	return rt.RegisterType(Type())
}

func fillDefaults(s *settings.Data) {
	s.SetDefaultInt("start", 1)
	s.SetDefaultInt("limit", 0)
	s.SetDefaultDouble("rate", 0)
}

func typeProperties() *properties.Properties {
	props := properties.New()
	props.AddInt("start", "First value", math.MinInt32, math.MaxInt32, 1)
	props.AddInt("limit", "Values before end of stream, 0 for no limit", 0, math.MaxInt32, 1)
	props.AddFloat("rate", "Values per second, 0 for no pacing", 0, 1e6, 0.1).SetSuffix("/s")
	return props
}

func newSource(s *settings.Data, el *element.Element) (element.Instance, error) {
	var cfg Config
	if err := s.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "CounterSource", "New", "decode settings")
	}
	if _, err := el.NewPad("src", pad.DirectionSrc); err != nil {
		return nil, err
	}
	c := &Source{el: el, next: cfg.Start}
	c.apply(cfg)
	return c, nil
}

func (c *Source) apply(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	c.limiter = nil
	if cfg.Rate > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}
}

// Update applies a new limit and rate. The start value only takes effect
// at construction.
func (c *Source) Update(s *settings.Data) {
	var cfg Config
	if err := s.Decode(&cfg); err != nil {
		c.el.Logger().Warn("Ignoring invalid settings", "error", err)
		return
	}
	c.apply(cfg)
}

// Produce returns the next value, or EOS once the limit is reached
func (c *Source) Produce(ctx context.Context) (*pad.Buffer, pad.FlowReturn) {
	c.mu.Lock()
	limiter := c.limiter
	c.mu.Unlock()
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, pad.FlowFlushing
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg.Limit > 0 && c.count >= c.cfg.Limit {
		return nil, pad.FlowEOS
	}
	v := c.next
	buf := pad.NewValueBuffer(v, strconv.AppendInt(nil, v, 10))
	buf.Offset = uint64(c.count)
	c.next++
	c.count++
	return buf, pad.FlowOK
}

// Produced returns how many values were produced
func (c *Source) Produced() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Save records the position so a loaded counter resumes after it
func (c *Source) Save(s *settings.Data) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s.SetInt("next", c.next)
	s.SetInt("produced", c.count)
}

// Load restores the position written by Save
func (c *Source) Load(s *settings.Data) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.HasUserValue("next") {
		c.next = s.GetInt("next")
		c.count = s.GetInt("produced")
	}
}

// Destroy implements element.Instance
func (c *Source) Destroy() {}
