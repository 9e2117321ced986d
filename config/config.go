package config

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
)

// Config represents the complete olsd configuration
type Config struct {
	Version         string         `json:"version,omitempty"`
	Log             LogConfig      `json:"log"`
	Metrics         MetricsConfig  `json:"metrics"`
	NATS            NATSConfig     `json:"nats"`
	Pipeline        PipelineConfig `json:"pipeline"`
	ShutdownTimeout Duration       `json:"shutdown_timeout"`
}

// LogConfig selects the slog level and handler
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // text, json
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port"`
	Path    string `json:"path"`
}

// NATSConfig defines the connection shared by NATS elements
type NATSConfig struct {
	URLs            []string `json:"urls,omitempty"`
	MaxReconnects   int      `json:"max_reconnects"`
	ReconnectWait   Duration `json:"reconnect_wait"`
	Username        string   `json:"username,omitempty"`
	Password        string   `json:"password,omitempty"`
	Token           string   `json:"token,omitempty"`
	CredentialsFile string   `json:"credentials,omitempty"`
}

// PipelineConfig lists element instances and their links
type PipelineConfig struct {
	Elements []ElementConfig `json:"elements,omitempty"`
	Links    []LinkConfig    `json:"links,omitempty"`
}

// ElementConfig describes one element instance
type ElementConfig struct {
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	Settings map[string]any `json:"settings,omitempty"`
	Start    *bool          `json:"start,omitempty"`
}

// Autostart reports whether the pipeline starts the element; defaults to true
func (e ElementConfig) Autostart() bool {
	return e.Start == nil || *e.Start
}

// LinkConfig connects a source endpoint to a sink endpoint
type LinkConfig struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Endpoint is a parsed link end. An empty Pad lets the element choose.
type Endpoint struct {
	Element string
	Pad     string
}

// ParseEndpoint splits "element" or "element.pad"
func ParseEndpoint(s string) (Endpoint, error) {
	s = strings.TrimSpace(s)
	name, padName, _ := strings.Cut(s, ".")
	if name == "" {
		return Endpoint{}, fmt.Errorf("%w: empty link endpoint %q", errors.ErrInvalidConfig, s)
	}
	return Endpoint{Element: name, Pad: padName}, nil
}

// String returns the "element.pad" form
func (e Endpoint) String() string {
	if e.Pad == "" {
		return e.Element
	}
	return e.Element + "." + e.Pad
}

// Default returns the configuration used when no layer sets a value
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		NATS: NATSConfig{
			URLs:          []string{"nats://localhost:4222"},
			MaxReconnects: -1,
			ReconnectWait: Duration(2 * time.Second),
		},
		ShutdownTimeout: Duration(10 * time.Second),
	}
}

// SafeConfig provides thread-safe access to configuration
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig creates a new thread-safe config wrapper
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = Default()
	}
	return &SafeConfig{config: cfg}
}

// Get returns a deep copy of the current configuration
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update atomically replaces the configuration after validation
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return errors.WrapInvalid(errors.ErrMissingConfig, "SafeConfig", "Update", "nil config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg
	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return Default()
	}

	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}
	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}
	return &clone
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

func invalid(format string, args ...any) error {
	return errors.WrapInvalid(
		fmt.Errorf("%w: "+format, append([]any{errors.ErrInvalidConfig}, args...)...),
		"Config", "Validate", "validate configuration")
}

// Validate checks the configuration and normalizes case-insensitive fields
func (c *Config) Validate() error {
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Log.Format = strings.ToLower(c.Log.Format)
	if !slices.Contains(logLevels, c.Log.Level) {
		return invalid("log.level %q must be one of %v", c.Log.Level, logLevels)
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		return invalid("log.format %q must be one of %v", c.Log.Format, logFormats)
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			return invalid("metrics.port %d out of range", c.Metrics.Port)
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return invalid("metrics.path %q must start with /", c.Metrics.Path)
		}
	}

	if c.ShutdownTimeout < 0 {
		return invalid("shutdown_timeout cannot be negative")
	}
	if c.NATS.ReconnectWait < 0 {
		return invalid("nats.reconnect_wait cannot be negative")
	}

	return c.Pipeline.validate()
}

// Validate checks element names and link endpoints
func (p *PipelineConfig) Validate() error { return p.validate() }

func (p *PipelineConfig) validate() error {
	names := make(map[string]bool, len(p.Elements))
	for i, el := range p.Elements {
		switch {
		case el.Name == "":
			return invalid("pipeline.elements[%d]: name is required", i)
		case strings.Contains(el.Name, "."):
			return invalid("pipeline.elements[%d]: name %q cannot contain '.'", i, el.Name)
		case el.Type == "":
			return invalid("pipeline.elements[%d] %q: type is required", i, el.Name)
		case names[el.Name]:
			return invalid("pipeline.elements[%d]: duplicate name %q", i, el.Name)
		}
		names[el.Name] = true
	}

	for i, link := range p.Links {
		from, err := ParseEndpoint(link.From)
		if err != nil {
			return invalid("pipeline.links[%d].from: %v", i, err)
		}
		to, err := ParseEndpoint(link.To)
		if err != nil {
			return invalid("pipeline.links[%d].to: %v", i, err)
		}
		if !names[from.Element] {
			return invalid("pipeline.links[%d]: unknown element %q", i, from.Element)
		}
		if !names[to.Element] {
			return invalid("pipeline.links[%d]: unknown element %q", i, to.Element)
		}
		if from.Element == to.Element {
			return invalid("pipeline.links[%d]: %q cannot link to itself", i, from.Element)
		}
	}
	return nil
}

// Element returns the configuration of the named element
func (c *Config) Element(name string) (ElementConfig, bool) {
	for _, el := range c.Pipeline.Elements {
		if el.Name == name {
			return el, true
		}
	}
	return ElementConfig{}, false
}

// String returns the JSON form with secrets redacted
func (c *Config) String() string {
	redacted := c.Clone()
	if redacted.NATS.Password != "" {
		redacted.NATS.Password = "***"
	}
	if redacted.NATS.Token != "" {
		redacted.NATS.Token = "***"
	}
	data, _ := json.MarshalIndent(redacted, "", "  ")
	return string(data)
}
