package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
)

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
	getenv     func(string) string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		envPrefix: "OLS",
		getenv:    os.Getenv,
	}
}

// AddLayer adds a configuration file layer
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load loads and merges all configuration layers
func (l *Loader) Load() (*Config, error) {
	merged, err := toMap(Default())
	if err != nil {
		return nil, errors.WrapFatal(err, "Loader", "Load", "encode defaults")
	}

	for _, path := range l.layers {
		raw, err := l.loadRaw(path)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", fmt.Sprintf("load %s", path))
		}
		merged = deepMergeMaps(merged, raw)
	}

	cfg, err := fromMap(merged)
	if err != nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrParsingFailed, err),
			"Loader", "Load", "decode configuration")
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// loadRaw reads a JSON or YAML layer into a generic map
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %w", errors.ErrParsingFailed, err)
		}
		// Round-trip through JSON so YAML values share the JSON types and
		// pass the same depth check.
		normalized, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errors.ErrParsingFailed, err)
		}
		data = normalized
		raw = nil
	}

	if err := validateJSONDepth(data); err != nil {
		return nil, fmt.Errorf("invalid structure: %w", err)
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrParsingFailed, err)
	}
	return raw, nil
}

func toMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func fromMap(m map[string]any) (*Config, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

// applyEnvOverrides applies OLS_* environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	env := func(key string) (string, error) {
		name := l.envPrefix + "_" + key
		val := l.getenv(name)
		if err := validateEnvVar(name, val); err != nil {
			return "", errors.WrapInvalid(err, "Loader", "applyEnvOverrides", "read "+name)
		}
		return val, nil
	}
	bad := func(key, val string, err error) error {
		return errors.WrapInvalid(fmt.Errorf("%w: %s_%s=%q: %w", errors.ErrInvalidConfig, l.envPrefix, key, val, err),
			"Loader", "applyEnvOverrides", "parse environment override")
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"LOG_LEVEL", &cfg.Log.Level},
		{"LOG_FORMAT", &cfg.Log.Format},
		{"METRICS_PATH", &cfg.Metrics.Path},
		{"NATS_USERNAME", &cfg.NATS.Username},
		{"NATS_PASSWORD", &cfg.NATS.Password},
		{"NATS_TOKEN", &cfg.NATS.Token},
		{"NATS_CREDENTIALS", &cfg.NATS.CredentialsFile},
	}
	for _, s := range strs {
		val, err := env(s.key)
		if err != nil {
			return err
		}
		if val != "" {
			*s.dst = val
		}
	}

	if val, err := env("NATS_URLS"); err != nil {
		return err
	} else if val != "" {
		cfg.NATS.URLs = strings.Split(val, ",")
	}

	if val, err := env("METRICS_ENABLED"); err != nil {
		return err
	} else if val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return bad("METRICS_ENABLED", val, err)
		}
		cfg.Metrics.Enabled = enabled
	}

	if val, err := env("METRICS_PORT"); err != nil {
		return err
	} else if val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return bad("METRICS_PORT", val, err)
		}
		cfg.Metrics.Port = port
	}

	if val, err := env("SHUTDOWN_TIMEOUT"); err != nil {
		return err
	} else if val != "" {
		d, err := parseDurationWithDays(val)
		if err != nil {
			return bad("SHUTDOWN_TIMEOUT", val, err)
		}
		cfg.ShutdownTimeout = Duration(d)
	}
	return nil
}

// SaveToFile writes the configuration as JSON, or YAML for .yaml/.yml paths
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var m map[string]any
		if m, err = toMap(c); err == nil {
			data, err = yaml.Marshal(m)
		}
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return errors.Wrap(err, "Config", "SaveToFile", "encode configuration")
	}
	return safeWriteFile(path, data)
}
