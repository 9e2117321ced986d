package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
)

const (
	maxConfigSize = 10 << 20 // bytes
	maxJSONDepth  = 100
	maxEnvVarLen  = 10000
	maxPathLen    = 4096
)

// validateConfigPath accepts JSON or YAML files that do not escape the
// working directory through parent references
func validateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty config path", errors.ErrMissingConfig)
	}
	if len(path) > maxPathLen {
		return fmt.Errorf("%w: path too long: %d > %d", errors.ErrInvalidConfig, len(path), maxPathLen)
	}

	if !filepath.IsAbs(path) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("cannot resolve absolute path: %w", err)
		}
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("cannot get working directory: %w", err)
		}
		rel, err := filepath.Rel(cwd, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return fmt.Errorf("%w: %s resolves outside the working directory", errors.ErrInvalidConfig, path)
		}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return nil
	default:
		return fmt.Errorf("%w: only JSON or YAML config files allowed: %s", errors.ErrInvalidConfig, path)
	}
}

// safeReadFile reads a regular config file no larger than maxConfigSize
func safeReadFile(path string) ([]byte, error) {
	if err := validateConfigPath(path); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", errors.ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("cannot stat config file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: not a regular file: %s", errors.ErrInvalidConfig, path)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("%w: config file too large: %d bytes", errors.ErrInvalidConfig, info.Size())
	}

	return os.ReadFile(path)
}

// safeWriteFile writes with owner-only permissions
func safeWriteFile(path string, data []byte) error {
	if err := validateConfigPath(path); err != nil {
		return err
	}
	if len(data) > maxConfigSize {
		return fmt.Errorf("%w: config data too large: %d bytes", errors.ErrInvalidConfig, len(data))
	}
	return os.WriteFile(path, data, 0o600)
}

func validateEnvVar(key, value string) error {
	if len(value) > maxEnvVarLen {
		return fmt.Errorf("%w: environment variable %s too long", errors.ErrInvalidConfig, key)
	}
	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%w: null byte in environment variable %s", errors.ErrInvalidConfig, key)
	}
	return nil
}

// validateJSONDepth rejects documents nested deeper than maxJSONDepth or
// with unbalanced brackets, without decoding them
func validateJSONDepth(data []byte) error {
	depth := 0
	inString, escaped := false, false

	for _, b := range data {
		switch {
		case escaped:
			escaped = false
		case inString && b == '\\':
			escaped = true
		case b == '"':
			inString = !inString
		case inString:
		case b == '{' || b == '[':
			depth++
			if depth > maxJSONDepth {
				return fmt.Errorf("%w: nesting too deep: %d > %d", errors.ErrInvalidConfig, depth, maxJSONDepth)
			}
		case b == '}' || b == ']':
			depth--
			if depth < 0 {
				return fmt.Errorf("%w: unbalanced brackets", errors.ErrParsingFailed)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("%w: unclosed brackets (depth=%d)", errors.ErrParsingFailed, depth)
	}
	return nil
}
