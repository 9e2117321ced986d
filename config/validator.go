package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/element"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/properties"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
)

// TypeCatalog is the part of the element runtime used to validate element
// settings
type TypeCatalog interface {
	TypeInfo(id string) (element.TypeInfo, bool)
	TypeDefaults(id string) *settings.Data
	TypeProperties(id string) *properties.Properties
}

// ElementError is one failing setting of a configured element
type ElementError struct {
	Element string `json:"element"`
	properties.ValidationError
}

func (e ElementError) String() string {
	return fmt.Sprintf("%s.%s: %s", e.Element, e.Field, e.Message)
}

// SettingsData converts the element's settings into a settings container.
// Going through JSON keeps integers as integers.
func (e ElementConfig) SettingsData() (*settings.Data, error) {
	if len(e.Settings) == 0 {
		return settings.New(), nil
	}
	raw, err := json.Marshal(e.Settings)
	if err != nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrInvalidSetting, err),
			"ElementConfig", "SettingsData", "encode settings of "+e.Name)
	}
	return settings.FromJSON(string(raw))
}

// CheckElements checks every configured element against its registered
// type. Unknown types are reported as a failure on the "type" field.
func (c *Config) CheckElements(catalog TypeCatalog) ([]ElementError, error) {
	var out []ElementError
	for _, el := range c.Pipeline.Elements {
		if _, ok := catalog.TypeInfo(el.Type); !ok {
			out = append(out, ElementError{
				Element: el.Name,
				ValidationError: properties.ValidationError{
					Field:   "type",
					Message: fmt.Sprintf("unknown element type %q", el.Type),
					Code:    "unknown_type",
				},
			})
			continue
		}

		props := catalog.TypeProperties(el.Type)
		if props == nil {
			continue
		}
		user, err := el.SettingsData()
		if err != nil {
			return nil, err
		}
		merged := catalog.TypeDefaults(el.Type)
		merged.Apply(user)

		failures, err := props.Check(merged)
		if err != nil {
			return nil, errors.Wrap(err, "Config", "CheckElements", "check "+el.Name)
		}
		for _, f := range failures {
			out = append(out, ElementError{Element: el.Name, ValidationError: f})
		}
	}
	return out, nil
}

// ValidateElements is CheckElements reduced to a single error wrapping
// ErrInvalidSetting
func (c *Config) ValidateElements(catalog TypeCatalog) error {
	failures, err := c.CheckElements(catalog)
	if err != nil {
		return err
	}
	if len(failures) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(failures))
	for _, f := range failures {
		msgs = append(msgs, f.String())
	}
	return errors.WrapInvalid(
		fmt.Errorf("%w: %s", errors.ErrInvalidSetting, strings.Join(msgs, "; ")),
		"Config", "ValidateElements", "validate element settings")
}
