package properties

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
)

// ValidationError is one field that failed schema validation
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// JSONSchema exports the list as a draft-07 object schema. Group contents
// are flattened since settings are stored flat; buttons carry no value and
// are skipped.
func (ps *Properties) JSONSchema() map[string]any {
	props := map[string]any{}
	ps.collectSchema(props)
	return map[string]any{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"type":                 "object",
		"properties":           props,
		"additionalProperties": true,
	}
}

func (ps *Properties) collectSchema(out map[string]any) {
	for _, p := range ps.All() {
		if p.typ == TypeGroup {
			if p.groupType == GroupCheckable {
				out[p.name] = describe(p, map[string]any{"type": "boolean"})
			}
			if p.groupContent != nil {
				p.groupContent.collectSchema(out)
			}
			continue
		}
		if s := p.schema(); s != nil {
			out[p.name] = describe(p, s)
		}
	}
}

func describe(p *Property, s map[string]any) map[string]any {
	if p.description != "" {
		s["title"] = p.description
	}
	if p.longDesc != "" {
		s["description"] = p.longDesc
	}
	return s
}

func (p *Property) schema() map[string]any {
	switch p.typ {
	case TypeBool:
		return map[string]any{"type": "boolean"}
	case TypeInt:
		s := map[string]any{"type": "integer"}
		if p.min < p.max {
			s["minimum"] = int64(p.min)
			s["maximum"] = int64(p.max)
		}
		return s
	case TypeFloat:
		s := map[string]any{"type": "number"}
		if p.min < p.max {
			s["minimum"] = p.min
			s["maximum"] = p.max
		}
		return s
	case TypeText, TypePath:
		return map[string]any{"type": "string"}
	case TypeColor, TypeColorAlpha:
		return map[string]any{"type": "integer", "minimum": 0, "maximum": int64(0xFFFFFFFF)}
	case TypeFont:
		return map[string]any{
			"type": "object",
			"properties": map[string]any{
				"face":  map[string]any{"type": "string"},
				"style": map[string]any{"type": "string"},
				"size":  map[string]any{"type": "integer", "minimum": 0},
				"flags": map[string]any{"type": "integer", "minimum": 0},
			},
		}
	case TypeEditableList:
		return map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"value":  map[string]any{"type": "string"},
					"hidden": map[string]any{"type": "boolean"},
				},
			},
		}
	case TypeList:
		return p.listSchema()
	}
	return nil
}

func (p *Property) listSchema() map[string]any {
	var typ string
	switch p.comboFormat {
	case ComboFormatInt:
		typ = "integer"
	case ComboFormatFloat:
		typ = "number"
	case ComboFormatBool:
		typ = "boolean"
	default:
		typ = "string"
	}
	s := map[string]any{"type": typ}
	// editable combos accept values outside the item list
	if p.comboType == ComboEditable || len(p.items) == 0 {
		return s
	}
	enum := make([]any, 0, len(p.items))
	for _, it := range p.items {
		enum = append(enum, it.Value)
	}
	s["enum"] = enum
	return s
}

// Check validates s against the exported schema and returns every failing
// field. An empty result means s is valid.
func (ps *Properties) Check(s *settings.Data) ([]ValidationError, error) {
	if s == nil {
		s = settings.New()
	}
	schemaLoader := gojsonschema.NewGoLoader(ps.JSONSchema())
	docLoader := gojsonschema.NewGoLoader(s.Map())

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, errors.Wrap(err, "Properties", "Check", "schema validation")
	}
	if result.Valid() {
		return nil, nil
	}

	out := make([]ValidationError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		out = append(out, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    desc.Type(),
		})
	}
	return out, nil
}

// Validate returns an error wrapping ErrInvalidSetting when s does not
// satisfy the property schema
func (ps *Properties) Validate(s *settings.Data) error {
	failures, err := ps.Check(s)
	if err != nil {
		return err
	}
	if len(failures) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(failures))
	for _, f := range failures {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return errors.WrapInvalid(
		fmt.Errorf("%w: %s", errors.ErrInvalidSetting, strings.Join(msgs, "; ")),
		"Properties", "Validate", "settings validation")
}
