package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/element"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
)

func newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the registered element types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := catalogRuntime()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tKIND\tNAME")
			for _, id := range rt.Types() {
				info, _ := rt.TypeInfo(id)
				fmt.Fprintf(w, "%s\t%s\t%s\n", info.ID, info.Kind, info.DisplayName)
			}
			return w.Flush()
		},
	}
}

// Output formats of the props command
const (
	formatJSON   = "json"
	formatYAML   = "yaml"
	formatSchema = "schema"
)

func newPropsCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "props <type>",
		Short: "Describe the settings of an element type",
		Long: `Prints the property list of an element type together with its default
settings, or the JSON schema derived from the property list.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := catalogRuntime()
			if err != nil {
				return err
			}
			out, err := describeType(rt, args[0], format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", formatJSON, "Output format: json, yaml, schema")
	return cmd
}

// typeDescription is the props output for json and yaml
type typeDescription struct {
	ID         string         `json:"id" yaml:"id"`
	Kind       string         `json:"kind" yaml:"kind"`
	Name       string         `json:"name" yaml:"name"`
	Defaults   map[string]any `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	Properties any            `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// describeType renders the settings of type id in format
func describeType(rt *element.Runtime, id, format string) ([]byte, error) {
	info, ok := rt.TypeInfo(id)
	if !ok {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %q", errors.ErrUnknownType, id), "olsd", "props", "describe type")
	}
	props := rt.TypeProperties(id)

	switch format {
	case formatSchema:
		schema := map[string]any{
			"$schema": "http://json-schema.org/draft-07/schema#",
			"type":    "object",
		}
		if props != nil {
			schema = props.JSONSchema()
		}
		return marshalIndent(schema)

	case formatJSON, formatYAML:
		desc := typeDescription{
			ID:       info.ID,
			Kind:     info.Kind.String(),
			Name:     info.DisplayName,
			Defaults: rt.TypeDefaults(id).Map(),
		}
		if props != nil {
			// Round trip through JSON so YAML sees the same field names.
			raw, err := json.Marshal(props)
			if err != nil {
				return nil, errors.Wrap(err, "olsd", "props", "encode properties")
			}
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, errors.Wrap(err, "olsd", "props", "decode properties")
			}
			desc.Properties = v
		}
		if format == formatJSON {
			return marshalIndent(desc)
		}
		return yaml.Marshal(desc)

	default:
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "olsd", "props",
			fmt.Sprintf("unknown format %q (json, yaml, schema)", format))
	}
}

func marshalIndent(v any) ([]byte, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "olsd", "props", "encode output")
	}
	return append(out, '\n'), nil
}
