package message

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
)

// Format selects how a buffer is rendered by an output
type Format string

// Output formats
const (
	FormatRaw    Format = "raw"
	FormatLines  Format = "lines"
	FormatJSONL  Format = "jsonl"
	FormatRecord Format = "record"
)

// Formats lists the valid formats in display order
var Formats = []Format{FormatRaw, FormatLines, FormatJSONL, FormatRecord}

// ParseFormat validates s. An empty string selects FormatLines.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatLines, nil
	}
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", errors.WrapInvalid(fmt.Errorf("%w: format %q", errors.ErrInvalidConfig, s),
		"Format", "ParseFormat", "parse output format")
}

// Encode renders buf in format f. The result never aliases buf.Data, so it
// stays valid after buf is released.
func Encode(f Format, source string, buf *pad.Buffer) ([]byte, error) {
	switch f {
	case FormatRaw:
		return bytes.Clone(buf.Data), nil
	case FormatLines:
		out := make([]byte, 0, len(buf.Data)+1)
		out = append(out, buf.Data...)
		if len(out) == 0 || out[len(out)-1] != '\n' {
			out = append(out, '\n')
		}
		return out, nil
	case FormatJSONL:
		trimmed := bytes.TrimSpace(buf.Data)
		if len(trimmed) > 0 && json.Valid(trimmed) {
			var out bytes.Buffer
			if err := json.Compact(&out, trimmed); err == nil {
				out.WriteByte('\n')
				return out.Bytes(), nil
			}
		}
		data, err := FromBuffer(source, buf).Marshal()
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatRecord:
		return FromBuffer(source, buf).Marshal()
	default:
		return nil, errors.WrapInvalid(fmt.Errorf("%w: format %q", errors.ErrInvalidConfig, f),
			"Format", "Encode", "encode buffer")
	}
}
