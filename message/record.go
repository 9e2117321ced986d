package message

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pkg/timestamp"
)

// Record is the structured form of one buffer
type Record struct {
	ID        string          `json:"id"`
	Source    string          `json:"source"`
	Timestamp int64           `json:"timestamp"`
	Offset    uint64          `json:"offset"`
	Data      json.RawMessage `json:"data"`
	Meta      map[string]any  `json:"meta,omitempty"`
}

// FromBuffer builds a record for buf produced by the element named source
func FromBuffer(source string, buf *pad.Buffer) *Record {
	r := &Record{
		ID:        uuid.NewString(),
		Source:    source,
		Timestamp: timestamp.ToUnixMs(buf.Timestamp),
		Offset:    buf.Offset,
		Data:      payloadJSON(buf.Data),
	}
	if buf.Meta != nil && buf.Meta.Len() > 0 {
		r.Meta = buf.Meta.Map()
	}
	return r
}

// payloadJSON returns data as compact JSON when it already is JSON, and as
// a JSON string otherwise
func payloadJSON(data []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		var out bytes.Buffer
		if err := json.Compact(&out, trimmed); err == nil {
			return out.Bytes()
		}
	}
	return json.RawMessage(strconv.Quote(string(data)))
}

// Time returns the record timestamp
func (r *Record) Time() time.Time {
	return timestamp.FromUnixMs(r.Timestamp)
}

// Text returns the payload as text: string payloads unquoted, JSON
// payloads verbatim
func (r *Record) Text() string {
	var s string
	if err := json.Unmarshal(r.Data, &s); err == nil {
		return s
	}
	return string(r.Data)
}

// Hash returns a SHA256 of the source and payload. Records carrying the
// same payload from the same element hash equal.
func (r *Record) Hash() string {
	h := sha256.New()
	h.Write([]byte(r.Source))
	h.Write([]byte{0})
	h.Write(r.Data)
	return hex.EncodeToString(h.Sum(nil))
}

// Validate checks the fields every consumer relies on
func (r *Record) Validate() error {
	if r.Source == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "Record", "Validate", "source cannot be empty")
	}
	if len(r.Data) == 0 || !json.Valid(r.Data) {
		return errors.WrapInvalid(errors.ErrInvalidData, "Record", "Validate", "data must be valid JSON")
	}
	return nil
}

// Marshal returns the JSON envelope
func (r *Record) Marshal() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Record", "Marshal", fmt.Sprintf("encode record from %s", r.Source))
	}
	return data, nil
}

// Unmarshal parses a JSON envelope produced by Marshal
func Unmarshal(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.WrapInvalid(err, "Record", "Unmarshal", "decode record")
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}
