package message

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
)

func newBuffer(data string) *pad.Buffer {
	buf := pad.NewBuffer([]byte(data))
	buf.Timestamp = time.UnixMilli(1700000000123)
	buf.Offset = 7
	return buf
}

func TestFromBuffer_TextPayload(t *testing.T) {
	buf := newBuffer("disk full on /var")
	buf.Metadata().SetString("remote_addr", "10.0.0.1:514")

	r := FromBuffer("udp", buf)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "udp", r.Source)
	assert.Equal(t, int64(1700000000123), r.Timestamp)
	assert.Equal(t, uint64(7), r.Offset)
	assert.JSONEq(t, `"disk full on /var"`, string(r.Data))
	assert.Equal(t, "disk full on /var", r.Text())
	assert.Equal(t, "10.0.0.1:514", r.Meta["remote_addr"])
	assert.True(t, r.Time().Equal(buf.Timestamp))
}

func TestFromBuffer_JSONPayload(t *testing.T) {
	r := FromBuffer("app", newBuffer(`{ "level": "error",  "code": 3 }`))
	assert.Equal(t, `{"level":"error","code":3}`, string(r.Data))
	assert.Equal(t, `{"level":"error","code":3}`, r.Text())
	assert.Nil(t, r.Meta)
}

func TestRecord_RoundTrip(t *testing.T) {
	r := FromBuffer("app", newBuffer("hello"))
	data, err := r.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, "hello", got.Text())
	assert.Equal(t, r.Hash(), got.Hash())
}

func TestRecord_Hash(t *testing.T) {
	a := FromBuffer("app", newBuffer("x"))
	b := FromBuffer("app", newBuffer("x"))
	c := FromBuffer("other", newBuffer("x"))

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a.Hash(), c.Hash())
	assert.Len(t, a.Hash(), 64)
}

func TestRecord_Validate(t *testing.T) {
	_, err := Unmarshal([]byte(`{"source":"","data":"x"}`))
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	_, err = Unmarshal([]byte(`{"source":"a"}`))
	require.Error(t, err)

	_, err = Unmarshal([]byte(`not json`))
	require.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatLines, f)

	for _, want := range Formats {
		f, err := ParseFormat(string(want))
		require.NoError(t, err)
		assert.Equal(t, want, f)
	}

	_, err = ParseFormat("csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		data   string
		want   string
	}{
		{name: "raw", format: FormatRaw, data: "a b", want: "a b"},
		{name: "lines adds newline", format: FormatLines, data: "a b", want: "a b\n"},
		{name: "lines keeps newline", format: FormatLines, data: "a b\n", want: "a b\n"},
		{name: "lines empty", format: FormatLines, data: "", want: "\n"},
		{name: "jsonl compacts json", format: FormatJSONL, data: `{ "a": 1 }`, want: "{\"a\":1}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.format, "src", newBuffer(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestEncode_JSONLWrapsText(t *testing.T) {
	got, err := Encode(FormatJSONL, "src", newBuffer("plain line"))
	require.NoError(t, err)
	require.Equal(t, byte('\n'), got[len(got)-1])

	var r Record
	require.NoError(t, json.Unmarshal(got, &r))
	assert.Equal(t, "src", r.Source)
	assert.Equal(t, "plain line", r.Text())
}

func TestEncode_DoesNotAlias(t *testing.T) {
	buf := newBuffer("abc")
	got, err := Encode(FormatRaw, "src", buf)
	require.NoError(t, err)
	buf.Data[0] = 'z'
	assert.Equal(t, "abc", string(got))
}

func TestEncode_UnknownFormat(t *testing.T) {
	_, err := Encode(Format("csv"), "src", newBuffer("x"))
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}
