package timestamp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
)

var (
	testTime   = time.Date(2023, 1, 15, 12, 30, 45, 123000000, time.UTC)
	testTimeMs = int64(1673785845123)
)

func TestNow(t *testing.T) {
	before := time.Now().UnixMilli()
	ts := Now()
	after := time.Now().UnixMilli()
	assert.GreaterOrEqual(t, ts, before)
	assert.LessOrEqual(t, ts, after)
}

func TestConversions(t *testing.T) {
	assert.Equal(t, testTimeMs, ToUnixMs(testTime))
	assert.Equal(t, int64(0), ToUnixMs(time.Time{}))

	assert.True(t, FromUnixMs(testTimeMs).Equal(testTime))
	assert.True(t, FromUnixMs(0).IsZero())

	assert.Equal(t, "2023-01-15T12:30:45.123Z", Format(testTimeMs))
	assert.Equal(t, "", Format(0))
}

func TestParse(t *testing.T) {
	tm := testTime
	tests := []struct {
		name  string
		input any
		want  int64
	}{
		{name: "nil", input: nil, want: 0},
		{name: "milliseconds", input: testTimeMs, want: testTimeMs},
		{name: "seconds", input: int64(1673785845), want: 1673785845000},
		{name: "int seconds", input: 1673785845, want: 1673785845000},
		{name: "float seconds", input: 1673785845.5, want: 1673785845500},
		{name: "float milliseconds", input: float64(testTimeMs), want: testTimeMs},
		{name: "rfc3339", input: "2023-01-15T12:30:45Z", want: 1673785845000},
		{name: "rfc3339 fraction", input: "2023-01-15T12:30:45.123Z", want: testTimeMs},
		{name: "numeric string", input: "1673785845123", want: testTimeMs},
		{name: "float string", input: "1673785845.123", want: testTimeMs},
		{name: "empty string", input: "", want: 0},
		{name: "garbage", input: "yesterday", want: 0},
		{name: "time", input: testTime, want: testTimeMs},
		{name: "time pointer", input: &tm, want: testTimeMs},
		{name: "nil time pointer", input: (*time.Time)(nil), want: 0},
		{name: "unsupported", input: []int{1}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.input))
		})
	}
}

func TestSince(t *testing.T) {
	assert.Equal(t, time.Duration(0), Since(0))
	assert.GreaterOrEqual(t, Since(Now()-1000), time.Second)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(0))
	require.NoError(t, Validate(testTimeMs))

	err := Validate(-1)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidData)
	assert.True(t, errors.IsInvalid(err))

	assert.Error(t, Validate(maxValid+1))
}
