// Package timestamp converts between time.Time and Unix milliseconds, the
// timestamp form used in encoded records.
//
// A value of 0 means "not set": conversions map it to the zero time.Time
// and back.
//
//	ms := timestamp.ToUnixMs(buf.Timestamp)
//	t := timestamp.FromUnixMs(ms)
//	ms = timestamp.Parse("2023-01-01T12:00:00Z")
package timestamp

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
)

// secondsCutoff separates second from millisecond inputs (2001-09-09 in
// seconds)
const secondsCutoff = 1e12

// maxValid is 3000-01-01 in milliseconds
const maxValid = 32503680000000

// Now returns the current time as Unix milliseconds
func Now() int64 {
	return time.Now().UnixMilli()
}

// ToUnixMs converts t to Unix milliseconds; the zero time yields 0
func ToUnixMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// FromUnixMs converts Unix milliseconds to a time; 0 yields the zero time
func FromUnixMs(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Format renders ms as RFC3339 in UTC, or "" for 0
func Format(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}

// Parse converts numbers, numeric strings, RFC3339 strings and times to
// Unix milliseconds. Numbers below 1e12 are taken as seconds. Anything
// else yields 0.
func Parse(input any) int64 {
	switch v := input.(type) {
	case nil:
		return 0
	case int64:
		if v < secondsCutoff {
			return v * 1000
		}
		return v
	case int:
		return Parse(int64(v))
	case int32:
		return Parse(int64(v))
	case float64:
		if v < secondsCutoff {
			return int64(math.Round(v * 1000))
		}
		return int64(math.Round(v))
	case string:
		if v == "" {
			return 0
		}
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return ToUnixMs(t)
		}
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return Parse(n)
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return Parse(f)
		}
		return 0
	case time.Time:
		return ToUnixMs(v)
	case *time.Time:
		if v == nil {
			return 0
		}
		return ToUnixMs(*v)
	default:
		return 0
	}
}

// Since returns the time elapsed since ms, or 0 for an unset timestamp
func Since(ms int64) time.Duration {
	if ms == 0 {
		return 0
	}
	return time.Since(time.UnixMilli(ms))
}

// Validate rejects negative timestamps and ones past the year 3000
func Validate(ms int64) error {
	if ms < 0 {
		return errors.WrapInvalid(fmt.Errorf("%w: negative timestamp %d", errors.ErrInvalidData, ms),
			"timestamp", "Validate", "validate timestamp")
	}
	if ms > maxValid {
		return errors.WrapInvalid(fmt.Errorf("%w: timestamp %d too far in the future", errors.ErrInvalidData, ms),
			"timestamp", "Validate", "validate timestamp")
	}
	return nil
}
