package task

import (
	"bytes"
	"runtime"
	"strconv"
)

// goid returns the current goroutine id, parsed from the stack header
// "goroutine 123 [running]:". It returns 0 when the header is unexpected.
func goid() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
