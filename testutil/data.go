package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// SampleLogLines are syslog-style lines used as element input.
var SampleLogLines = []string{
	`2026-01-02T15:04:05Z host-a sshd[1201]: Accepted publickey for deploy from 10.0.0.4 port 52114`,
	`2026-01-02T15:04:06Z host-a kernel: [  41.223] eth0: link up, 1000Mbps, full-duplex`,
	`2026-01-02T15:04:07Z host-b nginx[88]: 10.0.0.9 - - "GET /healthz HTTP/1.1" 200 2`,
	`2026-01-02T15:04:08Z host-b nginx[88]: 10.0.0.9 - - "POST /api/v1/events HTTP/1.1" 202 0`,
	`2026-01-02T15:04:09Z host-c app[3310]: level=warn msg="slow query" duration=1.2s`,
	`2026-01-02T15:04:10Z host-c app[3310]: level=error msg="upstream timeout" target=billing`,
}

// SampleJSONLines are structured log records, one JSON object per line.
var SampleJSONLines = []string{
	`{"level":"info","host":"host-a","msg":"started","pid":1201}`,
	`{"level":"warn","host":"host-b","msg":"disk usage high","percent":91}`,
	`{"level":"error","host":"host-c","msg":"connection refused","port":5432}`,
}

// WriteLines writes lines, newline separated, into a file under a
// temporary directory and returns its path.
func WriteLines(t *testing.T, name string, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// ReadLines returns the non-empty lines of the file at path
func ReadLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var out []string
	for _, l := range strings.Split(string(data), "\n") {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}
