package health

import (
	"regexp"
	"strings"
	"time"
)

// Health states
const (
	StateHealthy   = "healthy"
	StateDegraded  = "degraded"
	StateUnhealthy = "unhealthy"
)

var (
	httpURLRegex     = regexp.MustCompile(`https?://[^\s]+`)
	natsURLRegex     = regexp.MustCompile(`nats://[^\s]+`)
	wsURLRegex       = regexp.MustCompile(`wss?://[^\s]+`)
	unixPathRegex    = regexp.MustCompile(`/[a-zA-Z0-9/_.-]+`)
	windowsPathRegex = regexp.MustCompile(`[A-Z]:\\[^:\s]+`)
	ipAddrRegex      = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	portRegex        = regexp.MustCompile(`:\d{2,5}\b`)
	credentialRegex  = regexp.MustCompile(`(?i)(password|token|key|secret|credential)[^a-zA-Z]*[:=][^,\s}]+`)
)

// Status is the health of one part of the daemon
type Status struct {
	Component   string    `json:"component"`
	Healthy     bool      `json:"healthy"`
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
	Metrics     *Metrics  `json:"metrics,omitempty"`
}

// Metrics are optional figures attached to a status
type Metrics struct {
	Uptime            time.Duration `json:"uptime"`
	ErrorCount        int           `json:"error_count"`
	MessagesProcessed int64         `json:"messages_processed,omitempty"`
	LastActivity      time.Time     `json:"last_activity,omitempty"`
}

// IsHealthy reports whether the state is healthy
func (s Status) IsHealthy() bool { return s.Status == StateHealthy }

// IsDegraded reports whether the state is degraded
func (s Status) IsDegraded() bool { return s.Status == StateDegraded }

// IsUnhealthy reports whether the state is unhealthy
func (s Status) IsUnhealthy() bool { return s.Status == StateUnhealthy }

// WithMetrics returns a copy of s carrying metrics
func (s Status) WithMetrics(metrics *Metrics) Status {
	s.Metrics = metrics
	return s
}

// WithSubStatus returns a copy of s with sub appended. The copy never
// shares its slice with s.
func (s Status) WithSubStatus(sub Status) Status {
	subs := make([]Status, len(s.SubStatuses), len(s.SubStatuses)+1)
	copy(subs, s.SubStatuses)
	s.SubStatuses = append(subs, sub)
	return s
}

// FromError returns an unhealthy status whose message is the sanitized
// error text
func FromError(component string, err error) Status {
	msg := "unknown error"
	if err != nil {
		msg = SanitizeMessage(err.Error())
	}
	return NewUnhealthy(component, msg)
}

// SanitizeMessage masks URLs, file paths, IP addresses, ports and
// credential assignments in msg
func SanitizeMessage(msg string) string {
	if msg == "" {
		return ""
	}

	// URLs go first since they contain paths.
	out := httpURLRegex.ReplaceAllString(msg, "[URL]")
	out = natsURLRegex.ReplaceAllString(out, "[URL]")
	out = wsURLRegex.ReplaceAllString(out, "[URL]")

	out = unixPathRegex.ReplaceAllString(out, "[PATH]")
	out = windowsPathRegex.ReplaceAllString(out, "[PATH]")
	out = ipAddrRegex.ReplaceAllString(out, "[IP]")
	out = portRegex.ReplaceAllString(out, "[PORT]")

	lower := strings.ToLower(out)
	for _, word := range []string{"password", "token", "key", "secret", "credential"} {
		if strings.Contains(lower, word) {
			out = credentialRegex.ReplaceAllString(out, "[REDACTED]")
			break
		}
	}
	return out
}
