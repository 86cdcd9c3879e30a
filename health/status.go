// Package health derives sensor health from buffer statistics
package health

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Health state names
const (
	StateHealthy   = "healthy"
	StateDegraded  = "degraded"
	StateUnhealthy = "unhealthy"
)

// Levels reported by the health status gauge.
const (
	LevelUnhealthy = 0
	LevelDegraded  = 1
	LevelHealthy   = 2
)

// Pre-compiled regexes for error message sanitization
var (
	urlRegex         = regexp.MustCompile(`[a-z][a-z0-9+.-]*://[^\s]+`)
	unixPathRegex    = regexp.MustCompile(`/[a-zA-Z0-9/_.-]+`)
	windowsPathRegex = regexp.MustCompile(`[A-Z]:\\[^:\s]+`)
	ipAddrRegex      = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	credentialRegex  = regexp.MustCompile(`(?i)(password|token|key|secret|credential)[^a-zA-Z]*[:=][^,\s}]+`)
)

// Status represents the health state of a sensor or of the whole pipeline
type Status struct {
	Sensor      string    `json:"sensor"`
	Healthy     bool      `json:"healthy"`
	Status      string    `json:"status"` // "healthy", "unhealthy", "degraded"
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
	Metrics     *Metrics  `json:"metrics,omitempty"`
}

// Metrics contains the buffer figures a status was derived from
type Metrics struct {
	Uptime       time.Duration `json:"uptime"`
	Writes       int64         `json:"writes"`
	Reads        int64         `json:"reads"`
	Overflows    int64         `json:"overflows"`
	Missed       int64         `json:"missed"`
	Size         int64         `json:"size"`
	Utilization  float64       `json:"utilization"`
	OverflowRate float64       `json:"overflow_rate"`
	Throughput   float64       `json:"throughput"`
}

// IsHealthy returns true if the status is healthy
func (s Status) IsHealthy() bool {
	return s.Status == StateHealthy
}

// IsDegraded returns true if the status is degraded
func (s Status) IsDegraded() bool {
	return s.Status == StateDegraded
}

// IsUnhealthy returns true if the status is unhealthy
func (s Status) IsUnhealthy() bool {
	return s.Status == StateUnhealthy
}

// Level maps the status to the gauge value: 2 healthy, 1 degraded, 0 otherwise.
func (s Status) Level() int {
	switch s.Status {
	case StateHealthy:
		return LevelHealthy
	case StateDegraded:
		return LevelDegraded
	default:
		return LevelUnhealthy
	}
}

// WithMetrics returns a copy of the status with metrics attached
func (s Status) WithMetrics(metrics *Metrics) Status {
	s.Metrics = metrics
	return s
}

// WithSubStatus adds a sub-status and returns a copy
func (s Status) WithSubStatus(subStatus Status) Status {
	newSubStatuses := make([]Status, len(s.SubStatuses), len(s.SubStatuses)+1)
	copy(newSubStatuses, s.SubStatuses)
	s.SubStatuses = append(newSubStatuses, subStatus)
	return s
}

func (s Status) String() string {
	return fmt.Sprintf("%s: %s (%s)", s.Sensor, s.Status, s.Message)
}

// sanitizeErrorMessage strips log paths, device URLs, addresses and
// credentials from driver errors before they are published.
func sanitizeErrorMessage(err string) string {
	if err == "" {
		return ""
	}

	sanitized := urlRegex.ReplaceAllString(err, "[URL]")
	sanitized = unixPathRegex.ReplaceAllString(sanitized, "[PATH]")
	sanitized = windowsPathRegex.ReplaceAllString(sanitized, "[PATH]")
	sanitized = ipAddrRegex.ReplaceAllString(sanitized, "[IP]")

	lower := strings.ToLower(sanitized)
	if strings.Contains(lower, "password") || strings.Contains(lower, "token") ||
		strings.Contains(lower, "key") || strings.Contains(lower, "secret") ||
		strings.Contains(lower, "credential") {
		sanitized = credentialRegex.ReplaceAllString(sanitized, "[REDACTED]")
	}

	return sanitized
}

// FromDriverError reports a sensor whose driver stopped with err.
// A nil error means the driver finished cleanly.
func FromDriverError(sensor string, err error) Status {
	if err == nil {
		return NewHealthy(sensor, "Driver finished")
	}
	return NewUnhealthy(sensor, "Driver failed: "+sanitizeErrorMessage(err.Error()))
}
