// Package buffer provides the timestamp-indexed ring buffer that sits between a sensor
// acquisition goroutine and the estimation loop consuming its readings.
package buffer

import (
	"fmt"
)

const (
	// NoData is the timestamp of a slot that never received a reading.
	NoData = -99.0

	// FromStart passed as (or below) the lower bound of Raws asks for the oldest
	// retained reading without an interpolation predecessor.
	FromStart = -0.1
)

// Reading is the constraint every payload stored in a SensorBuffer satisfies.
// Timestamp is the acquisition date in seconds, Arrival the date it became available.
type Reading interface {
	Timestamp() float64
	Arrival() float64
}

// RawInfo describes one stored reading without aliasing its payload.
type RawInfo struct {
	ID        int     `json:"id"`
	Timestamp float64 `json:"timestamp"`
	Arrival   float64 `json:"arrival"`
}

// RawInfos bundles the unread readings of a sensor and the predicted next one.
type RawInfos struct {
	Available    []RawInfo `json:"available"`
	Next         RawInfo   `json:"next"`
	ProcessTime  float64   `json:"process_time"`
	IntegrateAll bool      `json:"integrate_all"`
}

// Status is returned by retrieval calls that may legitimately find nothing.
type Status int

const (
	// StatusOK means at least one unread reading was found.
	StatusOK Status = 0
	// StatusNoData means the buffer is empty but the producer is still running.
	StatusNoData Status = -1
	// StatusEndOfStream means the buffer is empty and the producer has finished.
	StatusEndOfStream Status = -2
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoData:
		return "no-data"
	case StatusEndOfStream:
		return "end-of-stream"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Mode selects what a producer experiences when the buffer is full.
type Mode int

const (
	// Live sensors cannot wait on a consumer: pushing into a full buffer is an overflow error.
	Live Mode = iota

	// Offline (replayed) sensors block the producer until a slot is freed.
	Offline
)

// String returns a human-readable representation of the mode.
func (m Mode) String() string {
	switch m {
	case Live:
		return "live"
	case Offline:
		return "offline"
	default:
		return "unknown"
	}
}

// ParseMode converts a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "live", "":
		return Live, nil
	case "offline":
		return Offline, nil
	default:
		return Live, fmt.Errorf("unknown buffer mode %q", s)
	}
}

// View is the result of a range query: slot ids in chronological order and a copy of
// each slot taken under the buffer lock.
type View[T any] struct {
	IDs  []int
	Raws []T
}

// Len returns the number of readings in the view.
func (v View[T]) Len() int {
	return len(v.IDs)
}

// Empty reports whether the view holds no reading.
func (v View[T]) Empty() bool {
	return len(v.IDs) == 0
}

// Releaser is the privileged position access handed to the collaborators that
// advance the read position directly (the estimator). Consumers that only read
// use the SensorBuffer methods.
type Releaser interface {
	// ReleaseUntil frees every slot before id and keeps id claimed.
	ReleaseUntil(id int) error

	// ReleaseThrough frees every slot up to and including id.
	ReleaseThrough(id int) error
}
