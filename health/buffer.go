package health

import (
	"fmt"

	"github.com/c360/sensorstream/pkg/buffer"
)

// Source is the part of a sensor buffer health checks read.
// *buffer.SensorBuffer and the hardware wrappers satisfy it.
type Source interface {
	Name() string
	Capacity() int
	Size() int
	EndOfStream() bool
	Stats() *buffer.Statistics
}

// Thresholds tune the buffer health rules.
type Thresholds struct {
	// MaxOverflowRate above which the sensor is unhealthy. Any overflow below it degrades.
	MaxOverflowRate float64
	// HighUtilization at or above which the consumer is considered lagging.
	HighUtilization float64
}

// DefaultThresholds returns the thresholds used by FromBuffer.
func DefaultThresholds() Thresholds {
	return Thresholds{MaxOverflowRate: 0.1, HighUtilization: 0.9}
}

// FromBuffer derives a status from the buffer statistics with DefaultThresholds.
func FromBuffer(src Source) Status {
	return DefaultThresholds().Evaluate(src)
}

// Evaluate derives a status from the buffer statistics.
//
// Rules, first match wins:
//   - overflow rate above MaxOverflowRate: unhealthy
//   - any overflow: degraded
//   - utilization at or above HighUtilization before end of stream: degraded
//   - end of stream: healthy, finished or draining
//   - otherwise healthy
func (th Thresholds) Evaluate(src Source) Status {
	name := src.Name()
	stats := src.Stats()
	capacity := src.Capacity()
	size := src.Size()

	m := &Metrics{
		Uptime:       stats.Uptime(),
		Writes:       stats.Writes(),
		Reads:        stats.Reads(),
		Overflows:    stats.Overflows(),
		Missed:       stats.MissedReadings(),
		Size:         int64(size),
		Utilization:  float64(size) / float64(capacity),
		OverflowRate: stats.OverflowRate(),
		Throughput:   stats.Throughput(),
	}

	var status Status
	switch {
	case m.OverflowRate > th.MaxOverflowRate:
		status = NewUnhealthy(name, fmt.Sprintf("Overflow rate %.1f%%, consumer cannot keep up", m.OverflowRate*100))
	case m.Overflows > 0:
		status = NewDegraded(name, fmt.Sprintf("%d readings lost to overflow", m.Overflows))
	case !src.EndOfStream() && m.Utilization >= th.HighUtilization:
		status = NewDegraded(name, fmt.Sprintf("Buffer %d/%d full, consumer lagging", size, capacity))
	case src.EndOfStream() && size == 0:
		status = NewHealthy(name, "Stream finished")
	case src.EndOfStream():
		status = NewHealthy(name, fmt.Sprintf("Stream ended, %d readings left", size))
	default:
		status = NewHealthy(name, "Acquiring")
	}

	return status.WithMetrics(m)
}
