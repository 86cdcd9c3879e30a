package buffer

import (
	"github.com/c360/sensorstream/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// bufferMetrics holds Prometheus metrics for sensor buffer operations.
type bufferMetrics struct {
	writes    prometheus.Counter
	reads     prometheus.Counter
	peeks     prometheus.Counter
	ranges    prometheus.Counter
	overflows prometheus.Counter
	blocks    prometheus.Counter
	releases  prometheus.Counter
	missed    prometheus.Counter

	size        prometheus.Gauge
	utilization prometheus.Gauge
}

func newBufferCounter(prefix, name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   "sensorstream",
		Subsystem:   "buffer",
		Name:        name,
		ConstLabels: prometheus.Labels{"sensor": prefix},
		Help:        help,
	})
}

func newBufferGauge(prefix, name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   "sensorstream",
		Subsystem:   "buffer",
		Name:        name,
		ConstLabels: prometheus.Labels{"sensor": prefix},
		Help:        help,
	})
}

// newBufferMetrics creates and registers buffer metrics with the provided registry.
func newBufferMetrics(registry *metric.MetricsRegistry, prefix string) (*bufferMetrics, error) {
	m := &bufferMetrics{
		writes:      newBufferCounter(prefix, "writes_total", "Total number of readings pushed"),
		reads:       newBufferCounter(prefix, "reads_total", "Total number of readings handed out with release"),
		peeks:       newBufferCounter(prefix, "peeks_total", "Total number of readings observed without release"),
		ranges:      newBufferCounter(prefix, "ranges_total", "Total number of timestamp range queries"),
		overflows:   newBufferCounter(prefix, "overflows_total", "Total number of buffer overflow events"),
		blocks:      newBufferCounter(prefix, "blocks_total", "Total number of offline producer waits"),
		releases:    newBufferCounter(prefix, "releases_total", "Total number of read position advances"),
		missed:      newBufferCounter(prefix, "missed_total", "Readings skipped by latest-reading consumers"),
		size:        newBufferGauge(prefix, "size", "Current number of occupied slots"),
		utilization: newBufferGauge(prefix, "utilization", "Buffer utilization as a ratio (0.0 to 1.0)"),
	}

	counters := []struct {
		name    string
		counter prometheus.Counter
	}{
		{"buffer_writes", m.writes},
		{"buffer_reads", m.reads},
		{"buffer_peeks", m.peeks},
		{"buffer_ranges", m.ranges},
		{"buffer_overflows", m.overflows},
		{"buffer_blocks", m.blocks},
		{"buffer_releases", m.releases},
		{"buffer_missed", m.missed},
	}
	for _, c := range counters {
		if err := registry.RegisterCounter(prefix, c.name, c.counter); err != nil {
			return nil, err
		}
	}
	if err := registry.RegisterGauge(prefix, "buffer_size", m.size); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(prefix, "buffer_utilization", m.utilization); err != nil {
		return nil, err
	}

	return m, nil
}

// recordWrite increments the write counter and updates size/utilization.
func (m *bufferMetrics) recordWrite(size, capacity int) {
	m.writes.Inc()
	m.updateSize(size, capacity)
}

// recordRead increments the read counter.
func (m *bufferMetrics) recordRead() {
	m.reads.Inc()
}

// recordPeek increments the peek counter.
func (m *bufferMetrics) recordPeek() {
	m.peeks.Inc()
}

// recordRange increments the range query counter.
func (m *bufferMetrics) recordRange() {
	m.ranges.Inc()
}

// recordOverflow increments the overflow counter.
func (m *bufferMetrics) recordOverflow() {
	m.overflows.Inc()
}

// recordBlock increments the producer wait counter.
func (m *bufferMetrics) recordBlock() {
	m.blocks.Inc()
}

// recordRelease increments the release counter and updates size/utilization.
func (m *bufferMetrics) recordRelease(size, capacity int) {
	m.releases.Inc()
	m.updateSize(size, capacity)
}

// recordMissed adds skipped readings.
func (m *bufferMetrics) recordMissed(n int) {
	if n > 0 {
		m.missed.Add(float64(n))
	}
}

// updateSize sets the current buffer size and utilization.
func (m *bufferMetrics) updateSize(size, capacity int) {
	m.size.Set(float64(size))
	m.utilization.Set(float64(size) / float64(capacity))
}
