package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sensor status values reported by SensorStatus.
const (
	StatusStopped  = 0
	StatusRunning  = 1
	StatusFinished = 2
	StatusFailed   = 3
)

// Metrics contains the pipeline-level metrics shared by all sensors
type Metrics struct {
	SensorStatus      *prometheus.GaugeVec
	ReadingsConsumed  *prometheus.CounterVec
	ConsumeLatency    *prometheus.HistogramVec
	ErrorsTotal       *prometheus.CounterVec
	HealthCheckStatus *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with all pipeline metrics
func NewMetrics() *Metrics {
	return &Metrics{
		SensorStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "sensorstream",
				Subsystem: "sensor",
				Name:      "status",
				Help:      "Sensor status (0=stopped, 1=running, 2=finished, 3=failed)",
			},
			[]string{"sensor"},
		),

		ReadingsConsumed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sensorstream",
				Subsystem: "consumer",
				Name:      "readings_total",
				Help:      "Total number of readings handed to consumers",
			},
			[]string{"sensor", "mode"},
		),

		ConsumeLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sensorstream",
				Subsystem: "consumer",
				Name:      "latency_seconds",
				Help:      "Delay between reading timestamp and consumption",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"sensor"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sensorstream",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"sensor", "class"},
		),

		HealthCheckStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "sensorstream",
				Subsystem: "health",
				Name:      "status",
				Help:      "Health check status (0=unhealthy, 1=degraded, 2=healthy)",
			},
			[]string{"sensor"},
		),
	}
}

// RecordSensorStatus updates the sensor status metric
func (c *Metrics) RecordSensorStatus(sensor string, status int) {
	c.SensorStatus.WithLabelValues(sensor).Set(float64(status))
}

// RecordReadingConsumed increments the consumed reading counter.
// mode is "range", "next" or "latest".
func (c *Metrics) RecordReadingConsumed(sensor, mode string) {
	c.ReadingsConsumed.WithLabelValues(sensor, mode).Inc()
}

// RecordConsumeLatency records how old a reading was when it was consumed
func (c *Metrics) RecordConsumeLatency(sensor string, latency time.Duration) {
	c.ConsumeLatency.WithLabelValues(sensor).Observe(latency.Seconds())
}

// RecordError increments the error counter
func (c *Metrics) RecordError(sensor, class string) {
	c.ErrorsTotal.WithLabelValues(sensor, class).Inc()
}

// RecordHealthStatus updates the health check status
func (c *Metrics) RecordHealthStatus(sensor string, level int) {
	c.HealthCheckStatus.WithLabelValues(sensor).Set(float64(level))
}
