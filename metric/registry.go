package metric

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/c360/sensorstream/errors"
)

// MetricsRegistrar defines the interface for registering sensor-specific metrics
type MetricsRegistrar interface {
	RegisterCounter(sensorName, metricName string, counter prometheus.Counter) error
	RegisterGauge(sensorName, metricName string, gauge prometheus.Gauge) error
	RegisterHistogram(sensorName, metricName string, histogram prometheus.Histogram) error
	Unregister(sensorName, metricName string) bool
}

// MetricsRegistry manages the registration and lifecycle of metrics
type MetricsRegistry struct {
	prometheusRegistry *prometheus.Registry
	Metrics            *Metrics
	registeredMetrics  map[string]prometheus.Collector
	mu                 sync.RWMutex
}

// NewMetricsRegistry creates a new metrics registry with core pipeline metrics
func NewMetricsRegistry() *MetricsRegistry {
	prometheusRegistry := prometheus.NewRegistry()

	registry := &MetricsRegistry{
		prometheusRegistry: prometheusRegistry,
		registeredMetrics:  make(map[string]prometheus.Collector),
	}

	registry.Metrics = NewMetrics()
	registry.registerMetrics()

	registry.prometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return registry
}

// PrometheusRegistry returns the underlying Prometheus registry
func (r *MetricsRegistry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// CoreMetrics returns the core pipeline metrics
func (r *MetricsRegistry) CoreMetrics() *Metrics {
	return r.Metrics
}

// RegisterCounter registers a counter metric for a sensor
func (r *MetricsRegistry) RegisterCounter(sensorName, metricName string, counter prometheus.Counter) error {
	return r.register("RegisterCounter", sensorName, metricName, counter)
}

// RegisterGauge registers a gauge metric for a sensor
func (r *MetricsRegistry) RegisterGauge(sensorName, metricName string, gauge prometheus.Gauge) error {
	return r.register("RegisterGauge", sensorName, metricName, gauge)
}

// RegisterHistogram registers a histogram metric for a sensor
func (r *MetricsRegistry) RegisterHistogram(sensorName, metricName string, histogram prometheus.Histogram) error {
	return r.register("RegisterHistogram", sensorName, metricName, histogram)
}

func (r *MetricsRegistry) register(method, sensorName, metricName string, collector prometheus.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", sensorName, metricName)

	if _, exists := r.registeredMetrics[key]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("metric %s already registered for sensor %s", metricName, sensorName),
			"MetricsRegistry", method, "duplicate metric registration")
	}

	if err := r.prometheusRegistry.Register(collector); err != nil {
		var alreadyRegErr prometheus.AlreadyRegisteredError
		if stderrors.As(err, &alreadyRegErr) {
			return errors.WrapInvalid(err, "MetricsRegistry", method,
				fmt.Sprintf("prometheus conflict for metric %s", metricName))
		}
		return errors.WrapFatal(err, "MetricsRegistry", method,
			"failed to register collector with prometheus")
	}

	r.registeredMetrics[key] = collector
	return nil
}

// Unregister removes a metric from the registry
func (r *MetricsRegistry) Unregister(sensorName, metricName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", sensorName, metricName)

	collector, exists := r.registeredMetrics[key]
	if !exists {
		return false
	}

	success := r.prometheusRegistry.Unregister(collector)
	if success {
		delete(r.registeredMetrics, key)
	}

	return success
}

// registerMetrics registers all core pipeline metrics
func (r *MetricsRegistry) registerMetrics() {
	r.prometheusRegistry.MustRegister(
		r.Metrics.SensorStatus,
		r.Metrics.ReadingsConsumed,
		r.Metrics.ConsumeLatency,
		r.Metrics.ErrorsTotal,
		r.Metrics.HealthCheckStatus,
	)
}
