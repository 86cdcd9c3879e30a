package metric

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sensorstream/errors"
)

func gatheredNames(t *testing.T, registry *MetricsRegistry) map[string]bool {
	t.Helper()
	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	return names
}

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.PrometheusRegistry())
	assert.Same(t, registry.Metrics, registry.CoreMetrics())
}

func TestMetricsRegistry_RegisterCollectors(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter", Help: "A test counter"})
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_gauge", Help: "A test gauge"})
	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_histogram", Help: "A test histogram"})

	require.NoError(t, registry.RegisterCounter("imu", "test_counter", counter))
	require.NoError(t, registry.RegisterGauge("imu", "test_gauge", gauge))
	require.NoError(t, registry.RegisterHistogram("imu", "test_histogram", histogram))

	counter.Inc()
	gauge.Set(42)
	histogram.Observe(0.5)

	names := gatheredNames(t, registry)
	assert.True(t, names["test_counter"])
	assert.True(t, names["test_gauge"])
	assert.True(t, names["test_histogram"])
	assert.Equal(t, 1.0, testutil.ToFloat64(counter))
}

func TestMetricsRegistry_PreventDuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	first := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_counter", Help: "first"})
	second := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_counter", Help: "first"})

	require.NoError(t, registry.RegisterCounter("imu", "dup", first))

	err := registry.RegisterCounter("imu", "dup", second)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	// Same prometheus name under a different key is a prometheus conflict
	err = registry.RegisterCounter("gps", "dup", second)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestMetricsRegistry_UnregisterMetric(t *testing.T) {
	registry := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "unreg_gauge", Help: "gauge"})
	require.NoError(t, registry.RegisterGauge("imu", "unreg", gauge))

	assert.True(t, registry.Unregister("imu", "unreg"))
	assert.False(t, registry.Unregister("imu", "unreg"))
	assert.False(t, gatheredNames(t, registry)["unreg_gauge"])

	// Can register again after unregistering
	require.NoError(t, registry.RegisterGauge("imu", "unreg", gauge))
}

func TestMetricsRegistry_ThreadSafety(t *testing.T) {
	registry := NewMetricsRegistry()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			counter := prometheus.NewCounter(prometheus.CounterOpts{
				Name: fmt.Sprintf("concurrent_counter_%d", i),
				Help: "concurrent",
			})
			errs <- registry.RegisterCounter(fmt.Sprintf("sensor-%d", i), "counter", counter)
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestCoreMetrics_RecordMethods(t *testing.T) {
	registry := NewMetricsRegistry()
	m := registry.CoreMetrics()

	m.RecordSensorStatus("imu", StatusRunning)
	m.RecordReadingConsumed("imu", "range")
	m.RecordReadingConsumed("imu", "range")
	m.RecordConsumeLatency("imu", 20*time.Millisecond)
	m.RecordError("imu", "fatal")
	m.RecordHealthStatus("imu", 2)

	assert.Equal(t, float64(StatusRunning), testutil.ToFloat64(m.SensorStatus.WithLabelValues("imu")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReadingsConsumed.WithLabelValues("imu", "range")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("imu", "fatal")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.HealthCheckStatus.WithLabelValues("imu")))

	names := gatheredNames(t, registry)
	assert.True(t, names["sensorstream_sensor_status"])
	assert.True(t, names["sensorstream_consumer_latency_seconds"])
}

func TestServer_Handler(t *testing.T) {
	registry := NewMetricsRegistry()
	registry.CoreMetrics().RecordSensorStatus("imu", StatusRunning)

	srv := NewServer(0, "", registry)
	assert.Equal(t, "http://localhost:9090/metrics", srv.Address())

	handler, err := srv.Handler()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "sensorstream_sensor_status"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestServer_NilRegistry(t *testing.T) {
	srv := NewServer(9191, "/m", nil)
	_, err := srv.Handler()
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}
