package health

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sensorstream/metric"
)

func TestMonitor_Update(t *testing.T) {
	monitor := NewMonitor(nil)
	if monitor.Count() != 0 {
		t.Fatalf("new monitor has %d sensors", monitor.Count())
	}

	monitor.Update("imu", Status{Sensor: "wrong-name", Status: StateHealthy})

	got, ok := monitor.Get("imu")
	if !ok {
		t.Fatal("imu not tracked after update")
	}
	if got.Sensor != "imu" {
		t.Errorf("sensor = %q, want imu", got.Sensor)
	}
	if got.Timestamp.IsZero() {
		t.Error("Update should set timestamp if not provided")
	}

	monitor.UpdateDegraded("gps", "lagging")
	monitor.UpdateUnhealthy("odo", "driver failed")
	monitor.UpdateHealthy("cam", "ok")

	if names := monitor.ListSensors(); len(names) != 4 || names[0] != "cam" {
		t.Errorf("ListSensors() = %v", names)
	}

	all := monitor.GetAll()
	delete(all, "imu")
	if _, ok := monitor.Get("imu"); !ok {
		t.Error("GetAll must return a copy")
	}

	agg := monitor.AggregateHealth("pipeline")
	if !agg.IsUnhealthy() {
		t.Errorf("aggregate = %s, want unhealthy", agg.Status)
	}
	if agg.SubStatuses[0].Sensor != "cam" {
		t.Errorf("sub-statuses not sorted: %v", agg.SubStatuses[0].Sensor)
	}

	monitor.Remove("odo")
	if monitor.AggregateHealth("pipeline").IsUnhealthy() {
		t.Error("removed sensor still counted")
	}

	monitor.Clear()
	if monitor.Count() != 0 {
		t.Errorf("Count() = %d after Clear", monitor.Count())
	}
}

func TestMonitor_RecordsGauge(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	core := registry.CoreMetrics()
	monitor := NewMonitor(core)

	monitor.UpdateDegraded("imu", "lagging")
	assert.Equal(t, float64(LevelDegraded), testutil.ToFloat64(core.HealthCheckStatus.WithLabelValues("imu")))

	monitor.UpdateHealthy("imu", "ok")
	assert.Equal(t, float64(LevelHealthy), testutil.ToFloat64(core.HealthCheckStatus.WithLabelValues("imu")))
}

func TestMonitor_CheckAndWatch(t *testing.T) {
	cam := newCamera(t, 4, 5)
	monitor := NewMonitor(nil)

	monitor.Check(DefaultThresholds(), cam)
	got, ok := monitor.Get("camera")
	require.True(t, ok)
	assert.True(t, got.IsUnhealthy())

	monitor.Clear()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		monitor.Watch(ctx, 5*time.Millisecond, DefaultThresholds(), cam)
		close(done)
	}()

	require.Eventually(t, func() bool { return monitor.Count() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestMonitor_Concurrent(t *testing.T) {
	monitor := NewMonitor(nil)
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := string(rune('a' + i))
			for j := 0; j < 100; j++ {
				monitor.UpdateHealthy(name, "ok")
				monitor.Get(name)
				monitor.AggregateHealth("pipeline")
			}
		}(i)
	}
	wg.Wait()

	if monitor.Count() != 8 {
		t.Errorf("Count() = %d, want 8", monitor.Count())
	}
}
