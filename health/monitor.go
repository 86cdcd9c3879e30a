package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/c360/sensorstream/metric"
)

// Monitor tracks health of multiple sensors in a thread-safe manner
type Monitor struct {
	mu       sync.RWMutex
	statuses map[string]Status
	metrics  *metric.Metrics
}

// NewMonitor creates a new health monitor. metrics may be nil.
func NewMonitor(metrics *metric.Metrics) *Monitor {
	return &Monitor{
		statuses: make(map[string]Status),
		metrics:  metrics,
	}
}

// Update updates the health status for a named sensor
func (m *Monitor) Update(name string, status Status) {
	// Ensure the status has the correct sensor name and timestamp
	status.Sensor = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}

	m.mu.Lock()
	m.statuses[name] = status
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordHealthStatus(name, status.Level())
	}
}

// UpdateHealthy is a convenience method to update a sensor as healthy
func (m *Monitor) UpdateHealthy(name, message string) {
	m.Update(name, NewHealthy(name, message))
}

// UpdateUnhealthy is a convenience method to update a sensor as unhealthy
func (m *Monitor) UpdateUnhealthy(name, message string) {
	m.Update(name, NewUnhealthy(name, message))
}

// UpdateDegraded is a convenience method to update a sensor as degraded
func (m *Monitor) UpdateDegraded(name, message string) {
	m.Update(name, NewDegraded(name, message))
}

// Check evaluates every source and records the results.
func (m *Monitor) Check(th Thresholds, sources ...Source) {
	for _, src := range sources {
		m.Update(src.Name(), th.Evaluate(src))
	}
}

// Watch runs Check every interval until ctx is done.
func (m *Monitor) Watch(ctx context.Context, interval time.Duration, th Thresholds, sources ...Source) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.Check(th, sources...)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(th, sources...)
		}
	}
}

// Get retrieves the health status for a named sensor
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status, exists := m.statuses[name]
	return status, exists
}

// GetAll returns a copy of all current health statuses
func (m *Monitor) GetAll() map[string]Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]Status, len(m.statuses))
	for name, status := range m.statuses {
		result[name] = status
	}
	return result
}

// Remove removes a sensor from monitoring
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.statuses, name)
}

// AggregateHealth returns an aggregated health status for the entire pipeline.
// Sub-statuses are ordered by sensor name.
func (m *Monitor) AggregateHealth(systemName string) Status {
	m.mu.RLock()
	subStatuses := make([]Status, 0, len(m.statuses))
	for _, status := range m.statuses {
		subStatuses = append(subStatuses, status)
	}
	m.mu.RUnlock()

	sort.Slice(subStatuses, func(i, j int) bool { return subStatuses[i].Sensor < subStatuses[j].Sensor })
	return Aggregate(systemName, subStatuses)
}

// ListSensors returns the sorted names of all monitored sensors
func (m *Monitor) ListSensors() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.statuses))
	for name := range m.statuses {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of sensors being monitored
func (m *Monitor) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.statuses)
}

// Clear removes all sensors from monitoring
func (m *Monitor) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.statuses = make(map[string]Status)
}
