package health

import (
	"fmt"
	"strings"
	"time"
)

func newStatus(sensor, state, message string) Status {
	return Status{
		Sensor:    sensor,
		Healthy:   state == StateHealthy,
		Status:    state,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewHealthy creates a healthy status for sensor.
func NewHealthy(sensor, message string) Status {
	return newStatus(sensor, StateHealthy, message)
}

// NewUnhealthy creates an unhealthy status for sensor.
func NewUnhealthy(sensor, message string) Status {
	return newStatus(sensor, StateUnhealthy, message)
}

// NewDegraded creates a degraded status for sensor.
func NewDegraded(sensor, message string) Status {
	return newStatus(sensor, StateDegraded, message)
}

// Aggregate rolls sensor statuses into one under name. The worst level wins and the
// message names the sensors at that level.
func Aggregate(name string, subStatuses []Status) Status {
	if len(subStatuses) == 0 {
		return NewHealthy(name, "No sensors configured")
	}

	worst := LevelHealthy
	for _, sub := range subStatuses {
		worst = min(worst, sub.Level())
	}

	var culprits []string
	for _, sub := range subStatuses {
		if sub.Level() == worst {
			culprits = append(culprits, sub.Sensor)
		}
	}

	var status Status
	switch worst {
	case LevelHealthy:
		status = NewHealthy(name, fmt.Sprintf("%d sensors healthy", len(subStatuses)))
	case LevelDegraded:
		status = NewDegraded(name, "Degraded: "+strings.Join(culprits, ", "))
	default:
		status = NewUnhealthy(name, "Unhealthy: "+strings.Join(culprits, ", "))
	}

	status.SubStatuses = append([]Status(nil), subStatuses...)
	return status
}
