package health

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sensorstream/hardware"
	"github.com/c360/sensorstream/pkg/buffer"
)

func newCamera(t *testing.T, capacity, pushes int) *hardware.Extero {
	t.Helper()
	cam, err := hardware.NewExtero(capacity, buffer.WithName[*hardware.Raw]("camera"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cam.Close() })

	for i := 1; i <= pushes; i++ {
		// overflowing pushes fail and are counted
		_ = cam.Push(context.Background(), &hardware.Raw{Stamp: float64(i)})
	}
	return cam
}

func TestFromBuffer(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		pushes   int
		eos      bool
		want     string
		message  string
	}{
		{"acquiring", 10, 3, false, StateHealthy, "Acquiring"},
		{"lagging consumer", 10, 9, false, StateDegraded, "consumer lagging"},
		{"occasional overflow", 16, 17, false, StateDegraded, "lost to overflow"},
		{"sustained overflow", 4, 6, false, StateUnhealthy, "Overflow rate"},
		{"draining", 10, 9, true, StateHealthy, "9 readings left"},
		{"finished", 4, 0, true, StateHealthy, "Stream finished"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := newCamera(t, tt.capacity, tt.pushes)
			if tt.eos {
				cam.MarkEndOfStream()
			}

			got := FromBuffer(cam)
			assert.Equal(t, tt.want, got.Status)
			assert.Contains(t, got.Message, tt.message)
			assert.Equal(t, "camera", got.Sensor)
			require.NotNil(t, got.Metrics)
		})
	}
}

func TestFromBuffer_Metrics(t *testing.T) {
	cam := newCamera(t, 4, 5)

	got := FromBuffer(cam)
	assert.Equal(t, int64(4), got.Metrics.Writes)
	assert.Equal(t, int64(1), got.Metrics.Overflows)
	assert.Equal(t, int64(4), got.Metrics.Size)
	assert.InDelta(t, 1.0, got.Metrics.Utilization, 1e-9)
	assert.InDelta(t, 0.2, got.Metrics.OverflowRate, 1e-9)
}

func TestThresholds_Custom(t *testing.T) {
	cam := newCamera(t, 4, 5)

	lenient := Thresholds{MaxOverflowRate: 0.5, HighUtilization: 1.1}
	assert.True(t, lenient.Evaluate(cam).IsDegraded())

	var consumed *hardware.Raw
	require.NoError(t, cam.Raw(3, &consumed))
	assert.True(t, DefaultThresholds().Evaluate(cam).IsUnhealthy(), "overflow history stays")
}
