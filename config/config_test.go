package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sensorstream/errors"
	"github.com/c360/sensorstream/hardware"
	"github.com/c360/sensorstream/pkg/buffer"
)

const sampleYAML = `
log:
  level: debug
  format: json
metrics:
  enabled: true
sensors:
  - name: imu
    kind: synthetic
    capacity: 128
    quantities: [acc, ang_vel]
    period: 0.01
    arrival_delay: 0.002
    seed: 7
  - name: odometry
    kind: replay
    source: logs/odo.jsonl
    covariance: var
    quantities: [pos, ori_quat]
    timestamp_correction: -0.05
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	require.Len(t, cfg.Sensors, 2)

	imu := cfg.Sensors[0]
	assert.Equal(t, 128, imu.Capacity)
	assert.Equal(t, "live", imu.Mode)
	mode, err := imu.BufferMode()
	require.NoError(t, err)
	assert.Equal(t, buffer.Live, mode)
	qs, err := imu.QuantityList()
	require.NoError(t, err)
	assert.Equal(t, []hardware.Quantity{hardware.QAcc, hardware.QAngVel}, qs)

	odo, ok := cfg.Sensor("odometry")
	require.True(t, ok)
	assert.Equal(t, 64, odo.Capacity)
	assert.Equal(t, "offline", odo.Mode)
	assert.Equal(t, -0.05, odo.TimestampCorrection)
	cov, err := odo.CovType()
	require.NoError(t, err)
	assert.Equal(t, hardware.CovVar, cov)

	_, ok = cfg.Sensor("lidar")
	assert.False(t, ok)
}

func TestValidate_Errors(t *testing.T) {
	base := func() *Config {
		return &Config{Sensors: []SensorConfig{{
			Name:       "imu",
			Kind:       KindSynthetic,
			Period:     0.01,
			Quantities: []string{"acc"},
		}}}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no sensors", func(c *Config) { c.Sensors = nil }},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"bad metrics port", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Port = 70000 }},
		{"missing name", func(c *Config) { c.Sensors[0].Name = "" }},
		{"duplicate name", func(c *Config) { c.Sensors = append(c.Sensors, c.Sensors[0]) }},
		{"unknown kind", func(c *Config) { c.Sensors[0].Kind = "serial" }},
		{"replay without source", func(c *Config) { c.Sensors[0].Kind = KindReplay }},
		{"synthetic without period", func(c *Config) { c.Sensors[0].Period = 0 }},
		{"negative count", func(c *Config) { c.Sensors[0].Count = -1 }},
		{"capacity one", func(c *Config) { c.Sensors[0].Capacity = 1 }},
		{"negative delay", func(c *Config) { c.Sensors[0].ArrivalDelay = -1 }},
		{"bad mode", func(c *Config) { c.Sensors[0].Mode = "realtime" }},
		{"bad covariance", func(c *Config) { c.Sensors[0].Covariance = "diag" }},
		{"unknown quantity", func(c *Config) { c.Sensors[0].Quantities = []string{"temperature"} }},
		{"repeated quantity", func(c *Config) { c.Sensors[0].Quantities = []string{"acc", "acc"} }},
		{"no quantity", func(c *Config) { c.Sensors[0].Quantities = nil }},
	}

	require.NoError(t, base().Validate())

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := base()
			test.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err), "got %v", err)
		})
	}
}

func TestLoader_Layers(t *testing.T) {
	dir := t.TempDir()
	basePath := writeFile(t, dir, "base.yaml", sampleYAML)
	overlay := writeFile(t, dir, "prod.yaml", `
log:
  level: warn
metrics:
  port: 9100
`)

	l := NewLoader()
	l.AddLayer(basePath)
	l.AddLayer(overlay)
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format, "kept from the base layer")
	assert.Equal(t, 9100, cfg.Metrics.Port)
	assert.Len(t, cfg.Sensors, 2)
}

func TestLoader_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewLoader().Load()
	assert.True(t, errors.Is(err, errors.ErrMissingConfig))

	_, err = NewLoader().LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.Is(err, errors.ErrConfigNotFound))

	broken := writeFile(t, dir, "broken.yaml", "sensors: [\n")
	_, err = NewLoader().LoadFile(broken)
	assert.True(t, errors.Is(err, errors.ErrParsingFailed))

	empty := writeFile(t, dir, "empty.yaml", "log:\n  level: info\n")
	_, err = NewLoader().LoadFile(empty)
	assert.True(t, errors.IsInvalid(err))

	l := NewLoader()
	l.EnableValidation(false)
	cfg, err := l.LoadFile(empty)
	require.NoError(t, err)
	assert.Empty(t, cfg.Sensors)
}

func TestSafeConfig(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	sc := NewSafeConfig(cfg)
	got := sc.Get()
	got.Sensors[0].Quantities[0] = "mag"
	assert.Equal(t, "acc", sc.Get().Sensors[0].Quantities[0], "Get returns a deep copy")

	assert.True(t, errors.Is(sc.Update(nil), errors.ErrMissingConfig))
	assert.Error(t, sc.Update(&Config{}))

	next := cfg.Clone()
	next.Log.Level = "error"
	require.NoError(t, sc.Update(next))
	assert.Equal(t, "error", sc.Get().Log.Level)
}

func TestConfig_String(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	again, err := Parse([]byte(cfg.String()))
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}
