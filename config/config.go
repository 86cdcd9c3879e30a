package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/c360/sensorstream/errors"
	"github.com/c360/sensorstream/hardware"
	"github.com/c360/sensorstream/pkg/buffer"
)

// Driver kinds
const (
	KindReplay    = "replay"    // Offline driver reading a JSON-lines log
	KindSynthetic = "synthetic" // Live driver producing paced synthetic readings
)

// Config is the root of a sensor acquisition configuration file.
type Config struct {
	Log     LogConfig      `yaml:"log"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Sensors []SensorConfig `yaml:"sensors"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// SensorConfig describes one proprioceptive sensor and the driver feeding it.
type SensorConfig struct {
	Name       string   `yaml:"name"`
	Kind       string   `yaml:"kind"`       // replay or synthetic
	Capacity   int      `yaml:"capacity"`   // Ring buffer slots
	Mode       string   `yaml:"mode"`       // live or offline; replay defaults to offline
	Covariance string   `yaml:"covariance"` // none, var or full
	Quantities []string `yaml:"quantities"` // Registration order, e.g. [acc, ang_vel]

	Period              float64 `yaml:"period"`               // Expected seconds between readings
	ArrivalDelay        float64 `yaml:"arrival_delay"`        // Overestimated availability delay, seconds
	TimestampCorrection float64 `yaml:"timestamp_correction"` // Added to every hardware timestamp

	Source string `yaml:"source,omitempty"` // replay: path of the log
	Count  int    `yaml:"count,omitempty"`  // synthetic: readings to produce, 0 until stopped
	Seed   int64  `yaml:"seed,omitempty"`   // synthetic: noise seed
}

// SafeConfig provides thread-safe access to configuration
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig creates a new thread-safe config wrapper
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = &Config{}
	}
	return &SafeConfig{config: cfg}
}

// Get returns a deep copy of the current configuration
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update atomically replaces the configuration after validation
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return errors.WrapInvalid(errors.ErrMissingConfig, "SafeConfig", "Update", "nil config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg
	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}

	clone := *c
	clone.Sensors = make([]SensorConfig, len(c.Sensors))
	for i, s := range c.Sensors {
		s.Quantities = append([]string(nil), s.Quantities...)
		clone.Sensors[i] = s
	}
	return &clone
}

// Sensor returns the sensor configuration with the given name.
func (c *Config) Sensor(name string) (SensorConfig, bool) {
	for _, s := range c.Sensors {
		if s.Name == name {
			return s, true
		}
	}
	return SensorConfig{}, false
}

// Validate checks the whole configuration and fills defaults in place.
func (c *Config) Validate() error {
	c.applyDefaults()

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("Validate", "log.level %q must be debug, info, warn or error", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return invalid("Validate", "log.format %q must be text or json", c.Log.Format)
	}

	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return invalid("Validate", "metrics.port %d out of range", c.Metrics.Port)
	}

	if len(c.Sensors) == 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: at least one sensor", errors.ErrMissingConfig),
			"Config", "Validate", "sensor list")
	}

	seen := make(map[string]bool, len(c.Sensors))
	for i := range c.Sensors {
		s := &c.Sensors[i]
		if s.Name == "" {
			return invalid("Validate", "sensors[%d]: name is required", i)
		}
		if seen[s.Name] {
			return invalid("Validate", "sensor %s declared twice", s.Name)
		}
		seen[s.Name] = true

		if err := s.Validate(); err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Metrics.Port == 0 {
		c.Metrics.Port = 9090
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	for i := range c.Sensors {
		c.Sensors[i].applyDefaults()
	}
}

func (s *SensorConfig) applyDefaults() {
	if s.Capacity == 0 {
		s.Capacity = 64
	}
	if s.Mode == "" && s.Kind == KindReplay {
		s.Mode = buffer.Offline.String()
	}
	if s.Mode == "" {
		s.Mode = buffer.Live.String()
	}
	if s.Covariance == "" {
		s.Covariance = hardware.CovNone.String()
	}
}

// Validate checks one sensor configuration.
func (s *SensorConfig) Validate() error {
	s.applyDefaults()

	switch s.Kind {
	case KindReplay:
		if s.Source == "" {
			return invalid("Validate", "sensor %s: replay needs a source", s.Name)
		}
	case KindSynthetic:
		if s.Count < 0 {
			return invalid("Validate", "sensor %s: count cannot be negative", s.Name)
		}
		if s.Period <= 0 {
			return invalid("Validate", "sensor %s: synthetic sensors need a positive period", s.Name)
		}
	default:
		return invalid("Validate", "sensor %s: kind %q must be replay or synthetic", s.Name, s.Kind)
	}

	if s.Capacity < 2 {
		return invalid("Validate", "sensor %s: capacity %d, need at least 2", s.Name, s.Capacity)
	}
	if s.Period < 0 || s.ArrivalDelay < 0 {
		return invalid("Validate", "sensor %s: timing infos cannot be negative", s.Name)
	}
	if _, err := s.BufferMode(); err != nil {
		return errors.WrapInvalid(err, "SensorConfig", "Validate", "sensor "+s.Name+" mode")
	}
	if _, err := s.CovType(); err != nil {
		return errors.WrapInvalid(err, "SensorConfig", "Validate", "sensor "+s.Name+" covariance")
	}
	qs, err := s.QuantityList()
	if err != nil {
		return errors.WrapInvalid(err, "SensorConfig", "Validate", "sensor "+s.Name+" quantities")
	}
	if len(qs) == 0 {
		return invalid("Validate", "sensor %s: at least one quantity", s.Name)
	}

	return nil
}

// BufferMode parses Mode.
func (s SensorConfig) BufferMode() (buffer.Mode, error) {
	return buffer.ParseMode(s.Mode)
}

// CovType parses Covariance.
func (s SensorConfig) CovType() (hardware.CovType, error) {
	return hardware.ParseCovType(s.Covariance)
}

// QuantityList parses Quantities, rejecting duplicates.
func (s SensorConfig) QuantityList() ([]hardware.Quantity, error) {
	out := make([]hardware.Quantity, 0, len(s.Quantities))
	seen := make(map[hardware.Quantity]bool, len(s.Quantities))
	for _, name := range s.Quantities {
		q, err := hardware.ParseQuantity(name)
		if err != nil {
			return nil, err
		}
		if seen[q] {
			return nil, fmt.Errorf("quantity %s listed twice", q)
		}
		seen[q] = true
		out = append(out, q)
	}
	return out, nil
}

func invalid(method, format string, args ...any) error {
	return errors.WrapInvalid(
		fmt.Errorf("%w: "+format, append([]any{errors.ErrInvalidConfig}, args...)...),
		"Config", method, "validation")
}

// Loader reads configuration files in layers, later layers overriding earlier ones.
type Loader struct {
	layers     []string
	validation bool
}

// NewLoader creates a new configuration loader with validation enabled.
func NewLoader() *Loader {
	return &Loader{validation: true}
}

// AddLayer adds a configuration file layer
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load reads every layer in order. Fields present in a layer replace the values
// read so far; lists such as sensors are replaced as a whole.
func (l *Loader) Load() (*Config, error) {
	if len(l.layers) == 0 {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Loader", "Load", "no configuration layer")
	}

	cfg := &Config{}
	for _, path := range l.layers {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.WrapInvalid(
					fmt.Errorf("%w: %s", errors.ErrConfigNotFound, path),
					"Loader", "Load", "read layer")
			}
			return nil, errors.WrapTransient(err, "Loader", "Load", "read "+path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %s: %v", errors.ErrParsingFailed, path, err),
				"Loader", "Load", "parse YAML")
		}
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Parse decodes and validates a configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrParsingFailed, err),
			"Config", "Parse", "parse YAML")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// String renders the configuration as YAML.
func (c *Config) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("Config{sensors: %d}", len(c.Sensors))
	}
	return string(data)
}
