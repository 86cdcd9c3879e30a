// Package replay provides the offline driver that feeds a proprioceptive sensor
// from a recorded JSON-lines log.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/sensorstream/errors"
	"github.com/c360/sensorstream/hardware"
	"github.com/c360/sensorstream/metric"
	"github.com/c360/sensorstream/pkg/retry"
	"github.com/c360/sensorstream/pkg/timestamp"
)

// maxLineSize bounds one log line.
const maxLineSize = 1 << 20

// Record is one line of a replay log:
//
//	{"t": 1712.504, "arrival": 1712.506, "values": [0.1, 0.0, 9.81]}
//
// T accepts seconds, milliseconds or an RFC3339 date. Values hold the reading
// after its timestamp: data, then covariance as laid out by the sensor.
// Arrival is optional and defaults to the corrected timestamp.
type Record struct {
	T       any       `json:"t"`
	Arrival *float64  `json:"arrival,omitempty"`
	Values  []float64 `json:"values"`
}

type counters struct {
	lines   prometheus.Counter
	pushed  prometheus.Counter
	skipped prometheus.Counter
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger. The driver tags it with its component and sensor.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithRetry sets the backoff used to open the log.
func WithRetry(cfg retry.Config) Option {
	return func(d *Driver) {
		d.retry = cfg
	}
}

// WithMetrics registers the line counters and reports the sensor status.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(d *Driver) {
		d.registry = registry
	}
}

// Strict makes malformed lines stop the replay instead of being skipped.
func Strict() Option {
	return func(d *Driver) {
		d.strict = true
	}
}

// WithStopTimeout bounds how long Stop waits for the replay goroutine.
func WithStopTimeout(timeout time.Duration) Option {
	return func(d *Driver) {
		d.stopTimeout = timeout
	}
}

// Driver replays a log into a Proprio sensor. In offline mode Push blocks while the
// buffer is full, so the replay advances at the consumer's pace. The stream is
// marked ended once the log is exhausted or the driver stopped.
type Driver struct {
	sensor      *hardware.Proprio
	path        string
	logger      *slog.Logger
	retry       retry.Config
	strict      bool
	stopTimeout time.Duration
	life        *hardware.Lifecycle

	registry *metric.MetricsRegistry
	metrics  *counters

	lines   atomic.Int64
	pushed  atomic.Int64
	skipped atomic.Int64
	dropped atomic.Int64
}

var _ hardware.Driver = (*Driver)(nil)

// New creates a replay driver reading path into sensor.
func New(sensor *hardware.Proprio, path string, opts ...Option) (*Driver, error) {
	if sensor == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: nil sensor", errors.ErrInvalidConfig), "replay", "New", "sensor check")
	}
	if path == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: empty log path", errors.ErrInvalidConfig), "replay", "New", "path check")
	}

	d := &Driver{
		sensor:      sensor,
		path:        path,
		logger:      slog.Default(),
		retry:       retry.DefaultConfig(),
		stopTimeout: 5 * time.Second,
		life:        hardware.NewLifecycle(sensor.Name()),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "replay", "sensor", sensor.Name(), "driver_id", d.life.ID())

	if d.registry != nil {
		m, err := newCounters(d.registry, sensor.Name())
		if err != nil {
			return nil, err
		}
		d.metrics = m
	}

	return d, nil
}

func newCounters(registry *metric.MetricsRegistry, sensor string) (*counters, error) {
	opts := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace:   "sensorstream",
			Subsystem:   "replay",
			Name:        name,
			Help:        help,
			ConstLabels: prometheus.Labels{"sensor": sensor},
		}
	}
	m := &counters{
		lines:   prometheus.NewCounter(opts("lines_total", "Log lines read")),
		pushed:  prometheus.NewCounter(opts("readings_total", "Readings pushed into the sensor buffer")),
		skipped: prometheus.NewCounter(opts("skipped_total", "Malformed log lines skipped")),
	}

	for key, c := range map[string]prometheus.Counter{
		"replay_lines":    m.lines,
		"replay_readings": m.pushed,
		"replay_skipped":  m.skipped,
	} {
		if err := registry.RegisterCounter(sensor, key, c); err != nil {
			return nil, errors.WrapTransient(err, "replay", "New", "metrics registration")
		}
	}
	return m, nil
}

// Start opens the log, retrying transient failures, and launches the replay
// goroutine. The sensor layout is initialized if the caller has not done so.
func (d *Driver) Start(ctx context.Context) error {
	if d.life.Started() {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "replay", "Start", "lifecycle check")
	}

	f, err := retry.DoWithResult(ctx, d.retry, func() (*os.File, error) {
		f, err := os.Open(d.path)
		if err != nil && os.IsNotExist(err) {
			// the recorder may not have created it yet
			return nil, errors.WrapTransient(err, "replay", "Start", "open log")
		}
		if err != nil {
			return nil, errors.WrapInvalid(err, "replay", "Start", "open log")
		}
		return f, nil
	})
	if err != nil {
		d.recordStatus(metric.StatusFailed)
		return err
	}

	if !d.sensor.Initialized() {
		d.sensor.InitData()
	}

	d.recordStatus(metric.StatusRunning)
	if err := d.life.Go(ctx, func(ctx context.Context) error {
		defer f.Close()
		return d.run(ctx, f)
	}); err != nil {
		f.Close()
		return err
	}

	d.logger.Info("Replay started", "path", d.path, "mode", d.sensor.Mode().String())
	return nil
}

// Stop cancels the replay and waits for the goroutine.
func (d *Driver) Stop() error {
	return d.life.Stop(d.stopTimeout)
}

// Wait blocks until the replay goroutine returned.
func (d *Driver) Wait() error {
	return d.life.Wait()
}

// Done is closed once the replay goroutine returned.
func (d *Driver) Done() <-chan struct{} {
	return d.life.Done()
}

// Lines returns the number of log lines read.
func (d *Driver) Lines() int64 { return d.lines.Load() }

// Pushed returns the number of readings stored in the sensor.
func (d *Driver) Pushed() int64 { return d.pushed.Load() }

// Skipped returns the number of malformed lines ignored.
func (d *Driver) Skipped() int64 { return d.skipped.Load() }

// Dropped returns the number of readings refused by a live-mode buffer.
func (d *Driver) Dropped() int64 { return d.dropped.Load() }

func (d *Driver) run(ctx context.Context, r io.Reader) (err error) {
	defer func() {
		d.sensor.MarkEndOfStream()
		if err != nil {
			d.recordStatus(metric.StatusFailed)
			d.logger.Error("Replay failed", "error", err, "lines", d.Lines())
			return
		}
		d.recordStatus(metric.StatusFinished)
		d.logger.Info("Replay finished",
			"lines", d.Lines(), "pushed", d.Pushed(), "skipped", d.Skipped(), "dropped", d.Dropped())
	}()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	correction := d.sensor.TimestampCorrection()

	for scanner.Scan() {
		if d.life.Stopping() || ctx.Err() != nil {
			return nil
		}

		line := scanner.Bytes()
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		lineNo := d.lines.Add(1)
		d.inc(func(m *counters) prometheus.Counter { return m.lines })

		reading, perr := d.decode(line, correction)
		if perr != nil {
			if d.strict {
				return errors.WrapInvalid(fmt.Errorf("line %d: %w", lineNo, perr), "replay", "run", "decode line")
			}
			d.skipped.Add(1)
			d.inc(func(m *counters) prometheus.Counter { return m.skipped })
			d.logger.Warn("Skipping malformed line", "line", lineNo, "error", perr)
			continue
		}

		if err := d.sensor.Push(ctx, reading); err != nil {
			switch {
			case ctx.Err() != nil || errors.Is(err, errors.ErrAlreadyStopped):
				return nil
			case errors.Is(err, errors.ErrBufferOverflow):
				d.dropped.Add(1)
				continue
			case errors.Is(err, errors.ErrInvalidData):
				if d.strict {
					return errors.WrapInvalid(fmt.Errorf("line %d: %w", lineNo, err), "replay", "run", "push reading")
				}
				d.skipped.Add(1)
				d.inc(func(m *counters) prometheus.Counter { return m.skipped })
				d.logger.Warn("Skipping rejected reading", "line", lineNo, "error", err)
				continue
			default:
				return err
			}
		}
		d.pushed.Add(1)
		d.inc(func(m *counters) prometheus.Counter { return m.pushed })
	}

	if err := scanner.Err(); err != nil {
		return errors.WrapTransient(err, "replay", "run", "read log")
	}
	return nil
}

func (d *Driver) decode(line []byte, correction float64) (hardware.RawVec, error) {
	var rec Record
	if err := json.Unmarshal(line, &rec); err != nil {
		return hardware.RawVec{}, fmt.Errorf("%w: %v", errors.ErrParsingFailed, err)
	}

	stamp, err := timestamp.Parse(rec.T)
	if err != nil {
		return hardware.RawVec{}, fmt.Errorf("%w: %v", errors.ErrInvalidData, err)
	}

	reading := d.sensor.NewReading()
	if len(rec.Values) != len(reading.Data)-1 {
		return hardware.RawVec{}, fmt.Errorf("%w: %d values, sensor layout needs %d",
			errors.ErrInvalidData, len(rec.Values), len(reading.Data)-1)
	}

	reading.Data[0] = stamp + correction
	copy(reading.Data[1:], rec.Values)
	reading.ArrivalTime = reading.Data[0]
	if rec.Arrival != nil {
		reading.ArrivalTime = *rec.Arrival + correction
	}
	return reading, nil
}

func (d *Driver) inc(pick func(*counters) prometheus.Counter) {
	if d.metrics != nil {
		pick(d.metrics).Inc()
	}
}

func (d *Driver) recordStatus(status int) {
	if d.registry != nil {
		d.registry.CoreMetrics().RecordSensorStatus(d.sensor.Name(), status)
	}
}
