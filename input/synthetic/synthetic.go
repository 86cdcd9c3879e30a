// Package synthetic provides a live driver producing paced, reproducible readings,
// for exercising a pipeline without hardware.
package synthetic

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/sensorstream/errors"
	"github.com/c360/sensorstream/hardware"
	"github.com/c360/sensorstream/metric"
	"github.com/c360/sensorstream/pkg/timestamp"
)

// Clock returns the current date in seconds.
type Clock func() float64

// Config describes the produced stream.
type Config struct {
	Period float64 // Seconds between readings, must be positive
	Count  int     // Readings to produce; 0 runs until stopped
	Seed   int64   // Noise seed
	Noise  float64 // Standard deviation of the additive noise
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithClock replaces the wall clock used to date readings.
func WithClock(clock Clock) Option {
	return func(d *Driver) {
		if clock != nil {
			d.clock = clock
		}
	}
}

// WithMetrics reports the sensor status to the pipeline metrics.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(d *Driver) {
		d.registry = registry
	}
}

// Unpaced disables the rate limiter; readings are produced as fast as they are pushed.
func Unpaced() Option {
	return func(d *Driver) {
		d.unpaced = true
	}
}

// Driver produces one reading per period into a Proprio sensor. Each registered
// quantity follows a slow sinusoid plus seeded gaussian noise; orientation
// quaternions are kept unit-norm. Covariances hold the noise variance.
//
// With a live-mode buffer a full buffer drops the reading and the driver goes on,
// the buffer counting the overflow.
type Driver struct {
	sensor   *hardware.Proprio
	cfg      Config
	clock    Clock
	logger   *slog.Logger
	registry *metric.MetricsRegistry
	unpaced  bool
	limiter  *rate.Limiter
	rng      *rand.Rand
	life     *hardware.Lifecycle

	produced atomic.Int64
	dropped  atomic.Int64
}

var _ hardware.Driver = (*Driver)(nil)

// New creates a synthetic driver for sensor.
func New(sensor *hardware.Proprio, cfg Config, opts ...Option) (*Driver, error) {
	if sensor == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: nil sensor", errors.ErrInvalidConfig), "synthetic", "New", "sensor check")
	}
	if cfg.Period <= 0 || math.IsInf(cfg.Period, 0) || math.IsNaN(cfg.Period) {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: period %v", errors.ErrInvalidConfig, cfg.Period), "synthetic", "New", "period check")
	}
	if cfg.Count < 0 || cfg.Noise < 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: negative count or noise", errors.ErrInvalidConfig), "synthetic", "New", "config check")
	}

	d := &Driver{
		sensor: sensor,
		cfg:    cfg,
		clock:  timestamp.Now,
		logger: slog.Default(),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		life:   hardware.NewLifecycle(sensor.Name()),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.limiter = rate.NewLimiter(rate.Every(timestamp.Duration(cfg.Period)), 1)
	d.logger = d.logger.With("component", "synthetic", "sensor", sensor.Name(), "driver_id", d.life.ID())

	return d, nil
}

// Start declares the timing infos, initializes the layout if needed and launches
// the production goroutine.
func (d *Driver) Start(ctx context.Context) error {
	_, delay := d.sensor.TimingInfos()
	d.sensor.SetTimingInfos(d.cfg.Period, delay)
	if !d.sensor.Initialized() {
		d.sensor.InitData()
	}

	if d.life.Started() {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "synthetic", "Start", "lifecycle check")
	}
	d.recordStatus(metric.StatusRunning)
	if err := d.life.Go(ctx, d.run); err != nil {
		return err
	}
	d.logger.Info("Synthetic sensor started", "period", d.cfg.Period, "count", d.cfg.Count)
	return nil
}

// Stop ends production and waits for the goroutine.
func (d *Driver) Stop() error {
	return d.life.Stop(5 * time.Second)
}

// Wait blocks until production ended.
func (d *Driver) Wait() error {
	return d.life.Wait()
}

// Produced returns the number of readings stored in the sensor.
func (d *Driver) Produced() int64 { return d.produced.Load() }

// Dropped returns the number of readings refused by a full live buffer.
func (d *Driver) Dropped() int64 { return d.dropped.Load() }

func (d *Driver) run(ctx context.Context) (err error) {
	defer func() {
		d.sensor.MarkEndOfStream()
		if err != nil {
			d.recordStatus(metric.StatusFailed)
			d.logger.Error("Synthetic sensor failed", "error", err)
			return
		}
		d.recordStatus(metric.StatusFinished)
		d.logger.Info("Synthetic sensor finished", "produced", d.Produced(), "dropped", d.Dropped())
	}()

	_, delay := d.sensor.TimingInfos()
	correction := d.sensor.TimestampCorrection()

	for i := 0; d.cfg.Count == 0 || i < d.cfg.Count; i++ {
		if !d.unpaced {
			if err := d.limiter.Wait(ctx); err != nil {
				return nil
			}
		}
		if d.life.Stopping() || ctx.Err() != nil {
			return nil
		}

		now := d.clock()
		reading := d.sensor.NewReading()
		reading.Data[0] = now + correction
		reading.ArrivalTime = now + delay
		d.fill(reading.Data, now)

		if err := d.sensor.Push(ctx, reading); err != nil {
			switch {
			case ctx.Err() != nil || errors.Is(err, errors.ErrAlreadyStopped):
				return nil
			case errors.Is(err, errors.ErrBufferOverflow), errors.Is(err, errors.ErrInvalidData):
				// full buffer, or the wall clock stepped back
				d.dropped.Add(1)
				continue
			default:
				return err
			}
		}
		d.produced.Add(1)
	}
	return nil
}

// fill writes the value part and then the covariance part of a reading.
func (d *Driver) fill(data []float64, t float64) {
	for q := hardware.QPos; q.Valid(); q++ {
		off := d.sensor.Quantity(q)
		if off < 0 {
			continue
		}
		values := data[off : off+hardware.QuantityDataSizes[q]]
		if q == hardware.QOriQuat {
			d.quaternion(values, t)
			continue
		}
		for i := range values {
			phase := float64(int(q)*3 + i)
			values[i] = math.Sin(0.5*t+phase) + d.cfg.Noise*d.rng.NormFloat64()
		}
	}

	n := d.sensor.DataSize()
	variance := d.cfg.Noise * d.cfg.Noise
	cov := data[1+n:]
	switch d.sensor.CovType() {
	case hardware.CovVar:
		for i := 0; i < n; i++ {
			cov[i] = variance
		}
	case hardware.CovFull:
		// packed upper triangle, row by row
		for row, pos := 0, 0; row < n; row++ {
			cov[pos] = variance
			pos += n - row
		}
	}
}

// quaternion writes a unit quaternion rotating slowly about a noisy axis.
func (d *Driver) quaternion(q []float64, t float64) {
	angle := 0.1 * t
	ax, ay, az := d.cfg.Noise*d.rng.NormFloat64(), d.cfg.Noise*d.rng.NormFloat64(), 1.0
	norm := math.Sqrt(ax*ax + ay*ay + az*az)
	s := math.Sin(angle / 2)
	q[0] = s * ax / norm
	q[1] = s * ay / norm
	q[2] = s * az / norm
	q[3] = math.Cos(angle / 2)
}

func (d *Driver) recordStatus(status int) {
	if d.registry != nil {
		d.registry.CoreMetrics().RecordSensorStatus(d.sensor.Name(), status)
	}
}
