package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/sensorstream/config"
	"github.com/c360/sensorstream/errors"
	"github.com/c360/sensorstream/hardware"
	"github.com/c360/sensorstream/health"
	"github.com/c360/sensorstream/input/replay"
	"github.com/c360/sensorstream/input/synthetic"
	"github.com/c360/sensorstream/metric"
	"github.com/c360/sensorstream/pkg/buffer"
	"github.com/c360/sensorstream/pkg/timestamp"
)

// syntheticNoise is the noise level of configured synthetic sensors.
const syntheticNoise = 0.01

type runOptions struct {
	ShutdownTimeout time.Duration
	HealthInterval  time.Duration
}

// driver is what the pipeline needs from replay and synthetic drivers.
type driver interface {
	hardware.Driver
	Wait() error
}

type sensorRun struct {
	cfg      config.SensorConfig
	sensor   *hardware.Proprio
	driver   driver
	consumed atomic.Int64
	missed   atomic.Int64
}

type pipeline struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *metric.MetricsRegistry
	monitor  *health.Monitor
	sensors  []*sensorRun
}

func newPipeline(cfg *config.Config, logger *slog.Logger) (*pipeline, error) {
	registry := metric.NewMetricsRegistry()
	p := &pipeline{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		monitor:  health.NewMonitor(registry.CoreMetrics()),
	}

	for _, sc := range cfg.Sensors {
		run, err := buildSensor(sc, registry, logger)
		if err != nil {
			for _, built := range p.sensors {
				_ = built.sensor.Close()
			}
			return nil, errors.Wrap(err, "pipeline", "newPipeline", "build sensor "+sc.Name)
		}
		p.sensors = append(p.sensors, run)
	}
	return p, nil
}

func buildSensor(sc config.SensorConfig, registry *metric.MetricsRegistry, logger *slog.Logger) (*sensorRun, error) {
	mode, err := sc.BufferMode()
	if err != nil {
		return nil, err
	}
	cov, err := sc.CovType()
	if err != nil {
		return nil, err
	}
	qs, err := sc.QuantityList()
	if err != nil {
		return nil, err
	}

	sensor, err := hardware.NewProprio(sc.Capacity, cov,
		hardware.Quantities(qs...),
		hardware.BufferOptions(
			buffer.WithName[hardware.RawVec](sc.Name),
			buffer.WithMode[hardware.RawVec](mode),
			buffer.WithLogger[hardware.RawVec](logger),
			buffer.WithMetrics[hardware.RawVec](registry, sc.Name),
		))
	if err != nil {
		return nil, err
	}
	sensor.SetSyncConfig(sc.TimestampCorrection)
	sensor.SetTimingInfos(sc.Period, sc.ArrivalDelay)
	sensor.InitData()

	var drv driver
	switch sc.Kind {
	case config.KindReplay:
		drv, err = replay.New(sensor, sc.Source,
			replay.WithLogger(logger),
			replay.WithMetrics(registry))
	case config.KindSynthetic:
		drv, err = synthetic.New(sensor,
			synthetic.Config{Period: sc.Period, Count: sc.Count, Seed: sc.Seed, Noise: syntheticNoise},
			synthetic.WithLogger(logger),
			synthetic.WithMetrics(registry))
	default:
		err = errors.WrapInvalid(fmt.Errorf("%w: kind %q", errors.ErrInvalidConfig, sc.Kind),
			"pipeline", "buildSensor", "driver kind")
	}
	if err != nil {
		_ = sensor.Close()
		return nil, err
	}

	return &sensorRun{cfg: sc, sensor: sensor, driver: drv}, nil
}

// Run starts every driver, consumes until all streams end or ctx is done, then
// stops the drivers and reports their outcome.
func (p *pipeline) Run(ctx context.Context, opts runOptions) error {
	defer func() {
		for _, s := range p.sensors {
			_ = s.sensor.Close()
		}
	}()

	if p.cfg.Metrics.Enabled {
		server := metric.NewServer(p.cfg.Metrics.Port, p.cfg.Metrics.Path, p.registry)
		go func() {
			if err := server.Start(); err != nil {
				p.logger.Error("Metrics server failed", "error", err)
			}
		}()
		defer func() {
			stopCtx, cancel := withTimeout(opts.ShutdownTimeout)
			defer cancel()
			_ = server.Stop(stopCtx)
		}()
		p.logger.Info("Metrics server started", "address", server.Address())
	}

	sources := make([]health.Source, 0, len(p.sensors))
	for _, s := range p.sensors {
		sources = append(sources, s.sensor)
	}
	if opts.HealthInterval > 0 {
		watchCtx, stopWatch := context.WithCancel(ctx)
		defer stopWatch()
		go p.monitor.Watch(watchCtx, opts.HealthInterval, health.DefaultThresholds(), sources...)
	}

	for i, s := range p.sensors {
		if err := s.driver.Start(ctx); err != nil {
			for _, started := range p.sensors[:i] {
				_ = started.driver.Stop()
			}
			p.monitor.Update(s.cfg.Name, health.FromDriverError(s.cfg.Name, err))
			return errors.Wrap(err, "pipeline", "Run", "start "+s.cfg.Name)
		}
	}
	p.logger.Info("Pipeline started", "sensors", len(p.sensors))

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range p.sensors {
		g.Go(func() error { return p.consume(gctx, s) })
	}
	consumeErr := g.Wait()

	var firstErr error
	for _, s := range p.sensors {
		if err := s.driver.Stop(); err != nil && !errors.Is(err, errors.ErrAlreadyStopped) {
			p.logger.Warn("Driver did not stop cleanly", "sensor", s.cfg.Name, "error", err)
		}
		err := s.driver.Wait()
		if err != nil && firstErr == nil {
			firstErr = err
		}

		p.monitor.Check(health.DefaultThresholds(), s.sensor)
		if err != nil {
			p.monitor.Update(s.cfg.Name, health.FromDriverError(s.cfg.Name, err))
		}

		stats := s.sensor.Stats().Summary()
		p.logger.Info("Sensor summary",
			"sensor", s.cfg.Name,
			"consumed", s.consumed.Load(),
			"missed", s.missed.Load(),
			"writes", stats.Writes,
			"overflows", stats.Overflows,
			"max_size", stats.MaxSize,
			"throughput", stats.Throughput)
	}

	overall := p.monitor.AggregateHealth(appName)
	p.logger.Info("Pipeline finished", "health", overall.Status, "message", overall.Message)

	if firstErr != nil {
		return firstErr
	}
	if consumeErr != nil && ctx.Err() == nil {
		return consumeErr
	}
	return nil
}

// consume reads a sensor until its stream ends. Offline sensors are read in order;
// live sensors jump to the newest reading, counting the skipped ones.
func (p *pipeline) consume(ctx context.Context, s *sensorRun) error {
	core := p.registry.CoreMetrics()
	name := s.cfg.Name
	live := s.sensor.Mode() == buffer.Live
	reading := s.sensor.NewReading()

	for {
		status, err := s.sensor.WaitUnread(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			core.RecordError(name, errors.Classify(err).String())
			return err
		}
		if status == buffer.StatusEndOfStream {
			return nil
		}

		if live {
			missed := s.sensor.LastUnreadRaw(&reading)
			if missed < 0 {
				continue
			}
			s.missed.Add(int64(missed))
			core.RecordReadingConsumed(name, "latest")
			if age := timestamp.Since(reading.Timestamp()); age >= 0 {
				core.RecordConsumeLatency(name, age)
			}
		} else {
			var info buffer.RawInfo
			if s.sensor.NextRawInfo(&info) != buffer.StatusOK {
				continue
			}
			if err := s.sensor.Raw(info.ID, &reading); err != nil {
				core.RecordError(name, errors.Classify(err).String())
				return err
			}
			core.RecordReadingConsumed(name, "next")
		}
		s.consumed.Add(1)
	}
}
