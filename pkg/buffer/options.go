package buffer

import (
	"log/slog"

	"github.com/c360/sensorstream/metric"
)

// Option configures buffer behavior using the functional options pattern.
type Option[T Reading] func(*bufferOptions[T])

// Copier copies src into the slot dst. Value payloads that own memory (vectors)
// supply one that reuses dst's storage so a push does not allocate.
type Copier[T any] func(dst *T, src T)

// bufferOptions holds internal configuration for buffer instances.
// Stats are ALWAYS collected - they are not optional.
type bufferOptions[T Reading] struct {
	name     string
	mode     Mode
	notifier *Condition
	copier   Copier[T]
	logger   *slog.Logger

	// metricsReg is optional - if provided, buffer stats are also exposed as Prometheus metrics
	metricsReg *metric.MetricsRegistry

	// metricsPrefix is used as the sensor label for Prometheus metrics
	metricsPrefix string
}

// WithName sets the sensor name used in logs and errors.
func WithName[T Reading](name string) Option[T] {
	return func(opts *bufferOptions[T]) {
		opts.name = name
	}
}

// WithMode selects live (overflow is an error) or offline (producer blocks) behavior.
// Defaults to Live.
func WithMode[T Reading](mode Mode) Option[T] {
	return func(opts *bufferOptions[T]) {
		opts.mode = mode
	}
}

// WithNotifier sets the condition incremented after every successful push.
func WithNotifier[T Reading](notifier *Condition) Option[T] {
	return func(opts *bufferOptions[T]) {
		opts.notifier = notifier
	}
}

// WithCopier overrides the plain assignment used to copy readings in and out of slots.
func WithCopier[T Reading](copier Copier[T]) Option[T] {
	return func(opts *bufferOptions[T]) {
		if copier != nil {
			opts.copier = copier
		}
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger[T Reading](logger *slog.Logger) Option[T] {
	return func(opts *bufferOptions[T]) {
		if logger != nil {
			opts.logger = logger
		}
	}
}

// WithMetrics enables Prometheus metrics export for buffer statistics.
// If registry is nil or prefix is empty, this option is ignored.
func WithMetrics[T Reading](registry *metric.MetricsRegistry, prefix string) Option[T] {
	return func(opts *bufferOptions[T]) {
		if registry != nil && prefix != "" {
			opts.metricsReg = registry
			opts.metricsPrefix = prefix
		}
	}
}

// applyOptions applies functional options to create final buffer configuration.
func applyOptions[T Reading](options ...Option[T]) *bufferOptions[T] {
	opts := &bufferOptions[T]{
		mode:   Live,
		copier: func(dst *T, src T) { *dst = src },
		logger: slog.Default(),
	}

	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}

	if opts.name == "" {
		opts.name = opts.metricsPrefix
	}
	if opts.name == "" {
		opts.name = "sensor"
	}

	return opts
}
