package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/butler/ai"
	"github.com/prometheus/client_golang/prometheus"
)

// Dispatcher sends a prompt to generation backends in priority order and
// returns the first success. Every call starts again from the top of the
// list; nothing is remembered between calls.
type Dispatcher struct {
	backends []ai.Backend
	timeout  time.Duration
	logger   *slog.Logger

	attempts  *prometheus.CounterVec
	exhausted prometheus.Counter
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger == nil {
			logger = slog.Default()
		}
		d.logger = logger
	}
}

// WithTimeout bounds each backend attempt. Zero means no per-attempt limit.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.timeout = timeout
	}
}

// WithMetrics records attempts on a counter vec labelled "backend" and
// "outcome", and exhausted calls on a counter. Either may be nil.
func WithMetrics(attempts *prometheus.CounterVec, exhausted prometheus.Counter) Option {
	return func(d *Dispatcher) {
		d.attempts = attempts
		d.exhausted = exhausted
	}
}

// NewDispatcher creates a dispatcher. backends are tried in the given order.
func NewDispatcher(backends []ai.Backend, opts ...Option) (*Dispatcher, error) {
	if len(backends) == 0 {
		return nil, ErrNoBackends
	}
	for i, b := range backends {
		if b == nil {
			return nil, fmt.Errorf("backend %d is nil", i)
		}
	}
	d := &Dispatcher{
		backends: append([]ai.Backend(nil), backends...),
		logger:   slog.Default().With("component", "dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Backends returns backend names in priority order.
func (d *Dispatcher) Backends() []string {
	names := make([]string, len(d.backends))
	for i, b := range d.backends {
		names[i] = b.Name()
	}
	return names
}

// Generate tries each backend once, in order. When all fail the error is
// an *ExhaustedError matching ErrGenerationExhausted. A cancelled ctx stops
// the loop and returns ctx.Err().
func (d *Dispatcher) Generate(ctx context.Context, parts ...ai.Part) (string, error) {
	attempts := make([]Attempt, 0, len(d.backends))
	for _, b := range d.backends {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := d.try(ctx, b, parts)
		if err == nil {
			d.record(b.Name(), "success")
			return text, nil
		}

		category := Categorize(err)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		d.record(b.Name(), string(category))
		attempts = append(attempts, Attempt{Backend: b.Name(), Category: category, Err: err})

		switch category {
		case CategoryQuota:
			d.logger.Warn("backend quota exhausted, trying next", "backend", b.Name())
		case CategoryUnavailable:
			d.logger.Warn("backend unavailable, trying next", "backend", b.Name())
		case CategoryInvalidModel:
			d.logger.Warn("backend model invalid, skipping", "backend", b.Name(), "err", err)
		default:
			d.logger.Error("backend failed", "backend", b.Name(), "err", err)
		}
	}

	if d.exhausted != nil {
		d.exhausted.Inc()
	}
	return "", &ExhaustedError{Attempts: attempts}
}

func (d *Dispatcher) try(ctx context.Context, b ai.Backend, parts []ai.Part) (string, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	return b.Generate(ctx, parts)
}

func (d *Dispatcher) record(backend, outcome string) {
	if d.attempts != nil {
		d.attempts.WithLabelValues(backend, outcome).Inc()
	}
}
