package service

import (
	"log/slog"
	"time"

	"github.com/pkordes/petrol-logbook/internal/metrics"
)

// Option customizes any service constructor in this package.
type Option func(*options)

type options struct {
	now     func() time.Time
	log     *slog.Logger
	metrics *metrics.Metrics
}

// WithClock replaces time.Now, which stamps new entries and picks the
// current month.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the base logger; each service adds its component name.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics sets the collectors operations are counted in.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
