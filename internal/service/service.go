// Package service contains the business logic for the guest check-in service.
// Services validate inputs, enforce the visit quota rules, and orchestrate
// repo calls. No SQL lives here; services depend on repo interfaces, not
// implementations.
package service

import (
	"io"
	"log/slog"
	"time"

	"github.com/hansonjake/valleyclub-guest-checkin/internal/domain"
	"github.com/hansonjake/valleyclub-guest-checkin/internal/metrics"
)

// Option configures the ambient dependencies shared by every service.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	loc     *time.Location
}

// WithLogger sets the logger services report decisions to.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the Prometheus instruments. Without it nothing is recorded.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithLocation sets the club's time zone, which decides what "today" is.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.loc = loc
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		loc:    time.Local,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// today returns the current calendar date in the club's time zone.
func (o options) today() string {
	return domain.DateOf(o.now(), o.loc)
}

// currentYear returns the calendar year in the club's time zone.
func (o options) currentYear() int {
	return o.now().In(o.loc).Year()
}
