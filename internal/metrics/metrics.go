// Package metrics holds the Prometheus instruments for the check-in engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hansonjake/valleyclub-guest-checkin/internal/domain"
)

// Metrics tracks check-in outcomes and ledger corrections.
// All methods are safe to call on a nil *Metrics, which records nothing.
type Metrics struct {
	Checkins        *prometheus.CounterVec
	CheckinDuration prometheus.Histogram
	VisitsDeleted   prometheus.Counter
	GuestsCreated   *prometheus.CounterVec
}

// New registers the instruments with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Checkins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "guestbook_checkins_total",
			Help: "Check-in attempts by outcome status and block reason",
		}, []string{"status", "reason"}),
		CheckinDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "guestbook_checkin_duration_seconds",
			Help:    "Duration of check-in evaluation including persistence",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		VisitsDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "guestbook_visits_deleted_total",
			Help: "Visits removed by staff corrections",
		}),
		GuestsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "guestbook_guests_created_total",
			Help: "Guests created by the directory, by resolution flow",
		}, []string{"flow"}),
	}
}

// ObserveCheckin records one check-in outcome and its duration.
// Call with time.Now() taken at the start of the check-in.
func (m *Metrics) ObserveCheckin(status domain.CheckinStatus, reason domain.BlockReason, start time.Time) {
	if m == nil {
		return
	}
	m.Checkins.WithLabelValues(string(status), string(reason)).Inc()
	m.CheckinDuration.Observe(time.Since(start).Seconds())
}

// IncrementVisitsDeleted records a deleted visit.
func (m *Metrics) IncrementVisitsDeleted() {
	if m == nil {
		return
	}
	m.VisitsDeleted.Inc()
}

// IncrementGuestsCreated records a guest created through flow ("license" or "name").
func (m *Metrics) IncrementGuestsCreated(flow string) {
	if m == nil {
		return
	}
	m.GuestsCreated.WithLabelValues(flow).Inc()
}
