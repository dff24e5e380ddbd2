package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking workflow.
type BookingMetrics struct {
	lookupsTotal     *prometheus.CounterVec
	lookupLatency    *prometheus.HistogramVec
	submissionsTotal *prometheus.CounterVec
	followUpsFired   prometheus.Counter
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		lookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "garage",
			Subsystem: "lookup",
			Name:      "requests_total",
			Help:      "Total vehicle lookups by result",
		}, []string{"result"}),
		lookupLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "garage",
			Subsystem: "lookup",
			Name:      "latency_seconds",
			Help:      "Latency of upstream vehicle lookups",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "garage",
			Subsystem: "bookings",
			Name:      "submissions_total",
			Help:      "Total booking submissions by outcome and source",
		}, []string{"outcome", "source"}),
		followUpsFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "garage",
			Subsystem: "followup",
			Name:      "fired_total",
			Help:      "Total follow-up reminders fired",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.lookupsTotal, m.lookupLatency, m.submissionsTotal, m.followUpsFired)
	return m
}

// ObserveLookup records one vehicle lookup with its result kind
// (found, not_found, invalid_format, rate_limited, upstream, transport).
func (m *BookingMetrics) ObserveLookup(result string, seconds float64) {
	if m == nil {
		return
	}
	m.lookupsTotal.WithLabelValues(result).Inc()
	m.lookupLatency.WithLabelValues(result).Observe(seconds)
}

// ObserveSubmission records one booking submission attempt.
// Source is "form" or "chat"; outcome is "recorded" or "failed".
func (m *BookingMetrics) ObserveSubmission(outcome, source string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome, source).Inc()
}

// ObserveFollowUpFired records one fired follow-up reminder.
func (m *BookingMetrics) ObserveFollowUpFired() {
	if m == nil {
		return
	}
	m.followUpsFired.Inc()
}
