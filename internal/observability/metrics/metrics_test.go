package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)
	m.ObserveLookup("found", 0.2)
	m.ObserveSubmission("recorded", "form")
	m.ObserveSubmission("recorded", "form")
	m.ObserveFollowUpFired()

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}

	submissions := byName["garage_bookings_submissions_total"]
	require.NotNil(t, submissions)
	require.Len(t, submissions.GetMetric(), 1)
	assert.Equal(t, 2.0, submissions.GetMetric()[0].GetCounter().GetValue())

	fired := byName["garage_followup_fired_total"]
	require.NotNil(t, fired)
	assert.Equal(t, 1.0, fired.GetMetric()[0].GetCounter().GetValue())
}

func TestBookingMetricsNilSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveLookup("found", 0.1)
	m.ObserveSubmission("failed", "chat")
	m.ObserveFollowUpFired()
}
