package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsNilRegisterer(t *testing.T) {
	m := NewCronJobMetrics(nil)
	// No-impl metrics must be safe to call.
	m.ObserveDuration("sweep", time.Second)
	m.IncSuccess("sweep")
	m.IncFailure("sweep")
}

func TestCronJobMetricsRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.ObserveDuration("session_sweep", 250*time.Millisecond)
	m.IncSuccess("session_sweep")
	m.IncFailure("")

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, fam := range families {
		names[fam.GetName()] = true
	}
	assert.True(t, names["job_duration_seconds"])
	assert.True(t, names["job_success"])
	assert.True(t, names["job_failure"])
}

func TestPaymentSignalMetricsRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPaymentSignalMetrics(reg)

	m.IncApplied("webhook", "paid")
	m.IncUnresolved("webhook")
	m.IncRejected("client", "cancelled")

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 3)
}

func TestPaymentSignalMetricsNilRegisterer(t *testing.T) {
	m := NewPaymentSignalMetrics(nil)
	m.IncApplied("webhook", "paid")
	m.IncUnresolved("webhook")
	m.IncRejected("webhook", "failed")
}
