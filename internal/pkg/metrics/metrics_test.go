package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	// 各テストで新しいレジストリを使用
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	require.NotNil(t, m)
	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.HTTPRequestDuration)
	assert.NotNil(t, m.DeletionNotificationsTotal)
	assert.NotNil(t, m.CascadeDeletedEventsTotal)
	assert.NotNil(t, m.UserLookupDuration)
	assert.NotNil(t, m.OutboxRelayedTotal)
	assert.NotNil(t, m.OutboxBacklog)
}

func TestHTTPRequestsTotal(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.HTTPRequestsTotal.WithLabelValues("GET", "/v1/events", "200").Inc()
	m.HTTPRequestsTotal.WithLabelValues("DELETE", "/v1/categories/:id", "200").Inc()
	m.HTTPRequestsTotal.WithLabelValues("DELETE", "/v1/categories/:id", "409").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "http_requests_total" {
			found = true
			assert.Equal(t, 3, len(f.GetMetric()))
		}
	}
	assert.True(t, found, "http_requests_total metric not found")
}

func TestObserveNotification(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.ObserveNotification("event", ResultPublished)
	m.ObserveNotification("event", ResultPublished)
	m.ObserveNotification("category", ResultFailed)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DeletionNotificationsTotal.WithLabelValues("event", ResultPublished)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DeletionNotificationsTotal.WithLabelValues("category", ResultFailed)))
}

func TestAddCascadeDeleted(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.AddCascadeDeleted(3)
	m.AddCascadeDeleted(0)
	m.AddCascadeDeleted(-1)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.CascadeDeletedEventsTotal))
}

func TestObserveUserLookup(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.ObserveUserLookup("found", time.Now().Add(-20*time.Millisecond))

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "user_lookup_duration_seconds" {
			found = true
			assert.Equal(t, uint64(1), f.GetMetric()[0].GetHistogram().GetSampleCount())
		}
	}
	assert.True(t, found, "user_lookup_duration_seconds metric not found")
}

func TestOutboxMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.ObserveOutbox("sent")
	m.ObserveOutbox("retry")
	m.SetOutboxBacklog(7)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxRelayedTotal.WithLabelValues("sent")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.OutboxBacklog))
}

func TestNilMetrics_NoPanic(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveNotification("event", ResultPublished)
		m.AddCascadeDeleted(1)
		m.ObserveUserLookup("found", time.Now())
		m.ObserveOutbox("sent")
		m.SetOutboxBacklog(1)
	})
}

func TestInit_CreatesDefaultMetrics(t *testing.T) {
	// 既存のdefaultMetricsをバックアップ
	oldMetrics := defaultMetrics
	defer func() { defaultMetrics = oldMetrics }()

	// Initはデフォルトレジストリに登録するため、テストでは直接セット
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)
	defaultMetrics = m

	got := Get()
	assert.NotNil(t, got)
	assert.Equal(t, m, got)
}
