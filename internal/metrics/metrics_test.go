package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndExpose(t *testing.T) {
	reg, m := NewRegistry()

	m.CacheResult(CacheHit)
	m.CacheResult(CacheHit)
	m.CacheResult(CacheMiss)
	m.FlushFailed()
	m.Auth("admin_login", "success")
	m.Limited("/iam/auth/admin/login")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues(CacheHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheFlushFailures))

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "salon_directory_cache_flush_failures_total 1")
	assert.Contains(t, string(body), `salon_auth_attempts_total{flow="admin_login",outcome="success"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CacheResult(CacheMiss)
		m.FlushFailed()
		m.Auth("x", "y")
		m.Limited("/")
	})
}
