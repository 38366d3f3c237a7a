package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewMetrics(registry)
	require.NoError(t, err)

	m.ObservePass("ok", 3*time.Second)
	m.ObservePass("ok", time.Second)
	m.ObservePass("failed", time.Second)
	m.TracksAdded(5)
	m.TracksAdded(2)
	m.TracksEvicted(3)
	m.ArtistFetchFailed(1)
	m.ArtistFetchFailed(-1)
	m.PlaylistSize(42)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.passesTotal.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.passesTotal.WithLabelValues("failed")))
	assert.Equal(t, float64(7), testutil.ToFloat64(m.tracksAddedTotal))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.tracksEvictedTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.fetchErrorsTotal))
	assert.Equal(t, float64(42), testutil.ToFloat64(m.playlistTracks))

	count, err := testutil.GatherAndCount(registry, "freshlist_pass_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetricsDuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewMetrics(registry)
	require.NoError(t, err)

	_, err = NewMetrics(registry)
	assert.Error(t, err)
}

func TestMetricsHandler(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	m.PlaylistSize(7)
	m.ObservePass("ok", time.Second)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "freshlist_playlist_tracks 7")
	assert.Contains(t, string(body), `freshlist_passes_total{status="ok"} 1`)
}
