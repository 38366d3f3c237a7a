// Package telemetry exposes update pass metrics for Prometheus.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records pass outcomes. It satisfies tasks.MetricsRecorder.
type Metrics struct {
	registry *prometheus.Registry

	passesTotal        *prometheus.CounterVec
	passDuration       prometheus.Histogram
	tracksAddedTotal   prometheus.Counter
	tracksEvictedTotal prometheus.Counter
	fetchErrorsTotal   prometheus.Counter
	playlistTracks     prometheus.Gauge
}

// NewMetrics creates the pass metrics and registers them with registry.
func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.passesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freshlist_passes_total",
			Help: "Total number of update passes",
		},
		[]string{"status"}, // status: ok, failed
	)

	m.passDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "freshlist_pass_duration_seconds",
			Help: "Wall time of an update pass",
			// 1s to ~17m
			Buckets: prometheus.ExponentialBuckets(1, 2, 11),
		},
	)

	m.tracksAddedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "freshlist_tracks_added_total",
		Help: "Total number of tracks added to the playlist",
	})

	m.tracksEvictedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "freshlist_tracks_evicted_total",
		Help: "Total number of expired or orphaned tracks removed from the playlist",
	})

	m.fetchErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "freshlist_artist_fetch_errors_total",
		Help: "Total number of artists whose release fetch failed",
	})

	m.playlistTracks = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "freshlist_playlist_tracks",
		Help: "Number of tracks on the playlist after the last successful pass",
	})
}

// Describe implements prometheus.Collector
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.passesTotal.Describe(ch)
	m.passDuration.Describe(ch)
	m.tracksAddedTotal.Describe(ch)
	m.tracksEvictedTotal.Describe(ch)
	m.fetchErrorsTotal.Describe(ch)
	m.playlistTracks.Describe(ch)
}

// Collect implements prometheus.Collector
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.passesTotal.Collect(ch)
	m.passDuration.Collect(ch)
	m.tracksAddedTotal.Collect(ch)
	m.tracksEvictedTotal.Collect(ch)
	m.fetchErrorsTotal.Collect(ch)
	m.playlistTracks.Collect(ch)
}

func (m *Metrics) ObservePass(status string, d time.Duration) {
	m.passesTotal.WithLabelValues(status).Inc()
	m.passDuration.Observe(d.Seconds())
}

func (m *Metrics) TracksAdded(n int)       { m.tracksAddedTotal.Add(float64(max(n, 0))) }
func (m *Metrics) TracksEvicted(n int)     { m.tracksEvictedTotal.Add(float64(max(n, 0))) }
func (m *Metrics) ArtistFetchFailed(n int) { m.fetchErrorsTotal.Add(float64(max(n, 0))) }
func (m *Metrics) PlaylistSize(n int)      { m.playlistTracks.Set(float64(n)) }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}
