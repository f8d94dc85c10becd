// Package metrics provides Prometheus instrumentation for playlist fetching,
// translation and sharing.
//
// Metrics registered here:
//
//	m3udash_fetch_results_total{kind}           counter: upstream GETs by outcome
//	m3udash_fetch_duration_seconds{kind}        histogram: upstream GET latency
//	m3udash_relay_total{outcome}                counter: M3U relays by outcome
//	m3udash_translate_total{outcome}            counter: Xtream translations by outcome
//	m3udash_translated_channels_total           counter: channels written by translations
//	m3udash_shares_created_total                counter: stored share playlists
//	m3udash_share_resolutions_total{outcome}    counter: share lookups by outcome
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OutcomeSuccess labels a successful operation. Failures are labelled with
// their error kind.
const OutcomeSuccess = "success"

// Metrics holds the collectors of one registry. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	FetchResults       *prometheus.CounterVec
	FetchDuration      *prometheus.HistogramVec
	Relays             *prometheus.CounterVec
	Translations       *prometheus.CounterVec
	TranslatedChannels prometheus.Counter
	SharesCreated      prometheus.Counter
	ShareResolutions   *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry creates the collectors on the given registry. Registering
// twice on the same registry panics.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		FetchResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "m3udash_fetch_results_total",
			Help: "Upstream GET requests by result kind.",
		}, []string{"kind"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "m3udash_fetch_duration_seconds",
			Help:    "Upstream GET latency in seconds.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"kind"}),
		Relays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "m3udash_relay_total",
			Help: "M3U relays by outcome.",
		}, []string{"outcome"}),
		Translations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "m3udash_translate_total",
			Help: "Xtream translations by outcome.",
		}, []string{"outcome"}),
		TranslatedChannels: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "m3udash_translated_channels_total",
			Help: "Channels written by Xtream translations.",
		}),
		SharesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "m3udash_shares_created_total",
			Help: "Shared playlists stored.",
		}),
		ShareResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "m3udash_share_resolutions_total",
			Help: "Shared playlist lookups by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.FetchResults,
		m.FetchDuration,
		m.Relays,
		m.Translations,
		m.TranslatedChannels,
		m.SharesCreated,
		m.ShareResolutions,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns the scrape handler for GET /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveFetch records the outcome and latency of one upstream GET.
func (m *Metrics) ObserveFetch(kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.FetchResults.WithLabelValues(kind).Inc()
	m.FetchDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ObserveRelay records the outcome of a relay.
func (m *Metrics) ObserveRelay(outcome string) {
	if m == nil {
		return
	}
	m.Relays.WithLabelValues(outcome).Inc()
}

// ObserveTranslation records the outcome of a translation and the number of
// channels it produced.
func (m *Metrics) ObserveTranslation(outcome string, channels int) {
	if m == nil {
		return
	}
	m.Translations.WithLabelValues(outcome).Inc()
	if channels > 0 {
		m.TranslatedChannels.Add(float64(channels))
	}
}

// ObserveShareCreated records a stored share.
func (m *Metrics) ObserveShareCreated() {
	if m == nil {
		return
	}
	m.SharesCreated.Inc()
}

// ObserveShareResolution records the outcome of a share lookup.
func (m *Metrics) ObserveShareResolution(outcome string) {
	if m == nil {
		return
	}
	m.ShareResolutions.WithLabelValues(outcome).Inc()
}
