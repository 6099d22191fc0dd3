package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	requests       *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	chunksStored   prometheus.Counter
	chunksDropped  prometheus.Counter
	fallbackAnswer prometheus.Counter
}

func newMetrics(registry *prometheus.Registry) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docrag_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "status"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docrag_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~41s
			},
			[]string{"route"},
		),
		chunksStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docrag_chunks_stored_total",
			Help: "Chunks upserted into the vector index",
		}),
		chunksDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docrag_chunks_dropped_total",
			Help: "Chunks dropped because their embedding failed",
		}),
		fallbackAnswer: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docrag_fallback_answers_total",
			Help: "Answers replaced by the not-available sentence",
		}),
	}
	registry.MustRegister(
		m.requests, m.latency, m.chunksStored, m.chunksDropped, m.fallbackAnswer,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *metrics) handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

func (m *metrics) observeRequest(route string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *metrics) observeIngest(stored, dropped int) {
	m.chunksStored.Add(float64(stored))
	m.chunksDropped.Add(float64(dropped))
}
