package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

type RetrievalMetrics struct {
	service string

	indexTotal     *prometheus.CounterVec
	searchTotal    *prometheus.CounterVec
	searchResults  *prometheus.HistogramVec
	searchDuration *prometheus.HistogramVec
}

func NewRetrievalMetrics(service string, registry prometheus.Registerer) *RetrievalMetrics {
	indexTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "index_total",
			Help:      "Index attempts by serving path and result.",
		},
		[]string{"service", "path", "ok"},
	)
	searchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "search_total",
			Help:      "Searches answered by serving path.",
		},
		[]string{"service", "path"},
	)
	searchResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "search_results",
			Help:      "Distribution of results returned per search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "path"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "search_duration_seconds",
			Help:      "Search duration in seconds by serving path.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "path"},
	)

	registry.MustRegister(indexTotal, searchTotal, searchResults, searchDuration)

	return &RetrievalMetrics{
		service:        service,
		indexTotal:     indexTotal,
		searchTotal:    searchTotal,
		searchResults:  searchResults,
		searchDuration: searchDuration,
	}
}

func (m *RetrievalMetrics) ObserveIndex(path string, ok bool) {
	m.indexTotal.WithLabelValues(m.service, path, strconv.FormatBool(ok)).Inc()
}

func (m *RetrievalMetrics) ObserveSearch(path string, results int, durationSeconds float64) {
	m.searchTotal.WithLabelValues(m.service, path).Inc()
	m.searchResults.WithLabelValues(m.service, path).Observe(float64(results))
	m.searchDuration.WithLabelValues(m.service, path).Observe(durationSeconds)
}
