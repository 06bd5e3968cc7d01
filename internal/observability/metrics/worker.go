package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	indexTotal    *prometheus.CounterVec
	indexDuration *prometheus.HistogramVec
	indexInFlight prometheus.Gauge
	indexedPages  *prometheus.HistogramVec
	indexedChunks *prometheus.HistogramVec
	queueLag      *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	indexTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mathrag",
			Subsystem: "worker",
			Name:      "textbook_index_total",
			Help:      "Total indexed textbooks by status.",
		},
		[]string{"service", "status"},
	)
	indexDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mathrag",
			Subsystem: "worker",
			Name:      "textbook_index_duration_seconds",
			Help:      "Textbook indexing duration in seconds by status.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"service", "status"},
	)
	indexInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mathrag",
			Subsystem: "worker",
			Name:      "textbook_index_in_flight",
			Help:      "Number of textbooks currently being indexed.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	indexedPages := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mathrag",
			Subsystem: "worker",
			Name:      "indexed_pages",
			Help:      "Distribution of extracted pages per indexed textbook.",
			Buckets:   []float64{10, 50, 100, 200, 400, 800, 1600},
		},
		[]string{"service"},
	)
	indexedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mathrag",
			Subsystem: "worker",
			Name:      "indexed_chunks",
			Help:      "Distribution of produced chunks per indexed textbook.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"service"},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mathrag",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between textbook upload and indexing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(indexTotal, indexDuration, indexInFlight, indexedPages, indexedChunks, queueLag)

	return &WorkerMetrics{
		registry:      registry,
		indexTotal:    indexTotal,
		indexDuration: indexDuration,
		indexInFlight: indexInFlight,
		indexedPages:  indexedPages,
		indexedChunks: indexedChunks,
		queueLag:      queueLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartTextbook() {
	m.indexInFlight.Inc()
}

func (m *WorkerMetrics) FinishTextbook(service string, duration time.Duration, err error) {
	m.indexInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.indexTotal.WithLabelValues(service, status).Inc()
	m.indexDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveIndexedVolume(service string, pages, chunks int) {
	m.indexedPages.WithLabelValues(service).Observe(float64(pages))
	m.indexedChunks.WithLabelValues(service).Observe(float64(chunks))
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}
