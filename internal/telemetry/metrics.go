package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	DocumentsIndexedTotal *prometheus.CounterVec
	ChunksIndexedTotal    prometheus.Counter
	StoredChunks          prometheus.Gauge

	ChatRequestsTotal  *prometheus.CounterVec
	RetrievalDuration  prometheus.Histogram
	LLMRequestDuration prometheus.Histogram
}

// NewMetrics registers the collectors with the default registry on first use and returns
// the shared instance afterwards.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "docchat_http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "route", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "docchat_http_request_duration_seconds",
					Help:    "Duration of HTTP requests in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method", "route"},
			),
			DocumentsIndexedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "docchat_documents_indexed_total",
					Help: "Total number of documents indexed",
				},
				[]string{"result"}, // "success" or "failed"
			),
			ChunksIndexedTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "docchat_chunks_indexed_total",
				Help: "Total number of chunks embedded and stored",
			}),
			StoredChunks: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "docchat_vector_store_chunks",
				Help: "Number of chunks currently in the vector store",
			}),
			ChatRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "docchat_chat_requests_total",
					Help: "Total number of chat requests",
				},
				[]string{"result"}, // "answered", "no_context" or "error"
			),
			RetrievalDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "docchat_retrieval_duration_seconds",
				Help:    "Duration of question embedding plus vector search in seconds",
				Buckets: prometheus.DefBuckets,
			}),
			LLMRequestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "docchat_llm_request_duration_seconds",
				Help:    "Duration of LLM calls in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
			}),
		}
	})
	return globalMetrics
}
