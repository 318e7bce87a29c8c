package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	DocumentsIndexedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfchat",
			Name:      "documents_indexed_total",
			Help:      "Uploaded documents processed by indexing, by outcome",
		},
		[]string{"status"}, // "loaded" / "skipped"
	)

	ChunksIndexedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pdfchat",
			Name:      "chunks_indexed_total",
			Help:      "Chunks written to the vector store",
		},
	)

	QuestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfchat",
			Name:      "questions_total",
			Help:      "Questions answered, by outcome",
		},
		[]string{"status"}, // "answered" / "no_context" / "error"
	)

	RemoteCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pdfchat",
			Name:      "remote_call_duration_seconds",
			Help:      "Duration of embedding and chat-completion calls",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"operation", "status"},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfchat",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
)

var registered bool

// Register registers all collectors with the default registry. Must be called once from main.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(DocumentsIndexedTotal)
	prometheus.MustRegister(ChunksIndexedTotal)
	prometheus.MustRegister(QuestionsTotal)
	prometheus.MustRegister(RemoteCallDuration)
	prometheus.MustRegister(HTTPRequestsTotal)
	registered = true
}

// ObserveRemoteCall records the duration of a remote call started at start.
func ObserveRemoteCall(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	RemoteCallDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
}
