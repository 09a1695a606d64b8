package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var qaRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "qa_requests_total",
	Help: "Total number of question requests labelled by outcome",
}, []string{"status"})

var qaRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "qa_request_duration_seconds",
	Help:    "Total time spent answering a question.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30},
}, []string{"status"})

var documentsUploadedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "documents_uploaded_total",
	Help: "Number of documents accepted for indexing",
})

var statusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "document_status_transitions_total",
	Help: "Document status transitions applied by the reconcile step",
}, []string{"to"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

func ObserveQARequest(status string, elapsed time.Duration) {
	qaRequestsTotal.WithLabelValues(status).Inc()
	qaRequestDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

func DocumentUploaded() {
	documentsUploadedTotal.Inc()
}

func StatusTransition(to string) {
	statusTransitionsTotal.WithLabelValues(to).Inc()
}

func ObserveDependency(service string, elapsed time.Duration) {
	dependencyLatency.WithLabelValues(service).Observe(elapsed.Seconds())
}

func Handler() http.Handler {
	return promhttp.Handler()
}
