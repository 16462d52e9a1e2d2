package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "newswise_query_duration_seconds",
			Help:    "Query processing duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"intent"},
	)

	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newswise_query_total",
			Help: "Total number of queries processed",
		},
		[]string{"intent"},
	)

	ConfidenceScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "newswise_confidence_score",
			Help:    "Response confidence scores",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	ExternalSearchTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newswise_external_search_total",
			Help: "Total number of supplemental news searches",
		},
	)

	NewsStored = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newswise_news_stored_total",
			Help: "Total news items stored by ingestion",
		},
	)

	ActiveWebsockets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "newswise_active_websockets",
			Help: "Currently open chat websocket connections",
		},
	)
)

func Init() {
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueryTotal)
	prometheus.MustRegister(ConfidenceScore)
	prometheus.MustRegister(ExternalSearchTotal)
	prometheus.MustRegister(NewsStored)
	prometheus.MustRegister(ActiveWebsockets)
}

// ObserveQuery records one processed query. Safe to call whether or
// not Init has registered the collectors.
func ObserveQuery(intent string, confidence, seconds float64) {
	if intent == "" {
		intent = "unknown"
	}
	QueryTotal.WithLabelValues(intent).Inc()
	QueryDuration.WithLabelValues(intent).Observe(seconds)
	ConfidenceScore.Observe(confidence)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
