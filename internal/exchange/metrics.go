package exchange

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// APIRequestLatency - время вызова API биржи (включая ожидание лимитера)
var APIRequestLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "bitcharge",
		Subsystem: "exchange",
		Name:      "request_duration_seconds",
		Help:      "Duration of exchange API calls in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	},
	[]string{"endpoint"},
)

// APIRequests - количество вызовов API по результату
var APIRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "bitcharge",
		Subsystem: "exchange",
		Name:      "requests_total",
		Help:      "Total number of exchange API calls by result",
	},
	[]string{"endpoint", "result"}, // result: ok, connection, parse, backend, unknown_status
)

func observeRequest(endpoint string, started time.Time, err error) {
	APIRequestLatency.WithLabelValues(endpoint).Observe(time.Since(started).Seconds())

	result := "ok"
	if err != nil {
		result = KindOf(err).String()
	}
	APIRequests.WithLabelValues(endpoint, result).Inc()
}
