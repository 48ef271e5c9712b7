// Package metrics is the reference for the predictor's Prometheus metrics.
// Metrics are defined with promauto next to the code that records them
// (upstream, ratelimit, pagination, prediction, users); this package only
// serves them and documents the catalogue.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the default registry, where promauto registers every metric.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Upstream (pkg/upstream):
//   - wingo_upstream_requests_total{game, status} (Counter): page requests by HTTP status or failure class
//   - wingo_upstream_request_duration_seconds{game} (Histogram): page request latency
//   - wingo_upstream_errors_total{class} (Counter): failed page fetches by class
//
// Throttling (pkg/ratelimit):
//   - wingo_upstream_throttled_total (Counter): requests that waited for the limiter
//   - wingo_upstream_throttle_wait_seconds (Histogram): time spent waiting
//
// Aggregation (pkg/pagination):
//   - wingo_aggregations_total{game, outcome} (Counter): success, upstream, insufficient, invalid_game
//   - wingo_aggregation_duration_seconds{game} (Histogram): wall clock of one fan-out
//   - wingo_aggregated_records{game} (Histogram): merged records before truncation
//
// Prediction (pkg/prediction):
//   - wingo_predictions_total{game, outcome} (Counter)
//
// Users (pkg/users):
//   - wingo_user_operations_total{operation, outcome} (Counter)
//
// Example Prometheus Queries:
//
//   # Share of aggregations failing upstream
//   sum(rate(wingo_aggregations_total{outcome="upstream"}[5m])) / sum(rate(wingo_aggregations_total[5m]))
//
//   # P95 page latency
//   histogram_quantile(0.95, rate(wingo_upstream_request_duration_seconds_bucket[5m]))
