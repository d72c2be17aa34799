package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MeKo-Tech/barscan/internal/reader"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barscan_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "barscan_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Processing metrics
	scanRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barscan_scan_requests_total",
			Help: "Total number of detect and read requests",
		},
		[]string{"type", "status"}, // type: detect, read, pdf, batch, websocket
	)

	scanProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "barscan_processing_duration_seconds",
			Help:    "Detection and decoding duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"type"},
	)

	symbolsDecoded = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "barscan_symbols_decoded",
			Help:    "Number of symbols decoded per image",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50},
		},
		[]string{"type"},
	)

	regionsDetected = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "barscan_regions_detected",
			Help:    "Number of candidate regions detected per image",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
		[]string{"type"},
	)

	fallbackSymbolsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barscan_fallback_symbols_total",
			Help: "Symbols decoded from detected regions after the full image decode missed them",
		},
		[]string{"type"},
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barscan_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // type: minute, hour, requests, data
	)

	// File upload metrics
	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "barscan_upload_size_bytes",
			Help:    "Size of uploaded files in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "barscan_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barscan_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)

// recordRead records the metrics of one reader result.
func recordRead(kind string, res *reader.ImageResult, d time.Duration) {
	scanRequestsTotal.WithLabelValues(kind, "success").Inc()
	scanProcessingDuration.WithLabelValues(kind).Observe(d.Seconds())
	recordImage(kind, res)
}

// recordImage records per-image counts without counting a request.
func recordImage(kind string, res *reader.ImageResult) {
	if res == nil {
		return
	}
	symbolsDecoded.WithLabelValues(kind).Observe(float64(len(res.Symbols)))
	regionsDetected.WithLabelValues(kind).Observe(float64(len(res.Regions)))
	fallback := 0
	for _, sym := range res.Symbols {
		if sym.Region != reader.FullImage {
			fallback++
		}
	}
	if fallback > 0 {
		fallbackSymbolsTotal.WithLabelValues(kind).Add(float64(fallback))
	}
}

// recordFailure counts a failed request.
func recordFailure(kind string) {
	scanRequestsTotal.WithLabelValues(kind, "error").Inc()
}
