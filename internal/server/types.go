package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/detector"
	"github.com/MeKo-Tech/barscan/internal/pdf"
	"github.com/MeKo-Tech/barscan/internal/reader"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	backend      barcode.Backend
	readerOpts   reader.Options
	detectorOpts detector.Options
	pdfConfig    pdf.ProcessorConfig
	corsOrigin   string
	maxUploadMB  int64
	timeoutSec   int
	overlayColor string
	rateLimiter  *RateLimiter
}

// RateLimitConfig holds rate limiting configuration. Zero limits are not
// enforced.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64 // bytes
}

// Config holds server configuration.
type Config struct {
	Host         string
	Port         int
	CORSOrigin   string
	MaxUploadMB  int64
	TimeoutSec   int
	OverlayColor string
	// Backend is the decoder name passed to barcode.NewBackend.
	Backend   string
	Reader    reader.Options
	Detector  detector.Options
	PDF       pdf.ProcessorConfig
	RateLimit RateLimitConfig
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string   `json:"status"`
	Version string   `json:"version,omitempty"`
	Formats []string `json:"formats,omitempty"`
	Time    string   `json:"time"`
	Uptime  string   `json:"uptime,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// DetectResponse is returned by /barcodes/detect.
type DetectResponse struct {
	Success    bool                  `json:"success"`
	Width      int                   `json:"width"`
	Height     int                   `json:"height"`
	Regions    []detector.RegionJSON `json:"regions"`
	Processing ProcessingInfo        `json:"processing"`
}

// ReadResponse is returned by /barcodes/read.
type ReadResponse struct {
	Success bool                `json:"success"`
	Result  *reader.ImageResult `json:"result"`
}

// ProcessingInfo reports server side timing.
type ProcessingInfo struct {
	TotalTimeMs int64 `json:"total_time_ms"`
}

var startTime = time.Now()

// NewServer creates a new barcode server instance.
func NewServer(config Config) (*Server, error) {
	name := config.Backend
	if name == "" {
		name = barcode.BackendGozxing
	}
	backend, err := barcode.NewBackend(name)
	if err != nil {
		return nil, err
	}
	return NewServerWithBackend(config, backend)
}

// NewServerWithBackend creates a server that decodes with backend.
func NewServerWithBackend(config Config, backend barcode.Backend) (*Server, error) {
	if backend == nil {
		return nil, errors.New("server: nil backend")
	}
	if err := config.Reader.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reader options: %w", err)
	}
	if err := config.Detector.Validate(); err != nil {
		return nil, fmt.Errorf("invalid detector options: %w", err)
	}
	if config.OverlayColor != "" {
		if _, err := detector.ParseColor(config.OverlayColor); err != nil {
			return nil, err
		}
	}
	if config.MaxUploadMB <= 0 {
		config.MaxUploadMB = 50
	}

	s := &Server{
		backend:      backend,
		readerOpts:   config.Reader,
		detectorOpts: config.Detector,
		pdfConfig:    config.PDF,
		corsOrigin:   config.CORSOrigin,
		maxUploadMB:  config.MaxUploadMB,
		timeoutSec:   config.TimeoutSec,
		overlayColor: config.OverlayColor,
	}
	if config.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiter(
			config.RateLimit.RequestsPerMinute,
			config.RateLimit.RequestsPerHour,
			config.RateLimit.MaxRequestsPerDay,
			config.RateLimit.MaxDataPerDay,
		)
	}
	return s, nil
}

// PruneIdleClients drops rate limiter state of clients idle for longer
// than idle. It is a no-op when rate limiting is disabled.
func (s *Server) PruneIdleClients(idle time.Duration) int {
	if s.rateLimiter == nil {
		return 0
	}
	return s.rateLimiter.Prune(idle)
}

// Close releases server resources.
func (s *Server) Close() error {
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/barcodes/detect", s.corsMiddleware(s.rateLimitMiddleware(s.timeoutMiddleware(s.detectHandler))))
	mux.HandleFunc("/barcodes/read", s.corsMiddleware(s.rateLimitMiddleware(s.timeoutMiddleware(s.readHandler))))
	mux.HandleFunc("/barcodes/pdf", s.corsMiddleware(s.rateLimitMiddleware(s.timeoutMiddleware(s.pdfHandler))))
	mux.HandleFunc("/barcodes/batch", s.corsMiddleware(s.rateLimitMiddleware(s.timeoutMiddleware(s.batchHandler))))
	mux.HandleFunc("/ws/read", s.corsMiddleware(s.rateLimitMiddleware(s.readWebSocketHandler)))
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns a mux with all routes installed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}
