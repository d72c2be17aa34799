package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/reader"
	"github.com/MeKo-Tech/barscan/internal/version"
)

// RequestConfig holds per-request overrides of the reader options.
type RequestConfig struct {
	Formats   []barcode.Format
	TryHarder *bool
	Fallback  *bool
}

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	formats := barcode.SupportedFormats()
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = f.String()
	}
	response := HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Formats: names,
		Time:    time.Now().UTC().Format(time.RFC3339),
		Uptime:  time.Since(startTime).Truncate(time.Second).String(),
	}
	s.writeJSON(w, http.StatusOK, response)
}

// parseRequestConfig reads "formats", "try_harder" and "fallback" from the
// form or query string.
func parseRequestConfig(r *http.Request) (*RequestConfig, error) {
	cfg := &RequestConfig{}

	if raw := r.FormValue("formats"); raw != "" {
		formats, err := barcode.ParseFormats([]string{raw})
		if err != nil {
			return nil, err
		}
		cfg.Formats = formats
	}
	for name, dst := range map[string]**bool{"try_harder": &cfg.TryHarder, "fallback": &cfg.Fallback} {
		raw := r.FormValue(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q", name, raw)
		}
		*dst = &v
	}
	return cfg, nil
}

// readerForRequest builds a reader with the request overrides applied on
// top of the server defaults.
func (s *Server) readerForRequest(cfg *RequestConfig) (*reader.Reader, error) {
	opts := s.readerOpts
	if cfg != nil {
		if len(cfg.Formats) > 0 {
			opts.Formats = cfg.Formats
		}
		if cfg.TryHarder != nil {
			opts.TryHarder = *cfg.TryHarder
		}
		if cfg.Fallback != nil {
			opts.Fallback = *cfg.Fallback
		}
	}
	return reader.New(s.backend, opts)
}

// requestFormat returns the output format from the form or query string.
func requestFormat(r *http.Request) string {
	format := r.FormValue("format")
	if format == "" {
		format = r.URL.Query().Get("format")
	}
	return strings.ToLower(format)
}

// writeFormatted writes results in a non-JSON output format.
func (s *Server) writeFormatted(w http.ResponseWriter, format string, results ...*reader.ImageResult) {
	body, err := reader.FormatResults(results, format)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	switch format {
	case reader.OutputCSV:
		w.Header().Set("Content-Type", "text/csv")
	case reader.OutputYAML:
		w.Header().Set("Content-Type", "application/yaml")
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	if _, err := w.Write([]byte(body)); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

// writeJSON writes v as a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, ErrorResponse{Success: false, Error: message})
}

// processingStatus maps a processing error to an HTTP status.
func processingStatus(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
