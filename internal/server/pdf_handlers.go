package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/MeKo-Tech/barscan/internal/pdf"
)

// PDFResponse is returned by /barcodes/pdf.
type PDFResponse struct {
	Success bool                `json:"success"`
	Result  *pdf.DocumentResult `json:"result"`
}

// pdfHandler reads the barcodes in the images embedded in an uploaded PDF.
func (s *Server) pdfHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	tempPath, name, ok := s.parsePdfRequest(w, r)
	if !ok {
		recordFailure("pdf")
		return
	}
	defer func() { _ = os.Remove(tempPath) }()

	reqConfig, err := parseRequestConfig(r)
	if err != nil {
		recordFailure("pdf")
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	rd, err := s.readerForRequest(reqConfig)
	if err != nil {
		recordFailure("pdf")
		s.writeErrorResponse(w, fmt.Sprintf("Failed to create reader: %v", err), http.StatusInternalServerError)
		return
	}

	var creds *pdf.PasswordCredentials
	if pw := r.FormValue("password"); pw != "" {
		creds = &pdf.PasswordCredentials{UserPassword: pw}
	}
	processor := pdf.NewProcessorWithConfig(rd, s.processorConfig())

	start := time.Now()
	doc, err := processor.ProcessFileWithCredentials(r.Context(), tempPath, r.FormValue("pages"), creds)
	duration := time.Since(start)
	if err != nil {
		recordFailure("pdf")
		status := processingStatus(err)
		if pdf.IsPasswordError(err) {
			status = http.StatusUnauthorized
		}
		s.writeErrorResponse(w, fmt.Sprintf("PDF processing failed: %v", err), status)
		return
	}
	doc.Filename = name

	scanRequestsTotal.WithLabelValues("pdf", "success").Inc()
	scanProcessingDuration.WithLabelValues("pdf").Observe(duration.Seconds())
	for _, img := range doc.ImageResults() {
		recordImage("pdf", img)
	}

	switch format := requestFormat(r); format {
	case "", "json":
		s.writeJSON(w, http.StatusOK, PDFResponse{Success: true, Result: doc})
	default:
		s.writeFormatted(w, format, doc.ImageResults()...)
	}
}

// processorConfig returns the PDF settings for request processing. The
// server never prompts for passwords.
func (s *Server) processorConfig() *pdf.ProcessorConfig {
	cfg := s.pdfConfig
	cfg.AllowPasswordPrompt = false
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	return &cfg
}

// parsePdfRequest stores the "pdf" field of a multipart upload in a
// temporary file. On failure it writes the error response and returns
// false.
func (s *Server) parsePdfRequest(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		}
		return "", "", false
	}

	file, header, err := r.FormFile("pdf")
	if err != nil {
		s.writeErrorResponse(w, "No PDF file provided", http.StatusBadRequest)
		return "", "", false
	}
	defer func() { _ = file.Close() }()

	path, size, err := writeTempPDF(file)
	if err != nil {
		s.writeErrorResponse(w, "Failed to store PDF upload", http.StatusInternalServerError)
		return "", "", false
	}
	uploadSizeBytes.Observe(float64(size))
	return path, filepath.Base(header.Filename), true
}

// writeTempPDF copies src into a new temporary file and returns its path.
func writeTempPDF(src io.Reader) (string, int64, error) {
	tmp, err := os.CreateTemp("", "barscan-upload-*.pdf")
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", 0, err
	}
	return tmp.Name(), n, nil
}
