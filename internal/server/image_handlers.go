package server

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/barscan/internal/detector"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

const formatOverlay = "overlay"

// uploadedImage is a decoded multipart image upload.
type uploadedImage struct {
	Name  string
	Image image.Image
	Size  int64
}

// detectHandler returns the candidate regions of an uploaded image.
func (s *Server) detectHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	upload, ok := s.parseImageRequest(w, r)
	if !ok {
		recordFailure("detect")
		return
	}

	opts, err := detectorOptionsForRequest(r, s.detectorOpts)
	if err != nil {
		recordFailure("detect")
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	det, err := detector.NewDetector(opts)
	if err != nil {
		recordFailure("detect")
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	rects := det.DetectImage(upload.Image)
	duration := time.Since(start)

	scanRequestsTotal.WithLabelValues("detect", "success").Inc()
	scanProcessingDuration.WithLabelValues("detect").Observe(duration.Seconds())
	regionsDetected.WithLabelValues("detect").Observe(float64(len(rects)))

	if requestFormat(r) == formatOverlay {
		s.writeOverlay(w, r, upload.Image, rects)
		return
	}

	b := upload.Image.Bounds()
	result := detector.NewDetectionResult(rects, b.Dx(), b.Dy())
	s.writeJSON(w, http.StatusOK, DetectResponse{
		Success:    true,
		Width:      result.Width,
		Height:     result.Height,
		Regions:    result.Regions,
		Processing: ProcessingInfo{TotalTimeMs: duration.Milliseconds()},
	})
}

// readHandler decodes every barcode in an uploaded image.
func (s *Server) readHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	upload, ok := s.parseImageRequest(w, r)
	if !ok {
		recordFailure("read")
		return
	}

	reqConfig, err := parseRequestConfig(r)
	if err != nil {
		recordFailure("read")
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	rd, err := s.readerForRequest(reqConfig)
	if err != nil {
		recordFailure("read")
		s.writeErrorResponse(w, fmt.Sprintf("Failed to create reader: %v", err), http.StatusInternalServerError)
		return
	}

	start := time.Now()
	res, err := rd.Read(r.Context(), upload.Image)
	duration := time.Since(start)
	if err != nil {
		recordFailure("read")
		s.writeErrorResponse(w, fmt.Sprintf("Barcode reading failed: %v", err), processingStatus(err))
		return
	}
	res.File = upload.Name
	recordRead("read", res, duration)

	switch format := requestFormat(r); format {
	case "", "json":
		s.writeJSON(w, http.StatusOK, ReadResponse{Success: true, Result: res})
	default:
		s.writeFormatted(w, format, res)
	}
}

// parseImageRequest reads the "image" field of a multipart upload. On
// failure it writes the error response and returns false.
func (s *Server) parseImageRequest(w http.ResponseWriter, r *http.Request) (*uploadedImage, bool) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		}
		return nil, false
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", http.StatusBadRequest)
		return nil, false
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, "Failed to read image data", http.StatusInternalServerError)
		return nil, false
	}
	uploadSizeBytes.Observe(float64(len(data)))

	img, _, err := utils.DecodeImageBytes(data)
	if err != nil {
		s.writeErrorResponse(w, "Invalid image format", http.StatusBadRequest)
		return nil, false
	}
	if err := utils.ValidateImageConstraints(img, utils.DefaultImageConstraints()); err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return &uploadedImage{Name: header.Filename, Image: img, Size: int64(len(data))}, true
}

// detectorOptionsForRequest applies "quiet_distance", "min_area", "fast"
// and "merge" form values to base.
func detectorOptionsForRequest(r *http.Request, base detector.Options) (detector.Options, error) {
	opts := base
	for name, dst := range map[string]*float64{"quiet_distance": &opts.QuietDistance, "min_area": &opts.MinArea} {
		raw := r.FormValue(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return opts, fmt.Errorf("invalid %s value %q", name, raw)
		}
		*dst = v
	}
	if raw := r.FormValue("fast"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, fmt.Errorf("invalid fast value %q", raw)
		}
		opts.Fast = v
	}
	if raw := r.FormValue("merge"); raw != "" {
		m, err := detector.ParseMergeStrategy(raw)
		if err != nil {
			return opts, err
		}
		opts.Merge = m
	}
	return opts, nil
}

// writeOverlay renders the regions over the image as PNG.
func (s *Server) writeOverlay(w http.ResponseWriter, r *http.Request, img image.Image, rects []detector.CandidateRectangle) {
	vo := detector.DefaultVisualizeOptions()
	vo.Color = s.overlayColor
	if c := strings.TrimSpace(r.FormValue("color")); c != "" {
		vo.Color = c
	}
	ov, err := detector.Visualize(img, rects, vo)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, ov); err != nil {
		slog.Error("Failed to encode overlay", "error", err)
	}
}
