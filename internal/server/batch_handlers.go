package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/reader"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

// maxBatchItems bounds the number of images in one batch request.
const maxBatchItems = 10

// BatchReadRequest is the JSON body of /barcodes/batch.
type BatchReadRequest struct {
	Images    []BatchImageRequest `json:"images"`
	Formats   []string            `json:"formats,omitempty"`
	TryHarder *bool               `json:"try_harder,omitempty"`
	Fallback  *bool               `json:"fallback,omitempty"`
}

// BatchImageRequest is one image of a batch. Data is base64 in JSON.
type BatchImageRequest struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// BatchReadResponse is the response of /barcodes/batch.
type BatchReadResponse struct {
	Success bool                   `json:"success"`
	Results []BatchReadResult      `json:"results"`
	Summary BatchProcessingSummary `json:"summary"`
}

// BatchReadResult is the outcome for one image.
type BatchReadResult struct {
	Name     string              `json:"name"`
	Success  bool                `json:"success"`
	Result   *reader.ImageResult `json:"result,omitempty"`
	Error    string              `json:"error,omitempty"`
	Duration float64             `json:"duration_seconds"`
}

// BatchProcessingSummary provides summary statistics for batch processing.
type BatchProcessingSummary struct {
	TotalItems    int     `json:"total_items"`
	Successful    int     `json:"successful"`
	Failed        int     `json:"failed"`
	Symbols       int     `json:"symbols"`
	TotalDuration float64 `json:"total_duration_seconds"`
	AvgItemTime   float64 `json:"avg_item_time_seconds"`
}

// batchHandler reads several base64 encoded images in one request.
func (s *Server) batchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)
	var req BatchReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		recordFailure("batch")
		s.writeErrorResponse(w, fmt.Sprintf("Failed to parse JSON request: %v", err), processingStatusOr(err, http.StatusBadRequest))
		return
	}
	if len(req.Images) == 0 {
		recordFailure("batch")
		s.writeErrorResponse(w, "No images provided in batch request", http.StatusBadRequest)
		return
	}
	if len(req.Images) > maxBatchItems {
		recordFailure("batch")
		s.writeErrorResponse(w, fmt.Sprintf("Batch size too large (maximum %d items)", maxBatchItems), http.StatusBadRequest)
		return
	}

	formats, err := barcode.ParseFormats(req.Formats)
	if err != nil {
		recordFailure("batch")
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	rd, err := s.readerForRequest(&RequestConfig{Formats: formats, TryHarder: req.TryHarder, Fallback: req.Fallback})
	if err != nil {
		recordFailure("batch")
		s.writeErrorResponse(w, fmt.Sprintf("Failed to create reader: %v", err), http.StatusInternalServerError)
		return
	}

	start := time.Now()
	results, summary := s.processBatchRequest(r, rd, req.Images)
	summary.TotalDuration = time.Since(start).Seconds()
	summary.AvgItemTime = summary.TotalDuration / float64(summary.TotalItems)

	scanRequestsTotal.WithLabelValues("batch", "success").Inc()
	scanProcessingDuration.WithLabelValues("batch").Observe(summary.TotalDuration)

	s.writeJSON(w, http.StatusOK, BatchReadResponse{
		Success: summary.Failed == 0,
		Results: results,
		Summary: summary,
	})
}

// processBatchRequest reads every image in order. A failed item does not
// stop the batch; a cancelled request marks the remaining items failed.
func (s *Server) processBatchRequest(r *http.Request, rd *reader.Reader, images []BatchImageRequest) ([]BatchReadResult, BatchProcessingSummary) {
	results := make([]BatchReadResult, 0, len(images))
	summary := BatchProcessingSummary{TotalItems: len(images)}

	for _, item := range images {
		result := s.processBatchImage(r, rd, item)
		results = append(results, result)
		if result.Success {
			summary.Successful++
			summary.Symbols += len(result.Result.Symbols)
		} else {
			summary.Failed++
		}
	}
	return results, summary
}

// processBatchImage reads a single image of a batch request.
func (s *Server) processBatchImage(r *http.Request, rd *reader.Reader, item BatchImageRequest) BatchReadResult {
	result := BatchReadResult{Name: item.Name}

	if len(item.Data) == 0 {
		result.Error = "No image data provided"
		return result
	}
	uploadSizeBytes.Observe(float64(len(item.Data)))

	img, _, err := utils.DecodeImageBytes(item.Data)
	if err != nil {
		result.Error = fmt.Sprintf("Failed to decode image: %v", err)
		return result
	}
	if err := utils.ValidateImageConstraints(img, utils.DefaultImageConstraints()); err != nil {
		result.Error = err.Error()
		return result
	}

	start := time.Now()
	res, err := rd.Read(r.Context(), img)
	result.Duration = time.Since(start).Seconds()
	if err != nil {
		result.Error = fmt.Sprintf("Barcode reading failed: %v", err)
		return result
	}
	res.File = item.Name
	recordImage("batch", res)

	result.Success = true
	result.Result = res
	return result
}

// processingStatusOr returns the status for size errors and fallback
// otherwise.
func processingStatusOr(err error, fallback int) int {
	if status := processingStatus(err); status != http.StatusInternalServerError {
		return status
	}
	return fallback
}
