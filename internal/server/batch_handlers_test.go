package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/barscan/internal/barcode"
)

func batchRequest(t *testing.T, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/barcodes/batch", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestBatchHandler_MixedItems(t *testing.T) {
	backend := &fakeBackend{results: []barcode.Result{fixedResult("hello")}}
	s := newFakeServer(t, backend, nil)

	req := batchRequest(t, BatchReadRequest{
		Images: []BatchImageRequest{
			{Name: "one.png", Data: blankPNG(t)},
			{Name: "broken.png", Data: []byte("nope")},
			{Name: "empty.png"},
		},
		Formats: []string{"qr"},
	})
	w := httptest.NewRecorder()

	s.batchHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp BatchReadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.Len(t, resp.Results, 3)

	assert.True(t, resp.Results[0].Success)
	assert.Equal(t, "one.png", resp.Results[0].Result.File)
	assert.Equal(t, []string{"hello"}, resp.Results[0].Result.Values())
	assert.False(t, resp.Results[1].Success)
	assert.Contains(t, resp.Results[1].Error, "Failed to decode image")
	assert.Equal(t, "No image data provided", resp.Results[2].Error)

	assert.Equal(t, 3, resp.Summary.TotalItems)
	assert.Equal(t, 1, resp.Summary.Successful)
	assert.Equal(t, 2, resp.Summary.Failed)
	assert.Equal(t, 1, resp.Summary.Symbols)
	assert.Equal(t, []barcode.Format{barcode.FormatQR}, backend.lastCall().Formats)
}

func TestBatchHandler_AllSucceed(t *testing.T) {
	s := newFakeServer(t, &fakeBackend{results: []barcode.Result{fixedResult("x")}}, nil)
	req := batchRequest(t, BatchReadRequest{Images: []BatchImageRequest{
		{Name: "a.png", Data: blankPNG(t)},
		{Name: "b.png", Data: blankPNG(t)},
	}})
	w := httptest.NewRecorder()

	s.batchHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp BatchReadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Summary.Successful)
	assert.Equal(t, 2, resp.Summary.Symbols)
}

func TestBatchHandler_BackendErrorFailsItem(t *testing.T) {
	s := newFakeServer(t, &fakeBackend{err: errors.New("engine exploded")}, nil)
	req := batchRequest(t, BatchReadRequest{Images: []BatchImageRequest{{Name: "a.png", Data: blankPNG(t)}}})
	w := httptest.NewRecorder()

	s.batchHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp BatchReadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Contains(t, resp.Results[0].Error, "engine exploded")
}

func TestBatchHandler_Errors(t *testing.T) {
	s := newFakeServer(t, &fakeBackend{}, nil)

	tooMany := BatchReadRequest{}
	for range maxBatchItems + 1 {
		tooMany.Images = append(tooMany.Images, BatchImageRequest{Name: "x.png", Data: []byte{1}})
	}

	tests := []struct {
		name     string
		req      *http.Request
		status   int
		contains string
	}{
		{"method", httptest.NewRequest(http.MethodGet, "/barcodes/batch", nil), http.StatusMethodNotAllowed, ""},
		{"bad json", httptest.NewRequest(http.MethodPost, "/barcodes/batch", strings.NewReader("{")), http.StatusBadRequest, "Failed to parse JSON"},
		{"no images", batchRequest(t, BatchReadRequest{}), http.StatusBadRequest, "No images"},
		{"too many", batchRequest(t, tooMany), http.StatusBadRequest, "Batch size too large"},
		{"bad formats", batchRequest(t, BatchReadRequest{
			Images:  []BatchImageRequest{{Name: "a", Data: []byte{1}}},
			Formats: []string{"bogus"},
		}), http.StatusBadRequest, "unknown barcode format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			s.batchHandler(w, tt.req)
			assert.Equal(t, tt.status, w.Code)
			if tt.contains != "" {
				assert.Contains(t, w.Body.String(), tt.contains)
			}
		})
	}
}
