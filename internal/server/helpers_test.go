package server

import (
	"bytes"
	"context"
	"image"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/detector"
	"github.com/MeKo-Tech/barscan/internal/pdf"
	"github.com/MeKo-Tech/barscan/internal/reader"
	"github.com/MeKo-Tech/barscan/internal/testutil"
)

// fakeBackend returns fixed results and records the options it saw.
type fakeBackend struct {
	mu      sync.Mutex
	results []barcode.Result
	err     error
	calls   []barcode.Options
}

func (f *fakeBackend) Decode(ctx context.Context, _ image.Image, opts barcode.Options) ([]barcode.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, opts)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) == 0 {
		return nil, barcode.ErrNotFound
	}
	return append([]barcode.Result(nil), f.results...), nil
}

func (f *fakeBackend) lastCall() barcode.Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return barcode.Options{}
	}
	return f.calls[len(f.calls)-1]
}

// fixedResult is a QR symbol at (10,10) with payload value.
func fixedResult(value string) barcode.Result {
	return barcode.Result{
		Type:   barcode.FormatQR,
		Value:  value,
		Points: barcode.Polygon{{X: 10, Y: 10}, {X: 50, Y: 10}, {X: 50, Y: 50}, {X: 10, Y: 50}},
		BBox:   image.Rect(10, 10, 51, 51),
	}
}

func testConfig() Config {
	return Config{
		Host:        "localhost",
		Port:        8080,
		CORSOrigin:  "*",
		MaxUploadMB: 5,
		Reader:      reader.DefaultOptions(),
		Detector:    detector.DefaultOptions(),
		PDF:         *pdf.DefaultProcessorConfig(),
	}
}

// newTestServer builds a server with the gozxing backend. mutate may
// adjust the configuration first.
func newTestServer(t *testing.T, mutate func(*Config)) *Server {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewServer(cfg)
	require.NoError(t, err)
	return s
}

// newFakeServer builds a server that decodes with backend.
func newFakeServer(t *testing.T, backend barcode.Backend, mutate func(*Config)) *Server {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewServerWithBackend(cfg, backend)
	require.NoError(t, err)
	return s
}

// multipartBody encodes one file field plus plain form fields.
func multipartBody(t *testing.T, field, filename string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		part, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

// uploadRequest builds a multipart POST to path.
func uploadRequest(t *testing.T, path, field, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	body, contentType := multipartBody(t, field, filename, data, fields)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	return req
}

// qrPNG returns the single QR scene as PNG bytes.
func qrPNG(t *testing.T) []byte {
	t.Helper()
	return testutil.EncodePNG(t, testutil.QRScene(t).Image)
}

// blankPNG returns a white page as PNG bytes.
func blankPNG(t *testing.T) []byte {
	t.Helper()
	return testutil.EncodePNG(t, testutil.BlankScene().Image)
}
