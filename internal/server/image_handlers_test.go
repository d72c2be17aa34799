package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/detector"
	"github.com/MeKo-Tech/barscan/internal/testutil"
)

func TestDetectHandler_JSON(t *testing.T) {
	s := newTestServer(t, nil)
	img := testutil.HollowSquare(400, 300, 100, 80, 120, 40)
	req := uploadRequest(t, "/barcodes/detect", "image", "square.png", testutil.EncodePNG(t, img), nil)
	w := httptest.NewRecorder()

	s.detectHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp DetectResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 400, resp.Width)
	assert.Equal(t, 300, resp.Height)
	require.NotEmpty(t, resp.Regions)
}

func TestDetectHandler_BlankImageHasNoRegions(t *testing.T) {
	s := newTestServer(t, nil)
	req := uploadRequest(t, "/barcodes/detect", "image", "blank.png", blankPNG(t), nil)
	w := httptest.NewRecorder()

	s.detectHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp DetectResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Regions)
}

func TestDetectHandler_Overlay(t *testing.T) {
	s := newTestServer(t, nil)
	req := uploadRequest(t, "/barcodes/detect", "image", "qr.png", qrPNG(t),
		map[string]string{"format": "overlay", "color": "#00ff00"})
	w := httptest.NewRecorder()

	s.detectHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	ov, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 480, ov.Bounds().Dx())
	assert.Equal(t, 400, ov.Bounds().Dy())
}

func TestDetectHandler_BadOverlayColor(t *testing.T) {
	s := newTestServer(t, nil)
	req := uploadRequest(t, "/barcodes/detect", "image", "qr.png", qrPNG(t),
		map[string]string{"format": "overlay", "color": "not-a-color"})
	w := httptest.NewRecorder()

	s.detectHandler(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDetectHandler_Errors(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name   string
		req    func(t *testing.T) *http.Request
		status int
	}{
		{
			name: "method not allowed",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodGet, "/barcodes/detect", nil)
			},
			status: http.StatusMethodNotAllowed,
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/barcodes/detect", strings.NewReader("{}"))
			},
			status: http.StatusBadRequest,
		},
		{
			name: "missing image field",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/barcodes/detect", "file", "x.png", blankPNG(t), nil)
			},
			status: http.StatusBadRequest,
		},
		{
			name: "undecodable image",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/barcodes/detect", "image", "x.png", []byte("not an image"), nil)
			},
			status: http.StatusBadRequest,
		},
		{
			name: "image too small",
			req: func(t *testing.T) *http.Request {
				tiny := testutil.EncodePNG(t, testutil.Canvas(4, 4))
				return uploadRequest(t, "/barcodes/detect", "image", "x.png", tiny, nil)
			},
			status: http.StatusBadRequest,
		},
		{
			name: "bad min area",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/barcodes/detect", "image", "x.png", blankPNG(t), map[string]string{"min_area": "lots"})
			},
			status: http.StatusBadRequest,
		},
		{
			name: "negative quiet distance",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/barcodes/detect", "image", "x.png", blankPNG(t), map[string]string{"quiet_distance": "-1"})
			},
			status: http.StatusBadRequest,
		},
		{
			name: "unknown merge strategy",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/barcodes/detect", "image", "x.png", blankPNG(t), map[string]string{"merge": "magic"})
			},
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			s.detectHandler(w, tt.req(t))
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestDetectorOptionsForRequest(t *testing.T) {
	base := detector.DefaultOptions()
	req := uploadRequest(t, "/barcodes/detect", "", "", nil, map[string]string{
		"quiet_distance": "4",
		"min_area":       "500",
		"fast":           "true",
	})

	opts, err := detectorOptionsForRequest(req, base)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, opts.QuietDistance, 1e-9)
	assert.InDelta(t, 500.0, opts.MinArea, 1e-9)
	assert.True(t, opts.Fast)
	assert.Equal(t, base.Merge, opts.Merge)
	assert.Equal(t, base.Threshold, opts.Threshold)
}

func TestReadHandler_DecodesQRCode(t *testing.T) {
	s := newTestServer(t, nil)
	req := uploadRequest(t, "/barcodes/read", "image", "qr.png", qrPNG(t), nil)
	w := httptest.NewRecorder()

	s.readHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp ReadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Result)
	assert.Equal(t, "qr.png", resp.Result.File)
	assert.Equal(t, []string{"barscan"}, resp.Result.Values())
	assert.Equal(t, barcode.FormatQR, resp.Result.Symbols[0].Type)
}

func TestReadHandler_OutputFormats(t *testing.T) {
	backend := &fakeBackend{results: []barcode.Result{fixedResult("hello")}}
	s := newFakeServer(t, backend, nil)

	t.Run("csv", func(t *testing.T) {
		req := uploadRequest(t, "/barcodes/read?format=csv", "image", "blank.png", blankPNG(t), nil)
		w := httptest.NewRecorder()
		s.readHandler(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), "blank.png,0,QRCODE,hello,10,10,41,41,-1")
	})

	t.Run("text", func(t *testing.T) {
		req := uploadRequest(t, "/barcodes/read", "image", "blank.png", blankPNG(t), map[string]string{"format": "text"})
		w := httptest.NewRecorder()
		s.readHandler(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "# blank.png")
		assert.Contains(t, w.Body.String(), "QRCODE\thello")
	})

	t.Run("unsupported", func(t *testing.T) {
		req := uploadRequest(t, "/barcodes/read?format=xml", "image", "blank.png", blankPNG(t), nil)
		w := httptest.NewRecorder()
		s.readHandler(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReadHandler_PassesOverridesToBackend(t *testing.T) {
	backend := &fakeBackend{}
	s := newFakeServer(t, backend, nil)
	req := uploadRequest(t, "/barcodes/read", "image", "blank.png", blankPNG(t), map[string]string{
		"formats":    "ean13,upca",
		"try_harder": "true",
		"fallback":   "false",
	})
	w := httptest.NewRecorder()

	s.readHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	call := backend.lastCall()
	assert.Equal(t, []barcode.Format{barcode.FormatEAN13, barcode.FormatUPCA}, call.Formats)
	assert.True(t, call.TryHarder)

	var resp ReadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Result.Symbols)
	assert.Empty(t, resp.Result.Regions)
}

func TestReadHandler_Errors(t *testing.T) {
	t.Run("bad formats", func(t *testing.T) {
		s := newTestServer(t, nil)
		req := uploadRequest(t, "/barcodes/read", "image", "qr.png", qrPNG(t), map[string]string{"formats": "qr,bogus"})
		w := httptest.NewRecorder()
		s.readHandler(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("backend failure", func(t *testing.T) {
		s := newFakeServer(t, &fakeBackend{err: errors.New("engine exploded")}, nil)
		req := uploadRequest(t, "/barcodes/read", "image", "blank.png", blankPNG(t), nil)
		w := httptest.NewRecorder()
		s.readHandler(w, req)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "engine exploded")
	})

	t.Run("upload too large", func(t *testing.T) {
		s := newTestServer(t, func(c *Config) { c.MaxUploadMB = 1 })
		big := bytes.Repeat([]byte{0xff}, 2*1024*1024)
		req := uploadRequest(t, "/barcodes/read", "image", "big.png", big, nil)
		w := httptest.NewRecorder()
		s.readHandler(w, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		s := newTestServer(t, nil)
		w := httptest.NewRecorder()
		s.readHandler(w, httptest.NewRequest(http.MethodGet, "/barcodes/read", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}
