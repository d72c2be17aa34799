package testutil

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/barscan/internal/synthetic"
)

// Renderers shared with non-test code.
var (
	QRCode       = synthetic.QRCode
	Code128      = synthetic.Code128
	Code93       = synthetic.Code93
	Canvas       = synthetic.Canvas
	Place        = synthetic.Place
	Rotate       = synthetic.Rotate
	HollowSquare = synthetic.HollowSquare
)

// MustQRCode is QRCode for tests.
func MustQRCode(t *testing.T, text string, size int) image.Image {
	t.Helper()
	img, err := QRCode(text, size)
	require.NoError(t, err)
	return img
}

// MustCode128 is Code128 for tests.
func MustCode128(t *testing.T, text string, width, height int) image.Image {
	t.Helper()
	img, err := Code128(text, width, height)
	require.NoError(t, err)
	return img
}

// EncodePNG returns img as PNG bytes.
func EncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// SaveImage saves an image as PNG to the specified path.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	dir := filepath.Dir(path)
	require.NoError(t, EnsureDir(dir), "Failed to create directory %s", dir)
	require.NoError(t, os.WriteFile(path, EncodePNG(t, img), 0o600), "Failed to write %s", path)
}

// LoadImage loads an image from the specified path.
func LoadImage(t *testing.T, path string) image.Image {
	t.Helper()

	file, err := os.Open(path) //nolint:gosec // G304: Test file reading with controlled path
	require.NoError(t, err, "Failed to open image file %s", path)
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	require.NoError(t, err, "Failed to decode image")

	return img
}
