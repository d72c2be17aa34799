package testutil

import (
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// ExpectedSymbol is a symbol rendered into a scene.
type ExpectedSymbol struct {
	Format string          `json:"format"`
	Value  string          `json:"value"`
	Bounds image.Rectangle `json:"bounds"`
}

// Scene is a synthetic test image plus the symbols drawn into it.
type Scene struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	ImageFile   string           `json:"image_file,omitempty"`
	Symbols     []ExpectedSymbol `json:"symbols"`
	Image       image.Image      `json:"-"`
}

// Values returns the payloads of the scene's symbols in drawing order.
func (s Scene) Values() []string {
	out := make([]string, len(s.Symbols))
	for i, sym := range s.Symbols {
		out[i] = sym.Value
	}
	return out
}

// QRScene is one QR code on a white page.
func QRScene(t *testing.T) Scene {
	t.Helper()
	qr := MustQRCode(t, "barscan", 240)
	img := Place(Canvas(480, 400), qr, 120, 80)
	return Scene{
		Name:        "single_qr",
		Description: "One QR code centered on a white page",
		Symbols: []ExpectedSymbol{
			{Format: "QRCODE", Value: "barscan", Bounds: image.Rect(120, 80, 360, 320)},
		},
		Image: img,
	}
}

// TwoQRScene holds two QR codes side by side. An engine that returns one
// symbol per symbology finds at most one of them in the full image.
func TwoQRScene(t *testing.T) Scene {
	t.Helper()
	left := MustQRCode(t, "alpha", 300)
	right := MustQRCode(t, "beta", 300)
	img := Canvas(900, 420)
	img = Place(img, left, 30, 60)
	img = Place(img, right, 570, 60)
	return Scene{
		Name:        "two_qr",
		Description: "Two QR codes far enough apart to be separate regions",
		Symbols: []ExpectedSymbol{
			{Format: "QRCODE", Value: "alpha", Bounds: image.Rect(30, 60, 330, 360)},
			{Format: "QRCODE", Value: "beta", Bounds: image.Rect(570, 60, 870, 360)},
		},
		Image: img,
	}
}

// Code128Scene is one Code 128 symbol on a white page.
func Code128Scene(t *testing.T) Scene {
	t.Helper()
	bar := MustCode128(t, "BARSCAN-128", 360, 120)
	b := bar.Bounds()
	img := Place(Canvas(b.Dx()+120, 320), bar, 60, 100)
	return Scene{
		Name:        "single_code128",
		Description: "One Code 128 symbol on a white page",
		Symbols: []ExpectedSymbol{
			{Format: "CODE128", Value: "BARSCAN-128", Bounds: image.Rect(60, 100, 60+b.Dx(), 100+b.Dy())},
		},
		Image: img,
	}
}

// BlankScene is a white page without symbols.
func BlankScene() Scene {
	return Scene{
		Name:        "blank",
		Description: "White page without symbols",
		Symbols:     []ExpectedSymbol{},
		Image:       Canvas(320, 240),
	}
}

// WriteScene saves the scene image as <name>.png and its manifest as
// <name>.json in dir, and returns the image path.
func WriteScene(t *testing.T, dir string, s Scene) string {
	t.Helper()
	require.NoError(t, EnsureDir(dir))

	imgPath := filepath.Join(dir, s.Name+".png")
	SaveImage(t, s.Image, imgPath)

	s.ImageFile = filepath.Base(imgPath)
	data, err := json.MarshalIndent(s, "", "  ")
	require.NoError(t, err, "Failed to marshal scene manifest")
	require.NoError(t, os.WriteFile(filepath.Join(dir, s.Name+".json"), data, 0o600))
	return imgPath
}

// LoadScene reads a manifest written by WriteScene and its image.
func LoadScene(t *testing.T, manifest string) Scene {
	t.Helper()

	data, err := os.ReadFile(manifest) //nolint:gosec // G304: Reading test fixture files with controlled paths
	require.NoError(t, err, "Failed to read scene manifest: %s", manifest)

	var s Scene
	require.NoError(t, json.Unmarshal(data, &s), "Failed to unmarshal scene manifest")
	s.Image = LoadImage(t, filepath.Join(filepath.Dir(manifest), s.ImageFile))
	return s
}
