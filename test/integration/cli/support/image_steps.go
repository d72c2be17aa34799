package support

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"
	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/barscan/internal/synthetic"
)

// qrImage renders text as a QR code on a white 480x400 page.
func qrImage(text string) (image.Image, error) {
	qr, err := synthetic.QRCode(text, 240)
	if err != nil {
		return nil, err
	}
	return synthetic.Place(synthetic.Canvas(480, 400), qr, 120, 80), nil
}

// code128Image renders text as a Code 128 symbol on a white page.
func code128Image(text string) (image.Image, error) {
	sym, err := synthetic.Code128(text, 300, 100)
	if err != nil {
		return nil, err
	}
	return synthetic.Place(synthetic.Canvas(500, 300), sym, 100, 100), nil
}

func (testCtx *TestContext) saveImage(name string, img image.Image) error {
	path := testCtx.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", name, err)
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	return nil
}

func (testCtx *TestContext) aQRCodeImageEncoding(name, text string) error {
	img, err := qrImage(text)
	if err != nil {
		return err
	}
	return testCtx.saveImage(name, img)
}

func (testCtx *TestContext) aCode128ImageEncoding(name, text string) error {
	img, err := code128Image(text)
	if err != nil {
		return err
	}
	return testCtx.saveImage(name, img)
}

func (testCtx *TestContext) aBlankImage(name string) error {
	return testCtx.saveImage(name, synthetic.Canvas(320, 240))
}

// aSquareImage writes a hollow square that detection reports as exactly
// one region.
func (testCtx *TestContext) aSquareImage(name string) error {
	return testCtx.saveImage(name, synthetic.HollowSquare(400, 300, 100, 80, 120, 40))
}

// aDirectoryWithQRImages fills dir with n QR images encoding code-1..code-n.
func (testCtx *TestContext) aDirectoryWithQRImages(dir string, n int) error {
	for i := 1; i <= n; i++ {
		name := filepath.Join(dir, fmt.Sprintf("code-%d.png", i))
		if err := testCtx.aQRCodeImageEncoding(name, fmt.Sprintf("code-%d", i)); err != nil {
			return err
		}
	}
	return nil
}

func (testCtx *TestContext) aCorruptImage(name string) error {
	return os.WriteFile(testCtx.Path(name), []byte("not really an image"), 0o600)
}

func (testCtx *TestContext) theDirectoryShouldContainPNGFiles(dir string, n int) error {
	entries, err := os.ReadDir(testCtx.Path(dir))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dir, err)
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".png") {
			count++
		}
	}
	if count != n {
		return fmt.Errorf("directory %s holds %d PNG files, want %d", dir, count, n)
	}
	return nil
}

func (testCtx *TestContext) theImageShouldBeSized(name string, w, h int) error {
	img, err := imaging.Open(testCtx.Path(name))
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
		return fmt.Errorf("image %s is %dx%d, want %dx%d", name, b.Dx(), b.Dy(), w, h)
	}
	return nil
}

// RegisterImageSteps registers image fixture and detection steps.
func (testCtx *TestContext) RegisterImageSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a QR code image "([^"]*)" encoding "([^"]*)"$`, testCtx.aQRCodeImageEncoding)
	sc.Step(`^a Code 128 image "([^"]*)" encoding "([^"]*)"$`, testCtx.aCode128ImageEncoding)
	sc.Step(`^a blank image "([^"]*)"$`, testCtx.aBlankImage)
	sc.Step(`^a square image "([^"]*)"$`, testCtx.aSquareImage)
	sc.Step(`^a corrupt image "([^"]*)"$`, testCtx.aCorruptImage)
	sc.Step(`^a directory "([^"]*)" with (\d+) QR code images$`, testCtx.aDirectoryWithQRImages)

	sc.Step(`^the directory "([^"]*)" should contain (\d+) PNG files?$`, testCtx.theDirectoryShouldContainPNGFiles)
	sc.Step(`^the image "([^"]*)" should be (\d+)x(\d+)$`, testCtx.theImageShouldBeSized)
}
