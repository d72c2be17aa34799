package support

import (
	"fmt"
	"image"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/barscan/internal/testutil"
)

// aPDFWithQRPages writes a PDF whose pages each embed one QR image. The
// page texts are comma separated.
func (testCtx *TestContext) aPDFWithQRPages(name, texts string) error {
	var pages []image.Image
	for _, text := range splitList(texts) {
		img, err := qrImage(text)
		if err != nil {
			return err
		}
		pages = append(pages, img)
	}
	if len(pages) == 0 {
		return fmt.Errorf("no page texts given for %s", name)
	}
	if err := testutil.WriteImagePDF(testCtx.Path(name), pages...); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func (testCtx *TestContext) aPDFWithABlankPage(name string) error {
	if err := testutil.WriteImagePDF(testCtx.Path(name), testutil.Canvas(320, 240)); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// RegisterPDFSteps registers PDF fixture steps.
func (testCtx *TestContext) RegisterPDFSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a PDF "([^"]*)" with QR code pages "([^"]*)"$`, testCtx.aPDFWithQRPages)
	sc.Step(`^a PDF "([^"]*)" with a blank page$`, testCtx.aPDFWithABlankPage)
}
