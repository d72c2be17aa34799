package utils

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// ImageConstraints defines size limits for scanned images. A zero limit
// is not enforced.
type ImageConstraints struct {
	MaxWidth  int
	MaxHeight int
	MinWidth  int
	MinHeight int
}

// DefaultImageConstraints returns the default constraints for barcode
// scanning. The maximum bounds the memory a single decoded upload can pin.
func DefaultImageConstraints() ImageConstraints {
	return ImageConstraints{
		MaxWidth:  16384,
		MaxHeight: 16384,
		MinWidth:  8,
		MinHeight: 8,
	}
}

// ValidateImageConstraints checks dimensions against the provided constraints.
func ValidateImageConstraints(img image.Image, constraints ImageConstraints) error {
	if img == nil {
		return &ImageProcessingError{Operation: "validate", Err: errors.New("input image is nil")}
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < constraints.MinWidth || h < constraints.MinHeight {
		return &ImageProcessingError{
			Operation: "validate",
			Err: fmt.Errorf(
				"image too small: %dx%d < %dx%d",
				w, h, constraints.MinWidth, constraints.MinHeight,
			),
		}
	}
	if (constraints.MaxWidth > 0 && w > constraints.MaxWidth) || (constraints.MaxHeight > 0 && h > constraints.MaxHeight) {
		return &ImageProcessingError{
			Operation: "validate",
			Err: fmt.Errorf(
				"image too large: %dx%d > %dx%d",
				w, h, constraints.MaxWidth, constraints.MaxHeight,
			),
		}
	}
	return nil
}

// PadImage surrounds img with a solid border of the given width. Decoders
// need a blank margin around a symbol, which a tight crop may have cut off.
func PadImage(img image.Image, margin int, bg color.Color) (image.Image, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "pad", Err: errors.New("input image is nil")}
	}
	if margin < 0 {
		return nil, &ImageProcessingError{Operation: "pad", Err: fmt.Errorf("invalid margin: %d", margin)}
	}
	b := img.Bounds()
	if margin == 0 {
		return imaging.Clone(img), nil
	}
	background := imaging.New(b.Dx()+2*margin, b.Dy()+2*margin, bg)
	return imaging.Paste(background, img, image.Pt(margin, margin)), nil
}
