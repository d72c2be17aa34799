package detector

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
)

// ErrInvalidRaster is returned when raster dimensions and samples disagree.
var ErrInvalidRaster = errors.New("detector: invalid raster")

// Raster is a single-channel 8-bit image stored row-major. Detection never
// modifies it.
type Raster struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewRaster validates and wraps raw samples. The slice is not copied.
func NewRaster(width, height int, pix []uint8) (Raster, error) {
	if width < 0 || height < 0 {
		return Raster{}, fmt.Errorf("%w: negative size %dx%d", ErrInvalidRaster, width, height)
	}
	if len(pix) != width*height {
		return Raster{}, fmt.Errorf("%w: %d samples for %dx%d", ErrInvalidRaster, len(pix), width, height)
	}
	return Raster{Width: width, Height: height, Pix: pix}, nil
}

// RasterFromImage converts any image to luma samples using ITU-R 601
// weights. The result is anchored at the origin regardless of img bounds.
// A tightly packed *image.Gray is shared, not copied; a sub-image keeps
// only its own rows.
func RasterFromImage(img image.Image) Raster {
	if img == nil {
		return Raster{}
	}
	b := img.Bounds()
	gray, ok := img.(*image.Gray)
	if !ok || gray.Stride != b.Dx() || b.Min != (image.Point{}) {
		gray = image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	}
	return Raster{Width: b.Dx(), Height: b.Dy(), Pix: gray.Pix[:b.Dx()*b.Dy()]}
}

// Empty reports whether the raster has no samples.
func (r Raster) Empty() bool { return r.Width == 0 || r.Height == 0 }

// At returns the sample at (x, y). Out-of-range coordinates read as white.
func (r Raster) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= r.Width || y >= r.Height {
		return 0xff
	}
	return r.Pix[y*r.Width+x]
}

// Gray exposes the raster as an image.Gray sharing the same samples.
func (r Raster) Gray() *image.Gray {
	return &image.Gray{Pix: r.Pix, Stride: r.Width, Rect: image.Rect(0, 0, r.Width, r.Height)}
}

func (r Raster) valid() bool {
	return r.Width > 0 && r.Height > 0 && len(r.Pix) == r.Width*r.Height
}
