// Package synthetic renders barcode symbols and simple shapes onto white
// pages. The benchmark runner and the tests use it to build inputs without
// image files on disk.
package synthetic

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// QRCode renders text as a size x size QR code with the standard four
// module quiet zone.
func QRCode(text string, size int) (image.Image, error) {
	m, err := qrcode.NewQRCodeWriter().Encode(text, gozxing.BarcodeFormat_QR_CODE, size, size, nil)
	if err != nil {
		return nil, fmt.Errorf("encode qr %q: %w", text, err)
	}
	return imaging.Clone(m), nil
}

// Code128 renders text as a Code 128 symbol of the given size.
func Code128(text string, width, height int) (image.Image, error) {
	return linear(oned.NewCode128Writer(), gozxing.BarcodeFormat_CODE_128, "code128", text, width, height)
}

// Code93 renders text as a Code 93 symbol of the given size.
func Code93(text string, width, height int) (image.Image, error) {
	return linear(oned.NewCode93Writer(), gozxing.BarcodeFormat_CODE_93, "code93", text, width, height)
}

func linear(w gozxing.Writer, format gozxing.BarcodeFormat, name, text string, width, height int) (image.Image, error) {
	m, err := w.Encode(text, format, width, height, nil)
	if err != nil {
		return nil, fmt.Errorf("encode %s %q: %w", name, text, err)
	}
	return imaging.Clone(m), nil
}

// Canvas returns a white w x h image.
func Canvas(w, h int) *image.NRGBA {
	return imaging.New(w, h, color.White)
}

// Place pastes src onto dst with its top-left corner at (x, y).
func Place(dst *image.NRGBA, src image.Image, x, y int) *image.NRGBA {
	return imaging.Paste(dst, src, image.Pt(x, y))
}

// Rotate rotates img counterclockwise by angle degrees on a white
// background; the result grows to fit.
func Rotate(img image.Image, angle float64) *image.NRGBA {
	return imaging.Rotate(img, angle, color.White)
}

// HollowSquare returns a white w x h gray image holding a black square of
// the given side at (x, y) with a white square hole centered inside it. It
// is the smallest shape region detection reports.
func HollowSquare(w, h, x, y, side, hole int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	off := (side - hole) / 2
	for yy := y; yy < y+side; yy++ {
		for xx := x; xx < x+side; xx++ {
			inHole := xx >= x+off && xx < x+off+hole && yy >= y+off && yy < y+off+hole
			if !inHole && image.Pt(xx, yy).In(img.Rect) {
				img.SetGray(xx, yy, color.Gray{})
			}
		}
	}
	return img
}
