package barcode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"

	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/aztec"
	"github.com/makiuchi-d/gozxing/datamatrix"
	"github.com/makiuchi-d/gozxing/multi"
	multiqr "github.com/makiuchi-d/gozxing/multi/qrcode"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/oned/rss"
)

// gozxingReader pairs a symbology with a constructor for its reader.
// gozxing readers keep state between calls, so each decode gets a new one.
// Symbologies with a multi reader return every symbol in the image; the
// others return at most one.
type gozxingReader struct {
	format    Format
	newReader func() gozxing.Reader
	newMulti  func() multi.MultipleBarcodeReader
}

var gozxingReaders = []gozxingReader{
	{format: FormatQR, newMulti: multiqr.NewQRCodeMultiReader},
	{FormatDataMatrix, func() gozxing.Reader { return datamatrix.NewDataMatrixReader() }, nil},
	{FormatAztec, func() gozxing.Reader { return aztec.NewAztecReader() }, nil},
	{FormatCode128, func() gozxing.Reader { return oned.NewCode128Reader() }, nil},
	{FormatCode39, func() gozxing.Reader { return oned.NewCode39Reader() }, nil},
	{FormatCode93, func() gozxing.Reader { return oned.NewCode93Reader() }, nil},
	{FormatEAN13, func() gozxing.Reader { return oned.NewEAN13Reader() }, nil},
	{FormatEAN8, func() gozxing.Reader { return oned.NewEAN8Reader() }, nil},
	{FormatUPCA, func() gozxing.Reader { return oned.NewUPCAReader() }, nil},
	{FormatUPCE, func() gozxing.Reader { return oned.NewUPCEReader() }, nil},
	{FormatITF, func() gozxing.Reader { return oned.NewITFReader() }, nil},
	{FormatCodabar, func() gozxing.Reader { return oned.NewCodaBarReader() }, nil},
	{FormatDataBar, func() gozxing.Reader { return rss.NewRSS14Reader() }, nil},
}

// SupportedFormats lists the symbologies the gozxing backend decodes.
func SupportedFormats() []Format {
	out := make([]Format, len(gozxingReaders))
	for i, r := range gozxingReaders {
		out[i] = r.format
	}
	return out
}

type gozxingBackend struct{}

func newGozxingBackend() *gozxingBackend { return &gozxingBackend{} }

// Decode runs every enabled reader over the whole image. Every QR code is
// returned; other symbologies yield at most one result each. Points are raw
// engine points, rotated so the top-left finder comes first.
func (b *gozxingBackend) Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error) {
	if img == nil {
		return nil, errors.New("barcode: nil image")
	}
	if img.Bounds().Empty() {
		return nil, ErrNotFound
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("prepare bitmap: %w", err)
	}

	hints := make(map[gozxing.DecodeHintType]interface{})
	if opts.TryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}
	if opts.PureBarcode {
		hints[gozxing.DecodeHintType_PURE_BARCODE] = true
	}

	var wanted map[Format]bool
	if len(opts.Formats) > 0 {
		wanted = make(map[Format]bool, len(opts.Formats))
		for _, f := range opts.Formats {
			wanted[f] = true
		}
	}

	var out []Result
	for _, rd := range gozxingReaders {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if wanted != nil && !wanted[rd.format] {
			continue
		}
		out = append(out, decodeWith(rd, bmp, hints)...)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

func decodeWith(rd gozxingReader, bmp *gozxing.BinaryBitmap, hints map[gozxing.DecodeHintType]interface{}) (out []Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("gozxing reader panicked", "format", rd.format.String(), "panic", r)
			out = nil
		}
	}()

	var found []*gozxing.Result
	if rd.newMulti != nil {
		res, err := rd.newMulti().DecodeMultiple(bmp, hints)
		if err != nil {
			return nil
		}
		found = res
	} else {
		res, err := rd.newReader().Decode(bmp, hints)
		if err != nil {
			return nil
		}
		found = []*gozxing.Result{res}
	}

	for _, zr := range found {
		if zr == nil {
			continue
		}
		pts := zxingPoints(zr.GetResultPoints())
		out = append(out, Result{
			Type:   rd.format,
			Value:  zr.GetText(),
			Points: pts,
			BBox:   pts.Bounds(),
		})
	}
	return out
}

// zxingPoints rounds engine points and moves the first one to the end.
// For 2D symbols ZXing reports bottom-left, top-left, top-right, so the
// top-left finder ends up first.
func zxingPoints(rps []gozxing.ResultPoint) Polygon {
	var pts Polygon
	for _, p := range rps {
		if p == nil {
			continue
		}
		pts = append(pts, Point{X: int(math.Round(p.GetX())), Y: int(math.Round(p.GetY()))})
	}
	if len(pts) > 1 {
		pts = append(pts[1:], pts[0])
	}
	return pts
}
