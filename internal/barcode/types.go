package barcode

import (
	"context"
	"fmt"
	"image"
	"strings"
)

// Format represents a barcode symbology.
type Format int

const (
	FormatUnknown Format = iota
	FormatQR
	FormatDataMatrix
	FormatAztec
	FormatPDF417
	FormatMaxiCode
	FormatCode128
	FormatCode39
	FormatCode93
	FormatEAN8
	FormatEAN13
	FormatEAN2
	FormatEAN5
	FormatISBN10
	FormatISBN13
	FormatUPCA
	FormatUPCE
	FormatITF
	FormatCodabar
	FormatDataBar
	FormatDataBarExpanded
	FormatComposite
)

var formatNames = [...]string{
	FormatUnknown:         "UNKNOWN",
	FormatQR:              "QRCODE",
	FormatDataMatrix:      "DATAMATRIX",
	FormatAztec:           "AZTEC",
	FormatPDF417:          "PDF417",
	FormatMaxiCode:        "MAXICODE",
	FormatCode128:         "CODE128",
	FormatCode39:          "CODE39",
	FormatCode93:          "CODE93",
	FormatEAN8:            "EAN8",
	FormatEAN13:           "EAN13",
	FormatEAN2:            "EAN2",
	FormatEAN5:            "EAN5",
	FormatISBN10:          "ISBN10",
	FormatISBN13:          "ISBN13",
	FormatUPCA:            "UPCA",
	FormatUPCE:            "UPCE",
	FormatITF:             "I25",
	FormatCodabar:         "CODABAR",
	FormatDataBar:         "DATABAR",
	FormatDataBarExpanded: "DATABAR_EXP",
	FormatComposite:       "COMPOSITE",
}

// Alternative spellings accepted by ParseFormat, keyed by the name with
// separators removed.
var formatAliases = map[string]Format{
	"QR":              FormatQR,
	"ITF":             FormatITF,
	"INTERLEAVED2OF5": FormatITF,
	"RSS14":           FormatDataBar,
	"RSSEXPANDED":     FormatDataBarExpanded,
	"DATABAREXPANDED": FormatDataBarExpanded,
}

// String returns the symbology name, e.g. "QRCODE" or "I25".
func (f Format) String() string {
	if f < 0 || int(f) >= len(formatNames) {
		return fmt.Sprintf("Format(%d)", int(f))
	}
	return formatNames[f]
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(b []byte) error {
	v, err := ParseFormat(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

func squashName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ':
			return -1
		}
		return r
	}, strings.ToUpper(strings.TrimSpace(s)))
}

// ParseFormat parses a symbology name. Matching ignores case, underscores,
// hyphens and spaces, so "qr_code", "QR" and "QRCODE" are equivalent.
func ParseFormat(s string) (Format, error) {
	key := squashName(s)
	if f, ok := formatAliases[key]; ok {
		return f, nil
	}
	for i, name := range formatNames {
		if i != int(FormatUnknown) && squashName(name) == key {
			return Format(i), nil
		}
	}
	return FormatUnknown, fmt.Errorf("unknown barcode format %q", s)
}

// ParseFormats parses a list of names, also splitting comma separated
// entries. Empty entries are skipped.
func ParseFormats(names []string) ([]Format, error) {
	var out []Format
	for _, n := range names {
		for _, part := range strings.Split(n, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			f, err := ParseFormat(part)
			if err != nil {
				return nil, err
			}
			out = append(out, f)
		}
	}
	return out, nil
}

// Options controls backend decoding behavior.
type Options struct {
	// Formats constrains the set of symbologies to search. Empty means all
	// the backend supports.
	Formats []Format

	// TryHarder enables more exhaustive search (slower but more robust).
	TryHarder bool

	// PureBarcode tells the engine the image holds a single unrotated
	// symbol and nothing else, as in a tight crop.
	PureBarcode bool
}

// Point is an integer point in image coordinates.
type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Polygon is a closed sequence of integer points.
type Polygon []Point

// Bounds returns the smallest rectangle covering every point, with the
// maximum coordinates exclusive.
func (p Polygon) Bounds() image.Rectangle {
	if len(p) == 0 {
		return image.Rectangle{}
	}
	minX, minY := p[0].X, p[0].Y
	maxX, maxY := p[0].X, p[0].Y
	for _, pt := range p[1:] {
		minX = min(minX, pt.X)
		minY = min(minY, pt.Y)
		maxX = max(maxX, pt.X)
		maxY = max(maxY, pt.Y)
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// Offset returns a copy of p translated by d.
func (p Polygon) Offset(d image.Point) Polygon {
	if p == nil {
		return nil
	}
	out := make(Polygon, len(p))
	for i, pt := range p {
		out[i] = Point{X: pt.X + d.X, Y: pt.Y + d.Y}
	}
	return out
}

// Result represents a decoded barcode.
type Result struct {
	Type  Format `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
	// Points are the symbol corners. After NormalizeResult they run
	// clockwise on screen starting at the top-left corner as read.
	Points Polygon `json:"points" yaml:"points"`
	// BBox is the bounding box of Points.
	BBox image.Rectangle `json:"-" yaml:"-"`
}

// String returns the decoded payload.
func (r Result) String() string { return r.Value }

// Backend is a pluggable barcode decoder implementation.
type Backend interface {
	// Decode returns the symbols found in img. Point coordinates are
	// relative to img.Bounds().Min. It returns ErrNotFound when nothing
	// decodes.
	Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error)
}

// Backend names accepted by NewBackend.
const (
	BackendGozxing = "gozxing"
	BackendNone    = "none"
)

// NewBackend returns the named backend. The empty name selects gozxing.
func NewBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendGozxing:
		return newGozxingBackend(), nil
	case BackendNone:
		return noBackend{}, nil
	default:
		return nil, fmt.Errorf("unknown barcode backend %q", name)
	}
}
