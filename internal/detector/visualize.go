package detector

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/MeKo-Tech/barscan/internal/utils"
)

// VisualizeOptions controls overlay rendering.
type VisualizeOptions struct {
	// Color is a hex color such as "#ff0000". Empty spreads one color per
	// rectangle around the hue circle.
	Color string
	// Thickness is the outline width in pixels.
	Thickness int
	// Labels draws the rectangle index next to its first corner.
	Labels bool
}

// DefaultVisualizeOptions returns the default overlay options.
func DefaultVisualizeOptions() VisualizeOptions {
	return VisualizeOptions{Thickness: 3, Labels: true}
}

// Palette returns n visually distinct colors.
func Palette(n int) []color.Color {
	out := make([]color.Color, n)
	for i := range n {
		h := math.Mod(float64(i)*360/math.Max(1, float64(n))+15, 360)
		out[i] = colorful.Hsv(h, 0.85, 0.95).Clamped()
	}
	return out
}

// ParseColor parses a hex color.
func ParseColor(s string) (color.Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return nil, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return c.Clamped(), nil
}

// Visualize draws the rectangles on an RGBA copy of img.
func Visualize(img image.Image, rects []CandidateRectangle, opts VisualizeOptions) (*image.RGBA, error) {
	if img == nil {
		return nil, &utils.ImageProcessingError{Operation: "visualize", Err: fmt.Errorf("input image is nil")}
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

	colors := Palette(len(rects))
	if opts.Color != "" {
		c, err := ParseColor(opts.Color)
		if err != nil {
			return nil, err
		}
		for i := range colors {
			colors[i] = c
		}
	}

	for i, r := range rects {
		corners := r.Corners()
		utils.DrawPolygon(dst, corners, colors[i], opts.Thickness)
		if opts.Labels {
			drawLabel(dst, corners[0], strconv.Itoa(i), colors[i])
		}
	}
	return dst, nil
}

func drawLabel(dst *image.RGBA, at utils.Point, text string, col color.Color) {
	face := basicfont.Face7x13
	x := int(math.Round(at.X)) + 4
	y := int(math.Round(at.Y)) - 4
	if y < face.Metrics().Ascent.Ceil() {
		y = face.Metrics().Ascent.Ceil()
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
