package detector

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/barscan/internal/utils"
)

func whiteImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}

func TestVisualize_DrawsOutline(t *testing.T) {
	img := whiteImage(100, 80)
	rects := []CandidateRectangle{{Center: utils.Point{X: 50, Y: 40}, Width: 60, Height: 40}}

	out, err := Visualize(img, rects, VisualizeOptions{Color: "#ff0000", Thickness: 1})
	require.NoError(t, err)
	require.Equal(t, img.Bounds(), out.Bounds())

	assert.Equal(t, color.RGBA{R: 255, A: 255}, out.RGBAAt(50, 20), "top edge")
	assert.Equal(t, color.RGBA{R: 255, A: 255}, out.RGBAAt(20, 40), "left edge")
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, out.RGBAAt(50, 40), "interior untouched")
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, img.RGBAAt(50, 20), "input untouched")
}

func TestVisualize_OffsetBounds(t *testing.T) {
	img := image.NewGray(image.Rect(10, 10, 60, 40))
	out, err := Visualize(img, nil, DefaultVisualizeOptions())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 50, 30), out.Bounds())
}

func TestVisualize_Errors(t *testing.T) {
	_, err := Visualize(nil, nil, DefaultVisualizeOptions())
	require.Error(t, err)
	var ipe *utils.ImageProcessingError
	assert.ErrorAs(t, err, &ipe)

	_, err = Visualize(whiteImage(4, 4), nil, VisualizeOptions{Color: "red"})
	require.Error(t, err)
}

func TestPalette(t *testing.T) {
	assert.Empty(t, Palette(0))
	colors := Palette(6)
	require.Len(t, colors, 6)
	seen := make(map[color.RGBA]bool)
	for _, c := range colors {
		seen[color.RGBAModel.Convert(c).(color.RGBA)] = true
	}
	assert.Len(t, seen, 6, "colors are distinct")
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#00ff00")
	require.NoError(t, err)
	r, g, b, _ := c.RGBA()
	assert.Equal(t, uint32(0), r)
	assert.Equal(t, uint32(0xffff), g)
	assert.Equal(t, uint32(0), b)

	_, err = ParseColor("nope")
	require.Error(t, err)
}
