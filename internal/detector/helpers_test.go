package detector

import (
	"cmp"
	"slices"
)

// newTestRaster returns a w x h raster filled with v.
func newTestRaster(w, h int, v uint8) Raster {
	pix := make([]uint8, w*h)
	for i := range pix {
		pix[i] = v
	}
	return Raster{Width: w, Height: h, Pix: pix}
}

// fillRect paints [x0, x1) x [y0, y1) with v.
func fillRect(r Raster, x0, y0, x1, y1 int, v uint8) {
	for y := max(0, y0); y < min(r.Height, y1); y++ {
		for x := max(0, x0); x < min(r.Width, x1); x++ {
			r.Pix[y*r.Width+x] = v
		}
	}
}

// hollowSquare paints a dark square of the given side at (x, y) with a light
// square hole of side hole centered inside it.
func hollowSquare(r Raster, x, y, side, hole int) {
	fillRect(r, x, y, x+side, y+side, 0)
	off := (side - hole) / 2
	fillRect(r, x+off, y+off, x+off+hole, y+off+hole, 255)
}

// maskFromRows builds a foreground mask from strings where '#' is true.
func maskFromRows(rows ...string) ([]bool, int, int) {
	h := len(rows)
	w := len(rows[0])
	mask := make([]bool, w*h)
	for y, row := range rows {
		for x, c := range row {
			mask[y*w+x] = c == '#'
		}
	}
	return mask, w, h
}

func sortRects(rects []CandidateRectangle) []CandidateRectangle {
	out := slices.Clone(rects)
	slices.SortFunc(out, func(a, b CandidateRectangle) int {
		if c := cmp.Compare(a.Center.X, b.Center.X); c != 0 {
			return c
		}
		return cmp.Compare(a.Center.Y, b.Center.Y)
	})
	return out
}
