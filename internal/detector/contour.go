package detector

import "image"

// 8-neighborhood in clockwise screen order: E, SE, S, SW, W, NW, N, NE.
var (
	mooreDX = [8]int{1, 1, 0, -1, -1, -1, 0, 1}
	mooreDY = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
)

// traceContourMoore extracts the outer boundary of the labeled component
// using Moore-Neighbor tracing. Tracing stops when the seed is about to be
// left through its first move again. Points are pixel coordinates; runs of
// collinear points are collapsed to their endpoints.
func traceContourMoore(labels []int, w, h, label int, st compStats) []image.Point {
	if label <= 0 || len(labels) != w*h {
		return nil
	}

	// The seed is the top-most, left-most pixel, so its west neighbor is
	// outside the component and serves as the initial backtrack.
	sx, sy := st.seed%w, st.seed/w
	if !isLabelPixel(labels, w, h, label, sx, sy) {
		return nil
	}

	pts := make([]image.Point, 0, 64)
	pts = appendContourPoint(pts, sx, sy)

	cx, cy := sx, sy
	bx, by := sx-1, sy
	var first image.Point
	moved := false
	maxSteps := 4*st.count + 8

	for range maxSteps {
		nx, ny, nbx, nby, found := findNextBoundaryPixel(labels, w, h, label, cx, cy, bx, by)
		if !found {
			break
		}
		// Back at the seed and about to repeat the first move: the loop is closed.
		if moved && cx == sx && cy == sy && nx == first.X && ny == first.Y {
			break
		}
		if !moved {
			first = image.Pt(nx, ny)
			moved = true
		}
		bx, by = nbx, nby
		cx, cy = nx, ny
		last := pts[len(pts)-1]
		if last.X != cx || last.Y != cy {
			pts = appendContourPoint(pts, cx, cy)
		}
	}

	return closeContour(pts)
}

// appendContourPoint appends (x, y), dropping the previous point when the
// path runs straight through it. Reversals on one-pixel-wide spurs are kept.
func appendContourPoint(pts []image.Point, x, y int) []image.Point {
	p := image.Pt(x, y)
	if n := len(pts); n >= 2 && straight(pts[n-2], pts[n-1], p) {
		pts = pts[:n-1]
	}
	return append(pts, p)
}

// straight reports whether b lies between a and c on the segment ac.
func straight(a, b, c image.Point) bool {
	u, v := b.Sub(a), c.Sub(b)
	return u.X*v.Y-u.Y*v.X == 0 && u.X*v.X+u.Y*v.Y > 0
}

// closeContour removes a duplicated closing point and a start point that
// became collinear once the loop closed.
func closeContour(pts []image.Point) []image.Point {
	if len(pts) >= 2 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	if n := len(pts); n >= 3 && straight(pts[n-1], pts[0], pts[1]) {
		pts = pts[1:]
	}
	return pts
}

// isLabelPixel checks if a pixel belongs to the given label.
func isLabelPixel(labels []int, w, h, label, x, y int) bool {
	if x < 0 || y < 0 || x >= w || y >= h {
		return false
	}
	return labels[y*w+x] == label
}

func mooreIndex(dx, dy int) int {
	for i := range 8 {
		if mooreDX[i] == dx && mooreDY[i] == dy {
			return i
		}
	}
	return 0
}

// findNextBoundaryPixel scans the Moore neighborhood of (cx, cy) clockwise,
// starting after the backtrack pixel (bx, by). It returns the next boundary
// pixel together with the pixel visited just before it, which becomes the
// new backtrack.
func findNextBoundaryPixel(labels []int, w, h, label, cx, cy, bx, by int) (int, int, int, int, bool) {
	start := (mooreIndex(bx-cx, by-cy) + 1) % 8
	for k := range 8 {
		i := (start + k) % 8
		tx, ty := cx+mooreDX[i], cy+mooreDY[i]
		if isLabelPixel(labels, w, h, label, tx, ty) {
			return tx, ty, bx, by, true
		}
		bx, by = tx, ty
	}
	return 0, 0, bx, by, false
}
