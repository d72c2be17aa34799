package barcode

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/barscan/internal/utils"
)

// ErrInvalidGeometry is returned when points do not span a polygon.
var ErrInvalidGeometry = errors.New("invalid geometry")

// CanonicalizePolygon returns the convex hull of points, clockwise on screen
// (y down), rotated so that it starts at the hull vertex nearest to
// points[0]. Engines report the top-left corner of a symbol first but
// disagree on winding and on extra boundary points; the canonical form is
// the same for all of them. Concave input loses its concavities.
//
// Ties on distance go to the earliest vertex in hull order. Fewer than three
// points, or points that are all collinear, yield ErrInvalidGeometry.
func CanonicalizePolygon(points []Point) (Polygon, error) {
	if len(points) < 3 {
		return nil, fmt.Errorf("%w: need at least 3 points, got %d", ErrInvalidGeometry, len(points))
	}
	fp := make([]utils.Point, len(points))
	for i, p := range points {
		fp[i] = utils.Point{X: float64(p.X), Y: float64(p.Y)}
	}
	hull := utils.ConvexHull(fp)
	if len(hull) < 3 {
		return nil, fmt.Errorf("%w: points are collinear or duplicated", ErrInvalidGeometry)
	}
	// A positive signed area is clockwise with y pointing down.
	if utils.SignedArea(hull) < 0 {
		for i, j := 0, len(hull)-1; i < j; i, j = i+1, j-1 {
			hull[i], hull[j] = hull[j], hull[i]
		}
	}

	ref := points[0]
	start, best := 0, -1
	for i, h := range hull {
		dx, dy := int(h.X)-ref.X, int(h.Y)-ref.Y
		if d := dx*dx + dy*dy; best < 0 || d < best {
			start, best = i, d
		}
	}

	out := make(Polygon, len(hull))
	for i := range hull {
		h := hull[(start+i)%len(hull)]
		out[i] = Point{X: int(h.X), Y: int(h.Y)}
	}
	return out, nil
}
