package detector

import (
	"cmp"
	"image"
	"slices"

	"github.com/MeKo-Tech/barscan/internal/mempool"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

// Contour is a closed boundary traced from the binarized raster.
type Contour struct {
	Points []image.Point
	// Parent is the index of the enclosing outer contour, or -1.
	Parent int
	// Hole is true for the boundary of a dark region enclosed by a light one.
	Hole bool
}

// Hull returns the convex hull of the pixel squares covered by the contour,
// so a contour around an n x n block of pixels has area n*n.
func (c Contour) Hull() []utils.Point {
	corners := make([]utils.Point, 0, 4*len(c.Points))
	for _, p := range c.Points {
		x, y := float64(p.X), float64(p.Y)
		corners = append(corners,
			utils.Point{X: x, Y: y},
			utils.Point{X: x + 1, Y: y},
			utils.Point{X: x + 1, Y: y + 1},
			utils.Point{X: x, Y: y + 1},
		)
	}
	return utils.ConvexHull(corners)
}

// ContourGroup holds the contours that share one immediate parent.
type ContourGroup struct {
	Parent   int
	Contours []Contour
}

// extractContours returns a two-level contour hierarchy for the foreground
// mask. Light components (8-connected) produce outer contours with Parent
// -1, listed first in raster order. Dark components (4-connected) that do
// not reach the image border produce hole contours whose Parent is the
// outer contour of the light component enclosing them. Dark regions that
// touch the border are background, not holes, and produce no contour.
func extractContours(mask []bool, w, h int) []Contour {
	if w == 0 || h == 0 {
		return nil
	}
	light, lightLabels := connectedComponents(mask, w, h, true, true)
	dark, darkLabels := connectedComponents(mask, w, h, false, false)
	defer mempool.PutInt(lightLabels)
	defer mempool.PutInt(darkLabels)

	contours := make([]Contour, 0, len(light)+len(dark))
	for i, st := range light {
		contours = append(contours, Contour{
			Points: traceContourMoore(lightLabels, w, h, i+1, st),
			Parent: -1,
		})
	}
	for i, st := range dark {
		if st.border {
			continue
		}
		// The pixel above the seed is light, since anything dark there would
		// belong to this component and precede the seed in raster order. It
		// lies outside the hole, so its component encloses the hole.
		above := lightLabels[st.seed-w]
		if above <= 0 {
			continue
		}
		contours = append(contours, Contour{
			Points: traceContourMoore(darkLabels, w, h, i+1, st),
			Parent: above - 1,
			Hole:   true,
		})
	}
	return contours
}

// GroupContours collects contours that have a parent into groups keyed by
// that parent, ordered by parent index. Contour order inside a group is
// preserved.
func GroupContours(contours []Contour) []ContourGroup {
	index := make(map[int]int)
	var groups []ContourGroup
	for _, c := range contours {
		if c.Parent < 0 {
			continue
		}
		gi, ok := index[c.Parent]
		if !ok {
			gi = len(groups)
			index[c.Parent] = gi
			groups = append(groups, ContourGroup{Parent: c.Parent})
		}
		groups[gi].Contours = append(groups[gi].Contours, c)
	}
	slices.SortFunc(groups, func(a, b ContourGroup) int { return cmp.Compare(a.Parent, b.Parent) })
	return groups
}

// ExtractContours binarizes r and returns its contour hierarchy.
func ExtractContours(r Raster, threshold uint8, fast bool) []Contour {
	if !r.valid() {
		return nil
	}
	mask := binarize(r, threshold, fast)
	defer mempool.PutBool(mask)
	return extractContours(mask, r.Width, r.Height)
}
