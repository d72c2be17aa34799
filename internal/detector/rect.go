package detector

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/barscan/internal/utils"
)

// CandidateRectangle is an oriented rectangle likely to contain a barcode.
// Angle is in degrees within [0, 90) and rotates the Width axis from +x
// toward +y (clockwise on screen).
type CandidateRectangle struct {
	Center utils.Point `json:"center"`
	Width  float64     `json:"width"`
	Height float64     `json:"height"`
	Angle  float64     `json:"angle"`
}

// Area returns Width*Height.
func (r CandidateRectangle) Area() float64 { return r.Width * r.Height }

// Corners returns the four corners starting at the corner that is top-left
// for Angle 0, in clockwise screen order.
func (r CandidateRectangle) Corners() []utils.Point {
	rad := r.Angle * math.Pi / 180
	ux, uy := math.Cos(rad), math.Sin(rad)
	vx, vy := -uy, ux
	hw, hh := r.Width/2, r.Height/2
	corner := func(su, sv float64) utils.Point {
		return utils.Point{
			X: r.Center.X + su*hw*ux + sv*hh*vx,
			Y: r.Center.Y + su*hw*uy + sv*hh*vy,
		}
	}
	return []utils.Point{corner(-1, -1), corner(1, -1), corner(1, 1), corner(-1, 1)}
}

// Expand returns the rectangle grown by margin on every side.
func (r CandidateRectangle) Expand(margin float64) CandidateRectangle {
	r.Width = math.Max(0, r.Width+2*margin)
	r.Height = math.Max(0, r.Height+2*margin)
	return r
}

// Bounds returns the axis-aligned box enclosing the rectangle.
func (r CandidateRectangle) Bounds() utils.Box {
	return utils.BoundingBox(r.Corners())
}

func (r CandidateRectangle) String() string {
	return fmt.Sprintf("((%.1f, %.1f), (%.1f, %.1f), %.1f)", r.Center.X, r.Center.Y, r.Width, r.Height, r.Angle)
}

// fitRectangle returns the minimum-area rectangle enclosing pts. Fewer than
// three hull vertices enclose no area and give the zero rectangle.
func fitRectangle(pts []utils.Point) CandidateRectangle {
	if len(utils.ConvexHull(pts)) < 3 {
		return CandidateRectangle{}
	}
	c := utils.MinimumAreaRectangle(pts)
	if len(c) != 4 {
		return CandidateRectangle{}
	}
	return rectFromCorners(c)
}

// rectFromCorners converts four consecutive rectangle corners into center,
// size and a normalized angle.
func rectFromCorners(c []utils.Point) CandidateRectangle {
	center := utils.Point{
		X: (c[0].X + c[1].X + c[2].X + c[3].X) / 4,
		Y: (c[0].Y + c[1].Y + c[2].Y + c[3].Y) / 4,
	}
	w := math.Hypot(c[1].X-c[0].X, c[1].Y-c[0].Y)
	h := math.Hypot(c[2].X-c[1].X, c[2].Y-c[1].Y)
	angle := math.Atan2(c[1].Y-c[0].Y, c[1].X-c[0].X) * 180 / math.Pi
	angle = math.Mod(angle, 180)
	if angle < 0 {
		angle += 180
	}
	if angle >= 90 {
		angle -= 90
		w, h = h, w
	}
	// Snap float noise so axis-aligned input reports exactly 0.
	if angle < 1e-9 || 90-angle < 1e-9 {
		if 90-angle < 1e-9 {
			w, h = h, w
		}
		angle = 0
	}
	return CandidateRectangle{Center: center, Width: w, Height: h, Angle: angle}
}
