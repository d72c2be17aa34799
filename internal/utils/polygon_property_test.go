package utils

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genPoint generates a random point.
func genPoint() gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(-100, 100),
		gen.Float64Range(-100, 100),
	).Map(func(vals []interface{}) Point {
		return Point{X: vals[0].(float64), Y: vals[1].(float64)}
	})
}

// genPolygon generates a random point cloud.
func genPolygon(minSize, maxSize int) gopter.Gen {
	size := (minSize + maxSize) / 2
	return gen.SliceOfN(size, genPoint())
}

// TestConvexHull_ContainsAllPoints verifies all input points are inside or on the hull.
func TestConvexHull_ContainsAllPoints(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("convex hull contains all input points", prop.ForAll(
		func(points []Point) bool {
			hull := ConvexHull(points)
			if len(hull) < 3 {
				return true
			}
			for _, p := range points {
				if PointPolygonDistance(p, hull) > 1e-9 {
					return false
				}
			}
			return true
		},
		genPolygon(3, 20),
	))

	properties.TestingRun(t)
}

// TestConvexHull_OutputNonIncreasing verifies hull size <= input size.
func TestConvexHull_OutputNonIncreasing(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("convex hull has <= input points", prop.ForAll(
		func(points []Point) bool {
			return len(ConvexHull(points)) <= len(points)
		},
		genPolygon(1, 20),
	))

	properties.TestingRun(t)
}

// TestConvexHull_PositiveWinding verifies the hull always has a positive shoelace sum.
func TestConvexHull_PositiveWinding(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("convex hull signed area is positive", prop.ForAll(
		func(points []Point) bool {
			hull := ConvexHull(points)
			if len(hull) < 3 {
				return true
			}
			return SignedArea(hull) > 0
		},
		genPolygon(3, 20),
	))

	properties.TestingRun(t)
}

// TestConvexHull_Idempotence verifies the hull of a hull is the same hull.
func TestConvexHull_Idempotence(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("hull(hull(p)) == hull(p)", prop.ForAll(
		func(points []Point) bool {
			h1 := ConvexHull(points)
			h2 := ConvexHull(h1)
			if len(h1) != len(h2) {
				return false
			}
			for i := range h1 {
				if h1[i] != h2[i] {
					return false
				}
			}
			return true
		},
		genPolygon(3, 20),
	))

	properties.TestingRun(t)
}

// TestPointPolygonDistance_NonNegative verifies distances are never negative.
func TestPointPolygonDistance_NonNegative(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("point to hull distance is >= 0", prop.ForAll(
		func(points []Point, p Point) bool {
			hull := ConvexHull(points)
			if len(hull) < 3 {
				return true
			}
			return PointPolygonDistance(p, hull) >= 0
		},
		genPolygon(3, 20),
		genPoint(),
	))

	properties.TestingRun(t)
}

// TestMinimumAreaRectangle_EnclosesPoints verifies all points lie inside the rectangle.
func TestMinimumAreaRectangle_EnclosesPoints(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("minimum area rectangle encloses input", prop.ForAll(
		func(points []Point) bool {
			hull := ConvexHull(points)
			if len(hull) < 3 {
				return true
			}
			rect := MinimumAreaRectangle(points)
			if len(rect) != 4 {
				return false
			}
			for _, p := range points {
				if PointPolygonDistance(p, rect) > 1e-6 {
					return false
				}
			}
			return true
		},
		genPolygon(3, 20),
	))

	properties.TestingRun(t)
}

// TestMinimumAreaRectangle_AreaBounds verifies hull area <= rect area <= AABB area.
func TestMinimumAreaRectangle_AreaBounds(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("hull area <= rect area <= bounding box area", prop.ForAll(
		func(points []Point) bool {
			hull := ConvexHull(points)
			if len(hull) < 3 {
				return true
			}
			rectArea := PolygonArea(MinimumAreaRectangle(points))
			bb := BoundingBox(points)
			bbArea := bb.Width() * bb.Height()
			tol := 1e-6 * math.Max(1, bbArea)
			return PolygonArea(hull) <= rectArea+tol && rectArea <= bbArea+tol
		},
		genPolygon(3, 20),
	))

	properties.TestingRun(t)
}
