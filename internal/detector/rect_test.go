package detector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/barscan/internal/utils"
)

func TestFitRectangle_AxisAligned(t *testing.T) {
	r := fitRectangle(square(10, 20, 30))
	assert.InDelta(t, 25.0, r.Center.X, 1e-9)
	assert.InDelta(t, 35.0, r.Center.Y, 1e-9)
	assert.InDelta(t, 30.0, r.Width, 1e-9)
	assert.InDelta(t, 30.0, r.Height, 1e-9)
	assert.Zero(t, r.Angle)
	assert.InDelta(t, 900.0, r.Area(), 1e-9)
}

func TestFitRectangle_Rotated(t *testing.T) {
	// A 40x10 rectangle rotated by 30 degrees around (100, 100).
	rect := CandidateRectangle{Center: utils.Point{X: 100, Y: 100}, Width: 40, Height: 10, Angle: 30}
	got := fitRectangle(rect.Corners())

	assert.InDelta(t, 100.0, got.Center.X, 1e-6)
	assert.InDelta(t, 100.0, got.Center.Y, 1e-6)
	assert.InDelta(t, 400.0, got.Area(), 1e-6)
	assert.GreaterOrEqual(t, got.Angle, 0.0)
	assert.Less(t, got.Angle, 90.0)

	// The fitted rectangle describes the same shape, possibly with the axes
	// swapped: 40x10 at 30 degrees equals 10x40 at 120 (= 30+90) degrees.
	switch {
	case math.Abs(got.Angle-30) < 1e-6:
		assert.InDelta(t, 40.0, got.Width, 1e-6)
		assert.InDelta(t, 10.0, got.Height, 1e-6)
	case math.Abs(got.Angle-60) < 1e-6:
		assert.InDelta(t, 10.0, got.Width, 1e-6)
		assert.InDelta(t, 40.0, got.Height, 1e-6)
	default:
		t.Fatalf("unexpected angle %v", got.Angle)
	}
}

func TestFitRectangle_Degenerate(t *testing.T) {
	assert.Equal(t, CandidateRectangle{}, fitRectangle(nil))
	assert.Equal(t, CandidateRectangle{}, fitRectangle([]utils.Point{{X: 3, Y: 4}}))
	assert.Equal(t, CandidateRectangle{}, fitRectangle([]utils.Point{{X: 0, Y: 0}, {X: 5, Y: 5}, {X: 10, Y: 10}}),
		"collinear points")
}

func TestRectFromCorners_NormalizesAngle(t *testing.T) {
	tests := []struct {
		name          string
		corners       []utils.Point
		width, height float64
		angle         float64
	}{
		{
			name:    "clockwise from top-left",
			corners: []utils.Point{{X: 0, Y: 0}, {X: 20, Y: 0}, {X: 20, Y: 10}, {X: 0, Y: 10}},
			width:   20, height: 10, angle: 0,
		},
		{
			name:    "starting on the vertical edge",
			corners: []utils.Point{{X: 20, Y: 0}, {X: 20, Y: 10}, {X: 0, Y: 10}, {X: 0, Y: 0}},
			width:   20, height: 10, angle: 0,
		},
		{
			name:    "reverse direction",
			corners: []utils.Point{{X: 20, Y: 10}, {X: 0, Y: 10}, {X: 0, Y: 0}, {X: 20, Y: 0}},
			width:   20, height: 10, angle: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rectFromCorners(tt.corners)
			assert.InDelta(t, tt.width, r.Width, 1e-9)
			assert.InDelta(t, tt.height, r.Height, 1e-9)
			assert.InDelta(t, tt.angle, r.Angle, 1e-9)
			assert.InDelta(t, 10.0, r.Center.X, 1e-9)
			assert.InDelta(t, 5.0, r.Center.Y, 1e-9)
		})
	}
}

func TestCandidateRectangle_Corners(t *testing.T) {
	r := CandidateRectangle{Center: utils.Point{X: 10, Y: 5}, Width: 20, Height: 10}
	c := r.Corners()
	require.Len(t, c, 4)
	want := []utils.Point{{X: 0, Y: 0}, {X: 20, Y: 0}, {X: 20, Y: 10}, {X: 0, Y: 10}}
	for i := range want {
		assert.InDelta(t, want[i].X, c[i].X, 1e-9)
		assert.InDelta(t, want[i].Y, c[i].Y, 1e-9)
	}
	assert.Positive(t, utils.SignedArea(c), "corners run clockwise on screen")
}

func TestCandidateRectangle_ExpandAndBounds(t *testing.T) {
	r := CandidateRectangle{Center: utils.Point{X: 10, Y: 5}, Width: 20, Height: 10}
	e := r.Expand(2)
	assert.InDelta(t, 24.0, e.Width, 1e-9)
	assert.InDelta(t, 14.0, e.Height, 1e-9)
	assert.Equal(t, r.Center, e.Center)

	shrunk := r.Expand(-20)
	assert.Zero(t, shrunk.Width)
	assert.Zero(t, shrunk.Height)

	b := e.Bounds()
	assert.InDelta(t, -2.0, b.MinX, 1e-9)
	assert.InDelta(t, -2.0, b.MinY, 1e-9)
	assert.InDelta(t, 22.0, b.MaxX, 1e-9)
	assert.InDelta(t, 12.0, b.MaxY, 1e-9)

	rot := CandidateRectangle{Center: utils.Point{X: 0, Y: 0}, Width: 10, Height: 10, Angle: 45}
	rb := rot.Bounds()
	assert.InDelta(t, 10*math.Sqrt2, rb.Width(), 1e-9)
}

func TestCandidateRectangle_String(t *testing.T) {
	r := CandidateRectangle{Center: utils.Point{X: 1, Y: 2}, Width: 3, Height: 4, Angle: 5}
	assert.Equal(t, "((1.0, 2.0), (3.0, 4.0), 5.0)", r.String())
}
