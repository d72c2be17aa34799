package detector

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// DetectionResultJSON is a serializable representation of detected regions.
type DetectionResultJSON struct {
	Width   int          `json:"width" yaml:"width"`
	Height  int          `json:"height" yaml:"height"`
	Regions []RegionJSON `json:"regions" yaml:"regions"`
}

// RegionJSON is one candidate rectangle as (center, size, angle) plus its
// corners for convenience.
type RegionJSON struct {
	CenterX float64     `json:"center_x" yaml:"center_x"`
	CenterY float64     `json:"center_y" yaml:"center_y"`
	Width   float64     `json:"width" yaml:"width"`
	Height  float64     `json:"height" yaml:"height"`
	Angle   float64     `json:"angle" yaml:"angle"`
	Corners []PointJSON `json:"corners,omitempty" yaml:"corners,omitempty"`
}

type PointJSON struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// NewDetectionResult converts rectangles to their serializable form.
func NewDetectionResult(rects []CandidateRectangle, width, height int) DetectionResultJSON {
	out := DetectionResultJSON{Width: width, Height: height, Regions: make([]RegionJSON, 0, len(rects))}
	for _, r := range rects {
		rj := RegionJSON{
			CenterX: round2(r.Center.X),
			CenterY: round2(r.Center.Y),
			Width:   round2(r.Width),
			Height:  round2(r.Height),
			Angle:   round2(r.Angle),
		}
		for _, p := range r.Corners() {
			rj.Corners = append(rj.Corners, PointJSON{X: round2(p.X), Y: round2(p.Y)})
		}
		out.Regions = append(out.Regions, rj)
	}
	return out
}

// RegionsToJSON converts rectangles to indented JSON with the given image
// dimensions.
func RegionsToJSON(rects []CandidateRectangle, width, height int) ([]byte, error) {
	return json.MarshalIndent(NewDetectionResult(rects, width, height), "", "  ")
}

// RegionsFromJSON parses regions JSON into a struct.
func RegionsFromJSON(data []byte) (DetectionResultJSON, error) {
	var res DetectionResultJSON
	err := json.Unmarshal(data, &res)
	return res, err
}

// ValidateRegions checks that every rectangle has a positive size and a
// center inside the image.
func ValidateRegions(rects []CandidateRectangle, width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.New("invalid image dimensions for validation")
	}
	for i, r := range rects {
		if r.Width <= 0 || r.Height <= 0 {
			return fmt.Errorf("region %d has non-positive size", i)
		}
		if r.Center.X < 0 || r.Center.Y < 0 || r.Center.X > float64(width) || r.Center.Y > float64(height) {
			return fmt.Errorf("region %d center out of bounds", i)
		}
	}
	return nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
