package detector

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"time"

	"github.com/MeKo-Tech/barscan/internal/mempool"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

// Options tunes region detection.
type Options struct {
	// QuietDistance is the largest gap in pixels between two contours of the
	// same symbol.
	QuietDistance float64
	// MinArea discards rectangles smaller than this many square pixels.
	MinArea float64
	// Fast blurs the raster before thresholding. Fine texture disappears and
	// regions come out larger than the symbols they contain.
	Fast bool
	// Threshold is the binarization level; samples above it are background.
	Threshold uint8
	// Merge selects the hull clustering strategy.
	Merge MergeStrategy
}

// DefaultOptions returns the default detection options.
func DefaultOptions() Options {
	return Options{
		QuietDistance: 10,
		MinArea:       12000,
		Threshold:     DefaultThreshold,
		Merge:         MergeUnionFind,
	}
}

// Validate checks the options for values detection cannot honor.
func (o Options) Validate() error {
	var errs []error
	if o.QuietDistance < 0 || math.IsNaN(o.QuietDistance) || math.IsInf(o.QuietDistance, 0) {
		errs = append(errs, fmt.Errorf("quiet distance must be a finite value >= 0, got %v", o.QuietDistance))
	}
	if o.MinArea < 0 || math.IsNaN(o.MinArea) {
		errs = append(errs, fmt.Errorf("min area must be >= 0, got %v", o.MinArea))
	}
	if _, err := ParseMergeStrategy(string(o.Merge)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Detect finds candidate barcode rectangles in r with the default threshold
// and merge strategy. It never fails: degenerate rasters yield an empty
// slice.
func Detect(r Raster, quietDistance, minArea float64) []CandidateRectangle {
	opts := DefaultOptions()
	opts.QuietDistance = quietDistance
	opts.MinArea = minArea
	return DetectWithOptions(r, opts)
}

// DetectWithOptions runs region detection:
//  1. optional blur, then global threshold;
//  2. contour extraction with outer boundaries and their holes;
//  3. grouping of holes by parent;
//  4. merging of hulls within the quiet distance inside each group;
//  5. minimum-area rectangle fitting and area filtering.
//
// Output order is unspecified.
func DetectWithOptions(r Raster, opts Options) []CandidateRectangle {
	out := make([]CandidateRectangle, 0)
	if !r.valid() {
		return out
	}
	dist := opts.QuietDistance
	if dist < 0 || math.IsNaN(dist) {
		dist = 0
	}

	mask := binarize(r, opts.Threshold, opts.Fast)
	contours := extractContours(mask, r.Width, r.Height)
	mempool.PutBool(mask)
	for _, g := range GroupContours(contours) {
		hulls := make([][]utils.Point, 0, len(g.Contours))
		for _, c := range g.Contours {
			if h := c.Hull(); len(h) >= 3 {
				hulls = append(hulls, h)
			}
		}
		for _, m := range mergeHulls(hulls, dist, opts.Merge) {
			rect := fitRectangle(m)
			if rect.Area() < opts.MinArea {
				continue
			}
			out = append(out, rect)
		}
	}
	return out
}

// Detector runs region detection on decoded images with fixed options.
// It is safe for concurrent use.
type Detector struct {
	opts Options
}

// NewDetector validates opts and returns a Detector.
func NewDetector(opts Options) (*Detector, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid detector options: %w", err)
	}
	return &Detector{opts: opts}, nil
}

// Options returns the detector's options.
func (d *Detector) Options() Options { return d.opts }

// DetectImage converts img to a raster and detects candidate rectangles.
// Rectangle coordinates are relative to img.Bounds().Min.
func (d *Detector) DetectImage(img image.Image) []CandidateRectangle {
	if img == nil {
		return make([]CandidateRectangle, 0)
	}
	start := time.Now()
	r := RasterFromImage(img)
	rects := DetectWithOptions(r, d.opts)
	slog.Debug("Region detection finished",
		"width", r.Width,
		"height", r.Height,
		"regions", len(rects),
		"fast", d.opts.Fast,
		"merge", string(d.opts.Merge),
		"duration", time.Since(start))
	return rects
}
