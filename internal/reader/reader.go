// Package reader decodes every barcode in an image. It runs the decoding
// backend over the whole image first, then crops the regions found by the
// contour detector that no decoded symbol covers and decodes those on a
// worker pool. Every symbol is normalized before it is returned.
package reader

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/detector"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

// FullImage is the Region value of symbols decoded from the whole image.
const FullImage = -1

// Options configures a Reader.
type Options struct {
	// Formats limits decoding to these symbologies. Empty means all.
	Formats []barcode.Format
	// TryHarder asks the backend for a slower, more exhaustive search.
	TryHarder bool
	// Fallback enables region detection after the full-image decode.
	Fallback bool
	// Workers bounds concurrent region decodes. Zero means runtime.NumCPU().
	Workers int
	// RegionMargin grows each detected region on every side before
	// cropping. Zero selects twice the detector's quiet distance.
	RegionMargin float64
	// RegionPadding is the white border in pixels added around each crop.
	RegionPadding int
	// Detector tunes region detection for the fallback.
	Detector detector.Options
}

// DefaultOptions returns options with fallback enabled. The fallback
// detector blurs before thresholding so the modules of a symbol fuse into
// one region.
func DefaultOptions() Options {
	det := detector.DefaultOptions()
	det.Fast = true
	return Options{
		Fallback:      true,
		Workers:       runtime.NumCPU(),
		RegionPadding: 20,
		Detector:      det,
	}
}

// Validate reports option values the reader cannot honor.
func (o Options) Validate() error {
	var errs []error
	if o.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be >= 0, got %d", o.Workers))
	}
	if o.RegionMargin < 0 {
		errs = append(errs, fmt.Errorf("region margin must be >= 0, got %v", o.RegionMargin))
	}
	if o.RegionPadding < 0 {
		errs = append(errs, fmt.Errorf("region padding must be >= 0, got %d", o.RegionPadding))
	}
	if err := o.Detector.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (o Options) margin() float64 {
	if o.RegionMargin > 0 {
		return o.RegionMargin
	}
	return 2 * o.Detector.QuietDistance
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

// Symbol is a normalized decoded barcode.
type Symbol struct {
	barcode.Result `yaml:",inline"`
	// Region is the index into ImageResult.Regions the symbol was decoded
	// from, or FullImage.
	Region int `json:"region" yaml:"region"`
}

// ImageResult holds everything read from one image.
type ImageResult struct {
	File             string                `json:"file,omitempty" yaml:"file,omitempty"`
	Width            int                   `json:"width" yaml:"width"`
	Height           int                   `json:"height" yaml:"height"`
	Symbols          []Symbol              `json:"symbols" yaml:"symbols"`
	Regions          []detector.RegionJSON `json:"regions,omitempty" yaml:"regions,omitempty"`
	RegionsDecoded   int                   `json:"regions_decoded" yaml:"regions_decoded"`
	ProcessingTimeMs float64               `json:"processing_time_ms" yaml:"processing_time_ms"`
}

// Values returns the payloads in result order.
func (r *ImageResult) Values() []string {
	out := make([]string, len(r.Symbols))
	for i, s := range r.Symbols {
		out[i] = s.Value
	}
	return out
}

// Reader decodes barcodes with a backend and the region detector.
// It is safe for concurrent use if the backend is.
type Reader struct {
	backend  barcode.Backend
	detector *detector.Detector
	opts     Options
}

// New validates opts and returns a Reader over backend.
func New(backend barcode.Backend, opts Options) (*Reader, error) {
	if backend == nil {
		return nil, errors.New("reader: nil backend")
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reader options: %w", err)
	}
	det, err := detector.NewDetector(opts.Detector)
	if err != nil {
		return nil, err
	}
	return &Reader{backend: backend, detector: det, opts: opts}, nil
}

// Options returns the reader's options.
func (r *Reader) Options() Options { return r.opts }

// ReadFile loads the image at path and reads it.
func (r *Reader) ReadFile(ctx context.Context, path string) (*ImageResult, error) {
	img, _, err := utils.LoadImage(path)
	if err != nil {
		return nil, err
	}
	res, err := r.Read(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	res.File = path
	return res, nil
}

// Read decodes every symbol in img. Coordinates are relative to
// img.Bounds().Min. Symbols are deduplicated by format, payload and
// location and sorted top to bottom, then left to right. A failed region decode counts
// as no symbol; only a nil image, a cancelled context or a failing
// full-image decode return an error.
func (r *Reader) Read(ctx context.Context, img image.Image) (*ImageResult, error) {
	if img == nil {
		return nil, errors.New("reader: nil image")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	b := img.Bounds()
	res := &ImageResult{Width: b.Dx(), Height: b.Dy()}

	found, err := r.backend.Decode(ctx, img, r.decodeOptions())
	if err != nil && !errors.Is(err, barcode.ErrNotFound) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("decode image: %w", err)
	}
	raw := make([]Symbol, 0, len(found))
	for _, f := range found {
		raw = append(raw, Symbol{Result: f, Region: FullImage})
	}

	if r.opts.Fallback {
		rects := r.detector.DetectImage(img)
		res.Regions = detector.NewDetectionResult(rects, res.Width, res.Height).Regions
		jobs := r.pendingRegions(rects, found, image.Rect(0, 0, res.Width, res.Height))
		more, err := r.decodeRegions(ctx, img, jobs)
		if err != nil {
			return nil, err
		}
		res.RegionsDecoded = len(jobs)
		raw = append(raw, more...)
	}

	res.Symbols = finalize(raw)
	res.ProcessingTimeMs = float64(time.Since(start).Microseconds()) / 1000
	slog.Debug("Read image",
		"width", res.Width,
		"height", res.Height,
		"symbols", len(res.Symbols),
		"regions", len(res.Regions),
		"regions_decoded", res.RegionsDecoded,
		"duration_ms", res.ProcessingTimeMs)
	return res, nil
}

func (r *Reader) decodeOptions() barcode.Options {
	return barcode.Options{Formats: r.opts.Formats, TryHarder: r.opts.TryHarder}
}

// regionJob is a crop rectangle relative to the image origin.
type regionJob struct {
	index int
	rect  image.Rectangle
}

// pendingRegions expands every rectangle and drops the ones that already
// contain a point of a full-image result.
func (r *Reader) pendingRegions(rects []detector.CandidateRectangle, found []barcode.Result, frame image.Rectangle) []regionJob {
	margin := r.opts.margin()
	jobs := make([]regionJob, 0, len(rects))
	for i, rect := range rects {
		crop := rect.Expand(margin).Bounds().ToRect(frame)
		if crop.Empty() {
			continue
		}
		if covered(crop, found) {
			slog.Debug("Region already decoded", "index", i, "rect", rect.String())
			continue
		}
		jobs = append(jobs, regionJob{index: i, rect: crop})
	}
	return jobs
}

func covered(rect image.Rectangle, found []barcode.Result) bool {
	for _, f := range found {
		for _, p := range f.Points {
			if image.Pt(p.X, p.Y).In(rect) {
				return true
			}
		}
	}
	return false
}

type regionResult struct {
	index   int
	symbols []Symbol
}

// decodeRegions decodes jobs on a bounded worker pool and returns the
// symbols in region order.
func (r *Reader) decodeRegions(ctx context.Context, img image.Image, jobs []regionJob) ([]Symbol, error) {
	if len(jobs) == 0 {
		return nil, nil
	}
	workers := min(r.opts.workers(), len(jobs))

	jobCh := make(chan regionJob, len(jobs))
	results := make(chan regionResult, len(jobs))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				if ctx.Err() != nil {
					return
				}
				results <- regionResult{index: job.index, symbols: r.decodeRegion(ctx, img, job)}
			}
		}()
	}
	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)

	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make([]regionResult, 0, len(jobs))
	for res := range results {
		collected = append(collected, res)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(collected, func(a, b regionResult) int { return cmp.Compare(a.index, b.index) })
	var out []Symbol
	for _, c := range collected {
		out = append(out, c.symbols...)
	}
	return out, nil
}

// decodeRegion crops and pads one region, decodes it and maps the points
// back into image coordinates.
func (r *Reader) decodeRegion(ctx context.Context, img image.Image, job regionJob) []Symbol {
	crop := utils.CropImageRect(img, job.rect.Add(img.Bounds().Min))
	pad := r.opts.RegionPadding
	padded, err := utils.PadImage(crop, pad, color.White)
	if err != nil {
		slog.Debug("Region crop failed", "index", job.index, "error", err)
		return nil
	}

	found, err := r.backend.Decode(ctx, padded, r.decodeOptions())
	if err != nil {
		if !errors.Is(err, barcode.ErrNotFound) {
			slog.Debug("Region decode failed", "index", job.index, "error", err)
		}
		return nil
	}

	shift := job.rect.Min.Sub(image.Pt(pad, pad))
	out := make([]Symbol, 0, len(found))
	for _, f := range found {
		f.Points = f.Points.Offset(shift)
		f.BBox = f.Points.Bounds()
		out = append(out, Symbol{Result: f, Region: job.index})
	}
	slog.Debug("Fallback region decoded", "index", job.index, "rect", job.rect.String(), "symbols", len(out))
	return out
}

type symbolKey struct {
	format barcode.Format
	value  string
}

// finalize normalizes, deduplicates and sorts raw symbols. Two symbols are
// the same when format and payload match and their footprints overlap;
// the first one wins, so full-image results take precedence over region
// results. Equal payloads at separate places on the page are all kept.
func finalize(raw []Symbol) []Symbol {
	out := make([]Symbol, 0, len(raw))
	kept := make(map[symbolKey][]int, len(raw))
	for _, s := range raw {
		n, err := barcode.NormalizeResult(s.Result)
		if err != nil {
			slog.Debug("Keeping reported geometry", "format", s.Type.String(), "error", err)
		}
		s.Result = n
		key := symbolKey{format: s.Type, value: s.Value}
		if slices.ContainsFunc(kept[key], func(i int) bool { return sameSymbol(out[i].Result, s.Result) }) {
			continue
		}
		kept[key] = append(kept[key], len(out))
		out = append(out, s)
	}
	slices.SortStableFunc(out, func(a, b Symbol) int {
		if c := cmp.Compare(a.BBox.Min.Y, b.BBox.Min.Y); c != 0 {
			return c
		}
		return cmp.Compare(a.BBox.Min.X, b.BBox.Min.X)
	})
	return out
}

// sameSymbol reports whether a and b, which carry the same payload, cover
// the same place. A result without points cannot be placed and matches
// anything.
func sameSymbol(a, b barcode.Result) bool {
	fa, fb := footprint(a), footprint(b)
	if fa.Empty() || fb.Empty() {
		return true
	}
	return fa.Overlaps(fb)
}

// footprint is the area a result occupies. A 1D result is a scan line,
// which is grown vertically by half its length because another decode of
// the same bars may cross them on a different row.
func footprint(r barcode.Result) image.Rectangle {
	box := r.BBox
	if len(r.Points) >= 3 || box.Empty() {
		return box
	}
	grow := box.Dx()/2 + 1
	return image.Rect(box.Min.X-1, box.Min.Y-grow, box.Max.X+1, box.Max.Y+grow)
}
