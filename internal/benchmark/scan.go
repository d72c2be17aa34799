package benchmark

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"image"
	"io"
	"strconv"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/detector"
	"github.com/MeKo-Tech/barscan/internal/reader"
)

// Input is one named image to benchmark.
type Input struct {
	Name  string
	Image image.Image
}

// ScanConfig selects what a scan suite measures.
type ScanConfig struct {
	// Detector is the base detection configuration. Its Merge field is
	// replaced by each entry of Strategies in turn.
	Detector   detector.Options
	Strategies []detector.MergeStrategy
	// Backend enables the read benchmarks when non-nil.
	Backend barcode.Backend
	Reader  reader.Options
}

// DefaultScanConfig compares both merge strategies and reads with backend.
func DefaultScanConfig(backend barcode.Backend) ScanConfig {
	return ScanConfig{
		Detector:   detector.DefaultOptions(),
		Strategies: []detector.MergeStrategy{detector.MergeGreedy, detector.MergeUnionFind},
		Backend:    backend,
		Reader:     reader.DefaultOptions(),
	}
}

// NewScanSuite registers, for every input, one detection benchmark per
// merge strategy named "detect/<input>/<strategy>" and, when a backend is
// configured, a read benchmark named "read/<input>".
func NewScanSuite(ctx context.Context, inputs []Input, cfg ScanConfig) (*Suite, error) {
	if len(inputs) == 0 {
		return nil, errors.New("no benchmark inputs")
	}
	strategies := cfg.Strategies
	if len(strategies) == 0 {
		strategies = []detector.MergeStrategy{cfg.Detector.Merge}
	}

	suite := NewSuite()
	for _, strategy := range strategies {
		opts := cfg.Detector
		opts.Merge = strategy
		det, err := detector.NewDetector(opts)
		if err != nil {
			return nil, err
		}
		for _, in := range inputs {
			img := in.Image
			suite.Add(fmt.Sprintf("detect/%s/%s", in.Name, strategy), func() error {
				det.DetectImage(img)
				return ctx.Err()
			})
		}
	}

	if cfg.Backend != nil {
		rd, err := reader.New(cfg.Backend, cfg.Reader)
		if err != nil {
			return nil, err
		}
		for _, in := range inputs {
			img := in.Image
			suite.Add("read/"+in.Name, func() error {
				_, err := rd.Read(ctx, img)
				return err
			})
		}
	}
	return suite, nil
}

// WriteCSV writes one row per result with durations in milliseconds.
func WriteCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	rows := [][]string{{"name", "iterations", "avg_ms", "total_ms", "alloc_per_op_kb", "error"}}
	for _, r := range results {
		errText := ""
		if r.Error != nil {
			errText = r.Error.Error()
		}
		rows = append(rows, []string{
			r.Name,
			strconv.Itoa(r.Iterations),
			strconv.FormatFloat(float64(r.AvgDuration().Nanoseconds())/1e6, 'f', 3, 64),
			strconv.FormatFloat(float64(r.Duration.Nanoseconds())/1e6, 'f', 3, 64),
			strconv.FormatUint(r.AllocPerOp()/1024, 10),
			errText,
		})
	}
	return cw.WriteAll(rows)
}
