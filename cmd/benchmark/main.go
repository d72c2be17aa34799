// Command benchmark times region detection and barcode reading.
//
// Without arguments it renders a few synthetic pages; otherwise it loads the
// given images:
//
//	go run ./cmd/benchmark -iterations 20 -output results.csv photos/*.jpg
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/benchmark"
	"github.com/MeKo-Tech/barscan/internal/detector"
	"github.com/MeKo-Tech/barscan/internal/synthetic"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

func main() {
	var (
		iterations = flag.Int("iterations", 10, "Number of iterations per benchmark")
		outputFile = flag.String("output", "", "Write results as CSV to this file (optional)")
		merge      = flag.String("merge", "greedy,unionfind", "Comma separated merge strategies to compare")
		backend    = flag.String("backend", barcode.BackendGozxing, "Decoder backend for read benchmarks (\"none\" skips them)")
		verbose    = flag.Bool("verbose", false, "Verbose output")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, flag.Args(), *iterations, *outputFile, *merge, *backend); err != nil {
		slog.Error("Benchmark failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, paths []string, iterations int, outputFile, merge, backendName string) error {
	inputs, err := loadInputs(paths)
	if err != nil {
		return err
	}

	cfg := benchmark.DefaultScanConfig(nil)
	cfg.Strategies = nil
	for _, name := range strings.Split(merge, ",") {
		strategy, err := detector.ParseMergeStrategy(name)
		if err != nil {
			return err
		}
		cfg.Strategies = append(cfg.Strategies, strategy)
	}
	if backendName != barcode.BackendNone {
		if cfg.Backend, err = barcode.NewBackend(backendName); err != nil {
			return err
		}
	}

	suite, err := benchmark.NewScanSuite(ctx, inputs, cfg)
	if err != nil {
		return err
	}

	fmt.Println("barscan detection and reading benchmark")
	fmt.Println("=======================================")
	fmt.Printf("Running %d benchmarks with %d iterations each...\n", len(suite.Names()), iterations)
	for _, name := range suite.Names() {
		slog.Debug("Registered benchmark", "name", name)
	}

	results := suite.RunAll(iterations)
	suite.PrintResults(os.Stdout)

	if outputFile != "" {
		if err := saveResults(outputFile, results); err != nil {
			return fmt.Errorf("failed to save results: %w", err)
		}
		fmt.Printf("Results saved to: %s\n", outputFile)
	}
	return nil
}

// loadInputs decodes the given images, or renders synthetic pages when
// none are given.
func loadInputs(paths []string) ([]benchmark.Input, error) {
	if len(paths) == 0 {
		return syntheticInputs()
	}
	inputs := make([]benchmark.Input, 0, len(paths))
	for _, p := range paths {
		img, _, err := utils.LoadImage(p)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", p, err)
		}
		inputs = append(inputs, benchmark.Input{Name: filepath.Base(p), Image: img})
	}
	return inputs, nil
}

func syntheticInputs() ([]benchmark.Input, error) {
	qr, err := synthetic.QRCode("barscan benchmark", 240)
	if err != nil {
		return nil, err
	}
	code, err := synthetic.Code128("BARSCAN-0001", 360, 120)
	if err != nil {
		return nil, err
	}

	page := synthetic.Canvas(1240, 1754)
	for i := range 6 {
		x, y := 80+(i%3)*380, 120+(i/3)*800
		if i%2 == 0 {
			page = synthetic.Place(page, qr, x, y)
		} else {
			page = synthetic.Place(page, code, x, y+60)
		}
	}

	return []benchmark.Input{
		{Name: "single_qr", Image: synthetic.Place(synthetic.Canvas(480, 400), qr, 120, 80)},
		{Name: "rotated_code128", Image: synthetic.Rotate(synthetic.Place(synthetic.Canvas(600, 300), code, 120, 90), 30)},
		{Name: "a4_page", Image: page},
	}, nil
}

func saveResults(filename string, results []benchmark.Result) error {
	file, err := os.Create(filename) //nolint:gosec // G304: user supplied output path
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()
	return benchmark.WriteCSV(file, results)
}
