package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/barscan/internal/batch"
	"github.com/MeKo-Tech/barscan/internal/config"
	"github.com/MeKo-Tech/barscan/internal/detector"
	"github.com/MeKo-Tech/barscan/internal/reader"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

// detectCmd represents the detect command.
var detectCmd = &cobra.Command{
	Use:   "detect [images or directories...]",
	Short: "Find candidate barcode regions without decoding",
	Long: `Find candidate barcode regions in images using contour geometry.

Every region is reported as a rotated rectangle: center, size and angle in
degrees. Nothing is decoded, so the command also locates symbols of formats
no decoder supports.

Supported formats: JPEG, PNG, GIF, BMP, TIFF, WebP

Examples:
  barscan detect photo.jpg
  barscan detect scans/ --recursive --format json
  barscan detect label.png --quiet-distance 8 --min-area 400 --overlay-dir out`,
	Args: cobra.ArbitraryArgs,
	RunE: runDetect,
}

// fileDetections is the detect output for one image.
type fileDetections struct {
	File                         string `json:"file" yaml:"file"`
	detector.DetectionResultJSON `yaml:",inline"`
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	opts, err := detectorOptions(cmd, cfg)
	if err != nil {
		return err
	}
	det, err := detector.NewDetector(opts)
	if err != nil {
		return err
	}

	overlayDir := cfg.Output.OverlayDir
	if cmd.Flags().Changed("overlay-dir") {
		overlayDir, _ = cmd.Flags().GetString("overlay-dir")
	}
	overlayColor := cfg.Output.OverlayColor
	if cmd.Flags().Changed("overlay-color") {
		overlayColor, _ = cmd.Flags().GetString("overlay-color")
	}
	if overlayColor != "" {
		if _, err := detector.ParseColor(overlayColor); err != nil {
			return err
		}
	}
	if overlayDir != "" {
		if err := os.MkdirAll(overlayDir, 0o750); err != nil {
			return fmt.Errorf("failed to create overlay directory: %w", err)
		}
	}

	disc, run := batchOptions(cmd, cfg, "detect ")
	files, err := discoverFiles(args, disc)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	res, err := batch.Run(ctx, files, run, func(_ context.Context, path string) (fileDetections, error) {
		img, _, err := utils.LoadImage(path)
		if err != nil {
			return fileDetections{}, err
		}
		rects := det.DetectImage(img)
		if overlayDir != "" {
			if err := saveOverlay(img, rects, overlayDir, path, overlayColor); err != nil {
				return fileDetections{}, err
			}
		}
		b := img.Bounds()
		return fileDetections{File: path, DetectionResultJSON: detector.NewDetectionResult(rects, b.Dx(), b.Dy())}, nil
	})
	printStats(cmd, res)
	if err != nil {
		return err
	}

	out, err := formatDetections(res.Values(), cfg.Output.Format)
	if err != nil {
		return err
	}
	return writeOutput(cmd, out, cfg.Output.File)
}

// detectorOptions starts from the detector config section and applies the
// flags given on the command line.
func detectorOptions(cmd *cobra.Command, cfg *config.Config) (detector.Options, error) {
	opts, err := cfg.ToDetectorOptions()
	if err != nil {
		return detector.Options{}, err
	}
	if cmd.Flags().Changed("quiet-distance") {
		opts.QuietDistance, _ = cmd.Flags().GetFloat64("quiet-distance")
	}
	if cmd.Flags().Changed("min-area") {
		opts.MinArea, _ = cmd.Flags().GetFloat64("min-area")
	}
	if cmd.Flags().Changed("fast") {
		opts.Fast, _ = cmd.Flags().GetBool("fast")
	}
	if cmd.Flags().Changed("threshold") {
		t, _ := cmd.Flags().GetInt("threshold")
		if t < 0 || t > 255 {
			return detector.Options{}, fmt.Errorf("invalid threshold: %d (must be between 0 and 255)", t)
		}
		opts.Threshold = uint8(t) //nolint:gosec // range checked
	}
	if cmd.Flags().Changed("merge") {
		name, _ := cmd.Flags().GetString("merge")
		merge, err := detector.ParseMergeStrategy(name)
		if err != nil {
			return detector.Options{}, err
		}
		opts.Merge = merge
	}
	return opts, opts.Validate()
}

// saveOverlay writes <overlayDir>/<name>_overlay.png.
func saveOverlay(img image.Image, rects []detector.CandidateRectangle, overlayDir, path, color string) error {
	vis := detector.DefaultVisualizeOptions()
	vis.Color = color
	ov, err := detector.Visualize(img, rects, vis)
	if err != nil {
		return err
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outPath := filepath.Join(overlayDir, base+"_overlay.png")
	if err := imaging.Save(ov, outPath); err != nil {
		return fmt.Errorf("failed to save overlay %s: %w", outPath, err)
	}
	return nil
}

type detectionsDoc struct {
	Images []fileDetections `json:"images" yaml:"images"`
}

// formatDetections renders detect results in the named output format.
func formatDetections(results []fileDetections, format string) (string, error) {
	switch format {
	case reader.OutputJSON:
		bts, err := json.MarshalIndent(detectionsDoc{Images: results}, "", "  ")
		if err != nil {
			return "", err
		}
		return string(bts) + "\n", nil
	case reader.OutputYAML:
		bts, err := yaml.Marshal(detectionsDoc{Images: results})
		return string(bts), err
	case reader.OutputCSV:
		var sb strings.Builder
		w := csv.NewWriter(&sb)
		rows := [][]string{{"file", "index", "center_x", "center_y", "width", "height", "angle"}}
		for _, res := range results {
			for i, r := range res.Regions {
				rows = append(rows, []string{
					res.File,
					strconv.Itoa(i),
					formatFloat(r.CenterX),
					formatFloat(r.CenterY),
					formatFloat(r.Width),
					formatFloat(r.Height),
					formatFloat(r.Angle),
				})
			}
		}
		if err := w.WriteAll(rows); err != nil {
			return "", err
		}
		return sb.String(), nil
	case reader.OutputText, "":
		var sb strings.Builder
		for i, res := range results {
			if i > 0 {
				sb.WriteString("\n")
			}
			fmt.Fprintf(&sb, "# %s (%dx%d)\n", res.File, res.Width, res.Height)
			if len(res.Regions) == 0 {
				sb.WriteString("no regions found\n")
				continue
			}
			for j, r := range res.Regions {
				fmt.Fprintf(&sb, "%d\tcenter=%s,%s\tsize=%sx%s\tangle=%s\n", j,
					formatFloat(r.CenterX), formatFloat(r.CenterY),
					formatFloat(r.Width), formatFloat(r.Height), formatFloat(r.Angle))
			}
		}
		return sb.String(), nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want one of %s)", format, strings.Join(reader.OutputFormats, ", "))
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func init() {
	rootCmd.AddCommand(detectCmd)

	defaults := detector.DefaultOptions()
	detectCmd.Flags().Float64("quiet-distance", defaults.QuietDistance, "merge contours closer than this many pixels")
	detectCmd.Flags().Float64("min-area", defaults.MinArea, "drop regions with a smaller area in square pixels")
	detectCmd.Flags().Bool("fast", defaults.Fast, "blur before thresholding so symbol modules fuse into one region")
	detectCmd.Flags().Int("threshold", int(defaults.Threshold), "binarization threshold (0-255)")
	detectCmd.Flags().String("merge", string(defaults.Merge), "merge strategy: greedy or unionfind")
	detectCmd.Flags().String("overlay-dir", "", "directory to write overlay images with the regions drawn")
	detectCmd.Flags().String("overlay-color", "", "overlay color as hex (default: one color per region)")
	addBatchFlags(detectCmd)
}
