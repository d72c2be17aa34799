package cmd

import (
	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/batch"
	"github.com/MeKo-Tech/barscan/internal/config"
	"github.com/MeKo-Tech/barscan/internal/reader"
)

// readCmd represents the read command.
var readCmd = &cobra.Command{
	Use:   "read [images or directories...]",
	Short: "Decode barcodes in images",
	Long: `Decode every barcode in one or more images.

The whole image is decoded first. When that misses symbols, candidate
regions are detected and decoded one by one. Every symbol is reported with
a clockwise polygon starting at its top-left corner, and payloads that
were decoded with the wrong character set are repaired.

Supported formats: JPEG, PNG, GIF, BMP, TIFF, WebP

Examples:
  barscan read label.png
  barscan read scans/ --recursive --format csv --output codes.csv
  barscan read shelf.jpg --formats ean13,upca --try-harder`,
	Args: cobra.ArbitraryArgs,
	RunE: runRead,
}

func runRead(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	rd, err := newReader(cmd, cfg)
	if err != nil {
		return err
	}

	disc, run := batchOptions(cmd, cfg, "read ")
	files, err := discoverFiles(args, disc)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	res, err := batch.Run(ctx, files, run, rd.ReadFile)
	printStats(cmd, res)
	if err != nil {
		return err
	}

	out, err := reader.FormatResults(res.Values(), cfg.Output.Format)
	if err != nil {
		return err
	}
	return writeOutput(cmd, out, cfg.Output.File)
}

// newReader builds a reader from the reader config section and the flags
// added by addReaderFlags.
func newReader(cmd *cobra.Command, cfg *config.Config) (*reader.Reader, error) {
	opts, err := cfg.ToReaderOptions()
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("formats") {
		names, _ := cmd.Flags().GetStringSlice("formats")
		if opts.Formats, err = barcode.ParseFormats(names); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("try-harder") {
		opts.TryHarder, _ = cmd.Flags().GetBool("try-harder")
	}
	if noFallback, _ := cmd.Flags().GetBool("no-fallback"); noFallback {
		opts.Fallback = false
	}
	if cmd.Flags().Changed("workers") {
		opts.Workers, _ = cmd.Flags().GetInt("workers")
	}

	name := cfg.Reader.Backend
	if cmd.Flags().Changed("backend") {
		name, _ = cmd.Flags().GetString("backend")
	}
	backend, err := barcode.NewBackend(name)
	if err != nil {
		return nil, err
	}
	return reader.New(backend, opts)
}

// addReaderFlags registers the decoding flags shared by read and pdf.
func addReaderFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("formats", nil, "only decode these symbologies (e.g. qr,ean13,code128)")
	cmd.Flags().Bool("try-harder", false, "spend more time looking for symbols")
	cmd.Flags().Bool("no-fallback", false, "do not decode detected regions when the whole image misses symbols")
	cmd.Flags().Int("workers", 0, "regions decoded in parallel per image (0 = number of CPUs)")
	cmd.Flags().String("backend", barcode.BackendGozxing, "decoding engine: gozxing or none")
}

func init() {
	rootCmd.AddCommand(readCmd)
	addReaderFlags(readCmd)
	addBatchFlags(readCmd)
}
