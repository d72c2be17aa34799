package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/barscan/internal/batch"
	"github.com/MeKo-Tech/barscan/internal/config"
)

// writeOutput writes content to file, or to the command's stdout when file
// is empty.
func writeOutput(cmd *cobra.Command, content, file string) error {
	if file == "" {
		if _, err := io.WriteString(cmd.OutOrStdout(), content); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Results written to %s\n", file)
	return nil
}

// commandContext returns a context cancelled on interrupt.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt)
}

// addBatchFlags registers the file discovery and worker pool flags shared
// by commands taking many images.
func addBatchFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	cmd.Flags().StringSlice("include", nil, "only process files whose name matches one of these globs")
	cmd.Flags().StringSlice("exclude", nil, "skip files whose name matches one of these globs")
	cmd.Flags().IntP("jobs", "j", 0, "files processed in parallel (0 = number of CPUs)")
	cmd.Flags().Bool("continue-on-error", false, "report failed files and keep going")
	cmd.Flags().Bool("progress", false, "show a progress bar on stderr")
	cmd.Flags().Bool("stats", false, "print processing statistics on stderr")
}

// batchOptions reads the flags registered by addBatchFlags.
func batchOptions(cmd *cobra.Command, cfg *config.Config, prefix string) (batch.DiscoveryOptions, batch.Config) {
	var disc batch.DiscoveryOptions
	disc.Recursive, _ = cmd.Flags().GetBool("recursive")
	disc.Include, _ = cmd.Flags().GetStringSlice("include")
	disc.Exclude, _ = cmd.Flags().GetStringSlice("exclude")

	run := batch.DefaultConfig()
	if cmd.Flags().Changed("jobs") {
		run.Workers, _ = cmd.Flags().GetInt("jobs")
	}
	run.ContinueOnError, _ = cmd.Flags().GetBool("continue-on-error")
	if showBar, _ := cmd.Flags().GetBool("progress"); showBar {
		run.Progress = batch.NewConsoleProgress(cmd.ErrOrStderr(), prefix)
	} else {
		level := slog.LevelDebug
		if cfg.Verbose {
			level = slog.LevelInfo
		}
		run.Progress = batch.NewLogProgress(slog.Default(), level, 10)
	}
	return disc, run
}

// discoverFiles expands args and fails when nothing is left to process.
func discoverFiles(args []string, disc batch.DiscoveryOptions) ([]string, error) {
	if len(args) == 0 {
		return nil, errors.New("no input files provided")
	}
	files, err := batch.Discover(args, disc)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no image files found in %v", args)
	}
	return files, nil
}

// printStats writes run statistics to stderr when --stats is set.
func printStats[T any](cmd *cobra.Command, res *batch.Result[T]) {
	if res == nil {
		return
	}
	if show, _ := cmd.Flags().GetBool("stats"); show {
		res.PrintStats(cmd.ErrOrStderr())
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
