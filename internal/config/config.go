package config

import (
	"fmt"
	"maps"
	"runtime"
	"slices"
	"strings"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/detector"
	"github.com/MeKo-Tech/barscan/internal/pdf"
	"github.com/MeKo-Tech/barscan/internal/reader"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Detector: defaultDetectorConfig(),
		Reader:   defaultReaderConfig(),
		PDF: PDFConfig{
			Workers:        runtime.NumCPU(),
			AllowPasswords: true,
		},
		Output: OutputConfig{
			Format:       reader.OutputText,
			OverlayColor: "",
		},
		Server: ServerConfig{
			Host:              "localhost",
			Port:              8080,
			CORSOrigin:        "*",
			MaxUploadMB:       50,
			TimeoutSec:        30,
			ShutdownTimeout:   10,
			RateLimitEnabled:  false,
			RequestsPerMinute: 60,
			RequestsPerHour:   1000,
			MaxRequestsPerDay: 10000,
			MaxDataPerDayMB:   1024,
		},
	}
}

// defaultDetectorConfig returns default detector configuration.
func defaultDetectorConfig() DetectorConfig {
	opts := detector.DefaultOptions()
	return DetectorConfig{
		QuietDistance: opts.QuietDistance,
		MinArea:       opts.MinArea,
		Fast:          opts.Fast,
		Threshold:     int(opts.Threshold),
		Merge:         string(opts.Merge),
	}
}

// defaultReaderConfig returns default reader configuration.
func defaultReaderConfig() ReaderConfig {
	opts := reader.DefaultOptions()
	return ReaderConfig{
		Backend:       barcode.BackendGozxing,
		Formats:       []string{},
		TryHarder:     opts.TryHarder,
		Fallback:      opts.Fallback,
		FallbackFast:  opts.Detector.Fast,
		Workers:       opts.Workers,
		RegionMargin:  opts.RegionMargin,
		RegionPadding: opts.RegionPadding,
	}
}

// Validate validates the configuration and returns the first error found.
func (c *Config) Validate() error {
	for _, check := range []func() error{
		c.validateBasicEnums,
		c.validateDetector,
		c.validateReader,
		c.validateServer,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	if c.PDF.Workers <= 0 {
		return fmt.Errorf("invalid pdf workers: %d (must be positive)", c.PDF.Workers)
	}
	return nil
}

// validateBasicEnums checks log level, output format and overlay color.
func (c *Config) validateBasicEnums() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if c.Output.Format != "" && !reader.ValidOutputFormat(c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)",
			c.Output.Format, strings.Join(reader.OutputFormats, ", "))
	}
	if c.Output.OverlayColor != "" {
		if _, err := detector.ParseColor(c.Output.OverlayColor); err != nil {
			return fmt.Errorf("invalid overlay color: %w", err)
		}
	}
	return nil
}

func (c *Config) validateDetector() error {
	if c.Detector.Threshold < 0 || c.Detector.Threshold > 255 {
		return fmt.Errorf("invalid detector threshold: %d (must be between 0 and 255)", c.Detector.Threshold)
	}
	if err := c.detectorOptions(c.Detector.Fast).Validate(); err != nil {
		return fmt.Errorf("invalid detector settings: %w", err)
	}
	return nil
}

func (c *Config) validateReader() error {
	validBackends := []string{barcode.BackendGozxing, barcode.BackendNone}
	if !slices.Contains(validBackends, c.Reader.Backend) {
		return fmt.Errorf("invalid reader backend: %s (must be one of: %s)", c.Reader.Backend, strings.Join(validBackends, ", "))
	}
	if _, err := barcode.ParseFormats(c.Reader.Formats); err != nil {
		return fmt.Errorf("invalid reader formats: %w", err)
	}
	if c.Reader.Workers < 0 {
		return fmt.Errorf("invalid reader workers: %d (must not be negative)", c.Reader.Workers)
	}
	if c.Reader.RegionMargin < 0 {
		return fmt.Errorf("invalid region margin: %v (must not be negative)", c.Reader.RegionMargin)
	}
	if c.Reader.RegionPadding < 0 {
		return fmt.Errorf("invalid region padding: %d (must not be negative)", c.Reader.RegionPadding)
	}
	return nil
}

// validateServer checks the listener, timeouts and rate limits. Zero
// rate limits are allowed and disable that limit.
func (c *Config) validateServer() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("invalid shutdown timeout: %d (must not be negative)", c.Server.ShutdownTimeout)
	}
	limits := map[string]int{
		"requests_per_minute":  c.Server.RequestsPerMinute,
		"requests_per_hour":    c.Server.RequestsPerHour,
		"max_requests_per_day": c.Server.MaxRequestsPerDay,
		"max_data_per_day_mb":  c.Server.MaxDataPerDayMB,
	}
	for _, name := range slices.Sorted(maps.Keys(limits)) {
		if limits[name] < 0 {
			return fmt.Errorf("invalid server %s: %d (must not be negative)", name, limits[name])
		}
	}
	return nil
}

// ToDetectorOptions converts the detector section to detector.Options.
func (c *Config) ToDetectorOptions() (detector.Options, error) {
	opts := c.detectorOptions(c.Detector.Fast)
	if err := opts.Validate(); err != nil {
		return detector.Options{}, err
	}
	return opts, nil
}

// ToReaderOptions converts the reader section to reader.Options. The
// fallback detector shares the detector section but carries its own
// blur switch.
func (c *Config) ToReaderOptions() (reader.Options, error) {
	formats, err := barcode.ParseFormats(c.Reader.Formats)
	if err != nil {
		return reader.Options{}, err
	}
	opts := reader.Options{
		Formats:       formats,
		TryHarder:     c.Reader.TryHarder,
		Fallback:      c.Reader.Fallback,
		Workers:       c.Reader.Workers,
		RegionMargin:  c.Reader.RegionMargin,
		RegionPadding: c.Reader.RegionPadding,
		Detector:      c.detectorOptions(c.Reader.FallbackFast),
	}
	if err := opts.Validate(); err != nil {
		return reader.Options{}, err
	}
	return opts, nil
}

// NewReader builds a reader from the configured backend and reader options.
func (c *Config) NewReader() (*reader.Reader, error) {
	backend, err := barcode.NewBackend(c.Reader.Backend)
	if err != nil {
		return nil, err
	}
	opts, err := c.ToReaderOptions()
	if err != nil {
		return nil, fmt.Errorf("invalid reader options: %w", err)
	}
	return reader.New(backend, opts)
}

// ToProcessorConfig converts the pdf section to pdf.ProcessorConfig.
func (c *Config) ToProcessorConfig() *pdf.ProcessorConfig {
	return &pdf.ProcessorConfig{
		AllowPasswords:      c.PDF.AllowPasswords,
		AllowPasswordPrompt: c.PDF.PasswordPrompt,
		MaxWorkers:          c.PDF.Workers,
	}
}

// PDFCredentials returns the configured PDF passwords, or nil when none are set.
func (c *Config) PDFCredentials() *pdf.PasswordCredentials {
	creds := &pdf.PasswordCredentials{UserPassword: c.PDF.UserPassword, OwnerPassword: c.PDF.OwnerPassword}
	if creds.Empty() {
		return nil
	}
	return creds
}

func (c *Config) detectorOptions(fast bool) detector.Options {
	merge, err := detector.ParseMergeStrategy(c.Detector.Merge)
	if err != nil {
		// keep the raw value so Validate reports it
		merge = detector.MergeStrategy(c.Detector.Merge)
	}
	return detector.Options{
		QuietDistance: c.Detector.QuietDistance,
		MinArea:       c.Detector.MinArea,
		Fast:          fast,
		Threshold:     uint8(min(max(c.Detector.Threshold, 0), 255)), //nolint:gosec // clamped
		Merge:         merge,
	}
}
