package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/barscan/internal/config"
	"github.com/MeKo-Tech/barscan/internal/server"
)

// Rate limiter state of clients idle this long is dropped.
const clientIdleTimeout = 24 * time.Hour

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the barcode API",
	Long: `Start an HTTP server that provides REST API endpoints for barcode
detection and decoding.

The server provides the following endpoints:
  GET  /health          - Health check endpoint
  POST /barcodes/detect - Detect candidate regions in an uploaded image
  POST /barcodes/read   - Decode barcodes in an uploaded image
  POST /barcodes/pdf    - Decode barcodes in an uploaded PDF
  POST /barcodes/batch  - Decode barcodes in several uploaded images
  GET  /ws/read         - WebSocket: image frames in, JSON results out
  GET  /metrics         - Prometheus metrics

Examples:
  barscan serve
  barscan serve --port 8080
  barscan serve --host 0.0.0.0 --port 3000 --rate-limit-enabled`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		serverConfig, shutdownTimeout, err := serverConfigFromFlags(cmd, cfg)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		srv, err := server.NewServer(serverConfig)
		if err != nil {
			return fmt.Errorf("failed to initialize server: %w", err)
		}

		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", serverConfig.Host, serverConfig.Port),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       time.Duration(serverConfig.TimeoutSec) * time.Second,
			// WebSocket connections outlive single requests
			WriteTimeout: 0,
		}

		go func() {
			slog.Info("Starting barcode server", "host", serverConfig.Host, "port", serverConfig.Port)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Server error", "error", err)
				cancel()
			}
		}()
		go pruneClients(ctx, srv)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal", "signal", sig.String())
		case <-ctx.Done():
			slog.Info("Context cancelled, initiating shutdown")
		}

		slog.Info("Starting graceful shutdown", "timeout", shutdownTimeout)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
		if err := srv.Close(); err != nil {
			slog.Error("Server cleanup error", "error", err)
		}
		slog.Info("Graceful shutdown completed")
		return nil
	},
}

// serverConfigFromFlags merges the server config section with the flags
// given on the command line.
func serverConfigFromFlags(cmd *cobra.Command, cfg *config.Config) (server.Config, time.Duration, error) {
	sc := cfg.Server
	flags := cmd.Flags()
	if flags.Changed("host") {
		sc.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		sc.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("cors-origin") {
		sc.CORSOrigin, _ = flags.GetString("cors-origin")
	}
	if flags.Changed("max-upload-size") {
		sc.MaxUploadMB, _ = flags.GetInt("max-upload-size")
	}
	if flags.Changed("timeout") {
		sc.TimeoutSec, _ = flags.GetInt("timeout")
	}
	if flags.Changed("shutdown-timeout") {
		sc.ShutdownTimeout, _ = flags.GetInt("shutdown-timeout")
	}
	if flags.Changed("rate-limit-enabled") {
		sc.RateLimitEnabled, _ = flags.GetBool("rate-limit-enabled")
	}
	if flags.Changed("requests-per-minute") {
		sc.RequestsPerMinute, _ = flags.GetInt("requests-per-minute")
	}
	if flags.Changed("requests-per-hour") {
		sc.RequestsPerHour, _ = flags.GetInt("requests-per-hour")
	}
	if flags.Changed("max-requests-per-day") {
		sc.MaxRequestsPerDay, _ = flags.GetInt("max-requests-per-day")
	}
	if flags.Changed("max-data-per-day") {
		sc.MaxDataPerDayMB, _ = flags.GetInt("max-data-per-day")
	}

	if sc.Port < 1 || sc.Port > 65535 {
		return server.Config{}, 0, fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", sc.Port)
	}
	if sc.MaxUploadMB <= 0 {
		return server.Config{}, 0, fmt.Errorf("invalid max upload size: %d (must be positive)", sc.MaxUploadMB)
	}

	readerOpts, err := cfg.ToReaderOptions()
	if err != nil {
		return server.Config{}, 0, err
	}
	detectorOpts, err := cfg.ToDetectorOptions()
	if err != nil {
		return server.Config{}, 0, err
	}
	pdfCfg := cfg.ToProcessorConfig()
	// The server has no terminal to prompt on
	pdfCfg.AllowPasswordPrompt = false

	return server.Config{
		Host:         sc.Host,
		Port:         sc.Port,
		CORSOrigin:   sc.CORSOrigin,
		MaxUploadMB:  int64(sc.MaxUploadMB),
		TimeoutSec:   sc.TimeoutSec,
		OverlayColor: cfg.Output.OverlayColor,
		Backend:      cfg.Reader.Backend,
		Reader:       readerOpts,
		Detector:     detectorOpts,
		PDF:          *pdfCfg,
		RateLimit: server.RateLimitConfig{
			Enabled:           sc.RateLimitEnabled,
			RequestsPerMinute: sc.RequestsPerMinute,
			RequestsPerHour:   sc.RequestsPerHour,
			MaxRequestsPerDay: sc.MaxRequestsPerDay,
			MaxDataPerDay:     int64(sc.MaxDataPerDayMB) * 1024 * 1024,
		},
	}, time.Duration(sc.ShutdownTimeout) * time.Second, nil
}

// pruneClients periodically forgets idle rate limiter clients.
func pruneClients(ctx context.Context, srv *server.Server) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := srv.PruneIdleClients(clientIdleTimeout); n > 0 {
				slog.Debug("Pruned idle rate limit clients", "count", n)
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	defaults := config.DefaultConfig().Server
	serveCmd.Flags().StringP("host", "H", defaults.Host, "server host")
	serveCmd.Flags().IntP("port", "p", defaults.Port, "server port")
	serveCmd.Flags().String("cors-origin", defaults.CORSOrigin, "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", defaults.MaxUploadMB, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", defaults.TimeoutSec, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", defaults.ShutdownTimeout, "shutdown timeout in seconds")
	// Rate limiting flags
	serveCmd.Flags().Bool("rate-limit-enabled", defaults.RateLimitEnabled, "enable rate limiting")
	serveCmd.Flags().Int("requests-per-minute", defaults.RequestsPerMinute, "maximum requests per minute per client")
	serveCmd.Flags().Int("requests-per-hour", defaults.RequestsPerHour, "maximum requests per hour per client")
	serveCmd.Flags().Int("max-requests-per-day", defaults.MaxRequestsPerDay, "maximum requests per day per client")
	serveCmd.Flags().Int("max-data-per-day", defaults.MaxDataPerDayMB, "maximum data processed per day per client (MB)")
}
