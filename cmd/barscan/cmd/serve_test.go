package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/barscan/internal/config"
	"github.com/MeKo-Tech/barscan/internal/server"
)

func TestServeCommand(t *testing.T) {
	assert.Equal(t, "serve", serveCmd.Use)
	for _, name := range []string{"host", "port", "cors-origin", "max-upload-size", "timeout",
		"shutdown-timeout", "rate-limit-enabled", "requests-per-minute", "max-data-per-day"} {
		assert.NotNil(t, serveCmd.Flags().Lookup(name), name)
	}
}

func TestServerConfigFromFlags_Defaults(t *testing.T) {
	resetFlags(serveCmd)
	cfg := config.DefaultConfig()

	sc, shutdown, err := serverConfigFromFlags(serveCmd, &cfg)
	require.NoError(t, err)
	assert.Equal(t, "localhost", sc.Host)
	assert.Equal(t, 8080, sc.Port)
	assert.Equal(t, int64(50), sc.MaxUploadMB)
	assert.Equal(t, 10*time.Second, shutdown)
	assert.False(t, sc.RateLimit.Enabled)
	assert.Equal(t, int64(1024)*1024*1024, sc.RateLimit.MaxDataPerDay)
	assert.False(t, sc.PDF.AllowPasswordPrompt)
	assert.True(t, sc.Reader.Fallback)
}

func TestServerConfigFromFlags_Overrides(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.PDF.PasswordPrompt = true
	require.NoError(t, serveCmd.ParseFlags([]string{
		"--host", "0.0.0.0", "--port", "9090", "--rate-limit-enabled",
		"--requests-per-minute", "5", "--max-data-per-day", "2", "--shutdown-timeout", "3",
	}))
	t.Cleanup(func() { resetFlags(serveCmd) })

	sc, shutdown, err := serverConfigFromFlags(serveCmd, &cfg)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", sc.Host)
	assert.Equal(t, 9090, sc.Port)
	assert.Equal(t, 3*time.Second, shutdown)
	assert.Equal(t, server.RateLimitConfig{
		Enabled:           true,
		RequestsPerMinute: 5,
		RequestsPerHour:   cfg.Server.RequestsPerHour,
		MaxRequestsPerDay: cfg.Server.MaxRequestsPerDay,
		MaxDataPerDay:     2 * 1024 * 1024,
	}, sc.RateLimit)
	assert.False(t, sc.PDF.AllowPasswordPrompt, "the server never prompts")
}

func TestServerConfigFromFlags_Invalid(t *testing.T) {
	cfg := config.DefaultConfig()
	require.NoError(t, serveCmd.ParseFlags([]string{"--port", "70000"}))
	t.Cleanup(func() { resetFlags(serveCmd) })

	_, _, err := serverConfigFromFlags(serveCmd, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port number")
}

func TestPruneClientsStopsOnCancel(t *testing.T) {
	srv, err := server.NewServer(server.Config{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pruneClients(ctx, srv)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pruneClients did not return after cancel")
	}
}
