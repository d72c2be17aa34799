package batch

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.False(t, cfg.ContinueOnError)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, Config{}.Validate())
	assert.NoError(t, Config{Workers: 8}.Validate())
	assert.Error(t, Config{Workers: -1}.Validate())
}

func TestConfig_Workers(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		items   int
		want    int
	}{
		{"explicit", 4, 10, 4},
		{"capped by items", 8, 3, 3},
		{"zero uses cpus", 0, 1 << 20, runtime.NumCPU()},
		{"at least one", 4, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Config{Workers: tt.workers}.workers(tt.items))
		})
	}
}
