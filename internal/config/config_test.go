package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.Origins())
	assert.Equal(t, []string{"localhost:5173", "localhost:3000"}, cfg.OriginPatterns())

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)

	opts := cfg.Options()
	assert.Equal(t, 100, opts.HistorySize)
	assert.Equal(t, 10.0, opts.Graph.GridSize)
	assert.True(t, opts.Graph.GridEnabled)
	assert.False(t, opts.Validation.AllowLoops)
	assert.True(t, opts.Validation.AllowDanglingEdges)
	assert.True(t, opts.Validation.Multigraph)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("GRID_SIZE", "0")
	t.Setenv("ALLOW_LOOPS", "true")
	t.Setenv("MULTIGRAPH", "false")
	t.Setenv("EXTEND_PARENTS", "false")
	t.Setenv("HIT_TOLERANCE", "8")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	opts := cfg.Options()
	assert.False(t, opts.Graph.GridEnabled)
	assert.True(t, opts.Validation.AllowLoops)
	assert.False(t, opts.Validation.Multigraph)
	assert.False(t, opts.Graph.ExtendParents)
	assert.False(t, opts.Graph.ExtendParentsOnAdd)
	assert.Equal(t, 8.0, opts.Tolerance)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"bad level", "LOG_LEVEL", "loud"},
		{"negative history", "UNDO_HISTORY", "-1"},
		{"negative grid", "GRID_SIZE", "-5"},
		{"not a number", "PORT", "http"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
