package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/diffable/internal/durable"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "diffable.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, durable.DefaultPolicy, cfg.Policy())
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
database: /var/lib/app/state
backend: badger
snapshot_policy: every-change
log_level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/app/state", cfg.Database)
	assert.Equal(t, BackendBadger, cfg.Backend)
	assert.Equal(t, "sqlite3", cfg.Driver, "unset keys keep their default")
	assert.Equal(t, durable.EveryChange(), cfg.Policy())
	assert.Equal(t, slog.LevelDebug, cfg.Level())
}

func TestLoad_EmptyFileIsDefault(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	_, err := Load(writeConfig(t, "snapshot_polcy: never\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot_polcy")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"backend", "backend: postgres\n", "backend"},
		{"driver", "driver: cgo\n", "driver"},
		{"policy", "snapshot_policy: every:0\n", "snapshot_policy"},
		{"log level", "log_level: trace\n", "log_level"},
		{"database", "database: \"\"\n", "database"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
