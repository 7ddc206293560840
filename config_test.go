package fusion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.UseLidar)
	assert.True(t, cfg.UseRadar)
	assert.Equal(t, ProcessNoise{StdA: 3, StdYawdd: 2}, cfg.ProcessNoise())
	assert.Equal(t, 0.15, cfg.StdLaserPx)
	assert.Equal(t, 0.03, cfg.StdRadarPhi)
}

func TestLoadConfigPartialKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "ukf.json", `{"use_radar": false, "std_a": 1.5, "std_yawdd": 0.6}`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	want := DefaultConfig()
	want.UseRadar = false
	want.StdA = 1.5
	want.StdYawdd = 0.6
	assert.Equal(t, want, cfg)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path func(t *testing.T) string
		msg  string
	}{
		{
			name: "wrong extension",
			path: func(t *testing.T) string { return writeConfig(t, "ukf.yaml", "{}") },
			msg:  ".json extension",
		},
		{
			name: "missing file",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.json") },
			msg:  "failed to stat",
		},
		{
			name: "bad json",
			path: func(t *testing.T) string { return writeConfig(t, "ukf.json", "{") },
			msg:  "failed to parse",
		},
		{
			name: "negative process noise",
			path: func(t *testing.T) string { return writeConfig(t, "ukf.json", `{"std_a": -1}`) },
			msg:  "invalid configuration",
		},
		{
			name: "zero sensor noise",
			path: func(t *testing.T) string { return writeConfig(t, "ukf.json", `{"std_radar_phi": 0}`) },
			msg:  "std_radar_phi",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadConfig(tt.path(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"nis confidence one", func(c *Config) { c.NISConfidence = 1 }},
		{"zero min range", func(c *Config) { c.MinRange = 0 }},
		{"zero tolerance", func(c *Config) { c.CovarianceTolerance = 0 }},
		{"negative yaw noise", func(c *Config) { c.StdYawdd = -0.1 }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	zeroNoise := DefaultConfig()
	zeroNoise.StdA, zeroNoise.StdYawdd = 0, 0
	assert.NoError(t, zeroNoise.Validate())
}
