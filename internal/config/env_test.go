package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	s, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 80, s.AddressThreshold)
	assert.Equal(t, 75, s.NameThreshold)
	assert.Equal(t, 50, s.MinMatchConfidence)
	assert.False(t, s.UseManualMapping)
	assert.Equal(t, filepath.Join("data", "interim", "manual_mapping.csv"), s.ManualMappingPath)
	assert.Equal(t, filepath.Join("data", "matched"), s.MatchedDir())

	cfg := s.MatchConfig()
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ADDRESS_THRESHOLD", "85")
	t.Setenv("MIN_MATCH_CONFIDENCE", "70")
	t.Setenv("USE_MANUAL_MAPPING", "true")

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 85, s.AddressThreshold)
	assert.Equal(t, 70, s.MinMatchConfidence)
	assert.True(t, s.UseManualMapping)
}

func TestLoadDotEnvAndYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("NAME_THRESHOLD=60\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "leedlink.yaml"), []byte("report_year: 2024\ndata_dir: /srv/leed\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("NAME_THRESHOLD") })

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 60, s.NameThreshold)
	assert.Equal(t, 2024, s.ReportYear)
	assert.Equal(t, "/srv/leed", s.DataDir)
	assert.Contains(t, s.ConfigFile, "leedlink.yaml")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}
