package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := Default()
	require.Equal(t, runtime.GOMAXPROCS(0), s.Parallelism)
	require.Equal(t, DefaultPhaseTimeout, s.PhaseTimeout)
	require.Equal(t, "POINTS", s.PointsID)
	require.Equal(t, "info", s.LogLevel)
}

func TestLoadOrDefaultMissingFileUsesDefaults(t *testing.T) {
	s, loaded, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.False(t, loaded)
	require.Equal(t, Default(), s)
}

func TestLoadOrDefaultReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "promopay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"parallelism: 3\nphaseTimeout: 2s\npointsId: LOYALTY\nlogLevel: debug\n"), 0o600))

	s, loaded, err := LoadOrDefault(path)
	require.NoError(t, err)
	require.True(t, loaded)
	require.Equal(t, 3, s.Parallelism)
	require.Equal(t, 2*time.Second, s.PhaseTimeout)
	require.Equal(t, "LOYALTY", s.PointsID)
	require.Equal(t, "debug", s.LogLevel)
}

func TestLoadOrDefaultRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("parallelism: [\n"), 0o600))

	_, _, err := LoadOrDefault(path)
	require.Error(t, err)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "promopay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("parallelism: 3\n"), 0o600))

	t.Setenv(envParallelism, "7")
	t.Setenv(envPhaseTimeout, "500ms")
	t.Setenv(envPointsID, "  LOYALTY  ")
	t.Setenv(envLogLevel, "warn")

	s, loaded, err := LoadOrDefault(path)
	require.NoError(t, err)
	require.True(t, loaded)
	require.Equal(t, 7, s.Parallelism)
	require.Equal(t, 500*time.Millisecond, s.PhaseTimeout)
	require.Equal(t, "LOYALTY", s.PointsID)
	require.Equal(t, "warn", s.LogLevel)
}

func TestInvalidEnvValuesFail(t *testing.T) {
	t.Setenv(envParallelism, "many")
	_, _, err := LoadOrDefault("")
	require.Error(t, err)
}

func TestNormalizeClampsNonPositiveValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "promopay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("parallelism: -2\nphaseTimeout: 0s\npointsId: \"\"\n"), 0o600))

	s, _, err := LoadOrDefault(path)
	require.NoError(t, err)
	require.Equal(t, runtime.GOMAXPROCS(0), s.Parallelism)
	require.Equal(t, DefaultPhaseTimeout, s.PhaseTimeout)
	require.Equal(t, DefaultPointsID, s.PointsID)
}

func TestUnsupportedLogLevelFails(t *testing.T) {
	t.Setenv(envLogLevel, "verbose")
	_, _, err := LoadOrDefault("")
	require.Error(t, err)
}
