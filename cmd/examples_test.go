package cmd

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExampleConfigs_RunNearest verifies that run-nearest.yaml loads and
// plays its episodes end to end.
func TestExampleConfigs_RunNearest(t *testing.T) {
	// GIVEN the run-nearest.yaml example config
	cfg, err := LoadRunConfig(filepath.Join("..", "examples", "run-nearest.yaml"))
	require.NoError(t, err, "failed to load run-nearest.yaml")

	// THEN the file values are applied
	assert.Equal(t, "nearest", cfg.Policy)
	assert.Equal(t, 3, cfg.Episodes)
	assert.Equal(t, 5.0, cfg.Penalties.DropoffWindow)
	assert.Equal(t, 12, cfg.Generator.NbRequests)

	// WHEN its episodes are played
	cfg.ResultsPath = filepath.Join(t.TempDir(), "results.json")
	logger, _ := test.NewNullLogger()

	// THEN every episode completes
	require.NoError(t, runEpisodes(cfg, false, logger))
}
