package download_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tuneport/internal/config"
	"tuneport/internal/download"
)

func TestNewChainFromConfigOrder(t *testing.T) {
	cfg := config.Default()
	cfg.Lossless.Enabled = true
	cfg.Extractor.Mirrors = []string{"http://mirror.example"}
	cfg.Download.LocalYtDlpEnabled = true
	cfg.Download.Dir = t.TempDir()

	chain, err := download.NewChainFromConfig(&cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"lossless", "extractor", "local"}, chain.Sources())

	cfg.Download.PreferLossless = false
	chain, err = download.NewChainFromConfig(&cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"extractor", "local"}, chain.Sources())
}

func TestNewChainFromConfigDefaults(t *testing.T) {
	cfg := config.Default()
	chain, err := download.NewChainFromConfig(&cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"extractor"}, chain.Sources())

	_, err = download.NewChainFromConfig(nil, nil)
	assert.Error(t, err)
}
