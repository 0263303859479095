package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromFiles_Defaults(t *testing.T) {
	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 8085, config.Server.Port)
	assert.Equal(t, 10, config.RateLimit.MaxPerWindow)
	assert.Equal(t, "60s", config.RateLimit.Window)
	assert.Equal(t, 5000, config.Preprocess.MaxQueryLength)
	assert.Equal(t, "distance", config.Retrieval.ScoreKind)
	assert.Equal(t, 0.5, config.Query.DegradedConfidenceScale)
}

func TestLoadFromFiles_TOMLOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, "askdoc.toml", `
[server]
port = 9090

[retrieval]
corpus_id = "4611686018427387904"
max_results = 3

[ratelimit]
max_per_window = 5
window = "30s"
`)

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "4611686018427387904", config.Retrieval.CorpusID)
	assert.Equal(t, 3, config.Retrieval.MaxResults)
	assert.Equal(t, 5, config.RateLimit.MaxPerWindow)
	assert.Equal(t, "30s", config.RateLimit.Window)
	// Untouched sections keep defaults
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 0.8, config.Retrieval.DistanceThreshold)
}

func TestLoadFromFiles_YAMLSupported(t *testing.T) {
	path := writeConfigFile(t, "askdoc.yaml", `
server:
  port: 7070
llm:
  provider: claude
  model: claude-sonnet-4-20250514
`)

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, config.Server.Port)
	assert.Equal(t, "claude", config.LLM.Provider)
	assert.Equal(t, "claude-sonnet-4-20250514", config.LLM.Model)
}

func TestLoadFromFiles_LaterFileWins(t *testing.T) {
	base := writeConfigFile(t, "base.toml", "[server]\nport = 9090\nhost = \"0.0.0.0\"\n")
	override := writeConfigFile(t, "override.toml", "[server]\nport = 9999\n")

	config, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, 9999, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
}

func TestLoadFromFiles_EnvOverrides(t *testing.T) {
	t.Setenv("ASKDOC_SERVER_PORT", "6060")
	t.Setenv("ASKDOC_RETRIEVAL_CORPUS_ID", "projects/p/locations/l/ragCorpora/123")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 6060, config.Server.Port)
	assert.Equal(t, "projects/p/locations/l/ragCorpora/123", config.Retrieval.CorpusID)
}

func TestLoadFromFiles_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "zero rate limit",
			content: "[ratelimit]\nmax_per_window = 0\n",
		},
		{
			name:    "bad window duration",
			content: "[ratelimit]\nwindow = \"sixty\"\n",
		},
		{
			name:    "bad score kind",
			content: "[retrieval]\nscore_kind = \"cosine\"\n",
		},
		{
			name:    "bad retrieval timeout",
			content: "[retrieval]\ntimeout = \"soon\"\n",
		},
		{
			name:    "slack enabled without tokens",
			content: "[slack]\nenabled = true\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, "bad.toml", tt.content)
			_, err := LoadFromFiles(path)
			assert.Error(t, err)
		})
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()

	ApplyFlagOverrides(config, 5555, "127.0.0.1")
	assert.Equal(t, 5555, config.Server.Port)
	assert.Equal(t, "127.0.0.1", config.Server.Host)

	// Zero values leave config untouched
	ApplyFlagOverrides(config, 0, "")
	assert.Equal(t, 5555, config.Server.Port)
	assert.Equal(t, "127.0.0.1", config.Server.Host)
}
