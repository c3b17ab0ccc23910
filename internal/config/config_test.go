package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ws://localhost:8000/rpc", cfg.SurrealDBURL)
	assert.Equal(t, ProviderNone, cfg.LLMProvider)
	assert.Equal(t, 3*time.Second, cfg.Worker.PollInterval)
	assert.Equal(t, int64(500*1024*1024), cfg.Worker.MaxObjectBytes)
	assert.Equal(t, 1500, cfg.Extraction.ChunkSize)
	assert.Equal(t, 200, cfg.Extraction.SummaryLen)
	assert.Equal(t, 300, cfg.Extraction.EvidenceLen)
	assert.Equal(t, 8, cfg.Retrieval.TopK)
	assert.Equal(t, "8487", cfg.ServerPort)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HEIRLOOM_WORKER_POLL_INTERVAL", "500ms")
	t.Setenv("HEIRLOOM_MAX_OBJECT_BYTES", "1048576")
	t.Setenv("HEIRLOOM_RETRIEVAL_TOP_K", "3")
	t.Setenv("HEIRLOOM_LLM_PROVIDER", "ollama")
	t.Setenv("HEIRLOOM_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 500*time.Millisecond, cfg.Worker.PollInterval)
	assert.Equal(t, int64(1048576), cfg.Worker.MaxObjectBytes)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, ProviderOllama, cfg.LLMProvider)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoadFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heirloom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server_port: "9999"
storage:
  bucket: family-archive
worker:
  poll_interval: 1s
retrieval:
  top_k: 5
`), 0o644))
	t.Setenv("HEIRLOOM_CONFIG", path)
	t.Setenv("HEIRLOOM_S3_REGION", "eu-central-1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.ServerPort)
	assert.Equal(t, "family-archive", cfg.Storage.Bucket)
	assert.Equal(t, 1*time.Second, cfg.Worker.PollInterval)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	// Fields the file does not set keep their environment values.
	assert.Equal(t, "eu-central-1", cfg.Storage.Region)
	assert.Equal(t, int64(500*1024*1024), cfg.Worker.MaxObjectBytes)
}

func TestLoadBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("worker: ["), 0o644))
	t.Setenv("HEIRLOOM_CONFIG", path)

	_, err := Load()
	assert.Error(t, err)
}
