package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, "fs", cfg.Storage.Type)
	assert.Equal(t, 4, cfg.Pipeline.TranscribeConcurrency)
	assert.Equal(t, 5, cfg.Pipeline.DefaultTopK)
	assert.Equal(t, 2*time.Minute, cfg.Pipeline.SegmentTimeout)
	assert.True(t, cfg.Pipeline.PersistVectors)
	assert.Equal(t, "text-embedding-3-small", cfg.AI.EmbeddingModel)
	assert.InDelta(t, 0.3, cfg.AI.SummaryTemperature, 1e-9)
}

func TestLoadFile_EnvOverrides(t *testing.T) {
	t.Setenv("PIPELINE_DEFAULT_TOP_K", "9")
	t.Setenv("PIPELINE_CACHE_TTL", "15m")
	t.Setenv("AI_CHAT_PROVIDER", "groq")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Pipeline.DefaultTopK)
	assert.Equal(t, 15*time.Minute, cfg.Pipeline.CacheTTL)
	assert.Equal(t, "groq", cfg.AI.ChatProvider)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
}

func TestLoadFile_ReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("STORAGE_ROOT="+dir+"\nPIPELINE_TRANSCRIBE_CONCURRENCY=2\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("STORAGE_ROOT")
		os.Unsetenv("PIPELINE_TRANSCRIBE_CONCURRENCY")
	})

	cfg, err := LoadFile(envFile)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Storage.Root)
	assert.Equal(t, 2, cfg.Pipeline.TranscribeConcurrency)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown storage", func(c *Config) { c.Storage.Type = "s4" }},
		{"unknown chat provider", func(c *Config) { c.AI.ChatProvider = "other" }},
		{"zero concurrency", func(c *Config) { c.Pipeline.TranscribeConcurrency = 0 }},
		{"zero top k", func(c *Config) { c.Pipeline.DefaultTopK = 0 }},
		{"huge batch", func(c *Config) { c.Pipeline.EmbedBatchSize = 5000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFile("")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateCredentials(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)
	cfg.AI.OpenAIAPIKey = ""
	assert.Error(t, cfg.ValidateCredentials())

	cfg.AI.OpenAIAPIKey = "sk-test"
	cfg.AI.AssemblyAIAPIKey = "aai-test"
	assert.NoError(t, cfg.ValidateCredentials())
}
