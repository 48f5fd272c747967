package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3002, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, "registrybot", cfg.Observability.ServiceName)
	assert.Equal(t, "gpt-3.5-turbo", cfg.LLM.Model)
	assert.Equal(t, "text-embedding-3-small", cfg.Embeddings.Model)
	assert.Equal(t, 400, cfg.Knowledge.ChunkSize)
	assert.Equal(t, 40, cfg.Knowledge.ChunkOverlap)
	assert.Equal(t, 3, cfg.Knowledge.TopK)
	assert.Equal(t, "en", cfg.Chat.DefaultLanguage)
	assert.Equal(t, 70, cfg.Chat.SummaryWindow)
	assert.Equal(t, 4, cfg.Chat.RecentWindow)
	assert.Equal(t, 2, cfg.Dispatch.Workers)
	assert.Equal(t, 30*24*time.Hour, cfg.Redis.HistoryTTL.Duration())
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 8088
chat:
  history_enabled: true
  contextualizer_enabled: true
  default_language: ur
knowledge:
  corpus_path: /srv/registry/info.txt
  top_k: 5
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Server.Port)
	assert.True(t, cfg.Chat.HistoryEnabled)
	assert.True(t, cfg.Chat.ContextualizerEnabled)
	assert.Equal(t, "ur", cfg.Chat.DefaultLanguage)
	assert.Equal(t, "/srv/registry/info.txt", cfg.Knowledge.CorpusPath)
	assert.Equal(t, 5, cfg.Knowledge.TopK)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8088\n"), 0o600))

	t.Setenv("SERVER_PORT", "9099")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9099, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(*Config) {},
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "server port",
		},
		{
			name:    "overlap larger than chunk",
			mutate:  func(c *Config) { c.Knowledge.ChunkOverlap = 500 },
			wantErr: "chunk overlap",
		},
		{
			name:    "non-txt corpus",
			mutate:  func(c *Config) { c.Knowledge.CorpusPath = "info.pdf" },
			wantErr: ".txt",
		},
		{
			name:    "zero top_k",
			mutate:  func(c *Config) { c.Knowledge.TopK = -1 },
			wantErr: "top_k",
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Dispatch.Workers = -2 },
			wantErr: "workers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("sk-very-secret")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, "sk-very-secret", s.Value())
	assert.True(t, s.IsSet())

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `"[REDACTED]"`, string(out))

	var empty Secret
	assert.Equal(t, "", empty.String())
	assert.False(t, empty.IsSet())
}

func TestDurationUnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-5s")))
	assert.Error(t, d.UnmarshalText([]byte("not-a-duration")))
}
