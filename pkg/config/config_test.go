package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
agent:
  enabled_platforms:
    - mastodon
  keywords:
    - Draesontel
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 600, cfg.Agent.PollIntervalSeconds)
	assert.InDelta(t, 0.75, cfg.Agent.SimilarityThreshold, 1e-9)
	assert.False(t, cfg.Agent.InteractiveApproval)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.Host)
	assert.Equal(t, 280, cfg.Safety.MaxResponseLength)
	assert.NotEmpty(t, cfg.OpenAI.IntentLabels)
}

func TestKeywordsForPlatformOverride(t *testing.T) {
	path := writeConfig(t, `
agent:
  enabled_platforms:
    - mastodon
    - reddit
  keywords:
    - global
  keywords_per_platform:
    reddit:
      - reddit-only
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"reddit-only"}, cfg.KeywordsFor(models.PlatformReddit))
	assert.Equal(t, []string{"global"}, cfg.KeywordsFor(models.PlatformMastodon))
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	base := func() *Config {
		return &Config{
			Agent: AgentConfig{
				EnabledPlatforms:      []string{"mastodon"},
				Keywords:              []string{"acme"},
				PollIntervalSeconds:   600,
				SimilarityThreshold:   0.75,
				RequestTimeoutSeconds: 30,
			},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no platforms", func(c *Config) { c.Agent.EnabledPlatforms = nil }},
		{"unknown platform", func(c *Config) { c.Agent.EnabledPlatforms = []string{"friendster"} }},
		{"no keywords", func(c *Config) { c.Agent.Keywords = nil }},
		{"zero poll interval", func(c *Config) { c.Agent.PollIntervalSeconds = 0 }},
		{"threshold above one", func(c *Config) { c.Agent.SimilarityThreshold = 1.5 }},
		{"negative threshold", func(c *Config) { c.Agent.SimilarityThreshold = -0.1 }},
		{"zero request timeout", func(c *Config) { c.Agent.RequestTimeoutSeconds = 0 }},
		{"interactive without telegram", func(c *Config) { c.Agent.InteractiveApproval = true }},
	}

	require.NoError(t, base().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestPlatformEnabled(t *testing.T) {
	cfg := &Config{Agent: AgentConfig{EnabledPlatforms: []string{"mastodon", "youtube"}}}

	assert.True(t, cfg.PlatformEnabled(models.PlatformMastodon))
	assert.True(t, cfg.PlatformEnabled(models.PlatformYouTube))
	assert.False(t, cfg.PlatformEnabled(models.PlatformReddit))
}
