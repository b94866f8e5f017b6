package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("MAM_TEST_HOST", "db.internal")

	assert.Equal(t, "host: db.internal", expandEnv("host: ${MAM_TEST_HOST}"))
	assert.Equal(t, "port: 5432", expandEnv("port: ${MAM_TEST_UNSET_PORT:5432}"))
	assert.Equal(t, "empty: ", expandEnv("empty: ${MAM_TEST_UNSET_EMPTY:}"))
	assert.Equal(t, "raw: ${MAM_TEST_UNSET_RAW}", expandEnv("raw: ${MAM_TEST_UNSET_RAW}"))
}

func TestLoadFrom_DefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "staging")
	writeConfig(t, dir, "config.yaml", `
security:
  jwt:
    secret: s3cret
search:
  rrf:
    k: 40
`)
	writeConfig(t, dir, "config.staging.yaml", `
search:
  face:
    min_similarity: 0.65
`)

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "mam-search-api", cfg.App.Name)
	assert.Equal(t, 40.0, cfg.Search.RRF.K)
	assert.Equal(t, 0.2, cfg.Search.RRF.MultiMatchBoost)
	assert.Equal(t, 0.65, cfg.Search.Face.MinSimilarity)
	assert.Equal(t, "portuguese", cfg.Search.TextSearchConfig)
	assert.Equal(t, 100, cfg.Search.Limits.Transcription)
	assert.Equal(t, 50, cfg.Search.Limits.Keyword)
	assert.Equal(t, 60*time.Second, cfg.Security.RateLimit.Window)
	assert.Equal(t, "dev", cfg.Tenancy.DefaultCode)
}

func TestLoadFrom_MissingBaseFile(t *testing.T) {
	_, err := LoadFrom(t.TempDir())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Search: SearchConfig{
				TextSearchConfig: "portuguese",
				RRF:              RRFConfig{K: 60, MultiMatchBoost: 0.2},
				Face:             FaceSearchConfig{Backend: "pgvector", MinSimilarity: 0.5},
			},
			Security: SecurityConfig{
				JWT:       JWTConfig{Enabled: true, Secret: "x"},
				RateLimit: RateLimitConfig{Backend: "redis"},
			},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero k", func(c *Config) { c.Search.RRF.K = 0 }},
		{"negative boost", func(c *Config) { c.Search.RRF.MultiMatchBoost = -0.1 }},
		{"similarity above one", func(c *Config) { c.Search.Face.MinSimilarity = 1.5 }},
		{"unknown face backend", func(c *Config) { c.Search.Face.Backend = "faiss" }},
		{"injected text config", func(c *Config) { c.Search.TextSearchConfig = "english'); DROP" }},
		{"unknown rate limit backend", func(c *Config) { c.Security.RateLimit.Backend = "memcached" }},
		{"jwt without secret", func(c *Config) { c.Security.JWT.Secret = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
