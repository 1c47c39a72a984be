package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "file", cfg.Store.Driver)
	assert.Equal(t, "none", cfg.Cache.Driver)
	assert.Equal(t, "ping", cfg.Chat.ProbeToken)
	assert.Equal(t, "pong", cfg.Chat.ProbeReply)
	assert.Equal(t, 0.4, cfg.Chat.AcceptScore)
	assert.Contains(t, cfg.Chat.Greetings, "moin")
	assert.Contains(t, cfg.Chat.DomainKeywords, "minibagger")
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8080
  admin_token: file-secret
store:
  driver: sqlite
  sql:
    dsn: ./answer.db
cache:
  driver: memory
chat:
  accept_score: 0.5
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "file-secret", cfg.Server.AdminToken)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "./answer.db", cfg.Store.SQL.DSN)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, 0.5, cfg.Chat.AcceptScore)

	// Untouched sections keep their defaults.
	assert.Equal(t, "pong", cfg.Chat.ProbeReply)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ADMIN_TOKEN", "env-secret")
	t.Setenv("DATABASE_URL", "sqlite:/tmp/answer.db")
	t.Setenv("REDIS_URL", "redis://cache.internal:6379")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "env-secret", cfg.Server.AdminToken)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/answer.db", cfg.Store.SQL.DSN)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "cache.internal:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Store.Driver = "mongodb"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Cache.Driver = "memcached"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Chat.AcceptScore = 1.5
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Store.Driver = "postgres"
	cfg.Store.SQL.DSN = ""
	assert.Error(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	assert.Error(t, err)
}
