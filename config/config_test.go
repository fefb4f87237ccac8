package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENV", "test")

	cfg := LoadConfig()

	assert.Equal(t, 8000, cfg.ServerPort)
	assert.Equal(t, "bcrypt", cfg.Auth.CredentialScheme)
	assert.Equal(t, "none", cfg.MQ.Backend)
	assert.Equal(t, "task-events", cfg.MQ.TaskEventsChannel)
	assert.Equal(t, "embedded", cfg.Assets.Backend)
	assert.Equal(t, 100, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.False(t, cfg.TrustProxyHeaders)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("AUTH_CREDENTIAL_SCHEME", "TOKEN")
	t.Setenv("MQ_BACKEND", "RabbitMQ")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("DB_USE_SSL", "true")
	t.Setenv("DB_AUTO_MIGRATE", "not-a-bool")
	t.Setenv("TRUST_PROXY_HEADERS", "1")

	cfg := LoadConfig()

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "token", cfg.Auth.CredentialScheme)
	assert.Equal(t, "rabbitmq", cfg.MQ.Backend)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.True(t, cfg.Database.UseSSL)
	assert.True(t, cfg.TrustProxyHeaders)
	assert.True(t, cfg.Database.AutoMigrate, "unparseable bools fall back to the default")
}
