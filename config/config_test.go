package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppConfig_Defaults(t *testing.T) {
	t.Setenv("AUTH_SIGNING_KEY", "test-signing-key")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.False(t, cfg.IsDev)
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, SessionBackendPostgres, cfg.Auth.SessionStore)
	assert.Equal(t, 720*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "v1", cfg.Auth.KeyID)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.False(t, cfg.Observability.StatsDEnabled)
}

func TestAppConfig_SigningKeyRequired(t *testing.T) {
	var cfg AppConfig
	err := env.Parse(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_SIGNING_KEY")
}

func TestSessionBackend_UnmarshalText(t *testing.T) {
	tests := []struct {
		input   string
		want    SessionBackend
		wantErr bool
	}{
		{input: "postgres", want: SessionBackendPostgres},
		{input: "REDIS", want: SessionBackendRedis},
		{input: "memcached", wantErr: true},
	}

	for _, tt := range tests {
		var b SessionBackend
		err := b.UnmarshalText([]byte(tt.input))
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, b)
	}
}

func TestAuthConfig_Sanitize(t *testing.T) {
	a := AuthConfig{TokenTTL: -time.Hour, BcryptCost: 99}
	a.Sanitize()

	assert.Equal(t, 720*time.Hour, a.TokenTTL)
	assert.Equal(t, 31, a.BcryptCost)
	assert.Equal(t, SessionBackendPostgres, a.SessionStore)
}

func TestAuthConfig_PreviousKeys(t *testing.T) {
	t.Setenv("AUTH_SIGNING_KEY", "current")
	t.Setenv("AUTH_KEY_ID", "v3")
	t.Setenv("AUTH_PREVIOUS_KEYS", "v1=old-key-1;v2=old-key-2")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))

	assert.Equal(t, "v3", cfg.Auth.KeyID)
	assert.Equal(t, map[string]string{"v1": "old-key-1", "v2": "old-key-2"}, cfg.Auth.PreviousKeys)
}
