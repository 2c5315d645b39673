package config

import (
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/honeynil/AccountService/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func envFrom(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func validEnv() map[string]string {
	return map[string]string{
		"AUTH_SECRET_KEY": strings.Repeat("k", 32),
		"AUTH_ALGORITHM":  "HS256",
		"AUTH_ACCESS_MIN": "30",
	}
}

func TestFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := FromEnv(envFrom(validEnv()))
		require.NoError(t, err)

		assert.Equal(t, ":8080", cfg.HTTPAddr)
		assert.Equal(t, ":9090", cfg.MetricsAddr)
		assert.Equal(t, "localhost:6379", cfg.RedisAddr)
		assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
		assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
		assert.Equal(t, 10*time.Minute, cfg.ProfileCacheTTL)
		assert.Equal(t, "HS256", cfg.Auth.Algorithm)
		assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTokenTTL)
		assert.Equal(t, bcrypt.DefaultCost, cfg.Auth.BcryptCost)
	})

	t.Run("overrides", func(t *testing.T) {
		env := validEnv()
		env["AUTH_ALGORITHM"] = "hs512"
		env["KAFKA_BROKER"] = "k1:9092, k2:9092"
		env["CORS_ALLOW_ORIGINS"] = "http://localhost:5500"
		env["AUTH_BCRYPT_COST"] = "4"
		env["PROFILE_CACHE_TTL"] = "30s"

		cfg, err := FromEnv(envFrom(env))
		require.NoError(t, err)

		assert.Equal(t, "HS512", cfg.Auth.Algorithm)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
		assert.Equal(t, []string{"http://localhost:5500"}, cfg.CORSOrigins)
		assert.Equal(t, 4, cfg.Auth.BcryptCost)
		assert.Equal(t, 30*time.Second, cfg.ProfileCacheTTL)
	})
}

func TestFromEnv_AuthFailFast(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(map[string]string)
		wantErr error
	}{
		{"missing secret", func(m map[string]string) { delete(m, "AUTH_SECRET_KEY") }, pkgerrors.ErrMissingConfig},
		{"short secret", func(m map[string]string) { m["AUTH_SECRET_KEY"] = "short" }, pkgerrors.ErrInvalidConfig},
		{"missing algorithm", func(m map[string]string) { m["AUTH_ALGORITHM"] = "" }, pkgerrors.ErrMissingConfig},
		{"unsupported algorithm", func(m map[string]string) { m["AUTH_ALGORITHM"] = "none" }, pkgerrors.ErrInvalidConfig},
		{"asymmetric algorithm", func(m map[string]string) { m["AUTH_ALGORITHM"] = "RS256" }, pkgerrors.ErrInvalidConfig},
		{"missing expiry", func(m map[string]string) { delete(m, "AUTH_ACCESS_MIN") }, pkgerrors.ErrMissingConfig},
		{"non-numeric expiry", func(m map[string]string) { m["AUTH_ACCESS_MIN"] = "soon" }, pkgerrors.ErrInvalidConfig},
		{"zero expiry", func(m map[string]string) { m["AUTH_ACCESS_MIN"] = "0" }, pkgerrors.ErrInvalidConfig},
		{"bcrypt cost too low", func(m map[string]string) { m["AUTH_BCRYPT_COST"] = "2" }, pkgerrors.ErrInvalidConfig},
		{"bad cache ttl", func(m map[string]string) { m["PROFILE_CACHE_TTL"] = "-1m" }, pkgerrors.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := validEnv()
			tt.mutate(env)

			cfg, err := FromEnv(envFrom(env))
			assert.Nil(t, cfg)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
