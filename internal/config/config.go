package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/honeynil/AccountService/pkg/errors"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const minSecretKeyLength = 32

var supportedAlgorithms = map[string]struct{}{
	"HS256": {},
	"HS384": {},
	"HS512": {},
}

// AuthConfig is fixed at startup and never mutated afterwards.
type AuthConfig struct {
	SecretKey      string
	Algorithm      string
	AccessTokenTTL time.Duration
	BcryptCost     int
}

type Config struct {
	HTTPAddr        string
	MetricsAddr     string
	PostgresDSN     string
	RedisAddr       string
	KafkaBrokers    []string
	OTLPEndpoint    string
	CORSOrigins     []string
	ProfileCacheTTL time.Duration
	Auth            AuthConfig
}

// Load reads .env (if present) and the process environment. Infrastructure
// settings fall back to local defaults; the auth settings are required.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, using environment only", "error", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from the given lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	auth, err := loadAuth(getenv)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        getenv("HTTP_ADDR"),
		MetricsAddr:     getenv("METRICS_ADDR"),
		PostgresDSN:     getenv("POSTGRES_DSN"),
		RedisAddr:       getenv("REDIS_ADDR"),
		KafkaBrokers:    splitList(getenv("KAFKA_BROKER")),
		OTLPEndpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		CORSOrigins:     splitList(getenv("CORS_ALLOW_ORIGINS")),
		ProfileCacheTTL: 10 * time.Minute,
		Auth:            auth,
	}

	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = ":9090"
	}
	if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = "host=localhost user=postgres password=postgres dbname=accounts sslmode=disable"
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	if len(cfg.KafkaBrokers) == 0 {
		cfg.KafkaBrokers = []string{"localhost:9092"}
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	if raw := getenv("PROFILE_CACHE_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			return nil, fmt.Errorf("%w: PROFILE_CACHE_TTL must be a positive duration", pkgerrors.ErrInvalidConfig)
		}
		cfg.ProfileCacheTTL = ttl
	}

	slog.Info("config loaded",
		"http_addr", cfg.HTTPAddr,
		"redis_addr", cfg.RedisAddr,
		"kafka_brokers", cfg.KafkaBrokers,
		"auth_algorithm", cfg.Auth.Algorithm,
		"access_token_ttl", cfg.Auth.AccessTokenTTL.String())
	return cfg, nil
}

func loadAuth(getenv func(string) string) (AuthConfig, error) {
	secret := getenv("AUTH_SECRET_KEY")
	if secret == "" {
		return AuthConfig{}, fmt.Errorf("%w: AUTH_SECRET_KEY", pkgerrors.ErrMissingConfig)
	}
	if len(secret) < minSecretKeyLength {
		return AuthConfig{}, fmt.Errorf("%w: AUTH_SECRET_KEY must be at least %d bytes", pkgerrors.ErrInvalidConfig, minSecretKeyLength)
	}

	alg := strings.TrimSpace(getenv("AUTH_ALGORITHM"))
	if alg == "" {
		return AuthConfig{}, fmt.Errorf("%w: AUTH_ALGORITHM", pkgerrors.ErrMissingConfig)
	}
	alg = strings.ToUpper(alg)
	if _, ok := supportedAlgorithms[alg]; !ok {
		return AuthConfig{}, fmt.Errorf("%w: unsupported AUTH_ALGORITHM %q", pkgerrors.ErrInvalidConfig, alg)
	}

	rawMinutes := strings.TrimSpace(getenv("AUTH_ACCESS_MIN"))
	if rawMinutes == "" {
		return AuthConfig{}, fmt.Errorf("%w: AUTH_ACCESS_MIN", pkgerrors.ErrMissingConfig)
	}
	minutes, err := strconv.Atoi(rawMinutes)
	if err != nil || minutes <= 0 {
		return AuthConfig{}, fmt.Errorf("%w: AUTH_ACCESS_MIN must be a positive integer", pkgerrors.ErrInvalidConfig)
	}

	cost := bcrypt.DefaultCost
	if raw := strings.TrimSpace(getenv("AUTH_BCRYPT_COST")); raw != "" {
		cost, err = strconv.Atoi(raw)
		if err != nil || cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			return AuthConfig{}, fmt.Errorf("%w: AUTH_BCRYPT_COST must be between %d and %d", pkgerrors.ErrInvalidConfig, bcrypt.MinCost, bcrypt.MaxCost)
		}
	}

	return AuthConfig{
		SecretKey:      secret,
		Algorithm:      alg,
		AccessTokenTTL: time.Duration(minutes) * time.Minute,
		BcryptCost:     cost,
	}, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
