// Package config loads application configuration from the environment and an
// optional YAML file. The result is an explicit object passed by dependency
// injection; nothing in this package is read at import time.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `yaml:"host" env:"SERVER_HOST,default=0.0.0.0"`
	Port            int           `yaml:"port" env:"SERVER_PORT,default=8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT,default=15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT,default=30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`
}

// DatabaseConfig controls the postgres connection. An empty DSN selects the
// in-memory store.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn" env:"DATABASE_DSN,default="`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS,default=10"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS,default=5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DATABASE_CONN_MAX_LIFETIME,default=30m"`
}

// AuthConfig controls token issuance and verification.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET,default=hooptrack-dev-secret"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"JWT_TOKEN_TTL,default=168h"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL,default=info"`
	Format string `yaml:"format" env:"LOG_FORMAT,default=text"`
}

// RedisConfig controls the optional live-game snapshot cache.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR,default="`
	Password string `yaml:"password" env:"REDIS_PASSWORD,default="`
	DB       int    `yaml:"db" env:"REDIS_DB,default=0"`
}

// RateLimitConfig controls per-client request throttling.
type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second" env:"RATE_LIMIT_RPS,default=20"`
	Burst             int `yaml:"burst" env:"RATE_LIMIT_BURST,default=40"`
}

// BillingConfig controls the Stripe checkout integration.
type BillingConfig struct {
	StripeSecretKey     string `yaml:"stripe_secret_key" env:"STRIPE_SECRET_KEY,default="`
	StripeWebhookSecret string `yaml:"stripe_webhook_secret" env:"STRIPE_WEBHOOK_SECRET,default="`
	FrontendURL         string `yaml:"frontend_url" env:"FRONTEND_URL,default=http://localhost:8081"`
	AllowTestUpgrade    bool   `yaml:"allow_test_upgrade" env:"BILLING_ALLOW_TEST_UPGRADE,default=false"`
}

// AIConfig controls the chat-completions client used for game summaries.
type AIConfig struct {
	APIKey  string `yaml:"api_key" env:"AI_API_KEY,default="`
	BaseURL string `yaml:"base_url" env:"AI_BASE_URL,default=https://api.openai.com/v1"`
	Model   string `yaml:"model" env:"AI_MODEL,default=gpt-4o-mini"`
}

// Config aggregates all application settings.
type Config struct {
	Server      ServerConfig    `yaml:"server"`
	Database    DatabaseConfig  `yaml:"database"`
	Auth        AuthConfig      `yaml:"auth"`
	Logging     LoggingConfig   `yaml:"logging"`
	Redis       RedisConfig     `yaml:"redis"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Billing     BillingConfig   `yaml:"billing"`
	AI          AIConfig        `yaml:"ai"`
	CORSOrigins []string        `yaml:"cors_origins" env:"CORS_ORIGINS,default=*"`
}

// Load reads configuration from an optional .env file and the process
// environment. If CONFIG_FILE is set, the YAML file is applied first and the
// environment overrides it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	return &cfg, nil
}

// LoadFile reads configuration from a YAML file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &cfg, nil
}
