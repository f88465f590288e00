package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var ErrMissingSecret = errors.New("JWT_SECRET_KEY is required")

type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Postgres PostgresConfig
	Mail     MailConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	GinMode         string        `env:"GIN_MODE" envDefault:"release"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	CORSCredentials bool          `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RateLimitPerMin int           `env:"AUTH_RATE_LIMIT_PER_MINUTE" envDefault:"60"`
}

type AuthConfig struct {
	JWTSecret       string        `env:"JWT_SECRET_KEY"`
	Issuer          string        `env:"JWT_ISSUER" envDefault:"1P1M"`
	AccessTTL       time.Duration `env:"JWT_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL      time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"`
	OTPTTL          time.Duration `env:"AUTH_OTP_TTL" envDefault:"30m"`
	ResetTTL        time.Duration `env:"AUTH_RESET_TTL" envDefault:"10m"`
	OTPInResponse   bool          `env:"AUTH_OTP_IN_RESPONSE" envDefault:"true"`
	JanitorInterval time.Duration `env:"AUTH_JANITOR_INTERVAL" envDefault:"5m"`
	CookiePath      string        `env:"AUTH_COOKIE_PATH" envDefault:"/"`
	CookieDomain    string        `env:"AUTH_COOKIE_DOMAIN"`
	CookieSecure    string        `env:"AUTH_COOKIE_SECURE"`
	CookieSameSite  string        `env:"AUTH_COOKIE_SAMESITE"`
}

type PostgresConfig struct {
	DatabaseURL string `env:"DATABASE_URL"`
	Host        string `env:"PGHOST" envDefault:"localhost"`
	Port        string `env:"PGPORT" envDefault:"5432"`
	User        string `env:"PGUSER"`
	Password    string `env:"PGPASSWORD"`
	Database    string `env:"PGDATABASE"`
	SSLMode     string `env:"PGSSLMODE" envDefault:"disable"`
}

type MailConfig struct {
	APIURL        string        `env:"MAIL_API_URL"`
	APIKey        string        `env:"MAIL_API_KEY"`
	From          string        `env:"MAIL_FROM" envDefault:"no-reply@productivity-suite.com"`
	VerifyBaseURL string        `env:"MAIL_VERIFY_BASE_URL" envDefault:"https://productivity-suite.com/verify"`
	Timeout       time.Duration `env:"MAIL_TIMEOUT" envDefault:"10s"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads an optional .env file and then the process environment.
// A missing signing secret is reported as an error so the caller can refuse to boot.
func Load() (Config, error) {
	if path := getenv("ENV_FILE", ".env"); fileExists(path) {
		if err := godotenv.Load(path); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}
	return Parse()
}

// Parse builds a Config from the current environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return Config{}, ErrMissingSecret
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
