package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

type Config struct {
	Port string
	Env  string

	Store   StoreConfig
	Breaker BreakerConfig

	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	FrontendCallbackURL string
	BaseURL             string

	Google OAuthConfig

	SMTP SMTPConfig
	Log  LogConfig
}

type StoreConfig struct {
	Driver      string
	DatabaseURL string
	PGNotify    bool

	MongoURI      string
	MongoDatabase string
	MongoWatch    bool
}

type BreakerConfig struct {
	MaxFailures uint32
	Timeout     time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type LogConfig struct {
	Level  string
	Format string
	// File enables rotation through lumberjack; empty means stderr.
	File string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		Store: StoreConfig{
			Driver:        getEnv("STORE_DRIVER", StoreMemory),
			DatabaseURL:   getEnv("DATABASE_URL", ""),
			PGNotify:      getEnvBool("PG_NOTIFY", false),
			MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			MongoDatabase: getEnv("MONGO_DATABASE", "teamboard"),
			MongoWatch:    getEnvBool("MONGO_WATCH", false),
		},
		Breaker: BreakerConfig{
			MaxFailures: getEnvCount("BREAKER_MAX_FAILURES", 5),
			Timeout:     getEnvDuration("BREAKER_TIMEOUT", 10*time.Second),
		},

		JWTSecret:        getEnvOrPanic("JWT_SECRET"),
		JWTAccessExpiry:  getEnvDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
		JWTRefreshExpiry: getEnvDuration("JWT_REFRESH_EXPIRY", 168*time.Hour),

		FrontendCallbackURL: getEnv("FRONTEND_CALLBACK_URL", "http://localhost:3000/auth/callback"),
		BaseURL:             getEnv("BASE_URL", "http://localhost:8080"),

		Google: OAuthConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		},

		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
		},

		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
			File:   getEnv("LOG_FILE", ""),
		},
	}, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvOrPanic(key string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		panic("required environment variable not set: " + key)
	}
	return value
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback.String()))
	if err != nil {
		return fallback
	}
	return d
}

// getEnvCount reads a positive count that fits a uint32.
func getEnvCount(key string, fallback uint32) uint32 {
	n, err := strconv.ParseUint(getEnv(key, ""), 10, 32)
	if err != nil || n == 0 {
		return fallback
	}
	return uint32(n)
}

func getEnvBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return b
}
