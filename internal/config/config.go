package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	DBDriver    string
	DatabaseURL string

	JWTSecret      []byte
	AccessTokenTTL time.Duration
	ResetTokenTTL  time.Duration

	HashAlgorithm string
	BcryptCost    int

	// PublicReads leaves catalog listings reachable without a bearer token.
	PublicReads bool
	// CSRF guards mutating requests authenticated by the access cookie.
	CSRF bool
	// CookieSecure sets the Secure attribute on every cookie the server issues.
	CookieSecure bool

	BaseURL string

	Mail   Mail
	Google Google

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string
}

type Mail struct {
	Host          string
	Port          int
	User          string
	Pass          string
	From          string
	FromName      string
	SkipTLSVerify bool
}

type Google struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

var ErrMissingSecret = errors.New("JWT_SECRET is empty")

func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		slog.Info("env_file_not_found", "reason", "using system environment variables")
	}

	cfg := &Config{
		ServiceName: EnvDefault("SERVICE_NAME", "storefront"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		DBDriver:    EnvDefault("DB_DRIVER", "postgres"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret:      []byte(os.Getenv("JWT_SECRET")),
		AccessTokenTTL: time.Duration(EnvIntDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 4000)) * time.Minute,
		ResetTokenTTL:  time.Duration(EnvIntDefault("RESET_TOKEN_EXPIRE_MINUTES", 15)) * time.Minute,

		HashAlgorithm: EnvDefault("HASH_ALGORITHM", "bcrypt"),
		BcryptCost:    EnvIntDefault("BCRYPT_COST", 12),

		PublicReads: EnvBoolDefault("AUTH_PUBLIC_READS", true),
		CSRF:        EnvBoolDefault("CSRF_ENABLED", true),

		CookieSecure: EnvBoolDefault("COOKIE_SECURE", true),

		BaseURL: strings.TrimRight(EnvDefault("BASE_URL", "http://localhost:8080"), "/"),

		Mail: Mail{
			Host:          os.Getenv("MAIL_HOST"),
			Port:          EnvIntDefault("MAIL_PORT", 587),
			User:          os.Getenv("MAIL_USER"),
			Pass:          os.Getenv("MAIL_PASS"),
			From:          EnvDefault("MAIL_FROM", "no-reply@storefront.local"),
			FromName:      EnvDefault("MAIL_FROM_NAME", "Storefront"),
			SkipTLSVerify: EnvBoolDefault("MAIL_SKIP_TLS_VERIFY", false),
		},

		Google: Google{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("GOOGLE_REDIRECT_URI"),
		},

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "products"),
	}

	if len(cfg.JWTSecret) == 0 {
		return nil, ErrMissingSecret
	}
	return cfg, nil
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
