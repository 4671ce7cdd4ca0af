package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port int

	DatabaseURL string

	JWTSecret     []byte
	RefreshSecret []byte

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	KafkaBrokers []string
}

func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	return &Config{
		Env:  EnvDefault("APP_ENV", "development"),
		Port: EnvIntDefault("SERVER_PORT", 8080),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret:     []byte(os.Getenv("JWT_SECRET")),
		RefreshSecret: []byte(os.Getenv("REFRESH_SECRET")),

		AccessTokenTTL:  EnvDurationDefault("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: EnvDurationDefault("REFRESH_TOKEN_TTL", 24*time.Hour),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),
	}
}

// CookieSecure reports whether the refresh cookie should carry the Secure
// flag. Disabled outside production so local http clients keep the cookie.
func (c *Config) CookieSecure() bool {
	return c.Env == "production"
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
	if os.Getenv(key) != "" {
		return os.Getenv(key)
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

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}
