package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port           string
	Env            string
	Origin         string
	DatabaseURL    string
	RedisURL       string
	LogFile        string
	TOTPIssuer     string
	TrustedProxies []string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	SessionTTL      time.Duration

	AccessTokenPrivateKey  []byte
	AccessTokenPublicKey   []byte
	RefreshTokenPrivateKey []byte
	RefreshTokenPublicKey  []byte

	Email EmailConfig
}

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Secure   bool
}

func (e EmailConfig) Enabled() bool {
	return e.Host != "" && e.Port != 0 && e.From != ""
}

// Production reports whether cookies should carry the Secure flag.
func (c Config) Production() bool {
	return c.Env == "production"
}

func Load() (Config, error) {
	rawPort := strings.Trim(getenvDefault("EMAIL_PORT", "587"), "\"' ")
	emailPort, err := strconv.Atoi(rawPort)
	if err != nil {
		emailPort = 587
	}

	cfg := Config{
		Port:            getenvDefault("PORT", "4000"),
		Env:             getenvDefault("APP_ENV", "development"),
		Origin:          getenvDefault("CORS_ORIGIN", "http://localhost:3000"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        getenvDefault("REDIS_URL", "redis://localhost:6379"),
		LogFile:         getenvDefault("LOG_FILE", "logs/server.log"),
		TOTPIssuer:      getenvDefault("TOTP_ISSUER", "KeenOn Card Generate"),
		TrustedProxies:  parseList(os.Getenv("TRUSTED_PROXIES")),
		AccessTokenTTL:  minutesEnv("ACCESS_TOKEN_EXPIRES_IN", 15),
		RefreshTokenTTL: minutesEnv("REFRESH_TOKEN_EXPIRES_IN", 60),
		SessionTTL:      minutesEnv("REDIS_CACHE_EXPIRES_IN", 60),
	}

	cfg.Email = EmailConfig{
		Host:     clean(os.Getenv("EMAIL_HOST")),
		Port:     emailPort,
		Username: clean(os.Getenv("EMAIL_USER")),
		Password: clean(os.Getenv("EMAIL_PASS")),
		From:     clean(getenvDefault("EMAIL_FROM", "noreply@example.com")),
		Secure:   parseBool(os.Getenv("EMAIL_SECURE")),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}

	// Key material arrives base64-encoded so PEM blocks survive env files.
	keys := []struct {
		name string
		dst  *[]byte
	}{
		{"JWT_ACCESS_TOKEN_PRIVATE_KEY", &cfg.AccessTokenPrivateKey},
		{"JWT_ACCESS_TOKEN_PUBLIC_KEY", &cfg.AccessTokenPublicKey},
		{"JWT_REFRESH_TOKEN_PRIVATE_KEY", &cfg.RefreshTokenPrivateKey},
		{"JWT_REFRESH_TOKEN_PUBLIC_KEY", &cfg.RefreshTokenPublicKey},
	}
	for _, k := range keys {
		raw := clean(os.Getenv(k.name))
		if raw == "" {
			return Config{}, fmt.Errorf("%s is required", k.name)
		}
		pem, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%s is not valid base64: %w", k.name, err)
		}
		*k.dst = pem
	}

	return cfg, nil
}

func clean(val string) string {
	return strings.Trim(val, "\"' \t\r\n")
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func parseList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if s := clean(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseBool(val string) bool {
	if val == "" {
		return false
	}
	val = strings.ToLower(strings.Trim(val, "\"' "))
	return val == "1" || val == "true" || val == "yes"
}

func minutesEnv(key string, def int) time.Duration {
	raw := strings.Trim(os.Getenv(key), "\"' ")
	if raw == "" {
		return time.Duration(def) * time.Minute
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return time.Duration(def) * time.Minute
	}
	return time.Duration(n) * time.Minute
}
