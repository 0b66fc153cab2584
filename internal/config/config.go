package config

import (
	"crypto/rand"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

type Config struct {
	Port          string
	DBPath        string
	JWTSecret     []byte
	PublicBaseURL string
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPass      string
	SMTPFrom      string
	StrictStock   bool
}

func Load() *Config {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		DBPath:        getEnv("DB_PATH", ""),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPUser:      getEnv("SMTP_USER", ""),
		SMTPPass:      getEnv("SMTP_PASS", ""),
		SMTPFrom:      getEnv("SMTP_FROM", "no-reply@campus-tuckshop.local"),
		StrictStock:   getEnv("STRICT_STOCK", "false") == "true",
	}

	port, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		log.Warn().Str("SMTP_PORT", os.Getenv("SMTP_PORT")).Msg("invalid SMTP_PORT, falling back to 587")
		port = 587
	}
	cfg.SMTPPort = port

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		log.Warn().Str("PORT", os.Getenv("PORT")).Msg("invalid PORT, falling back to default")
		cfg.Port = "8080"
	}

	// Session tokens are useless across restarts without a stable
	// secret, so a generated one is strictly a development convenience.
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Warn().Msg("JWT_SECRET not set; generating a random key. Sessions will not survive a restart. Set JWT_SECRET in production!")
		cfg.JWTSecret = randomBytes(32)
	} else {
		cfg.JWTSecret = []byte(secret)
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		log.Fatal().Err(err).Msg("failed to read random bytes")
	}
	return b
}
