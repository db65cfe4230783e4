package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// Config holds server configuration loaded from the environment.
type Config struct {
	// Mode is "development" or "production". Development logs to the
	// console in color; production logs JSON.
	Mode string

	Addr     string
	LogLevel string

	// AllowedOrigins lists websocket origins. "*" allows any.
	AllowedOrigins []string

	// SendBuffer is the outbound message queue length per connection.
	SendBuffer int

	// JournalDSN is the SQLite path for the room event journal. Empty
	// disables the journal.
	JournalDSN string

	ShutdownTimeout time.Duration
}

// Load reads .env files for the current MODE, if present, then the
// environment. Missing keys fall back to defaults.
func Load() (*Config, error) {
	mode := envOrDefault("MODE", "development")
	loadEnvFiles(mode)

	sendBuffer, err := cast.ToIntE(envOrDefault("SEND_BUFFER", "256"))
	if err != nil {
		return nil, fmt.Errorf("SEND_BUFFER: %w", err)
	}
	if sendBuffer <= 0 {
		return nil, fmt.Errorf("SEND_BUFFER must be positive, got %d", sendBuffer)
	}

	shutdown, err := cast.ToDurationE(envOrDefault("SHUTDOWN_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
	}

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":" + envOrDefault("PORT", "8080")
	}

	return &Config{
		Mode:            mode,
		Addr:            addr,
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		AllowedOrigins:  splitList(envOrDefault("ALLOWED_ORIGINS", "*")),
		SendBuffer:      sendBuffer,
		JournalDSN:      os.Getenv("JOURNAL_DSN"),
		ShutdownTimeout: shutdown,
	}, nil
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Mode == "development" || c.Mode == "dev"
}

// loadEnvFiles loads .env.<mode> and then .env. Variables already set in
// the environment win, and missing files are ignored.
func loadEnvFiles(mode string) {
	for _, name := range []string{".env." + mode, ".env"} {
		if _, err := os.Stat(name); err == nil {
			_ = godotenv.Load(name)
		}
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
