package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// config holds everything needed to start the server.
type config struct {
	Addr           string
	Root           string // optional initial repository root
	SecretFile     string
	RedisURL       string // empty means in-memory sessions
	SessionTTL     time.Duration
	MaxAttempts    int
	Cooldown       time.Duration
	HighlightStyle string
	OpenBrowser    bool
	Watch          bool
}

// loadConfig returns defaults overridden by PEEKREPO_* environment variables.
// Command-line flags are applied on top by the caller.
func loadConfig() config {
	return config{
		Addr:           getenv("PEEKREPO_ADDR", "localhost:6420"),
		SecretFile:     getenv("PEEKREPO_SECRET_FILE", "password.txt"),
		RedisURL:       getenv("PEEKREPO_REDIS_URL", ""),
		SessionTTL:     time.Duration(getenvInt("PEEKREPO_SESSION_TTL_SECONDS", int(defaultSessionTTL/time.Second))) * time.Second,
		MaxAttempts:    getenvInt("PEEKREPO_MAX_ATTEMPTS", defaultMaxAttempts),
		Cooldown:       time.Duration(getenvInt("PEEKREPO_COOLDOWN_SECONDS", int(defaultCooldown/time.Second))) * time.Second,
		HighlightStyle: getenv("PEEKREPO_STYLE", defaultHighlightStyle),
		OpenBrowser:    false,
		Watch:          true,
	}
}

// validate checks the config and normalizes the optional root.
func (c *config) validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return errors.New("config: addr is required")
	}
	if strings.TrimSpace(c.SecretFile) == "" {
		return errors.New("config: secret file is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("config: session ttl must be positive, got %s", c.SessionTTL)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("config: max attempts must be positive, got %d", c.MaxAttempts)
	}
	if c.Cooldown <= 0 {
		return fmt.Errorf("config: cooldown must be positive, got %s", c.Cooldown)
	}
	if c.Root != "" {
		root, err := normalizeRoot(c.Root)
		if err != nil {
			return fmt.Errorf("config: root: %w", err)
		}
		c.Root = root
	}
	return nil
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
