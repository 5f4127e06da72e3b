// Package server provides configuration helpers that define runtime defaults
// and coordination parameters for the Parlor service.
package server

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/parlor-chat/parlor/internal/chat"
)

// Config holds the server configuration settings, including the coordination
// parameters handed to the chat hub.
type Config struct {
	Port             string
	Env              string
	AllowedOrigins   []string
	MaxMessageLength int
	TypingTimeout    time.Duration
	RoomIdleTTL      time.Duration
}

var (
	configMu        sync.RWMutex
	activeConfig    Config
	allowedOrigins  map[string]struct{}
	allowAllOrigins bool
)

func init() {
	SetConfig(nil)
}

func defaultConfig() Config {
	return Config{
		Port: ":8080",
		Env:  "dev",
		AllowedOrigins: []string{
			"http://localhost:8080",
			"http://localhost:3000",
		},
		MaxMessageLength: chat.DefaultMaxMessageLength,
		TypingTimeout:    chat.DefaultTypingTimeout,
		RoomIdleTTL:      chat.DefaultRoomIdleTTL,
	}
}

func sanitizeConfig(cfg Config) Config {
	if cfg.Port == "" {
		cfg.Port = ":8080"
	}
	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = chat.DefaultMaxMessageLength
	}
	if cfg.TypingTimeout <= 0 {
		cfg.TypingTimeout = chat.DefaultTypingTimeout
	}
	if cfg.RoomIdleTTL <= 0 {
		cfg.RoomIdleTTL = chat.DefaultRoomIdleTTL
	}

	normalizedOrigins, allowAll := normalizeOrigins(cfg.AllowedOrigins)
	cfg.AllowedOrigins = normalizedOrigins

	configMu.Lock()
	defer configMu.Unlock()

	activeConfig = cfg
	allowAllOrigins = allowAll
	allowedOrigins = make(map[string]struct{}, len(normalizedOrigins))
	for _, origin := range normalizedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	return cfg
}

// SetConfig applies the provided configuration. Passing nil resets to defaults.
func SetConfig(cfg *Config) {
	if cfg == nil {
		defaultCfg := defaultConfig()
		sanitizeConfig(defaultCfg)
		return
	}

	sanitized := Config{
		Port:             cfg.Port,
		Env:              cfg.Env,
		AllowedOrigins:   append([]string(nil), cfg.AllowedOrigins...),
		MaxMessageLength: cfg.MaxMessageLength,
		TypingTimeout:    cfg.TypingTimeout,
		RoomIdleTTL:      cfg.RoomIdleTTL,
	}
	sanitizeConfig(sanitized)
}

func currentConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()

	cfg := activeConfig
	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		cfg.Env = env
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}
	if maxLen := os.Getenv("MAX_MESSAGE_LENGTH"); maxLen != "" {
		cfg.MaxMessageLength = parseIntValue(maxLen, cfg.MaxMessageLength)
	}
	if timeout := os.Getenv("TYPING_TIMEOUT_MS"); timeout != "" {
		cfg.TypingTimeout = parseMillis(timeout, cfg.TypingTimeout)
	}
	if ttl := os.Getenv("ROOM_IDLE_TTL_SECONDS"); ttl != "" {
		cfg.RoomIdleTTL = parseSeconds(ttl, cfg.RoomIdleTTL)
	}

	return &cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseMillis(value string, defaultValue time.Duration) time.Duration {
	if ms, err := strconv.Atoi(value); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

func parseSeconds(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
