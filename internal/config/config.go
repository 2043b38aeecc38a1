package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Timestamp policies for messages whose time could not be read.
const (
	TimestampKeep = "keep"
	TimestampDrop = "drop"
)

type Config struct {
	Port            int
	NatsURL         string
	NatsToken       string
	DatabaseURL     string
	LogLevel        string
	AnthropicAPIKey string
	AnthropicModel  string
	SlackBotToken   string
	SlackChannel    string
	APIToken        string

	TimestampPolicy string
	InsightTimeout  time.Duration
	SessionGap      time.Duration
	MemoryCap       int
	Timezone        string
	LexiconFile     string
	SelfName        string

	BackfillConcurrency int
	StateFile           string
}

func Load() Config {
	return Config{
		Port:            envInt("RAPPORT_PORT", 8760),
		NatsURL:         envStr("NATS_URL", "nats://hermes:4222"),
		NatsToken:       envStr("NATS_TOKEN", ""),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("RAPPORT_MODEL", "claude-sonnet-4-20250514"),
		SlackBotToken:   envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:    envStr("SLACK_IMPORTS_CHANNEL", ""),
		APIToken:        envStr("RAPPORT_API_TOKEN", ""),

		TimestampPolicy: envPolicy("RAPPORT_TIMESTAMP_POLICY"),
		InsightTimeout:  envDuration("RAPPORT_INSIGHT_TIMEOUT", 45*time.Second),
		SessionGap:      envDuration("RAPPORT_SESSION_GAP", 3*time.Hour),
		MemoryCap:       envInt("RAPPORT_MEMORY_CAP", 5),
		Timezone:        envStr("RAPPORT_TIMEZONE", "UTC"),
		LexiconFile:     envStr("RAPPORT_LEXICON_FILE", ""),
		SelfName:        envStr("RAPPORT_SELF_NAME", "You"),

		BackfillConcurrency: envInt("RAPPORT_BACKFILL_CONCURRENCY", 4),
		StateFile:           envStr("RAPPORT_STATE_FILE", ".rapport-backfill.json"),
	}
}

// DropFallbacks reports whether messages with unreadable timestamps are discarded.
func (c Config) DropFallbacks() bool {
	return c.TimestampPolicy == TimestampDrop
}

// Location resolves Timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func envPolicy(key string) string {
	if strings.EqualFold(os.Getenv(key), TimestampDrop) {
		return TimestampDrop
	}
	return TimestampKeep
}
