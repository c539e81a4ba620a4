package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port             int
	LogLevel         string
	NotionToken      string
	NotionDatabaseID string
	NotionBaseURL    string
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIBaseURL    string
	SlackBotToken    string
	SlackChannel     string
	SignalLinkBase   string
	NatsURL          string
	NatsToken        string
	DatabaseURL      string
	MaxFragmentSize  int
	ContentCeiling   int
	ModelInputCap    int
	SummarizeTimeout time.Duration
}

func Load() Config {
	return Config{
		Port:             envInt("SIGNALD_PORT", 8640),
		LogLevel:         envStr("LOG_LEVEL", "info"),
		NotionToken:      envStr("NOTION_TOKEN", ""),
		NotionDatabaseID: envStr("NOTION_DATABASE_ID", ""),
		NotionBaseURL:    envStr("NOTION_BASE_URL", "https://api.notion.com"),
		OpenAIAPIKey:     envStr("OPENAI_API_KEY", ""),
		OpenAIModel:      envStr("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:    envStr("OPENAI_BASE_URL", "https://api.openai.com"),
		SlackBotToken:    envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:     envStr("SLACK_SIGNALS_CHANNEL", ""),
		SignalLinkBase:   envStr("SIGNAL_LINK_BASE_URL", "https://notion.so/"),
		NatsURL:          envStr("NATS_URL", ""),
		NatsToken:        envStr("NATS_TOKEN", ""),
		DatabaseURL:      envStr("DATABASE_URL", ""),
		MaxFragmentSize:  envInt("MAX_FRAGMENT_SIZE", 2000),
		ContentCeiling:   envInt("CONTENT_CEILING", 10000),
		ModelInputCap:    envInt("MODEL_INPUT_CAP", 8000),
		SummarizeTimeout: envDur("SUMMARIZE_TIMEOUT", 30*time.Second),
	}
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

func envDur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
