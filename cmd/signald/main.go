package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/vector-m/signald/internal/api"
	"github.com/vector-m/signald/internal/config"
	"github.com/vector-m/signald/internal/events"
	"github.com/vector-m/signald/internal/journal"
	"github.com/vector-m/signald/internal/notion"
	"github.com/vector-m/signald/internal/openai"
	"github.com/vector-m/signald/internal/processor"
	"github.com/vector-m/signald/internal/slack"
	"github.com/vector-m/signald/internal/summarize"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("signald starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Knowledge store
	if cfg.NotionToken == "" || cfg.NotionDatabaseID == "" {
		slog.Error("NOTION_TOKEN and NOTION_DATABASE_ID are required")
		os.Exit(1)
	}
	store := notion.New(cfg.NotionToken, cfg.NotionDatabaseID, cfg.NotionBaseURL, slog.Default())

	// Probe the title property now so a schema mismatch fails at startup,
	// not on the first capture.
	titleProp, err := store.TitleProperty(ctx)
	if err != nil {
		slog.Error("store schema probe failed", "error", err)
		os.Exit(1)
	}
	slog.Info("knowledge store ready", "title_property", titleProp)

	// Summarizer
	if cfg.OpenAIAPIKey == "" {
		slog.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}
	llm := openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, cfg.SummarizeTimeout)
	summarizer := summarize.New(llm, cfg.ModelInputCap, slog.Default())
	slog.Info("summarizer ready", "model", cfg.OpenAIModel)

	// Audit journal (optional — signald runs without it, just no audit trail)
	var j *journal.Journal
	if cfg.DatabaseURL != "" {
		j, err = journal.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to journal database", "error", err)
			os.Exit(1)
		}
		defer j.Close()
		slog.Info("journal connected")
	} else {
		slog.Warn("DATABASE_URL not set — running without the audit journal")
	}

	// Notifier (optional — no Slack means no high-priority alerts)
	var notifier *slack.Notifier
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		notifier = slack.NewNotifier(cfg.SlackBotToken, cfg.SlackChannel, cfg.SignalLinkBase, slog.Default())
		slog.Info("notifier ready", "channel", cfg.SlackChannel)
	} else {
		slog.Warn("slack not configured — running without alerts")
	}

	// Event bus (optional — without NATS, enrichment runs in-process)
	var bus *events.Client
	var lifecycleBus processor.Bus
	if cfg.NatsURL != "" {
		bus, err = events.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer bus.Close()
		lifecycleBus = bus
		slog.Info("NATS connected", "url", cfg.NatsURL)
	}

	// Processor — the enrichment pipeline
	proc := processor.New(store, summarizer, notifier, lifecycleBus, j, slog.Default())

	var dispatcher api.Dispatcher = proc
	if bus != nil {
		if err := bus.Subscribe(events.SubjectEnrichRequested, proc.HandleEnrichRequested); err != nil {
			slog.Error("failed to subscribe to enrichment jobs", "error", err)
			os.Exit(1)
		}
		dispatcher = events.NewDispatcher(bus)
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, store, proc, dispatcher, j, cfg.MaxFragmentSize, cfg.ContentCeiling, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("signald ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("signald stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
