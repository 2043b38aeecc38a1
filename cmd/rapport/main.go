package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/rapport/internal/analytics"
	"github.com/MikeSquared-Agency/rapport/internal/anthropic"
	"github.com/MikeSquared-Agency/rapport/internal/config"
	"github.com/MikeSquared-Agency/rapport/internal/insight"
	"github.com/MikeSquared-Agency/rapport/internal/signals"
)

var version = "dev"

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:     "rapport",
		Short:   "Chat export ingestion and relationship analytics",
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(config.Load().LogLevel, os.Stdout)
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(backfillCmd())
	rootCmd.AddCommand(watchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newPipeline builds the analytics pipeline from configuration. Without an
// Anthropic key insights come from the template.
func newPipeline(cfg config.Config, logger *slog.Logger) (*analytics.Pipeline, error) {
	lex, err := signals.LoadLexicon(cfg.LexiconFile)
	if err != nil {
		return nil, fmt.Errorf("load lexicon: %w", err)
	}

	var insights *insight.Service
	if cfg.AnthropicAPIKey != "" {
		llm := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		insights = insight.NewService(llm, cfg.InsightTimeout, logger)
		logger.Info("anthropic client ready", "model", llm.Model())
	} else {
		logger.Warn("ANTHROPIC_API_KEY not set, insights use the template")
	}

	return analytics.NewPipeline(signals.NewExtractor(lex), insights, analytics.Options{
		Location:      cfg.Location(),
		DropFallbacks: cfg.DropFallbacks(),
		SessionGap:    cfg.SessionGap,
		MemoryCap:     cfg.MemoryCap,
		SelfName:      cfg.SelfName,
	}, logger), nil
}

func setupLogging(level string, w io.Writer) {
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
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
