package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/rapport/internal/api"
	"github.com/MikeSquared-Agency/rapport/internal/config"
	"github.com/MikeSquared-Agency/rapport/internal/hermes"
	"github.com/MikeSquared-Agency/rapport/internal/processor"
	"github.com/MikeSquared-Agency/rapport/internal/slack"
	"github.com/MikeSquared-Agency/rapport/internal/store"
)

func serveCmd() *cobra.Command {
	var queue string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the NATS import consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger := slog.Default()
			logger.Info("rapport starting", "port", cfg.Port)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pipeline, err := newPipeline(cfg, logger)
			if err != nil {
				return err
			}

			// Database
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}
			db, err := store.New(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer db.Close()
			if err := db.Migrate(ctx); err != nil {
				return err
			}
			logger.Info("database connected")

			// NATS/Hermes
			hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, logger)
			if err != nil {
				return fmt.Errorf("connect to NATS: %w", err)
			}
			defer hermesClient.Close()
			logger.Info("NATS connected", "url", cfg.NatsURL)

			proc := processor.New(pipeline, db, hermesClient, logger)

			// Slack poster (optional, rapport works without it)
			if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
				proc.SetNotifier(slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, logger))
				logger.Info("slack poster ready", "channel", cfg.SlackChannel)
			} else {
				logger.Warn("slack not configured, running without import notifications")
			}

			if err := hermesClient.Subscribe(hermes.SubjectImportRequested, queue, proc.HandleImportRequested); err != nil {
				return err
			}

			// HTTP API
			srv := api.NewServer(cfg.Port, cfg.APIToken, proc, db, logger)
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("HTTP server error", "error", err)
					stop()
				}
			}()

			// Announce registration
			if err := hermesClient.Publish("swarm.agent.rapport.registered", map[string]any{
				"timestamp": time.Now().UTC().Format(time.RFC3339),
				"port":      cfg.Port,
			}); err != nil {
				logger.Warn("failed to publish registration", "error", err)
			}

			logger.Info("rapport ready", "port", cfg.Port)

			<-ctx.Done()
			logger.Info("shutting down")
			return nil
		},
	}

	cmd.Flags().StringVar(&queue, "queue", "rapport", "NATS queue group shared by replicas")
	return cmd
}
