package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/rapport/internal/backfill"
	"github.com/MikeSquared-Agency/rapport/internal/config"
	"github.com/MikeSquared-Agency/rapport/internal/processor"
	"github.com/MikeSquared-Agency/rapport/internal/slack"
	"github.com/MikeSquared-Agency/rapport/internal/store"
)

// importFlags are shared by backfill and watch.
type importFlags struct {
	owner        string
	relationship string
	format       string
	minMessages  int
}

func (f *importFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.owner, "owner", "", "owner UUID (required unless --dry-run)")
	cmd.Flags().StringVar(&f.relationship, "relationship", "", "import every file into this relationship UUID")
	cmd.Flags().StringVar(&f.format, "format", "", "export format hint (whatsapp, imessage)")
	cmd.Flags().IntVar(&f.minMessages, "min-messages", 2, "skip exports with fewer messages")
}

func (f *importFlags) apply(cfg *backfill.Config, required bool) error {
	if f.owner != "" {
		owner, err := uuid.Parse(f.owner)
		if err != nil {
			return fmt.Errorf("invalid --owner: %w", err)
		}
		cfg.OwnerUUID = owner
	} else if required {
		return fmt.Errorf("--owner is required")
	}
	if f.relationship != "" {
		rel, err := uuid.Parse(f.relationship)
		if err != nil {
			return fmt.Errorf("invalid --relationship: %w", err)
		}
		cfg.RelationshipID = rel
	}
	cfg.FormatHint = f.format
	cfg.MinMessages = f.minMessages
	return nil
}

// newImporter wires the processor, with storage unless dryRun.
func newImporter(ctx context.Context, cfg config.Config, dryRun bool, logger *slog.Logger) (*processor.Processor, func(), error) {
	pipeline, err := newPipeline(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if dryRun {
		return processor.New(pipeline, nil, nil, logger), func() {}, nil
	}

	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return processor.New(pipeline, db, nil, logger), db.Close, nil
}

func newDigester(cfg config.Config, logger *slog.Logger) backfill.Digester {
	if cfg.SlackBotToken == "" || cfg.SlackChannel == "" {
		return nil
	}
	return slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, logger)
}

func backfillCmd() *cobra.Command {
	var (
		flags       importFlags
		file        string
		since       string
		until       string
		dryRun      bool
		concurrency int
		statePath   string
	)

	cmd := &cobra.Command{
		Use:   "backfill <dir>",
		Short: "Import every chat export in a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger := slog.Default()

			bcfg := backfill.Config{
				SingleFile:    file,
				DryRun:        dryRun,
				Concurrency:   concurrency,
				StatePath:     statePath,
				Location:      cfg.Location(),
				DropFallbacks: cfg.DropFallbacks(),
				Out:           cmd.OutOrStdout(),
			}
			if len(args) == 1 {
				bcfg.Dir = args[0]
			} else if file == "" {
				return fmt.Errorf("a directory or --file is required")
			}
			if err := flags.apply(&bcfg, !dryRun); err != nil {
				return err
			}

			var err error
			if bcfg.Since, err = parseDate(since, bcfg.Location); err != nil {
				return fmt.Errorf("invalid --since: %w", err)
			}
			if bcfg.Until, err = parseDate(until, bcfg.Location); err != nil {
				return fmt.Errorf("invalid --until: %w", err)
			}
			if !bcfg.Until.IsZero() {
				// Inclusive of the whole day.
				bcfg.Until = bcfg.Until.Add(24*time.Hour - time.Nanosecond)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			proc, closeFn, err := newImporter(ctx, cfg, dryRun, logger)
			if err != nil {
				return err
			}
			defer closeFn()

			return backfill.NewRunner(bcfg, proc, newDigester(cfg, logger), logger).Run(ctx)
		},
	}

	flags.register(cmd)
	cfg := config.Load()
	cmd.Flags().StringVar(&file, "file", "", "import a single export file")
	cmd.Flags().StringVar(&since, "since", "", "only exports with messages on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&until, "until", "", "only exports with messages on or before this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "analyse without writing to the database")
	cmd.Flags().IntVar(&concurrency, "concurrency", cfg.BackfillConcurrency, "exports analysed in parallel")
	cmd.Flags().StringVar(&statePath, "state", cfg.StateFile, "resumable state file")
	return cmd
}

func watchCmd() *cobra.Command {
	var (
		flags  importFlags
		settle time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Import chat exports as they are dropped into a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger := slog.Default()

			bcfg := backfill.Config{
				Dir:           args[0],
				Location:      cfg.Location(),
				DropFallbacks: cfg.DropFallbacks(),
				Out:           cmd.OutOrStdout(),
			}
			if err := flags.apply(&bcfg, true); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			proc, closeFn, err := newImporter(ctx, cfg, false, logger)
			if err != nil {
				return err
			}
			defer closeFn()

			if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
				proc.SetNotifier(slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, logger))
			}

			runner := backfill.NewRunner(bcfg, proc, nil, logger)
			w, err := backfill.NewWatcher(args[0], settle, runner, logger)
			if err != nil {
				return err
			}
			return w.Start(ctx)
		},
	}

	flags.register(cmd)
	cmd.Flags().DurationVar(&settle, "settle", backfill.DefaultSettle, "quiet period before a new file is imported")
	return cmd
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation("2006-01-02", s, loc)
}
