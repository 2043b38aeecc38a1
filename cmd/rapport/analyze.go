package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/rapport/internal/backfill"
	"github.com/MikeSquared-Agency/rapport/internal/chatlog"
	"github.com/MikeSquared-Agency/rapport/internal/config"
)

func analyzeCmd() *cobra.Command {
	var (
		format  string
		contact string
		pretty  bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Analyse one chat export and print the report as JSON",
		Long:  "Analyse one chat export without storing it. Reads stdin when no file or \"-\" is given.",
		Args:  cobra.MaximumNArgs(1),
		// The report owns stdout.
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(config.Load().LogLevel, cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger := slog.Default()

			var (
				data []byte
				err  error
			)
			if len(args) == 0 || args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
				if contact == "" {
					contact = backfill.ContactFromFilename(filepath.Base(args[0]))
				}
			}
			if err != nil {
				return fmt.Errorf("read export: %w", err)
			}

			pipeline, err := newPipeline(cfg, logger)
			if err != nil {
				return err
			}

			report := pipeline.Run(cmd.Context(), chatlog.RawExport{
				Content:    string(data),
				FormatHint: format,
				Contact:    contact,
			})

			enc := json.NewEncoder(cmd.OutOrStdout())
			if pretty {
				enc.SetIndent("", "  ")
			}
			if err := enc.Encode(report); err != nil {
				return fmt.Errorf("encode report: %w", err)
			}
			if !report.Imported() {
				return fmt.Errorf("no parseable content")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "export format hint (whatsapp, imessage)")
	cmd.Flags().StringVar(&contact, "contact", "", "contact name or phone number")
	cmd.Flags().BoolVar(&pretty, "pretty", true, "indent JSON output")
	return cmd
}
