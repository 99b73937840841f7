package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ericfisherdev/ghreport/internal/config"
)

// options carries state shared by all subcommands once the root pre-run has
// loaded configuration.
type options struct {
	rulesPath string
	verbose   bool
	cfg       *config.Config
	logger    *slog.Logger
}

type commandContext struct {
	correlationID uuid.UUID
	startedAt     time.Time
}

type commandContextKey struct{}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "ghreport",
		Short: "Prioritized GitHub activity reports",
		Long: `ghreport fetches recent issues and pull requests for the repositories in the
rules file, matches them against watch rules, scores and ranks them, and writes
a Markdown report with suggested action items.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if opts.rulesPath != "" {
				cfg.RulesPath = opts.rulesPath
			}
			if opts.verbose {
				cfg.LogLevel = slog.LevelDebug
			}
			opts.cfg = cfg

			opts.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
			slog.SetDefault(opts.logger)

			info := commandContext{
				correlationID: uuid.New(),
				startedAt:     time.Now(),
			}
			cmd.SetContext(context.WithValue(cmd.Context(), commandContextKey{}, info))
			opts.logger.Info("command start",
				"command", cmd.CommandPath(),
				"correlation_id", info.correlationID.String(),
			)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			info, ok := cmd.Context().Value(commandContextKey{}).(commandContext)
			if !ok {
				return
			}
			opts.logger.Info("command end",
				"command", cmd.CommandPath(),
				"correlation_id", info.correlationID.String(),
				"duration_ms", time.Since(info.startedAt).Milliseconds(),
			)
		},
	}

	root.PersistentFlags().StringVarP(&opts.rulesPath, "config", "c", "", "rules file path (overrides GHREPORT_CONFIG)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newReportCmd(opts),
		newServeCmd(opts),
		newCheckCmd(opts),
	)

	return root
}
