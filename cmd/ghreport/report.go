package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/ghreport/internal/adapter/driven/reportfile"
	"github.com/ericfisherdev/ghreport/internal/application"
	"github.com/ericfisherdev/ghreport/internal/domain/port/driven"
)

type reportFlags struct {
	since     string
	week      bool
	reportDir string
	output    string
	dryRun    bool
	print     bool
}

func newReportCmd(opts *options) *cobra.Command {
	var flags reportFlags

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate one report and exit",
		Example: `  ghreport report
  ghreport report --week --output weekly.md
  ghreport report --since 3d --dry-run --print`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := time.Now()

			genOpts := application.GenerateOptions{DryRun: flags.dryRun}
			switch {
			case flags.week:
				genOpts.Since = now.Add(-7 * 24 * time.Hour)
			case flags.since != "":
				since, err := parseSince(flags.since, now)
				if err != nil {
					return err
				}
				genOpts.Since = since
			}

			cfg := *opts.cfg
			if flags.reportDir != "" {
				cfg.ReportDir = flags.reportDir
			}
			var writer driven.ReportWriter
			if flags.output != "" {
				writer = reportfile.NewFileWriter(flags.output)
			}

			a, err := newApp(&cfg, opts.logger, writer)
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.service.Generate(cmd.Context(), genOpts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if flags.print {
				_, err = fmt.Fprint(out, report.Markdown)
				return err
			}

			target := report.Run.ReportPath
			if flags.dryRun {
				target = "dry run"
			}
			_, err = fmt.Fprintf(out, "%s: %d repositories, %d prioritized items, %d action items, since %s\n",
				target, report.Run.RepoCount, report.Run.PrioritizedCount, report.Run.ActionItemCount,
				report.Run.Since.UTC().Format(time.RFC3339))
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.since, "since", "", "start of the activity window: days (7 or 7d) or a date (2006-01-02)")
	f.BoolVar(&flags.week, "week", false, "report on the past 7 days")
	f.StringVar(&flags.reportDir, "report-dir", "", "directory for report files (overrides GHREPORT_REPORT_DIR)")
	f.StringVarP(&flags.output, "output", "o", "", "write the report to this file")
	f.BoolVar(&flags.dryRun, "dry-run", false, "fetch and analyze without writing the report or recording the run")
	f.BoolVar(&flags.print, "print", false, "write the report Markdown to stdout")
	cmd.MarkFlagsMutuallyExclusive("since", "week")
	cmd.MarkFlagsMutuallyExclusive("output", "report-dir")

	return cmd
}

// parseSince accepts a day count ("7" or "7d"), a date or an RFC 3339 time.
func parseSince(value string, now time.Time) (time.Time, error) {
	if days, err := strconv.Atoi(strings.TrimSuffix(value, "d")); err == nil {
		if days <= 0 {
			return time.Time{}, fmt.Errorf("--since must be a positive number of days, got %q", value)
		}
		return now.Add(-time.Duration(days) * 24 * time.Hour), nil
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --since %q: want days (7, 7d), a date (2006-01-02) or an RFC 3339 time", value)
}
