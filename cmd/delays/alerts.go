package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/storm-alert-delays/internal/adapter/noaa"
	"github.com/couchcryptid/storm-alert-delays/internal/adapter/xlsx"
	"github.com/couchcryptid/storm-alert-delays/internal/config"
	"github.com/couchcryptid/storm-alert-delays/internal/domain"
	"github.com/couchcryptid/storm-alert-delays/internal/observability"
	"github.com/couchcryptid/storm-alert-delays/internal/pipeline"
)

func newAlertsCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Save the current monitored alerts to a workbook",
		Long: `Fetch the live alert feed, filter it, and write weather_alerts_<date>.xlsx.

The workbook can be passed back to "delays report --alerts" to rerun a report
against a fixed alert set.

Examples:
  delays alerts
  delays alerts --out ./alerts`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAlerts(cmd.Context(), cmd.OutOrStdout(), outDir)
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (default REPORT_DIR)")
	return cmd
}

func runAlerts(ctx context.Context, out io.Writer, outDir string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := observability.NewLoggerTo(os.Stderr, cfg)
	metrics := observability.NewMetricsWith(prometheus.NewRegistry())

	feed := noaa.NewClient(cfg.AlertFeedURL, cfg.AlertFeedTimeout, cfg.AlertFeedUserAgent, logger)
	entries, err := feed.FetchEntries(ctx)
	if err != nil {
		return fmt.Errorf("fetch alerts: %w", err)
	}

	// Fetched entries are replayed through the provider so filtering and
	// metrics match a service run.
	alerts, err := pipeline.NewFeedAlerts(staticEntries(entries), cfg.Rules, logger, metrics).Alerts(ctx)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Fprintln(out, "No monitored alerts are active.")
		return nil
	}

	if outDir == "" {
		outDir = cfg.ReportDir
	}
	report := domain.BuildAlertReport(alerts, time.Now().In(cfg.ScheduleLocation))
	path, err := xlsx.NewWriter(outDir).WriteReport(ctx, report)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Fetched %d entries, kept %d alerts.\n", len(entries), len(alerts))
	fmt.Fprintf(out, "Alerts saved to %s\n", path)
	return nil
}

type staticEntries []domain.RawEntry

func (s staticEntries) FetchEntries(context.Context) ([]domain.RawEntry, error) {
	return s, nil
}
