package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/storm-alert-delays/internal/adapter/noaa"
	"github.com/couchcryptid/storm-alert-delays/internal/adapter/orders"
	"github.com/couchcryptid/storm-alert-delays/internal/adapter/xlsx"
	"github.com/couchcryptid/storm-alert-delays/internal/config"
	"github.com/couchcryptid/storm-alert-delays/internal/observability"
	"github.com/couchcryptid/storm-alert-delays/internal/pipeline"
)

type reportOptions struct {
	ordersPath string
	alertsPath string
	outDir     string
}

func newReportCmd() *cobra.Command {
	var opts reportOptions

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build the delayed orders workbook",
		Long: `Match an order export against alerts and write the delayed orders workbook.

Alerts come from an alert workbook when --alerts is given, otherwise from the
live feed. Orders are read from CSV, or from SQLite when the file ends in
.db, .sqlite, or .sqlite3.

Examples:
  delays report --orders open_orders.csv
  delays report --orders open_orders.csv --alerts weather_alerts_2025-04-26.xlsx
  delays report --orders orders.db --out ./reports`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReport(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.ordersPath, "orders", "", "Order export (CSV or SQLite) (required)")
	cmd.Flags().StringVar(&opts.alertsPath, "alerts", "", "Alert workbook (.xlsx); the live feed is used when omitted")
	cmd.Flags().StringVar(&opts.outDir, "out", "", "Output directory (default REPORT_DIR)")
	_ = cmd.MarkFlagRequired("orders")

	return cmd
}

func runReport(ctx context.Context, out io.Writer, opts reportOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := observability.NewLoggerTo(os.Stderr, cfg)
	metrics := observability.NewMetricsWith(prometheus.NewRegistry())

	var alerts pipeline.AlertProvider
	if opts.alertsPath != "" {
		alerts = xlsx.NewAlertWorkbook(opts.alertsPath, cfg.Rules)
	} else {
		feed := noaa.NewClient(cfg.AlertFeedURL, cfg.AlertFeedTimeout, cfg.AlertFeedUserAgent, logger)
		alerts = pipeline.NewFeedAlerts(feed, cfg.Rules, logger, metrics)
	}

	var source pipeline.OrderSource
	if isSQLitePath(opts.ordersPath) {
		s, err := orders.NewSQLiteSource(opts.ordersPath)
		if err != nil {
			return err
		}
		defer s.Close()
		source = s
	} else {
		source = orders.NewCSVSource(opts.ordersPath)
	}

	outDir := opts.outDir
	if outDir == "" {
		outDir = cfg.ReportDir
	}

	p := pipeline.New(alerts, source, xlsx.NewWriter(outDir), nil, clockwork.NewRealClock(), logger, metrics).
		WithLocation(cfg.ScheduleLocation)
	res, err := p.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Alerts:          %d\n", res.Alerts)
	fmt.Fprintf(out, "Orders:          %d\n", res.Orders)
	fmt.Fprintf(out, "Matched orders:  %d\n", res.MatchedOrders)
	for _, s := range res.Report.ClientSheets() {
		fmt.Fprintf(out, "  %-28s %d\n", s.Name, len(s.Rows))
	}
	fmt.Fprintf(out, "Report:          %s\n", res.ReportPath)
	return nil
}

func isSQLitePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}
