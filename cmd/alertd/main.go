package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/storm-alert-delays/internal/adapter/email"
	"github.com/couchcryptid/storm-alert-delays/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/storm-alert-delays/internal/adapter/kafka"
	"github.com/couchcryptid/storm-alert-delays/internal/adapter/noaa"
	"github.com/couchcryptid/storm-alert-delays/internal/adapter/orders"
	"github.com/couchcryptid/storm-alert-delays/internal/adapter/xlsx"
	"github.com/couchcryptid/storm-alert-delays/internal/config"
	"github.com/couchcryptid/storm-alert-delays/internal/observability"
	"github.com/couchcryptid/storm-alert-delays/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	feed := noaa.NewClient(cfg.AlertFeedURL, cfg.AlertFeedTimeout, cfg.AlertFeedUserAgent, logger)
	alerts := pipeline.NewFeedAlerts(feed, cfg.Rules, logger, metrics)

	source, closers, err := newOrderSource(cfg)
	if err != nil {
		logger.Error("failed to open order source", "error", err)
		os.Exit(1)
	}

	var notifiers []pipeline.Notifier
	if cfg.EmailEnabled {
		notifiers = append(notifiers, email.NewNotifier(email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.EmailAddress,
			Password: cfg.EmailPassword,
			From:     cfg.EmailAddress,
			To:       cfg.EmailRecipients,
		}, logger))
		logger.Info("email delivery enabled", "recipients", len(cfg.EmailRecipients))
	} else {
		logger.Info("email delivery disabled")
	}
	if cfg.KafkaEnabled {
		kn := kafkaadapter.NewNotifier(cfg.KafkaBrokers, cfg.KafkaNotifyTopic, logger)
		notifiers = append(notifiers, kn)
		closers = append(closers, kn)
		logger.Info("kafka notifications enabled", "topic", cfg.KafkaNotifyTopic)
	}

	clock := clockwork.NewRealClock()
	p := pipeline.New(alerts, source, xlsx.NewWriter(cfg.ReportDir), notifiers, clock, logger, metrics).
		WithLocation(cfg.ScheduleLocation)
	scheduler := pipeline.NewScheduler(p, cfg.ScheduleHour, cfg.ScheduleMinute, cfg.ScheduleLocation, cfg.RunOnStart, clock, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, cfg.APIKey, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("service error", "error", err)
	}

	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Error("close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// newOrderSource opens the configured order source. Returned closers must
// be closed on shutdown.
func newOrderSource(cfg *config.Config) (pipeline.OrderSource, []io.Closer, error) {
	switch cfg.OrdersSource {
	case config.OrdersSourceSQLite:
		s, err := orders.NewSQLiteSource(cfg.OrdersSQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, []io.Closer{s}, nil
	default:
		return orders.NewCSVSource(cfg.OrdersCSVPath), nil, nil
	}
}
