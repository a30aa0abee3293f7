package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/storm-alert-delays/internal/domain"
	"github.com/couchcryptid/storm-alert-delays/internal/observability"
)

// AlertSource fetches raw alert feed entries.
type AlertSource interface {
	FetchEntries(ctx context.Context) ([]domain.RawEntry, error)
}

// FeedAlerts implements AlertProvider by parsing and filtering the entries
// of an AlertSource.
type FeedAlerts struct {
	source  AlertSource
	rules   domain.Rules
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewFeedAlerts creates a FeedAlerts provider.
func NewFeedAlerts(source AlertSource, rules domain.Rules, logger *slog.Logger, metrics *observability.Metrics) *FeedAlerts {
	return &FeedAlerts{
		source:  source,
		rules:   rules,
		logger:  logger,
		metrics: metrics,
	}
}

// Alerts fetches, parses, and filters the feed. A fetch failure degrades to
// an empty alert set so the run still produces a report.
func (f *FeedAlerts) Alerts(ctx context.Context) ([]domain.Alert, error) {
	entries, err := f.source.FetchEntries(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.metrics.AlertFetchErrors.Inc()
		f.logger.Warn("alert fetch failed, continuing with no alerts", "error", err)
		return []domain.Alert{}, nil
	}
	f.metrics.AlertsFetched.Add(float64(len(entries)))

	alerts := make([]domain.Alert, 0, len(entries))
	for _, e := range entries {
		a := domain.ParseEntry(e, f.rules)
		if reason, drop := f.rules.Exclude(a); drop {
			f.metrics.AlertsFiltered.WithLabelValues(string(reason)).Inc()
			f.logger.Debug("alert filtered", "title", a.Title, "reason", reason)
			continue
		}
		alerts = append(alerts, a)
	}

	f.logger.Info("alerts loaded", "fetched", len(entries), "kept", len(alerts))
	return alerts, nil
}
