package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-alert-delays/internal/domain"
	"github.com/couchcryptid/storm-alert-delays/internal/observability"
)

// ErrRunInProgress is returned by Run when another run has not finished.
var ErrRunInProgress = errors.New("report run already in progress")

// AlertProvider supplies the alerts a run matches against.
type AlertProvider interface {
	Alerts(ctx context.Context) ([]domain.Alert, error)
}

// OrderSource supplies the orders of one run.
type OrderSource interface {
	Orders(ctx context.Context) ([]domain.Order, error)
}

// ReportWriter persists a report and returns where it was written.
type ReportWriter interface {
	WriteReport(ctx context.Context, report domain.Report) (string, error)
}

// Notifier delivers a persisted report over one channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, d domain.Delivery) error
}

// Result summarizes one completed run.
type Result struct {
	Alerts        int    `json:"alerts"`
	Orders        int    `json:"orders"`
	MatchedOrders int    `json:"matched_orders"`
	ReportPath    string `json:"report_path"`

	Report domain.Report `json:"-"`
}

// Pipeline runs fetch, match, report, and delivery to completion per call.
type Pipeline struct {
	alerts    AlertProvider
	orders    OrderSource
	writer    ReportWriter
	notifiers []Notifier
	clock     clockwork.Clock
	loc       *time.Location
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu    sync.Mutex
	ready atomic.Bool
}

// New creates a Pipeline. A nil clock uses the real clock.
func New(a AlertProvider, o OrderSource, w ReportWriter, notifiers []Notifier, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		alerts:    a,
		orders:    o,
		writer:    w,
		notifiers: notifiers,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// WithLocation sets the zone report dates are taken in. Without it the
// clock's own zone is used.
func (p *Pipeline) WithLocation(loc *time.Location) *Pipeline {
	p.loc = loc
	return p
}

// CheckReadiness returns nil once a run has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no report run has completed yet")
	}
	return nil
}

// Run executes one full report run. Runs never overlap; a call made while
// another is in progress returns ErrRunInProgress immediately.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	if !p.mu.TryLock() {
		p.metrics.Runs.WithLabelValues("skipped").Inc()
		return Result{}, ErrRunInProgress
	}
	defer p.mu.Unlock()

	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	start := p.clock.Now()
	res, err := p.run(ctx)
	if err != nil {
		p.metrics.Runs.WithLabelValues("error").Inc()
		p.logger.Error("report run failed", "error", err)
		return res, err
	}

	p.metrics.Runs.WithLabelValues("success").Inc()
	p.metrics.RunDuration.Observe(p.clock.Since(start).Seconds())
	p.metrics.LastSuccess.Set(float64(p.clock.Now().Unix()))
	p.ready.Store(true)

	p.logger.Info("report run complete",
		"alerts", res.Alerts,
		"orders", res.Orders,
		"matched_orders", res.MatchedOrders,
		"report_path", res.ReportPath,
	)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context) (Result, error) {
	alerts, err := p.alerts.Alerts(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load alerts: %w", err)
	}

	orders, err := p.orders.Orders(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load orders: %w", err)
	}
	p.metrics.OrdersRead.Add(float64(len(orders)))

	matched := domain.JoinOrders(orders, alerts)
	p.metrics.OrdersMatched.Add(float64(len(matched)))

	report := domain.BuildReport(alerts, matched, p.now())

	path, err := p.writer.WriteReport(ctx, report)
	if err != nil {
		return Result{}, fmt.Errorf("write report: %w", err)
	}

	p.notify(ctx, domain.Delivery{
		Report:       report,
		Path:         path,
		AlertCount:   len(alerts),
		MatchedCount: len(matched),
		Matched:      matched,
	})

	return Result{
		Alerts:        len(alerts),
		Orders:        len(orders),
		MatchedOrders: len(matched),
		ReportPath:    path,
		Report:        report,
	}, nil
}

func (p *Pipeline) now() time.Time {
	if p.loc == nil {
		return p.clock.Now()
	}
	return p.clock.Now().In(p.loc)
}

// notify fans the delivery out to every notifier. Failures are logged and
// counted; the report is already on disk so the run still succeeds.
func (p *Pipeline) notify(ctx context.Context, d domain.Delivery) {
	for _, n := range p.notifiers {
		if err := n.Notify(ctx, d); err != nil {
			p.metrics.Deliveries.WithLabelValues(n.Name(), "error").Inc()
			p.logger.Error("report delivery failed", "channel", n.Name(), "error", err)
			continue
		}
		p.metrics.Deliveries.WithLabelValues(n.Name(), "success").Inc()
		p.logger.Info("report delivered", "channel", n.Name(), "matched_orders", d.MatchedCount)
	}
}
