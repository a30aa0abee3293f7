package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for report runs.
type Metrics struct {
	AlertsFetched    prometheus.Counter
	AlertsFiltered   *prometheus.CounterVec // labels: reason={unknown_state,excluded_term}
	AlertFetchErrors prometheus.Counter
	OrdersRead       prometheus.Counter
	OrdersMatched    prometheus.Counter

	Runs            *prometheus.CounterVec // labels: outcome={success,error,skipped}
	RunDuration     prometheus.Histogram
	LastSuccess     prometheus.Gauge
	PipelineRunning prometheus.Gauge

	Deliveries *prometheus.CounterVec // labels: channel={email,kafka}, outcome={success,error}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates all pipeline metrics and registers them with reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.AlertsFetched,
		m.AlertsFiltered,
		m.AlertFetchErrors,
		m.OrdersRead,
		m.OrdersMatched,
		m.Runs,
		m.RunDuration,
		m.LastSuccess,
		m.PipelineRunning,
		m.Deliveries,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		AlertsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_alerts",
			Name:      "alerts_fetched_total",
			Help:      "Total alert entries read from the alert source.",
		}),
		AlertsFiltered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storm_alerts",
			Name:      "alerts_filtered_total",
			Help:      "Alerts dropped before matching, by reason.",
		}, []string{"reason"}),
		AlertFetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_alerts",
			Name:      "alert_fetch_errors_total",
			Help:      "Alert source failures that degraded to an empty alert set.",
		}),
		OrdersRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_alerts",
			Name:      "orders_read_total",
			Help:      "Total orders read from the order source.",
		}),
		OrdersMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_alerts",
			Name:      "orders_matched_total",
			Help:      "Total orders matched to an active alert.",
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storm_alerts",
			Name:      "runs_total",
			Help:      "Report runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storm_alerts",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete fetch-match-report run.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "storm_alerts",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "storm_alerts",
			Name:      "pipeline_running",
			Help:      "1 while a run is in progress, 0 otherwise.",
		}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storm_alerts",
			Name:      "deliveries_total",
			Help:      "Report notifications by channel and outcome.",
		}, []string{"channel", "outcome"}),
	}
}
