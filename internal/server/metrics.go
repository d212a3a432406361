package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"flowmetric/internal/analytics"
	"flowmetric/internal/domain"
	"flowmetric/internal/engine"
)

var (
	trackedStatuses = []domain.TaskStatus{
		domain.TaskPending, domain.TaskInProgress, domain.TaskCompleted, domain.TaskBlocked,
	}
	trackedAlerts = []string{
		analytics.AlertOverdueTasks, analytics.AlertLowUtilization, analytics.AlertHighUtilization,
	}
)

// Metrics holds the Prometheus collectors served on /metrics. Each instance
// owns its registry so handlers built in tests do not collide.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	frameActions    *prometheus.CounterVec

	teamEfficiency      prometheus.Gauge
	resourceUtilization prometheus.Gauge
	tasksByStatus       *prometheus.GaugeVec
	activeAlerts        *prometheus.GaugeVec
	lastRefresh         prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		// requests counts API requests by route and status
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flowmetric_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flowmetric_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
		}, []string{"method", "route"}),
		frameActions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flowmetric_frame_actions_total",
			Help: "Frame actions by action and result",
		}, []string{"action", "result"}),
		teamEfficiency: f.NewGauge(prometheus.GaugeOpts{
			Name: "flowmetric_team_efficiency_percent",
			Help: "Share of completed tasks finished within tolerance of their estimate",
		}),
		resourceUtilization: f.NewGauge(prometheus.GaugeOpts{
			Name: "flowmetric_resource_utilization_percent",
			Help: "Mean resource availability",
		}),
		tasksByStatus: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "flowmetric_tasks",
			Help: "Tasks by status",
		}, []string{"status"}),
		activeAlerts: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "flowmetric_alert_active",
			Help: "1 when the alert fires on the latest snapshot",
		}, []string{"id"}),
		lastRefresh: f.NewGauge(prometheus.GaugeOpts{
			Name: "flowmetric_metrics_refreshed_timestamp_seconds",
			Help: "Unix time of the last dashboard gauge refresh",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) observeRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) frameAction(action, result string) {
	if m == nil {
		return
	}
	if action == "" {
		action = "unknown"
	}
	m.frameActions.WithLabelValues(action, result).Inc()
}

// Observe publishes a dashboard and status breakdown as gauges.
func (m *Metrics) Observe(d analytics.Dashboard, breakdown map[domain.TaskStatus]int) {
	m.teamEfficiency.Set(d.TeamEfficiency)
	m.resourceUtilization.Set(d.ResourceUtilization)
	m.tasksByStatus.Reset()
	for _, s := range trackedStatuses {
		m.tasksByStatus.WithLabelValues(string(s)).Set(0)
	}
	for s, n := range breakdown {
		m.tasksByStatus.WithLabelValues(string(s)).Set(float64(n))
	}
	firing := make(map[string]bool, len(d.Alerts))
	for _, a := range d.Alerts {
		firing[a.ID] = true
	}
	for _, id := range trackedAlerts {
		v := 0.0
		if firing[id] {
			v = 1
		}
		m.activeAlerts.WithLabelValues(id).Set(v)
	}
	m.lastRefresh.Set(float64(d.GeneratedAt.Unix()))
}

// Refresh recomputes the dashboard gauges from the store.
func (m *Metrics) Refresh(ctx context.Context, e engine.Engine) error {
	d, err := e.Dashboard(ctx, 0)
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	breakdown, err := e.TaskStatusBreakdown(ctx)
	if err != nil {
		return fmt.Errorf("status breakdown: %w", err)
	}
	m.Observe(d, breakdown)
	return nil
}

// StartRefresher refreshes the gauges once, then on the cron schedule spec
// until ctx is done.
func (m *Metrics) StartRefresher(ctx context.Context, e engine.Engine, spec string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if spec == "" {
		spec = "@every 1m"
	}
	refresh := func() {
		if err := m.Refresh(ctx, e); err != nil && ctx.Err() == nil {
			logger.Error("metrics refresh failed", slog.String("error", err.Error()))
		}
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, refresh); err != nil {
		return fmt.Errorf("metrics refresh schedule %q: %w", spec, err)
	}
	refresh()
	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	logger.Info("metrics refresher started", slog.String("schedule", spec))
	return nil
}
