package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stone-age-io/dockerctl/internal/config"
	"github.com/stone-age-io/dockerctl/internal/daemon"
	"github.com/stone-age-io/dockerctl/internal/health"
	"go.uber.org/zap"
)

// Event kinds, used as the last subject token when publishing
const (
	KindStatus = "status"
	KindHealth = "health"
)

// StatusSource reports the daemon and socket units
type StatusSource interface {
	Status(ctx context.Context) daemon.StatusReport
	SocketStatus(ctx context.Context) daemon.StatusReport
}

// ReportSource produces health reports
type ReportSource interface {
	Generate(ctx context.Context) (*health.Report, error)
}

// EventPublisher receives every status and health event
type EventPublisher interface {
	Publish(kind string, v any) error
}

// UnitStatus is the last observed state of one unit
type UnitStatus struct {
	Unit      string               `json:"unit"`
	State     daemon.ServiceStatus `json:"state"`
	Previous  daemon.ServiceStatus `json:"previous,omitempty"`
	Failure   daemon.FailureCode   `json:"failure,omitempty"`
	Supported bool                 `json:"supported"`
	CheckedAt time.Time            `json:"checked_at"`
	Changed   bool                 `json:"changed"`
}

// StatusEvent is published after every status check
type StatusEvent struct {
	Host    string     `json:"host"`
	Service UnitStatus `json:"service"`
	Socket  UnitStatus `json:"socket"`
}

// Snapshot is the latest state the monitor has seen
type Snapshot struct {
	Host    string         `json:"host"`
	Service *UnitStatus    `json:"service,omitempty"`
	Socket  *UnitStatus    `json:"socket,omitempty"`
	Health  *health.Report `json:"health,omitempty"`
}

// Healthy reports whether the Docker service was last seen running
func (s Snapshot) Healthy() bool {
	return s.Service != nil && s.Service.State == daemon.StatusRunning
}

// Monitor periodically checks the Docker units and builds health reports.
// Jobs share one lock around the status source so at most one external
// command runs at a time.
type Monitor struct {
	cfg       config.MonitorConfig
	host      string
	status    StatusSource
	reports   ReportSource
	metrics   *health.Metrics
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time

	unitUp *prometheus.GaugeVec

	execMu sync.Mutex

	mu       sync.RWMutex
	snapshot Snapshot
}

// Option customizes a Monitor
type Option func(*Monitor)

// WithPublisher sends every event to p
func WithPublisher(p EventPublisher) Option {
	return func(m *Monitor) { m.publisher = p }
}

// WithMetrics keeps metrics up to date and adds per-unit gauges to its registry
func WithMetrics(metrics *health.Metrics) Option {
	return func(m *Monitor) { m.metrics = metrics }
}

// New creates a monitor for host
func New(cfg config.MonitorConfig, host string, status StatusSource, reports ReportSource, logger *zap.Logger, opts ...Option) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Monitor{
		cfg:      cfg,
		host:     host,
		status:   status,
		reports:  reports,
		logger:   logger,
		now:      time.Now,
		snapshot: Snapshot{Host: host},
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.metrics != nil {
		m.unitUp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dockerctl", Subsystem: "unit", Name: "up",
			Help: "Whether the Docker unit was last seen running (1) or not (0).",
		}, []string{"unit"})
		m.metrics.Registry().MustRegister(m.unitUp)
	}

	return m
}

// Latest returns a copy of the current snapshot
func (m *Monitor) Latest() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// CheckStatus queries the service and socket units once, logs any state
// transition and publishes the result.
func (m *Monitor) CheckStatus(ctx context.Context) StatusEvent {
	m.execMu.Lock()
	service := m.status.Status(ctx)
	socket := m.status.SocketStatus(ctx)
	m.execMu.Unlock()

	checked := m.now().UTC()

	m.mu.Lock()
	ev := StatusEvent{
		Host:    m.host,
		Service: m.transition("service", m.snapshot.Service, service, checked),
		Socket:  m.transition("socket", m.snapshot.Socket, socket, checked),
	}
	m.snapshot.Service = &ev.Service
	m.snapshot.Socket = &ev.Socket
	m.mu.Unlock()

	if m.unitUp != nil {
		m.unitUp.WithLabelValues("service").Set(boolGauge(service.Running()))
		m.unitUp.WithLabelValues("socket").Set(boolGauge(socket.Running()))
	}

	m.publish(KindStatus, ev)
	return ev
}

func (m *Monitor) transition(unit string, prev *UnitStatus, report daemon.StatusReport, checked time.Time) UnitStatus {
	cur := UnitStatus{
		Unit:      unit,
		State:     report.State,
		Failure:   report.Failure,
		Supported: report.Supported,
		CheckedAt: checked,
	}

	if prev == nil {
		m.logger.Info("Initial unit status",
			zap.String("unit", unit),
			zap.String("state", string(cur.State)))
		return cur
	}

	cur.Previous = prev.State
	if prev.State == cur.State {
		return cur
	}
	cur.Changed = true

	fields := []zap.Field{
		zap.String("unit", unit),
		zap.String("from", string(prev.State)),
		zap.String("to", string(cur.State)),
	}
	if cur.Failure != daemon.FailureNone {
		fields = append(fields, zap.String("failure", string(cur.Failure)))
	}
	if cur.State == daemon.StatusRunning {
		m.logger.Info("Unit status changed", fields...)
	} else {
		m.logger.Warn("Unit status changed", fields...)
	}
	return cur
}

// CheckHealth builds one health report, updates metrics and publishes it
func (m *Monitor) CheckHealth(ctx context.Context) (*health.Report, error) {
	m.execMu.Lock()
	r, err := m.reports.Generate(ctx)
	m.execMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to generate health report: %w", err)
	}

	if m.metrics != nil {
		m.metrics.Update(r)
	}

	m.mu.Lock()
	m.snapshot.Health = r
	m.mu.Unlock()

	if len(r.Recommendations) > 0 {
		m.logger.Info("Health report has recommendations",
			zap.Strings("recommendations", r.Recommendations))
	}

	m.publish(KindHealth, r)
	return r, nil
}

func (m *Monitor) publish(kind string, v any) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(kind, v); err != nil {
		m.logger.Warn("Failed to publish event",
			zap.String("kind", kind),
			zap.Error(err))
	}
}

// Run schedules the status and health jobs and blocks until ctx is done.
// Both jobs run once immediately and never overlap themselves.
func (m *Monitor) Run(ctx context.Context) error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	jobs := []struct {
		name     string
		interval time.Duration
		run      func()
	}{
		{KindStatus, m.cfg.Interval, func() { m.CheckStatus(ctx) }},
		{KindHealth, m.cfg.HealthInterval, func() {
			if _, err := m.CheckHealth(ctx); err != nil && ctx.Err() == nil {
				m.logger.Warn("Health check failed", zap.Error(err))
			}
		}},
	}

	for _, j := range jobs {
		_, err := s.NewJob(
			gocron.DurationJob(j.interval),
			gocron.NewTask(j.run),
			gocron.WithName(j.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			_ = s.Shutdown()
			return fmt.Errorf("failed to schedule %s job: %w", j.name, err)
		}
	}

	m.logger.Info("Monitor started",
		zap.String("host", m.host),
		zap.Duration("interval", m.cfg.Interval),
		zap.Duration("health_interval", m.cfg.HealthInterval))

	s.Start()
	<-ctx.Done()

	m.logger.Info("Stopping monitor")
	if err := s.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	return nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
