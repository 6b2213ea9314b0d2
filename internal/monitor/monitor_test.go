package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stone-age-io/dockerctl/internal/config"
	"github.com/stone-age-io/dockerctl/internal/daemon"
	"github.com/stone-age-io/dockerctl/internal/health"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// fakeStatus returns the queued service states in order, repeating the last
type fakeStatus struct {
	mu     sync.Mutex
	states []daemon.ServiceStatus
	calls  int
	called chan struct{}
}

func (f *fakeStatus) next() daemon.ServiceStatus {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.calls
	if i >= len(f.states) {
		i = len(f.states) - 1
	}
	f.calls++
	if f.called != nil {
		select {
		case f.called <- struct{}{}:
		default:
		}
	}
	return f.states[i]
}

func (f *fakeStatus) Status(ctx context.Context) daemon.StatusReport {
	state := f.next()
	r := daemon.StatusReport{State: state, Supported: true}
	if state != daemon.StatusRunning {
		r.Failure = daemon.FailureServiceNotRunning
	}
	return r
}

func (f *fakeStatus) SocketStatus(ctx context.Context) daemon.StatusReport {
	return daemon.StatusReport{State: daemon.StatusRunning, Supported: true}
}

type fakeReports struct {
	report *health.Report
	err    error
	called chan struct{}
}

func (f *fakeReports) Generate(ctx context.Context) (*health.Report, error) {
	if f.called != nil {
		select {
		case f.called <- struct{}{}:
		default:
		}
	}
	return f.report, f.err
}

type event struct {
	kind string
	v    any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []event
	err    error
}

func (f *fakePublisher) Publish(kind string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event{kind, v})
	return f.err
}

func (f *fakePublisher) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var kinds []string
	for _, e := range f.events {
		kinds = append(kinds, e.kind)
	}
	return kinds
}

func sampleReport() *health.Report {
	return &health.Report{
		Timestamp:       time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
		System:          &health.SystemMetrics{Hostname: "box", CPU: health.CPUMetrics{Percent: 91}},
		Docker:          health.DockerMetrics{Status: health.DockerRunning, Version: "20.10.12"},
		Recommendations: []string{"High CPU usage detected."},
	}
}

// gaugeValue returns the gauge named name whose first label has value
// label, or the unlabelled gauge when label is empty
func gaugeValue(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label == "" || (len(m.GetLabel()) > 0 && m.GetLabel()[0].GetValue() == label) {
				return m.GetGauge().GetValue()
			}
		}
	}
	t.Fatalf("gauge %s{%s} not found", name, label)
	return 0
}

func TestCheckStatusTransitions(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	status := &fakeStatus{states: []daemon.ServiceStatus{
		daemon.StatusRunning,
		daemon.StatusRunning,
		daemon.StatusStopped,
		daemon.StatusRunning,
	}}
	pub := &fakePublisher{}
	m := New(config.MonitorConfig{}, "box", status, &fakeReports{}, zap.New(core), WithPublisher(pub))

	wantChanged := []bool{false, false, true, true}
	wantPrev := []daemon.ServiceStatus{"", daemon.StatusRunning, daemon.StatusRunning, daemon.StatusStopped}

	for i := range wantChanged {
		ev := m.CheckStatus(context.Background())
		if ev.Service.Changed != wantChanged[i] {
			t.Errorf("check %d: Changed = %v, want %v", i, ev.Service.Changed, wantChanged[i])
		}
		if ev.Service.Previous != wantPrev[i] {
			t.Errorf("check %d: Previous = %q, want %q", i, ev.Service.Previous, wantPrev[i])
		}
		if ev.Host != "box" {
			t.Errorf("check %d: Host = %q", i, ev.Host)
		}
	}

	if got := logs.FilterMessage("Unit status changed").Len(); got != 2 {
		t.Errorf("transition log entries = %d, want 2", got)
	}
	stopped := logs.FilterMessage("Unit status changed").FilterField(zap.String("to", "Stopped")).All()
	if len(stopped) != 1 || stopped[0].Level != zap.WarnLevel {
		t.Errorf("stop transition should be logged once at warn, got %+v", stopped)
	}

	if got := len(pub.kinds()); got != 4 {
		t.Errorf("published %d events, want 4", got)
	}

	snap := m.Latest()
	if snap.Service == nil || snap.Service.State != daemon.StatusRunning {
		t.Errorf("snapshot service = %+v", snap.Service)
	}
	if snap.Socket == nil || snap.Socket.Unit != "socket" {
		t.Errorf("snapshot socket = %+v", snap.Socket)
	}
	if !snap.Healthy() {
		t.Error("snapshot should be healthy after the service came back")
	}
}

func TestCheckStatusMetrics(t *testing.T) {
	metrics := health.NewMetrics()
	status := &fakeStatus{states: []daemon.ServiceStatus{daemon.StatusStopped}}
	m := New(config.MonitorConfig{}, "box", status, &fakeReports{}, nil, WithMetrics(metrics))

	m.CheckStatus(context.Background())

	if got := gaugeValue(t, metrics.Registry(), "dockerctl_unit_up", "service"); got != 0 {
		t.Errorf("service gauge = %v, want 0", got)
	}
	if got := gaugeValue(t, metrics.Registry(), "dockerctl_unit_up", "socket"); got != 1 {
		t.Errorf("socket gauge = %v, want 1", got)
	}
	if m.Latest().Healthy() {
		t.Error("snapshot should not be healthy while the service is stopped")
	}
}

func TestCheckHealth(t *testing.T) {
	pub := &fakePublisher{err: errors.New("nats down")}
	metrics := health.NewMetrics()
	reports := &fakeReports{report: sampleReport()}
	m := New(config.MonitorConfig{}, "box", &fakeStatus{states: []daemon.ServiceStatus{daemon.StatusRunning}},
		reports, nil, WithPublisher(pub), WithMetrics(metrics))

	r, err := m.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth() error = %v", err)
	}
	if r != reports.report {
		t.Error("CheckHealth() should return the generated report")
	}
	if m.Latest().Health != r {
		t.Error("snapshot should hold the latest report")
	}
	if kinds := pub.kinds(); len(kinds) != 1 || kinds[0] != KindHealth {
		t.Errorf("published kinds = %v, want [health]", kinds)
	}

	if got := gaugeValue(t, metrics.Registry(), "dockerctl_host_cpu_usage_percent", ""); got != 91 {
		t.Errorf("cpu gauge = %v, want 91", got)
	}
}

func TestCheckHealthError(t *testing.T) {
	pub := &fakePublisher{}
	m := New(config.MonitorConfig{}, "box", &fakeStatus{states: []daemon.ServiceStatus{daemon.StatusRunning}},
		&fakeReports{err: context.Canceled}, nil, WithPublisher(pub))

	if _, err := m.CheckHealth(context.Background()); !errors.Is(err, context.Canceled) {
		t.Errorf("CheckHealth() error = %v, want context.Canceled", err)
	}
	if len(pub.kinds()) != 0 {
		t.Error("nothing should be published when the report fails")
	}
}

func TestRun(t *testing.T) {
	status := &fakeStatus{states: []daemon.ServiceStatus{daemon.StatusRunning}, called: make(chan struct{}, 1)}
	reports := &fakeReports{report: sampleReport(), called: make(chan struct{}, 1)}
	cfg := config.MonitorConfig{Interval: time.Hour, HealthInterval: time.Hour}
	m := New(cfg, "box", status, reports, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	for _, ch := range []chan struct{}{status.called, reports.called} {
		select {
		case <-ch:
		case <-time.After(5 * time.Second):
			cancel()
			t.Fatal("jobs did not run immediately")
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
