package monitor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stone-age-io/dockerctl/internal/daemon"
	"github.com/stone-age-io/dockerctl/internal/health"
)

func TestServerHealthz(t *testing.T) {
	tests := []struct {
		name     string
		snapshot Snapshot
		wantCode int
	}{
		{
			name:     "no check yet",
			snapshot: Snapshot{Host: "box"},
			wantCode: http.StatusServiceUnavailable,
		},
		{
			name:     "running",
			snapshot: Snapshot{Host: "box", Service: &UnitStatus{Unit: "service", State: daemon.StatusRunning}},
			wantCode: http.StatusOK,
		},
		{
			name:     "stopped",
			snapshot: Snapshot{Host: "box", Service: &UnitStatus{Unit: "service", State: daemon.StatusStopped}},
			wantCode: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer("127.0.0.1:0", func() Snapshot { return tt.snapshot }, health.NewMetrics().Registry(), nil)

			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}

			var got Snapshot
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("invalid JSON body: %v", err)
			}
			if got.Host != "box" {
				t.Errorf("host = %q, want box", got.Host)
			}
		})
	}
}

func TestServerMetrics(t *testing.T) {
	metrics := health.NewMetrics()
	metrics.Update(&health.Report{
		Timestamp: time.Unix(1700000000, 0),
		Docker: health.DockerMetrics{
			Status:  health.DockerRunning,
			Running: []health.ContainerUsage{{Name: "web", CPUPercent: 12.5}},
		},
	})

	srv := NewServer("127.0.0.1:0", func() Snapshot { return Snapshot{} }, metrics.Registry(), nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"dockerctl_docker_up 1",
		`dockerctl_container_cpu_percent{name="web"} 12.5`,
		"dockerctl_last_report_timestamp_seconds 1.7e+09",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestServerNotFound(t *testing.T) {
	srv := NewServer("127.0.0.1:0", func() Snapshot { return Snapshot{} }, health.NewMetrics().Registry(), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestServerStartShutdown(t *testing.T) {
	snap := Snapshot{Host: "box", Service: &UnitStatus{State: daemon.StatusRunning}}
	srv := NewServer("127.0.0.1:0", func() Snapshot { return snap }, health.NewMetrics().Registry(), nil)

	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, body %s", resp.StatusCode, body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
