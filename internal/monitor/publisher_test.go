package monitor

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stone-age-io/dockerctl/internal/config"
	"go.uber.org/zap"
)

type message struct {
	subject string
	data    []byte
}

type fakeConn struct {
	subscribed []string
	published  []message
	publishErr error
	drainErr   error
	drainDelay time.Duration
	closed     bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, message{subject, data})
	return nil
}

func (f *fakeConn) Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error) {
	f.subscribed = append(f.subscribed, subject)
	return &nats.Subscription{Subject: subject}, nil
}

func (f *fakeConn) Drain() error {
	time.Sleep(f.drainDelay)
	return f.drainErr
}

func (f *fakeConn) IsClosed() bool { return f.closed }

func (f *fakeConn) Close() { f.closed = true }

func TestSubjectToken(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"box", "box"},
		{"web-01", "web-01"},
		{"host.example.com", "host_example_com"},
		{"a b*c>", "a_b_c_"},
		{"", "unknown"},
	}

	for _, tt := range tests {
		if got := SubjectToken(tt.input); got != tt.want {
			t.Errorf("SubjectToken(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestPublisherPublish(t *testing.T) {
	c := &fakeConn{}
	p := newPublisher(c, "dockerctl", "host.example.com", nil)

	if got := p.Subject(KindStatus); got != "dockerctl.host_example_com.status" {
		t.Errorf("Subject() = %q", got)
	}

	ev := StatusEvent{Host: "host.example.com", Service: UnitStatus{Unit: "service", State: "Running"}}
	if err := p.Publish(KindStatus, ev); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(c.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(c.published))
	}

	var got StatusEvent
	if err := json.Unmarshal(c.published[0].data, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got.Service.State != "Running" {
		t.Errorf("payload service state = %q", got.Service.State)
	}
}

func TestPublisherErrors(t *testing.T) {
	c := &fakeConn{publishErr: errors.New("nats: connection closed")}
	p := newPublisher(c, "dockerctl", "box", nil)

	err := p.Publish(KindHealth, map[string]int{"a": 1})
	if err == nil || !strings.Contains(err.Error(), "dockerctl.box.health") {
		t.Errorf("Publish() error = %v, want subject in message", err)
	}

	if err := p.Publish(KindHealth, make(chan int)); err == nil {
		t.Error("Publish() should fail for values that cannot be encoded")
	}
}

func TestPublisherDrain(t *testing.T) {
	t.Run("completes", func(t *testing.T) {
		c := &fakeConn{}
		if err := newPublisher(c, "p", "h", nil).Drain(time.Second); err != nil {
			t.Errorf("Drain() error = %v", err)
		}
	})

	t.Run("already closed", func(t *testing.T) {
		c := &fakeConn{closed: true, drainErr: errors.New("should not be called")}
		if err := newPublisher(c, "p", "h", nil).Drain(time.Second); err != nil {
			t.Errorf("Drain() error = %v", err)
		}
	})

	t.Run("timeout forces close", func(t *testing.T) {
		c := &fakeConn{drainDelay: 200 * time.Millisecond}
		if err := newPublisher(c, "p", "h", nil).Drain(10 * time.Millisecond); err == nil {
			t.Error("Drain() should time out")
		}
		if !c.closed {
			t.Error("connection should be closed after a drain timeout")
		}
	})
}

func TestConnectOptions(t *testing.T) {
	tests := []struct {
		name    string
		auth    config.AuthConfig
		tls     config.TLSConfig
		wantErr bool
	}{
		{name: "none", auth: config.AuthConfig{Type: "none"}},
		{name: "token", auth: config.AuthConfig{Type: "token", Token: "s3cret"}},
		{name: "userpass", auth: config.AuthConfig{Type: "userpass", Username: "u", Password: "p"}},
		{name: "creds", auth: config.AuthConfig{Type: "creds", CredsFile: "/tmp/x.creds"}},
		{name: "unknown auth", auth: config.AuthConfig{Type: "kerberos"}, wantErr: true},
		{name: "missing CA", auth: config.AuthConfig{Type: "none"},
			tls: config.TLSConfig{Enabled: true, CAFile: "/nonexistent/ca.pem"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.NATSConfig{
				URLs:          []string{"nats://localhost:4222"},
				Auth:          tt.auth,
				TLS:           tt.tls,
				MaxReconnects: -1,
				ReconnectWait: time.Second,
			}
			opts, err := connectOptions(cfg, zap.NewNop())
			if (err != nil) != tt.wantErr {
				t.Fatalf("connectOptions() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && len(opts) == 0 {
				t.Error("connectOptions() returned no options")
			}
		})
	}
}
