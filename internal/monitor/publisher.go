package monitor

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stone-age-io/dockerctl/internal/config"
	"go.uber.org/zap"
)

var unsafeSubjectChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// conn is the part of *nats.Conn the publisher uses
type conn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error)
	Drain() error
	IsClosed() bool
	Close()
}

// Publisher sends monitor events to NATS as JSON on
// <prefix>.<host>.<kind>. Events are fire-and-forget core NATS messages.
// It also carries the subscriptions of the request responder.
type Publisher struct {
	conn   conn
	prefix string
	host   string
	logger *zap.Logger
}

// NewPublisher connects to NATS with the configured auth and TLS settings
func NewPublisher(cfg *config.NATSConfig, host string, logger *zap.Logger) (*Publisher, error) {
	opts, err := connectOptions(cfg, logger)
	if err != nil {
		return nil, err
	}

	serverURLs := strings.Join(cfg.URLs, ",")
	logger.Info("Connecting to NATS", zap.Strings("urls", cfg.URLs))
	nc, err := nats.Connect(serverURLs, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("Connected to NATS",
		zap.String("url", nc.ConnectedUrl()),
		zap.String("server_id", nc.ConnectedServerId()),
		zap.Bool("tls", nc.TLSRequired()))

	return newPublisher(nc, cfg.SubjectPrefix, host, logger), nil
}

func newPublisher(c conn, prefix, host string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		conn:   c,
		prefix: prefix,
		host:   SubjectToken(host),
		logger: logger,
	}
}

// connectOptions builds the connection options for cfg
func connectOptions(cfg *config.NATSConfig, logger *zap.Logger) ([]nats.Option, error) {
	opts := []nats.Option{
		nats.Name("dockerctl-monitor"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			} else {
				logger.Info("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	if cfg.TLS.Enabled {
		tlsConfig, err := createTLSConfig(&cfg.TLS, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		opts = append(opts, nats.Secure(tlsConfig))

		if cfg.TLS.InsecureSkipVerify {
			logger.Warn("TLS certificate verification is DISABLED - this is insecure and should only be used in development")
		}
	}

	switch cfg.Auth.Type {
	case "creds":
		logger.Info("Using credentials file authentication", zap.String("file", cfg.Auth.CredsFile))
		opts = append(opts, nats.UserCredentials(cfg.Auth.CredsFile))
	case "token":
		logger.Info("Using token authentication")
		opts = append(opts, nats.Token(cfg.Auth.Token))
	case "userpass":
		logger.Info("Using username/password authentication", zap.String("username", cfg.Auth.Username))
		opts = append(opts, nats.UserInfo(cfg.Auth.Username, cfg.Auth.Password))
	case "none", "":
		logger.Info("Using no authentication")
	default:
		return nil, fmt.Errorf("invalid auth type: %s", cfg.Auth.Type)
	}

	return opts, nil
}

// createTLSConfig loads the CA and client certificates named in cfg
func createTLSConfig(cfg *config.TLSConfig, logger *zap.Logger) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	if cfg.CAFile != "" {
		logger.Debug("Loading CA certificate", zap.String("file", cfg.CAFile))

		caCert, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		tlsConfig.RootCAs = pool
	}

	// mutual TLS
	if cfg.CertFile != "" && cfg.KeyFile != "" {
		logger.Debug("Loading client certificate",
			zap.String("cert", cfg.CertFile),
			zap.String("key", cfg.KeyFile))

		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// SubjectToken turns a host name into a single NATS subject token
func SubjectToken(s string) string {
	s = unsafeSubjectChars.ReplaceAllString(s, "_")
	if s == "" {
		return "unknown"
	}
	return s
}

// Subject returns the subject events of kind are published on
func (p *Publisher) Subject(kind string) string {
	return p.prefix + "." + p.host + "." + kind
}

// Publish encodes v as JSON and publishes it
func (p *Publisher) Publish(kind string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", kind, err)
	}

	subject := p.Subject(kind)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	p.logger.Debug("Published event",
		zap.String("subject", subject),
		zap.Int("bytes", len(data)))
	return nil
}

// Subscribe handles requests on <prefix>.<host>.<name>
func (p *Publisher) Subscribe(name string, handler nats.MsgHandler) error {
	subject := p.Subject(name)
	if _, err := p.conn.Subscribe(subject, handler); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	p.logger.Info("Subscribed to subject", zap.String("subject", subject))
	return nil
}

// Drain flushes pending messages and closes the connection, forcing a close
// after timeout
func (p *Publisher) Drain(timeout time.Duration) error {
	if p.conn.IsClosed() {
		return nil
	}

	p.logger.Info("Draining NATS connection", zap.Duration("timeout", timeout))

	done := make(chan error, 1)
	go func() {
		done <- p.conn.Drain()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to drain NATS connection: %w", err)
		}
		return nil
	case <-time.After(timeout):
		p.logger.Warn("NATS drain timeout, forcing close")
		p.conn.Close()
		return fmt.Errorf("drain timeout after %v", timeout)
	}
}
