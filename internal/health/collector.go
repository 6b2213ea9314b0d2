package health

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/stone-age-io/dockerctl/internal/config"
	"go.uber.org/zap"
)

// SystemCollector gathers host resource metrics
type SystemCollector interface {
	// Collect takes one snapshot. It blocks for about one sample interval
	// so CPU usage can be measured as a delta.
	Collect(ctx context.Context) (*SystemMetrics, error)

	// Name returns the collector name for logging
	Name() string
}

// NewSystemCollector creates the collector selected by cfg.Source
func NewSystemCollector(cfg config.HealthConfig, logger *zap.Logger) (SystemCollector, error) {
	source := strings.ToLower(cfg.Source)
	if source == "" {
		source = "builtin"
	}

	switch source {
	case "builtin":
		logger.Debug("Using builtin metrics collector (gopsutil)")
		return NewBuiltinCollector(cfg.DiskPath, cfg.SampleInterval, logger), nil
	case "exporter":
		if cfg.ExporterURL == "" {
			return nil, fmt.Errorf("exporter_url required for exporter source")
		}
		logger.Debug("Using exporter metrics collector", zap.String("url", cfg.ExporterURL))
		return NewExporterCollector(cfg.ExporterURL, cfg.DiskPath, cfg.SampleInterval, logger, newHTTPClient()), nil
	default:
		return nil, fmt.Errorf("unknown metrics source: %s", source)
	}
}

// newHTTPClient builds the client used for exporter scrapes
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 15 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			MaxIdleConns:          2,
			MaxIdleConnsPerHost:   2,
			IdleConnTimeout:       30 * time.Second,
		},
	}
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
