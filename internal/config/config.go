package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Config is the complete dockerctl configuration
type Config struct {
	Docker  DockerConfig  `mapstructure:"docker"`
	Service ServiceConfig `mapstructure:"service"`
	Health  HealthConfig  `mapstructure:"health"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// DockerConfig controls how the Docker Engine API is reached
type DockerConfig struct {
	// Host overrides DOCKER_HOST when set (e.g. unix:///var/run/docker.sock)
	Host        string        `mapstructure:"host"`
	Timeout     time.Duration `mapstructure:"timeout"`
	StopTimeout time.Duration `mapstructure:"stop_timeout"`
}

// ServiceConfig names the daemon units and the advisory settle delays
type ServiceConfig struct {
	Name          string        `mapstructure:"name"`
	SocketUnit    string        `mapstructure:"socket_unit"`
	LaunchdLabel  string        `mapstructure:"launchd_label"`
	LaunchdPlist  string        `mapstructure:"launchd_plist"`
	StartSettle   time.Duration `mapstructure:"start_settle"`
	RestartSettle time.Duration `mapstructure:"restart_settle"`
}

// HealthConfig controls the health report
type HealthConfig struct {
	Source         string           `mapstructure:"source"` // "builtin" or "exporter"
	ExporterURL    string           `mapstructure:"exporter_url"`
	DiskPath       string           `mapstructure:"disk_path"`
	SampleInterval time.Duration    `mapstructure:"sample_interval"`
	Thresholds     ThresholdsConfig `mapstructure:"thresholds"`
}

// ThresholdsConfig holds the recommendation trigger points
type ThresholdsConfig struct {
	CPUPercent             float64 `mapstructure:"cpu_percent"`
	MemoryPercent          float64 `mapstructure:"memory_percent"`
	DiskPercent            float64 `mapstructure:"disk_percent"`
	ContainerCPUPercent    float64 `mapstructure:"container_cpu_percent"`
	ContainerMemoryPercent float64 `mapstructure:"container_memory_percent"`
	StoppedContainers      int     `mapstructure:"stopped_containers"`
}

// MonitorConfig controls the long-running monitor mode
type MonitorConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	HealthInterval time.Duration `mapstructure:"health_interval"`
	NATS           NATSConfig    `mapstructure:"nats"`
	HTTP           HTTPConfig    `mapstructure:"http"`
}

// NATSConfig contains NATS publishing settings
type NATSConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	URLs          []string      `mapstructure:"urls"`
	SubjectPrefix string        `mapstructure:"subject_prefix"`
	Auth          AuthConfig    `mapstructure:"auth"`
	TLS           TLSConfig     `mapstructure:"tls"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	DrainTimeout  time.Duration `mapstructure:"drain_timeout"`
}

// AuthConfig contains NATS authentication settings
type AuthConfig struct {
	Type      string `mapstructure:"type"` // "none", "token", "userpass", "creds"
	Token     string `mapstructure:"token"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	CredsFile string `mapstructure:"creds_file"`
}

// TLSConfig contains TLS settings for the NATS connection
type TLSConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	CertFile           string `mapstructure:"cert_file"`
	KeyFile            string `mapstructure:"key_file"`
	CAFile             string `mapstructure:"ca_file"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
}

// HTTPConfig contains the monitor status endpoint settings
type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level        string `mapstructure:"level"`
	ConsoleLevel string `mapstructure:"console_level"`
	File         string `mapstructure:"file"`
	MaxSizeMB    int    `mapstructure:"max_size_mb"`
	MaxBackups   int    `mapstructure:"max_backups"`
}

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

var (
	subjectTokenPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	unitNamePattern     = regexp.MustCompile(`^[a-zA-Z0-9@._-]+$`)
)

// Load reads configuration from path. An empty path means the platform
// default location, which is allowed to be missing.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DOCKERCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = GetDefaultConfigPath()
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if explicit || !isNotExist(path) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return &cfg
}

func isNotExist(path string) bool {
	_, err := os.Stat(path)
	return errors.Is(err, os.ErrNotExist)
}

// setDefaults registers every default value
func setDefaults(v *viper.Viper) {
	v.SetDefault("docker.host", "")
	v.SetDefault("docker.timeout", 30*time.Second)
	v.SetDefault("docker.stop_timeout", 10*time.Second)

	v.SetDefault("service.name", "docker")
	v.SetDefault("service.socket_unit", "docker.socket")
	v.SetDefault("service.launchd_label", "com.docker.docker")
	v.SetDefault("service.launchd_plist", "/Library/LaunchDaemons/com.docker.docker.plist")
	v.SetDefault("service.start_settle", 2*time.Second)
	v.SetDefault("service.restart_settle", 3*time.Second)

	v.SetDefault("health.source", "builtin")
	v.SetDefault("health.sample_interval", 1*time.Second)
	v.SetDefault("health.thresholds.cpu_percent", 80.0)
	v.SetDefault("health.thresholds.memory_percent", 85.0)
	v.SetDefault("health.thresholds.disk_percent", 85.0)
	v.SetDefault("health.thresholds.container_cpu_percent", 80.0)
	v.SetDefault("health.thresholds.container_memory_percent", 80.0)
	v.SetDefault("health.thresholds.stopped_containers", 5)

	v.SetDefault("monitor.interval", 30*time.Second)
	v.SetDefault("monitor.health_interval", 5*time.Minute)
	v.SetDefault("monitor.nats.enabled", false)
	v.SetDefault("monitor.nats.urls", []string{"nats://localhost:4222"})
	v.SetDefault("monitor.nats.subject_prefix", "dockerctl")
	v.SetDefault("monitor.nats.auth.type", "none")
	// empty defaults make the secrets reachable from DOCKERCTL_ variables
	v.SetDefault("monitor.nats.auth.token", "")
	v.SetDefault("monitor.nats.auth.username", "")
	v.SetDefault("monitor.nats.auth.password", "")
	v.SetDefault("monitor.nats.auth.creds_file", "")
	v.SetDefault("monitor.nats.tls.enabled", false)
	v.SetDefault("monitor.nats.tls.cert_file", "")
	v.SetDefault("monitor.nats.tls.key_file", "")
	v.SetDefault("monitor.nats.tls.ca_file", "")
	v.SetDefault("monitor.nats.tls.insecure_skip_verify", false)
	v.SetDefault("monitor.nats.max_reconnects", -1)
	v.SetDefault("monitor.nats.reconnect_wait", 2*time.Second)
	v.SetDefault("monitor.nats.drain_timeout", 10*time.Second)
	v.SetDefault("monitor.http.enabled", false)
	v.SetDefault("monitor.http.address", "127.0.0.1:9323")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console_level", "warn")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)

	UpdateConfigDefaults(v)
}

// validate checks a decoded configuration for consistency
func validate(cfg *Config) error {
	if cfg.Docker.Timeout <= 0 {
		return fmt.Errorf("%w: docker.timeout must be positive", ErrInvalidConfig)
	}
	if cfg.Docker.StopTimeout < 0 {
		return fmt.Errorf("%w: docker.stop_timeout must not be negative", ErrInvalidConfig)
	}

	if err := validateService(&cfg.Service); err != nil {
		return err
	}
	if err := validateHealth(&cfg.Health); err != nil {
		return err
	}
	if err := validateMonitor(&cfg.Monitor); err != nil {
		return err
	}
	return validateLogging(&cfg.Logging)
}

func validateService(cfg *ServiceConfig) error {
	for key, name := range map[string]string{
		"service.name":          cfg.Name,
		"service.socket_unit":   cfg.SocketUnit,
		"service.launchd_label": cfg.LaunchdLabel,
	} {
		if name == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidConfig, key)
		}
		if !unitNamePattern.MatchString(name) {
			return fmt.Errorf("%w: %s %q contains invalid characters", ErrInvalidConfig, key, name)
		}
	}

	if cfg.StartSettle < 0 || cfg.RestartSettle < 0 {
		return fmt.Errorf("%w: settle delays must not be negative", ErrInvalidConfig)
	}
	if cfg.StartSettle > time.Minute || cfg.RestartSettle > time.Minute {
		return fmt.Errorf("%w: settle delays must not exceed 1 minute", ErrInvalidConfig)
	}
	return nil
}

func validateHealth(cfg *HealthConfig) error {
	switch cfg.Source {
	case "builtin":
	case "exporter":
		if cfg.ExporterURL == "" {
			return fmt.Errorf("%w: health.exporter_url required for exporter source", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown health.source %q (must be builtin or exporter)", ErrInvalidConfig, cfg.Source)
	}

	if cfg.SampleInterval < 100*time.Millisecond || cfg.SampleInterval > 10*time.Second {
		return fmt.Errorf("%w: health.sample_interval must be between 100ms and 10s", ErrInvalidConfig)
	}

	t := cfg.Thresholds
	for key, pct := range map[string]float64{
		"cpu_percent":              t.CPUPercent,
		"memory_percent":           t.MemoryPercent,
		"disk_percent":             t.DiskPercent,
		"container_cpu_percent":    t.ContainerCPUPercent,
		"container_memory_percent": t.ContainerMemoryPercent,
	} {
		if pct <= 0 || pct > 100 {
			return fmt.Errorf("%w: health.thresholds.%s must be in (0, 100]", ErrInvalidConfig, key)
		}
	}
	if t.StoppedContainers < 0 {
		return fmt.Errorf("%w: health.thresholds.stopped_containers must not be negative", ErrInvalidConfig)
	}
	return nil
}

func validateMonitor(cfg *MonitorConfig) error {
	if cfg.Interval < 5*time.Second {
		return fmt.Errorf("%w: monitor.interval must be at least 5 seconds", ErrInvalidConfig)
	}
	if cfg.HealthInterval < cfg.Interval {
		return fmt.Errorf("%w: monitor.health_interval must not be shorter than monitor.interval", ErrInvalidConfig)
	}

	if cfg.NATS.Enabled {
		if len(cfg.NATS.URLs) == 0 {
			return fmt.Errorf("%w: monitor.nats.urls must not be empty", ErrInvalidConfig)
		}
		if err := validateSubjectPrefix(cfg.NATS.SubjectPrefix); err != nil {
			return err
		}
		if err := validateAuth(&cfg.NATS.Auth); err != nil {
			return err
		}
		if err := validateTLS(&cfg.NATS.TLS); err != nil {
			return err
		}
	}

	if cfg.HTTP.Enabled && cfg.HTTP.Address == "" {
		return fmt.Errorf("%w: monitor.http.address is required when http is enabled", ErrInvalidConfig)
	}
	return nil
}

// validateSubjectPrefix checks a NATS subject prefix. Tokens are separated by
// dots and may contain only alphanumerics, dashes and underscores.
func validateSubjectPrefix(prefix string) error {
	if prefix == "" {
		return fmt.Errorf("%w: subject_prefix is required", ErrInvalidConfig)
	}
	if len(prefix) > 50 {
		return fmt.Errorf("%w: subject_prefix must not exceed 50 characters", ErrInvalidConfig)
	}
	if strings.HasPrefix(prefix, ".") || strings.HasSuffix(prefix, ".") {
		return fmt.Errorf("%w: subject_prefix cannot start or end with a dot", ErrInvalidConfig)
	}
	if strings.Contains(prefix, "..") {
		return fmt.Errorf("%w: subject_prefix consecutive dots not allowed", ErrInvalidConfig)
	}
	for _, token := range strings.Split(prefix, ".") {
		if !subjectTokenPattern.MatchString(token) {
			return fmt.Errorf("%w: subject_prefix token %q contains invalid characters", ErrInvalidConfig, token)
		}
	}
	return nil
}

func validateAuth(auth *AuthConfig) error {
	switch auth.Type {
	case "none":
	case "token":
		if auth.Token == "" {
			return fmt.Errorf("%w: token is required for token auth", ErrInvalidConfig)
		}
	case "userpass":
		if auth.Username == "" || auth.Password == "" {
			return fmt.Errorf("%w: username and password are required for userpass auth", ErrInvalidConfig)
		}
	case "creds":
		if auth.CredsFile == "" {
			return fmt.Errorf("%w: creds_file is required for creds auth", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: invalid auth type %q", ErrInvalidConfig, auth.Type)
	}
	return nil
}

func validateTLS(cfg *TLSConfig) error {
	if !cfg.Enabled {
		return nil
	}

	// Client cert and key come as a pair for mutual TLS
	if cfg.CertFile != "" && cfg.KeyFile == "" {
		return fmt.Errorf("%w: tls key_file is required when cert_file is set", ErrInvalidConfig)
	}
	if cfg.KeyFile != "" && cfg.CertFile == "" {
		return fmt.Errorf("%w: tls cert_file is required when key_file is set", ErrInvalidConfig)
	}

	for _, f := range []struct{ path, what string }{
		{cfg.CertFile, "certificate"},
		{cfg.KeyFile, "key"},
		{cfg.CAFile, "CA"},
	} {
		if f.path == "" {
			continue
		}
		if _, err := os.Stat(f.path); err != nil {
			return fmt.Errorf("%w: tls %s file not found: %s", ErrInvalidConfig, f.what, f.path)
		}
	}
	return nil
}

func validateLogging(cfg *LoggingConfig) error {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return fmt.Errorf("%w: invalid logging.level %q", ErrInvalidConfig, cfg.Level)
	}
	if err := level.UnmarshalText([]byte(cfg.ConsoleLevel)); err != nil {
		return fmt.Errorf("%w: invalid logging.console_level %q", ErrInvalidConfig, cfg.ConsoleLevel)
	}
	if cfg.File == "" {
		return fmt.Errorf("%w: logging.file is required", ErrInvalidConfig)
	}
	if cfg.MaxSizeMB <= 0 {
		return fmt.Errorf("%w: logging.max_size_mb must be positive", ErrInvalidConfig)
	}
	if cfg.MaxBackups < 0 {
		return fmt.Errorf("%w: logging.max_backups must not be negative", ErrInvalidConfig)
	}
	return nil
}
