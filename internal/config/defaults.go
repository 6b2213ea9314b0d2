package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// PlatformDefaults holds values that differ per operating system
type PlatformDefaults struct {
	LogFile     string
	ConfigPath  string
	ExporterURL string
	DiskPath    string
}

// GetPlatformDefaults returns platform-specific defaults based on runtime.GOOS.
// Paths live under the user's home directory.
func GetPlatformDefaults() PlatformDefaults {
	base := userDir()

	switch runtime.GOOS {
	case "windows":
		return PlatformDefaults{
			LogFile:     filepath.Join(base, "dockerctl.log"),
			ConfigPath:  filepath.Join(base, "config.yaml"),
			ExporterURL: "http://localhost:9182/metrics", // windows_exporter
			DiskPath:    `C:\`,
		}
	default:
		return PlatformDefaults{
			LogFile:     filepath.Join(base, "dockerctl.log"),
			ConfigPath:  filepath.Join(base, "config.yaml"),
			ExporterURL: "http://localhost:9100/metrics", // node_exporter
			DiskPath:    "/",
		}
	}
}

func userDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), ".dockerctl")
	}
	return filepath.Join(home, ".dockerctl")
}

// GetDefaultConfigPath returns the platform-specific default config path
func GetDefaultConfigPath() string {
	return GetPlatformDefaults().ConfigPath
}

// UpdateConfigDefaults registers the platform-specific viper defaults
func UpdateConfigDefaults(v interface{ SetDefault(key string, value any) }) {
	defaults := GetPlatformDefaults()

	v.SetDefault("health.exporter_url", defaults.ExporterURL)
	v.SetDefault("health.disk_path", defaults.DiskPath)
	v.SetDefault("logging.file", defaults.LogFile)
}
