package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultByIDDir       = "/dev/serial/by-id/"
	DefaultWaitTimeoutMS = 2000
	DefaultDialTimeoutMS = 6000
)

// LoggingConfig defines runtime logging behavior.
type LoggingConfig struct {
	Level     string `json:"level"`
	LogToFile bool   `json:"log_to_file"`
}

// ProbeConfig selects the probe and bounds waits on it.
type ProbeConfig struct {
	// Device is an explicit serial device path or a hostname:port address.
	Device string `json:"device"`
	// Serial is a (partial) serial number used to pick one of several probes.
	Serial        string `json:"serial"`
	ByIDDir       string `json:"by_id_dir"`
	WaitTimeoutMS int    `json:"wait_timeout_ms"`
	DialTimeoutMS int    `json:"dial_timeout_ms"`
}

// CaptureConfig controls persistent wire capture.
type CaptureConfig struct {
	Enabled bool `json:"enabled"`
}

// AppConfig is the root persisted application configuration.
type AppConfig struct {
	Probe   ProbeConfig   `json:"probe"`
	Logging LoggingConfig `json:"logging"`
	Capture CaptureConfig `json:"capture"`
}

func Default() AppConfig {
	return AppConfig{
		Probe: ProbeConfig{
			ByIDDir:       DefaultByIDDir,
			WaitTimeoutMS: DefaultWaitTimeoutMS,
			DialTimeoutMS: DefaultDialTimeoutMS,
		},
		Logging: LoggingConfig{
			Level:     "info",
			LogToFile: false,
		},
	}
}

func Load(path string) (AppConfig, error) {
	cfg := Default()
	cleanPath := filepath.Clean(path)
	// #nosec G304 -- path is resolved by app runtime and points to user config dir.
	raw, err := os.ReadFile(cleanPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return AppConfig{}, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(raw, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("decode config json: %w", err)
	}

	cfg.FillMissingDefaults()

	return cfg, nil
}

func (c *AppConfig) FillMissingDefaults() {
	c.Probe.Device = strings.TrimSpace(c.Probe.Device)
	c.Probe.Serial = strings.TrimSpace(c.Probe.Serial)
	if strings.TrimSpace(c.Probe.ByIDDir) == "" {
		c.Probe.ByIDDir = DefaultByIDDir
	}
	if c.Probe.WaitTimeoutMS <= 0 {
		c.Probe.WaitTimeoutMS = DefaultWaitTimeoutMS
	}
	if c.Probe.DialTimeoutMS <= 0 {
		c.Probe.DialTimeoutMS = DefaultDialTimeoutMS
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c AppConfig) Validate() error {
	if c.Probe.WaitTimeoutMS <= 0 {
		return errors.New("probe wait timeout must be positive")
	}
	if c.Probe.DialTimeoutMS <= 0 {
		return errors.New("probe dial timeout must be positive")
	}
	if strings.TrimSpace(c.Probe.ByIDDir) == "" {
		return errors.New("probe by-id directory is required")
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unsupported log level: %q", c.Logging.Level)
	}

	return nil
}

func (c ProbeConfig) WaitTimeout() time.Duration {
	return time.Duration(c.WaitTimeoutMS) * time.Millisecond
}

func (c ProbeConfig) DialTimeout() time.Duration {
	return time.Duration(c.DialTimeoutMS) * time.Millisecond
}

func Save(path string, cfg AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0o600); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp config: %w", err)
	}

	return nil
}
