package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/brightfame/towerctl/internal/constants"
	"github.com/brightfame/towerctl/internal/notify"
	"github.com/brightfame/towerctl/internal/watchconfig"
)

type Config struct {
	Daemon   DaemonConfig   `toml:"daemon"`
	Panel    PanelConfig    `toml:"panel"`
	Defaults DefaultsConfig `toml:"defaults"`
	Server   ServerConfig   `toml:"server"`
}

type DaemonConfig struct {
	Image         string `toml:"image"`
	ContainerName string `toml:"container_name"`
	SocketPath    string `toml:"socket_path"`
}

type PanelConfig struct {
	PollEvery string        `toml:"poll_every"`
	Poll      time.Duration `toml:"-"`
	LogLines  int           `toml:"log_lines"`
	LogFile   string        `toml:"log_file"`
}

// DefaultsConfig holds the values the start form is pre-filled with.
type DefaultsConfig struct {
	Duration        int64  `toml:"duration"`
	Unit            string `toml:"unit"`
	NotificationURL string `toml:"notification_url"`
}

type ServerConfig struct {
	Addr           string   `toml:"addr"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

var errDurationNotPositive = errors.New("defaults.duration must be greater than 0")

// Default returns the configuration used when no file exists.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	_ = validate(&cfg)
	return &cfg
}

// Load reads a TOML config file from path and validates it. A missing file
// yields the defaults. A .env file next to the config is loaded into the
// process environment first so DOCKER_HOST and friends can live beside it.
func Load(path string) (*Config, error) {
	loadDotEnv(filepath.Join(filepath.Dir(path), constants.EnvFile))

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
		// An omitted duration takes the default; an explicit zero is an error.
		if md.IsDefined("defaults", "duration") && cfg.Defaults.Duration == 0 {
			return nil, errDurationNotPositive
		}
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDotEnv loads path if it exists. Variables already set win.
func loadDotEnv(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	_ = godotenv.Load(path)
}

// applyDefaults fills in default values for optional fields.
func applyDefaults(cfg *Config) {
	def := watchconfig.DefaultDaemon()
	if cfg.Daemon.Image == "" {
		cfg.Daemon.Image = def.Image
	}
	if cfg.Daemon.ContainerName == "" {
		cfg.Daemon.ContainerName = def.ContainerName
	}
	if cfg.Daemon.SocketPath == "" {
		cfg.Daemon.SocketPath = def.SocketPath
	}
	if cfg.Panel.PollEvery == "" {
		cfg.Panel.PollEvery = "2s"
	}
	if cfg.Panel.LogLines == 0 {
		cfg.Panel.LogLines = 500
	}
	if cfg.Defaults.Duration == 0 {
		cfg.Defaults.Duration = 10
	}
	if cfg.Defaults.Unit == "" {
		cfg.Defaults.Unit = string(watchconfig.Minutes)
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:7788"
	}
}

func validate(cfg *Config) error {
	poll, err := time.ParseDuration(cfg.Panel.PollEvery)
	if err != nil {
		return fmt.Errorf("panel.poll_every: %w", err)
	}
	if poll <= 0 {
		return fmt.Errorf("panel.poll_every must be greater than 0")
	}
	cfg.Panel.Poll = poll

	if cfg.Panel.LogLines < 0 {
		return fmt.Errorf("panel.log_lines must not be negative")
	}

	if cfg.Defaults.Duration < 0 {
		return errDurationNotPositive
	}
	unit, err := watchconfig.ParseUnit(cfg.Defaults.Unit)
	if err != nil {
		return fmt.Errorf("defaults.unit: %w", err)
	}
	cfg.Defaults.Unit = string(unit)

	if err := notify.Validate(cfg.Defaults.NotificationURL); err != nil {
		return fmt.Errorf("defaults.notification_url: %w", err)
	}

	return nil
}

// DaemonIdentity returns the daemon identity described by the config.
func (c *Config) DaemonIdentity() watchconfig.Daemon {
	return watchconfig.Daemon{
		Image:         c.Daemon.Image,
		ContainerName: c.Daemon.ContainerName,
		Entrypoint:    constants.DaemonEntrypoint,
		SocketPath:    c.Daemon.SocketPath,
	}
}

// DefaultStart returns the start form pre-filled from [defaults].
func (c *Config) DefaultStart() watchconfig.StartConfiguration {
	return watchconfig.StartConfiguration{
		Magnitude:       c.Defaults.Duration,
		Unit:            watchconfig.Unit(c.Defaults.Unit),
		MonitorAll:      true,
		NotificationURL: c.Defaults.NotificationURL,
	}
}
