// Package config loads application configuration from config.yaml,
// DAYTRACKER_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "DAYTRACKER"
	dbFileName     = "daytracker.db"
)

// Config keys.
const (
	KeyDataDir              = "data_dir"
	KeyLogFile              = "log_file"
	KeyLogLevel             = "log_level"
	KeyNotificationsEnabled = "notifications.enabled"
	KeyNotificationsAppName = "notifications.app_name"
	KeyDaemonPollInterval   = "daemon.poll_interval"
	KeyLiveGracePeriod      = "live.grace_period"
)

type Notifications struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	AppName string `mapstructure:"app_name" yaml:"app_name"`
}

type Daemon struct {
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

type Live struct {
	GracePeriod time.Duration `mapstructure:"grace_period" yaml:"grace_period"`
}

// Config is the resolved configuration.
type Config struct {
	DataDir       string        `mapstructure:"data_dir" yaml:"data_dir"`
	LogFile       string        `mapstructure:"log_file" yaml:"log_file"`
	LogLevel      string        `mapstructure:"log_level" yaml:"log_level"`
	Notifications Notifications `mapstructure:"notifications" yaml:"notifications"`
	Daemon        Daemon        `mapstructure:"daemon" yaml:"daemon"`
	Live          Live          `mapstructure:"live" yaml:"live"`
}

// DBPath is the SQLite database inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, dbFileName)
}

// DefaultDir returns ~/.config/daytracker.
func DefaultDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "daytracker"), nil
}

// Defaults is the configuration for dir when nothing overrides it.
func Defaults(dir string) Config {
	return Config{
		DataDir:  dir,
		LogFile:  filepath.Join(dir, "daytracker.log"),
		LogLevel: "info",
		Notifications: Notifications{
			Enabled: true,
			AppName: "daytracker",
		},
		Daemon: Daemon{PollInterval: 30 * time.Second},
		Live:   Live{GracePeriod: 5 * time.Second},
	}
}

// New returns a viper instance seeded with defaults for dir and bound to
// the environment. Flags are bound by the caller.
func New(dir string) *viper.Viper {
	d := Defaults(dir)
	v := viper.New()
	v.SetDefault(KeyDataDir, d.DataDir)
	v.SetDefault(KeyLogFile, d.LogFile)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyNotificationsEnabled, d.Notifications.Enabled)
	v.SetDefault(KeyNotificationsAppName, d.Notifications.AppName)
	v.SetDefault(KeyDaemonPollInterval, d.Daemon.PollInterval)
	v.SetDefault(KeyLiveGracePeriod, d.Live.GracePeriod)

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(dir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load creates dir and a default config.yaml on first run, then reads it.
// A missing config.yaml is not an error.
func Load(v *viper.Viper, dir string) (*Config, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(dir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = dir
	}
	return &cfg, nil
}

// configFile is what gets written on first run. Durations are written as
// strings so the file stays hand-editable.
type configFile struct {
	DataDir       string        `yaml:"data_dir"`
	LogFile       string        `yaml:"log_file"`
	LogLevel      string        `yaml:"log_level"`
	Notifications Notifications `yaml:"notifications"`
	Daemon        struct {
		PollInterval string `yaml:"poll_interval"`
	} `yaml:"daemon"`
	Live struct {
		GracePeriod string `yaml:"grace_period"`
	} `yaml:"live"`
}

func ensureDefaultConfigFile(dir string) error {
	path := filepath.Join(dir, configFileExt)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	d := Defaults(dir)
	f := configFile{
		DataDir:       d.DataDir,
		LogFile:       d.LogFile,
		LogLevel:      d.LogLevel,
		Notifications: d.Notifications,
	}
	f.Daemon.PollInterval = d.Daemon.PollInterval.String()
	f.Live.GracePeriod = d.Live.GracePeriod.String()

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}
	header := []byte("# daytracker configuration\n# Every key can be overridden with DAYTRACKER_<KEY>, e.g. DAYTRACKER_LOG_LEVEL=debug.\n\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}
