package config

import (
	"dirmirror/internal/model"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Source       string        `mapstructure:"source"`
	Dest         string        `mapstructure:"dest"`
	Mode         string        `mapstructure:"mode"`
	Keep         bool          `mapstructure:"keep"`
	Verbose      bool          `mapstructure:"verbose"`
	Watcher      string        `mapstructure:"watcher"`
	Latency      time.Duration `mapstructure:"latency"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	ScanInterval time.Duration `mapstructure:"scan_interval"`
	BufferSize   int           `mapstructure:"buffer_size"`
	Marker       string        `mapstructure:"marker"`
	IgnoreList   []string      `mapstructure:"ignore_list"`
	DBPath       string        `mapstructure:"db_path"`
	DaemonPort   int           `mapstructure:"daemon_port"`
	LogFile      string        `mapstructure:"log_file"`
}

const (
	WatcherNotify = "fsnotify"
	WatcherPoll   = "poll"
)

var Default = Config{
	Mode:         string(model.PolicyMirror),
	Watcher:      WatcherNotify,
	Latency:      300 * time.Millisecond,
	PollInterval: 2 * time.Second,
	ScanInterval: time.Second,
	BufferSize:   256,
	Marker:       ".DS_Store",
	IgnoreList:   []string{},
	DBPath:       "history.db",
	DaemonPort:   9101,
}

// Dir returns the directory holding config.yaml and the history database.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home dir: %w", err)
	}

	return filepath.Join(home, ".dirmirror"), nil
}

func Load() (*Config, error) {
	configDir, err := Dir()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config dir: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)

	viper.SetDefault("source", Default.Source)
	viper.SetDefault("dest", Default.Dest)
	viper.SetDefault("mode", Default.Mode)
	viper.SetDefault("keep", Default.Keep)
	viper.SetDefault("verbose", Default.Verbose)
	viper.SetDefault("watcher", Default.Watcher)
	viper.SetDefault("latency", Default.Latency)
	viper.SetDefault("poll_interval", Default.PollInterval)
	viper.SetDefault("scan_interval", Default.ScanInterval)
	viper.SetDefault("buffer_size", Default.BufferSize)
	viper.SetDefault("marker", Default.Marker)
	viper.SetDefault("ignore_list", Default.IgnoreList)
	viper.SetDefault("db_path", Default.DBPath)
	viper.SetDefault("daemon_port", Default.DaemonPort)
	viper.SetDefault("log_file", Default.LogFile)

	viper.SetEnvPrefix("DIRMIRROR")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := errors.AsType[viper.ConfigFileNotFoundError](err); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.DBPath != "" && !filepath.IsAbs(cfg.DBPath) {
		cfg.DBPath = filepath.Join(configDir, cfg.DBPath)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if _, err := c.DeletionPolicy(); err != nil {
		return err
	}

	switch c.Watcher {
	case WatcherNotify, WatcherPoll:
	default:
		return fmt.Errorf("unknown watcher %q (want %s or %s)", c.Watcher, WatcherNotify, WatcherPoll)
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.ScanInterval <= 0 {
		return fmt.Errorf("scan_interval must be positive, got %s", c.ScanInterval)
	}
	if c.Latency < 0 {
		return fmt.Errorf("latency must not be negative, got %s", c.Latency)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("buffer_size must be positive, got %d", c.BufferSize)
	}

	return nil
}

// DeletionPolicy resolves the mode and the keep shorthand into one policy.
func (c *Config) DeletionPolicy() (model.DeletionPolicy, error) {
	policy, err := model.ParseDeletionPolicy(c.Mode)
	if err != nil {
		return "", err
	}

	if !c.Keep {
		return policy, nil
	}

	if policy == model.PolicyMove {
		return "", fmt.Errorf("--keep cannot be combined with mode %q", policy)
	}

	return model.PolicyKeep, nil
}
