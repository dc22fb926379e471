package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBackendURL        = "http://127.0.0.1:8000"
	DefaultTimeoutSec        = 10
	DefaultRefreshSec        = 5
	DefaultRecentClients     = 12
	DefaultWaitSec           = 20
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
	DefaultActivityLimit     = 200
	DefaultStorePath         = "apctl.db"
	DefaultSignalLogPath     = "signal.csv"
	DefaultMQTTTopicPrefix   = "apctl"
	DefaultMQTTClientID      = "apctl"
	DefaultWebListen         = "127.0.0.1:8080"
	DefaultSTUNTimeoutSec    = 3
	DefaultSTUNServerPrimary = "stun.l.google.com:19302"
)

// Config is the apctl configuration file.
type Config struct {
	Backend   BackendConfig   `yaml:"backend"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	Connect   ConnectConfig   `yaml:"connect"`
	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	SignalLog SignalLogConfig `yaml:"signal_log"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Web       WebConfig       `yaml:"web"`
	STUN      STUNConfig      `yaml:"stun"`
}

// BackendConfig points at the appliance API.
type BackendConfig struct {
	URL        string `yaml:"url"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

type RefreshConfig struct {
	IntervalSec   int  `yaml:"interval_sec"`
	RecentClients int  `yaml:"recent_clients"`
	AutoOnStart   bool `yaml:"auto_on_start"`
}

type ConnectConfig struct {
	WaitSec int `yaml:"wait_sec"`
}

// LogConfig covers both slog output and the in-memory activity log.
type LogConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"`
	ActivityLimit int    `yaml:"activity_limit"`
}

// StoreConfig enables the bbolt store when Path is set.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type SignalLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MQTTConfig configures the optional publisher.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
}

type WebConfig struct {
	Listen         string   `yaml:"listen"`
	APIKey         string   `yaml:"api_key"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type STUNConfig struct {
	Servers    []string `yaml:"servers"`
	TimeoutSec int      `yaml:"timeout_sec"`
}

// Default returns a config with every default applied.
func Default() Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return cfg
}

// Load reads and parses a YAML config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}

	ApplyDefaults(&cfg)
	return cfg, nil
}

// LoadOrDefault loads path, or returns defaults when path is empty or the
// file does not exist.
func LoadOrDefault(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes a YAML config file to disk.
func Save(path string, cfg Config) error {
	ApplyDefaults(&cfg)
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate performs minimal validation for required fields.
func Validate(cfg Config) error {
	if cfg.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	u, err := url.Parse(NormalizeBaseURL(cfg.Backend.URL))
	if err != nil || u.Host == "" {
		return fmt.Errorf("backend.url is invalid: %q", cfg.Backend.URL)
	}
	if cfg.Refresh.IntervalSec < 1 {
		return fmt.Errorf("refresh.interval_sec must be at least 1")
	}
	if cfg.Connect.WaitSec < 1 {
		return fmt.Errorf("connect.wait_sec must be at least 1")
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json")
	}
	if cfg.MQTT.Enabled && cfg.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	return nil
}

// ApplyDefaults fills in default values when empty.
func ApplyDefaults(cfg *Config) {
	if cfg.Backend.URL == "" {
		cfg.Backend.URL = DefaultBackendURL
	}
	cfg.Backend.URL = NormalizeBaseURL(cfg.Backend.URL)
	if cfg.Backend.TimeoutSec == 0 {
		cfg.Backend.TimeoutSec = DefaultTimeoutSec
	}

	if cfg.Refresh.IntervalSec == 0 {
		cfg.Refresh.IntervalSec = DefaultRefreshSec
	}
	if cfg.Refresh.RecentClients == 0 {
		cfg.Refresh.RecentClients = DefaultRecentClients
	}
	if cfg.Connect.WaitSec == 0 {
		cfg.Connect.WaitSec = DefaultWaitSec
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Log.ActivityLimit == 0 {
		cfg.Log.ActivityLimit = DefaultActivityLimit
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}
	if cfg.SignalLog.Path == "" {
		cfg.SignalLog.Path = DefaultSignalLogPath
	}

	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = DefaultMQTTClientID
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = DefaultMQTTTopicPrefix
	}

	if cfg.Web.Listen == "" {
		cfg.Web.Listen = DefaultWebListen
	}

	if len(cfg.STUN.Servers) == 0 {
		cfg.STUN.Servers = []string{DefaultSTUNServerPrimary}
	}
	if cfg.STUN.TimeoutSec == 0 {
		cfg.STUN.TimeoutSec = DefaultSTUNTimeoutSec
	}
}

// NormalizeBaseURL adds an http scheme when missing and drops trailing slashes.
func NormalizeBaseURL(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	return strings.TrimRight(addr, "/")
}
