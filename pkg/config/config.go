package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/agathaorg/notifykit/pkg/secrets"
)

// Transport modes.
const (
	TransportNative  = "native"
	TransportBrowser = "browser"
)

// Store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config holds every setting of the notification client and the notifyd binary.
type Config struct {
	WSBase         string        `env:"NOTIFY_WS_BASE" envDefault:"https://front-dev.agatha.org.cn" yaml:"ws_base"`
	SocketPath     string        `env:"NOTIFY_SOCKET_PATH" envDefault:"/api/notify" yaml:"socket_path"`
	Transport      string        `env:"NOTIFY_TRANSPORT" envDefault:"native" yaml:"transport"`
	ConnectTimeout time.Duration `env:"NOTIFY_CONNECT_TIMEOUT" envDefault:"20s" yaml:"connect_timeout"`

	ReconnectInitial time.Duration `env:"NOTIFY_RECONNECT_INITIAL" envDefault:"3s" yaml:"reconnect_initial"`
	ReconnectMax     time.Duration `env:"NOTIFY_RECONNECT_MAX" envDefault:"30s" yaml:"reconnect_max"`
	ReconnectFactor  float64       `env:"NOTIFY_RECONNECT_FACTOR" envDefault:"1.5" yaml:"reconnect_factor"`

	TokenPollInterval time.Duration `env:"NOTIFY_TOKEN_POLL_INTERVAL" envDefault:"1500ms" yaml:"token_poll_interval"`

	APIBase          string        `env:"NOTIFY_API_BASE" envDefault:"https://front-dev.agatha.org.cn/api" yaml:"api_base"`
	Platform         string        `env:"NOTIFY_PLATFORM" envDefault:"android" yaml:"platform"`
	AppID            string        `env:"NOTIFY_APP_ID" envDefault:"minechat" yaml:"app_id"`
	ClientID         string        `env:"NOTIFY_CLIENT_ID" yaml:"client_id"`
	RegisterTimeout  time.Duration `env:"NOTIFY_REGISTER_TIMEOUT" envDefault:"15s" yaml:"register_timeout"`
	RegisterSecret   string        `env:"NOTIFY_REGISTER_SECRET" yaml:"register_secret"`
	RegisterDisabled bool          `env:"NOTIFY_REGISTER_DISABLED" yaml:"register_disabled"`

	Store     string `env:"NOTIFY_STORE" envDefault:"memory" yaml:"store"`
	StorePath string `env:"NOTIFY_STORE_PATH" envDefault:"notify-store.json" yaml:"store_path"`
	RedisURL  string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0" yaml:"redis_url"`
	RedisKey  string `env:"NOTIFY_REDIS_PREFIX" envDefault:"notify" yaml:"redis_prefix"`
	StoreKey  string `env:"NOTIFY_STORE_KEY" yaml:"store_key"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info" yaml:"log_level"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json" yaml:"log_format"`
	AppEnv    string `env:"APP_ENV" envDefault:"development" yaml:"app_env"`
}

// FromEnv loads Config from the environment and .env.
func FromEnv() (Config, error) {
	var cfg Config
	if err := Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// FromFile loads Config from a YAML file layered over defaults.
func FromFile(path string) (Config, error) {
	var cfg Config
	if err := LoadFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration for values the client cannot run with.
func (c Config) Validate() error {
	var errs []error

	if err := checkURL(c.WSBase, "http", "https", "ws", "wss"); err != nil {
		errs = append(errs, fmt.Errorf("ws_base: %w", err))
	}
	if !strings.HasPrefix(c.SocketPath, "/") {
		errs = append(errs, fmt.Errorf("socket_path %q must start with /", c.SocketPath))
	}
	switch c.Transport {
	case TransportNative, TransportBrowser:
	default:
		errs = append(errs, fmt.Errorf("transport %q must be %q or %q", c.Transport, TransportNative, TransportBrowser))
	}
	if c.ConnectTimeout <= 0 {
		errs = append(errs, errors.New("connect_timeout must be positive"))
	}
	if c.ReconnectInitial <= 0 || c.ReconnectMax < c.ReconnectInitial || c.ReconnectFactor < 1 {
		errs = append(errs, errors.New("reconnect policy must have initial > 0, max >= initial, factor >= 1"))
	}
	if c.TokenPollInterval <= 0 {
		errs = append(errs, errors.New("token_poll_interval must be positive"))
	}
	if !c.RegisterDisabled {
		if err := checkURL(c.APIBase, "http", "https"); err != nil {
			errs = append(errs, fmt.Errorf("api_base: %w", err))
		}
		if c.RegisterTimeout <= 0 {
			errs = append(errs, errors.New("register_timeout must be positive"))
		}
	}
	switch c.Store {
	case StoreMemory:
	case StoreFile:
		if c.StorePath == "" {
			errs = append(errs, errors.New("store_path is required for the file store"))
		}
	case StoreRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("redis_url is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("store %q must be one of memory, file, redis", c.Store))
	}
	if c.StoreKey != "" {
		if _, err := secrets.ParseKey(c.StoreKey); err != nil {
			errs = append(errs, fmt.Errorf("store_key: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}

func checkURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("%q: unsupported scheme %q", raw, u.Scheme)
}
