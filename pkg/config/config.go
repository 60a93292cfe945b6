package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full gmarupctl configuration. Values come from defaults, then
// the YAML file, then the environment.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Console ConsoleConfig `yaml:"console"`
	Auth    AuthConfig    `yaml:"auth"`
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
	Landing LandingConfig `yaml:"landing"`
	Charts  ChartsConfig  `yaml:"charts"`
	Log     LogConfig     `yaml:"log"`
}

type BackendConfig struct {
	BaseURL   string        `yaml:"base_url" env:"GMARUP_BACKEND_URL"`
	Timeout   time.Duration `yaml:"timeout" env:"GMARUP_BACKEND_TIMEOUT"`
	UserAgent string        `yaml:"user_agent" env:"GMARUP_USER_AGENT"`
}

type ConsoleConfig struct {
	Locale            string        `yaml:"locale" env:"GMARUP_LOCALE"`
	Timezone          string        `yaml:"timezone" env:"GMARUP_TIMEZONE"`
	VisitorsFloor     int           `yaml:"visitors_floor" env:"GMARUP_VISITORS_FLOOR"`
	AnalyticsRowLimit int           `yaml:"analytics_row_limit" env:"GMARUP_ANALYTICS_ROW_LIMIT"`
	RefreshDelay      time.Duration `yaml:"refresh_delay" env:"GMARUP_REFRESH_DELAY"`
	RefreshInterval   time.Duration `yaml:"refresh_interval" env:"GMARUP_REFRESH_INTERVAL"`
	NotificationTTL   time.Duration `yaml:"notification_ttl" env:"GMARUP_NOTIFICATION_TTL"`
}

type AuthConfig struct {
	PasswordHash  string `yaml:"password_hash" env:"GMARUP_ADMIN_PASSWORD_HASH"`
	BackendLogin  bool   `yaml:"backend_login" env:"GMARUP_BACKEND_LOGIN"`
	SessionSecret string `yaml:"session_secret" env:"GMARUP_SESSION_SECRET"`
	SessionMaxAge int    `yaml:"session_max_age" env:"GMARUP_SESSION_MAX_AGE"`
}

type StorageConfig struct {
	Path string `yaml:"path" env:"GMARUP_STATE_DB"`
}

type ServerConfig struct {
	Addr     string `yaml:"addr" env:"GMARUP_ADDR"`
	BasePath string `yaml:"base_path" env:"GMARUP_BASE_PATH"`
	Adapter  string `yaml:"adapter" env:"GMARUP_ADAPTER"`
}

type LandingConfig struct {
	PaymentURL    string        `yaml:"payment_url" env:"GMARUP_PAYMENT_URL"`
	TrackDebounce time.Duration `yaml:"track_debounce" env:"GMARUP_TRACK_DEBOUNCE"`
}

type ChartsConfig struct {
	Theme      string        `yaml:"theme" env:"GMARUP_CHART_THEME"`
	AssetsHost string        `yaml:"assets_host" env:"GMARUP_CHART_ASSETS_HOST"`
	CacheTTL   time.Duration `yaml:"cache_ttl" env:"GMARUP_CHART_CACHE_TTL"`
}

type LogConfig struct {
	Level       string `yaml:"level" env:"GMARUP_LOG_LEVEL"`
	Development bool   `yaml:"development" env:"GMARUP_LOG_DEVELOPMENT"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Backend: BackendConfig{
			BaseURL: "http://localhost:5000",
			Timeout: 10 * time.Second,
		},
		Console: ConsoleConfig{
			Locale:            "he",
			Timezone:          "Asia/Jerusalem",
			VisitorsFloor:     15,
			AnalyticsRowLimit: 50,
			RefreshDelay:      500 * time.Millisecond,
			RefreshInterval:   30 * time.Second,
			NotificationTTL:   5 * time.Second,
		},
		Auth: AuthConfig{
			SessionMaxAge: 8 * 60 * 60,
		},
		Storage: StorageConfig{Path: "gmarup-state.db"},
		Server: ServerConfig{
			Addr:    ":8080",
			Adapter: "chi",
		},
		Landing: LandingConfig{TrackDebounce: 250 * time.Millisecond},
		Charts: ChartsConfig{
			AssetsHost: "https://go-echarts.github.io/go-echarts-assets/assets/",
			CacheTTL:   time.Minute,
		},
		Log: LogConfig{Level: "info"},
	}
}

// DefaultEnvFiles are loaded when present.
var DefaultEnvFiles = []string{".env", ".env.local"}

// Load reads env files, the optional YAML file at path, then environment
// overrides, and validates the result.
func Load(path string, envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = DefaultEnvFiles
	}
	if err := loadEnvFiles(envFiles); err != nil {
		return Config{}, err
	}
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: open %s: %w", path, err)
		}
		defer f.Close()
		if err := Decode(f, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode merges YAML from r over cfg. Unknown keys are rejected.
func Decode(r io.Reader, cfg *Config) error {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

// loadEnvFiles does not override variables already set in the process.
func loadEnvFiles(files []string) error {
	for _, file := range files {
		if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("config: load %s: %w", file, err)
		}
	}
	return nil
}

// Validate checks the fields other packages rely on.
func (c Config) Validate() error {
	var errs []error
	if u, err := url.Parse(c.Backend.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("config: backend.base_url %q is not an absolute url", c.Backend.BaseURL))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	switch c.Console.Locale {
	case "he", "en":
	default:
		errs = append(errs, fmt.Errorf("config: console.locale %q must be he or en", c.Console.Locale))
	}
	if c.Console.VisitorsFloor < 0 {
		errs = append(errs, fmt.Errorf("config: console.visitors_floor must not be negative"))
	}
	if c.Console.RefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("config: console.refresh_interval must be positive"))
	}
	switch strings.ToLower(c.Server.Adapter) {
	case "chi", "fiber":
	default:
		errs = append(errs, fmt.Errorf("config: server.adapter %q must be chi or fiber", c.Server.Adapter))
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		errs = append(errs, fmt.Errorf("config: server.base_path must start with /"))
	}
	return errors.Join(errs...)
}

// Location resolves Console.Timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Console.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Console.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: console.timezone: %w", err)
	}
	return loc, nil
}

// SessionKey returns the cookie signing key. An empty secret yields nil so
// callers can generate an ephemeral key.
func (c Config) SessionKey() []byte {
	if c.Auth.SessionSecret == "" {
		return nil
	}
	return []byte(c.Auth.SessionSecret)
}
