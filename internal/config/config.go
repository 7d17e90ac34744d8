package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // Asia/Tokyo default must resolve on minimal images

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// CalendarConfig describes a single ICS subscription source.
type CalendarConfig struct {
	// ID is an internal identifier used for filtering, de-dup and logging.
	ID string `yaml:"id" json:"id" validate:"required,max=64"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name" validate:"max=100"`
	// URL is the ICS endpoint (for Google Calendar, the secret iCal address).
	URL string `yaml:"url" json:"url" validate:"required,url"`
	// Charset of the feed body; empty means UTF-8.
	Charset string `yaml:"charset,omitempty" json:"charset,omitempty" validate:"omitempty,oneof=utf-8 shift_jis euc-jp iso-2022-jp"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen" validate:"required,hostname_port"`

	// Timezone is the IANA zone events and "today" are interpreted in.
	Timezone string `yaml:"timezone" json:"timezone" validate:"required"`

	// RefreshCron is a 5-field cron schedule for re-fetching calendars.
	RefreshCron string `yaml:"refresh" json:"refresh" validate:"required"`

	// CacheDir stores per-feed bodies and HTTP validators.
	CacheDir string `yaml:"cache_dir" json:"cache_dir" validate:"required"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level" validate:"oneof=debug info warn error"`

	Calendars []CalendarConfig `yaml:"calendars" json:"calendars" validate:"dive"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen   = "127.0.0.1:8080"
	defaultTimezone = "Asia/Tokyo"
	defaultRefresh  = "*/15 * * * *"
	defaultCacheDir = "/var/lib/hospcal/ics-cache"
	defaultLogLevel = "info"
)

// Environment variables that override file values.
const (
	EnvListen   = "HOSPCAL_LISTEN"
	EnvTimezone = "HOSPCAL_TIMEZONE"
	EnvLogLevel = "HOSPCAL_LOG_LEVEL"
	EnvCacheDir = "HOSPCAL_CACHE_DIR"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      defaultListen,
		Timezone:    defaultTimezone,
		RefreshCron: defaultRefresh,
		CacheDir:    defaultCacheDir,
		LogLevel:    defaultLogLevel,
		Calendars:   []CalendarConfig{},
	}
}

// Normalize fills in missing values so that partially-filled configs still
// behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefresh
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.Calendars == nil {
		c.Calendars = []CalendarConfig{}
	}
	for i := range c.Calendars {
		cal := &c.Calendars[i]
		cal.Charset = strings.ToLower(strings.TrimSpace(cal.Charset))
		if cal.ID == "" {
			cal.ID = cal.Name
		}
	}
}

var validate = validator.New()

// Validate checks field constraints, the timezone, the cron expression and
// calendar ID uniqueness.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid config: timezone %q: %w", c.Timezone, err)
	}
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		return fmt.Errorf("invalid config: refresh %q: %w", c.RefreshCron, err)
	}
	seen := make(map[string]bool, len(c.Calendars))
	for _, cal := range c.Calendars {
		if seen[cal.ID] {
			return fmt.Errorf("invalid config: duplicate calendar id %q", cal.ID)
		}
		seen[cal.ID] = true
	}
	return nil
}

// Location returns the configured display timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// LoadEnvFile loads KEY=VALUE pairs from path (typically ".env") into the
// process environment without overriding variables that are already set.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides file values with HOSPCAL_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
	if v := os.Getenv(EnvTimezone); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv(EnvCacheDir); v != "" {
		c.CacheDir = v
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (parent directory created as needed) and returned.
//   - Otherwise the YAML is unmarshalled and normalized.
//
// Environment overrides and validation are left to the caller.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically via a temp file + rename, leaving the
// final file with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".hospcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method that delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
