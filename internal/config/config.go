// Package config loads server configuration from a YAML file, a .env file and DESK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/evcraddock/churchdesk/internal/db"
	"github.com/evcraddock/churchdesk/internal/email"
)

// Config holds server configuration.
type Config struct {
	Addr          string        `yaml:"addr"`
	DBPath        string        `yaml:"db_path"`
	DevMode       bool          `yaml:"dev_mode"`
	BaseURL       string        `yaml:"base_url"` // e.g. http://localhost:8080
	Timezone      string        `yaml:"timezone"`
	AdminEmail    string        `yaml:"admin_email"`
	AdminPassword string        `yaml:"admin_password"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	PageSize      int           `yaml:"page_size"`

	SMTP email.SMTPConfig `yaml:"smtp"`

	loc *time.Location
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:       ":8080",
		BaseURL:    "http://localhost:8080",
		Timezone:   "Local",
		SessionTTL: 30 * 24 * time.Hour,
		PageSize:   25,
	}
}

// Dir is ~/.config/churchdesk, home of both the server and CLI settings.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "churchdesk"), nil
}

// DefaultPath returns the default config file path: ~/.config/churchdesk/config.yaml
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load builds the configuration. Later sources override earlier ones:
// defaults, the YAML file at path, .env in the working directory, then the environment.
// A missing file at path is not an error.
func Load(path string) (Config, error) {
	return load(path, ".env")
}

func load(path, envFile string) (Config, error) {
	cfg := Default()

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}
	if err := readYAML(path, &cfg); err != nil {
		return Config{}, err
	}
	if err := loadDotenv(envFile); err != nil {
		return Config{}, err
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if cfg.DBPath == "" {
		p, err := db.DefaultPath()
		if err != nil {
			return Config{}, err
		}
		cfg.DBPath = p
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// readYAML decodes the file at path into v. A missing file leaves v alone.
func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// loadDotenv copies envFile into the environment without replacing
// variables that are already set.
func loadDotenv(envFile string) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", envFile, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("DESK_ADDR", &c.Addr)
	setString("DESK_DB_PATH", &c.DBPath)
	setString("DESK_BASE_URL", &c.BaseURL)
	setString("DESK_TIMEZONE", &c.Timezone)
	setString("DESK_ADMIN_EMAIL", &c.AdminEmail)
	setString("DESK_ADMIN_PASSWORD", &c.AdminPassword)
	setString("DESK_SMTP_HOST", &c.SMTP.Host)
	setString("DESK_SMTP_PORT", &c.SMTP.Port)
	setString("DESK_SMTP_USER", &c.SMTP.User)
	setString("DESK_SMTP_PASS", &c.SMTP.Pass)
	setString("DESK_SMTP_FROM", &c.SMTP.From)

	if v := os.Getenv("DESK_DEV_MODE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DESK_DEV_MODE: %w", err)
		}
		c.DevMode = b
	}
	if v := os.Getenv("DESK_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DESK_SESSION_TTL: %w", err)
		}
		c.SessionTTL = d
	}
	if v := os.Getenv("DESK_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DESK_PAGE_SIZE: %w", err)
		}
		c.PageSize = n
	}
	return nil
}

func (c *Config) validate() error {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	c.loc = loc

	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive, got %s", c.SessionTTL)
	}
	return nil
}

// Location returns the zone used to decide what "today" is.
func (c Config) Location() *time.Location {
	if c.loc == nil {
		return time.Local
	}
	return c.loc
}

// SetTimezone switches the zone used for "today".
func (c *Config) SetTimezone(name string) error {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("timezone %q: %w", name, err)
	}
	c.Timezone = name
	c.loc = loc
	return nil
}
