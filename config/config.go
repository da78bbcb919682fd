// Package config loads the service configuration.
//
// Precedence, lowest first: built-in defaults, the TOML file, environment
// variables, command-line flags (applied by cmd/server).
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/feed"
	"github.com/warp/budget-engine/report"
)

// Config holds all service configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Cycle    CycleConfig    `toml:"cycle"`
	Refresh  RefreshConfig  `toml:"refresh"`
	Report   ReportConfig   `toml:"report"`
	SMTP     SMTPConfig     `toml:"smtp"`
	Log      LogConfig      `toml:"log"`
}

type ServerConfig struct {
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
	LoadScenario   string   `toml:"load_scenario,omitempty"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type CycleConfig struct {
	BoundaryDay int    `toml:"boundary_day"`
	Locale      string `toml:"locale"`
}

type RefreshConfig struct {
	MinInterval   time.Duration `toml:"min_interval"`
	MaxAge        time.Duration `toml:"max_age"`
	DebounceDelay time.Duration `toml:"debounce_delay"`
}

type ReportConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"`
	Currency string `toml:"currency"`
}

type SMTPConfig struct {
	Host     string `toml:"host,omitempty"`
	Port     int    `toml:"port"`
	Username string `toml:"username,omitempty"`
	Password string `toml:"password,omitempty"`
	From     string `toml:"from,omitempty"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // json | text
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Database: DatabaseConfig{Path: "budget.db"},
		Cycle: CycleConfig{
			BoundaryDay: budget.DefaultBoundaryDay,
			Locale:      string(budget.LocalePtBR),
		},
		Refresh: RefreshConfig{
			MinInterval:   feed.DefaultMinInterval,
			MaxAge:        feed.DefaultMaxAge,
			DebounceDelay: feed.DefaultDebounceDelay,
		},
		Report: ReportConfig{
			Enabled:  true,
			Schedule: report.DefaultSchedule,
			Currency: "R$",
		},
		SMTP: SMTPConfig{Port: 587},
		Log:  LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path or a missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("reading config: %w", err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("BUDGET_DB"); ok && v != "" {
		c.Database.Path = v
	}
	if v, ok := lookup("BUDGET_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BUDGET_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("BUDGET_BOUNDARY_DAY"); ok && v != "" {
		day, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BUDGET_BOUNDARY_DAY: %w", err)
		}
		c.Cycle.BoundaryDay = day
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup("SMTP_PASSWORD"); ok && v != "" {
		c.SMTP.Password = v
	}
	return nil
}

// Validate checks every section.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("database.path must be set"))
	}
	if err := c.CycleConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("cycle.boundary_day: %w", err))
	}
	if _, ok := budget.ParseLocale(c.Cycle.Locale); !ok {
		errs = append(errs, fmt.Errorf("cycle.locale %q is not supported", c.Cycle.Locale))
	}
	if c.Refresh.MinInterval < 0 || c.Refresh.MaxAge < 0 || c.Refresh.DebounceDelay < 0 {
		errs = append(errs, errors.New("refresh durations must not be negative"))
	}
	if c.Report.Enabled {
		if _, err := cron.ParseStandard(c.Report.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("report.schedule: %w", err))
		}
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}

// CycleConfig returns the engine's cycle settings.
func (c Config) CycleConfig() budget.CycleConfig {
	locale, ok := budget.ParseLocale(c.Cycle.Locale)
	if !ok {
		locale = budget.LocalePtBR
	}
	return budget.CycleConfig{BoundaryDay: c.Cycle.BoundaryDay, Locale: locale}
}

// FeedConfig returns the transaction feed settings.
func (c Config) FeedConfig() feed.Config {
	return feed.Config{
		MinInterval:   c.Refresh.MinInterval,
		MaxAge:        c.Refresh.MaxAge,
		DebounceDelay: c.Refresh.DebounceDelay,
	}
}

// SMTPEnabled reports whether report emails can be sent.
func (c Config) SMTPEnabled() bool { return c.SMTP.Host != "" }

// SMTPSettings returns the notifier settings.
func (c Config) SMTPSettings() report.SMTPConfig {
	return report.SMTPConfig{
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     c.SMTP.From,
	}
}

// NewLogger builds the logrus logger described by the log section.
func (c Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	if c.Log.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// Encode writes cfg as TOML. Used by "config print".
func Encode(cfg Config, w io.Writer) error {
	return toml.NewEncoder(w).Encode(cfg)
}
