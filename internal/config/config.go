package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/logging"
)

// Backends for DatabaseConfig.Backend.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds all ACF configuration.
type Config struct {
	Database   DatabaseConfig   `toml:"database" yaml:"database"`
	Memory     MemoryConfig     `toml:"memory" yaml:"memory"`
	Consent    ConsentConfig    `toml:"consent" yaml:"consent"`
	Audit      AuditConfig      `toml:"audit" yaml:"audit"`
	Trajectory TrajectoryConfig `toml:"trajectory" yaml:"trajectory"`
	Log        logging.Config   `toml:"log" yaml:"log"`
}

type DatabaseConfig struct {
	Backend   string `toml:"backend" yaml:"backend"`     // sqlite, redis, memory
	Path      string `toml:"path" yaml:"path"`           // sqlite file; empty resolves to store.DefaultDBPath()
	RedisURL  string `toml:"redis_url" yaml:"redis_url"` // e.g. redis://127.0.0.1:6379/0
	Namespace string `toml:"namespace" yaml:"namespace"` // key prefix
}

type MemoryConfig struct {
	Cap             int      `toml:"cap" yaml:"cap"`
	FleetingHorizon Duration `toml:"fleeting_horizon" yaml:"fleeting_horizon"`
	QueryLimit      int      `toml:"query_limit" yaml:"query_limit"`
	PrepareLimit    int      `toml:"prepare_limit" yaml:"prepare_limit"`
}

type ConsentConfig struct {
	DriftPeriodDays int `toml:"drift_period_days" yaml:"drift_period_days"`
}

type AuditConfig struct {
	Cap int `toml:"cap" yaml:"cap"`
}

type TrajectoryConfig struct {
	Window      int `toml:"window" yaml:"window"`
	TrendWindow int `toml:"trend_window" yaml:"trend_window"`
	SignalCap   int `toml:"signal_cap" yaml:"signal_cap"`
}

// Duration is a time.Duration written as "168h", "30m" and so on.
type Duration time.Duration

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(b), err)
	}
	*d = Duration(v)
	return nil
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Backend:   BackendSQLite,
			Path:      "", // resolved at runtime via store.DefaultDBPath()
			Namespace: "acf",
		},
		Memory: MemoryConfig{
			Cap:             500,
			FleetingHorizon: Duration(7 * 24 * time.Hour),
			QueryLimit:      20,
			PrepareLimit:    8,
		},
		Consent: ConsentConfig{
			DriftPeriodDays: 90,
		},
		Audit: AuditConfig{
			Cap: 100,
		},
		Trajectory: TrajectoryConfig{
			Window:      30,
			TrendWindow: 5,
			SignalCap:   1000,
		},
		Log: logging.Config{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// The format follows the extension: .toml, or .yaml/.yml. An empty path
// skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".toml":
			if _, err := toml.Decode(string(data), &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		default:
			return cfg, fmt.Errorf("unsupported config format %q", ext)
		}
	}

	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides fields from ACF_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("ACF_DB"); ok && v != "" {
		c.Database.Path = v
	}
	if v, ok := lookup("ACF_BACKEND"); ok && v != "" {
		c.Database.Backend = strings.ToLower(v)
	}
	if v, ok := lookup("ACF_REDIS_URL"); ok && v != "" {
		c.Database.RedisURL = v
	}
	if v, ok := lookup("ACF_LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup("ACF_LOG_FORMAT"); ok && v != "" {
		c.Log.Format = v
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error

	switch c.Database.Backend {
	case BackendSQLite, BackendMemory:
	case BackendRedis:
		if c.Database.RedisURL == "" {
			errs = append(errs, errors.New("database.redis_url is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("database.backend must be sqlite, redis or memory, got %q", c.Database.Backend))
	}

	positive := []struct {
		name string
		v    int
	}{
		{"memory.cap", c.Memory.Cap},
		{"memory.query_limit", c.Memory.QueryLimit},
		{"memory.prepare_limit", c.Memory.PrepareLimit},
		{"consent.drift_period_days", c.Consent.DriftPeriodDays},
		{"audit.cap", c.Audit.Cap},
		{"trajectory.window", c.Trajectory.Window},
		{"trajectory.trend_window", c.Trajectory.TrendWindow},
		{"trajectory.signal_cap", c.Trajectory.SignalCap},
	}
	for _, p := range positive {
		if p.v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", p.name, p.v))
		}
	}
	if c.Memory.FleetingHorizon <= 0 {
		errs = append(errs, fmt.Errorf("memory.fleeting_horizon must be positive, got %s", c.Memory.FleetingHorizon))
	}

	return errors.Join(errs...)
}
