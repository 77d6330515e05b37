// Package config loads the scheduler configuration from a YAML file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/arnavshah/oh-scheduler-go/internal/optimizer"
	"github.com/arnavshah/oh-scheduler-go/internal/state"
)

// DefaultPath is where the CLI and server look for the config file.
const DefaultPath = "scheduler.yaml"

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the root configuration.
type Config struct {
	Section  string `yaml:"section"`  // course, e.g. "cs61a"
	Semester string `yaml:"semester"` // e.g. "fa23"

	Weeks                int    `yaml:"weeks"`
	WeeksSkipped         int    `yaml:"weeks_skipped"`
	WeeklyHourMultiplier int    `yaml:"weekly_hour_multiplier"`
	StartDate            string `yaml:"start_date"` // YYYY-MM-DD

	Optimizer optimizer.Config `yaml:"optimizer"`
	Sources   SourcesConfig    `yaml:"sources"`
	Storage   StorageConfig    `yaml:"storage"`
	Lease     LeaseConfig      `yaml:"lease"`
	Calendar  CalendarConfig   `yaml:"calendar"`
	Server    ServerConfig     `yaml:"server"`

	LogMode string `yaml:"log_mode"` // "development", "production" or "test"

	// Populated from the environment only.
	Database DatabaseConfig `yaml:"-"`
	Auth     AuthConfig     `yaml:"-"`
	Tracing  bool           `yaml:"-"`
}

// SourcesConfig names where availability and demand come from. Sheets
// links win over CSV paths when both are set.
type SourcesConfig struct {
	AvailabilitySheet string `yaml:"availability_sheet"`
	DemandSheet       string `yaml:"demand_sheet"`
	AvailabilityCSV   string `yaml:"availability_csv"`
	DemandCSV         string `yaml:"demand_csv"`
}

func (s SourcesConfig) UsesSheets() bool {
	return s.AvailabilitySheet != "" || s.DemandSheet != ""
}

// StorageConfig selects the blob store holding weekly states.
type StorageConfig struct {
	Backend string `yaml:"backend"` // "gcs", "db" or "memory"
	Bucket  string `yaml:"bucket"`
}

// LeaseConfig selects the lock serialising runs over one chain.
type LeaseConfig struct {
	Backend       string        `yaml:"backend"` // "redis", "db" or "memory"
	TTL           time.Duration `yaml:"ttl"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"-"`
}

// CalendarConfig controls invite dispatch after a run.
type CalendarConfig struct {
	Enabled     bool   `yaml:"enabled"`
	CalendarID  string `yaml:"calendar_id"`
	Summary     string `yaml:"summary"`
	Location    string `yaml:"location"`
	Description string `yaml:"description"`
	TimeZone    string `yaml:"time_zone"`
	Parallel    int    `yaml:"parallel"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type DatabaseConfig struct {
	URL   string
	Path  string
	Debug bool
}

type AuthConfig struct {
	JWTSecret     string
	MasterSecret  string
	AdminUsername string
	AdminPassword string
}

// Default returns a configuration with every optional field filled in.
func Default() *Config {
	return &Config{
		WeeklyHourMultiplier: 2,
		Optimizer:            optimizer.DefaultConfig(),
		Storage:              StorageConfig{Backend: "db"},
		Lease:                LeaseConfig{Backend: "db", TTL: 10 * time.Minute},
		Calendar: CalendarConfig{
			CalendarID: "primary",
			Summary:    "Office Hours",
			TimeZone:   "America/Los_Angeles",
			Parallel:   4,
		},
		Server:  ServerConfig{Port: "8000"},
		LogMode: "development",
		Auth: AuthConfig{
			AdminUsername: "admin",
			AdminPassword: "admin123",
		},
	}
}

// LoadEnv loads the first .env file found in the working directory or
// its parents.
func LoadEnv() {
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			break
		}
	}
}

// Load reads path, applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv is the configuration of a server with no section configured.
// Only environment settings apply and nothing is validated.
func FromEnv() *Config {
	cfg := Default()
	cfg.applyEnv(os.Getenv)
	return cfg
}

// Parse decodes YAML over the defaults without consulting the environment.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Database.URL, "DATABASE_URL")
	set(&c.Database.Path, "DATA_PATH")
	set(&c.Server.Port, "PORT")
	set(&c.Lease.RedisAddr, "REDIS_ADDR")
	set(&c.Lease.RedisPassword, "REDIS_PASSWORD")
	set(&c.Storage.Bucket, "GCS_BUCKET")
	set(&c.LogMode, "LOG_MODE")
	set(&c.Auth.JWTSecret, "JWT_SECRET")
	set(&c.Auth.MasterSecret, "API_MASTER_SECRET")
	set(&c.Auth.AdminUsername, "ADMIN_USERNAME")
	set(&c.Auth.AdminPassword, "ADMIN_PASSWORD")

	if v, err := strconv.ParseBool(getenv("OTEL_ENABLED")); err == nil {
		c.Tracing = v
	}
	if v, err := strconv.ParseBool(getenv("DB_DEBUG")); err == nil {
		c.Database.Debug = v
	}
}

// Prefix is the blob store prefix of this section's chain, e.g. "cs61a-fa23".
func (c *Config) Prefix() string {
	return c.Section + "-" + c.Semester
}

func (c *Config) ChainConfig() state.ChainConfig {
	return state.ChainConfig{
		Section:      c.Section,
		WeeksTotal:   c.Weeks,
		WeeksSkipped: c.WeeksSkipped,
		Multiplier:   c.WeeklyHourMultiplier,
	}
}

// Validate checks every field a run depends on.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Section) == "" {
		problems = append(problems, "section is required")
	}
	if strings.TrimSpace(c.Semester) == "" {
		problems = append(problems, "semester is required")
	}
	if c.Weeks < 1 {
		problems = append(problems, "weeks must be positive")
	}
	if c.WeeksSkipped < 0 || c.WeeksSkipped >= c.Weeks {
		problems = append(problems, "weeks_skipped must be at least 0 and less than weeks")
	}
	if c.WeeklyHourMultiplier < 1 {
		problems = append(problems, "weekly_hour_multiplier must be at least 1")
	}
	if _, err := time.Parse("2006-01-02", c.StartDate); err != nil {
		problems = append(problems, "start_date must be YYYY-MM-DD")
	}
	if err := c.Optimizer.Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	s := c.Sources
	switch {
	case s.UsesSheets():
		if s.AvailabilitySheet == "" || s.DemandSheet == "" {
			problems = append(problems, "both availability_sheet and demand_sheet are required")
		}
	case s.AvailabilityCSV == "" || s.DemandCSV == "":
		problems = append(problems, "sources need both sheets or both csv paths")
	}

	switch c.Storage.Backend {
	case "gcs":
		if c.Storage.Bucket == "" {
			problems = append(problems, "storage.bucket is required for gcs")
		}
	case "db", "memory":
	default:
		problems = append(problems, fmt.Sprintf("unknown storage backend %q", c.Storage.Backend))
	}

	switch c.Lease.Backend {
	case "redis":
		if c.Lease.RedisAddr == "" {
			problems = append(problems, "lease.redis_addr or REDIS_ADDR is required for redis")
		}
	case "db", "memory":
	default:
		problems = append(problems, fmt.Sprintf("unknown lease backend %q", c.Lease.Backend))
	}
	if c.Lease.TTL <= 0 {
		problems = append(problems, "lease.ttl must be positive")
	} else if c.Lease.TTL <= c.Optimizer.TimeLimit {
		problems = append(problems, "lease.ttl must exceed optimizer.time_limit")
	}
	if c.Calendar.Enabled && c.Calendar.Parallel < 1 {
		problems = append(problems, "calendar.parallel must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
