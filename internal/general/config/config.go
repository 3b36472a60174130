package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"fleet-tracker/internal/tracking/store"
)

const (
	RosterStatic   = "static"
	RosterPostgres = "postgres"
)

type Config struct {
	Tracking  Tracking  `yaml:"tracking"`
	Roster    Roster    `yaml:"roster"`
	Database  Database  `yaml:"database"`
	RabbitMQ  RabbitMQ  `yaml:"rabbitmq"`
	Dashboard Dashboard `yaml:"dashboard"`
}

type Tracking struct {
	TickInterval   time.Duration `yaml:"tick_interval" validate:"gt=0"`
	DebounceWindow time.Duration `yaml:"debounce_window" validate:"gt=0"`
	NoticeTTL      time.Duration `yaml:"notice_ttl" validate:"gt=0"`
	PathSteps      int           `yaml:"path_steps" validate:"gt=0,lte=10000"`
	FrameInterval  time.Duration `yaml:"frame_interval" validate:"gt=0"`
	CenterZoom     float64       `yaml:"center_zoom" validate:"gte=0,lte=22"`
	FlyDuration    time.Duration `yaml:"fly_duration" validate:"gte=0"`
}

type Roster struct {
	Source string `yaml:"source" validate:"oneof=static postgres"`
}

type Database struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" validate:"gt=0,lte=65535"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"database"`
}

type RabbitMQ struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" validate:"gt=0,lte=65535"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Exchange string `yaml:"exchange" validate:"required"`
}

type Dashboard struct {
	Port          int `yaml:"port" validate:"gt=0,lte=65535"`
	MaxConcurrent int `yaml:"max_concurrent" validate:"gt=0"`
}

// Default is the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// Load reads a YAML file, applies defaults and validates the result. A
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	d := store.DefaultConfig()
	t := &cfg.Tracking
	if t.TickInterval == 0 {
		t.TickInterval = d.TickInterval
	}
	if t.DebounceWindow == 0 {
		t.DebounceWindow = d.DebounceWindow
	}
	if t.NoticeTTL == 0 {
		t.NoticeTTL = d.NoticeTTL
	}
	if t.PathSteps == 0 {
		t.PathSteps = d.PathSteps
	}
	if t.FrameInterval == 0 {
		t.FrameInterval = d.FrameInterval
	}
	if t.CenterZoom == 0 {
		t.CenterZoom = d.CenterZoom
	}
	if t.FlyDuration == 0 {
		t.FlyDuration = d.FlyDuration
	}

	if cfg.Roster.Source == "" {
		cfg.Roster.Source = RosterStatic
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}

	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "localhost"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}
	if cfg.RabbitMQ.Exchange == "" {
		cfg.RabbitMQ.Exchange = "telemetry_fanout"
	}

	if cfg.Dashboard.Port == 0 {
		cfg.Dashboard.Port = 3010
	}
	if cfg.Dashboard.MaxConcurrent == 0 {
		cfg.Dashboard.MaxConcurrent = 64
	}
}

// validate runs the struct tags first, then the cross-section rules.
func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	var problems []string
	if c.Roster.Source == RosterPostgres {
		if c.Database.User == "" {
			problems = append(problems, "database.user is required for the postgres roster")
		}
		if c.Database.Name == "" {
			problems = append(problems, "database.database is required for the postgres roster")
		}
	}
	if c.RabbitMQ.Enabled && c.RabbitMQ.User == "" {
		problems = append(problems, "rabbitmq.user is required when export is enabled")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// StoreConfig maps the tracking section onto the store's knobs.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		TickInterval:   c.Tracking.TickInterval,
		DebounceWindow: c.Tracking.DebounceWindow,
		NoticeTTL:      c.Tracking.NoticeTTL,
		FrameInterval:  c.Tracking.FrameInterval,
		PathSteps:      c.Tracking.PathSteps,
		CenterZoom:     c.Tracking.CenterZoom,
		FlyDuration:    c.Tracking.FlyDuration,
	}
}
