package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Timezone is the single operating timezone for the deployment.
	Timezone string `yaml:"timezone"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	API struct {
		Port            int    `yaml:"port"`
		Key             string `yaml:"key"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
		RatePerSecond   int    `yaml:"rate_per_second"`
		RateBurst       int    `yaml:"rate_burst"`
	} `yaml:"api"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Booking struct {
		SlotGranularityMinutes int    `yaml:"slot_granularity_minutes"`
		EveningStart           string `yaml:"evening_start"`
		DefaultDayCount        int    `yaml:"default_day_count"`
		MaxDayCount            int    `yaml:"max_day_count"`
	} `yaml:"booking"`

	Sweep struct {
		IntervalMinutes int `yaml:"interval_minutes"`
	} `yaml:"sweep"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/mesa.db"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Location loads the configured operating timezone, defaulting to UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

func (c *Config) SlotGranularity() time.Duration {
	if c.Booking.SlotGranularityMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Booking.SlotGranularityMinutes) * time.Minute
}

func (c *Config) EveningStart() string {
	if c.Booking.EveningStart == "" {
		return "17:00"
	}
	return c.Booking.EveningStart
}

func (c *Config) DayCount() int {
	if c.Booking.DefaultDayCount <= 0 {
		return 14
	}
	return c.Booking.DefaultDayCount
}

func (c *Config) MaxDayCount() int {
	if c.Booking.MaxDayCount <= 0 {
		return 90
	}
	return c.Booking.MaxDayCount
}

func (c *Config) SweepInterval() time.Duration {
	if c.Sweep.IntervalMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Sweep.IntervalMinutes) * time.Minute
}

func (c *Config) CacheTTL() time.Duration {
	if c.API.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.API.CacheTTLSeconds) * time.Second
}
