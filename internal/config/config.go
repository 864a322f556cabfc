package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"medsched/internal/model"
)

type Config struct {
	API struct {
		BaseURL           string  `yaml:"base_url"`
		APIKey            string  `yaml:"api_key"`
		Token             string  `yaml:"token"`
		TimeoutSeconds    int     `yaml:"timeout_seconds"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
		CacheTTLSeconds   int     `yaml:"cache_ttl_seconds"`
	} `yaml:"api"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Doctor struct {
		ID string `yaml:"id"`
	} `yaml:"doctor"`

	Schedule struct {
		HorizonDays int    `yaml:"horizon_days"`
		Timezone    string `yaml:"timezone"`
	} `yaml:"schedule"`

	Server struct {
		Port    int      `yaml:"port"`
		APIKeys []string `yaml:"api_keys"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		Schedule      string `yaml:"schedule"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Logging struct {
		Level   string `yaml:"level"`
		Console *bool  `yaml:"console"`
	} `yaml:"logging"`
}

// Load reads the YAML config at path. A .env file next to the working
// directory is loaded first so its variables can fill ${VAR} placeholders.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
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
		cfg.Database.Path = "data/medsched.db"
	}
	if cfg.Doctor.ID == "" {
		cfg.Doctor.ID = os.Getenv("DOCTOR_ID")
	}

	return &cfg, nil
}

func (c *Config) APITimeout() time.Duration {
	if c.API.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	if c.API.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.API.CacheTTLSeconds) * time.Second
}

func (c *Config) HorizonDays() int {
	if c.Schedule.HorizonDays <= 0 {
		return model.DefaultHorizonDays
	}
	return c.Schedule.HorizonDays
}

// Location is the clinic time zone used to decide "today".
func (c *Config) Location() (*time.Location, error) {
	if c.Schedule.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Schedule.Timezone)
}

// APIKeys returns the configured server keys without blank entries, so an
// unset ${VAR} placeholder does not become an empty accepted key.
func (c *Config) APIKeys() []string {
	keys := make([]string, 0, len(c.Server.APIKeys))
	for _, k := range c.Server.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func (c *Config) ServerPort() int {
	if c.Server.Port == 0 {
		return 8080
	}
	return c.Server.Port
}

// BackupSchedule is a cron spec; daily at 03:00 by default.
func (c *Config) BackupSchedule() string {
	if c.Backup.Schedule == "" {
		return "0 3 * * *"
	}
	return c.Backup.Schedule
}

func (c *Config) BackupRetention() time.Duration {
	if c.Backup.RetentionDays <= 0 {
		return 30 * 24 * time.Hour
	}
	return time.Duration(c.Backup.RetentionDays) * 24 * time.Hour
}

func (c *Config) LogLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.Logging.Level)
	if err != nil || c.Logging.Level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

func (c *Config) LogConsole() bool {
	return c.Logging.Console == nil || *c.Logging.Console
}
