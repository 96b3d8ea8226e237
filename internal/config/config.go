// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Database DatabaseConfig `json:"database" yaml:"database"`
	Share    ShareConfig    `json:"share" yaml:"share"`
	Display  DisplayConfig  `json:"display" yaml:"display"`
	Cache    CacheConfig    `json:"cache" yaml:"cache"`
	Limits   LimitsConfig   `json:"limits" yaml:"limits"`
	Log      LogConfig      `json:"log" yaml:"log"`

	Environment string `json:"environment" yaml:"environment"` // development, production
	LogLevel    string `json:"log_level" yaml:"log_level"`     // debug, info, warn, error
}

type ServerConfig struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

func (c *ServerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

type DatabaseConfig struct {
	Path     string `json:"path" yaml:"path"`
	InMemory bool   `json:"in_memory" yaml:"in_memory"`
}

func (c *DatabaseConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(!c.InMemory, validation.Required)),
	)
}

// ShareConfig shapes share links: <base_url>/<route_prefix>/<token>.
type ShareConfig struct {
	BaseURL     string `json:"base_url" yaml:"base_url"`
	RoutePrefix string `json:"route_prefix" yaml:"route_prefix"`
}

func (c *ShareConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.RoutePrefix, validation.Required, validation.By(noSlash), validation.NotIn("api", "health")),
	)
}

type DisplayConfig struct {
	Timezone string `json:"timezone" yaml:"timezone"`
}

// Location returns the zone used to render times for viewers.
func (c *DisplayConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q", c.Timezone)
	}
	return loc, nil
}

type CacheConfig struct {
	Size int `json:"size" yaml:"size"`
}

type LimitsConfig struct {
	ActivityMax int `json:"activity_max" yaml:"activity_max"`
	PlaceMax    int `json:"place_max" yaml:"place_max"`
	NoteMax     int `json:"note_max" yaml:"note_max"`
}

func (c *LimitsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ActivityMax, validation.Required, validation.Min(1)),
		validation.Field(&c.PlaceMax, validation.Min(0)),
		validation.Field(&c.NoteMax, validation.Min(0)),
	)
}

// LogConfig enables rotating file output when File is set.
type LogConfig struct {
	File       string `json:"file" yaml:"file"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
}

// Default returns a configuration that runs without a config file.
func Default() *Config {
	var c Config
	c.Server.Host = "127.0.0.1"
	c.Server.Port = 8080
	c.Database.Path = "data/db"
	c.Share.BaseURL = "http://localhost:8080"
	c.Share.RoutePrefix = "i"
	c.Display.Timezone = "Local"
	c.Cache.Size = 1024
	c.Limits.ActivityMax = 120
	c.Limits.PlaceMax = 200
	c.Limits.NoteMax = 280
	c.Log.MaxSizeMB = 10
	c.Log.MaxBackups = 3
	c.Log.MaxAgeDays = 28
	c.Environment = "development"
	c.LogLevel = "info"
	return &c
}

// Path returns the config file for the INTENTLINK_ENV environment.
func Path() string {
	env := os.Getenv("INTENTLINK_ENV")
	if env == "" {
		env = "development"
	}
	return fmt.Sprintf("config/config.%s.json", env)
}

// Load reads a JSON or YAML config file on top of Default. ${VAR}
// references are expanded from the environment before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := Default()
	if err := parse(path, []byte(os.ExpandEnv(string(data))), config); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}

	return config, nil
}

func parse(path string, data []byte, config *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	default:
		return json.Unmarshal(data, config)
	}
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Share.Validate(); err != nil {
		return fmt.Errorf("share: %w", err)
	}
	if _, err := c.Display.Location(); err != nil {
		return fmt.Errorf("display: %w", err)
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("cache: size must not be negative")
	}
	if err := c.Limits.Validate(); err != nil {
		return fmt.Errorf("limits: %w", err)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
	)
}

func noSlash(value interface{}) error {
	s, _ := value.(string)
	if strings.Contains(s, "/") {
		return validation.NewError("validation_slash", "must be a single path segment")
	}
	return nil
}

// Address returns the host:port the server listens on.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
