package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// GeoSpawn holds all configuration for the spawn service.
type GeoSpawn struct {
	// Network
	BindAddress  string        `yaml:"bind_address"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	LogLevel string `yaml:"log_level"` // debug, info, warn, error

	PokeAPI  PokeAPIConfig  `yaml:"pokeapi"`
	Spawn    SpawnConfig    `yaml:"spawn"`
	Location LocationConfig `yaml:"location"`
	Session  SessionConfig  `yaml:"session"`
	Database DatabaseConfig `yaml:"database"`
}

// PokeAPIConfig configures the remote creature lookup.
type PokeAPIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// SpawnConfig holds per-device scheduler parameters.
type SpawnConfig struct {
	WarmUp        time.Duration `yaml:"warm_up"`
	Interval      time.Duration `yaml:"interval"`
	MaxPopulation int           `yaml:"max_population"`
	Spread        float64       `yaml:"spread"` // degrees
	CatalogMin    int           `yaml:"catalog_min"`
	CatalogMax    int           `yaml:"catalog_max"`
}

// LocationConfig controls how device fixes are accepted.
type LocationConfig struct {
	MinDistance       float64 `yaml:"min_distance"` // meters
	FallbackLatitude  float64 `yaml:"fallback_latitude"`
	FallbackLongitude float64 `yaml:"fallback_longitude"`
}

// SessionConfig controls device session lifetime and catching.
type SessionConfig struct {
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	ReapInterval time.Duration `yaml:"reap_interval"`
	CatchRadius  float64       `yaml:"catch_radius"` // meters
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Default returns GeoSpawn config with sensible defaults.
func Default() GeoSpawn {
	return GeoSpawn{
		BindAddress:  "0.0.0.0",
		Port:         8080,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		LogLevel:     "info",
		PokeAPI: PokeAPIConfig{
			BaseURL: "https://pokeapi.co/api/v2",
			Timeout: 10 * time.Second,
		},
		Spawn: SpawnConfig{
			WarmUp:        1 * time.Second,
			Interval:      3 * time.Second,
			MaxPopulation: 20,
			Spread:        0.01,
			CatalogMin:    1,
			CatalogMax:    151,
		},
		Location: LocationConfig{
			MinDistance:       1,
			FallbackLatitude:  37.78825, // used when a device reports no sensor
			FallbackLongitude: -122.4324,
		},
		Session: SessionConfig{
			IdleTimeout:  5 * time.Minute,
			ReapInterval: 30 * time.Second,
			CatchRadius:  250,
		},
		Database: DatabaseConfig{
			Enabled:  false,
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "geospawn",
			Password: "geospawn",
			DBName:   "geospawn",
			SSLMode:  "disable",
		},
	}
}

// Load loads config from a YAML file.
// If the file doesn't exist, returns defaults.
func Load(path string) (GeoSpawn, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate rejects values the service cannot run with.
func (c GeoSpawn) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Spawn.Interval <= 0 {
		return fmt.Errorf("spawn.interval must be positive, got %s", c.Spawn.Interval)
	}
	if c.Spawn.MaxPopulation <= 0 {
		return fmt.Errorf("spawn.max_population must be positive, got %d", c.Spawn.MaxPopulation)
	}
	if c.Spawn.CatalogMin <= 0 || c.Spawn.CatalogMax < c.Spawn.CatalogMin {
		return fmt.Errorf("spawn catalog range [%d, %d] invalid", c.Spawn.CatalogMin, c.Spawn.CatalogMax)
	}
	if c.Session.ReapInterval <= 0 {
		return fmt.Errorf("session.reap_interval must be positive, got %s", c.Session.ReapInterval)
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c GeoSpawn) Addr() string {
	return fmt.Sprintf("%s:%d", c.BindAddress, c.Port)
}

// SlogLevel maps LogLevel to a slog level (info for unknown values).
func (c GeoSpawn) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
