// Package config loads server configuration from an optional TOML file,
// applies environment overrides and validates the result.
package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

var validate = validator.New()

// Config is the full server configuration.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	Auth        AuthConfig        `toml:"auth"`
	Progression ProgressionConfig `toml:"progression"`
	RateLimit   RateLimitConfig   `toml:"ratelimit"`
	Log         LogConfig         `toml:"log"`
}

type ServerConfig struct {
	Port         int      `toml:"port"          validate:"min=1,max=65535"`
	ReadTimeout  Duration `toml:"read_timeout"  validate:"gt=0"`
	WriteTimeout Duration `toml:"write_timeout" validate:"gt=0"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type DatabaseConfig struct {
	Driver   string `toml:"driver"    validate:"oneof=sqlite postgres"`
	Path     string `toml:"path"      validate:"required_if=Driver sqlite"`
	URL      string `toml:"url"       validate:"required_if=Driver postgres"`
	PoolSize int    `toml:"pool_size" validate:"min=0"`
}

// AuthConfig configures sessions and GitHub login. With an empty JWTSecret
// the server signs sessions with a random per-process key, so every session
// ends on restart.
type AuthConfig struct {
	JWTSecret          string   `toml:"jwt_secret"           validate:"omitempty,min=16"`
	TokenTTL           Duration `toml:"token_ttl"            validate:"gt=0"`
	CookieSecure       bool     `toml:"cookie_secure"`
	GitHubClientID     string   `toml:"github_client_id"`
	GitHubClientSecret string   `toml:"github_client_secret" validate:"required_with=GitHubClientID"`
	GitHubCallbackURL  string   `toml:"github_callback_url"  validate:"omitempty,url"`
}

type ProgressionConfig struct {
	Timezone               string   `toml:"timezone"                validate:"required"`
	StrictSelections       bool     `toml:"strict_selections"`
	ResetCheckInterval     Duration `toml:"reset_check_interval"    validate:"gt=0"`
	CatalogPath            string   `toml:"catalog_path"`
	LeaderboardConcurrency int      `toml:"leaderboard_concurrency" validate:"min=1"`
	ProfileCacheSize       int      `toml:"profile_cache_size"      validate:"min=1"`
}

type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second" validate:"gt=0"`
	Burst             int     `toml:"burst"               validate:"min=1"`
	MaxClients        int     `toml:"max_clients"         validate:"min=1"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"     validate:"oneof=text json"`
	AddSource bool       `toml:"add_source"`
}

// Duration is a time.Duration written as a string ("15m", "1h30m").
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  Duration(15 * time.Second),
			WriteTimeout: Duration(15 * time.Second),
		},
		Database: DatabaseConfig{
			Driver:   DriverSQLite,
			Path:     "data/skilltree.db",
			PoolSize: 10,
		},
		Auth: AuthConfig{
			TokenTTL: Duration(24 * time.Hour),
		},
		Progression: ProgressionConfig{
			Timezone:               "Local",
			StrictSelections:       true,
			ResetCheckInterval:     Duration(time.Hour),
			LeaderboardConcurrency: 8,
			ProfileCacheSize:       1024,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 10,
			Burst:             20,
			MaxClients:        10_000,
		},
		Log: LogConfig{
			Level:  slog.LevelInfo,
			Format: "text",
		},
	}
}

// Load reads path (if non-empty) over the defaults, applies environment
// overrides and validates. Keys missing from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
		dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("config: decoding %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides fields from the environment. DATABASE_URL also switches
// the driver to postgres.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(name)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}

	if v, ok := get("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v, ok := get("DB_PATH"); ok {
		c.Database.Path = v
	}
	if v, ok := get("DATABASE_URL"); ok {
		c.Database.URL = v
		c.Database.Driver = DriverPostgres
	}
	if v, ok := get("JWT_SECRET"); ok {
		c.Auth.JWTSecret = v
	}
	if v, ok := get("GITHUB_CLIENT_ID"); ok {
		c.Auth.GitHubClientID = v
	}
	if v, ok := get("GITHUB_CLIENT_SECRET"); ok {
		c.Auth.GitHubClientSecret = v
	}
	if v, ok := get("GITHUB_CALLBACK_URL"); ok {
		c.Auth.GitHubCallbackURL = v
	}
	if v, ok := get("TZ_NAME"); ok {
		c.Progression.Timezone = v
	}
	return nil
}

// Validate checks struct tags and that the timezone resolves.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.Progression.Location(); err != nil {
		return fmt.Errorf("config: progression.timezone: %w", err)
	}
	return nil
}

// Location resolves Timezone. "Local" is the process's zone.
func (p ProgressionConfig) Location() (*time.Location, error) {
	if p.Timezone == "" || p.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(p.Timezone)
}

// GitHubEnabled reports whether GitHub login is configured.
func (a AuthConfig) GitHubEnabled() bool {
	return a.GitHubClientID != "" && a.GitHubClientSecret != ""
}

// CallbackURL returns the configured GitHub callback, or the local default.
func (c Config) CallbackURL() string {
	if c.Auth.GitHubCallbackURL != "" {
		return c.Auth.GitHubCallbackURL
	}
	return fmt.Sprintf("http://localhost:%d/auth/github/callback", c.Server.Port)
}
