// Package config provides Viper-based configuration loading for the battle server and tools.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides (SKIRMISH_ENGINE_MAX_ROUNDS, ...).
const EnvPrefix = "SKIRMISH"

// DatabaseConfig holds PostgreSQL connection settings for the report store.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// AutoMigrate applies pending schema migrations when the store opens.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// EngineConfig holds the rules-engine limits and pacing durations.
//
// A zero pacing duration makes the corresponding step complete immediately,
// which is what headless simulations and tests use.
type EngineConfig struct {
	// MaxRounds is the round cap after which a battle ends in a stalemate.
	MaxRounds int `mapstructure:"max_rounds"`
	// AIActionDelay is the pause between AI sub-steps.
	AIActionDelay time.Duration `mapstructure:"ai_action_delay"`
	// MoveCellDuration is the animation time for one cell of movement.
	MoveCellDuration time.Duration `mapstructure:"move_cell_duration"`
	// DeathFadeDuration is the length of the death animation.
	DeathFadeDuration time.Duration `mapstructure:"death_fade_duration"`
	// FloatingTextDuration is how long transient messages stay in the snapshot.
	FloatingTextDuration time.Duration `mapstructure:"floating_text_duration"`
	// TickInterval is the animation tick period used by the server.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// Seed seeds the deterministic dice source; 0 selects crypto/rand.
	Seed int64 `mapstructure:"seed"`
}

// GRPCConfig holds the battle service listener settings.
type GRPCConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// MaxConns caps concurrently accepted connections; 0 means unlimited.
	MaxConns int `mapstructure:"max_conns"`
}

// Addr returns the "host:port" gRPC address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (g GRPCConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.Host, g.Port)
}

// StorageConfig selects the battle report store.
type StorageConfig struct {
	// Driver is one of "postgres", "sqlite" or "none".
	Driver string `mapstructure:"driver"`
	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string `mapstructure:"sqlite_path"`
}

// TelemetryConfig controls OpenTelemetry trace export.
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
	// Endpoint is the OTLP/HTTP collector URL, e.g. "http://localhost:4318".
	Endpoint string `mapstructure:"endpoint"`
}

// Config is the top-level application configuration.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Engine    EngineConfig    `mapstructure:"engine"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if c.Storage.Driver == "postgres" {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateEngine(c.Engine); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateGRPC(c.GRPC); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateStorage(c.Storage); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		errs = append(errs, "telemetry.endpoint must not be empty when telemetry is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 || d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must be between 0 and database.max_conns")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateEngine(e EngineConfig) error {
	var errs []string
	if e.MaxRounds < 1 {
		errs = append(errs, fmt.Sprintf("engine.max_rounds must be >= 1, got %d", e.MaxRounds))
	}
	for name, d := range map[string]time.Duration{
		"engine.ai_action_delay":        e.AIActionDelay,
		"engine.move_cell_duration":     e.MoveCellDuration,
		"engine.death_fade_duration":    e.DeathFadeDuration,
		"engine.floating_text_duration": e.FloatingTextDuration,
		"engine.tick_interval":          e.TickInterval,
	} {
		if d < 0 {
			errs = append(errs, name+" must not be negative")
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateGRPC(g GRPCConfig) error {
	var errs []string
	if g.Host == "" {
		errs = append(errs, "grpc.host must not be empty")
	}
	if g.Port < 1 || g.Port > 65535 {
		errs = append(errs, fmt.Sprintf("grpc.port must be 1-65535, got %d", g.Port))
	}
	if g.MaxConns < 0 {
		errs = append(errs, fmt.Sprintf("grpc.max_conns must be >= 0, got %d", g.MaxConns))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateStorage(s StorageConfig) error {
	switch s.Driver {
	case "none", "postgres":
		return nil
	case "sqlite":
		if s.SQLitePath == "" {
			return errors.New("storage.sqlite_path must not be empty for the sqlite driver")
		}
		return nil
	default:
		return fmt.Errorf("storage.driver must be one of [none, postgres, sqlite], got %q", s.Driver)
	}
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := NewViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// NewViper returns a Viper instance carrying the defaults and the SKIRMISH_
// environment binding, without any config file attached.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "skirmish")
	v.SetDefault("database.password", "skirmish")
	v.SetDefault("database.name", "skirmish")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("engine.max_rounds", 100)
	v.SetDefault("engine.ai_action_delay", "500ms")
	v.SetDefault("engine.move_cell_duration", "100ms")
	v.SetDefault("engine.death_fade_duration", "1s")
	v.SetDefault("engine.floating_text_duration", "1500ms")
	v.SetDefault("engine.tick_interval", "16ms")
	v.SetDefault("engine.seed", 0)

	v.SetDefault("grpc.host", "127.0.0.1")
	v.SetDefault("grpc.port", 50061)
	v.SetDefault("grpc.max_conns", 64)

	v.SetDefault("storage.driver", "none")
	v.SetDefault("storage.sqlite_path", "skirmish.db")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "skirmish")
}
