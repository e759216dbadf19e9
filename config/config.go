package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "RHASIM_"

// Model providers accepted by Validate.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// Config is the full service configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Mongo      MongoConfig      `yaml:"mongo"`
	Model      ModelConfig      `yaml:"model"`
	Simulation SimulationConfig `yaml:"simulation"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// MongoConfig configures session persistence. An empty URI selects the
// in-memory store.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// ModelConfig selects and tunes the text generation backend.
type ModelConfig struct {
	Provider    string  `yaml:"provider"`
	Name        string  `yaml:"name"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// SimulationConfig tunes the turn loop.
type SimulationConfig struct {
	TurnsPerSession int           `yaml:"turns_per_session"`
	AckTimeout      time.Duration `yaml:"ack_timeout"`
	SettlePause     time.Duration `yaml:"settle_pause"`
}

// SchedulerConfig controls the cron auto start and stop of all rooms. Empty
// specs disable the corresponding job.
type SchedulerConfig struct {
	Enabled   bool   `yaml:"enabled"`
	StartSpec string `yaml:"start_spec"`
	StopSpec  string `yaml:"stop_spec"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":3001",
			AllowedOrigins: []string{"*"},
		},
		Mongo: MongoConfig{
			Database: "rha",
		},
		Model: ModelConfig{
			Provider:    ProviderOpenAI,
			Temperature: 0.8,
			MaxTokens:   150,
		},
		Simulation: SimulationConfig{
			TurnsPerSession: 30,
			AckTimeout:      30 * time.Second,
			SettlePause:     800 * time.Millisecond,
		},
		Scheduler: SchedulerConfig{
			// Weekdays: open the floor at 08:00, close it at 18:00.
			StartSpec: "0 8 * * 1-5",
			StopSpec:  "0 18 * * 1-5",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and environment overrides, then validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment overrides. A variable that is set but does
// not parse is an error, not a silent fallback to the previous value.
func (c *Config) applyEnv() error {
	setString(&c.Server.Addr, "ADDR")
	setString(&c.Mongo.URI, "MONGO_URI")
	setString(&c.Mongo.Database, "MONGO_DATABASE")
	setString(&c.Model.Provider, "MODEL_PROVIDER")
	setString(&c.Model.Name, "MODEL_NAME")
	setString(&c.Model.APIKey, "MODEL_API_KEY")
	setString(&c.Model.BaseURL, "MODEL_BASE_URL")
	setString(&c.Scheduler.StartSpec, "CRON_START")
	setString(&c.Scheduler.StopSpec, "CRON_STOP")
	setString(&c.Log.Level, "LOG_LEVEL")

	if err := setFloat(&c.Model.Temperature, "MODEL_TEMPERATURE"); err != nil {
		return err
	}
	if err := setInt(&c.Model.MaxTokens, "MODEL_MAX_TOKENS"); err != nil {
		return err
	}
	if err := setInt(&c.Simulation.TurnsPerSession, "TURNS_PER_SESSION"); err != nil {
		return err
	}
	if err := setDuration(&c.Simulation.AckTimeout, "ACK_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&c.Simulation.SettlePause, "SETTLE_PAUSE"); err != nil {
		return err
	}
	if err := setBool(&c.Scheduler.Enabled, "SCHEDULER_ENABLED"); err != nil {
		return err
	}
	return nil
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderMock:
	default:
		return fmt.Errorf("unknown model provider %q", c.Model.Provider)
	}
	if c.Simulation.TurnsPerSession <= 0 {
		return fmt.Errorf("turns_per_session must be positive, got %d", c.Simulation.TurnsPerSession)
	}
	if c.Simulation.AckTimeout <= 0 {
		return fmt.Errorf("ack_timeout must be positive, got %s", c.Simulation.AckTimeout)
	}
	if c.Simulation.SettlePause < 0 {
		return fmt.Errorf("settle_pause must not be negative, got %s", c.Simulation.SettlePause)
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("parse %s%s=%q: %w", EnvPrefix, key, v, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("parse %s%s=%q: %w", EnvPrefix, key, v, err)
	}
	*dst = f
	return nil
}

func setBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("parse %s%s=%q: %w", EnvPrefix, key, v, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parse %s%s=%q: %w", EnvPrefix, key, v, err)
	}
	*dst = d
	return nil
}
