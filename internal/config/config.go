package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       App       `mapstructure:"app"`
	Sources   Sources   `mapstructure:"sources"`
	Reasoning Reasoning `mapstructure:"reasoning"`
	Store     Store     `mapstructure:"store"`
	Scheduler Scheduler `mapstructure:"scheduler"`
	Server    Server    `mapstructure:"server"`
}

// App holds general application configuration
type App struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	DataDir  string `mapstructure:"data_dir"`
}

// Source describes a single configured intelligence source.
type Source struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
	Kind string `mapstructure:"kind"` // "feed" or "mock"
}

// Sources holds source adapter configuration
type Sources struct {
	Feeds          []Source `mapstructure:"feeds"`
	UseMock        bool     `mapstructure:"use_mock"`
	Timeout        string   `mapstructure:"timeout"`
	MaxConcurrency int      `mapstructure:"max_concurrency"`
	UserAgent      string   `mapstructure:"user_agent"`
	// FilterFallback keeps the original behavior of returning the full
	// unfiltered set when a keyword filter matches nothing.
	FilterFallback bool   `mapstructure:"filter_fallback"`
	PolitenessWait string `mapstructure:"politeness_wait"`
}

// Reasoning holds LLM reasoning stage configuration
type Reasoning struct {
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	Timeout        string  `mapstructure:"timeout"`
	Temperature    float32 `mapstructure:"temperature"`
	MaxCallsPerRun int     `mapstructure:"max_calls_per_run"`
	Enabled        bool    `mapstructure:"enabled"`
}

// Store holds persistence configuration
type Store struct {
	DataDir string `mapstructure:"data_dir"`
	Timeout string `mapstructure:"timeout"`
}

// Scheduler holds scan scheduling configuration
type Scheduler struct {
	IntervalHours int  `mapstructure:"interval_hours"`
	Enabled       bool `mapstructure:"enabled"`
}

// Server holds HTTP server configuration
type Server struct {
	Host            string   `mapstructure:"host"`
	Port            int      `mapstructure:"port"`
	ReadTimeout     string   `mapstructure:"read_timeout"`
	WriteTimeout    string   `mapstructure:"write_timeout"`
	ShutdownTimeout string   `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string `mapstructure:"cors_origins"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	// Configure viper
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".trendpulse")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// Reset clears the cached configuration. Intended for tests.
func Reset() {
	globalConfig = nil
	viper.Reset()
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.data_dir", ".trendpulse")

	// Source defaults
	viper.SetDefault("sources.use_mock", false)
	viper.SetDefault("sources.timeout", "30s")
	viper.SetDefault("sources.max_concurrency", 5)
	viper.SetDefault("sources.user_agent", "Trendpulse/1.0")
	viper.SetDefault("sources.filter_fallback", true)
	viper.SetDefault("sources.politeness_wait", "0s")

	// Reasoning defaults
	viper.SetDefault("reasoning.model", "gemini-flash-lite-latest")
	viper.SetDefault("reasoning.timeout", "20s")
	viper.SetDefault("reasoning.temperature", 0.3)
	viper.SetDefault("reasoning.max_calls_per_run", 10)
	viper.SetDefault("reasoning.enabled", true)

	// Store defaults
	viper.SetDefault("store.data_dir", ".trendpulse")
	viper.SetDefault("store.timeout", "5s")

	// Scheduler defaults
	viper.SetDefault("scheduler.interval_hours", 4)
	viper.SetDefault("scheduler.enabled", true)

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.shutdown_timeout", "10s")
	viper.SetDefault("server.cors_origins", []string{"*"})
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("reasoning.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"TRENDPULSE_DEBUG",
	})

	bindEnvKeys("sources.use_mock", []string{
		"TRENDPULSE_USE_MOCK",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// validateConfig checks duration fields and scheduling bounds.
func validateConfig(config *Config) error {
	durations := map[string]string{
		"sources.timeout":         config.Sources.Timeout,
		"sources.politeness_wait": config.Sources.PolitenessWait,
		"reasoning.timeout":       config.Reasoning.Timeout,
		"store.timeout":           config.Store.Timeout,
		"server.read_timeout":     config.Server.ReadTimeout,
		"server.write_timeout":    config.Server.WriteTimeout,
		"server.shutdown_timeout": config.Server.ShutdownTimeout,
	}
	for key, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", key, err)
		}
	}

	if config.Scheduler.IntervalHours < 1 || config.Scheduler.IntervalHours > 24 {
		return fmt.Errorf("scheduler.interval_hours must be in [1,24], got %d", config.Scheduler.IntervalHours)
	}

	return nil
}

// Duration parses a configured duration string, falling back to def on error.
func Duration(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}
