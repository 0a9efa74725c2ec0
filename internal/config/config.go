package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Engine   EngineConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Env      string
	Port     string
	LogLevel string // debug, info, warn, error
}

// DatabaseConfig holds the sqlite database location
type DatabaseConfig struct {
	Path string
}

// JWTConfig holds token signing settings
type JWTConfig struct {
	Secret string
}

// EngineConfig holds clearing engine behavior flags
type EngineConfig struct {
	// FailureRate is the synthetic per-detail failure probability used by
	// the simulated settlement adapter. Replaced by a real adapter in
	// production deployments.
	FailureRate float64
	// SuppressNettedOriginals marks the original transactions of a fully
	// netted pair as superseded instead of leaving them alongside the
	// netting result. Open product decision, so it is a flag.
	SuppressNettedOriginals bool
	// BatchWorkers bounds parallelism across instructions in one batch.
	BatchWorkers int
}

// Load reads configuration from config.yaml (if present) and the
// environment. Environment variables use the FCA_ prefix with
// underscores, e.g. FCA_APP_PORT.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.loglevel", "info")
	v.SetDefault("database.path", "clearing.db")
	v.SetDefault("jwt.secret", "freight-clearing-secret-key")
	v.SetDefault("engine.failurerate", 0.05)
	v.SetDefault("engine.suppressnettedoriginals", false)
	v.SetDefault("engine.batchworkers", 5)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FCA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Engine.FailureRate < 0 || cfg.Engine.FailureRate > 1 {
		return nil, fmt.Errorf("engine failure rate must be in [0,1], got %f", cfg.Engine.FailureRate)
	}
	if cfg.Engine.BatchWorkers < 1 {
		cfg.Engine.BatchWorkers = 1
	}

	return &cfg, nil
}
