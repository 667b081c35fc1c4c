package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	DocumentPath string `env:"LIVEBAG_DOCUMENT"`

	LogFormat       string `env:"LIVEBAG_LOG_FORMAT"       envDefault:"text"`
	LogLevel        string `env:"LIVEBAG_LOG_LEVEL"        envDefault:"info"`
	HealthcheckPort int    `env:"LIVEBAG_HEALTHCHECK_PORT" envDefault:"0"`

	TickInterval  time.Duration `env:"LIVEBAG_TICK"          envDefault:"16ms"`
	ReloadIdle    time.Duration `env:"LIVEBAG_RELOAD_IDLE"   envDefault:"10ms"`
	Debounce      time.Duration `env:"LIVEBAG_DEBOUNCE"      envDefault:"100ms"`
	Watch         bool          `env:"LIVEBAG_WATCH"         envDefault:"true"`
	CreateMissing bool          `env:"LIVEBAG_CREATE_MISSING" envDefault:"true"`
	SaveOnExit    bool          `env:"LIVEBAG_SAVE_ON_EXIT"`
	TweakURL      string        `env:"LIVEBAG_TWEAK_URL"`

	Width  float64 `env:"LIVEBAG_WIDTH"  envDefault:"1280"`
	Height float64 `env:"LIVEBAG_HEIGHT" envDefault:"720"`
}

// ConfigFromEnv returns a Config populated from LIVEBAG_* environment
// variables and their defaults.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.DocumentPath == "" {
		return nil, errors.New("DocumentPath is a required configuration field and cannot be empty")
	}
	if cfg.TickInterval <= 0 {
		return nil, errors.New("TickInterval must be positive")
	}
	if cfg.ReloadIdle < 0 || cfg.Debounce < 0 {
		return nil, errors.New("ReloadIdle and Debounce cannot be negative")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, errors.New("Width and Height must be positive")
	}
	return &cfg, nil
}
