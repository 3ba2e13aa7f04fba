package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/danielpatrickdp/obschronicle/internal/timestamp"
)

// Prefix is prepended to every environment variable name.
const Prefix = "OBSCHRONICLE_"

// #region config
// Config is the process configuration shared by the chronicle CLI and the
// chronicled service.
type Config struct {
	ChronicleDir   string        `env:"DIR"             envDefault:"chronicles"`
	DBPath         string        `env:"DB"` // empty disables persistence
	GRPCAddr       string        `env:"GRPC_ADDR"       envDefault:"localhost:50061"`
	MetricsAddr    string        `env:"METRICS_ADDR"    envDefault:"localhost:9464"`
	WindowLength   string        `env:"WINDOW_LENGTH"   envDefault:"PT6H"`
	Watch          bool          `env:"WATCH"           envDefault:"true"`
	ReloadDebounce time.Duration `env:"RELOAD_DEBOUNCE" envDefault:"250ms"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
}

// #endregion config

// #region load
// Load reads the configuration from OBSCHRONICLE_* environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the fields that env tags cannot express.
func (c Config) Validate() error {
	if c.ChronicleDir == "" {
		return errors.New("config: chronicle directory is empty")
	}
	if _, err := c.Length(); err != nil {
		return fmt.Errorf("config: window length: %w", err)
	}
	if c.ReloadDebounce < 0 {
		return fmt.Errorf("config: negative reload debounce %s", c.ReloadDebounce)
	}
	return nil
}

// Length returns WindowLength as a duration.
func (c Config) Length() (time.Duration, error) {
	return timestamp.ParseDuration(c.WindowLength)
}

// #endregion load
