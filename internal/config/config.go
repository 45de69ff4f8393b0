package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"lanssh/internal/discover"
)

// Config holds the CLI-level tunables. Library defaults live in
// discover.Options; everything here only overrides them.
type Config struct {
	ProbePort      int           `yaml:"probe_port" env:"LANSSH_PROBE_PORT" env-default:"22"`
	Concurrency    int           `yaml:"concurrency" env:"LANSSH_CONCURRENCY" env-default:"24"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout" env:"LANSSH_PROBE_TIMEOUT" env-default:"350ms"`
	ResolveTimeout time.Duration `yaml:"resolve_timeout" env:"LANSSH_RESOLVE_TIMEOUT" env-default:"2s"`
	ScanTimeout    time.Duration `yaml:"scan_timeout" env:"LANSSH_SCAN_TIMEOUT" env-default:"6s"`
	PingLatency    bool          `yaml:"ping_latency" env:"LANSSH_PING_LATENCY" env-default:"false"`
	LogLevel       string        `yaml:"log_level" env:"LANSSH_LOG_LEVEL"`
}

// Load reads the config file at path (optional) and applies environment
// overrides. An empty path means environment only.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return cfg, fmt.Errorf("config file: %w", err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		return cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("read env: %w", err)
	}
	return cfg, nil
}

// Options maps the config onto discovery session options.
func (c Config) Options() discover.Options {
	return discover.Options{
		ProbePort:      c.ProbePort,
		Concurrency:    c.Concurrency,
		ProbeTimeout:   c.ProbeTimeout,
		ResolveTimeout: c.ResolveTimeout,
		SessionTimeout: c.ScanTimeout,
		PingLatency:    c.PingLatency,
	}
}
