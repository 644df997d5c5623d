package config

import (
	"errors"
	"fmt"
	"os"
)

// Config holds runtime settings for the tgotp CLI.
//
// NewAccount switches the CLI to provisioning: it generates a secret for
// that account name under Issuer instead of printing codes.
type Config struct {
	URI   string `env:"TGOTP_URI"`
	Watch bool   `env:"TGOTP_WATCH"`
	Count int    `env:"TGOTP_COUNT"`

	NewAccount string `env:"TGOTP_NEW_ACCOUNT"`
	Issuer     string `env:"TGOTP_ISSUER"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.URI = ""
	c.Watch = false
	c.Count = 0
	c.NewAccount = ""
	c.Issuer = "tgotp"
}

func (c *Config) Validate() error {
	if c.Count < 0 {
		return errors.New("count must not be negative")
	}
	return nil
}

// Load applies defaults, then JSON, environ and args. Later sources take
// precedence over earlier ones.
func Load(args []string, environ map[string]string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, fmt.Errorf("json config: %w", err)
	}
	if err := parseEnv(cfg, environ); err != nil {
		return nil, fmt.Errorf("env config: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadConfig() (*Config, error) {
	return Load(os.Args[1:], environMap())
}
