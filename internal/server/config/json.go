package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/tgotp/internal/flagx"
	"github.com/dmitrijs2005/tgotp/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept
// "24h" style strings or integer nanoseconds.
type JsonConfig struct {
	HTTPAddr         string         `json:"http_addr"`
	Storage          string         `json:"storage"`
	DatabaseDSN      string         `json:"database_dsn"`
	BotToken         string         `json:"bot_token"`
	BotUsername      string         `json:"bot_username"`
	InitDataMaxAge   timex.Duration `json:"init_data_max_age"`
	ExportTokenTTL   timex.Duration `json:"export_token_ttl"`
	JanitorInterval  timex.Duration `json:"janitor_interval"`
	SecretsKey       string         `json:"secrets_key"`
	SecretsSalt      string         `json:"secrets_salt"`
	RedisURL         string         `json:"redis_url"`
	ImportRateLimit  int            `json:"import_rate_limit"`
	ImportRateWindow timex.Duration `json:"import_rate_window"`
	PINRateLimit     int            `json:"pin_rate_limit"`
	PINRateWindow    timex.Duration `json:"pin_rate_window"`
	LogBackend       string         `json:"log_backend"`
	LogLevel         string         `json:"log_level"`
	AllowedOrigins   []string       `json:"allowed_origins"`
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		HTTPAddr:         c.HTTPAddr,
		Storage:          c.Storage,
		DatabaseDSN:      c.DatabaseDSN,
		BotToken:         c.BotToken,
		BotUsername:      c.BotUsername,
		InitDataMaxAge:   timex.Duration{Duration: c.InitDataMaxAge},
		ExportTokenTTL:   timex.Duration{Duration: c.ExportTokenTTL},
		JanitorInterval:  timex.Duration{Duration: c.JanitorInterval},
		SecretsKey:       c.SecretsKey,
		SecretsSalt:      c.SecretsSalt,
		RedisURL:         c.RedisURL,
		ImportRateLimit:  c.ImportRateLimit,
		ImportRateWindow: timex.Duration{Duration: c.ImportRateWindow},
		PINRateLimit:     c.PINRateLimit,
		PINRateWindow:    timex.Duration{Duration: c.PINRateWindow},
		LogBackend:       c.LogBackend,
		LogLevel:         c.LogLevel,
		AllowedOrigins:   c.AllowedOrigins,
	}
}

func (j *JsonConfig) apply(c *Config) {
	c.HTTPAddr = j.HTTPAddr
	c.Storage = j.Storage
	c.DatabaseDSN = j.DatabaseDSN
	c.BotToken = j.BotToken
	c.BotUsername = j.BotUsername
	c.InitDataMaxAge = j.InitDataMaxAge.Duration
	c.ExportTokenTTL = j.ExportTokenTTL.Duration
	c.JanitorInterval = j.JanitorInterval.Duration
	c.SecretsKey = j.SecretsKey
	c.SecretsSalt = j.SecretsSalt
	c.RedisURL = j.RedisURL
	c.ImportRateLimit = j.ImportRateLimit
	c.ImportRateWindow = j.ImportRateWindow.Duration
	c.PINRateLimit = j.PINRateLimit
	c.PINRateWindow = j.PINRateWindow.Duration
	c.LogBackend = j.LogBackend
	c.LogLevel = j.LogLevel
	c.AllowedOrigins = j.AllowedOrigins
}

// parseJson overlays the file named by -c/-config onto config. Keys absent
// from the file keep their current values, since the file is decoded on top
// of a copy of config.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}
	c.apply(config)
	return nil
}
