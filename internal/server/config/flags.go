package config

import (
	"flag"
	"io"
	"strings"

	"github.com/dmitrijs2005/tgotp/internal/flagx"
)

var flagNames = []string{"-a", "-s", "-d", "-b", "-u", "-m", "-t", "-k", "-salt", "-r", "-l", "-log", "-o"}

// parseFlags applies command-line overrides. Only the flags below are read;
// anything else in args is ignored.
//
//	-a     HTTP listen address
//	-s     storage backend (postgres|memory)
//	-d     PostgreSQL DSN
//	-b     bot token
//	-u     bot username for deep links
//	-m     init data max age ("24h", 0 disables)
//	-t     export token TTL
//	-k     secrets passphrase
//	-salt  secrets salt
//	-r     Redis URL for the import rate limiter
//	-l     log level
//	-log   log backend (zap|slog)
//	-o     comma-separated CORS origins
func parseFlags(config *Config, args []string) error {
	filtered := flagx.FilterArgs(args, flagNames)

	fs := flag.NewFlagSet("tgotp", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to listen on")
	fs.StringVar(&config.Storage, "s", config.Storage, "storage backend")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.BotToken, "b", config.BotToken, "telegram bot token")
	fs.StringVar(&config.BotUsername, "u", config.BotUsername, "telegram bot username")
	fs.DurationVar(&config.InitDataMaxAge, "m", config.InitDataMaxAge, "init data max age")
	fs.DurationVar(&config.ExportTokenTTL, "t", config.ExportTokenTTL, "export token ttl")
	fs.StringVar(&config.SecretsKey, "k", config.SecretsKey, "secrets passphrase")
	fs.StringVar(&config.SecretsSalt, "salt", config.SecretsSalt, "secrets salt")
	fs.StringVar(&config.RedisURL, "r", config.RedisURL, "redis url")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogBackend, "log", config.LogBackend, "log backend")
	origins := fs.String("o", strings.Join(config.AllowedOrigins, ","), "allowed CORS origins")

	if err := fs.Parse(filtered); err != nil {
		return err
	}

	config.AllowedOrigins = splitList(*origins)
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
