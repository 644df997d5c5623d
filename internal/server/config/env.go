package config

import (
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// parseEnv overrides fields whose variable is set in environ. Unset
// variables leave the current value alone.
func parseEnv(config *Config, environ map[string]string) error {
	return env.ParseWithOptions(config, env.Options{Environment: environ})
}

func environMap() map[string]string {
	m := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			m[k] = v
		}
	}
	return m
}
