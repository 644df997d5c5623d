package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/tgotp/internal/flagx"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields tell absent keys from zero values.
type JsonConfig struct {
	URI    *string `json:"uri"`
	Watch  *bool   `json:"watch"`
	Count  *int    `json:"count"`
	Issuer *string `json:"issuer"`
}

// parseJson overlays cfg with the file named by -c or -config in args, if
// any.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return err
	}

	if jc.URI != nil {
		cfg.URI = *jc.URI
	}
	if jc.Watch != nil {
		cfg.Watch = *jc.Watch
	}
	if jc.Count != nil {
		cfg.Count = *jc.Count
	}
	if jc.Issuer != nil {
		cfg.Issuer = *jc.Issuer
	}
	return nil
}
