package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/tgotp/internal/flagx"
)

// parseFlags populates Config fields from the flags it knows about. Other
// arguments are filtered out with flagx.FilterArgs.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-uri", "-watch", "-n", "-new", "-issuer"})

	fs := flag.NewFlagSet("tgotp", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.URI, "uri", cfg.URI, "otpauth://totp URI")
	fs.BoolVar(&cfg.Watch, "watch", cfg.Watch, "refresh the code every window")
	fs.IntVar(&cfg.Count, "n", cfg.Count, "number of codes to print when watching (0 = forever)")

	fs.StringVar(&cfg.NewAccount, "new", cfg.NewAccount, "generate a secret for this account name")
	fs.StringVar(&cfg.Issuer, "issuer", cfg.Issuer, "issuer written into generated URIs")

	return fs.Parse(args)
}
