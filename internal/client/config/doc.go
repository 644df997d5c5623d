// Package config loads runtime configuration for the tgotp CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Environment: TGOTP_URI, TGOTP_WATCH, TGOTP_COUNT, TGOTP_NEW_ACCOUNT,
//     TGOTP_ISSUER.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-uri string      otpauth://totp URI to read the secret from
//	-watch           print a new code every window instead of once
//	-n int           stop watching after n codes (0 means forever)
//	-new string      generate a secret for this account and print it with a QR
//	-issuer string   issuer used with -new (default "tgotp")
//
// # JSON schema
//
//	{
//	  "uri": "otpauth://totp/Example:alice?secret=JBSWY3DPEHPK3PXP",
//	  "watch": true,
//	  "count": 0,
//	  "issuer": "tgotp"
//	}
//
// When no URI is configured the CLI prompts for a base32 secret without
// echoing it.
package config
