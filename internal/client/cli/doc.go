// Package cli prints TOTP codes for a secret typed at a hidden prompt or
// taken from an otpauth URI. With -watch it prints a fresh code at the start
// of every window until interrupted.
package cli
