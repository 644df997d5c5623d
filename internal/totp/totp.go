// Package totp derives RFC 6238 time-based one-time passwords
// (HMAC-SHA1, 30-second steps, 6 digits) and parses otpauth provisioning URIs.
//
// Everything here is a pure function of its arguments; the package keeps no
// state between calls, so callers may use it from any goroutine.
package totp

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tgotp/internal/base32x"
	"github.com/dmitrijs2005/tgotp/internal/common"
)

const (
	Period = 30 // seconds per step
	Digits = 6
)

const modulo = 1_000_000

// Window is the 30-second epoch bucket containing an instant.
type Window struct {
	Step      uint64    // floor(unix / Period)
	Start     time.Time // inclusive
	Remaining int       // seconds left, in [1, Period]
}

// WindowAt returns the window containing t. Code and Remaining taken from
// the same Window never straddle a step boundary.
func WindowAt(t time.Time) Window {
	unix := t.Unix()
	off := unix % Period
	if off < 0 {
		off += Period
	}
	start := unix - off
	return Window{
		Step:      uint64(start / Period),
		Start:     time.Unix(start, 0).UTC(),
		Remaining: int(Period - off),
	}
}

// Code returns the code of secret for this window.
func (w Window) Code(secret string) (string, error) {
	key, err := decodeKey(secret)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(key)
	return HOTP(key, w.Step), nil
}

// Code returns the 6-digit code for the base32 secret at instant at.
func Code(secret string, at time.Time) (string, error) {
	return WindowAt(at).Code(secret)
}

// RemainingSeconds reports how long the code valid at t stays valid.
func RemainingSeconds(t time.Time) int {
	return WindowAt(t).Remaining
}

// HOTP is the RFC 4226 derivation: HMAC-SHA1 over the big-endian counter,
// dynamic truncation, sign bit cleared, reduced to six zero-padded digits.
func HOTP(key []byte, counter uint64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	off := sum[len(sum)-1] & 0x0F
	v := binary.BigEndian.Uint32(sum[off:off+4]) & 0x7FFFFFFF

	return fmt.Sprintf("%0*d", Digits, v%modulo)
}

// ValidateSecret reports whether secret decodes to a usable key.
func ValidateSecret(secret string) error {
	key, err := decodeKey(secret)
	if err != nil {
		return err
	}
	common.WipeByteArray(key)
	return nil
}

func decodeKey(secret string) ([]byte, error) {
	key, err := base32x.Decode(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidSecret, err)
	}
	if len(key) == 0 {
		return nil, common.ErrInvalidSecret
	}
	return key, nil
}
