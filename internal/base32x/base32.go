// Package base32x implements the RFC 4648 base32 alphabet used by TOTP
// secrets. Decoding is lenient about case and about where the input stops
// (a trailing group of fewer than eight bits is dropped), but strict about
// the alphabet and the amount of '=' padding.
package base32x

import (
	"encoding/base32"
	"strings"

	"github.com/dmitrijs2005/tgotp/internal/common"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

var decodeMap [256]byte

func init() {
	for i := range decodeMap {
		decodeMap[i] = 0xFF
	}
	for i := 0; i < len(alphabet); i++ {
		c := alphabet[i]
		decodeMap[c] = byte(i)
		if c >= 'A' && c <= 'Z' {
			decodeMap[c+('a'-'A')] = byte(i)
		}
	}
}

// legalPadding lists the trailing '=' counts that can close an 8-character
// group: 1, 3, 4 or 6 characters of padding (or none).
var legalPadding = map[int]bool{0: true, 1: true, 3: true, 4: true, 6: true}

// Decode converts base32 text into bytes. It fails with
// common.ErrInvalidEncoding when the text contains a character outside the
// alphabet or when the padding is not one of the legal lengths.
func Decode(text string) ([]byte, error) {
	pad := strings.Count(text, "=")
	if !legalPadding[pad] {
		return nil, common.ErrInvalidEncoding
	}
	body := strings.TrimRight(text, "=")
	if len(text)-len(body) != pad {
		// '=' somewhere other than the tail
		return nil, common.ErrInvalidEncoding
	}

	out := make([]byte, 0, len(body)*5/8)
	var acc uint32
	var bits uint
	for i := 0; i < len(body); i++ {
		v := decodeMap[body[i]]
		if v == 0xFF {
			return nil, common.ErrInvalidEncoding
		}
		acc = acc<<5 | uint32(v)
		bits += 5
		if bits >= 8 {
			bits -= 8
			out = append(out, byte(acc>>bits))
			acc &= 1<<bits - 1
		}
	}
	return out, nil
}

// Encode returns the padded RFC 4648 encoding of b; the output length is
// always a multiple of eight.
func Encode(b []byte) string {
	return base32.StdEncoding.EncodeToString(b)
}

// Normalize prepares user-typed secrets: whitespace and '-' separators are
// removed and letters upper-cased.
func Normalize(text string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '-':
			return -1
		}
		if r >= 'a' && r <= 'z' {
			return r - ('a' - 'A')
		}
		return r
	}, text)
}
