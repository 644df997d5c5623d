// Package auth verifies Telegram Mini App init data: the signed, URL-encoded
// key/value payload the client forwards as its bearer credential. Identity is
// recomputed from that payload on every request; nothing here keeps sessions.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/tgotp/internal/common"
)

// webAppDataKey keys the HMAC that turns a bot token into a signing key.
const webAppDataKey = "WebAppData"

const defaultLanguage = "en"

// Identity is the Telegram user proven by a verified payload. Empty optional
// fields mean Telegram did not send them.
type Identity struct {
	ID           int64  `json:"id"`
	Username     string `json:"username,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	LanguageCode string `json:"language_code"`
}

// InitData is the outcome of a successful verification.
type InitData struct {
	Identity Identity
	// Fields holds every verified pair except hash, e.g. auth_date,
	// query_id and start_param.
	Fields map[string]string
	// RawUser is the user field as received.
	RawUser string
	// UserErr is set (wrapping common.ErrMalformedUserField) when the user
	// field could not be fully decoded. Identity then holds whatever fields
	// were read. The payload itself is still authentic.
	UserErr error
}

// AuthDate returns the auth_date field, if present and numeric.
func (d *InitData) AuthDate() (time.Time, bool) {
	raw, ok := d.Fields["auth_date"]
	if !ok {
		return time.Time{}, false
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}

// Verifier checks payloads against one bot token.
type Verifier struct {
	signingKey []byte
	maxAge     time.Duration
	now        func() time.Time
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithMaxAge rejects payloads whose auth_date is older than d. Zero disables
// the check.
func WithMaxAge(d time.Duration) Option {
	return func(v *Verifier) { v.maxAge = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// NewVerifier derives the per-bot signing key once.
func NewVerifier(botToken string, opts ...Option) *Verifier {
	v := &Verifier{signingKey: signingKey(botToken), now: time.Now}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Verify authenticates payload with botToken. It is a pure function of its
// arguments and performs no freshness check.
func Verify(payload, botToken string) (*InitData, error) {
	return NewVerifier(botToken).Verify(payload)
}

// Verify authenticates payload. It fails with common.ErrMissingHash,
// common.ErrSignatureMismatch or, when a max age is set,
// common.ErrInitDataExpired.
func (v *Verifier) Verify(payload string) (*InitData, error) {
	fields := parsePairs(payload)

	hash, ok := fields["hash"]
	if !ok {
		return nil, common.ErrMissingHash
	}
	delete(fields, "hash")

	calculated := hex.EncodeToString(sign(v.signingKey, checkString(fields)))
	if subtle.ConstantTimeCompare([]byte(calculated), []byte(hash)) != 1 {
		return nil, common.ErrSignatureMismatch
	}

	data := &InitData{
		Identity: Identity{LanguageCode: defaultLanguage},
		Fields:   fields,
	}

	if v.maxAge > 0 {
		at, ok := data.AuthDate()
		if !ok || v.now().Sub(at) > v.maxAge {
			return nil, common.ErrInitDataExpired
		}
	}

	if raw, ok := fields["user"]; ok {
		data.RawUser = raw
		// json.Unmarshal keeps the fields it decoded before a type error.
		var id Identity
		if err := json.Unmarshal([]byte(raw), &id); err != nil {
			data.UserErr = fmt.Errorf("%w: %w", common.ErrMalformedUserField, err)
		}
		if id.LanguageCode == "" {
			id.LanguageCode = defaultLanguage
		}
		data.Identity = id
	}

	return data, nil
}

// Encode builds a signed payload from fields. Telegram does this on its
// side; the server uses it only in tests and tooling.
func Encode(fields map[string]string, botToken string) string {
	q := url.Values{}
	for k, v := range fields {
		q.Set(k, v)
	}
	q.Set("hash", hex.EncodeToString(sign(signingKey(botToken), checkString(fields))))
	return q.Encode()
}

// BearerToken extracts the init data from an Authorization header value.
func BearerToken(header string) (string, error) {
	raw, ok := strings.CutPrefix(header, common.BearerPrefix)
	if !ok || raw == "" {
		return "", common.ErrMissingAuthorization
	}
	return raw, nil
}

func signingKey(botToken string) []byte {
	return sign([]byte(webAppDataKey), botToken)
}

func sign(key []byte, msg string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msg))
	return mac.Sum(nil)
}

// checkString joins "key=value" lines in byte-wise ascending key order.
func checkString(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
	}
	return b.String()
}

// parsePairs decodes an application/x-www-form-urlencoded string. The last
// occurrence of a key wins; malformed escapes are kept verbatim.
func parsePairs(payload string) map[string]string {
	fields := make(map[string]string)
	for _, part := range strings.Split(payload, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		fields[unescape(k)] = unescape(v)
	}
	return fields
}

func unescape(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}
