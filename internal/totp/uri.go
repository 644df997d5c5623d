package totp

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pquerna/otp"
	pqtotp "github.com/pquerna/otp/totp"

	"github.com/dmitrijs2005/tgotp/internal/base32x"
	"github.com/dmitrijs2005/tgotp/internal/common"
)

// SecretSize is the size of generated secrets in bytes (160 bits, RFC 4226).
const SecretSize = 20

// Provisioning is what an authenticator learns from an otpauth URI.
type Provisioning struct {
	Service string // issuer
	Label   string // account name
	Secret  string // normalized base32
}

// ParseURI reads an otpauth://totp/{label}?secret=..&issuer=.. URI.
// A label of the form "issuer:account" wins over the issuer parameter.
// Only the secret is mandatory.
func ParseURI(uri string) (*Provisioning, error) {
	key, err := otp.NewKeyFromURL(strings.TrimSpace(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidURI, err)
	}
	u, err := url.Parse(key.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidURI, err)
	}
	if !strings.EqualFold(u.Scheme, "otpauth") || !strings.EqualFold(key.Type(), "totp") {
		return nil, common.ErrInvalidURI
	}

	secret := base32x.Normalize(key.Secret())
	if secret == "" {
		return nil, fmt.Errorf("%w: missing secret", common.ErrInvalidURI)
	}

	label := strings.TrimPrefix(u.Path, "/")
	p := &Provisioning{Label: label, Secret: secret}
	if service, account, ok := strings.Cut(label, ":"); ok {
		p.Service, p.Label = service, account
	} else {
		p.Service = u.Query().Get("issuer")
	}
	p.Service = strings.TrimSpace(p.Service)
	p.Label = strings.TrimSpace(p.Label)

	return p, nil
}

// NewSecret generates a fresh secret and the URI an authenticator app can
// scan to enroll it.
func NewSecret(issuer, account string) (secret, uri string, err error) {
	key, err := pqtotp.Generate(pqtotp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		SecretSize:  SecretSize,
		Period:      Period,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", fmt.Errorf("generate secret: %w", err)
	}
	return key.Secret(), key.URL(), nil
}
