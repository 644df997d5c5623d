package models

import "time"

// Account is one TOTP credential. The base32 secret is stored sealed;
// EncryptedSecret and Nonce are opaque to everything but the account service.
type Account struct {
	ID              int64
	UserID          int64
	Label           string
	Service         string
	EncryptedSecret []byte
	Nonce           []byte
	Icon            string
	Color           string
	Position        int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
