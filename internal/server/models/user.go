// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a Telegram user known to the service. ID is the internal key;
// TelegramID is the id carried in verified init data.
type User struct {
	ID           int64
	TelegramID   int64
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
	// PinHash is a bcrypt hash, empty when no PIN is set.
	PinHash      []byte
	KeepUnlocked bool
	CreatedAt    time.Time
	LastLogin    time.Time
}

func (u *User) HasPIN() bool {
	return len(u.PinHash) > 0
}
