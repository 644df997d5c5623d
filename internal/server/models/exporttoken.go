package models

import "time"

// ExportToken is a single-use transfer token. A user owns at most one.
type ExportToken struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the token is no longer usable at now. A token
// whose expiry equals now is expired.
func (t *ExportToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
