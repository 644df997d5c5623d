package users

import (
	"context"

	"github.com/dmitrijs2005/tgotp/internal/server/models"
)

type Repository interface {
	// GetOrCreate upserts by TelegramID, refreshing profile fields and
	// last_login, and returns the stored row.
	GetOrCreate(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	// LockForUpdate takes a row lock for the rest of the transaction.
	LockForUpdate(ctx context.Context, id int64) error
	// SetPinHash stores a bcrypt hash; nil clears the PIN.
	SetPinHash(ctx context.Context, id int64, hash []byte) error
	SetKeepUnlocked(ctx context.Context, id int64, enabled bool) error
}
