// Package accounts stores TOTP accounts. Rows belong to one user and are
// shown in ascending position order.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/tgotp/internal/server/models"
)

type Repository interface {
	// ListByUser returns the user's accounts by ascending position, then id.
	ListByUser(ctx context.Context, userID int64) ([]*models.Account, error)
	// MaxPosition returns the highest position in use, or -1 when the user
	// has no accounts.
	MaxPosition(ctx context.Context, userID int64) (int, error)
	// Create inserts a and fills its ID and timestamps.
	Create(ctx context.Context, a *models.Account) (*models.Account, error)
	// Update changes label, service, icon and color.
	Update(ctx context.Context, a *models.Account) error
	Delete(ctx context.Context, userID, id int64) error
	DeleteAllByUser(ctx context.Context, userID int64) (int64, error)
	SetPosition(ctx context.Context, userID, id int64, position int) error
}
