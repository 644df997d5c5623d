// Package exporttokens declares storage for single-use transfer tokens.
package exporttokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/tgotp/internal/server/models"
)

// Repository stores at most one token per user.
type Repository interface {
	// Replace stores t, atomically discarding any earlier token of t.UserID.
	Replace(ctx context.Context, t *models.ExportToken) error

	// Find looks a token up. Absent tokens yield common.ErrorNotFound.
	Find(ctx context.Context, token string) (*models.ExportToken, error)

	// FindForUpdate is Find that also locks the row until the surrounding
	// transaction ends.
	FindForUpdate(ctx context.Context, token string) (*models.ExportToken, error)

	// DeleteLive removes token only if it has not expired at now. It reports
	// whether a row was removed; a concurrent consumer sees false.
	DeleteLive(ctx context.Context, token string, now time.Time) (bool, error)

	// DeleteExpired removes every token with expires_at <= now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
