package exporttokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tgotp/internal/common"
	"github.com/dmitrijs2005/tgotp/internal/dbx"
	"github.com/dmitrijs2005/tgotp/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Replace upserts on the unique user_id, so the previous token of the owner
// stops existing in the same statement that creates the new one.
func (r *PostgresRepository) Replace(ctx context.Context, t *models.ExportToken) error {
	query := `
		INSERT INTO export_tokens (token, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id)
		DO UPDATE SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at, created_at = EXCLUDED.created_at
	`
	if _, err := r.db.ExecContext(ctx, query, t.Token, t.UserID, t.ExpiresAt, t.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, token string) (*models.ExportToken, error) {
	return r.find(ctx, `SELECT token, user_id, expires_at, created_at FROM export_tokens WHERE token = $1`, token)
}

func (r *PostgresRepository) FindForUpdate(ctx context.Context, token string) (*models.ExportToken, error) {
	return r.find(ctx, `SELECT token, user_id, expires_at, created_at FROM export_tokens WHERE token = $1 FOR UPDATE`, token)
}

func (r *PostgresRepository) find(ctx context.Context, query, token string) (*models.ExportToken, error) {
	t := &models.ExportToken{}
	if err := r.db.QueryRowContext(ctx, query, token).Scan(&t.Token, &t.UserID, &t.ExpiresAt, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) DeleteLive(ctx context.Context, token string, now time.Time) (bool, error) {
	query := `DELETE FROM export_tokens WHERE token = $1 AND expires_at > $2`
	res, err := r.db.ExecContext(ctx, query, token, now)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM export_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
