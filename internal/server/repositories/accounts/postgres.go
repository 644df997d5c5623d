package accounts

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/tgotp/internal/common"
	"github.com/dmitrijs2005/tgotp/internal/dbx"
	"github.com/dmitrijs2005/tgotp/internal/server/models"
)

// PostgresRepository implements account storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Account, error) {
	query := `
		SELECT id, user_id, label, service, encrypted_secret, nonce, icon, color, position, created_at, updated_at
		FROM accounts
		WHERE user_id = $1
		ORDER BY position ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.Label, &a.Service, &a.EncryptedSecret, &a.Nonce,
			&a.Icon, &a.Color, &a.Position, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) MaxPosition(ctx context.Context, userID int64) (int, error) {
	query := `SELECT COALESCE(MAX(position), -1) FROM accounts WHERE user_id = $1`

	var pos int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&pos); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return pos, nil
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	query := `
		INSERT INTO accounts (user_id, label, service, encrypted_secret, nonce, icon, color, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		a.UserID, a.Label, a.Service, a.EncryptedSecret, a.Nonce, a.Icon, a.Color, a.Position,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) Update(ctx context.Context, a *models.Account) error {
	query := `
		UPDATE accounts
		SET label = $3, service = $4, icon = $5, color = $6, updated_at = now()
		WHERE id = $1 AND user_id = $2
	`
	return expectOne(r.db.ExecContext(ctx, query, a.ID, a.UserID, a.Label, a.Service, a.Icon, a.Color))
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id int64) error {
	query := `DELETE FROM accounts WHERE id = $1 AND user_id = $2`
	return expectOne(r.db.ExecContext(ctx, query, id, userID))
}

func (r *PostgresRepository) DeleteAllByUser(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) SetPosition(ctx context.Context, userID, id int64, position int) error {
	query := `UPDATE accounts SET position = $3, updated_at = now() WHERE id = $1 AND user_id = $2`
	return expectOne(r.db.ExecContext(ctx, query, id, userID, position))
}

// expectOne maps "no row matched" to common.ErrorNotFound; a row owned by
// another user does not match either.
func expectOne(res sql.Result, err error) error {
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
