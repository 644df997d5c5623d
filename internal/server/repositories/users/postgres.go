// Package users stores Telegram users and their lock preferences.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tgotp/internal/common"
	"github.com/dmitrijs2005/tgotp/internal/dbx"
	"github.com/dmitrijs2005/tgotp/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, telegram_id, username, first_name, last_name, language_code, pin_hash, keep_unlocked, created_at, last_login`

func scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LastName, &u.LanguageCode,
		&u.PinHash, &u.KeepUnlocked, &u.CreatedAt, &u.LastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) GetOrCreate(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (telegram_id, username, first_name, last_name, language_code)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (telegram_id) DO UPDATE
		 SET username = EXCLUDED.username,
		     first_name = EXCLUDED.first_name,
		     last_name = EXCLUDED.last_name,
		     language_code = EXCLUDED.language_code,
		     last_login = now()
		 RETURNING ` + userColumns

	return scanUser(r.db.QueryRowContext(ctx, query,
		user.TelegramID, user.Username, user.FirstName, user.LastName, user.LanguageCode))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) LockForUpdate(ctx context.Context, id int64) error {
	query := `SELECT id FROM users WHERE id = $1 FOR UPDATE`

	var got int64
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&got); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetPinHash(ctx context.Context, id int64, hash []byte) error {
	return r.update(ctx, `UPDATE users SET pin_hash = $2 WHERE id = $1`, id, hash)
}

func (r *PostgresRepository) SetKeepUnlocked(ctx context.Context, id int64, enabled bool) error {
	return r.update(ctx, `UPDATE users SET keep_unlocked = $2 WHERE id = $1`, id, enabled)
}

func (r *PostgresRepository) update(ctx context.Context, query string, id int64, value any) error {
	res, err := r.db.ExecContext(ctx, query, id, value)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
