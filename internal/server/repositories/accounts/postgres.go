// Package accounts provides a PostgreSQL-backed repository linking users to
// third-party OAuth subjects.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Link(ctx context.Context, acc *models.Account) error {
	query := `
		INSERT INTO accounts (user_id, provider, subject)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider, subject) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, acc.UserID, acc.Provider, acc.Subject); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindUserID(ctx context.Context, provider, subject string) (string, error) {
	query := `
		SELECT user_id FROM accounts
		WHERE provider = $1 AND subject = $2
	`
	var userID string
	if err := r.db.QueryRowContext(ctx, query, provider, subject).Scan(&userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return userID, nil
}
