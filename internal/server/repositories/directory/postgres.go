// Package directory provides the PostgreSQL-backed backend user directory.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, u *models.DirectoryUser) (*models.DirectoryUser, error) {
	query := `
		INSERT INTO directory_users (provider_id, email, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider_id)
		DO UPDATE SET
			email = EXCLUDED.email,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			updated_at = now()
		RETURNING id, created_at, updated_at
	`
	out := *u
	var id int64
	err := r.db.QueryRowContext(ctx, query, u.ProviderID, u.Email, u.FirstName, u.LastName).
		Scan(&id, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	out.ID = strconv.FormatInt(id, 10)
	return &out, nil
}

func (r *PostgresRepository) GetByProviderID(ctx context.Context, providerID string) (*models.DirectoryUser, error) {
	query := `
		SELECT id, provider_id, email, first_name, last_name, created_at, updated_at
		FROM directory_users
		WHERE provider_id = $1
	`
	var (
		u  models.DirectoryUser
		id int64
	)
	err := r.db.QueryRowContext(ctx, query, providerID).
		Scan(&id, &u.ProviderID, &u.Email, &u.FirstName, &u.LastName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	u.ID = strconv.FormatInt(id, 10)
	return &u, nil
}
