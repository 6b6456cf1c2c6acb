// Package attempts provides a PostgreSQL-backed repository for sign-in and
// sign-up attempts in progress.
package attempts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `
	SELECT id, kind, status, user_id, email, first_name, last_name, password_hash,
	       code_hash, code_expires_at, code_attempts, strategy, redirect_url, code_challenge,
	       session_id, created_at, expires_at
	FROM attempts
	WHERE id = $1`

func (r *PostgresRepository) Create(ctx context.Context, a *models.Attempt) error {
	query := `
		INSERT INTO attempts (id, kind, status, user_id, email, first_name, last_name, password_hash,
		                      code_hash, code_expires_at, code_attempts, strategy, redirect_url, code_challenge,
		                      expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		a.ID, string(a.Kind), string(a.Status), repositories.NullString(a.UserID),
		a.Email, a.FirstName, a.LastName, a.PasswordHash,
		a.CodeHash, repositories.NullTime(a.CodeExpiresAt), a.CodeAttempts,
		a.Strategy, a.RedirectURL, a.CodeChallenge, a.ExpiresAt,
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Attempt, error) {
	return r.get(ctx, selectColumns, id)
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, id string) (*models.Attempt, error) {
	return r.get(ctx, selectColumns+" FOR UPDATE", id)
}

func (r *PostgresRepository) get(ctx context.Context, query, id string) (*models.Attempt, error) {
	var (
		a                 models.Attempt
		kind, status      string
		userID, sessionID sql.NullString
		codeExpiresAt     sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &kind, &status, &userID, &a.Email, &a.FirstName, &a.LastName, &a.PasswordHash,
		&a.CodeHash, &codeExpiresAt, &a.CodeAttempts, &a.Strategy, &a.RedirectURL, &a.CodeChallenge,
		&sessionID, &a.CreatedAt, &a.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	a.Kind = models.AttemptKind(kind)
	a.Status = models.AttemptStatus(status)
	a.UserID = userID.String
	a.SessionID = sessionID.String
	a.CodeExpiresAt = codeExpiresAt.Time
	return &a, nil
}

func (r *PostgresRepository) Update(ctx context.Context, a *models.Attempt) error {
	query := `
		UPDATE attempts
		SET status = $2, user_id = $3, password_hash = $4, code_hash = $5, code_expires_at = $6,
		    code_attempts = $7, session_id = $8
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		a.ID, string(a.Status), repositories.NullString(a.UserID), a.PasswordHash,
		a.CodeHash, repositories.NullTime(a.CodeExpiresAt), a.CodeAttempts, repositories.NullString(a.SessionID),
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
