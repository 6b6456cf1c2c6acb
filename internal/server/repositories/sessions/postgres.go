package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, id, userID string, validity time.Duration) (*models.Session, error) {
	query := `
		INSERT INTO sessions (id, user_id, status, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	s := &models.Session{
		ID:        id,
		UserID:    userID,
		Status:    models.SessionActive,
		ExpiresAt: time.Now().Add(validity),
	}
	if err := r.db.QueryRowContext(ctx, query, s.ID, s.UserID, string(s.Status), s.ExpiresAt).Scan(&s.CreatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

// Find returns common.ErrorNotFound for an unknown id.
func (r *PostgresRepository) Find(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, user_id, status, created_at, expires_at
		FROM sessions
		WHERE id = $1
	`
	s := &models.Session{}
	var status string
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.UserID, &status, &s.CreatedAt, &s.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	s.Status = models.SessionStatus(status)
	return s, nil
}

func (r *PostgresRepository) End(ctx context.Context, id string) error {
	query := `
		UPDATE sessions SET status = $2, ended_at = now()
		WHERE id = $1 AND status <> $2
	`
	if _, err := r.db.ExecContext(ctx, query, id, string(models.SessionEnded)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
