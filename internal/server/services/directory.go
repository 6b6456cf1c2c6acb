package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	validation "github.com/go-ozzo/ozzo-validation"
)

// UserDirectory keeps the backend's own copy of the users known to the
// identity provider.
type UserDirectory struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewUserDirectory(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *UserDirectory {
	return &UserDirectory{db: db, repomanager: m, logger: logger.With("module", "directory")}
}

// Sync creates or refreshes the record for the user the claims describe
// and returns the stored record. Calling it again with the same claims
// changes nothing but updated_at.
func (d *UserDirectory) Sync(ctx context.Context, claims *auth.Claims) (*models.DirectoryUser, error) {
	u := &models.DirectoryUser{
		ProviderID: claims.UserID(),
		Email:      claims.Email,
		FirstName:  claims.FirstName,
		LastName:   claims.LastName,
	}
	if err := validation.ValidateStruct(u,
		validation.Field(&u.ProviderID, validation.Required),
		validation.Field(&u.Email, validation.Required),
	); err != nil {
		return nil, asValidationError(err)
	}

	out, err := d.repomanager.Directory(d.db).Upsert(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("error syncing user: %w", err)
	}
	d.logger.Debug(ctx, "user synced", "provider_id", out.ProviderID, "id", out.ID)
	return out, nil
}
