package directory

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	// Upsert creates or refreshes the record keyed by u.ProviderID and
	// returns the stored row.
	Upsert(ctx context.Context, u *models.DirectoryUser) (*models.DirectoryUser, error)
	GetByProviderID(ctx context.Context, providerID string) (*models.DirectoryUser, error)
}
