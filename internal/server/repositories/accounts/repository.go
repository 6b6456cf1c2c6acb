package accounts

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	// Link records that userID is subject at provider. Linking an
	// already linked pair is not an error.
	Link(ctx context.Context, acc *models.Account) error
	// FindUserID returns common.ErrorNotFound for an unlinked pair.
	FindUserID(ctx context.Context, provider, subject string) (string, error)
}
