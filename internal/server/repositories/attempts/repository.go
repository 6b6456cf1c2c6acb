package attempts

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, a *models.Attempt) error
	// Get returns common.ErrorNotFound for an unknown id.
	Get(ctx context.Context, id string) (*models.Attempt, error)
	// GetForUpdate is Get holding a row lock until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id string) (*models.Attempt, error)
	// Update writes back the mutable fields of a.
	Update(ctx context.Context, a *models.Attempt) error
}
