// Package sessions declares the server-side repository contract for
// identity provider sessions.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository defines operations for creating, reading and ending sessions.
type Repository interface {
	// Create stores a new active session for userID with an expiry of now+validity.
	Create(ctx context.Context, id, userID string, validity time.Duration) (*models.Session, error)

	// Find looks up a session by id. Implementations return a not-found
	// error when the session is absent.
	Find(ctx context.Context, id string) (*models.Session, error)

	// End marks a session ended. Ending an already ended or unknown session
	// is not an error.
	End(ctx context.Context, id string) error
}
