package models

import "time"

// DirectoryUser is the backend's own record of a user, keyed by the
// identity provider's user id.
type DirectoryUser struct {
	ID         string    `json:"id"`
	ProviderID string    `json:"provider_id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
