// Package models holds client-side data shapes shared between services and
// the CLI.
package models

import "time"

// Identity is the read-only projection of the signed-in user.
type Identity struct {
	UserID       string
	EmailAddress string
	FirstName    string
	LastName     string
}

// DisplayName prefers the full name and falls back to the email address.
func (i Identity) DisplayName() string {
	switch {
	case i.FirstName != "" && i.LastName != "":
		return i.FirstName + " " + i.LastName
	case i.FirstName != "":
		return i.FirstName
	default:
		return i.EmailAddress
	}
}

// BackendUser is the record returned by the backend user directory.
type BackendUser struct {
	ID           string    `json:"id"`
	ProviderID   string    `json:"provider_id"`
	EmailAddress string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity projects the backend record onto the client identity.
func (u BackendUser) Identity() Identity {
	return Identity{
		UserID:       u.ProviderID,
		EmailAddress: u.EmailAddress,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
	}
}
