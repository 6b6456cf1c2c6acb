// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an identity owned by the identity provider. PasswordHash is nil
// for users that only ever signed in through a federated provider.
type User struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Account links a User to a subject at a third-party OAuth provider.
type Account struct {
	UserID   string
	Provider string
	Subject  string
}
