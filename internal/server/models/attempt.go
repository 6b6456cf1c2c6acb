package models

import "time"

// AttemptKind says which flow an attempt belongs to.
type AttemptKind string

const (
	AttemptSignIn    AttemptKind = "sign_in"
	AttemptSignUp    AttemptKind = "sign_up"
	AttemptFederated AttemptKind = "federated"
)

// AttemptStatus mirrors the statuses reported over the wire.
type AttemptStatus string

const (
	AttemptNeedsFirstFactor    AttemptStatus = "needs_first_factor"
	AttemptNeedsNewPassword    AttemptStatus = "needs_new_password"
	AttemptMissingRequirements AttemptStatus = "missing_requirements"
	AttemptComplete            AttemptStatus = "complete"
	AttemptAbandoned           AttemptStatus = "abandoned"
)

// Attempt is a multi-step sign-in or sign-up in progress.
//
// Sign-up attempts carry the pending user's details until the email is
// verified; the user row is created only then. Code fields hold the bcrypt
// hash of the last emailed code and the number of wrong guesses so far.
type Attempt struct {
	ID            string
	Kind          AttemptKind
	Status        AttemptStatus
	UserID        string
	Email         string
	FirstName     string
	LastName      string
	PasswordHash  []byte
	CodeHash      []byte
	CodeExpiresAt time.Time
	CodeAttempts  int
	Strategy      string
	RedirectURL   string
	CodeChallenge string
	SessionID     string
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// Expired reports whether the attempt can no longer progress at now.
func (a *Attempt) Expired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}
