package services

import "errors"

// Errors returned by IdentityService. The gRPC layer maps each of them to
// a status code and a message fit for end users.
var (
	ErrIdentifierNotFound  = errors.New("identifier not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailTaken          = errors.New("email address taken")
	ErrIncorrectCode       = errors.New("incorrect code")
	ErrCodeExpired         = errors.New("code expired")
	ErrAttemptNotFound     = errors.New("attempt not found")
	ErrAttemptExpired      = errors.New("attempt expired")
	ErrTooManyAttempts     = errors.New("too many code attempts")
	ErrWrongStep           = errors.New("attempt is not at this step")
	ErrUnsupportedStrategy = errors.New("unsupported strategy")
	ErrFederatedExchange   = errors.New("federated exchange failed")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionInactive     = errors.New("session is not active")
)

// ValidationError reports request fields that failed validation.
// Message is safe to show to the user.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.Err }
