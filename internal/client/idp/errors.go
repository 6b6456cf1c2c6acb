package idp

import (
	"errors"
)

var (
	// ErrUnavailable means the provider could not be reached.
	ErrUnavailable = errors.New("identity provider unavailable")
	// ErrNotFound means the identifier or attempt is unknown.
	ErrNotFound = errors.New("not found")
	// ErrAttemptExpired means the attempt can no longer progress.
	ErrAttemptExpired = errors.New("attempt expired")
	// ErrFederatedCancelled means the user aborted the browser flow.
	ErrFederatedCancelled = errors.New("federated sign-in cancelled")
)

// RejectedError is an explicit refusal by the provider. Message, when set,
// is meant for the end user.
type RejectedError struct {
	Message string
	Err     error
}

func (e *RejectedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "rejected by identity provider"
}

func (e *RejectedError) Unwrap() error {
	return e.Err
}

// UserMessage returns the provider's user-facing message carried by err, if any.
func UserMessage(err error) (string, bool) {
	var rej *RejectedError
	if errors.As(err, &rej) && rej.Message != "" {
		return rej.Message, true
	}
	return "", false
}
