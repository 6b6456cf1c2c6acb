// Package services contains the client's authentication core: the
// verification flow state machine, the credential submission controller,
// the session activation manager and the backend sync reconciler.
package services

import (
	"errors"

	"github.com/dmitrijs2005/gophauth/internal/client/idp"
)

var (
	// ErrBusy is returned when an operation is already in flight.
	ErrBusy = errors.New("another request is in progress")
	// ErrInvalidState is returned when an operation is not allowed in the current stage.
	ErrInvalidState = errors.New("operation not allowed in current state")
	// ErrValidation marks local input validation failures.
	ErrValidation = errors.New("validation failed")
	// ErrNotSignedIn is returned when an operation needs an active session.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrCancelled is returned to a caller whose flow was cancelled while
	// its request was in flight. The late response is discarded.
	ErrCancelled = errors.New("flow cancelled")
)

// User-facing messages.
const (
	msgFillAllFields       = "Please fill in all fields"
	msgEnterEmail          = "Please enter your email address"
	msgEnterResetCode      = "Please enter the 6-digit code"
	msgEnterVerifyCode     = "Please enter a valid 6-digit verification code"
	msgInvalidResetCode    = "Invalid code. Please try again."
	msgInvalidVerifyCode   = "Invalid verification code. Please try again."
	msgVerificationFailed  = "Verification failed. Please try again."
	msgPasswordsMismatch   = "Passwords do not match"
	msgPasswordTooShort    = "Password must be at least 8 characters long"
	msgPasswordResetFailed = "Password reset failed. Please try again."
	msgSignInFailed        = "Sign in failed. Please try again."
	msgSignUpFailed        = "Sign up failed. Please try again."
	msgOAuthFailed         = "Failed to sign in with %s. Please try again."

	// CodeSentNotice is shown after every code request, whether or not the
	// identifier is known.
	CodeSentNotice = "A 6-digit code has been sent to your email address."
	// PasswordResetNotice is shown once a password reset completes.
	PasswordResetNotice = "Your password has been reset successfully!"
)

// ValidationError reports locally rejected input. It never reaches the
// identity provider.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrValidation}
	}
	return []error{ErrValidation, e.Err}
}

// AuthError is a failed provider interaction rendered for the user.
// Retryable is set for transport failures.
type AuthError struct {
	Message   string
	Retryable bool
	Err       error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// providerFailure converts a provider error into an AuthError, passing the
// provider's own message through when there is one.
func providerFailure(err error, fallback string) *AuthError {
	msg := fallback
	if m, ok := idp.UserMessage(err); ok {
		msg = m
	}
	return &AuthError{
		Message:   msg,
		Retryable: errors.Is(err, idp.ErrUnavailable),
		Err:       err,
	}
}

// UserMessage renders err for display in the terminal.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	var aerr *AuthError
	if errors.As(err, &aerr) {
		return aerr.Message
	}

	switch {
	case errors.Is(err, ErrBusy):
		return "Please wait for the current request to finish."
	case errors.Is(err, ErrInvalidState):
		return "That step is not available right now."
	case errors.Is(err, ErrNotSignedIn):
		return "You are not signed in."
	case errors.Is(err, ErrCancelled):
		return "Cancelled."
	default:
		return "Something went wrong. Please try again."
	}
}
