// Package idp is the client's view of the identity provider: a capability
// interface consumed by the authentication services, the closed set of
// attempt results, and a gRPC implementation.
package idp

import "context"

// Provider is the set of identity provider capabilities the client needs.
//
// Multi-step flows are keyed by the attempt ID returned from the Create*
// calls. Rejections are reported as *RejectedError, transport failures wrap
// ErrUnavailable.
type Provider interface {
	CreateSignIn(ctx context.Context, identifier, password string) (Attempt, error)
	CreateResetSignIn(ctx context.Context, identifier string) (Attempt, error)
	AttemptFirstFactor(ctx context.Context, attemptID, code string) (Attempt, error)
	ResetPassword(ctx context.Context, attemptID, password string) (Attempt, error)

	CreateSignUp(ctx context.Context, params SignUpParams) (Attempt, error)
	PrepareEmailVerification(ctx context.Context, attemptID string) error
	AttemptEmailVerification(ctx context.Context, attemptID, code string) (Attempt, error)

	// StartFederatedFlow runs the whole browser round trip for strategy
	// (for example "oauth_google") and returns the final attempt.
	StartFederatedFlow(ctx context.Context, strategy string) (Attempt, error)

	SetActiveSession(ctx context.Context, sessionID string) error
	SignOut(ctx context.Context, sessionID string) error
	SessionToken(ctx context.Context, sessionID string) (string, error)
}

// SignUpParams are the fields collected by the sign-up form.
type SignUpParams struct {
	EmailAddress string
	Password     string
	FirstName    string
	LastName     string
}

// Attempt is a provider-side sign-in or sign-up attempt.
type Attempt struct {
	ID     string
	Result Result
}

// Result is the closed set of attempt outcomes. The concrete types are
// Complete, NeedsNewPassword, MissingRequirements and Incomplete.
type Result interface {
	isResult()
}

// Complete means the attempt produced a session.
type Complete struct {
	SessionID string
}

// NeedsNewPassword means a reset code was accepted and a new password is due.
type NeedsNewPassword struct{}

// MissingRequirements means a sign-up still needs its email verified.
type MissingRequirements struct{}

// Incomplete covers every other provider status.
type Incomplete struct {
	Status string
}

func (Complete) isResult()            {}
func (NeedsNewPassword) isResult()    {}
func (MissingRequirements) isResult() {}
func (Incomplete) isResult()          {}
