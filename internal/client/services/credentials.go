package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/client/idp"
	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// CredentialController submits sign-in and sign-up attempts. Only one
// attempt may be in flight at a time across all of its methods.
type CredentialController struct {
	provider  idp.Provider
	activator Activator
	logger    logging.Logger

	mu   sync.Mutex
	busy bool
}

func NewCredentialController(provider idp.Provider, activator Activator, logger logging.Logger) *CredentialController {
	return &CredentialController{
		provider:  provider,
		activator: activator,
		logger:    logger.With("module", "credentials"),
	}
}

func (c *CredentialController) acquire() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrBusy
	}
	c.busy = true
	return nil
}

func (c *CredentialController) release() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

// SignIn authenticates with an email address and password and activates
// the resulting session.
func (c *CredentialController) SignIn(ctx context.Context, identifier, password string) error {
	identifier = strings.TrimSpace(identifier)
	if err := validateCredentials(identifier, password); err != nil {
		return err
	}
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()

	attempt, err := c.provider.CreateSignIn(ctx, identifier, password)
	if err != nil {
		c.logger.Info(ctx, "sign in rejected", "error", err)
		return providerFailure(err, msgSignInFailed)
	}
	return c.activateComplete(ctx, attempt, msgSignInFailed)
}

// SignUp creates an account. When the provider wants the email address
// verified first, the returned flow is in SignUpMissingRequirements and a
// code has already been requested.
func (c *CredentialController) SignUp(ctx context.Context, params idp.SignUpParams) (*SignUpFlow, error) {
	params.EmailAddress = strings.TrimSpace(params.EmailAddress)
	params.FirstName = strings.TrimSpace(params.FirstName)
	params.LastName = strings.TrimSpace(params.LastName)
	if err := validateSignUp(params); err != nil {
		return nil, err
	}
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.release()

	flow := &SignUpFlow{state: SignUpSubmitted}

	attempt, err := c.provider.CreateSignUp(ctx, params)
	if err != nil {
		c.logger.Info(ctx, "sign up rejected", "error", err)
		return nil, providerFailure(err, msgSignUpFailed)
	}

	switch attempt.Result.(type) {
	case idp.Complete:
		if err := c.activateComplete(ctx, attempt, msgSignUpFailed); err != nil {
			return nil, err
		}
		flow.setState(SignUpComplete)
		return flow, nil

	case idp.MissingRequirements:
		v := NewEmailVerificationFlow(c.provider, c.activator, c.logger, attempt.ID)
		if err := v.RequestCode(ctx, params.EmailAddress); err != nil {
			return nil, err
		}
		flow.verification = v
		flow.setState(SignUpMissingRequirements)
		return flow, nil

	default:
		c.logger.Warn(ctx, "unexpected sign up result", "result", fmt.Sprintf("%T", attempt.Result))
		return nil, &AuthError{Message: msgSignUpFailed}
	}
}

// SignInWithOAuth runs the federated flow for strategy, for example
// "oauth_google", and activates the returned session.
func (c *CredentialController) SignInWithOAuth(ctx context.Context, strategy string) error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()

	failed := fmt.Sprintf(msgOAuthFailed, ProviderLabel(strategy))

	attempt, err := c.provider.StartFederatedFlow(ctx, strategy)
	if err != nil {
		c.logger.Info(ctx, "federated sign in failed", "strategy", strategy, "error", err)
		return providerFailure(err, failed)
	}
	return c.activateComplete(ctx, attempt, failed)
}

// RequestPasswordReset starts a new password reset flow.
func (c *CredentialController) RequestPasswordReset() *VerificationFlow {
	return NewPasswordResetFlow(c.provider, c.activator, c.logger)
}

func (c *CredentialController) activateComplete(ctx context.Context, attempt idp.Attempt, failed string) error {
	r, ok := attempt.Result.(idp.Complete)
	if !ok || r.SessionID == "" {
		return &AuthError{Message: failed}
	}
	if err := c.activator.Activate(ctx, r.SessionID); err != nil {
		c.logger.Error(ctx, "session activation failed", "error", err)
		return providerFailure(err, failed)
	}
	return nil
}

// ProviderLabel turns a strategy such as "oauth_google" into "Google".
func ProviderLabel(strategy string) string {
	name := strings.TrimPrefix(strategy, "oauth_")
	if name == "" {
		return "provider"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// SignUpState is the position of a SignUpFlow.
type SignUpState string

const (
	SignUpSubmitted           SignUpState = "submitted"
	SignUpMissingRequirements SignUpState = "missing_requirements"
	SignUpComplete            SignUpState = "complete"
)

// SignUpFlow follows one sign-up from submission to an active session.
type SignUpFlow struct {
	mu           sync.Mutex
	state        SignUpState
	verification *VerificationFlow
}

func (s *SignUpFlow) State() SignUpState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *SignUpFlow) setState(st SignUpState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Verification returns the embedded email verification, or nil when the
// sign-up needed none.
func (s *SignUpFlow) Verification() *VerificationFlow {
	return s.verification
}

// VerifyEmail submits the emailed code. Success activates the session and
// completes the sign-up.
func (s *SignUpFlow) VerifyEmail(ctx context.Context, code string) error {
	if s.State() != SignUpMissingRequirements {
		return fmt.Errorf("%w: sign-up is %s", ErrInvalidState, s.State())
	}
	if err := s.verification.VerifyCode(ctx, code); err != nil {
		return err
	}
	if s.verification.Stage() == StageResolved {
		s.setState(SignUpComplete)
	}
	return nil
}

// ResendCode sends another verification code.
func (s *SignUpFlow) ResendCode(ctx context.Context) error {
	if s.State() != SignUpMissingRequirements {
		return fmt.Errorf("%w: sign-up is %s", ErrInvalidState, s.State())
	}
	return s.verification.ResendCode(ctx)
}
