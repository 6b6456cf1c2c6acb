package proto

// Attempt statuses reported by the identity provider.
const (
	StatusComplete            = "complete"
	StatusNeedsNewPassword    = "needs_new_password"
	StatusNeedsFirstFactor    = "needs_first_factor"
	StatusMissingRequirements = "missing_requirements"
	StatusAbandoned           = "abandoned"
)

// Verification strategies.
const (
	StrategyResetPasswordEmailCode = "reset_password_email_code"
	StrategyEmailCode              = "email_code"
)

// Session statuses.
const (
	SessionActive = "active"
	SessionEnded  = "ended"
)

type Empty struct{}

type AttemptResponse struct {
	AttemptID string `json:"attempt_id"`
	Status    string `json:"status"`
	SessionID string `json:"session_id,omitempty"`
}

type CreateSignInRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type CreateResetSignInRequest struct {
	Identifier string `json:"identifier"`
	Strategy   string `json:"strategy"`
}

type AttemptFirstFactorRequest struct {
	AttemptID string `json:"attempt_id"`
	Strategy  string `json:"strategy"`
	Code      string `json:"code"`
}

type ResetPasswordRequest struct {
	AttemptID string `json:"attempt_id"`
	Password  string `json:"password"`
}

type CreateSignUpRequest struct {
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
}

type PrepareEmailVerificationRequest struct {
	AttemptID string `json:"attempt_id"`
	Strategy  string `json:"strategy"`
}

type AttemptEmailVerificationRequest struct {
	AttemptID string `json:"attempt_id"`
	Code      string `json:"code"`
}

type StartFederatedRequest struct {
	Strategy      string `json:"strategy"`
	RedirectURL   string `json:"redirect_url"`
	CodeChallenge string `json:"code_challenge"`
}

type StartFederatedResponse struct {
	AttemptID string `json:"attempt_id"`
	AuthURL   string `json:"auth_url"`
}

type CompleteFederatedRequest struct {
	AttemptID    string `json:"attempt_id"`
	Code         string `json:"code"`
	CodeVerifier string `json:"code_verifier"`
}

type SessionRequest struct {
	SessionID string `json:"session_id"`
}

type SessionResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

type SessionTokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}
