// Package services contains the identity provider's business logic. This
// file implements IdentityService: password sign-in, password reset and
// sign-up through emailed codes, federated sign-in and sessions.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

// attemptValidity bounds how long a multi-step attempt may stay open.
const attemptValidity = time.Hour

// IdentityService runs the identity provider flows. Every multi-step flow
// is an Attempt row; steps lock the row, check its status and write it
// back in one transaction.
type IdentityService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	mailer          Mailer
	federated       FederatedProvider
	jwtSecret       []byte
	tokenValidity   time.Duration
	sessionValidity time.Duration
	codeValidity    time.Duration
	maxCodeAttempts int
	hashCost        int
	now             func() time.Time
	newID           func() string
	newCode         func() (string, error)
	logger          logging.Logger
}

// NewIdentityService wires the service. federated may be nil, in which
// case federated sign-in is rejected as an unsupported strategy.
func NewIdentityService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, mailer Mailer, federated FederatedProvider, logger logging.Logger) *IdentityService {
	return &IdentityService{
		db:              db,
		repomanager:     m,
		mailer:          mailer,
		federated:       federated,
		jwtSecret:       []byte(cfg.SecretKey),
		tokenValidity:   cfg.SessionTokenValidity,
		sessionValidity: cfg.SessionValidity,
		codeValidity:    cfg.CodeValidity,
		maxCodeAttempts: cfg.MaxCodeAttempts,
		hashCost:        bcrypt.DefaultCost,
		now:             time.Now,
		newID:           uuid.NewString,
		newCode: func() (string, error) {
			return common.GenerateNumericCode(common.CodeLength)
		},
		logger: logger.With("module", "identity"),
	}
}

// CreateSignIn checks an email and password and, when they match, returns
// a completed attempt carrying a new session.
func (s *IdentityService) CreateSignIn(ctx context.Context, email, password string) (*models.Attempt, error) {
	if err := validateSignIn(email, password); err != nil {
		return nil, err
	}
	user, err := s.findUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if len(user.PasswordHash) == 0 || bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		s.logger.Info(ctx, "sign-in rejected", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	a := s.newAttempt(models.AttemptSignIn, models.AttemptComplete)
	a.UserID, a.Email = user.ID, user.Email

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		sessionID, err := s.startSession(ctx, tx, user.ID)
		if err != nil {
			return err
		}
		a.SessionID = sessionID
		if err := s.repomanager.Attempts(tx).Create(ctx, a); err != nil {
			return fmt.Errorf("error creating attempt: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "signed in", "user_id", user.ID, "session_id", a.SessionID)
	return a, nil
}

// CreateResetSignIn opens a password reset for email and mails a code.
func (s *IdentityService) CreateResetSignIn(ctx context.Context, email string) (*models.Attempt, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	user, err := s.findUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	a := s.newAttempt(models.AttemptSignIn, models.AttemptNeedsFirstFactor)
	a.UserID, a.Email = user.ID, user.Email
	code, err := s.issueCode(a)
	if err != nil {
		return nil, err
	}
	if err := s.repomanager.Attempts(s.db).Create(ctx, a); err != nil {
		return nil, fmt.Errorf("error creating attempt: %w", err)
	}
	if err := s.mailer.SendCode(ctx, user.Email, code, PurposePasswordReset); err != nil {
		return nil, fmt.Errorf("error sending code: %w", err)
	}
	return a, nil
}

// AttemptFirstFactor checks a password reset code. On success the attempt
// moves to needs_new_password.
func (s *IdentityService) AttemptFirstFactor(ctx context.Context, attemptID, code string) (*models.Attempt, error) {
	return s.updateAttempt(ctx, attemptID, func(ctx context.Context, tx dbx.DBTX, a *models.Attempt) error {
		if err := s.checkOpen(a); err != nil {
			return err
		}
		if a.Kind != models.AttemptSignIn || a.Status != models.AttemptNeedsFirstFactor {
			return ErrWrongStep
		}
		if err := s.checkCode(a, code); err != nil {
			return err
		}
		a.Status = models.AttemptNeedsNewPassword
		return nil
	})
}

// ResetPassword stores a new password for a verified reset attempt and
// signs the user in.
func (s *IdentityService) ResetPassword(ctx context.Context, attemptID, password string) (*models.Attempt, error) {
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	a, err := s.updateAttempt(ctx, attemptID, func(ctx context.Context, tx dbx.DBTX, a *models.Attempt) error {
		if err := s.checkOpen(a); err != nil {
			return err
		}
		if a.Status != models.AttemptNeedsNewPassword {
			return ErrWrongStep
		}
		if err := s.repomanager.Users(tx).UpdatePassword(ctx, a.UserID, hash); err != nil {
			return fmt.Errorf("error updating password: %w", err)
		}
		sessionID, err := s.startSession(ctx, tx, a.UserID)
		if err != nil {
			return err
		}
		a.SessionID = sessionID
		a.Status = models.AttemptComplete
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "password reset", "user_id", a.UserID, "session_id", a.SessionID)
	return a, nil
}

// CreateSignUp opens a sign-up attempt. The user row is created only once
// the email address is verified.
func (s *IdentityService) CreateSignUp(ctx context.Context, p SignUpParams) (*models.Attempt, error) {
	if err := validateSignUp(p); err != nil {
		return nil, err
	}
	_, err := s.repomanager.Users(s.db).GetByEmail(ctx, p.Email)
	switch {
	case err == nil:
		return nil, ErrEmailTaken
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	a := s.newAttempt(models.AttemptSignUp, models.AttemptMissingRequirements)
	a.Email, a.FirstName, a.LastName, a.PasswordHash = p.Email, p.FirstName, p.LastName, hash
	if err := s.repomanager.Attempts(s.db).Create(ctx, a); err != nil {
		return nil, fmt.Errorf("error creating attempt: %w", err)
	}
	return a, nil
}

// PrepareEmailVerification mails a fresh code for a sign-up attempt. The
// previous code stops working; the wrong-guess counter is kept.
func (s *IdentityService) PrepareEmailVerification(ctx context.Context, attemptID string) error {
	var code string
	a, err := s.updateAttempt(ctx, attemptID, func(ctx context.Context, tx dbx.DBTX, a *models.Attempt) error {
		if err := s.checkOpen(a); err != nil {
			return err
		}
		if a.Kind != models.AttemptSignUp || a.Status != models.AttemptMissingRequirements {
			return ErrWrongStep
		}
		var err error
		code, err = s.issueCode(a)
		return err
	})
	if err != nil {
		return err
	}
	if err := s.mailer.SendCode(ctx, a.Email, code, PurposeEmailVerification); err != nil {
		return fmt.Errorf("error sending code: %w", err)
	}
	return nil
}

// AttemptEmailVerification checks a sign-up code. On success the user is
// created and signed in.
func (s *IdentityService) AttemptEmailVerification(ctx context.Context, attemptID, code string) (*models.Attempt, error) {
	a, err := s.updateAttempt(ctx, attemptID, func(ctx context.Context, tx dbx.DBTX, a *models.Attempt) error {
		if err := s.checkOpen(a); err != nil {
			return err
		}
		if a.Kind != models.AttemptSignUp || a.Status != models.AttemptMissingRequirements {
			return ErrWrongStep
		}
		if err := s.checkCode(a, code); err != nil {
			return err
		}

		user, err := s.createUser(ctx, tx, &models.User{
			Email:        a.Email,
			FirstName:    a.FirstName,
			LastName:     a.LastName,
			PasswordHash: a.PasswordHash,
		})
		if err != nil {
			return err
		}
		sessionID, err := s.startSession(ctx, tx, user.ID)
		if err != nil {
			return err
		}
		a.UserID, a.SessionID = user.ID, sessionID
		a.PasswordHash = nil
		a.Status = models.AttemptComplete
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "signed up", "user_id", a.UserID, "session_id", a.SessionID)
	return a, nil
}

// StartFederated opens a federated attempt and returns it with the URL the
// user must visit. The attempt id doubles as the OAuth state.
func (s *IdentityService) StartFederated(ctx context.Context, strategy, redirectURL, codeChallenge string) (*models.Attempt, string, error) {
	if s.federated == nil || strategy != s.federated.Strategy() {
		return nil, "", ErrUnsupportedStrategy
	}
	if err := validateFederatedStart(redirectURL, codeChallenge); err != nil {
		return nil, "", err
	}

	a := s.newAttempt(models.AttemptFederated, models.AttemptNeedsFirstFactor)
	a.Strategy, a.RedirectURL, a.CodeChallenge = strategy, redirectURL, codeChallenge
	if err := s.repomanager.Attempts(s.db).Create(ctx, a); err != nil {
		return nil, "", fmt.Errorf("error creating attempt: %w", err)
	}
	return a, s.federated.AuthCodeURL(a.ID, redirectURL, codeChallenge), nil
}

// CompleteFederated exchanges the authorization code, finds or creates the
// local user for the federated identity and signs them in.
func (s *IdentityService) CompleteFederated(ctx context.Context, attemptID, code, verifier string) (*models.Attempt, error) {
	if s.federated == nil {
		return nil, ErrUnsupportedStrategy
	}
	pending, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if pending.Kind != models.AttemptFederated || pending.Status != models.AttemptNeedsFirstFactor {
		return nil, ErrWrongStep
	}
	if pending.Expired(s.now()) {
		return nil, ErrAttemptExpired
	}
	if oauth2.S256ChallengeFromVerifier(verifier) != pending.CodeChallenge {
		return nil, fmt.Errorf("%w: verifier does not match challenge", ErrFederatedExchange)
	}

	ident, err := s.federated.Exchange(ctx, code, verifier, pending.RedirectURL)
	if err != nil {
		s.logger.Warn(ctx, "federated exchange failed", "attempt_id", attemptID, "error", err)
		return nil, err
	}

	a, err := s.updateAttempt(ctx, attemptID, func(ctx context.Context, tx dbx.DBTX, a *models.Attempt) error {
		// another callback may have completed it meanwhile
		if a.Status != models.AttemptNeedsFirstFactor {
			return ErrWrongStep
		}
		userID, err := s.resolveFederatedUser(ctx, tx, a.Strategy, ident)
		if err != nil {
			return err
		}
		sessionID, err := s.startSession(ctx, tx, userID)
		if err != nil {
			return err
		}
		a.UserID, a.Email, a.SessionID = userID, ident.Email, sessionID
		a.Status = models.AttemptComplete
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "federated sign-in", "user_id", a.UserID, "strategy", a.Strategy, "session_id", a.SessionID)
	return a, nil
}

// resolveFederatedUser returns the user linked to ident, linking by email
// or creating a password-less user when there is none yet.
func (s *IdentityService) resolveFederatedUser(ctx context.Context, tx dbx.DBTX, provider string, ident *FederatedIdentity) (string, error) {
	accounts := s.repomanager.Accounts(tx)
	userID, err := accounts.FindUserID(ctx, provider, ident.Subject)
	if err == nil {
		return userID, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return "", fmt.Errorf("error searching account: %w", err)
	}

	user, err := s.repomanager.Users(tx).GetByEmail(ctx, ident.Email)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		user, err = s.createUser(ctx, tx, &models.User{
			Email:     ident.Email,
			FirstName: ident.FirstName,
			LastName:  ident.LastName,
		})
		if err != nil {
			return "", err
		}
	case err != nil:
		return "", fmt.Errorf("error searching user: %w", err)
	}

	if err := accounts.Link(ctx, &models.Account{UserID: user.ID, Provider: provider, Subject: ident.Subject}); err != nil {
		return "", fmt.Errorf("error linking account: %w", err)
	}
	return user.ID, nil
}

// SetActiveSession reports the session's current state. A session that
// has expired is reported as ended.
func (s *IdentityService) SetActiveSession(ctx context.Context, sessionID string) (*models.Session, error) {
	sess, err := s.findSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := *sess
	if !sess.Live(s.now()) {
		out.Status = models.SessionEnded
	}
	return &out, nil
}

// SignOut ends the session. Ending an ended session is not an error.
func (s *IdentityService) SignOut(ctx context.Context, sessionID string) error {
	if uuid.Validate(sessionID) != nil {
		return ErrSessionNotFound
	}
	if err := s.repomanager.Sessions(s.db).End(ctx, sessionID); err != nil {
		return fmt.Errorf("error ending session: %w", err)
	}
	s.logger.Info(ctx, "signed out", "session_id", sessionID)
	return nil
}

// SessionToken signs a short-lived JWT for a live session.
func (s *IdentityService) SessionToken(ctx context.Context, sessionID string) (string, time.Time, error) {
	sess, err := s.findSession(ctx, sessionID)
	if err != nil {
		return "", time.Time{}, err
	}
	if !sess.Live(s.now()) {
		return "", time.Time{}, ErrSessionInactive
	}
	user, err := s.repomanager.Users(s.db).GetByID(ctx, sess.UserID)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error loading user: %w", err)
	}
	return auth.GenerateToken(auth.Subject{
		UserID:    user.ID,
		SessionID: sess.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, s.jwtSecret, s.tokenValidity)
}

func (s *IdentityService) newAttempt(kind models.AttemptKind, status models.AttemptStatus) *models.Attempt {
	return &models.Attempt{
		ID:        s.newID(),
		Kind:      kind,
		Status:    status,
		ExpiresAt: s.now().Add(attemptValidity),
	}
}

func (s *IdentityService) findUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, ErrIdentifierNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	return user, nil
}

func (s *IdentityService) createUser(ctx context.Context, tx dbx.DBTX, u *models.User) (*models.User, error) {
	u.ID = s.newID()
	created, err := s.repomanager.Users(tx).Create(ctx, u)
	if errors.Is(err, common.ErrorAlreadyExists) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return created, nil
}

func (s *IdentityService) startSession(ctx context.Context, tx dbx.DBTX, userID string) (string, error) {
	sess, err := s.repomanager.Sessions(tx).Create(ctx, s.newID(), userID, s.sessionValidity)
	if err != nil {
		return "", fmt.Errorf("error creating session: %w", err)
	}
	return sess.ID, nil
}

func (s *IdentityService) findSession(ctx context.Context, sessionID string) (*models.Session, error) {
	if uuid.Validate(sessionID) != nil {
		return nil, ErrSessionNotFound
	}
	sess, err := s.repomanager.Sessions(s.db).Find(ctx, sessionID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error searching session: %w", err)
	}
	return sess, nil
}

func (s *IdentityService) loadAttempt(ctx context.Context, attemptID string) (*models.Attempt, error) {
	if uuid.Validate(attemptID) != nil {
		return nil, ErrAttemptNotFound
	}
	a, err := s.repomanager.Attempts(s.db).Get(ctx, attemptID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error loading attempt: %w", err)
	}
	return a, nil
}

// updateAttempt locks the attempt, lets fn inspect and change it, and
// writes it back. Outcomes that change the attempt's recorded state (a
// wrong guess, expiry) are committed before being returned.
func (s *IdentityService) updateAttempt(ctx context.Context, attemptID string, fn func(ctx context.Context, tx dbx.DBTX, a *models.Attempt) error) (*models.Attempt, error) {
	if uuid.Validate(attemptID) != nil {
		return nil, ErrAttemptNotFound
	}

	var (
		result  *models.Attempt
		outcome error
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Attempts(tx)
		a, err := repo.GetForUpdate(ctx, attemptID)
		if errors.Is(err, common.ErrorNotFound) {
			return ErrAttemptNotFound
		}
		if err != nil {
			return fmt.Errorf("error loading attempt: %w", err)
		}

		outcome = fn(ctx, tx, a)
		if outcome != nil && !recorded(outcome) {
			return outcome
		}
		if err := repo.Update(ctx, a); err != nil {
			return fmt.Errorf("error updating attempt: %w", err)
		}
		result = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		return nil, outcome
	}
	return result, nil
}

func recorded(err error) bool {
	return errors.Is(err, ErrIncorrectCode) ||
		errors.Is(err, ErrTooManyAttempts) ||
		errors.Is(err, ErrAttemptExpired)
}

// checkOpen abandons attempts past their deadline.
func (s *IdentityService) checkOpen(a *models.Attempt) error {
	if a.Status == models.AttemptAbandoned {
		return ErrAttemptExpired
	}
	if a.Expired(s.now()) {
		a.Status = models.AttemptAbandoned
		return ErrAttemptExpired
	}
	return nil
}

// issueCode sets a fresh code on a and returns it in clear text.
func (s *IdentityService) issueCode(a *models.Attempt) (string, error) {
	code, err := s.newCode()
	if err != nil {
		return "", fmt.Errorf("error generating code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("error hashing code: %w", err)
	}
	a.CodeHash = hash
	a.CodeExpiresAt = s.now().Add(s.codeValidity)
	return code, nil
}

// checkCode compares code against the attempt's code, counting wrong
// guesses. Once the limit is reached the attempt is abandoned.
func (s *IdentityService) checkCode(a *models.Attempt, code string) error {
	if a.CodeAttempts >= s.maxCodeAttempts {
		a.Status = models.AttemptAbandoned
		return ErrTooManyAttempts
	}
	if len(a.CodeHash) == 0 || !s.now().Before(a.CodeExpiresAt) {
		return ErrCodeExpired
	}
	if !common.IsNumericCode(code, common.CodeLength) ||
		bcrypt.CompareHashAndPassword(a.CodeHash, []byte(code)) != nil {
		a.CodeAttempts++
		return ErrIncorrectCode
	}
	a.CodeHash = nil
	a.CodeExpiresAt = time.Time{}
	return nil
}
