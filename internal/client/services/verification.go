package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/client/idp"
	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// Purpose says what a VerificationFlow proves.
type Purpose string

const (
	PurposeEmailVerify   Purpose = "email_verify"
	PurposePasswordReset Purpose = "password_reset"
)

// Stage is the position of a VerificationFlow.
type Stage string

const (
	StageIdle          Stage = "idle"
	StageCodeRequested Stage = "code_requested"
	StageCodeSent      Stage = "code_sent"
	StageCodeVerified  Stage = "code_verified"
	StageResolved      Stage = "resolved"
	StageFailed        Stage = "failed"
)

// transitions lists the allowed forward moves. Cancel, which always returns
// to idle, is handled separately.
var transitions = map[Stage]map[Stage]struct{}{
	StageIdle:          {StageCodeRequested: {}},
	StageCodeRequested: {StageCodeSent: {}, StageFailed: {}},
	StageCodeSent:      {StageCodeVerified: {}, StageResolved: {}, StageFailed: {}},
	StageCodeVerified:  {StageResolved: {}, StageFailed: {}},
	StageFailed:        {StageCodeRequested: {}},
}

func canTransition(from, to Stage) bool {
	_, ok := transitions[from][to]
	return ok
}

// Activator makes a session the active one.
type Activator interface {
	Activate(ctx context.Context, sessionID string) error
}

// VerificationFlow drives one code-based verification: either proving an
// email address after sign-up or resetting a forgotten password.
//
// Every operation is a blocking call. While one is in flight any other
// returns ErrBusy, except Cancel, which always succeeds and causes the
// in-flight call's result to be discarded.
type VerificationFlow struct {
	purpose   Purpose
	provider  idp.Provider
	activator Activator
	logger    logging.Logger

	mu         sync.Mutex
	stage      Stage
	identifier string
	attemptID  string
	sessionID  string
	// pendingSessionID holds a session the provider issued but that could
	// not be activated yet; the next verify step retries the activation.
	pendingSessionID string
	busy             bool
	epoch            uint64
	// seedAttemptID survives Cancel for email_verify flows, whose attempt
	// is created by sign-up rather than by RequestCode.
	seedAttemptID string
}

// NewPasswordResetFlow returns an idle password reset flow.
func NewPasswordResetFlow(provider idp.Provider, activator Activator, logger logging.Logger) *VerificationFlow {
	return &VerificationFlow{
		purpose:   PurposePasswordReset,
		provider:  provider,
		activator: activator,
		logger:    logger.With("module", "verification", "purpose", string(PurposePasswordReset)),
		stage:     StageIdle,
	}
}

// NewEmailVerificationFlow returns an idle flow verifying the email address
// of the sign-up attempt attemptID.
func NewEmailVerificationFlow(provider idp.Provider, activator Activator, logger logging.Logger, attemptID string) *VerificationFlow {
	return &VerificationFlow{
		purpose:       PurposeEmailVerify,
		provider:      provider,
		activator:     activator,
		logger:        logger.With("module", "verification", "purpose", string(PurposeEmailVerify)),
		stage:         StageIdle,
		attemptID:     attemptID,
		seedAttemptID: attemptID,
	}
}

func (f *VerificationFlow) Purpose() Purpose {
	return f.purpose
}

func (f *VerificationFlow) Stage() Stage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stage
}

// Identifier is the address the code was sent to.
func (f *VerificationFlow) Identifier() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identifier
}

// SessionID is set once the flow resolved into a session.
func (f *VerificationFlow) SessionID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessionID
}

// begin claims the flow for one operation. check runs under the lock after
// the stage test and may reject the call without marking the flow busy.
func (f *VerificationFlow) begin(allowed []Stage, check func() error) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.busy {
		return 0, ErrBusy
	}
	ok := false
	for _, s := range allowed {
		if f.stage == s {
			ok = true
			break
		}
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrInvalidState, f.stage)
	}
	if check != nil {
		if err := check(); err != nil {
			return 0, err
		}
	}
	f.busy = true
	return f.epoch, nil
}

// finish releases the flow and applies the result, unless the flow was
// cancelled since begin.
func (f *VerificationFlow) finish(epoch uint64, apply func()) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if epoch != f.epoch {
		return false
	}
	f.busy = false
	if apply != nil {
		apply()
	}
	return true
}

func (f *VerificationFlow) current(epoch uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return epoch == f.epoch
}

// moveTo must be called with mu held.
func (f *VerificationFlow) moveTo(next Stage) {
	if f.stage == next {
		return
	}
	if !canTransition(f.stage, next) {
		f.logger.Error(context.Background(), "illegal stage transition", "from", f.stage, "to", next)
		return
	}
	f.stage = next
}

func (f *VerificationFlow) pending() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pendingSessionID
}

func (f *VerificationFlow) snapshot() (identifier, attemptID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identifier, f.attemptID
}

// RequestCode asks the provider to send a code to identifier. It reports
// success whether or not the identifier is known, so callers cannot probe
// for accounts.
func (f *VerificationFlow) RequestCode(ctx context.Context, identifier string) error {
	identifier = strings.TrimSpace(identifier)
	if err := validateIdentifier(identifier); err != nil {
		return err
	}

	epoch, err := f.begin([]Stage{StageIdle, StageFailed}, nil)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.moveTo(StageCodeRequested)
	f.identifier = identifier
	attemptID := f.attemptID
	f.mu.Unlock()

	newAttemptID := f.issueCode(ctx, identifier, attemptID)

	if !f.finish(epoch, func() {
		f.attemptID = newAttemptID
		f.moveTo(StageCodeSent)
	}) {
		return ErrCancelled
	}
	return nil
}

// ResendCode issues a fresh code for the stored identifier. The stage
// stays code_sent; failures are masked the same way as in RequestCode.
func (f *VerificationFlow) ResendCode(ctx context.Context) error {
	epoch, err := f.begin([]Stage{StageCodeSent}, nil)
	if err != nil {
		return err
	}

	identifier, attemptID := f.snapshot()
	newAttemptID := f.issueCode(ctx, identifier, attemptID)

	if !f.finish(epoch, func() { f.attemptID = newAttemptID }) {
		return ErrCancelled
	}
	return nil
}

// issueCode returns the attempt ID to continue with. Errors are logged and
// swallowed.
func (f *VerificationFlow) issueCode(ctx context.Context, identifier, attemptID string) string {
	switch f.purpose {
	case PurposePasswordReset:
		attempt, err := f.provider.CreateResetSignIn(ctx, identifier)
		if err != nil {
			f.logger.Warn(ctx, "code request failed", "error", err)
			// an unknown identifier leaves no attempt to verify against
			return ""
		}
		return attempt.ID
	default:
		if err := f.provider.PrepareEmailVerification(ctx, attemptID); err != nil {
			f.logger.Warn(ctx, "code request failed", "error", err)
		}
		return attemptID
	}
}

func (f *VerificationFlow) codeMessages() (format, invalid, failed string) {
	if f.purpose == PurposePasswordReset {
		return msgEnterResetCode, msgInvalidResetCode, msgInvalidResetCode
	}
	return msgEnterVerifyCode, msgInvalidVerifyCode, msgVerificationFailed
}

// VerifyCode submits a 6-digit code. For password resets success moves the
// flow to code_verified; for email verification the sign-up completes and
// its session is activated.
func (f *VerificationFlow) VerifyCode(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	formatMsg, invalidMsg, failedMsg := f.codeMessages()

	epoch, err := f.begin([]Stage{StageCodeSent}, func() error {
		return validateCode(code, formatMsg)
	})
	if err != nil {
		return err
	}

	if pending := f.pending(); pending != "" {
		return f.resolve(ctx, epoch, pending, failedMsg)
	}

	_, attemptID := f.snapshot()

	if attemptID == "" {
		// the identifier was unknown; answer like a wrong code
		if !f.finish(epoch, nil) {
			return ErrCancelled
		}
		return &AuthError{Message: invalidMsg}
	}

	var attempt idp.Attempt
	if f.purpose == PurposePasswordReset {
		attempt, err = f.provider.AttemptFirstFactor(ctx, attemptID, code)
	} else {
		attempt, err = f.provider.AttemptEmailVerification(ctx, attemptID, code)
	}
	if err != nil {
		return f.failCall(ctx, epoch, err, failedMsg)
	}

	switch r := attempt.Result.(type) {
	case idp.NeedsNewPassword:
		if f.purpose == PurposePasswordReset {
			if !f.finish(epoch, func() { f.moveTo(StageCodeVerified) }) {
				return ErrCancelled
			}
			return nil
		}
	case idp.Complete:
		if f.purpose == PurposeEmailVerify && r.SessionID != "" {
			return f.resolve(ctx, epoch, r.SessionID, failedMsg)
		}
	}

	if !f.finish(epoch, nil) {
		return ErrCancelled
	}
	return &AuthError{Message: invalidMsg}
}

// CompleteWithNewCredential sets the new password of a verified reset and
// signs the user in when the provider returns a session.
func (f *VerificationFlow) CompleteWithNewCredential(ctx context.Context, password, confirm string) error {
	if f.purpose != PurposePasswordReset {
		return fmt.Errorf("%w: %s flow has no credential step", ErrInvalidState, f.purpose)
	}

	epoch, err := f.begin([]Stage{StageCodeVerified}, func() error {
		return validateNewPassword(password, confirm)
	})
	if err != nil {
		return err
	}

	if pending := f.pending(); pending != "" {
		return f.resolve(ctx, epoch, pending, msgPasswordResetFailed)
	}

	_, attemptID := f.snapshot()
	attempt, err := f.provider.ResetPassword(ctx, attemptID, password)
	if err != nil {
		return f.failCall(ctx, epoch, err, msgPasswordResetFailed)
	}

	r, ok := attempt.Result.(idp.Complete)
	if !ok {
		if !f.finish(epoch, nil) {
			return ErrCancelled
		}
		return &AuthError{Message: msgPasswordResetFailed}
	}
	if r.SessionID == "" {
		if !f.finish(epoch, func() { f.moveTo(StageResolved) }) {
			return ErrCancelled
		}
		return nil
	}
	return f.resolve(ctx, epoch, r.SessionID, msgPasswordResetFailed)
}

// resolve activates sessionID and finishes the flow. The flow stays busy
// during activation so no second operation can interleave. A failed
// activation keeps the stage and remembers sessionID, so repeating the
// step retries the activation without another provider call.
func (f *VerificationFlow) resolve(ctx context.Context, epoch uint64, sessionID, failedMsg string) error {
	if !f.current(epoch) {
		return ErrCancelled
	}

	activateErr := f.activator.Activate(ctx, sessionID)

	if !f.finish(epoch, func() {
		if activateErr != nil {
			f.pendingSessionID = sessionID
			return
		}
		f.pendingSessionID = ""
		f.sessionID = sessionID
		f.moveTo(StageResolved)
	}) {
		return ErrCancelled
	}
	if activateErr != nil {
		f.logger.Error(ctx, "session activation failed", "error", activateErr)
		return providerFailure(activateErr, failedMsg)
	}
	return nil
}

// failCall finishes a call that the provider answered with err. An expired
// attempt ends the flow; anything else keeps the current stage.
func (f *VerificationFlow) failCall(ctx context.Context, epoch uint64, err error, fallback string) error {
	expired := errors.Is(err, idp.ErrAttemptExpired)
	if !f.finish(epoch, func() {
		if expired {
			f.moveTo(StageFailed)
		}
	}) {
		return ErrCancelled
	}
	f.logger.Info(ctx, "provider rejected verification step", "error", err)
	return providerFailure(err, fallback)
}

// Cancel abandons the flow and returns it to idle. Any call still in flight
// will find its result discarded.
func (f *VerificationFlow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.epoch++
	f.busy = false
	f.stage = StageIdle
	f.identifier = ""
	f.attemptID = f.seedAttemptID
	f.sessionID = ""
	f.pendingSessionID = ""
}
