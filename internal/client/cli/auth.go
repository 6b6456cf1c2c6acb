package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/client/idp"
	"github.com/dmitrijs2005/gophauth/internal/client/services"
	"github.com/dmitrijs2005/gophauth/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) prompt(text string) (string, error) {
	return getSimpleText(a.reader, text, a.out)
}

// readSecret reads a password and returns it as a string, wiping the
// terminal buffer.
func (a *App) readSecret(text string) (string, error) {
	pw, err := getPassword(text, a.out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

func (a *App) confirm(ctx context.Context, question string) (bool, error) {
	answer, err := a.prompt(question + " [y/N]")
	if err != nil {
		return false, err
	}
	return isYes(answer), nil
}

// SignUp collects the sign-up form. When the provider asks for email
// verification the code is requested right away.
func (a *App) SignUp(ctx context.Context) error {
	var p idp.SignUpParams
	var err error

	if p.EmailAddress, err = a.prompt("Enter email"); err != nil {
		return err
	}
	if p.FirstName, err = a.prompt("Enter first name"); err != nil {
		return err
	}
	if p.LastName, err = a.prompt("Enter last name"); err != nil {
		return err
	}
	if p.Password, err = a.readSecret("Enter password"); err != nil {
		return err
	}

	flow, err := a.credentials.SignUp(ctx, p)
	if err != nil {
		return err
	}

	if flow.State() == services.SignUpComplete {
		printlnFn("Account created. You are signed in.")
		return nil
	}

	a.signUp = flow
	printlnFn(services.CodeSentNotice)
	return a.Verify(ctx)
}

// Verify submits the email code of the pending sign-up.
func (a *App) Verify(ctx context.Context) error {
	if a.signUp == nil || a.signUp.State() != services.SignUpMissingRequirements {
		printlnFn("Nothing to verify. Use 'signup' first.")
		return nil
	}

	code, err := a.prompt("Enter the 6-digit verification code")
	if err != nil {
		return err
	}
	if err := a.signUp.VerifyEmail(ctx, code); err != nil {
		printlnFn("Type 'verify' to try again or 'resend' for a new code.")
		return err
	}

	a.signUp = nil
	printlnFn("Email verified. You are signed in.")
	return nil
}

// Resend asks for another verification code for the pending sign-up.
func (a *App) Resend(ctx context.Context) error {
	if a.signUp == nil || a.signUp.State() != services.SignUpMissingRequirements {
		printlnFn("Nothing to verify. Use 'signup' first.")
		return nil
	}
	if err := a.signUp.ResendCode(ctx); err != nil {
		return err
	}
	printlnFn(services.CodeSentNotice)
	return nil
}

// SignIn prompts for an email address and password.
func (a *App) SignIn(ctx context.Context) error {
	if a.isSignedIn() {
		printlnFn("Already signed in. Use 'signout' first.")
		return nil
	}

	identifier, err := a.prompt("Enter email")
	if err != nil {
		return err
	}
	password, err := a.readSecret("Enter password")
	if err != nil {
		return err
	}

	if err := a.credentials.SignIn(ctx, identifier, password); err != nil {
		return err
	}
	printlnFn("Signed in.")
	return nil
}

// OAuth signs in through a third-party provider in the browser. provider
// defaults to google.
func (a *App) OAuth(ctx context.Context, provider string) error {
	if a.isSignedIn() {
		printlnFn("Already signed in. Use 'signout' first.")
		return nil
	}
	if provider == "" {
		provider = "google"
	}
	strategy := "oauth_" + strings.ToLower(strings.TrimPrefix(provider, "oauth_"))

	printlnFn(fmt.Sprintf("Continue with %s in your browser...", services.ProviderLabel(strategy)))
	if err := a.credentials.SignInWithOAuth(ctx, strategy); err != nil {
		return err
	}
	printlnFn("Signed in.")
	return nil
}

// Forgot walks through a password reset. An empty answer to the code
// prompt cancels the reset; "resend" requests another code.
func (a *App) Forgot(ctx context.Context) error {
	flow := a.credentials.RequestPasswordReset()

	identifier, err := a.prompt("Enter your email address")
	if err != nil {
		return err
	}
	if err := flow.RequestCode(ctx, identifier); err != nil {
		return err
	}
	printlnFn(services.CodeSentNotice)

	for flow.Stage() == services.StageCodeSent {
		code, err := a.prompt("Enter the 6-digit code (empty to cancel, 'resend' for a new one)")
		if err != nil {
			flow.Cancel()
			return err
		}
		switch code {
		case "":
			flow.Cancel()
			printlnFn("Password reset cancelled.")
			return nil
		case "resend":
			if err := flow.ResendCode(ctx); err != nil {
				return err
			}
			printlnFn(services.CodeSentNotice)
			continue
		}

		if err := flow.VerifyCode(ctx, code); err != nil {
			printlnFn(services.UserMessage(err))
		}
	}

	if flow.Stage() == services.StageFailed {
		flow.Cancel()
		printlnFn("This reset can no longer be used. Please start again with 'forgot'.")
		return nil
	}

	for flow.Stage() == services.StageCodeVerified {
		password, err := a.readSecret("Enter new password")
		if err != nil {
			flow.Cancel()
			return err
		}
		confirm, err := a.readSecret("Confirm new password")
		if err != nil {
			flow.Cancel()
			return err
		}

		err = flow.CompleteWithNewCredential(ctx, password, confirm)
		if err == nil {
			break
		}
		printlnFn(services.UserMessage(err))
	}

	if flow.Stage() != services.StageResolved {
		flow.Cancel()
		printlnFn("This reset can no longer be used. Please start again with 'forgot'.")
		return nil
	}

	printlnFn(services.PasswordResetNotice)
	return nil
}

// WhoAmI prints the identity confirmed by the backend.
func (a *App) WhoAmI(ctx context.Context) error {
	if !a.isSignedIn() {
		printlnFn("Not signed in.")
		return nil
	}
	id, ok := a.identity.Get()
	if !ok {
		printlnFn("Signed in; profile not synced with the backend yet.")
		return nil
	}
	printlnFn(fmt.Sprintf("%s <%s>", id.DisplayName(), id.EmailAddress))
	return nil
}

// SignOut ends the session after confirmation.
func (a *App) SignOut(ctx context.Context) error {
	ended, err := a.sessions.End(ctx)
	if err != nil {
		return err
	}
	if ended {
		printlnFn("Signed out.")
	}
	return nil
}

// Status prints session, sync and connectivity state.
func (a *App) Status(ctx context.Context) error {
	s := a.sessions.Current()
	st := a.reconciler.State()

	printlnFn("session:", string(s.Status))
	if s.ID != "" {
		printlnFn("session id:", s.ID)
	}
	printlnFn("synced:", st.Synced && st.SessionID == s.ID)
	printlnFn("backend:", string(a.Mode()))
	return nil
}
