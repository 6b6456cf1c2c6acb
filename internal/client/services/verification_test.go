package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/idp"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResetFlow(p *fakeProvider) (*VerificationFlow, *fakeActivator) {
	a := &fakeActivator{}
	return NewPasswordResetFlow(p, a, logging.Discard()), a
}

func resetProvider() *fakeProvider {
	p := newFakeProvider()
	p.resetAttempt = idp.Attempt{ID: "sia_1", Result: idp.Incomplete{Status: "needs_first_factor"}}
	p.firstFactorAttempt = idp.Attempt{ID: "sia_1", Result: idp.NeedsNewPassword{}}
	p.resetPasswordAttempt = idp.Attempt{ID: "sia_1", Result: idp.Complete{SessionID: "sess_1"}}
	return p
}

func TestPasswordReset_HappyPath(t *testing.T) {
	ctx := context.Background()
	p := resetProvider()
	f, a := newResetFlow(p)

	require.Equal(t, StageIdle, f.Stage())
	require.NoError(t, f.RequestCode(ctx, "  ada@example.com "))
	assert.Equal(t, StageCodeSent, f.Stage())
	assert.Equal(t, "ada@example.com", f.Identifier())

	require.NoError(t, f.VerifyCode(ctx, "123456"))
	assert.Equal(t, StageCodeVerified, f.Stage())
	assert.Equal(t, "sia_1", p.lastAttemptID)
	assert.Equal(t, "123456", p.lastCode)

	require.NoError(t, f.CompleteWithNewCredential(ctx, "new-password", "new-password"))
	assert.Equal(t, StageResolved, f.Stage())
	assert.Equal(t, "new-password", p.lastPassword)
	assert.Equal(t, []string{"sess_1"}, a.ids())
	assert.Equal(t, "sess_1", f.SessionID())
}

func TestRequestCode_MasksProviderFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"unknown identifier", &idp.RejectedError{Message: "Couldn't find your account.", Err: idp.ErrNotFound}},
		{"transport", idp.ErrUnavailable},
		{"unexpected", errors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := resetProvider()
			p.resetErr = tt.err
			f, _ := newResetFlow(p)

			require.NoError(t, f.RequestCode(context.Background(), "nobody@example.com"))
			assert.Equal(t, StageCodeSent, f.Stage())

			err := f.VerifyCode(context.Background(), "123456")
			var aerr *AuthError
			require.ErrorAs(t, err, &aerr)
			assert.Equal(t, "Invalid code. Please try again.", aerr.Message)
			assert.Equal(t, 0, p.count("AttemptFirstFactor"))
			assert.Equal(t, StageCodeSent, f.Stage())
		})
	}
}

func TestRequestCode_EmptyIdentifier(t *testing.T) {
	p := resetProvider()
	f, _ := newResetFlow(p)

	err := f.RequestCode(context.Background(), "   ")
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Please enter your email address", UserMessage(err))
	assert.Equal(t, 0, p.count("CreateResetSignIn"))
	assert.Equal(t, StageIdle, f.Stage())
}

func TestVerifyCode_RequiresCodeSent(t *testing.T) {
	p := resetProvider()
	f, _ := newResetFlow(p)

	err := f.VerifyCode(context.Background(), "123456")
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 0, p.count("AttemptFirstFactor"))
	assert.Equal(t, StageIdle, f.Stage())
}

func TestVerifyCode_RejectsMalformedCode(t *testing.T) {
	for _, code := range []string{"", "12345", "1234567", "12a456", "١٢٣٤٥٦"} {
		t.Run(code, func(t *testing.T) {
			p := resetProvider()
			f, _ := newResetFlow(p)
			require.NoError(t, f.RequestCode(context.Background(), "ada@example.com"))

			err := f.VerifyCode(context.Background(), code)
			require.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, "Please enter the 6-digit code", UserMessage(err))
			assert.Equal(t, 0, p.count("AttemptFirstFactor"))
			assert.Equal(t, StageCodeSent, f.Stage())
		})
	}
}

func TestVerifyCode_ProviderErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantMsg   string
		retryable bool
		wantStage Stage
	}{
		{
			name:      "rejection with message",
			err:       &idp.RejectedError{Message: "Incorrect code"},
			wantMsg:   "Incorrect code",
			wantStage: StageCodeSent,
		},
		{
			name:      "rejection without message",
			err:       &idp.RejectedError{},
			wantMsg:   "Invalid code. Please try again.",
			wantStage: StageCodeSent,
		},
		{
			name:      "transport",
			err:       idp.ErrUnavailable,
			wantMsg:   "Invalid code. Please try again.",
			retryable: true,
			wantStage: StageCodeSent,
		},
		{
			name:      "expired attempt",
			err:       &idp.RejectedError{Message: "Too many attempts.", Err: idp.ErrAttemptExpired},
			wantMsg:   "Too many attempts.",
			wantStage: StageFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := resetProvider()
			p.firstFactorErr = tt.err
			f, _ := newResetFlow(p)
			require.NoError(t, f.RequestCode(context.Background(), "ada@example.com"))

			err := f.VerifyCode(context.Background(), "123456")
			var aerr *AuthError
			require.ErrorAs(t, err, &aerr)
			assert.Equal(t, tt.wantMsg, aerr.Message)
			assert.Equal(t, tt.retryable, aerr.Retryable)
			assert.Equal(t, tt.wantStage, f.Stage())
		})
	}
}

func TestVerifyCode_UnexpectedResultKeepsStage(t *testing.T) {
	p := resetProvider()
	p.firstFactorAttempt = idp.Attempt{ID: "sia_1", Result: idp.Incomplete{Status: "needs_first_factor"}}
	f, _ := newResetFlow(p)
	require.NoError(t, f.RequestCode(context.Background(), "ada@example.com"))

	err := f.VerifyCode(context.Background(), "123456")
	assert.Equal(t, "Invalid code. Please try again.", UserMessage(err))
	assert.Equal(t, StageCodeSent, f.Stage())
}

func TestFailedFlowCanRestart(t *testing.T) {
	p := resetProvider()
	p.firstFactorErr = &idp.RejectedError{Err: idp.ErrAttemptExpired}
	f, _ := newResetFlow(p)
	ctx := context.Background()

	require.NoError(t, f.RequestCode(ctx, "ada@example.com"))
	require.Error(t, f.VerifyCode(ctx, "123456"))
	require.Equal(t, StageFailed, f.Stage())

	require.NoError(t, f.RequestCode(ctx, "ada@example.com"))
	assert.Equal(t, StageCodeSent, f.Stage())
}

func TestCompleteWithNewCredential_Validation(t *testing.T) {
	tests := []struct {
		password, confirm, want string
	}{
		{"", "", "Please fill in all fields"},
		{"password1", "", "Please fill in all fields"},
		{"password1", "password2", "Passwords do not match"},
		{"short", "short", "Password must be at least 8 characters long"},
		{"пароль", "пароль", "Password must be at least 8 characters long"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			p := resetProvider()
			f, _ := newResetFlow(p)
			ctx := context.Background()
			require.NoError(t, f.RequestCode(ctx, "ada@example.com"))
			require.NoError(t, f.VerifyCode(ctx, "123456"))

			err := f.CompleteWithNewCredential(ctx, tt.password, tt.confirm)
			require.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, tt.want, UserMessage(err))
			assert.Equal(t, 0, p.count("ResetPassword"))
			assert.Equal(t, StageCodeVerified, f.Stage())
		})
	}
}

func TestCompleteWithNewCredential_RetriesFailedActivation(t *testing.T) {
	ctx := context.Background()
	p := resetProvider()
	f, a := newResetFlow(p)
	require.NoError(t, f.RequestCode(ctx, "ada@example.com"))
	require.NoError(t, f.VerifyCode(ctx, "123456"))

	a.err = idp.ErrUnavailable
	require.Error(t, f.CompleteWithNewCredential(ctx, "new-password", "new-password"))
	assert.Equal(t, StageCodeVerified, f.Stage())

	a.err = nil
	require.NoError(t, f.CompleteWithNewCredential(ctx, "new-password", "new-password"))
	assert.Equal(t, StageResolved, f.Stage())
	assert.Equal(t, "sess_1", f.SessionID())
	assert.Equal(t, 1, p.count("ResetPassword"))
}

func TestCompleteWithNewCredential_RequiresVerifiedCode(t *testing.T) {
	p := resetProvider()
	f, _ := newResetFlow(p)
	require.NoError(t, f.RequestCode(context.Background(), "ada@example.com"))

	err := f.CompleteWithNewCredential(context.Background(), "password1", "password1")
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 0, p.count("ResetPassword"))
}

func TestCompleteWithNewCredential_Outcomes(t *testing.T) {
	ctx := context.Background()

	t.Run("no session", func(t *testing.T) {
		p := resetProvider()
		p.resetPasswordAttempt = idp.Attempt{Result: idp.Complete{}}
		f, a := newResetFlow(p)
		require.NoError(t, f.RequestCode(ctx, "ada@example.com"))
		require.NoError(t, f.VerifyCode(ctx, "123456"))

		require.NoError(t, f.CompleteWithNewCredential(ctx, "password1", "password1"))
		assert.Equal(t, StageResolved, f.Stage())
		assert.Empty(t, a.ids())
	})

	t.Run("not complete", func(t *testing.T) {
		p := resetProvider()
		p.resetPasswordAttempt = idp.Attempt{Result: idp.Incomplete{Status: "needs_new_password"}}
		f, _ := newResetFlow(p)
		require.NoError(t, f.RequestCode(ctx, "ada@example.com"))
		require.NoError(t, f.VerifyCode(ctx, "123456"))

		err := f.CompleteWithNewCredential(ctx, "password1", "password1")
		assert.Equal(t, "Password reset failed. Please try again.", UserMessage(err))
		assert.Equal(t, StageCodeVerified, f.Stage())
	})

	t.Run("provider message", func(t *testing.T) {
		p := resetProvider()
		p.resetPasswordErr = &idp.RejectedError{Message: "Password has been found in a breach."}
		f, _ := newResetFlow(p)
		require.NoError(t, f.RequestCode(ctx, "ada@example.com"))
		require.NoError(t, f.VerifyCode(ctx, "123456"))

		err := f.CompleteWithNewCredential(ctx, "password1", "password1")
		assert.Equal(t, "Password has been found in a breach.", UserMessage(err))
		assert.Equal(t, StageCodeVerified, f.Stage())
	})
}

func TestResendCode(t *testing.T) {
	ctx := context.Background()
	p := resetProvider()
	f, _ := newResetFlow(p)

	require.ErrorIs(t, f.ResendCode(ctx), ErrInvalidState)

	require.NoError(t, f.RequestCode(ctx, "ada@example.com"))
	p.resetErr = idp.ErrUnavailable
	require.NoError(t, f.ResendCode(ctx))
	assert.Equal(t, StageCodeSent, f.Stage())
	assert.Equal(t, 2, p.count("CreateResetSignIn"))
}

func TestCancel_WipesFlow(t *testing.T) {
	ctx := context.Background()
	p := resetProvider()
	f, _ := newResetFlow(p)

	require.NoError(t, f.RequestCode(ctx, "ada@example.com"))
	require.NoError(t, f.VerifyCode(ctx, "123456"))
	f.Cancel()

	assert.Equal(t, StageIdle, f.Stage())
	assert.Empty(t, f.Identifier())
	require.ErrorIs(t, f.CompleteWithNewCredential(ctx, "password1", "password1"), ErrInvalidState)
	assert.Equal(t, 0, p.count("ResetPassword"))
}

func TestCancel_DropsLateResponse(t *testing.T) {
	p := resetProvider()
	p.block = make(chan struct{})
	f, _ := newResetFlow(p)

	done := make(chan error, 1)
	go func() { done <- f.RequestCode(context.Background(), "ada@example.com") }()

	require.Eventually(t, func() bool { return p.count("CreateResetSignIn") == 1 }, time.Second, 5*time.Millisecond)
	f.Cancel()
	assert.Equal(t, StageIdle, f.Stage())

	close(p.block)
	require.ErrorIs(t, <-done, ErrCancelled)
	assert.Equal(t, StageIdle, f.Stage())
	assert.Empty(t, f.Identifier())
}

func TestConcurrentOperationIsBusy(t *testing.T) {
	ctx := context.Background()
	p := resetProvider()
	f, _ := newResetFlow(p)
	require.NoError(t, f.RequestCode(ctx, "ada@example.com"))

	p.block = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- f.VerifyCode(ctx, "123456") }()
	require.Eventually(t, func() bool { return p.count("AttemptFirstFactor") == 1 }, time.Second, 5*time.Millisecond)

	require.ErrorIs(t, f.VerifyCode(ctx, "654321"), ErrBusy)
	require.ErrorIs(t, f.ResendCode(ctx), ErrBusy)

	close(p.block)
	require.NoError(t, <-done)
	assert.Equal(t, StageCodeVerified, f.Stage())
	assert.Equal(t, 1, p.count("AttemptFirstFactor"))
}

func TestEmailVerification(t *testing.T) {
	ctx := context.Background()

	t.Run("complete activates session", func(t *testing.T) {
		p := newFakeProvider()
		p.emailAttempt = idp.Attempt{ID: "sua_1", Result: idp.Complete{SessionID: "sess_2"}}
		a := &fakeActivator{}
		f := NewEmailVerificationFlow(p, a, logging.Discard(), "sua_1")

		require.NoError(t, f.RequestCode(ctx, "ada@example.com"))
		assert.Equal(t, 1, p.count("PrepareEmailVerification"))
		assert.Equal(t, "sua_1", p.lastAttemptID)

		require.NoError(t, f.VerifyCode(ctx, "111222"))
		assert.Equal(t, StageResolved, f.Stage())
		assert.Equal(t, []string{"sess_2"}, a.ids())
	})

	t.Run("not complete", func(t *testing.T) {
		p := newFakeProvider()
		p.emailAttempt = idp.Attempt{ID: "sua_1", Result: idp.MissingRequirements{}}
		f := NewEmailVerificationFlow(p, &fakeActivator{}, logging.Discard(), "sua_1")
		require.NoError(t, f.RequestCode(ctx, "ada@example.com"))

		err := f.VerifyCode(ctx, "111222")
		assert.Equal(t, "Invalid verification code. Please try again.", UserMessage(err))
		assert.Equal(t, StageCodeSent, f.Stage())
	})

	t.Run("bad format", func(t *testing.T) {
		p := newFakeProvider()
		f := NewEmailVerificationFlow(p, &fakeActivator{}, logging.Discard(), "sua_1")
		require.NoError(t, f.RequestCode(ctx, "ada@example.com"))

		err := f.VerifyCode(ctx, "12")
		assert.Equal(t, "Please enter a valid 6-digit verification code", UserMessage(err))
		assert.Equal(t, 0, p.count("AttemptEmailVerification"))
	})

	t.Run("no credential step", func(t *testing.T) {
		f := NewEmailVerificationFlow(newFakeProvider(), &fakeActivator{}, logging.Discard(), "sua_1")
		require.ErrorIs(t, f.CompleteWithNewCredential(ctx, "password1", "password1"), ErrInvalidState)
	})

	t.Run("activation failure can be retried", func(t *testing.T) {
		p := newFakeProvider()
		p.emailAttempt = idp.Attempt{ID: "sua_1", Result: idp.Complete{SessionID: "sess_2"}}
		a := &fakeActivator{err: idp.ErrUnavailable}
		f := NewEmailVerificationFlow(p, a, logging.Discard(), "sua_1")
		require.NoError(t, f.RequestCode(ctx, "ada@example.com"))

		err := f.VerifyCode(ctx, "111222")
		assert.Equal(t, "Verification failed. Please try again.", UserMessage(err))
		assert.Equal(t, StageCodeSent, f.Stage())
		assert.Empty(t, f.SessionID())

		a.mu.Lock()
		a.err = nil
		a.mu.Unlock()

		require.NoError(t, f.VerifyCode(ctx, "111222"))
		assert.Equal(t, StageResolved, f.Stage())
		assert.Equal(t, "sess_2", f.SessionID())
		assert.Equal(t, []string{"sess_2", "sess_2"}, a.ids())
		assert.Equal(t, 1, p.count("AttemptEmailVerification"))
	})

	t.Run("cancel keeps sign-up attempt", func(t *testing.T) {
		p := newFakeProvider()
		f := NewEmailVerificationFlow(p, &fakeActivator{}, logging.Discard(), "sua_1")
		require.NoError(t, f.RequestCode(ctx, "ada@example.com"))
		f.Cancel()

		require.NoError(t, f.RequestCode(ctx, "ada@example.com"))
		assert.Equal(t, "sua_1", p.lastAttemptID)
	})
}

func TestTransitionTable(t *testing.T) {
	assert.True(t, canTransition(StageIdle, StageCodeRequested))
	assert.True(t, canTransition(StageCodeSent, StageCodeVerified))
	assert.False(t, canTransition(StageIdle, StageCodeVerified))
	assert.False(t, canTransition(StageResolved, StageCodeSent))
	assert.False(t, canTransition(StageCodeVerified, StageCodeSent))
}
