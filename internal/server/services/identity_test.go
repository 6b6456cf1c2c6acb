package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

func TestCreateSignIn(t *testing.T) {
	ctx := context.Background()

	t.Run("complete with session", func(t *testing.T) {
		f := newIdentityFixture(t, nil)
		u := f.store.addUser(t, "ada@example.com", "password1")
		f.expectTx()

		a, err := f.svc.CreateSignIn(ctx, "ADA@example.com", "password1")
		require.NoError(t, err)
		assert.Equal(t, models.AttemptComplete, a.Status)
		assert.Equal(t, u.ID, a.UserID)

		sess, ok := f.store.session(a.SessionID)
		require.True(t, ok)
		assert.Equal(t, u.ID, sess.UserID)
		assert.Equal(t, models.SessionActive, sess.Status)
		assert.Equal(t, models.AttemptComplete, f.store.attempt(a.ID).Status)
	})

	t.Run("unknown identifier", func(t *testing.T) {
		f := newIdentityFixture(t, nil)
		_, err := f.svc.CreateSignIn(ctx, "nobody@example.com", "password1")
		require.ErrorIs(t, err, ErrIdentifierNotFound)
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newIdentityFixture(t, nil)
		f.store.addUser(t, "ada@example.com", "password1")
		_, err := f.svc.CreateSignIn(ctx, "ada@example.com", "password2")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("user without password", func(t *testing.T) {
		f := newIdentityFixture(t, nil)
		f.store.addUser(t, "ada@example.com", "")
		_, err := f.svc.CreateSignIn(ctx, "ada@example.com", "password1")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("missing password", func(t *testing.T) {
		f := newIdentityFixture(t, nil)
		_, err := f.svc.CreateSignIn(ctx, "ada@example.com", "")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "enter your password", verr.Message)
	})

	t.Run("session failure rolls back", func(t *testing.T) {
		f := newIdentityFixture(t, nil)
		f.store.addUser(t, "ada@example.com", "password1")
		f.store.sessionErr = errors.New("db down")
		f.expectRollback()

		_, err := f.svc.CreateSignIn(ctx, "ada@example.com", "password1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error creating session")
		assert.Empty(t, f.store.attempts)
	})
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture(t, nil)
	u := f.store.addUser(t, "ada@example.com", "password1")

	a, err := f.svc.CreateResetSignIn(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptNeedsFirstFactor, a.Status)
	assert.Equal(t, sentCode{"ada@example.com", "123456", PurposePasswordReset}, f.mailer.last())

	// the code is stored hashed
	stored := f.store.attempt(a.ID)
	require.NotEmpty(t, stored.CodeHash)
	assert.NotEqual(t, []byte("123456"), stored.CodeHash)

	f.expectTx()
	_, err = f.svc.AttemptFirstFactor(ctx, a.ID, "654321")
	require.ErrorIs(t, err, ErrIncorrectCode)
	assert.Equal(t, 1, f.store.attempt(a.ID).CodeAttempts)

	// setting a password before the code is verified is refused
	f.expectRollback()
	_, err = f.svc.ResetPassword(ctx, a.ID, "newpassword")
	require.ErrorIs(t, err, ErrWrongStep)

	f.expectTx()
	a, err = f.svc.AttemptFirstFactor(ctx, a.ID, "123456")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptNeedsNewPassword, a.Status)

	_, err = f.svc.ResetPassword(ctx, a.ID, "short")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	f.expectTx()
	a, err = f.svc.ResetPassword(ctx, a.ID, "newpassword")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptComplete, a.Status)
	require.NotEmpty(t, a.SessionID)

	stored2, err := (&fakeUsersRepo{f.store}).GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword(stored2.PasswordHash, []byte("newpassword")))

	_, err = f.svc.CreateSignIn(ctx, "ada@example.com", "password1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateResetSignIn_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown identifier", func(t *testing.T) {
		f := newIdentityFixture(t, nil)
		_, err := f.svc.CreateResetSignIn(ctx, "nobody@example.com")
		require.ErrorIs(t, err, ErrIdentifierNotFound)
		assert.Empty(t, f.mailer.sent)
	})

	t.Run("not an email", func(t *testing.T) {
		f := newIdentityFixture(t, nil)
		_, err := f.svc.CreateResetSignIn(ctx, "ada")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("mailer failure", func(t *testing.T) {
		f := newIdentityFixture(t, nil)
		f.store.addUser(t, "ada@example.com", "password1")
		f.mailer.err = errors.New("smtp down")
		_, err := f.svc.CreateResetSignIn(ctx, "ada@example.com")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error sending code")
	})
}

func TestAttemptFirstFactor_Limits(t *testing.T) {
	ctx := context.Background()

	t.Run("too many attempts abandons", func(t *testing.T) {
		f := newIdentityFixture(t, nil)
		f.store.addUser(t, "ada@example.com", "password1")
		a, err := f.svc.CreateResetSignIn(ctx, "ada@example.com")
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			f.expectTx()
			_, err = f.svc.AttemptFirstFactor(ctx, a.ID, "000000")
			require.ErrorIs(t, err, ErrIncorrectCode)
		}

		f.expectTx()
		_, err = f.svc.AttemptFirstFactor(ctx, a.ID, "123456")
		require.ErrorIs(t, err, ErrTooManyAttempts)
		assert.Equal(t, models.AttemptAbandoned, f.store.attempt(a.ID).Status)
	})

	t.Run("expired attempt", func(t *testing.T) {
		f := newIdentityFixture(t, nil)
		f.store.addUser(t, "ada@example.com", "password1")
		a, err := f.svc.CreateResetSignIn(ctx, "ada@example.com")
		require.NoError(t, err)

		f.advance(2 * time.Hour)
		f.expectTx()
		_, err = f.svc.AttemptFirstFactor(ctx, a.ID, "123456")
		require.ErrorIs(t, err, ErrAttemptExpired)
		assert.Equal(t, models.AttemptAbandoned, f.store.attempt(a.ID).Status)
	})

	t.Run("expired code", func(t *testing.T) {
		f := newIdentityFixture(t, nil)
		f.store.addUser(t, "ada@example.com", "password1")
		a, err := f.svc.CreateResetSignIn(ctx, "ada@example.com")
		require.NoError(t, err)

		f.advance(11 * time.Minute)
		f.expectRollback()
		_, err = f.svc.AttemptFirstFactor(ctx, a.ID, "123456")
		require.ErrorIs(t, err, ErrCodeExpired)
		assert.Equal(t, models.AttemptNeedsFirstFactor, f.store.attempt(a.ID).Status)
	})

	t.Run("unknown attempt", func(t *testing.T) {
		f := newIdentityFixture(t, nil)
		_, err := f.svc.AttemptFirstFactor(ctx, "not-a-uuid", "123456")
		require.ErrorIs(t, err, ErrAttemptNotFound)

		f.expectRollback()
		_, err = f.svc.AttemptFirstFactor(ctx, uuid.NewString(), "123456")
		require.ErrorIs(t, err, ErrAttemptNotFound)
	})
}

var adaSignUp = SignUpParams{
	Email:     "ada@example.com",
	Password:  "password1",
	FirstName: "Ada",
	LastName:  "Lovelace",
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture(t, nil)

	a, err := f.svc.CreateSignUp(ctx, adaSignUp)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptMissingRequirements, a.Status)
	_, exists := f.store.userByEmail("ada@example.com")
	assert.False(t, exists, "user is created only after verification")

	f.expectTx()
	require.NoError(t, f.svc.PrepareEmailVerification(ctx, a.ID))
	assert.Equal(t, sentCode{"ada@example.com", "123456", PurposeEmailVerification}, f.mailer.last())

	f.expectTx()
	_, err = f.svc.AttemptEmailVerification(ctx, a.ID, "111111")
	require.ErrorIs(t, err, ErrIncorrectCode)

	f.expectTx()
	a, err = f.svc.AttemptEmailVerification(ctx, a.ID, "123456")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptComplete, a.Status)
	assert.Nil(t, a.PasswordHash)

	u, ok := f.store.userByEmail("ada@example.com")
	require.True(t, ok)
	assert.Equal(t, u.ID, a.UserID)
	assert.Equal(t, "Lovelace", u.LastName)
	require.NoError(t, bcrypt.CompareHashAndPassword(u.PasswordHash, []byte("password1")))

	sess, ok := f.store.session(a.SessionID)
	require.True(t, ok)
	assert.Equal(t, u.ID, sess.UserID)

	// a verified attempt cannot be verified again
	f.expectRollback()
	_, err = f.svc.AttemptEmailVerification(ctx, a.ID, "123456")
	require.ErrorIs(t, err, ErrWrongStep)

	f.expectTx()
	_, err = f.svc.CreateSignIn(ctx, "ada@example.com", "password1")
	require.NoError(t, err)
}

func TestCreateSignUp_Rejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(p *SignUpParams)
	}{
		{"bad email", func(p *SignUpParams) { p.Email = "ada" }},
		{"short password", func(p *SignUpParams) { p.Password = "pw" }},
		{"missing first name", func(p *SignUpParams) { p.FirstName = "" }},
		{"missing last name", func(p *SignUpParams) { p.LastName = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIdentityFixture(t, nil)
			p := adaSignUp
			tt.mutate(&p)
			_, err := f.svc.CreateSignUp(ctx, p)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Empty(t, f.store.attempts)
		})
	}

	t.Run("email taken", func(t *testing.T) {
		f := newIdentityFixture(t, nil)
		f.store.addUser(t, "ada@example.com", "password1")
		_, err := f.svc.CreateSignUp(ctx, adaSignUp)
		require.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("email taken before verification", func(t *testing.T) {
		f := newIdentityFixture(t, nil)
		a, err := f.svc.CreateSignUp(ctx, adaSignUp)
		require.NoError(t, err)
		f.expectTx()
		require.NoError(t, f.svc.PrepareEmailVerification(ctx, a.ID))

		f.store.addUser(t, "ada@example.com", "other-password")
		f.expectRollback()
		_, err = f.svc.AttemptEmailVerification(ctx, a.ID, "123456")
		require.ErrorIs(t, err, ErrEmailTaken)
	})
}

func TestPrepareEmailVerification_WrongKind(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture(t, nil)
	f.store.addUser(t, "ada@example.com", "password1")
	a, err := f.svc.CreateResetSignIn(ctx, "ada@example.com")
	require.NoError(t, err)

	f.expectRollback()
	require.ErrorIs(t, f.svc.PrepareEmailVerification(ctx, a.ID), ErrWrongStep)
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture(t, nil)
	u := f.store.addUser(t, "ada@example.com", "password1")
	f.expectTx()
	a, err := f.svc.CreateSignIn(ctx, "ada@example.com", "password1")
	require.NoError(t, err)

	sess, err := f.svc.SetActiveSession(ctx, a.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionActive, sess.Status)

	token, expiresAt, err := f.svc.SessionToken(ctx, a.SessionID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, 5*time.Second)

	claims, err := auth.ParseToken(token, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID())
	assert.Equal(t, a.SessionID, claims.SessionID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "Ada", claims.FirstName)

	require.NoError(t, f.svc.SignOut(ctx, a.SessionID))
	require.NoError(t, f.svc.SignOut(ctx, a.SessionID))

	sess, err = f.svc.SetActiveSession(ctx, a.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionEnded, sess.Status)

	_, _, err = f.svc.SessionToken(ctx, a.SessionID)
	require.ErrorIs(t, err, ErrSessionInactive)
}

func TestSessions_ExpiredAndUnknown(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture(t, nil)
	f.store.addUser(t, "ada@example.com", "password1")
	f.expectTx()
	a, err := f.svc.CreateSignIn(ctx, "ada@example.com", "password1")
	require.NoError(t, err)

	f.advance(2 * time.Hour)
	sess, err := f.svc.SetActiveSession(ctx, a.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionEnded, sess.Status)
	stored, _ := f.store.session(a.SessionID)
	assert.Equal(t, models.SessionActive, stored.Status, "the stored row is not rewritten")

	_, err = f.svc.SetActiveSession(ctx, uuid.NewString())
	require.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.svc.SetActiveSession(ctx, "sess_1")
	require.ErrorIs(t, err, ErrSessionNotFound)
	require.ErrorIs(t, f.svc.SignOut(ctx, "sess_1"), ErrSessionNotFound)
}

func newFederatedFixture(t *testing.T) (*identityFixture, *fakeFederated) {
	t.Helper()
	fed := &fakeFederated{
		strategy: "oauth_google",
		ident:    &FederatedIdentity{Subject: "g-1", Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"},
	}
	return newIdentityFixture(t, fed), fed
}

func TestStartFederated(t *testing.T) {
	ctx := context.Background()
	verifier := oauth2.GenerateVerifier()
	challenge := oauth2.S256ChallengeFromVerifier(verifier)

	t.Run("disabled", func(t *testing.T) {
		f := newIdentityFixture(t, nil)
		_, _, err := f.svc.StartFederated(ctx, "oauth_google", "http://127.0.0.1:8085/callback", challenge)
		require.ErrorIs(t, err, ErrUnsupportedStrategy)
	})

	t.Run("other strategy", func(t *testing.T) {
		f, _ := newFederatedFixture(t)
		_, _, err := f.svc.StartFederated(ctx, "oauth_github", "http://127.0.0.1:8085/callback", challenge)
		require.ErrorIs(t, err, ErrUnsupportedStrategy)
	})

	t.Run("redirect must be loopback", func(t *testing.T) {
		f, _ := newFederatedFixture(t)
		for _, redirect := range []string{"https://evil.example.com/callback", "http://10.0.0.1/callback", ""} {
			_, _, err := f.svc.StartFederated(ctx, "oauth_google", redirect, challenge)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr, redirect)
		}
	})

	t.Run("challenge required", func(t *testing.T) {
		f, _ := newFederatedFixture(t)
		_, _, err := f.svc.StartFederated(ctx, "oauth_google", "http://localhost:8085/callback", "plain")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("ok", func(t *testing.T) {
		f, _ := newFederatedFixture(t)
		a, authURL, err := f.svc.StartFederated(ctx, "oauth_google", "http://127.0.0.1:8085/callback", challenge)
		require.NoError(t, err)
		assert.Contains(t, authURL, "state="+a.ID)
		stored := f.store.attempt(a.ID)
		assert.Equal(t, models.AttemptFederated, stored.Kind)
		assert.Equal(t, challenge, stored.CodeChallenge)
	})
}

func TestCompleteFederated(t *testing.T) {
	ctx := context.Background()
	redirect := "http://127.0.0.1:8085/callback"

	start := func(t *testing.T, f *identityFixture) (*models.Attempt, string) {
		t.Helper()
		verifier := oauth2.GenerateVerifier()
		a, _, err := f.svc.StartFederated(ctx, "oauth_google", redirect, oauth2.S256ChallengeFromVerifier(verifier))
		require.NoError(t, err)
		return a, verifier
	}

	t.Run("creates and links a new user", func(t *testing.T) {
		f, fed := newFederatedFixture(t)
		a, verifier := start(t, f)

		f.expectTx()
		done, err := f.svc.CompleteFederated(ctx, a.ID, "auth-code", verifier)
		require.NoError(t, err)
		assert.Equal(t, models.AttemptComplete, done.Status)
		assert.Equal(t, "auth-code", fed.lastCode)
		assert.Equal(t, verifier, fed.lastVerifier)
		assert.Equal(t, redirect, fed.lastRedirect)

		u, ok := f.store.userByEmail("ada@example.com")
		require.True(t, ok)
		assert.Empty(t, u.PasswordHash)
		assert.Equal(t, u.ID, f.store.accounts["oauth_google|g-1"])
		_, ok = f.store.session(done.SessionID)
		assert.True(t, ok)

		// the same subject signs in to the same user
		a2, verifier2 := start(t, f)
		f.expectTx()
		done2, err := f.svc.CompleteFederated(ctx, a2.ID, "auth-code-2", verifier2)
		require.NoError(t, err)
		assert.Equal(t, u.ID, done2.UserID)
		assert.Len(t, f.store.users, 1)
	})

	t.Run("links an existing user by email", func(t *testing.T) {
		f, _ := newFederatedFixture(t)
		u := f.store.addUser(t, "ada@example.com", "password1")
		a, verifier := start(t, f)

		f.expectTx()
		done, err := f.svc.CompleteFederated(ctx, a.ID, "auth-code", verifier)
		require.NoError(t, err)
		assert.Equal(t, u.ID, done.UserID)
		assert.Equal(t, u.ID, f.store.accounts["oauth_google|g-1"])
	})

	t.Run("verifier mismatch", func(t *testing.T) {
		f, fed := newFederatedFixture(t)
		a, _ := start(t, f)

		_, err := f.svc.CompleteFederated(ctx, a.ID, "auth-code", oauth2.GenerateVerifier())
		require.ErrorIs(t, err, ErrFederatedExchange)
		assert.Equal(t, 0, fed.calls)
	})

	t.Run("exchange failure leaves attempt open", func(t *testing.T) {
		f, fed := newFederatedFixture(t)
		fed.err = ErrFederatedExchange
		a, verifier := start(t, f)

		_, err := f.svc.CompleteFederated(ctx, a.ID, "auth-code", verifier)
		require.ErrorIs(t, err, ErrFederatedExchange)
		assert.Equal(t, models.AttemptNeedsFirstFactor, f.store.attempt(a.ID).Status)
	})

	t.Run("expired", func(t *testing.T) {
		f, _ := newFederatedFixture(t)
		a, verifier := start(t, f)
		f.advance(2 * time.Hour)

		_, err := f.svc.CompleteFederated(ctx, a.ID, "auth-code", verifier)
		require.ErrorIs(t, err, ErrAttemptExpired)
	})

	t.Run("not a federated attempt", func(t *testing.T) {
		f, _ := newFederatedFixture(t)
		a, err := f.svc.CreateSignUp(ctx, adaSignUp)
		require.NoError(t, err)

		_, err = f.svc.CompleteFederated(ctx, a.ID, "auth-code", oauth2.GenerateVerifier())
		require.ErrorIs(t, err, ErrWrongStep)
	})
}
