package services

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/client/idp"
	"github.com/dmitrijs2005/gophauth/internal/client/models"
)

// ---- fake identity provider ----

type fakeProvider struct {
	mu    sync.Mutex
	calls map[string]int

	signInAttempt idp.Attempt
	signInErr     error

	resetAttempt idp.Attempt
	resetErr     error

	firstFactorAttempt idp.Attempt
	firstFactorErr     error
	lastCode           string
	lastAttemptID      string

	resetPasswordAttempt idp.Attempt
	resetPasswordErr     error
	lastPassword         string

	signUpAttempt idp.Attempt
	signUpErr     error

	prepareErr error

	emailAttempt idp.Attempt
	emailErr     error

	federatedAttempt idp.Attempt
	federatedErr     error
	lastStrategy     string

	setActiveErr error
	signOutErr   error
	signedOut    []string
	token        string
	tokenErr     error

	// block, when set, is waited on inside every attempt call
	block chan struct{}
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{calls: make(map[string]int)}
}

func (f *fakeProvider) record(name string) {
	f.mu.Lock()
	f.calls[name]++
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
}

func (f *fakeProvider) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeProvider) CreateSignIn(ctx context.Context, identifier, password string) (idp.Attempt, error) {
	f.record("CreateSignIn")
	return f.signInAttempt, f.signInErr
}

func (f *fakeProvider) CreateResetSignIn(ctx context.Context, identifier string) (idp.Attempt, error) {
	f.record("CreateResetSignIn")
	return f.resetAttempt, f.resetErr
}

func (f *fakeProvider) AttemptFirstFactor(ctx context.Context, attemptID, code string) (idp.Attempt, error) {
	f.record("AttemptFirstFactor")
	f.mu.Lock()
	f.lastAttemptID, f.lastCode = attemptID, code
	f.mu.Unlock()
	return f.firstFactorAttempt, f.firstFactorErr
}

func (f *fakeProvider) ResetPassword(ctx context.Context, attemptID, password string) (idp.Attempt, error) {
	f.record("ResetPassword")
	f.mu.Lock()
	f.lastAttemptID, f.lastPassword = attemptID, password
	f.mu.Unlock()
	return f.resetPasswordAttempt, f.resetPasswordErr
}

func (f *fakeProvider) CreateSignUp(ctx context.Context, params idp.SignUpParams) (idp.Attempt, error) {
	f.record("CreateSignUp")
	return f.signUpAttempt, f.signUpErr
}

func (f *fakeProvider) PrepareEmailVerification(ctx context.Context, attemptID string) error {
	f.record("PrepareEmailVerification")
	f.mu.Lock()
	f.lastAttemptID = attemptID
	f.mu.Unlock()
	return f.prepareErr
}

func (f *fakeProvider) AttemptEmailVerification(ctx context.Context, attemptID, code string) (idp.Attempt, error) {
	f.record("AttemptEmailVerification")
	f.mu.Lock()
	f.lastAttemptID, f.lastCode = attemptID, code
	f.mu.Unlock()
	return f.emailAttempt, f.emailErr
}

func (f *fakeProvider) StartFederatedFlow(ctx context.Context, strategy string) (idp.Attempt, error) {
	f.record("StartFederatedFlow")
	f.mu.Lock()
	f.lastStrategy = strategy
	f.mu.Unlock()
	return f.federatedAttempt, f.federatedErr
}

func (f *fakeProvider) SetActiveSession(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	f.calls["SetActiveSession"]++
	f.mu.Unlock()
	return f.setActiveErr
}

func (f *fakeProvider) SignOut(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	f.calls["SignOut"]++
	f.signedOut = append(f.signedOut, sessionID)
	f.mu.Unlock()
	return f.signOutErr
}

func (f *fakeProvider) SessionToken(ctx context.Context, sessionID string) (string, error) {
	f.mu.Lock()
	f.calls["SessionToken"]++
	f.mu.Unlock()
	return f.token, f.tokenErr
}

// ---- fake activator ----

type fakeActivator struct {
	mu        sync.Mutex
	activated []string
	err       error
}

func (a *fakeActivator) Activate(ctx context.Context, sessionID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.activated = append(a.activated, sessionID)
	return a.err
}

func (a *fakeActivator) ids() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.activated...)
}

// ---- in-memory token store ----

type memStore struct {
	mu      sync.Mutex
	data    map[string]string
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (s *memStore) GetToken(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *memStore) SaveToken(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.data[key] = value
	return nil
}

func (s *memStore) ClearToken(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// ---- fake backend ----

type fakeSyncer struct {
	mu      sync.Mutex
	calls   int
	bearers []string
	user    *models.BackendUser
	err     error
}

func (s *fakeSyncer) SyncUser(ctx context.Context, bearer string) (*models.BackendUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.bearers = append(s.bearers, bearer)
	return s.user, s.err
}

func (s *fakeSyncer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func confirmWith(answer bool) ConfirmFunc {
	return func(ctx context.Context, prompt string) (bool, error) { return answer, nil }
}
