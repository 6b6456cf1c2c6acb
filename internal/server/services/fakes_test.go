package services

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/attempts"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/directory"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ---- in-memory store behind all fake repositories ----

type fakeStore struct {
	mu        sync.Mutex
	users     map[string]models.User
	attempts  map[string]models.Attempt
	sessions  map[string]models.Session
	accounts  map[string]string
	directory map[string]models.DirectoryUser

	// sessionErr, when set, fails every session creation
	sessionErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[string]models.User),
		attempts:  make(map[string]models.Attempt),
		sessions:  make(map[string]models.Session),
		accounts:  make(map[string]string),
		directory: make(map[string]models.DirectoryUser),
	}
}

func (s *fakeStore) addUser(t *testing.T, email, password string) models.User {
	t.Helper()
	u := models.User{ID: uuid.NewString(), Email: email, FirstName: "Ada", LastName: "Lovelace"}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("bcrypt: %v", err)
		}
		u.PasswordHash = hash
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return u
}

func (s *fakeStore) attempt(id string) models.Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[id]
}

func (s *fakeStore) session(id string) (models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *fakeStore) userByEmail(email string) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return models.User{}, false
}

type fakeUsersRepo struct{ s *fakeStore }

func (r *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if _, ok := r.s.userByEmail(u.Email); ok {
		return nil, common.ErrorAlreadyExists
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := *u
	out.CreatedAt, out.UpdatedAt = time.Now(), time.Now()
	r.s.users[out.ID] = out
	return &out, nil
}

func (r *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := r.s.userByEmail(email)
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (r *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (r *fakeUsersRepo) UpdatePassword(ctx context.Context, id string, hash []byte) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	r.s.users[id] = u
	return nil
}

type fakeAttemptsRepo struct{ s *fakeStore }

func (r *fakeAttemptsRepo) Create(ctx context.Context, a *models.Attempt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a.CreatedAt = time.Now()
	r.s.attempts[a.ID] = *a
	return nil
}

func (r *fakeAttemptsRepo) Get(ctx context.Context, id string) (*models.Attempt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.attempts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &a, nil
}

func (r *fakeAttemptsRepo) GetForUpdate(ctx context.Context, id string) (*models.Attempt, error) {
	return r.Get(ctx, id)
}

func (r *fakeAttemptsRepo) Update(ctx context.Context, a *models.Attempt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.attempts[a.ID]; !ok {
		return common.ErrorNotFound
	}
	r.s.attempts[a.ID] = *a
	return nil
}

type fakeSessionsRepo struct{ s *fakeStore }

func (r *fakeSessionsRepo) Create(ctx context.Context, id, userID string, validity time.Duration) (*models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.sessionErr != nil {
		return nil, r.s.sessionErr
	}
	sess := models.Session{
		ID:        id,
		UserID:    userID,
		Status:    models.SessionActive,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(validity),
	}
	r.s.sessions[id] = sess
	return &sess, nil
}

func (r *fakeSessionsRepo) Find(ctx context.Context, id string) (*models.Session, error) {
	sess, ok := r.s.session(id)
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &sess, nil
}

func (r *fakeSessionsRepo) End(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sess, ok := r.s.sessions[id]; ok {
		sess.Status = models.SessionEnded
		r.s.sessions[id] = sess
	}
	return nil
}

type fakeAccountsRepo struct{ s *fakeStore }

func (r *fakeAccountsRepo) Link(ctx context.Context, acc *models.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := acc.Provider + "|" + acc.Subject
	if _, ok := r.s.accounts[key]; !ok {
		r.s.accounts[key] = acc.UserID
	}
	return nil
}

func (r *fakeAccountsRepo) FindUserID(ctx context.Context, provider, subject string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.accounts[provider+"|"+subject]
	if !ok {
		return "", common.ErrorNotFound
	}
	return id, nil
}

type fakeDirectoryRepo struct{ s *fakeStore }

func (r *fakeDirectoryRepo) Upsert(ctx context.Context, u *models.DirectoryUser) (*models.DirectoryUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := *u
	if prev, ok := r.s.directory[u.ProviderID]; ok {
		out.ID, out.CreatedAt = prev.ID, prev.CreatedAt
	} else {
		out.ID = strconv.Itoa(len(r.s.directory) + 1)
		out.CreatedAt = time.Now()
	}
	out.UpdatedAt = time.Now()
	r.s.directory[u.ProviderID] = out
	return &out, nil
}

func (r *fakeDirectoryRepo) GetByProviderID(ctx context.Context, providerID string) (*models.DirectoryUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.directory[providerID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

type fakeRepoManager struct{ s *fakeStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository              { return &fakeUsersRepo{m.s} }
func (m *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository        { return &fakeAccountsRepo{m.s} }
func (m *fakeRepoManager) Attempts(dbx.DBTX) attempts.Repository        { return &fakeAttemptsRepo{m.s} }
func (m *fakeRepoManager) Sessions(dbx.DBTX) sessions.Repository        { return &fakeSessionsRepo{m.s} }
func (m *fakeRepoManager) Directory(dbx.DBTX) directory.Repository      { return &fakeDirectoryRepo{m.s} }

// ---- mail and federated provider ----

type sentCode struct {
	Email, Code, Purpose string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (m *fakeMailer) SendCode(ctx context.Context, email, code, purpose string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentCode{email, code, purpose})
	return nil
}

func (m *fakeMailer) last() sentCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentCode{}
	}
	return m.sent[len(m.sent)-1]
}

type fakeFederated struct {
	strategy string
	ident    *FederatedIdentity
	err      error

	calls        int
	lastCode     string
	lastVerifier string
	lastRedirect string
}

func (f *fakeFederated) Strategy() string { return f.strategy }

func (f *fakeFederated) AuthCodeURL(state, redirectURL, codeChallenge string) string {
	return "https://idp.example.com/auth?state=" + state + "&code_challenge=" + codeChallenge
}

func (f *fakeFederated) Exchange(ctx context.Context, code, verifier, redirectURL string) (*FederatedIdentity, error) {
	f.calls++
	f.lastCode, f.lastVerifier, f.lastRedirect = code, verifier, redirectURL
	return f.ident, f.err
}

// ---- service fixture ----

type identityFixture struct {
	svc    *IdentityService
	store  *fakeStore
	mailer *fakeMailer
	mock   sqlmock.Sqlmock
}

func newIdentityFixture(t *testing.T, federated FederatedProvider) *identityFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sql expectations: %v", err)
		}
		db.Close()
	})

	cfg := &config.Config{
		SecretKey:            "k",
		SessionTokenValidity: time.Minute,
		SessionValidity:      time.Hour,
		CodeValidity:         10 * time.Minute,
		MaxCodeAttempts:      3,
	}
	f := &identityFixture{store: newFakeStore(), mailer: &fakeMailer{}, mock: mock}
	f.svc = NewIdentityService(db, &fakeRepoManager{f.store}, cfg, f.mailer, federated, logging.Discard())
	f.svc.hashCost = bcrypt.MinCost
	f.svc.newCode = func() (string, error) { return "123456", nil }
	return f
}

// expectTx registers one transaction that commits.
func (f *identityFixture) expectTx() {
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
}

// expectRollback registers one transaction that rolls back.
func (f *identityFixture) expectRollback() {
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
}

// advance moves the service clock forward by d.
func (f *identityFixture) advance(d time.Duration) {
	f.svc.now = func() time.Time { return time.Now().Add(d) }
}
