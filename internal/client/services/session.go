package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/client/idp"
	"github.com/dmitrijs2005/gophauth/internal/client/tokenstore"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// SessionStatus is the lifecycle state of the device session.
type SessionStatus string

const (
	SessionPending SessionStatus = "pending"
	SessionActive  SessionStatus = "active"
	SessionEnded   SessionStatus = "ended"
)

// Session is the device's current session.
type Session struct {
	ID     string
	Status SessionStatus
}

// EventKind distinguishes session events.
type EventKind int

const (
	EventActivated EventKind = iota + 1
	EventEnded
)

func (k EventKind) String() string {
	switch k {
	case EventActivated:
		return "activated"
	case EventEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// SessionEvent is published to subscribers after a session change.
type SessionEvent struct {
	Kind      EventKind
	SessionID string
}

// SessionProvider is the part of the identity provider the session
// manager needs.
type SessionProvider interface {
	SetActiveSession(ctx context.Context, sessionID string) error
	SignOut(ctx context.Context, sessionID string) error
	SessionToken(ctx context.Context, sessionID string) (string, error)
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

const signOutPrompt = "Are you sure you want to sign out?"

// SessionManager owns the device's single session and tells subscribers
// when it changes.
type SessionManager struct {
	provider SessionProvider
	store    tokenstore.Store
	confirm  Confirmer
	logger   logging.Logger

	// opMu serializes Activate and End, which call out to the provider.
	opMu sync.Mutex

	mu      sync.Mutex
	current Session
	subs    map[int]func(SessionEvent)
	nextSub int
}

var _ Activator = (*SessionManager)(nil)

// NewSessionManager returns a manager with no session.
func NewSessionManager(provider SessionProvider, store tokenstore.Store, confirm Confirmer, logger logging.Logger) *SessionManager {
	return &SessionManager{
		provider: provider,
		store:    store,
		confirm:  confirm,
		logger:   logger.With("module", "session"),
		current:  Session{Status: SessionEnded},
		subs:     make(map[int]func(SessionEvent)),
	}
}

// Current returns a copy of the current session.
func (m *SessionManager) Current() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *SessionManager) IsSignedIn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Status == SessionActive
}

// Subscribe registers fn for session events. Handlers run synchronously on
// the goroutine that changed the session and must not block. The returned
// function removes the subscription.
func (m *SessionManager) Subscribe(fn func(SessionEvent)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

func (m *SessionManager) publish(ev SessionEvent) {
	m.mu.Lock()
	handlers := make([]func(SessionEvent), 0, len(m.subs))
	for _, fn := range m.subs {
		handlers = append(handlers, fn)
	}
	m.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

// Activate makes sessionID the device session and ends the one it replaces
// at the provider. Activating the session that is already active does
// nothing. On failure the previous session is kept.
func (m *SessionManager) Activate(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return errors.New("activate: empty session id")
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	if m.current.ID == sessionID && m.current.Status == SessionActive {
		m.mu.Unlock()
		return nil
	}
	prev := m.current
	m.current = Session{ID: sessionID, Status: SessionPending}
	m.mu.Unlock()

	if err := m.provider.SetActiveSession(ctx, sessionID); err != nil {
		m.mu.Lock()
		m.current = prev
		m.mu.Unlock()
		return fmt.Errorf("activate session: %w", err)
	}

	if err := m.store.SaveToken(ctx, common.SessionTokenKey, sessionID); err != nil {
		m.logger.Error(ctx, "failed to persist session", "error", err)
	}

	m.mu.Lock()
	m.current = Session{ID: sessionID, Status: SessionActive}
	m.mu.Unlock()

	if prev.Status == SessionActive && prev.ID != sessionID {
		if err := m.provider.SignOut(ctx, prev.ID); err != nil {
			m.logger.Warn(ctx, "failed to end replaced session", "session_id", prev.ID, "error", err)
		}
	}

	m.logger.Info(ctx, "session activated", "session_id", sessionID)
	m.publish(SessionEvent{Kind: EventActivated, SessionID: sessionID})
	return nil
}

// End signs the user out after confirmation. It reports whether the
// session was ended; a declined confirmation returns false and a nil error.
func (m *SessionManager) End(ctx context.Context) (bool, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	cur := m.Current()
	if cur.Status != SessionActive {
		return false, ErrNotSignedIn
	}

	ok, err := m.confirm.Confirm(ctx, signOutPrompt)
	if err != nil {
		return false, fmt.Errorf("confirm sign out: %w", err)
	}
	if !ok {
		return false, nil
	}

	if err := m.provider.SignOut(ctx, cur.ID); err != nil {
		m.logger.Warn(ctx, "provider sign out failed", "session_id", cur.ID, "error", err)
	}
	if err := m.store.ClearToken(ctx, common.SessionTokenKey); err != nil {
		m.logger.Error(ctx, "failed to clear stored session", "error", err)
	}

	m.mu.Lock()
	m.current = Session{ID: cur.ID, Status: SessionEnded}
	m.mu.Unlock()

	m.logger.Info(ctx, "session ended", "session_id", cur.ID)
	m.publish(SessionEvent{Kind: EventEnded, SessionID: cur.ID})
	return true, nil
}

// Restore re-activates the session persisted by an earlier run. A session
// the provider no longer accepts is forgotten and reported as false.
func (m *SessionManager) Restore(ctx context.Context) (bool, error) {
	id, err := m.store.GetToken(ctx, common.SessionTokenKey)
	if err != nil {
		return false, err
	}
	if id == "" {
		return false, nil
	}

	err = m.Activate(ctx, id)
	if err == nil {
		return true, nil
	}

	var rej *idp.RejectedError
	if errors.As(err, &rej) {
		m.logger.Info(ctx, "stored session is no longer valid", "session_id", id)
		if cerr := m.store.ClearToken(ctx, common.SessionTokenKey); cerr != nil {
			m.logger.Error(ctx, "failed to clear stored session", "error", cerr)
		}
		return false, nil
	}
	return false, err
}

// BearerToken returns a fresh session token for backend calls.
func (m *SessionManager) BearerToken(ctx context.Context) (string, error) {
	cur := m.Current()
	if cur.Status != SessionActive {
		return "", ErrNotSignedIn
	}
	return m.provider.SessionToken(ctx, cur.ID)
}
