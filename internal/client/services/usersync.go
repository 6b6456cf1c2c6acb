package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/backend"
	"github.com/dmitrijs2005/gophauth/internal/client/idp"
	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// UserSyncer upserts the signed-in user into the backend directory.
type UserSyncer interface {
	SyncUser(ctx context.Context, bearer string) (*models.BackendUser, error)
}

// SessionSource is what the reconciler needs from the session manager.
type SessionSource interface {
	Subscribe(fn func(SessionEvent)) (unsubscribe func())
	BearerToken(ctx context.Context) (string, error)
}

// SyncState records which session the reconciler tried and whether the
// backend accepted it.
type SyncState struct {
	SessionID string
	Synced    bool
}

// SyncReconciler syncs the backend user record once per session activation.
// Failures are logged and never retried.
type SyncReconciler struct {
	sessions SessionSource
	backend  UserSyncer
	cache    *IdentityCache
	timeout  time.Duration
	logger   logging.Logger

	mu          sync.Mutex
	state       SyncState
	unsubscribe func()
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

func NewSyncReconciler(sessions SessionSource, backend UserSyncer, cache *IdentityCache, timeout time.Duration, logger logging.Logger) *SyncReconciler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SyncReconciler{
		sessions: sessions,
		backend:  backend,
		cache:    cache,
		timeout:  timeout,
		logger:   logger.With("module", "user_sync"),
	}
}

// Start subscribes to session events. Calling it twice has no effect.
// Syncs in flight are bound to ctx.
func (r *SyncReconciler) Start(ctx context.Context) {
	r.mu.Lock()
	if r.unsubscribe != nil {
		r.mu.Unlock()
		return
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.mu.Unlock()

	unsubscribe := r.sessions.Subscribe(r.handle)

	r.mu.Lock()
	r.unsubscribe = unsubscribe
	r.mu.Unlock()
}

// Stop unsubscribes, cancels running syncs and waits for them.
func (r *SyncReconciler) Stop() {
	r.mu.Lock()
	unsubscribe, cancel := r.unsubscribe, r.cancel
	r.unsubscribe, r.cancel = nil, nil
	r.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// Wait blocks until no sync is running.
func (r *SyncReconciler) Wait() {
	r.wg.Wait()
}

func (r *SyncReconciler) State() SyncState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *SyncReconciler) handle(ev SessionEvent) {
	switch ev.Kind {
	case EventActivated:
		r.mu.Lock()
		if r.state.SessionID == ev.SessionID || r.ctx == nil {
			r.mu.Unlock()
			return
		}
		r.state = SyncState{SessionID: ev.SessionID}
		ctx := r.ctx
		r.wg.Add(1)
		r.mu.Unlock()

		r.cache.Clear()
		go r.run(ctx, ev.SessionID)

	case EventEnded:
		r.mu.Lock()
		r.state = SyncState{}
		r.mu.Unlock()
		r.cache.Clear()
	}
}

func (r *SyncReconciler) run(ctx context.Context, sessionID string) {
	defer r.wg.Done()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	bearer, err := r.sessions.BearerToken(ctx)
	if err != nil {
		if errors.Is(err, idp.ErrUnavailable) {
			r.logger.Info(ctx, "User sync skipped - identity provider not available")
			return
		}
		r.logger.Error(ctx, "User sync failed - no session token", "session_id", sessionID, "error", err)
		return
	}

	user, err := r.backend.SyncUser(ctx, bearer)
	switch {
	case err == nil:
	case errors.Is(err, backend.ErrNotConfigured):
		r.logger.Info(ctx, "User sync skipped - no API configured")
		return
	case errors.Is(err, backend.ErrUnavailable):
		r.logger.Info(ctx, "User sync skipped - backend not available")
		return
	default:
		r.logger.Error(ctx, "Unexpected error syncing user", "session_id", sessionID, "error", err)
		return
	}

	r.mu.Lock()
	if r.state.SessionID != sessionID {
		// the session changed while we were syncing
		r.mu.Unlock()
		return
	}
	r.state.Synced = true
	r.mu.Unlock()

	r.cache.Set(user.Identity())
	r.logger.Info(ctx, "User synced successfully", "user_id", user.ProviderID)
}
