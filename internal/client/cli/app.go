package cli

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/backend"
	"github.com/dmitrijs2005/gophauth/internal/client/config"
	"github.com/dmitrijs2005/gophauth/internal/client/idp"
	"github.com/dmitrijs2005/gophauth/internal/client/services"
	"github.com/dmitrijs2005/gophauth/internal/client/tokenstore"
	"github.com/dmitrijs2005/gophauth/internal/filex"
	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// Mode reports whether the backend is reachable.
type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	config *config.Config
	logger logging.Logger

	sessions    *services.SessionManager
	credentials *services.CredentialController
	reconciler  *services.SyncReconciler
	identity    *services.IdentityCache
	backend     pinger

	// pending sign-up waiting for its email code
	signUp *services.SignUpFlow

	closers []func() error

	mu   sync.Mutex
	mode Mode

	reader *bufio.Reader
	out    io.Writer
}

// NewApp opens the token store and wires the authentication services.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	path, err := filex.EnsureParentDir(c.TokenDBPath)
	if err != nil {
		logger.Error(ctx, "error preparing token store directory", "error", err)
		return nil, err
	}

	db, err := tokenstore.Open(ctx, path)
	if err != nil {
		logger.Error(ctx, "error initializing token store", "error", err)
		return nil, err
	}

	provider, err := idp.NewGRPCClient(c.IdentityProviderAddr, idp.Options{
		CallTimeout:      c.ProviderCallTimeout,
		FederatedTimeout: c.FederatedTimeout,
		CallbackPort:     c.OAuthCallbackPort,
	}, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	be := backend.NewClient(c.BackendURL, c.BackendCallTimeout)

	a := newApp(c, logger, provider, tokenstore.NewSQLiteStore(db), be, be)
	a.closers = append(a.closers, provider.Close, db.Close)
	return a, nil
}

// newApp builds the service graph around already constructed adapters.
func newApp(c *config.Config, logger logging.Logger, provider idp.Provider, store tokenstore.Store,
	syncer services.UserSyncer, be pinger) *App {

	a := &App{
		config:   c,
		logger:   logger.With("module", "cli"),
		identity: services.NewIdentityCache(),
		backend:  be,
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}
	a.sessions = services.NewSessionManager(provider, store, services.ConfirmFunc(a.confirm), logger)
	a.credentials = services.NewCredentialController(provider, a.sessions, logger)
	a.reconciler = services.NewSyncReconciler(a.sessions, syncer, a.identity, c.BackendCallTimeout, logger)
	return a
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.logger.Info(context.Background(), "switched mode", "mode", string(mode))
	}
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) isSignedIn() bool {
	return a.sessions.IsSignedIn()
}

// Run restores any saved session and runs the REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.reconciler.Start(ctx)

	restored, err := a.sessions.Restore(ctx)
	switch {
	case err != nil:
		a.logger.Warn(ctx, "could not restore session", "error", err)
	case restored:
		printlnFn("Welcome back!")
	}

	if a.config.BackendURL == "" {
		a.setMode(ModeDisabled)
	} else {
		go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}

	printlnFn("gophauth CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}

// Close stops background work and releases the adapters.
func (a *App) Close() {
	a.reconciler.Stop()
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	a.closers = nil
}

// StartOnlineStatusWatcher probes the backend every interval and flips the
// mode on changes. It returns when ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	a.probe(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := a.backend.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}
