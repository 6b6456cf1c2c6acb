// Package server wires the identity provider and the backend API together
// and runs both until the context is cancelled.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/api"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/gophauth/internal/server/grpc"
)

const rateLimitCleanup = 5 * time.Minute

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	identity *services.IdentityService
	users    *services.UserDirectory
}

// NewApp opens the database, applies migrations and builds the services.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, "json", c.LogLevel)

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	var federated services.FederatedProvider
	if p := services.NewOAuth2Provider(c); p != nil {
		federated = p
	}

	mailer := services.NewLogMailer(logger)

	return &App{
		config:   c,
		logger:   logger,
		db:       db,
		identity: services.NewIdentityService(db, rm, c, mailer, federated, logger),
		users:    services.NewUserDirectory(db, rm, logger),
	}, nil
}

func (app *App) deps() api.Deps {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return api.Deps{
		SecretKey:   []byte(app.config.SecretKey),
		Directory:   app.users,
		RateLimiter: api.NewRateLimiter(app.config.RateLimit, app.config.RateBurst, rateLimitCleanup, app.logger),
		Metrics:     api.NewMetrics(reg, reg),
		DB:          app.db,
		Logger:      app.logger,
	}
}

// Run serves gRPC and HTTP until ctx is cancelled or either server fails.
func (app *App) Run(ctx context.Context) error {
	defer app.db.Close()

	shutdown, err := telemetry.Setup(ctx, "gophauth-server", app.config.OTLPEndpoint)
	if err != nil {
		app.logger.Warn(ctx, "tracing disabled", "error", err)
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			app.logger.Warn(ctx, "tracer shutdown", "error", err)
		}
	}()

	deps := app.deps()
	defer deps.RateLimiter.Stop()

	app.logger.Info(ctx, "Starting app...",
		"grpc", app.config.EndpointAddrGRPC, "http", app.config.EndpointAddrHTTP)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.identity).Run(ctx)
	})
	g.Go(func() error {
		return api.NewHTTPServer(app.config.EndpointAddrHTTP, api.NewRouter(deps), app.logger).Run(ctx)
	})

	if err := g.Wait(); err != nil {
		app.logger.Error(ctx, "server stopped", "error", err)
		return err
	}
	return nil
}
