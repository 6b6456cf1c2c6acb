// Package grpc exposes the identity provider over gRPC.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	pb "github.com/dmitrijs2005/gophauth/internal/proto"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Identity is the part of services.IdentityService the transport needs.
type Identity interface {
	CreateSignIn(ctx context.Context, email, password string) (*models.Attempt, error)
	CreateResetSignIn(ctx context.Context, email string) (*models.Attempt, error)
	AttemptFirstFactor(ctx context.Context, attemptID, code string) (*models.Attempt, error)
	ResetPassword(ctx context.Context, attemptID, password string) (*models.Attempt, error)
	CreateSignUp(ctx context.Context, p services.SignUpParams) (*models.Attempt, error)
	PrepareEmailVerification(ctx context.Context, attemptID string) error
	AttemptEmailVerification(ctx context.Context, attemptID, code string) (*models.Attempt, error)
	StartFederated(ctx context.Context, strategy, redirectURL, codeChallenge string) (*models.Attempt, string, error)
	CompleteFederated(ctx context.Context, attemptID, code, verifier string) (*models.Attempt, error)
	SetActiveSession(ctx context.Context, sessionID string) (*models.Session, error)
	SignOut(ctx context.Context, sessionID string) error
	SessionToken(ctx context.Context, sessionID string) (string, time.Time, error)
}

type GRPCServer struct {
	pb.UnimplementedIdentityServiceServer
	address  string
	identity Identity
	logger   logging.Logger
}

func NewGRPCServer(address string, l logging.Logger, identity Identity) *GRPCServer {
	return &GRPCServer{
		address:  address,
		identity: identity,
		logger:   l.With("module", "grpc_server"),
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(s.recoveryInterceptor, s.loggingInterceptor),
	)

	pb.RegisterIdentityServiceServer(srv, s)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(pb.IdentityServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
