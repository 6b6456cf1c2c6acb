package idp

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	pb "github.com/dmitrijs2005/gophauth/internal/proto"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// Options tune a GRPCClient.
type Options struct {
	// CallTimeout bounds every RPC that arrives without its own deadline.
	CallTimeout time.Duration
	// FederatedTimeout bounds the wait for the browser callback.
	FederatedTimeout time.Duration
	// CallbackPort is the local port for the federated redirect; 0 picks one.
	CallbackPort int
	// OpenURL shows the authorization URL to the user. Defaults to OpenBrowser.
	OpenURL func(url string) error
	// DialOptions are appended to the defaults (tests pass a bufconn dialer).
	DialOptions []grpc.DialOption
}

// GRPCClient implements Provider over the IdentityService gRPC API.
type GRPCClient struct {
	endpointURL string
	opts        Options
	conn        *grpc.ClientConn
	client      pb.IdentityServiceClient
	health      healthpb.HealthClient
	logger      logging.Logger
}

var _ Provider = (*GRPCClient)(nil)

// NewGRPCClient creates a client for the provider at endpointURL. The
// connection is established lazily on first use.
func NewGRPCClient(endpointURL string, opts Options, logger logging.Logger) (*GRPCClient, error) {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 15 * time.Second
	}
	if opts.FederatedTimeout <= 0 {
		opts.FederatedTimeout = 5 * time.Minute
	}
	if opts.OpenURL == nil {
		opts.OpenURL = OpenBrowser
	}

	c := &GRPCClient{
		endpointURL: endpointURL,
		opts:        opts,
		logger:      logger.With("module", "idp_client"),
	}
	if err := c.initGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *GRPCClient) initGRPCClient() error {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithChainUnaryInterceptor(c.timeoutInterceptor),
	}
	dialOpts = append(dialOpts, c.opts.DialOptions...)

	conn, err := grpc.NewClient(c.endpointURL, dialOpts...)
	if err != nil {
		return err
	}
	c.conn = conn
	c.client = pb.NewIdentityServiceClient(conn)
	c.health = healthpb.NewHealthClient(conn)
	return nil
}

// timeoutInterceptor applies CallTimeout to calls without a deadline.
func (c *GRPCClient) timeoutInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.CallTimeout)
		defer cancel()
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// Close releases the underlying connection.
func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// Ping asks the provider's health service whether IdentityService is serving.
func (c *GRPCClient) Ping(ctx context.Context) error {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: pb.IdentityServiceName})
	if err != nil {
		return c.mapError(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: status %s", ErrUnavailable, resp.GetStatus())
	}
	return nil
}

func (c *GRPCClient) CreateSignIn(ctx context.Context, identifier, password string) (Attempt, error) {
	resp, err := c.client.CreateSignIn(ctx, &pb.CreateSignInRequest{Identifier: identifier, Password: password})
	if err != nil {
		return Attempt{}, c.mapError(err)
	}
	return decodeAttempt(resp), nil
}

func (c *GRPCClient) CreateResetSignIn(ctx context.Context, identifier string) (Attempt, error) {
	resp, err := c.client.CreateResetSignIn(ctx, &pb.CreateResetSignInRequest{
		Identifier: identifier,
		Strategy:   pb.StrategyResetPasswordEmailCode,
	})
	if err != nil {
		return Attempt{}, c.mapError(err)
	}
	return decodeAttempt(resp), nil
}

func (c *GRPCClient) AttemptFirstFactor(ctx context.Context, attemptID, code string) (Attempt, error) {
	resp, err := c.client.AttemptFirstFactor(ctx, &pb.AttemptFirstFactorRequest{
		AttemptID: attemptID,
		Strategy:  pb.StrategyResetPasswordEmailCode,
		Code:      code,
	})
	if err != nil {
		return Attempt{}, c.mapError(err)
	}
	return decodeAttempt(resp), nil
}

func (c *GRPCClient) ResetPassword(ctx context.Context, attemptID, password string) (Attempt, error) {
	resp, err := c.client.ResetPassword(ctx, &pb.ResetPasswordRequest{AttemptID: attemptID, Password: password})
	if err != nil {
		return Attempt{}, c.mapError(err)
	}
	return decodeAttempt(resp), nil
}

func (c *GRPCClient) CreateSignUp(ctx context.Context, p SignUpParams) (Attempt, error) {
	resp, err := c.client.CreateSignUp(ctx, &pb.CreateSignUpRequest{
		EmailAddress: p.EmailAddress,
		Password:     p.Password,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
	})
	if err != nil {
		return Attempt{}, c.mapError(err)
	}
	return decodeAttempt(resp), nil
}

func (c *GRPCClient) PrepareEmailVerification(ctx context.Context, attemptID string) error {
	_, err := c.client.PrepareEmailVerification(ctx, &pb.PrepareEmailVerificationRequest{
		AttemptID: attemptID,
		Strategy:  pb.StrategyEmailCode,
	})
	if err != nil {
		return c.mapError(err)
	}
	return nil
}

func (c *GRPCClient) AttemptEmailVerification(ctx context.Context, attemptID, code string) (Attempt, error) {
	resp, err := c.client.AttemptEmailVerification(ctx, &pb.AttemptEmailVerificationRequest{AttemptID: attemptID, Code: code})
	if err != nil {
		return Attempt{}, c.mapError(err)
	}
	return decodeAttempt(resp), nil
}

func (c *GRPCClient) SetActiveSession(ctx context.Context, sessionID string) error {
	resp, err := c.client.SetActiveSession(ctx, &pb.SessionRequest{SessionID: sessionID})
	if err != nil {
		return c.mapError(err)
	}
	if resp.Status != pb.SessionActive {
		return &RejectedError{Message: "Session is no longer valid.", Err: ErrNotFound}
	}
	return nil
}

func (c *GRPCClient) SignOut(ctx context.Context, sessionID string) error {
	if _, err := c.client.SignOut(ctx, &pb.SessionRequest{SessionID: sessionID}); err != nil {
		return c.mapError(err)
	}
	return nil
}

func (c *GRPCClient) SessionToken(ctx context.Context, sessionID string) (string, error) {
	resp, err := c.client.SessionToken(ctx, &pb.SessionRequest{SessionID: sessionID})
	if err != nil {
		return "", c.mapError(err)
	}
	return resp.Token, nil
}

func decodeAttempt(resp *pb.AttemptResponse) Attempt {
	return Attempt{ID: resp.AttemptID, Result: decodeResult(resp)}
}

func decodeResult(resp *pb.AttemptResponse) Result {
	switch resp.Status {
	case pb.StatusComplete:
		return Complete{SessionID: resp.SessionID}
	case pb.StatusNeedsNewPassword:
		return NeedsNewPassword{}
	case pb.StatusMissingRequirements:
		return MissingRequirements{}
	default:
		return Incomplete{Status: resp.Status}
	}
}

// mapError translates gRPC status codes into the package's error taxonomy.
func (c *GRPCClient) mapError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	case codes.NotFound:
		return &RejectedError{Message: st.Message(), Err: ErrNotFound}
	case codes.FailedPrecondition:
		return &RejectedError{Message: st.Message(), Err: ErrAttemptExpired}
	case codes.InvalidArgument, codes.Unauthenticated, codes.PermissionDenied,
		codes.AlreadyExists, codes.ResourceExhausted:
		return &RejectedError{Message: st.Message()}
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
