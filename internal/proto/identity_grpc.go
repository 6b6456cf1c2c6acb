package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const IdentityServiceName = "gophauth.identity.v1.IdentityService"

const (
	IdentityService_CreateSignIn_FullMethodName             = "/" + IdentityServiceName + "/CreateSignIn"
	IdentityService_CreateResetSignIn_FullMethodName        = "/" + IdentityServiceName + "/CreateResetSignIn"
	IdentityService_AttemptFirstFactor_FullMethodName       = "/" + IdentityServiceName + "/AttemptFirstFactor"
	IdentityService_ResetPassword_FullMethodName            = "/" + IdentityServiceName + "/ResetPassword"
	IdentityService_CreateSignUp_FullMethodName             = "/" + IdentityServiceName + "/CreateSignUp"
	IdentityService_PrepareEmailVerification_FullMethodName = "/" + IdentityServiceName + "/PrepareEmailVerification"
	IdentityService_AttemptEmailVerification_FullMethodName = "/" + IdentityServiceName + "/AttemptEmailVerification"
	IdentityService_StartFederated_FullMethodName           = "/" + IdentityServiceName + "/StartFederated"
	IdentityService_CompleteFederated_FullMethodName        = "/" + IdentityServiceName + "/CompleteFederated"
	IdentityService_SetActiveSession_FullMethodName         = "/" + IdentityServiceName + "/SetActiveSession"
	IdentityService_SignOut_FullMethodName                  = "/" + IdentityServiceName + "/SignOut"
	IdentityService_SessionToken_FullMethodName             = "/" + IdentityServiceName + "/SessionToken"
)

// IdentityServiceClient is the client API for IdentityService.
type IdentityServiceClient interface {
	CreateSignIn(ctx context.Context, in *CreateSignInRequest, opts ...grpc.CallOption) (*AttemptResponse, error)
	CreateResetSignIn(ctx context.Context, in *CreateResetSignInRequest, opts ...grpc.CallOption) (*AttemptResponse, error)
	AttemptFirstFactor(ctx context.Context, in *AttemptFirstFactorRequest, opts ...grpc.CallOption) (*AttemptResponse, error)
	ResetPassword(ctx context.Context, in *ResetPasswordRequest, opts ...grpc.CallOption) (*AttemptResponse, error)
	CreateSignUp(ctx context.Context, in *CreateSignUpRequest, opts ...grpc.CallOption) (*AttemptResponse, error)
	PrepareEmailVerification(ctx context.Context, in *PrepareEmailVerificationRequest, opts ...grpc.CallOption) (*AttemptResponse, error)
	AttemptEmailVerification(ctx context.Context, in *AttemptEmailVerificationRequest, opts ...grpc.CallOption) (*AttemptResponse, error)
	StartFederated(ctx context.Context, in *StartFederatedRequest, opts ...grpc.CallOption) (*StartFederatedResponse, error)
	CompleteFederated(ctx context.Context, in *CompleteFederatedRequest, opts ...grpc.CallOption) (*AttemptResponse, error)
	SetActiveSession(ctx context.Context, in *SessionRequest, opts ...grpc.CallOption) (*SessionResponse, error)
	SignOut(ctx context.Context, in *SessionRequest, opts ...grpc.CallOption) (*Empty, error)
	SessionToken(ctx context.Context, in *SessionRequest, opts ...grpc.CallOption) (*SessionTokenResponse, error)
}

type identityServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewIdentityServiceClient(cc grpc.ClientConnInterface) IdentityServiceClient {
	return &identityServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *identityServiceClient) CreateSignIn(ctx context.Context, in *CreateSignInRequest, opts ...grpc.CallOption) (*AttemptResponse, error) {
	return invoke[AttemptResponse](ctx, c.cc, IdentityService_CreateSignIn_FullMethodName, in, opts)
}

func (c *identityServiceClient) CreateResetSignIn(ctx context.Context, in *CreateResetSignInRequest, opts ...grpc.CallOption) (*AttemptResponse, error) {
	return invoke[AttemptResponse](ctx, c.cc, IdentityService_CreateResetSignIn_FullMethodName, in, opts)
}

func (c *identityServiceClient) AttemptFirstFactor(ctx context.Context, in *AttemptFirstFactorRequest, opts ...grpc.CallOption) (*AttemptResponse, error) {
	return invoke[AttemptResponse](ctx, c.cc, IdentityService_AttemptFirstFactor_FullMethodName, in, opts)
}

func (c *identityServiceClient) ResetPassword(ctx context.Context, in *ResetPasswordRequest, opts ...grpc.CallOption) (*AttemptResponse, error) {
	return invoke[AttemptResponse](ctx, c.cc, IdentityService_ResetPassword_FullMethodName, in, opts)
}

func (c *identityServiceClient) CreateSignUp(ctx context.Context, in *CreateSignUpRequest, opts ...grpc.CallOption) (*AttemptResponse, error) {
	return invoke[AttemptResponse](ctx, c.cc, IdentityService_CreateSignUp_FullMethodName, in, opts)
}

func (c *identityServiceClient) PrepareEmailVerification(ctx context.Context, in *PrepareEmailVerificationRequest, opts ...grpc.CallOption) (*AttemptResponse, error) {
	return invoke[AttemptResponse](ctx, c.cc, IdentityService_PrepareEmailVerification_FullMethodName, in, opts)
}

func (c *identityServiceClient) AttemptEmailVerification(ctx context.Context, in *AttemptEmailVerificationRequest, opts ...grpc.CallOption) (*AttemptResponse, error) {
	return invoke[AttemptResponse](ctx, c.cc, IdentityService_AttemptEmailVerification_FullMethodName, in, opts)
}

func (c *identityServiceClient) StartFederated(ctx context.Context, in *StartFederatedRequest, opts ...grpc.CallOption) (*StartFederatedResponse, error) {
	return invoke[StartFederatedResponse](ctx, c.cc, IdentityService_StartFederated_FullMethodName, in, opts)
}

func (c *identityServiceClient) CompleteFederated(ctx context.Context, in *CompleteFederatedRequest, opts ...grpc.CallOption) (*AttemptResponse, error) {
	return invoke[AttemptResponse](ctx, c.cc, IdentityService_CompleteFederated_FullMethodName, in, opts)
}

func (c *identityServiceClient) SetActiveSession(ctx context.Context, in *SessionRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[SessionResponse](ctx, c.cc, IdentityService_SetActiveSession_FullMethodName, in, opts)
}

func (c *identityServiceClient) SignOut(ctx context.Context, in *SessionRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, IdentityService_SignOut_FullMethodName, in, opts)
}

func (c *identityServiceClient) SessionToken(ctx context.Context, in *SessionRequest, opts ...grpc.CallOption) (*SessionTokenResponse, error) {
	return invoke[SessionTokenResponse](ctx, c.cc, IdentityService_SessionToken_FullMethodName, in, opts)
}

// IdentityServiceServer is the server API for IdentityService.
// Implementations must embed UnimplementedIdentityServiceServer.
type IdentityServiceServer interface {
	CreateSignIn(context.Context, *CreateSignInRequest) (*AttemptResponse, error)
	CreateResetSignIn(context.Context, *CreateResetSignInRequest) (*AttemptResponse, error)
	AttemptFirstFactor(context.Context, *AttemptFirstFactorRequest) (*AttemptResponse, error)
	ResetPassword(context.Context, *ResetPasswordRequest) (*AttemptResponse, error)
	CreateSignUp(context.Context, *CreateSignUpRequest) (*AttemptResponse, error)
	PrepareEmailVerification(context.Context, *PrepareEmailVerificationRequest) (*AttemptResponse, error)
	AttemptEmailVerification(context.Context, *AttemptEmailVerificationRequest) (*AttemptResponse, error)
	StartFederated(context.Context, *StartFederatedRequest) (*StartFederatedResponse, error)
	CompleteFederated(context.Context, *CompleteFederatedRequest) (*AttemptResponse, error)
	SetActiveSession(context.Context, *SessionRequest) (*SessionResponse, error)
	SignOut(context.Context, *SessionRequest) (*Empty, error)
	SessionToken(context.Context, *SessionRequest) (*SessionTokenResponse, error)
	mustEmbedUnimplementedIdentityServiceServer()
}

// UnimplementedIdentityServiceServer answers every call with codes.Unimplemented.
type UnimplementedIdentityServiceServer struct{}

func (UnimplementedIdentityServiceServer) CreateSignIn(context.Context, *CreateSignInRequest) (*AttemptResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateSignIn not implemented")
}
func (UnimplementedIdentityServiceServer) CreateResetSignIn(context.Context, *CreateResetSignInRequest) (*AttemptResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateResetSignIn not implemented")
}
func (UnimplementedIdentityServiceServer) AttemptFirstFactor(context.Context, *AttemptFirstFactorRequest) (*AttemptResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method AttemptFirstFactor not implemented")
}
func (UnimplementedIdentityServiceServer) ResetPassword(context.Context, *ResetPasswordRequest) (*AttemptResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ResetPassword not implemented")
}
func (UnimplementedIdentityServiceServer) CreateSignUp(context.Context, *CreateSignUpRequest) (*AttemptResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateSignUp not implemented")
}
func (UnimplementedIdentityServiceServer) PrepareEmailVerification(context.Context, *PrepareEmailVerificationRequest) (*AttemptResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method PrepareEmailVerification not implemented")
}
func (UnimplementedIdentityServiceServer) AttemptEmailVerification(context.Context, *AttemptEmailVerificationRequest) (*AttemptResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method AttemptEmailVerification not implemented")
}
func (UnimplementedIdentityServiceServer) StartFederated(context.Context, *StartFederatedRequest) (*StartFederatedResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method StartFederated not implemented")
}
func (UnimplementedIdentityServiceServer) CompleteFederated(context.Context, *CompleteFederatedRequest) (*AttemptResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CompleteFederated not implemented")
}
func (UnimplementedIdentityServiceServer) SetActiveSession(context.Context, *SessionRequest) (*SessionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SetActiveSession not implemented")
}
func (UnimplementedIdentityServiceServer) SignOut(context.Context, *SessionRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method SignOut not implemented")
}
func (UnimplementedIdentityServiceServer) SessionToken(context.Context, *SessionRequest) (*SessionTokenResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SessionToken not implemented")
}
func (UnimplementedIdentityServiceServer) mustEmbedUnimplementedIdentityServiceServer() {}

func RegisterIdentityServiceServer(s grpc.ServiceRegistrar, srv IdentityServiceServer) {
	s.RegisterService(&IdentityService_ServiceDesc, srv)
}

// unaryMethod adapts a typed server method to a grpc.MethodDesc.
func unaryMethod[Req any, Resp any](name string, call func(IdentityServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + IdentityServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(IdentityServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(IdentityServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// IdentityService_ServiceDesc is the grpc.ServiceDesc for IdentityService.
var IdentityService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: IdentityServiceName,
	HandlerType: (*IdentityServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("CreateSignIn", IdentityServiceServer.CreateSignIn),
		unaryMethod("CreateResetSignIn", IdentityServiceServer.CreateResetSignIn),
		unaryMethod("AttemptFirstFactor", IdentityServiceServer.AttemptFirstFactor),
		unaryMethod("ResetPassword", IdentityServiceServer.ResetPassword),
		unaryMethod("CreateSignUp", IdentityServiceServer.CreateSignUp),
		unaryMethod("PrepareEmailVerification", IdentityServiceServer.PrepareEmailVerification),
		unaryMethod("AttemptEmailVerification", IdentityServiceServer.AttemptEmailVerification),
		unaryMethod("StartFederated", IdentityServiceServer.StartFederated),
		unaryMethod("CompleteFederated", IdentityServiceServer.CompleteFederated),
		unaryMethod("SetActiveSession", IdentityServiceServer.SetActiveSession),
		unaryMethod("SignOut", IdentityServiceServer.SignOut),
		unaryMethod("SessionToken", IdentityServiceServer.SessionToken),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "proto/identity.go",
}
