package grpc

import (
	"context"

	pb "github.com/dmitrijs2005/gophauth/internal/proto"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

func attemptResponse(a *models.Attempt) *pb.AttemptResponse {
	return &pb.AttemptResponse{AttemptID: a.ID, Status: string(a.Status), SessionID: a.SessionID}
}

func (s *GRPCServer) CreateSignIn(ctx context.Context, req *pb.CreateSignInRequest) (*pb.AttemptResponse, error) {
	a, err := s.identity.CreateSignIn(ctx, req.Identifier, req.Password)
	if err != nil {
		return nil, s.mapError(ctx, err)
	}
	return attemptResponse(a), nil
}

func (s *GRPCServer) CreateResetSignIn(ctx context.Context, req *pb.CreateResetSignInRequest) (*pb.AttemptResponse, error) {
	if req.Strategy != pb.StrategyResetPasswordEmailCode {
		return nil, s.mapError(ctx, services.ErrUnsupportedStrategy)
	}
	a, err := s.identity.CreateResetSignIn(ctx, req.Identifier)
	if err != nil {
		return nil, s.mapError(ctx, err)
	}
	return attemptResponse(a), nil
}

func (s *GRPCServer) AttemptFirstFactor(ctx context.Context, req *pb.AttemptFirstFactorRequest) (*pb.AttemptResponse, error) {
	if req.Strategy != pb.StrategyResetPasswordEmailCode {
		return nil, s.mapError(ctx, services.ErrUnsupportedStrategy)
	}
	a, err := s.identity.AttemptFirstFactor(ctx, req.AttemptID, req.Code)
	if err != nil {
		return nil, s.mapError(ctx, err)
	}
	return attemptResponse(a), nil
}

func (s *GRPCServer) ResetPassword(ctx context.Context, req *pb.ResetPasswordRequest) (*pb.AttemptResponse, error) {
	a, err := s.identity.ResetPassword(ctx, req.AttemptID, req.Password)
	if err != nil {
		return nil, s.mapError(ctx, err)
	}
	return attemptResponse(a), nil
}

func (s *GRPCServer) CreateSignUp(ctx context.Context, req *pb.CreateSignUpRequest) (*pb.AttemptResponse, error) {
	a, err := s.identity.CreateSignUp(ctx, services.SignUpParams{
		Email:     req.EmailAddress,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return nil, s.mapError(ctx, err)
	}
	return attemptResponse(a), nil
}

func (s *GRPCServer) PrepareEmailVerification(ctx context.Context, req *pb.PrepareEmailVerificationRequest) (*pb.AttemptResponse, error) {
	if req.Strategy != pb.StrategyEmailCode {
		return nil, s.mapError(ctx, services.ErrUnsupportedStrategy)
	}
	if err := s.identity.PrepareEmailVerification(ctx, req.AttemptID); err != nil {
		return nil, s.mapError(ctx, err)
	}
	return &pb.AttemptResponse{AttemptID: req.AttemptID, Status: pb.StatusMissingRequirements}, nil
}

func (s *GRPCServer) AttemptEmailVerification(ctx context.Context, req *pb.AttemptEmailVerificationRequest) (*pb.AttemptResponse, error) {
	a, err := s.identity.AttemptEmailVerification(ctx, req.AttemptID, req.Code)
	if err != nil {
		return nil, s.mapError(ctx, err)
	}
	return attemptResponse(a), nil
}

func (s *GRPCServer) StartFederated(ctx context.Context, req *pb.StartFederatedRequest) (*pb.StartFederatedResponse, error) {
	a, authURL, err := s.identity.StartFederated(ctx, req.Strategy, req.RedirectURL, req.CodeChallenge)
	if err != nil {
		return nil, s.mapError(ctx, err)
	}
	return &pb.StartFederatedResponse{AttemptID: a.ID, AuthURL: authURL}, nil
}

func (s *GRPCServer) CompleteFederated(ctx context.Context, req *pb.CompleteFederatedRequest) (*pb.AttemptResponse, error) {
	a, err := s.identity.CompleteFederated(ctx, req.AttemptID, req.Code, req.CodeVerifier)
	if err != nil {
		return nil, s.mapError(ctx, err)
	}
	return attemptResponse(a), nil
}

func (s *GRPCServer) SetActiveSession(ctx context.Context, req *pb.SessionRequest) (*pb.SessionResponse, error) {
	sess, err := s.identity.SetActiveSession(ctx, req.SessionID)
	if err != nil {
		return nil, s.mapError(ctx, err)
	}
	return &pb.SessionResponse{SessionID: sess.ID, Status: string(sess.Status)}, nil
}

func (s *GRPCServer) SignOut(ctx context.Context, req *pb.SessionRequest) (*pb.Empty, error) {
	if err := s.identity.SignOut(ctx, req.SessionID); err != nil {
		return nil, s.mapError(ctx, err)
	}
	return &pb.Empty{}, nil
}

func (s *GRPCServer) SessionToken(ctx context.Context, req *pb.SessionRequest) (*pb.SessionTokenResponse, error) {
	token, expiresAt, err := s.identity.SessionToken(ctx, req.SessionID)
	if err != nil {
		return nil, s.mapError(ctx, err)
	}
	return &pb.SessionTokenResponse{Token: token, ExpiresAt: expiresAt.Unix()}, nil
}
