package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Messages carried in status errors are shown to end users as they are.
var errorStatuses = []struct {
	err  error
	code codes.Code
	msg  string
}{
	{services.ErrIdentifierNotFound, codes.NotFound, "Couldn't find your account."},
	{services.ErrInvalidCredentials, codes.InvalidArgument, "Password is incorrect. Try again, or use another method."},
	{services.ErrEmailTaken, codes.AlreadyExists, "That email address is taken. Please try another."},
	{services.ErrIncorrectCode, codes.InvalidArgument, "Incorrect code"},
	{services.ErrCodeExpired, codes.InvalidArgument, "The code has expired. Request a new one."},
	{services.ErrAttemptNotFound, codes.NotFound, "This sign-in attempt could not be found."},
	{services.ErrAttemptExpired, codes.FailedPrecondition, "This attempt has expired. Please start again."},
	{services.ErrTooManyAttempts, codes.FailedPrecondition, "Too many incorrect codes. Please start again."},
	{services.ErrWrongStep, codes.FailedPrecondition, "This step is not available for the current attempt."},
	{services.ErrUnsupportedStrategy, codes.InvalidArgument, "This sign-in method is not supported."},
	{services.ErrFederatedExchange, codes.Unauthenticated, "Sign-in with the provider failed."},
	{services.ErrSessionNotFound, codes.NotFound, "Session is no longer valid."},
	{services.ErrSessionInactive, codes.Unauthenticated, "Session is no longer valid."},
}

func (s *GRPCServer) mapError(ctx context.Context, err error) error {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return status.Error(codes.InvalidArgument, verr.Message)
	}
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return status.Error(e.code, e.msg)
		}
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}
