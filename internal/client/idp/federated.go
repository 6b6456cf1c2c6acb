package idp

import (
	"context"
	"errors"
	"fmt"

	pb "github.com/dmitrijs2005/gophauth/internal/proto"
	"golang.org/x/oauth2"
)

// StartFederatedFlow signs in through a third-party provider using the
// authorization code flow with PKCE:
//
//  1. a local callback server is started on 127.0.0.1;
//  2. the identity provider returns an authorization URL bound to a fresh
//     attempt (the attempt ID doubles as the OAuth state);
//  3. the URL is opened for the user and the redirect is awaited;
//  4. the code and the PKCE verifier are handed back to the identity
//     provider, which exchanges them and answers with a session.
func (c *GRPCClient) StartFederatedFlow(ctx context.Context, strategy string) (Attempt, error) {
	flowCtx, cancel := context.WithTimeout(ctx, c.opts.FederatedTimeout)
	defer cancel()

	cb := NewCallbackServer(c.opts.CallbackPort)
	redirectURL, err := cb.Start(flowCtx)
	if err != nil {
		return Attempt{}, err
	}
	defer cb.Stop()

	verifier := oauth2.GenerateVerifier()

	started, err := c.client.StartFederated(ctx, &pb.StartFederatedRequest{
		Strategy:      strategy,
		RedirectURL:   redirectURL,
		CodeChallenge: oauth2.S256ChallengeFromVerifier(verifier),
	})
	if err != nil {
		return Attempt{}, c.mapError(err)
	}

	c.logger.Info(ctx, "opening browser for federated sign-in", "strategy", strategy)
	if err := c.opts.OpenURL(started.AuthURL); err != nil {
		c.logger.Warn(ctx, "could not open browser", "error", err, "url", started.AuthURL)
	}

	result, err := cb.Wait(flowCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return Attempt{}, fmt.Errorf("%w: %v", ErrFederatedCancelled, err)
		}
		return Attempt{}, err
	}
	if result.IsError() {
		return Attempt{}, &RejectedError{Message: result.ErrorDescription, Err: ErrFederatedCancelled}
	}
	if result.State != started.AttemptID {
		return Attempt{}, &RejectedError{Message: "State mismatch in sign-in callback."}
	}

	resp, err := c.client.CompleteFederated(ctx, &pb.CompleteFederatedRequest{
		AttemptID:    started.AttemptID,
		Code:         result.Code,
		CodeVerifier: verifier,
	})
	if err != nil {
		return Attempt{}, c.mapError(err)
	}
	return decodeAttempt(resp), nil
}
