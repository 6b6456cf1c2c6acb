package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
)

// AuthContext is what the bearer-token verifier learned about the caller.
// *auth.Claims implements it.
type AuthContext interface {
	UserID() string
}

type contextKey string

const authContextKey contextKey = "auth"

// WithAuth returns a copy of ctx carrying a.
func WithAuth(ctx context.Context, a AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, a)
}

// AuthFrom returns the caller's auth context, or nil when the request was
// not authenticated.
func AuthFrom(ctx context.Context) AuthContext {
	a, _ := ctx.Value(authContextKey).(AuthContext)
	return a
}

// Authenticate verifies a session JWT from the Authorization header and
// attaches its claims to the request context. It never rejects a request:
// requests without a valid token pass through unauthenticated and
// ProtectRoute decides.
func Authenticate(secretKey []byte, logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(common.AuthorizationHeaderName)
			token, ok := strings.CutPrefix(header, common.BearerPrefix)
			if !ok || token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(token, secretKey)
			if err != nil {
				logger.Debug(r.Context(), "bearer token rejected", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), claims)))
		})
	}
}
