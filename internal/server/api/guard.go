package api

import (
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/logging"
)

const (
	msgNotLoggedIn  = "Unauthorized - you must be logged in"
	msgUnauthorized = "Unauthorized"
)

// ProtectRoute admits only requests whose auth context names a user. It
// must run after Authenticate. Any failure while inspecting the auth
// context denies the request.
func ProtectRoute(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authorized(w, r, logger) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// authorized writes the 401 itself when it returns false.
func authorized(w http.ResponseWriter, r *http.Request, logger logging.Logger) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error(r.Context(), "error in protectRoute middleware", "panic", p)
			writeMessage(w, http.StatusUnauthorized, msgUnauthorized)
			ok = false
		}
	}()

	a := AuthFrom(r.Context())
	if a == nil || a.UserID() == "" {
		writeMessage(w, http.StatusUnauthorized, msgNotLoggedIn)
		return false
	}
	return true
}
