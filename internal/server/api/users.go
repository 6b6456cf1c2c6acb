package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

// Directory is the part of services.UserDirectory the handlers need.
type Directory interface {
	Sync(ctx context.Context, claims *auth.Claims) (*models.DirectoryUser, error)
}

type syncUserResponse struct {
	User *models.DirectoryUser `json:"user"`
}

type usersHandler struct {
	directory Directory
	metrics   *Metrics
	logger    logging.Logger
}

// sync upserts the caller into the user directory and returns the record.
func (h *usersHandler) sync(w http.ResponseWriter, r *http.Request) {
	claims, ok := AuthFrom(r.Context()).(*auth.Claims)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, msgNotLoggedIn)
		return
	}

	u, err := h.directory.Sync(r.Context(), claims)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			writeMessage(w, http.StatusBadRequest, verr.Message)
			return
		}
		h.logger.Error(r.Context(), "error syncing user", "user_id", claims.UserID(), "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to sync user")
		return
	}

	if h.metrics != nil {
		h.metrics.RecordUserSynced()
	}
	writeJSON(w, http.StatusOK, syncUserResponse{User: u})
}
