package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/dealerhub-backend/api/middleware"
	"github.com/angelmondragon/dealerhub-backend/api/responses"
	"github.com/angelmondragon/dealerhub-backend/pkg/errors"
	"github.com/angelmondragon/dealerhub-backend/pkg/logger"
)

type sessionRevoker interface {
	Revoke(ctx context.Context, sessionID string) error
}

// AuthLogout ends the redis session behind the presented access token.
func AuthLogout(manager sessionRevoker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if manager == nil {
			responses.WriteError(r.Context(), logg, w, errors.New(errors.CodeInternal, "session manager unavailable"))
			return
		}
		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, errors.New(errors.CodeUnauthorized, "missing session id"))
			return
		}
		if err := manager.Revoke(r.Context(), sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, errors.Wrap(errors.CodeDependency, err, "revoke session"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}
