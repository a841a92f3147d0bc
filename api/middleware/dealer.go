package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/dealerhub-backend/api/responses"
	"github.com/angelmondragon/dealerhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/dealerhub-backend/pkg/errors"
	"github.com/angelmondragon/dealerhub-backend/pkg/logger"
)

type dealerLookup interface {
	FindByEmail(ctx context.Context, email string) (*models.Dealer, error)
}

// ResolveDealer maps the authenticated email to a dealer profile. Users
// without one continue with no dealer in context; deal room operations
// reject them downstream.
func ResolveDealer(dealers dealerLookup, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email := EmailFromContext(r.Context())
			if email == "" || dealers == nil {
				next.ServeHTTP(w, r)
				return
			}
			dealer, err := dealers.FindByEmail(r.Context(), email)
			if err != nil {
				if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
					next.ServeHTTP(w, r)
					return
				}
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			ctx := WithDealerID(r.Context(), dealer.ID)
			if logg != nil {
				ctx = logg.WithDealerID(ctx, dealer.ID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
