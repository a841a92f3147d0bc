package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/dealerhub-backend/api/controllers"
	"github.com/angelmondragon/dealerhub-backend/api/middleware"
	"github.com/angelmondragon/dealerhub-backend/internal/dealroom"
	"github.com/angelmondragon/dealerhub-backend/internal/marketinsight"
	"github.com/angelmondragon/dealerhub-backend/internal/notifications"
	"github.com/angelmondragon/dealerhub-backend/internal/rto"
	"github.com/angelmondragon/dealerhub-backend/pkg/auth/session"
	"github.com/angelmondragon/dealerhub-backend/pkg/config"
	"github.com/angelmondragon/dealerhub-backend/pkg/db/models"
	"github.com/angelmondragon/dealerhub-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/dealerhub-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Revoke(ctx context.Context, sessionID string) error
}

type dealerDirectory interface {
	FindByEmail(ctx context.Context, email string) (*models.Dealer, error)
}

// redisStore is the slice of the redis client the HTTP layer needs.
type redisStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Dependencies are the services the router exposes. Nil services answer
// with an internal error rather than panicking.
type Dependencies struct {
	DB            controllers.Pinger
	Redis         redisStore
	Sessions      sessionManager
	Dealers       dealerDirectory
	DealRoom      dealroom.Service
	RTO           rto.Service
	Insights      marketinsight.Service
	Notifications notifications.Service
	Gatherer      prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.PublicURL),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readinessChecks(deps)))
	})
	r.Handle("/metrics", metricsHandler(deps.Gatherer))

	var verifier session.AccessSessionChecker
	if cfg.Auth.RequireSession && deps.Sessions != nil {
		verifier = deps.Sessions
	}

	var (
		limiter     func(http.Handler) http.Handler
		idempotency func(http.Handler) http.Handler
	)
	if deps.Redis != nil {
		limiter = middleware.RateLimit(middleware.DealActionPolicy(cfg.RateLimit), deps.Redis, logg)
		idempotency = middleware.Idempotency(deps.Redis, logg)
	} else {
		limiter = passthrough
		idempotency = passthrough
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, verifier, logg))
		r.Use(middleware.ResolveDealer(deps.Dealers, logg))

		r.Post("/auth/logout", controllers.AuthLogout(deps.Sessions, logg))

		r.Route("/deals", func(r chi.Router) {
			r.Get("/", controllers.ListDeals(deps.DealRoom, logg))
			r.Get("/{transactionId}", controllers.LoadDealRoom(deps.DealRoom, logg))
			r.With(limiter, idempotency).Post("/{transactionId}/actions", controllers.PerformDealAction(deps.DealRoom, logg))
			r.Post("/{transactionId}/rating-prompt/skip", controllers.SkipRatingPrompt(deps.DealRoom, logg))
			r.With(idempotency).Put("/{transactionId}/rto", controllers.UpdateRTO(deps.RTO, logg))
		})

		r.With(limiter, idempotency).Post("/vehicles/{vehicleId}/offers", controllers.MakeOffer(deps.DealRoom, logg))
		r.Get("/market-insights", controllers.MarketInsight(deps.Insights, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.With(idempotency).Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.With(idempotency).Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})
	})

	return r
}

func readinessChecks(deps Dependencies) map[string]controllers.Pinger {
	checks := map[string]controllers.Pinger{}
	if deps.DB != nil {
		checks["db"] = deps.DB
	}
	if p, ok := deps.Redis.(controllers.Pinger); ok {
		checks["redis"] = p
	}
	return checks
}

func metricsHandler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func passthrough(next http.Handler) http.Handler { return next }
