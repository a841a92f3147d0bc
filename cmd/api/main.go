package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/dealerhub-backend/api/routes"
	"github.com/angelmondragon/dealerhub-backend/internal/dealers"
	"github.com/angelmondragon/dealerhub-backend/internal/dealroom"
	"github.com/angelmondragon/dealerhub-backend/internal/marketinsight"
	"github.com/angelmondragon/dealerhub-backend/internal/notifications"
	"github.com/angelmondragon/dealerhub-backend/internal/rto"
	"github.com/angelmondragon/dealerhub-backend/internal/transactions"
	"github.com/angelmondragon/dealerhub-backend/internal/vehicles"
	"github.com/angelmondragon/dealerhub-backend/pkg/auth/session"
	"github.com/angelmondragon/dealerhub-backend/pkg/config"
	"github.com/angelmondragon/dealerhub-backend/pkg/db"
	"github.com/angelmondragon/dealerhub-backend/pkg/logger"
	"github.com/angelmondragon/dealerhub-backend/pkg/mailer"
	"github.com/angelmondragon/dealerhub-backend/pkg/metrics"
	"github.com/angelmondragon/dealerhub-backend/pkg/migrate"
	"github.com/angelmondragon/dealerhub-backend/pkg/outbox"
	"github.com/angelmondragon/dealerhub-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	dealMetrics := metrics.NewDealMetrics(prometheus.DefaultRegisterer)
	dealerRepo := dealers.NewRepository(conn)
	transactionRepo := transactions.NewRepository(conn)
	rtoRepo := rto.NewRepository(conn)
	notificationRepo := notifications.NewRepository(conn)

	insightService, err := marketinsight.NewService(marketinsight.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create market insight service", err)
		os.Exit(1)
	}

	notificationService, err := notifications.NewService(notificationRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	rtoService, err := rto.NewService(dbClient, rtoRepo, transactionRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create rto service", err)
		os.Exit(1)
	}

	dealRoomService, err := dealroom.NewService(dealroom.ServiceParams{
		Tx:             dbClient,
		Transactions:   transactionRepo,
		Vehicles:       vehicles.NewRepository(conn),
		Dealers:        dealerRepo,
		RTO:            rtoRepo,
		Outbox:         outbox.NewService(outbox.NewRepository(conn), logg),
		Dispatcher:     notifications.NewDispatcher(notificationRepo, mailer.New(cfg.Mail, logg), logg, dealMetrics, cfg.DealRoom.NotifyTimeout),
		Insights:       insightService,
		Prompts:        dealroom.NewRatingPrompts(redisClient, cfg.JWT.SessionTTL()),
		Metrics:        dealMetrics,
		Logger:         logg,
		MaxRetries:     cfg.DealRoom.MaxConflictRetries,
		InsightTimeout: cfg.DealRoom.InsightTimeout,
		AppBaseURL:     cfg.DealRoom.AppBaseURL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create deal room service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			DB:            dbClient,
			Redis:         redisClient,
			Sessions:      sessionManager,
			Dealers:       dealerRepo,
			DealRoom:      dealRoomService,
			RTO:           rtoService,
			Insights:      insightService,
			Notifications: notificationService,
			Gatherer:      prometheus.DefaultGatherer,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}
