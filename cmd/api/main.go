// Command api runs the marketplace backend: accounts, provider applications
// and the back-office review queue.
//
//	@title						Marketplace API
//	@version					1.0
//	@description				Identity and provider onboarding backend for the local-service marketplace.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
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
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	_ "github.com/druksewa/marketplace/docs"
	"github.com/druksewa/marketplace/internal/api"
	"github.com/druksewa/marketplace/internal/api/handler"
	"github.com/druksewa/marketplace/internal/core/service"
	"github.com/druksewa/marketplace/internal/infrastructure/config"
	mongodb "github.com/druksewa/marketplace/internal/infrastructure/db/mongo"
	redisdb "github.com/druksewa/marketplace/internal/infrastructure/db/redis"
	"github.com/druksewa/marketplace/internal/infrastructure/notifier"
	"github.com/druksewa/marketplace/internal/infrastructure/queue"
	"github.com/druksewa/marketplace/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.Init(logger.Options{Pretty: true})
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "marketplace-api",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = client.Disconnect(dctx)
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	users := mongodb.NewUserRepository(db)
	applications := mongodb.NewApplicationRepository(db)
	notifications := mongodb.NewNotificationRepository(db)
	if err := mongodb.EnsureIndexes(ctx, users, applications, notifications); err != nil {
		return err
	}
	certificates, err := mongodb.NewCertificateStore(db)
	if err != nil {
		return err
	}

	dispatcher := queue.NewDispatcher(cfg.Delivery.Workers, notifier.NewLogNotifier(logger.Component("notifier")), logger.Component("dispatcher"))

	authService := service.NewAuthService(
		users,
		redisdb.NewOTPStore(rdb, cfg.OTP.TTL),
		dispatcher,
		cfg.JWTSecret,
		cfg.TokenTTL,
		logger.Component("auth"),
	)
	bus := service.NewNotificationService(notifications, dispatcher, logger.Component("notifications"))
	appService := service.NewApplicationService(applications, certificates, users, bus, logger.Component("applications"))

	if cfg.Bootstrap.AdminEmail != "" {
		if _, err := authService.SeedBackOffice(ctx, cfg.Bootstrap.AdminName, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword); err != nil {
			return err
		}
	}

	e := api.NewRouter(api.Dependencies{
		Auth:          authService,
		Applications:  appService,
		Notifications: bus,
		HealthChecks: map[string]handler.HealthCheck{
			"mongodb": mongodb.Ping(db),
			"redis":   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		JWTSecret: cfg.JWTSecret,
		BodyLimit: cfg.BodyLimit,
		Log:       log,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return dispatcher.Run(gctx)
	})

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(sctx)
	})

	return g.Wait()
}
