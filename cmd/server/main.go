package main // Entry point package

import (
	"context"       // startup deadlines and shutdown signalling
	"errors"        // distinguishes a normal server close
	"log/slog"      // structured application logging
	"net/http"      // http.ErrServerClosed
	"os"            // process exit and stdout
	"os/signal"     // graceful shutdown on SIGINT/SIGTERM
	"syscall"       // SIGTERM
	"time"          // timeouts

	"github.com/iliyamo/salon-management/internal/config"     // Internal config loader
	"github.com/iliyamo/salon-management/internal/database"   // MySQL pool and migrations
	"github.com/iliyamo/salon-management/internal/handler"    // HTTP handlers
	"github.com/iliyamo/salon-management/internal/kvstore"    // Redis session/cache store
	"github.com/iliyamo/salon-management/internal/metrics"    // Prometheus registry
	"github.com/iliyamo/salon-management/internal/queue"      // RabbitMQ invitations
	"github.com/iliyamo/salon-management/internal/repository" // DB repositories
	"github.com/iliyamo/salon-management/internal/router"     // Internal router setup
	"github.com/iliyamo/salon-management/internal/service"    // auth, guard, directory cache, salons
)

func main() {
	cfg := config.Load() // Load environment config; exits when a required variable is missing
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// newLogger writes JSON in production and readable text everywhere else.
func newLogger(cfg config.Config) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := database.Open(startCtx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(startCtx, db); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	// Sessions live only in Redis, so the server does not start without it.
	rdb, err := config.NewRedisClient(startCtx, config.RedisOptionsFromEnv())
	if err != nil {
		return err
	}
	defer rdb.Close()
	store := kvstore.NewRedisStore(rdb)

	reg, m := metrics.NewRegistry()

	principals := repository.NewPrincipalRepo(db)
	owners := repository.NewOwnerProfileRepo(db)
	salons := repository.NewSalonRepo(db)

	authSvc := service.NewAuthService(principals, owners, store, service.AuthConfig{
		AccessSecret:   cfg.JWTAccessSecret,
		RefreshSecret:  cfg.JWTRefreshSecret,
		AdminAccessTTL: cfg.AdminAccessTTL,
		OwnerAccessTTL: cfg.OwnerAccessTTL,
		RefreshTTL:     cfg.RefreshTTL,
		BcryptCost:     cfg.BcryptCost,
	}, logger, m)
	guard := service.NewGuard(store, cfg.JWTAccessSecret)
	cache := service.NewDirectoryCache(store, salons, config.LoadDirectoryCacheConfig(), logger, m)
	salonSvc := service.NewSalonService(salons, cache, queue.NewPublisher(cfg.RabbitURL), cfg.IsProduction(), logger)

	if cfg.ConsumeInvites {
		consumer := queue.NewConsumer(cfg.RabbitURL, "logs", logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("invitation consumer stopped", slog.Any("error", err))
			}
		}()
	}

	e := router.New(router.Deps{
		Auth:   handler.NewAuthHandler(authSvc, logger),
		Salons: handler.NewSalonHandler(salonSvc, logger),
		Guard:  guard,
		Health: handler.Health(map[string]handler.Pinger{
			"mysql": db,
			"redis": handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		}),
		Gatherer:  reg,
		Metrics:   m,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Logger:    logger,
	})

	addr := ":" + cfg.Port // Address string with port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", addr), slog.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	return e.Shutdown(shutdownCtx)
}
