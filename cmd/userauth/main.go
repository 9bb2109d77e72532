package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/target/user-auth-api/config"
	"github.com/target/user-auth-api/internal/bootstrap"
	"github.com/target/user-auth-api/internal/devseed"
	httpx "github.com/target/user-auth-api/internal/http"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting user auth service",
		"db_host", cfg.Postgres.Host,
		"db_port", cfg.Postgres.Port,
		"db_name", cfg.Postgres.Name,
		"session_store", cfg.Auth.SessionStore,
		"http_addr", cfg.HTTP.Addr)

	db, err := bootstrap.ConnectDB(cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close database failed", "error", cerr)
		}
	}()

	var redisClient redis.UniversalClient
	if cfg.Auth.SessionStore == config.SessionBackendRedis {
		redisClient, err = bootstrap.ConnectRedis(cfg.Redis, logger)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close redis failed", "error", cerr)
			}
		}()
	}

	if cfg.Postgres.RunMigrationsOnStart {
		if err = bootstrap.RunMigrations(ctx, db, logger); err != nil {
			return err
		}
	} else {
		logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
	}

	authSvc, err := bootstrap.BuildAuthService(cfg, db, redisClient, logger)
	if err != nil {
		return err
	}

	if cfg.IsDev {
		if err = devseed.Seed(ctx, authSvc, logger); err != nil {
			return err
		}
	}

	router := httpx.NewRouter(httpx.RouterServices{Auth: authSvc, Logger: logger})
	server, serveErr := bootstrap.StartHTTPServer(cfg.HTTP.Addr, router, logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case err := <-serveErr:
			return err
		case <-gctx.Done():
			return nil
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		return bootstrap.ShutdownHTTPServer(server, logger)
	})

	return g.Wait()
}
