package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/nowlisten/nowlisten/internal/app"
	"github.com/nowlisten/nowlisten/internal/channel"
	"github.com/nowlisten/nowlisten/internal/invitation"
	"github.com/nowlisten/nowlisten/internal/observability"
	"github.com/nowlisten/nowlisten/internal/platform/cache"
	"github.com/nowlisten/nowlisten/internal/platform/db"
	"github.com/nowlisten/nowlisten/internal/rbac"
	"github.com/nowlisten/nowlisten/internal/workspace"
	"github.com/nowlisten/nowlisten/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("api exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, db.PoolConfig{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns, MaxConnLifetime: cfg.PGMaxConnLifetime})
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		return err
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("job inspector close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	workspaceService := workspace.NewService(workspace.NewRepository(pool), logger, cfg.MemberPageLimit)
	authorizer := workspaceService.Authorizer()
	directory := workspaceService.Directory()
	guard := rbac.Middleware{Guard: authorizer, Logger: logger}

	channelService := channel.NewService(channel.NewRepository(pool), authorizer, workspaceService, directory, logger)
	workspaceService.OnMemberRemoved(channelService.RevokeMemberGrants)

	invitationService := invitation.NewService(
		invitation.NewRepository(pool),
		authorizer,
		workspaceService,
		directory,
		jobClient,
		cfg.InvitationExpiry.Duration(),
		logger,
	).
		WithThrottle(invitation.NewRedisThrottle(redisClient, cfg.InvitationHourlyLimit)).
		WithRecorder(metrics)

	router := app.NewRouter(app.RouterParams{
		Logger:  logger,
		Config:  cfg,
		Tokens:  app.NewAccessTokens(cfg.JWTAccessSecret),
		Metrics: metrics,
		Checks: map[string]app.Pinger{
			"postgres": pool,
			"redis":    app.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		},
		WorkspaceHandler:  workspace.NewHandler(logger, workspaceService, guard),
		InvitationHandler: invitation.NewHandler(logger, invitationService),
		ChannelHandler:    channel.NewHandler(logger, channelService),
		JobHandler:        jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: cfg.AppReadTimeout,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
