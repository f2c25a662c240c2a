package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"natours/api/internal/cache"
	"natours/api/internal/config"
	"natours/api/internal/database"
	"natours/api/internal/handlers"
	"natours/api/internal/jobs"
	"natours/api/internal/log"
	"natours/api/internal/mail"
	"natours/api/internal/metrics"
	"natours/api/internal/repository"
	"natours/api/internal/security"
	"natours/api/internal/server"
	"natours/api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "api", cfg.Logging.Level)

	ctx := context.Background()

	dbPool, err := database.Open(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	codec, err := security.NewSessionCodec(security.SessionCodecConfig{
		Secret: cfg.Security.JWTSecret,
		TTL:    cfg.Security.JWTTTL,
		Issuer: cfg.Security.JWTIssuer,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init session codec")
	}

	params := security.DefaultArgon2Params
	params.Time = cfg.Security.HashTime
	params.Memory = cfg.Security.HashMemoryKiB
	params.Threads = cfg.Security.HashThreads
	hasher := security.NewPasswordHasher(params, cfg.Security.HashConcurrency)

	m := metrics.New()
	users := repository.NewUserRepository(dbPool)
	outbox := mail.NewQueue(redisClient, cfg.Mail.Stream)

	accounts := service.NewAuthService(users, hasher, codec, outbox, m, time.Now, logger)
	resets := service.NewResetService(users, hasher, codec, outbox, service.ResetOptions{
		TokenTTL:           cfg.Security.ResetTokenTTL,
		RevealUnknownEmail: cfg.Security.RevealUnknownEmail,
	}, m, time.Now, logger)

	handlerSet := handlers.NewHandlerSet(logger, cfg, handlers.Deps{
		Accounts: accounts,
		Resets:   resets,
		DB:       dbPool,
		Cache:    handlers.RedisPinger{Client: redisClient},
		Metrics:  m,
	})
	httpServer := server.NewHTTPServer(cfg, logger, m, handlerSet)

	scheduler := jobs.NewScheduler(resets, cfg.Security.SweepSchedule, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop(shutdownCtx)

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
