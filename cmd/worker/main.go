package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"natours/api/internal/cache"
	"natours/api/internal/config"
	"natours/api/internal/log"
	"natours/api/internal/mail"
	"natours/api/internal/metrics"
	"natours/api/internal/queue"
	"natours/api/internal/storage"
	"natours/api/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "worker", cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	transport, err := newTransport(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("mail transport init failed")
	}

	m := metrics.New()
	metricsSrv := &http.Server{Addr: cfg.Mail.MetricsAddr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics listener failed")
		}
	}()

	processor := tasks.NewProcessor(transport, cfg.Mail.From, cfg.Security.ResetTokenTTL, m, logger)
	consumer := queue.NewConsumer(client, queue.Options{
		Stream:        cfg.Mail.Stream,
		Group:         cfg.Mail.Group,
		Consumer:      cfg.Mail.Consumer,
		ClaimInterval: cfg.Mail.ClaimInterval,
		MaxDeliveries: cfg.Mail.MaxDeliveries,
	}, m, logger, processor)

	done := make(chan error, 1)
	go func() {
		done <- consumer.Start(ctx)
	}()

	logger.Info().Str("transport", cfg.Mail.Transport).Msg("mail worker started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
		<-done
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("consumer stopped unexpectedly")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("metrics listener shutdown failed")
	}
	logger.Info().Msg("worker exited cleanly")
}

func newTransport(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) (mail.Transport, error) {
	if cfg.Mail.Transport == "smtp" {
		smtp := cfg.Mail.SMTP
		return mail.NewSMTPTransport(smtp.Host, smtp.Port, smtp.Username, smtp.Password), nil
	}

	store, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	logger.Info().Str("bucket", store.Bucket()).Msg("mail drops go to object storage")
	return mail.NewMaildropTransport(store), nil
}
