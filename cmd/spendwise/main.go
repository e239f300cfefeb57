package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"spendwise/internal/advisor"
	"spendwise/internal/amqp"
	"spendwise/internal/auth"
	"spendwise/internal/cli"
	apphttp "spendwise/internal/http"
	applog "spendwise/internal/log"
	"spendwise/internal/services"
	"spendwise/internal/session"
	"spendwise/internal/storage"
)

func main() {
	if err := run(); err != nil {
		applog.Default().Error("Server exited with error", applog.FieldError, err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg, os.Stdout)

	users, closeUsers, err := cli.InitUserStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeUsers(); err != nil {
			logger.Error("Failed to close user store", applog.FieldError, err)
		}
	}()

	cats, err := cli.SeedCategories(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]apphttp.Check{}
	if repo, ok := users.(*storage.SQLiteRepository); ok {
		checks["user_store"] = repo.Ping
	}

	// AMQP is optional; imports still succeed when the broker is down.
	var publisher services.Publisher
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, 3, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, import events disabled", applog.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
			checks["amqp"] = func(context.Context) error {
				if !client.Healthy() {
					return errors.New("circuit open")
				}
				return nil
			}
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	sessions := session.NewRegistry(session.Config{
		TTL:        cfg.SessionTTL,
		MaxEntries: cfg.SessionMaxEntries,
		Categories: cats,
	}, logger)
	defer sessions.Close()

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		SessionTTL:         cfg.SessionTTL,
	}, apphttp.Deps{
		Auth:     auth.NewService(users, logger),
		Sessions: sessions,
		Imports:  services.NewImportService(publisher, cfg.MaxImportRows, logger),
		Advisor:  advisor.New(),
		Checks:   checks,
		Logger:   logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting spendwise server", "port", cfg.Port, "user_store", cfg.UserStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on :%s: %w", cfg.Port, err)
		}
		return nil
	})
	g.Go(func() error {
		return sessions.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
