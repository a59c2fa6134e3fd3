package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"oceanbot/internal/bot"
	"oceanbot/internal/observability/metrics"
	"oceanbot/internal/telegram"
)

const shutdownTimeout = 15 * time.Second

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	chainID, err := a.chain.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}

	secret := cfg.WebhookSecret
	if secret == "" {
		if secret, err = randomSecret(); err != nil {
			return err
		}
	}

	tg := telegram.NewClient(a.http, cfg.BotToken)
	b := bot.New(tg, a.aggregator, a.store, a.ledger, logger.Named("bot"))
	hook := telegram.NewWebhook(b, secret, logger.Named("webhook"))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metrics.Mount(r)
	hook.Mount(r)

	if cfg.WebhookURL != "" {
		if err := tg.DeleteWebhook(ctx); err != nil {
			return fmt.Errorf("delete webhook: %w", err)
		}
		if err := tg.SetWebhook(ctx, cfg.WebhookURL+hook.Path(), secret); err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
		logger.Info("webhook registered", zap.String("url", cfg.WebhookURL+"/telegram/***"))
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serve start",
			zap.String("listen", cfg.Listen),
			zap.String("chain_id", chainID.String()),
			zap.String("store", cfg.Store),
			zap.Duration("cache_ttl", cfg.CacheTTL),
			zap.Duration("stuck_threshold", cfg.StuckThreshold),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := hook.Wait(shutdownCtx); err != nil {
		logger.Warn("updates still being handled at exit", zap.Error(err))
	}
	if err := a.aggregator.Wait(shutdownCtx); err != nil {
		logger.Warn("background refresh still running at exit", zap.Error(err))
	}
	return nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate webhook secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
