package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func runRefresh(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd, false)
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

	start := time.Now()
	infos, err := a.aggregator.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	logger.Info("refresh done",
		zap.Int("oceans", len(infos)),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("store", cfg.Store),
	)
	return nil
}

func runOceans(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd, false)
	if err != nil {
		return err
	}
	defer logger.Sync()

	token, _ := cmd.Flags().GetString("token")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.aggregator.GetOceanInfos(ctx, token, nil)
	if err != nil {
		return err
	}
	// A stale list starts a background refresh; let it land in the store.
	if err := a.aggregator.Wait(ctx); err != nil {
		logger.Warn("background refresh interrupted", zap.Error(err))
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
