package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"oceanbot/internal/aggregate"
	"oceanbot/internal/chain"
	"oceanbot/internal/config"
	"oceanbot/internal/httpx"
	"oceanbot/internal/ledger"
	"oceanbot/internal/listing"
	"oceanbot/internal/netcache"
	"oceanbot/internal/prices"
	"oceanbot/internal/storage"
)

// app holds the components shared by every command.
type app struct {
	http       *httpx.Client
	chain      *chain.Client
	ledger     *ledger.Client
	store      *storage.Store
	aggregator *aggregate.Aggregator
	logger     *zap.Logger
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	synthetic, err := ledger.ParseAddresses(cfg.SyntheticTokens)
	if err != nil {
		return nil, err
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, cfg.HTTPTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	store, err := storage.Open(ctx, storage.Options{
		Backend:    cfg.Store,
		PGDSN:      cfg.PGDSN,
		SQLitePath: cfg.SQLitePath,
		Dir:        cfg.StoreDir,
	})
	if err != nil {
		chainClient.Close()
		return nil, err
	}

	httpClient := httpx.New(cfg.HTTPTimeout, cfg.HTTPRetries)
	cached := netcache.NewClient(httpClient, netcache.New(cfg.NetcacheTTL))
	ledgerClient := ledger.NewClient(chainClient, logger.Named("ledger"))

	resolver := prices.NewResolver(prices.Config{
		Subgraph:   prices.NewSubgraph(httpClient, cfg.SubgraphURL),
		Market:     prices.NewMarket(cached, cfg.MarketAPIURL),
		Aggregator: prices.NewAggregator(cached, cfg.AggregatorAPIURL),
		Symbols:    ledgerClient,
		Synthetic:  synthetic,
	}, logger.Named("prices"))

	lister := listing.NewClient(cached, cfg.ListingURL, cfg.ListingAttempts, logger.Named("listing"))

	agg := aggregate.NewAggregator(aggregate.Config{
		TTL:            cfg.CacheTTL,
		StuckThreshold: cfg.StuckThreshold,
		BlockTime:      cfg.BlockTime,
	}, store, lister, ledgerClient, resolver, logger.Named("aggregate"))

	return &app{
		http:       httpClient,
		chain:      chainClient,
		ledger:     ledgerClient,
		store:      store,
		aggregator: agg,
		logger:     logger,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close store", zap.Error(err))
	}
	a.chain.Close()
}

// setup loads and validates the configuration and builds the logger.
func setup(cmd *cobra.Command, serve bool) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	if serve {
		err = cfg.ValidateServe()
	} else {
		err = cfg.Validate()
	}
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}
