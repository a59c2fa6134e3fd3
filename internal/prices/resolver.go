// Package prices resolves token USD prices through an ordered chain of
// sources, degrading to zero when none answers.
package prices

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"oceanbot/internal/model"
	"oceanbot/internal/observability/metrics"
)

// AddressSource prices a token by address.
type AddressSource interface {
	TokenPrice(ctx context.Context, token common.Address) (float64, bool, error)
}

// SymbolSource prices a token by symbol.
type SymbolSource interface {
	SymbolPrice(ctx context.Context, symbol string) (float64, bool, error)
}

// SymbolLookup resolves a token's symbol, usually via the ledger.
type SymbolLookup interface {
	TokenMeta(ctx context.Context, token common.Address) (model.TokenMeta, error)
}

// Config wires the resolver's sources. Any source may be nil.
type Config struct {
	Subgraph   AddressSource
	Market     AddressSource
	Aggregator SymbolSource
	Symbols    SymbolLookup
	// Synthetic lists tokens that have no market listing; the market step
	// is skipped for them.
	Synthetic []common.Address
}

// Resolver tries the subgraph, then the market API, then the symbol
// aggregator.
type Resolver struct {
	subgraph   AddressSource
	market     AddressSource
	aggregator SymbolSource
	symbols    SymbolLookup
	synthetic  map[common.Address]struct{}
	logger     *zap.Logger
}

func NewResolver(cfg Config, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	synthetic := make(map[common.Address]struct{}, len(cfg.Synthetic))
	for _, addr := range cfg.Synthetic {
		synthetic[addr] = struct{}{}
	}
	return &Resolver{
		subgraph:   cfg.Subgraph,
		market:     cfg.Market,
		aggregator: cfg.Aggregator,
		symbols:    cfg.Symbols,
		synthetic:  synthetic,
		logger:     logger,
	}
}

// ResolvePrice returns the USD price of token, or 0 when every source failed.
// It never returns an error.
func (r *Resolver) ResolvePrice(ctx context.Context, token common.Address) float64 {
	log := r.logger.With(zap.String("token", token.Hex()))

	if r.subgraph != nil {
		price, ok, err := r.subgraph.TokenPrice(ctx, token)
		if err != nil {
			log.Debug("subgraph price failed", zap.Error(err))
		} else if ok {
			metrics.IncPriceSource("subgraph")
			return price
		}
	}

	if _, skip := r.synthetic[token]; !skip && r.market != nil {
		price, ok, err := r.market.TokenPrice(ctx, token)
		if err != nil {
			log.Debug("market price failed", zap.Error(err))
		} else if ok {
			metrics.IncPriceSource("market")
			return price
		}
	}

	if r.aggregator != nil && r.symbols != nil {
		meta, err := r.symbols.TokenMeta(ctx, token)
		if err != nil {
			log.Debug("symbol lookup failed", zap.Error(err))
		} else {
			price, ok, err := r.aggregator.SymbolPrice(ctx, meta.Symbol)
			if err != nil {
				log.Debug("aggregator price failed", zap.Error(err))
			} else if ok {
				metrics.IncPriceSource("aggregator")
				return price
			}
		}
	}

	metrics.IncPriceSource("none")
	log.Info("no price found")
	return 0
}
