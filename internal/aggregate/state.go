package aggregate

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"oceanbot/internal/model"
)

// StateStore persists the refresh bookkeeping and the cached ocean list.
// *storage.Store satisfies it.
type StateStore interface {
	LastFetched(ctx context.Context) (int64, error)
	SetLastFetched(ctx context.Context, ts int64) error
	FetchState(ctx context.Context) (model.FetchState, error)
	SetFetchState(ctx context.Context, state model.FetchState) error
	Oceans(ctx context.Context) ([]model.OceanInfo, error)
	SetOceans(ctx context.Context, infos []model.OceanInfo) error
}

// Lister returns the ocean catalogue in listing order.
type Lister interface {
	Oceans(ctx context.Context) ([]model.OceanBase, error)
}

// Ledger is the subset of on-chain reads a refresh cycle needs.
type Ledger interface {
	BlockNumber(ctx context.Context) (uint64, error)
	StartBlock(ctx context.Context, pool common.Address) (uint64, error)
	BonusEndBlock(ctx context.Context, pool common.Address) (uint64, error)
	RewardPerBlock(ctx context.Context, pool, rewardToken common.Address) (decimal.Decimal, error)
	BalanceOf(ctx context.Context, token, owner common.Address) (decimal.Decimal, error)
}

// PriceResolver returns a USD price, or 0 when none is known.
type PriceResolver interface {
	ResolvePrice(ctx context.Context, token common.Address) float64
}
