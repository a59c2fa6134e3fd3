package aggregate

import (
	"context"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"oceanbot/internal/model"
	"oceanbot/internal/observability/metrics"
)

// run executes c under a StuckThreshold deadline. Unless c was abandoned, both
// fetching flags are cleared before c.done is closed.
func (a *Aggregator) run(ctx context.Context, c *cycle) {
	start := c.start
	ctx, cancel := context.WithTimeout(ctx, a.cfg.StuckThreshold)
	a.mu.Lock()
	c.cancel = cancel
	a.mu.Unlock()

	defer func() {
		cancel()
		a.mu.Lock()
		if a.inflight == c {
			if err := a.store.SetFetchState(context.WithoutCancel(ctx), model.FetchState{}); err != nil {
				a.logger.Error("clear fetch state", zap.Error(err))
			}
			a.inflight = nil
			if c.err == nil {
				a.mirror = Result{Infos: c.infos, LastFetched: c.fetchedAt}
			}
		} else {
			a.logger.Warn("abandoned refresh returned", zap.Error(c.err))
		}
		a.mu.Unlock()
		close(c.done)
	}()

	if err := a.store.SetFetchState(ctx, model.FetchState{Fetching: true, Since: start.Unix()}); err != nil {
		c.err = fmt.Errorf("set fetch state: %w", err)
		return
	}

	if r := catch(func() { c.infos, c.fetchedAt, c.err = a.refresh(ctx) }); r != nil {
		c.infos, c.err = nil, r
	}

	elapsed := a.now().Sub(start)
	metrics.RecordRefresh(elapsed, c.err != nil)
	if c.err == nil {
		a.logger.Info("refresh complete",
			zap.Int("oceans", len(c.infos)),
			zap.Duration("elapsed", elapsed),
		)
	}
}

// refresh rebuilds and persists the ocean list.
func (a *Aggregator) refresh(ctx context.Context) ([]model.OceanInfo, int64, error) {
	bases, err := a.lister.Oceans(ctx)
	if err != nil {
		return nil, 0, err
	}

	height, err := a.ledger.BlockNumber(ctx)
	if err != nil {
		return nil, 0, err
	}

	oceans := make([]model.Ocean, 0, len(bases))
	for _, base := range bases {
		if !base.Active {
			continue
		}
		ocean, ok, err := a.window(ctx, base, height)
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			continue
		}
		oceans = append(oceans, ocean)
	}

	infos := make([]model.OceanInfo, 0, len(oceans))
	for _, ocean := range oceans {
		info, err := a.enrich(ctx, ocean)
		if err != nil {
			return nil, 0, err
		}
		infos = append(infos, info)
	}

	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].APR > infos[j].APR
	})

	if err := ctx.Err(); err != nil {
		return nil, 0, fmt.Errorf("refresh abandoned: %w", err)
	}
	fetchedAt := a.now().Unix()
	if err := a.store.SetOceans(ctx, infos); err != nil {
		return nil, 0, fmt.Errorf("persist oceans: %w", err)
	}
	if err := a.store.SetLastFetched(ctx, fetchedAt); err != nil {
		return nil, 0, fmt.Errorf("persist last fetched: %w", err)
	}
	return infos, fetchedAt, nil
}

// window reads the pool's reward window. ok is false when the pool has not
// started or already ended at height.
func (a *Aggregator) window(ctx context.Context, base model.OceanBase, height uint64) (model.Ocean, bool, error) {
	if !common.IsHexAddress(base.Address) {
		a.logger.Debug("skip ocean with invalid address", zap.String("ocean", base.Name), zap.String("address", base.Address))
		return model.Ocean{}, false, nil
	}
	pool := common.HexToAddress(base.Address)

	startBlock, err := a.ledger.StartBlock(ctx, pool)
	if err != nil {
		return model.Ocean{}, false, err
	}
	endBlock, err := a.ledger.BonusEndBlock(ctx, pool)
	if err != nil {
		return model.Ocean{}, false, err
	}

	ocean := model.Ocean{
		OceanBase:   base,
		StartBlock:  startBlock,
		EndBlock:    endBlock,
		StartOffset: int64(startBlock) - int64(height),
		EndOffset:   int64(endBlock) - int64(height),
	}
	if !ocean.InWindow() {
		a.logger.Debug("skip ocean outside reward window",
			zap.String("pool", base.Address),
			zap.Int64("start_offset", ocean.StartOffset),
			zap.Int64("end_offset", ocean.EndOffset),
		)
		return model.Ocean{}, false, nil
	}
	return ocean, true, nil
}

func (a *Aggregator) enrich(ctx context.Context, ocean model.Ocean) (model.OceanInfo, error) {
	pool := common.HexToAddress(ocean.Address)
	depositToken := common.HexToAddress(ocean.DepositTokenAddress)
	rewardToken := common.HexToAddress(ocean.EarningTokenAddress)

	rewardPerBlock, err := a.ledger.RewardPerBlock(ctx, pool, rewardToken)
	if err != nil {
		return model.OceanInfo{}, err
	}
	totalStaked, err := a.ledger.BalanceOf(ctx, depositToken, pool)
	if err != nil {
		return model.OceanInfo{}, err
	}

	depositPrice := a.prices.ResolvePrice(ctx, depositToken)
	rewardPrice := a.prices.ResolvePrice(ctx, rewardToken)

	ocean.RewardPerBlock = rewardPerBlock
	ocean.RewardsRemaining = rewardPerBlock.Mul(decimal.NewFromInt(ocean.EndOffset))

	return model.OceanInfo{
		Ocean:             ocean,
		TotalStaked:       totalStaked,
		DepositTokenPrice: depositPrice,
		RewardTokenPrice:  rewardPrice,
		TVL:               TVL(totalStaked, depositPrice),
		APR:               APR(a.blocksPerYear, rewardPerBlock, rewardPrice, totalStaked, depositPrice),
	}, nil
}

// catch runs fn and converts a panic into an error.
func catch(fn func()) error {
	var pc panics.Catcher
	pc.Try(fn)
	if r := pc.Recovered(); r != nil {
		return r.AsError()
	}
	return nil
}
