// Package aggregate builds the enriched ocean list and decides when it is
// refreshed. Callers get the stored list immediately; an expired list is
// rebuilt in the background, at most once at a time per process.
package aggregate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"oceanbot/internal/model"
	"oceanbot/internal/observability/metrics"
)

const (
	DefaultTTL            = 10 * time.Minute
	DefaultStuckThreshold = 5 * time.Minute
)

// Config controls the freshness policy.
type Config struct {
	// TTL is how long a refreshed list is served without a new refresh.
	TTL time.Duration
	// StuckThreshold is how long a persisted in-flight flag is trusted.
	// It must be shorter than TTL.
	StuckThreshold time.Duration
	// BlockTime is the average block interval used for blocksPerYear.
	BlockTime time.Duration
}

func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.StuckThreshold <= 0 || c.StuckThreshold >= c.TTL {
		c.StuckThreshold = min(DefaultStuckThreshold, c.TTL/2)
	}
	if c.BlockTime <= 0 {
		c.BlockTime = DefaultBlockTime
	}
	return c
}

// Result is what GetOceanInfos returns. LastFetched is unix seconds, 0 when
// no refresh has ever completed.
type Result struct {
	Infos             []model.OceanInfo `json:"infos"`
	LastFetched       int64             `json:"lastFetched"`
	CurrentlyFetching bool              `json:"currentlyFetching"`
}

// NotifyFunc receives the fresh list once a background refresh finished.
type NotifyFunc func(ctx context.Context, result Result)

// cycle is one refresh run. done is closed after the fetching flag is cleared.
type cycle struct {
	done      chan struct{}
	start     time.Time
	cancel    context.CancelFunc
	infos     []model.OceanInfo
	fetchedAt int64
	err       error
}

// Aggregator owns the cached ocean list and the refresh coordination.
type Aggregator struct {
	cfg           Config
	store         StateStore
	lister        Lister
	ledger        Ledger
	prices        PriceResolver
	logger        *zap.Logger
	now           func() time.Time
	blocksPerYear float64

	mu       sync.Mutex
	inflight *cycle
	mirror   Result
	bg       sync.WaitGroup
}

func NewAggregator(cfg Config, store StateStore, lister Lister, ledger Ledger, prices PriceResolver, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	return &Aggregator{
		cfg:           cfg,
		store:         store,
		lister:        lister,
		ledger:        ledger,
		prices:        prices,
		logger:        logger,
		now:           time.Now,
		blocksPerYear: BlocksPerYear(cfg.BlockTime),
	}
}

// SetClock overrides the time source.
func (a *Aggregator) SetClock(now func() time.Time) {
	a.now = now
}

// GetOceanInfos returns the ocean list, optionally restricted to oceans whose
// deposit token is filterToken.
//
// A fresh list is returned as is. An expired list is returned immediately
// while one background refresh rebuilds it; notify, when set, is called with
// the new list once that refresh succeeds. Only when no list was ever fetched
// does the call block on the refresh.
func (a *Aggregator) GetOceanInfos(ctx context.Context, filterToken string, notify NotifyFunc) (Result, error) {
	now := a.now()

	lastFetched, err := a.store.LastFetched(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load last fetched: %w", err)
	}
	state, err := a.store.FetchState(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load fetch state: %w", err)
	}

	a.mu.Lock()
	local := a.inflight
	a.mu.Unlock()

	if local != nil || state.Fetching {
		since := time.Unix(state.Since, 0)
		if local != nil {
			since = local.start
		}
		if now.Sub(since) < a.cfg.StuckThreshold {
			if lastFetched == 0 && local != nil {
				return a.await(ctx, local, filterToken)
			}
			return a.cached(ctx, lastFetched, true, filterToken)
		}
		a.logger.Warn("overriding stuck refresh",
			zap.Time("since", since),
			zap.Bool("local", local != nil),
			zap.Duration("threshold", a.cfg.StuckThreshold),
		)
		metrics.IncStuckOverride()
		if local != nil {
			a.abandon(local)
		} else if err := a.store.SetFetchState(ctx, model.FetchState{}); err != nil {
			return Result{}, fmt.Errorf("clear stuck fetch state: %w", err)
		}
	}

	if lastFetched != 0 && now.Sub(time.Unix(lastFetched, 0)) < a.cfg.TTL {
		return a.cached(ctx, lastFetched, false, filterToken)
	}

	c, started := a.begin()
	if lastFetched == 0 {
		if started {
			a.run(ctx, c)
		}
		return a.await(ctx, c, filterToken)
	}

	if started {
		a.refreshInBackground(ctx, c, filterToken, notify)
	}
	return a.cached(ctx, lastFetched, true, filterToken)
}

// Refresh runs one refresh cycle synchronously, or waits for the one already
// running in this process, and returns its outcome.
func (a *Aggregator) Refresh(ctx context.Context) ([]model.OceanInfo, error) {
	c, started := a.begin()
	if started {
		a.run(ctx, c)
	}
	select {
	case <-c.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return c.infos, c.err
}

// Wait blocks until background refreshes and their notifications finished.
func (a *Aggregator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.bg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Aggregator) begin() (*cycle, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inflight != nil {
		return a.inflight, false
	}
	c := &cycle{done: make(chan struct{}), start: a.now()}
	a.inflight = c
	return c, true
}

// abandon detaches c so a new cycle can start. c is cancelled and, once it
// returns, leaves the flag, the mirror and the in-flight slot alone.
func (a *Aggregator) abandon(c *cycle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inflight == c {
		a.inflight = nil
	}
	if c.cancel != nil {
		c.cancel()
	}
}

func (a *Aggregator) await(ctx context.Context, c *cycle, filterToken string) (Result, error) {
	select {
	case <-c.done:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	if c.err != nil {
		return Result{}, c.err
	}
	return Result{
		Infos:       FilterByDepositToken(c.infos, filterToken),
		LastFetched: c.fetchedAt,
	}, nil
}

// cached reads the stored list. When the store cannot be read the last list
// this process refreshed is served instead.
func (a *Aggregator) cached(ctx context.Context, lastFetched int64, fetching bool, filterToken string) (Result, error) {
	infos, err := a.store.Oceans(ctx)
	if err != nil {
		a.mu.Lock()
		mirror := a.mirror
		a.mu.Unlock()
		if mirror.LastFetched == 0 {
			return Result{}, fmt.Errorf("load oceans: %w", err)
		}
		a.logger.Warn("serving in-process ocean list", zap.Error(err))
		infos, lastFetched = mirror.Infos, mirror.LastFetched
	}
	return Result{
		Infos:             FilterByDepositToken(infos, filterToken),
		LastFetched:       lastFetched,
		CurrentlyFetching: fetching,
	}, nil
}

func (a *Aggregator) refreshInBackground(ctx context.Context, c *cycle, filterToken string, notify NotifyFunc) {
	bg := context.WithoutCancel(ctx)
	a.bg.Add(1)
	go func() {
		defer a.bg.Done()
		a.run(bg, c)
		if c.err != nil {
			a.logger.Error("background refresh failed", zap.Error(c.err))
			return
		}
		if notify == nil {
			return
		}
		result := Result{
			Infos:       FilterByDepositToken(c.infos, filterToken),
			LastFetched: c.fetchedAt,
		}
		if r := catch(func() { notify(bg, result) }); r != nil {
			a.logger.Error("refresh notification panicked", zap.Error(r))
		}
	}()
}

// FilterByDepositToken keeps oceans whose deposit token address equals token,
// ignoring case. An empty token keeps everything.
func FilterByDepositToken(infos []model.OceanInfo, token string) []model.OceanInfo {
	token = strings.TrimSpace(token)
	if infos == nil {
		infos = []model.OceanInfo{}
	}
	if token == "" {
		return infos
	}
	out := make([]model.OceanInfo, 0, len(infos))
	for _, info := range infos {
		if strings.EqualFold(info.DepositTokenAddress, token) {
			out = append(out, info)
		}
	}
	return out
}
