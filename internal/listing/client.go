// Package listing reads the ocean catalogue from the listing API.
package listing

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	oberr "oceanbot/internal/errors"
	"oceanbot/internal/model"
	"oceanbot/internal/netcache"
)

const (
	DefaultAttempts = 3
	defaultDelay    = 500 * time.Millisecond
)

var errMissingData = errors.New("listing payload has no data field")

// Client fetches the listing through the network cache.
type Client struct {
	cache    *netcache.Client
	url      string
	attempts uint
	delay    time.Duration
	logger   *zap.Logger
}

func NewClient(cache *netcache.Client, url string, attempts int, logger *zap.Logger) *Client {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cache:    cache,
		url:      url,
		attempts: uint(attempts),
		delay:    defaultDelay,
		logger:   logger,
	}
}

// SetDelay overrides the wait between attempts.
func (c *Client) SetDelay(d time.Duration) {
	c.delay = d
}

type payload struct {
	Data *[]model.OceanBase `json:"data"`
}

// Oceans returns the listed oceans in listing order. A payload without a data
// field is retried, bypassing the cache, before failing with
// CodeListingUnavailable. An empty data array is a valid answer.
func (c *Client) Oceans(ctx context.Context) ([]model.OceanBase, error) {
	attempt := 0
	oceans, err := retry.DoWithData(
		func() ([]model.OceanBase, error) {
			force := attempt > 0
			attempt++
			var p payload
			if err := c.cache.GetJSON(ctx, c.url, force, &p); err != nil {
				return nil, err
			}
			if p.Data == nil {
				return nil, errMissingData
			}
			return *p.Data, nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("listing fetch failed, retrying",
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		return nil, oberr.Wrap(oberr.CodeListingUnavailable, "fetch ocean listing", err)
	}
	return oceans, nil
}

