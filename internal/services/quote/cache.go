// Package quote memoizes last-traded prices per symbol for the lifetime of a view.
package quote

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/vadiminshakov/folio/internal/domain"
)

// Fetcher reads the current price of a symbol.
type Fetcher interface {
	Quote(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Cache symbol-keyed quote memo. Entries are never invalidated by time; Refresh replaces them.
type Cache struct {
	mu       sync.RWMutex
	fetcher  Fetcher
	logger   *zap.Logger
	quotes   map[string]domain.Quote
	inflight int
	group    singleflight.Group
	now      func() time.Time
}

// NewCache creates an empty cache over fetcher.
func NewCache(fetcher Fetcher, logger *zap.Logger) (*Cache, error) {
	if fetcher == nil {
		return nil, errors.New("quote fetcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		fetcher: fetcher,
		logger:  logger,
		quotes:  make(map[string]domain.Quote),
		now:     time.Now,
	}, nil
}

// Get returns the cached quote for symbol, fetching it on first use.
func (c *Cache) Get(ctx context.Context, symbol string) (domain.Quote, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if q, ok := c.Peek(symbol); ok {
		return q, nil
	}
	return c.fetch(ctx, symbol)
}

// Refresh fetches symbol again and replaces the cached quote on success.
func (c *Cache) Refresh(ctx context.Context, symbol string) (domain.Quote, error) {
	return c.fetch(ctx, domain.NormalizeSymbol(symbol))
}

// Peek returns the cached quote without fetching.
func (c *Cache) Peek(symbol string) (domain.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.quotes[domain.NormalizeSymbol(symbol)]
	return q, ok
}

// Loading reports whether a fetch is in flight.
func (c *Cache) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inflight > 0
}

func (c *Cache) fetch(ctx context.Context, symbol string) (domain.Quote, error) {
	if symbol == "" {
		return domain.Quote{}, errors.Wrap(domain.ErrInvalidQuote, "empty symbol")
	}

	// Waiters share the fetch, so one caller's cancellation must not fail the others.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(symbol, func() (any, error) {
		c.setLoading(1)
		defer c.setLoading(-1)

		price, err := c.fetcher.Quote(fetchCtx, symbol)
		if err != nil {
			return domain.Quote{}, errors.Wrapf(err, "fetch quote %s", symbol)
		}
		if !price.IsPositive() {
			return domain.Quote{}, errors.Wrapf(domain.ErrInvalidQuote, "price %s for %s", price, symbol)
		}

		q := domain.Quote{Symbol: symbol, Price: price, FetchedAt: c.now()}
		c.mu.Lock()
		c.quotes[symbol] = q
		c.mu.Unlock()

		c.logger.Debug("quote fetched", zap.String("symbol", symbol), zap.String("price", price.String()))
		return q, nil
	})

	select {
	case <-ctx.Done():
		return domain.Quote{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.Quote{}, res.Err
		}
		return res.Val.(domain.Quote), nil
	}
}

func (c *Cache) setLoading(delta int) {
	c.mu.Lock()
	c.inflight += delta
	c.mu.Unlock()
}
