// Package trade holds the quote → validate → submit pipeline over a local ledger shadow.
package trade

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/folio/internal/domain"
)

// Reader reads the authoritative balance and holdings.
type Reader interface {
	Balance(ctx context.Context) (decimal.Decimal, error)
	Holdings(ctx context.Context) (map[string]decimal.Decimal, error)
}

// Ledger best-effort local shadow of balance and per-symbol holdings.
// It is mutated only by Load and by ApplyOptimistic after an acknowledged order.
type Ledger struct {
	mu       sync.RWMutex
	balance  decimal.Decimal
	holdings map[string]decimal.Decimal
	logger   *zap.Logger
}

// NewLedger creates an empty ledger.
func NewLedger(logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		holdings: make(map[string]decimal.Decimal),
		logger:   logger,
	}
}

// LoadLedger creates a ledger populated from reader.
func LoadLedger(ctx context.Context, reader Reader, logger *zap.Logger) (*Ledger, error) {
	l := NewLedger(logger)
	if err := l.Load(ctx, reader); err != nil {
		return nil, err
	}
	return l, nil
}

// Load reads balance and holdings concurrently and replaces the ledger contents.
// On failure the ledger is left untouched.
func (l *Ledger) Load(ctx context.Context, reader Reader) error {
	if reader == nil {
		return errors.New("ledger reader is required")
	}

	var (
		balance  decimal.Decimal
		holdings map[string]decimal.Decimal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		balance, err = reader.Balance(gctx)
		return errors.Wrap(err, "load balance")
	})
	g.Go(func() error {
		var err error
		holdings, err = reader.Holdings(gctx)
		return errors.Wrap(err, "load holdings")
	})
	if err := g.Wait(); err != nil {
		return err
	}

	normalized := make(map[string]decimal.Decimal, len(holdings))
	for symbol, qty := range holdings {
		symbol = domain.NormalizeSymbol(symbol)
		if qty.IsNegative() {
			qty = decimal.Zero
		}
		normalized[symbol] = normalized[symbol].Add(qty)
	}
	if balance.IsNegative() {
		balance = decimal.Zero
	}

	l.mu.Lock()
	l.balance = balance
	l.holdings = normalized
	l.mu.Unlock()

	l.logger.Info("ledger loaded",
		zap.String("balance", balance.String()),
		zap.Int("holdings", len(normalized)))
	return nil
}

// Snapshot returns a copy of the current ledger.
func (l *Ledger) Snapshot() domain.LedgerSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	holdings := make(map[string]decimal.Decimal, len(l.holdings))
	for symbol, qty := range l.holdings {
		holdings[symbol] = qty
	}
	return domain.LedgerSnapshot{Balance: l.balance, Holdings: holdings}
}

// Balance returns the cash balance.
func (l *Ledger) Balance() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balance
}

// Holding returns owned units of symbol.
func (l *Ledger) Holding(symbol string) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.holdings[domain.NormalizeSymbol(symbol)]
}

// ApplyOptimistic mirrors an acknowledged order at the quoted price and returns the new state.
// Holdings never go below zero.
func (l *Ledger) ApplyOptimistic(order domain.Order, quote domain.Quote) domain.LedgerSnapshot {
	symbol := domain.NormalizeSymbol(order.Symbol)
	qty := decimal.NewFromInt(order.Quantity)
	notional := quote.Price.Mul(qty)

	l.mu.Lock()
	switch order.Side {
	case domain.SideBuy:
		l.balance = l.balance.Sub(notional)
		l.holdings[symbol] = l.holdings[symbol].Add(qty)
	case domain.SideSell:
		l.balance = l.balance.Add(notional)
		held := l.holdings[symbol].Sub(qty)
		if held.IsNegative() {
			held = decimal.Zero
		}
		l.holdings[symbol] = held
	}
	l.mu.Unlock()

	l.logger.Debug("ledger updated",
		zap.String("order", order.String()),
		zap.String("price", quote.Price.String()))
	return l.Snapshot()
}
