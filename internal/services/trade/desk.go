package trade

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/folio/internal/domain"
)

// Quoter provides cached quotes.
type Quoter interface {
	Get(ctx context.Context, symbol string) (domain.Quote, error)
	Refresh(ctx context.Context, symbol string) (domain.Quote, error)
	Loading() bool
}

// Desk is the single quote → validate → submit pipeline shared by every trading view.
type Desk struct {
	quotes    Quoter
	ledger    *Ledger
	submitter *Submitter
	logger    *zap.Logger
}

// CheckResult outcome of validating a prospective order.
type CheckResult struct {
	Quote      domain.Quote
	MaxBuyable int64
	Owned      int64
	Result     domain.ValidationResult
}

// NewDesk wires the pipeline.
func NewDesk(quotes Quoter, ledger *Ledger, submitter *Submitter, logger *zap.Logger) (*Desk, error) {
	if quotes == nil || ledger == nil || submitter == nil {
		return nil, errors.New("desk requires quotes, ledger and submitter")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Desk{quotes: quotes, ledger: ledger, submitter: submitter, logger: logger}, nil
}

// Quote returns the cached quote for symbol.
func (d *Desk) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	return d.quotes.Get(ctx, symbol)
}

// RefreshQuote refetches the quote for symbol.
func (d *Desk) RefreshQuote(ctx context.Context, symbol string) (domain.Quote, error) {
	return d.quotes.Refresh(ctx, symbol)
}

// Loading reports whether a quote fetch is in flight.
func (d *Desk) Loading() bool {
	return d.quotes.Loading()
}

// Ledger returns the current ledger shadow.
func (d *Desk) Ledger() domain.LedgerSnapshot {
	return d.ledger.Snapshot()
}

// Busy reports whether an order for symbol/side is being submitted.
func (d *Desk) Busy(symbol string, side domain.Side) bool {
	return d.submitter.Busy(symbol, side)
}

// Check validates quantity for symbol/side against the ledger at the cached quote.
func (d *Desk) Check(ctx context.Context, symbol string, side domain.Side, quantity int64) (CheckResult, error) {
	q, err := d.quotes.Get(ctx, symbol)
	if err != nil {
		return CheckResult{}, err
	}

	snapshot := d.ledger.Snapshot()
	return CheckResult{
		Quote:      q,
		MaxBuyable: MaxBuyable(snapshot.Balance, q.Price),
		Owned:      snapshot.Holding(q.Symbol).Floor().IntPart(),
		Result:     Validate(side, quantity, snapshot, q),
	}, nil
}

// Place validates and submits an order. A failing check is returned as *domain.ValidationError
// without contacting the execution endpoint.
func (d *Desk) Place(ctx context.Context, symbol string, side domain.Side, quantity int64) (domain.Ack, error) {
	check, err := d.Check(ctx, symbol, side, quantity)
	if err != nil {
		return domain.Ack{}, err
	}
	if err := check.Result.Err(); err != nil {
		d.logger.Debug("order rejected locally",
			zap.String("symbol", check.Quote.Symbol),
			zap.String("side", string(side)),
			zap.Int64("quantity", quantity),
			zap.String("reason", string(check.Result.Reason)))
		return domain.Ack{}, err
	}

	order := domain.Order{Symbol: check.Quote.Symbol, Side: side, Quantity: quantity}
	return d.submitter.Submit(ctx, order, check.Quote)
}
