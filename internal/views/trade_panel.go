package views

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/services/debounce"
	"github.com/vadiminshakov/folio/internal/services/trade"
)

// TradePanel trade page binding over the desk: one symbol, side and quantity at a time.
// Quantity input is validated against the quote once typing settles.
type TradePanel struct {
	mu        sync.Mutex
	desk      *trade.Desk
	notice    *Notice
	debouncer *debounce.Debouncer
	logger    *zap.Logger

	symbol   string
	side     domain.Side
	quantity int64
	check    trade.CheckResult
	checked  bool
	lastAck  domain.Ack
}

// NewTradePanel creates a panel bound to ctx; validation work stops when ctx is done.
func NewTradePanel(ctx context.Context, desk *trade.Desk, noticeTTL, quantityDebounce time.Duration, logger *zap.Logger) *TradePanel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TradePanel{
		desk:      desk,
		notice:    NewNotice(noticeTTL),
		debouncer: debounce.New(ctx, quantityDebounce),
		logger:    logger,
		side:      domain.SideBuy,
	}
}

// SelectSymbol switches the panel to symbol, fetching its quote unless cached.
func (p *TradePanel) SelectSymbol(ctx context.Context, symbol string) error {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return errors.New("symbol is required")
	}

	q, err := p.desk.Quote(ctx, symbol)
	if err != nil {
		p.notice.Show(domain.UserMessage(err))
		return err
	}

	p.mu.Lock()
	p.symbol = q.Symbol
	p.checked = false
	p.mu.Unlock()
	return nil
}

// RefreshQuote refetches the quote of the selected symbol.
func (p *TradePanel) RefreshQuote(ctx context.Context) error {
	symbol := p.Symbol()
	if symbol == "" {
		return errors.New("no symbol selected")
	}
	if _, err := p.desk.RefreshQuote(ctx, symbol); err != nil {
		p.notice.Show(domain.UserMessage(err))
		return err
	}
	return nil
}

// SetSide selects buy or sell.
func (p *TradePanel) SetSide(side domain.Side) {
	p.mu.Lock()
	p.side = side
	p.checked = false
	p.mu.Unlock()
}

// SetQuantity accepts raw input and schedules validation.
func (p *TradePanel) SetQuantity(raw string) int64 {
	quantity := trade.ParseQuantity(raw)

	p.mu.Lock()
	p.quantity = quantity
	p.checked = false
	symbol, side := p.symbol, p.side
	p.mu.Unlock()

	if symbol == "" {
		return quantity
	}
	p.debouncer.Trigger(func(ctx context.Context) {
		check, err := p.desk.Check(ctx, symbol, side, quantity)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			p.notice.Show(domain.UserMessage(err))
			return
		}

		p.mu.Lock()
		stale := p.symbol != symbol || p.side != side || p.quantity != quantity
		if !stale {
			p.check = check
			p.checked = true
		}
		p.mu.Unlock()

		if stale {
			return
		}
		if !check.Result.OK {
			p.notice.Show(check.Result.Reason.Message())
			return
		}
		p.notice.Clear()
	})
	return quantity
}

// Submit places the current order. Validation failures and rejections are shown as notices.
func (p *TradePanel) Submit(ctx context.Context) (domain.Ack, error) {
	p.mu.Lock()
	symbol, side, quantity := p.symbol, p.side, p.quantity
	p.mu.Unlock()

	if symbol == "" {
		return domain.Ack{}, errors.New("no symbol selected")
	}

	p.debouncer.Cancel()
	ack, err := p.desk.Place(ctx, symbol, side, quantity)
	if err != nil {
		p.notice.Show(domain.UserMessage(err))
		return domain.Ack{}, err
	}

	p.mu.Lock()
	p.lastAck = ack
	p.checked = false
	p.mu.Unlock()

	message := ack.Message
	if message == "" {
		message = fmt.Sprintf("Order placed: %s %d %s", side, quantity, symbol)
	}
	p.notice.Show(message)
	p.logger.Info("trade panel order placed", zap.String("symbol", symbol), zap.String("side", string(side)), zap.Int64("quantity", quantity))
	return ack, nil
}

// Symbol returns the selected symbol.
func (p *TradePanel) Symbol() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.symbol
}

// Notice returns the visible inline message.
func (p *TradePanel) Notice() string {
	return p.notice.Text()
}

// Validated returns the latest settled validation, if any, for the current inputs.
func (p *TradePanel) Validated() (trade.CheckResult, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.check, p.checked
}

// Close stops pending validation.
func (p *TradePanel) Close() {
	p.debouncer.Stop()
	p.notice.Clear()
}

// Render draws the panel: quote, ledger, limits and the inline notice.
func (p *TradePanel) Render(ctx context.Context) string {
	p.mu.Lock()
	symbol, side, quantity := p.symbol, p.side, p.quantity
	p.mu.Unlock()

	ledger := p.desk.Ledger()
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Trade") + "\n")
	fmt.Fprintf(&b, "Balance:  %s\n", FormatMoney(ledger.Balance))

	if symbol != "" {
		switch check, err := p.desk.Check(ctx, symbol, side, quantity); {
		case p.desk.Loading():
			b.WriteString(MutedStyle.Render("Loading quote...") + "\n")
		case err != nil:
			b.WriteString(ErrorStyle.Render(domain.UserMessage(err)) + "\n")
		default:
			fmt.Fprintf(&b, "Symbol:   %s @ %s\n", check.Quote.Symbol, FormatMoney(check.Quote.Price))
			fmt.Fprintf(&b, "Owned:    %s\n", FormatQuantity(ledger.Holding(symbol)))
			fmt.Fprintf(&b, "Max buy:  %d\n", check.MaxBuyable)
			if quantity > 0 {
				fmt.Fprintf(&b, "Order:    %s %d (%s)\n", side, quantity, FormatMoney(check.Quote.Price.Mul(decimalFromInt(quantity))))
			}
		}
	}

	if text := p.notice.Text(); text != "" {
		b.WriteString(NoticeStyle.Render(text) + "\n")
	}
	return BoxStyle.Render(strings.TrimRight(b.String(), "\n"))
}
