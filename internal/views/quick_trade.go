package views

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/services/trade"
)

// QuickTrade execute-tool binding: an order form prefilled from the agent payload and
// submitted through the same desk as the trade page.
type QuickTrade struct {
	desk     *trade.Desk
	Symbol   string
	Side     domain.Side
	Quantity int64
}

// NewQuickTrade prefills symbol, side and quantity from inv.Payload.
func NewQuickTrade(desk *trade.Desk, inv domain.ToolInvocation) *QuickTrade {
	q := &QuickTrade{desk: desk, Side: domain.SideBuy}
	if inv.Payload == nil {
		return q
	}

	q.Symbol = domain.NormalizeSymbol(payloadString(inv.Payload, "symbol", "ticker", "asset"))
	if side, err := domain.ParseSide(payloadString(inv.Payload, "side", "action", "type")); err == nil {
		q.Side = side
	}
	q.Quantity = payloadQuantity(inv.Payload, "quantity", "qty", "shares", "amount")
	return q
}

// Check validates the prefilled order against the ledger.
func (q *QuickTrade) Check(ctx context.Context) (trade.CheckResult, error) {
	return q.desk.Check(ctx, q.Symbol, q.Side, q.Quantity)
}

// Submit places the order.
func (q *QuickTrade) Submit(ctx context.Context) (domain.Ack, error) {
	return q.desk.Place(ctx, q.Symbol, q.Side, q.Quantity)
}

// Render summarizes the prefilled order.
func (q *QuickTrade) Render(ctx context.Context) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Quick trade") + "\n")
	if q.Symbol == "" {
		b.WriteString(MutedStyle.Render("No symbol suggested."))
		return BoxStyle.Render(b.String())
	}

	fmt.Fprintf(&b, "%s %d %s\n", q.Side, q.Quantity, q.Symbol)
	check, err := q.Check(ctx)
	if err != nil {
		b.WriteString(ErrorStyle.Render(domain.UserMessage(err)))
		return BoxStyle.Render(b.String())
	}
	fmt.Fprintf(&b, "Price %s, max buy %d, owned %d", FormatMoney(check.Quote.Price), check.MaxBuyable, check.Owned)
	if !check.Result.OK {
		b.WriteString("\n" + NoticeStyle.Render(check.Result.Reason.Message()))
	}
	return BoxStyle.Render(b.String())
}

func payloadString(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := payload[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func payloadQuantity(payload map[string]any, keys ...string) int64 {
	for _, key := range keys {
		switch v := payload[key].(type) {
		case json.Number:
			f, err := v.Float64()
			if err == nil {
				return trade.NormalizeQuantity(f)
			}
		case float64:
			return trade.NormalizeQuantity(v)
		case int:
			return trade.NormalizeQuantity(float64(v))
		case int64:
			return trade.NormalizeQuantity(float64(v))
		case string:
			return trade.ParseQuantity(v)
		}
	}
	return 0
}

func decimalFromInt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}
