package views

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/services/chart"
	"github.com/vadiminshakov/folio/internal/services/trade"
)

type fakeQuoter struct {
	prices map[string]decimal.Decimal
}

func (f *fakeQuoter) Get(ctx context.Context, symbol string) (domain.Quote, error) {
	symbol = domain.NormalizeSymbol(symbol)
	price, ok := f.prices[symbol]
	if !ok {
		return domain.Quote{}, domain.ErrNetwork
	}
	return domain.Quote{Symbol: symbol, Price: price}, nil
}

func (f *fakeQuoter) Refresh(ctx context.Context, symbol string) (domain.Quote, error) {
	return f.Get(ctx, symbol)
}

func (f *fakeQuoter) Loading() bool { return false }

type fakeReader struct {
	balance  decimal.Decimal
	holdings map[string]decimal.Decimal
}

func (f *fakeReader) Balance(ctx context.Context) (decimal.Decimal, error) { return f.balance, nil }

func (f *fakeReader) Holdings(ctx context.Context) (map[string]decimal.Decimal, error) {
	return f.holdings, nil
}

type fakeExecutor struct {
	mu     sync.Mutex
	orders []domain.Order
}

func (f *fakeExecutor) Execute(ctx context.Context, order domain.Order) (domain.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, order)
	return domain.Ack{OrderID: "42"}, nil
}

func newDesk(t *testing.T, balance int64, holdings map[string]decimal.Decimal) (*trade.Desk, *fakeExecutor) {
	t.Helper()
	ledger, err := trade.LoadLedger(context.Background(), &fakeReader{balance: decimal.NewFromInt(balance), holdings: holdings}, nil)
	require.NoError(t, err)
	executor := &fakeExecutor{}
	submitter, err := trade.NewSubmitter(executor, ledger, nil)
	require.NoError(t, err)
	desk, err := trade.NewDesk(&fakeQuoter{prices: map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(100)}}, ledger, submitter, nil)
	require.NoError(t, err)
	return desk, executor
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$1,000.00", FormatMoney(decimal.NewFromInt(1000)))
	assert.Equal(t, "$0.13", FormatMoney(decimal.RequireFromString("0.125")))
	assert.Equal(t, "+$5.50", FormatSignedMoney(decimal.RequireFromString("5.5")))
	assert.Equal(t, "-$300.00", FormatSignedMoney(decimal.NewFromInt(-300)))
}

func TestNotice_AutoDismiss(t *testing.T) {
	n := NewNotice(20 * time.Millisecond)
	n.Show("first")
	assert.Equal(t, "first", n.Text())

	time.Sleep(10 * time.Millisecond)
	n.Show("second")
	time.Sleep(15 * time.Millisecond)
	assert.Equal(t, "second", n.Text())

	require.Eventually(t, func() bool { return n.Text() == "" }, time.Second, 5*time.Millisecond)

	sticky := NewNotice(0)
	sticky.Show("stays")
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, "stays", sticky.Text())
	sticky.Clear()
	assert.Empty(t, sticky.Text())
}

func TestTradePanel_DebouncedValidation(t *testing.T) {
	desk, executor := newDesk(t, 1000, nil)
	panel := NewTradePanel(context.Background(), desk, time.Minute, 30*time.Millisecond, nil)
	defer panel.Close()

	require.NoError(t, panel.SelectSymbol(context.Background(), "aapl"))
	panel.SetQuantity("5")
	panel.SetQuantity("11")

	require.Eventually(t, func() bool {
		_, ok := panel.Validated()
		return ok
	}, time.Second, 5*time.Millisecond)

	check, _ := panel.Validated()
	assert.Equal(t, domain.ExceedsCap, check.Result.Reason)
	assert.Equal(t, domain.ExceedsCap.Message(), panel.Notice())

	_, err := panel.Submit(context.Background())
	require.Error(t, err)
	assert.Empty(t, executor.orders)

	assert.Equal(t, int64(10), panel.SetQuantity("10.9"))
	ack, err := panel.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "42", ack.OrderID)
	assert.Contains(t, panel.Notice(), "Order placed")
	assert.True(t, desk.Ledger().Balance.IsZero())

	rendered := panel.Render(context.Background())
	assert.Contains(t, rendered, "AAPL")
	assert.Contains(t, rendered, "$0.00")
}

func TestTradePanel_SelectSymbolFailure(t *testing.T) {
	desk, _ := newDesk(t, 1000, nil)
	panel := NewTradePanel(context.Background(), desk, time.Minute, time.Millisecond, nil)
	defer panel.Close()

	err := panel.SelectSymbol(context.Background(), "MSFT")
	require.Error(t, err)
	assert.Equal(t, "Network error, please try again.", panel.Notice())
	assert.Empty(t, panel.Symbol())
}

func TestQuickTrade_PrefillAndSubmit(t *testing.T) {
	desk, executor := newDesk(t, 1000, map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(2)})

	qt := NewQuickTrade(desk, domain.ToolInvocation{
		Tool:    domain.ToolExecute,
		Payload: map[string]any{"ticker": "aapl", "action": "SELL", "qty": json.Number("2")},
	})
	assert.Equal(t, "AAPL", qt.Symbol)
	assert.Equal(t, domain.SideSell, qt.Side)
	assert.Equal(t, int64(2), qt.Quantity)

	assert.Contains(t, qt.Render(context.Background()), "sell 2 AAPL")

	_, err := qt.Submit(context.Background())
	require.NoError(t, err)
	require.Len(t, executor.orders, 1)
	assert.Equal(t, domain.Order{Symbol: "AAPL", Side: domain.SideSell, Quantity: 2}, executor.orders[0])
	assert.True(t, desk.Ledger().Holding("AAPL").IsZero())
}

func TestQuickTrade_Defaults(t *testing.T) {
	desk, _ := newDesk(t, 1000, nil)

	qt := NewQuickTrade(desk, domain.ToolInvocation{Tool: domain.ToolExecute})
	assert.Equal(t, domain.SideBuy, qt.Side)
	assert.Zero(t, qt.Quantity)
	assert.Contains(t, qt.Render(context.Background()), "No symbol suggested")

	qt = NewQuickTrade(desk, domain.ToolInvocation{Payload: map[string]any{"symbol": "AAPL", "quantity": "-3"}})
	assert.Zero(t, qt.Quantity)
	check, err := qt.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.NonPositiveQuantity, check.Result.Reason)
}

func TestRenderHistory(t *testing.T) {
	txs := []domain.Transaction{
		{Asset: "AAPL", Type: "buy", AssetQuantity: decimal.NewFromInt(2), Amount: decimal.NewFromInt(-300), CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Asset: "MSFT", Type: "sell", AssetQuantity: decimal.NewFromInt(1), Amount: decimal.NewFromInt(410), CreatedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
	}

	sorted := SortNewestFirst(txs)
	assert.Equal(t, "MSFT", sorted[0].Asset)
	assert.Equal(t, "AAPL", txs[0].Asset)

	out := RenderHistory(txs, 0)
	assert.Less(t, strings.Index(out, "MSFT"), strings.Index(out, "AAPL"))
	assert.Contains(t, out, "$150.00")
	assert.Contains(t, out, "+$410.00")

	limited := RenderHistory(txs, 1)
	assert.NotContains(t, limited, "AAPL")
	assert.Contains(t, RenderHistory(nil, 0), "No transactions yet")
}

func TestRenderChart(t *testing.T) {
	c := chart.Chart{
		Symbol: "AAPL",
		Bars: []domain.PriceBar{
			{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Close: decimal.NewFromInt(100)},
			{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: decimal.NewFromInt(110)},
		},
		SMA:       []chart.Point{{Value: decimal.NewFromInt(105)}},
		SMAPeriod: 2,
		EMA:       []chart.Point{{Value: decimal.NewFromInt(104)}, {Value: decimal.NewFromInt(108)}},
		EMAPeriod: 2,
		RSI:       []chart.Point{{Value: decimal.RequireFromString("71.25")}},
		RSIPeriod: 1,
		Low:       decimal.NewFromInt(100),
		High:      decimal.NewFromInt(110),
		Last:      decimal.NewFromInt(110),
		Change:    decimal.NewFromInt(10),
	}

	out := RenderChart(c)
	assert.Contains(t, out, "AAPL daily")
	assert.Contains(t, out, "sma2")
	assert.Contains(t, out, "ema2")
	assert.Contains(t, out, "rsi1")
	assert.Contains(t, out, "71.3")
	assert.Contains(t, out, "10.00%")
	assert.Contains(t, out, "2024-01-01")
}

func TestChartRequest(t *testing.T) {
	symbol, days := ChartRequest(domain.ToolInvocation{
		Tool:    domain.ToolGraph,
		Payload: map[string]any{"ticker": " tsla ", "days": float64(30)},
	})
	assert.Equal(t, "TSLA", symbol)
	assert.Equal(t, 30, days)

	symbol, days = ChartRequest(domain.ToolInvocation{Tool: domain.ToolGraph})
	assert.Empty(t, symbol)
	assert.Equal(t, defaultDays, days)
}

func TestTranscript(t *testing.T) {
	tr, err := NewTranscript("notty", 60)
	require.NoError(t, err)

	out := tr.Render([]domain.ChatMessage{
		{Sender: domain.SenderUser, Text: "price of AAPL?"},
		{Sender: domain.SenderBot, Text: "AAPL trades at **187**."},
	})
	assert.Contains(t, out, "price of AAPL?")
	assert.Contains(t, out, "187")
	assert.Contains(t, out, "bot")
}
