package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/services/chart"
)

const (
	sparkWidth  = 60
	defaultDays = 90
)

// ChartRequest reads the symbol and day range of a graph tool invocation.
func ChartRequest(inv domain.ToolInvocation) (string, int) {
	symbol := domain.NormalizeSymbol(payloadString(inv.Payload, "symbol", "ticker", "asset"))
	days := int(payloadQuantity(inv.Payload, "days", "period", "range"))
	if days < 1 {
		days = defaultDays
	}
	return symbol, days
}

// RenderChart draws closes, the moving averages and RSI as sparklines with summary figures.
func RenderChart(c chart.Chart) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("%s daily", c.Symbol)) + "\n")
	if len(c.Bars) == 0 {
		b.WriteString(MutedStyle.Render("No price data."))
		return BoxStyle.Render(b.String())
	}

	fmt.Fprintf(&b, "%s  %s\n", MutedStyle.Render("close "), chart.Sparkline(chart.Closes(c.Bars), sparkWidth))
	writeSeries(&b, fmt.Sprintf("sma%-3d", c.SMAPeriod), c.SMA)
	writeSeries(&b, fmt.Sprintf("ema%-3d", c.EMAPeriod), c.EMA)
	if len(c.RSI) > 0 {
		rsi := c.RSI[len(c.RSI)-1].Value
		fmt.Fprintf(&b, "%s  %s  %s\n", MutedStyle.Render(fmt.Sprintf("rsi%-3d", c.RSIPeriod)),
			chart.Sparkline(seriesValues(c.RSI), sparkWidth), rsiStyle(rsi).Render(rsi.StringFixed(1)))
	}

	first, last := c.Bars[0].Date, c.Bars[len(c.Bars)-1].Date
	fmt.Fprintf(&b, "%s → %s  last %s  low %s  high %s  change %s%%",
		first.Format("2006-01-02"), last.Format("2006-01-02"),
		FormatMoney(c.Last), FormatMoney(c.Low), FormatMoney(c.High), c.Change.StringFixed(2))
	return BoxStyle.Render(b.String())
}

func writeSeries(b *strings.Builder, label string, points []chart.Point) {
	if len(points) == 0 {
		return
	}
	fmt.Fprintf(b, "%s  %s\n", MutedStyle.Render(label), chart.Sparkline(seriesValues(points), sparkWidth))
}

func seriesValues(points []chart.Point) []decimal.Decimal {
	out := make([]decimal.Decimal, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

// rsiStyle marks overbought (70+) and oversold (30-) readings.
func rsiStyle(v decimal.Decimal) lipgloss.Style {
	switch {
	case v.GreaterThanOrEqual(decimal.NewFromInt(70)), v.LessThanOrEqual(decimal.NewFromInt(30)):
		return NoticeStyle
	default:
		return MutedStyle
	}
}
