// Package views renders the trading, chat and tool panels for the terminal.
package views

import (
	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// Currency display currency of balances and prices.
const Currency = money.USD

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	warning   = lipgloss.AdaptiveColor{Light: "#D9822B", Dark: "#F5A524"}
	danger    = lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#FF6B6B"}

	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(0, 2).
			Bold(true).
			MarginBottom(1)

	TitleStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().Foreground(subtle)

	NoticeStyle = lipgloss.NewStyle().Foreground(warning)

	ErrorStyle = lipgloss.NewStyle().Foreground(danger).Bold(true)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(highlight).
			Padding(0, 1)

	userStyle = lipgloss.NewStyle().Foreground(highlight).Bold(true)
	botStyle  = lipgloss.NewStyle().Foreground(special).Bold(true)
)

// FormatMoney renders amount in the display currency, rounded to its minor unit.
func FormatMoney(amount decimal.Decimal) string {
	cur := money.GetCurrency(Currency)
	factor := decimal.New(1, int32(cur.Fraction))
	minor := amount.Mul(factor).Round(0).IntPart()
	return money.New(minor, Currency).Display()
}

// FormatSignedMoney is FormatMoney with an explicit plus sign for positive amounts.
func FormatSignedMoney(amount decimal.Decimal) string {
	if amount.IsPositive() {
		return "+" + FormatMoney(amount)
	}
	return FormatMoney(amount)
}

// FormatQuantity renders a holding without trailing zeros.
func FormatQuantity(q decimal.Decimal) string {
	return q.String()
}
