// Package domain defines core data structures shared by the trading and chat pipelines.
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Quote last-fetched price for a symbol as seen by the client.
type Quote struct {
	// Symbol upper-cased ticker.
	Symbol string
	// Price last traded price, always positive.
	Price decimal.Decimal
	// FetchedAt time the price was received.
	FetchedAt time.Time
}

// NormalizeSymbol trims and upper-cases a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// PriceBar one daily OHLCV bar.
type PriceBar struct {
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}
