package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction executed trade as reported by the history endpoint.
type Transaction struct {
	Asset         string          `json:"asset"`
	Type          string          `json:"type"`
	AssetQuantity decimal.Decimal `json:"assetQuantity"`
	Amount        decimal.Decimal `json:"amount"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Price unit price derived client-side; zero when quantity is zero.
func (t Transaction) Price() decimal.Decimal {
	if t.AssetQuantity.IsZero() {
		return decimal.Zero
	}
	return t.Amount.Div(t.AssetQuantity).Abs()
}
