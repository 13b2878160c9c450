package trade

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/folio/internal/domain"
)

// MaxBuyable returns floor(balance / price), zero for a non-positive price or balance.
func MaxBuyable(balance, price decimal.Decimal) int64 {
	if !price.IsPositive() || !balance.IsPositive() {
		return 0
	}
	q, _ := balance.QuoRem(price, 0)
	return q.IntPart()
}

// NormalizeQuantity truncates raw input toward zero. Non-finite and negative input becomes 0.
func NormalizeQuantity(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

// ParseQuantity reads a quantity typed by the user; unparseable text becomes 0.
func ParseQuantity(s string) int64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return NormalizeQuantity(v)
}

// Validate checks quantity against the ledger at the quoted price.
func Validate(side domain.Side, quantity int64, ledger domain.LedgerSnapshot, quote domain.Quote) domain.ValidationResult {
	switch side {
	case domain.SideBuy:
		limit := MaxBuyable(ledger.Balance, quote.Price)
		switch {
		case limit < 1:
			return domain.Reject(domain.NoFunds)
		case quantity < 1:
			return domain.Reject(domain.NonPositiveQuantity)
		case quantity > limit:
			return domain.Reject(domain.ExceedsCap)
		}
	case domain.SideSell:
		owned := ledger.Holding(quote.Symbol)
		switch {
		case !owned.IsPositive():
			return domain.Reject(domain.NothingOwned)
		case quantity < 1:
			return domain.Reject(domain.NonPositiveQuantity)
		case decimal.NewFromInt(quantity).GreaterThan(owned):
			return domain.Reject(domain.ExceedsHoldings)
		}
	default:
		return domain.Reject(domain.UnknownSide)
	}
	return domain.Pass()
}
