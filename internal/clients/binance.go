package clients

import (
	"context"
	"fmt"
	"strings"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/folio/internal/domain"
)

const defaultQuoteAsset = "USDT"

// BinanceQuoter fetches last-traded prices from the Binance public API without authentication.
type BinanceQuoter struct {
	client     *binance.Client
	quoteAsset string
}

// NewBinanceQuoter creates a quoter pricing symbols against quoteAsset (USDT when empty).
func NewBinanceQuoter(client *binance.Client, quoteAsset string) *BinanceQuoter {
	if client == nil {
		client = binance.NewClient("", "")
	}
	quoteAsset = strings.ToUpper(strings.TrimSpace(quoteAsset))
	if quoteAsset == "" {
		quoteAsset = defaultQuoteAsset
	}
	return &BinanceQuoter{client: client, quoteAsset: quoteAsset}
}

// Quote returns the price of symbol in the quote asset.
func (q *BinanceQuoter) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	pair := q.pair(symbol)
	prices, err := q.client.NewListPricesService().Symbol(pair).Do(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return decimal.Decimal{}, ctx.Err()
		}
		return decimal.Decimal{}, errors.Wrapf(domain.ErrNetwork, "binance price for %s: %v", pair, err)
	}
	if len(prices) == 0 {
		return decimal.Decimal{}, errors.Wrap(domain.ErrInvalidResponse, fmt.Sprintf("binance returned empty prices for %s", pair))
	}

	price, err := decimal.NewFromString(prices[0].Price)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(domain.ErrInvalidQuote, "binance price %q", prices[0].Price)
	}
	return price, nil
}

func (q *BinanceQuoter) pair(symbol string) string {
	symbol = domain.NormalizeSymbol(symbol)
	if strings.HasSuffix(symbol, q.quoteAsset) {
		return symbol
	}
	return symbol + q.quoteAsset
}
