// Package chart prepares daily price series for the price graph tool.
package chart

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/pkg/indicators"
)

const (
	defaultSMAPeriod = 20
	emaPeriod        = 10
	rsiPeriod        = 14
)

var sparkTicks = []rune("▁▂▃▄▅▆▇█")

// PriceReader reads daily bars for a symbol in ascending order.
type PriceReader interface {
	DailyPrices(ctx context.Context, symbol string) ([]domain.PriceBar, error)
}

// Point one value of a derived series.
type Point struct {
	Date  time.Time
	Value decimal.Decimal
}

// Chart daily closes with moving-average overlays, momentum and summary figures.
type Chart struct {
	Symbol    string
	Bars      []domain.PriceBar
	SMA       []Point
	SMAPeriod int
	EMA       []Point
	EMAPeriod int
	// RSI relative strength index, 0..100, aligned to the trailing bars.
	RSI       []Point
	RSIPeriod int
	Low       decimal.Decimal
	High      decimal.Decimal
	Last      decimal.Decimal
	// Change relative change of the last close over the first, in percent.
	Change decimal.Decimal
}

// Service builds charts from a price reader.
type Service struct {
	reader    PriceReader
	smaPeriod int
	logger    *zap.Logger
}

// NewService creates a chart service with the given SMA period (20 when not positive).
func NewService(reader PriceReader, smaPeriod int, logger *zap.Logger) (*Service, error) {
	if reader == nil {
		return nil, errors.New("price reader is required")
	}
	if smaPeriod < 1 {
		smaPeriod = defaultSMAPeriod
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{reader: reader, smaPeriod: smaPeriod, logger: logger}, nil
}

// Build fetches daily prices for symbol, keeps the last days bars (all when days < 1) and
// derives the overlays. A series the history is too short for is left empty.
func (s *Service) Build(ctx context.Context, symbol string, days int) (Chart, error) {
	symbol = domain.NormalizeSymbol(symbol)
	bars, err := s.reader.DailyPrices(ctx, symbol)
	if err != nil {
		return Chart{}, errors.Wrapf(err, "daily prices for %s", symbol)
	}
	if len(bars) == 0 {
		return Chart{}, errors.Wrapf(domain.ErrInvalidResponse, "no daily prices for %s", symbol)
	}
	if days > 0 && len(bars) > days {
		bars = bars[len(bars)-days:]
	}

	c := Chart{Symbol: symbol, Bars: bars, SMAPeriod: s.smaPeriod, EMAPeriod: emaPeriod, RSIPeriod: rsiPeriod}
	c.Low, c.High = bars[0].Close, bars[0].Close
	for _, bar := range bars {
		if bar.Close.LessThan(c.Low) {
			c.Low = bar.Close
		}
		if bar.Close.GreaterThan(c.High) {
			c.High = bar.Close
		}
	}
	c.Last = bars[len(bars)-1].Close
	if first := bars[0].Close; first.IsPositive() {
		c.Change = c.Last.Sub(first).Div(first).Mul(decimal.NewFromInt(100)).Round(2)
	}

	closes := Closes(bars)
	c.SMA = s.series(symbol, "sma", bars, func() ([]decimal.Decimal, error) {
		return indicators.CalculateSMA(closes, s.smaPeriod)
	})
	c.EMA = s.series(symbol, "ema", bars, func() ([]decimal.Decimal, error) {
		return indicators.CalculateEMA(closes, emaPeriod)
	})
	c.RSI = s.series(symbol, "rsi", bars, func() ([]decimal.Decimal, error) {
		return indicators.CalculateRSI(closes, rsiPeriod)
	})
	return c, nil
}

// series aligns a derived series to the trailing bars.
func (s *Service) series(symbol, name string, bars []domain.PriceBar, calc func() ([]decimal.Decimal, error)) []Point {
	values, err := calc()
	if err != nil {
		s.logger.Debug("skipping indicator", zap.String("symbol", symbol), zap.String("indicator", name), zap.Error(err))
		return nil
	}
	if len(values) == 0 || len(values) > len(bars) {
		return nil
	}

	offset := len(bars) - len(values)
	points := make([]Point, len(values))
	for i, v := range values {
		points[i] = Point{Date: bars[offset+i].Date, Value: v}
	}
	return points
}

// Closes extracts close prices.
func Closes(bars []domain.PriceBar) []decimal.Decimal {
	out := make([]decimal.Decimal, len(bars))
	for i, bar := range bars {
		out[i] = bar.Close
	}
	return out
}

// Sparkline renders values as block characters, resampled to at most width columns.
func Sparkline(values []decimal.Decimal, width int) string {
	if len(values) == 0 {
		return ""
	}
	if width > 0 && len(values) > width {
		sampled := make([]decimal.Decimal, width)
		for i := range sampled {
			sampled[i] = values[i*len(values)/width]
		}
		sampled[width-1] = values[len(values)-1]
		values = sampled
	}

	low, high := values[0], values[0]
	for _, v := range values {
		low = decimal.Min(low, v)
		high = decimal.Max(high, v)
	}
	span := high.Sub(low)
	top := decimal.NewFromInt(int64(len(sparkTicks) - 1))

	var b strings.Builder
	for _, v := range values {
		idx := 0
		if span.IsPositive() {
			idx = int(v.Sub(low).Div(span).Mul(top).Round(0).IntPart())
		}
		b.WriteRune(sparkTicks[idx])
	}
	return b.String()
}
