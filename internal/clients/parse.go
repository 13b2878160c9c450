package clients

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/folio/internal/domain"
)

// decodeBody decodes a response body into generic JSON values. Bodies that are not valid JSON
// are returned as trimmed text so plain-text confirmations survive.
func decodeBody(body []byte) any {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return string(trimmed)
	}
	return v
}

// firstPresent returns the first non-null value found at one of the jsonpath expressions.
func firstPresent(v any, paths ...string) (any, bool) {
	for _, path := range paths {
		found, err := jsonpath.Get(path, v)
		if err != nil || found == nil {
			continue
		}
		return found, true
	}
	return nil, false
}

func firstString(v any, paths ...string) string {
	for _, path := range paths {
		found, ok := firstPresent(v, path)
		if !ok {
			continue
		}
		switch s := found.(type) {
		case string:
			if strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		case json.Number:
			return s.String()
		}
	}
	return ""
}

// toDecimal converts a decoded JSON scalar into a finite decimal.
func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case json.Number:
		return parseDecimalString(n.String())
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Decimal{}, errors.Wrapf(domain.ErrInvalidResponse, "non-finite number %v", n)
		}
		return decimal.NewFromFloat(n), nil
	case string:
		return parseDecimalString(n)
	default:
		return decimal.Decimal{}, errors.Wrapf(domain.ErrInvalidResponse, "unexpected numeric value %T", v)
	}
}

func parseDecimalString(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(domain.ErrInvalidResponse, "parse number %q", s)
	}
	return d, nil
}

// decimalField reads a number that is either the body itself or one of the candidate fields.
func decimalField(v any, paths ...string) (decimal.Decimal, error) {
	switch v.(type) {
	case json.Number, float64, string:
		return toDecimal(v)
	}

	found, ok := firstPresent(v, paths...)
	if !ok {
		return decimal.Decimal{}, errors.Wrapf(domain.ErrInvalidResponse, "none of %v present", paths)
	}
	return toDecimal(found)
}

// optionalDecimal reads a candidate field, returning zero when absent or malformed.
func optionalDecimal(v any, paths ...string) decimal.Decimal {
	found, ok := firstPresent(v, paths...)
	if !ok {
		return decimal.Zero
	}
	d, err := toDecimal(found)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// listField returns v when it is a list, otherwise the first candidate field holding a list.
func listField(v any, paths ...string) ([]any, bool) {
	if list, ok := v.([]any); ok {
		return list, true
	}
	for _, path := range paths {
		found, ok := firstPresent(v, path)
		if !ok {
			continue
		}
		if list, ok := found.([]any); ok {
			return list, true
		}
	}
	return nil, false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// toTime accepts date strings in common layouts or unix timestamps (seconds or milliseconds).
func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC(), nil
			}
		}
		if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
			return unixTime(unix), nil
		}
		return time.Time{}, errors.Wrapf(domain.ErrInvalidResponse, "parse time %q", s)
	case json.Number:
		unix, err := t.Int64()
		if err != nil {
			return time.Time{}, errors.Wrapf(domain.ErrInvalidResponse, "parse timestamp %q", t.String())
		}
		return unixTime(unix), nil
	case float64:
		return unixTime(int64(t)), nil
	default:
		return time.Time{}, errors.Wrapf(domain.ErrInvalidResponse, "unexpected time value %T", v)
	}
}

func unixTime(v int64) time.Time {
	if v > 1e12 {
		return time.UnixMilli(v).UTC()
	}
	return time.Unix(v, 0).UTC()
}

var (
	barDatePaths   = []string{"$.date", "$.time", "$.timestamp", "$.t"}
	barOpenPaths   = []string{"$.open", "$.o"}
	barHighPaths   = []string{"$.high", "$.h"}
	barLowPaths    = []string{"$.low", "$.l"}
	barClosePaths  = []string{"$.close", "$.c", "$.price"}
	barVolumePaths = []string{"$.volume", "$.v"}
)

// parseBars normalizes either a list of bars or a map keyed by date into an ascending sequence.
func parseBars(v any) ([]domain.PriceBar, error) {
	if list, ok := listField(v, "$.data", "$.prices", "$.bars", "$.values"); ok {
		bars := make([]domain.PriceBar, 0, len(list))
		for _, item := range list {
			rawDate, ok := firstPresent(item, barDatePaths...)
			if !ok {
				return nil, errors.Wrap(domain.ErrInvalidResponse, "price bar without date")
			}
			bar, err := parseBar(rawDate, item)
			if err != nil {
				return nil, err
			}
			bars = append(bars, bar)
		}
		sortBars(bars)
		return bars, nil
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.Wrapf(domain.ErrInvalidResponse, "unexpected daily prices shape %T", v)
	}
	for _, wrapper := range []string{"data", "prices", "bars"} {
		if inner, ok := obj[wrapper].(map[string]any); ok {
			obj = inner
			break
		}
	}

	bars := make([]domain.PriceBar, 0, len(obj))
	for date, item := range obj {
		bar, err := parseBar(date, item)
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}
	sortBars(bars)
	return bars, nil
}

func parseBar(rawDate any, item any) (domain.PriceBar, error) {
	date, err := toTime(rawDate)
	if err != nil {
		return domain.PriceBar{}, err
	}
	closePrice, err := decimalField(item, barClosePaths...)
	if err != nil {
		return domain.PriceBar{}, errors.Wrapf(err, "close for %s", date.Format("2006-01-02"))
	}
	return domain.PriceBar{
		Date:   date,
		Open:   optionalDecimal(item, barOpenPaths...),
		High:   optionalDecimal(item, barHighPaths...),
		Low:    optionalDecimal(item, barLowPaths...),
		Close:  closePrice,
		Volume: optionalDecimal(item, barVolumePaths...),
	}, nil
}

func sortBars(bars []domain.PriceBar) {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})
}
