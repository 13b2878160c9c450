package clients

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/folio/config"
	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/session"
)

const (
	defaultTimeout = 15 * time.Second

	// authExpiredMarker is the backend message for a token whose signature no longer verifies.
	authExpiredMarker = "signature mismatch"
	// usernameAvailableMessage is the confirmation text some deployments return instead of a boolean.
	usernameAvailableMessage = "username is available"
)

// StatusError non-2xx backend response.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

// Backend JSON-over-HTTP client for the portfolio endpoints. Every request carries the
// session bearer token and is cancelled when the session ends.
type Backend struct {
	http      *resty.Client
	session   *session.Session
	endpoints config.Endpoints
	logger    *zap.Logger
}

// NewBackend creates a backend client. Requests are never retried automatically.
func NewBackend(baseURL string, timeout time.Duration, endpoints config.Endpoints, sess *session.Session, logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if sess == nil {
		sess = session.New(context.Background(), "")
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Backend{
		http:      client,
		session:   sess,
		endpoints: endpoints,
		logger:    logger,
	}
}

// Balance returns the account cash balance.
func (b *Backend) Balance(ctx context.Context) (decimal.Decimal, error) {
	v, err := b.get(ctx, b.endpoints.Balance, nil)
	if err != nil {
		return decimal.Decimal{}, err
	}
	balance, err := decimalField(v, "$.balance", "$.cash", "$.amount", "$.data.balance")
	if err != nil {
		return decimal.Decimal{}, errors.Wrap(err, "decode balance")
	}
	return balance, nil
}

// Holdings returns owned quantity per symbol.
func (b *Backend) Holdings(ctx context.Context) (map[string]decimal.Decimal, error) {
	v, err := b.get(ctx, b.endpoints.Holdings, nil)
	if err != nil {
		return nil, err
	}

	holdings := make(map[string]decimal.Decimal)
	if v == nil {
		return holdings, nil
	}
	list, ok := listField(v, "$.holdings", "$.data", "$.items")
	if !ok {
		return nil, errors.Wrapf(domain.ErrInvalidResponse, "unexpected holdings shape %T", v)
	}

	for _, item := range list {
		symbol := domain.NormalizeSymbol(firstString(item, "$.symbol", "$.asset", "$.ticker"))
		if symbol == "" {
			continue
		}
		quantity, err := decimalField(item, "$.quantity", "$.qty", "$.shares", "$.assetQuantity")
		if err != nil {
			return nil, errors.Wrapf(err, "decode holding %s", symbol)
		}
		if quantity.IsNegative() {
			quantity = decimal.Zero
		}
		holdings[symbol] = holdings[symbol].Add(quantity)
	}
	return holdings, nil
}

// Quote returns the last traded price for symbol as reported by the backend.
func (b *Backend) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	v, err := b.get(ctx, b.endpoints.Quote, map[string]string{"symbol": symbol})
	if err != nil {
		return decimal.Decimal{}, err
	}
	price, err := decimalField(v, "$.price", "$.lastPrice", "$.last", "$.close", "$.c", "$.data.price")
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(domain.ErrInvalidQuote, "decode quote for %s: %v", symbol, err)
	}
	return price, nil
}

// DailyPrices returns daily bars for symbol in ascending time order.
func (b *Backend) DailyPrices(ctx context.Context, symbol string) ([]domain.PriceBar, error) {
	v, err := b.get(ctx, b.endpoints.DailyPrices, map[string]string{"symbol": symbol})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	bars, err := parseBars(v)
	if err != nil {
		return nil, errors.Wrapf(err, "decode daily prices for %s", symbol)
	}
	return bars, nil
}

type executeRequest struct {
	Symbol   string `json:"symbol"`
	Quantity int64  `json:"quantity"`
}

// Execute submits a market order. A backend decline is returned as *domain.OrderRejectedError
// carrying the server message verbatim.
func (b *Backend) Execute(ctx context.Context, order domain.Order) (domain.Ack, error) {
	endpoint := path.Join(b.endpoints.Execute, string(order.Side))
	body, err := b.do(ctx, http.MethodPost, endpoint, nil, executeRequest{Symbol: order.Symbol, Quantity: order.Quantity})
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Status < http.StatusInternalServerError {
			message := statusErr.Message
			if message == "" {
				message = fmt.Sprintf("Order rejected (status %d)", statusErr.Status)
			}
			return domain.Ack{}, &domain.OrderRejectedError{Message: message}
		}
		return domain.Ack{}, asNetworkError(err)
	}

	v := decodeBody(body)
	message := firstString(v, "$.message", "$.msg", "$.detail")
	if flag, ok := firstPresent(v, "$.success", "$.ok"); ok {
		if success, isBool := flag.(bool); isBool && !success {
			if message == "" {
				message = "Order rejected"
			}
			return domain.Ack{}, &domain.OrderRejectedError{Message: message}
		}
	}

	return domain.Ack{
		OrderID: firstString(v, "$.orderId", "$.order_id", "$.id"),
		Message: message,
	}, nil
}

// Transactions returns the executed trade history.
func (b *Backend) Transactions(ctx context.Context) ([]domain.Transaction, error) {
	v, err := b.get(ctx, b.endpoints.Transactions, nil)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	list, ok := listField(v, "$.transactions", "$.data", "$.items")
	if !ok {
		return nil, errors.Wrapf(domain.ErrInvalidResponse, "unexpected transactions shape %T", v)
	}

	txs := make([]domain.Transaction, 0, len(list))
	for _, item := range list {
		tx := domain.Transaction{
			Asset:         domain.NormalizeSymbol(firstString(item, "$.asset", "$.symbol")),
			Type:          strings.ToLower(firstString(item, "$.type", "$.side")),
			AssetQuantity: optionalDecimal(item, "$.assetQuantity", "$.asset_quantity", "$.quantity"),
			Amount:        optionalDecimal(item, "$.amount", "$.total"),
		}
		if rawTime, ok := firstPresent(item, "$.createdAt", "$.created_at", "$.date"); ok {
			createdAt, err := toTime(rawTime)
			if err != nil {
				return nil, errors.Wrapf(err, "decode transaction time for %s", tx.Asset)
			}
			tx.CreatedAt = createdAt
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// UsernameAvailable reports whether username is free, with the backend message if any.
func (b *Backend) UsernameAvailable(ctx context.Context, username string) (bool, string, error) {
	v, err := b.get(ctx, b.endpoints.UsernameAvailable, map[string]string{"username": username})
	if err != nil {
		return false, "", err
	}

	switch body := v.(type) {
	case bool:
		return body, "", nil
	case string:
		return strings.EqualFold(strings.TrimSpace(body), usernameAvailableMessage), body, nil
	}

	message := firstString(v, "$.message", "$.msg")
	if flag, ok := firstPresent(v, "$.available", "$.isAvailable", "$.data.available"); ok {
		if available, isBool := flag.(bool); isBool {
			return available, message, nil
		}
	}
	if message != "" {
		return strings.EqualFold(message, usernameAvailableMessage), message, nil
	}
	return false, "", errors.Wrapf(domain.ErrInvalidResponse, "unexpected username availability shape %T", v)
}

func (b *Backend) get(ctx context.Context, endpoint string, query map[string]string) (any, error) {
	body, err := b.do(ctx, http.MethodGet, endpoint, query, nil)
	if err != nil {
		return nil, asNetworkError(err)
	}
	return decodeBody(body), nil
}

// do performs one request bound to both ctx and the session lifetime.
func (b *Backend) do(ctx context.Context, method, endpoint string, query map[string]string, payload any) ([]byte, error) {
	if b.session.Expired() {
		return nil, domain.ErrAuthExpired
	}

	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(b.session.Context(), cancel)
	defer func() {
		stop()
		cancel()
	}()

	req := b.http.R().SetContext(ctx)
	if token := b.session.Token(); token != "" {
		req.SetAuthToken(token)
	}
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	if payload != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(payload)
	}

	resp, err := req.Execute(method, endpoint)
	if err != nil {
		switch {
		case b.session.Expired():
			return nil, domain.ErrAuthExpired
		case b.session.Context().Err() != nil:
			return nil, domain.ErrSessionClosed
		case ctx.Err() != nil:
			return nil, errors.Wrapf(ctx.Err(), "%s %s", method, endpoint)
		}
		b.logger.Warn("backend request failed",
			zap.String("method", method),
			zap.String("endpoint", endpoint),
			zap.Error(err))
		return nil, errors.Wrapf(domain.ErrNetwork, "%s %s: %v", method, endpoint, err)
	}

	if resp.IsError() {
		message := errorMessage(resp.Body())
		if strings.Contains(strings.ToLower(message), authExpiredMarker) {
			b.logger.Warn("backend rejected session token", zap.String("endpoint", endpoint))
			b.session.Expire()
			return nil, domain.ErrAuthExpired
		}
		return nil, &StatusError{Status: resp.StatusCode(), Message: message}
	}

	return resp.Body(), nil
}

// errorMessage extracts the human-readable message of an error body.
func errorMessage(body []byte) string {
	v := decodeBody(body)
	if s, ok := v.(string); ok {
		return s
	}
	return firstString(v, "$.message", "$.error", "$.detail", "$.msg", "$.error.message")
}

// asNetworkError folds non-2xx responses into the network taxonomy; other errors pass through.
func asNetworkError(err error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return errors.Wrap(domain.ErrNetwork, statusErr.Error())
	}
	return err
}
