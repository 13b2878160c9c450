package clients

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/folio/config"
	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/session"
)

func newTestBackend(t *testing.T, handler http.HandlerFunc) (*Backend, *session.Session) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sess := session.New(context.Background(), "token-1")
	t.Cleanup(sess.Close)
	return NewBackend(srv.URL, time.Second, config.Default().Endpoints, sess, nil), sess
}

func TestBackend_Balance(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "bare number", body: `1000.50`, want: "1000.5"},
		{name: "balance field", body: `{"balance": 250}`, want: "250"},
		{name: "cash field", body: `{"cash": "42.1"}`, want: "42.1"},
		{name: "nested", body: `{"data": {"balance": 7}}`, want: "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, _ := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/balance", r.URL.Path)
				assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
				_, _ = io.WriteString(w, tt.body)
			})

			balance, err := backend.Balance(context.Background())
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(balance), "got %s", balance)
		})
	}
}

func TestBackend_Holdings(t *testing.T) {
	backend, _ := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"holdings": [
			{"symbol": "aapl", "quantity": 3},
			{"asset": "MSFT", "qty": "2"},
			{"ticker": "AAPL", "shares": 1},
			{"symbol": "TSLA", "quantity": -4},
			{"quantity": 9}
		]}`)
	})

	holdings, err := backend.Holdings(context.Background())
	require.NoError(t, err)
	require.Len(t, holdings, 3)
	assert.True(t, decimal.NewFromInt(4).Equal(holdings["AAPL"]))
	assert.True(t, decimal.NewFromInt(2).Equal(holdings["MSFT"]))
	assert.True(t, holdings["TSLA"].IsZero())
}

func TestBackend_Quote(t *testing.T) {
	backend, _ := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		_, _ = io.WriteString(w, `{"symbol": "AAPL", "lastPrice": 187.25}`)
	})

	price, err := backend.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "187.25", price.String())
}

func TestBackend_Quote_InvalidBody(t *testing.T) {
	bodies := map[string]string{
		"missing price": `{"symbol": "AAPL"}`,
		"not a number":  `{"price": "abc"}`,
		"nan":           `{"price": "NaN"}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			backend, _ := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			})

			_, err := backend.Quote(context.Background(), "AAPL")
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidQuote), err.Error())
		})
	}
}

func TestBackend_DailyPrices(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		backend, _ := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `[
				{"date": "2024-01-03", "close": 12},
				{"date": "2024-01-02", "open": 10, "close": 11}
			]`)
		})

		bars, err := backend.DailyPrices(context.Background(), "AAPL")
		require.NoError(t, err)
		require.Len(t, bars, 2)
		assert.Equal(t, "2024-01-02", bars[0].Date.Format("2006-01-02"))
		assert.Equal(t, "11", bars[0].Close.String())
		assert.Equal(t, "10", bars[0].Open.String())
		assert.Equal(t, "12", bars[1].Close.String())
	})

	t.Run("map keyed by date", func(t *testing.T) {
		backend, _ := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"data": {"2024-01-05": {"close": 3}, "2024-01-04": 2}}`)
		})

		bars, err := backend.DailyPrices(context.Background(), "AAPL")
		require.NoError(t, err)
		require.Len(t, bars, 2)
		assert.Equal(t, "2", bars[0].Close.String())
		assert.Equal(t, "3", bars[1].Close.String())
	})
}

func TestBackend_Execute(t *testing.T) {
	order := domain.Order{Symbol: "AAPL", Side: domain.SideBuy, Quantity: 3}

	t.Run("ack", func(t *testing.T) {
		backend, _ := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/execute/buy", r.URL.Path)

			var req executeRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, executeRequest{Symbol: "AAPL", Quantity: 3}, req)

			_, _ = io.WriteString(w, `{"orderId": "o-1", "message": "Bought 3 AAPL"}`)
		})

		ack, err := backend.Execute(context.Background(), order)
		require.NoError(t, err)
		assert.Equal(t, domain.Ack{OrderID: "o-1", Message: "Bought 3 AAPL"}, ack)
	})

	t.Run("rejected with client status", func(t *testing.T) {
		backend, _ := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"message": "Market is closed"}`)
		})

		_, err := backend.Execute(context.Background(), order)
		var rejected *domain.OrderRejectedError
		require.True(t, errors.As(err, &rejected))
		assert.Equal(t, "Market is closed", rejected.Message)
	})

	t.Run("rejected in body", func(t *testing.T) {
		backend, _ := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"success": false, "message": "Insufficient funds"}`)
		})

		_, err := backend.Execute(context.Background(), order)
		var rejected *domain.OrderRejectedError
		require.True(t, errors.As(err, &rejected))
		assert.Equal(t, "Insufficient funds", rejected.Message)
	})

	t.Run("server error is network", func(t *testing.T) {
		backend, _ := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := backend.Execute(context.Background(), order)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrNetwork))
	})
}

func TestBackend_AuthExpired(t *testing.T) {
	var calls atomic.Int32
	backend, sess := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail": "Signature mismatch"}`)
	})

	_, err := backend.Balance(context.Background())
	require.ErrorIs(t, err, domain.ErrAuthExpired)
	assert.True(t, sess.Expired())
	assert.Empty(t, sess.Token())

	_, err = backend.Holdings(context.Background())
	require.ErrorIs(t, err, domain.ErrAuthExpired)
	assert.Equal(t, int32(1), calls.Load())
}

func TestBackend_SessionCloseCancelsRequest(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	backend, sess := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})

	errCh := make(chan error, 1)
	go func() {
		_, err := backend.Balance(context.Background())
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	sess.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, domain.ErrSessionClosed)
	case <-time.After(time.Second):
		t.Fatal("request was not cancelled by session close")
	}
}

func TestBackend_Transactions(t *testing.T) {
	backend, _ := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"asset": "aapl", "type": "BUY", "assetQuantity": 2, "amount": -300, "createdAt": "2024-02-01T10:00:00Z"}]`)
	})

	txs, err := backend.Transactions(context.Background())
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "AAPL", txs[0].Asset)
	assert.Equal(t, "buy", txs[0].Type)
	assert.Equal(t, "150", txs[0].Price().String())
	assert.Equal(t, time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC), txs[0].CreatedAt)
}

func TestBackend_UsernameAvailable(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    bool
		message string
	}{
		{name: "bool", body: `true`, want: true},
		{name: "object", body: `{"available": false, "message": "Username is taken"}`, want: false, message: "Username is taken"},
		{name: "camel case", body: `{"isAvailable": true}`, want: true},
		{name: "confirmation text", body: `Username is available`, want: true, message: "Username is available"},
		{name: "json string", body: `"Username already exists"`, want: false, message: "Username already exists"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, _ := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "validname", r.URL.Query().Get("username"))
				_, _ = io.WriteString(w, tt.body)
			})

			available, message, err := backend.UsernameAvailable(context.Background(), "validname")
			require.NoError(t, err)
			assert.Equal(t, tt.want, available)
			assert.Equal(t, tt.message, message)
		})
	}
}

func TestAgents_Ask(t *testing.T) {
	var gotPath atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)
		var req agentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "show AAPL", req.UserQuery)
		_, _ = io.WriteString(w, `{"reply": "here", "tool": "chart"}`)
	}))
	defer srv.Close()

	sess := session.New(context.Background(), "t")
	defer sess.Close()
	agents := NewAgents(srv.URL, time.Second, config.Default().Agents, sess, nil)

	body, err := agents.Ask(context.Background(), domain.AgentMarket, "show AAPL")
	require.NoError(t, err)
	assert.Equal(t, "/agents/market", gotPath.Load())
	assert.Equal(t, map[string]any{"reply": "here", "tool": "chart"}, body)

	_, err = agents.Ask(context.Background(), domain.AgentGeneral, "show AAPL")
	require.NoError(t, err)
	assert.Equal(t, "/chat", gotPath.Load())
}
