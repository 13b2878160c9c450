// Package app wires configuration, the backend session and the services each command needs.
package app

import (
	"context"
	"sync"

	binance "github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/folio/config"
	"github.com/vadiminshakov/folio/internal/clients"
	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/services/availability"
	"github.com/vadiminshakov/folio/internal/services/chart"
	"github.com/vadiminshakov/folio/internal/services/chat"
	"github.com/vadiminshakov/folio/internal/services/quote"
	"github.com/vadiminshakov/folio/internal/services/trade"
	"github.com/vadiminshakov/folio/internal/session"
	"github.com/vadiminshakov/folio/internal/storage/journal"
	"github.com/vadiminshakov/folio/internal/storage/prefs"
	"github.com/vadiminshakov/folio/internal/web"
)

const chartSMAPeriod = 20

// App owns the session and the long-lived services shared by the commands.
type App struct {
	Config  config.Config
	Session *session.Session
	Backend *clients.Backend
	Agents  *clients.Agents
	Quotes  *quote.Cache
	Charts  *chart.Service
	Prefs   *prefs.Store

	logger *zap.Logger

	mu      sync.Mutex
	journal *journal.WALStore
	desk    *trade.Desk
}

// New creates the session and the backend clients. Nothing is fetched until a service is used.
func New(ctx context.Context, conf config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	sess := session.New(ctx, conf.API.Token)
	backend := clients.NewBackend(conf.API.BaseURL, conf.API.Timeout, conf.Endpoints, sess, logger)

	var fetcher quote.Fetcher = backend
	if conf.QuoteSource == config.QuoteSourceBinance {
		fetcher = clients.NewBinanceQuoter(binance.NewClient("", ""), "")
	}

	quotes, err := quote.NewCache(fetcher, logger)
	if err != nil {
		sess.Close()
		return nil, errors.Wrap(err, "create quote cache")
	}

	charts, err := chart.NewService(backend, chartSMAPeriod, logger)
	if err != nil {
		sess.Close()
		return nil, errors.Wrap(err, "create chart service")
	}

	store, err := prefs.NewStore(conf.State.Dir)
	if err != nil {
		sess.Close()
		return nil, errors.Wrap(err, "create prefs store")
	}

	logger.Debug("session started",
		zap.String("base_url", conf.API.BaseURL),
		zap.String("quote_source", conf.QuoteSource),
		zap.Bool("token", conf.API.Token != ""))

	return &App{
		Config:  conf,
		Session: sess,
		Backend: backend,
		Agents:  clients.NewAgents(conf.API.BaseURL, conf.API.Timeout, conf.Agents, sess, logger),
		Quotes:  quotes,
		Charts:  charts,
		Prefs:   store,
		logger:  logger,
	}, nil
}

// Journal opens the order journal on first use.
func (a *App) Journal() (*journal.WALStore, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.journal != nil {
		return a.journal, nil
	}

	store, err := journal.NewWALStore(a.Config.Journal.Dir)
	if err != nil {
		return nil, err
	}
	a.journal = store

	return store, nil
}

// Desk loads the ledger once and builds the trading pipeline on top of it.
func (a *App) Desk(ctx context.Context) (*trade.Desk, error) {
	a.mu.Lock()
	if a.desk != nil {
		defer a.mu.Unlock()
		return a.desk, nil
	}
	a.mu.Unlock()

	store, err := a.Journal()
	if err != nil {
		return nil, errors.Wrap(err, "open order journal")
	}

	ledger, err := trade.LoadLedger(ctx, a.Backend, a.logger)
	if err != nil {
		return nil, errors.Wrap(err, "load ledger")
	}

	opts := []trade.SubmitterOption{trade.WithJournal(store)}
	if a.Config.Trade.ReconcileAfterTrade {
		opts = append(opts, trade.WithReconcile(a.Backend))
	}

	submitter, err := trade.NewSubmitter(a.Backend, ledger, a.logger, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create submitter")
	}

	desk, err := trade.NewDesk(a.Quotes, ledger, submitter, a.logger)
	if err != nil {
		return nil, errors.Wrap(err, "create desk")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.desk == nil {
		a.desk = desk
	}

	return a.desk, nil
}

// Chat starts a chat session bound to the app session.
func (a *App) Chat() (*chat.Session, error) {
	renderer := chat.NewRenderer(a.Config.Chat.StreamTick)
	return chat.NewSession(a.Session.Context(), a.Agents, renderer, a.logger)
}

// Availability starts a username checker bound to the app session.
func (a *App) Availability() (*availability.Checker, error) {
	rules := availability.Rules{
		MinLength: a.Config.Availability.MinLength,
		MaxLength: a.Config.Availability.MaxLength,
		Pattern:   a.Config.Availability.Pattern,
	}
	return availability.NewChecker(a.Session.Context(), a.Backend, rules, a.Config.Availability.Debounce, a.logger)
}

// Dashboard builds the journal dashboard server. The ledger is reloaded from the backend on each request.
func (a *App) Dashboard() (*web.Server, error) {
	store, err := a.Journal()
	if err != nil {
		return nil, errors.Wrap(err, "open order journal")
	}

	ledger := func(ctx context.Context) (domain.LedgerSnapshot, error) {
		l, err := trade.LoadLedger(ctx, a.Backend, a.logger)
		if err != nil {
			return domain.LedgerSnapshot{}, err
		}
		return l.Snapshot(), nil
	}

	return web.NewServer(a.Config.Dashboard.Addr, store, ledger, a.logger), nil
}

// Close ends the session, cancelling in-flight requests, and closes the journal.
func (a *App) Close() error {
	a.Session.Close()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			return errors.Wrap(err, "close order journal")
		}
		a.journal = nil
	}

	return nil
}
