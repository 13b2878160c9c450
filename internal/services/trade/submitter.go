package trade

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/folio/internal/domain"
)

// Executor sends an order to the execution endpoint.
type Executor interface {
	Execute(ctx context.Context, order domain.Order) (domain.Ack, error)
}

// Journal persists submit outcomes.
type Journal interface {
	Save(entry domain.JournalEntry) (uint64, error)
}

type busyKey struct {
	symbol string
	side   domain.Side
}

// Submitter submits orders and mirrors acknowledged ones into the ledger.
// At most one submit per (symbol, side) is in flight.
type Submitter struct {
	mu        sync.Mutex
	executor  Executor
	ledger    *Ledger
	journal   Journal
	reconcile Reader
	logger    *zap.Logger
	busy      map[busyKey]struct{}
	now       func() time.Time
}

// SubmitterOption configures optional Submitter collaborators.
type SubmitterOption func(*Submitter)

// WithJournal records every submit outcome in j.
func WithJournal(j Journal) SubmitterOption {
	return func(s *Submitter) {
		s.journal = j
	}
}

// WithReconcile reloads the ledger from reader after each acknowledged order.
func WithReconcile(reader Reader) SubmitterOption {
	return func(s *Submitter) {
		s.reconcile = reader
	}
}

// NewSubmitter creates a submitter over executor mutating ledger.
func NewSubmitter(executor Executor, ledger *Ledger, logger *zap.Logger, opts ...SubmitterOption) (*Submitter, error) {
	if executor == nil {
		return nil, errors.New("order executor is required")
	}
	if ledger == nil {
		return nil, errors.New("ledger is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Submitter{
		executor: executor,
		ledger:   ledger,
		logger:   logger,
		busy:     make(map[busyKey]struct{}),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Busy reports whether an order for symbol/side is in flight.
func (s *Submitter) Busy(symbol string, side domain.Side) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.busy[busyKey{symbol: domain.NormalizeSymbol(symbol), side: side}]
	return ok
}

// Submit executes order and, once acknowledged, applies it to the ledger at the quoted price.
// A rejected or failed order leaves the ledger untouched.
func (s *Submitter) Submit(ctx context.Context, order domain.Order, quote domain.Quote) (domain.Ack, error) {
	order.Symbol = domain.NormalizeSymbol(order.Symbol)
	if order.Quantity < 1 {
		return domain.Ack{}, &domain.ValidationError{Kind: domain.NonPositiveQuantity}
	}
	if !quote.Price.IsPositive() {
		return domain.Ack{}, errors.Wrapf(domain.ErrInvalidQuote, "price %s for %s", quote.Price, order.Symbol)
	}

	key := busyKey{symbol: order.Symbol, side: order.Side}
	if !s.acquire(key) {
		return domain.Ack{}, domain.ErrBusy
	}
	defer s.release(key)

	ack, err := s.executor.Execute(ctx, order)
	if err != nil {
		status := domain.JournalFailed
		var rejected *domain.OrderRejectedError
		if errors.As(err, &rejected) {
			status = domain.JournalRejected
		}
		s.logger.Warn("order not executed",
			zap.String("order", order.String()),
			zap.String("status", string(status)),
			zap.Error(err))
		s.record(order, quote, status, err)
		return domain.Ack{}, err
	}

	s.ledger.ApplyOptimistic(order, quote)
	s.logger.Info("order executed",
		zap.String("order", order.String()),
		zap.String("order_id", ack.OrderID),
		zap.String("price", quote.Price.String()))

	if s.reconcile != nil {
		if err := s.ledger.Load(ctx, s.reconcile); err != nil {
			s.logger.Warn("ledger reconcile failed", zap.Error(err))
		}
	}
	s.record(order, quote, domain.JournalDone, nil)

	return ack, nil
}

func (s *Submitter) acquire(key busyKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.busy[key]; ok {
		return false
	}
	s.busy[key] = struct{}{}
	return true
}

func (s *Submitter) release(key busyKey) {
	s.mu.Lock()
	delete(s.busy, key)
	s.mu.Unlock()
}

func (s *Submitter) record(order domain.Order, quote domain.Quote, status domain.JournalStatus, cause error) {
	if s.journal == nil {
		return
	}

	snapshot := s.ledger.Snapshot()
	entry := domain.JournalEntry{
		ID:       uuid.NewString(),
		Time:     s.now().UTC(),
		Symbol:   order.Symbol,
		Side:     order.Side,
		Quantity: order.Quantity,
		Price:    quote.Price,
		Status:   status,
		Balance:  snapshot.Balance,
		Holding:  snapshot.Holding(order.Symbol),
	}
	if cause != nil {
		entry.Error = domain.UserMessage(cause)
	}

	if _, err := s.journal.Save(entry); err != nil {
		s.logger.Error("failed to journal order", zap.String("id", entry.ID), zap.Error(err))
	}
}
