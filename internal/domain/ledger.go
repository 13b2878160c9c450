package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerSnapshot point-in-time copy of the local balance/holdings shadow.
type LedgerSnapshot struct {
	Balance  decimal.Decimal            `json:"balance"`
	Holdings map[string]decimal.Decimal `json:"holdings"`
}

// Holding returns owned units for symbol, zero when absent.
func (s LedgerSnapshot) Holding(symbol string) decimal.Decimal {
	return s.Holdings[NormalizeSymbol(symbol)]
}

// JournalStatus outcome recorded for a submitted order.
type JournalStatus string

const (
	JournalDone     JournalStatus = "done"
	JournalRejected JournalStatus = "rejected"
	JournalFailed   JournalStatus = "failed"
)

// JournalEntry submit outcome together with the ledger figures after it.
type JournalEntry struct {
	ID       string          `json:"id"`
	Time     time.Time       `json:"ts"`
	Symbol   string          `json:"symbol"`
	Side     Side            `json:"side"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Status   JournalStatus   `json:"status"`
	Error    string          `json:"error,omitempty"`
	Balance  decimal.Decimal `json:"balance"`
	Holding  decimal.Decimal `json:"holding"`
}

// JournalRecord bundles an entry with its WAL index.
type JournalRecord struct {
	Index uint64
	Entry JournalEntry
}
