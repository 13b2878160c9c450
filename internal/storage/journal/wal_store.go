// Package journal persists order submit outcomes in a write-ahead log.
package journal

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/vadiminshakov/folio/internal/domain"
)

const (
	defaultJournalDir   = "./wal/journal"
	journalSegmentLimit = 1000
	journalMaxSegments  = 100
	journalKeyPrefix    = "order_"
)

// WALStore order journal backed by gowal.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore opens (or creates) the journal under dir.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultJournalDir
	}

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           "journal_",
		SegmentThreshold: journalSegmentLimit,
		MaxSegments:      journalMaxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init order journal WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Save appends entry and returns its index.
func (s *WALStore) Save(entry domain.JournalEntry) (uint64, error) {
	if s == nil || s.wal == nil {
		return 0, errors.New("order journal is not initialized")
	}
	if entry.ID == "" {
		return 0, errors.New("journal entry id is required")
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return 0, errors.Wrap(err, "marshal journal entry")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(idx, journalKeyPrefix+entry.ID, payload); err != nil {
		return 0, errors.Wrap(err, "write journal entry")
	}
	return idx, nil
}

// EntriesAfter returns entries written after index, oldest first.
func (s *WALStore) EntriesAfter(index uint64) ([]domain.JournalRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("order journal is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]domain.JournalRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, ok := s.wal.Get(idx)
		if !ok || !strings.HasPrefix(key, journalKeyPrefix) {
			continue
		}
		var entry domain.JournalEntry
		if err := json.Unmarshal(payload, &entry); err != nil {
			return nil, errors.Wrapf(err, "decode journal entry %d", idx)
		}
		records = append(records, domain.JournalRecord{Index: idx, Entry: entry})
	}

	return records, nil
}

// Recent returns up to limit latest entries, oldest first.
func (s *WALStore) Recent(limit int) ([]domain.JournalRecord, error) {
	current := s.CurrentIndex()
	var from uint64
	if limit > 0 && current > uint64(limit) {
		from = current - uint64(limit)
	}
	return s.EntriesAfter(from)
}

// CurrentIndex returns the latest index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("order journal is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
