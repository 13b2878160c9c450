// Package prefs persists CLI choices (last symbol, agent, quantity) between runs.
package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/folio/internal/domain"
)

const (
	defaultStateDir = "./wal/state"
	stateFile       = "prefs.json"
)

// Prefs remembered CLI inputs.
type Prefs struct {
	Symbol   string       `json:"symbol,omitempty"`
	Side     domain.Side  `json:"side,omitempty"`
	Quantity int64        `json:"quantity,omitempty"`
	Agent    domain.Agent `json:"agent,omitempty"`
	Username string       `json:"username,omitempty"`
}

// Store JSON file store.
type Store struct {
	path string
}

// NewStore creates a store under dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		dir = defaultStateDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create state dir")
	}
	return &Store{path: filepath.Join(dir, stateFile)}, nil
}

// Load reads preferences; a missing or empty file yields zero Prefs.
func (s *Store) Load() (Prefs, error) {
	if s == nil || s.path == "" {
		return Prefs{}, nil
	}

	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Prefs{}, nil
		}
		return Prefs{}, errors.Wrap(err, "read prefs")
	}
	if len(payload) == 0 {
		return Prefs{}, nil
	}

	var p Prefs
	if err := json.Unmarshal(payload, &p); err != nil {
		return Prefs{}, errors.Wrap(err, "decode prefs")
	}
	return p, nil
}

// Save writes preferences atomically via a temp file.
func (s *Store) Save(p Prefs) error {
	if s == nil || s.path == "" {
		return nil
	}

	payload, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode prefs")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return errors.Wrap(err, "write prefs temp file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "persist prefs")
	}
	return nil
}

// Update loads, applies fn and saves.
func (s *Store) Update(fn func(*Prefs)) error {
	p, err := s.Load()
	if err != nil {
		return err
	}
	fn(&p)
	return s.Save(p)
}
