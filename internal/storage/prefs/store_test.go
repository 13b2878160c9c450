package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/folio/internal/domain"
)

func TestStore_RoundTrip(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "nested"))
	require.NoError(t, err)

	p, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Prefs{}, p)

	require.NoError(t, store.Update(func(p *Prefs) {
		p.Symbol = "AAPL"
		p.Agent = domain.AgentMarket
	}))
	require.NoError(t, store.Update(func(p *Prefs) {
		p.Quantity = 3
	}))

	p, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, Prefs{Symbol: "AAPL", Quantity: 3, Agent: domain.AgentMarket}, p)
}

func TestStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, stateFile), []byte("{"), 0o644))

	_, err = store.Load()
	assert.Error(t, err)
}
