package availability

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/folio/internal/domain"
)

type mockLookup struct {
	mu        sync.Mutex
	calls     []string
	available map[string]bool
	err       error
}

func (m *mockLookup) UsernameAvailable(ctx context.Context, username string) (bool, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, username)
	if m.err != nil {
		return false, "", m.err
	}
	return m.available[username], "", nil
}

func (m *mockLookup) callsSnapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

var testRules = Rules{MinLength: 3, MaxLength: 20, Pattern: regexp.MustCompile(`^[A-Za-z0-9_]+$`)}

func newChecker(t *testing.T, lookup Lookup, delay time.Duration) *Checker {
	t.Helper()
	c, err := NewChecker(context.Background(), lookup, testRules, delay, nil)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestChecker_LocalRules(t *testing.T) {
	lookup := &mockLookup{}
	c := newChecker(t, lookup, 10*time.Millisecond)

	tests := []struct {
		input  string
		status domain.AvailabilityStatus
	}{
		{"", domain.AvailabilityIdle},
		{"   ", domain.AvailabilityIdle},
		{"ab", domain.AvailabilityInvalid},
		{"abcdefghijklmnopqrstu", domain.AvailabilityInvalid},
		{"bad name!", domain.AvailabilityInvalid},
	}
	for _, tt := range tests {
		state := c.Check(tt.input)
		assert.Equal(t, tt.status, state.Status, "input %q", tt.input)
		if tt.status == domain.AvailabilityInvalid {
			assert.NotEmpty(t, state.Message)
		}
	}

	time.Sleep(40 * time.Millisecond)
	assert.Empty(t, lookup.callsSnapshot())
}

func TestChecker_DebouncesToLatestInput(t *testing.T) {
	lookup := &mockLookup{available: map[string]bool{"validname1234": true}}
	c := newChecker(t, lookup, 500*time.Millisecond)

	assert.Equal(t, domain.AvailabilityChecking, c.Check("validname123").Status)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, domain.AvailabilityChecking, c.Check("validname1234").Status)

	require.Eventually(t, func() bool {
		return c.State().Status == domain.AvailabilityAvailable
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"validname1234"}, lookup.callsSnapshot())
	assert.Equal(t, "validname1234", c.State().Input)
}

func TestChecker_Unavailable(t *testing.T) {
	lookup := &mockLookup{available: map[string]bool{}}
	c := newChecker(t, lookup, 5*time.Millisecond)

	var (
		mu      sync.Mutex
		changes []domain.AvailabilityStatus
	)
	c.OnChange(func(s domain.AvailabilityState) {
		mu.Lock()
		changes = append(changes, s.Status)
		mu.Unlock()
	})

	c.Check("taken_name")
	require.Eventually(t, func() bool {
		return c.State().Status == domain.AvailabilityUnavailable
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, msgUnavailable, c.State().Message)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []domain.AvailabilityStatus{domain.AvailabilityChecking, domain.AvailabilityUnavailable}, changes)
}

func TestChecker_NetworkFailureFallback(t *testing.T) {
	lookup := &mockLookup{err: domain.ErrNetwork}
	c := newChecker(t, lookup, 5*time.Millisecond)

	c.Check("someone")
	require.Eventually(t, func() bool {
		return c.State().Status == domain.AvailabilityUnavailable
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, msgCheckFailed, c.State().Message)
}

func TestChecker_InvalidInputCancelsPendingLookup(t *testing.T) {
	lookup := &mockLookup{}
	c := newChecker(t, lookup, 20*time.Millisecond)

	c.Check("validname")
	c.Check("ab")

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, lookup.callsSnapshot())
	assert.Equal(t, domain.AvailabilityInvalid, c.State().Status)
}

type gatedLookup struct {
	started chan string
	release chan struct{}
}

func (g *gatedLookup) UsernameAvailable(ctx context.Context, username string) (bool, string, error) {
	g.started <- username
	<-g.release
	return true, "", nil
}

func TestChecker_StaleResultNotDeliveredAfterNewInput(t *testing.T) {
	for i := 0; i < 20; i++ {
		lookup := &gatedLookup{started: make(chan string, 2), release: make(chan struct{})}
		c := newChecker(t, lookup, time.Millisecond)

		var (
			mu     sync.Mutex
			states []domain.AvailabilityState
		)
		c.OnChange(func(s domain.AvailabilityState) {
			mu.Lock()
			states = append(states, s)
			mu.Unlock()
		})

		c.Check("alice")
		require.Equal(t, "alice", <-lookup.started)

		go close(lookup.release)
		c.Check("bobby")
		require.Equal(t, "bobby", <-lookup.started)

		require.Eventually(t, func() bool {
			s := c.State()
			return s.Input == "bobby" && s.Status == domain.AvailabilityAvailable
		}, time.Second, 2*time.Millisecond)

		mu.Lock()
		seenNew := false
		for _, s := range states {
			if s.Input == "bobby" {
				seenNew = true
				continue
			}
			assert.False(t, seenNew, "state for %q delivered after newer input", s.Input)
		}
		mu.Unlock()
	}
}
