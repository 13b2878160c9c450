package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/folio/internal/domain"
)

type mockAsker struct {
	mu      sync.Mutex
	agents  []domain.Agent
	body    any
	err     error
	release chan struct{}
}

func (m *mockAsker) Ask(ctx context.Context, agent domain.Agent, query string) (any, error) {
	m.mu.Lock()
	m.agents = append(m.agents, agent)
	m.mu.Unlock()
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.body, m.err
}

func newSession(t *testing.T, asker Asker) *Session {
	t.Helper()
	s, err := NewSession(context.Background(), asker, NewRenderer(time.Millisecond), nil)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func waitTurn(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
}

func TestSession_StreamsReply(t *testing.T) {
	s := newSession(t, &mockAsker{body: map[string]any{"reply": "a b c"}})

	var (
		mu     sync.Mutex
		botTxt []string
	)
	s.OnChange(func() {
		msgs := s.Messages()
		last := msgs[len(msgs)-1]
		if last.Sender != domain.SenderBot || last.Text == "" {
			return
		}
		mu.Lock()
		if len(botTxt) == 0 || botTxt[len(botTxt)-1] != last.Text {
			botTxt = append(botTxt, last.Text)
		}
		mu.Unlock()
	})

	require.NoError(t, s.Submit("hi"))
	waitTurn(t, s)

	assert.Equal(t, StateIdle, s.State())
	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.SenderUser, msgs[0].Sender)
	assert.Equal(t, "hi", msgs[0].Text)
	assert.Equal(t, domain.SenderBot, msgs[1].Sender)
	assert.Equal(t, "a b c", msgs[1].Text)
	assert.NotEqual(t, msgs[0].ID, msgs[1].ID)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "a b", "a b c"}, botTxt)
}

func TestSession_BusyWhileSending(t *testing.T) {
	asker := &mockAsker{body: "ok", release: make(chan struct{})}
	s := newSession(t, asker)

	require.NoError(t, s.Submit("first"))
	assert.Equal(t, StateSending, s.State())
	assert.ErrorIs(t, s.Submit("second"), domain.ErrBusy)

	close(asker.release)
	waitTurn(t, s)
	assert.Len(t, s.Messages(), 2)
	require.NoError(t, s.Submit("third"))
	waitTurn(t, s)
	assert.Len(t, s.Messages(), 4)
}

func TestSession_ErrorMessageInline(t *testing.T) {
	s := newSession(t, &mockAsker{err: domain.ErrNetwork})

	require.NoError(t, s.Submit("hi"))
	waitTurn(t, s)

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.SenderBot, msgs[1].Sender)
	assert.Equal(t, "Network error, please try again.", msgs[1].Text)
	assert.Equal(t, StateIdle, s.State())
}

func TestSession_ToolActivation(t *testing.T) {
	asker := &mockAsker{body: map[string]any{"reply": "see chart", "tool": "chart", "payload": map[string]any{"symbol": "AAPL"}}}
	s := newSession(t, asker)
	s.SelectAgent(domain.AgentMarket)

	require.NoError(t, s.Submit("show AAPL"))
	waitTurn(t, s)

	tool := s.ActiveTool()
	assert.Equal(t, domain.ToolGraph, tool.Tool)
	assert.Equal(t, "AAPL", tool.Payload["symbol"])
	assert.Equal(t, []domain.Agent{domain.AgentMarket}, asker.agents)

	asker.mu.Lock()
	asker.body = "no tool here"
	asker.mu.Unlock()
	require.NoError(t, s.Submit("thanks"))
	waitTurn(t, s)
	assert.Equal(t, domain.ToolGraph, s.ActiveTool().Tool)

	s.DismissTool()
	assert.False(t, s.ActiveTool().Active())
}

func TestSession_CloseCancelsTurn(t *testing.T) {
	asker := &mockAsker{body: "never", release: make(chan struct{})}
	s := newSession(t, asker)

	require.NoError(t, s.Submit("hi"))
	s.Close()
	waitTurn(t, s)

	assert.Equal(t, StateIdle, s.State())
	assert.Len(t, s.Messages(), 1)
	assert.ErrorIs(t, s.Submit("again"), domain.ErrSessionClosed)
}

func TestSession_EmptySubmit(t *testing.T) {
	s := newSession(t, &mockAsker{})
	assert.ErrorIs(t, s.Submit("   "), ErrEmptyMessage)
	assert.Empty(t, s.Messages())
}
