package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/folio/internal/domain"
)

// ErrEmptyMessage is returned when submitting blank text.
var ErrEmptyMessage = errors.New("message is empty")

// State lifecycle of a chat turn.
type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// Asker sends a query to an agent and returns the decoded reply body.
type Asker interface {
	Ask(ctx context.Context, agent domain.Agent, query string) (any, error)
}

// Session chat transcript with one turn in flight at most.
type Session struct {
	mu       sync.Mutex
	asker    Asker
	renderer *Renderer
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc

	messages []domain.ChatMessage
	state    State
	agent    domain.Agent
	tool     domain.ToolInvocation
	turn     chan struct{}
	onChange func()
	now      func() time.Time
}

// NewSession creates an idle session. Requests and streaming are bound to ctx and to Close.
func NewSession(ctx context.Context, asker Asker, renderer *Renderer, logger *zap.Logger) (*Session, error) {
	if asker == nil {
		return nil, errors.New("chat asker is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if renderer == nil {
		renderer = NewRenderer(defaultStreamTick)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(ctx)
	turn := make(chan struct{})
	close(turn)
	return &Session{
		asker:    asker,
		renderer: renderer,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		tool:     domain.ToolInvocation{Tool: domain.ToolNone},
		turn:     turn,
		now:      time.Now,
	}, nil
}

// OnChange registers fn, called after every transcript or state change.
func (s *Session) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// SelectAgent routes subsequent queries to agent.
func (s *Session) SelectAgent(agent domain.Agent) {
	s.mu.Lock()
	s.agent = agent
	s.mu.Unlock()
}

// Agent returns the selected agent.
func (s *Session) Agent() domain.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agent
}

// State returns the current turn state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ChatMessage(nil), s.messages...)
}

// ActiveTool returns the tool panel activated by the latest reply that named one.
func (s *Session) ActiveTool() domain.ToolInvocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tool
}

// DismissTool closes the active tool panel.
func (s *Session) DismissTool() {
	s.mu.Lock()
	s.tool = domain.ToolInvocation{Tool: domain.ToolNone}
	s.mu.Unlock()
	s.changed()
}

// Submit appends text as a user message and starts a turn. It fails with domain.ErrBusy while a
// previous turn is sending or streaming.
func (s *Session) Submit(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}
	if s.state != StateIdle {
		s.mu.Unlock()
		return domain.ErrBusy
	}
	s.messages = append(s.messages, s.message(domain.SenderUser, text))
	s.state = StateSending
	agent := s.agent
	turn := make(chan struct{})
	s.turn = turn
	s.mu.Unlock()
	s.changed()

	go s.run(agent, text, turn)
	return nil
}

// Wait blocks until the current turn is over or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	turn := s.turn
	s.mu.Unlock()

	select {
	case <-turn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels the in-flight request and stops streaming.
func (s *Session) Close() {
	s.cancel()
}

func (s *Session) run(agent domain.Agent, query string, turn chan struct{}) {
	defer close(turn)

	body, err := s.asker.Ask(s.ctx, agent, query)
	if s.ctx.Err() != nil {
		s.finish()
		return
	}
	if err != nil {
		s.logger.Warn("chat request failed", zap.String("agent", agent.String()), zap.Error(err))
		s.mu.Lock()
		s.messages = append(s.messages, s.message(domain.SenderBot, domain.UserMessage(err)))
		s.state = StateIdle
		s.mu.Unlock()
		s.changed()
		return
	}

	reply := Normalize(body)
	s.mu.Lock()
	if reply.Tool.Active() {
		s.tool = reply.Tool
	}
	s.messages = append(s.messages, s.message(domain.SenderBot, ""))
	placeholder := len(s.messages) - 1
	s.state = StateStreaming
	s.mu.Unlock()
	s.changed()

	s.logger.Debug("chat reply received",
		zap.String("agent", agent.String()),
		zap.String("tool", string(reply.Tool.Tool)),
		zap.Int("tokens", len(Tokens(reply.Text))))

	<-s.renderer.Reveal(s.ctx, reply.Text, func(prefix string) {
		s.mu.Lock()
		s.messages[placeholder].Text = prefix
		s.mu.Unlock()
		s.changed()
	})
	s.finish()
}

func (s *Session) finish() {
	s.mu.Lock()
	s.state = StateIdle
	s.mu.Unlock()
	s.changed()
}

func (s *Session) message(sender domain.Sender, text string) domain.ChatMessage {
	return domain.ChatMessage{
		ID:        uuid.NewString(),
		Sender:    sender,
		Text:      text,
		Timestamp: s.now(),
	}
}

func (s *Session) changed() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
