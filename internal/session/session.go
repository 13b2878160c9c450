// Package session holds the authenticated client session passed explicitly to every component
// that talks to the backend.
package session

import (
	"context"
	"sync"
	"time"
)

// Session bearer token plus a lifetime context that is cancelled on Close or Expire.
type Session struct {
	mu        sync.RWMutex
	token     string
	createdAt time.Time
	expired   bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates a session rooted at parent.
func New(parent context.Context, token string) *Session {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		token:     token,
		createdAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Token returns the bearer token.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Context is cancelled when the session ends. Work owned by the session derives from it.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Done returns a channel closed when the session ends.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// CreatedAt returns the session start time.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// Expire marks the token as rejected by the backend and ends the session.
func (s *Session) Expire() {
	s.mu.Lock()
	s.expired = true
	s.token = ""
	s.mu.Unlock()
	s.cancel()
}

// Expired reports whether the backend rejected the token.
func (s *Session) Expired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expired
}

// Close ends the session (logout).
func (s *Session) Close() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	s.cancel()
}
