package views

import (
	"sync"
	"time"
)

// Notice inline message that disappears after a TTL.
type Notice struct {
	mu    sync.Mutex
	ttl   time.Duration
	text  string
	seq   uint64
	timer *time.Timer
}

// NewNotice creates a notice dismissed ttl after each Show; ttl <= 0 keeps messages until Clear.
func NewNotice(ttl time.Duration) *Notice {
	return &Notice{ttl: ttl}
}

// Show replaces the current message and restarts the dismiss timer.
func (n *Notice) Show(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.stopLocked()
	n.text = text
	n.seq++
	if n.ttl <= 0 || text == "" {
		return
	}
	seq := n.seq
	n.timer = time.AfterFunc(n.ttl, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if n.seq == seq {
			n.text = ""
		}
	})
}

// Text returns the visible message, "" when dismissed.
func (n *Notice) Text() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.text
}

// Clear dismisses the message immediately.
func (n *Notice) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopLocked()
	n.text = ""
	n.seq++
}

func (n *Notice) stopLocked() {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}
