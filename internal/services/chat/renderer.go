package chat

import (
	"context"
	"strings"
	"time"
)

const defaultStreamTick = 40 * time.Millisecond

// Tokens splits text on whitespace.
func Tokens(text string) []string {
	return strings.Fields(text)
}

// Renderer reveals text one token per tick.
type Renderer struct {
	tick time.Duration
}

// NewRenderer creates a renderer revealing a token every tick.
func NewRenderer(tick time.Duration) *Renderer {
	if tick <= 0 {
		tick = defaultStreamTick
	}
	return &Renderer{tick: tick}
}

// Reveal calls emit with a growing prefix of text (tokens joined by single spaces) once per tick.
// The returned channel is closed after the last prefix was emitted or ctx is done; the ticker is
// stopped in both cases.
func (r *Renderer) Reveal(ctx context.Context, text string, emit func(prefix string)) <-chan struct{} {
	done := make(chan struct{})
	tokens := Tokens(text)

	go func() {
		defer close(done)
		if len(tokens) == 0 {
			return
		}

		ticker := time.NewTicker(r.tick)
		defer ticker.Stop()

		for shown := 1; shown <= len(tokens); shown++ {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			emit(strings.Join(tokens[:shown], " "))
		}
	}()

	return done
}
