package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/views"
)

type messageSource interface {
	Messages() []domain.ChatMessage
}

// streamPrinter writes the growing bot reply to out as it is revealed.
type streamPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	source  messageSource
	current string
	printed int
}

func newStreamPrinter(out io.Writer, source messageSource) *streamPrinter {
	return &streamPrinter{out: out, source: source}
}

// update is registered as the chat session change callback.
func (p *streamPrinter) update() {
	messages := p.source.Messages()
	if len(messages) == 0 {
		return
	}
	last := messages[len(messages)-1]
	if last.Sender != domain.SenderBot {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if last.ID != p.current {
		if p.current != "" {
			fmt.Fprintln(p.out)
		}
		p.current = last.ID
		p.printed = 0
		fmt.Fprint(p.out, views.BotLabel()+" ")
	}
	if len(last.Text) <= p.printed {
		return
	}
	fmt.Fprint(p.out, last.Text[p.printed:])
	p.printed = len(last.Text)
}

// end terminates the current reply line.
func (p *streamPrinter) end() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != "" {
		fmt.Fprintln(p.out)
	}
	p.current = ""
	p.printed = 0
}
