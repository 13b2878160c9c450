package views

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/folio/internal/domain"
)

// Transcript renders chat messages; bot replies are treated as markdown.
type Transcript struct {
	markdown *glamour.TermRenderer
}

// NewTranscript creates a transcript renderer using the named glamour style
// ("dark", "light", "notty", ...) wrapped at width columns.
func NewTranscript(style string, width int) (*Transcript, error) {
	if style == "" {
		style = "dark"
	}
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, errors.Wrap(err, "init markdown renderer")
	}
	return &Transcript{markdown: r}, nil
}

// Message renders one message with its sender label.
func (t *Transcript) Message(m domain.ChatMessage) string {
	if m.Sender == domain.SenderUser {
		return userStyle.Render("you") + "  " + m.Text
	}

	text := m.Text
	if rendered, err := t.markdown.Render(m.Text); err == nil {
		text = strings.Trim(rendered, "\n")
	}
	return BotLabel() + "\n" + text
}

// BotLabel returns the styled sender label of bot replies.
func BotLabel() string {
	return botStyle.Render("bot")
}

// Render renders the whole transcript.
func (t *Transcript) Render(messages []domain.ChatMessage) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, t.Message(m))
	}
	return strings.Join(parts, "\n\n")
}

// AgentLabel returns the header line for the selected agent.
func AgentLabel(agent domain.Agent) string {
	return HeaderStyle.Render("folio chat · " + agent.String())
}
