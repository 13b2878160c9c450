package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vadiminshakov/folio/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		body any
		want domain.Tool
	}{
		{name: "tool chart", body: map[string]any{"tool": "chart"}, want: domain.ToolGraph},
		{name: "action order", body: map[string]any{"action": "order"}, want: domain.ToolExecute},
		{name: "empty", body: map[string]any{}, want: domain.ToolNone},
		{name: "case and spaces", body: map[string]any{"toolName": "  Price_Chart "}, want: domain.ToolGraph},
		{name: "intent history", body: map[string]any{"intent": "TXS"}, want: domain.ToolTransactions},
		{name: "tool_name quick trade", body: map[string]any{"tool_name": "quick_trade"}, want: domain.ToolExecute},
		{name: "unknown tool", body: map[string]any{"tool": "weather"}, want: domain.ToolNone},
		{name: "first present wins", body: map[string]any{"tool": "none", "action": "chart"}, want: domain.ToolNone},
		{name: "null skipped", body: map[string]any{"tool": nil, "action": "history"}, want: domain.ToolTransactions},
		{name: "empty string skipped", body: map[string]any{"tool": "", "action": "order"}, want: domain.ToolExecute},
		{name: "blank string skipped", body: map[string]any{"tool": "  ", "intent": "chart"}, want: domain.ToolGraph},
		{name: "non-string skipped", body: map[string]any{"tool": float64(3), "action": "trade"}, want: domain.ToolExecute},
		{name: "bare string", body: "hello", want: domain.ToolNone},
		{name: "nil", body: nil, want: domain.ToolNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.body).Tool)
		})
	}
}

func TestClassify_Payload(t *testing.T) {
	inv := Classify(map[string]any{
		"tool": "trade",
		"data": "not an object",
		"args": map[string]any{"symbol": "AAPL", "side": "buy"},
	})
	assert.Equal(t, domain.ToolExecute, inv.Tool)
	assert.Equal(t, map[string]any{"symbol": "AAPL", "side": "buy"}, inv.Payload)

	inv = Classify(map[string]any{"tool": "chart"})
	assert.NotNil(t, inv.Payload)
	assert.Empty(t, inv.Payload)
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		body any
		want string
	}{
		{name: "bare string", body: "plain answer", want: "plain answer"},
		{name: "reply", body: map[string]any{"reply": "r", "message": "m"}, want: "r"},
		{name: "skips empty", body: map[string]any{"reply": " ", "text": "t"}, want: "t"},
		{name: "content", body: map[string]any{"content": "c"}, want: "c"},
		{name: "stringified", body: map[string]any{"price": 5}, want: `{"price":5}`},
		{name: "nil", body: nil, want: EmptyReplyText},
		{name: "blank string", body: "  ", want: EmptyReplyText},
		{name: "empty object", body: map[string]any{}, want: EmptyReplyText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeText(tt.body))
		})
	}
}
