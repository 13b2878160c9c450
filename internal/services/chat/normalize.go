// Package chat routes queries to agents and reveals their replies word by word.
package chat

import (
	"encoding/json"
	"strings"

	"github.com/PaesslerAG/jsonpath"

	"github.com/vadiminshakov/folio/internal/domain"
)

// EmptyReplyText is shown when an agent answers with an empty body.
const EmptyReplyText = "Sorry, I could not get a response. Please try again."

var (
	textPaths    = []string{"$.reply", "$.message", "$.text", "$.response", "$.answer", "$.content"}
	toolPaths    = []string{"$.tool", "$.action", "$.tool_name", "$.toolName", "$.intent"}
	payloadPaths = []string{"$.payload", "$.data", "$.params", "$.args", "$.tool_input"}

	toolAliases = map[string]domain.Tool{
		"chart":               domain.ToolGraph,
		"graph":               domain.ToolGraph,
		"pricegraph":          domain.ToolGraph,
		"price_graph":         domain.ToolGraph,
		"price_chart":         domain.ToolGraph,
		"trade":               domain.ToolExecute,
		"order":               domain.ToolExecute,
		"execute":             domain.ToolExecute,
		"quicktrade":          domain.ToolExecute,
		"quick_trade":         domain.ToolExecute,
		"history":             domain.ToolTransactions,
		"tx":                  domain.ToolTransactions,
		"txs":                 domain.ToolTransactions,
		"transactions":        domain.ToolTransactions,
		"transaction_history": domain.ToolTransactions,
	}
)

// Reply normalized agent response.
type Reply struct {
	Text string
	Tool domain.ToolInvocation
}

// Normalize converts a decoded reply body into display text plus tool activation.
func Normalize(body any) Reply {
	return Reply{Text: NormalizeText(body), Tool: Classify(body)}
}

// NormalizeText picks the display text: a bare string as is, else the first non-empty text field,
// else the body serialized as JSON.
func NormalizeText(body any) string {
	switch v := body.(type) {
	case nil:
		return EmptyReplyText
	case string:
		if strings.TrimSpace(v) == "" {
			return EmptyReplyText
		}
		return v
	}

	for _, path := range textPaths {
		found, err := jsonpath.Get(path, body)
		if err != nil {
			continue
		}
		if s, ok := found.(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}

	raw, err := json.Marshal(body)
	if err != nil || len(raw) == 0 || string(raw) == "{}" || string(raw) == "null" {
		return EmptyReplyText
	}
	return string(raw)
}

// Classify maps the tool hint of a reply body to a tool invocation. Unknown or missing hints
// yield domain.ToolNone.
func Classify(body any) domain.ToolInvocation {
	inv := domain.ToolInvocation{Tool: domain.ToolNone, Payload: map[string]any{}}
	if _, ok := body.(map[string]any); !ok {
		return inv
	}

	for _, path := range toolPaths {
		found, err := jsonpath.Get(path, body)
		if err != nil || found == nil {
			continue
		}
		name, ok := found.(string)
		name = strings.ToLower(strings.TrimSpace(name))
		if !ok || name == "" {
			continue
		}
		if tool, known := toolAliases[name]; known {
			inv.Tool = tool
		}
		break
	}

	for _, path := range payloadPaths {
		found, err := jsonpath.Get(path, body)
		if err != nil {
			continue
		}
		if payload, ok := found.(map[string]any); ok {
			inv.Payload = payload
			break
		}
	}
	return inv
}
