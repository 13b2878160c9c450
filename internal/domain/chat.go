package domain

import "time"

// Sender author of a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// ChatMessage one entry of a chat transcript.
type ChatMessage struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Agent backend persona a chat query is routed to.
type Agent string

const (
	// AgentGeneral is used when no agent is selected.
	AgentGeneral   Agent = ""
	AgentMarket    Agent = "market"
	AgentTrade     Agent = "trade"
	AgentPortfolio Agent = "portfolio"
)

// Agents lists all selectable agents, general first.
func Agents() []Agent {
	return []Agent{AgentGeneral, AgentMarket, AgentTrade, AgentPortfolio}
}

// String returns the display name.
func (a Agent) String() string {
	if a == AgentGeneral {
		return "general"
	}
	return string(a)
}

// Tool auxiliary panel a reply may activate.
type Tool string

const (
	ToolNone         Tool = "none"
	ToolGraph        Tool = "graph"
	ToolExecute      Tool = "execute"
	ToolTransactions Tool = "transactions"
)

// ToolInvocation structured hint selecting a tool panel.
type ToolInvocation struct {
	Tool    Tool
	Payload map[string]any
}

// Active reports whether the invocation selects a panel.
func (t ToolInvocation) Active() bool {
	return t.Tool != "" && t.Tool != ToolNone
}
