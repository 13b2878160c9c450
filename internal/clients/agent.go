package clients

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vadiminshakov/folio/config"
	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/session"
)

// AgentClient sends chat queries to the agent endpoints.
type AgentClient interface {
	// Ask posts query to the endpoint of agent and returns the decoded reply body.
	Ask(ctx context.Context, agent domain.Agent, query string) (any, error)
}

// Agents resty-backed AgentClient. One endpoint per agent; no selected agent means the general endpoint.
type Agents struct {
	backend   *Backend
	endpoints map[domain.Agent]string
}

// NewAgents creates the chat client sharing the backend session and transport settings.
func NewAgents(baseURL string, timeout time.Duration, endpoints map[domain.Agent]string, sess *session.Session, logger *zap.Logger) *Agents {
	return &Agents{
		backend:   NewBackend(baseURL, timeout, config.Endpoints{}, sess, logger),
		endpoints: endpoints,
	}
}

type agentRequest struct {
	UserQuery string `json:"userQuery"`
}

// Ask implements AgentClient.
func (a *Agents) Ask(ctx context.Context, agent domain.Agent, query string) (any, error) {
	endpoint := a.Endpoint(agent)
	body, err := a.backend.do(ctx, http.MethodPost, endpoint, nil, agentRequest{UserQuery: query})
	if err != nil {
		return nil, asNetworkError(err)
	}
	return decodeBody(body), nil
}

// Endpoint resolves the path for agent, falling back to the general endpoint.
func (a *Agents) Endpoint(agent domain.Agent) string {
	if endpoint := strings.TrimSpace(a.endpoints[agent]); endpoint != "" {
		return endpoint
	}
	return a.endpoints[domain.AgentGeneral]
}
