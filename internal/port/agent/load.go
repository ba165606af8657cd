package agent

import (
	"context"

	domainagent "github.com/alanyang/lead-router/internal/domain/agent"
)

// LoadReader is the narrow interface the capacity oracle needs.
type LoadReader interface {
	// GetLoad reads the materialized load counter and the effective ceiling.
	GetLoad(ctx context.Context, agentID string) (domainagent.Load, error)

	// Recount recomputes the counter from the leads assigned to the agent and
	// stores the result.
	Recount(ctx context.Context, agentID string) (domainagent.Load, error)
}
