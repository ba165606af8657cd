package agent

import (
	"context"
	"time"

	domainagent "github.com/alanyang/lead-router/internal/domain/agent"
)

// Directory is the agent store owned by user management. This service only
// writes max_capacity, availability and last_seen.
type Directory interface {
	// GetByID returns domainagent.ErrNotFound when the agent does not exist.
	GetByID(ctx context.Context, id string) (domainagent.Agent, error)
	List(ctx context.Context, filters domainagent.ListFilters) ([]domainagent.Agent, error)
	UpdateCapacity(ctx context.Context, id string, upd domainagent.CapacityUpdate, lastSeen time.Time) (domainagent.Agent, error)
}
