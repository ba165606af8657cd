package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	domainagent "github.com/alanyang/lead-router/internal/domain/agent"
	portagent "github.com/alanyang/lead-router/internal/port/agent"
)

// CapacityReader is the one method the pool needs from capacity.Oracle.
type CapacityReader interface {
	Capacity(ctx context.Context, agentID string) (domainagent.Capacity, error)
}

// Builder resolves candidate agents for a batch.
type Builder struct {
	agents portagent.Directory
	oracle CapacityReader
}

func NewBuilder(agents portagent.Directory, oracle CapacityReader) *Builder {
	return &Builder{agents: agents, oracle: oracle}
}

// Available returns active agents with free slots, most free slots first,
// then by performance score, then by id for a deterministic order.
func (b *Builder) Available(ctx context.Context) ([]domainagent.WithCapacity, error) {
	role := domainagent.RoleAgent
	active := domainagent.AvailabilityActive
	agents, err := b.agents.List(ctx, domainagent.ListFilters{Role: &role, Availability: &active})
	if err != nil {
		return nil, fmt.Errorf("list active agents: %w", err)
	}

	out, err := b.annotate(ctx, agents)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Capacity.AvailableSlots != out[j].Capacity.AvailableSlots {
			return out[i].Capacity.AvailableSlots > out[j].Capacity.AvailableSlots
		}
		if si, sj := out[i].Score(), out[j].Score(); si != sj {
			return si > sj
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Manual keeps the caller's order. Duplicate, unknown and inactive ids are
// skipped.
func (b *Builder) Manual(ctx context.Context, ids []string) ([]domainagent.WithCapacity, error) {
	seen := make(map[string]bool, len(ids))
	agents := make([]domainagent.Agent, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		a, err := b.agents.GetByID(ctx, id)
		if errors.Is(err, domainagent.ErrNotFound) {
			slog.InfoContext(ctx, "manual pool: unknown agent skipped", "agent_id", id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get agent %s: %w", id, err)
		}
		if !a.IsActive() {
			slog.InfoContext(ctx, "manual pool: inactive agent skipped", "agent_id", id)
			continue
		}
		if a.Role != domainagent.RoleAgent {
			slog.InfoContext(ctx, "manual pool: non-agent role skipped", "agent_id", id, "role", a.Role)
			continue
		}
		agents = append(agents, a)
	}
	return b.annotate(ctx, agents)
}

func (b *Builder) annotate(ctx context.Context, agents []domainagent.Agent) ([]domainagent.WithCapacity, error) {
	out := make([]domainagent.WithCapacity, 0, len(agents))
	for _, a := range agents {
		c, err := b.oracle.Capacity(ctx, a.ID)
		if errors.Is(err, domainagent.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !c.HasRoom() {
			continue
		}
		out = append(out, domainagent.WithCapacity{Agent: a, Capacity: c})
	}
	return out, nil
}
