package agent

import (
	"context"
	"fmt"
	"log/slog"

	domainagent "github.com/alanyang/lead-router/internal/domain/agent"
	domainassignment "github.com/alanyang/lead-router/internal/domain/assignment"
	portagent "github.com/alanyang/lead-router/internal/port/agent"
	"github.com/alanyang/lead-router/internal/port/clock"
	"github.com/alanyang/lead-router/internal/service/validation"
)

type CapacityOracle interface {
	Capacity(ctx context.Context, agentID string) (domainagent.Capacity, error)
	Recount(ctx context.Context, agentID string) (domainagent.Capacity, error)
}

type ListInput struct {
	IncludeCapacity bool   `json:"include_capacity"`
	Status          string `json:"status" validate:"omitempty,oneof=active inactive"`
}

// View is an agent as listed; Capacity is set only when it was requested.
type View struct {
	domainagent.Agent
	Capacity *domainagent.Capacity `json:"capacity,omitempty"`
}

type Summary struct {
	TotalAgents           int `json:"total_agents"`
	ActiveAgents          int `json:"active_agents"`
	TotalCapacity         int `json:"total_capacity"`
	UsedCapacity          int `json:"used_capacity"`
	AvailableCapacity     int `json:"available_capacity"`
	UtilizationPercentage int `json:"utilization_percentage"`
}

type ListResult struct {
	Agents  []View  `json:"agents"`
	Summary Summary `json:"summary"`
}

type UpdateCapacityInput struct {
	MaxCapacity  *int    `json:"max_capacity" validate:"omitempty,min=0"`
	Availability *string `json:"availability" validate:"omitempty,oneof=active inactive"`
}

// Service is the agent-facing admin surface: listing with load summary,
// capacity updates and counter reconciliation.
type Service struct {
	agents portagent.Directory
	oracle CapacityOracle
	clock  clock.Clock
}

func NewService(agents portagent.Directory, oracle CapacityOracle, clk clock.Clock) *Service {
	return &Service{agents: agents, oracle: oracle, clock: clk}
}

func (s *Service) List(ctx context.Context, in ListInput) (ListResult, error) {
	if err := validation.Struct(in); err != nil {
		return ListResult{}, err
	}

	role := domainagent.RoleAgent
	filters := domainagent.ListFilters{Role: &role}
	if in.Status != "" {
		av := domainagent.Availability(in.Status)
		filters.Availability = &av
	}
	agents, err := s.agents.List(ctx, filters)
	if err != nil {
		return ListResult{}, fmt.Errorf("list agents: %w", err)
	}

	res := ListResult{Agents: make([]View, 0, len(agents))}
	for _, a := range agents {
		c, err := s.oracle.Capacity(ctx, a.ID)
		if err != nil {
			return ListResult{}, fmt.Errorf("capacity for %s: %w", a.ID, err)
		}

		res.Summary.TotalAgents++
		if a.IsActive() {
			res.Summary.ActiveAgents++
		}
		res.Summary.TotalCapacity += c.Max
		res.Summary.UsedCapacity += c.Current

		v := View{Agent: a}
		if in.IncludeCapacity {
			v.Capacity = &c
		}
		res.Agents = append(res.Agents, v)
	}
	res.Summary.AvailableCapacity = res.Summary.TotalCapacity - res.Summary.UsedCapacity
	res.Summary.UtilizationPercentage = domainagent.Utilization(res.Summary.UsedCapacity, res.Summary.TotalCapacity)
	return res, nil
}

func (s *Service) Get(ctx context.Context, id string) (domainagent.WithCapacity, error) {
	a, err := s.agents.GetByID(ctx, id)
	if err != nil {
		return domainagent.WithCapacity{}, fmt.Errorf("get agent: %w", err)
	}
	return s.withCapacity(ctx, a)
}

// UpdateCapacity changes max_capacity and/or availability. last_seen is
// stamped even when neither field is given.
func (s *Service) UpdateCapacity(ctx context.Context, id string, in UpdateCapacityInput) (domainagent.WithCapacity, error) {
	if err := validation.Struct(in); err != nil {
		return domainagent.WithCapacity{}, err
	}

	upd := domainagent.CapacityUpdate{MaxCapacity: in.MaxCapacity}
	if in.Availability != nil {
		av := domainagent.Availability(*in.Availability)
		if !av.Valid() {
			verr := &domainassignment.ValidationError{}
			verr.Add("availability", "must be one of active inactive")
			return domainagent.WithCapacity{}, verr
		}
		upd.Availability = &av
	}

	a, err := s.agents.UpdateCapacity(ctx, id, upd, s.clock.Now())
	if err != nil {
		return domainagent.WithCapacity{}, fmt.Errorf("update agent capacity: %w", err)
	}
	slog.InfoContext(ctx, "agent capacity updated", "agent_id", id, "max_capacity", a.CeilingOr(-1), "availability", a.Availability)
	return s.withCapacity(ctx, a)
}

// Recount rebuilds the agent's load counter from the leads it owns.
func (s *Service) Recount(ctx context.Context, id string) (domainagent.WithCapacity, error) {
	a, err := s.agents.GetByID(ctx, id)
	if err != nil {
		return domainagent.WithCapacity{}, fmt.Errorf("get agent: %w", err)
	}
	c, err := s.oracle.Recount(ctx, id)
	if err != nil {
		return domainagent.WithCapacity{}, err
	}
	a.CurrentLoad = c.Current
	return domainagent.WithCapacity{Agent: a, Capacity: c}, nil
}

func (s *Service) withCapacity(ctx context.Context, a domainagent.Agent) (domainagent.WithCapacity, error) {
	c, err := s.oracle.Capacity(ctx, a.ID)
	if err != nil {
		return domainagent.WithCapacity{}, fmt.Errorf("capacity for %s: %w", a.ID, err)
	}
	return domainagent.WithCapacity{Agent: a, Capacity: c}, nil
}
