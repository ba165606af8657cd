package lead

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	domainagent "github.com/alanyang/lead-router/internal/domain/agent"
	domainassignment "github.com/alanyang/lead-router/internal/domain/assignment"
	domainlead "github.com/alanyang/lead-router/internal/domain/lead"
	"github.com/alanyang/lead-router/internal/metrics"
	portassignment "github.com/alanyang/lead-router/internal/port/assignment"
	"github.com/alanyang/lead-router/internal/port/clock"
	portlead "github.com/alanyang/lead-router/internal/port/lead"
	"github.com/alanyang/lead-router/internal/service/pool"
	"github.com/alanyang/lead-router/internal/service/validation"
)

type AssignInput struct {
	AgentID  string  `json:"agent_id" validate:"required"`
	Priority string  `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	Notes    *string `json:"notes"`
}

type AssignResult struct {
	Lead          domainlead.Lead      `json:"lead"`
	AgentCapacity domainagent.Capacity `json:"agent_capacity"`
	AssignedBy    string               `json:"assigned_by"`
	AssignedAt    time.Time            `json:"assigned_at"`
}

type ReassignInput struct {
	NewAgent string  `json:"new_agent" validate:"required"`
	Reason   *string `json:"reason"`
	Notes    *string `json:"notes"`
}

type ReassignResult struct {
	Lead          domainlead.Lead      `json:"lead"`
	PreviousAgent string               `json:"previous_agent"`
	NewAgent      string               `json:"new_agent"`
	AgentCapacity domainagent.Capacity `json:"agent_capacity"`
	ReassignedAt  time.Time            `json:"reassigned_at"`
}

// Service assigns and reassigns single leads.
type Service struct {
	leads   portlead.Repository
	commits portassignment.Committer
	oracle  pool.CapacityReader
	clock   clock.Clock
	metrics metrics.Recorder
}

func NewService(leads portlead.Repository, commits portassignment.Committer, oracle pool.CapacityReader, clk clock.Clock, rec metrics.Recorder) *Service {
	if rec == nil {
		rec = metrics.NewNop()
	}
	return &Service{leads: leads, commits: commits, oracle: oracle, clock: clk, metrics: rec}
}

func (s *Service) Get(ctx context.Context, id string) (domainlead.Lead, error) {
	l, err := s.leads.GetByID(ctx, id)
	if err != nil {
		return domainlead.Lead{}, fmt.Errorf("get lead: %w", err)
	}
	return l, nil
}

// Assign gives the lead to in.AgentID. The capacity read up front only fails
// fast; the commit re-checks the ceiling and the lead's owner atomically.
func (s *Service) Assign(ctx context.Context, by, leadID string, in AssignInput) (AssignResult, error) {
	res, err := s.assign(ctx, by, leadID, in)
	s.metrics.RecordAssignment("assign", strings.ToLower(domainassignment.Code(err)))
	return res, err
}

func (s *Service) assign(ctx context.Context, by, leadID string, in AssignInput) (AssignResult, error) {
	if err := validation.Struct(in); err != nil {
		return AssignResult{}, err
	}

	l, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return AssignResult{}, fmt.Errorf("get lead: %w", err)
	}
	if err := s.precheck(ctx, l, in.AgentID); err != nil {
		return AssignResult{}, err
	}

	now := s.clock.Now()
	fields := map[string]any{"agent": in.AgentID, "previous_agent": l.Owner()}
	c := domainassignment.Commit{
		LeadID:        leadID,
		ExpectedAgent: l.AssignedAgent,
		AgentID:       in.AgentID,
		At:            now,
		Method:        domainassignment.MethodDirect,
		Notes:         in.Notes,
	}
	if in.Priority != "" {
		p := domainlead.Priority(in.Priority)
		c.Priority = &p
		fields["priority"] = in.Priority
	}
	c.Event = domainlead.NewEvent(domainlead.ActionAssigned, by, now, fields)
	if in.Notes != nil {
		c.Event.Notes = *in.Notes
	}

	rc, err := s.commits.Commit(ctx, c)
	if err != nil {
		slog.WarnContext(ctx, "assign rejected", "lead_id", leadID, "agent_id", in.AgentID, "error", err)
		return AssignResult{}, fmt.Errorf("assign lead %s: %w", leadID, err)
	}

	slog.InfoContext(ctx, "lead assigned", "lead_id", leadID, "agent_id", in.AgentID, "by", by)
	return AssignResult{
		Lead:          rc.Lead,
		AgentCapacity: domainagent.NewCapacity(rc.Load),
		AssignedBy:    by,
		AssignedAt:    now,
	}, nil
}

// Reassign moves the lead to in.NewAgent and records who had it before.
func (s *Service) Reassign(ctx context.Context, by, leadID string, in ReassignInput) (ReassignResult, error) {
	res, err := s.reassign(ctx, by, leadID, in)
	s.metrics.RecordAssignment("reassign", strings.ToLower(domainassignment.Code(err)))
	return res, err
}

func (s *Service) reassign(ctx context.Context, by, leadID string, in ReassignInput) (ReassignResult, error) {
	if err := validation.Struct(in); err != nil {
		return ReassignResult{}, err
	}

	l, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return ReassignResult{}, fmt.Errorf("get lead: %w", err)
	}
	previous := l.Owner()
	if err := s.precheck(ctx, l, in.NewAgent); err != nil {
		return ReassignResult{}, err
	}

	now := s.clock.Now()
	fields := map[string]any{"previous_agent": previous, "new_agent": in.NewAgent}
	if in.Reason != nil {
		fields["reason"] = *in.Reason
	}
	c := domainassignment.Commit{
		LeadID:             leadID,
		ExpectedAgent:      l.AssignedAgent,
		AgentID:            in.NewAgent,
		At:                 now,
		PreviousAgent:      &previous,
		ReassignmentReason: in.Reason,
		ReassignmentNotes:  in.Notes,
		Event:              domainlead.NewEvent(domainlead.ActionReassigned, by, now, fields),
	}
	if in.Notes != nil {
		c.Event.Notes = *in.Notes
	}

	rc, err := s.commits.Commit(ctx, c)
	if err != nil {
		slog.WarnContext(ctx, "reassign rejected", "lead_id", leadID, "agent_id", in.NewAgent, "error", err)
		return ReassignResult{}, fmt.Errorf("reassign lead %s: %w", leadID, err)
	}

	slog.InfoContext(ctx, "lead reassigned", "lead_id", leadID, "previous_agent", previous, "agent_id", in.NewAgent, "by", by)
	return ReassignResult{
		Lead:          rc.Lead,
		PreviousAgent: previous,
		NewAgent:      in.NewAgent,
		AgentCapacity: domainagent.NewCapacity(rc.Load),
		ReassignedAt:  now,
	}, nil
}

// precheck rejects a target with no free slot before any write. A lead that
// already belongs to the target does not need a slot.
func (s *Service) precheck(ctx context.Context, l domainlead.Lead, agentID string) error {
	if l.IsAssignedTo(agentID) {
		return nil
	}
	c, err := s.oracle.Capacity(ctx, agentID)
	if err != nil {
		if errors.Is(err, domainagent.ErrNotFound) {
			return fmt.Errorf("get agent %s: %w", agentID, err)
		}
		return fmt.Errorf("capacity check: %w", err)
	}
	if !c.HasRoom() {
		return &domainassignment.CapacityExceededError{AgentID: agentID, Capacity: c}
	}
	return nil
}
