package assignment

import (
	"fmt"
	"time"

	"github.com/alanyang/lead-router/internal/domain/agent"
	"github.com/alanyang/lead-router/internal/domain/lead"
)

type Strategy string

const (
	StrategyRoundRobin     Strategy = "round_robin"
	StrategyCapacityBased  Strategy = "capacity_based"
	StrategyManual         Strategy = "manual"
	StrategyFirstAvailable Strategy = "first_available"
)

// MethodDirect marks leads assigned through the single-lead path.
const MethodDirect = "direct"

// ParseStrategy maps the wire value to a Strategy. Empty means first_available.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "":
		return StrategyFirstAvailable, nil
	case StrategyRoundRobin, StrategyCapacityBased, StrategyManual, StrategyFirstAvailable:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown assignment strategy %q", s)
}

// Commit is one conditional assignment write. It succeeds only if the lead's
// assigned_agent still equals ExpectedAgent and the target agent has a free
// slot at commit time.
type Commit struct {
	LeadID        string
	ExpectedAgent *string
	AgentID       string
	At            time.Time

	Priority *lead.Priority
	Method   string
	Notes    *string

	// Reassignment fields; nil on plain assignments.
	PreviousAgent      *string
	ReassignmentReason *string
	ReassignmentNotes  *string

	Event lead.Event
}

// Expects reports whether l is still owned by ExpectedAgent.
func (c Commit) Expects(l lead.Lead) bool {
	if l.AssignedAgent == nil || c.ExpectedAgent == nil {
		return l.AssignedAgent == nil && c.ExpectedAgent == nil
	}
	return *l.AssignedAgent == *c.ExpectedAgent
}

// Apply writes the commit's field changes onto l. Shared by adapters.
func (c Commit) Apply(l *lead.Lead) {
	agentID := c.AgentID
	at := c.At.UTC()
	l.AssignedAgent = &agentID
	l.AssignedAt = &at
	l.LastActivity = &at
	l.UpdatedAt = at
	if c.Priority != nil {
		l.Priority = *c.Priority
	}
	if c.Method != "" {
		l.AssignmentMethod = c.Method
	}
	if c.Notes != nil {
		l.AssignmentNotes = *c.Notes
	}
	if c.PreviousAgent != nil {
		l.PreviousAgent = *c.PreviousAgent
	}
	if c.ReassignmentReason != nil {
		l.ReassignmentReason = *c.ReassignmentReason
	}
	if c.ReassignmentNotes != nil {
		l.ReassignmentNotes = *c.ReassignmentNotes
	}
	l.UpdateHistory = append(l.UpdateHistory, c.Event)
}

// Receipt is what a successful Commit returns: the written lead and the target
// agent's load as of the same transaction.
type Receipt struct {
	Lead lead.Lead
	Load agent.Load
}

type ItemStatus string

const (
	ItemUpdated  ItemStatus = "updated"
	ItemAssigned ItemStatus = "assigned"
	ItemFailed   ItemStatus = "failed"
)

// ItemResult is the per-lead outcome of a bulk operation.
type ItemResult struct {
	LeadID        string     `json:"lead_id"`
	Status        ItemStatus `json:"status"`
	AgentID       string     `json:"agent_id,omitempty"`
	UpdatedFields []string   `json:"updated_fields,omitempty"`
	Error         string     `json:"error,omitempty"`
}

type BulkUpdateResult struct {
	UpdatedCount int          `json:"updated_count"`
	FailedCount  int          `json:"failed_count"`
	Results      []ItemResult `json:"results"`
}

type BulkAssignSummary struct {
	Total              int      `json:"total"`
	SuccessCount       int      `json:"success_count"`
	FailedCount        int      `json:"failed_count"`
	Strategy           Strategy `json:"strategy"`
	DistinctAgentsUsed int      `json:"distinct_agents_used"`
}

type BulkAssignResult struct {
	ReservationID string            `json:"reservation_id"`
	Assignments   []ItemResult      `json:"assignments"`
	Summary       BulkAssignSummary `json:"summary"`
}
