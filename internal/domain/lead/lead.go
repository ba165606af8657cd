package lead

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("lead not found")

// UnassignedSentinel is recorded as previous_agent when a lead had no owner.
const UnassignedSentinel = "unassigned"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Action string

const (
	ActionAssigned     Action = "assigned"
	ActionReassigned   Action = "reassigned"
	ActionBulkAssigned Action = "bulk_assigned"
	ActionBulkUpdate   Action = "bulk_update"
)

// Event is one append-only entry of a lead's update_history.
type Event struct {
	ID        uuid.UUID      `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Action    Action         `json:"action"`
	By        string         `json:"by"`
	Fields    map[string]any `json:"fields,omitempty"`
	Notes     string         `json:"notes,omitempty"`
}

func NewEvent(action Action, by string, at time.Time, fields map[string]any) Event {
	return Event{
		ID:        uuid.New(),
		Timestamp: at.UTC(),
		Action:    action,
		By:        by,
		Fields:    fields,
	}
}

type Lead struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name,omitempty"`
	Email              string         `json:"email,omitempty"`
	Phone              string         `json:"phone,omitempty"`
	Company            string         `json:"company,omitempty"`
	Source             string         `json:"source,omitempty"`
	Status             string         `json:"status,omitempty"`
	Disposition        string         `json:"disposition,omitempty"`
	Priority           Priority       `json:"priority"`
	AssignedAgent      *string        `json:"assigned_agent,omitempty"`
	AssignedAt         *time.Time     `json:"assigned_at,omitempty"`
	AssignmentMethod   string         `json:"assignment_method,omitempty"`
	AssignmentNotes    string         `json:"assignment_notes,omitempty"`
	PreviousAgent      string         `json:"previous_agent,omitempty"`
	ReassignmentReason string         `json:"reassignment_reason,omitempty"`
	ReassignmentNotes  string         `json:"reassignment_notes,omitempty"`
	Notes              string         `json:"notes,omitempty"`
	Tags               []string       `json:"tags"`
	Attributes         map[string]any `json:"attributes,omitempty"`
	LastActivity       *time.Time     `json:"last_activity,omitempty"`
	UpdateHistory      []Event        `json:"update_history"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func New(id, name, email, source string) Lead {
	now := time.Now().UTC()
	return Lead{
		ID:            id,
		Name:          name,
		Email:         email,
		Source:        source,
		Status:        "new",
		Priority:      PriorityNormal,
		Tags:          []string{},
		Attributes:    map[string]any{},
		UpdateHistory: []Event{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Owner returns the assigned agent or the unassigned sentinel.
func (l *Lead) Owner() string {
	if l.AssignedAgent == nil || *l.AssignedAgent == "" {
		return UnassignedSentinel
	}
	return *l.AssignedAgent
}

func (l *Lead) IsAssignedTo(agentID string) bool {
	return l.AssignedAgent != nil && *l.AssignedAgent == agentID
}

type ListFilters struct {
	AssignedTo *string
	Status     *string
	Priority   *Priority
	Unassigned bool // WHERE assigned_agent IS NULL
}
